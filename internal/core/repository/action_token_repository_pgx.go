package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/twinning-project/twinning-api/internal/core/domain"
)

// PgxActionTokenRepository implements domain.ActionTokenRepository using
// pgxpool. Consume needs to open transactions, so this repository is bound
// to the pool rather than a DBTX.
type PgxActionTokenRepository struct {
	pool *pgxpool.Pool
}

// NewActionTokenRepository creates a new PgxActionTokenRepository.
func NewActionTokenRepository(pool *pgxpool.Pool) *PgxActionTokenRepository {
	return &PgxActionTokenRepository{pool: pool}
}

// Create inserts a new action token.
func (r *PgxActionTokenRepository) Create(ctx context.Context, key string, userID int64, typ domain.ActionType, expiresAt time.Time) error {
	query := `
		INSERT INTO action_tokens (key, type, user_id, expires_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := r.pool.Exec(ctx, query, key, typ, userID, expiresAt); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateKey
		}
		return err
	}
	return nil
}

// Get looks up an action token by key.
// Returns (nil, nil) when the key does not match any token.
func (r *PgxActionTokenRepository) Get(ctx context.Context, key string) (*domain.ActionToken, error) {
	query := `SELECT key, type, user_id, created_at, expires_at FROM action_tokens WHERE key = $1`

	var t domain.ActionToken
	err := r.pool.QueryRow(ctx, query, key).Scan(&t.Key, &t.Type, &t.UserID, &t.CreatedAt, &t.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// Consume redeems the token under a row lock. The SELECT ... FOR UPDATE
// serializes concurrent redeemers on the same key: the loser waits for the
// winner's commit, then re-evaluates against the deleted row and observes
// found=false. If apply fails the transaction rolls back and the token
// remains redeemable.
func (r *PgxActionTokenRepository) Consume(ctx context.Context, key string, apply func(ctx context.Context, users domain.UserRepository, token *domain.ActionToken) error) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		SELECT key, type, user_id, created_at, expires_at
		FROM action_tokens
		WHERE key = $1
		FOR UPDATE
	`

	var t domain.ActionToken
	err = tx.QueryRow(ctx, query, key).Scan(&t.Key, &t.Type, &t.UserID, &t.CreatedAt, &t.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("lock action token: %w", err)
	}

	if err := apply(ctx, NewUserRepository(tx), &t); err != nil {
		return true, err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM action_tokens WHERE key = $1`, key); err != nil {
		return true, fmt.Errorf("delete action token: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return true, fmt.Errorf("commit redemption: %w", err)
	}
	return true, nil
}
