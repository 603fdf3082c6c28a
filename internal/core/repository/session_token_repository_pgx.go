package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/twinning-project/twinning-api/internal/core/domain"
)

// PgxSessionTokenRepository implements domain.SessionTokenRepository over a DBTX.
type PgxSessionTokenRepository struct {
	db DBTX
}

// NewSessionTokenRepository creates a new PgxSessionTokenRepository.
func NewSessionTokenRepository(db DBTX) *PgxSessionTokenRepository {
	return &PgxSessionTokenRepository{db: db}
}

// Upsert stores a session token for the given user, enforcing the
// one-token-per-user invariant in a single statement: when a row for the user
// already exists, its key is kept and only the expiry is advanced.
func (r *PgxSessionTokenRepository) Upsert(ctx context.Context, userID int64, key string, expiresAt time.Time) (string, error) {
	query := `
		INSERT INTO session_tokens (key, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET expires_at = EXCLUDED.expires_at
		RETURNING key
	`

	var surviving string
	err := r.db.QueryRow(ctx, query, key, userID, expiresAt).Scan(&surviving)
	if err != nil {
		if isUniqueViolation(err) {
			return "", domain.ErrDuplicateKey
		}
		return "", err
	}
	return surviving, nil
}

// Get looks up a session token by key.
// Returns (nil, nil) when the key does not match any token.
func (r *PgxSessionTokenRepository) Get(ctx context.Context, key string) (*domain.SessionToken, error) {
	query := `SELECT key, user_id, created_at, expires_at FROM session_tokens WHERE key = $1`

	var t domain.SessionToken
	err := r.db.QueryRow(ctx, query, key).Scan(&t.Key, &t.UserID, &t.CreatedAt, &t.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// UpdateExpiry sets the token's expiry in a single statement, so concurrent
// renewals of the same key cannot interleave partial state.
func (r *PgxSessionTokenRepository) UpdateExpiry(ctx context.Context, key string, expiresAt time.Time) error {
	query := `UPDATE session_tokens SET expires_at = $2 WHERE key = $1`
	_, err := r.db.Exec(ctx, query, key, expiresAt)
	return err
}

// Delete removes the token. Deleting an absent key is not an error.
func (r *PgxSessionTokenRepository) Delete(ctx context.Context, key string) error {
	query := `DELETE FROM session_tokens WHERE key = $1`
	_, err := r.db.Exec(ctx, query, key)
	return err
}
