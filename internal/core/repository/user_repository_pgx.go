package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/twinning-project/twinning-api/internal/core/domain"
)

// PgxUserRepository implements domain.UserRepository over a DBTX.
type PgxUserRepository struct {
	db DBTX
}

// NewUserRepository creates a new PgxUserRepository bound to the given DBTX.
func NewUserRepository(db DBTX) *PgxUserRepository {
	return &PgxUserRepository{db: db}
}

const userColumns = `id, email, password_hash, first_name, last_name, is_active, created_at, last_login`

func (r *PgxUserRepository) scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
		&u.IsActive, &u.CreatedAt, &u.LastLogin,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// GetByEmail returns the user matching the given email.
// Returns (nil, nil) when no user is found.
func (r *PgxUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.scanUser(r.db.QueryRow(ctx, query, email))
}

// GetByID returns the user with the given id.
// Returns (nil, nil) when no user is found.
func (r *PgxUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanUser(r.db.QueryRow(ctx, query, id))
}

// ExistsByEmail returns true when a user with the given email already exists.
func (r *PgxUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, email).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// Create inserts a new inactive user and returns the generated user ID.
func (r *PgxUserRepository) Create(ctx context.Context, email, passwordHash, firstName, lastName string) (int64, error) {
	query := `
		INSERT INTO users (email, password_hash, first_name, last_name, is_active)
		VALUES ($1, $2, $3, $4, FALSE)
		RETURNING id
	`

	var id int64
	if err := r.db.QueryRow(ctx, query, email, passwordHash, firstName, lastName).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// SetActive updates the user's active flag.
func (r *PgxUserRepository) SetActive(ctx context.Context, id int64, active bool) error {
	query := `UPDATE users SET is_active = $2 WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id, active)
	return err
}

// SetPasswordHash replaces the user's stored password hash.
func (r *PgxUserRepository) SetPasswordHash(ctx context.Context, id int64, passwordHash string) error {
	query := `UPDATE users SET password_hash = $2 WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id, passwordHash)
	return err
}

// UpdateLastLogin sets the last_login timestamp to now for the given user.
func (r *PgxUserRepository) UpdateLastLogin(ctx context.Context, id int64) error {
	query := `UPDATE users SET last_login = CURRENT_TIMESTAMP WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id)
	return err
}
