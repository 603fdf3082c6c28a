package domain

import (
	"context"
	"time"
)

// User represents an account record. The password hash is included so the
// Logic layer can verify credentials; it must never be serialized to clients.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	IsActive     bool
	CreatedAt    time.Time
	LastLogin    *time.Time
}

// UserRepository defines the data-access contract for user operations.
// Implementations live in internal/core/repository (Core layer).
// The Logic layer depends on this interface only — never on SQL or pgx directly.
type UserRepository interface {
	// GetByEmail returns the user matching the given email.
	// Returns (nil, nil) when no user is found.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetByID returns the user with the given id.
	// Returns (nil, nil) when no user is found.
	GetByID(ctx context.Context, id int64) (*User, error)

	// ExistsByEmail returns true when a user with the given email already exists.
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// Create inserts a new inactive user and returns the generated user ID.
	Create(ctx context.Context, email, passwordHash, firstName, lastName string) (int64, error)

	// SetActive updates the user's active flag.
	SetActive(ctx context.Context, id int64, active bool) error

	// SetPasswordHash replaces the user's stored password hash.
	SetPasswordHash(ctx context.Context, id int64, passwordHash string) error

	// UpdateLastLogin sets the last_login timestamp to now for the given user.
	UpdateLastLogin(ctx context.Context, id int64) error
}
