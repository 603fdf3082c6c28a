package domain

import (
	"context"
	"time"
)

// SessionTokenRepository defines the data-access contract for session tokens.
// Implementations live in internal/core/repository (Core layer).
type SessionTokenRepository interface {
	// Upsert stores a session token for the given user. When the user already
	// has a session row, the existing key is kept and only its expiry is
	// advanced; otherwise a new row is inserted with the provided key.
	// Returns the surviving key. Returns ErrDuplicateKey when the provided
	// key collides with another user's token.
	Upsert(ctx context.Context, userID int64, key string, expiresAt time.Time) (string, error)

	// Get looks up a session token by key.
	// Returns (nil, nil) when the key does not match any token.
	Get(ctx context.Context, key string) (*SessionToken, error)

	// UpdateExpiry sets the token's expiry. Used by the renewal policy.
	UpdateExpiry(ctx context.Context, key string, expiresAt time.Time) error

	// Delete removes the token. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
