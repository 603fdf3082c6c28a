package domain

import (
	"context"
	"time"
)

// ActionTokenRepository defines the data-access contract for action tokens.
// Implementations live in internal/core/repository (Core layer).
type ActionTokenRepository interface {
	// Create inserts a new action token. Always inserts; action tokens are
	// never reused across workflows. Returns ErrDuplicateKey on key collision.
	Create(ctx context.Context, key string, userID int64, typ ActionType, expiresAt time.Time) error

	// Get looks up an action token by key.
	// Returns (nil, nil) when the key does not match any token.
	Get(ctx context.Context, key string) (*ActionToken, error)

	// Consume redeems the token under an exclusive row lock: the token is
	// loaded, apply runs inside the same transaction (users is bound to that
	// transaction), and on success the row is deleted and the transaction
	// committed. If apply returns an error the transaction rolls back and the
	// token remains redeemable. Two concurrent Consume calls on the same key
	// serialize; the loser observes found=false.
	Consume(ctx context.Context, key string, apply func(ctx context.Context, users UserRepository, token *ActionToken) error) (found bool, err error)
}
