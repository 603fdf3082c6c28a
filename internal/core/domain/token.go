package domain

import (
	"errors"
	"time"
)

// ErrDuplicateKey is returned by repositories when an insert collides with an
// existing token key. Callers regenerate the key and retry.
var ErrDuplicateKey = errors.New("duplicate token key")

// SessionToken is the per-user authentication token presented on every
// request. There is at most one live session token per user; re-login
// refreshes the existing record instead of creating a second one.
type SessionToken struct {
	Key       string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the token is past its expiry at the given instant.
// Validity is always derived from ExpiresAt; it is never stored separately.
func (t *SessionToken) Expired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}

// ActionType identifies the single action an ActionToken authorizes.
// The type is bound at issuance and checked at redemption; it is never
// inferred from context.
type ActionType string

const (
	ActionAccountActivation ActionType = "account_activation"
	ActionPasswordChange    ActionType = "password_change"
)

// ActionToken is a single-use, typed credential sent out-of-band (by email)
// that authorizes one specific sensitive operation for its user. Many action
// tokens may exist per user, one per outstanding workflow.
type ActionToken struct {
	Key       string
	Type      ActionType
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the token is past its expiry at the given instant.
func (t *ActionToken) Expired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}
