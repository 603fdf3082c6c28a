// Package notifier abstracts out-of-band delivery of action-token keys.
// Actual email mechanics live outside this service; the default
// implementation only records that a delivery was handed off.
package notifier

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Notifier delivers action-token keys to users out-of-band.
type Notifier interface {
	// SendActivation delivers an account-activation key to the address.
	SendActivation(ctx context.Context, email, key string) error

	// SendPasswordReset delivers a password-change key to the address.
	SendPasswordReset(ctx context.Context, email, key string) error
}

// LogNotifier is the default delivery backend: it logs the hand-off with a
// generated message id and never fails. Deployments with a real mail
// provider substitute their own Notifier.
type LogNotifier struct{}

// SendActivation implements Notifier.
func (LogNotifier) SendActivation(ctx context.Context, email, key string) error {
	zerolog.Ctx(ctx).Info().
		Str("message_id", uuid.NewString()).
		Str("email", email).
		Str("kind", "account_activation").
		Msg("Notification handed off")
	return nil
}

// SendPasswordReset implements Notifier.
func (LogNotifier) SendPasswordReset(ctx context.Context, email, key string) error {
	zerolog.Ctx(ctx).Info().
		Str("message_id", uuid.NewString()).
		Str("email", email).
		Str("kind", "password_change").
		Msg("Notification handed off")
	return nil
}
