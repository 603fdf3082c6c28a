package v1

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/twinning-project/twinning-api/internal/core/domain"
	"github.com/twinning-project/twinning-api/middleware"
)

// ActionConfig carries the per-type expiry windows for action tokens.
type ActionConfig struct {
	ActivationLifetime     time.Duration
	PasswordChangeLifetime time.Duration
}

func (c ActionConfig) lifetime(typ domain.ActionType) time.Duration {
	if typ == domain.ActionPasswordChange {
		return c.PasswordChangeLifetime
	}
	return c.ActivationLifetime
}

// ActionTokenService issues and redeems single-use, typed tokens for
// out-of-band workflows. A token is bound to its action type at issuance and
// the type is re-checked at redemption, so an activation link can never be
// replayed to authorize a password change or vice versa.
type ActionTokenService struct {
	tokens domain.ActionTokenRepository
	keys   KeyGenerator
	cfg    ActionConfig

	now func() time.Time
}

// NewActionTokenService creates an ActionTokenService.
func NewActionTokenService(tokens domain.ActionTokenRepository, keys KeyGenerator, cfg ActionConfig) *ActionTokenService {
	return &ActionTokenService{
		tokens: tokens,
		keys:   keys,
		cfg:    cfg,
		now:    time.Now,
	}
}

// Issue creates a fresh action token for the user and returns its key for
// out-of-band delivery. Tokens are never reused: each outstanding workflow
// gets its own record.
func (s *ActionTokenService) Issue(ctx context.Context, userID int64, typ domain.ActionType) (string, error) {
	ctx, span := middleware.StartSpan(ctx, "auth.issue_action_token", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("token.type", string(typ)),
	))
	defer span.End()

	expiresAt := s.now().Add(s.cfg.lifetime(typ))
	for attempt := 0; attempt < keyRetries; attempt++ {
		key, err := s.keys.Generate()
		if err != nil {
			span.RecordError(err)
			return "", fmt.Errorf("generate action token key: %w", err)
		}
		err = s.tokens.Create(ctx, key, userID, typ, expiresAt)
		if errors.Is(err, domain.ErrDuplicateKey) {
			continue
		}
		if err != nil {
			span.RecordError(err)
			return "", fmt.Errorf("store action token: %w", err)
		}
		span.AddEvent("action_token.issued")
		return key, nil
	}
	return "", fmt.Errorf("store action token: %w", domain.ErrDuplicateKey)
}

// redeem consumes the token for its declared action. Checks run in priority
// order (not found, expired, type mismatch) and only then does apply run,
// inside the store transaction that deletes the token. If apply fails the
// token survives untouched and remains redeemable; two concurrent
// redemptions of the same key resolve to exactly one success, the other
// observing ErrActionTokenNotFound.
func (s *ActionTokenService) redeem(ctx context.Context, key string, expected domain.ActionType, apply func(ctx context.Context, users domain.UserRepository, userID int64) error) error {
	ctx, span := middleware.StartSpan(ctx, "auth.redeem_action_token", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("token.type", string(expected)),
	))
	defer span.End()

	found, err := s.tokens.Consume(ctx, key, func(ctx context.Context, users domain.UserRepository, token *domain.ActionToken) error {
		if token.Expired(s.now()) {
			return fmt.Errorf("action token expired at %v: %w", token.ExpiresAt, ErrActionTokenExpired)
		}
		if token.Type != expected {
			return fmt.Errorf("token issued for %q: %w", token.Type, ErrActionTokenTypeMismatch)
		}
		return apply(ctx, users, token.UserID)
	})
	if err != nil {
		span.RecordError(err)
		return err
	}
	if !found {
		span.SetAttributes(attribute.Bool("token.found", false))
		return fmt.Errorf("lookup action token: %w", ErrActionTokenNotFound)
	}

	span.AddEvent("action_token.redeemed")
	return nil
}

// RedeemActivation consumes an account_activation token and activates its
// user. Returns the activated user.
func (s *ActionTokenService) RedeemActivation(ctx context.Context, key string) (*domain.User, error) {
	var activated *domain.User
	err := s.redeem(ctx, key, domain.ActionAccountActivation, func(ctx context.Context, users domain.UserRepository, userID int64) error {
		user, err := users.GetByID(ctx, userID)
		if err != nil {
			return fmt.Errorf("query token owner: %w", err)
		}
		if user == nil {
			return fmt.Errorf("token owner %d: %w", userID, ErrUserInactive)
		}
		if err := users.SetActive(ctx, userID, true); err != nil {
			return fmt.Errorf("activate user: %w", err)
		}
		user.IsActive = true
		activated = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return activated, nil
}

// RedeemPasswordChange consumes a password_change token and stores the new
// password hash for its user.
func (s *ActionTokenService) RedeemPasswordChange(ctx context.Context, key, passwordHash string) error {
	return s.redeem(ctx, key, domain.ActionPasswordChange, func(ctx context.Context, users domain.UserRepository, userID int64) error {
		if err := users.SetPasswordHash(ctx, userID, passwordHash); err != nil {
			return fmt.Errorf("set password hash: %w", err)
		}
		return nil
	})
}
