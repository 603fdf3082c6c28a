package v1

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"

	"github.com/twinning-project/twinning-api/internal/core/domain"
	"github.com/twinning-project/twinning-api/middleware"
)

// keyRetries bounds regenerate-and-retry on a key collision. With 160-bit
// keys a single collision is already astronomically unlikely.
const keyRetries = 3

// SessionConfig carries the session token policy. It is passed in at
// construction; there is no ambient configuration state.
type SessionConfig struct {
	// Lifetime is the sliding validity window applied at issue and renewal.
	Lifetime time.Duration
	// RenewOnSuccess controls the renewal policy: when false, expiry is
	// frozen at issue time regardless of subsequent authenticated requests.
	RenewOnSuccess bool
}

// SessionTokenService issues, validates, renews, and revokes the per-user
// authentication token. It depends on repository interfaces only and
// MUST NOT access the database or SQL directly.
type SessionTokenService struct {
	users  domain.UserRepository
	tokens domain.SessionTokenRepository
	keys   KeyGenerator
	cfg    SessionConfig

	now func() time.Time
}

// NewSessionTokenService creates a SessionTokenService with the given
// dependencies and policy.
func NewSessionTokenService(users domain.UserRepository, tokens domain.SessionTokenRepository, keys KeyGenerator, cfg SessionConfig) *SessionTokenService {
	return &SessionTokenService{
		users:  users,
		tokens: tokens,
		keys:   keys,
		cfg:    cfg,
		now:    time.Now,
	}
}

// Issue exchanges credentials for a session key. The identifier is the
// account email. A user who already holds a session keeps their existing key
// with a refreshed expiry; there is never more than one live session per user.
//
// Unknown email, wrong password, and a disabled account all yield the same
// ErrInvalidCredentials so callers cannot probe which accounts exist.
func (s *SessionTokenService) Issue(ctx context.Context, email, password string) (string, error) {
	ctx, span := middleware.StartSpan(ctx, "auth.issue_session", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("query user: %w", err)
	}
	if user == nil || !user.IsActive {
		span.SetAttributes(attribute.Bool("auth.success", false))
		span.AddEvent("authentication.failed")
		return "", fmt.Errorf("authenticate %q: %w", email, ErrInvalidCredentials)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		span.SetAttributes(attribute.Bool("auth.success", false))
		span.AddEvent("authentication.failed")
		return "", fmt.Errorf("authenticate %q: %w", email, ErrInvalidCredentials)
	}

	// Best-effort, don't fail login.
	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		span.RecordError(fmt.Errorf("update last_login: %w", err))
	}

	key, err := s.storeSession(ctx, user.ID)
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	span.SetAttributes(
		attribute.Int64("user.id", user.ID),
		attribute.Bool("auth.success", true),
	)
	span.AddEvent("user.authenticated")

	return key, nil
}

func (s *SessionTokenService) storeSession(ctx context.Context, userID int64) (string, error) {
	expiresAt := s.now().Add(s.cfg.Lifetime)
	for attempt := 0; attempt < keyRetries; attempt++ {
		key, err := s.keys.Generate()
		if err != nil {
			return "", fmt.Errorf("generate session key: %w", err)
		}
		surviving, err := s.tokens.Upsert(ctx, userID, key, expiresAt)
		if errors.Is(err, domain.ErrDuplicateKey) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("store session token: %w", err)
		}
		return surviving, nil
	}
	return "", fmt.Errorf("store session token: %w", domain.ErrDuplicateKey)
}

// Validate authenticates a presented session key. Failures are checked in
// priority order: unknown key, expired token (record left in place), owner
// inactive or gone. On success with renewal enabled the expiry is advanced
// to now+Lifetime and renewed=true is reported.
//
// Renewal is a best-effort side effect: a failed extension is logged, never
// surfaced, because the authentication decision has already succeeded.
func (s *SessionTokenService) Validate(ctx context.Context, key string) (*domain.User, bool, error) {
	ctx, span := middleware.StartSpan(ctx, "auth.validate_session", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	token, err := s.tokens.Get(ctx, key)
	if err != nil {
		span.RecordError(err)
		return nil, false, fmt.Errorf("query session token: %w", err)
	}
	if token == nil {
		span.SetAttributes(attribute.Bool("session.valid", false))
		return nil, false, fmt.Errorf("lookup session token: %w", ErrInvalidToken)
	}

	now := s.now()
	if token.Expired(now) {
		span.SetAttributes(attribute.Bool("session.valid", false))
		return nil, false, fmt.Errorf("session expired at %v: %w", token.ExpiresAt, ErrTokenExpired)
	}

	user, err := s.users.GetByID(ctx, token.UserID)
	if err != nil {
		span.RecordError(err)
		return nil, false, fmt.Errorf("query token owner: %w", err)
	}
	if user == nil || !user.IsActive {
		span.SetAttributes(attribute.Bool("session.valid", false))
		return nil, false, fmt.Errorf("token owner %d: %w", token.UserID, ErrUserInactive)
	}

	renewed := false
	if s.cfg.RenewOnSuccess {
		if err := s.tokens.UpdateExpiry(ctx, key, now.Add(s.cfg.Lifetime)); err != nil {
			span.RecordError(fmt.Errorf("renew session: %w", err))
			zerolog.Ctx(ctx).Warn().Err(err).Int64("user_id", user.ID).Msg("Session renewal failed")
		} else {
			renewed = true
		}
	}

	span.SetAttributes(
		attribute.Int64("user.id", user.ID),
		attribute.Bool("session.valid", true),
		attribute.Bool("session.renewed", renewed),
	)

	return user, renewed, nil
}

// Revoke deletes the session token. Revoking an absent key is not an error.
func (s *SessionTokenService) Revoke(ctx context.Context, key string) error {
	ctx, span := middleware.StartSpan(ctx, "auth.revoke_session", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	if err := s.tokens.Delete(ctx, key); err != nil {
		span.RecordError(err)
		return fmt.Errorf("delete session token: %w", err)
	}
	span.AddEvent("session.revoked")
	return nil
}
