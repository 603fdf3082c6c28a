package v1

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"

	"github.com/twinning-project/twinning-api/internal/core/domain"
	"github.com/twinning-project/twinning-api/internal/notifier"
	"github.com/twinning-project/twinning-api/middleware"
)

// RegisterRequest carries the fields of a signup.
type RegisterRequest struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// AccountService implements the account workflows that ride on action
// tokens: registration with activation, activation redemption, and the
// two-step password reset.
type AccountService struct {
	users     domain.UserRepository
	actions   *ActionTokenService
	notify    notifier.Notifier
	passwords PasswordValidator
}

// NewAccountService creates an AccountService.
func NewAccountService(users domain.UserRepository, actions *ActionTokenService, notify notifier.Notifier, passwords PasswordValidator) *AccountService {
	return &AccountService{
		users:     users,
		actions:   actions,
		notify:    notify,
		passwords: passwords,
	}
}

// Register creates an inactive user, issues an account_activation token, and
// hands its key to the notifier for out-of-band delivery.
func (s *AccountService) Register(ctx context.Context, req RegisterRequest) (*domain.User, error) {
	ctx, span := middleware.StartSpan(ctx, "auth.register", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	if err := s.passwords.ValidatePassword(req.Password); err != nil {
		span.SetAttributes(attribute.Bool("registration.success", false))
		return nil, err
	}

	exists, err := s.users.ExistsByEmail(ctx, req.Email)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("check existing user: %w", err)
	}
	if exists {
		span.SetAttributes(attribute.Bool("registration.success", false))
		return nil, fmt.Errorf("register %q: %w", req.Email, ErrUserExists)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("hash password: %w", err)
	}

	userID, err := s.users.Create(ctx, req.Email, string(hash), req.FirstName, req.LastName)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("insert user: %w", err)
	}

	key, err := s.actions.Issue(ctx, userID, domain.ActionAccountActivation)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("issue activation token: %w", err)
	}

	// Delivery is best-effort; the activation token is already persisted and
	// can be re-sent by support tooling.
	if err := s.notify.SendActivation(ctx, req.Email, key); err != nil {
		span.RecordError(err)
		zerolog.Ctx(ctx).Error().Err(err).Int64("user_id", userID).Msg("Activation delivery failed")
	}

	span.SetAttributes(
		attribute.Int64("user.id", userID),
		attribute.Bool("registration.success", true),
	)
	span.AddEvent("user.registered")

	return &domain.User{
		ID:        userID,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		IsActive:  false,
	}, nil
}

// Activate redeems an account_activation token and returns the now-active user.
func (s *AccountService) Activate(ctx context.Context, key string) (*domain.User, error) {
	return s.actions.RedeemActivation(ctx, key)
}

// RequestPasswordReset issues a password_change token for the account with
// the given email and hands its key to the notifier. Unknown addresses are
// reported as ErrEmailNotFound per the API contract.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) error {
	ctx, span := middleware.StartSpan(ctx, "auth.request_password_reset", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("query user: %w", err)
	}
	if user == nil {
		span.SetAttributes(attribute.Bool("reset.requested", false))
		return fmt.Errorf("reset password for %q: %w", email, ErrEmailNotFound)
	}

	key, err := s.actions.Issue(ctx, user.ID, domain.ActionPasswordChange)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("issue password-change token: %w", err)
	}

	if err := s.notify.SendPasswordReset(ctx, email, key); err != nil {
		span.RecordError(err)
		zerolog.Ctx(ctx).Error().Err(err).Int64("user_id", user.ID).Msg("Password-reset delivery failed")
	}

	span.SetAttributes(attribute.Bool("reset.requested", true))
	return nil
}

// ChangePassword validates the candidate password and redeems the
// password_change token against its hash.
func (s *AccountService) ChangePassword(ctx context.Context, key, newPassword string) error {
	ctx, span := middleware.StartSpan(ctx, "auth.change_password", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	if err := s.passwords.ValidatePassword(newPassword); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.actions.RedeemPasswordChange(ctx, key, string(hash)); err != nil {
		span.RecordError(err)
		return err
	}

	span.AddEvent("password.changed")
	return nil
}
