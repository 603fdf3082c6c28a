package v1

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/twinning-project/twinning-api/internal/core/domain"
)

type accountFixture struct {
	svc    *AccountService
	users  *fakeUserRepo
	tokens *fakeActionRepo
	notify *fakeNotifier
}

func newAccountFixture(t *testing.T) *accountFixture {
	t.Helper()
	users := newFakeUserRepo()
	tokens := newFakeActionRepo(users)
	notify := newFakeNotifier()

	actions := NewActionTokenService(tokens, RandomKeyGenerator{}, ActionConfig{
		ActivationLifetime:     60 * time.Minute,
		PasswordChangeLifetime: 60 * time.Minute,
	})

	svc := NewAccountService(users, actions, notify, MinLengthValidator{Min: 8})
	return &accountFixture{svc: svc, users: users, tokens: tokens, notify: notify}
}

func TestRegister(t *testing.T) {
	f := newAccountFixture(t)

	user, err := f.svc.Register(context.Background(), RegisterRequest{
		Email:     "newcomer@example.com",
		Password:  testPassword,
		FirstName: "New",
		LastName:  "Comer",
	})
	require.NoError(t, err)
	assert.False(t, user.IsActive, "accounts start inactive until activation")

	// An activation token was issued and handed to the notifier.
	key, ok := f.notify.activation["newcomer@example.com"]
	require.True(t, ok)

	tok, err := f.tokens.Get(context.Background(), key)
	require.NoError(t, err)
	require.NotNil(t, tok)
	assert.Equal(t, domain.ActionAccountActivation, tok.Type)
	assert.Equal(t, user.ID, tok.UserID)

	// The stored hash verifies against the original password.
	stored, err := f.users.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte(testPassword)))
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newAccountFixture(t)

	_, err := f.svc.Register(context.Background(), RegisterRequest{Email: "dup@example.com", Password: testPassword})
	require.NoError(t, err)

	_, err = f.svc.Register(context.Background(), RegisterRequest{Email: "dup@example.com", Password: testPassword})
	require.ErrorIs(t, err, ErrUserExists)
}

func TestRegisterWeakPassword(t *testing.T) {
	f := newAccountFixture(t)

	_, err := f.svc.Register(context.Background(), RegisterRequest{Email: "weak@example.com", Password: "short"})
	require.ErrorIs(t, err, ErrWeakPassword)

	exists, err := f.users.ExistsByEmail(context.Background(), "weak@example.com")
	require.NoError(t, err)
	assert.False(t, exists, "validation failure must not create the account")
}

func TestRegisterDeliveryFailureDoesNotFailSignup(t *testing.T) {
	f := newAccountFixture(t)
	f.notify.err = assert.AnError

	user, err := f.svc.Register(context.Background(), RegisterRequest{Email: "unlucky@example.com", Password: testPassword})
	require.NoError(t, err)

	// The token is persisted regardless, so delivery can be retried later.
	tok, err := f.tokens.Get(context.Background(), findSingleTokenKey(t, f.tokens))
	require.NoError(t, err)
	require.NotNil(t, tok)
	assert.Equal(t, user.ID, tok.UserID)
}

func findSingleTokenKey(t *testing.T, tokens *fakeActionRepo) string {
	t.Helper()
	tokens.mu.Lock()
	defer tokens.mu.Unlock()
	require.Len(t, tokens.tokens, 1)
	for key := range tokens.tokens {
		return key
	}
	return ""
}

func TestActivateFlow(t *testing.T) {
	f := newAccountFixture(t)

	_, err := f.svc.Register(context.Background(), RegisterRequest{Email: "flow@example.com", Password: testPassword})
	require.NoError(t, err)

	key := f.notify.activation["flow@example.com"]
	user, err := f.svc.Activate(context.Background(), key)
	require.NoError(t, err)
	assert.True(t, user.IsActive)
}

func TestRequestPasswordResetUnknownEmail(t *testing.T) {
	f := newAccountFixture(t)

	err := f.svc.RequestPasswordReset(context.Background(), "nobody@example.com")
	require.ErrorIs(t, err, ErrEmailNotFound)
}

func TestPasswordResetFlow(t *testing.T) {
	f := newAccountFixture(t)
	f.users.add(domain.User{
		Email:        "reset@example.com",
		PasswordHash: hashPassword(t, testPassword),
		IsActive:     true,
	})

	require.NoError(t, f.svc.RequestPasswordReset(context.Background(), "reset@example.com"))

	key, ok := f.notify.reset["reset@example.com"]
	require.True(t, ok)

	tok, err := f.tokens.Get(context.Background(), key)
	require.NoError(t, err)
	require.NotNil(t, tok)
	assert.Equal(t, domain.ActionPasswordChange, tok.Type)

	const newPassword = "Brand-new-secret1"
	require.NoError(t, f.svc.ChangePassword(context.Background(), key, newPassword))

	// The new password verifies, the token is consumed.
	user, err := f.users.GetByEmail(context.Background(), "reset@example.com")
	require.NoError(t, err)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(newPassword)))

	err = f.svc.ChangePassword(context.Background(), key, newPassword)
	require.ErrorIs(t, err, ErrActionTokenNotFound)
}

func TestChangePasswordWeak(t *testing.T) {
	f := newAccountFixture(t)
	f.users.add(domain.User{
		Email:        "weakchange@example.com",
		PasswordHash: hashPassword(t, testPassword),
		IsActive:     true,
	})

	require.NoError(t, f.svc.RequestPasswordReset(context.Background(), "weakchange@example.com"))
	key := f.notify.reset["weakchange@example.com"]

	err := f.svc.ChangePassword(context.Background(), key, "tiny")
	require.ErrorIs(t, err, ErrWeakPassword)

	// The token survives the rejected attempt.
	tok, err := f.tokens.Get(context.Background(), key)
	require.NoError(t, err)
	assert.NotNil(t, tok)
}

func TestMinLengthValidator(t *testing.T) {
	v := MinLengthValidator{Min: 8}

	require.NoError(t, v.ValidatePassword("12345678"))
	require.ErrorIs(t, v.ValidatePassword("1234567"), ErrWeakPassword)
}
