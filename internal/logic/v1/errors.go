// Package v1 implements the authentication business logic: session token
// issue/validate/renew/revoke, single-use action tokens, and the account
// flows built on them (registration, activation, password reset).
//
// Error Handling:
// This package defines sentinel errors for every authentication-decision
// failure. Business methods wrap them with context using fmt.Errorf("%w");
// the web layer matches them with errors.Is and translates each one into a
// fixed user-facing status and message. Errors that match none of the
// sentinels are infrastructure faults (store unavailable) and are the only
// class an upstream caller may retry.
package v1

import "errors"

// Sentinel errors for authentication operations.
var (
	// ErrInvalidCredentials indicates login failed. It deliberately covers
	// both "unknown email" and "wrong password" so the two causes cannot be
	// told apart by the caller (no account enumeration).
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken indicates the presented session key matches no token.
	// HTTP Status: 401 Unauthorized
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired indicates the session token exists but is past its
	// expiry. The record is left in place; expiry is reported, not deleted.
	// HTTP Status: 401 Unauthorized
	ErrTokenExpired = errors.New("token expired")

	// ErrUserInactive indicates the session token is valid but its owning
	// account is disabled or gone.
	// HTTP Status: 401 Unauthorized
	ErrUserInactive = errors.New("user inactive")

	// ErrUserExists indicates the email is already registered.
	// HTTP Status: 400 Bad Request
	ErrUserExists = errors.New("user already exists")

	// ErrEmailNotFound indicates no account is associated with the email.
	// Returned only by the password-reset request flow, where the API
	// contract reports unknown addresses.
	// HTTP Status: 400 Bad Request
	ErrEmailNotFound = errors.New("email not found")

	// ErrWeakPassword indicates the candidate password failed validation.
	// HTTP Status: 400 Bad Request
	ErrWeakPassword = errors.New("password too weak")

	// ErrActionTokenNotFound indicates the action token key matches nothing,
	// including keys already consumed by a successful redemption.
	ErrActionTokenNotFound = errors.New("action token not found")

	// ErrActionTokenExpired indicates the action token is past its expiry.
	ErrActionTokenExpired = errors.New("action token expired")

	// ErrActionTokenTypeMismatch indicates the token exists and is current
	// but was issued for a different action. The token stays redeemable for
	// its declared type.
	ErrActionTokenTypeMismatch = errors.New("action token type mismatch")
)
