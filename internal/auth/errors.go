// Package auth implements the identity backend of the journal: account
// registration with optional email confirmation, argon2id password hashing,
// signed session tokens (JWT) and server-side session revocation.
package auth

import "errors"

var (
	// ErrInvalidCredentials is returned when the email is unknown or the
	// password does not match. The two cases are not distinguished.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrDuplicateEmail is returned by Register for an already registered email.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrUnconfirmed is returned by Login while the account awaits confirmation.
	ErrUnconfirmed = errors.New("email not confirmed")

	// ErrInvalidToken is returned for malformed, expired or revoked session
	// tokens, and for unknown confirmation tokens.
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrInvalidInput is returned when registration or login input is malformed.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidHashFormat is returned when a stored password hash cannot be parsed.
	ErrInvalidHashFormat = errors.New("invalid encoded hash format")

	// ErrIncompatibleVersion is returned for hashes made by another argon2 version.
	ErrIncompatibleVersion = errors.New("incompatible argon2 version")
)
