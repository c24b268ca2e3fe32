// Package services implements the core of the journal: the session controller
// driving the three top-level views, the entry editing session, the entry
// browser filter and the entry repository translation layer.
//
// This file centralizes the error taxonomy so that adapters (local or remote
// backends) and front ends classify failures with errors.Is / errors.As
// instead of matching on message text.
package services

import (
	"errors"
	"fmt"
)

// Validation errors. These are detected locally and never reach a backend.
var (
	// ErrValidation is returned when a required field (title, content, email,
	// password) is empty.
	ErrValidation = errors.New("required field is empty")
)

// Auth errors reported by an IdentityGateway.
var (
	// ErrInvalidCredentials indicates that the email/password pair was rejected.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrDuplicateAccount indicates that an account with the same email exists.
	ErrDuplicateAccount = errors.New("an account with this email already exists")

	// ErrConfirmationPending is returned by Login when the account exists but
	// its email address has not been confirmed yet.
	ErrConfirmationPending = errors.New("email address not confirmed")

	// ErrNotAuthenticated is returned by operations that require a signed-in user.
	ErrNotAuthenticated = errors.New("not signed in")

	// ErrGateway wraps identity failures that are not credential problems
	// (e.g. sign-out could not reach the backend).
	ErrGateway = errors.New("identity gateway error")
)

// Reflection errors reported by a ReflectionGenerator.
var (
	// ErrUnavailable indicates the generator is not configured.
	ErrUnavailable = errors.New("reflection generator unavailable")

	// ErrGeneration indicates the generator was reached but failed.
	ErrGeneration = errors.New("reflection generation failed")
)

// Controller errors.
var (
	// ErrBusy is returned when an operation of the same kind is already in flight.
	ErrBusy = errors.New("operation already in progress")

	// ErrNoActiveEntry is returned by CommitEntry when no editing session is open.
	ErrNoActiveEntry = errors.New("no entry is being edited")

	// ErrStale is returned when a result arrived after it was superseded
	// (a newer load started, or the editing session was closed) and was discarded.
	ErrStale = errors.New("result superseded")
)

// BackendError reports an entry store failure. Op names the repository
// operation ("list", "upsert", "delete").
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("entry store %s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// IsBackendError reports whether err is (or wraps) a *BackendError.
func IsBackendError(err error) bool {
	var be *BackendError
	return errors.As(err, &be)
}

// IsAuthError reports whether err belongs to the auth family of the taxonomy.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrDuplicateAccount) ||
		errors.Is(err, ErrConfirmationPending) ||
		errors.Is(err, ErrNotAuthenticated)
}
