// Package handlers implements the journal's HTTP endpoints.
//
// Every failure is written as an ErrorResponse carrying one of the codes
// below. Clients branch on the code, never on the message:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "email_not_confirmed",
//	  "message": "confirm your email before signing in"
//	}
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeInternal         = "internal_error"

	// Identity
	ErrCodeInvalidCredentials = "invalid_credentials"
	ErrCodeEmailNotConfirmed  = "email_not_confirmed"
	ErrCodeInvalidToken       = "invalid_token"

	// Entries
	ErrCodeListFailed   = "list_failed"
	ErrCodeSaveFailed   = "save_failed"
	ErrCodeDeleteFailed = "delete_failed"

	// Reflections
	ErrCodeReflectionUnavailable = "reflection_unavailable"
	ErrCodeGenerationFailed      = "generation_failed"
)
