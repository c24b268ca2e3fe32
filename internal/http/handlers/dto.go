package handlers

import (
	"time"

	"github.com/tbourn/go-journal/internal/repo"
)

// Wire types of the journal API. The remote client decodes the same
// structs, so renaming a JSON key here is a protocol change.

// UserResponse is the public view of an account.
type UserResponse struct {
	ID        string    `json:"id" example:"0b6f3c1e-5a8b-4a5e-9a55-6a2f7f6f8d11"`
	Email     string    `json:"email" example:"sam@example.com"`
	Name      string    `json:"name" example:"Sam"`
	CreatedAt time.Time `json:"created_at"`
}

// NewUserResponse renders an account for the wire.
func NewUserResponse(a *repo.Account) UserResponse {
	return UserResponse{ID: a.ID, Email: a.Email, Name: a.Name, CreatedAt: a.CreatedAt}
}

// RegisterRequest is the payload of POST /auth/register.
type RegisterRequest struct {
	Email    string `json:"email" example:"sam@example.com"`
	Password string `json:"password" example:"correct horse"`
	// Name defaults to "Friend" when blank.
	Name string `json:"name" example:"Sam"`
}

// RegisterResponse reports the new account. Status is "active" with a
// session token, or "pending_confirmation" with the confirmation token
// that would normally be mailed to the user.
type RegisterResponse struct {
	User              UserResponse `json:"user"`
	Status            string       `json:"status" enums:"active,pending_confirmation"`
	SessionToken      string       `json:"session_token,omitempty"`
	ConfirmationToken string       `json:"confirmation_token,omitempty"`
}

// LoginRequest is the payload of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" example:"sam@example.com"`
	Password string `json:"password" example:"correct horse"`
}

// LoginResponse carries the bearer token for subsequent calls.
type LoginResponse struct {
	User         UserResponse `json:"user"`
	SessionToken string       `json:"session_token"`
}

// ConfirmRequest is the payload of POST /auth/confirm.
type ConfirmRequest struct {
	Token string `json:"token"`
}

// SessionResponse is returned by GET /auth/session.
type SessionResponse struct {
	User UserResponse `json:"user"`
}

// EntriesResponse lists a user's entries, newest first.
type EntriesResponse struct {
	Entries []repo.EntryRecord `json:"entries"`
}

// ReflectionRequest is the payload of POST /reflections.
type ReflectionRequest struct {
	Title   string `json:"title" example:"Morning walk"`
	Content string `json:"content" example:"Walked by the sea before work."`
	Mood    string `json:"mood" example:"calm"`
}

// ReflectionResponse carries the generated text.
type ReflectionResponse struct {
	Reflection string `json:"reflection"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status string `json:"status" example:"ok"`
	// Reflections reports whether a generator is configured.
	Reflections bool `json:"reflections"`
}
