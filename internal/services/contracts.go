package services

import (
	"context"

	"github.com/tbourn/go-journal/internal/domain"
	"github.com/tbourn/go-journal/internal/repo"
)

// RegistrationStatus tells the caller whether a new account can be used
// immediately or is waiting for email confirmation.
type RegistrationStatus int

const (
	// RegistrationActive means the account is usable and a session was opened.
	RegistrationActive RegistrationStatus = iota
	// RegistrationPendingConfirmation means the account was created but no
	// session exists until the email address is confirmed.
	RegistrationPendingConfirmation
)

func (s RegistrationStatus) String() string {
	switch s {
	case RegistrationActive:
		return "active"
	case RegistrationPendingConfirmation:
		return "pending_confirmation"
	default:
		return "unknown"
	}
}

// Registration is the outcome of a successful Register call.
type Registration struct {
	User   domain.User
	Status RegistrationStatus
}

// IdentityGateway authenticates users and tracks the current session.
//
// Register fails with ErrDuplicateAccount or ErrValidation. Login fails with
// ErrInvalidCredentials or ErrConfirmationPending. Logout fails with
// ErrGateway. CurrentSession returns (nil, nil) when nobody is signed in.
type IdentityGateway interface {
	Register(ctx context.Context, email, password, name string) (Registration, error)
	Login(ctx context.Context, email, password string) (domain.User, error)
	Logout(ctx context.Context) error
	CurrentSession(ctx context.Context) (*domain.User, error)
}

// EntryStore persists entries in the backend's own record shape. It is
// scoped to the signed-in user: ListEntries filters by owner and DeleteEntry
// only removes the caller's rows. Deleting an unknown id is not an error.
type EntryStore interface {
	ListEntries(ctx context.Context, userID string) ([]repo.EntryRecord, error)
	UpsertEntry(ctx context.Context, rec repo.EntryRecord) (repo.EntryRecord, error)
	DeleteEntry(ctx context.Context, id string) error
}

// ReflectionRequest carries the entry fields a reflection is generated from.
type ReflectionRequest struct {
	Title   string
	Content string
	Mood    domain.Mood
}

// ReflectionGenerator produces a short reflection for an entry.
// Available is a static, configuration-based precondition. Generate fails
// with ErrUnavailable or ErrGeneration.
type ReflectionGenerator interface {
	Available() bool
	Generate(ctx context.Context, req ReflectionRequest) (string, error)
}

// Confirmer asks the user a blocking yes/no question.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// ConfirmerFunc adapts a function to Confirmer.
type ConfirmerFunc func(ctx context.Context, prompt string) bool

func (f ConfirmerFunc) Confirm(ctx context.Context, prompt string) bool { return f(ctx, prompt) }

// NoticeLevel is the tone of a user-facing notice.
type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeSuccess
	NoticeError
)

// Notice is a one-line, alert-style message for the user.
type Notice struct {
	Level   NoticeLevel
	Message string
}

// Notifier surfaces notices to the user.
type Notifier interface {
	Notify(n Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(n Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

// User-facing notice texts.
const (
	MsgLoadFailed       = "Failed to load entries."
	MsgSaveFailed       = "Failed to save entry."
	MsgDeleteFailed     = "Failed to delete entry."
	MsgReflectionFailed = "Failed to generate insight."
	MsgConfirmEmail     = "Account created! Please check your email to confirm your account before signing in."
	MsgConfirmDelete    = "Are you sure you want to delete this memory?"
)
