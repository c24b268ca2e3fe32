package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/go-journal/internal/auth"
	"github.com/tbourn/go-journal/internal/domain"
	"github.com/tbourn/go-journal/internal/repo"
	"github.com/tbourn/go-journal/internal/services"
)

// Local serves the identity, entry and reflection contracts in-process,
// over the same auth service and repository the HTTP API uses.
type Local struct {
	Auth   *auth.Service
	DB     *gorm.DB
	Gen    services.ReflectionGenerator // nil means reflections are unavailable
	Tokens *TokenStore
	Log    zerolog.Logger

	// OnConfirmToken receives the confirmation token of a registration
	// that awaits confirmation. There is no mailer in local mode.
	OnConfirmToken func(email, token string)

	mu    sync.Mutex
	token string
	user  *domain.User
}

var (
	_ services.IdentityGateway     = (*Local)(nil)
	_ services.EntryStore          = (*Local)(nil)
	_ services.ReflectionGenerator = (*Local)(nil)
)

// Register creates an account. Active registrations are signed in.
func (l *Local) Register(ctx context.Context, email, password, name string) (services.Registration, error) {
	reg, err := l.Auth.Register(ctx, email, password, name)
	if err != nil {
		return services.Registration{}, mapAuthError(err)
	}
	u := toUser(reg.Account)
	if reg.Pending() {
		l.Log.Info().Str("user_id", u.ID).Msg("registration awaits confirmation")
		if l.OnConfirmToken != nil {
			l.OnConfirmToken(u.Email, reg.ConfirmToken)
		}
		return services.Registration{User: u, Status: services.RegistrationPendingConfirmation}, nil
	}
	l.setSession(reg.Token, &u)
	return services.Registration{User: u, Status: services.RegistrationActive}, nil
}

// Login signs in and remembers the session token.
func (l *Local) Login(ctx context.Context, email, password string) (domain.User, error) {
	acct, token, err := l.Auth.Login(ctx, email, password)
	if err != nil {
		return domain.User{}, mapAuthError(err)
	}
	u := toUser(acct)
	l.setSession(token, &u)
	return u, nil
}

// Logout revokes the session. The local token and user are forgotten only
// once the revoke succeeds, so a failed logout leaves the session usable.
func (l *Local) Logout(ctx context.Context) error {
	l.mu.Lock()
	token := l.token
	l.mu.Unlock()

	if token == "" {
		stored, err := l.Tokens.Load()
		if err != nil {
			l.Log.Warn().Err(err).Msg("read stored session token")
		}
		token = stored
	}
	if token != "" {
		if err := l.Auth.Logout(ctx, token); err != nil {
			return fmt.Errorf("%w: %v", services.ErrGateway, err)
		}
	}

	l.mu.Lock()
	l.token, l.user = "", nil
	l.mu.Unlock()
	if err := l.Tokens.Clear(); err != nil {
		l.Log.Warn().Err(err).Msg("clear stored session token")
	}
	return nil
}

// CurrentSession resumes the stored session, if it is still valid.
func (l *Local) CurrentSession(ctx context.Context) (*domain.User, error) {
	l.mu.Lock()
	token, cached := l.token, l.user
	l.mu.Unlock()
	if cached != nil {
		u := *cached
		return &u, nil
	}

	if token == "" {
		stored, err := l.Tokens.Load()
		if err != nil {
			return nil, fmt.Errorf("%w: read session token: %v", services.ErrGateway, err)
		}
		token = stored
	}
	if token == "" {
		return nil, nil
	}

	acct, _, err := l.Auth.Authenticate(ctx, token)
	if errors.Is(err, auth.ErrInvalidToken) {
		_ = l.Tokens.Clear()
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", services.ErrGateway, err)
	}
	u := toUser(acct)
	l.setSession(token, &u)
	return &u, nil
}

// Confirm marks the account behind a confirmation token as confirmed.
func (l *Local) Confirm(ctx context.Context, token string) error {
	if _, err := l.Auth.Confirm(ctx, token); err != nil {
		return mapAuthError(err)
	}
	return nil
}

// ListEntries returns the signed-in user's rows.
func (l *Local) ListEntries(ctx context.Context, userID string) ([]repo.EntryRecord, error) {
	if err := l.checkOwner(userID); err != nil {
		return nil, err
	}
	return repo.ListEntries(ctx, l.DB, userID)
}

// UpsertEntry stores rec for the signed-in user.
func (l *Local) UpsertEntry(ctx context.Context, rec repo.EntryRecord) (repo.EntryRecord, error) {
	if err := l.checkOwner(rec.UserID); err != nil {
		return repo.EntryRecord{}, err
	}
	stored, err := repo.UpsertEntry(ctx, l.DB, rec)
	if err != nil {
		return repo.EntryRecord{}, err
	}
	return *stored, nil
}

// DeleteEntry removes one of the signed-in user's rows.
func (l *Local) DeleteEntry(ctx context.Context, id string) error {
	owner := l.owner()
	if owner == "" {
		return services.ErrNotAuthenticated
	}
	return repo.DeleteEntry(ctx, l.DB, id, owner)
}

// Available reports whether a generator is configured.
func (l *Local) Available() bool { return l.Gen != nil && l.Gen.Available() }

// Generate delegates to the configured generator.
func (l *Local) Generate(ctx context.Context, req services.ReflectionRequest) (string, error) {
	if !l.Available() {
		return "", services.ErrUnavailable
	}
	return l.Gen.Generate(ctx, req)
}

func (l *Local) setSession(token string, u *domain.User) {
	l.mu.Lock()
	l.token, l.user = token, u
	l.mu.Unlock()
	if err := l.Tokens.Save(token); err != nil {
		l.Log.Warn().Err(err).Msg("persist session token")
	}
}

func (l *Local) owner() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.user == nil {
		return ""
	}
	return l.user.ID
}

func (l *Local) checkOwner(userID string) error {
	owner := l.owner()
	if owner == "" || owner != userID {
		return services.ErrNotAuthenticated
	}
	return nil
}

// mapAuthError translates identity backend failures into the core taxonomy.
func mapAuthError(err error) error {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return services.ErrInvalidCredentials
	case errors.Is(err, auth.ErrDuplicateEmail):
		return services.ErrDuplicateAccount
	case errors.Is(err, auth.ErrUnconfirmed):
		return services.ErrConfirmationPending
	case errors.Is(err, auth.ErrInvalidToken):
		return fmt.Errorf("%w: unknown confirmation token", services.ErrValidation)
	case errors.Is(err, auth.ErrInvalidInput):
		return fmt.Errorf("%w: %s", services.ErrValidation, strings.TrimPrefix(err.Error(), auth.ErrInvalidInput.Error()+": "))
	default:
		return fmt.Errorf("%w: %v", services.ErrGateway, err)
	}
}

func toUser(a *repo.Account) domain.User {
	return domain.User{ID: a.ID, Email: a.Email, Name: a.Name, CreatedAt: a.CreatedAt}
}
