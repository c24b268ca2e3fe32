package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/tbourn/go-journal/internal/repo"
)

// MinPasswordLen is the shortest accepted password.
const MinPasswordLen = 6

// DefaultName is stored when an account is registered without a name.
const DefaultName = "Friend"

// Service authenticates accounts and manages their sessions.
type Service struct {
	DB       *gorm.DB
	Sessions SessionStore
	Secret   []byte
	TTL      time.Duration

	// RequireConfirmation creates accounts unconfirmed; Login is refused
	// until Confirm is called with the token returned by Register.
	RequireConfirmation bool

	Params HashParams
	Now    func() time.Time
	Log    zerolog.Logger
}

// Registered is the outcome of Register. Token is set when the account is
// usable immediately; ConfirmToken is set when confirmation is required.
type Registered struct {
	Account      *repo.Account
	Token        string
	ConfirmToken string
}

// Pending reports whether the account awaits email confirmation.
func (r Registered) Pending() bool { return r.ConfirmToken != "" }

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) params() HashParams {
	if s.Params.KeyLength == 0 {
		return DefaultHashParams()
	}
	return s.Params
}

func (s *Service) sessions() SessionStore {
	if s.Sessions != nil {
		return s.Sessions
	}
	return GormSessions{DB: s.DB}
}

// Register validates input, stores a new account and either opens a session
// or returns a confirmation token.
func (s *Service) Register(ctx context.Context, email, password, name string) (*Registered, error) {
	tr := otel.Tracer("auth/Service")
	ctx, span := tr.Start(ctx, "Register")
	defer span.End()

	email = strings.TrimSpace(email)
	if err := validateCredentials(email, password); err != nil {
		return nil, err
	}
	if len(password) < MinPasswordLen {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, MinPasswordLen)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultName
	}

	hash, err := HashPassword(password, s.params())
	if err != nil {
		return nil, err
	}

	var confirm *string
	if s.RequireConfirmation {
		tok, err := randomToken()
		if err != nil {
			return nil, err
		}
		confirm = &tok
	}

	acct, err := repo.CreateAccount(ctx, s.DB, email, name, hash, confirm)
	if errors.Is(err, repo.ErrDuplicate) {
		return nil, ErrDuplicateEmail
	}
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("user.id", acct.ID))

	out := &Registered{Account: acct}
	if confirm != nil {
		out.ConfirmToken = *confirm
		s.Log.Info().Str("user_id", acct.ID).Msg("account awaiting email confirmation")
		return out, nil
	}
	if out.Token, err = s.openSession(ctx, acct); err != nil {
		return nil, err
	}
	return out, nil
}

// Login verifies the password and opens a new session.
func (s *Service) Login(ctx context.Context, email, password string) (*repo.Account, string, error) {
	tr := otel.Tracer("auth/Service")
	ctx, span := tr.Start(ctx, "Login")
	defer span.End()

	if err := validateCredentials(strings.TrimSpace(email), password); err != nil {
		return nil, "", ErrInvalidCredentials
	}
	acct, err := repo.GetAccountByEmail(ctx, s.DB, email)
	if repo.IsNotFound(err) {
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", err
	}
	ok, err := VerifyPassword(password, acct.PasswordHash)
	if err != nil {
		return nil, "", err
	}
	if !ok {
		return nil, "", ErrInvalidCredentials
	}
	if !acct.Confirmed() {
		return nil, "", ErrUnconfirmed
	}
	span.SetAttributes(attribute.String("user.id", acct.ID))

	tok, err := s.openSession(ctx, acct)
	if err != nil {
		return nil, "", err
	}
	return acct, tok, nil
}

// Confirm marks the account holding token as confirmed.
func (s *Service) Confirm(ctx context.Context, token string) (*repo.Account, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	acct, err := repo.ConfirmAccount(ctx, s.DB, token)
	if repo.IsNotFound(err) {
		return nil, ErrInvalidToken
	}
	return acct, err
}

// Authenticate resolves a session token to its account. Expired, revoked or
// forged tokens fail with ErrInvalidToken.
func (s *Service) Authenticate(ctx context.Context, token string) (*repo.Account, *Claims, error) {
	tr := otel.Tracer("auth/Service")
	ctx, span := tr.Start(ctx, "Authenticate")
	defer span.End()

	now := s.now()
	claims, err := ParseToken(s.Secret, token, now)
	if err != nil {
		return nil, nil, err
	}
	active, err := s.sessions().Active(ctx, claims.ID, now)
	if err != nil {
		return nil, nil, err
	}
	if !active {
		return nil, nil, ErrInvalidToken
	}
	acct, err := repo.GetAccount(ctx, s.DB, claims.Subject)
	if repo.IsNotFound(err) {
		return nil, nil, ErrInvalidToken
	}
	if err != nil {
		return nil, nil, err
	}
	span.SetAttributes(attribute.String("user.id", acct.ID))
	return acct, claims, nil
}

// Logout revokes the session behind token. An invalid token is treated as
// already signed out.
func (s *Service) Logout(ctx context.Context, token string) error {
	tr := otel.Tracer("auth/Service")
	ctx, span := tr.Start(ctx, "Logout")
	defer span.End()

	claims, err := ParseToken(s.Secret, token, s.now())
	if err != nil {
		return nil
	}
	return s.sessions().Revoke(ctx, claims.ID)
}

func (s *Service) openSession(ctx context.Context, acct *repo.Account) (string, error) {
	ttl := s.TTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	now := s.now()
	exp := now.Add(ttl)
	sid := uuid.NewString()

	if err := s.sessions().Create(ctx, sid, acct.ID, exp); err != nil {
		return "", err
	}
	return IssueToken(s.Secret, sid, acct.ID, acct.Email, now, exp)
}

func validateCredentials(email, password string) error {
	if email == "" || password == "" {
		return fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(email); err != nil || !strings.Contains(email, "@") {
		return fmt.Errorf("%w: malformed email address", ErrInvalidInput)
	}
	return nil
}

func randomToken() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
