package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-journal/internal/auth"
	"github.com/tbourn/go-journal/internal/http/middleware"
	"github.com/tbourn/go-journal/internal/repo"
	"github.com/tbourn/go-journal/internal/services"
)

// AuthService is the identity backend consumed by the auth endpoints.
type AuthService interface {
	Register(ctx context.Context, email, password, name string) (*auth.Registered, error)
	Login(ctx context.Context, email, password string) (*repo.Account, string, error)
	Confirm(ctx context.Context, token string) (*repo.Account, error)
	Authenticate(ctx context.Context, token string) (*repo.Account, *auth.Claims, error)
	Logout(ctx context.Context, token string) error
}

// EntryService is the entry store consumed by the entry endpoints. Every
// call is scoped to the authenticated owner.
type EntryService interface {
	List(ctx context.Context, userID string) ([]repo.EntryRecord, error)
	// Upsert stores rec for rec.UserID; repo.ErrNotFound means the id
	// belongs to someone else.
	Upsert(ctx context.Context, rec repo.EntryRecord) (*repo.EntryRecord, error)
	Delete(ctx context.Context, id, userID string) error
	// Stats feeds the list ETag.
	Stats(ctx context.Context, userID string) (count int64, lastUpdate *time.Time, err error)
}

// Handlers groups the journal endpoints.
type Handlers struct {
	auth    AuthService
	entries EntryService
	reflect services.ReflectionGenerator
}

// New binds the endpoints to their services. gen may be nil when no
// reflection backend is configured.
func New(authSvc AuthService, entries EntryService, gen services.ReflectionGenerator) *Handlers {
	return &Handlers{auth: authSvc, entries: entries, reflect: gen}
}

func (h *Handlers) reflectionsAvailable() bool {
	return h.reflect != nil && h.reflect.Available()
}

// userID is the owner resolved by middleware.BearerAuth.
func userID(c *gin.Context) string { return middleware.UserID(c) }
