package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-journal/internal/auth"
	"github.com/tbourn/go-journal/internal/http/middleware"
	"github.com/tbourn/go-journal/internal/repo"
	"github.com/tbourn/go-journal/internal/services"
)

var t0 = time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

// fakeAuth knows one account per token: "tok-<id>".
type fakeAuth struct {
	accounts   map[string]*repo.Account
	pending    bool
	err        error
	loggedOut  []string
	registered int
}

func newFakeAuth(ids ...string) *fakeAuth {
	f := &fakeAuth{accounts: map[string]*repo.Account{}}
	for _, id := range ids {
		f.accounts["tok-"+id] = &repo.Account{ID: id, Email: id + "@example.com", Name: "N" + id, CreatedAt: t0}
	}
	return f
}

func (f *fakeAuth) Register(_ context.Context, email, _, name string) (*auth.Registered, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.registered++
	acct := &repo.Account{ID: "new", Email: email, Name: name, CreatedAt: t0}
	if f.pending {
		return &auth.Registered{Account: acct, ConfirmToken: "confirm-me"}, nil
	}
	return &auth.Registered{Account: acct, Token: "tok-new"}, nil
}

func (f *fakeAuth) Login(_ context.Context, email, _ string) (*repo.Account, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	for tok, a := range f.accounts {
		if a.Email == email {
			return a, tok, nil
		}
	}
	return nil, "", auth.ErrInvalidCredentials
}

func (f *fakeAuth) Confirm(_ context.Context, token string) (*repo.Account, error) {
	if f.err != nil {
		return nil, f.err
	}
	if token != "confirm-me" {
		return nil, auth.ErrInvalidToken
	}
	return &repo.Account{ID: "new"}, nil
}

func (f *fakeAuth) Authenticate(_ context.Context, token string) (*repo.Account, *auth.Claims, error) {
	a, ok := f.accounts[token]
	if !ok {
		return nil, nil, auth.ErrInvalidToken
	}
	return a, &auth.Claims{}, nil
}

func (f *fakeAuth) Logout(_ context.Context, token string) error {
	if f.err != nil {
		return f.err
	}
	f.loggedOut = append(f.loggedOut, token)
	delete(f.accounts, token)
	return nil
}

// fakeEntries mimics the owner-guarded repo semantics.
type fakeEntries struct {
	mu       sync.Mutex
	rows     map[string]repo.EntryRecord
	lists    int
	err      error
	statsErr error
}

func newFakeEntries(seed ...repo.EntryRecord) *fakeEntries {
	f := &fakeEntries{rows: map[string]repo.EntryRecord{}}
	for _, r := range seed {
		f.rows[r.ID] = r
	}
	return f
}

func (f *fakeEntries) List(_ context.Context, userID string) ([]repo.EntryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	if f.err != nil {
		return nil, f.err
	}
	out := []repo.EntryRecord{}
	for _, r := range f.rows {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeEntries) Upsert(_ context.Context, rec repo.EntryRecord) (*repo.EntryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if cur, ok := f.rows[rec.ID]; ok && cur.UserID != rec.UserID {
		return nil, repo.ErrNotFound
	}
	rec.UpdatedAt = t0.Add(time.Duration(len(f.rows)+1) * time.Minute)
	f.rows[rec.ID] = rec
	return &rec, nil
}

func (f *fakeEntries) Delete(_ context.Context, id, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if cur, ok := f.rows[id]; ok && cur.UserID == userID {
		delete(f.rows, id)
	}
	return nil
}

func (f *fakeEntries) Stats(_ context.Context, userID string) (int64, *time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statsErr != nil {
		return 0, nil, f.statsErr
	}
	var n int64
	var last *time.Time
	for _, r := range f.rows {
		if r.UserID != userID {
			continue
		}
		n++
		if last == nil || r.UpdatedAt.After(*last) {
			u := r.UpdatedAt
			last = &u
		}
	}
	return n, last, nil
}

type fakeGen struct {
	available bool
	text      string
	err       error
	got       []services.ReflectionRequest
}

func (g *fakeGen) Available() bool { return g.available }

func (g *fakeGen) Generate(_ context.Context, req services.ReflectionRequest) (string, error) {
	g.got = append(g.got, req)
	return g.text, g.err
}

// newTestRouter mounts the handlers the way the real router does, minus
// the ambient middleware.
func newTestRouter(h *Handlers, a *fakeAuth) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.RequestID())

	authn := middleware.BearerAuth(middleware.AuthenticatorFunc(func(ctx context.Context, tok string) (string, error) {
		acct, _, err := a.Authenticate(ctx, tok)
		if err != nil {
			return "", err
		}
		return acct.ID, nil
	}))

	r.GET("/health", h.Health)
	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)
	r.POST("/auth/confirm", h.Confirm)
	r.POST("/auth/logout", authn, h.Logout)
	r.GET("/auth/session", authn, h.Session)

	g := r.Group("/", authn)
	g.GET("/entries", h.ListEntries)
	g.PUT("/entries/:id", h.UpsertEntry)
	g.DELETE("/entries/:id", h.DeleteEntry)
	g.POST("/reflections", h.CreateReflection)
	return r
}

func do(t *testing.T, r http.Handler, method, path, token string, body any, hdr ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %T: %v (body=%s)", v, err, w.Body.String())
	}
	return v
}

func errCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[ErrorResponse](t, w).Code
}
