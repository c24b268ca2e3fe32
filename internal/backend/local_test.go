package backend

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-journal/internal/auth"
	"github.com/tbourn/go-journal/internal/domain"
	"github.com/tbourn/go-journal/internal/repo"
	"github.com/tbourn/go-journal/internal/services"
)

var testParams = auth.HashParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("backend_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func newAuthService(db *gorm.DB, confirm bool) *auth.Service {
	return &auth.Service{
		DB:                  db,
		Secret:              []byte("0123456789abcdef0123"),
		TTL:                 time.Hour,
		RequireConfirmation: confirm,
		Params:              testParams,
	}
}

func newLocal(t *testing.T, confirm bool) (*Local, string) {
	t.Helper()
	db := newTestDB(t)
	dir := t.TempDir()
	return &Local{
		Auth:   newAuthService(db, confirm),
		DB:     db,
		Tokens: NewTokenStore(dir, "local"),
		Log:    zerolog.Nop(),
	}, dir
}

type stubGen struct {
	available bool
	text      string
}

func (g stubGen) Available() bool { return g.available }
func (g stubGen) Generate(context.Context, services.ReflectionRequest) (string, error) {
	return g.text, nil
}

func TestLocal_RegisterLoginResume(t *testing.T) {
	l, dir := newLocal(t, false)
	ctx := context.Background()

	reg, err := l.Register(ctx, "sam@example.com", "hunter22", "")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if reg.Status != services.RegistrationActive || reg.User.Name != auth.DefaultName {
		t.Fatalf("registration = %+v", reg)
	}
	if _, err := l.Register(ctx, "SAM@example.com", "hunter22", "x"); !errors.Is(err, services.ErrDuplicateAccount) {
		t.Fatalf("duplicate: %v", err)
	}
	if _, err := l.Register(ctx, "not-an-email", "hunter22", "x"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("bad email: %v", err)
	}

	// a fresh process resumes from the stored token
	fresh := &Local{Auth: l.Auth, DB: l.DB, Tokens: NewTokenStore(dir, "local"), Log: zerolog.Nop()}
	u, err := fresh.CurrentSession(ctx)
	if err != nil || u == nil || u.ID != reg.User.ID {
		t.Fatalf("resume: u=%+v err=%v", u, err)
	}

	if err := fresh.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if u, err := fresh.CurrentSession(ctx); err != nil || u != nil {
		t.Fatalf("after logout: u=%+v err=%v", u, err)
	}
	// the revoked token no longer resumes anywhere
	other := &Local{Auth: l.Auth, DB: l.DB, Tokens: NewTokenStore(t.TempDir(), "local"), Log: zerolog.Nop()}
	_ = other.Tokens.Save("garbage")
	if u, err := other.CurrentSession(ctx); err != nil || u != nil {
		t.Fatalf("garbage token: u=%+v err=%v", u, err)
	}
	if tok, _ := other.Tokens.Load(); tok != "" {
		t.Fatalf("invalid token should be cleared, got %q", tok)
	}

	if _, err := l.Login(ctx, "sam@example.com", "wrong-pass"); !errors.Is(err, services.ErrInvalidCredentials) {
		t.Fatalf("wrong password: %v", err)
	}
	if u, err := l.Login(ctx, "sam@example.com", "hunter22"); err != nil || u.Email != "sam@example.com" {
		t.Fatalf("Login: u=%+v err=%v", u, err)
	}
}

func TestLocal_PendingConfirmation(t *testing.T) {
	l, _ := newLocal(t, true)
	ctx := context.Background()
	var delivered string
	l.OnConfirmToken = func(_, token string) { delivered = token }

	reg, err := l.Register(ctx, "kim@example.com", "hunter22", "Kim")
	if err != nil || reg.Status != services.RegistrationPendingConfirmation {
		t.Fatalf("reg=%+v err=%v", reg, err)
	}
	if delivered == "" {
		t.Fatal("confirmation token not delivered")
	}
	if u, _ := l.CurrentSession(ctx); u != nil {
		t.Fatal("pending registration must not open a session")
	}
	if _, err := l.Login(ctx, "kim@example.com", "hunter22"); !errors.Is(err, services.ErrConfirmationPending) {
		t.Fatalf("login before confirm: %v", err)
	}
	if err := l.Confirm(ctx, "nope"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("bad confirm token: %v", err)
	}
	if err := l.Confirm(ctx, delivered); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if _, err := l.Login(ctx, "kim@example.com", "hunter22"); err != nil {
		t.Fatalf("login after confirm: %v", err)
	}
}

func TestLocal_EntriesScopedToSession(t *testing.T) {
	l, _ := newLocal(t, false)
	ctx := context.Background()

	if _, err := l.ListEntries(ctx, "anyone"); !errors.Is(err, services.ErrNotAuthenticated) {
		t.Fatalf("list signed out: %v", err)
	}
	if err := l.DeleteEntry(ctx, "x"); !errors.Is(err, services.ErrNotAuthenticated) {
		t.Fatalf("delete signed out: %v", err)
	}

	reg, err := l.Register(ctx, "sam@example.com", "hunter22", "Sam")
	if err != nil {
		t.Fatal(err)
	}
	uid := reg.User.ID

	// through the core translation layer, as the controller uses it
	entries := services.NewEntryRepository(l)
	created := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	saved, err := entries.Upsert(ctx, domain.JournalEntry{
		ID: services.NewEntryID(), UserID: uid, Title: "Walk", Content: "Sunny",
		Mood: domain.MoodHappy, Tags: []string{"outside"}, CreatedAt: created,
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if saved.UpdatedAt.IsZero() || !saved.CreatedAt.Equal(created) {
		t.Fatalf("stored entry timestamps: %+v", saved)
	}

	if _, err := l.UpsertEntry(ctx, repo.EntryRecord{ID: services.NewEntryID(), UserID: "someone-else", Title: "x", Content: "y", Mood: "calm"}); !errors.Is(err, services.ErrNotAuthenticated) {
		t.Fatalf("foreign owner: %v", err)
	}

	list, err := entries.List(ctx, uid)
	if err != nil || len(list) != 1 || list[0].Tags[0] != "outside" {
		t.Fatalf("List: %+v err=%v", list, err)
	}
	if err := entries.Delete(ctx, saved.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := entries.Delete(ctx, saved.ID); err != nil {
		t.Fatalf("Delete twice: %v", err)
	}
	if list, _ := entries.List(ctx, uid); len(list) != 0 {
		t.Fatalf("after delete: %+v", list)
	}
}

func TestLocal_Reflections(t *testing.T) {
	l, _ := newLocal(t, false)
	ctx := context.Background()

	if l.Available() {
		t.Fatal("no generator means unavailable")
	}
	if _, err := l.Generate(ctx, services.ReflectionRequest{}); !errors.Is(err, services.ErrUnavailable) {
		t.Fatalf("Generate without generator: %v", err)
	}

	l.Gen = stubGen{available: false}
	if l.Available() {
		t.Fatal("unconfigured generator means unavailable")
	}

	l.Gen = stubGen{available: true, text: "Lovely."}
	if got, err := l.Generate(ctx, services.ReflectionRequest{Content: "x", Mood: domain.MoodCalm}); err != nil || got != "Lovely." {
		t.Fatalf("Generate: %q %v", got, err)
	}
}

// revokeFails stores sessions normally but refuses to revoke them.
type revokeFails struct{ auth.GormSessions }

func (revokeFails) Revoke(context.Context, string) error { return errors.New("session store offline") }

func TestLocal_LogoutFailureKeepsSession(t *testing.T) {
	l, dir := newLocal(t, false)
	ctx := context.Background()
	l.Auth.Sessions = revokeFails{auth.GormSessions{DB: l.DB}}

	reg, err := l.Register(ctx, "sam@example.com", "hunter22", "Sam")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := l.Logout(ctx); !errors.Is(err, services.ErrGateway) {
		t.Fatalf("want ErrGateway, got %v", err)
	}

	if u, err := l.CurrentSession(ctx); err != nil || u == nil || u.ID != reg.User.ID {
		t.Fatalf("session lost after failed logout: u=%+v err=%v", u, err)
	}
	if tok, _ := NewTokenStore(dir, "local").Load(); tok == "" {
		t.Fatal("stored token cleared after failed logout")
	}
	if _, err := l.ListEntries(ctx, reg.User.ID); err != nil {
		t.Fatalf("ListEntries after failed logout: %v", err)
	}

	l.Auth.Sessions = nil
	if err := l.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if tok, _ := l.Tokens.Load(); tok != "" {
		t.Fatalf("token kept after logout: %q", tok)
	}
	if _, err := l.ListEntries(ctx, reg.User.ID); !errors.Is(err, services.ErrNotAuthenticated) {
		t.Fatalf("ListEntries after logout: %v", err)
	}
}
