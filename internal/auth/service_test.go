package auth

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-journal/internal/repo"
)

func newAuthDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("auth_%d.db", time.Now().UnixNano()))
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

func newService(t *testing.T) *Service {
	t.Helper()
	return &Service{DB: newAuthDB(t), Secret: testSecret, TTL: time.Hour, Params: testParams}
}

func TestRegister_ActiveOpensSession(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	reg, err := s.Register(ctx, "Ada@Example.com", "hunter22", "")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if reg.Pending() || reg.Token == "" {
		t.Fatalf("want active registration with token, got %+v", reg)
	}
	if reg.Account.Name != DefaultName || reg.Account.Email != "ada@example.com" {
		t.Fatalf("unexpected account: %+v", reg.Account)
	}

	acct, claims, err := s.Authenticate(ctx, reg.Token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if acct.ID != reg.Account.ID || claims.Subject != acct.ID {
		t.Fatalf("token resolved to wrong account: %+v", acct)
	}
}

func TestRegister_Validation(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	for _, tc := range []struct{ email, pw string }{
		{"", "hunter22"},
		{"not-an-email", "hunter22"},
		{"a@b.c", ""},
		{"a@b.c", "short"},
	} {
		if _, err := s.Register(ctx, tc.email, tc.pw, "x"); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("Register(%q,%q) err=%v want ErrInvalidInput", tc.email, tc.pw, err)
		}
	}
}

func TestRegister_Duplicate(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	if _, err := s.Register(ctx, "a@b.c", "hunter22", "A"); err != nil {
		t.Fatalf("first: %v", err)
	}
	if _, err := s.Register(ctx, "A@B.C", "hunter22", "A"); !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("want ErrDuplicateEmail, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	if _, err := s.Register(ctx, "a@b.c", "hunter22", "A"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	acct, tok, err := s.Login(ctx, "a@b.c", "hunter22")
	if err != nil || acct == nil || tok == "" {
		t.Fatalf("Login: acct=%v tok=%q err=%v", acct, tok, err)
	}
	if _, _, err := s.Login(ctx, "a@b.c", "wrong-pw"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: %v", err)
	}
	if _, _, err := s.Login(ctx, "nobody@b.c", "hunter22"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email: %v", err)
	}
}

func TestConfirmationFlow(t *testing.T) {
	s := newService(t)
	s.RequireConfirmation = true
	ctx := context.Background()

	reg, err := s.Register(ctx, "a@b.c", "hunter22", "A")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !reg.Pending() || reg.Token != "" {
		t.Fatalf("want pending registration without session, got %+v", reg)
	}
	if _, _, err := s.Login(ctx, "a@b.c", "hunter22"); !errors.Is(err, ErrUnconfirmed) {
		t.Fatalf("want ErrUnconfirmed, got %v", err)
	}
	if _, err := s.Confirm(ctx, "bogus"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken, got %v", err)
	}
	if _, err := s.Confirm(ctx, reg.ConfirmToken); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if _, _, err := s.Login(ctx, "a@b.c", "hunter22"); err != nil {
		t.Fatalf("Login after confirm: %v", err)
	}
}

func TestLogout_RevokesToken(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	reg, err := s.Register(ctx, "a@b.c", "hunter22", "A")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := s.Logout(ctx, reg.Token); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, _, err := s.Authenticate(ctx, reg.Token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("revoked token still valid: %v", err)
	}
	if err := s.Logout(ctx, "garbage"); err != nil {
		t.Fatalf("logout with garbage token should be a no-op: %v", err)
	}
}

func TestAuthenticate_Expired(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	reg, err := s.Register(ctx, "a@b.c", "hunter22", "A")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	s.Now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, _, err := s.Authenticate(ctx, reg.Token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken, got %v", err)
	}
}

func TestRedisSessions_ErrorsPropagate(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	rs := RedisSessions{Client: client}

	if rs.key("abc") != "journal:session:abc" {
		t.Fatalf("key=%s", rs.key("abc"))
	}
	if err := rs.Create(context.Background(), "abc", "u", time.Now().Add(time.Minute)); err == nil {
		t.Fatal("want dial error")
	}
	if _, err := rs.Active(context.Background(), "abc", time.Now()); err == nil {
		t.Fatal("want dial error")
	}
	// already-expired sessions are never written
	if err := rs.Create(context.Background(), "abc", "u", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("expired create should be a no-op: %v", err)
	}
}

func TestConnectRedis_BadURL(t *testing.T) {
	if _, err := ConnectRedis(context.Background(), "::not a url::"); err == nil {
		t.Fatal("want parse error")
	}
}
