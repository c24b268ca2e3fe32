package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestCreateAccount_NormalizesEmailAndConfirms(t *testing.T) {
	db := newRepoDB(t, &Account{})
	ctx := context.Background()

	a, err := CreateAccount(ctx, db, "  Ada@Example.COM ", "Ada", "hash", nil)
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if a.Email != "ada@example.com" {
		t.Fatalf("email not normalized: %q", a.Email)
	}
	if !a.Confirmed() {
		t.Fatal("account without token should be confirmed")
	}

	got, err := GetAccountByEmail(ctx, db, "ADA@example.com")
	if err != nil {
		t.Fatalf("GetAccountByEmail: %v", err)
	}
	if got.ID != a.ID || got.PasswordHash != "hash" {
		t.Fatalf("unexpected account: %+v", got)
	}
	if _, err := GetAccount(ctx, db, a.ID); err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
}

func TestCreateAccount_Duplicate(t *testing.T) {
	db := newRepoDB(t, &Account{})
	ctx := context.Background()

	if _, err := CreateAccount(ctx, db, "a@b.c", "A", "h", nil); err != nil {
		t.Fatalf("first: %v", err)
	}
	_, err := CreateAccount(ctx, db, "A@B.C", "A2", "h", nil)
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("want ErrDuplicate, got %v", err)
	}
}

func TestConfirmAccount(t *testing.T) {
	db := newRepoDB(t, &Account{})
	ctx := context.Background()

	tok := "tok-123"
	a, err := CreateAccount(ctx, db, "p@q.r", "P", "h", &tok)
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if a.Confirmed() {
		t.Fatal("account with pending token must not be confirmed")
	}

	if _, err := ConfirmAccount(ctx, db, "wrong"); !IsNotFound(err) {
		t.Fatalf("want ErrNotFound for unknown token, got %v", err)
	}

	got, err := ConfirmAccount(ctx, db, tok)
	if err != nil {
		t.Fatalf("ConfirmAccount: %v", err)
	}
	if !got.Confirmed() || got.ConfirmToken != nil {
		t.Fatalf("account not confirmed: %+v", got)
	}
	// token is single-use
	if _, err := ConfirmAccount(ctx, db, tok); !IsNotFound(err) {
		t.Fatalf("token reuse should fail, got %v", err)
	}
}

func TestSessions_CreateRevokePurge(t *testing.T) {
	db := newRepoDB(t, &Session{})
	ctx := context.Background()
	now := time.Now().UTC()

	live := uuid.NewString()
	old := uuid.NewString()
	if err := CreateSession(ctx, db, live, "u1", now.Add(time.Hour)); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if err := CreateSession(ctx, db, old, "u1", now.Add(-time.Minute)); err != nil {
		t.Fatalf("CreateSession(old): %v", err)
	}

	if ok, err := SessionActive(ctx, db, live, now); err != nil || !ok {
		t.Fatalf("live session should be active: ok=%v err=%v", ok, err)
	}
	if ok, _ := SessionActive(ctx, db, old, now); ok {
		t.Fatal("expired session reported active")
	}
	if ok, _ := SessionActive(ctx, db, "missing", now); ok {
		t.Fatal("unknown session reported active")
	}

	if err := RevokeSession(ctx, db, live); err != nil {
		t.Fatalf("RevokeSession: %v", err)
	}
	if ok, _ := SessionActive(ctx, db, live, now); ok {
		t.Fatal("revoked session reported active")
	}
	if err := RevokeSession(ctx, db, live); err != nil {
		t.Fatalf("second revoke should be a no-op: %v", err)
	}

	n, err := PurgeSessions(ctx, db, now)
	if err != nil {
		t.Fatalf("PurgeSessions: %v", err)
	}
	if n != 1 {
		t.Fatalf("want 1 purged, got %d", n)
	}
}
