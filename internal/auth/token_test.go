package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("0123456789abcdef-test")

func TestIssueAndParseToken(t *testing.T) {
	now := time.Now()
	tok, err := IssueToken(testSecret, "sid-1", "acct-1", "a@b.c", now, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	c, err := ParseToken(testSecret, tok, now)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if c.ID != "sid-1" || c.Subject != "acct-1" || c.Email != "a@b.c" {
		t.Fatalf("unexpected claims: %+v", c)
	}
}

func TestParseToken_Rejects(t *testing.T) {
	now := time.Now()
	good, _ := IssueToken(testSecret, "sid", "acct", "a@b.c", now, now.Add(time.Hour))

	if _, err := ParseToken([]byte("another-secret-entirely"), good, now); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("wrong secret: err=%v", err)
	}
	if _, err := ParseToken(testSecret, good, now.Add(2*time.Hour)); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired: err=%v", err)
	}
	if _, err := ParseToken(testSecret, "not-a-token", now); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("garbage: err=%v", err)
	}

	// foreign issuer
	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{RegisteredClaims: jwt.RegisteredClaims{
		ID: "sid", Subject: "acct", Issuer: "someone-else",
		Audience: jwt.ClaimStrings{tokenAudience}, ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}})
	raw, _ := foreign.SignedString(testSecret)
	if _, err := ParseToken(testSecret, raw, now); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("foreign issuer: err=%v", err)
	}

	// alg none
	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{RegisteredClaims: jwt.RegisteredClaims{
		ID: "sid", Subject: "acct", Issuer: tokenIssuer,
		Audience: jwt.ClaimStrings{tokenAudience}, ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}})
	rawNone, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if _, err := ParseToken(testSecret, rawNone, now); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("alg none: err=%v", err)
	}
}
