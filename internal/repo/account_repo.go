// Package repo implements the backend persistence layer, backed by GORM.
// This file provides repository functions for accounts and sessions used by
// the identity backend (package auth).
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrDuplicate indicates that a unique constraint rejected the insert
// (e.g. an account with the same email already exists).
var ErrDuplicate = errors.New("duplicate")

// CreateAccount inserts a new account. The email is stored lower-cased.
// Returns ErrDuplicate when the email is already registered.
func CreateAccount(ctx context.Context, db *gorm.DB, email, name, passwordHash string, confirmToken *string) (*Account, error) {
	now := time.Now().UTC()
	a := &Account{
		ID:           uuid.NewString(),
		Email:        normalizeEmail(email),
		Name:         name,
		PasswordHash: passwordHash,
		ConfirmToken: confirmToken,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if confirmToken == nil {
		a.ConfirmedAt = &now
	}
	if err := db.WithContext(ctx).Create(a).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return a, nil
}

// GetAccountByEmail fetches an account by (case-insensitive) email.
func GetAccountByEmail(ctx context.Context, db *gorm.DB, email string) (*Account, error) {
	var a Account
	if err := db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// GetAccount fetches an account by id.
func GetAccount(ctx context.Context, db *gorm.DB, id string) (*Account, error) {
	var a Account
	if err := db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// ConfirmAccount marks the account holding token as confirmed and clears
// the token. Returns ErrNotFound when no account carries the token.
func ConfirmAccount(ctx context.Context, db *gorm.DB, token string) (*Account, error) {
	var out *Account
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var a Account
		if err := tx.Where("confirm_token = ?", token).First(&a).Error; err != nil {
			return err
		}
		now := time.Now().UTC()
		if err := tx.Model(&a).Updates(map[string]any{
			"confirmed_at":  now,
			"confirm_token": nil,
			"updated_at":    now,
		}).Error; err != nil {
			return err
		}
		a.ConfirmedAt = &now
		a.ConfirmToken = nil
		out = &a
		return nil
	})
	return out, err
}

// CreateSession records an issued session token.
func CreateSession(ctx context.Context, db *gorm.DB, id, userID string, expiresAt time.Time) error {
	s := &Session{
		ID:        id,
		UserID:    userID,
		ExpiresAt: expiresAt.UTC(),
		CreatedAt: time.Now().UTC(),
	}
	return db.WithContext(ctx).Create(s).Error
}

// RevokeSession marks the session as revoked. Revoking an unknown or already
// revoked session is not an error.
func RevokeSession(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).
		Model(&Session{}).
		Where("id = ? AND revoked_at IS NULL", id).
		Update("revoked_at", time.Now().UTC()).Error
}

// SessionActive reports whether the session exists, is not revoked and has
// not expired at now.
func SessionActive(ctx context.Context, db *gorm.DB, id string, now time.Time) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&Session{}).
		Where("id = ? AND revoked_at IS NULL AND expires_at > ?", id, now.UTC()).
		Count(&n).Error
	return n > 0, err
}

// PurgeSessions deletes sessions that expired before now. Returns the number
// of rows removed.
func PurgeSessions(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Where("expires_at <= ?", now.UTC()).Delete(&Session{})
	return res.RowsAffected, res.Error
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// isUniqueViolation detects unique-constraint failures across drivers that
// may not map to gorm.ErrDuplicatedKey.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// SQLite typically: "UNIQUE constraint failed"
	// Postgres typically: "duplicate key value violates unique constraint"
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint") ||
		strings.Contains(low, "constraint failed: unique") ||
		strings.Contains(low, "duplicate key")
}
