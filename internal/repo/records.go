// Package repo implements the backend persistence layer of the journal,
// backed by GORM. The types in this file are the backend's persisted shape:
// snake_case columns and JSON keys, exactly what travels over the HTTP API
// and what the entry store reads and writes.
//
// The application never uses these rows directly; services.ToRecord and
// services.FromRecord translate between them and the domain models.
package repo

import (
	"time"

	"gorm.io/datatypes"
)

// EntryRecord is the persisted form of a journal entry.
//
// Fields:
//   - ID: client-generated UUID primary key (char(36)).
//   - UserID: owner of the entry; indexed with CreatedAt for list queries.
//   - Title / Content: required text.
//   - Mood: enumerated mood string (check constraint).
//   - Tags: ordered list of tags stored as a JSON array.
//   - CreatedAt: creation time carried by the client on every upsert.
//   - UpdatedAt: stamped by the store on every write.
//   - AIReflection: optional reflection text (NULL when unset).
type EntryRecord struct {
	ID           string                      `json:"id"                      gorm:"type:char(36);primaryKey"`
	UserID       string                      `json:"user_id"                 gorm:"type:varchar(64);not null;index:idx_user_entries,priority:1"`
	Title        string                      `json:"title"                   gorm:"type:varchar(255);not null"`
	Content      string                      `json:"content"                 gorm:"type:text;not null"`
	Mood         string                      `json:"mood"                    gorm:"type:varchar(16);not null;default:'neutral';check:mood IN ('happy','calm','neutral','sad','stressed','excited')"`
	Tags         datatypes.JSONSlice[string] `json:"tags"`
	CreatedAt    time.Time                   `json:"created_at"              gorm:"index:idx_user_entries,priority:2"`
	UpdatedAt    time.Time                   `json:"updated_at"`
	AIReflection *string                     `json:"ai_reflection,omitempty" gorm:"type:text"`
}

// TableName returns the database table name for EntryRecord.
func (EntryRecord) TableName() string { return "entries" }

// Account is a registered user of the identity backend.
//
// PasswordHash holds an argon2id PHC string. ConfirmToken is set while the
// account awaits email confirmation and cleared once confirmed.
type Account struct {
	ID           string     `json:"id"            gorm:"type:char(36);primaryKey"`
	Email        string     `json:"email"         gorm:"type:varchar(255);not null;uniqueIndex:ux_accounts_email"`
	Name         string     `json:"name"          gorm:"type:varchar(255);not null"`
	PasswordHash string     `json:"-"             gorm:"type:text;not null"`
	ConfirmedAt  *time.Time `json:"confirmed_at"`
	ConfirmToken *string    `json:"-"             gorm:"type:varchar(64);uniqueIndex:ux_accounts_confirm_token"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TableName returns the database table name for Account.
func (Account) TableName() string { return "accounts" }

// Confirmed reports whether the account may sign in.
func (a Account) Confirmed() bool { return a.ConfirmedAt != nil }

// Session records an issued session token (keyed by the token's jti) so it
// can be revoked on sign-out before it expires.
type Session struct {
	ID        string     `gorm:"type:char(36);primaryKey"`
	UserID    string     `gorm:"type:char(36);not null;index"`
	ExpiresAt time.Time  `gorm:"not null;index"`
	RevokedAt *time.Time `gorm:"index"`
	CreatedAt time.Time
}

// TableName returns the database table name for Session.
func (Session) TableName() string { return "sessions" }
