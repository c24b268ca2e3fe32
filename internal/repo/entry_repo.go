// Package repo implements the backend persistence layer, backed by GORM.
// This file provides the entry store: list-by-owner, upsert-by-id and
// delete-by-id over EntryRecord.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions. They follow the "thin repository"
// approach: no business logic, only persistence and query composition.
//
// Error semantics:
//   - When an entry is not found (or belongs to another user), functions
//     return ErrNotFound.
//   - Other DB errors are propagated unchanged.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ListEntries returns all entries owned by userID, ordered by creation time
// descending (most recent first), ties broken by id. It returns an empty
// slice if the user has no entries.
func ListEntries(ctx context.Context, db *gorm.DB, userID string) ([]EntryRecord, error) {
	out := []EntryRecord{}
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc, id desc").
		Find(&out).Error
	return out, err
}

// GetEntry fetches a single entry by id and owner.
func GetEntry(ctx context.Context, db *gorm.DB, id, userID string) (*EntryRecord, error) {
	var rec EntryRecord
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// UpsertEntry creates the entry if its id is new, or replaces every column
// of the existing row when the row belongs to the same user. UpdatedAt is
// stamped here (UTC) regardless of what the caller sent; CreatedAt is taken
// from the caller and defaults to the same instant when zero.
//
// When the id already exists under a different owner nothing is written and
// ErrNotFound is returned. On success the canonical stored row is returned.
func UpsertEntry(ctx context.Context, db *gorm.DB, rec EntryRecord) (*EntryRecord, error) {
	now := time.Now().UTC()
	rec.UpdatedAt = now
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	if rec.Tags == nil {
		rec.Tags = []string{}
	}

	var stored *EntryRecord
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"title", "content", "mood", "tags", "created_at", "updated_at", "ai_reflection",
			}),
			Where: clause.Where{Exprs: []clause.Expression{
				clause.Expr{SQL: "entries.user_id = excluded.user_id"},
			}},
		}).Create(&rec)
		if res.Error != nil {
			return res.Error
		}

		got, err := GetEntry(ctx, tx, rec.ID, rec.UserID)
		if err != nil {
			return err
		}
		stored = got
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// DeleteEntry hard-deletes the entry identified by id and owned by userID.
// Deleting an id that does not exist is not an error.
func DeleteEntry(ctx context.Context, db *gorm.DB, id, userID string) error {
	return db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&EntryRecord{}).Error
}

// EntriesStats returns the number of entries for userID and the latest
// UpdatedAt among them (nil when the user has none). Used for weak ETags.
func EntriesStats(ctx context.Context, db *gorm.DB, userID string) (count int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&EntryRecord{}).Where("user_id = ?", userID)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}

// IsNotFound reports whether err means "no such row" for this package.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
