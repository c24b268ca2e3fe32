package services

import (
	"github.com/tbourn/go-journal/internal/domain"
	"github.com/tbourn/go-journal/internal/repo"
)

// ToRecord maps an application entry to the backend record shape.
// Nil tags become an empty list; an absent reflection stays absent.
func ToRecord(e domain.JournalEntry) repo.EntryRecord {
	return repo.EntryRecord{
		ID:           e.ID,
		UserID:       e.UserID,
		Title:        e.Title,
		Content:      e.Content,
		Mood:         string(e.Mood),
		Tags:         copyTags(e.Tags),
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
		AIReflection: copyString(e.AIReflection),
	}
}

// FromRecord maps a backend record to the application entry shape.
// It is the inverse of ToRecord.
func FromRecord(r repo.EntryRecord) domain.JournalEntry {
	return domain.JournalEntry{
		ID:           r.ID,
		UserID:       r.UserID,
		Title:        r.Title,
		Content:      r.Content,
		Mood:         domain.Mood(r.Mood),
		Tags:         copyTags(r.Tags),
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
		AIReflection: copyString(r.AIReflection),
	}
}

func copyTags(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func copyString(p *string) *string {
	if p == nil {
		return nil
	}
	s := *p
	return &s
}
