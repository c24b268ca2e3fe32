// Package domain defines the application-shape models of the journal: users,
// journal entries, moods and the top-level views of the client. These types
// never carry backend field names; translation to the persisted schema lives
// in the services package (see services.ToRecord / services.FromRecord).
package domain

import (
	"fmt"
	"strings"
	"time"
)

// Mood is the emotional tag of an entry. The set is fixed.
type Mood string

const (
	MoodHappy    Mood = "happy"
	MoodCalm     Mood = "calm"
	MoodNeutral  Mood = "neutral"
	MoodSad      Mood = "sad"
	MoodStressed Mood = "stressed"
	MoodExcited  Mood = "excited"
)

// DefaultMood is applied to new drafts.
const DefaultMood = MoodNeutral

// Moods returns every mood in display order.
func Moods() []Mood {
	return []Mood{MoodHappy, MoodCalm, MoodNeutral, MoodSad, MoodStressed, MoodExcited}
}

// Valid reports whether m is one of the enumerated moods.
func (m Mood) Valid() bool {
	switch m {
	case MoodHappy, MoodCalm, MoodNeutral, MoodSad, MoodStressed, MoodExcited:
		return true
	}
	return false
}

// Emoji returns the glyph shown next to entries on the dashboard.
func (m Mood) Emoji() string {
	switch m {
	case MoodHappy:
		return "😊"
	case MoodCalm:
		return "😌"
	case MoodExcited:
		return "🤩"
	case MoodSad:
		return "😢"
	case MoodStressed:
		return "😫"
	default:
		return "😐"
	}
}

// ParseMood converts user input (case-insensitive, trimmed) into a Mood.
func ParseMood(s string) (Mood, error) {
	m := Mood(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("unknown mood %q", s)
	}
	return m, nil
}

// User is the authenticated identity as seen by the application.
// It is owned by the identity gateway and read-only here.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// JournalEntry is one record authored by a user.
//
// Fields:
//   - ID: client-generated UUID assigned when the editing session starts.
//   - UserID: owner of the entry.
//   - Title / Content: required, never persisted empty.
//   - Mood: one of Moods(); defaults to neutral.
//   - Tags: ordered, trimmed, non-empty strings (duplicates allowed).
//   - CreatedAt: stamped once on first save, carried forward on edits.
//   - UpdatedAt: refreshed on every save.
//   - AIReflection: optional generated reflection; nil when unset.
type JournalEntry struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	Mood         Mood      `json:"mood"`
	Tags         []string  `json:"tags"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	AIReflection *string   `json:"aiReflection,omitempty"`
}

// HasReflection reports whether the entry carries a non-empty reflection.
func (e JournalEntry) HasReflection() bool {
	return e.AIReflection != nil && *e.AIReflection != ""
}

// View identifies which of the three top-level screens is active.
type View int

const (
	ViewAuthenticating View = iota
	ViewBrowsing
	ViewEditing
)

func (v View) String() string {
	switch v {
	case ViewAuthenticating:
		return "authenticating"
	case ViewBrowsing:
		return "browsing"
	case ViewEditing:
		return "editing"
	default:
		return fmt.Sprintf("view(%d)", int(v))
	}
}
