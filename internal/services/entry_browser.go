package services

import (
	"fmt"
	"strings"
	"sync"

	"github.com/tbourn/go-journal/internal/domain"
)

// MoodFilter selects which entries the browser shows: FilterAll or a mood.
type MoodFilter string

// FilterAll shows every entry.
const FilterAll MoodFilter = "all"

// Filters returns FilterAll followed by one filter per mood, in display order.
func Filters() []MoodFilter {
	out := []MoodFilter{FilterAll}
	for _, m := range domain.Moods() {
		out = append(out, MoodFilter(m))
	}
	return out
}

// ParseMoodFilter accepts "all" or any mood (case-insensitive).
func ParseMoodFilter(s string) (MoodFilter, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == string(FilterAll) {
		return FilterAll, nil
	}
	m, err := domain.ParseMood(s)
	if err != nil {
		return "", fmt.Errorf("%w: unknown filter %q", ErrValidation, s)
	}
	return MoodFilter(m), nil
}

// FilterEntries returns entries unchanged for FilterAll; otherwise it returns
// the entries whose mood equals f, preserving their relative order.
func FilterEntries(entries []domain.JournalEntry, f MoodFilter) []domain.JournalEntry {
	if f == FilterAll {
		return entries
	}
	out := make([]domain.JournalEntry, 0, len(entries))
	for _, e := range entries {
		if MoodFilter(e.Mood) == f {
			out = append(out, e)
		}
	}
	return out
}

// EntryBrowser holds the dashboard's mood filter. It never owns entries;
// Visible projects whatever list the controller currently holds.
type EntryBrowser struct {
	mu     sync.Mutex
	filter MoodFilter
}

// NewEntryBrowser returns a browser showing all entries.
func NewEntryBrowser() *EntryBrowser {
	return &EntryBrowser{filter: FilterAll}
}

// Filter returns the active filter.
func (b *EntryBrowser) Filter() MoodFilter {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.filter
}

// SetFilter parses and applies s. An invalid value leaves the filter unchanged.
func (b *EntryBrowser) SetFilter(s string) error {
	f, err := ParseMoodFilter(s)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.filter = f
	b.mu.Unlock()
	return nil
}

// Visible applies the active filter to entries.
func (b *EntryBrowser) Visible(entries []domain.JournalEntry) []domain.JournalEntry {
	return FilterEntries(entries, b.Filter())
}
