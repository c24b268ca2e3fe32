package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/tbourn/go-journal/internal/domain"
)

// Field names an editable draft field.
type Field int

const (
	FieldTitle Field = iota
	FieldContent
	FieldMood
	FieldTags
	FieldReflection
)

func (f Field) String() string {
	switch f {
	case FieldTitle:
		return "title"
	case FieldContent:
		return "content"
	case FieldMood:
		return "mood"
	case FieldTags:
		return "tags"
	case FieldReflection:
		return "reflection"
	default:
		return fmt.Sprintf("field(%d)", int(f))
	}
}

// DraftState is a read-only copy of an editing session.
type DraftState struct {
	ID           string
	IsNew        bool
	Title        string
	Content      string
	Mood         domain.Mood
	Tags         string
	Reflection   *string
	IsReflecting bool
	IsSaving     bool
	Error        string
}

// CanSave reports whether both title and content are non-blank.
func (d DraftState) CanSave() bool {
	return strings.TrimSpace(d.Title) != "" && strings.TrimSpace(d.Content) != ""
}

// EditingSession holds the draft of one entry between BeginNewEntry /
// BeginEditEntry and Save or Cancel. It never touches the controller's entry
// list; Save hands the assembled draft to CommitEntry.
type EditingSession struct {
	ctrl *SessionController
	seq  uint64
	id   string
	orig *domain.JournalEntry

	mu         sync.Mutex
	title      string
	content    string
	mood       domain.Mood
	tags       string
	reflection *string
	reflecting bool
	saving     bool
	errMsg     string
}

func newEditingSession(c *SessionController, seq uint64, id string, orig *domain.JournalEntry) *EditingSession {
	s := &EditingSession{ctrl: c, seq: seq, id: id, orig: orig, mood: domain.DefaultMood}
	if orig != nil {
		s.title = orig.Title
		s.content = orig.Content
		if orig.Mood.Valid() {
			s.mood = orig.Mood
		}
		s.tags = strings.Join(orig.Tags, ", ")
		s.reflection = copyString(orig.AIReflection)
	}
	return s
}

// ID returns the entry id this session saves under.
func (s *EditingSession) ID() string { return s.id }

// Snapshot returns a copy of the draft.
func (s *EditingSession) Snapshot() DraftState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return DraftState{
		ID:           s.id,
		IsNew:        s.orig == nil,
		Title:        s.title,
		Content:      s.content,
		Mood:         s.mood,
		Tags:         s.tags,
		Reflection:   copyString(s.reflection),
		IsReflecting: s.reflecting,
		IsSaving:     s.saving,
		Error:        s.errMsg,
	}
}

// UpdateField sets one draft field. Mood values are validated; an empty
// reflection discards it. No other side effects.
func (s *EditingSession) UpdateField(f Field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch f {
	case FieldTitle:
		s.title = value
	case FieldContent:
		s.content = value
	case FieldMood:
		m, err := domain.ParseMood(value)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
		s.mood = m
	case FieldTags:
		s.tags = value
	case FieldReflection:
		if value == "" {
			s.reflection = nil
		} else {
			v := value
			s.reflection = &v
		}
	default:
		return fmt.Errorf("unknown field %s", f)
	}
	return nil
}

// DiscardReflection clears the reflection so it is not saved.
func (s *EditingSession) DiscardReflection() {
	s.mu.Lock()
	s.reflection = nil
	s.mu.Unlock()
}

// RequestReflection asks the generator for a reflection on the current
// title, content and mood. It is a no-op when content is blank or no
// generator is available. On failure the draft's error message is set and a
// notice is raised. A result that arrives after the session was closed is
// discarded with ErrStale.
func (s *EditingSession) RequestReflection(ctx context.Context) error {
	gen := s.ctrl.reflect

	s.mu.Lock()
	if strings.TrimSpace(s.content) == "" || gen == nil || !gen.Available() {
		s.mu.Unlock()
		return nil
	}
	if s.reflecting {
		s.mu.Unlock()
		return ErrBusy
	}
	s.reflecting = true
	s.errMsg = ""
	req := ReflectionRequest{Title: s.title, Content: s.content, Mood: s.mood}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.reflecting = false
		s.mu.Unlock()
	}()

	text, err := gen.Generate(ctx, req)
	reflections.WithLabelValues(resultLabel(err)).Inc()
	if err != nil {
		s.ctrl.log.Error().Err(err).Str("op", "reflect").Str("entry_id", s.id).Msg("reflection failed")
		s.mu.Lock()
		s.errMsg = MsgReflectionFailed
		s.mu.Unlock()
		s.ctrl.notify.Notify(Notice{Level: NoticeError, Message: MsgReflectionFailed})
		return err
	}
	if !s.ctrl.isCurrentEdit(s.seq) {
		s.ctrl.log.Debug().Str("op", "reflect").Str("entry_id", s.id).Msg("discarding reflection for closed session")
		return ErrStale
	}

	s.mu.Lock()
	s.reflection = &text
	s.mu.Unlock()
	return nil
}

// Save commits the draft through the controller. A draft with blank title or
// content is not saved: Save returns (nil, nil) without calling the
// controller. A session closed by Cancel or superseded by another
// Begin* call fails with ErrStale and writes nothing. Tags are split on commas, trimmed, and empty pieces dropped.
func (s *EditingSession) Save(ctx context.Context) (*domain.JournalEntry, error) {
	s.mu.Lock()
	if s.saving {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	if strings.TrimSpace(s.title) == "" || strings.TrimSpace(s.content) == "" {
		s.mu.Unlock()
		return nil, nil
	}
	s.saving = true
	d := Draft{
		Title:        s.title,
		Content:      s.content,
		Mood:         s.mood,
		Tags:         ParseTags(s.tags),
		AIReflection: copyString(s.reflection),
	}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.saving = false
		s.mu.Unlock()
	}()

	stored, err := s.ctrl.commitFor(ctx, s.seq, s.id, d)
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

// ParseTags splits s on commas, trims each piece and drops empty ones.
// Duplicates are kept. The result is never nil.
func ParseTags(s string) []string {
	out := []string{}
	for _, p := range strings.Split(s, ",") {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
