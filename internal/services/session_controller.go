// Package services – SessionController
//
// SessionController owns the client-side session: the signed-in user, the
// active view (authenticating, browsing, editing), the authoritative list of
// entries and the entry currently being edited. Front ends drive it through
// discrete operations and render from Snapshot.
//
// Every operation runs in the caller's goroutine. State is guarded by a
// mutex; a second Login/Register/Logout, CommitEntry or DeleteEntry while one
// of the same kind is in flight fails with ErrBusy. Each Load takes a
// sequence number and results of a superseded Load are dropped (ErrStale).

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-journal/internal/domain"
)

// DefaultDisplayName is used when a user registers without a name.
const DefaultDisplayName = "Friend"

// State is a read-only copy of the controller's state.
type State struct {
	User             *domain.User
	View             domain.View
	Entries          []domain.JournalEntry
	EntryBeingEdited *domain.JournalEntry
	ActiveEntryID    string
	IsLoadingEntries bool
	IsDeleting       bool
	IsSaving         bool
	IsAuthenticating bool
}

// Draft is what an editing session hands to CommitEntry.
type Draft struct {
	Title        string
	Content      string
	Mood         domain.Mood
	Tags         []string
	AIReflection *string
}

// Option configures a SessionController.
type Option func(*SessionController)

// WithLogger sets the logger used for swallowed and surfaced failures.
func WithLogger(l zerolog.Logger) Option {
	return func(c *SessionController) { c.log = l }
}

// WithConfirmer sets the yes/no prompt used before deletions.
func WithConfirmer(cf Confirmer) Option {
	return func(c *SessionController) { c.confirm = cf }
}

// WithNotifier sets the sink for user-facing notices.
func WithNotifier(n Notifier) Option {
	return func(c *SessionController) { c.notify = n }
}

// WithReflectionGenerator sets the generator offered to editing sessions.
func WithReflectionGenerator(g ReflectionGenerator) Option {
	return func(c *SessionController) { c.reflect = g }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *SessionController) { c.now = now }
}

// WithIDGenerator overrides NewEntryID.
func WithIDGenerator(gen func() string) Option {
	return func(c *SessionController) { c.newID = gen }
}

// SessionController drives the journal's views and entry lifecycle.
type SessionController struct {
	gateway IdentityGateway
	entries *EntryRepository
	reflect ReflectionGenerator
	confirm Confirmer
	notify  Notifier
	log     zerolog.Logger
	now     func() time.Time
	newID   func() string

	mu       sync.Mutex
	user     *domain.User
	view     domain.View
	list     []domain.JournalEntry
	editing  *domain.JournalEntry
	activeID string

	authenticating bool
	loading        bool
	committing     bool
	deleting       bool

	loadSeq uint64
	editSeq uint64
}

// NewSessionController returns a controller in the Authenticating view.
// Without WithConfirmer every deletion is declined.
func NewSessionController(gateway IdentityGateway, entries *EntryRepository, opts ...Option) *SessionController {
	c := &SessionController{
		gateway: gateway,
		entries: entries,
		confirm: ConfirmerFunc(func(context.Context, string) bool { return false }),
		notify:  NotifierFunc(func(Notice) {}),
		log:     zerolog.Nop(),
		now:     time.Now,
		newID:   NewEntryID,
		view:    domain.ViewAuthenticating,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Snapshot returns a copy of the current state.
func (c *SessionController) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := State{
		View:             c.view,
		ActiveEntryID:    c.activeID,
		IsLoadingEntries: c.loading,
		IsDeleting:       c.deleting,
		IsSaving:         c.committing,
		IsAuthenticating: c.authenticating,
	}
	if c.user != nil {
		u := *c.user
		st.User = &u
	}
	if c.editing != nil {
		e := *c.editing
		st.EntryBeingEdited = &e
	}
	st.Entries = make([]domain.JournalEntry, len(c.list))
	copy(st.Entries, c.list)
	return st
}

// ReflectionAvailable reports whether editing sessions may offer reflections.
func (c *SessionController) ReflectionAvailable() bool {
	return c.reflect != nil && c.reflect.Available()
}

// Boot resumes an existing session if the gateway has one: it loads entries
// and enters Browsing. Otherwise, or when the lookup fails, it enters
// Authenticating. Failures are logged, never returned.
func (c *SessionController) Boot(ctx context.Context) {
	u, err := c.gateway.CurrentSession(ctx)
	if err != nil {
		c.log.Warn().Err(err).Str("op", "boot").Msg("session lookup failed")
	}
	if err != nil || u == nil {
		c.mu.Lock()
		c.user = nil
		c.view = domain.ViewAuthenticating
		c.mu.Unlock()
		return
	}
	c.log.Info().Str("op", "boot").Str("user_id", u.ID).Msg("session resumed")
	c.enterBrowsing(ctx, *u)
}

// Login authenticates and, on success, loads the user's entries and enters
// Browsing. On failure the state is unchanged and the error is returned.
func (c *SessionController) Login(ctx context.Context, email, password string) (domain.User, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return domain.User{}, fmt.Errorf("%w: email and password are required", ErrValidation)
	}
	if !c.acquire(&c.authenticating) {
		return domain.User{}, ErrBusy
	}
	defer c.release(&c.authenticating)

	u, err := c.gateway.Login(ctx, strings.TrimSpace(email), password)
	if err != nil {
		c.log.Info().Err(err).Str("op", "login").Msg("sign-in rejected")
		return domain.User{}, err
	}
	c.log.Info().Str("op", "login").Str("user_id", u.ID).Msg("signed in")
	c.enterBrowsing(ctx, u)
	return u, nil
}

// Register creates an account. When the account is active immediately it
// behaves like Login. When confirmation is pending the controller stays in
// Authenticating and the caller presents MsgConfirmEmail.
func (c *SessionController) Register(ctx context.Context, email, password, name string) (Registration, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return Registration{}, fmt.Errorf("%w: email and password are required", ErrValidation)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultDisplayName
	}
	if !c.acquire(&c.authenticating) {
		return Registration{}, ErrBusy
	}
	defer c.release(&c.authenticating)

	reg, err := c.gateway.Register(ctx, strings.TrimSpace(email), password, name)
	if err != nil {
		c.log.Info().Err(err).Str("op", "register").Msg("registration rejected")
		return Registration{}, err
	}
	c.log.Info().Str("op", "register").Str("user_id", reg.User.ID).Stringer("status", reg.Status).Msg("account created")
	if reg.Status == RegistrationActive {
		c.enterBrowsing(ctx, reg.User)
	}
	return reg, nil
}

// Logout signs out. On success the user, entries and any open editing
// session are cleared and the view returns to Authenticating. On failure the
// state is unchanged.
func (c *SessionController) Logout(ctx context.Context) error {
	if !c.acquire(&c.authenticating) {
		return ErrBusy
	}
	defer c.release(&c.authenticating)

	if err := c.gateway.Logout(ctx); err != nil {
		c.log.Error().Err(err).Str("op", "logout").Msg("sign-out failed")
		if !errors.Is(err, ErrGateway) {
			err = fmt.Errorf("%w: %w", ErrGateway, err)
		}
		return err
	}

	c.mu.Lock()
	c.user = nil
	c.list = nil
	c.editing = nil
	c.activeID = ""
	c.loading = false
	c.loadSeq++
	c.editSeq++
	c.view = domain.ViewAuthenticating
	c.mu.Unlock()
	c.log.Info().Str("op", "logout").Msg("signed out")
	return nil
}

// Load fetches every entry of userID and replaces the list wholesale. On
// failure the previous list is kept, the error is logged and a notice is
// raised. A result overtaken by a newer Load, or by sign-out, is discarded
// with ErrStale.
func (c *SessionController) Load(ctx context.Context, userID string) error {
	c.mu.Lock()
	c.loadSeq++
	seq := c.loadSeq
	c.loading = true
	c.mu.Unlock()

	list, err := c.entries.List(ctx, userID)

	c.mu.Lock()
	if seq != c.loadSeq || c.user == nil || c.user.ID != userID {
		if seq == c.loadSeq {
			c.loading = false
		}
		c.mu.Unlock()
		c.log.Debug().Str("op", "load").Uint64("seq", seq).Msg("discarding superseded entry list")
		return ErrStale
	}
	c.loading = false
	if err == nil {
		c.list = list
	}
	c.mu.Unlock()

	if err != nil {
		c.log.Error().Err(err).Str("op", "load").Str("user_id", userID).Msg("load entries failed")
		c.notify.Notify(Notice{Level: NoticeError, Message: MsgLoadFailed})
		return err
	}
	c.log.Debug().Str("op", "load").Int("count", len(list)).Msg("entries loaded")
	return nil
}

// BeginNewEntry opens an editing session for a new entry. The entry id is
// generated here, once, and reused by every save of this session.
func (c *SessionController) BeginNewEntry() *EditingSession {
	id := c.newID()

	c.mu.Lock()
	c.editing = nil
	c.activeID = id
	c.view = domain.ViewEditing
	c.editSeq++
	seq := c.editSeq
	c.mu.Unlock()

	return newEditingSession(c, seq, id, nil)
}

// BeginEditEntry opens an editing session seeded from entry; the session
// keeps entry's id.
func (c *SessionController) BeginEditEntry(entry domain.JournalEntry) *EditingSession {
	e := entry
	e.Tags = copyTags(entry.Tags)
	e.AIReflection = copyString(entry.AIReflection)

	c.mu.Lock()
	c.editing = &e
	c.activeID = e.ID
	c.view = domain.ViewEditing
	c.editSeq++
	seq := c.editSeq
	c.mu.Unlock()

	return newEditingSession(c, seq, e.ID, &e)
}

// Cancel closes the editing session without saving and returns to Browsing.
func (c *SessionController) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.view != domain.ViewEditing {
		return
	}
	c.editing = nil
	c.activeID = ""
	c.editSeq++
	c.view = domain.ViewBrowsing
}

// CommitEntry persists d under the active entry id. CreatedAt is carried
// forward when editing and stamped now for a new entry; UpdatedAt is always
// stamped now. On success the list is reloaded and the view returns to
// Browsing. On failure the view stays in Editing and the list is untouched.
func (c *SessionController) CommitEntry(ctx context.Context, d Draft) (domain.JournalEntry, error) {
	c.mu.Lock()
	seq, id := c.editSeq, c.activeID
	c.mu.Unlock()
	return c.commitFor(ctx, seq, id, d)
}

// commitFor is CommitEntry for the editing session identified by seq and
// id. A session that is no longer the open one fails with ErrStale and
// never writes.
func (c *SessionController) commitFor(ctx context.Context, seq uint64, id string, d Draft) (domain.JournalEntry, error) {
	c.mu.Lock()
	switch {
	case c.committing:
		c.mu.Unlock()
		return domain.JournalEntry{}, ErrBusy
	case c.user == nil:
		c.mu.Unlock()
		return domain.JournalEntry{}, ErrNotAuthenticated
	case id == "":
		c.mu.Unlock()
		return domain.JournalEntry{}, ErrNoActiveEntry
	case c.view != domain.ViewEditing || c.editSeq != seq || c.activeID != id:
		c.mu.Unlock()
		c.log.Debug().Str("op", "commit").Str("entry_id", id).Msg("discarding save of closed session")
		return domain.JournalEntry{}, ErrStale
	}
	c.committing = true
	userID := c.user.ID
	var original *domain.JournalEntry
	if c.editing != nil && c.editing.ID == id {
		o := *c.editing
		original = &o
	}
	c.mu.Unlock()
	defer c.release(&c.committing)

	tr := otel.Tracer("services/SessionController")
	ctx, span := tr.Start(ctx, "CommitEntry",
		trace.WithAttributes(
			attribute.String("entry.id", id),
			attribute.String("user.id", userID),
			attribute.Bool("entry.new", original == nil),
		),
	)
	defer span.End()

	entry, err := c.buildEntry(d, id, userID, original)
	if err != nil {
		return domain.JournalEntry{}, err
	}

	stored, err := c.entries.Upsert(ctx, entry)
	entriesSaved.WithLabelValues(resultLabel(err)).Inc()
	if err != nil {
		c.log.Error().Err(err).Str("op", "commit").Str("entry_id", id).Msg("save entry failed")
		c.notify.Notify(Notice{Level: NoticeError, Message: MsgSaveFailed})
		return domain.JournalEntry{}, err
	}
	c.log.Info().Str("op", "commit").Str("entry_id", id).Msg("entry saved")

	// The save already happened; a failed reload is reported by Load itself.
	_ = c.Load(ctx, userID)

	c.mu.Lock()
	if c.editSeq == seq {
		c.editing = nil
		c.activeID = ""
		c.editSeq++
		c.view = domain.ViewBrowsing
	}
	c.mu.Unlock()
	return stored, nil
}

func (c *SessionController) buildEntry(d Draft, id, userID string, original *domain.JournalEntry) (domain.JournalEntry, error) {
	if strings.TrimSpace(d.Title) == "" || strings.TrimSpace(d.Content) == "" {
		return domain.JournalEntry{}, fmt.Errorf("%w: title and content are required", ErrValidation)
	}
	mood := d.Mood
	if mood == "" {
		mood = domain.DefaultMood
	}
	if !mood.Valid() {
		return domain.JournalEntry{}, fmt.Errorf("%w: unknown mood %q", ErrValidation, mood)
	}

	now := c.now().UTC()
	created := now
	if original != nil {
		created = original.CreatedAt
		if now.Before(original.UpdatedAt) {
			now = original.UpdatedAt
		}
	}
	return domain.JournalEntry{
		ID:           id,
		UserID:       userID,
		Title:        d.Title,
		Content:      d.Content,
		Mood:         mood,
		Tags:         copyTags(d.Tags),
		CreatedAt:    created,
		UpdatedAt:    now,
		AIReflection: copyString(d.AIReflection),
	}, nil
}

// DeleteEntry asks for confirmation and, if given, deletes the entry and
// reloads the list. Declining makes no repository call. The reload runs
// whether or not the delete succeeded since the backend is authoritative.
func (c *SessionController) DeleteEntry(ctx context.Context, id string) error {
	c.mu.Lock()
	switch {
	case c.deleting:
		c.mu.Unlock()
		return ErrBusy
	case c.user == nil:
		c.mu.Unlock()
		return ErrNotAuthenticated
	}
	userID := c.user.ID
	c.mu.Unlock()

	if !c.confirm.Confirm(ctx, MsgConfirmDelete) {
		c.log.Debug().Str("op", "delete").Str("entry_id", id).Msg("deletion declined")
		return nil
	}

	// The user may have logged out or started another delete while the
	// prompt was open.
	c.mu.Lock()
	switch {
	case c.deleting:
		c.mu.Unlock()
		return ErrBusy
	case c.user == nil || c.user.ID != userID:
		c.mu.Unlock()
		return ErrNotAuthenticated
	}
	c.deleting = true
	c.mu.Unlock()
	defer c.release(&c.deleting)

	err := c.entries.Delete(ctx, id)
	entriesDeleted.WithLabelValues(resultLabel(err)).Inc()
	if err != nil {
		c.log.Error().Err(err).Str("op", "delete").Str("entry_id", id).Msg("delete entry failed")
		c.notify.Notify(Notice{Level: NoticeError, Message: MsgDeleteFailed})
	} else {
		c.log.Info().Str("op", "delete").Str("entry_id", id).Msg("entry deleted")
	}

	lerr := c.Load(ctx, userID)
	if err != nil {
		return err
	}
	if errors.Is(lerr, ErrStale) {
		return nil
	}
	return lerr
}

func (c *SessionController) enterBrowsing(ctx context.Context, u domain.User) {
	c.mu.Lock()
	c.user = &u
	c.mu.Unlock()

	_ = c.Load(ctx, u.ID)

	c.mu.Lock()
	if c.user != nil && c.user.ID == u.ID {
		c.view = domain.ViewBrowsing
	}
	c.mu.Unlock()
}

// isCurrentEdit reports whether the editing session identified by seq is
// still the open one.
func (c *SessionController) isCurrentEdit(seq uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view == domain.ViewEditing && c.editSeq == seq
}

func (c *SessionController) acquire(flag *bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if *flag {
		return false
	}
	*flag = true
	return true
}

func (c *SessionController) release(flag *bool) {
	c.mu.Lock()
	*flag = false
	c.mu.Unlock()
}
