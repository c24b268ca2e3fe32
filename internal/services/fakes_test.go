package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/tbourn/go-journal/internal/domain"
	"github.com/tbourn/go-journal/internal/repo"
)

// ---------- identity gateway ----------

type fakeGateway struct {
	mu        sync.Mutex
	session   *domain.User
	sessErr   error
	users     map[string]domain.User // by email
	passwords map[string]string
	pending   bool
	logoutErr error
	logins    int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{users: map[string]domain.User{}, passwords: map[string]string{}}
}

func (g *fakeGateway) add(u domain.User, pw string) {
	g.users[u.Email] = u
	g.passwords[u.Email] = pw
}

func (g *fakeGateway) Register(_ context.Context, email, password, name string) (Registration, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.users[email]; ok {
		return Registration{}, ErrDuplicateAccount
	}
	u := domain.User{ID: "u-" + email, Email: email, Name: name, CreatedAt: time.Now()}
	g.users[email] = u
	g.passwords[email] = password
	if g.pending {
		return Registration{User: u, Status: RegistrationPendingConfirmation}, nil
	}
	g.session = &u
	return Registration{User: u, Status: RegistrationActive}, nil
}

func (g *fakeGateway) Login(_ context.Context, email, password string) (domain.User, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.logins++
	u, ok := g.users[email]
	if !ok || g.passwords[email] != password {
		return domain.User{}, ErrInvalidCredentials
	}
	g.session = &u
	return u, nil
}

func (g *fakeGateway) Logout(context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.logoutErr != nil {
		return g.logoutErr
	}
	g.session = nil
	return nil
}

func (g *fakeGateway) CurrentSession(context.Context) (*domain.User, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sessErr != nil {
		return nil, g.sessErr
	}
	if g.session == nil {
		return nil, nil
	}
	u := *g.session
	return &u, nil
}

// ---------- entry store ----------

type fakeStore struct {
	mu       sync.Mutex
	rows     map[string]repo.EntryRecord
	upserts  []repo.EntryRecord
	deletes  []string
	lists    int
	listErr  error
	upErr    error
	delErr   error
	listHook func() // runs inside ListEntries before returning
}

func newFakeStore(seed ...repo.EntryRecord) *fakeStore {
	s := &fakeStore{rows: map[string]repo.EntryRecord{}}
	for _, r := range seed {
		s.rows[r.ID] = r
	}
	return s
}

func (s *fakeStore) ListEntries(_ context.Context, userID string) ([]repo.EntryRecord, error) {
	s.mu.Lock()
	s.lists++
	hook := s.listHook
	if s.listErr != nil {
		err := s.listErr
		s.mu.Unlock()
		return nil, err
	}
	out := []repo.EntryRecord{}
	for _, r := range s.rows {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	s.mu.Unlock()
	// unordered on purpose; the repository sorts
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if hook != nil {
		hook()
	}
	return out, nil
}

func (s *fakeStore) UpsertEntry(_ context.Context, rec repo.EntryRecord) (repo.EntryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts = append(s.upserts, rec)
	if s.upErr != nil {
		return repo.EntryRecord{}, s.upErr
	}
	s.rows[rec.ID] = rec
	return rec, nil
}

func (s *fakeStore) DeleteEntry(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes = append(s.deletes, id)
	if s.delErr != nil {
		return s.delErr
	}
	delete(s.rows, id)
	return nil
}

func (s *fakeStore) upsertCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.upserts)
}

// ---------- reflection generator ----------

type fakeGen struct {
	available bool
	text      string
	err       error
	calls     []ReflectionRequest
	hook      func()
}

func (g *fakeGen) Available() bool { return g.available }

func (g *fakeGen) Generate(_ context.Context, req ReflectionRequest) (string, error) {
	g.calls = append(g.calls, req)
	if g.hook != nil {
		g.hook()
	}
	if g.err != nil {
		return "", g.err
	}
	return g.text, nil
}

// ---------- notices ----------

type noticeLog struct {
	mu  sync.Mutex
	got []Notice
}

func (n *noticeLog) Notify(x Notice) {
	n.mu.Lock()
	n.got = append(n.got, x)
	n.mu.Unlock()
}

func (n *noticeLog) messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.got))
	for _, x := range n.got {
		out = append(out, x.Message)
	}
	return out
}

var errBoom = errors.New("boom")

func confirmAlways(answer bool) Confirmer {
	return ConfirmerFunc(func(context.Context, string) bool { return answer })
}

// fixedClock returns a clock that yields t and can be advanced.
type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}
