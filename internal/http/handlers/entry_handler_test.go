package handlers

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/tbourn/go-journal/internal/repo"
)

const (
	idA = "11111111-1111-4111-8111-111111111111"
	idB = "22222222-2222-4222-8222-222222222222"
)

func entry(id, owner string, created time.Time) repo.EntryRecord {
	return repo.EntryRecord{ID: id, UserID: owner, Title: "t", Content: "c", Mood: "calm", Tags: []string{}, CreatedAt: created, UpdatedAt: created}
}

func TestListEntries_OwnerScopedNewestFirst(t *testing.T) {
	a := newFakeAuth("u1", "u2")
	store := newFakeEntries(entry(idA, "u1", t0), entry(idB, "u1", t0.Add(time.Hour)), entry("x", "u2", t0))
	r := newTestRouter(New(a, store, nil), a)

	w := do(t, r, http.MethodGet, "/entries", "tok-u1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	got := decode[EntriesResponse](t, w).Entries
	if len(got) != 2 || got[0].ID != idB || got[1].ID != idA {
		t.Fatalf("unexpected entries: %+v", got)
	}

	w = do(t, r, http.MethodGet, "/entries", "tok-u2", nil)
	if got := decode[EntriesResponse](t, w).Entries; len(got) != 1 || got[0].ID != "x" {
		t.Fatalf("u2 saw: %+v", got)
	}
}

func TestListEntries_EmptyIsArray(t *testing.T) {
	a := newFakeAuth("u1")
	r := newTestRouter(New(a, newFakeEntries(), nil), a)
	w := do(t, r, http.MethodGet, "/entries", "tok-u1", nil)
	if w.Body.String() != `{"entries":[]}` {
		t.Fatalf("body=%s", w.Body.String())
	}
}

func TestListEntries_ETag(t *testing.T) {
	a := newFakeAuth("u1")
	store := newFakeEntries(entry(idA, "u1", t0))
	r := newTestRouter(New(a, store, nil), a)

	w := do(t, r, http.MethodGet, "/entries", "tok-u1", nil)
	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatal("missing ETag")
	}
	w = do(t, r, http.MethodGet, "/entries", "tok-u1", nil, "If-None-Match", etag)
	if w.Code != http.StatusNotModified || store.lists != 1 {
		t.Fatalf("want 304 without listing, got %d lists=%d", w.Code, store.lists)
	}

	// a write changes the tag
	do(t, r, http.MethodPut, "/entries/"+idB, "tok-u1", entry(idB, "", t0))
	w = do(t, r, http.MethodGet, "/entries", "tok-u1", nil, "If-None-Match", etag)
	if w.Code != http.StatusOK || w.Header().Get("ETag") == etag {
		t.Fatalf("stale ETag honoured: %d", w.Code)
	}

	// stats failure falls back to a plain listing
	store.statsErr = errors.New("boom")
	w = do(t, r, http.MethodGet, "/entries", "tok-u1", nil, "If-None-Match", etag)
	if w.Code != http.StatusOK || w.Header().Get("ETag") != "" {
		t.Fatalf("stats failure: %d etag=%q", w.Code, w.Header().Get("ETag"))
	}
}

func TestListEntries_Failure(t *testing.T) {
	a := newFakeAuth("u1")
	store := newFakeEntries()
	store.err = errors.New("db down")
	r := newTestRouter(New(a, store, nil), a)
	w := do(t, r, http.MethodGet, "/entries", "tok-u1", nil)
	if w.Code != http.StatusInternalServerError || errCode(t, w) != ErrCodeListFailed {
		t.Fatalf("got %d %s", w.Code, w.Body.String())
	}
}

func TestEntries_RequireAuth(t *testing.T) {
	a := newFakeAuth("u1")
	r := newTestRouter(New(a, newFakeEntries(), nil), a)
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/entries"},
		{http.MethodPut, "/entries/" + idA},
		{http.MethodDelete, "/entries/" + idA},
		{http.MethodPost, "/reflections"},
	} {
		if w := do(t, r, tc.method, tc.path, "tok-bogus", nil); w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: %d", tc.method, tc.path, w.Code)
		}
	}
}

func TestUpsertEntry_CreateReplaceAndOwnerFromSession(t *testing.T) {
	a := newFakeAuth("u1")
	store := newFakeEntries()
	r := newTestRouter(New(a, store, nil), a)

	body := entry(idA, "someone-else", t0)
	body.Mood = " Happy "
	w := do(t, r, http.MethodPut, "/entries/"+idA, "tok-u1", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	saved := decode[repo.EntryRecord](t, w)
	if saved.UserID != "u1" || saved.Mood != "happy" || saved.ID != idA {
		t.Fatalf("unexpected saved record: %+v", saved)
	}

	// id taken from the path when omitted; empty reflection cleared
	body = entry("", "", t0)
	body.Title = "new title"
	empty := ""
	body.AIReflection = &empty
	body.Mood = ""
	w = do(t, r, http.MethodPut, "/entries/"+idA, "tok-u1", body)
	saved = decode[repo.EntryRecord](t, w)
	if w.Code != http.StatusOK || saved.Title != "new title" || saved.AIReflection != nil || saved.Mood != "neutral" {
		t.Fatalf("replace: %d %+v", w.Code, saved)
	}
	if len(store.rows) != 1 {
		t.Fatalf("replace created a second row: %d", len(store.rows))
	}
}

func TestUpsertEntry_Validation(t *testing.T) {
	a := newFakeAuth("u1")
	r := newTestRouter(New(a, newFakeEntries(), nil), a)

	blankTitle := entry(idA, "", t0)
	blankTitle.Title = "  "
	blankContent := entry(idA, "", t0)
	blankContent.Content = ""
	badMood := entry(idA, "", t0)
	badMood.Mood = "grumpy"

	cases := []struct {
		name string
		path string
		body any
	}{
		{"non uuid path", "/entries/not-a-uuid", entry("", "", t0)},
		{"bad json", "/entries/" + idA, "{"},
		{"id mismatch", "/entries/" + idA, entry(idB, "", t0)},
		{"blank title", "/entries/" + idA, blankTitle},
		{"blank content", "/entries/" + idA, blankContent},
		{"bad mood", "/entries/" + idA, badMood},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(t, r, http.MethodPut, tc.path, "tok-u1", tc.body)
			if w.Code != http.StatusBadRequest || errCode(t, w) != ErrCodeBadRequest {
				t.Fatalf("got %d %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestUpsertEntry_OtherOwnerIsNotFound(t *testing.T) {
	a := newFakeAuth("u1", "u2")
	store := newFakeEntries(entry(idA, "u2", t0))
	r := newTestRouter(New(a, store, nil), a)

	w := do(t, r, http.MethodPut, "/entries/"+idA, "tok-u1", entry(idA, "", t0))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d", w.Code)
	}
	if store.rows[idA].UserID != "u2" {
		t.Fatal("foreign entry was overwritten")
	}
}

func TestUpsertEntry_StoreFailure(t *testing.T) {
	a := newFakeAuth("u1")
	store := newFakeEntries()
	store.err = errors.New("disk full")
	r := newTestRouter(New(a, store, nil), a)
	w := do(t, r, http.MethodPut, "/entries/"+idA, "tok-u1", entry(idA, "", t0))
	if w.Code != http.StatusInternalServerError || errCode(t, w) != ErrCodeSaveFailed {
		t.Fatalf("got %d %s", w.Code, w.Body.String())
	}
}

func TestDeleteEntry(t *testing.T) {
	a := newFakeAuth("u1", "u2")
	store := newFakeEntries(entry(idA, "u1", t0), entry(idB, "u2", t0))
	r := newTestRouter(New(a, store, nil), a)

	for i := 0; i < 2; i++ {
		if w := do(t, r, http.MethodDelete, "/entries/"+idA, "tok-u1", nil); w.Code != http.StatusNoContent {
			t.Fatalf("delete #%d: %d", i, w.Code)
		}
	}
	if _, ok := store.rows[idA]; ok {
		t.Fatal("entry not deleted")
	}
	do(t, r, http.MethodDelete, "/entries/"+idB, "tok-u1", nil)
	if _, ok := store.rows[idB]; !ok {
		t.Fatal("deleted another user's entry")
	}

	store.err = errors.New("db down")
	w := do(t, r, http.MethodDelete, "/entries/"+idB, "tok-u2", nil)
	if w.Code != http.StatusInternalServerError || errCode(t, w) != ErrCodeDeleteFailed {
		t.Fatalf("got %d %s", w.Code, w.Body.String())
	}
}
