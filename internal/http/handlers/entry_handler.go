package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-journal/internal/domain"
	"github.com/tbourn/go-journal/internal/http/middleware"
	"github.com/tbourn/go-journal/internal/repo"
)

// ListEntries godoc
// @ID          listEntries
// @Summary     List entries
// @Description Returns every entry of the current user, newest created first. Supports a weak ETag via If-None-Match.
// @Tags        Entries
// @Security    BearerAuth
// @Produce     json
// @Param       If-None-Match  header  string  false  "Return 304 if the ETag matches"
// @Success     200  {object}  handlers.EntriesResponse
// @Header      200  {string}  ETag  "Weak ETag of the current list"
// @Success     304  {string}  string  "Not Modified"
// @Failure     401  {object}  handlers.ErrorResponse  "Not signed in"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /entries [get]
func (h *Handlers) ListEntries(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)

	// best effort: a stats failure just skips the conditional response
	if count, last, err := h.entries.Stats(ctx, uid); err == nil {
		var ts int64
		if last != nil {
			ts = last.UnixNano()
		}
		etag := fmt.Sprintf(`W/"entries:%s:%d:%d"`, uid, count, ts)
		c.Header("ETag", etag)
		if c.GetHeader("If-None-Match") == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	items, err := h.entries.List(ctx, uid)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "failed to load entries", err)
		return
	}
	ok(c, http.StatusOK, EntriesResponse{Entries: items})
}

// UpsertEntry godoc
// @ID          upsertEntry
// @Summary     Create or replace an entry
// @Description Stores the entry under the given id for the current user. The owner is taken from the session, never from the body.
// @Tags        Entries
// @Security    BearerAuth
// @Accept      json
// @Produce     json
// @Param       id    path      string            true  "Entry ID (UUID)"  format(uuid)
// @Param       body  body      repo.EntryRecord  true  "Entry"
// @Success     200   {object}  repo.EntryRecord
// @Failure     400   {object}  handlers.ErrorResponse  "Invalid entry"
// @Failure     401   {object}  handlers.ErrorResponse  "Not signed in"
// @Failure     404   {object}  handlers.ErrorResponse  "Entry belongs to another user"
// @Failure     500   {object}  handlers.ErrorResponse  "Internal error"
// @Router      /entries/{id} [put]
func (h *Handlers) UpsertEntry(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "entry id must be a UUID")
		return
	}
	var rec repo.EntryRecord
	if err := c.ShouldBindJSON(&rec); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if msg := normalizeEntry(&rec, id); msg != "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, msg)
		return
	}
	rec.UserID = userID(c)

	saved, err := h.entries.Upsert(c.Request.Context(), rec)
	switch {
	case repo.IsNotFound(err):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "entry not found")
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeSaveFailed, "failed to save entry", err)
		return
	}
	middleware.LoggerFrom(c).Debug().Str("entry_id", saved.ID).Msg("entry saved")
	ok(c, http.StatusOK, saved)
}

// normalizeEntry validates rec against the path id and fills defaults. It
// returns a client-facing message when rec is rejected.
func normalizeEntry(rec *repo.EntryRecord, id string) string {
	switch {
	case rec.ID == "":
		rec.ID = id
	case rec.ID != id:
		return "entry id does not match the path"
	}
	if strings.TrimSpace(rec.Title) == "" || strings.TrimSpace(rec.Content) == "" {
		return "title and content are required"
	}
	if strings.TrimSpace(rec.Mood) == "" {
		rec.Mood = string(domain.DefaultMood)
	}
	m, err := domain.ParseMood(rec.Mood)
	if err != nil {
		return err.Error()
	}
	rec.Mood = string(m)
	if rec.AIReflection != nil && *rec.AIReflection == "" {
		rec.AIReflection = nil
	}
	return ""
}

// DeleteEntry godoc
// @ID          deleteEntry
// @Summary     Delete an entry
// @Description Deletes the entry if it exists and belongs to the current user. Deleting a missing entry succeeds.
// @Tags        Entries
// @Security    BearerAuth
// @Param       id  path  string  true  "Entry ID"
// @Success     204  {string}  string  "No Content"
// @Failure     401  {object}  handlers.ErrorResponse  "Not signed in"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /entries/{id} [delete]
func (h *Handlers) DeleteEntry(c *gin.Context) {
	err := h.entries.Delete(c.Request.Context(), c.Param("id"), userID(c))
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		fail(c, http.StatusInternalServerError, ErrCodeDeleteFailed, "failed to delete entry", err)
		return
	}
	noContent(c)
}
