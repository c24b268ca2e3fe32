// Package services – EntryRepository
//
// EntryRepository is the translation layer between the application's entry
// shape (domain.JournalEntry) and the backend's persisted record shape
// (repo.EntryRecord). It owns no business logic beyond mapping, ordering and
// wrapping store failures in *BackendError.
//
// Observability: every method is OpenTelemetry-instrumented.

package services

import (
	"context"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-journal/internal/domain"
)

// EntryRepository delegates to an EntryStore and maps records both ways.
type EntryRepository struct {
	Store EntryStore
}

// NewEntryRepository returns a repository over store.
func NewEntryRepository(store EntryStore) *EntryRepository {
	return &EntryRepository{Store: store}
}

// List returns every entry owned by userID, newest-created first.
func (r *EntryRepository) List(ctx context.Context, userID string) ([]domain.JournalEntry, error) {
	tr := otel.Tracer("services/EntryRepository")
	ctx, span := tr.Start(ctx, "List",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	recs, err := r.Store.ListEntries(ctx, userID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, &BackendError{Op: "list", Err: err}
	}

	out := make([]domain.JournalEntry, 0, len(recs))
	for _, rec := range recs {
		out = append(out, FromRecord(rec))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	span.SetAttributes(attribute.Int("entries.count", len(out)))
	return out, nil
}

// Upsert creates or replaces e by id and returns the backend's stored form.
func (r *EntryRepository) Upsert(ctx context.Context, e domain.JournalEntry) (domain.JournalEntry, error) {
	tr := otel.Tracer("services/EntryRepository")
	ctx, span := tr.Start(ctx, "Upsert",
		trace.WithAttributes(
			attribute.String("entry.id", e.ID),
			attribute.String("user.id", e.UserID),
		),
	)
	defer span.End()

	stored, err := r.Store.UpsertEntry(ctx, ToRecord(e))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return domain.JournalEntry{}, &BackendError{Op: "upsert", Err: err}
	}
	return FromRecord(stored), nil
}

// Delete removes the entry with the given id. Unknown ids are not an error.
func (r *EntryRepository) Delete(ctx context.Context, id string) error {
	tr := otel.Tracer("services/EntryRepository")
	ctx, span := tr.Start(ctx, "Delete",
		trace.WithAttributes(attribute.String("entry.id", id)),
	)
	defer span.End()

	if err := r.Store.DeleteEntry(ctx, id); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return &BackendError{Op: "delete", Err: err}
	}
	return nil
}
