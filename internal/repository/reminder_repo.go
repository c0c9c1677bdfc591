package repository

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/notifyhub/cogbot/internal/domain"
)

// ReminderRepository is the due-item store shared by producers (the reminder
// service) and the single reconciliation consumer (worker.ReminderWorker).
//
// Implementations must make Put and Remove atomic with respect to each other:
// two concurrent Puts both land, and a Remove racing a Put never drops the
// newly inserted reminder.
//
// Implementations: memory (tests, single-process), PostgreSQL, BoltDB, Redis.
type ReminderRepository interface {
	// Put stores r, assigning a time-ordered ID when r.ID is empty, and
	// returns the ID. Storage errors are returned to the caller.
	Put(ctx context.Context, r *domain.Reminder) (string, error)

	// Get returns a single reminder or domain.ErrNotFound.
	Get(ctx context.Context, id string) (*domain.Reminder, error)

	// ListPending returns a snapshot of stored reminders ordered by FireAt.
	// An empty ownerID returns every owner's reminders.
	ListPending(ctx context.Context, ownerID string) ([]*domain.Reminder, error)

	// Remove deletes the given IDs in one atomic step and reports which of
	// them were present. Absent IDs are ignored, so Remove is idempotent.
	Remove(ctx context.Context, ids ...string) ([]string, error)
}

// NewID returns a unique, creation-ordered reminder ID.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

func sortByFireAt(rs []*domain.Reminder) {
	sort.SliceStable(rs, func(i, j int) bool {
		if rs[i].FireAt.Equal(rs[j].FireAt) {
			return rs[i].ID < rs[j].ID
		}
		return rs[i].FireAt.Before(rs[j].FireAt)
	})
}
