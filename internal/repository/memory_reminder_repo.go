package repository

import (
	"context"
	"sync"

	"github.com/notifyhub/cogbot/internal/domain"
)

// MemoryReminderRepository is an in-memory ReminderRepository. It backs
// STORE_DRIVER=memory and is the repository used in unit tests.
type MemoryReminderRepository struct {
	mu        sync.RWMutex
	reminders map[string]*domain.Reminder

	// Optional error overrides, set in tests to simulate storage failures.
	PutErr    error
	ListErr   error
	RemoveErr error
}

func NewMemoryReminderRepository() *MemoryReminderRepository {
	return &MemoryReminderRepository{reminders: make(map[string]*domain.Reminder)}
}

func (m *MemoryReminderRepository) Put(_ context.Context, r *domain.Reminder) (string, error) {
	if m.PutErr != nil {
		return "", m.PutErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == "" {
		r.ID = NewID()
	}
	clone := *r
	m.reminders[r.ID] = &clone
	return r.ID, nil
}

func (m *MemoryReminderRepository) Get(_ context.Context, id string) (*domain.Reminder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.reminders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *r
	return &clone, nil
}

func (m *MemoryReminderRepository) ListPending(_ context.Context, ownerID string) ([]*domain.Reminder, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Reminder, 0, len(m.reminders))
	for _, r := range m.reminders {
		if ownerID != "" && r.OwnerID != ownerID {
			continue
		}
		clone := *r
		result = append(result, &clone)
	}
	sortByFireAt(result)
	return result, nil
}

func (m *MemoryReminderRepository) Remove(_ context.Context, ids ...string) ([]string, error) {
	if m.RemoveErr != nil {
		return nil, m.RemoveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed []string
	for _, id := range ids {
		if _, ok := m.reminders[id]; ok {
			delete(m.reminders, id)
			removed = append(removed, id)
		}
	}
	return removed, nil
}

// Len returns the number of stored reminders.
func (m *MemoryReminderRepository) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.reminders)
}

var _ ReminderRepository = (*MemoryReminderRepository)(nil)
