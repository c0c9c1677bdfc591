package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/dogmatiq/linger"
	"go.etcd.io/bbolt"

	"github.com/notifyhub/cogbot/internal/domain"
)

// remindersBucketKey is the root bucket for reminders.
//
// The keys are reminder IDs (UUIDv7, so byte order is creation order). The
// values are domain.Reminder values marshaled as JSON.
var remindersBucketKey = []byte("reminders")

// BoltReminderRepository is a ReminderRepository stored in a single BoltDB
// file. Every mutation runs in one read-write transaction, which BoltDB
// serializes, so Put and Remove are atomic with respect to each other.
type BoltReminderRepository struct {
	db *bbolt.DB
}

// OpenBolt opens (creating if needed) the database at path.
//
// BoltDB holds an exclusive file lock; if ctx has a deadline, it bounds how
// long Open waits for that lock.
func OpenBolt(ctx context.Context, path string) (*BoltReminderRepository, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	opts := *bbolt.DefaultOptions
	if timeout, ok := linger.FromContextDeadline(ctx); ok {
		opts.Timeout = timeout
	}

	db, err := bbolt.Open(path, os.FileMode(0600), &opts)
	if err != nil {
		return nil, fmt.Errorf("open bolt database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(remindersBucketKey)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create reminders bucket: %w", err)
	}

	return &BoltReminderRepository{db: db}, nil
}

// Close releases the database file lock.
func (b *BoltReminderRepository) Close() error {
	return b.db.Close()
}

func (b *BoltReminderRepository) Put(_ context.Context, r *domain.Reminder) (string, error) {
	if r.ID == "" {
		r.ID = NewID()
	}
	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("marshal reminder: %w", err)
	}

	err = b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(remindersBucketKey).Put([]byte(r.ID), data)
	})
	if err != nil {
		return "", fmt.Errorf("put reminder: %w", err)
	}
	return r.ID, nil
}

func (b *BoltReminderRepository) Get(_ context.Context, id string) (*domain.Reminder, error) {
	var r *domain.Reminder
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(remindersBucketKey).Get([]byte(id))
		if data == nil {
			return domain.ErrNotFound
		}
		var err error
		r, err = unmarshalReminder(data)
		return err
	})
	return r, err
}

func (b *BoltReminderRepository) ListPending(_ context.Context, ownerID string) ([]*domain.Reminder, error) {
	var result []*domain.Reminder
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(remindersBucketKey).ForEach(func(_, v []byte) error {
			r, err := unmarshalReminder(v)
			if err != nil {
				return err
			}
			if ownerID == "" || r.OwnerID == ownerID {
				result = append(result, r)
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	sortByFireAt(result)
	return result, nil
}

func (b *BoltReminderRepository) Remove(_ context.Context, ids ...string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var removed []string
	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(remindersBucketKey)
		for _, id := range ids {
			k := []byte(id)
			if bucket.Get(k) == nil {
				continue
			}
			if err := bucket.Delete(k); err != nil {
				return err
			}
			removed = append(removed, id)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("remove reminders: %w", err)
	}
	return removed, nil
}

func unmarshalReminder(data []byte) (*domain.Reminder, error) {
	var r domain.Reminder
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("unmarshal reminder: %w", err)
	}
	return &r, nil
}

var _ ReminderRepository = (*BoltReminderRepository)(nil)
