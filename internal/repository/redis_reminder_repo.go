package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	r "github.com/redis/go-redis/v9"

	"github.com/notifyhub/cogbot/internal/domain"
)

// RedisReminderRepository stores reminders in two keys:
//
//	<prefix>reminders       HASH  id -> JSON reminder
//	<prefix>reminders:due   ZSET  id scored by fire_at (unix ms)
//
// Both keys are always written in one MULTI/EXEC transaction.
type RedisReminderRepository struct {
	rdb     *r.Client
	hashKey string
	dueKey  string
}

func NewRedisReminderRepository(rdb *r.Client, prefix string) *RedisReminderRepository {
	return &RedisReminderRepository{
		rdb:     rdb,
		hashKey: prefix + "reminders",
		dueKey:  prefix + "reminders:due",
	}
}

func (q *RedisReminderRepository) Put(ctx context.Context, rem *domain.Reminder) (string, error) {
	if rem.ID == "" {
		rem.ID = NewID()
	}
	data, err := json.Marshal(rem)
	if err != nil {
		return "", fmt.Errorf("marshal reminder: %w", err)
	}

	pipe := q.rdb.TxPipeline()
	pipe.HSet(ctx, q.hashKey, rem.ID, data)
	pipe.ZAdd(ctx, q.dueKey, r.Z{Score: float64(rem.FireAt.UnixMilli()), Member: rem.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("put reminder: %w", err)
	}
	return rem.ID, nil
}

func (q *RedisReminderRepository) Get(ctx context.Context, id string) (*domain.Reminder, error) {
	data, err := q.rdb.HGet(ctx, q.hashKey, id).Bytes()
	if errors.Is(err, r.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get reminder: %w", err)
	}
	return unmarshalReminder(data)
}

func (q *RedisReminderRepository) ListPending(ctx context.Context, ownerID string) ([]*domain.Reminder, error) {
	ids, err := q.rdb.ZRange(ctx, q.dueKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list reminder ids: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	values, err := q.rdb.HMGet(ctx, q.hashKey, ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}

	result := make([]*domain.Reminder, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			// removed between ZRANGE and HMGET
			continue
		}
		rem, err := unmarshalReminder([]byte(s))
		if err != nil {
			return nil, err
		}
		if ownerID == "" || rem.OwnerID == ownerID {
			result = append(result, rem)
		}
	}
	sortByFireAt(result)
	return result, nil
}

func (q *RedisReminderRepository) Remove(ctx context.Context, ids ...string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	pipe := q.rdb.TxPipeline()
	dels := make([]*r.IntCmd, len(ids))
	for i, id := range ids {
		dels[i] = pipe.HDel(ctx, q.hashKey, id)
		pipe.ZRem(ctx, q.dueKey, id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("remove reminders: %w", err)
	}

	var removed []string
	for i, cmd := range dels {
		if cmd.Val() > 0 {
			removed = append(removed, ids[i])
		}
	}
	return removed, nil
}

var _ ReminderRepository = (*RedisReminderRepository)(nil)
