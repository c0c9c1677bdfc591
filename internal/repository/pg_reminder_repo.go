package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/notifyhub/cogbot/internal/domain"
)

type pgReminderRepository struct {
	pool *pgxpool.Pool
}

// NewPgReminderRepository returns a ReminderRepository backed by PostgreSQL.
// The schema is created by db.Migrate.
func NewPgReminderRepository(pool *pgxpool.Pool) ReminderRepository {
	return &pgReminderRepository{pool: pool}
}

func (r *pgReminderRepository) Put(ctx context.Context, rem *domain.Reminder) (string, error) {
	if rem.ID == "" {
		rem.ID = NewID()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO reminders (id, owner_id, message, fire_at, created_at)
		VALUES ($1,$2,$3,$4,$5)`,
		rem.ID, rem.OwnerID, rem.Message, rem.FireAt, rem.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("insert reminder: %w", err)
	}
	return rem.ID, nil
}

func (r *pgReminderRepository) Get(ctx context.Context, id string) (*domain.Reminder, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, owner_id, message, fire_at, created_at
		FROM reminders WHERE id = $1`, id)

	rem, err := scanReminder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get reminder: %w", err)
	}
	return rem, nil
}

func (r *pgReminderRepository) ListPending(ctx context.Context, ownerID string) ([]*domain.Reminder, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, owner_id, message, fire_at, created_at
		FROM reminders
		WHERE $1 = '' OR owner_id = $1
		ORDER BY fire_at ASC, id ASC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	defer rows.Close()

	var result []*domain.Reminder
	for rows.Next() {
		rem, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rem)
	}
	return result, rows.Err()
}

// Remove deletes in a single statement; RETURNING reports only the rows this
// call actually deleted, so concurrent removers never both claim an ID.
func (r *pgReminderRepository) Remove(ctx context.Context, ids ...string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx,
		`DELETE FROM reminders WHERE id = ANY($1) RETURNING id`, ids)
	if err != nil {
		return nil, fmt.Errorf("remove reminders: %w", err)
	}
	removed, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("remove reminders: %w", err)
	}
	return removed, nil
}

func scanReminder(row pgx.Row) (*domain.Reminder, error) {
	var rem domain.Reminder
	if err := row.Scan(&rem.ID, &rem.OwnerID, &rem.Message, &rem.FireAt, &rem.CreatedAt); err != nil {
		return nil, err
	}
	return &rem, nil
}
