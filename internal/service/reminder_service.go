package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/cogbot/internal/domain"
	"github.com/notifyhub/cogbot/internal/repository"
)

// ReminderService is the producer side of the reminder store. The
// reconciliation loop (worker.ReminderWorker) is the only consumer.
type ReminderService struct {
	repo   repository.ReminderRepository
	logger *zap.Logger
	now    func() time.Time
}

func NewReminderService(repo repository.ReminderRepository, logger *zap.Logger) *ReminderService {
	return &ReminderService{repo: repo, logger: logger, now: time.Now}
}

// Create validates req and stores a reminder firing req.In from now.
// Storage errors are returned to the caller.
func (s *ReminderService) Create(ctx context.Context, req domain.CreateReminderRequest) (*domain.Reminder, error) {
	delay, err := req.Validate()
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	r := &domain.Reminder{
		OwnerID:   req.OwnerID,
		Message:   strings.TrimSpace(req.Message),
		FireAt:    now.Add(delay),
		CreatedAt: now,
	}
	if _, err := s.repo.Put(ctx, r); err != nil {
		return nil, fmt.Errorf("persist reminder: %w", err)
	}

	s.logger.Info("reminder created",
		zap.String("reminder_id", r.ID),
		zap.String("owner_id", r.OwnerID),
		zap.Time("fire_at", r.FireAt),
	)
	return r, nil
}

// List returns the owner's pending reminders, soonest first.
func (s *ReminderService) List(ctx context.Context, ownerID string) ([]domain.ReminderView, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, domain.ErrInvalidOwner
	}
	rs, err := s.repo.ListPending(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}

	now := s.now()
	views := make([]domain.ReminderView, 0, len(rs))
	for _, r := range rs {
		views = append(views, domain.ReminderView{
			Reminder: r,
			TimeLeft: domain.FormatDuration(r.TimeLeft(now)),
		})
	}
	return views, nil
}

// Cancel removes one of the owner's pending reminders. Reminders that
// already fired, or belong to someone else, are reported as not found.
func (s *ReminderService) Cancel(ctx context.Context, ownerID, id string) error {
	r, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("get reminder: %w", err)
	}
	if r.OwnerID != ownerID {
		return domain.ErrNotFound
	}

	removed, err := s.repo.Remove(ctx, id)
	if err != nil {
		return fmt.Errorf("remove reminder: %w", err)
	}
	if len(removed) == 0 {
		// dispatched between Get and Remove
		return domain.ErrNotFound
	}
	s.logger.Info("reminder cancelled", zap.String("reminder_id", id), zap.String("owner_id", ownerID))
	return nil
}
