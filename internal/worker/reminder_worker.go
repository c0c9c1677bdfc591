package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/notifyhub/cogbot/internal/domain"
	"github.com/notifyhub/cogbot/internal/provider"
	"github.com/notifyhub/cogbot/internal/ratelimiter"
	"github.com/notifyhub/cogbot/internal/repository"
)

// ReminderHooks carries the metric callbacks injected by main. Nil fields
// are no-ops.
type ReminderHooks struct {
	OnTick       func(elapsed time.Duration, pending int, err error)
	OnDispatched func(err error)
}

// ReminderWorker is the reconciliation loop: on every tick it claims the
// reminders that are due and notifies their owners.
//
// Due reminders are removed from the store before anyone is notified, and
// only the reminders this tick actually removed are delivered. A reminder is
// therefore delivered at most once even if a tick overlaps with another
// process scanning the same store, and a failed removal delivers nothing.
// Delivery failures are logged and dropped, never retried.
type ReminderWorker struct {
	repo        repository.ReminderRepository
	notifier    provider.Notifier
	limiter     *ratelimiter.RouteLimiters
	interval    time.Duration
	concurrency int
	logger      *zap.Logger
	hooks       ReminderHooks

	now func() time.Time
}

func NewReminderWorker(
	repo repository.ReminderRepository,
	notifier provider.Notifier,
	limiter *ratelimiter.RouteLimiters,
	interval time.Duration,
	concurrency int,
	logger *zap.Logger,
	hooks ReminderHooks,
) *ReminderWorker {
	if concurrency < 1 {
		concurrency = 1
	}
	if hooks.OnTick == nil {
		hooks.OnTick = func(time.Duration, int, error) {}
	}
	if hooks.OnDispatched == nil {
		hooks.OnDispatched = func(error) {}
	}
	return &ReminderWorker{
		repo:        repo,
		notifier:    notifier,
		limiter:     limiter,
		interval:    interval,
		concurrency: concurrency,
		logger:      logger,
		hooks:       hooks,
		now:         time.Now,
	}
}

// Run ticks once immediately and then every interval until ctx is
// cancelled. A failed tick never stops the loop.
func (w *ReminderWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("reminder worker started", zap.Duration("interval", w.interval))
	w.Tick(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("reminder worker stopping")
			return
		case <-ticker.C:
			w.Tick(ctx)
		}
	}
}

// Tick runs one reconciliation pass and returns how many reminders were
// claimed.
func (w *ReminderWorker) Tick(ctx context.Context) int {
	start := time.Now()
	now := w.now()

	pending, err := w.repo.ListPending(ctx, "")
	if err != nil {
		w.logger.Error("reminder scan failed", zap.Error(err))
		w.hooks.OnTick(time.Since(start), 0, err)
		return 0
	}

	var due []string
	byID := make(map[string]*domain.Reminder, len(pending))
	for _, r := range pending {
		if r.Due(now) {
			due = append(due, r.ID)
			byID[r.ID] = r
		}
	}
	if len(due) == 0 {
		w.hooks.OnTick(time.Since(start), len(pending), nil)
		return 0
	}

	claimed, err := w.repo.Remove(ctx, due...)
	if err != nil {
		w.logger.Error("reminder claim failed", zap.Int("due", len(due)), zap.Error(err))
		w.hooks.OnTick(time.Since(start), len(pending), err)
		return 0
	}

	// in-flight deliveries finish even if ctx is cancelled
	sendCtx := context.WithoutCancel(ctx)

	var g errgroup.Group
	g.SetLimit(w.concurrency)
	for _, id := range claimed {
		r := byID[id]
		g.Go(func() error {
			w.dispatch(sendCtx, r)
			return nil
		})
	}
	_ = g.Wait()

	w.hooks.OnTick(time.Since(start), len(pending)-len(claimed), nil)
	w.logger.Info("reminders dispatched",
		zap.Int("due", len(due)),
		zap.Int("claimed", len(claimed)),
	)
	return len(claimed)
}

func (w *ReminderWorker) dispatch(ctx context.Context, r *domain.Reminder) {
	log := w.logger.With(
		zap.String("reminder_id", r.ID),
		zap.String("owner_id", r.OwnerID),
	)

	if err := w.limiter.Wait(ctx, ratelimiter.RouteNotify); err != nil {
		log.Warn("reminder dropped while rate limited", zap.Error(err))
		w.hooks.OnDispatched(err)
		return
	}

	err := w.notifier.Notify(ctx, r.OwnerID, r.Text())
	w.hooks.OnDispatched(err)
	if err != nil {
		log.Warn("reminder delivery failed; dropped", zap.Error(err))
		return
	}
	log.Debug("reminder delivered", zap.Duration("late_by", w.now().Sub(r.FireAt)))
}
