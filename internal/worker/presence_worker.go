package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/cogbot/internal/provider"
)

// PresenceWorker cycles the bot's status through a fixed list.
type PresenceWorker struct {
	setter   provider.PresenceSetter
	statuses []string
	interval time.Duration
	logger   *zap.Logger
	next     int
}

func NewPresenceWorker(
	setter provider.PresenceSetter,
	statuses []string,
	interval time.Duration,
	logger *zap.Logger,
) *PresenceWorker {
	return &PresenceWorker{setter: setter, statuses: statuses, interval: interval, logger: logger}
}

// Run sets the first status immediately and advances every interval.
func (w *PresenceWorker) Run(ctx context.Context) {
	if len(w.statuses) == 0 {
		return
	}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.advance(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.advance(ctx)
		}
	}
}

func (w *PresenceWorker) advance(ctx context.Context) {
	status := w.statuses[w.next]
	w.next = (w.next + 1) % len(w.statuses)

	if err := w.setter.SetPresence(ctx, status); err != nil && ctx.Err() == nil {
		w.logger.Warn("presence update failed", zap.String("status", status), zap.Error(err))
	}
}
