package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/notifyhub/cogbot/internal/domain"
	"github.com/notifyhub/cogbot/internal/session"
	"github.com/notifyhub/cogbot/internal/worker"
)

// Result label values.
const (
	ResultOK     = "ok"
	ResultFailed = "failed"
)

// Metrics groups all Prometheus instruments used across the application.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	RemindersDispatched *prometheus.CounterVec
	ReminderTick        prometheus.Histogram
	ReminderTickErrors  prometheus.Counter
	RemindersPending    prometheus.Gauge
	SessionsActive      prometheus.Gauge
	SessionsClosed      *prometheus.CounterVec
	TracksPlayed        *prometheus.CounterVec
}

// New registers all instruments with the given Prometheus registerer and
// returns the populated Metrics struct.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RemindersDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reminders_dispatched_total",
			Help: "Reminders claimed from the store and handed to the notifier, by delivery result.",
		}, []string{"result"}),

		ReminderTick: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "reminder_tick_seconds",
			Help:    "Duration of one reconciliation pass over the reminder store.",
			Buckets: prometheus.DefBuckets,
		}),

		ReminderTickErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reminder_tick_errors_total",
			Help: "Reconciliation passes aborted by a store error.",
		}),

		RemindersPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "reminders_pending",
			Help: "Reminders left in the store after the last reconciliation pass.",
		}),

		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sessions_active",
			Help: "Live voice sessions holding a connection.",
		}),

		SessionsClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sessions_closed_total",
			Help: "Voice sessions torn down, by reason.",
		}, []string{"reason"}),

		TracksPlayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tracks_played_total",
			Help: "Tracks that finished playing, by source and result.",
		}, []string{"source", "result"}),
	}

	reg.MustRegister(
		m.RemindersDispatched,
		m.ReminderTick,
		m.ReminderTickErrors,
		m.RemindersPending,
		m.SessionsActive,
		m.SessionsClosed,
		m.TracksPlayed,
	)

	return m
}

// ReminderHooks returns the callbacks expected by worker.ReminderWorker.
func (m *Metrics) ReminderHooks() worker.ReminderHooks {
	return worker.ReminderHooks{
		OnTick: func(elapsed time.Duration, pending int, err error) {
			m.ReminderTick.Observe(elapsed.Seconds())
			if err != nil {
				m.ReminderTickErrors.Inc()
				return
			}
			m.RemindersPending.Set(float64(pending))
		},
		OnDispatched: func(err error) {
			m.RemindersDispatched.WithLabelValues(result(err)).Inc()
		},
	}
}

// SessionHooks returns the callbacks expected by session.Registry.
func (m *Metrics) SessionHooks() session.Hooks {
	return session.Hooks{
		OnOpened: func() { m.SessionsActive.Inc() },
		OnClosed: func(reason string) {
			m.SessionsActive.Dec()
			m.SessionsClosed.WithLabelValues(reason).Inc()
		},
		OnFinished: func(source domain.Source, err error) {
			m.TracksPlayed.WithLabelValues(string(source), result(err)).Inc()
		},
	}
}

func result(err error) string {
	if err != nil {
		return ResultFailed
	}
	return ResultOK
}
