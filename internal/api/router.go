package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/notifyhub/cogbot/internal/api/handler"
	apimw "github.com/notifyhub/cogbot/internal/api/middleware"
	"github.com/notifyhub/cogbot/internal/domain"
	"github.com/notifyhub/cogbot/internal/repository"
	"github.com/notifyhub/cogbot/internal/service"
	"github.com/notifyhub/cogbot/internal/session"
)

// Services bundles what the HTTP surface calls into.
type Services struct {
	Reminders *service.ReminderService
	Music     *service.MusicService
	Chat      *service.ChatService
	Registry  *session.Registry
	Repo      repository.ReminderRepository
}

// NewRouter wires the chi router, attaches all middleware, and registers
// every route. It is the single source of truth for the HTTP surface area.
func NewRouter(svc Services, reg prometheus.Gatherer, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- global middleware (applied to every route) ---
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(chimw.RequestSize(1 << 20))
	r.Use(apimw.CorrelationID)
	r.Use(apimw.RequestLogger(logger))

	// --- handler instances ---
	rh := handler.NewReminderHandler(svc.Reminders, logger)
	sh := handler.NewSessionHandler(svc.Music, logger)
	mh := handler.NewMetricsHandler(svc.Registry, svc.Repo)
	hh := handler.NewHealthHandler(storeCheck(svc.Repo))

	// --- routes ---
	r.Get("/health", hh.Health)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/reminders", rh.Create)
		r.Get("/reminders", rh.List)
		r.Delete("/reminders/{id}", rh.Cancel)

		r.Route("/sessions/{key}", func(r chi.Router) {
			r.Post("/tracks", sh.Play)
			r.Post("/speech", sh.Speak)
			r.Get("/queue", sh.Queue)
			r.Post("/skip", sh.Skip)
			r.Post("/pause", sh.Pause)
			r.Post("/resume", sh.Resume)
			r.Put("/volume", sh.Volume)
			r.Delete("/", sh.Stop)
		})

		// chat is optional: without an API key the route is not mounted
		if svc.Chat != nil {
			ch := handler.NewChatHandler(svc.Chat, logger)
			r.Post("/chat", ch.Chat)
		}

		r.Get("/metrics", mh.GetMetrics)
	})

	return r
}

// storeCheck probes the reminder store with a lookup that is expected to
// miss.
func storeCheck(repo repository.ReminderRepository) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		_, err := repo.Get(ctx, "health-probe")
		if err == nil || errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
}
