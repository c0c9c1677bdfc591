package handler

import (
	"net/http"

	"github.com/notifyhub/cogbot/internal/repository"
	"github.com/notifyhub/cogbot/internal/session"
)

// MetricsHandler serves a human-readable JSON snapshot.
// Raw Prometheus metrics (counters, histograms) are available at /metrics
// via promhttp.Handler and are separate from this endpoint.
type MetricsHandler struct {
	registry *session.Registry
	repo     repository.ReminderRepository
}

func NewMetricsHandler(registry *session.Registry, repo repository.ReminderRepository) *MetricsHandler {
	return &MetricsHandler{registry: registry, repo: repo}
}

// GetMetrics handles GET /api/v1/metrics
//
// @Summary  Live sessions and pending reminders
// @Tags     metrics
// @Produce  json
// @Success  200  {object}  map[string]any
// @Router   /api/v1/metrics [get]
func (h *MetricsHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	pending, err := h.repo.ListPending(r.Context(), "")
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"sessions_active":   h.registry.Active(),
		"reminders_pending": len(pending),
	})
}
