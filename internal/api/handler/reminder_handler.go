package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apimw "github.com/notifyhub/cogbot/internal/api/middleware"
	"github.com/notifyhub/cogbot/internal/domain"
	"github.com/notifyhub/cogbot/internal/service"
)

// ReminderHandler handles the reminder endpoints.
type ReminderHandler struct {
	svc    *service.ReminderService
	logger *zap.Logger
}

func NewReminderHandler(svc *service.ReminderService, logger *zap.Logger) *ReminderHandler {
	return &ReminderHandler{svc: svc, logger: logger}
}

// Create handles POST /api/v1/reminders
//
// @Summary     Schedule a reminder
// @Tags        reminders
// @Accept      json
// @Produce     json
// @Param       body  body      domain.CreateReminderRequest  true  "Reminder payload"
// @Success     201   {object}  domain.ReminderView
// @Failure     422   {object}  map[string]string
// @Router      /api/v1/reminders [post]
func (h *ReminderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateReminderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	rem, err := h.svc.Create(r.Context(), req)
	if err != nil {
		apimw.Logger(r.Context(), h.logger).Warn("create reminder failed", zap.Error(err))
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, domain.ReminderView{
		Reminder: rem,
		TimeLeft: domain.FormatDuration(rem.FireAt.Sub(rem.CreatedAt)),
	})
}

// List handles GET /api/v1/reminders?owner_id=
//
// @Summary  List an owner's pending reminders
// @Tags     reminders
// @Produce  json
// @Param    owner_id  query     string  true  "Owner"
// @Success  200       {object}  map[string]any
// @Router   /api/v1/reminders [get]
func (h *ReminderHandler) List(w http.ResponseWriter, r *http.Request) {
	views, err := h.svc.List(r.Context(), r.URL.Query().Get("owner_id"))
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"data":  views,
		"total": len(views),
	})
}

// Cancel handles DELETE /api/v1/reminders/{id}?owner_id=
//
// @Summary  Cancel a pending reminder
// @Tags     reminders
// @Param    id        path   string  true  "Reminder ID"
// @Param    owner_id  query  string  true  "Owner"
// @Success  204
// @Failure  404  {object}  map[string]string
// @Router   /api/v1/reminders/{id} [delete]
func (h *ReminderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.Cancel(r.Context(), r.URL.Query().Get("owner_id"), id); err != nil {
		mapError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
