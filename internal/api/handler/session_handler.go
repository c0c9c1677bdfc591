package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apimw "github.com/notifyhub/cogbot/internal/api/middleware"
	"github.com/notifyhub/cogbot/internal/domain"
	"github.com/notifyhub/cogbot/internal/service"
)

// SessionHandler handles per-context playback endpoints. {key} is the
// context key, typically a guild ID.
type SessionHandler struct {
	svc    *service.MusicService
	logger *zap.Logger
}

func NewSessionHandler(svc *service.MusicService, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{svc: svc, logger: logger}
}

// Play handles POST /api/v1/sessions/{key}/tracks
//
// @Summary  Resolve a query and queue it
// @Tags     sessions
// @Accept   json
// @Produce  json
// @Param    key   path      string              true  "Context key"
// @Param    body  body      domain.PlayRequest  true  "Query"
// @Success  202   {object}  domain.Enqueued
// @Failure  422   {object}  map[string]string
// @Failure  502   {object}  map[string]string
// @Router   /api/v1/sessions/{key}/tracks [post]
func (h *SessionHandler) Play(w http.ResponseWriter, r *http.Request) {
	var req domain.PlayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	res, err := h.svc.Play(r.Context(), chi.URLParam(r, "key"), req)
	if err != nil {
		apimw.Logger(r.Context(), h.logger).Warn("play failed", zap.String("query", req.Query), zap.Error(err))
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, res)
}

// Speak handles POST /api/v1/sessions/{key}/speech
//
// @Summary  Synthesize text and queue it
// @Tags     sessions
// @Accept   json
// @Produce  json
// @Param    key   path      string               true  "Context key"
// @Param    body  body      domain.SpeakRequest  true  "Text and voice"
// @Success  202   {object}  domain.Enqueued
// @Router   /api/v1/sessions/{key}/speech [post]
func (h *SessionHandler) Speak(w http.ResponseWriter, r *http.Request) {
	var req domain.SpeakRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	res, err := h.svc.Speak(r.Context(), chi.URLParam(r, "key"), req)
	if err != nil {
		apimw.Logger(r.Context(), h.logger).Warn("speak failed", zap.Error(err))
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, res)
}

// Queue handles GET /api/v1/sessions/{key}/queue
//
// @Summary  Now playing and upcoming tracks
// @Tags     sessions
// @Produce  json
// @Success  200  {object}  domain.QueueView
// @Router   /api/v1/sessions/{key}/queue [get]
func (h *SessionHandler) Queue(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.svc.Queue(chi.URLParam(r, "key")))
}

// Skip handles POST /api/v1/sessions/{key}/skip
func (h *SessionHandler) Skip(w http.ResponseWriter, r *http.Request) {
	h.control(w, r, h.svc.Skip)
}

// Pause handles POST /api/v1/sessions/{key}/pause
func (h *SessionHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.control(w, r, h.svc.Pause)
}

// Resume handles POST /api/v1/sessions/{key}/resume
func (h *SessionHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.control(w, r, h.svc.Resume)
}

type volumeRequest struct {
	Volume *int `json:"volume"`
}

// Volume handles PUT /api/v1/sessions/{key}/volume
//
// @Summary  Set playback volume (0-100)
// @Tags     sessions
// @Accept   json
// @Success  204
// @Failure  422  {object}  map[string]string
// @Router   /api/v1/sessions/{key}/volume [put]
func (h *SessionHandler) Volume(w http.ResponseWriter, r *http.Request) {
	var req volumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Volume == nil {
		respondError(w, http.StatusBadRequest, "body must be {\"volume\": 0-100}")
		return
	}
	if err := h.svc.SetVolume(r.Context(), chi.URLParam(r, "key"), *req.Volume); err != nil {
		mapError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Stop handles DELETE /api/v1/sessions/{key}
//
// @Summary  Clear the queue and disconnect
// @Tags     sessions
// @Success  204
// @Failure  404  {object}  map[string]string
// @Router   /api/v1/sessions/{key} [delete]
func (h *SessionHandler) Stop(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Stop(chi.URLParam(r, "key")); err != nil {
		mapError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) control(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, key string) error) {
	if err := fn(r.Context(), chi.URLParam(r, "key")); err != nil {
		mapError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
