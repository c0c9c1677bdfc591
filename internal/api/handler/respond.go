package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/notifyhub/cogbot/internal/domain"
	"github.com/notifyhub/cogbot/internal/provider"
)

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// mapError translates domain sentinel errors to HTTP status codes.
// All mapping lives here so individual handlers stay concise.
func mapError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrNoSession):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrNothingPlaying),
		errors.Is(err, domain.ErrNotPaused):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidOwner),
		errors.Is(err, domain.ErrInvalidDuration),
		errors.Is(err, domain.ErrMessageTooLong),
		errors.Is(err, domain.ErrEmptyMessage),
		errors.Is(err, domain.ErrInvalidQuery),
		errors.Is(err, domain.ErrInvalidVolume),
		errors.Is(err, domain.ErrTrackTooLong),
		errors.Is(err, domain.ErrInvalidChatParam):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrQueueFull),
		errors.Is(err, domain.ErrSessionClosed),
		errors.Is(err, provider.ErrTransient):
		respondError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, domain.ErrEmptyCompletion):
		respondError(w, http.StatusBadGateway, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}
