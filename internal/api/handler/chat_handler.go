package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	apimw "github.com/notifyhub/cogbot/internal/api/middleware"
	"github.com/notifyhub/cogbot/internal/domain"
	"github.com/notifyhub/cogbot/internal/service"
)

// ChatHandler serves AI chat completions.
type ChatHandler struct {
	svc    *service.ChatService
	logger *zap.Logger
}

func NewChatHandler(svc *service.ChatService, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{svc: svc, logger: logger}
}

// Chat handles POST /api/v1/chat
//
// @Summary  Generate a reply, split into message-sized chunks
// @Tags     chat
// @Accept   json
// @Produce  json
// @Param    body  body      domain.ChatRequest  true  "Prompt and sampling parameters"
// @Success  200   {object}  domain.ChatReply
// @Failure  503   {object}  map[string]string
// @Router   /api/v1/chat [post]
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req domain.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	reply, err := h.svc.Chat(r.Context(), req)
	if err != nil {
		apimw.Logger(r.Context(), h.logger).Warn("chat failed", zap.Error(err))
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, reply)
}
