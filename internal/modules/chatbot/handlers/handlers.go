// Package handlers provides HTTP and websocket handlers for the chat assistant.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/aristath/portfolio-manager/internal/domain"
	"github.com/aristath/portfolio-manager/internal/modules/chatbot"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// ChatService is the chatbot surface the handlers need
type ChatService interface {
	Chat(ctx context.Context, req chatbot.Request) *chatbot.Response
	ClearConsent(ctx context.Context, userID int64) error
}

// Handler handles chatbot requests
type Handler struct {
	service ChatService
	// originPatterns is passed to the websocket upgrader; empty means same-origin only
	originPatterns []string
	log            zerolog.Logger
}

// NewHandler creates a new chatbot handler
func NewHandler(service ChatService, originPatterns []string, log zerolog.Logger) *Handler {
	return &Handler{
		service:        service,
		originPatterns: originPatterns,
		log:            log.With().Str("handler", "chatbot").Logger(),
	}
}

// HandleChat handles POST /api/chatbot/chat
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req chatbot.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg := validate(req); msg != "" {
		h.writeError(w, http.StatusBadRequest, msg)
		return
	}
	if !h.owns(w, r, req.UserID) {
		return
	}

	h.writeJSON(w, http.StatusOK, h.service.Chat(r.Context(), req))
}

// HandleClearConsent handles POST /api/chatbot/clear-consent/{userId}
func (h *Handler) HandleClearConsent(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userId"), 10, 64)
	if err != nil || userID <= 0 {
		h.writeError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}
	if !h.owns(w, r, userID) {
		return
	}

	if err := h.service.ClearConsent(r.Context(), userID); err != nil {
		h.log.Error().Err(err).Int64("user_id", userID).Msg("Failed to clear consent")
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	w.WriteHeader(http.StatusOK)
}

// owns writes 403 when the caller is not the targeted user
func (h *Handler) owns(w http.ResponseWriter, r *http.Request, userID int64) bool {
	if err := domain.CheckOwner(r.Context(), userID); err != nil {
		h.writeError(w, http.StatusForbidden, err.Error())
		return false
	}
	return true
}

func validate(req chatbot.Request) string {
	if req.UserID <= 0 {
		return "User ID is required"
	}
	if strings.TrimSpace(req.Message) == "" {
		return "Message is required"
	}
	return ""
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
