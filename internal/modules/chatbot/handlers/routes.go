package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the request/response chatbot routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chatbot/chat", h.HandleChat)
	r.Post("/chatbot/clear-consent/{userId}", h.HandleClearConsent)
}

// RegisterStreamRoutes registers the chat socket. It is kept apart from
// RegisterRoutes so it can be mounted outside request timeouts.
func (h *Handler) RegisterStreamRoutes(r chi.Router) {
	r.Get("/chatbot/ws", h.HandleWebSocket)
}
