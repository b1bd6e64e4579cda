package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers stock routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/stocks", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Get("/search", h.HandleSearch)
		r.Get("/trending", h.HandleTrending)
		r.Get("/price/{symbol}", h.HandleGetPrice)
		r.Get("/{symbol}", h.HandleGetStock)
	})
}
