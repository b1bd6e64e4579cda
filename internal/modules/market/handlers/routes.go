package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers news and market index routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/news/stocks", h.HandleGetStockNews)
	r.Get("/market-indices", h.HandleGetIndices)
}
