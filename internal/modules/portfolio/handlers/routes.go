package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers portfolio routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/portfolio", func(r chi.Router) {
		r.Get("/user/{userId}", h.HandleGetPortfolio)
		r.Get("/user/{userId}/concentration", h.HandleGetConcentration)
		r.Post("/buy", h.HandleBuy)
		r.Post("/sell", h.HandleSell)
	})
}
