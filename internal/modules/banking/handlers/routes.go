package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers bank account routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/bank-account/user/{userId}", func(r chi.Router) {
		r.Get("/", h.HandleGet)
		r.Post("/create", h.HandleCreate)
		r.Put("/update", h.HandleUpdate)
		r.Post("/deposit", h.HandleDeposit)
		r.Post("/withdraw", h.HandleWithdraw)
	})
}
