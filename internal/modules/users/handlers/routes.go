package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterAuthRoutes registers the public signup and login routes
func (h *Handler) RegisterAuthRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", h.HandleSignup)
		r.Post("/login", h.HandleLogin)
	})
}

// RegisterRoutes registers user management routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleCreate)
		r.Get("/{id}", h.HandleGet)
		r.Put("/{id}", h.HandleUpdate)
		r.Delete("/{id}", h.HandleDelete)
	})
}
