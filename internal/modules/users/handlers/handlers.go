// Package handlers provides HTTP handlers for authentication and user management.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/aristath/portfolio-manager/internal/domain"
	"github.com/aristath/portfolio-manager/internal/modules/users"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// UserService is the user surface the handlers need
type UserService interface {
	Signup(ctx context.Context, req users.SignupRequest) (*users.LoginResponse, error)
	Login(ctx context.Context, req users.LoginRequest) (*users.LoginResponse, error)
	Create(ctx context.Context, req users.SignupRequest) (*users.UserView, error)
	Get(ctx context.Context, id int64) (*users.UserView, error)
	List(ctx context.Context) ([]users.UserView, error)
	Update(ctx context.Context, id int64, req users.UpdateRequest) (*users.UserView, error)
	Delete(ctx context.Context, id int64) error
}

// Handler handles auth and user HTTP requests
type Handler struct {
	service UserService
	log     zerolog.Logger
}

// NewHandler creates a new user handler
func NewHandler(service UserService, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "users").Logger(),
	}
}

// HandleSignup handles POST /api/auth/signup
func (h *Handler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req users.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.service.Signup(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, resp)
}

// HandleLogin handles POST /api/auth/login
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req users.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.service.Login(r.Context(), req)
	if err != nil {
		if domain.IsInvalidOperation(err) {
			h.writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// HandleCreate handles POST /api/users
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req users.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	view, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, view)
}

// HandleList handles GET /api/users
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	views, err := h.service.List(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, views)
}

// HandleGet handles GET /api/users/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}

	view, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

// HandleUpdate handles PUT /api/users/{id}
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req users.UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	view, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

// HandleDelete handles DELETE /api/users/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.writeError(w, http.StatusBadRequest, "Invalid user ID")
		return 0, false
	}
	if err := domain.CheckOwner(r.Context(), id); err != nil {
		h.writeServiceError(w, err)
		return 0, false
	}
	return id, true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case domain.IsForbidden(err):
		h.writeError(w, http.StatusForbidden, err.Error())
	case domain.IsNotFound(err):
		h.writeError(w, http.StatusNotFound, err.Error())
	case domain.IsInvalidOperation(err):
		h.writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error().Err(err).Msg("User request failed")
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
	}
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
