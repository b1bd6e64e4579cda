// Package handlers provides HTTP handlers for risk analysis.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/aristath/portfolio-manager/internal/domain"
	"github.com/aristath/portfolio-manager/internal/modules/risk"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Analyzer runs a risk analysis for a user
type Analyzer interface {
	AnalyzeRisk(ctx context.Context, userID int64) (*risk.Analysis, error)
}

// Handler handles risk analysis HTTP requests
type Handler struct {
	analyzer Analyzer
	log      zerolog.Logger
}

// NewHandler creates a new risk handler
func NewHandler(analyzer Analyzer, log zerolog.Logger) *Handler {
	return &Handler{
		analyzer: analyzer,
		log:      log.With().Str("handler", "risk").Logger(),
	}
}

// HandleAnalyze handles GET /api/risk/analyze/{userId}
func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userId"), 10, 64)
	if err != nil || userID <= 0 {
		h.writeError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}
	if err := domain.CheckOwner(r.Context(), userID); err != nil {
		h.writeServiceError(w, err)
		return
	}

	analysis, err := h.analyzer.AnalyzeRisk(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, analysis)
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
		h.log.Error().Err(err).Msg("Risk analysis failed")
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
