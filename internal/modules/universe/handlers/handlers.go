// Package handlers provides HTTP handlers for the stock universe.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/aristath/portfolio-manager/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// StockService is the universe surface the handlers need
type StockService interface {
	StockBySymbol(ctx context.Context, symbol string) (*domain.Stock, error)
	Search(ctx context.Context, query string) ([]domain.Stock, error)
	List(ctx context.Context) ([]domain.Stock, error)
	Price(ctx context.Context, symbol string) domain.Quote
	Trending(ctx context.Context) []domain.Quote
}

// Handler handles stock HTTP requests
type Handler struct {
	service StockService
	log     zerolog.Logger
}

// NewHandler creates a new stock handler
func NewHandler(service StockService, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "stocks").Logger(),
	}
}

// HandleList handles GET /api/stocks
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	stocks, err := h.service.List(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, stocks)
}

// HandleSearch handles GET /api/stocks/search?query=
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter is required")
		return
	}

	stocks, err := h.service.Search(r.Context(), query)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, stocks)
}

// HandleGetStock handles GET /api/stocks/{symbol}
func (h *Handler) HandleGetStock(w http.ResponseWriter, r *http.Request) {
	stock, err := h.service.StockBySymbol(r.Context(), chi.URLParam(r, "symbol"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, stock)
}

// HandleGetPrice handles GET /api/stocks/price/{symbol}
func (h *Handler) HandleGetPrice(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.service.Price(r.Context(), chi.URLParam(r, "symbol")))
}

// HandleTrending handles GET /api/stocks/trending
func (h *Handler) HandleTrending(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.service.Trending(r.Context()))
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case domain.IsNotFound(err):
		h.writeError(w, http.StatusNotFound, err.Error())
	case domain.IsInvalidOperation(err):
		h.writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error().Err(err).Msg("Stock request failed")
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
