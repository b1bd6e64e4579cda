// Package handlers provides HTTP handlers for market news and indices.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/aristath/portfolio-manager/internal/clients/newsapi"
	"github.com/aristath/portfolio-manager/internal/modules/market"
	"github.com/rs/zerolog"
)

// NewsSource serves the news feed
type NewsSource interface {
	StockNews(ctx context.Context) []newsapi.Article
}

// Handler handles market HTTP requests
type Handler struct {
	news NewsSource
	now  func() time.Time
	log  zerolog.Logger
}

// NewHandler creates a new market handler
func NewHandler(news NewsSource, log zerolog.Logger) *Handler {
	return &Handler{
		news: news,
		now:  time.Now,
		log:  log.With().Str("handler", "market").Logger(),
	}
}

// HandleGetStockNews handles GET /api/news/stocks
func (h *Handler) HandleGetStockNews(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.news.StockNews(r.Context()))
}

// HandleGetIndices handles GET /api/market-indices
func (h *Handler) HandleGetIndices(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, market.IndicesAt(h.now()))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
