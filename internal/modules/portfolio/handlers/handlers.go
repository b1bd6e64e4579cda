// Package handlers provides HTTP handlers for portfolio valuation and trading.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/aristath/portfolio-manager/internal/domain"
	"github.com/aristath/portfolio-manager/internal/modules/portfolio"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// PortfolioService is the portfolio surface the handlers need
type PortfolioService interface {
	GetPortfolio(ctx context.Context, userID int64) (*portfolio.View, error)
	Concentration(ctx context.Context, userID int64) (*portfolio.Concentration, error)
	BuyStock(ctx context.Context, userID int64, symbol string, quantity int, price decimal.Decimal) (*domain.Holding, error)
	SellStock(ctx context.Context, userID, holdingID int64, quantity int) (*portfolio.Sale, error)
}

// Handler handles portfolio HTTP requests
type Handler struct {
	service PortfolioService
	log     zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(service PortfolioService, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "portfolio").Logger(),
	}
}

// HandleGetPortfolio handles GET /api/portfolio/user/{userId}
func (h *Handler) HandleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathUserID(w, r)
	if !ok {
		return
	}

	view, err := h.service.GetPortfolio(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

// HandleGetConcentration handles GET /api/portfolio/user/{userId}/concentration
func (h *Handler) HandleGetConcentration(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathUserID(w, r)
	if !ok {
		return
	}

	c, err := h.service.Concentration(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, c)
}

// HandleBuy handles POST /api/portfolio/buy?userId=&symbol=&quantity=&buyPrice=
func (h *Handler) HandleBuy(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	userID, err := strconv.ParseInt(q.Get("userId"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid userId")
		return
	}
	if err := domain.CheckOwner(r.Context(), userID); err != nil {
		h.writeServiceError(w, err)
		return
	}
	symbol := strings.ToUpper(strings.TrimSpace(q.Get("symbol")))
	if symbol == "" {
		h.writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}
	quantity, err := strconv.Atoi(q.Get("quantity"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid quantity")
		return
	}
	price, err := decimal.NewFromString(q.Get("buyPrice"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid buyPrice")
		return
	}

	holding, err := h.service.BuyStock(r.Context(), userID, symbol, quantity, price)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, holding)
}

// HandleSell handles POST /api/portfolio/sell?userId=&investmentId=&quantity=
func (h *Handler) HandleSell(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	userID, err := strconv.ParseInt(q.Get("userId"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid userId")
		return
	}
	if err := domain.CheckOwner(r.Context(), userID); err != nil {
		h.writeServiceError(w, err)
		return
	}
	holdingID, err := strconv.ParseInt(q.Get("investmentId"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid investmentId")
		return
	}
	quantity, err := strconv.Atoi(q.Get("quantity"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid quantity")
		return
	}

	sale, err := h.service.SellStock(r.Context(), userID, holdingID, quantity)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, sale)
}

func (h *Handler) pathUserID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userId"), 10, 64)
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
		h.log.Error().Err(err).Msg("Portfolio request failed")
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
