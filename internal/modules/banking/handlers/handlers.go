// Package handlers provides HTTP handlers for bank accounts.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/aristath/portfolio-manager/internal/domain"
	"github.com/aristath/portfolio-manager/internal/modules/banking"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// AccountService is the banking surface the handlers need
type AccountService interface {
	Get(ctx context.Context, userID int64) (*domain.BankAccount, error)
	Create(ctx context.Context, userID int64, req banking.AccountRequest) (*domain.BankAccount, error)
	Update(ctx context.Context, userID int64, req banking.AccountRequest) (*domain.BankAccount, error)
	Deposit(ctx context.Context, userID int64, req banking.TransactionRequest) (*domain.BankAccount, error)
	Withdraw(ctx context.Context, userID int64, req banking.TransactionRequest) (*domain.BankAccount, error)
}

// Handler handles bank account HTTP requests
type Handler struct {
	service AccountService
	log     zerolog.Logger
}

// NewHandler creates a new bank account handler
func NewHandler(service AccountService, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "banking").Logger(),
	}
}

// HandleGet handles GET /api/bank-account/user/{userId}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	account, err := h.service.Get(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, account)
}

// HandleCreate handles POST /api/bank-account/user/{userId}/create
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	h.handleDetails(w, r, http.StatusCreated, h.service.Create)
}

// HandleUpdate handles PUT /api/bank-account/user/{userId}/update
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	h.handleDetails(w, r, http.StatusOK, h.service.Update)
}

// HandleDeposit handles POST /api/bank-account/user/{userId}/deposit
func (h *Handler) HandleDeposit(w http.ResponseWriter, r *http.Request) {
	h.handleTransaction(w, r, h.service.Deposit)
}

// HandleWithdraw handles POST /api/bank-account/user/{userId}/withdraw
func (h *Handler) HandleWithdraw(w http.ResponseWriter, r *http.Request) {
	h.handleTransaction(w, r, h.service.Withdraw)
}

type detailsFunc func(ctx context.Context, userID int64, req banking.AccountRequest) (*domain.BankAccount, error)

type transactionFunc func(ctx context.Context, userID int64, req banking.TransactionRequest) (*domain.BankAccount, error)

func (h *Handler) handleDetails(w http.ResponseWriter, r *http.Request, status int, fn detailsFunc) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req banking.AccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	account, err := fn(r.Context(), userID, req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, status, account)
}

func (h *Handler) handleTransaction(w http.ResponseWriter, r *http.Request, fn transactionFunc) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req banking.TransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	account, err := fn(r.Context(), userID, req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, account)
}

func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
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
		h.log.Error().Err(err).Msg("Bank account request failed")
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
