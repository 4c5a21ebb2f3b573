package handler

import (
	"net/http"
	"strconv"

	"github.com/efreitasn/stocktrader/internal/domain"
	"github.com/efreitasn/stocktrader/internal/service"
	"github.com/go-chi/chi/v5"
)

// AccountHandler handles HTTP requests for account endpoints.
type AccountHandler struct {
	accountSvc *service.AccountService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountSvc *service.AccountService) *AccountHandler {
	return &AccountHandler{accountSvc: accountSvc}
}

// openAccountRequest is the JSON request body for POST /accounts.
type openAccountRequest struct {
	AccountID   string  `json:"account_id"`
	InitialCash float64 `json:"initial_cash"`
}

// balanceResponse is the JSON response for GET /accounts/{account_id}/balance
// and POST /accounts.
type balanceResponse struct {
	AccountID   string  `json:"account_id"`
	CashBalance float64 `json:"cash_balance"`
}

// portfolioResponse is the JSON response for GET /accounts/{account_id}/portfolio.
type portfolioResponse struct {
	AccountID   string             `json:"account_id"`
	CashBalance float64            `json:"cash_balance"`
	Positions   []positionResponse `json:"positions"`
}

type positionResponse struct {
	Symbol   string `json:"symbol"`
	Quantity int64  `json:"quantity"`
}

// tradeListResponse is the JSON response for GET /accounts/{account_id}/trades.
// NextAfter is the cursor for the following page.
type tradeListResponse struct {
	Trades    []tradeResponse `json:"trades"`
	NextAfter int64           `json:"next_after"`
}

// Open handles POST /accounts.
func (h *AccountHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req openAccountRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	state, err := h.accountSvc.Open(r.Context(), service.OpenAccountRequest{
		AccountID:   req.AccountID,
		InitialCash: req.InitialCash,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, balanceResponse{
		AccountID:   state.AccountID,
		CashBalance: domain.CentsToDollars(state.Balance),
	})
}

// GetBalance handles GET /accounts/{account_id}/balance.
func (h *AccountHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "account_id")

	balance, err := h.accountSvc.GetBalance(r.Context(), accountID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, balanceResponse{
		AccountID:   accountID,
		CashBalance: domain.CentsToDollars(balance),
	})
}

// GetPortfolio handles GET /accounts/{account_id}/portfolio.
func (h *AccountHandler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "account_id")

	state, err := h.accountSvc.GetPortfolio(r.Context(), accountID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	positions := make([]positionResponse, 0, len(state.Positions))
	for _, p := range state.SortedPositions() {
		positions = append(positions, positionResponse{Symbol: p.Symbol, Quantity: p.Quantity})
	}
	WriteJSON(w, http.StatusOK, portfolioResponse{
		AccountID:   accountID,
		CashBalance: domain.CentsToDollars(state.Balance),
		Positions:   positions,
	})
}

// ListTrades handles GET /accounts/{account_id}/trades.
func (h *AccountHandler) ListTrades(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "account_id")

	var after int64
	if v := r.URL.Query().Get("after"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "validation_error", "after must be a valid integer")
			return
		}
		after = parsed
	}

	var limit int
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "validation_error", "limit must be a valid integer")
			return
		}
		if parsed == 0 {
			WriteError(w, http.StatusBadRequest, "validation_error", "limit must be >= 1")
			return
		}
		limit = parsed
	}

	trades, err := h.accountSvc.GetTradeHistory(r.Context(), accountID, after, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := tradeListResponse{
		Trades:    make([]tradeResponse, 0, len(trades)),
		NextAfter: after,
	}
	for _, t := range trades {
		resp.Trades = append(resp.Trades, toTradeResponse(t))
		resp.NextAfter = t.Seq
	}
	WriteJSON(w, http.StatusOK, resp)
}
