package handler

import (
	"net/http"

	"github.com/efreitasn/stocktrader/internal/domain"
	"github.com/efreitasn/stocktrader/internal/service"
)

// TradeHandler handles HTTP requests for trade execution.
type TradeHandler struct {
	tradeSvc *service.TradeService
}

// NewTradeHandler creates a new TradeHandler.
func NewTradeHandler(tradeSvc *service.TradeService) *TradeHandler {
	return &TradeHandler{tradeSvc: tradeSvc}
}

// executeTradeRequest is the JSON request body for POST /trades.
type executeTradeRequest struct {
	AccountID string `json:"account_id"`
	Symbol    string `json:"symbol"`
	Quantity  int64  `json:"quantity"`
	Side      string `json:"side"`
}

// tradeResponse is a single executed trade.
type tradeResponse struct {
	Seq        int64   `json:"seq"`
	TradeID    string  `json:"trade_id"`
	AccountID  string  `json:"account_id"`
	Symbol     string  `json:"symbol"`
	Side       string  `json:"side"`
	Quantity   int64   `json:"quantity"`
	Price      float64 `json:"price"`
	Total      float64 `json:"total"`
	ExecutedAt string  `json:"executed_at"`
}

func toTradeResponse(t domain.Trade) tradeResponse {
	return tradeResponse{
		Seq:        t.Seq,
		TradeID:    t.TradeID,
		AccountID:  t.AccountID,
		Symbol:     t.Symbol,
		Side:       string(t.Side),
		Quantity:   t.Quantity,
		Price:      domain.CentsToDollars(t.Price),
		Total:      domain.CentsToDollars(t.Notional()),
		ExecutedAt: formatTime(t.ExecutedAt),
	}
}

// Execute handles POST /trades.
func (h *TradeHandler) Execute(w http.ResponseWriter, r *http.Request) {
	var req executeTradeRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	trade, err := h.tradeSvc.Execute(r.Context(), service.ExecuteTradeRequest{
		AccountID: req.AccountID,
		Symbol:    req.Symbol,
		Quantity:  req.Quantity,
		Side:      req.Side,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, toTradeResponse(*trade))
}
