package service

import (
	"context"

	"github.com/efreitasn/stocktrader/internal/domain"
	"github.com/efreitasn/stocktrader/internal/engine"
)

// ExecuteTradeRequest represents the input for a market order.
type ExecuteTradeRequest struct {
	AccountID string
	Symbol    string
	Quantity  int64
	Side      string
}

// TradeService accepts market orders and hands them to the executor.
type TradeService struct {
	executor *engine.Executor
}

// NewTradeService creates a new TradeService.
func NewTradeService(executor *engine.Executor) *TradeService {
	return &TradeService{executor: executor}
}

// Execute parses the side and executes the order. Rejections come back as
// the domain sentinel errors, storage failures as *domain.PersistenceError.
func (s *TradeService) Execute(ctx context.Context, req ExecuteTradeRequest) (*domain.Trade, error) {
	// Quantity is checked before anything else, including the side.
	if req.Quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	side, err := domain.ParseSide(req.Side)
	if err != nil {
		return nil, err
	}
	return s.executor.Execute(ctx, req.AccountID, req.Symbol, req.Quantity, side)
}
