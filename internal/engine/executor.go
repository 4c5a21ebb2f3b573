package engine

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/efreitasn/stocktrader/internal/domain"
	"github.com/efreitasn/stocktrader/internal/persistence"
)

// Executor validates and executes market orders against the current
// instrument price. All checks and the commit for one account run inside
// that account's exclusive region.
type Executor struct {
	gw     persistence.Gateway
	locks  *AccountLocks
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// NewExecutor creates an Executor writing through gw.
func NewExecutor(gw persistence.Gateway, locks *AccountLocks, logger *slog.Logger) *Executor {
	if locks == nil {
		locks = NewAccountLocks()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		gw:     gw,
		locks:  locks,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Execute buys or sells quantity units of symbol for accountID at the
// instrument's current price.
//
// Checks run in this order and the first failure is returned unchanged:
// domain.ErrInvalidQuantity, domain.ErrInvalidSide,
// domain.ErrUnknownInstrument, domain.ErrAccountNotFound, then
// domain.ErrInsufficientFunds (BUY) or domain.ErrInsufficientHoldings
// (SELL). A rejected request leaves every store untouched.
//
// Storage failures are returned as *domain.PersistenceError. Once the
// checks pass the commit is not aborted by cancellation of ctx.
func (e *Executor) Execute(ctx context.Context, accountID, symbol string, quantity int64, side domain.Side) (*domain.Trade, error) {
	if quantity <= 0 {
		return nil, e.reject(domain.ErrInvalidQuantity, accountID, symbol, quantity, side)
	}
	if side != domain.SideBuy && side != domain.SideSell {
		return nil, e.reject(domain.ErrInvalidSide, accountID, symbol, quantity, side)
	}

	lock := e.locks.Get(accountID)
	lock.Lock()
	defer lock.Unlock()

	// The price is read once and used for both the check and the record.
	inst, err := e.gw.LoadInstrument(ctx, symbol)
	if err != nil {
		return nil, e.loadFailed("load_instrument", err, accountID, symbol, quantity, side)
	}

	state, err := e.gw.LoadAccountState(ctx, accountID)
	if err != nil {
		return nil, e.loadFailed("load_account", err, accountID, symbol, quantity, side)
	}

	switch side {
	case domain.SideBuy:
		if quantity > state.Balance/inst.Price {
			return nil, e.reject(domain.ErrInsufficientFunds, accountID, symbol, quantity, side)
		}
	case domain.SideSell:
		if state.Quantity(symbol) < quantity {
			return nil, e.reject(domain.ErrInsufficientHoldings, accountID, symbol, quantity, side)
		}
		// Proceeds must fit both the multiplication and the new balance.
		if quantity > math.MaxInt64/inst.Price || state.Balance > math.MaxInt64-quantity*inst.Price {
			return nil, e.reject(domain.ErrInvalidQuantity, accountID, symbol, quantity, side)
		}
	}

	trade := domain.Trade{
		TradeID:    e.newID(),
		AccountID:  accountID,
		Symbol:     symbol,
		Quantity:   quantity,
		Price:      inst.Price,
		Side:       side,
		ExecutedAt: e.now().UTC(),
	}

	seq, err := e.gw.CommitTrade(context.WithoutCancel(ctx), domain.NewTradeCommit(trade))
	if err != nil {
		perr := &domain.PersistenceError{Op: "commit_trade", Err: err}
		e.logger.Error("trade commit failed",
			slog.String("account_id", accountID),
			slog.String("symbol", symbol),
			slog.String("side", string(side)),
			slog.Int64("quantity", quantity),
			slog.String("error", err.Error()),
		)
		return nil, perr
	}
	trade.Seq = seq

	e.logger.Info("trade executed",
		slog.Int64("seq", trade.Seq),
		slog.String("trade_id", trade.TradeID),
		slog.String("account_id", accountID),
		slog.String("symbol", symbol),
		slog.String("side", string(side)),
		slog.Int64("quantity", quantity),
		slog.Int64("price", trade.Price),
	)
	return &trade, nil
}

// loadFailed passes domain rejections through and wraps anything else as a
// persistence failure.
func (e *Executor) loadFailed(op string, err error, accountID, symbol string, quantity int64, side domain.Side) error {
	if errors.Is(err, domain.ErrUnknownInstrument) || errors.Is(err, domain.ErrAccountNotFound) {
		return e.reject(err, accountID, symbol, quantity, side)
	}
	e.logger.Error("trade load failed",
		slog.String("op", op),
		slog.String("account_id", accountID),
		slog.String("symbol", symbol),
		slog.String("error", err.Error()),
	)
	return &domain.PersistenceError{Op: op, Err: err}
}

func (e *Executor) reject(err error, accountID, symbol string, quantity int64, side domain.Side) error {
	e.logger.Debug("trade rejected",
		slog.String("reason", err.Error()),
		slog.String("account_id", accountID),
		slog.String("symbol", symbol),
		slog.String("side", string(side)),
		slog.Int64("quantity", quantity),
	)
	return err
}
