package persistence

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/efreitasn/stocktrader/internal/domain"
	"github.com/efreitasn/stocktrader/internal/store"
)

// Memory is the fallback Gateway. State lives in process memory and is lost
// on restart; an optional Mirror keeps a forensic CSV trail of every write.
type Memory struct {
	instruments *store.InstrumentStore
	accounts    *store.AccountStore
	trades      *store.TradeStore
	mirror      *Mirror
	logger      *slog.Logger
}

// NewMemory creates an empty fallback gateway. mirror may be nil.
func NewMemory(mirror *Mirror, logger *slog.Logger) *Memory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Memory{
		instruments: store.NewInstrumentStore(),
		accounts:    store.NewAccountStore(),
		trades:      store.NewTradeStore(),
		mirror:      mirror,
		logger:      logger,
	}
}

func (m *Memory) Mode() Mode { return ModeFallback }

func (m *Memory) LoadInstrument(_ context.Context, symbol string) (domain.Instrument, error) {
	return m.instruments.Get(symbol)
}

func (m *Memory) UpsertInstrument(_ context.Context, inst domain.Instrument) error {
	if err := m.instruments.Upsert(inst); err != nil {
		return err
	}
	m.mirror.RecordInstrument(inst)
	return nil
}

func (m *Memory) ListInstruments(_ context.Context) ([]domain.Instrument, error) {
	return m.instruments.List(), nil
}

func (m *Memory) CreateAccount(_ context.Context, accountID string, balance int64) error {
	if balance < 0 {
		return fmt.Errorf("account %s: opening balance must be >= 0, got %d", accountID, balance)
	}
	if err := m.accounts.Create(accountID, balance); err != nil {
		return err
	}
	m.mirror.RecordAccount(accountID, balance)
	return nil
}

func (m *Memory) LoadAccountState(_ context.Context, accountID string) (domain.AccountState, error) {
	return m.accounts.Get(accountID)
}

// CommitTrade appends the trade to the journal while the account lock is
// held, then applies the deltas before releasing it. Readers of the
// account block until both are in place.
func (m *Memory) CommitTrade(_ context.Context, c domain.TradeCommit) (int64, error) {
	var stored domain.Trade
	err := m.accounts.Apply(c.AccountID, c.Trade.Symbol, c.BalanceDelta, c.PositionDelta, func() error {
		stored = m.trades.Append(c.Trade)
		return nil
	})
	if err != nil {
		return 0, err
	}

	m.mirror.RecordTrade(stored)
	return stored.Seq, nil
}

func (m *Memory) TradeHistory(_ context.Context, accountID string, afterSeq int64, limit int) ([]domain.Trade, error) {
	if !m.accounts.Exists(accountID) {
		return nil, domain.ErrAccountNotFound
	}
	return m.trades.History(accountID, afterSeq, limit), nil
}

func (m *Memory) Close() error {
	return m.mirror.Close()
}
