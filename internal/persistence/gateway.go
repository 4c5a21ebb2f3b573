// Package persistence hides the durable and fallback storage backends
// behind one Gateway. The backend is chosen once by Open and never
// changes for the lifetime of the process.
package persistence

import (
	"context"

	"github.com/efreitasn/stocktrader/internal/domain"
)

// Mode identifies which backend a Gateway writes to.
type Mode string

const (
	ModeDurable  Mode = "durable"
	ModeFallback Mode = "fallback"
)

// Gateway is the storage contract consumed by the execution engine, the
// price updater and the read API. CommitTrade is the single atomic write
// boundary: the balance delta, the position delta and the journal record
// are either all visible or none are.
type Gateway interface {
	Mode() Mode

	LoadInstrument(ctx context.Context, symbol string) (domain.Instrument, error)
	UpsertInstrument(ctx context.Context, inst domain.Instrument) error
	ListInstruments(ctx context.Context) ([]domain.Instrument, error)

	CreateAccount(ctx context.Context, accountID string, balance int64) error
	LoadAccountState(ctx context.Context, accountID string) (domain.AccountState, error)

	// CommitTrade applies c and returns the sequence id assigned to its trade.
	CommitTrade(ctx context.Context, c domain.TradeCommit) (int64, error)
	// TradeHistory returns the account's trades with seq > afterSeq in
	// ascending order, at most limit of them (limit <= 0 means all).
	TradeHistory(ctx context.Context, accountID string, afterSeq int64, limit int) ([]domain.Trade, error)

	Close() error
}
