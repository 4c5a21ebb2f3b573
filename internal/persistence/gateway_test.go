package persistence

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/efreitasn/stocktrader/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// backends returns a fresh instance of each Gateway implementation.
func backends(t *testing.T) map[string]Gateway {
	t.Helper()

	db, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "trader.db"))
	require.NoError(t, err)

	gws := map[string]Gateway{
		"memory": NewMemory(nil, nil),
		"sqlite": db,
	}
	t.Cleanup(func() {
		for _, gw := range gws {
			_ = gw.Close()
		}
	})
	return gws
}

func buy(account, symbol string, qty, price int64) domain.TradeCommit {
	return domain.NewTradeCommit(domain.Trade{
		TradeID:    uuid.NewString(),
		AccountID:  account,
		Symbol:     symbol,
		Quantity:   qty,
		Price:      price,
		Side:       domain.SideBuy,
		ExecutedAt: time.Now(),
	})
}

func sell(account, symbol string, qty, price int64) domain.TradeCommit {
	c := buy(account, symbol, qty, price)
	c.Trade.Side = domain.SideSell
	return domain.NewTradeCommit(c.Trade)
}

func TestGateway_Instruments(t *testing.T) {
	ctx := context.Background()
	for name, gw := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := gw.LoadInstrument(ctx, "ABC")
			assert.ErrorIs(t, err, domain.ErrUnknownInstrument)

			require.NoError(t, gw.UpsertInstrument(ctx, domain.Instrument{Symbol: "XYZ", Name: "XYZ Limited", Price: 4550}))
			require.NoError(t, gw.UpsertInstrument(ctx, domain.Instrument{Symbol: "ABC", Name: "ABC Corporation", Price: 12000}))
			require.NoError(t, gw.UpsertInstrument(ctx, domain.Instrument{Symbol: "ABC", Name: "ABC Corporation", Price: 12100}))

			inst, err := gw.LoadInstrument(ctx, "ABC")
			require.NoError(t, err)
			assert.Equal(t, int64(12100), inst.Price)
			assert.Equal(t, "ABC Corporation", inst.Name)

			list, err := gw.ListInstruments(ctx)
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, "ABC", list[0].Symbol)
			assert.Equal(t, "XYZ", list[1].Symbol)

			assert.Error(t, gw.UpsertInstrument(ctx, domain.Instrument{Symbol: "BAD", Name: "Bad", Price: 0}))
		})
	}
}

func TestGateway_Accounts(t *testing.T) {
	ctx := context.Background()
	for name, gw := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := gw.LoadAccountState(ctx, "1")
			assert.ErrorIs(t, err, domain.ErrAccountNotFound)

			require.NoError(t, gw.CreateAccount(ctx, "1", 10_000_000))
			assert.ErrorIs(t, gw.CreateAccount(ctx, "1", 5), domain.ErrAccountAlreadyExists)
			assert.Error(t, gw.CreateAccount(ctx, "2", -1))

			state, err := gw.LoadAccountState(ctx, "1")
			require.NoError(t, err)
			assert.Equal(t, int64(10_000_000), state.Balance)
			assert.Empty(t, state.Positions)
		})
	}
}

func TestGateway_CommitTrade(t *testing.T) {
	ctx := context.Background()
	for name, gw := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, gw.CreateAccount(ctx, "1", 100_000))

			seq1, err := gw.CommitTrade(ctx, buy("1", "ABC", 5, 12000))
			require.NoError(t, err)
			seq2, err := gw.CommitTrade(ctx, sell("1", "ABC", 2, 12100))
			require.NoError(t, err)
			assert.Greater(t, seq2, seq1)

			state, err := gw.LoadAccountState(ctx, "1")
			require.NoError(t, err)
			assert.Equal(t, int64(100_000-5*12000+2*12100), state.Balance)
			assert.Equal(t, int64(3), state.Quantity("ABC"))

			history, err := gw.TradeHistory(ctx, "1", 0, 0)
			require.NoError(t, err)
			require.Len(t, history, 2)
			assert.Equal(t, seq1, history[0].Seq)
			assert.Equal(t, domain.SideBuy, history[0].Side)
			assert.Equal(t, seq2, history[1].Seq)
			assert.Equal(t, domain.SideSell, history[1].Side)
			assert.Equal(t, int64(12100), history[1].Price)

			// Selling the rest removes the position entirely.
			_, err = gw.CommitTrade(ctx, sell("1", "ABC", 3, 12100))
			require.NoError(t, err)
			state, err = gw.LoadAccountState(ctx, "1")
			require.NoError(t, err)
			_, held := state.Positions["ABC"]
			assert.False(t, held)
		})
	}
}

func TestGateway_CommitTradeRejectsWithoutSideEffects(t *testing.T) {
	ctx := context.Background()
	for name, gw := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, gw.CreateAccount(ctx, "1", 1000))

			_, err := gw.CommitTrade(ctx, buy("1", "ABC", 1, 1001))
			assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

			_, err = gw.CommitTrade(ctx, sell("1", "ABC", 1, 100))
			assert.ErrorIs(t, err, domain.ErrInsufficientHoldings)

			_, err = gw.CommitTrade(ctx, buy("ghost", "ABC", 1, 1))
			assert.ErrorIs(t, err, domain.ErrAccountNotFound)

			state, err := gw.LoadAccountState(ctx, "1")
			require.NoError(t, err)
			assert.Equal(t, int64(1000), state.Balance)
			assert.Empty(t, state.Positions)

			history, err := gw.TradeHistory(ctx, "1", 0, 0)
			require.NoError(t, err)
			assert.Empty(t, history)
		})
	}
}

func TestGateway_TradeHistoryPaging(t *testing.T) {
	ctx := context.Background()
	for name, gw := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, gw.CreateAccount(ctx, "1", 1_000_000))
			require.NoError(t, gw.CreateAccount(ctx, "2", 1_000_000))

			var seqs []int64
			for i := 0; i < 5; i++ {
				seq, err := gw.CommitTrade(ctx, buy("1", "ABC", 1, 100))
				require.NoError(t, err)
				seqs = append(seqs, seq)
				_, err = gw.CommitTrade(ctx, buy("2", "XYZ", 1, 100))
				require.NoError(t, err)
			}

			page, err := gw.TradeHistory(ctx, "1", seqs[1], 2)
			require.NoError(t, err)
			require.Len(t, page, 2)
			assert.Equal(t, seqs[2], page[0].Seq)
			assert.Equal(t, seqs[3], page[1].Seq)
			for _, tr := range page {
				assert.Equal(t, "1", tr.AccountID)
			}

			page, err = gw.TradeHistory(ctx, "1", math.MaxInt64, 0)
			require.NoError(t, err)
			assert.Empty(t, page)

			_, err = gw.TradeHistory(ctx, "ghost", 0, 0)
			assert.ErrorIs(t, err, domain.ErrAccountNotFound)
		})
	}
}

func TestGateway_ConcurrentSellsNeverOversell(t *testing.T) {
	ctx := context.Background()
	for name, gw := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, gw.CreateAccount(ctx, "1", 1000))
			_, err := gw.CommitTrade(ctx, buy("1", "ABC", 10, 100))
			require.NoError(t, err)

			const workers = 20
			var wg sync.WaitGroup
			var mu sync.Mutex
			ok, rejected := 0, 0
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := gw.CommitTrade(ctx, sell("1", "ABC", 1, 100))
					mu.Lock()
					defer mu.Unlock()
					switch {
					case err == nil:
						ok++
					case errors.Is(err, domain.ErrInsufficientHoldings):
						rejected++
					default:
						t.Errorf("unexpected error: %v", err)
					}
				}()
			}
			wg.Wait()

			assert.Equal(t, 10, ok)
			assert.Equal(t, workers-10, rejected)

			state, err := gw.LoadAccountState(ctx, "1")
			require.NoError(t, err)
			assert.Equal(t, int64(1000), state.Balance)
			assert.Zero(t, state.Quantity("ABC"))

			// Rejected commits never consume a sequence id.
			history, err := gw.TradeHistory(ctx, "1", 0, 0)
			require.NoError(t, err)
			require.Len(t, history, 11)
			for i, tr := range history {
				assert.Equal(t, int64(i+1), tr.Seq)
			}
		})
	}
}

func TestSQLite_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "trader.db")

	db, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, db.CreateAccount(ctx, "1", 50_000))
	require.NoError(t, db.UpsertInstrument(ctx, domain.Instrument{Symbol: "ABC", Name: "ABC Corporation", Price: 12000}))
	seq, err := db.CommitTrade(ctx, buy("1", "ABC", 2, 12000))
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer db.Close()

	state, err := db.LoadAccountState(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, int64(26_000), state.Balance)
	assert.Equal(t, int64(2), state.Quantity("ABC"))

	history, err := db.TradeHistory(ctx, "1", 0, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, seq, history[0].Seq)

	next, err := db.CommitTrade(ctx, sell("1", "ABC", 1, 12000))
	require.NoError(t, err)
	assert.Greater(t, next, seq)
}

func TestOpen_SelectsDurable(t *testing.T) {
	gw := Open(context.Background(), Options{DBPath: filepath.Join(t.TempDir(), "trader.db")}, nil)
	defer gw.Close()
	assert.Equal(t, ModeDurable, gw.Mode())
}

func TestOpen_FallsBackWhenDurableUnavailable(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	// The database directory cannot be created under a regular file.
	gw := Open(context.Background(), Options{
		DBPath:          filepath.Join(blocker, "trader.db"),
		MirrorPath:      filepath.Join(dir, "fallback.csv"),
		MirrorMaxSizeMB: 1,
	}, nil)
	defer gw.Close()

	assert.Equal(t, ModeFallback, gw.Mode())
	require.NoError(t, gw.CreateAccount(context.Background(), "1", 100))
}

func TestOpen_EmptyPathSelectsFallback(t *testing.T) {
	gw := Open(context.Background(), Options{}, nil)
	defer gw.Close()
	assert.Equal(t, ModeFallback, gw.Mode())
}
