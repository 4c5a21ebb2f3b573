package engine

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/efreitasn/stocktrader/internal/domain"
	"github.com/efreitasn/stocktrader/internal/persistence"
)

// newDurableExecutor creates an Executor over a SQLite database in a temp
// dir with instrument X and the given funded accounts.
func newDurableExecutor(t *testing.T, price int64, balances map[string]int64) (*Executor, persistence.Gateway) {
	t.Helper()
	ctx := context.Background()
	gw, err := persistence.OpenSQLite(ctx, filepath.Join(t.TempDir(), "trader.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = gw.Close() })

	if err := gw.UpsertInstrument(ctx, domain.Instrument{Symbol: "X", Name: "X Corp", Price: price}); err != nil {
		t.Fatalf("seed instrument: %v", err)
	}
	for id, balance := range balances {
		if err := gw.CreateAccount(ctx, id, balance); err != nil {
			t.Fatalf("seed account %s: %v", id, err)
		}
	}
	return NewExecutor(gw, NewAccountLocks(), nil), gw
}

func TestExecute_Durable_BuyThenSell(t *testing.T) {
	ex, gw := newDurableExecutor(t, 10000, map[string]int64{"acc-1": 100000})
	ctx := context.Background()

	if _, err := ex.Execute(ctx, "acc-1", "X", 5, domain.SideBuy); err != nil {
		t.Fatalf("buy: %v", err)
	}
	state := mustState(t, gw, "acc-1")
	if state.Balance != 50000 || state.Quantity("X") != 5 {
		t.Fatalf("unexpected state after buy: %+v", state)
	}

	if err := gw.UpsertInstrument(ctx, domain.Instrument{Symbol: "X", Name: "X Corp", Price: 11000}); err != nil {
		t.Fatalf("reprice: %v", err)
	}
	trade, err := ex.Execute(ctx, "acc-1", "X", 5, domain.SideSell)
	if err != nil {
		t.Fatalf("sell: %v", err)
	}
	if trade.Price != 11000 {
		t.Fatalf("expected sell at 11000, got %d", trade.Price)
	}

	state = mustState(t, gw, "acc-1")
	if state.Balance != 105000 {
		t.Fatalf("expected balance 105000, got %d", state.Balance)
	}
	if _, held := state.Positions["X"]; held {
		t.Fatalf("expected position removed, got %v", state.Positions)
	}
	history := mustHistory(t, gw, "acc-1")
	if len(history) != 2 || history[0].Seq != 1 || history[1].Seq != 2 {
		t.Fatalf("unexpected history: %+v", history)
	}
}

func TestExecute_Durable_RejectionsLeaveStateUntouched(t *testing.T) {
	ex, gw := newDurableExecutor(t, 10000, map[string]int64{"acc-1": 5000})
	ctx := context.Background()

	cases := []struct {
		account, symbol string
		qty             int64
		side            domain.Side
		want            error
	}{
		{"acc-1", "X", 1, domain.SideBuy, domain.ErrInsufficientFunds},
		{"acc-1", "X", 1, domain.SideSell, domain.ErrInsufficientHoldings},
		{"acc-1", "NOPE", 1, domain.SideBuy, domain.ErrUnknownInstrument},
		{"ghost", "X", 1, domain.SideBuy, domain.ErrAccountNotFound},
	}
	for _, tc := range cases {
		if _, err := ex.Execute(ctx, tc.account, tc.symbol, tc.qty, tc.side); !errors.Is(err, tc.want) {
			t.Fatalf("%s %s %s: expected %v, got %v", tc.account, tc.side, tc.symbol, tc.want, err)
		}
	}

	state := mustState(t, gw, "acc-1")
	if state.Balance != 5000 || len(state.Positions) != 0 {
		t.Fatalf("rejections changed state: %+v", state)
	}
	if h := mustHistory(t, gw, "acc-1"); len(h) != 0 {
		t.Fatalf("rejections recorded trades: %+v", h)
	}
}

func TestExecute_Durable_ConcurrentSellsSameAccount(t *testing.T) {
	ex, gw := newDurableExecutor(t, 10000, map[string]int64{"acc-1": 100000})
	ctx := context.Background()
	if _, err := ex.Execute(ctx, "acc-1", "X", 10, domain.SideBuy); err != nil {
		t.Fatalf("buy: %v", err)
	}

	const workers = 30
	var wg sync.WaitGroup
	var filled atomic.Int64
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ex.Execute(ctx, "acc-1", "X", 1, domain.SideSell)
			switch {
			case err == nil:
				filled.Add(1)
			case errors.Is(err, domain.ErrInsufficientHoldings):
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if filled.Load() != 10 {
		t.Fatalf("expected 10 fills, got %d", filled.Load())
	}
	state := mustState(t, gw, "acc-1")
	if state.Balance != 100000 || state.Quantity("X") != 0 {
		t.Fatalf("unexpected final state: %+v", state)
	}
}

func TestExecute_Durable_ConcurrentAccountsSeqGapFree(t *testing.T) {
	accounts := []string{"a", "b", "c", "d"}
	balances := make(map[string]int64, len(accounts))
	for _, id := range accounts {
		balances[id] = 1_000_000
	}
	ex, gw := newDurableExecutor(t, 100, balances)
	ctx := context.Background()

	const perAccount = 10
	var wg sync.WaitGroup
	for _, id := range accounts {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for i := 0; i < perAccount; i++ {
				if _, err := ex.Execute(ctx, id, "X", 1, domain.SideBuy); err != nil {
					t.Errorf("account %s: %v", id, err)
				}
			}
		}(id)
	}
	wg.Wait()

	seen := make(map[int64]bool)
	for _, id := range accounts {
		history := mustHistory(t, gw, id)
		if len(history) != perAccount {
			t.Fatalf("account %s: expected %d trades, got %d", id, perAccount, len(history))
		}
		for _, tr := range history {
			if seen[tr.Seq] {
				t.Fatalf("duplicate seq %d", tr.Seq)
			}
			seen[tr.Seq] = true
		}
		if state := mustState(t, gw, id); state.Balance != 1_000_000-perAccount*100 || state.Quantity("X") != perAccount {
			t.Fatalf("account %s: unexpected state %+v", id, state)
		}
	}
	for seq := int64(1); seq <= int64(len(accounts)*perAccount); seq++ {
		if !seen[seq] {
			t.Fatalf("missing seq %d", seq)
		}
	}
}
