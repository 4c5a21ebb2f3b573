package engine

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/stocktrader/internal/domain"
	"github.com/efreitasn/stocktrader/internal/persistence"
)

// PriceUpdater periodically moves every instrument's price by a uniformly
// random fraction in [-maxChange, +maxChange], never below floor.
type PriceUpdater struct {
	gw        persistence.Gateway
	interval  time.Duration
	maxChange decimal.Decimal
	floor     int64 // cents
	logger    *slog.Logger

	rngMu sync.Mutex
	rng   *rand.Rand

	mu     sync.Mutex // protects cancel and done
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPriceUpdater creates a stopped PriceUpdater. A nil rng seeds a new
// PCG source from the clock.
func NewPriceUpdater(
	gw persistence.Gateway,
	interval time.Duration,
	maxChange float64,
	floor int64,
	rng *rand.Rand,
	logger *slog.Logger,
) *PriceUpdater {
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PriceUpdater{
		gw:        gw,
		interval:  interval,
		maxChange: decimal.NewFromFloat(maxChange),
		floor:     floor,
		rng:       rng,
		logger:    logger,
	}
}

// Start launches the update loop. It is a no-op while already running.
// The loop runs until Stop is called or ctx is cancelled; either way the
// updater can be started again afterwards.
func (u *PriceUpdater) Start(ctx context.Context) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.done != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	u.cancel = cancel
	u.done = done

	go func() {
		defer func() {
			u.mu.Lock()
			if u.done == done {
				cancel()
				u.cancel, u.done = nil, nil
			}
			u.mu.Unlock()
			close(done)
		}()

		ticker := time.NewTicker(u.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				u.tick(ctx)
			}
		}
	}()
	u.logger.Info("price updater started", slog.Duration("interval", u.interval))
}

// Stop signals the loop to exit and waits for it. After Stop returns no
// further price writes happen until the next Start.
func (u *PriceUpdater) Stop() {
	u.mu.Lock()
	cancel, done := u.cancel, u.done
	u.cancel, u.done = nil, nil
	u.mu.Unlock()

	if done == nil {
		return
	}
	cancel()
	<-done
	u.logger.Info("price updater stopped")
}

// Running reports whether the update loop is active.
func (u *PriceUpdater) Running() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.done != nil
}

// tick updates every instrument once. Cancellation is checked between
// instruments; a write that has started always completes.
func (u *PriceUpdater) tick(ctx context.Context) {
	instruments, err := u.gw.ListInstruments(ctx)
	if err != nil {
		if ctx.Err() == nil {
			u.logger.Error("price update: list instruments failed", slog.String("error", err.Error()))
		}
		return
	}

	for _, inst := range instruments {
		if ctx.Err() != nil {
			return
		}

		next := domain.ApplyChange(inst.Price, u.drawChange(), u.floor)
		inst.Price = next
		if err := u.gw.UpsertInstrument(context.WithoutCancel(ctx), inst); err != nil {
			u.logger.Error("price update failed",
				slog.String("symbol", inst.Symbol),
				slog.String("error", err.Error()),
			)
			continue
		}
		u.logger.Debug("price updated",
			slog.String("symbol", inst.Symbol),
			slog.Int64("price", next),
		)
	}
}

// drawChange returns a fraction uniformly distributed in [-maxChange, +maxChange].
func (u *PriceUpdater) drawChange() decimal.Decimal {
	u.rngMu.Lock()
	f := u.rng.Float64()
	u.rngMu.Unlock()
	return decimal.NewFromFloat(2*f - 1).Mul(u.maxChange)
}
