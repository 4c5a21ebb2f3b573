package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/efreitasn/stocktrader/internal/domain"
	"github.com/efreitasn/stocktrader/internal/persistence"
)

var symbolRegex = regexp.MustCompile(`^[A-Z]{1,10}$`)

// InstrumentService exposes the instrument catalog.
type InstrumentService struct {
	gw persistence.Gateway
}

// NewInstrumentService creates a new InstrumentService.
func NewInstrumentService(gw persistence.Gateway) *InstrumentService {
	return &InstrumentService{gw: gw}
}

// List returns a snapshot of every instrument ordered by symbol.
func (s *InstrumentService) List(ctx context.Context) ([]domain.Instrument, error) {
	instruments, err := s.gw.ListInstruments(ctx)
	if err != nil {
		return nil, storeErr("list_instruments", err)
	}
	return instruments, nil
}

// Seed adds every instrument that is not in the catalog yet and returns
// how many were added. Instruments already present keep their stored
// price.
func (s *InstrumentService) Seed(ctx context.Context, instruments []domain.Instrument) (int, error) {
	for _, inst := range instruments {
		if !symbolRegex.MatchString(inst.Symbol) {
			return 0, &domain.ValidationError{
				Message: fmt.Sprintf("instrument symbol must match ^[A-Z]{1,10}$, got %q", inst.Symbol),
			}
		}
		if inst.Price <= 0 {
			return 0, &domain.ValidationError{
				Message: fmt.Sprintf("instrument %s: price must be > 0", inst.Symbol),
			}
		}
	}

	added := 0
	for _, inst := range instruments {
		_, err := s.gw.LoadInstrument(ctx, inst.Symbol)
		if err == nil {
			continue
		}
		if !errors.Is(err, domain.ErrUnknownInstrument) {
			return added, fmt.Errorf("seed instrument %s: %w", inst.Symbol, err)
		}
		if err := s.gw.UpsertInstrument(ctx, inst); err != nil {
			return added, fmt.Errorf("seed instrument %s: %w", inst.Symbol, err)
		}
		added++
	}
	return added, nil
}
