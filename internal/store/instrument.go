package store

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/efreitasn/stocktrader/internal/domain"
)

// instrumentEntry keeps the price in an atomic so readers never observe a
// torn value and never wait on the price writer.
type instrumentEntry struct {
	symbol string
	name   string
	price  atomic.Int64
}

func (e *instrumentEntry) snapshot() domain.Instrument {
	return domain.Instrument{
		Symbol: e.symbol,
		Name:   e.name,
		Price:  e.price.Load(),
	}
}

// InstrumentStore is the in-memory instrument catalog, keyed by symbol.
// The map lock only guards membership; price reads and writes are
// per-instrument atomics.
type InstrumentStore struct {
	mu          sync.RWMutex
	instruments map[string]*instrumentEntry
}

// NewInstrumentStore creates an empty InstrumentStore.
func NewInstrumentStore() *InstrumentStore {
	return &InstrumentStore{
		instruments: make(map[string]*instrumentEntry),
	}
}

// Upsert adds the instrument, or updates the price of an existing one.
// The display name is fixed when the instrument is first added.
func (s *InstrumentStore) Upsert(inst domain.Instrument) error {
	if inst.Price <= 0 {
		return fmt.Errorf("instrument %s: price must be positive, got %d", inst.Symbol, inst.Price)
	}

	s.mu.RLock()
	e, ok := s.instruments[inst.Symbol]
	s.mu.RUnlock()
	if ok {
		e.price.Store(inst.Price)
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Re-check after acquiring the write lock.
	if e, ok := s.instruments[inst.Symbol]; ok {
		e.price.Store(inst.Price)
		return nil
	}
	e = &instrumentEntry{symbol: inst.Symbol, name: inst.Name}
	e.price.Store(inst.Price)
	s.instruments[inst.Symbol] = e
	return nil
}

// Get returns the instrument for symbol, or domain.ErrUnknownInstrument.
func (s *InstrumentStore) Get(symbol string) (domain.Instrument, error) {
	s.mu.RLock()
	e, ok := s.instruments[symbol]
	s.mu.RUnlock()
	if !ok {
		return domain.Instrument{}, domain.ErrUnknownInstrument
	}
	return e.snapshot(), nil
}

// List returns every instrument ordered by symbol.
func (s *InstrumentStore) List() []domain.Instrument {
	s.mu.RLock()
	entries := make([]*instrumentEntry, 0, len(s.instruments))
	for _, e := range s.instruments {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	result := make([]domain.Instrument, len(entries))
	for i, e := range entries {
		result[i] = e.snapshot()
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Symbol < result[j].Symbol })
	return result
}
