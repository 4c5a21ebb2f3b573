package store

import (
	"errors"
	"math"
	"sync"

	"github.com/efreitasn/stocktrader/internal/domain"
)

// ErrBalanceOverflow is returned when a credit would overflow the balance.
var ErrBalanceOverflow = errors.New("balance_overflow")

// accountEntry holds one account's ledger and portfolio. Fields are only
// touched with mu held.
type accountEntry struct {
	mu        sync.Mutex
	balance   int64
	positions map[string]int64 // symbol → quantity, zero entries deleted
}

// AccountStore is a thread-safe in-memory ledger and portfolio store,
// keyed by account_id. Each account carries its own lock, so mutations on
// different accounts never contend.
type AccountStore struct {
	mu       sync.RWMutex
	accounts map[string]*accountEntry
}

// NewAccountStore creates an empty AccountStore.
func NewAccountStore() *AccountStore {
	return &AccountStore{
		accounts: make(map[string]*accountEntry),
	}
}

// Create adds an account with the given opening balance. It returns
// domain.ErrAccountAlreadyExists if the account already exists.
func (s *AccountStore) Create(id string, balance int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[id]; exists {
		return domain.ErrAccountAlreadyExists
	}
	s.accounts[id] = &accountEntry{
		balance:   balance,
		positions: make(map[string]int64),
	}
	return nil
}

// Exists returns true if an account with the given ID exists.
func (s *AccountStore) Exists(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.accounts[id]
	return ok
}

func (s *AccountStore) entry(id string) (*accountEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return e, nil
}

// Get returns a consistent snapshot of the account's balance and positions.
// It returns domain.ErrAccountNotFound if the account does not exist.
func (s *AccountStore) Get(id string) (domain.AccountState, error) {
	e, err := s.entry(id)
	if err != nil {
		return domain.AccountState{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	positions := make(map[string]int64, len(e.positions))
	for sym, qty := range e.positions {
		positions[sym] = qty
	}
	return domain.AccountState{
		AccountID: id,
		Balance:   e.balance,
		Positions: positions,
	}, nil
}

// Apply adjusts the balance and the symbol position of account id as one
// unit. The deltas are validated first: a negative resulting balance yields
// domain.ErrInsufficientFunds and a negative position
// domain.ErrInsufficientHoldings. The hook runs with the account lock held
// after validation and before the deltas are applied; if it fails the
// account is left untouched. A nil hook is allowed.
func (s *AccountStore) Apply(id, symbol string, balanceDelta, positionDelta int64, hook func() error) error {
	e, err := s.entry(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if balanceDelta > 0 && e.balance > math.MaxInt64-balanceDelta {
		return ErrBalanceOverflow
	}
	balance := e.balance + balanceDelta
	if balance < 0 {
		return domain.ErrInsufficientFunds
	}
	qty := e.positions[symbol] + positionDelta
	if qty < 0 {
		return domain.ErrInsufficientHoldings
	}

	if hook != nil {
		if err := hook(); err != nil {
			return err
		}
	}

	e.balance = balance
	if qty == 0 {
		delete(e.positions, symbol)
	} else {
		e.positions[symbol] = qty
	}
	return nil
}
