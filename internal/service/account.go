package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/efreitasn/stocktrader/internal/domain"
	"github.com/efreitasn/stocktrader/internal/persistence"
)

const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 1000
)

var accountIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// OpenAccountRequest represents the input for account provisioning.
type OpenAccountRequest struct {
	AccountID   string
	InitialCash float64
}

// AccountSeed is one account provisioned at startup.
type AccountSeed struct {
	AccountID string
	Balance   int64 // cents
}

// AccountService handles account provisioning and the read-only views of
// an account's cash, positions and trade history.
type AccountService struct {
	gw persistence.Gateway
}

// NewAccountService creates a new AccountService.
func NewAccountService(gw persistence.Gateway) *AccountService {
	return &AccountService{gw: gw}
}

// Open validates the request and creates a cash-only account.
func (s *AccountService) Open(ctx context.Context, req OpenAccountRequest) (domain.AccountState, error) {
	if !accountIDRegex.MatchString(req.AccountID) {
		return domain.AccountState{}, &domain.ValidationError{
			Message: "account_id must match ^[a-zA-Z0-9_-]{1,64}$",
		}
	}
	if req.InitialCash < 0 {
		return domain.AccountState{}, &domain.ValidationError{
			Message: "initial_cash must be >= 0",
		}
	}
	cents, err := domain.DollarsToCents(req.InitialCash)
	if err != nil {
		return domain.AccountState{}, &domain.ValidationError{
			Message: "initial_cash must have at most 2 decimal places",
		}
	}

	if err := s.gw.CreateAccount(ctx, req.AccountID, cents); err != nil {
		return domain.AccountState{}, storeErr("create_account", err)
	}
	return domain.AccountState{
		AccountID: req.AccountID,
		Balance:   cents,
		Positions: map[string]int64{},
	}, nil
}

// Seed creates every account that does not exist yet and returns how many
// were created. Existing accounts keep their stored balance.
func (s *AccountService) Seed(ctx context.Context, accounts []AccountSeed) (int, error) {
	created := 0
	for _, a := range accounts {
		err := s.gw.CreateAccount(ctx, a.AccountID, a.Balance)
		switch {
		case err == nil:
			created++
		case errors.Is(err, domain.ErrAccountAlreadyExists):
		default:
			return created, fmt.Errorf("seed account %s: %w", a.AccountID, err)
		}
	}
	return created, nil
}

// GetBalance returns the account's cash balance in cents.
func (s *AccountService) GetBalance(ctx context.Context, accountID string) (int64, error) {
	state, err := s.GetPortfolio(ctx, accountID)
	if err != nil {
		return 0, err
	}
	return state.Balance, nil
}

// GetPortfolio returns a consistent snapshot of the account's balance and
// positions.
func (s *AccountService) GetPortfolio(ctx context.Context, accountID string) (domain.AccountState, error) {
	state, err := s.gw.LoadAccountState(ctx, accountID)
	if err != nil {
		return domain.AccountState{}, storeErr("load_account", err)
	}
	return state, nil
}

// GetTradeHistory returns the account's trades with seq > afterSeq in
// ascending order. A zero limit selects the default page size.
func (s *AccountService) GetTradeHistory(ctx context.Context, accountID string, afterSeq int64, limit int) ([]domain.Trade, error) {
	if afterSeq < 0 {
		return nil, &domain.ValidationError{
			Message: "after must be >= 0",
		}
	}
	if limit == 0 {
		limit = defaultHistoryLimit
	}
	if limit < 1 || limit > maxHistoryLimit {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("limit must be between 1 and %d", maxHistoryLimit),
		}
	}

	trades, err := s.gw.TradeHistory(ctx, accountID, afterSeq, limit)
	if err != nil {
		return nil, storeErr("trade_history", err)
	}
	return trades, nil
}

// storeErr passes domain errors through and reports anything else as a
// persistence failure.
func storeErr(op string, err error) error {
	if domain.IsRejection(err) || errors.Is(err, domain.ErrAccountAlreadyExists) {
		return err
	}
	return &domain.PersistenceError{Op: op, Err: err}
}
