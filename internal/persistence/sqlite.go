package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/efreitasn/stocktrader/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLite is the durable Gateway. Every write survives a restart and
// CommitTrade covers its three writes with one transaction.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path, verifies the
// connection and applies the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection serializes writers and keeps the pragmas below in effect.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) Mode() Mode { return ModeDurable }

func (s *SQLite) LoadInstrument(ctx context.Context, symbol string) (domain.Instrument, error) {
	inst := domain.Instrument{Symbol: symbol}
	err := s.db.QueryRowContext(ctx,
		`SELECT name, price FROM instruments WHERE symbol = ?`, symbol,
	).Scan(&inst.Name, &inst.Price)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Instrument{}, domain.ErrUnknownInstrument
	}
	if err != nil {
		return domain.Instrument{}, err
	}
	return inst, nil
}

func (s *SQLite) UpsertInstrument(ctx context.Context, inst domain.Instrument) error {
	if inst.Price <= 0 {
		return fmt.Errorf("instrument %s: price must be positive, got %d", inst.Symbol, inst.Price)
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO instruments (symbol, name, price) VALUES (?, ?, ?)
ON CONFLICT(symbol) DO UPDATE SET price = excluded.price`,
		inst.Symbol, inst.Name, inst.Price,
	)
	return err
}

func (s *SQLite) ListInstruments(ctx context.Context) ([]domain.Instrument, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT symbol, name, price FROM instruments ORDER BY symbol`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.Instrument, 0)
	for rows.Next() {
		var inst domain.Instrument
		if err := rows.Scan(&inst.Symbol, &inst.Name, &inst.Price); err != nil {
			return nil, err
		}
		result = append(result, inst)
	}
	return result, rows.Err()
}

func (s *SQLite) CreateAccount(ctx context.Context, accountID string, balance int64) error {
	if balance < 0 {
		return fmt.Errorf("account %s: opening balance must be >= 0, got %d", accountID, balance)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (id, balance) VALUES (?, ?) ON CONFLICT(id) DO NOTHING`,
		accountID, balance,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrAccountAlreadyExists
	}
	return nil
}

func (s *SQLite) LoadAccountState(ctx context.Context, accountID string) (domain.AccountState, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.AccountState{}, err
	}
	defer func() { _ = tx.Rollback() }()

	state := domain.AccountState{
		AccountID: accountID,
		Positions: make(map[string]int64),
	}
	err = tx.QueryRowContext(ctx, `SELECT balance FROM accounts WHERE id = ?`, accountID).Scan(&state.Balance)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.AccountState{}, domain.ErrAccountNotFound
	}
	if err != nil {
		return domain.AccountState{}, err
	}

	rows, err := tx.QueryContext(ctx, `SELECT symbol, qty FROM positions WHERE account_id = ? AND qty > 0`, accountID)
	if err != nil {
		return domain.AccountState{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var symbol string
		var qty int64
		if err := rows.Scan(&symbol, &qty); err != nil {
			return domain.AccountState{}, err
		}
		state.Positions[symbol] = qty
	}
	if err := rows.Err(); err != nil {
		return domain.AccountState{}, err
	}
	return state, nil
}

// CommitTrade applies the balance delta, the position delta and the journal
// insert in one transaction. The guarded updates refuse to take a balance
// or a position below zero; any failure rolls back all three writes.
func (s *SQLite) CommitTrade(ctx context.Context, c domain.TradeCommit) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE accounts SET balance = balance + ? WHERE id = ? AND balance + ? >= 0`,
		c.BalanceDelta, c.AccountID, c.BalanceDelta,
	)
	if err != nil {
		return 0, fmt.Errorf("update balance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, s.missingOr(ctx, tx, c.AccountID, domain.ErrInsufficientFunds)
	}

	symbol := c.Trade.Symbol
	switch {
	case c.PositionDelta > 0:
		_, err = tx.ExecContext(ctx, `
INSERT INTO positions (account_id, symbol, qty) VALUES (?, ?, ?)
ON CONFLICT(account_id, symbol) DO UPDATE SET qty = qty + excluded.qty`,
			c.AccountID, symbol, c.PositionDelta,
		)
		if err != nil {
			return 0, fmt.Errorf("update position: %w", err)
		}
	case c.PositionDelta < 0:
		res, err = tx.ExecContext(ctx,
			`UPDATE positions SET qty = qty + ? WHERE account_id = ? AND symbol = ? AND qty + ? >= 0`,
			c.PositionDelta, c.AccountID, symbol, c.PositionDelta,
		)
		if err != nil {
			return 0, fmt.Errorf("update position: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return 0, domain.ErrInsufficientHoldings
		}
		if _, err = tx.ExecContext(ctx,
			`DELETE FROM positions WHERE account_id = ? AND symbol = ? AND qty = 0`,
			c.AccountID, symbol,
		); err != nil {
			return 0, fmt.Errorf("prune position: %w", err)
		}
	}

	t := c.Trade
	res, err = tx.ExecContext(ctx, `
INSERT INTO trades (trade_id, account_id, symbol, qty, price, side, executed_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.TradeID, c.AccountID, t.Symbol, t.Quantity, t.Price, string(t.Side),
		t.ExecutedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("insert trade: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("trade seq: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return seq, nil
}

// missingOr distinguishes an unknown account from a failed guard.
func (s *SQLite) missingOr(ctx context.Context, tx *sql.Tx, accountID string, guard error) error {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM accounts WHERE id = ?`, accountID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrAccountNotFound
	}
	if err != nil {
		return err
	}
	return guard
}

func (s *SQLite) TradeHistory(ctx context.Context, accountID string, afterSeq int64, limit int) ([]domain.Trade, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM accounts WHERE id = ?`, accountID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT seq_id, trade_id, account_id, symbol, qty, price, side, executed_at
FROM trades
WHERE account_id = ? AND seq_id > ?
ORDER BY seq_id
LIMIT ?`,
		accountID, afterSeq, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.Trade, 0)
	for rows.Next() {
		var t domain.Trade
		var side, executedAt string
		if err := rows.Scan(&t.Seq, &t.TradeID, &t.AccountID, &t.Symbol, &t.Quantity, &t.Price, &side, &executedAt); err != nil {
			return nil, err
		}
		t.Side = domain.Side(side)
		if t.ExecutedAt, err = time.Parse(time.RFC3339Nano, executedAt); err != nil {
			return nil, fmt.Errorf("trade %d: parse executed_at: %w", t.Seq, err)
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
