package persistence

import (
	"encoding/csv"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/efreitasn/stocktrader/internal/domain"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Mirror appends a CSV record of every fallback write to a rotating log
// file. It exists for forensic replay only and is never read back.
// A nil *Mirror is valid and discards everything.
type Mirror struct {
	mu     sync.Mutex
	out    io.WriteCloser
	w      *csv.Writer
	logger *slog.Logger
	now    func() time.Time
}

// NewMirror opens a mirror that writes to path, rotating after maxSizeMB.
func NewMirror(path string, maxSizeMB int, logger *slog.Logger) *Mirror {
	return newMirror(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: 5,
		Compress:   true,
	}, logger)
}

func newMirror(out io.WriteCloser, logger *slog.Logger) *Mirror {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mirror{
		out:    out,
		w:      csv.NewWriter(out),
		logger: logger,
		now:    time.Now,
	}
}

// RecordTrade writes: trade,seq,trade_id,account_id,symbol,qty,price,side,executed_at.
func (m *Mirror) RecordTrade(t domain.Trade) {
	if m == nil {
		return
	}
	m.write([]string{
		"trade",
		strconv.FormatInt(t.Seq, 10),
		t.TradeID,
		t.AccountID,
		t.Symbol,
		strconv.FormatInt(t.Quantity, 10),
		strconv.FormatInt(t.Price, 10),
		string(t.Side),
		t.ExecutedAt.UTC().Format(time.RFC3339Nano),
	})
}

// RecordInstrument writes: instrument,symbol,name,price,ts.
func (m *Mirror) RecordInstrument(inst domain.Instrument) {
	if m == nil {
		return
	}
	m.write([]string{
		"instrument",
		inst.Symbol,
		inst.Name,
		strconv.FormatInt(inst.Price, 10),
		m.now().UTC().Format(time.RFC3339Nano),
	})
}

// RecordAccount writes: account,id,balance,ts.
func (m *Mirror) RecordAccount(accountID string, balance int64) {
	if m == nil {
		return
	}
	m.write([]string{
		"account",
		accountID,
		strconv.FormatInt(balance, 10),
		m.now().UTC().Format(time.RFC3339Nano),
	})
}

// write never fails the caller; mirror errors are only logged.
func (m *Mirror) write(record []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.w.Write(record); err == nil {
		m.w.Flush()
	}
	if err := m.w.Error(); err != nil {
		m.logger.Warn("fallback mirror write failed",
			slog.String("kind", record[0]),
			slog.String("error", err.Error()),
		)
	}
}

func (m *Mirror) Close() error {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.w.Flush()
	return m.out.Close()
}
