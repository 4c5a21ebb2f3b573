package domain

import (
	"fmt"
	"strings"
	"time"
)

// Side indicates whether a trade bought or sold the instrument.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// ParseSide accepts "buy"/"sell" in any case.
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToUpper(strings.TrimSpace(s))) {
	case SideBuy:
		return SideBuy, nil
	case SideSell:
		return SideSell, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSide, s)
}

// Trade is an immutable journal entry for one executed market order.
type Trade struct {
	Seq        int64 // assigned by the journal at append time
	TradeID    string
	AccountID  string
	Symbol     string
	Quantity   int64
	Price      int64 // cents
	Side       Side
	ExecutedAt time.Time
}

// Notional returns price × quantity in cents.
func (t Trade) Notional() int64 {
	return t.Price * t.Quantity
}

// TradeCommit is the single atomic write handed to the persistence layer:
// the balance and position deltas of one trade plus its journal record.
type TradeCommit struct {
	AccountID     string
	BalanceDelta  int64 // cents, negative for buys
	PositionDelta int64 // negative for sells
	Trade         Trade
}

// NewTradeCommit builds the commit for trade t.
func NewTradeCommit(t Trade) TradeCommit {
	c := TradeCommit{
		AccountID: t.AccountID,
		Trade:     t,
	}
	if t.Side == SideBuy {
		c.BalanceDelta = -t.Notional()
		c.PositionDelta = t.Quantity
	} else {
		c.BalanceDelta = t.Notional()
		c.PositionDelta = -t.Quantity
	}
	return c
}
