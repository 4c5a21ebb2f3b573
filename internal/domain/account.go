package domain

import "sort"

// AccountState is a point-in-time view of one account's cash balance and
// positions, read under the account's exclusive region.
type AccountState struct {
	AccountID string
	Balance   int64            // cents
	Positions map[string]int64 // symbol → quantity, never holds zero entries
}

// Quantity returns the held quantity for symbol, or 0 when the account
// holds no position in it.
func (s AccountState) Quantity(symbol string) int64 {
	return s.Positions[symbol]
}

// Position is a single (account, symbol) holding.
type Position struct {
	Symbol   string
	Quantity int64
}

// SortedPositions returns the positions ordered by symbol.
func (s AccountState) SortedPositions() []Position {
	out := make([]Position, 0, len(s.Positions))
	for sym, qty := range s.Positions {
		out = append(out, Position{Symbol: sym, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}
