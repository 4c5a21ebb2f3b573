package store

import (
	"math"
	"sync"

	"github.com/efreitasn/stocktrader/internal/domain"
	"github.com/google/btree"
)

func tradeLess(a, b domain.Trade) bool {
	return a.Seq < b.Seq
}

// TradeStore is a thread-safe in-memory trade journal. Trades are
// append-only; each account's trades are indexed in a B-tree ordered by
// sequence id.
type TradeStore struct {
	mu        sync.RWMutex
	seq       int64
	byAccount map[string]*btree.BTreeG[domain.Trade] // account_id → trades
}

// NewTradeStore creates an empty TradeStore.
func NewTradeStore() *TradeStore {
	return &TradeStore{
		byAccount: make(map[string]*btree.BTreeG[domain.Trade]),
	}
}

// Append assigns the next sequence id to t, records it and returns the
// stored trade.
func (s *TradeStore) Append(t domain.Trade) domain.Trade {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	t.Seq = s.seq

	tree, ok := s.byAccount[t.AccountID]
	if !ok {
		const degree = 16
		tree = btree.NewG[domain.Trade](degree, tradeLess)
		s.byAccount[t.AccountID] = tree
	}
	tree.ReplaceOrInsert(t)
	return t
}

// History returns the account's trades with Seq > afterSeq in ascending
// sequence order, at most limit of them (limit <= 0 means no limit).
// Returns an empty slice if there are none.
func (s *TradeStore) History(accountID string, afterSeq int64, limit int) []domain.Trade {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Trade, 0)
	tree, ok := s.byAccount[accountID]
	if !ok || afterSeq == math.MaxInt64 {
		return result
	}
	tree.AscendGreaterOrEqual(domain.Trade{Seq: afterSeq + 1}, func(t domain.Trade) bool {
		result = append(result, t)
		return limit <= 0 || len(result) < limit
	})
	return result
}

// LastSeq returns the most recently assigned sequence id, 0 if none.
func (s *TradeStore) LastSeq() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seq
}
