package engine

import (
	"hash/fnv"
	"sync"
)

const lockStripes = 256

// AccountLocks maps account ids onto a fixed set of mutexes. Holding an
// account's mutex is the account's exclusive region: trades on the same
// account are serialized, and accounts on different stripes never contend.
// Memory use does not depend on how many account ids are seen.
type AccountLocks struct {
	stripes [lockStripes]sync.Mutex
}

// NewAccountLocks creates an AccountLocks.
func NewAccountLocks() *AccountLocks {
	return &AccountLocks{}
}

// Get returns the mutex for accountID. The same account always maps to
// the same mutex.
func (l *AccountLocks) Get(accountID string) *sync.Mutex {
	return &l.stripes[stripeOf(accountID)]
}

func stripeOf(accountID string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(accountID))
	return h.Sum32() % lockStripes
}
