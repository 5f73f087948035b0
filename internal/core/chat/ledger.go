package chat

import (
	"context"
	"sync"
	"time"
)

// Ledger remembers which participant still owes a contract_created event.
// Claim must succeed at most once per (contract, user) pair across every
// connection attempt.
type Ledger interface {
	MarkPending(ctx context.Context, contractID, userID int64) error
	Claim(ctx context.Context, contractID, userID int64) (bool, error)
}

type ledgerKey struct {
	contractID int64
	userID     int64
}

// MemoryLedger is an in-process Ledger. Entries expire after ttl; a zero
// ttl keeps them until claimed.
type MemoryLedger struct {
	mu      sync.Mutex
	pending map[ledgerKey]time.Time
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryLedger(ttl time.Duration) *MemoryLedger {
	return &MemoryLedger{
		pending: make(map[ledgerKey]time.Time),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (l *MemoryLedger) MarkPending(_ context.Context, contractID, userID int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for k, exp := range l.pending {
		if !exp.IsZero() && !exp.After(now) {
			delete(l.pending, k)
		}
	}
	var exp time.Time
	if l.ttl > 0 {
		exp = now.Add(l.ttl)
	}
	l.pending[ledgerKey{contractID, userID}] = exp
	return nil
}

func (l *MemoryLedger) Claim(_ context.Context, contractID, userID int64) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	k := ledgerKey{contractID, userID}
	exp, ok := l.pending[k]
	if !ok {
		return false, nil
	}
	delete(l.pending, k)
	return exp.IsZero() || exp.After(l.now()), nil
}
