package services

import (
	"context"
	"sync"
	"time"

	"chaindice-backend/internal/chain"
)

type balanceKey struct {
	owner string
	asset string
}

type balanceEntry struct {
	amount     float64
	capturedAt time.Time
}

// BalanceOracle caches on-chain balances for a few seconds so repeated
// admission checks do not hammer the node. Any path about to decide on a
// balance invalidates first; the cache is a throttle, not a source of truth.
type BalanceOracle struct {
	client chain.Client

	mu      sync.Mutex
	entries map[balanceKey]balanceEntry
	ttl     time.Duration
	maxSize int
	now     func() time.Time
}

func NewBalanceOracle(client chain.Client) *BalanceOracle {
	return &BalanceOracle{
		client:  client,
		entries: make(map[balanceKey]balanceEntry),
		ttl:     DefaultBalanceTTL,
		maxSize: DefaultBalanceCacheCap,
		now:     time.Now,
	}
}

// GetBalance returns the cached amount while the entry is inside its TTL,
// otherwise fetches from the chain and caches the result.
func (o *BalanceOracle) GetBalance(ctx context.Context, owner, asset string) (float64, error) {
	key := balanceKey{owner: owner, asset: asset}

	o.mu.Lock()
	entry, ok := o.entries[key]
	fresh := ok && o.now().Sub(entry.capturedAt) < o.ttl
	o.mu.Unlock()

	if fresh {
		return entry.amount, nil
	}
	return o.fetch(ctx, key)
}

// GetFreshBalance bypasses the cache: invalidate, then fetch.
func (o *BalanceOracle) GetFreshBalance(ctx context.Context, owner, asset string) (float64, error) {
	o.Invalidate(owner, asset)
	return o.fetch(ctx, balanceKey{owner: owner, asset: asset})
}

// Invalidate drops cached entries for the owner: one asset when given, all
// of the owner's assets otherwise.
func (o *BalanceOracle) Invalidate(owner string, asset ...string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if len(asset) > 0 {
		for _, a := range asset {
			delete(o.entries, balanceKey{owner: owner, asset: a})
		}
		return
	}
	for key := range o.entries {
		if key.owner == owner {
			delete(o.entries, key)
		}
	}
}

func (o *BalanceOracle) fetch(ctx context.Context, key balanceKey) (float64, error) {
	amount, err := o.client.GetBalance(ctx, key.owner, key.asset)
	if err != nil {
		return 0, err
	}

	o.mu.Lock()
	if len(o.entries) >= o.maxSize {
		o.evictOldestLocked()
	}
	o.entries[key] = balanceEntry{amount: amount, capturedAt: o.now()}
	o.mu.Unlock()

	return amount, nil
}

func (o *BalanceOracle) evictOldestLocked() {
	var oldestKey balanceKey
	var oldestAt time.Time
	first := true
	for key, entry := range o.entries {
		if first || entry.capturedAt.Before(oldestAt) {
			oldestKey = key
			oldestAt = entry.capturedAt
			first = false
		}
	}
	if !first {
		delete(o.entries, oldestKey)
	}
}

func (o *BalanceOracle) cacheSize() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.entries)
}
