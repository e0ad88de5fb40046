package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/guilhermegsn/finance-control/internal/cache"
	"github.com/guilhermegsn/finance-control/internal/core"
	"github.com/guilhermegsn/finance-control/internal/ledger"
)

type cachedBalance struct {
	gen uint64
	rev int64
	bal core.Money
}

// CachedBalance memoizes accumulated balances per month until the next
// committed write. Entries are tagged with the store revision they were
// computed at, so a commit from another process sharing the store is seen
// on the next read even without Invalidate. Concurrent misses for the same
// month share one scan.
type CachedBalance struct {
	store ledger.Store
	calc  *BalanceCalculator
	cache *cache.LRUCache[int, cachedBalance] // keyed by core.MonthIndex
	group singleflight.Group
	gen   atomic.Uint64
}

func NewCachedBalance(store ledger.Store, calc *BalanceCalculator, size int, ttl time.Duration) *CachedBalance {
	return &CachedBalance{
		store: store,
		calc:  calc,
		cache: cache.NewLRUCache[int, cachedBalance](size, ttl),
	}
}

// Cleaner exposes the underlying cache for periodic expiry.
func (c *CachedBalance) Cleaner() cache.Cleaner {
	return c.cache
}

// Begin pins the current generation. An entry is served only to callers
// pinned to the generation it was computed in whose read transaction sees
// the same store revision.
func (c *CachedBalance) Begin() BalanceFunc {
	gen := c.gen.Load()
	return func(ctx context.Context, r ledger.Reader, year, month int) (core.Money, error) {
		rev, err := r.Revision(ctx)
		if err != nil {
			return core.Money{}, fmt.Errorf("read revision: %w", err)
		}
		key := core.MonthIndex(year, month)
		if v, ok := c.cache.Get(key); ok && v.gen == gen && v.rev == rev {
			return v.bal, nil
		}

		v, err, _ := c.group.Do(fmt.Sprintf("%d@%d@%d", key, gen, rev), func() (interface{}, error) {
			bal, err := c.calc.Accumulate(ctx, r, year, month)
			if err != nil {
				return core.Money{}, err
			}
			if c.gen.Load() == gen {
				c.cache.Set(key, cachedBalance{gen: gen, rev: rev, bal: bal})
			}
			return bal, nil
		})
		if err != nil {
			return core.Money{}, err
		}
		return v.(core.Money), nil
	}
}

func (c *CachedBalance) AccumulatedBalance(ctx context.Context, year, month int) (core.Money, error) {
	return accumulatedBalance(ctx, c.store, c, year, month)
}

// Invalidate drops every cached balance. Call it after each committed write.
func (c *CachedBalance) Invalidate() {
	c.gen.Add(1)
	if n := c.cache.Purge(); n > 0 {
		slog.Debug("Balance cache invalidated", "entries", n)
	}
}

// Size reports the number of cached months.
func (c *CachedBalance) Size() int {
	return c.cache.Size()
}

// Stats reports cache hits and misses since start.
func (c *CachedBalance) Stats() cache.Stats {
	return c.cache.Stats()
}
