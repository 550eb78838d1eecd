// Package balance keeps last-known SUI balances and refreshes them from the ledger.
package balance

import (
	"context"
	"fmt"
	"maps"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/suizk/internal/ledger"
	"github.com/and161185/suizk/internal/metrics"
)

// DefaultInterval is the polling period of Refresher.Run.
const DefaultInterval = 5 * time.Second

// Cache maps address to balance in MIST.
type Cache struct {
	mu sync.RWMutex
	m  map[string]uint64
}

// NewCache returns an empty cache.
func NewCache() *Cache { return &Cache{m: map[string]uint64{}} }

// Merge overlays update onto the cache. Addresses absent from update keep
// their previous value.
func (c *Cache) Merge(update map[string]uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	maps.Copy(c.m, update)
}

// Get returns the cached balance of addr.
func (c *Cache) Get(addr string) (uint64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.m[addr]
	return v, ok
}

// Snapshot returns a copy of the cache.
func (c *Cache) Snapshot() map[string]uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.m)
}

// FormatSUI renders a MIST amount as SUI with up to nine decimals.
func FormatSUI(mist uint64) string {
	whole := mist / ledger.MistPerSui
	frac := mist % ledger.MistPerSui
	if frac == 0 {
		return strconv.FormatUint(whole, 10)
	}
	s := strings.TrimRight(fmt.Sprintf("%09d", frac), "0")
	return strconv.FormatUint(whole, 10) + "." + s
}

// AddressSource lists the addresses to refresh on each cycle.
type AddressSource func(ctx context.Context) ([]string, error)

// Refresher polls the ledger for balances.
type Refresher struct {
	ledger   ledger.Ledger
	cache    *Cache
	interval time.Duration
	log      *zap.Logger
}

// NewRefresher constructs a refresher. Zero interval means DefaultInterval.
func NewRefresher(l ledger.Ledger, cache *Cache, interval time.Duration, log *zap.Logger) *Refresher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Refresher{ledger: l, cache: cache, interval: interval, log: log}
}

// Cache returns the cache this refresher writes to.
func (r *Refresher) Cache() *Cache { return r.cache }

// Refresh fetches balances of addrs one after another and merges the ones
// that succeeded. Failures are logged and skipped; the cycle stops early
// only when ctx is done.
func (r *Refresher) Refresh(ctx context.Context, addrs ...string) map[string]uint64 {
	got := make(map[string]uint64, len(addrs))
	for _, a := range addrs {
		if ctx.Err() != nil {
			break
		}
		v, err := r.ledger.Balance(ctx, a)
		if err != nil {
			metrics.BalanceRefreshes.WithLabelValues("error").Inc()
			r.log.Warn("balance lookup failed", zap.String("address", a), zap.Error(err))
			continue
		}
		metrics.BalanceRefreshes.WithLabelValues("ok").Inc()
		got[a] = v
	}
	r.cache.Merge(got)
	return got
}

// Run refreshes immediately and then on every tick until ctx is done.
func (r *Refresher) Run(ctx context.Context, src AddressSource) error {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		addrs, err := src(ctx)
		if err != nil {
			r.log.Warn("list accounts", zap.Error(err))
		} else {
			r.Refresh(ctx, addrs...)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}
