package limiter

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Rate applies an in-process token bucket per key and evicts idle entries.
type Rate struct {
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time

	mu    sync.Mutex
	byKey map[string]*entry
	hits  uint64
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRate allows one request per every interval per key, with the given burst.
func NewRate(every time.Duration, burst int) *Rate {
	if burst <= 0 {
		burst = 1
	}
	return &Rate{
		limit:   rate.Every(every),
		burst:   burst,
		idleTTL: 10 * every,
		now:     time.Now,
		byKey:   make(map[string]*entry),
	}
}

// Allow implements Limiter.
func (l *Rate) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.byKey[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.byKey[key] = e
	}
	e.lastSeen = now

	l.hits++
	if l.hits%256 == 0 {
		cutoff := now.Add(-l.idleTTL)
		for k, v := range l.byKey {
			if v.lastSeen.Before(cutoff) {
				delete(l.byKey, k)
			}
		}
	}

	r := e.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, 0, nil
	}
	if d := r.DelayFrom(now); d > 0 {
		r.CancelAt(now)
		return false, d, nil
	}
	return true, 0, nil
}
