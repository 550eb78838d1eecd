// Package limiter defines interfaces and implementations for pacing faucet requests.
package limiter

import (
	"context"
	"time"
)

// Limiter decides whether a request keyed by key may proceed now.
type Limiter interface {
	// Allow reports whether the request is allowed and an optional retry-after.
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
}
