package balance

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/suizk/internal/ledger"
)

type fakeLedger struct {
	ledger.Ledger
	mu       sync.Mutex
	balances map[string]uint64
	calls    []string
}

func (f *fakeLedger) Balance(_ context.Context, owner string) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, owner)
	v, ok := f.balances[owner]
	if !ok {
		return 0, errors.New("unknown owner")
	}
	return v, nil
}

func (f *fakeLedger) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestCache_MergeIsNonDestructive(t *testing.T) {
	c := NewCache()
	c.Merge(map[string]uint64{"A": 1, "B": 2})
	c.Merge(map[string]uint64{"A": 3})
	assert.Equal(t, map[string]uint64{"A": 3, "B": 2}, c.Snapshot())

	snap := c.Snapshot()
	snap["A"] = 100
	v, ok := c.Get("A")
	assert.True(t, ok)
	assert.Equal(t, uint64(3), v, "snapshot is a copy")
}

func TestFormatSUI(t *testing.T) {
	assert.Equal(t, "0", FormatSUI(0))
	assert.Equal(t, "1", FormatSUI(1_000_000_000))
	assert.Equal(t, "1.5", FormatSUI(1_500_000_000))
	assert.Equal(t, "0.000000001", FormatSUI(1))
}

func TestRefresher_RefreshSkipsFailures(t *testing.T) {
	fl := &fakeLedger{balances: map[string]uint64{"A": 10}}
	c := NewCache()
	c.Merge(map[string]uint64{"B": 7})
	r := NewRefresher(fl, c, 0, zaptest.NewLogger(t))

	got := r.Refresh(context.Background(), "A", "B")
	assert.Equal(t, map[string]uint64{"A": 10}, got)
	assert.Equal(t, map[string]uint64{"A": 10, "B": 7}, c.Snapshot(), "failed lookup keeps old value")
	assert.Equal(t, []string{"A", "B"}, fl.calls, "sequential, in order")
}

func TestRefresher_RunStopsOnCancel(t *testing.T) {
	fl := &fakeLedger{balances: map[string]uint64{"A": 1}}
	r := NewRefresher(fl, NewCache(), 10*time.Millisecond, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- r.Run(ctx, func(context.Context) ([]string, error) { return []string{"A"}, nil })
	}()

	require.Eventually(t, func() bool { return fl.callCount() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("refresher did not stop")
	}
	v, _ := r.Cache().Get("A")
	assert.Equal(t, uint64(1), v)
}
