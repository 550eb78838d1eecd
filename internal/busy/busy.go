// Package busy models the transient "operation in progress" indicator as a
// scoped resource: Acquire returns a release func that callers defer.
package busy

import (
	"fmt"
	"io"
	"sync"

	"github.com/and161185/suizk/internal/metrics"
)

// Indicator shows a status message for the lifetime of a long operation.
type Indicator interface {
	Acquire(status string) (release func())
}

// Writer prints a status line to w on Acquire and a matching "done" line
// on release.
type Writer struct {
	mu     sync.Mutex
	w      io.Writer
	active []string
}

// NewWriter returns an Indicator writing to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Acquire shows status until the returned func is called. Release is idempotent.
func (b *Writer) Acquire(status string) func() {
	b.mu.Lock()
	b.active = append(b.active, status)
	fmt.Fprintln(b.w, status)
	b.mu.Unlock()
	metrics.Busy.Inc()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			for i := len(b.active) - 1; i >= 0; i-- {
				if b.active[i] == status {
					b.active = append(b.active[:i], b.active[i+1:]...)
					break
				}
			}
			fmt.Fprintf(b.w, "%s done\n", status)
			b.mu.Unlock()
			metrics.Busy.Dec()
		})
	}
}

// Active reports the statuses currently shown, oldest first.
func (b *Writer) Active() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.active...)
}

// Nop is an Indicator that shows nothing.
type Nop struct{}

// Acquire implements Indicator.
func (Nop) Acquire(string) func() { return func() {} }
