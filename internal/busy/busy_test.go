package busy

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriter_AcquireRelease(t *testing.T) {
	var out bytes.Buffer
	b := NewWriter(&out)

	release := b.Acquire("Requesting ZK proof...")
	assert.Equal(t, []string{"Requesting ZK proof..."}, b.Active())
	assert.Contains(t, out.String(), "Requesting ZK proof...")

	release()
	release()
	assert.Empty(t, b.Active())
	assert.Equal(t, "Requesting ZK proof...\nRequesting ZK proof... done\n", out.String(), "release reports completion once")
}

func TestWriter_ReleasedOnPanic(t *testing.T) {
	b := NewWriter(&bytes.Buffer{})
	func() {
		defer func() { _ = recover() }()
		release := b.Acquire("work")
		defer release()
		panic("boom")
	}()
	assert.Empty(t, b.Active())
}

func TestNop(t *testing.T) {
	Nop{}.Acquire("x")()
}
