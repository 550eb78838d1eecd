package game

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/and161185/suizk/internal/errs"
	"github.com/and161185/suizk/internal/ledger"
)

type fakeLedger struct {
	ledger.Ledger
	obj *ledger.Object
}

func (f *fakeLedger) Object(_ context.Context, id string) (*ledger.Object, error) {
	if f.obj == nil || f.obj.ID != id {
		return nil, errs.ErrNotFound
	}
	return f.obj, nil
}

func TestEnterCall(t *testing.T) {
	g := New(nil, "", "")
	c := g.EnterCall("0xabc")
	assert.Equal(t, "0xabc", c.Sender)
	assert.Equal(t, DefaultPackage, c.Package)
	assert.Equal(t, "Game", c.Module)
	assert.Equal(t, "enter_game", c.Function)
	assert.Equal(t, []any{DefaultObject}, c.Arguments)
	assert.Equal(t, DefaultPackage+"::Game::enter_game", g.Target())
}

func TestRandomness(t *testing.T) {
	fl := &fakeLedger{obj: &ledger.Object{ID: "0x1", Fields: map[string]any{"seed": "12345"}}}
	g := New(fl, "0xp", "0x1")
	seed, err := g.Randomness(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint32(12345), seed)

	fl.obj.Fields["seed"] = float64(7)
	seed, err = g.Randomness(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint32(7), seed)

	fl.obj.Fields["seed"] = "99999999999"
	_, err = g.Randomness(context.Background())
	require.Error(t, err)

	_, err = New(fl, "0xp", "0x2").Randomness(context.Background())
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestIsPlayer(t *testing.T) {
	fl := &fakeLedger{obj: &ledger.Object{ID: "0x1", Fields: map[string]any{
		"players": map[string]any{
			"type":   "0xp::Game::Players",
			"fields": map[string]any{"players": []any{"0xa", "0xb"}},
		},
	}}}
	g := New(fl, "0xp", "0x1")

	ok, err := g.IsPlayer(context.Background(), "0xb")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = g.IsPlayer(context.Background(), "0xc")
	require.NoError(t, err)
	assert.False(t, ok)

	fl.obj.Fields["players"] = map[string]any{"players": []any{"0xc"}}
	ok, err = g.IsPlayer(context.Background(), "0xc")
	require.NoError(t, err)
	assert.True(t, ok)
}
