// Package game reads the on-chain game object and builds its entry call.
package game

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/and161185/suizk/internal/ledger"
)

// Deployed dev-network identifiers.
const (
	DefaultPackage = "0x5f234782d0d7fcb5412aafca6e87be1e6b2c67383566f2f4c499bc12ddafb385"
	DefaultObject  = "0x813002af527d0803c3bd3a96ba3fc59a829f2e84d21d985cfed64464da57d5d9"
	Module         = "Game"
	EnterFunction  = "enter_game"
)

// Game addresses one deployed game object.
type Game struct {
	ledger ledger.Ledger
	pkg    string
	object string
}

// New returns a Game for the given package and object ids; empty ids fall
// back to the dev-network deployment.
func New(l ledger.Ledger, pkg, object string) *Game {
	if pkg == "" {
		pkg = DefaultPackage
	}
	if object == "" {
		object = DefaultObject
	}
	return &Game{ledger: l, pkg: pkg, object: object}
}

// Target is the fully qualified entry function.
func (g *Game) Target() string {
	return fmt.Sprintf("%s::%s::%s", g.pkg, Module, EnterFunction)
}

// ObjectID returns the game object id.
func (g *Game) ObjectID() string { return g.object }

// EnterCall builds the registration call for sender.
func (g *Game) EnterCall(sender string) ledger.MoveCall {
	return ledger.MoveCall{
		Sender:    sender,
		Package:   g.pkg,
		Module:    Module,
		Function:  EnterFunction,
		Arguments: []any{g.object},
	}
}

// Randomness returns the map seed stored in the game object.
func (g *Game) Randomness(ctx context.Context) (uint32, error) {
	obj, err := g.ledger.Object(ctx, g.object)
	if err != nil {
		return 0, err
	}
	return parseSeed(obj.Fields["seed"])
}

func parseSeed(v any) (uint32, error) {
	var n uint64
	switch s := v.(type) {
	case string:
		var err error
		n, err = strconv.ParseUint(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("game seed %q: %w", s, err)
		}
	case float64:
		if s < 0 || s != math.Trunc(s) {
			return 0, fmt.Errorf("game seed %v: not an unsigned integer", s)
		}
		n = uint64(s)
	default:
		return 0, fmt.Errorf("game seed: unexpected %T", v)
	}
	if n > math.MaxUint32 {
		return 0, fmt.Errorf("game seed %d: out of range", n)
	}
	return uint32(n), nil
}

// IsPlayer reports whether addr is registered in the game.
func (g *Game) IsPlayer(ctx context.Context, addr string) (bool, error) {
	obj, err := g.ledger.Object(ctx, g.object)
	if err != nil {
		return false, err
	}
	for _, p := range players(obj.Fields["players"]) {
		if p == addr {
			return true, nil
		}
	}
	return false, nil
}

// players unwraps the nested players struct; Move structs come back either
// as {"players": [...]} or wrapped in {"type", "fields"}.
func players(v any) []string {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	if inner, ok := m["fields"].(map[string]any); ok {
		m = inner
	}
	list, _ := m["players"].([]any)
	out := make([]string, 0, len(list))
	for _, p := range list {
		if s, ok := p.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
