package game

import (
	"testing"

	"github.com/lox/eliminator/internal/deck"
	"github.com/lox/eliminator/internal/randutil"
)

// newTestHands deals from a stacked deck so tests know every value. The
// first players*startingCards values are dealt in player order, the rest
// stay in the deck.
func newTestHands(t *testing.T, players, startingCards int, values ...deck.Value) (*HandManager, *deck.Registry) {
	t.Helper()
	reg := deck.NewRegistry()
	hm, err := NewHandManager(players, startingCards, deck.NewStacked(values...), reg, randutil.New(42))
	if err != nil {
		t.Fatalf("failed to deal test hands: %v", err)
	}
	return hm, reg
}

func mustValue(t *testing.T, hm *HandManager, id deck.CardID) deck.Value {
	t.Helper()
	v, err := hm.Value(id)
	if err != nil {
		t.Fatalf("card %d: %v", id, err)
	}
	return v
}
