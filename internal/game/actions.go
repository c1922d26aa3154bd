package game

import (
	"strings"

	"github.com/lox/eliminator/internal/deck"
)

// ActionSet is the set of steps the acting player may take next
type ActionSet uint16

// TurnStart is what a player may do when their turn begins
var TurnStart = NewActionSet(deck.ActionDraw, deck.ActionDiscardSwap, deck.ActionQuickPlace)

// NewActionSet builds a set from the given actions
func NewActionSet(actions ...deck.Action) ActionSet {
	var s ActionSet
	for _, a := range actions {
		s |= 1 << a
	}
	return s
}

// Has reports whether a is in the set
func (s ActionSet) Has(a deck.Action) bool {
	return s&(1<<a) != 0
}

// Only reports whether the set holds exactly a
func (s ActionSet) Only(a deck.Action) bool {
	return s == NewActionSet(a)
}

func (s ActionSet) String() string {
	var names []string
	for a := deck.ActionNone; a <= deck.ActionQuickPlace; a++ {
		if s.Has(a) {
			names = append(names, a.String())
		}
	}
	return "{" + strings.Join(names, ",") + "}"
}
