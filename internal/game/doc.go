// Package game implements the card-level rules of Eliminator.
//
// The main type is HandManager, which owns the draw pile, every player's
// hand and the two placeholder cards (the held card and the top of the
// discard pile) for a single match.
//
// # Basic Usage
//
// Deal two players four cards each from one shuffled set:
//
//	rng := randutil.New(seed)
//	reg := deck.NewRegistry()
//	hm, err := game.NewHandManager(2, 4, deck.New(1, rng), reg, rng)
//	v, err := hm.Draw()
//	kind, err := hm.Swap(hm.HeldID(), hm.Hand(0)[0])
//
// # Deterministic Testing
//
// Pass deck.NewStacked to control exactly which values are dealt. Cards
// are dealt one player at a time in player order, after the held and
// discard placeholders have taken ids 0 and 1.
//
// # Turn Rules
//
// Who may act, and on which cards, is decided by the caller using the
// helpers in this package:
//   - ActionSet: the steps allowed at a point in a turn
//   - NextSeat and Distance: circular seat order
//   - NonLocked: the hands still open once a player has called it
package game
