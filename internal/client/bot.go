package client

import (
	rand "math/rand/v2"

	"github.com/lox/eliminator/internal/deck"
)

const (
	// unknownEstimate is what an unseen card is assumed to score
	unknownEstimate = 6

	defaultCallBelow = 8
	defaultCallAfter = 8
)

// Bot picks moves for one seat from what its Table knows. It never looks
// at anything a player could not see.
type Bot struct {
	rng *rand.Rand

	// CallBelow is the known hand total under which the bot calls it
	CallBelow int
	// CallAfter is how many of its own turns the bot plays before calling
	// regardless of its hand
	CallAfter int
}

// NewBot creates a bot using rng for tie breaks
func NewBot(rng *rand.Rand) *Bot {
	return &Bot{rng: rng, CallBelow: defaultCallBelow, CallAfter: defaultCallAfter}
}

func (b *Bot) estimate(t *Table, id deck.CardID) int {
	v := t.Value(id)
	if v == deck.NoValue {
		return unknownEstimate
	}
	return v.Score()
}

// worstOwn returns the card in our hand expected to score highest
func (b *Bot) worstOwn(t *Table) (deck.CardID, int, bool) {
	var (
		worst deck.CardID
		score int
		found bool
	)
	for _, id := range t.Hand(t.Me()) {
		if s := b.estimate(t, id); !found || s > score {
			worst, score, found = id, s, true
		}
	}
	return worst, score, found
}

// ShouldCall decides whether to call it at the start of a turn
func (b *Bot) ShouldCall(t *Table, turnsTaken int) bool {
	if t.Called() {
		return false
	}
	if t.Remaining() == 0 || turnsTaken >= b.CallAfter {
		return true
	}

	total := 0
	for _, id := range t.Hand(t.Me()) {
		v := t.Value(id)
		if v == deck.NoValue {
			return false
		}
		total += v.Score()
	}
	return total < b.CallBelow
}

// DiscardSwapTarget picks a card to trade for the top of the discard pile,
// if the trade is worth a turn
func (b *Bot) DiscardSwapTarget(t *Table) (deck.CardID, bool) {
	top, ok := t.TopDiscard()
	if !ok || top == deck.NoValue || t.Locked(t.Me()) {
		return 0, false
	}
	worst, score, ok := b.worstOwn(t)
	if !ok || top.Score() >= score-1 {
		return 0, false
	}
	return worst, true
}

// KeepDrawn decides whether a drawn card replaces one in hand, and which
func (b *Bot) KeepDrawn(t *Table, v deck.Value) (deck.CardID, bool) {
	if t.Locked(t.Me()) {
		return 0, false
	}
	worst, score, ok := b.worstOwn(t)
	if !ok || v.Score() >= score {
		return 0, false
	}
	// a drawn ability is worth more on the discard pile than a marginal gain
	if v.Action() != deck.ActionNone && v.Score() >= score-2 {
		return 0, false
	}
	return worst, true
}

// QuickPlaceCard finds a card in hand known to match the top of the discard
func (b *Bot) QuickPlaceCard(t *Table) (deck.CardID, bool) {
	top, ok := t.TopDiscard()
	if !ok || top == deck.NoValue || t.Remaining() == 0 || t.Locked(t.Me()) {
		return 0, false
	}
	for _, id := range t.Hand(t.Me()) {
		if t.Value(id) == top {
			return id, true
		}
	}
	return 0, false
}

// PeekSelfTarget prefers a card in our hand we have not seen yet
func (b *Bot) PeekSelfTarget(t *Table) (deck.CardID, bool) {
	hand := t.Hand(t.Me())
	if len(hand) == 0 || t.Locked(t.Me()) {
		return 0, false
	}
	for _, id := range hand {
		if t.Value(id) == deck.NoValue {
			return id, true
		}
	}
	return hand[b.rng.IntN(len(hand))], true
}

// PeekOtherTarget picks an unseen card in an opponent's open hand
func (b *Bot) PeekOtherTarget(t *Table) (deck.CardID, bool) {
	var unseen, all []deck.CardID
	for _, p := range b.openOpponents(t) {
		for _, id := range t.Hand(p) {
			all = append(all, id)
			if t.Value(id) == deck.NoValue {
				unseen = append(unseen, id)
			}
		}
	}
	switch {
	case len(unseen) > 0:
		return unseen[b.rng.IntN(len(unseen))], true
	case len(all) > 0:
		return all[b.rng.IntN(len(all))], true
	}
	return 0, false
}

// SwapTargets trades our worst card for an opponent's card: their best
// known one if it beats ours, otherwise a blind pick when ours is bad. With
// force set it settles for a blind pick whenever one exists.
func (b *Bot) SwapTargets(t *Table, force bool) (mine, theirs deck.CardID, ok bool) {
	if t.Locked(t.Me()) {
		return 0, 0, false
	}
	worst, score, found := b.worstOwn(t)
	if !found {
		return 0, 0, false
	}

	var (
		best      deck.CardID
		bestScore int
		known     bool
		blind     []deck.CardID
	)
	for _, p := range b.openOpponents(t) {
		for _, id := range t.Hand(p) {
			v := t.Value(id)
			if v == deck.NoValue {
				blind = append(blind, id)
				continue
			}
			if !known || v.Score() < bestScore {
				best, bestScore, known = id, v.Score(), true
			}
		}
	}

	switch {
	case known && bestScore < score:
		return worst, best, true
	case len(blind) > 0 && (force || score > unknownEstimate):
		return worst, blind[b.rng.IntN(len(blind))], true
	case known && force:
		return worst, best, true
	}
	return 0, 0, false
}

// ScrambleTarget picks the open opponent holding the most cards
func (b *Bot) ScrambleTarget(t *Table) (byte, bool) {
	opponents := b.openOpponents(t)
	if len(opponents) == 0 {
		return 0, false
	}
	best, bestSize := opponents[0], -1
	for _, p := range opponents {
		if n := len(t.Hand(p)); n > bestSize {
			best, bestSize = p, n
		}
	}
	return best, true
}

func (b *Bot) openOpponents(t *Table) []byte {
	var out []byte
	for _, p := range t.Players() {
		if p != t.Me() && t.Connected(p) && !t.Locked(p) && len(t.Hand(p)) > 0 {
			out = append(out, p)
		}
	}
	return out
}
