package game

import (
	"errors"
	"fmt"
	rand "math/rand/v2"
	"slices"

	"github.com/lox/eliminator/internal/deck"
)

var (
	ErrInvalidDeal    = errors.New("invalid deal")
	ErrAlreadyHolding = errors.New("a drawn card is already held")
	ErrNothingHeld    = errors.New("no card is held")
	ErrInvalidSwap    = errors.New("invalid swap")
	ErrCardNotFound   = errors.New("card not found in any hand")
	ErrUnknownPlayer  = errors.New("unknown player")
	ErrNoValue        = errors.New("card has no value")
	ErrEmptyDeck      = deck.ErrEmptyDeck
)

// SwapKind says which of the four swap shapes was applied
type SwapKind int

const (
	// SwapHands exchanges two cards that sit in hands
	SwapHands SwapKind = iota
	// SwapHeldToDiscard throws the held card onto the discard pile
	SwapHeldToDiscard
	// SwapFromDiscard takes the top of the discard pile into a hand
	SwapFromDiscard
	// SwapWithHeld puts the held card into a hand and holds the card it replaced
	SwapWithHeld
)

func (k SwapKind) String() string {
	switch k {
	case SwapHands:
		return "hands"
	case SwapHeldToDiscard:
		return "held-to-discard"
	case SwapFromDiscard:
		return "from-discard"
	case SwapWithHeld:
		return "with-held"
	default:
		return "unknown"
	}
}

// Score is one hand's total at the end of a match
type Score struct {
	Player int
	Points int
}

// HandManager owns the deck, the hands and the two placeholder cards for one
// match. It must only be used from one goroutine.
type HandManager struct {
	reg   *deck.Registry
	deck  *deck.Deck
	rng   *rand.Rand
	hands [][]deck.CardID
	owner map[deck.CardID]int

	held    deck.CardID
	discard deck.CardID
	pile    []deck.Value

	startingCards int
}

// NewHandManager allocates the held and discard placeholders, then deals
// startingCards to each player in player order.
func NewHandManager(players, startingCards int, d *deck.Deck, reg *deck.Registry, rng *rand.Rand) (*HandManager, error) {
	if players <= 0 || startingCards <= 0 {
		return nil, fmt.Errorf("%w: %d players with %d cards each", ErrInvalidDeal, players, startingCards)
	}
	if players*startingCards > d.Remaining() {
		return nil, fmt.Errorf("%w: %d cards needed but deck holds %d", ErrInvalidDeal, players*startingCards, d.Remaining())
	}

	hm := &HandManager{
		reg:           reg,
		deck:          d,
		rng:           rng,
		hands:         make([][]deck.CardID, players),
		owner:         make(map[deck.CardID]int, players*startingCards),
		startingCards: startingCards,
	}
	hm.held = reg.AllocatePlaceholder()
	hm.discard = reg.AllocatePlaceholder()

	for p := range players {
		hm.hands[p] = make([]deck.CardID, 0, startingCards)
		for range startingCards {
			if _, err := hm.deal(p); err != nil {
				return nil, err
			}
		}
	}

	return hm, nil
}

func (hm *HandManager) deal(player int) (deck.CardID, error) {
	v, err := hm.deck.Draw()
	if err != nil {
		return 0, err
	}
	id := hm.reg.Allocate(v)
	hm.hands[player] = append(hm.hands[player], id)
	hm.owner[id] = player
	return id, nil
}

// Draw moves the top of the deck into the held card
func (hm *HandManager) Draw() (deck.Value, error) {
	if _, held := hm.Held(); held {
		return deck.NoValue, ErrAlreadyHolding
	}
	v, err := hm.deck.Draw()
	if err != nil {
		return deck.NoValue, err
	}
	if err := hm.reg.SetPlaceholder(hm.held, v, true); err != nil {
		return deck.NoValue, err
	}
	return v, nil
}

// DiscardHeld moves the held card onto the discard pile
func (hm *HandManager) DiscardHeld() (deck.Value, error) {
	v, held := hm.Held()
	if !held {
		return deck.NoValue, ErrNothingHeld
	}
	if err := hm.PushDiscard(v); err != nil {
		return deck.NoValue, err
	}
	if err := hm.reg.SetPlaceholder(hm.held, deck.NoValue, false); err != nil {
		return deck.NoValue, err
	}
	return v, nil
}

// PushDiscard puts v on top of the discard pile
func (hm *HandManager) PushDiscard(v deck.Value) error {
	if err := hm.reg.SetPlaceholder(hm.discard, v, true); err != nil {
		return err
	}
	hm.pile = append(hm.pile, v)
	return nil
}

// Swap exchanges the values behind two card ids. Exactly one of the four
// shapes applies depending on which ids are placeholders; anything else is
// rejected before any state changes.
func (hm *HandManager) Swap(a, b deck.CardID) (SwapKind, error) {
	if a == b {
		return 0, fmt.Errorf("%w: card %d with itself", ErrInvalidSwap, a)
	}
	for _, id := range []deck.CardID{a, b} {
		if !hm.isPlaceholder(id) {
			if _, ok := hm.owner[id]; !ok {
				return 0, fmt.Errorf("card %d: %w", id, ErrCardNotFound)
			}
		}
	}

	// order so that a placeholder, if any, comes first and held before discard
	if hm.isPlaceholder(b) && (!hm.isPlaceholder(a) || b == hm.held) {
		a, b = b, a
	}

	switch {
	case a == hm.held && b == hm.discard:
		if _, held := hm.Held(); !held {
			return 0, fmt.Errorf("%w: nothing held", ErrInvalidSwap)
		}
		if _, err := hm.DiscardHeld(); err != nil {
			return 0, err
		}
		return SwapHeldToDiscard, nil

	case a == hm.discard:
		top, ok := hm.TopDiscard()
		if !ok {
			return 0, fmt.Errorf("%w: discard pile is empty", ErrInvalidSwap)
		}
		old, err := hm.Value(b)
		if err != nil {
			return 0, err
		}
		if err := hm.reg.Set(b, top); err != nil {
			return 0, err
		}
		hm.pile[len(hm.pile)-1] = old
		if err := hm.reg.SetPlaceholder(hm.discard, old, true); err != nil {
			return 0, err
		}
		return SwapFromDiscard, nil

	case a == hm.held:
		v, ok := hm.Held()
		if !ok {
			return 0, fmt.Errorf("%w: nothing held", ErrInvalidSwap)
		}
		old, err := hm.Value(b)
		if err != nil {
			return 0, err
		}
		if err := hm.reg.Set(b, v); err != nil {
			return 0, err
		}
		if err := hm.reg.SetPlaceholder(hm.held, old, true); err != nil {
			return 0, err
		}
		return SwapWithHeld, nil

	default:
		va, err := hm.Value(a)
		if err != nil {
			return 0, err
		}
		vb, err := hm.Value(b)
		if err != nil {
			return 0, err
		}
		if err := hm.reg.Set(a, vb); err != nil {
			return 0, err
		}
		if err := hm.reg.Set(b, va); err != nil {
			return 0, err
		}
		return SwapHands, nil
	}
}

// Scramble shuffles the values among one hand's cards. Ids stay where they are.
func (hm *HandManager) Scramble(player int) error {
	ids, err := hm.hand(player)
	if err != nil {
		return err
	}

	values := make([]deck.Value, len(ids))
	for i, id := range ids {
		if values[i], err = hm.Value(id); err != nil {
			return err
		}
	}
	for i := len(values) - 1; i > 0; i-- {
		j := hm.rng.IntN(i + 1)
		values[i], values[j] = values[j], values[i]
	}
	for i, id := range ids {
		if err := hm.reg.Set(id, values[i]); err != nil {
			return err
		}
	}
	return nil
}

// QuickPlace discards the card out of its hand if it matches the top of the
// discard pile. A mismatch leaves everything untouched and returns false.
func (hm *HandManager) QuickPlace(id deck.CardID) (bool, error) {
	player, ok := hm.owner[id]
	if !ok {
		return false, fmt.Errorf("card %d: %w", id, ErrCardNotFound)
	}
	v, err := hm.Value(id)
	if err != nil {
		return false, err
	}
	top, ok := hm.TopDiscard()
	if !ok || top != v {
		return false, nil
	}

	if err := hm.PushDiscard(v); err != nil {
		return false, err
	}
	hm.hands[player] = slices.DeleteFunc(hm.hands[player], func(c deck.CardID) bool { return c == id })
	delete(hm.owner, id)
	return true, nil
}

// Punish deals a fresh card into the player's hand
func (hm *HandManager) Punish(player int) (deck.CardID, error) {
	if _, err := hm.hand(player); err != nil {
		return 0, err
	}
	return hm.deal(player)
}

// ScoreAll totals every hand in player order. It must not be called while a
// draw is unresolved.
func (hm *HandManager) ScoreAll() []Score {
	scores := make([]Score, 0, len(hm.hands))
	for p, ids := range hm.hands {
		total := 0
		for _, id := range ids {
			v, _, _ := hm.reg.Get(id)
			total += v.Score()
		}
		scores = append(scores, Score{Player: p, Points: total})
	}
	return scores
}

// HeldID returns the id of the held placeholder
func (hm *HandManager) HeldID() deck.CardID { return hm.held }

// DiscardID returns the id of the discard placeholder
func (hm *HandManager) DiscardID() deck.CardID { return hm.discard }

// Held returns the drawn card, if there is one
func (hm *HandManager) Held() (deck.Value, bool) {
	v, ok, _ := hm.reg.Get(hm.held)
	return v, ok
}

// TopDiscard returns the top of the discard pile, if anything was discarded
func (hm *HandManager) TopDiscard() (deck.Value, bool) {
	v, ok, _ := hm.reg.Get(hm.discard)
	return v, ok
}

// DiscardPile returns every discarded value, oldest first
func (hm *HandManager) DiscardPile() []deck.Value {
	return slices.Clone(hm.pile)
}

// Remaining returns the number of cards left to draw
func (hm *HandManager) Remaining() int { return hm.deck.Remaining() }

// DeckSets returns how many complete sets make up the deck
func (hm *HandManager) DeckSets() int { return hm.deck.Sets() }

// StartingCards returns the size of each dealt hand
func (hm *HandManager) StartingCards() int { return hm.startingCards }

// Players returns the number of hands
func (hm *HandManager) Players() int { return len(hm.hands) }

// Hand returns a copy of the player's card ids
func (hm *HandManager) Hand(player int) []deck.CardID {
	ids, err := hm.hand(player)
	if err != nil {
		return nil
	}
	return slices.Clone(ids)
}

// Owner returns which player holds the card
func (hm *HandManager) Owner(id deck.CardID) (int, bool) {
	p, ok := hm.owner[id]
	return p, ok
}

// Value returns a card's current value
func (hm *HandManager) Value(id deck.CardID) (deck.Value, error) {
	v, present, err := hm.reg.Get(id)
	if err != nil {
		return deck.NoValue, err
	}
	if !present {
		return deck.NoValue, fmt.Errorf("card %d: %w", id, ErrNoValue)
	}
	return v, nil
}

func (hm *HandManager) hand(player int) ([]deck.CardID, error) {
	if player < 0 || player >= len(hm.hands) {
		return nil, fmt.Errorf("player %d: %w", player, ErrUnknownPlayer)
	}
	return hm.hands[player], nil
}

func (hm *HandManager) isPlaceholder(id deck.CardID) bool {
	return id == hm.held || id == hm.discard
}
