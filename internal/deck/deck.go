package deck

import (
	"errors"
	rand "math/rand/v2"
)

var ErrEmptyDeck = errors.New("deck is empty")

// Deck represents the draw pile for a match
type Deck struct {
	values []Value
	sets   int
}

// New creates a deck of the given number of complete sets and shuffles it
// with rng.
func New(sets int, rng *rand.Rand) *Deck {
	d := &Deck{
		values: make([]Value, 0, sets*SetSize),
		sets:   sets,
	}

	for range sets {
		for v := Value(1); v <= ColourJoker; v++ {
			d.values = append(d.values, v)
		}
	}

	d.Shuffle(rng)
	return d
}

// NewStacked creates an unshuffled deck that deals values in the order
// given, first value on top.
func NewStacked(values ...Value) *Deck {
	d := &Deck{
		values: make([]Value, len(values)),
		sets:   (len(values) + SetSize - 1) / SetSize,
	}
	copy(d.values, values)
	return d
}

// Shuffle randomizes the order of the remaining cards (Fisher-Yates)
func (d *Deck) Shuffle(rng *rand.Rand) {
	for i := len(d.values) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		d.values[i], d.values[j] = d.values[j], d.values[i]
	}
}

// Draw removes and returns the top card
func (d *Deck) Draw() (Value, error) {
	if len(d.values) == 0 {
		return NoValue, ErrEmptyDeck
	}

	v := d.values[0]
	d.values = d.values[1:]
	return v, nil
}

// Remaining returns the number of cards left in the deck
func (d *Deck) Remaining() int {
	return len(d.values)
}

// Sets returns how many complete sets the deck was built from
func (d *Deck) Sets() int {
	return d.sets
}
