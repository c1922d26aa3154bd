package deck

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownCard    = errors.New("unknown card")
	ErrNotPlaceholder = errors.New("card is not a placeholder")
)

// CardID identifies a card for the lifetime of a match. Ids are handed out
// sequentially from zero so that every participant can mirror them by
// replaying the same allocations.
type CardID uint16

type slot struct {
	value       Value
	present     bool
	placeholder bool
}

// Registry binds card ids to their current values. It is owned by a single
// goroutine and performs no locking.
type Registry struct {
	slots []slot
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{}
}

// Allocate registers a new card holding v
func (r *Registry) Allocate(v Value) CardID {
	r.slots = append(r.slots, slot{value: v, present: true})
	return CardID(len(r.slots) - 1)
}

// AllocatePlaceholder registers a card that may later be emptied, such as
// the held card or the top of the discard pile. It starts empty.
func (r *Registry) AllocatePlaceholder() CardID {
	r.slots = append(r.slots, slot{placeholder: true})
	return CardID(len(r.slots) - 1)
}

// Get returns the card's value and whether one is present
func (r *Registry) Get(id CardID) (Value, bool, error) {
	s, err := r.slot(id)
	if err != nil {
		return NoValue, false, err
	}
	return s.value, s.present, nil
}

// Set overwrites the card's value
func (r *Registry) Set(id CardID, v Value) error {
	s, err := r.slot(id)
	if err != nil {
		return err
	}
	s.value = v
	s.present = true
	return nil
}

// SetPlaceholder writes a placeholder's value, or empties it when present is
// false. Regular cards are rejected.
func (r *Registry) SetPlaceholder(id CardID, v Value, present bool) error {
	s, err := r.slot(id)
	if err != nil {
		return err
	}
	if !s.placeholder {
		return fmt.Errorf("card %d: %w", id, ErrNotPlaceholder)
	}
	if !present {
		v = NoValue
	}
	s.value = v
	s.present = present
	return nil
}

// IsPlaceholder reports whether id was allocated as a placeholder
func (r *Registry) IsPlaceholder(id CardID) bool {
	s, err := r.slot(id)
	return err == nil && s.placeholder
}

// Len returns how many ids have been allocated
func (r *Registry) Len() int {
	return len(r.slots)
}

func (r *Registry) slot(id CardID) (*slot, error) {
	if int(id) >= len(r.slots) {
		return nil, fmt.Errorf("card %d: %w", id, ErrUnknownCard)
	}
	return &r.slots[id], nil
}
