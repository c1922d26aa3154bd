package deck

import "fmt"

// Value is the face of a card as an ordinal: 0 is a card back, 1-52 are the
// four suits of thirteen ranks laid out contiguously, 53 and 54 are jokers.
type Value uint8

const (
	NoValue     Value = 0
	BlackJoker  Value = 53
	ColourJoker Value = 54

	// SetSize is the number of cards in one complete set, jokers included
	SetSize = 54

	ranksPerSuit = 13
)

// Suit represents a card suit
type Suit int

const (
	Spades Suit = iota
	Hearts
	Diamonds
	Clubs
	Jokers
)

// String returns the string representation of a suit
func (s Suit) String() string {
	switch s {
	case Spades:
		return "♠"
	case Hearts:
		return "♥"
	case Diamonds:
		return "♦"
	case Clubs:
		return "♣"
	case Jokers:
		return "★"
	default:
		return "?"
	}
}

// Rank represents a card rank, Ace low
type Rank int

const (
	Ace Rank = iota + 1
	Two
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
)

// String returns the string representation of a rank
func (r Rank) String() string {
	switch r {
	case Ace:
		return "A"
	case Ten:
		return "T"
	case Jack:
		return "J"
	case Queen:
		return "Q"
	case King:
		return "K"
	}
	if r >= Two && r <= Nine {
		return fmt.Sprintf("%d", int(r))
	}
	return "?"
}

// Action is what a card lets its player do once it reaches the discard pile.
// Draw, DiscardSwap and QuickPlace are never derived from a card; they name
// the steps a turn can take.
type Action uint8

const (
	ActionNone Action = iota
	ActionDraw
	ActionPeekSelf
	ActionPeekOther
	ActionSwap
	ActionDiscardSwap
	ActionScramble
	ActionQuickPlace
)

func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionDraw:
		return "draw"
	case ActionPeekSelf:
		return "peek-self"
	case ActionPeekOther:
		return "peek-other"
	case ActionSwap:
		return "swap"
	case ActionDiscardSwap:
		return "discard-swap"
	case ActionScramble:
		return "scramble"
	case ActionQuickPlace:
		return "quick-place"
	default:
		return fmt.Sprintf("action(%d)", uint8(a))
	}
}

// Valid reports whether v names a real card face
func (v Value) Valid() bool {
	return v >= 1 && v <= ColourJoker
}

// IsJoker returns true for either joker
func (v Value) IsJoker() bool {
	return v == BlackJoker || v == ColourJoker
}

// IsRedKing returns true for the king of hearts or diamonds
func (v Value) IsRedKing() bool {
	return v == 26 || v == 39
}

// Suit returns the suit of the card. Jokers report Jokers.
func (v Value) Suit() Suit {
	if v.IsJoker() {
		return Jokers
	}
	return Suit((int(v) - 1) / ranksPerSuit)
}

// Rank returns the rank of a suited card, or 0 for jokers and card backs
func (v Value) Rank() Rank {
	if !v.Valid() || v.IsJoker() {
		return 0
	}
	return Rank((int(v)-1)%ranksPerSuit + 1)
}

// Action derives the card's ability from its face.
func (v Value) Action() Action {
	if v == NoValue {
		return ActionNone
	}
	switch v % ranksPerSuit {
	case 0:
		if v.IsRedKing() {
			return ActionScramble
		}
		return ActionNone
	case 11, 12:
		return ActionSwap
	case 9, 10:
		return ActionPeekOther
	case 7, 8:
		return ActionPeekSelf
	default:
		return ActionNone
	}
}

// Score returns the points the card adds to a hand. Lower is better.
func (v Value) Score() int {
	switch {
	case v.IsJoker():
		return -2
	case v.IsRedKing():
		return 13
	default:
		return int(v % ranksPerSuit)
	}
}

// String returns the string representation of a card (e.g., "Q♥")
func (v Value) String() string {
	switch {
	case v == NoValue:
		return "??"
	case v == BlackJoker:
		return "B★"
	case v == ColourJoker:
		return "C★"
	case !v.Valid():
		return fmt.Sprintf("card(%d)", uint8(v))
	}
	return v.Rank().String() + v.Suit().String()
}

// NewValue builds a suited card value
func NewValue(suit Suit, rank Rank) Value {
	return Value(int(suit)*ranksPerSuit + int(rank))
}
