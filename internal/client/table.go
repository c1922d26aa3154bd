package client

import (
	"slices"

	"github.com/lox/eliminator/internal/deck"
	"github.com/lox/eliminator/internal/game"
	"github.com/lox/eliminator/internal/protocol"
)

// Table mirrors the match from one seat. Card ids are rebuilt by replaying
// the server's allocation order: the held and discard placeholders, then
// every starting hand in seat order, then one id per punishment. Values are
// only known where this seat has seen them.
type Table struct {
	me      byte
	names   map[byte]string
	players []byte

	reg       *deck.Registry
	held      deck.CardID
	discard   deck.CardID
	hands     map[byte][]deck.CardID
	owner     map[deck.CardID]byte
	remaining int

	turn      byte
	called    bool
	caller    byte
	connected map[byte]bool

	peeking *deck.CardID
	// attempts holds the card each seat last tried to quick-place
	attempts map[byte]deck.CardID
}

// NewTable lays out the table announced by InitialiseGame
func NewTable(me byte, ig *protocol.InitialiseGame) *Table {
	players := slices.Clone(ig.Players)
	slices.SortFunc(players, func(a, b protocol.PlayerInfo) int { return int(a.ID) - int(b.ID) })

	t := &Table{
		me:        me,
		names:     make(map[byte]string, len(players)),
		reg:       deck.NewRegistry(),
		hands:     make(map[byte][]deck.CardID, len(players)),
		owner:     make(map[deck.CardID]byte),
		connected: make(map[byte]bool, len(players)),
		attempts:  make(map[byte]deck.CardID),
		remaining: int(ig.DeckSize)*deck.SetSize - len(players)*int(ig.StartingCards),
	}
	t.held = t.reg.AllocatePlaceholder()
	t.discard = t.reg.AllocatePlaceholder()

	for _, p := range players {
		t.players = append(t.players, p.ID)
		t.names[p.ID] = p.Name
		t.connected[p.ID] = true
		for range ig.StartingCards {
			t.deal(p.ID)
		}
	}
	return t
}

func (t *Table) deal(player byte) deck.CardID {
	id := t.reg.Allocate(deck.NoValue)
	t.hands[player] = append(t.hands[player], id)
	t.owner[id] = player
	return id
}

// Apply folds a server message into the mirror
func (t *Table) Apply(msg protocol.Message) {
	switch m := msg.(type) {
	case *protocol.StartTurn:
		t.turn = m.Player
		t.peeking = nil

	case *protocol.DrawResult:
		_ = t.reg.SetPlaceholder(t.held, m.Value, true)
		t.remaining--

	case *protocol.DisplayDraw:
		_ = t.reg.SetPlaceholder(t.held, deck.NoValue, true)
		t.remaining--

	case *protocol.DiscardResult:
		_ = t.reg.SetPlaceholder(t.discard, m.Value, true)
		_ = t.reg.SetPlaceholder(t.held, deck.NoValue, false)

	case *protocol.DisplaySwap:
		t.Swap(m.First, m.Second)

	case *protocol.PeekResult:
		if t.peeking != nil {
			t.Reveal(*t.peeking, m.Value)
			t.peeking = nil
		}

	case *protocol.DisplayScramble:
		t.Forget(m.Player)

	case *protocol.QuickPlace:
		if owner, ok := t.owner[m.Card]; ok {
			t.attempts[owner] = m.Card
		}

	case *protocol.QuickPlaceResult:
		t.applyQuickPlace(m)

	case *protocol.CalledIt:
		t.called = true
		t.caller = t.turn

	case *protocol.Disconnection:
		t.connected[m.Player] = false

	case *protocol.ActionRejected:
		if m.Request == protocol.OpPeek {
			t.peeking = nil
		}
	}
}

func (t *Table) applyQuickPlace(m *protocol.QuickPlaceResult) {
	card, ok := t.attempts[m.Player]
	delete(t.attempts, m.Player)

	switch m.Result {
	case protocol.QuickPlaceSuccess:
		_ = t.reg.SetPlaceholder(t.discard, m.Value, true)
		if ok {
			t.remove(card)
		}
	case protocol.QuickPlaceFailure:
		if ok {
			t.Reveal(card, m.Value)
		}
		t.deal(m.Player)
		t.remaining--
	case protocol.QuickPlaceTooLate:
		if ok {
			t.Reveal(card, m.Value)
		}
	}
}

func (t *Table) remove(id deck.CardID) {
	owner, ok := t.owner[id]
	if !ok {
		return
	}
	t.hands[owner] = slices.DeleteFunc(t.hands[owner], func(c deck.CardID) bool { return c == id })
	delete(t.owner, id)
}

// Attempt records that this seat is trying to quick-place id
func (t *Table) Attempt(id deck.CardID) {
	t.attempts[t.me] = id
}

// ExpectPeek records which card the next PeekResult describes
func (t *Table) ExpectPeek(id deck.CardID) {
	t.peeking = &id
}

// Swap exchanges what is known about two cards, placeholders included
func (t *Table) Swap(a, b deck.CardID) {
	va, pa, errA := t.reg.Get(a)
	vb, pb, errB := t.reg.Get(b)
	if errA != nil || errB != nil {
		return
	}
	t.put(a, vb, pb)
	t.put(b, va, pa)
}

func (t *Table) put(id deck.CardID, v deck.Value, present bool) {
	if t.reg.IsPlaceholder(id) {
		_ = t.reg.SetPlaceholder(id, v, present)
		return
	}
	_ = t.reg.Set(id, v)
}

// Reveal records a card's value
func (t *Table) Reveal(id deck.CardID, v deck.Value) {
	if !t.reg.IsPlaceholder(id) {
		_ = t.reg.Set(id, v)
	}
}

// Forget marks every card in a hand as unknown, as after a scramble
func (t *Table) Forget(player byte) {
	for _, id := range t.hands[player] {
		_ = t.reg.Set(id, deck.NoValue)
	}
}

// Me returns this seat's player id
func (t *Table) Me() byte { return t.me }

// Remaining returns how many cards are left to draw
func (t *Table) Remaining() int { return t.remaining }

// Players returns every seat in turn order
func (t *Table) Players() []byte { return t.players }

// Name returns a player's username
func (t *Table) Name(player byte) string { return t.names[player] }

// Hand returns the ids in a player's hand
func (t *Table) Hand(player byte) []deck.CardID { return t.hands[player] }

// HeldID returns the held card placeholder
func (t *Table) HeldID() deck.CardID { return t.held }

// DiscardID returns the top-of-discard placeholder
func (t *Table) DiscardID() deck.CardID { return t.discard }

// Turn returns whose turn it is
func (t *Table) Turn() byte { return t.turn }

// Called reports whether someone has called it
func (t *Table) Called() bool { return t.called }

// Connected reports whether a player is still at the table
func (t *Table) Connected(player byte) bool { return t.connected[player] }

// Value returns a card's value, or deck.NoValue when it is not known
func (t *Table) Value(id deck.CardID) deck.Value {
	v, present, err := t.reg.Get(id)
	if err != nil || !present {
		return deck.NoValue
	}
	return v
}

// TopDiscard returns the top of the discard pile, if there is one
func (t *Table) TopDiscard() (deck.Value, bool) {
	v, present, _ := t.reg.Get(t.discard)
	return v, present
}

// Locked reports whether a player's hand is out of play after a call
func (t *Table) Locked(player byte) bool {
	if !t.called {
		return false
	}
	seats := make([]int, len(t.players))
	for i, p := range t.players {
		seats[i] = int(p)
	}
	open, ok := game.NonLocked(seats, int(t.caller), int(t.turn))
	return !ok || !slices.Contains(open, int(player))
}
