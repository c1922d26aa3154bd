package client

import (
	"errors"
	"fmt"
	"slices"

	"github.com/lox/eliminator/internal/deck"
)

var ErrTriggerNotPermitted = errors.New("trigger not permitted")

// State is where the local seat is within the flow of a turn
type State int

const (
	StateInitialisation State = iota
	StateWaiting
	StateTurnStart
	StateDeckDraw
	StateDiscardSwap
	StateQuickPlace
	StateTurnEnd
	StatePeekSelf
	StatePeekOther
	StateSwapCardInHands
	StateScramble
	StateGameOver
)

var stateNames = [...]string{
	StateInitialisation:  "Initialisation",
	StateWaiting:         "Waiting",
	StateTurnStart:       "TurnStart",
	StateDeckDraw:        "DeckDraw",
	StateDiscardSwap:     "DiscardSwap",
	StateQuickPlace:      "QuickPlace",
	StateTurnEnd:         "TurnEnd",
	StatePeekSelf:        "PeekSelf",
	StatePeekOther:       "PeekOther",
	StateSwapCardInHands: "SwapCardInHands",
	StateScramble:        "Scramble",
	StateGameOver:        "GameOver",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Trigger is an input that may move the state machine
type Trigger int

const (
	TriggerStartTurn Trigger = iota
	TriggerDeckClick
	TriggerDoCardAction
	TriggerSelectionUpdate
	TriggerEndTurn
	TriggerCancelAction
	TriggerGameEnd
)

var triggerNames = [...]string{
	TriggerStartTurn:       "StartTurn",
	TriggerDeckClick:       "DeckClick",
	TriggerDoCardAction:    "DoCardAction",
	TriggerSelectionUpdate: "SelectionUpdate",
	TriggerEndTurn:         "EndTurn",
	TriggerCancelAction:    "CancelAction",
	TriggerGameEnd:         "GameEnd",
}

func (t Trigger) String() string {
	if t >= 0 && int(t) < len(triggerNames) {
		return triggerNames[t]
	}
	return fmt.Sprintf("Trigger(%d)", int(t))
}

// Selection is what the local seat has picked: some cards, or a whole hand
type Selection struct {
	Cards []deck.CardID
	Hand  byte
	// PickedHand is set when Hand names a selected hand
	PickedHand bool
}

// Event is a trigger along with its argument
type Event struct {
	Trigger   Trigger
	Player    byte        // StartTurn
	Action    deck.Action // DoCardAction
	Selection Selection   // SelectionUpdate
}

// View is what the guards need to know about the table
type View interface {
	Me() byte
	Remaining() int
	Players() []byte
	Hand(player byte) []deck.CardID
	DiscardID() deck.CardID
}

type (
	guardFunc  func(m *StateMachine, ev Event) bool
	targetFunc func(m *StateMachine, ev Event) State
)

type transition struct {
	from    State
	trigger Trigger
	guard   guardFunc
	to      targetFunc
}

// anyState matches every source state
const anyState State = -1

func goTo(s State) targetFunc {
	return func(*StateMachine, Event) State { return s }
}

// transitions is evaluated top to bottom; the first entry whose source,
// trigger and guard match wins.
var transitions = []transition{
	{anyState, TriggerGameEnd, nil, goTo(StateGameOver)},

	{StateInitialisation, TriggerStartTurn, (*StateMachine).isMyTurn, goTo(StateTurnStart)},
	{StateInitialisation, TriggerStartTurn, (*StateMachine).isOtherTurn, goTo(StateWaiting)},

	{StateWaiting, TriggerStartTurn, (*StateMachine).isMyTurn, goTo(StateTurnStart)},
	{StateWaiting, TriggerStartTurn, (*StateMachine).isOtherTurn, goTo(StateWaiting)},
	{StateWaiting, TriggerSelectionUpdate, (*StateMachine).isQuickPlace, goTo(StateQuickPlace)},

	{StateQuickPlace, TriggerCancelAction, nil, (*StateMachine).quickPlaceFinished},
	{StateQuickPlace, TriggerDoCardAction, nil, (*StateMachine).cardActionToState},

	{StateTurnStart, TriggerEndTurn, nil, goTo(StateWaiting)},
	{StateTurnStart, TriggerDeckClick, (*StateMachine).deckHasCards, goTo(StateDeckDraw)},
	{StateTurnStart, TriggerSelectionUpdate, (*StateMachine).selectedDiscard, goTo(StateDiscardSwap)},
	{StateTurnStart, TriggerSelectionUpdate, (*StateMachine).isQuickPlace, goTo(StateQuickPlace)},

	{StateDeckDraw, TriggerDoCardAction, nil, (*StateMachine).cardActionToState},

	{StateDiscardSwap, TriggerCancelAction, nil, goTo(StateTurnStart)},
	{StateDiscardSwap, TriggerDoCardAction, nil, (*StateMachine).cardActionToState},

	{StateTurnEnd, TriggerEndTurn, nil, goTo(StateWaiting)},
	{StateTurnEnd, TriggerSelectionUpdate, (*StateMachine).isQuickPlace, goTo(StateQuickPlace)},

	{StatePeekSelf, TriggerCancelAction, nil, goTo(StateTurnEnd)},
	{StatePeekSelf, TriggerSelectionUpdate, (*StateMachine).oneOwnCard, (*StateMachine).exitCardAction},

	{StatePeekOther, TriggerCancelAction, nil, goTo(StateTurnEnd)},
	{StatePeekOther, TriggerSelectionUpdate, (*StateMachine).oneOtherCard, (*StateMachine).exitCardAction},

	{StateSwapCardInHands, TriggerCancelAction, nil, goTo(StateTurnEnd)},
	{StateSwapCardInHands, TriggerSelectionUpdate, (*StateMachine).twoHandCards, (*StateMachine).exitCardAction},

	{StateScramble, TriggerCancelAction, nil, goTo(StateTurnEnd)},
	{StateScramble, TriggerSelectionUpdate, (*StateMachine).pickedHand, (*StateMachine).exitCardAction},
}

// trackedStates remember where a quick-place was entered from when left
var trackedStates = []State{StateWaiting, StateTurnStart, StateTurnEnd}

// StateMachine tracks the local seat's turn flow and which inputs are legal
// right now. It mirrors what the server will accept, so a client consults it
// before sending a request.
type StateMachine struct {
	view     View
	state    State
	onChange func(from, to State)

	// quickPlaceEntry is the state a quick-place interrupted, if any
	quickPlaceEntry *State
}

// NewStateMachine starts in Initialisation
func NewStateMachine(view View) *StateMachine {
	return &StateMachine{view: view, state: StateInitialisation}
}

// State returns the current state
func (m *StateMachine) State() State {
	return m.state
}

// OnChange registers a callback run after every transition
func (m *StateMachine) OnChange(fn func(from, to State)) {
	m.onChange = fn
}

// Permitted lists the triggers with a transition out of the current state,
// without evaluating guards
func (m *StateMachine) Permitted() []Trigger {
	var out []Trigger
	for _, tr := range transitions {
		if (tr.from == m.state || tr.from == anyState) && !slices.Contains(out, tr.trigger) {
			out = append(out, tr.trigger)
		}
	}
	return out
}

// CanFire reports whether ev would cause a transition
func (m *StateMachine) CanFire(ev Event) bool {
	_, ok := m.match(ev)
	return ok
}

// CanCancel reports whether the current selection step can be backed out of
func (m *StateMachine) CanCancel() bool {
	switch m.state {
	case StateQuickPlace, StateDiscardSwap, StatePeekSelf, StatePeekOther, StateSwapCardInHands, StateScramble:
		return true
	default:
		return false
	}
}

// Fire applies ev, or returns ErrTriggerNotPermitted leaving the state alone
func (m *StateMachine) Fire(ev Event) error {
	tr, ok := m.match(ev)
	if !ok {
		return fmt.Errorf("%w: %s in %s", ErrTriggerNotPermitted, ev.Trigger, m.state)
	}

	from := m.state
	to := tr.to(m, ev)
	if slices.Contains(trackedStates, from) {
		m.trackQuickPlace(from, to)
	}
	m.state = to

	if m.onChange != nil {
		m.onChange(from, to)
	}
	return nil
}

// Resync drops whatever step was in progress and waits for the next turn.
// The server ends turns on its own when they time out.
func (m *StateMachine) Resync() {
	if m.state == StateGameOver {
		return
	}
	from := m.state
	m.state = StateWaiting
	m.quickPlaceEntry = nil
	if m.onChange != nil && from != StateWaiting {
		m.onChange(from, StateWaiting)
	}
}

func (m *StateMachine) match(ev Event) (transition, bool) {
	for _, tr := range transitions {
		if tr.from != anyState && tr.from != m.state {
			continue
		}
		if tr.trigger != ev.Trigger {
			continue
		}
		if tr.guard != nil && !tr.guard(m, ev) {
			continue
		}
		return tr, true
	}
	return transition{}, false
}

func (m *StateMachine) trackQuickPlace(from, to State) {
	if to == StateQuickPlace {
		m.quickPlaceEntry = &from
		return
	}
	m.quickPlaceEntry = nil
}

func (m *StateMachine) quickPlaceFinished(Event) State {
	if m.quickPlaceEntry == nil {
		return StateTurnEnd
	}
	s := *m.quickPlaceEntry
	m.quickPlaceEntry = nil
	return s
}

func (m *StateMachine) exitCardAction(Event) State {
	if m.quickPlaceEntry == nil {
		return StateTurnEnd
	}
	return *m.quickPlaceEntry
}

func (m *StateMachine) cardActionToState(ev Event) State {
	switch ev.Action {
	case deck.ActionSwap:
		return StateSwapCardInHands
	case deck.ActionPeekSelf:
		return StatePeekSelf
	case deck.ActionPeekOther:
		return StatePeekOther
	case deck.ActionScramble:
		return StateScramble
	default:
		return m.quickPlaceFinished(ev)
	}
}

func (m *StateMachine) isMyTurn(ev Event) bool {
	return ev.Player == m.view.Me()
}

func (m *StateMachine) isOtherTurn(ev Event) bool {
	return ev.Player != m.view.Me()
}

func (m *StateMachine) deckHasCards(Event) bool {
	return m.view.Remaining() > 0
}

func (m *StateMachine) selectedDiscard(ev Event) bool {
	cards := ev.Selection.Cards
	return len(cards) > 0 && cards[0] == m.view.DiscardID()
}

// isQuickPlace does not consider locked hands; the server has the last word
func (m *StateMachine) isQuickPlace(ev Event) bool {
	return len(ev.Selection.Cards) == 1 && m.view.Remaining() > 0 && m.anyInHand(ev.Selection.Cards)
}

func (m *StateMachine) oneOwnCard(ev Event) bool {
	return len(ev.Selection.Cards) == 1 && m.anyInHand(ev.Selection.Cards)
}

func (m *StateMachine) oneOtherCard(ev Event) bool {
	return len(ev.Selection.Cards) == 1 && m.inOtherHand(ev.Selection.Cards[0])
}

func (m *StateMachine) twoHandCards(ev Event) bool {
	cards := ev.Selection.Cards
	if len(cards) != 2 {
		return false
	}
	return m.anyInHand(cards) || m.inOtherHand(cards[0]) || m.inOtherHand(cards[1])
}

func (m *StateMachine) pickedHand(ev Event) bool {
	return ev.Selection.PickedHand && len(ev.Selection.Cards) == 0
}

func (m *StateMachine) anyInHand(cards []deck.CardID) bool {
	own := m.view.Hand(m.view.Me())
	for _, id := range cards {
		if slices.Contains(own, id) {
			return true
		}
	}
	return false
}

func (m *StateMachine) inOtherHand(id deck.CardID) bool {
	for _, p := range m.view.Players() {
		if p != m.view.Me() && slices.Contains(m.view.Hand(p), id) {
			return true
		}
	}
	return false
}
