package protocol

import "github.com/lox/eliminator/internal/deck"

// ServerID is the sender id used for messages the server makes up itself
const ServerID byte = 255

// Message is implemented by every wire message
type Message interface {
	OpCode() OpCode
	encode(e *encoder)
	decode(d *decoder)
}

// PlayerInfo names one seat in InitialiseGame
type PlayerInfo struct {
	ID   byte
	Name string
}

// PlayerScore is one seat's total in GameEnd
type PlayerScore struct {
	ID    byte
	Score int32
}

// Server -> Client Messages

// AssignID tells a new connection its player id
type AssignID struct {
	Player byte
}

// ConnectionResponse accepts or refuses a username
type ConnectionResponse struct {
	Success bool
	Error   ErrorCode // only on the wire when Success is false
}

// InitialiseGame describes the table once every seat is filled
type InitialiseGame struct {
	StartingCards int32
	DeckSize      int32
	TurnTimeLimit int32 // seconds
	Players       []PlayerInfo
}

// QuickPlaceResult announces the verdict on a quick-place attempt
type QuickPlaceResult struct {
	Result QuickPlaceOutcome
	Player byte
	Value  deck.Value
}

// StartTurn names the player whose turn begins
type StartTurn struct {
	Player byte
}

// DrawResult reveals the drawn card to the drawer
type DrawResult struct {
	Value deck.Value
}

// DisplayDraw tells everyone else that a card was drawn
type DisplayDraw struct{}

// DiscardResult announces the new top of the discard pile
type DiscardResult struct {
	Value deck.Value
}

// DisplaySwap shows which two cards traded places
type DisplaySwap struct {
	First  deck.CardID
	Second deck.CardID
}

// PeekResult reveals a peeked card to the peeker
type PeekResult struct {
	Value deck.Value
}

// DisplayPeek shows which card was peeked at
type DisplayPeek struct {
	Card deck.CardID
}

// DisplayScramble shows whose hand was scrambled
type DisplayScramble struct {
	Player byte
}

// CalledIt tells everyone the current player has called it
type CalledIt struct{}

// GameEnd carries the final scores
type GameEnd struct {
	Scores []PlayerScore
}

// ActionRejected tells a client its request was ignored, and why
type ActionRejected struct {
	Request OpCode
	Reason  RejectReason
}

// Client -> Server Messages

// Connect asks for a username
type Connect struct {
	Username string
}

// QuickPlace tries to shed a card matching the top of the discard pile.
// SeenDiscard is what the client believed was on top when it acted.
type QuickPlace struct {
	Card        deck.CardID
	SeenDiscard deck.Value
}

// Draw takes the top of the deck
type Draw struct{}

// Discard throws the drawn card away
type Discard struct{}

// Swap exchanges two cards
type Swap struct {
	First  deck.CardID
	Second deck.CardID
}

// Peek looks at a card
type Peek struct {
	Card deck.CardID
}

// Scramble shuffles another player's hand
type Scramble struct {
	Player byte
}

// PassTurn ends the sender's turn
type PassTurn struct{}

// CallIt declares the final round
type CallIt struct{}

// Both directions

// Disconnection announces that a player left. The server also makes these
// up when a connection drops.
type Disconnection struct {
	Player byte
}

// ForceEndTurn ends the current turn when its time runs out
type ForceEndTurn struct{}

func (*AssignID) OpCode() OpCode           { return OpAssignID }
func (*Connect) OpCode() OpCode            { return OpConnect }
func (*ConnectionResponse) OpCode() OpCode { return OpConnectionResponse }
func (*InitialiseGame) OpCode() OpCode     { return OpInitialiseGame }
func (*Disconnection) OpCode() OpCode      { return OpDisconnection }
func (*QuickPlace) OpCode() OpCode         { return OpQuickPlace }
func (*QuickPlaceResult) OpCode() OpCode   { return OpQuickPlaceResult }
func (*StartTurn) OpCode() OpCode          { return OpStartTurn }
func (*Draw) OpCode() OpCode               { return OpDraw }
func (*DrawResult) OpCode() OpCode         { return OpDrawResult }
func (*DisplayDraw) OpCode() OpCode        { return OpDisplayDraw }
func (*Discard) OpCode() OpCode            { return OpDiscard }
func (*DiscardResult) OpCode() OpCode      { return OpDiscardResult }
func (*Swap) OpCode() OpCode               { return OpSwap }
func (*DisplaySwap) OpCode() OpCode        { return OpDisplaySwap }
func (*Peek) OpCode() OpCode               { return OpPeek }
func (*PeekResult) OpCode() OpCode         { return OpPeekResult }
func (*DisplayPeek) OpCode() OpCode        { return OpDisplayPeek }
func (*Scramble) OpCode() OpCode           { return OpScramble }
func (*DisplayScramble) OpCode() OpCode    { return OpDisplayScramble }
func (*PassTurn) OpCode() OpCode           { return OpPassTurn }
func (*ForceEndTurn) OpCode() OpCode       { return OpForceEndTurn }
func (*CallIt) OpCode() OpCode             { return OpCallIt }
func (*CalledIt) OpCode() OpCode           { return OpCalledIt }
func (*GameEnd) OpCode() OpCode            { return OpGameEnd }
func (*ActionRejected) OpCode() OpCode     { return OpActionRejected }

// newMessage returns an empty message for op, or nil if op is unknown
func newMessage(op OpCode) Message {
	switch op {
	case OpAssignID:
		return &AssignID{}
	case OpConnect:
		return &Connect{}
	case OpConnectionResponse:
		return &ConnectionResponse{}
	case OpInitialiseGame:
		return &InitialiseGame{}
	case OpDisconnection:
		return &Disconnection{}
	case OpQuickPlace:
		return &QuickPlace{}
	case OpQuickPlaceResult:
		return &QuickPlaceResult{}
	case OpStartTurn:
		return &StartTurn{}
	case OpDraw:
		return &Draw{}
	case OpDrawResult:
		return &DrawResult{}
	case OpDisplayDraw:
		return &DisplayDraw{}
	case OpDiscard:
		return &Discard{}
	case OpDiscardResult:
		return &DiscardResult{}
	case OpSwap:
		return &Swap{}
	case OpDisplaySwap:
		return &DisplaySwap{}
	case OpPeek:
		return &Peek{}
	case OpPeekResult:
		return &PeekResult{}
	case OpDisplayPeek:
		return &DisplayPeek{}
	case OpScramble:
		return &Scramble{}
	case OpDisplayScramble:
		return &DisplayScramble{}
	case OpPassTurn:
		return &PassTurn{}
	case OpForceEndTurn:
		return &ForceEndTurn{}
	case OpCallIt:
		return &CallIt{}
	case OpCalledIt:
		return &CalledIt{}
	case OpGameEnd:
		return &GameEnd{}
	case OpActionRejected:
		return &ActionRejected{}
	default:
		return nil
	}
}

func (m *AssignID) encode(e *encoder) { e.byte(m.Player) }
func (m *AssignID) decode(d *decoder) { m.Player = d.byte() }

func (m *Connect) encode(e *encoder) { e.string(m.Username) }
func (m *Connect) decode(d *decoder) { m.Username = d.string() }

func (m *ConnectionResponse) encode(e *encoder) {
	e.bool(m.Success)
	if !m.Success {
		e.byte(byte(m.Error))
	}
}

func (m *ConnectionResponse) decode(d *decoder) {
	m.Success = d.bool()
	if !m.Success {
		m.Error = ErrorCode(d.byte())
	}
}

func (m *InitialiseGame) encode(e *encoder) {
	e.int32(m.StartingCards)
	e.int32(m.DeckSize)
	e.int32(m.TurnTimeLimit)
	e.count(len(m.Players))
	for _, p := range m.Players {
		e.byte(p.ID)
		e.string(p.Name)
	}
}

func (m *InitialiseGame) decode(d *decoder) {
	m.StartingCards = d.int32()
	m.DeckSize = d.int32()
	m.TurnTimeLimit = d.int32()
	n := int(d.byte())
	if n == 0 || d.err != nil {
		return
	}
	m.Players = make([]PlayerInfo, n)
	for i := range m.Players {
		m.Players[i].ID = d.byte()
		m.Players[i].Name = d.string()
	}
}

func (m *Disconnection) encode(e *encoder) { e.byte(m.Player) }
func (m *Disconnection) decode(d *decoder) { m.Player = d.byte() }

func (m *QuickPlace) encode(e *encoder) {
	e.uint16(uint16(m.Card))
	e.byte(byte(m.SeenDiscard))
}

func (m *QuickPlace) decode(d *decoder) {
	m.Card = deck.CardID(d.uint16())
	m.SeenDiscard = deck.Value(d.byte())
}

func (m *QuickPlaceResult) encode(e *encoder) {
	e.byte(byte(m.Result))
	e.byte(m.Player)
	e.byte(byte(m.Value))
}

func (m *QuickPlaceResult) decode(d *decoder) {
	m.Result = QuickPlaceOutcome(d.byte())
	m.Player = d.byte()
	m.Value = deck.Value(d.byte())
}

func (m *StartTurn) encode(e *encoder) { e.byte(m.Player) }
func (m *StartTurn) decode(d *decoder) { m.Player = d.byte() }

func (m *DrawResult) encode(e *encoder) { e.byte(byte(m.Value)) }
func (m *DrawResult) decode(d *decoder) { m.Value = deck.Value(d.byte()) }

func (m *DiscardResult) encode(e *encoder) { e.byte(byte(m.Value)) }
func (m *DiscardResult) decode(d *decoder) { m.Value = deck.Value(d.byte()) }

func (m *Swap) encode(e *encoder) {
	e.uint16(uint16(m.First))
	e.uint16(uint16(m.Second))
}

func (m *Swap) decode(d *decoder) {
	m.First = deck.CardID(d.uint16())
	m.Second = deck.CardID(d.uint16())
}

func (m *DisplaySwap) encode(e *encoder) {
	e.uint16(uint16(m.First))
	e.uint16(uint16(m.Second))
}

func (m *DisplaySwap) decode(d *decoder) {
	m.First = deck.CardID(d.uint16())
	m.Second = deck.CardID(d.uint16())
}

func (m *Peek) encode(e *encoder) { e.uint16(uint16(m.Card)) }
func (m *Peek) decode(d *decoder) { m.Card = deck.CardID(d.uint16()) }

func (m *PeekResult) encode(e *encoder) { e.byte(byte(m.Value)) }
func (m *PeekResult) decode(d *decoder) { m.Value = deck.Value(d.byte()) }

func (m *DisplayPeek) encode(e *encoder) { e.uint16(uint16(m.Card)) }
func (m *DisplayPeek) decode(d *decoder) { m.Card = deck.CardID(d.uint16()) }

func (m *Scramble) encode(e *encoder) { e.byte(m.Player) }
func (m *Scramble) decode(d *decoder) { m.Player = d.byte() }

func (m *DisplayScramble) encode(e *encoder) { e.byte(m.Player) }
func (m *DisplayScramble) decode(d *decoder) { m.Player = d.byte() }

func (m *GameEnd) encode(e *encoder) {
	e.count(len(m.Scores))
	for _, s := range m.Scores {
		e.byte(s.ID)
		e.int32(s.Score)
	}
}

func (m *GameEnd) decode(d *decoder) {
	n := int(d.byte())
	if n == 0 || d.err != nil {
		return
	}
	m.Scores = make([]PlayerScore, n)
	for i := range m.Scores {
		m.Scores[i].ID = d.byte()
		m.Scores[i].Score = d.int32()
	}
}

func (m *ActionRejected) encode(e *encoder) {
	e.byte(byte(m.Request))
	e.byte(byte(m.Reason))
}

func (m *ActionRejected) decode(d *decoder) {
	m.Request = OpCode(d.byte())
	m.Reason = RejectReason(d.byte())
}

func (*DisplayDraw) encode(*encoder)  {}
func (*DisplayDraw) decode(*decoder)  {}
func (*Draw) encode(*encoder)         {}
func (*Draw) decode(*decoder)         {}
func (*Discard) encode(*encoder)      {}
func (*Discard) decode(*decoder)      {}
func (*PassTurn) encode(*encoder)     {}
func (*PassTurn) decode(*decoder)     {}
func (*ForceEndTurn) encode(*encoder) {}
func (*ForceEndTurn) decode(*decoder) {}
func (*CallIt) encode(*encoder)       {}
func (*CallIt) decode(*decoder)       {}
func (*CalledIt) encode(*encoder)     {}
func (*CalledIt) decode(*decoder)     {}
