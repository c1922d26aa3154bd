package server

import (
	"context"
	"errors"
	"fmt"
	rand "math/rand/v2"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/lox/eliminator/internal/deck"
	"github.com/lox/eliminator/internal/game"
	"github.com/lox/eliminator/internal/protocol"
	"github.com/lox/eliminator/internal/randutil"
)

var errLobbyClosed = errors.New("lobby closed before every seat was filled")

// MatchOption configures a MatchRunner
type MatchOption func(*MatchRunner)

// WithClock replaces the wall clock used for turn deadlines
func WithClock(clock quartz.Clock) MatchOption {
	return func(r *MatchRunner) { r.clock = clock }
}

// WithDeckFactory replaces how the draw pile is built
func WithDeckFactory(newDeck func(sets int, rng *rand.Rand) *deck.Deck) MatchOption {
	return func(r *MatchRunner) { r.newDeck = newDeck }
}

// WithFirstPlayer fixes who takes the first turn instead of drawing lots
func WithFirstPlayer(id byte) MatchOption {
	return func(r *MatchRunner) { r.firstPlayer = &id }
}

// WithMonitor reports match progress to m
func WithMonitor(m MatchMonitor) MatchOption {
	return func(r *MatchRunner) { r.monitor = NewMultiMatchMonitor(r.monitor, m) }
}

// WithMatchID overrides the generated match identifier
func WithMatchID(id string) MatchOption {
	return func(r *MatchRunner) { r.id = id }
}

// Standing is one player's line in the final result
type Standing struct {
	Player    byte   `json:"player"`
	Name      string `json:"name"`
	Score     int    `json:"score"`
	Connected bool   `json:"connected"`
}

// MatchResult is what a finished match reports back
type MatchResult struct {
	MatchID   string     `json:"match_id"`
	Reason    string     `json:"reason"`
	Standings []Standing `json:"standings"`
}

// step is the acting player and what they may do, saved while a successful
// quick-place hands the action to someone else
type step struct {
	actor    int
	expected game.ActionSet
}

// MatchRunner is the single goroutine that owns a match: it seats players,
// deals, and then validates and applies every request in arrival order.
type MatchRunner struct {
	id          string
	settings    GameSettings
	pool        *Pool
	inbox       *Inbox
	clock       quartz.Clock
	rng         *rand.Rand
	logger      *log.Logger
	newDeck     func(sets int, rng *rand.Rand) *deck.Deck
	firstPlayer *byte
	monitor     MatchMonitor

	names map[byte]string

	hands     *game.HandManager
	seats     []int
	connected map[int]bool
	turn      int
	actor     int
	expected  game.ActionSet
	resume    *step
	called    bool
	caller    int
	turnSeq   uint64
	deadline  time.Time
	timer     *quartz.Timer
	over      bool
	result    *MatchResult
}

// NewMatchRunner creates a runner for one match
func NewMatchRunner(logger *log.Logger, pool *Pool, inbox *Inbox, settings GameSettings, rng *rand.Rand, opts ...MatchOption) *MatchRunner {
	r := &MatchRunner{
		settings:  settings,
		pool:      pool,
		inbox:     inbox,
		clock:     quartz.NewReal(),
		rng:       rng,
		newDeck:   deck.New,
		monitor:   NullMatchMonitor{},
		names:     make(map[byte]string, settings.Players),
		connected: make(map[int]bool, settings.Players),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.id == "" {
		r.id = newMatchID()
	}
	r.logger = logger.WithPrefix("match").With("match_id", r.id)
	return r
}

func newMatchID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// ID returns the match identifier
func (r *MatchRunner) ID() string {
	return r.id
}

// Run fills the seats, plays the match to the end and returns the final
// standings. It returns early with the context's error if ctx is cancelled.
func (r *MatchRunner) Run(ctx context.Context) (*MatchResult, error) {
	defer r.inbox.Close()
	defer r.stopTimer()

	if err := r.lobby(ctx); err != nil {
		return nil, err
	}
	if err := r.startGame(); err != nil {
		return nil, err
	}

	for !r.over {
		if r.inbox.Len() == 0 && r.turnExpired() {
			r.logger.Debug("Turn deadline passed with nothing queued", "player", r.turn)
			r.forceEndTurn(r.turnSeq)
			continue
		}

		select {
		case env := <-r.inbox.C():
			r.dispatch(env)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return r.result, nil
}

func (r *MatchRunner) startGame() error {
	n := r.settings.Players
	ids := r.pool.IDs()
	if len(ids) != n || int(ids[n-1]) != n-1 {
		return fmt.Errorf("seats are not contiguous after lobby: %v", ids)
	}

	r.seats = make([]int, n)
	players := make([]protocol.PlayerInfo, n)
	for i := range n {
		r.seats[i] = i
		r.connected[i] = true
		players[i] = protocol.PlayerInfo{ID: byte(i), Name: r.names[byte(i)]}
	}

	d := r.newDeck(r.settings.DeckSets, randutil.Child(r.rng))
	hands, err := game.NewHandManager(n, r.settings.StartingCards, d, deck.NewRegistry(), randutil.Child(r.rng))
	if err != nil {
		return fmt.Errorf("failed to deal: %w", err)
	}
	r.hands = hands

	r.pool.Broadcast(&protocol.InitialiseGame{
		StartingCards: int32(r.settings.StartingCards),
		DeckSize:      int32(r.settings.DeckSets),
		TurnTimeLimit: int32(r.settings.TurnTimeLimit),
		Players:       players,
	})

	r.monitor.OnMatchStart(r.id, players)

	first := r.rng.IntN(n)
	if r.firstPlayer != nil {
		first = int(*r.firstPlayer)
	}

	r.logger.Info("Match started",
		"players", n,
		"starting_cards", hands.StartingCards(),
		"deck_sets", hands.DeckSets(),
		"remaining", hands.Remaining(),
		"first", first)

	r.startTurn(first)
	return nil
}

func (r *MatchRunner) dispatch(env Envelope) {
	if !env.Internal && !r.pool.Owns(env.From, env.conn) {
		r.logger.Debug("Dropping message from a closed seat", "player", env.From, "op", env.Msg.OpCode())
		return
	}

	switch m := env.Msg.(type) {
	case *protocol.Disconnection:
		if env.Internal {
			r.handleDisconnection(env)
			return
		}
	case *protocol.ForceEndTurn:
		if env.Internal {
			r.forceEndTurn(env.Turn)
			return
		}
	case *protocol.Draw:
		r.handleDraw(env.From)
		return
	case *protocol.Discard:
		r.handleDiscard(env.From)
		return
	case *protocol.Swap:
		r.handleSwap(env.From, m)
		return
	case *protocol.Peek:
		r.handlePeek(env.From, m)
		return
	case *protocol.Scramble:
		r.handleScramble(env.From, m)
		return
	case *protocol.QuickPlace:
		r.handleQuickPlace(env.From, m)
		return
	case *protocol.PassTurn:
		r.handlePassTurn(env.From)
		return
	case *protocol.CallIt:
		r.handleCallIt(env.From)
		return
	}

	r.reject(env.From, env.Msg.OpCode(), protocol.RejectNotExpected)
}

func (r *MatchRunner) handleDraw(from byte) {
	if int(from) != r.actor {
		r.reject(from, protocol.OpDraw, protocol.RejectNotYourTurn)
		return
	}
	if !r.expected.Has(deck.ActionDraw) {
		r.reject(from, protocol.OpDraw, protocol.RejectNotExpected)
		return
	}
	if r.hands.Remaining() < 1 {
		r.reject(from, protocol.OpDraw, protocol.RejectDeckEmpty)
		return
	}

	v, err := r.hands.Draw()
	if err != nil {
		r.engineFault(from, protocol.OpDraw, err)
		return
	}

	r.expected = game.NewActionSet(deck.ActionSwap)
	r.pool.Send(from, &protocol.DrawResult{Value: v})
	r.pool.BroadcastExcept(&protocol.DisplayDraw{}, from)
	r.logger.Debug("Drew card", "player", from, "remaining", r.hands.Remaining())
}

func (r *MatchRunner) handleDiscard(from byte) {
	if int(from) != r.actor {
		r.reject(from, protocol.OpDiscard, protocol.RejectNotYourTurn)
		return
	}
	if !r.drawPending() {
		r.reject(from, protocol.OpDiscard, protocol.RejectNotExpected)
		return
	}

	v, ok := r.discardHeld(from)
	if !ok {
		return
	}
	r.expected = game.NewActionSet(v.Action())
}

func (r *MatchRunner) handleSwap(from byte, m *protocol.Swap) {
	p := int(from)
	if p != r.actor {
		r.reject(from, protocol.OpSwap, protocol.RejectNotYourTurn)
		return
	}

	held, discard := r.hands.HeldID(), r.hands.DiscardID()
	switch {
	case r.drawPending():
		var other deck.CardID
		switch held {
		case m.First:
			other = m.Second
		case m.Second:
			other = m.First
		default:
			r.reject(from, protocol.OpSwap, protocol.RejectDrawUnresolved)
			return
		}

		if other == discard {
			v, ok := r.discardHeld(from)
			if ok {
				r.expected = game.NewActionSet(v.Action())
			}
			return
		}
		if !r.checkOwnCard(from, protocol.OpSwap, other) {
			return
		}
		kind, err := r.hands.Swap(held, other)
		if err != nil {
			r.engineFault(from, protocol.OpSwap, err)
			return
		}
		r.logger.Debug("Swapped", "player", from, "kind", kind, "first", m.First, "second", m.Second)
		r.pool.BroadcastExcept(&protocol.DisplaySwap{First: m.First, Second: m.Second}, from)
		if _, ok := r.discardHeld(from); ok {
			r.expected = game.NewActionSet(deck.ActionNone)
		}

	case r.expected.Has(deck.ActionDiscardSwap):
		var other deck.CardID
		switch discard {
		case m.First:
			other = m.Second
		case m.Second:
			other = m.First
		default:
			r.reject(from, protocol.OpSwap, protocol.RejectNotExpected)
			return
		}
		if _, ok := r.hands.TopDiscard(); !ok {
			r.reject(from, protocol.OpSwap, protocol.RejectNotExpected)
			return
		}
		if !r.checkOwnCard(from, protocol.OpSwap, other) {
			return
		}
		kind, err := r.hands.Swap(discard, other)
		if err != nil {
			r.engineFault(from, protocol.OpSwap, err)
			return
		}
		r.logger.Debug("Swapped", "player", from, "kind", kind, "first", m.First, "second", m.Second)
		top, _ := r.hands.TopDiscard()
		r.pool.BroadcastExcept(&protocol.DisplaySwap{First: m.First, Second: m.Second}, from)
		r.pool.Broadcast(&protocol.DiscardResult{Value: top})
		r.expected = game.NewActionSet(deck.ActionNone)

	case r.expected.Has(deck.ActionSwap):
		ownerA, okA := r.hands.Owner(m.First)
		ownerB, okB := r.hands.Owner(m.Second)
		if !okA || !okB || m.First == m.Second {
			r.reject(from, protocol.OpSwap, protocol.RejectUnknownCard)
			return
		}
		if r.isLocked(ownerA) || r.isLocked(ownerB) {
			r.reject(from, protocol.OpSwap, protocol.RejectHandLocked)
			return
		}
		kind, err := r.hands.Swap(m.First, m.Second)
		if err != nil {
			r.engineFault(from, protocol.OpSwap, err)
			return
		}
		r.logger.Debug("Swapped", "player", from, "kind", kind, "first", m.First, "second", m.Second)
		r.pool.BroadcastExcept(&protocol.DisplaySwap{First: m.First, Second: m.Second}, from)
		r.finishAbility()

	default:
		r.reject(from, protocol.OpSwap, protocol.RejectNotExpected)
	}
}

func (r *MatchRunner) handlePeek(from byte, m *protocol.Peek) {
	p := int(from)
	if p != r.actor {
		r.reject(from, protocol.OpPeek, protocol.RejectNotYourTurn)
		return
	}
	owner, ok := r.hands.Owner(m.Card)
	if !ok {
		r.reject(from, protocol.OpPeek, protocol.RejectUnknownCard)
		return
	}

	want := deck.ActionPeekOther
	if owner == p {
		want = deck.ActionPeekSelf
	}
	if !r.expected.Has(want) {
		r.reject(from, protocol.OpPeek, protocol.RejectNotExpected)
		return
	}
	if r.isLocked(owner) {
		r.reject(from, protocol.OpPeek, protocol.RejectHandLocked)
		return
	}

	v, err := r.hands.Value(m.Card)
	if err != nil {
		r.engineFault(from, protocol.OpPeek, err)
		return
	}
	r.pool.Send(from, &protocol.PeekResult{Value: v})
	r.pool.BroadcastExcept(&protocol.DisplayPeek{Card: m.Card}, from)
	r.finishAbility()
}

func (r *MatchRunner) handleScramble(from byte, m *protocol.Scramble) {
	if int(from) != r.actor {
		r.reject(from, protocol.OpScramble, protocol.RejectNotYourTurn)
		return
	}
	if !r.expected.Has(deck.ActionScramble) {
		r.reject(from, protocol.OpScramble, protocol.RejectNotExpected)
		return
	}
	target := int(m.Player)
	if target >= r.hands.Players() {
		r.reject(from, protocol.OpScramble, protocol.RejectUnknownPlayer)
		return
	}
	if r.isLocked(target) {
		r.reject(from, protocol.OpScramble, protocol.RejectHandLocked)
		return
	}

	if err := r.hands.Scramble(target); err != nil {
		r.engineFault(from, protocol.OpScramble, err)
		return
	}
	r.pool.BroadcastExcept(&protocol.DisplayScramble{Player: m.Player}, from)
	r.finishAbility()
}

// handleQuickPlace lets any player shed a card matching the top of the
// discard pile, whether or not it is their turn. A hit hands the placed
// card's ability to the placer before play returns to where it was.
func (r *MatchRunner) handleQuickPlace(from byte, m *protocol.QuickPlace) {
	p := int(from)
	if r.resume != nil {
		r.reject(from, protocol.OpQuickPlace, protocol.RejectInterruptPending)
		return
	}
	if r.hands.Remaining() < 1 {
		r.reject(from, protocol.OpQuickPlace, protocol.RejectDeckEmpty)
		return
	}
	if !r.checkOwnCard(from, protocol.OpQuickPlace, m.Card) {
		return
	}

	r.pool.BroadcastExcept(&protocol.QuickPlace{Card: m.Card, SeenDiscard: m.SeenDiscard}, from)

	v, err := r.hands.Value(m.Card)
	if err != nil {
		r.engineFault(from, protocol.OpQuickPlace, err)
		return
	}
	placed, err := r.hands.QuickPlace(m.Card)
	if err != nil {
		r.engineFault(from, protocol.OpQuickPlace, err)
		return
	}

	switch {
	case placed:
		r.pool.Broadcast(&protocol.QuickPlaceResult{Result: protocol.QuickPlaceSuccess, Player: from, Value: v})
		if a := v.Action(); a != deck.ActionNone {
			r.resume = &step{actor: r.actor, expected: r.expected}
			r.actor = p
			r.expected = game.NewActionSet(a)
		}
		r.logger.Info("Quick-place succeeded", "player", from, "card", v)

	case v == m.SeenDiscard:
		r.pool.Broadcast(&protocol.QuickPlaceResult{Result: protocol.QuickPlaceTooLate, Player: from, Value: v})
		r.logger.Info("Quick-place too late", "player", from, "card", v)

	default:
		if _, err := r.hands.Punish(p); err != nil {
			r.engineFault(from, protocol.OpQuickPlace, err)
			return
		}
		r.pool.Broadcast(&protocol.QuickPlaceResult{Result: protocol.QuickPlaceFailure, Player: from, Value: v})
		r.logger.Info("Quick-place failed, player punished", "player", from, "card", v)
	}
}

func (r *MatchRunner) handlePassTurn(from byte) {
	switch {
	case int(from) != r.turn:
		r.reject(from, protocol.OpPassTurn, protocol.RejectNotYourTurn)
	case r.resume != nil:
		r.reject(from, protocol.OpPassTurn, protocol.RejectInterruptPending)
	case r.drawPending():
		r.reject(from, protocol.OpPassTurn, protocol.RejectDrawUnresolved)
	default:
		r.monitor.OnTurnEnd(from, false)
		r.endTurn()
	}
}

func (r *MatchRunner) handleCallIt(from byte) {
	switch {
	case int(from) != r.turn:
		r.reject(from, protocol.OpCallIt, protocol.RejectNotYourTurn)
	case r.called:
		r.reject(from, protocol.OpCallIt, protocol.RejectAlreadyCalled)
	case r.resume != nil:
		r.reject(from, protocol.OpCallIt, protocol.RejectInterruptPending)
	default:
		r.called = true
		r.caller = r.turn
		r.pool.Broadcast(&protocol.CalledIt{})
		r.logger.Info("Player called it", "player", from)
	}
}

func (r *MatchRunner) handleDisconnection(env Envelope) {
	p := int(env.From)
	if !r.pool.Remove(env.From, env.conn) {
		return
	}
	r.connected[p] = false
	r.monitor.OnPlayerLeft(env.From)
	r.pool.Broadcast(&protocol.Disconnection{Player: env.From})
	r.logger.Info("Player disconnected", "player", p, "remaining", r.connectedCount())

	if r.connectedCount() < 2 {
		r.endGame("not enough players")
		return
	}
	if r.resume != nil && r.actor == p {
		r.finishAbility()
	}
	if p == r.turn {
		if _, held := r.hands.Held(); held {
			r.discardHeld(protocol.ServerID)
		}
		r.resume = nil
		r.endTurn()
	}
}

func (r *MatchRunner) forceEndTurn(seq uint64) {
	if seq != r.turnSeq {
		r.logger.Debug("Ignoring stale turn timeout", "turn_seq", seq, "current", r.turnSeq)
		return
	}

	r.logger.Info("Turn timed out", "player", r.turn)
	if _, held := r.hands.Held(); held {
		r.discardHeld(protocol.ServerID)
	}
	r.resume = nil
	r.monitor.OnTurnEnd(byte(r.turn), true)
	r.endTurn()
}

func (r *MatchRunner) endTurn() {
	next, steps, ok := game.NextSeat(r.seats, r.turn, r.isConnected)
	if !ok {
		r.endGame("no players left")
		return
	}
	if r.called {
		if dist, _ := game.Distance(r.seats, r.turn, r.caller); steps >= dist {
			r.endGame("called")
			return
		}
	}
	r.startTurn(next)
}

func (r *MatchRunner) startTurn(p int) {
	r.turn = p
	r.actor = p
	r.expected = game.TurnStart
	r.resume = nil
	r.turnSeq++

	seq := r.turnSeq
	limit := r.settings.TurnDuration()
	r.deadline = r.clock.Now().Add(limit)
	r.stopTimer()
	r.timer = r.clock.AfterFunc(limit, func() {
		r.inbox.Push(Envelope{From: protocol.ServerID, Msg: &protocol.ForceEndTurn{}, Internal: true, Turn: seq})
	}, "turn")

	r.pool.Broadcast(&protocol.StartTurn{Player: byte(p)})
	r.logger.Debug("Turn started", "player", p, "turn_seq", seq, "deadline", r.deadline)
}

func (r *MatchRunner) endGame(reason string) {
	scores := r.hands.ScoreAll()
	msg := &protocol.GameEnd{Scores: make([]protocol.PlayerScore, 0, len(scores))}
	standings := make([]Standing, 0, len(scores))
	for _, s := range scores {
		id := byte(s.Player)
		msg.Scores = append(msg.Scores, protocol.PlayerScore{ID: id, Score: int32(s.Points)})
		standings = append(standings, Standing{
			Player:    id,
			Name:      r.names[id],
			Score:     s.Points,
			Connected: r.connected[s.Player],
		})
	}
	r.pool.Broadcast(msg)

	r.over = true
	r.deadline = time.Time{}
	r.stopTimer()
	r.result = &MatchResult{MatchID: r.id, Reason: reason, Standings: standings}
	r.monitor.OnMatchComplete(*r.result)
	r.logger.Info("Match finished", "reason", reason, "scores", scores)
}

// discardHeld throws the held card away and tells everyone the new top
func (r *MatchRunner) discardHeld(from byte) (deck.Value, bool) {
	v, err := r.hands.DiscardHeld()
	if err != nil {
		r.engineFault(from, protocol.OpDiscard, err)
		return deck.NoValue, false
	}
	r.pool.Broadcast(&protocol.DiscardResult{Value: v})
	return v, true
}

// finishAbility closes an ability step, handing play back to whoever a
// quick-place interrupted
func (r *MatchRunner) finishAbility() {
	if r.resume != nil {
		r.actor, r.expected = r.resume.actor, r.resume.expected
		r.resume = nil
		return
	}
	r.expected = game.NewActionSet(deck.ActionNone)
}

// drawPending reports whether the turn player is still deciding what to do
// with a drawn card
func (r *MatchRunner) drawPending() bool {
	_, held := r.hands.Held()
	return held && r.resume == nil && r.expected.Has(deck.ActionSwap)
}

// checkOwnCard rejects unless card sits in from's own, unlocked hand
func (r *MatchRunner) checkOwnCard(from byte, op protocol.OpCode, card deck.CardID) bool {
	owner, ok := r.hands.Owner(card)
	switch {
	case !ok:
		r.reject(from, op, protocol.RejectUnknownCard)
		return false
	case owner != int(from):
		r.reject(from, op, protocol.RejectNotOwned)
		return false
	case r.isLocked(owner):
		r.reject(from, op, protocol.RejectHandLocked)
		return false
	}
	return true
}

func (r *MatchRunner) isLocked(player int) bool {
	if !r.called {
		return false
	}
	open, ok := game.NonLocked(r.seats, r.caller, r.turn)
	return !ok || !slices.Contains(open, player)
}

func (r *MatchRunner) isConnected(player int) bool {
	return r.connected[player]
}

func (r *MatchRunner) connectedCount() int {
	n := 0
	for _, ok := range r.connected {
		if ok {
			n++
		}
	}
	return n
}

func (r *MatchRunner) turnExpired() bool {
	return !r.deadline.IsZero() && !r.clock.Now().Before(r.deadline)
}

func (r *MatchRunner) stopTimer() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

func (r *MatchRunner) reject(from byte, op protocol.OpCode, reason protocol.RejectReason) {
	r.logger.Warn("REJECTED request", "player", from, "op", op, "reason", reason,
		"turn", r.turn, "actor", r.actor, "expected", r.expected)
	if r.settings.RejectionNotices {
		r.pool.Send(from, &protocol.ActionRejected{Request: op, Reason: reason})
	}
}

// engineFault reports a request that passed validation but failed inside the
// engine. Faults raised by the server's own bookkeeping come from ServerID
// and notify nobody.
func (r *MatchRunner) engineFault(from byte, op protocol.OpCode, err error) {
	r.logger.Error("Engine rejected a validated request", "player", from, "op", op, "error", err)
	if from != protocol.ServerID && r.settings.RejectionNotices {
		r.pool.Send(from, &protocol.ActionRejected{Request: op, Reason: protocol.RejectInternal})
	}
}
