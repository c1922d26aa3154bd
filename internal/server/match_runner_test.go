package server

import (
	"context"
	"errors"
	"testing"

	"github.com/lox/eliminator/internal/deck"
	"github.com/lox/eliminator/internal/protocol"
	"github.com/lox/eliminator/internal/randutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cards(vs ...int) []deck.Value {
	out := make([]deck.Value, len(vs))
	for i, v := range vs {
		out[i] = deck.Value(v)
	}
	return out
}

func expectRejected(t *testing.T, c *testClient, op protocol.OpCode, reason protocol.RejectReason) {
	t.Helper()
	m := expectMsg[*protocol.ActionRejected](c)
	assert.Equal(t, op, m.Request, "rejected request")
	assert.Equal(t, reason, m.Reason, "rejection reason")
}

// callAndFinish has p0 call it on their turn and both players pass until
// the game ends, returning the final scores each client saw.
func callAndFinish(t *testing.T, h *matchHarness) []protocol.PlayerScore {
	t.Helper()
	p0, p1 := h.clients[0], h.clients[1]

	p0.send(&protocol.CallIt{})
	expectAll[*protocol.CalledIt](p0, p1)
	p0.send(&protocol.PassTurn{})
	for _, st := range expectAll[*protocol.StartTurn](p0, p1) {
		require.Equal(t, byte(1), st.Player)
	}
	p1.send(&protocol.PassTurn{})
	ends := expectAll[*protocol.GameEnd](p0, p1)
	assert.Equal(t, ends[0].Scores, ends[1].Scores)
	return ends[0].Scores
}

func TestMatchDrawDiscardAndCall(t *testing.T) {
	t.Parallel()
	h := startMatch(t, testSettings(2, 4), 0, cards(1, 2, 3, 4, 14, 15, 16, 17, 5, 20, 6)...)
	p0, p1 := h.clients[0], h.clients[1]

	p0.send(&protocol.Draw{})
	assert.Equal(t, deck.Value(5), expectMsg[*protocol.DrawResult](p0).Value)
	expectMsg[*protocol.DisplayDraw](p1)

	p0.send(&protocol.Discard{})
	for _, m := range expectAll[*protocol.DiscardResult](p0, p1) {
		assert.Equal(t, deck.Value(5), m.Value)
	}

	p0.send(&protocol.PassTurn{})
	for _, m := range expectAll[*protocol.StartTurn](p0, p1) {
		assert.Equal(t, byte(1), m.Player)
	}

	// swap the drawn card into hand; the replaced card goes to the discard
	p1.send(&protocol.Draw{})
	assert.Equal(t, deck.Value(20), expectMsg[*protocol.DrawResult](p1).Value)
	expectMsg[*protocol.DisplayDraw](p0)

	p1.send(&protocol.Swap{First: 0, Second: 6})
	ds := expectMsg[*protocol.DisplaySwap](p0)
	assert.Equal(t, protocol.DisplaySwap{First: 0, Second: 6}, *ds)
	for _, m := range expectAll[*protocol.DiscardResult](p0, p1) {
		assert.Equal(t, deck.Value(14), m.Value)
	}

	p1.send(&protocol.PassTurn{})
	for _, m := range expectAll[*protocol.StartTurn](p0, p1) {
		assert.Equal(t, byte(0), m.Player)
	}

	scores := callAndFinish(t, h)
	assert.Equal(t, []protocol.PlayerScore{{ID: 0, Score: 10}, {ID: 1, Score: 16}}, scores)

	result := h.wait()
	assert.Equal(t, "test-match", result.MatchID)
	assert.Equal(t, "called", result.Reason)
	assert.Equal(t, []Standing{
		{Player: 0, Name: "a", Score: 10, Connected: true},
		{Player: 1, Name: "b", Score: 16, Connected: true},
	}, result.Standings)
}

func TestMatchPeekAbilities(t *testing.T) {
	t.Parallel()
	h := startMatch(t, testSettings(2, 4), 0, cards(1, 2, 3, 4, 14, 15, 16, 17, 7, 9, 5)...)
	p0, p1 := h.clients[0], h.clients[1]

	p0.send(&protocol.Draw{})
	expectMsg[*protocol.DrawResult](p0)
	expectMsg[*protocol.DisplayDraw](p1)
	p0.send(&protocol.Discard{})
	expectAll[*protocol.DiscardResult](p0, p1)

	// a seven only lets you look at your own cards
	p0.send(&protocol.Peek{Card: 6})
	expectRejected(t, p0, protocol.OpPeek, protocol.RejectNotExpected)

	p0.send(&protocol.Peek{Card: 3})
	assert.Equal(t, deck.Value(2), expectMsg[*protocol.PeekResult](p0).Value)
	assert.Equal(t, deck.CardID(3), expectMsg[*protocol.DisplayPeek](p1).Card)

	p0.send(&protocol.Draw{})
	expectRejected(t, p0, protocol.OpDraw, protocol.RejectNotExpected)

	p0.send(&protocol.PassTurn{})
	expectAll[*protocol.StartTurn](p0, p1)

	// swapping the held card onto the discard pile is a plain discard
	p1.send(&protocol.Draw{})
	assert.Equal(t, deck.Value(9), expectMsg[*protocol.DrawResult](p1).Value)
	expectMsg[*protocol.DisplayDraw](p0)
	p1.send(&protocol.Swap{First: 0, Second: 1})
	for _, m := range expectAll[*protocol.DiscardResult](p0, p1) {
		assert.Equal(t, deck.Value(9), m.Value)
	}

	p1.send(&protocol.Peek{Card: 7})
	expectRejected(t, p1, protocol.OpPeek, protocol.RejectNotExpected)

	p1.send(&protocol.Peek{Card: 2})
	assert.Equal(t, deck.Value(1), expectMsg[*protocol.PeekResult](p1).Value)
	assert.Equal(t, deck.CardID(2), expectMsg[*protocol.DisplayPeek](p0).Card)
}

func TestMatchSwapAbility(t *testing.T) {
	t.Parallel()
	h := startMatch(t, testSettings(2, 4), 0, cards(18, 2, 3, 4, 1, 15, 16, 17, 11, 5)...)
	p0, p1 := h.clients[0], h.clients[1]

	p0.send(&protocol.Draw{})
	assert.Equal(t, deck.Value(11), expectMsg[*protocol.DrawResult](p0).Value)
	expectMsg[*protocol.DisplayDraw](p1)
	p0.send(&protocol.Discard{})
	expectAll[*protocol.DiscardResult](p0, p1)

	p0.send(&protocol.Swap{First: 2, Second: 99})
	expectRejected(t, p0, protocol.OpSwap, protocol.RejectUnknownCard)

	p0.send(&protocol.Swap{First: 2, Second: 6})
	assert.Equal(t, protocol.DisplaySwap{First: 2, Second: 6}, *expectMsg[*protocol.DisplaySwap](p1))

	scores := callAndFinish(t, h)
	assert.Equal(t, []protocol.PlayerScore{{ID: 0, Score: 10}, {ID: 1, Score: 14}}, scores)
}

func TestMatchLogsSwapKind(t *testing.T) {
	t.Parallel()
	logger, out := debugLogger()
	h := startLoggedMatch(t, logger, testSettings(2, 4), 0, nil, cards(18, 2, 3, 4, 1, 15, 16, 17, 11, 5)...)
	p0, p1 := h.clients[0], h.clients[1]

	// the drawn 11 goes into p0's hand, then p1 takes the replaced 18 from the discard
	p0.send(&protocol.Draw{})
	expectMsg[*protocol.DrawResult](p0)
	expectMsg[*protocol.DisplayDraw](p1)
	p0.send(&protocol.Swap{First: 0, Second: 2})
	expectMsg[*protocol.DisplaySwap](p1)
	expectAll[*protocol.DiscardResult](p0, p1)
	p0.send(&protocol.PassTurn{})
	expectAll[*protocol.StartTurn](p0, p1)

	p1.send(&protocol.Swap{First: 1, Second: 6})
	expectMsg[*protocol.DisplaySwap](p0)
	expectAll[*protocol.DiscardResult](p0, p1)

	logs := out.String()
	assert.Contains(t, logs, "kind=with-held")
	assert.Contains(t, logs, "kind=from-discard")
}

func TestMatchDiscardSwapAtTurnStart(t *testing.T) {
	t.Parallel()
	h := startMatch(t, testSettings(2, 4), 0, cards(1, 2, 3, 4, 14, 15, 16, 17, 5, 6)...)
	p0, p1 := h.clients[0], h.clients[1]

	// nothing on the discard pile yet
	p0.send(&protocol.Swap{First: 1, Second: 2})
	expectRejected(t, p0, protocol.OpSwap, protocol.RejectNotExpected)

	p0.send(&protocol.Draw{})
	expectMsg[*protocol.DrawResult](p0)
	expectMsg[*protocol.DisplayDraw](p1)
	p0.send(&protocol.Discard{})
	expectAll[*protocol.DiscardResult](p0, p1)
	p0.send(&protocol.PassTurn{})
	expectAll[*protocol.StartTurn](p0, p1)

	p1.send(&protocol.Swap{First: 1, Second: 2})
	expectRejected(t, p1, protocol.OpSwap, protocol.RejectNotOwned)

	p1.send(&protocol.Swap{First: 6, Second: 1})
	assert.Equal(t, protocol.DisplaySwap{First: 6, Second: 1}, *expectMsg[*protocol.DisplaySwap](p0))
	for _, m := range expectAll[*protocol.DiscardResult](p0, p1) {
		assert.Equal(t, deck.Value(14), m.Value)
	}

	p1.send(&protocol.Draw{})
	expectRejected(t, p1, protocol.OpDraw, protocol.RejectNotExpected)

	p1.send(&protocol.CallIt{})
	expectAll[*protocol.CalledIt](p0, p1)
	p1.send(&protocol.PassTurn{})
	expectAll[*protocol.StartTurn](p0, p1)
	p0.send(&protocol.PassTurn{})

	end := expectAll[*protocol.GameEnd](p0, p1)[0]
	assert.Equal(t, []protocol.PlayerScore{{ID: 0, Score: 10}, {ID: 1, Score: 14}}, end.Scores)
}

func TestMatchScramble(t *testing.T) {
	t.Parallel()
	h := startMatch(t, testSettings(2, 4), 0, cards(1, 2, 3, 4, 14, 15, 16, 17, 26, 5)...)
	p0, p1 := h.clients[0], h.clients[1]

	p0.send(&protocol.Draw{})
	assert.Equal(t, deck.Value(26), expectMsg[*protocol.DrawResult](p0).Value)
	expectMsg[*protocol.DisplayDraw](p1)
	p0.send(&protocol.Discard{})
	expectAll[*protocol.DiscardResult](p0, p1)

	p0.send(&protocol.Scramble{Player: 5})
	expectRejected(t, p0, protocol.OpScramble, protocol.RejectUnknownPlayer)

	p0.send(&protocol.Scramble{Player: 1})
	assert.Equal(t, byte(1), expectMsg[*protocol.DisplayScramble](p1).Player)

	p0.send(&protocol.Scramble{Player: 1})
	expectRejected(t, p0, protocol.OpScramble, protocol.RejectNotExpected)

	scores := callAndFinish(t, h)
	assert.Equal(t, []protocol.PlayerScore{{ID: 0, Score: 10}, {ID: 1, Score: 10}}, scores)
}

func TestMatchQuickPlaceInterruptsAbility(t *testing.T) {
	t.Parallel()
	h := startMatch(t, testSettings(2, 4), 0, cards(1, 2, 3, 4, 8, 15, 16, 17, 8, 5)...)
	p0, p1 := h.clients[0], h.clients[1]

	p0.send(&protocol.Draw{})
	expectMsg[*protocol.DrawResult](p0)
	expectMsg[*protocol.DisplayDraw](p1)
	p0.send(&protocol.Discard{})
	expectAll[*protocol.DiscardResult](p0, p1)

	p1.send(&protocol.QuickPlace{Card: 6, SeenDiscard: 8})
	assert.Equal(t, protocol.QuickPlace{Card: 6, SeenDiscard: 8}, *expectMsg[*protocol.QuickPlace](p0))
	for _, m := range expectAll[*protocol.QuickPlaceResult](p0, p1) {
		assert.Equal(t, protocol.QuickPlaceResult{Result: protocol.QuickPlaceSuccess, Player: 1, Value: 8}, *m)
	}

	// the placer now owns the peek; everyone else waits
	p1.send(&protocol.QuickPlace{Card: 7, SeenDiscard: 8})
	expectRejected(t, p1, protocol.OpQuickPlace, protocol.RejectInterruptPending)
	p0.send(&protocol.Peek{Card: 2})
	expectRejected(t, p0, protocol.OpPeek, protocol.RejectNotYourTurn)
	p0.send(&protocol.PassTurn{})
	expectRejected(t, p0, protocol.OpPassTurn, protocol.RejectInterruptPending)

	p1.send(&protocol.Peek{Card: 7})
	assert.Equal(t, deck.Value(15), expectMsg[*protocol.PeekResult](p1).Value)
	assert.Equal(t, deck.CardID(7), expectMsg[*protocol.DisplayPeek](p0).Card)

	// and play resumes with p0's own peek
	p0.send(&protocol.Peek{Card: 2})
	assert.Equal(t, deck.Value(1), expectMsg[*protocol.PeekResult](p0).Value)
	expectMsg[*protocol.DisplayPeek](p1)

	scores := callAndFinish(t, h)
	assert.Equal(t, []protocol.PlayerScore{{ID: 0, Score: 10}, {ID: 1, Score: 9}}, scores)
}

func TestMatchQuickPlaceFailureAndTooLate(t *testing.T) {
	t.Parallel()
	h := startMatch(t, testSettings(2, 4), 0, cards(1, 2, 3, 4, 14, 15, 16, 17, 5, 6, 7)...)
	p0, p1 := h.clients[0], h.clients[1]

	p0.send(&protocol.Draw{})
	expectMsg[*protocol.DrawResult](p0)
	expectMsg[*protocol.DisplayDraw](p1)
	p0.send(&protocol.Discard{})
	expectAll[*protocol.DiscardResult](p0, p1)

	p1.send(&protocol.QuickPlace{Card: 2, SeenDiscard: 1})
	expectRejected(t, p1, protocol.OpQuickPlace, protocol.RejectNotOwned)
	p1.send(&protocol.QuickPlace{Card: 99, SeenDiscard: 1})
	expectRejected(t, p1, protocol.OpQuickPlace, protocol.RejectUnknownCard)

	p1.send(&protocol.QuickPlace{Card: 6, SeenDiscard: 5})
	expectMsg[*protocol.QuickPlace](p0)
	for _, m := range expectAll[*protocol.QuickPlaceResult](p0, p1) {
		assert.Equal(t, protocol.QuickPlaceResult{Result: protocol.QuickPlaceFailure, Player: 1, Value: 14}, *m)
	}

	// the client thought its card was on top, so no penalty
	p1.send(&protocol.QuickPlace{Card: 7, SeenDiscard: 15})
	expectMsg[*protocol.QuickPlace](p0)
	for _, m := range expectAll[*protocol.QuickPlaceResult](p0, p1) {
		assert.Equal(t, protocol.QuickPlaceResult{Result: protocol.QuickPlaceTooLate, Player: 1, Value: 15}, *m)
	}

	scores := callAndFinish(t, h)
	assert.Equal(t, []protocol.PlayerScore{{ID: 0, Score: 10}, {ID: 1, Score: 16}}, scores)
}

func TestMatchQuickPlaceNeedsCardsInDeck(t *testing.T) {
	t.Parallel()
	h := startMatch(t, testSettings(2, 4), 0, cards(1, 2, 3, 4, 5, 15, 16, 17, 5)...)
	p0, p1 := h.clients[0], h.clients[1]

	p0.send(&protocol.Draw{})
	expectMsg[*protocol.DrawResult](p0)
	expectMsg[*protocol.DisplayDraw](p1)
	p0.send(&protocol.Discard{})
	expectAll[*protocol.DiscardResult](p0, p1)

	p1.send(&protocol.QuickPlace{Card: 6, SeenDiscard: 5})
	expectRejected(t, p1, protocol.OpQuickPlace, protocol.RejectDeckEmpty)

	p0.send(&protocol.PassTurn{})
	expectAll[*protocol.StartTurn](p0, p1)
	p1.send(&protocol.Draw{})
	expectRejected(t, p1, protocol.OpDraw, protocol.RejectDeckEmpty)
}

func TestMatchTurnTimeout(t *testing.T) {
	t.Parallel()
	h := startMatch(t, testSettings(2, 4), 0, cards(1, 2, 3, 4, 14, 15, 16, 17, 5, 6)...)
	p0, p1 := h.clients[0], h.clients[1]
	ctx := context.Background()

	p0.send(&protocol.Draw{})
	expectMsg[*protocol.DrawResult](p0)
	expectMsg[*protocol.DisplayDraw](p1)

	// the held card is thrown away when time runs out
	d, w := h.clock.AdvanceNext()
	assert.Equal(t, h.runner.settings.TurnDuration(), d)
	w.MustWait(ctx)

	for _, m := range expectAll[*protocol.DiscardResult](p0, p1) {
		assert.Equal(t, deck.Value(5), m.Value)
	}
	for _, m := range expectAll[*protocol.StartTurn](p0, p1) {
		assert.Equal(t, byte(1), m.Player)
	}

	p0.send(&protocol.Discard{})
	expectRejected(t, p0, protocol.OpDiscard, protocol.RejectNotYourTurn)

	_, w = h.clock.AdvanceNext()
	w.MustWait(ctx)
	for _, m := range expectAll[*protocol.StartTurn](p0, p1) {
		assert.Equal(t, byte(0), m.Player)
	}
}

func TestMatchForgedTimeoutIsRejected(t *testing.T) {
	t.Parallel()
	h := startMatch(t, testSettings(2, 4), 0, cards(1, 2, 3, 4, 14, 15, 16, 17, 5)...)
	p0 := h.clients[0]

	p0.send(&protocol.ForceEndTurn{})
	expectRejected(t, p0, protocol.OpForceEndTurn, protocol.RejectNotExpected)
	p0.send(&protocol.Disconnection{Player: 1})
	expectRejected(t, p0, protocol.OpDisconnection, protocol.RejectNotExpected)
	p0.send(&protocol.Connect{Username: "late"})
	expectRejected(t, p0, protocol.OpConnect, protocol.RejectNotExpected)
}

func TestMatchRejectionNoticesDisabled(t *testing.T) {
	t.Parallel()
	settings := testSettings(2, 4)
	settings.RejectionNotices = false
	h := startMatch(t, settings, 0, cards(1, 2, 3, 4, 14, 15, 16, 17, 5)...)
	p0, p1 := h.clients[0], h.clients[1]

	p1.send(&protocol.Draw{})
	p1.send(&protocol.PassTurn{})
	p0.send(&protocol.Draw{})

	// the out-of-turn requests were dropped silently
	expectMsg[*protocol.DisplayDraw](p1)
	expectMsg[*protocol.DrawResult](p0)
}

func TestMatchCallItLocksHands(t *testing.T) {
	t.Parallel()
	h := startMatch(t, testSettings(3, 4), 0,
		cards(1, 2, 3, 4, 14, 15, 16, 17, 27, 28, 29, 30, 5, 6)...)
	p0, p1, p2 := h.clients[0], h.clients[1], h.clients[2]
	all := h.clients

	p0.send(&protocol.Draw{})
	expectMsg[*protocol.DrawResult](p0)
	expectAll[*protocol.DisplayDraw](p1, p2)
	p0.send(&protocol.Discard{})
	expectAll[*protocol.DiscardResult](all...)

	p1.send(&protocol.CallIt{})
	expectRejected(t, p1, protocol.OpCallIt, protocol.RejectNotYourTurn)

	p0.send(&protocol.PassTurn{})
	expectAll[*protocol.StartTurn](all...)

	p1.send(&protocol.CallIt{})
	expectAll[*protocol.CalledIt](all...)
	p1.send(&protocol.CallIt{})
	expectRejected(t, p1, protocol.OpCallIt, protocol.RejectAlreadyCalled)

	p1.send(&protocol.PassTurn{})
	for _, m := range expectAll[*protocol.StartTurn](all...) {
		assert.Equal(t, byte(2), m.Player)
	}

	// the caller's hand is final once play moves past them
	p1.send(&protocol.QuickPlace{Card: 6, SeenDiscard: 5})
	expectRejected(t, p1, protocol.OpQuickPlace, protocol.RejectHandLocked)

	p2.send(&protocol.PassTurn{})
	for _, m := range expectAll[*protocol.StartTurn](all...) {
		assert.Equal(t, byte(0), m.Player)
	}
	p0.send(&protocol.PassTurn{})

	for _, end := range expectAll[*protocol.GameEnd](all...) {
		assert.Equal(t, []protocol.PlayerScore{
			{ID: 0, Score: 10},
			{ID: 1, Score: 10},
			{ID: 2, Score: 10},
		}, end.Scores)
	}
	assert.Equal(t, "called", h.wait().Reason)
}

func TestMatchDisconnectionSkipsSeat(t *testing.T) {
	t.Parallel()
	h := startMatch(t, testSettings(3, 4), 0,
		cards(1, 2, 3, 4, 14, 15, 16, 17, 27, 28, 29, 30, 5)...)
	p0, p1, p2 := h.clients[0], h.clients[1], h.clients[2]

	_ = p1.conn.Close()
	for _, m := range expectAll[*protocol.Disconnection](p0, p2) {
		assert.Equal(t, byte(1), m.Player)
	}

	p0.send(&protocol.PassTurn{})
	for _, m := range expectAll[*protocol.StartTurn](p0, p2) {
		assert.Equal(t, byte(2), m.Player)
	}

	_ = p2.conn.Close()
	assert.Equal(t, byte(2), expectMsg[*protocol.Disconnection](p0).Player)
	end := expectMsg[*protocol.GameEnd](p0)
	assert.Len(t, end.Scores, 3, "every hand is scored")

	result := h.wait()
	assert.Equal(t, "not enough players", result.Reason)
	assert.True(t, result.Standings[0].Connected)
	assert.False(t, result.Standings[1].Connected)
	assert.False(t, result.Standings[2].Connected)
}

func TestMatchTurnPlayerDisconnectsHoldingCard(t *testing.T) {
	t.Parallel()
	h := startMatch(t, testSettings(3, 4), 0,
		cards(1, 2, 3, 4, 14, 15, 16, 17, 27, 28, 29, 30, 5)...)
	p0, p1, p2 := h.clients[0], h.clients[1], h.clients[2]

	p0.send(&protocol.Draw{})
	expectMsg[*protocol.DrawResult](p0)
	expectAll[*protocol.DisplayDraw](p1, p2)

	_ = p0.conn.Close()
	expectAll[*protocol.Disconnection](p1, p2)
	for _, m := range expectAll[*protocol.DiscardResult](p1, p2) {
		assert.Equal(t, deck.Value(5), m.Value)
	}
	for _, m := range expectAll[*protocol.StartTurn](p1, p2) {
		assert.Equal(t, byte(1), m.Player)
	}
}

func TestMatchTurnPlayerDisconnectsDuringQuickPlace(t *testing.T) {
	t.Parallel()
	h := startMatch(t, testSettings(3, 4), 0,
		cards(1, 2, 3, 4, 14, 15, 16, 17, 8, 28, 29, 30, 8, 5, 6)...)
	p0, p1, p2 := h.clients[0], h.clients[1], h.clients[2]

	p0.send(&protocol.Draw{})
	expectMsg[*protocol.DrawResult](p0)
	expectAll[*protocol.DisplayDraw](p1, p2)
	p0.send(&protocol.Discard{})
	expectAll[*protocol.DiscardResult](h.clients...)
	p0.send(&protocol.PassTurn{})
	expectAll[*protocol.StartTurn](h.clients...)

	p1.send(&protocol.Draw{})
	assert.Equal(t, deck.Value(5), expectMsg[*protocol.DrawResult](p1).Value)
	expectAll[*protocol.DisplayDraw](p0, p2)

	// p2 matches the 8 while p1 still holds the drawn card
	p2.send(&protocol.QuickPlace{Card: 10, SeenDiscard: 8})
	expectAll[*protocol.QuickPlace](p0, p1)
	for _, m := range expectAll[*protocol.QuickPlaceResult](h.clients...) {
		assert.Equal(t, protocol.QuickPlaceSuccess, m.Result)
	}

	_ = p1.conn.Close()
	expectAll[*protocol.Disconnection](p0, p2)
	for _, m := range expectAll[*protocol.DiscardResult](p0, p2) {
		assert.Equal(t, deck.Value(5), m.Value, "the held card is thrown away")
	}
	for _, m := range expectAll[*protocol.StartTurn](p0, p2) {
		assert.Equal(t, byte(2), m.Player)
	}

	p2.send(&protocol.Draw{})
	assert.Equal(t, deck.Value(6), expectMsg[*protocol.DrawResult](p2).Value)
	expectMsg[*protocol.DisplayDraw](p0)
}

func TestEngineFaultNotifiesRequester(t *testing.T) {
	t.Parallel()
	pool := NewPool(2, testLogger())
	inbox := NewInbox(inboxSize)
	t.Cleanup(func() { pool.CloseAll(0) })
	c := admitPipeClient(t, pool, inbox)

	r := NewMatchRunner(testLogger(), pool, inbox, testSettings(2, 4), randutil.New(1))
	r.engineFault(c.id, protocol.OpDraw, errors.New("a drawn card is already held"))
	expectRejected(t, c, protocol.OpDraw, protocol.RejectInternal)

	// server bookkeeping faults have nobody to tell
	r.engineFault(protocol.ServerID, protocol.OpDiscard, errors.New("no card is held"))
	r.reject(c.id, protocol.OpPassTurn, protocol.RejectNotYourTurn)
	expectRejected(t, c, protocol.OpPassTurn, protocol.RejectNotYourTurn)

	r.settings.RejectionNotices = false
	r.engineFault(c.id, protocol.OpSwap, errors.New("invalid swap"))
	r.settings.RejectionNotices = true
	r.reject(c.id, protocol.OpPeek, protocol.RejectNotExpected)
	expectRejected(t, c, protocol.OpPeek, protocol.RejectNotExpected)
}

func TestMatchRunStopsOnCancel(t *testing.T) {
	t.Parallel()
	settings := testSettings(2, 4)
	pool := NewPool(settings.Players, testLogger())
	inbox := NewInbox(8)
	runner := NewMatchRunner(testLogger(), pool, inbox, settings, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result, err := runner.Run(ctx)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, inbox.Push(Envelope{}), "inbox closes with the runner")
}
