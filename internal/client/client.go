package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/lox/eliminator/internal/deck"
	"github.com/lox/eliminator/internal/protocol"
	"github.com/lox/eliminator/internal/server"
)

const maxNameAttempts = 5

var (
	ErrGameFull     = errors.New("game is full")
	ErrNameRejected = errors.New("username rejected")
)

// Result is the end of a match as one seat saw it
type Result struct {
	Me     byte
	Names  map[byte]string
	Scores []protocol.PlayerScore
}

// Dial opens a byte stream to the server, over raw TCP or a websocket
func Dial(ctx context.Context, addr string, useWebsocket bool) (io.ReadWriteCloser, error) {
	if !useWebsocket {
		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("failed to connect: %w", err)
		}
		return conn, nil
	}

	u := url.URL{Scheme: "ws", Host: addr, Path: "/ws"}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", u.String(), err)
	}
	return server.NewWSStream(conn), nil
}

// Client plays one seat: it joins, keeps a Table in step with the server and
// asks its Bot for moves whenever the state machine says it may act.
type Client struct {
	name   string
	stream io.ReadWriteCloser
	r      *bufio.Reader
	logger *log.Logger
	bot    *Bot

	id    byte
	table *Table
	fsm   *StateMachine

	turnsTaken   int
	quickPending bool
	// passPending is set while a PassTurn waits out someone's quick-place
	passPending bool
	result      *Result
}

// New creates a client over an open stream
func New(stream io.ReadWriteCloser, name string, bot *Bot, logger *log.Logger) *Client {
	return &Client{
		name:   name,
		stream: stream,
		r:      bufio.NewReader(stream),
		logger: logger.WithPrefix("client"),
		bot:    bot,
	}
}

// ID returns the seat the server assigned
func (c *Client) ID() byte {
	return c.id
}

// Name returns the username the server accepted
func (c *Client) Name() string {
	return c.name
}

// Join reads the seat assignment and registers a username, trying suffixed
// variants while the name is taken
func (c *Client) Join(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { _ = c.stream.Close() })
	defer stop()

	msg, err := protocol.ReadMessage(c.r)
	if err != nil {
		return fmt.Errorf("failed to read seat assignment: %w", err)
	}
	switch m := msg.(type) {
	case *protocol.AssignID:
		c.id = m.Player
	case *protocol.ConnectionResponse:
		if m.Error == protocol.GameIsFull {
			return ErrGameFull
		}
		return fmt.Errorf("%w: %v", ErrNameRejected, m.Error)
	default:
		return fmt.Errorf("expected AssignId, got %s", msg.OpCode())
	}
	c.logger = c.logger.With("player", c.id)

	base := c.name
	for attempt := range maxNameAttempts {
		if attempt > 0 {
			c.name = fmt.Sprintf("%s-%d", base, attempt+1)
		}
		if err := c.send(&protocol.Connect{Username: c.name}); err != nil {
			return err
		}

		resp, err := c.readResponse()
		if err != nil {
			return err
		}
		if resp.Success {
			c.logger.Info("Joined game", "name", c.name)
			return nil
		}
		if resp.Error == protocol.GameIsFull {
			return ErrGameFull
		}
		c.logger.Info("Username taken", "name", c.name)
	}
	return fmt.Errorf("%w: no free name after %d attempts", ErrNameRejected, maxNameAttempts)
}

func (c *Client) readResponse() (*protocol.ConnectionResponse, error) {
	for {
		msg, err := protocol.ReadMessage(c.r)
		if err != nil {
			return nil, fmt.Errorf("failed to read connection response: %w", err)
		}
		if resp, ok := msg.(*protocol.ConnectionResponse); ok {
			return resp, nil
		}
		c.logger.Debug("Ignoring message while joining", "op", msg.OpCode())
	}
}

// Run plays until the server announces the end of the game
func (c *Client) Run(ctx context.Context) (*Result, error) {
	stop := context.AfterFunc(ctx, func() { _ = c.stream.Close() })
	defer stop()
	defer c.stream.Close()

	for {
		msg, err := protocol.ReadMessage(c.r)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("connection lost: %w", err)
		}

		if err := c.handle(msg); err != nil {
			return nil, err
		}
		if c.result != nil {
			return c.result, nil
		}
	}
}

func (c *Client) handle(msg protocol.Message) error {
	if ig, ok := msg.(*protocol.InitialiseGame); ok {
		c.table = NewTable(c.id, ig)
		c.fsm = NewStateMachine(c.table)
		c.fsm.OnChange(func(from, to State) {
			c.logger.Debug("State changed", "from", from, "to", to)
		})
		c.logger.Info("Game initialised", "players", len(ig.Players), "starting_cards", ig.StartingCards)
		return nil
	}
	if c.table == nil {
		c.logger.Debug("Ignoring message before game start", "op", msg.OpCode())
		return nil
	}

	c.table.Apply(msg)

	switch m := msg.(type) {
	case *protocol.StartTurn:
		return c.onStartTurn(m.Player)
	case *protocol.DrawResult:
		return c.onDrawResult(m.Value)
	case *protocol.DiscardResult:
		return c.maybeQuickPlace()
	case *protocol.QuickPlaceResult:
		if m.Player == c.id {
			return c.onOwnQuickPlace(m)
		}
		return c.maybeQuickPlace()
	case *protocol.DisplaySwap, *protocol.DisplayPeek, *protocol.DisplayScramble:
		return c.retryPass()
	case *protocol.CalledIt:
		c.logger.Info("Player called it", "caller", c.table.Turn())
	case *protocol.Disconnection:
		c.logger.Info("Player disconnected", "player", m.Player)
		return c.retryPass()
	case *protocol.ActionRejected:
		c.logger.Warn("Server rejected request", "op", m.Request, "reason", m.Reason, "state", c.fsm.State())
		if m.Request == protocol.OpPassTurn && m.Reason == protocol.RejectInterruptPending {
			c.passPending = true
		}
	case *protocol.GameEnd:
		c.fire(Event{Trigger: TriggerGameEnd})
		names := make(map[byte]string, len(c.table.Players()))
		for _, p := range c.table.Players() {
			names[p] = c.table.Name(p)
		}
		c.result = &Result{Me: c.id, Names: names, Scores: m.Scores}
	}
	return nil
}

func (c *Client) onStartTurn(player byte) error {
	ev := Event{Trigger: TriggerStartTurn, Player: player}
	if !c.fsm.CanFire(ev) {
		c.logger.Debug("Turn moved on without us", "state", c.fsm.State())
		c.fsm.Resync()
		c.quickPending = false
	}
	c.passPending = false
	c.fire(ev)
	if player != c.id {
		return nil
	}

	c.turnsTaken++
	t := c.table
	if c.bot.ShouldCall(t, c.turnsTaken) {
		if err := c.send(&protocol.CallIt{}); err != nil {
			return err
		}
	}

	if target, ok := c.bot.DiscardSwapTarget(t); ok {
		c.fire(Event{Trigger: TriggerSelectionUpdate, Selection: Selection{Cards: []deck.CardID{t.DiscardID()}}})
		if err := c.send(&protocol.Swap{First: target, Second: t.DiscardID()}); err != nil {
			return err
		}
		t.Swap(target, t.DiscardID())
		c.fire(Event{Trigger: TriggerDoCardAction, Action: deck.ActionNone})
		return c.endTurn()
	}

	if c.fsm.CanFire(Event{Trigger: TriggerDeckClick}) {
		c.fire(Event{Trigger: TriggerDeckClick})
		return c.send(&protocol.Draw{})
	}
	return c.endTurn()
}

func (c *Client) onDrawResult(v deck.Value) error {
	if c.fsm.State() != StateDeckDraw {
		return nil
	}
	t := c.table

	if target, ok := c.bot.KeepDrawn(t, v); ok {
		if err := c.send(&protocol.Swap{First: t.HeldID(), Second: target}); err != nil {
			return err
		}
		t.Swap(t.HeldID(), target)
		c.fire(Event{Trigger: TriggerDoCardAction, Action: deck.ActionNone})
		return c.endTurn()
	}

	if err := c.send(&protocol.Discard{}); err != nil {
		return err
	}
	c.fire(Event{Trigger: TriggerDoCardAction, Action: v.Action()})
	if err := c.useAbility(v.Action(), false); err != nil {
		return err
	}
	return c.endTurn()
}

func (c *Client) endTurn() error {
	if err := c.send(&protocol.PassTurn{}); err != nil {
		return err
	}
	c.fire(Event{Trigger: TriggerEndTurn})
	return nil
}

// retryPass sends PassTurn again once an interrupting ability has resolved
func (c *Client) retryPass() error {
	if !c.passPending || c.table.Turn() != c.id {
		return nil
	}
	c.passPending = false
	return c.send(&protocol.PassTurn{})
}

// maybeQuickPlace sheds a card matching a fresh discard while waiting
func (c *Client) maybeQuickPlace() error {
	if c.quickPending || c.fsm.State() != StateWaiting {
		return nil
	}
	id, ok := c.bot.QuickPlaceCard(c.table)
	if !ok {
		return nil
	}
	top, _ := c.table.TopDiscard()

	ev := Event{Trigger: TriggerSelectionUpdate, Selection: Selection{Cards: []deck.CardID{id}}}
	if !c.fsm.CanFire(ev) {
		return nil
	}
	if err := c.send(&protocol.QuickPlace{Card: id, SeenDiscard: top}); err != nil {
		return err
	}
	c.table.Attempt(id)
	c.quickPending = true
	c.fire(ev)
	return nil
}

func (c *Client) onOwnQuickPlace(m *protocol.QuickPlaceResult) error {
	c.quickPending = false
	c.logger.Info("Quick-place resolved", "result", m.Result, "card", m.Value)

	if m.Result != protocol.QuickPlaceSuccess {
		c.fire(Event{Trigger: TriggerCancelAction})
		return nil
	}

	// the server hands us the ability whatever our local state says
	a := m.Value.Action()
	c.fire(Event{Trigger: TriggerDoCardAction, Action: a})
	return c.useAbility(a, true)
}

// useAbility resolves the ability a discarded or quick-placed card opened.
// An interrupting ability blocks the turn player until it is used, so it
// takes any legal target.
func (c *Client) useAbility(a deck.Action, interrupt bool) error {
	t := c.table
	var sel Selection

	switch a {
	case deck.ActionNone:
		return nil

	case deck.ActionPeekSelf, deck.ActionPeekOther:
		target, ok := c.bot.PeekSelfTarget(t)
		if a == deck.ActionPeekOther {
			target, ok = c.bot.PeekOtherTarget(t)
		}
		if !ok {
			c.fire(Event{Trigger: TriggerCancelAction})
			return nil
		}
		if err := c.send(&protocol.Peek{Card: target}); err != nil {
			return err
		}
		t.ExpectPeek(target)
		sel.Cards = []deck.CardID{target}

	case deck.ActionSwap:
		mine, theirs, ok := c.bot.SwapTargets(t, interrupt)
		if !ok {
			c.fire(Event{Trigger: TriggerCancelAction})
			return nil
		}
		if err := c.send(&protocol.Swap{First: mine, Second: theirs}); err != nil {
			return err
		}
		t.Swap(mine, theirs)
		sel.Cards = []deck.CardID{mine, theirs}

	case deck.ActionScramble:
		target, ok := c.bot.ScrambleTarget(t)
		if !ok {
			c.fire(Event{Trigger: TriggerCancelAction})
			return nil
		}
		if err := c.send(&protocol.Scramble{Player: target}); err != nil {
			return err
		}
		t.Forget(target)
		sel = Selection{Hand: target, PickedHand: true}
	}

	c.fire(Event{Trigger: TriggerSelectionUpdate, Selection: sel})
	return nil
}

// fire moves the state machine, logging inputs it does not expect
func (c *Client) fire(ev Event) {
	if err := c.fsm.Fire(ev); err != nil {
		c.logger.Debug("Ignoring trigger", "error", err)
	}
}

func (c *Client) send(msg protocol.Message) error {
	data, err := protocol.Marshal(msg)
	if err != nil {
		return err
	}
	if _, err := c.stream.Write(data); err != nil {
		return fmt.Errorf("failed to send %s: %w", msg.OpCode(), err)
	}
	c.logger.Debug("Sent request", "op", msg.OpCode())
	return nil
}
