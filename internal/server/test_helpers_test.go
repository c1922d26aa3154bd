package server

import (
	"bufio"
	"bytes"
	"context"
	"io"
	rand "math/rand/v2"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/lox/eliminator/internal/deck"
	"github.com/lox/eliminator/internal/protocol"
	"github.com/lox/eliminator/internal/randutil"
	"github.com/stretchr/testify/require"
)

const testTimeout = 2 * time.Second

// testLogger creates a logger that discards output for tests
func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}

// lockedBuffer collects log output written from the match goroutine
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// debugLogger writes logfmt lines at debug level into the returned buffer
func debugLogger() (*log.Logger, *lockedBuffer) {
	out := &lockedBuffer{}
	return log.NewWithOptions(out, log.Options{Level: log.DebugLevel, Formatter: log.LogfmtFormatter}), out
}

// waitForCondition polls until condition holds or the timeout passes
func waitForCondition(t *testing.T, condition func() bool, timeout time.Duration, errMsg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Error(errMsg)
}

type clientStream interface {
	io.ReadWriteCloser
	SetReadDeadline(time.Time) error
	SetWriteDeadline(time.Time) error
}

// testClient speaks the wire protocol over one end of a pipe or socket
type testClient struct {
	t    *testing.T
	conn clientStream
	r    *bufio.Reader
	id   byte
}

func newTestClient(t *testing.T, conn clientStream) *testClient {
	t.Helper()
	t.Cleanup(func() { _ = conn.Close() })
	return &testClient{t: t, conn: conn, r: bufio.NewReader(conn)}
}

// admitPipeClient seats a new in-memory connection and reads its id
func admitPipeClient(t *testing.T, pool *Pool, inbox *Inbox) *testClient {
	t.Helper()
	serverSide, clientSide := net.Pipe()
	c := newTestClient(t, clientSide)
	require.NoError(t, pool.Admit(NewConnection(serverSide, testLogger()), inbox))
	c.id = expectMsg[*protocol.AssignID](c).Player
	return c
}

func (c *testClient) send(msg protocol.Message) {
	c.t.Helper()
	data, err := protocol.Marshal(msg)
	require.NoError(c.t, err)
	_ = c.conn.SetWriteDeadline(time.Now().Add(testTimeout))
	_, err = c.conn.Write(data)
	require.NoError(c.t, err)
}

func (c *testClient) next() protocol.Message {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(testTimeout))
	msg, err := protocol.ReadMessage(c.r)
	require.NoError(c.t, err, "player %d waiting for a message", c.id)
	return msg
}

// expectClosed asserts the server hangs up without sending anything else
func (c *testClient) expectClosed() {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(testTimeout))
	msg, err := protocol.ReadMessage(c.r)
	require.Error(c.t, err, "expected connection to close, got %v", msg)
}

// expectMsg reads the next message and requires it to be a T
func expectMsg[T protocol.Message](c *testClient) T {
	c.t.Helper()
	msg := c.next()
	m, ok := msg.(T)
	require.Truef(c.t, ok, "player %d expected %T, got %s", c.id, *new(T), msg.OpCode())
	return m
}

// matchHarness runs a match against a stacked deck with a mock clock and
// one pipe client per seat
type matchHarness struct {
	t       *testing.T
	pool    *Pool
	inbox   *Inbox
	runner  *MatchRunner
	clock   *quartz.Mock
	clients []*testClient

	done   chan struct{}
	result *MatchResult
	err    error
}

func testSettings(players, startingCards int) GameSettings {
	return GameSettings{
		Players:          players,
		StartingCards:    startingCards,
		DeckSets:         1,
		TurnTimeLimit:    30,
		RejectionNotices: true,
	}
}

// startMatch deals values top first: startingCards to player 0, then to
// player 1 and so on, with the rest left in the draw pile.
func startMatch(t *testing.T, settings GameSettings, first byte, values ...deck.Value) *matchHarness {
	t.Helper()
	return startMatchWith(t, settings, first, nil, values...)
}

func startMatchWith(t *testing.T, settings GameSettings, first byte, opts []MatchOption, values ...deck.Value) *matchHarness {
	t.Helper()
	return startLoggedMatch(t, testLogger(), settings, first, opts, values...)
}

func startLoggedMatch(t *testing.T, logger *log.Logger, settings GameSettings, first byte, opts []MatchOption, values ...deck.Value) *matchHarness {
	t.Helper()

	opts = append([]MatchOption{
		WithDeckFactory(func(int, *rand.Rand) *deck.Deck { return deck.NewStacked(values...) }),
		WithFirstPlayer(first),
	}, opts...)
	h := newLoggedMatchHarness(t, logger, settings, opts...)

	for i := range settings.Players {
		c := h.join(string(rune('a' + i)))
		require.True(t, expectMsg[*protocol.ConnectionResponse](c).Success)
	}
	for _, c := range h.clients {
		init := expectMsg[*protocol.InitialiseGame](c)
		require.Equal(t, int32(settings.StartingCards), init.StartingCards)
		require.Len(t, init.Players, settings.Players)
		require.Equal(t, first, expectMsg[*protocol.StartTurn](c).Player)
	}
	return h
}

func newMatchHarness(t *testing.T, settings GameSettings, opts ...MatchOption) *matchHarness {
	t.Helper()
	return newLoggedMatchHarness(t, testLogger(), settings, opts...)
}

func newLoggedMatchHarness(t *testing.T, logger *log.Logger, settings GameSettings, opts ...MatchOption) *matchHarness {
	t.Helper()

	clock := quartz.NewMock(t)
	pool := NewPool(settings.Players, testLogger())
	inbox := NewInbox(inboxSize)
	opts = append([]MatchOption{WithClock(clock), WithMatchID("test-match")}, opts...)

	h := &matchHarness{
		t:      t,
		pool:   pool,
		inbox:  inbox,
		runner: NewMatchRunner(logger, pool, inbox, settings, randutil.New(42), opts...),
		clock:  clock,
		done:   make(chan struct{}),
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		defer close(h.done)
		h.result, h.err = h.runner.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-h.done
		pool.CloseAll(0)
	})
	return h
}

// join admits a new client and sends its username
func (h *matchHarness) join(name string) *testClient {
	h.t.Helper()
	c := admitPipeClient(h.t, h.pool, h.inbox)
	h.clients = append(h.clients, c)
	c.send(&protocol.Connect{Username: name})
	return c
}

// others returns every client except the one given
func (h *matchHarness) others(p byte) []*testClient {
	var out []*testClient
	for _, c := range h.clients {
		if c.id != p {
			out = append(out, c)
		}
	}
	return out
}

// expectAll requires every listed client to receive a T next
func expectAll[T protocol.Message](clients ...*testClient) []T {
	out := make([]T, len(clients))
	for i, c := range clients {
		out[i] = expectMsg[T](c)
	}
	return out
}

// wait blocks until the match has finished
func (h *matchHarness) wait() *MatchResult {
	h.t.Helper()
	select {
	case <-h.done:
	case <-time.After(testTimeout):
		h.t.Fatal("match did not finish")
	}
	require.NoError(h.t, h.err)
	return h.result
}
