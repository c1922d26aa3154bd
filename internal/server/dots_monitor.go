package server

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/lox/eliminator/internal/protocol"
)

const (
	dotGreen = "\033[32m●\033[0m" // turn passed normally
	dotGray  = "\033[90m●\033[0m" // turn timed out
	dotRed   = "\033[31m✗\033[0m" // player left
)

// DotsMonitor prints one coloured mark per turn so a long bot match shows
// progress without the full log.
type DotsMonitor struct {
	writer    io.Writer
	mu        sync.Mutex
	dotCount  int
	turns     int
	lineWidth int // Wrap after this many dots
}

// NewDotsMonitor creates a new dots monitor.
func NewDotsMonitor(writer io.Writer) *DotsMonitor {
	if writer == nil {
		writer = os.Stdout
	}

	return &DotsMonitor{
		writer:    writer,
		lineWidth: 80,
	}
}

// OnMatchStart implements MatchMonitor.
func (d *DotsMonitor) OnMatchStart(matchID string, players []protocol.PlayerInfo) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.turns, d.dotCount = 0, 0
	fmt.Fprintf(d.writer, "Match %s: %d players\n", matchID, len(players))
}

// OnTurnEnd implements MatchMonitor.
func (d *DotsMonitor) OnTurnEnd(player byte, timedOut bool) {
	dot := dotGreen
	if timedOut {
		dot = dotGray
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.turns++
	d.mark(dot)
}

// OnPlayerLeft implements MatchMonitor.
func (d *DotsMonitor) OnPlayerLeft(player byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.mark(dotRed)
}

// OnMatchComplete implements MatchMonitor.
func (d *DotsMonitor) OnMatchComplete(result MatchResult) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.dotCount > 0 {
		fmt.Fprintln(d.writer)
	}
	fmt.Fprintf(d.writer, "Match finished after %d turns (%s)\n", d.turns, result.Reason)
}

// mark must be called with d.mu held
func (d *DotsMonitor) mark(dot string) {
	fmt.Fprint(d.writer, dot)
	d.dotCount++
	if d.dotCount >= d.lineWidth {
		fmt.Fprintln(d.writer)
		d.dotCount = 0
	}
}
