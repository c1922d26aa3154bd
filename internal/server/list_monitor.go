package server

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/lox/eliminator/internal/protocol"
)

const (
	colorReset = "\033[0m"
	colorRed   = "\033[31m"
	colorGreen = "\033[32m"
	colorGray  = "\033[90m"
	colorBold  = "\033[1m"
)

// ListMonitor implements MatchMonitor for compact turn-by-turn output.
// Shows one line per turn with: turn number, player, how the turn ended.
type ListMonitor struct {
	writer io.Writer
	mu     sync.Mutex
	names  map[byte]string
	turns  int
}

// NewListMonitor creates a new list monitor.
func NewListMonitor(writer io.Writer) *ListMonitor {
	if writer == nil {
		writer = os.Stdout
	}

	return &ListMonitor{
		writer: writer,
		names:  make(map[byte]string),
	}
}

// OnMatchStart implements MatchMonitor.
func (l *ListMonitor) OnMatchStart(matchID string, players []protocol.PlayerInfo) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.turns = 0
	for _, p := range players {
		l.names[p.ID] = p.Name
	}
	fmt.Fprintf(l.writer, "Match %s\n", matchID)
}

// OnTurnEnd implements MatchMonitor.
func (l *ListMonitor) OnTurnEnd(player byte, timedOut bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.turns++
	status := colorGreen + "passed" + colorReset
	if timedOut {
		status = colorGray + "timed out" + colorReset
	}
	fmt.Fprintf(l.writer, "%-6d %-20s %s\n", l.turns, l.displayName(player), status)
}

// OnPlayerLeft implements MatchMonitor.
func (l *ListMonitor) OnPlayerLeft(player byte) {
	l.mu.Lock()
	defer l.mu.Unlock()

	fmt.Fprintf(l.writer, "%-6s %-20s %s\n", "-", l.displayName(player), colorRed+"left"+colorReset)
}

// OnMatchComplete implements MatchMonitor.
func (l *ListMonitor) OnMatchComplete(result MatchResult) {
	l.mu.Lock()
	defer l.mu.Unlock()

	best := 0
	for i, s := range result.Standings {
		if i == 0 || s.Score < best {
			best = s.Score
		}
	}

	fmt.Fprintf(l.writer, "\nCompleted %d turns (%s)\n", l.turns, result.Reason)
	for _, s := range result.Standings {
		name := l.displayName(s.Player)
		if s.Score == best {
			name = colorGreen + colorBold + name + colorReset
		}
		fmt.Fprintf(l.writer, "  %-20s %d\n", name, s.Score)
	}
}

func (l *ListMonitor) displayName(player byte) string {
	if name := l.names[player]; name != "" {
		return name
	}
	return fmt.Sprintf("player %d", player)
}
