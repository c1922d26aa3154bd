package server

import "github.com/lox/eliminator/internal/protocol"

// MatchMonitor receives notifications about match progress. Calls are made
// from the match goroutine and must not block.
type MatchMonitor interface {
	// OnMatchStart is called once the cards are dealt.
	OnMatchStart(matchID string, players []protocol.PlayerInfo)

	// OnTurnEnd is called as each turn finishes, before the next starts.
	OnTurnEnd(player byte, timedOut bool)

	// OnPlayerLeft is called when a seated player disconnects mid-match.
	OnPlayerLeft(player byte)

	// OnMatchComplete is called with the final standings.
	OnMatchComplete(result MatchResult)
}

// NullMatchMonitor is a no-op implementation.
type NullMatchMonitor struct{}

func (NullMatchMonitor) OnMatchStart(string, []protocol.PlayerInfo) {}
func (NullMatchMonitor) OnTurnEnd(byte, bool)                       {}
func (NullMatchMonitor) OnPlayerLeft(byte)                          {}
func (NullMatchMonitor) OnMatchComplete(MatchResult)                {}

// MultiMatchMonitor fans events out to several monitors
type MultiMatchMonitor struct {
	monitors []MatchMonitor
}

// NewMultiMatchMonitor builds a composite monitor, pruning nil and no-op
// entries and returning a NullMatchMonitor when nothing is left.
func NewMultiMatchMonitor(monitors ...MatchMonitor) MatchMonitor {
	filtered := make([]MatchMonitor, 0, len(monitors))
	for _, monitor := range monitors {
		if _, null := monitor.(NullMatchMonitor); monitor != nil && !null {
			filtered = append(filtered, monitor)
		}
	}

	switch len(filtered) {
	case 0:
		return NullMatchMonitor{}
	case 1:
		return filtered[0]
	default:
		return MultiMatchMonitor{monitors: filtered}
	}
}

func (m MultiMatchMonitor) OnMatchStart(matchID string, players []protocol.PlayerInfo) {
	for _, monitor := range m.monitors {
		monitor.OnMatchStart(matchID, players)
	}
}

func (m MultiMatchMonitor) OnTurnEnd(player byte, timedOut bool) {
	for _, monitor := range m.monitors {
		monitor.OnTurnEnd(player, timedOut)
	}
}

func (m MultiMatchMonitor) OnPlayerLeft(player byte) {
	for _, monitor := range m.monitors {
		monitor.OnPlayerLeft(player)
	}
}

func (m MultiMatchMonitor) OnMatchComplete(result MatchResult) {
	for _, monitor := range m.monitors {
		monitor.OnMatchComplete(result)
	}
}
