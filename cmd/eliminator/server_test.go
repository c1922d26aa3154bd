package main

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/lox/eliminator/internal/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerFlagsOverrideConfig(t *testing.T) {
	cfg := server.DefaultConfig()
	cmd := &ServerCmd{Addr: "127.0.0.1:9000", Players: 4, TurnTimeLimit: 10, NoRejectionNotices: true}
	cmd.applyOverrides(cfg)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Address)
	assert.Equal(t, ":7778", cfg.Server.HTTPAddress, "unset flags keep the file's value")
	assert.Equal(t, 4, cfg.Game.Players)
	assert.Equal(t, 10, cfg.Game.TurnTimeLimit)
	assert.False(t, cfg.Game.RejectionNotices)
	assert.Equal(t, server.DefaultConfig().Game.StartingCards, cfg.Game.StartingCards)
}

func TestServerMonitorFlag(t *testing.T) {
	for _, tc := range []struct {
		flag string
		want any
	}{
		{"dots", &server.DotsMonitor{}},
		{"list", &server.ListMonitor{}},
	} {
		t.Run(tc.flag, func(t *testing.T) {
			cmd := &ServerCmd{Monitor: tc.flag}
			assert.IsType(t, tc.want, cmd.monitor(io.Discard))
		})
	}

	assert.Nil(t, (&ServerCmd{Monitor: "none"}).monitor(io.Discard))
}

func TestWriteResults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	result := &server.MatchResult{MatchID: "m-1", Reason: "called", Standings: []server.Standing{
		{Player: 1, Name: "alice", Score: 3, Connected: true},
		{Player: 0, Name: "bob", Score: 12},
	}}
	require.NoError(t, writeResults(path, result))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got server.MatchResult
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, *result, got)
	assert.Contains(t, string(data), `"match_id": "m-1"`)
}
