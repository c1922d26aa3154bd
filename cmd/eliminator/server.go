package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/lox/eliminator/cmd/eliminator/shared"
	"github.com/lox/eliminator/internal/fileutil"
	"github.com/lox/eliminator/internal/randutil"
	"github.com/lox/eliminator/internal/scoreboard"
	"github.com/lox/eliminator/internal/server"
)

// ServerCmd hosts one match. Flags override the HCL config file.
type ServerCmd struct {
	Config        string `short:"c" default:"eliminator.hcl" help:"Path to HCL configuration file"`
	Addr          string `short:"a" help:"TCP address to listen on (overrides config)"`
	HTTPAddr      string `name:"http-addr" help:"Address for websocket and health endpoints (overrides config)"`
	Players       int    `short:"p" help:"Players required to start (overrides config)"`
	StartingCards int    `help:"Cards dealt to each player (overrides config)"`
	DeckSets      int    `help:"Number of 54-card sets in the draw pile (overrides config)"`
	TurnTimeLimit int    `help:"Turn time limit in seconds (overrides config)"`
	LogLevel      string `short:"l" help:"Log level (overrides config)"`
	Debug         bool   `help:"Enable debug logging"`
	Seed          *int64 `help:"Deterministic RNG seed for deals and seating (optional)"`
	Results       string `type:"path" help:"Write the final standings as JSON to this file"`
	Monitor       string `enum:"none,dots,list" default:"none" help:"Print match progress to stderr (none, dots, list)"`

	NoRejectionNotices bool `help:"Only log rejected requests instead of answering them with ActionRejected"`
}

func (c *ServerCmd) Run() error {
	cfg, err := server.LoadConfig(c.Config)
	if err != nil {
		return err
	}
	c.applyOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := shared.SetupLogger(cfg.Server.LogLevel, c.Debug)

	seed := randutil.NewSeed()
	if c.Seed != nil {
		seed = *c.Seed
		logger.Info("Using deterministic seed", "seed", seed)
	} else {
		logger.Info("Using random seed", "seed", seed)
	}

	var opts []server.MatchOption
	if m := c.monitor(os.Stderr); m != nil {
		opts = append(opts, server.WithMonitor(m))
	}

	srv := server.NewServer(logger, randutil.New(seed), cfg, opts...)
	if err := srv.Listen(); err != nil {
		return err
	}

	logger.Info("Starting Eliminator server",
		"addr", srv.Addr(),
		"http_addr", srv.HTTPAddr(),
		"match_id", srv.MatchID(),
		"players", cfg.Game.Players,
		"starting_cards", cfg.Game.StartingCards,
		"deck_sets", cfg.Game.DeckSets,
		"turn_time_limit", cfg.Game.TurnTimeLimit)

	ctx, stop := shared.SetupSignalHandler(logger)
	defer stop()

	result, err := srv.Serve(ctx)
	if errors.Is(err, context.Canceled) {
		logger.Info("Server stopped before the match finished")
		return nil
	}
	if err != nil {
		return err
	}

	if c.Results != "" {
		if err := writeResults(c.Results, result); err != nil {
			logger.Error("Failed to write results file", "file", c.Results, "error", err)
		} else {
			logger.Info("Results written to file", "file", c.Results)
		}
	}

	rows := make([]scoreboard.Row, 0, len(result.Standings))
	for _, s := range result.Standings {
		rows = append(rows, scoreboard.Row{Player: s.Player, Name: s.Name, Score: s.Score, Connected: s.Connected})
	}
	fmt.Println(scoreboard.Render(fmt.Sprintf("Match %s (%s)", result.MatchID, result.Reason), rows))
	return nil
}

func (c *ServerCmd) applyOverrides(cfg *server.Config) {
	if c.Addr != "" {
		cfg.Server.Address = c.Addr
	}
	if c.HTTPAddr != "" {
		cfg.Server.HTTPAddress = c.HTTPAddr
	}
	if c.LogLevel != "" {
		cfg.Server.LogLevel = c.LogLevel
	}
	if c.Players != 0 {
		cfg.Game.Players = c.Players
	}
	if c.StartingCards != 0 {
		cfg.Game.StartingCards = c.StartingCards
	}
	if c.DeckSets != 0 {
		cfg.Game.DeckSets = c.DeckSets
	}
	if c.TurnTimeLimit != 0 {
		cfg.Game.TurnTimeLimit = c.TurnTimeLimit
	}
	if c.NoRejectionNotices {
		cfg.Game.RejectionNotices = false
	}
}

func (c *ServerCmd) monitor(w io.Writer) server.MatchMonitor {
	switch c.Monitor {
	case "dots":
		return server.NewDotsMonitor(w)
	case "list":
		return server.NewListMonitor(w)
	default:
		return nil
	}
}

func writeResults(path string, result *server.MatchResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	return fileutil.WriteFileAtomic(path, append(data, '\n'), 0o644)
}
