package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lox/eliminator/cmd/eliminator/shared"
	"github.com/lox/eliminator/internal/client"
	"github.com/lox/eliminator/internal/randutil"
	"github.com/lox/eliminator/internal/scoreboard"
	"github.com/lox/eliminator/internal/server"
	"golang.org/x/sync/errgroup"
)

// BotCmd joins a match with one or more built-in bots
type BotCmd struct {
	Server    string        `short:"s" default:"localhost:7777" help:"Server address (TCP, or the HTTP listener with --ws)"`
	WS        bool          `name:"ws" help:"Connect over websocket instead of raw TCP"`
	Wait      time.Duration `default:"0s" help:"With --ws, poll the server's /health endpoint for up to this long before joining"`
	Name      string        `short:"n" default:"bot" help:"Username; taken names get a numeric suffix"`
	Count     int           `default:"1" help:"Number of bots to connect"`
	CallBelow int           `default:"8" help:"Call it once the known hand total drops below this"`
	CallAfter int           `default:"8" help:"Call it after this many turns regardless"`
	Seed      *int64        `help:"Deterministic RNG seed for bot choices (optional)"`
	LogLevel  string        `short:"l" default:"info" help:"Log level (debug|info|warn|error)"`
	Debug     bool          `help:"Enable debug logging"`
}

func (c *BotCmd) Run() error {
	if c.Count < 1 {
		return fmt.Errorf("count must be at least 1, got %d", c.Count)
	}
	logger := shared.SetupLogger(c.LogLevel, c.Debug)

	seed := randutil.NewSeed()
	if c.Seed != nil {
		seed = *c.Seed
	}
	rng := randutil.New(seed)
	logger.Info("Starting bots", "count", c.Count, "server", c.Server, "websocket", c.WS, "seed", seed)

	ctx, stop := shared.SetupSignalHandler(logger)
	defer stop()

	if c.WS && c.Wait > 0 {
		waitCtx, cancel := context.WithTimeout(ctx, c.Wait)
		err := server.WaitForHealthy(waitCtx, c.Server)
		cancel()
		if err != nil {
			return fmt.Errorf("server not healthy: %w", err)
		}
	}

	results := make([]*client.Result, c.Count)
	g, gctx := errgroup.WithContext(ctx)
	for i := range c.Count {
		name := c.Name
		if c.Count > 1 {
			name = fmt.Sprintf("%s%d", c.Name, i+1)
		}
		bot := client.NewBot(randutil.Child(rng))
		bot.CallBelow, bot.CallAfter = c.CallBelow, c.CallAfter

		g.Go(func() error {
			stream, err := client.Dial(gctx, c.Server, c.WS)
			if err != nil {
				return err
			}
			cl := client.New(stream, name, bot, logger.With("bot", name))
			if err := cl.Join(gctx); err != nil {
				_ = stream.Close()
				return fmt.Errorf("%s: %w", name, err)
			}
			res, err := cl.Run(gctx)
			if err != nil {
				return fmt.Errorf("%s: %w", cl.Name(), err)
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("Bots stopped before the match finished")
			return nil
		}
		return err
	}

	res := results[0]
	rows := make([]scoreboard.Row, 0, len(res.Scores))
	for _, s := range res.Scores {
		rows = append(rows, scoreboard.Row{Player: s.ID, Name: res.Names[s.ID], Score: int(s.Score), Connected: true})
	}
	fmt.Println(scoreboard.Render("Final scores", rows))
	return nil
}
