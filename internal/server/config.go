package server

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/lox/eliminator/internal/deck"
)

// Config represents the complete server configuration
type Config struct {
	Server ServerSettings
	Game   GameSettings
}

// ServerSettings contains listener and logging configuration
type ServerSettings struct {
	Address     string
	HTTPAddress string
	LogLevel    string
}

// GameSettings configures the single match a server hosts
type GameSettings struct {
	Players          int
	StartingCards    int
	DeckSets         int
	TurnTimeLimit    int // seconds
	RejectionNotices bool
}

// TurnDuration returns the turn time limit as a duration
func (g GameSettings) TurnDuration() time.Duration {
	return time.Duration(g.TurnTimeLimit) * time.Second
}

type fileConfig struct {
	Server *serverBlock `hcl:"server,block"`
	Game   *gameBlock   `hcl:"game,block"`
}

type serverBlock struct {
	Address     string `hcl:"address,optional"`
	HTTPAddress string `hcl:"http_address,optional"`
	LogLevel    string `hcl:"log_level,optional"`
}

type gameBlock struct {
	Players          int   `hcl:"players,optional"`
	StartingCards    int   `hcl:"starting_cards,optional"`
	DeckSets         int   `hcl:"deck_sets,optional"`
	TurnTimeLimit    int   `hcl:"turn_time_limit,optional"`
	RejectionNotices *bool `hcl:"rejection_notices,optional"`
}

// DefaultConfig returns default server configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerSettings{
			Address:     ":7777",
			HTTPAddress: ":7778",
			LogLevel:    "info",
		},
		Game: GameSettings{
			Players:          2,
			StartingCards:    4,
			DeckSets:         1,
			TurnTimeLimit:    30,
			RejectionNotices: true,
		},
	}
}

// LoadConfig loads configuration from an HCL file. A missing file yields the
// defaults, and so does any attribute the file leaves out.
func LoadConfig(filename string) (*Config, error) {
	config := DefaultConfig()

	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return config, nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var raw fileConfig
	diags = gohcl.DecodeBody(file.Body, nil, &raw)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	if s := raw.Server; s != nil {
		if s.Address != "" {
			config.Server.Address = s.Address
		}
		if s.HTTPAddress != "" {
			config.Server.HTTPAddress = s.HTTPAddress
		}
		if s.LogLevel != "" {
			config.Server.LogLevel = s.LogLevel
		}
	}

	if g := raw.Game; g != nil {
		if g.Players != 0 {
			config.Game.Players = g.Players
		}
		if g.StartingCards != 0 {
			config.Game.StartingCards = g.StartingCards
		}
		if g.DeckSets != 0 {
			config.Game.DeckSets = g.DeckSets
		}
		if g.TurnTimeLimit != 0 {
			config.Game.TurnTimeLimit = g.TurnTimeLimit
		}
		if g.RejectionNotices != nil {
			config.Game.RejectionNotices = *g.RejectionNotices
		}
	}

	return config, nil
}

// Validate validates the server configuration
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server address must be set")
	}

	switch c.Server.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %q", c.Server.LogLevel)
	}

	g := c.Game
	if g.Players < 2 || g.Players > 254 {
		return fmt.Errorf("players must be between 2 and 254, got %d", g.Players)
	}
	if g.StartingCards < 1 {
		return fmt.Errorf("starting cards must be positive, got %d", g.StartingCards)
	}
	if g.DeckSets < 1 || g.DeckSets > 100 {
		return fmt.Errorf("deck sets must be between 1 and 100, got %d", g.DeckSets)
	}
	if g.Players*g.StartingCards > g.DeckSets*deck.SetSize {
		return fmt.Errorf("%d players with %d cards each need more than %d deck sets", g.Players, g.StartingCards, g.DeckSets)
	}
	if g.TurnTimeLimit < 1 {
		return fmt.Errorf("turn time limit must be at least one second, got %d", g.TurnTimeLimit)
	}

	return nil
}
