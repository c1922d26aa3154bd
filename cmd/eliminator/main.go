package main

import (
	"github.com/alecthomas/kong"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Version kong.VersionFlag `short:"v" help:"Show version"`
	Server  ServerCmd        `cmd:"" help:"Host a single Eliminator match"`
	Bot     BotCmd           `cmd:"" help:"Join a match with one or more built-in bots"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("eliminator"),
		kong.Description("Authoritative server and bots for the Eliminator card game"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
