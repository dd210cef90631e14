package main

import (
	"os"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"

	"github.com/zeusync/methodwatch/cmd/methodwatch/commands"
)

var version = "dev"

func main() {
	// Scope IDs are generated on every measurement.
	uuid.EnableRandPool()

	cli := &commands.CLI{}
	ctx := kong.Parse(cli,
		kong.Name("methodwatch"),
		kong.Description("Method execution timing and statistics service."),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	)
	err := ctx.Run(&commands.Global{Out: os.Stdout}, cli)
	ctx.FatalIfErrorf(err)
}
