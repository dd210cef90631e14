package commands

import (
	"io"

	"github.com/alecthomas/kong"
)

// Global carries state shared by every subcommand.
type Global struct {
	Out io.Writer
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" type:"path"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Serve ServeCmd `cmd:"" help:"Run the statistics server"`
	Stats StatsCmd `cmd:"" help:"Print statistics from a running server"`
	Clear ClearCmd `cmd:"" help:"Clear statistics on a running server"`
}
