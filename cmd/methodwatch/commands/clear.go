package commands

import (
	"context"
	"fmt"
)

// ClearCmd implements the 'clear' command.
type ClearCmd struct {
	Addr string `short:"a" help:"Server address" default:"127.0.0.1:8080"`
}

func (c *ClearCmd) Run(g *Global, _ *CLI) error {
	if err := newClient(c.Addr).clear(context.Background()); err != nil {
		return err
	}
	_, err := fmt.Fprintln(g.Out, "statistics cleared")
	return err
}
