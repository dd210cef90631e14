package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/zeusync/methodwatch/internal/core/stats"
)

// StatsCmd implements the 'stats' command.
type StatsCmd struct {
	Addr string `short:"a" help:"Server address" default:"127.0.0.1:8080"`
	Key  string `short:"k" help:"Only show this key"`
	JSON bool   `help:"Print raw JSON"`
}

func (c *StatsCmd) Run(g *Global, _ *CLI) error {
	ctx := context.Background()
	cl := newClient(c.Addr)

	var snaps []stats.Snapshot
	if c.Key != "" {
		s, err := cl.one(ctx, c.Key)
		if err != nil {
			return err
		}
		snaps = []stats.Snapshot{s}
	} else {
		all, err := cl.all(ctx)
		if err != nil {
			return err
		}
		snaps = all
	}

	if c.JSON {
		enc := json.NewEncoder(g.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(snaps)
	}

	tw := tabwriter.NewWriter(g.Out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "KEY\tCALLS\tFAILED\tAVG_MS\tMIN_MS\tMAX_MS\tLAST_MS\tTHRESHOLD_MS\tEXCEEDED")
	for _, s := range snaps {
		_, _ = fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\n",
			s.Key, s.TotalExecutions, s.TotalFailures, s.AverageTimeMs(),
			s.MinTimeMs, s.MaxTimeMs, s.LastExecutionMs, s.ThresholdMs, s.ExceededThresholdCount)
	}
	return tw.Flush()
}
