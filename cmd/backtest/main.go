// Command backtest drives a historical replay end-to-end from a YAML config: it
// loads a feed, wires a compiled-in strategy, runs the Backtest Driver, and writes
// the Performance Analyzer's result record.
package main

import (
	"context"
	"log"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:  "backtest",
		Usage: "event-driven backtesting engine",
		Commands: []*cli.Command{
			runCommand(),
			schemaCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
