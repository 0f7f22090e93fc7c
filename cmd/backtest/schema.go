package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/kestrel-quant/backtest/internal/config"
)

func schemaCommand() *cli.Command {
	return &cli.Command{
		Name:  "schema",
		Usage: "print the run config's JSON Schema",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			schema, err := config.Schema()
			if err != nil {
				return fmt.Errorf("generating schema: %w", err)
			}

			fmt.Println(schema)

			return nil
		},
	}
}
