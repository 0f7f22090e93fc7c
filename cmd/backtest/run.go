package main

import (
	"context"
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"

	"github.com/kestrel-quant/backtest/internal/analyzer"
	"github.com/kestrel-quant/backtest/internal/clock"
	"github.com/kestrel-quant/backtest/internal/commission"
	"github.com/kestrel-quant/backtest/internal/config"
	"github.com/kestrel-quant/backtest/internal/engine"
	"github.com/kestrel-quant/backtest/internal/execution"
	"github.com/kestrel-quant/backtest/internal/feed"
	"github.com/kestrel-quant/backtest/internal/logger"
	"github.com/kestrel-quant/backtest/internal/marker"
	"github.com/kestrel-quant/backtest/internal/scheduler"
	"github.com/kestrel-quant/backtest/internal/types"
)

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "run a backtest from a YAML config",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "path to run config YAML", Required: true},
			&cli.StringFlag{Name: "strategy", Aliases: []string{"s"}, Usage: "registered strategy name", Value: "sma-crossover"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "path to write the result YAML", Value: "result.yaml"},
			&cli.StringFlag{Name: "parquet", Usage: "load bars from this Parquet file via DuckDB instead of per-symbol CSVs"},
			&cli.BoolFlag{Name: "watch", Usage: "render a live TUI of the equity curve during the run"},
		},
		Action: runAction,
	}
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log, err := logger.NewLogger()
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer log.Sync()

	parquetPath := cmd.String("parquet")

	source, err := buildSource(cfg, parquetPath, log)
	if err != nil {
		return fmt.Errorf("opening feed: %w", err)
	}

	sched := scheduler.New(source, cfg.Feed.ReplaySpeed, cfg.Feed.Loop)
	if err := sched.SubscribeAll(); err != nil {
		return fmt.Errorf("subscribing to feed: %w", err)
	}

	fee := commission.NewPercentageFee(cfg.Backtest.CommissionRate)
	sim := execution.New(fee, cfg.Backtest.SlippageBps, cfg.Backtest.FillVolumeLimit, cfg.Backtest.AllowShorting, clock.NewIDGenerator())

	e := engine.New(log, sched, sim, cfg.Backtest.InitialCash, nil)
	e.SetMarker(marker.New())

	strat, err := buildStrategy(cmd.String("strategy"))
	if err != nil {
		return err
	}

	e.AddStrategy(strat)

	outPath := cmd.String("out")

	if cmd.Bool("watch") {
		return runWithWatch(e, outPath)
	}

	return runWithProgressBar(e, cfg, parquetPath, outPath, log)
}

// buildSource opens either a DuckDB-backed Parquet feed or the default per-symbol
// CSV feed, depending on whether --parquet was set.
func buildSource(cfg config.RunConfig, parquetPath string, log *logger.Logger) (feed.Source, error) {
	if parquetPath == "" {
		return feed.NewCSVSource(cfg.Feed.DataDirectory), nil
	}

	source, err := feed.NewDuckDBSource(":memory:", log)
	if err != nil {
		return nil, fmt.Errorf("opening duckdb source: %w", err)
	}

	if err := source.LoadParquet(parquetPath); err != nil {
		return nil, fmt.Errorf("loading parquet file %q: %w", parquetPath, err)
	}

	return source, nil
}

// runWithProgressBar drives e.Run to completion behind a schollz/progressbar/v3 bar
// keyed off a dry-run count of the feed's total events, per spec.md §6.
func runWithProgressBar(e *engine.Engine, cfg config.RunConfig, parquetPath, outPath string, log *logger.Logger) error {
	countSource, err := buildSource(cfg, parquetPath, log)
	if err != nil {
		return fmt.Errorf("opening feed for count: %w", err)
	}

	total, err := countEvents(countSource)
	if err != nil {
		return fmt.Errorf("counting feed events: %w", err)
	}

	bar := progressbar.Default(int64(total))
	bar.Describe("running backtest")

	e.OnEvent(func(types.Event) {
		_ = bar.Add(1)
	})

	if err := e.Run(); err != nil {
		return fmt.Errorf("running backtest: %w", err)
	}

	return writeResults(e, outPath)
}

// countEvents opens every symbol in source and counts its events, for the progress
// bar's denominator. Feeds used with `run` are expected to be cheap to scan twice.
func countEvents(source feed.Source) (int, error) {
	symbols, err := source.Symbols()
	if err != nil {
		return 0, err
	}

	total := 0

	for _, symbol := range symbols {
		stream, err := source.Open(symbol)
		if err != nil {
			return 0, err
		}

		for {
			_, ok, err := stream.Next()
			if err != nil {
				stream.Close()
				return 0, err
			}

			if !ok {
				break
			}

			total++
		}

		stream.Close()
	}

	return total, nil
}

func writeResults(e *engine.Engine, outPath string) error {
	results := e.Results()
	report := analyzer.New(0).Analyze(results.Equity, results.Trades, results.Portfolio)

	return types.WriteResult(outPath, report)
}
