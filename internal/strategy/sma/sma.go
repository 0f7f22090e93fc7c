// Package sma is a minimal built-in strategy for the CLI's default registry,
// grounded on the teacher's SimplePriceActionStrategy: a simple-moving-average
// crossover that goes long on a golden cross and flattens on a death cross.
package sma

import (
	"github.com/kestrel-quant/backtest/internal/strategy"
	"github.com/kestrel-quant/backtest/internal/types"
)

// Strategy holds one SMA pair per symbol it has seen a bar for.
type Strategy struct {
	shortPeriod int
	longPeriod  int
	qty         float64

	closes map[string][]float64
	long   map[string]bool
}

// New creates a Strategy with the given lookback windows and a fixed order size.
func New(shortPeriod, longPeriod int, qty float64) *Strategy {
	return &Strategy{
		shortPeriod: shortPeriod,
		longPeriod:  longPeriod,
		qty:         qty,
		closes:      make(map[string][]float64),
		long:        make(map[string]bool),
	}
}

func (s *Strategy) Name() string { return "sma-crossover" }

func (s *Strategy) EngineVersion() string { return ">= 1.0.0, < 2.0.0" }

func (s *Strategy) OnInit(ctx *strategy.Context) error {
	return nil
}

func (s *Strategy) OnBar(ctx *strategy.Context, bar types.Bar) error {
	history := append(s.closes[bar.Symbol], bar.Close)
	if len(history) > s.longPeriod {
		history = history[len(history)-s.longPeriod:]
	}

	s.closes[bar.Symbol] = history

	if len(history) < s.longPeriod {
		return nil
	}

	shortAvg := average(history[len(history)-s.shortPeriod:])
	longAvg := average(history)

	switch {
	case shortAvg > longAvg && !s.long[bar.Symbol]:
		if _, err := ctx.Buy(bar.Symbol, s.qty, 0); err != nil {
			return err
		}

		s.long[bar.Symbol] = true

		return ctx.Mark(types.Mark{
			Symbol: bar.Symbol,
			Color:  types.MarkColorGreen,
			Shape:  types.MarkShapeTriangle,
			Title:  "golden cross",
		})

	case shortAvg < longAvg && s.long[bar.Symbol]:
		if _, err := ctx.Sell(bar.Symbol, s.qty, 0); err != nil {
			return err
		}

		s.long[bar.Symbol] = false

		return ctx.Mark(types.Mark{
			Symbol: bar.Symbol,
			Color:  types.MarkColorRed,
			Shape:  types.MarkShapeTriangle,
			Title:  "death cross",
		})
	}

	return nil
}

func average(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}

	return sum / float64(len(xs))
}
