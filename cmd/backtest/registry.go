package main

import (
	"fmt"

	"github.com/kestrel-quant/backtest/internal/strategy/sma"
)

// strategyFactories is the compiled-in strategy registry spec.md §6's CLI wires
// strategies through; a real deployment would grow this list, one entry per
// strategy package linked into the binary.
var strategyFactories = map[string]func() any{
	"sma-crossover": func() any { return sma.New(10, 30, 10) },
}

func buildStrategy(name string) (any, error) {
	factory, ok := strategyFactories[name]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q", name)
	}

	return factory(), nil
}
