package types

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// EquitySample is one (timestamp, equity) point on the equity curve, recorded once
// per bar by the driver after fills for that bar have settled.
type EquitySample struct {
	Timestamp time.Time `yaml:"timestamp" json:"timestamp"`
	Equity    float64   `yaml:"equity" json:"equity"`
}

// Trade is a closed round trip: an opening fill and the closing fill(s) that bring the
// position back to zero, per spec.md §4.6.
type Trade struct {
	Symbol      string    `yaml:"symbol" json:"symbol"`
	OpenedAt    time.Time `yaml:"opened_at" json:"opened_at"`
	ClosedAt    time.Time `yaml:"closed_at" json:"closed_at"`
	Quantity    float64   `yaml:"quantity" json:"quantity"`
	EntryPrice  float64   `yaml:"entry_price" json:"entry_price"`
	ExitPrice   float64   `yaml:"exit_price" json:"exit_price"`
	Commissions float64   `yaml:"commissions" json:"commissions"`
	PnL         float64   `yaml:"pnl" json:"pnl"`
}

// IsWinner, IsLoser classify a trade per spec.md §4.6 (break-even is excluded from both).
func (t Trade) IsWinner() bool { return t.PnL > 0 }
func (t Trade) IsLoser() bool  { return t.PnL < 0 }

// BacktestResult is the Performance Analyzer's output record, all numeric, no references
// to internal engine state, per spec.md §6.
type BacktestResult struct {
	TotalReturnPct      float64 `yaml:"total_return_pct" json:"total_return_pct"`
	AnnualizedReturn    float64 `yaml:"annualized_return" json:"annualized_return"`
	Sharpe              float64 `yaml:"sharpe" json:"sharpe"`
	Sortino             float64 `yaml:"sortino" json:"sortino"`
	MaxDrawdownPct      float64 `yaml:"max_drawdown_pct" json:"max_drawdown_pct"`
	MaxDrawdownDuration int     `yaml:"max_drawdown_duration" json:"max_drawdown_duration"`
	NumberOfTrades      int     `yaml:"number_of_trades" json:"number_of_trades"`
	Winners             int     `yaml:"winners" json:"winners"`
	Losers              int     `yaml:"losers" json:"losers"`
	WinRate             float64 `yaml:"win_rate" json:"win_rate"`
	ProfitFactor        float64 `yaml:"profit_factor" json:"profit_factor"`
	Expectancy          float64 `yaml:"expectancy" json:"expectancy"`
	EquityInitial       float64 `yaml:"equity_initial" json:"equity_initial"`
	EquityFinal         float64 `yaml:"equity_final" json:"equity_final"`
	TotalCommissions    float64 `yaml:"total_commissions" json:"total_commissions"`
}

// WriteResult marshals a BacktestResult to YAML, mirroring the teacher's stats.yaml output.
func WriteResult(path string, result BacktestResult) error {
	data, err := yaml.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal backtest result to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write backtest result to file: %w", err)
	}

	return nil
}
