// Package analyzer is the Performance Analyzer: it reduces an equity curve and a
// closed-trade log to the single BacktestResult metrics record (spec.md §4.6). Every
// formula here is a direct, explicit implementation of a spec definition; there is
// deliberately no hidden smoothing or resampling.
package analyzer

import (
	"math"

	"github.com/kestrel-quant/backtest/internal/types"
)

const tradingDaysPerYear = 252

// Analyzer holds the one external parameter the metrics need: the annual risk-free
// rate used to compute excess returns for Sharpe/Sortino.
type Analyzer struct {
	riskFreeAnnual float64
}

// New creates an Analyzer. riskFreeAnnual is an annualized rate, e.g. 0.02 for 2%.
func New(riskFreeAnnual float64) *Analyzer {
	return &Analyzer{riskFreeAnnual: riskFreeAnnual}
}

// Analyze computes the full BacktestResult from a run's equity curve, closed trades,
// and final portfolio. equity must be in chronological order and non-empty.
func (a *Analyzer) Analyze(equity []types.EquitySample, trades []types.Trade, portfolio types.Portfolio) types.BacktestResult {
	if len(equity) == 0 {
		return types.BacktestResult{}
	}

	equityInitial := equity[0].Equity
	equityFinal := equity[len(equity)-1].Equity

	totalReturn := 0.0
	if equityInitial != 0 {
		totalReturn = (equityFinal - equityInitial) / equityInitial
	}

	returns := dailyReturns(equity)
	sharpe := a.sharpe(returns)
	sortino := a.sortino(returns)
	maxDD, maxDDDuration := drawdown(equity)

	winners, losers, winRate, profitFactor, expectancy := tradeStats(trades)

	totalCommissions := 0.0
	for _, pos := range portfolio.Positions {
		totalCommissions += pos.TotalCommission
	}

	return types.BacktestResult{
		TotalReturnPct:      totalReturn * 100,
		AnnualizedReturn:    annualizedReturn(totalReturn, len(equity)),
		Sharpe:              sharpe,
		Sortino:             sortino,
		MaxDrawdownPct:      maxDD * 100,
		MaxDrawdownDuration: maxDDDuration,
		NumberOfTrades:      len(trades),
		Winners:             winners,
		Losers:              losers,
		WinRate:             winRate,
		ProfitFactor:        profitFactor,
		Expectancy:          expectancy,
		EquityInitial:       equityInitial,
		EquityFinal:         equityFinal,
		TotalCommissions:    totalCommissions,
	}
}

// dailyReturns computes returns[i] = equity[i]/equity[i-1] - 1 for i >= 1.
func dailyReturns(equity []types.EquitySample) []float64 {
	if len(equity) < 2 {
		return nil
	}

	returns := make([]float64, 0, len(equity)-1)

	for i := 1; i < len(equity); i++ {
		prev := equity[i-1].Equity
		if prev == 0 {
			returns = append(returns, 0)
			continue
		}

		returns = append(returns, equity[i].Equity/prev-1)
	}

	return returns
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}

	sum := 0.0
	for _, x := range xs {
		sum += x
	}

	return sum / float64(len(xs))
}

func stddev(xs []float64, m float64) float64 {
	if len(xs) == 0 {
		return 0
	}

	sumSq := 0.0
	for _, x := range xs {
		d := x - m
		sumSq += d * d
	}

	return math.Sqrt(sumSq / float64(len(xs)))
}

// downsideDeviation is the root-mean-square of only the negative returns, measured
// against a 0 minimum acceptable return (spec.md §4.6 "only negative deviations from 0").
func downsideDeviation(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}

	sumSq := 0.0
	for _, x := range xs {
		if x < 0 {
			sumSq += x * x
		}
	}

	return math.Sqrt(sumSq / float64(len(xs)))
}

// sharpe implements spec.md §4.6's Sharpe definition, reporting 0 when volatility is
// too close to zero for the ratio to be meaningful.
func (a *Analyzer) sharpe(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	rfDaily := a.riskFreeAnnual / tradingDaysPerYear
	sd := stddev(returns, mean(returns))

	if sd < 1e-9 {
		return 0
	}

	return (mean(returns) - rfDaily) / sd * math.Sqrt(tradingDaysPerYear)
}

// sortino mirrors sharpe but divides by downside deviation instead of stddev.
func (a *Analyzer) sortino(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	rfDaily := a.riskFreeAnnual / tradingDaysPerYear
	dd := downsideDeviation(returns)

	if dd < 1e-9 {
		return 0
	}

	return (mean(returns) - rfDaily) / dd * math.Sqrt(tradingDaysPerYear)
}

// drawdown walks the equity curve once, tracking the rolling peak, and returns the
// worst peak-to-trough decline as a fraction plus the longest run of consecutive
// samples spent below that rolling peak.
func drawdown(equity []types.EquitySample) (maxDrawdownPct float64, maxDuration int) {
	if len(equity) == 0 {
		return 0, 0
	}

	peak := equity[0].Equity
	currentRun := 0

	for _, sample := range equity {
		if sample.Equity > peak {
			peak = sample.Equity
		}

		if sample.Equity < peak {
			currentRun++

			if peak != 0 {
				dd := (peak - sample.Equity) / peak
				if dd > maxDrawdownPct {
					maxDrawdownPct = dd
				}
			}
		} else {
			currentRun = 0
		}

		if currentRun > maxDuration {
			maxDuration = currentRun
		}
	}

	return maxDrawdownPct, maxDuration
}

// tradeStats implements spec.md §4.6's trade accounting: win rate, profit factor
// (reported 0 instead of +Inf when there are no losses), and expectancy.
func tradeStats(trades []types.Trade) (winners, losers int, winRate, profitFactor, expectancy float64) {
	grossWin, grossLoss := 0.0, 0.0

	for _, t := range trades {
		switch {
		case t.IsWinner():
			winners++
			grossWin += t.PnL
		case t.IsLoser():
			losers++
			grossLoss += -t.PnL
		}
	}

	decided := winners + losers
	if decided > 0 {
		winRate = float64(winners) / float64(decided)
	}

	if grossLoss > 0 {
		profitFactor = grossWin / grossLoss
	}

	avgWin := 0.0
	if winners > 0 {
		avgWin = grossWin / float64(winners)
	}

	avgLoss := 0.0
	if losers > 0 {
		avgLoss = grossLoss / float64(losers)
	}

	expectancy = winRate*avgWin - (1-winRate)*avgLoss

	return winners, losers, winRate, profitFactor, expectancy
}

// annualizedReturn implements spec.md §4.6's (1+total_return)^(252/N)-1, where N is
// the number of equity samples.
func annualizedReturn(totalReturn float64, n int) float64 {
	if n == 0 {
		return 0
	}

	base := 1 + totalReturn
	if base < 0 {
		// A total loss beyond -100% makes the fractional power undefined in real
		// arithmetic; report the uncompounded total return instead of NaN.
		return totalReturn
	}

	return math.Pow(base, float64(tradingDaysPerYear)/float64(n)) - 1
}
