// Package accountant is the single source of truth for cash, positions, and equity
// (spec.md §4.4 Portfolio Accountant). All composed money arithmetic runs through
// shopspring/decimal internally; float64 crosses the package boundary only.
package accountant

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kestrel-quant/backtest/internal/types"
	"github.com/kestrel-quant/backtest/pkg/errors"
)

// Accountant owns the run's Portfolio and applies fills/marks to it.
type Accountant struct {
	portfolio *types.Portfolio
	trades    []types.Trade
	open      map[string]*openTrade
}

// openTrade accumulates one symbol's current round trip: every opening fill widens
// its entry side, every closing fill widens its exit side, until quantity returns to
// zero and it is finalized into a types.Trade (spec.md §4.6 "round trip").
type openTrade struct {
	symbol        string
	openedAt      time.Time
	entryQty      decimal.Decimal
	entryNotional decimal.Decimal
	exitQty       decimal.Decimal
	exitNotional  decimal.Decimal
	commissions   decimal.Decimal
	realizedPnL   decimal.Decimal
}

// New creates an Accountant seeded with the given starting cash.
func New(initialCash float64) *Accountant {
	return &Accountant{
		portfolio: types.NewPortfolio(initialCash),
		open:      make(map[string]*openTrade),
	}
}

// Trades returns every completed round trip so far, in closing order.
func (a *Accountant) Trades() []types.Trade {
	return a.trades
}

// Portfolio returns the live portfolio. Callers needing an isolated read should use
// Snapshot instead.
func (a *Accountant) Portfolio() *types.Portfolio {
	return a.portfolio
}

// Snapshot returns a value copy of the portfolio and its positions, safe for a
// strategy to hold onto without observing later mutation (spec.md §4.2 get_portfolio).
func (a *Accountant) Snapshot() types.Portfolio {
	snap := *a.portfolio
	snap.Positions = make(map[string]*types.Position, len(a.portfolio.Positions))

	for symbol, pos := range a.portfolio.Positions {
		posCopy := *pos
		snap.Positions[symbol] = &posCopy
	}

	return snap
}

// GetPosition returns the position for symbol and whether it has ever been traded.
func (a *Accountant) GetPosition(symbol string) (types.Position, bool) {
	pos, ok := a.portfolio.Positions[symbol]
	if !ok {
		return types.Position{}, false
	}

	return *pos, true
}

// ApplyFill updates cash and the fill's symbol position. Position averaging that
// crosses through zero realizes P&L on the closing portion and opens a fresh basis for
// the remainder, per spec.md §9's resolution of that Open Question.
func (a *Accountant) ApplyFill(fill types.Fill) error {
	if fill.Quantity <= 0 {
		return errors.New(errors.ErrCodeInvalidQuantity, "fill quantity must be > 0")
	}

	pos := a.portfolio.PositionOrNew(fill.Symbol, fill.Timestamp)

	sign := fill.Side.Sign()
	qty := decimal.NewFromFloat(pos.Quantity)
	fillQty := decimal.NewFromFloat(fill.Quantity)
	price := decimal.NewFromFloat(fill.Price)
	commission := decimal.NewFromFloat(fill.Commission)
	avgEntry := decimal.NewFromFloat(pos.AvgEntryPrice)

	signedDelta := fillQty
	if sign < 0 {
		signedDelta = fillQty.Neg()
	}

	var cashDelta decimal.Decimal
	if sign > 0 {
		cashDelta = fillQty.Mul(price).Neg().Sub(commission)
	} else {
		cashDelta = fillQty.Mul(price).Sub(commission)
	}

	sameDirection := qty.IsZero() || (qty.Sign() > 0) == (signedDelta.Sign() > 0)

	ot := a.open[fill.Symbol]

	switch {
	case sameDirection:
		// Opening or adding to a position in the same direction: weighted-average the basis.
		qtyMag := qty.Abs()
		totalMag := qtyMag.Add(fillQty)
		newAvg := qtyMag.Mul(avgEntry).Add(fillQty.Mul(price)).Div(totalMag)
		pos.AvgEntryPrice, _ = newAvg.Float64()
		pos.Quantity, _ = qty.Add(signedDelta).Float64()

		if ot == nil {
			ot = &openTrade{symbol: fill.Symbol, openedAt: fill.Timestamp}
			a.open[fill.Symbol] = ot
		}

		ot.entryQty = ot.entryQty.Add(fillQty)
		ot.entryNotional = ot.entryNotional.Add(fillQty.Mul(price))
		ot.commissions = ot.commissions.Add(commission)
	case fillQty.LessThanOrEqual(qty.Abs()):
		// Reducing toward (possibly to) zero: realize P&L on the reduced quantity.
		pnl := realizedPnL(qty, avgEntry, price, fillQty)
		realized := decimal.NewFromFloat(pos.RealizedPnL).Add(pnl)
		pos.RealizedPnL, _ = realized.Float64()

		newQty := qty.Add(signedDelta)
		pos.Quantity, _ = newQty.Float64()

		if ot != nil {
			ot.exitQty = ot.exitQty.Add(fillQty)
			ot.exitNotional = ot.exitNotional.Add(fillQty.Mul(price))
			ot.commissions = ot.commissions.Add(commission)
			ot.realizedPnL = ot.realizedPnL.Add(pnl)
		}

		if newQty.IsZero() {
			pos.AvgEntryPrice = 0

			if ot != nil {
				a.trades = append(a.trades, finalizeTrade(ot, fill.Timestamp))
				delete(a.open, fill.Symbol)
			}
		}
	default:
		// Crosses through zero: close the existing side entirely, then open a fresh
		// basis on the remainder in the new direction.
		closeQty := qty.Abs()
		pnl := realizedPnL(qty, avgEntry, price, closeQty)
		realized := decimal.NewFromFloat(pos.RealizedPnL).Add(pnl)
		pos.RealizedPnL, _ = realized.Float64()

		if ot != nil {
			ot.exitQty = ot.exitQty.Add(closeQty)
			ot.exitNotional = ot.exitNotional.Add(closeQty.Mul(price))
			ot.commissions = ot.commissions.Add(commission)
			ot.realizedPnL = ot.realizedPnL.Add(pnl)
			a.trades = append(a.trades, finalizeTrade(ot, fill.Timestamp))
			delete(a.open, fill.Symbol)
		}

		remainder := fillQty.Sub(closeQty)
		newQty := remainder
		if sign < 0 {
			newQty = remainder.Neg()
		}

		pos.Quantity, _ = newQty.Float64()
		pos.AvgEntryPrice = fill.Price

		a.open[fill.Symbol] = &openTrade{
			symbol:        fill.Symbol,
			openedAt:      fill.Timestamp,
			entryQty:      remainder,
			entryNotional: remainder.Mul(price),
		}
	}

	totalCommission := decimal.NewFromFloat(pos.TotalCommission).Add(commission)
	pos.TotalCommission, _ = totalCommission.Float64()
	pos.LastUpdated = fill.Timestamp

	// A newly opened position has never been marked; without this its CurrentPrice
	// would stay 0 until the next MarkToMarket call and understate equity immediately
	// after the fill that opened it.
	pos.CurrentPrice = fill.Price

	if pos.Quantity != 0 {
		unrealized := decimal.NewFromFloat(pos.Quantity).Mul(price.Sub(decimal.NewFromFloat(pos.AvgEntryPrice)))
		pos.UnrealizedPnL, _ = unrealized.Float64()
	} else {
		pos.UnrealizedPnL = 0
	}

	newCash := decimal.NewFromFloat(a.portfolio.Cash).Add(cashDelta)
	a.portfolio.Cash, _ = newCash.Float64()
	a.portfolio.LastUpdated = fill.Timestamp

	a.recomputeEquity()

	return nil
}

// finalizeTrade converts a fully-closed openTrade into a reportable Trade: average
// entry/exit prices weighted over the round trip, commissions summed across entry and
// exit fills, PnL net of those commissions (spec.md §4.6 "pnl_per_trade").
func finalizeTrade(ot *openTrade, closedAt time.Time) types.Trade {
	entryPrice, _ := ot.entryNotional.Div(ot.entryQty).Float64()

	exitPrice := 0.0
	if !ot.exitQty.IsZero() {
		exitPrice, _ = ot.exitNotional.Div(ot.exitQty).Float64()
	}

	quantity, _ := ot.entryQty.Float64()
	commissions, _ := ot.commissions.Float64()
	pnl, _ := ot.realizedPnL.Sub(ot.commissions).Float64()

	return types.Trade{
		Symbol:      ot.symbol,
		OpenedAt:    ot.openedAt,
		ClosedAt:    closedAt,
		Quantity:    quantity,
		EntryPrice:  entryPrice,
		ExitPrice:   exitPrice,
		Commissions: commissions,
		PnL:         pnl,
	}
}

// realizedPnL computes the P&L realized by closing `closeQty` of a position whose
// current signed quantity is `qty` with average entry `avgEntry`, at `price`.
func realizedPnL(qty, avgEntry, price, closeQty decimal.Decimal) decimal.Decimal {
	if qty.Sign() > 0 {
		// was long: profit when price rose above entry
		return price.Sub(avgEntry).Mul(closeQty)
	}
	// was short: profit when price fell below entry
	return avgEntry.Sub(price).Mul(closeQty)
}

// MarkToMarket updates the named symbol's current price and unrealized P&L, then
// recomputes portfolio equity. Calling it twice with the same bar is idempotent
// (spec.md §8 "Idempotent mark-to-market").
func (a *Accountant) MarkToMarket(symbol string, price float64, at time.Time) {
	pos, ok := a.portfolio.Positions[symbol]
	if !ok {
		return
	}

	qty := decimal.NewFromFloat(pos.Quantity)
	avgEntry := decimal.NewFromFloat(pos.AvgEntryPrice)
	priceDec := decimal.NewFromFloat(price)

	pos.CurrentPrice = price

	if !qty.IsZero() {
		unrealized := priceDec.Sub(avgEntry).Mul(qty)
		pos.UnrealizedPnL, _ = unrealized.Float64()
	} else {
		pos.UnrealizedPnL = 0
	}

	pos.LastUpdated = at
	a.portfolio.LastUpdated = at

	a.recomputeEquity()
}

// recomputeEquity sets Equity = cash + sum(qty * current_price) across all positions.
func (a *Accountant) recomputeEquity() {
	equity := decimal.NewFromFloat(a.portfolio.Cash)

	for _, pos := range a.portfolio.Positions {
		if pos.Quantity == 0 {
			continue
		}

		marketValue := decimal.NewFromFloat(pos.Quantity).Mul(decimal.NewFromFloat(pos.CurrentPrice))
		equity = equity.Add(marketValue)
	}

	a.portfolio.Equity, _ = equity.Float64()
	a.portfolio.BuyingPower = a.portfolio.Cash
}

// CheckInvariant verifies spec.md §4.4's double-entry identity to within 1e-6 relative
// tolerance, returning ErrCodeInternalInvariantViolated if it fails.
func (a *Accountant) CheckInvariant() error {
	sumMarketValue := 0.0
	for _, pos := range a.portfolio.Positions {
		sumMarketValue += pos.Quantity * pos.CurrentPrice
	}

	expected := a.portfolio.Cash + sumMarketValue
	actual := a.portfolio.Equity
	tolerance := 1e-6 * math.Max(math.Abs(actual), 1)

	if math.Abs(expected-actual) > tolerance {
		return errors.Newf(errors.ErrCodeInternalInvariantViolated,
			"equity invariant violated: equity=%f cash+positions=%f", actual, expected)
	}

	return nil
}
