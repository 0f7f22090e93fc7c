// Package execution simulates order fills against incoming bars (spec.md §4.3).
package execution

import (
	"math"
	"time"

	"github.com/kestrel-quant/backtest/internal/clock"
	"github.com/kestrel-quant/backtest/internal/commission"
	"github.com/kestrel-quant/backtest/internal/types"
)

// Simulator decides, for each pending order, whether and at what price it fills
// given the current bar.
type Simulator struct {
	fee             commission.Fee
	slippageBps     float64
	fillVolumeLimit float64
	allowShorting   bool
	fillIDs         *clock.IDGenerator
}

// New creates a Simulator. slippageBps is applied only to MARKET/STOP fills;
// LIMIT/STOP_LIMIT touches fill at the limit price, or at the bar's open when that is
// better for the order, with no slippage (spec.md §4.3).
func New(fee commission.Fee, slippageBps, fillVolumeLimit float64, allowShorting bool, fillIDs *clock.IDGenerator) *Simulator {
	return &Simulator{
		fee:             fee,
		slippageBps:     slippageBps,
		fillVolumeLimit: fillVolumeLimit,
		allowShorting:   allowShorting,
		fillIDs:         fillIDs,
	}
}

// Process attempts to fill order against bar given the account's current cash and
// position quantity in order.Symbol. It mutates order in place (status, filled
// quantity, average fill price) and returns any fills produced; an order that stays
// pending, gets cancelled, or gets rejected produces no fills and no error — those are
// order-state outcomes, not failures of the simulator itself.
func (s *Simulator) Process(order *types.Order, bar types.Bar, cash, positionQty float64) ([]types.Fill, error) {
	if order.IsTerminal() || order.Symbol != bar.Symbol {
		return nil, nil
	}

	if order.TIF == types.TIFDay && !sameDay(order.CreatedAt, bar.Timestamp) {
		s.terminate(order, types.OrderStatusCancelled, "day order expired", bar.Timestamp)
		return nil, nil
	}

	refPrice, eligible, applySlippage := s.evaluate(order, bar)
	if !eligible {
		return nil, nil
	}

	fillPrice := refPrice
	if applySlippage {
		fillPrice = refPrice * (1 + order.Side.Sign()*s.slippageBps/10000)
	}

	fillableQty := s.fillVolumeLimit * bar.Volume
	remaining := order.RemainingQty

	if order.TIF == types.TIFFOK && remaining > fillableQty {
		s.terminate(order, types.OrderStatusCancelled, "fill-or-kill liquidity unavailable", bar.Timestamp)
		return nil, nil
	}

	filledQty := remaining
	partial := remaining > fillableQty

	if partial {
		filledQty = fillableQty
	}

	if filledQty <= 0 {
		return nil, nil
	}

	commissionAmt := s.fee.Calculate(filledQty, fillPrice)

	if rejected := s.checkRisk(order, filledQty, fillPrice, commissionAmt, cash, positionQty); rejected {
		order.UpdatedAt = bar.Timestamp
		return nil, nil
	}

	fill := types.Fill{
		ID:         s.fillIDs.Next(),
		OrderID:    order.ID,
		Symbol:     order.Symbol,
		Side:       order.Side,
		Quantity:   filledQty,
		Price:      fillPrice,
		Commission: commissionAmt,
		Slippage:   fillPrice - refPrice,
		Timestamp:  bar.Timestamp,
	}

	s.applyFillToOrder(order, fill, bar.Timestamp)

	if order.TIF == types.TIFIOC && order.RemainingQty > 0 {
		order.Status = types.OrderStatusCancelled
		order.RemainingQty = 0
	}

	return []types.Fill{fill}, nil
}

// evaluate returns the reference price to fill at, whether the order is eligible to
// fill on this bar at all, and whether slippage should be applied to that reference.
func (s *Simulator) evaluate(order *types.Order, bar types.Bar) (refPrice float64, eligible, applySlippage bool) {
	buyDirection := order.Side.Sign() > 0

	switch order.Type {
	case types.OrderTypeMarket:
		return bar.Close, true, true

	case types.OrderTypeLimit:
		if buyDirection {
			if bar.Low > order.LimitPrice {
				return 0, false, false
			}

			return math.Min(order.LimitPrice, bar.Open), true, false
		}

		if bar.High < order.LimitPrice {
			return 0, false, false
		}

		return math.Max(order.LimitPrice, bar.Open), true, false

	case types.OrderTypeStop:
		if !order.IsArmed() {
			if !crossesStop(buyDirection, order.StopPrice, bar) {
				return 0, false, false
			}

			order.Arm()
		}

		return order.StopPrice, true, true

	case types.OrderTypeStopLimit:
		if !order.IsArmed() {
			if !crossesStop(buyDirection, order.StopPrice, bar) {
				return 0, false, false
			}

			order.Arm()
		}

		if buyDirection {
			if bar.Low > order.StopPrice {
				return 0, false, false
			}

			return math.Min(order.StopPrice, bar.Open), true, false
		}

		if bar.High < order.StopPrice {
			return 0, false, false
		}

		return math.Max(order.StopPrice, bar.Open), true, false

	default:
		return 0, false, false
	}
}

// crossesStop reports whether the bar's range triggers a stop order's arming
// condition: a buy-direction stop arms on an upward breakout, a sell-direction stop
// arms on a downward breakdown.
func crossesStop(buyDirection bool, stopPrice float64, bar types.Bar) bool {
	if buyDirection {
		return bar.High >= stopPrice
	}

	return bar.Low <= stopPrice
}

// checkRisk rejects the order (no shorting allowed, or insufficient cash) and reports
// whether it did.
func (s *Simulator) checkRisk(order *types.Order, filledQty, fillPrice, commissionAmt, cash, positionQty float64) bool {
	buyDirection := order.Side.Sign() > 0

	if buyDirection {
		cost := filledQty*fillPrice + commissionAmt
		if cost > cash {
			order.Status = types.OrderStatusRejected
			order.RejectReason = "insufficient funds"

			return true
		}

		return false
	}

	if !s.allowShorting && positionQty-filledQty < 0 {
		order.Status = types.OrderStatusRejected
		order.RejectReason = "shorting disabled"

		return true
	}

	return false
}

// applyFillToOrder updates an order's running fill state after a fill is produced.
func (s *Simulator) applyFillToOrder(order *types.Order, fill types.Fill, at time.Time) {
	totalFilled := order.FilledQty + fill.Quantity
	order.AvgFillPrice = (order.AvgFillPrice*order.FilledQty + fill.Price*fill.Quantity) / totalFilled
	order.FilledQty = totalFilled
	order.RemainingQty = order.Quantity - totalFilled
	order.UpdatedAt = at

	if order.RemainingQty <= 0 {
		order.Status = types.OrderStatusFilled
		order.RemainingQty = 0
	} else {
		order.Status = types.OrderStatusPartiallyFilled
	}
}

func (s *Simulator) terminate(order *types.Order, status types.OrderStatus, reason string, at time.Time) {
	order.Status = status
	order.RejectReason = reason
	order.UpdatedAt = at
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()

	return ay == by && am == bm && ad == bd
}
