// Package engine is the Backtest Driver: the outer event loop that pulls events from
// the Replay Scheduler, dispatches them to registered strategies, walks pending orders
// through the Execution Simulator, and applies resulting fills through the Portfolio
// Accountant (spec.md §4.5).
package engine

import (
	"sync/atomic"
	"time"

	"github.com/Masterminds/semver/v3"
	"go.uber.org/zap"

	"github.com/kestrel-quant/backtest/internal/accountant"
	"github.com/kestrel-quant/backtest/internal/clock"
	"github.com/kestrel-quant/backtest/internal/execution"
	"github.com/kestrel-quant/backtest/internal/logger"
	"github.com/kestrel-quant/backtest/internal/marker"
	"github.com/kestrel-quant/backtest/internal/scheduler"
	"github.com/kestrel-quant/backtest/internal/strategy"
	"github.com/kestrel-quant/backtest/internal/types"
	"github.com/kestrel-quant/backtest/pkg/errors"
)

// EngineVersion is checked against a strategy's declared EngineVersion constraint at
// registration time (spec.md §4.9 strategy plugin identity).
const EngineVersion = "1.0.0"

// Results is the engine's raw output, handed to the Performance Analyzer once a run
// terminates (spec.md §4.5 "get_results() becomes available").
type Results struct {
	Equity    []types.EquitySample
	Trades    []types.Trade
	Portfolio types.Portfolio
}

// Engine owns every per-run collaborator and drives the event loop. It implements
// strategy.OrderBook itself so a strategy.Context can submit/cancel/look up orders
// without knowing about the driver.
type Engine struct {
	log        *logger.Logger
	scheduler  *scheduler.Scheduler
	simulator  *execution.Simulator
	accountant *accountant.Accountant
	simClock   *clock.Clock
	ctx        *strategy.Context

	strategies []any
	orders     map[uint64]*types.Order
	orderSeq   []*types.Order

	equity []types.EquitySample
	stop   atomic.Bool

	onEvent func(event types.Event)
}

// New creates an Engine over an already-configured Replay Scheduler and Execution
// Simulator, seeding the Accountant with initialCash; risk may be nil.
func New(
	log *logger.Logger,
	sched *scheduler.Scheduler,
	sim *execution.Simulator,
	initialCash float64,
	risk strategy.RiskManager,
) *Engine {
	e := &Engine{
		log:        log,
		scheduler:  sched,
		simulator:  sim,
		accountant: accountant.New(initialCash),
		simClock:   clock.New(time.Time{}),
		orders:     make(map[uint64]*types.Order),
	}

	e.ctx = strategy.New(e.accountant, clock.NewIDGenerator(), e, risk)

	return e
}

// AddStrategy registers a strategy value in dispatch order. A strategy need only
// implement the capability interfaces it cares about (spec.md §4.2 "capability set").
// If s declares strategy.Versioned, a constraint mismatch against EngineVersion logs a
// warning but never blocks registration (spec.md §4.9).
func (e *Engine) AddStrategy(s any) {
	if v, ok := s.(strategy.Versioned); ok {
		e.checkVersion(s, v.EngineVersion())
	}

	e.strategies = append(e.strategies, s)
}

func (e *Engine) checkVersion(s any, constraintStr string) {
	constraint, err := semver.NewConstraint(constraintStr)
	if err != nil {
		e.log.Warn("strategy declared an unparseable engine version constraint",
			zap.String("constraint", constraintStr), zap.Error(err))

		return
	}

	version := semver.MustParse(EngineVersion)
	if !constraint.Check(version) {
		name := "<unnamed>"
		if n, ok := s.(strategy.Named); ok {
			name = n.Name()
		}

		e.log.Warn("strategy engine version constraint not satisfied",
			zap.String("strategy", name), zap.String("constraint", constraintStr), zap.String("engine_version", EngineVersion))
	}
}

// SetMarker attaches the observer a strategy's ctx.Mark calls are recorded through.
func (e *Engine) SetMarker(m marker.Marker) {
	e.ctx.SetMarker(m)
}

// OnEvent registers a callback invoked once per processed event, after dispatch and
// invariant checking, for callers that want to drive a progress indicator or live
// display without reaching into the event loop itself.
func (e *Engine) OnEvent(fn func(event types.Event)) {
	e.onEvent = fn
}

// Accountant exposes the run's live Accountant for callers that need read access
// outside the event loop (e.g. the CLI printing a running balance).
func (e *Engine) Accountant() *accountant.Accountant {
	return e.accountant
}

// Stop requests a clean shutdown: the flag is checked between events, so the event
// currently in flight finishes processing before the run terminates (spec.md §4.5
// "Cancellation").
func (e *Engine) Stop() {
	e.stop.Store(true)
}

// Run drives the event loop to completion: on_init, then per-event dispatch, then
// termination (cancelling every open order). It returns InternalInvariantViolated if
// the Accountant's double-entry identity ever fails.
func (e *Engine) Run() error {
	if err := e.initStrategies(); err != nil {
		return err
	}

	for !e.stop.Load() {
		event, ok, err := e.scheduler.Next()
		if err != nil {
			return err
		}

		if !ok {
			break
		}

		e.simClock.Set(event.Timestamp)

		switch event.Kind {
		case types.EventKindBar:
			err = e.processBar(event.Bar)
		case types.EventKindTick:
			err = e.processTick(event.Tick)
		}

		if err != nil {
			return err
		}

		if err := e.accountant.CheckInvariant(); err != nil {
			e.log.Error("invariant check failed, halting run", zap.Error(err))
			return err
		}

		if e.onEvent != nil {
			e.onEvent(event)
		}
	}

	e.cancelOpenOrders()

	return nil
}

// Results returns the run's output once Run has returned.
func (e *Engine) Results() Results {
	return Results{
		Equity:    e.equity,
		Trades:    e.accountant.Trades(),
		Portfolio: e.accountant.Snapshot(),
	}
}

func (e *Engine) initStrategies() error {
	for _, s := range e.strategies {
		init, ok := s.(strategy.Initializer)
		if !ok {
			continue
		}

		if err := e.ctx.Invoke(e.simClock.Now(), func(c *strategy.Context) error {
			return init.OnInit(c)
		}); err != nil {
			return errors.Wrap(errors.ErrCodeStrategyNotLoaded, "strategy on_init failed", err)
		}
	}

	return nil
}

// processBar implements spec.md §4.5's per-bar procedure: mark-to-market, dispatch
// on_bar in registration order, walk pending orders for the symbol in submission
// order through the Simulator, apply fills, dispatch on_fill, then append the equity
// sample.
func (e *Engine) processBar(bar types.Bar) error {
	e.accountant.MarkToMarket(bar.Symbol, bar.Close, bar.Timestamp)

	for _, s := range e.strategies {
		handler, ok := s.(strategy.BarHandler)
		if !ok {
			continue
		}

		if err := e.ctx.Invoke(bar.Timestamp, func(c *strategy.Context) error {
			return handler.OnBar(c, bar)
		}); err != nil {
			e.log.Warn("strategy on_bar failed", zap.Error(err), zap.String("symbol", bar.Symbol))
		}
	}

	if err := e.walkPendingOrders(bar); err != nil {
		return err
	}

	// A fill on this bar may have set the position's CurrentPrice to the fill price
	// (which can differ from bar.Close under slippage or a resting LIMIT), so the
	// equity sample must re-MTM to the bar's close before being recorded.
	e.accountant.MarkToMarket(bar.Symbol, bar.Close, bar.Timestamp)

	e.equity = append(e.equity, types.EquitySample{
		Timestamp: bar.Timestamp,
		Equity:    e.accountant.Portfolio().Equity,
	})

	return nil
}

func (e *Engine) processTick(tick types.Tick) error {
	for _, s := range e.strategies {
		handler, ok := s.(strategy.TickHandler)
		if !ok {
			continue
		}

		if err := e.ctx.Invoke(tick.Timestamp, func(c *strategy.Context) error {
			return handler.OnTick(c, tick)
		}); err != nil {
			e.log.Warn("strategy on_tick failed", zap.Error(err), zap.String("symbol", tick.Symbol))
		}
	}

	return nil
}

// walkPendingOrders attempts a fill for every non-terminal order on bar.Symbol, in the
// order those orders were originally submitted, and applies any resulting fills.
func (e *Engine) walkPendingOrders(bar types.Bar) error {
	cash := e.accountant.Portfolio().Cash
	positionQty := 0.0

	if pos, ok := e.accountant.GetPosition(bar.Symbol); ok {
		positionQty = pos.Quantity
	}

	for _, order := range e.orderSeq {
		if order.Symbol != bar.Symbol || order.IsTerminal() {
			continue
		}

		statusBefore := order.Status

		fills, err := e.simulator.Process(order, bar, cash, positionQty)
		if err != nil {
			return err
		}

		for _, fill := range fills {
			if err := e.accountant.ApplyFill(fill); err != nil {
				return err
			}

			cash = e.accountant.Portfolio().Cash
			if pos, ok := e.accountant.GetPosition(bar.Symbol); ok {
				positionQty = pos.Quantity
			}

			e.dispatchFill(fill)
		}

		if order.Status != statusBefore {
			e.dispatchOrderUpdate(*order)
		}
	}

	return nil
}

func (e *Engine) dispatchFill(fill types.Fill) {
	for _, s := range e.strategies {
		handler, ok := s.(strategy.FillHandler)
		if !ok {
			continue
		}

		if err := e.ctx.Invoke(fill.Timestamp, func(c *strategy.Context) error {
			return handler.OnFill(c, fill)
		}); err != nil {
			e.log.Warn("strategy on_fill failed", zap.Error(err), zap.Uint64("order_id", fill.OrderID))
		}
	}
}

func (e *Engine) dispatchOrderUpdate(order types.Order) {
	for _, s := range e.strategies {
		handler, ok := s.(strategy.OrderUpdateHandler)
		if !ok {
			continue
		}

		if err := e.ctx.Invoke(order.UpdatedAt, func(c *strategy.Context) error {
			return handler.OnOrderUpdate(c, order)
		}); err != nil {
			e.log.Warn("strategy on_order_update failed", zap.Error(err), zap.Uint64("order_id", order.ID))
		}
	}
}

// cancelOpenOrders implements spec.md §4.5's termination procedure: every non-terminal
// order is cancelled and each strategy receives a final on_order_update for it.
func (e *Engine) cancelOpenOrders() {
	for _, order := range e.orderSeq {
		if order.IsTerminal() {
			continue
		}

		order.Status = types.OrderStatusCancelled
		order.UpdatedAt = e.simClock.Now()
		e.dispatchOrderUpdate(*order)
	}
}

// Submit implements strategy.OrderBook.
func (e *Engine) Submit(order *types.Order) {
	e.orders[order.ID] = order
	e.orderSeq = append(e.orderSeq, order)
}

// Cancel implements strategy.OrderBook: a no-op on an already-terminal order,
// otherwise transitions it to CANCELLED (spec.md §4.2 cancel_order).
func (e *Engine) Cancel(id uint64) error {
	order, ok := e.orders[id]
	if !ok {
		return errors.Newf(errors.ErrCodeInvalidState, "cancel: unknown order id %d", id)
	}

	if !order.IsTerminal() {
		order.Status = types.OrderStatusCancelled
		order.UpdatedAt = e.simClock.Now()
		e.dispatchOrderUpdate(*order)
	}

	return nil
}

// Lookup implements strategy.OrderBook.
func (e *Engine) Lookup(id uint64) (*types.Order, bool) {
	order, ok := e.orders[id]
	return order, ok
}
