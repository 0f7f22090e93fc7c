// Package strategy defines the capability surface a strategy implements and the
// narrow capability surface (Context) it is given back, per spec.md §4.2/§9's
// "capability set with optional default no-op handlers" design.
package strategy

import (
	"time"

	"github.com/moznion/go-optional"

	"github.com/kestrel-quant/backtest/internal/accountant"
	"github.com/kestrel-quant/backtest/internal/clock"
	"github.com/kestrel-quant/backtest/internal/marker"
	"github.com/kestrel-quant/backtest/internal/types"
	"github.com/kestrel-quant/backtest/pkg/errors"
)

// Initializer, BarHandler, TickHandler, OrderUpdateHandler, and FillHandler are the
// optional capabilities a strategy value may implement. The driver type-asserts for
// each one instead of requiring a single fat interface, so a strategy that only cares
// about bars implements just BarHandler.
type Initializer interface {
	OnInit(ctx *Context) error
}

type BarHandler interface {
	OnBar(ctx *Context, bar types.Bar) error
}

type TickHandler interface {
	OnTick(ctx *Context, tick types.Tick) error
}

type OrderUpdateHandler interface {
	OnOrderUpdate(ctx *Context, order types.Order) error
}

type FillHandler interface {
	OnFill(ctx *Context, fill types.Fill) error
}

// Named is an optional capability letting a strategy report a display name for logs
// and results.
type Named interface {
	Name() string
}

// Versioned is an optional capability letting a strategy declare the engine version
// range it was built against (e.g. ">= 1.0.0, < 2.0.0"), checked with
// Masterminds/semver/v3 at registration time. A mismatch is advisory only (spec.md
// §4.9): the strategy is still loaded, a warning is logged.
type Versioned interface {
	EngineVersion() string
}

// RiskManager is an optional pre-submit hook layered above the Context's bare
// positive-quantity assertion. Returning an error rejects the order (RiskRejected).
type RiskManager interface {
	Approve(order *types.Order, portfolio types.Portfolio) error
}

// OrderBook is the driver-owned collaborator Context submits and cancels orders
// through; Lookup returns a submitted order by ID.
type OrderBook interface {
	Submit(order *types.Order)
	Cancel(id uint64) error
	Lookup(id uint64) (*types.Order, bool)
}

// Context is the narrow capability surface spec.md §4.2 grants a strategy during an
// event callback: order intake and read-only account introspection. It holds a
// non-owning back-reference to its collaborators; strategies never construct one
// directly, the driver does.
type Context struct {
	accountant *accountant.Accountant
	orderIDs   *clock.IDGenerator
	orders     OrderBook
	risk       RiskManager
	marker     marker.Marker
	now        time.Time
	active     bool
}

// New creates a Context bound to the given collaborators. risk may be nil.
func New(acc *accountant.Accountant, orderIDs *clock.IDGenerator, orders OrderBook, risk RiskManager) *Context {
	return &Context{accountant: acc, orderIDs: orderIDs, orders: orders, risk: risk}
}

// Invoke runs fn with the context marked active, so Buy/Sell/CancelOrder are allowed
// only for the duration of a genuine callback dispatch (spec.md §4.2 "Orders placed
// outside an event callback are disallowed").
func (c *Context) Invoke(at time.Time, fn func(*Context) error) error {
	c.now = at
	c.active = true

	defer func() { c.active = false }()

	return fn(c)
}

// Buy submits a buy order: price=0 means MARKET, else LIMIT.
func (c *Context) Buy(symbol string, qty, price float64) (uint64, error) {
	return c.submit(symbol, types.OrderSideBuy, qty, price)
}

// Sell submits a sell order: price=0 means MARKET, else LIMIT.
func (c *Context) Sell(symbol string, qty, price float64) (uint64, error) {
	return c.submit(symbol, types.OrderSideSell, qty, price)
}

func (c *Context) submit(symbol string, side types.OrderSide, qty, price float64) (uint64, error) {
	if !c.active {
		return 0, errors.New(errors.ErrCodeInvalidState, "orders may only be submitted inside an event callback")
	}

	if qty <= 0 {
		return 0, errors.New(errors.ErrCodeInvalidQuantity, "order quantity must be > 0")
	}

	orderType := types.OrderTypeMarket
	if price != 0 {
		orderType = types.OrderTypeLimit
	}

	order := &types.Order{
		ID:           c.orderIDs.Next(),
		Symbol:       symbol,
		Type:         orderType,
		Side:         side,
		Quantity:     qty,
		LimitPrice:   price,
		RemainingQty: qty,
		TIF:          types.TIFDay,
		Status:       types.OrderStatusPending,
		CreatedAt:    c.now,
		UpdatedAt:    c.now,
	}

	if c.risk != nil {
		if err := c.risk.Approve(order, c.accountant.Snapshot()); err != nil {
			order.Status = types.OrderStatusRejected
			order.RejectReason = err.Error()
			c.orders.Submit(order)

			return order.ID, errors.Wrap(errors.ErrCodeRiskRejected, "risk manager rejected order", err)
		}
	}

	c.orders.Submit(order)

	return order.ID, nil
}

// CancelOrder is a no-op if the order is already terminal, otherwise transitions it
// to CANCELLED.
func (c *Context) CancelOrder(id uint64) error {
	return c.orders.Cancel(id)
}

// GetPosition is a read-only lookup returning None if the symbol was never traded.
func (c *Context) GetPosition(symbol string) optional.Option[types.Position] {
	pos, ok := c.accountant.GetPosition(symbol)
	if !ok {
		return optional.None[types.Position]()
	}

	return optional.Some(pos)
}

// GetPortfolio returns a snapshot-style read of the whole portfolio.
func (c *Context) GetPortfolio() types.Portfolio {
	return c.accountant.Snapshot()
}

// GetCash returns the current cash balance.
func (c *Context) GetCash() float64 {
	return c.accountant.Portfolio().Cash
}

// SetMarker attaches the observer a strategy's Mark calls are recorded through. Nil
// is valid and makes Mark a no-op.
func (c *Context) SetMarker(m marker.Marker) {
	c.marker = m
}

// Mark records a point-in-time annotation at the callback's current simulated time.
// It never drives execution and is a no-op if no marker was attached.
func (c *Context) Mark(m types.Mark) error {
	if c.marker == nil {
		return nil
	}

	m.Timestamp = c.now

	return c.marker.Mark(m)
}
