package types

import "time"

type OrderType string

const (
	OrderTypeMarket    OrderType = "MARKET"
	OrderTypeLimit     OrderType = "LIMIT"
	OrderTypeStop      OrderType = "STOP"
	OrderTypeStopLimit OrderType = "STOP_LIMIT"
)

type OrderSide string

const (
	OrderSideBuy   OrderSide = "BUY"
	OrderSideSell  OrderSide = "SELL"
	OrderSideShort OrderSide = "SHORT"
	OrderSideCover OrderSide = "COVER"
)

// TimeInForce is an order's lifetime policy.
type TimeInForce string

const (
	TIFDay TimeInForce = "DAY"
	TIFGTC TimeInForce = "GTC"
	TIFIOC TimeInForce = "IOC"
	TIFFOK TimeInForce = "FOK"
)

type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "PENDING"
	OrderStatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderStatusFilled          OrderStatus = "FILLED"
	OrderStatusCancelled       OrderStatus = "CANCELLED"
	OrderStatusRejected        OrderStatus = "REJECTED"
)

// TerminalStatuses never produce further fills (cancellation closure, §8).
var TerminalStatuses = map[OrderStatus]bool{
	OrderStatusFilled:    true,
	OrderStatusCancelled: true,
	OrderStatusRejected:  true,
}

// Order is the mutable record of a strategy's intent; after submission only the
// Simulator and the driver's cancellation paths change it. Once created it is never
// deleted, only appended to the order log.
type Order struct {
	ID             uint64
	Symbol         string
	Type           OrderType
	Side           OrderSide
	Quantity       float64
	LimitPrice     float64
	StopPrice      float64
	TIF            TimeInForce
	Status         OrderStatus
	FilledQty      float64
	RemainingQty   float64
	AvgFillPrice   float64
	RejectReason   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	// stopArmed is true once a STOP/STOP_LIMIT order's trigger condition has fired,
	// converting it to a MARKET (or LIMIT) order for subsequent fill attempts.
	stopArmed bool
}

// IsTerminal reports whether the order can no longer change state or produce fills.
func (o *Order) IsTerminal() bool {
	return TerminalStatuses[o.Status]
}

// IsArmed reports whether a STOP/STOP_LIMIT order has crossed its trigger price.
func (o *Order) IsArmed() bool {
	return o.stopArmed
}

// Arm converts a stop order into its post-trigger executable form.
func (o *Order) Arm() {
	o.stopArmed = true
}

// Sign reports the direction a fill on this side moves a position's signed quantity:
// +1 for BUY/COVER (adds), -1 for SELL/SHORT (subtracts).
func (s OrderSide) Sign() float64 {
	switch s {
	case OrderSideBuy, OrderSideCover:
		return 1
	default:
		return -1
	}
}
