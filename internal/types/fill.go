package types

import "time"

// Fill is the immutable realization of an order, in whole or in part, at a specific
// price and quantity. Fills are never mutated once emitted by the Execution Simulator.
type Fill struct {
	ID         uint64
	OrderID    uint64
	Symbol     string
	Side       OrderSide
	Quantity   float64
	Price      float64
	Commission float64
	Slippage   float64
	Timestamp  time.Time
}

// Notional returns the gross trade value before commission.
func (f Fill) Notional() float64 {
	return f.Quantity * f.Price
}
