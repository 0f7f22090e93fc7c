package types

import "time"

// SignalType is a strategy-authored annotation of the intent behind an order.
type SignalType string

const (
	SignalTypeBuy           SignalType = "buy"
	SignalTypeSell          SignalType = "sell"
	SignalTypeClosePosition SignalType = "close_position"
	SignalTypeNoAction      SignalType = "no_action"
)

// Signal is purely informational: it never drives execution and is only carried on a
// Mark for the marker.
type Signal struct {
	Time   time.Time
	Type   SignalType
	Name   string
	Reason string
	Symbol string
}

// MarkShape and MarkColor style a point-in-time annotation for later visualization.
type MarkShape string

const (
	MarkShapeCircle   MarkShape = "circle"
	MarkShapeSquare   MarkShape = "square"
	MarkShapeTriangle MarkShape = "triangle"
)

type MarkColor string

const (
	MarkColorGreen MarkColor = "green"
	MarkColorRed   MarkColor = "red"
	MarkColorBlue  MarkColor = "blue"
)

// Mark records why a strategy acted at a given bar/tick, for audit and visualization.
// ID is assigned by the recording Marker, not the caller.
type Mark struct {
	ID        string
	Timestamp time.Time
	Symbol    string
	Color     MarkColor
	Shape     MarkShape
	Title     string
	Message   string
	Signal    *Signal
}
