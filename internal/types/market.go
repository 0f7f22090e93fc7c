package types

import (
	"time"

	"github.com/kestrel-quant/backtest/pkg/errors"
)

// Bar is an OHLCV summary of trading over a fixed period.
type Bar struct {
	Symbol    string    `yaml:"symbol" json:"symbol" csv:"symbol"`
	Timestamp time.Time `yaml:"timestamp" json:"timestamp" csv:"timestamp"`
	Open      float64   `yaml:"open" json:"open" csv:"open"`
	High      float64   `yaml:"high" json:"high" csv:"high"`
	Low       float64   `yaml:"low" json:"low" csv:"low"`
	Close     float64   `yaml:"close" json:"close" csv:"close"`
	Volume    float64   `yaml:"volume" json:"volume" csv:"volume"`
	Period    time.Duration `yaml:"period" json:"period" csv:"period"`
}

// Validate checks the Bar's §3 invariants: low <= open,close <= high; volume >= 0; period > 0.
func (b Bar) Validate() error {
	if b.Low > b.Open || b.Open > b.High || b.Low > b.Close || b.Close > b.High {
		return errors.New(errors.ErrCodeInvalidBar, "open/close out of [low, high] range")
	}

	if b.Volume < 0 {
		return errors.New(errors.ErrCodeInvalidBar, "volume must be >= 0")
	}

	if b.Period <= 0 {
		return errors.New(errors.ErrCodeInvalidBar, "period must be > 0")
	}

	return nil
}

// Tick is an immutable top-of-book snapshot for a symbol.
type Tick struct {
	Symbol    string    `yaml:"symbol" json:"symbol"`
	Timestamp time.Time `yaml:"timestamp" json:"timestamp"`
	Last      float64   `yaml:"last" json:"last"`
	Bid       float64   `yaml:"bid" json:"bid"`
	Ask       float64   `yaml:"ask" json:"ask"`
	BidSize   float64   `yaml:"bid_size" json:"bid_size"`
	AskSize   float64   `yaml:"ask_size" json:"ask_size"`
}

// Validate checks the Tick's §3 invariant: bid <= ask when both are positive.
func (t Tick) Validate() error {
	if t.Bid > 0 && t.Ask > 0 && t.Bid > t.Ask {
		return errors.New(errors.ErrCodeInvalidTick, "bid must be <= ask")
	}

	return nil
}

// EventKind tags the variant carried by a scheduler Event (§9 "heterogeneous event queue").
type EventKind string

const (
	EventKindBar EventKind = "BAR"
	EventKindTick EventKind = "TICK"
)

// Event is the tagged union the Replay Scheduler merges across symbols.
// Only the Timestamp field participates in ordering.
type Event struct {
	Kind      EventKind
	Timestamp time.Time
	Symbol    string
	Bar       Bar
	Tick      Tick
	// seq is the event's 1-based position within its own symbol's stream. The
	// scheduler does not read it; it breaks cross-symbol timestamp ties by
	// subscription order instead.
	seq uint64
}

func (e Event) Seq() uint64 { return e.seq }

// NewBarEvent and NewTickEvent stamp the event's per-stream sequence number.
func NewBarEvent(bar Bar, seq uint64) Event {
	return Event{Kind: EventKindBar, Timestamp: bar.Timestamp, Symbol: bar.Symbol, Bar: bar, seq: seq}
}

func NewTickEvent(tick Tick, seq uint64) Event {
	return Event{Kind: EventKindTick, Timestamp: tick.Timestamp, Symbol: tick.Symbol, Tick: tick, seq: seq}
}

