// Package feed generalizes spec.md §6's single CSV collaborator into a small Source
// interface with interchangeable backends, all exposing the same lazy per-symbol
// stream contract the replay scheduler subscribes to.
package feed

import (
	"time"

	"github.com/kestrel-quant/backtest/internal/types"
	"github.com/kestrel-quant/backtest/pkg/errors"
)

// Source enumerates symbols and opens a lazy per-symbol Stream over them.
type Source interface {
	// Symbols lists every symbol with backing data, for subscribe_all.
	Symbols() ([]string, error)
	// Open returns a fresh Stream positioned at the start of symbol's history.
	// Returns ErrCodeSourceNotFound if no backing data exists for symbol.
	Open(symbol string) (Stream, error)
}

// Stream is a single symbol's lazy, ordered event iterator.
type Stream interface {
	// Next returns the next event in timestamp order, or ok=false at end of stream.
	Next() (types.Event, bool, error)
	// Seek repositions the stream so the next Next() call returns an event with
	// timestamp >= t, discarding anything buffered ahead of that point.
	Seek(t time.Time) error
	// Close releases any resources (open files, prepared statements) held by the stream.
	Close() error
}

// LiveQuoteSource is declared for interface symmetry with Source so a future
// transport adapter (e.g. Polygon, Binance) could subscribe the same way a
// historical Source does; spec.md §1 places the network adapter itself out of
// scope, so no concrete implementation of this interface ships here.
type LiveQuoteSource interface {
	SubscribeQuotes(symbols []string) (<-chan types.Event, error)
	Close() error
}

// errSourceNotFound builds the scheduler-facing SourceNotFound error for a missing symbol.
func errSourceNotFound(symbol string) error {
	return errors.Newf(errors.ErrCodeSourceNotFound, "no backing data for symbol %q", symbol)
}
