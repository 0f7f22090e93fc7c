// Package marker is the optional observer a strategy uses to annotate its own
// decisions for later audit/visualization (spec.md §3 Signal/Mark; grounded on the
// teacher's internal/marker.Marker interface). It never drives execution.
package marker

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/kestrel-quant/backtest/internal/types"
)

// Marker records point-in-time annotations keyed to a bar/tick and an optional Signal.
type Marker interface {
	Mark(mark types.Mark) error
	Marks() ([]types.Mark, error)
}

// InMemoryMarker is the backtest-run implementation: marks accumulate in a
// mutex-guarded slice and are returned in timestamp order, grounded on the teacher's
// BacktestMarker but backed by the run's own process memory instead of a DuckDB table
// since a backtest run's marks never outlive the process that produced them.
type InMemoryMarker struct {
	mu    sync.Mutex
	marks []types.Mark
}

// New creates an empty InMemoryMarker.
func New() *InMemoryMarker {
	return &InMemoryMarker{}
}

// Mark appends a new annotation, assigning it a fresh ID.
func (m *InMemoryMarker) Mark(mark types.Mark) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	mark.ID = uuid.NewString()
	m.marks = append(m.marks, mark)

	return nil
}

// Marks returns every recorded annotation in timestamp order.
func (m *InMemoryMarker) Marks() ([]types.Mark, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]types.Mark, len(m.marks))
	copy(out, m.marks)

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})

	return out, nil
}
