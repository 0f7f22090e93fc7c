package feed

import (
	"sort"
	"sync"
	"time"

	"github.com/kestrel-quant/backtest/internal/types"
)

// InMemorySource is a programmatically populated Source, grounded on the teacher's
// InMemoryIndexedDataSource but with spec.md §5's writer-exclusive/reader-concurrent
// locking instead of a plain mutex. Puts merge-sort-dedup by timestamp, last write wins
// on a tie.
type InMemorySource struct {
	mu   sync.RWMutex
	bars map[string][]types.Bar
}

// NewInMemorySource creates an empty InMemorySource.
func NewInMemorySource() *InMemorySource {
	return &InMemorySource{bars: make(map[string][]types.Bar)}
}

// Put inserts or overwrites bars for their symbols, keeping each symbol's slice sorted
// and free of timestamp duplicates.
func (s *InMemorySource) Put(bars ...types.Bar) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, bar := range bars {
		s.putLocked(bar)
	}
}

func (s *InMemorySource) putLocked(bar types.Bar) {
	existing := s.bars[bar.Symbol]

	idx := sort.Search(len(existing), func(i int) bool {
		return !existing[i].Timestamp.Before(bar.Timestamp)
	})

	switch {
	case idx < len(existing) && existing[idx].Timestamp.Equal(bar.Timestamp):
		existing[idx] = bar // last write wins on a timestamp tie
	case idx == len(existing):
		existing = append(existing, bar)
	default:
		existing = append(existing, types.Bar{})
		copy(existing[idx+1:], existing[idx:])
		existing[idx] = bar
	}

	s.bars[bar.Symbol] = existing
}

func (s *InMemorySource) Symbols() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	symbols := make([]string, 0, len(s.bars))
	for symbol := range s.bars {
		symbols = append(symbols, symbol)
	}

	sort.Strings(symbols)

	return symbols, nil
}

func (s *InMemorySource) Open(symbol string) (Stream, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bars, ok := s.bars[symbol]
	if !ok {
		return nil, errSourceNotFound(symbol)
	}

	// Snapshot under the read lock so later concurrent Puts never mutate a stream
	// already handed out, per spec.md §5's reader-concurrent guarantee.
	snapshot := make([]types.Bar, len(bars))
	copy(snapshot, bars)

	return &memoryStream{bars: snapshot}, nil
}

type memoryStream struct {
	bars []types.Bar
	pos  int
	seq  uint64
}

func (m *memoryStream) Next() (types.Event, bool, error) {
	if m.pos >= len(m.bars) {
		return types.Event{}, false, nil
	}

	bar := m.bars[m.pos]
	m.pos++
	m.seq++

	return types.NewBarEvent(bar, m.seq), true, nil
}

func (m *memoryStream) Seek(t time.Time) error {
	m.pos = sort.Search(len(m.bars), func(i int) bool {
		return !m.bars[i].Timestamp.Before(t)
	})

	return nil
}

func (m *memoryStream) Close() error {
	return nil
}
