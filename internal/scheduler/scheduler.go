// Package scheduler implements spec.md §4's multi-symbol, time-ordered replay
// scheduler: a bounded k-way merge of per-symbol lazy streams into one monotonic
// timeline, with optional wall-clock pacing.
package scheduler

import (
	"container/heap"
	"time"

	"github.com/kestrel-quant/backtest/internal/feed"
	"github.com/kestrel-quant/backtest/internal/types"
)

// Scheduler merges subscribed symbol streams into a single ordered event sequence.
// At most one event per subscribed symbol is held in memory at a time (the
// "frontier"), bounding heap size to the subscription count regardless of stream
// length.
type Scheduler struct {
	source  feed.Source
	streams []*subscription
	frontier frontierHeap
	speed   float64 // 0 => unpaced

	startTime time.Time // simulated time of the first delivered event
	simStart  time.Time // alias of startTime, kept for pacing readability
	wallStart time.Time
	primed    bool

	loop bool
}

type subscription struct {
	symbol   string
	stream   feed.Stream
	order    int // subscription order, secondary heap key for timestamp ties
	exhausted bool
}

// New creates a Scheduler reading from source. speed follows spec.md §4's
// set_speed semantics: 0 disables pacing, >0 paces simulated time against wall time.
func New(source feed.Source, speed float64, loop bool) *Scheduler {
	return &Scheduler{source: source, speed: speed, loop: loop}
}

// Subscribe opens a lazy stream for symbol and enters it into the frontier.
// Returns ErrCodeSourceNotFound if no backing data exists for symbol.
func (s *Scheduler) Subscribe(symbol string) error {
	stream, err := s.source.Open(symbol)
	if err != nil {
		return err
	}

	sub := &subscription{symbol: symbol, stream: stream, order: len(s.streams)}
	s.streams = append(s.streams, sub)

	return s.advance(sub)
}

// SubscribeAll enumerates every symbol the source knows about and subscribes to each,
// in the source's own enumeration order.
func (s *Scheduler) SubscribeAll() error {
	symbols, err := s.source.Symbols()
	if err != nil {
		return err
	}

	for _, symbol := range symbols {
		if err := s.Subscribe(symbol); err != nil {
			return err
		}
	}

	return nil
}

// SetSpeed changes the pacing multiplier; 0 disables pacing.
func (s *Scheduler) SetSpeed(speed float64) {
	s.speed = speed
}

// Seek repositions every subscribed stream so its next event has timestamp >= ts,
// clearing any queued frontier events (spec.md §4 "Clears any queued events").
func (s *Scheduler) Seek(ts time.Time) error {
	s.frontier = nil
	s.primed = false

	for _, sub := range s.streams {
		if err := sub.stream.Seek(ts); err != nil {
			return err
		}

		sub.exhausted = false

		if err := s.advance(sub); err != nil {
			return err
		}
	}

	return nil
}

// advance pulls the next event from sub's stream and pushes it onto the frontier,
// marking the subscription exhausted at end of stream.
func (s *Scheduler) advance(sub *subscription) error {
	event, ok, err := sub.stream.Next()
	if err != nil {
		return err
	}

	if !ok {
		sub.exhausted = true

		return nil
	}

	heap.Push(&s.frontier, frontierItem{event: event, sub: sub})

	return nil
}

// Next pops the earliest queued event, refills that symbol's frontier slot, paces
// delivery against wall-clock time if speed > 0, and returns the event. ok is false
// once every subscribed stream is exhausted (and loop is disabled).
func (s *Scheduler) Next() (types.Event, bool, error) {
	for {
		if len(s.frontier) == 0 {
			if s.allExhausted() && s.loop && len(s.streams) > 0 {
				if err := s.Seek(s.startTime); err != nil {
					return types.Event{}, false, err
				}

				if len(s.frontier) == 0 {
					return types.Event{}, false, nil
				}

				continue
			}

			return types.Event{}, false, nil
		}

		item := heap.Pop(&s.frontier).(frontierItem)

		if err := s.advance(item.sub); err != nil {
			return types.Event{}, false, err
		}

		s.pace(item.event.Timestamp)

		return item.event, true, nil
	}
}

func (s *Scheduler) allExhausted() bool {
	for _, sub := range s.streams {
		if !sub.exhausted {
			return false
		}
	}

	return len(s.streams) > 0
}

// pace implements spec.md §4's wall-clock pacing: target_real = (sim_elapsed)/speed;
// sleep if wall_elapsed hasn't caught up yet. Pacing never reorders events, only
// delays delivery, so using wall-clock time here does not affect simulation
// determinism.
func (s *Scheduler) pace(simTime time.Time) {
	if !s.primed {
		s.startTime = simTime
		s.simStart = simTime
		s.wallStart = time.Now()
		s.primed = true

		return
	}

	if s.speed <= 0 {
		return
	}

	simElapsed := simTime.Sub(s.simStart)
	targetReal := time.Duration(float64(simElapsed) / s.speed)
	wallElapsed := time.Since(s.wallStart)

	if wallElapsed < targetReal {
		time.Sleep(targetReal - wallElapsed)
	}
}

// Close releases every subscribed stream.
func (s *Scheduler) Close() error {
	var firstErr error

	for _, sub := range s.streams {
		if err := sub.stream.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

// frontierItem is one heap entry: an event paired with the subscription it came from,
// so ties break by subscription order.
type frontierItem struct {
	event types.Event
	sub   *subscription
}

// frontierHeap is a container/heap.Interface ordering by (timestamp, subscription order).
type frontierHeap []frontierItem

func (h frontierHeap) Len() int { return len(h) }

func (h frontierHeap) Less(i, j int) bool {
	ti, tj := h[i].event.Timestamp, h[j].event.Timestamp
	if ti.Equal(tj) {
		return h[i].sub.order < h[j].sub.order
	}

	return ti.Before(tj)
}

func (h frontierHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *frontierHeap) Push(x any) {
	*h = append(*h, x.(frontierItem))
}

func (h *frontierHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]

	return item
}
