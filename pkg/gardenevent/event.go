// Package gardenevent is the Solver's task-state-transition event bus
// (spec.md §4.6 "Emitted events", §5 "a bounded channel; a slow or absent
// subscriber must never stall the solve — events are dropped with a
// counter increment rather than blocking").
package gardenevent

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/garden-io/garden-sub017/pkg/schema"
)

// Kind names the event categories the Solver emits.
type Kind string

const (
	TaskStarted   Kind = "taskStarted"
	TaskCompleted Kind = "taskCompleted"
	TaskFailed    Kind = "taskFailed"
	TaskCancelled Kind = "taskCancelled"
)

// Event is one task-state transition.
type Event struct {
	Kind      Kind
	TaskKind  schema.TaskKind
	ActionRef schema.ActionRef
	At        time.Time
	Error     error
}

// Bus is a bounded, non-blocking fan-out of Events to any number of
// subscribers. Publish never blocks: a subscriber whose channel is full
// simply misses the event, and DroppedCount increments so callers can
// surface "N events dropped" in a summary.
type Bus struct {
	mu       sync.RWMutex
	subs     map[int]chan Event
	nextID   int
	capacity int
	dropped  atomic.Int64
}

// NewBus returns a Bus whose per-subscriber channel holds capacity events
// before starting to drop.
func NewBus(capacity int) *Bus {
	if capacity <= 0 {
		capacity = 256
	}
	return &Bus{subs: make(map[int]chan Event), capacity: capacity}
}

// Subscribe registers a new receiver and returns its channel plus an
// unsubscribe function.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	ch := make(chan Event, b.capacity)
	b.subs[id] = ch
	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(c)
		}
	}
}

// Publish fans ev out to every current subscriber, dropping it for any
// subscriber whose buffer is full.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			b.dropped.Add(1)
		}
	}
}

// DroppedCount returns the number of events dropped so far due to a full
// subscriber buffer.
func (b *Bus) DroppedCount() int64 {
	return b.dropped.Load()
}
