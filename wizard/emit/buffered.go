package emit

import "sync"

// BufferedEmitter implements Emitter by retaining recent events in memory.
//
// The buffer is bounded: once max capacity is reached, the oldest events
// are dropped. An optional downstream emitter receives every event as it
// arrives, so buffering can be stacked on top of logging or tracing.
//
// Use cases:
//   - Diagnostics: inspect the event trail after a recovery sequence
//   - Tests: assert that desync/correction/fallback events were emitted
type BufferedEmitter struct {
	mu         sync.Mutex
	events     []Event
	max        int
	downstream Emitter
}

// DefaultBufferSize is the event capacity used when none is specified.
const DefaultBufferSize = 256

// NewBufferedEmitter creates a BufferedEmitter with the default capacity.
func NewBufferedEmitter() *BufferedEmitter {
	return NewBufferedEmitterSize(DefaultBufferSize)
}

// NewBufferedEmitterSize creates a BufferedEmitter retaining up to max events.
// A max of <= 0 falls back to DefaultBufferSize.
func NewBufferedEmitterSize(max int) *BufferedEmitter {
	if max <= 0 {
		max = DefaultBufferSize
	}
	return &BufferedEmitter{
		events: make([]Event, 0, max),
		max:    max,
	}
}

// Chain sets a downstream emitter that receives every event in addition to
// being buffered. Returns the receiver for call chaining.
func (b *BufferedEmitter) Chain(downstream Emitter) *BufferedEmitter {
	b.mu.Lock()
	b.downstream = downstream
	b.mu.Unlock()
	return b
}

// Emit stores the event, evicting the oldest when at capacity.
func (b *BufferedEmitter) Emit(event Event) {
	b.mu.Lock()
	if len(b.events) >= b.max {
		// Drop oldest to make room.
		copy(b.events, b.events[1:])
		b.events = b.events[:len(b.events)-1]
	}
	b.events = append(b.events, event)
	downstream := b.downstream
	b.mu.Unlock()

	if downstream != nil {
		downstream.Emit(event)
	}
}

// Events returns a copy of the buffered events in arrival order.
func (b *BufferedEmitter) Events() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Event, len(b.events))
	copy(out, b.events)
	return out
}

// Reset discards all buffered events.
func (b *BufferedEmitter) Reset() {
	b.mu.Lock()
	b.events = b.events[:0]
	b.mu.Unlock()
}
