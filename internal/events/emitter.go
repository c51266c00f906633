package events

import (
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// sendTimeout is how long Emit waits on a full buffer before dropping.
const sendTimeout = 100 * time.Millisecond

// Emitter is a Sink backed by a buffered channel.
// Subscribers (CLI output, journals) range over Events.
type Emitter struct {
	events       chan Event
	droppedCount atomic.Uint64

	mu     sync.RWMutex
	closed bool
}

// NewEmitter creates a new Emitter with the given buffer size.
func NewEmitter(bufferSize int) *Emitter {
	if bufferSize < 0 {
		bufferSize = 0
	}
	return &Emitter{
		events: make(chan Event, bufferSize),
	}
}

// Emit sends an event to the events channel.
// If the channel is full, it waits briefly for the receiver before dropping
// the event. Emitting after Close is a no-op.
func (e *Emitter) Emit(event Event) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return
	}

	event = Stamp(event)

	select {
	case e.events <- event:
		return
	default:
	}

	timer := time.NewTimer(sendTimeout)
	defer timer.Stop()

	select {
	case e.events <- event:
	case <-timer.C:
		count := e.droppedCount.Add(1)
		if count%10 == 1 {
			log.Printf("[events] WARNING: event channel full, dropped event (total dropped: %d): type=%s", count, event.Type)
		}
	}
}

// DroppedCount returns the total number of events that have been dropped.
func (e *Emitter) DroppedCount() uint64 {
	return e.droppedCount.Load()
}

// Events returns a read-only channel of events.
func (e *Emitter) Events() <-chan Event {
	return e.events
}

// Close closes the events channel. Safe to call more than once.
func (e *Emitter) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	close(e.events)
}
