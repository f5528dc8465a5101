package automation

import (
	"github.com/rustyguts/bken-engine/handle"
	"github.com/rustyguts/bken-engine/ring"
)

// EventKind tags what happened (spec §4.11).
type EventKind int

const (
	EventFinished EventKind = iota
	EventLooped
	EventUserAutomation
)

// Event is one entry in the events-out queue: a kind tagged with the
// handles it refers to, plus an arbitrary payload (spec §4.11: "(event_type,
// source_handle, context_handle, payload) tuples").
type Event struct {
	Kind    EventKind
	Source  handle.Handle
	Context handle.Handle
	Payload any
}

// EventQueue is the lock-free queue of outgoing events a client drains by
// polling. It wraps a ring.MPSC (the audio thread is the single producer
// here, but MPSC's CAS-based Push costs nothing extra over an SPSC and the
// ring package does not expose a "single producer, multi consumer"
// variant) and adds the liveness check spec §4.11 requires: an event whose
// referenced handles have died between being queued and being drained is
// silently dropped rather than handed to client code.
type EventQueue struct {
	ring *ring.MPSC[Event]
}

// NewEventQueue creates an EventQueue with the given capacity (rounded up
// to a power of two by the underlying ring).
func NewEventQueue(capacity int) *EventQueue {
	return &EventQueue{ring: ring.NewMPSC[Event](capacity)}
}

// Push enqueues e. Returns false if the queue is full, in which case the
// event is dropped (spec §4.2's overflow policy applies equally here: size
// the queue so this effectively never happens).
func (q *EventQueue) Push(e Event) bool {
	return q.ring.Push(e)
}

// Poll dequeues and returns the next event whose referenced handles are
// all still alive per alive, silently discarding any dead ones in between.
// Returns (Event{}, false) once the queue is empty.
func (q *EventQueue) Poll(alive func(handle.Handle) bool) (Event, bool) {
	for {
		e, ok := q.ring.Pop()
		if !ok {
			return Event{}, false
		}
		if alive == nil {
			return e, true
		}
		if e.Source != 0 && !alive(e.Source) {
			continue
		}
		if e.Context != 0 && !alive(e.Context) {
			continue
		}
		return e, true
	}
}
