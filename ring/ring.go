// Package ring provides the bounded, lock-free queues the engine uses to
// move work between client threads and the audio thread: a multi-producer/
// single-consumer command ring, and a single-producer/single-consumer ring
// for the background decoder thread.
//
// The shape is the ring-with-mask-and-index style used throughout the
// teacher's jitter buffer (client/internal/jitter/jitter.go: ringSize,
// ringMask, a fixed array of slots indexed by sequence & mask), generalized
// from "one slot per sequence number" to "one slot per producer-claimed
// index" and made safe for concurrent producers with a CAS loop instead of
// the jitter buffer's single-writer assumption.
package ring

import "sync/atomic"

// MPSC is a bounded multi-producer/single-consumer ring of type T.
// Capacity must be a power of two.
type MPSC[T any] struct {
	mask    uint64
	slots   []slot[T]
	writeAt atomic.Uint64 // next index to be claimed by a producer
	readAt  atomic.Uint64 // next index the consumer will read
}

type slot[T any] struct {
	seq   atomic.Uint64 // sequence number gating visibility, Disruptor-style
	value T
}

// NewMPSC creates a ring with the given capacity, rounded up to the next
// power of two if necessary.
func NewMPSC[T any](capacity int) *MPSC[T] {
	capacity = nextPow2(capacity)
	r := &MPSC[T]{
		mask:  uint64(capacity - 1),
		slots: make([]slot[T], capacity),
	}
	for i := range r.slots {
		r.slots[i].seq.Store(uint64(i))
	}
	return r
}

// Push claims the next slot and stores value. Returns false if the ring is
// full (the caller's documented fallback per spec §4.2: wake the consumer
// and wait, or drop — Push never blocks itself).
func (r *MPSC[T]) Push(value T) bool {
	for {
		pos := r.writeAt.Load()
		s := &r.slots[pos&r.mask]
		seq := s.seq.Load()
		diff := int64(seq) - int64(pos)
		switch {
		case diff == 0:
			if r.writeAt.CompareAndSwap(pos, pos+1) {
				s.value = value
				s.seq.Store(pos + 1)
				return true
			}
			// Lost the race to another producer; retry.
		case diff < 0:
			// Ring is full: the slot we'd need hasn't been consumed yet.
			return false
		default:
			// Another producer has already advanced writeAt past pos; retry.
		}
	}
}

// Pop removes and returns the next value in FIFO order for a single
// consumer. Returns false if the ring is currently empty.
//
// Only one goroutine (the audio thread) may call Pop; that is the "single
// consumer" half of MPSC and is not enforced here, matching the teacher's
// convention of documenting single-reader ownership rather than policing it
// (client/internal/jitter: "Not safe for concurrent use; the caller ...
// synchronises externally").
func (r *MPSC[T]) Pop() (T, bool) {
	var zero T
	pos := r.readAt.Load()
	s := &r.slots[pos&r.mask]
	seq := s.seq.Load()
	diff := int64(seq) - int64(pos+1)
	if diff != 0 {
		return zero, false
	}
	value := s.value
	s.value = zero
	s.seq.Store(pos + r.mask + 1)
	r.readAt.Store(pos + 1)
	return value, true
}

// Len reports an approximate number of queued items (may be stale under
// concurrent producers; used only for diagnostics/backpressure heuristics).
func (r *MPSC[T]) Len() int {
	w := r.writeAt.Load()
	rd := r.readAt.Load()
	if w < rd {
		return 0
	}
	return int(w - rd)
}

// Cap returns the ring's fixed capacity.
func (r *MPSC[T]) Cap() int { return len(r.slots) }

// SPSC is a bounded single-producer/single-consumer ring. It's simpler and
// cheaper than MPSC and is what the background decode thread uses to publish
// ready blocks to the audio thread (spec §4.7 StreamingGenerator) — directly
// analogous to the teacher's jitter.Buffer ring-of-slots, but with a real
// producer/consumer index pair instead of sequence-number addressing, since
// the decode ring has no notion of "sequence" — it's strictly FIFO.
type SPSC[T any] struct {
	mask  uint64
	slots []T
	set   []atomic.Bool
	head  atomic.Uint64 // consumer position
	tail  atomic.Uint64 // producer position
}

// NewSPSC creates an SPSC ring with the given capacity (rounded up to a
// power of two).
func NewSPSC[T any](capacity int) *SPSC[T] {
	capacity = nextPow2(capacity)
	return &SPSC[T]{
		mask:  uint64(capacity - 1),
		slots: make([]T, capacity),
		set:   make([]atomic.Bool, capacity),
	}
}

// Push stores value if there is room. Returns false when full.
func (r *SPSC[T]) Push(value T) bool {
	tail := r.tail.Load()
	head := r.head.Load()
	if tail-head >= uint64(len(r.slots)) {
		return false
	}
	idx := tail & r.mask
	r.slots[idx] = value
	r.set[idx].Store(true)
	r.tail.Store(tail + 1)
	return true
}

// Pop removes and returns the oldest value. Returns false when empty.
func (r *SPSC[T]) Pop() (T, bool) {
	var zero T
	head := r.head.Load()
	tail := r.tail.Load()
	if head >= tail {
		return zero, false
	}
	idx := head & r.mask
	if !r.set[idx].Load() {
		return zero, false
	}
	value := r.slots[idx]
	r.slots[idx] = zero
	r.set[idx].Store(false)
	r.head.Store(head + 1)
	return value, true
}

// Len reports the number of queued items.
func (r *SPSC[T]) Len() int {
	return int(r.tail.Load() - r.head.Load())
}

// Cap returns the ring's fixed capacity.
func (r *SPSC[T]) Cap() int { return len(r.slots) }

func nextPow2(n int) int {
	if n < 2 {
		return 2
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
