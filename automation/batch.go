package automation

import (
	"sort"
	"sync"

	"github.com/rustyguts/bken-engine/handle"
)

// ScheduledEvent fires Callback once audio time reaches Time, as part of a
// Batch (spec §4.3, §4.11: event kind "UserAutomation").
type ScheduledEvent struct {
	Time     float64
	Target   handle.Handle
	Payload  any
	Callback func(target handle.Handle, payload any)
}

// PointWrite is one (object, property, point) tuple within a Batch (spec
// §4.3: "a batch of (object, property, point) tuples").
type PointWrite struct {
	Target   handle.Handle
	Property PropertyID
	Point    Point
}

// Batch collects property writes and scheduled events so a whole envelope
// can be applied to the audio-thread state at one instant (spec §4.3:
// "atomically execute it on the audio thread so a whole envelope is
// applied at one instant of audio time").
type Batch struct {
	mu     sync.Mutex
	writes []PointWrite
	events []ScheduledEvent
}

// NewBatch returns an empty batch.
func NewBatch() *Batch {
	return &Batch{}
}

// AddPoint appends a property write to the batch. Safe to call from any
// client thread while the batch is being built.
func (b *Batch) AddPoint(w PointWrite) {
	b.mu.Lock()
	b.writes = append(b.writes, w)
	b.mu.Unlock()
}

// AddEvent appends a scheduled event to the batch.
func (b *Batch) AddEvent(e ScheduledEvent) {
	b.mu.Lock()
	b.events = append(b.events, e)
	b.mu.Unlock()
}

// Apply installs every point write into the timeline Lookup returns for
// its (target, property) pair, and every scheduled event into sched. Must
// be called on the audio thread; it is the atomic instant at which this
// batch takes effect (spec §4.3).
func (b *Batch) Apply(lookup func(target handle.Handle, prop PropertyID) *Timeline, sched *Scheduler) {
	b.mu.Lock()
	writes := append([]PointWrite(nil), b.writes...)
	events := append([]ScheduledEvent(nil), b.events...)
	b.mu.Unlock()

	for _, w := range writes {
		tl := lookup(w.Target, w.Property)
		if tl == nil {
			continue
		}
		tl.AddPoint(w.Point)
	}
	for _, e := range events {
		sched.Schedule(e)
	}
}

// Scheduler holds pending ScheduledEvents and fires the ones whose time has
// come as the context's audio-rate clock advances (spec §4.11: event kind
// "UserAutomation").
type Scheduler struct {
	mu      sync.Mutex
	pending []ScheduledEvent
}

// NewScheduler returns an empty Scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Schedule adds e to the pending set, keeping it sorted by time.
func (s *Scheduler) Schedule(e ScheduledEvent) {
	s.mu.Lock()
	idx := sort.Search(len(s.pending), func(i int) bool { return s.pending[i].Time > e.Time })
	s.pending = append(s.pending, ScheduledEvent{})
	copy(s.pending[idx+1:], s.pending[idx:])
	s.pending[idx] = e
	s.mu.Unlock()
}

// Fire pops and invokes every event whose Time has been reached by t, in
// time order. alive is consulted before invoking a callback so an event
// targeting a handle that has since died is silently dropped, matching the
// events-out queue's liveness check (spec §4.11).
func (s *Scheduler) Fire(t float64, alive func(handle.Handle) bool) {
	s.mu.Lock()
	due := 0
	for due < len(s.pending) && s.pending[due].Time <= t {
		due++
	}
	ready := append([]ScheduledEvent(nil), s.pending[:due]...)
	s.pending = s.pending[due:]
	s.mu.Unlock()

	for _, e := range ready {
		if alive != nil && e.Target != 0 && !alive(e.Target) {
			continue
		}
		if e.Callback != nil {
			e.Callback(e.Target, e.Payload)
		}
	}
}

// Pending reports how many events are still waiting to fire (diagnostics).
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
