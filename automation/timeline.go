package automation

import (
	"sort"

	"github.com/rustyguts/bken-engine/config"
)

// Interp selects how a timeline holds its value between the previous point
// and the next.
type Interp int

const (
	// InterpNone holds the previous point's value until the next point's
	// time is reached (spec §4.3: "None -> hold previous value").
	InterpNone Interp = iota
	// InterpLinear interpolates linearly, component-wise, between the
	// previous and next point (spec §4.3: "Linear -> linear in all
	// dimensions").
	InterpLinear
)

// Point is one knot in an automation timeline.
type Point struct {
	Time   float64
	Value  Value
	Interp Interp
}

// Timeline drives a single property's value forward as a monotonically
// increasing time cursor advances across a sorted list of points (spec
// §4.3). The zero value is not usable; use NewTimeline.
type Timeline struct {
	points []Point
	cursor int // index of the next point not yet crossed

	started    bool
	reachedEnd bool // true once t has first reached the last point's time
	finished   bool
	current    Value

	consumed int // points advanced past, since the last compaction
}

// NewTimeline returns an empty timeline. Points may be added with AddPoint
// any time before the timeline has finished.
func NewTimeline() *Timeline {
	return &Timeline{}
}

// AddPoint inserts a point in time order. Points must be added with
// non-decreasing time relative to any point already ticked past; this is
// the caller's (the command queue's) responsibility to enforce, matching
// how the engine always appends automation from a single audio-thread
// batch application.
func (tl *Timeline) AddPoint(p Point) {
	p.Value = p.Value.clone()
	idx := sort.Search(len(tl.points), func(i int) bool {
		return tl.points[i].Time > p.Time
	})
	tl.points = append(tl.points, Point{})
	copy(tl.points[idx+1:], tl.points[idx:])
	tl.points[idx] = p
}

// Finished reports whether the timeline has emitted its last point and
// moved on to emitting None (spec §4.3: "After crossing the last point,
// the last point's value is emitted once, then the timeline is finished
// and emits None").
func (tl *Timeline) Finished() bool { return tl.finished }

// Tick advances the timeline to time t and returns the value that should
// be applied at this instant, or (nil, false) if the timeline has nothing
// to say yet (before the first point) or has already finished.
func (tl *Timeline) Tick(t float64) (Value, bool) {
	if tl.finished {
		return nil, false
	}
	if len(tl.points) == 0 {
		return nil, false
	}
	if t < tl.points[0].Time {
		return nil, false
	}

	for tl.cursor < len(tl.points) && t >= tl.points[tl.cursor].Time {
		tl.cursor++
		tl.consumed++
	}

	if tl.cursor >= len(tl.points) {
		// t has reached or passed the last point's time. A tick landing
		// exactly on that time emits the last value as the end of the
		// segment and leaves the timeline open; the first tick past it
		// emits the last value once and finishes, so later ticks emit
		// nothing.
		last := tl.points[len(tl.points)-1]
		tl.current = last.Value.clone()
		if tl.reachedEnd || t > last.Time {
			tl.finished = true
		}
		tl.reachedEnd = true
		tl.started = true
		tl.maybeCompact()
		return tl.current, true
	}

	prev := tl.points[tl.cursor-1]
	next := tl.points[tl.cursor]
	switch next.Interp {
	case InterpLinear:
		span := next.Time - prev.Time
		var frac float64
		if span > 0 {
			frac = (t - prev.Time) / span
		}
		tl.current = lerp(prev.Value, next.Value, frac)
	default: // InterpNone
		tl.current = prev.Value.clone()
	}
	tl.started = true
	tl.maybeCompact()
	return tl.current, true
}

func lerp(a, b Value, frac float64) Value {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	out := make(Value, n)
	for i := 0; i < n; i++ {
		var av, bv float64
		if i < len(a) {
			av = a[i]
		}
		if i < len(b) {
			bv = b[i]
		}
		out[i] = av + (bv-av)*frac
	}
	return out
}

// maybeCompact drops already-consumed points once their count passes the
// compaction threshold, so a long-running session's timeline memory stays
// bounded (spec §4.3 "Copy-back").
func (tl *Timeline) maybeCompact() {
	if tl.cursor < config.AutomationCompactThreshold+1 {
		return
	}
	keepFrom := tl.cursor - 1 // keep the point the cursor currently treats as "previous"
	tl.points = append([]Point(nil), tl.points[keepFrom:]...)
	tl.cursor -= keepFrom
	tl.consumed = 0
}

// Current returns the last value Tick produced, without advancing.
func (tl *Timeline) Current() (Value, bool) {
	if !tl.started && !tl.finished {
		return nil, false
	}
	return tl.current, true
}
