// Package router implements the sorted route table between sources and
// effects, with per-route gain fades driven by the fade package (spec §4.9).
//
// Grounded in the teacher's Room, which keeps a sorted/keyed collection of
// live peers behind a single owner goroutine's exclusive access
// (server/room.go's Room methods, all called only from the connection
// handler that owns the room) — generalized here from "one entry per
// client id" to "one entry per (writer, reader) route key", and from
// immediate add/remove to a fade-driven state machine since routes must
// never produce a discontinuous gain step.
package router

import (
	"sort"

	"github.com/rustyguts/bken-engine/fade"
	"github.com/rustyguts/bken-engine/handle"
)

// State is a route's position in its fade lifecycle (spec §4.9).
type State int

const (
	StateFadeIn State = iota
	StateSteady
	StateGainChanged
	StateFadeOut
	StateDead
)

// Key identifies a route by its writer (source) and reader (effect)
// handles.
type Key struct {
	Writer handle.Handle
	Reader handle.Handle
}

func (k Key) less(o Key) bool {
	if k.Writer != o.Writer {
		return k.Writer < o.Writer
	}
	return k.Reader < o.Reader
}

// Route is one configured writer->reader gain path.
type Route struct {
	Key   Key
	State State
	Gain  *fade.Driver
}

// Router holds the sorted route table and the current block counter used
// to schedule periodic dead-route compaction.
type Router struct {
	routes []*Route
	block  int
}

// New returns an empty Router.
func New() *Router {
	return &Router{}
}

func (r *Router) find(k Key) (int, bool) {
	i := sort.Search(len(r.routes), func(i int) bool { return !r.routes[i].Key.less(k) })
	if i < len(r.routes) && r.routes[i].Key == k {
		return i, true
	}
	return i, false
}

// ConfigureRoute installs or updates a route from writer to reader with the
// given steady-state gain. If the route doesn't exist, it is inserted in
// FadeIn state ramping 0->gain over fadeInBlocks. If it exists and is
// configurable (not FadeOut/Dead), it transitions to GainChanged, crossfading
// its current value to gain over exactly one block (spec §4.9).
func (r *Router) ConfigureRoute(writer, reader handle.Handle, gain float64, fadeInBlocks int) *Route {
	k := Key{Writer: writer, Reader: reader}
	i, found := r.find(k)
	if found {
		route := r.routes[i]
		if route.State == StateFadeOut || route.State == StateDead {
			// A route being torn down is not reconfigurable in place;
			// treat this as a fresh insert once the old one is gone.
			route.State = StateFadeOut
			return route
		}
		route.Gain.StartFade(gain, 1)
		route.State = StateGainChanged
		return route
	}

	d := fade.NewSteady(0)
	d.StartFade(gain, fadeInBlocks)
	route := &Route{Key: k, State: StateFadeIn, Gain: &d}
	r.routes = append(r.routes, nil)
	copy(r.routes[i+1:], r.routes[i:])
	r.routes[i] = route
	return route
}

// RemoveRoute arms a fade-out over fadeOutBlocks blocks, after which the
// route transitions to Dead (and is later compacted out by FinishBlock).
func (r *Router) RemoveRoute(writer, reader handle.Handle, fadeOutBlocks int) {
	k := Key{Writer: writer, Reader: reader}
	i, found := r.find(k)
	if !found {
		return
	}
	route := r.routes[i]
	route.Gain.StartFade(0, fadeOutBlocks)
	route.State = StateFadeOut
}

// RemoveAllRoutesForWriter arms a fade-out for every route whose writer is
// w, used when a source is deleted.
func (r *Router) RemoveAllRoutesForWriter(w handle.Handle, fadeOutBlocks int) {
	for _, route := range r.routes {
		if route.Key.Writer == w && route.State != StateDead {
			route.Gain.StartFade(0, fadeOutBlocks)
			route.State = StateFadeOut
		}
	}
}

// UnregisterReader immediately marks every route pointed at reader Dead,
// used when an effect is destroyed outright (no fade, since the reader no
// longer exists to receive input).
func (r *Router) UnregisterReader(reader handle.Handle) {
	for _, route := range r.routes {
		if route.Key.Reader == reader {
			route.State = StateDead
		}
	}
}

// UnregisterWriter immediately marks every route from writer Dead, used
// when a source is force-destroyed without a graceful fade.
func (r *Router) UnregisterWriter(writer handle.Handle) {
	for _, route := range r.routes {
		if route.Key.Writer == writer {
			route.State = StateDead
		}
	}
}

// RoutesForWriter returns the live routes whose writer is w, in sorted
// reader order, for the source's per-block mixing loop to iterate.
func (r *Router) RoutesForWriter(w handle.Handle) []*Route {
	var out []*Route
	for _, route := range r.routes {
		if route.Key.Writer == w && route.State != StateDead {
			out = append(out, route)
		}
	}
	return out
}

// Advance steps every live route's fade driver by one sample, returning its
// current gain, and transitions FadeIn/GainChanged routes to Steady and
// FadeOut routes to Dead once their fade completes. Called once per sample
// for each route a source writes into that block.
func (route *Route) Advance() float64 {
	gain := route.Gain.Advance()
	if route.Gain.Done() {
		switch route.State {
		case StateFadeIn, StateGainChanged:
			route.State = StateSteady
		case StateFadeOut:
			route.State = StateDead
		}
	}
	return gain
}

// FinishBlock increments the router's internal block counter and, every
// config.FilterBlockCount blocks, compacts Dead routes out of the table
// (spec §4.9).
func (r *Router) FinishBlock(filterBlockCount int) {
	r.block++
	if filterBlockCount <= 0 || r.block%filterBlockCount != 0 {
		return
	}
	live := r.routes[:0]
	for _, route := range r.routes {
		if route.State != StateDead {
			live = append(live, route)
		}
	}
	r.routes = live
}

// Count returns the number of routes currently tracked, including Dead ones
// awaiting compaction (diagnostics/tests).
func (r *Router) Count() int { return len(r.routes) }
