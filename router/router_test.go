package router

import (
	"testing"

	"github.com/rustyguts/bken-engine/config"
	"github.com/rustyguts/bken-engine/handle"
)

func TestConfigureRouteInsertsFadeIn(t *testing.T) {
	r := New()
	route := r.ConfigureRoute(1, 2, 0.8, 4)
	if route.State != StateFadeIn {
		t.Fatalf("new route state = %v, want FadeIn", route.State)
	}
	if g := route.Advance(); g != 0 {
		t.Fatalf("first sample of fade-in should start at 0, got %v", g)
	}
}

func TestConfigureRouteReachesSteadyAfterFadeIn(t *testing.T) {
	r := New()
	route := r.ConfigureRoute(1, 2, 1.0, 2)
	// fade over 2 blocks = 2*config.BlockSize samples; Advance is called
	// once per sample in real use, so drive it enough times to exhaust it.
	for i := 0; i < 2*config.BlockSize; i++ {
		route.Advance()
	}
	if route.State != StateSteady {
		t.Fatalf("route state after fade-in completes = %v, want Steady", route.State)
	}
	if g := route.Advance(); g != 1.0 {
		t.Fatalf("steady route gain = %v, want 1.0", g)
	}
}

func TestConfigureRouteOnExistingTransitionsGainChanged(t *testing.T) {
	r := New()
	route := r.ConfigureRoute(1, 2, 1.0, 1)
	settle(route)
	r.ConfigureRoute(1, 2, 0.5, 1)
	if route.State != StateGainChanged {
		t.Fatalf("reconfigured route state = %v, want GainChanged", route.State)
	}
}

func TestRemoveRouteFadesOutThenDies(t *testing.T) {
	r := New()
	route := r.ConfigureRoute(1, 2, 1.0, 1)
	settle(route)
	r.RemoveRoute(1, 2, 1)
	if route.State != StateFadeOut {
		t.Fatalf("removed route state = %v, want FadeOut", route.State)
	}
	settle(route)
	if route.State != StateDead {
		t.Fatalf("route after fade-out completes = %v, want Dead", route.State)
	}
}

func TestFinishBlockCompactsDeadRoutes(t *testing.T) {
	r := New()
	route := r.ConfigureRoute(1, 2, 1.0, 1)
	settle(route)
	r.RemoveRoute(1, 2, 1)
	settle(route)
	if r.Count() != 1 {
		t.Fatalf("expected dead route still present before compaction, count=%d", r.Count())
	}
	for i := 0; i < 128; i++ {
		r.FinishBlock(128)
	}
	if r.Count() != 0 {
		t.Fatalf("expected dead route compacted away, count=%d", r.Count())
	}
}

func TestRoutesForWriterExcludesDead(t *testing.T) {
	r := New()
	r.ConfigureRoute(1, 2, 1.0, 1)
	r.ConfigureRoute(1, 3, 1.0, 1)
	r.UnregisterReader(3)

	live := r.RoutesForWriter(1)
	if len(live) != 1 || live[0].Key.Reader != handle.Handle(2) {
		t.Fatalf("expected only route to reader 2 to remain live, got %+v", live)
	}
}

func TestRemoveAllRoutesForWriterArmsFadeOut(t *testing.T) {
	r := New()
	r1 := r.ConfigureRoute(1, 2, 1.0, 1)
	r2 := r.ConfigureRoute(1, 3, 1.0, 1)
	r.RemoveAllRoutesForWriter(1, 4)
	if r1.State != StateFadeOut || r2.State != StateFadeOut {
		t.Fatalf("expected both routes to fade out, got %v %v", r1.State, r2.State)
	}
}

func TestSortedInsertOrder(t *testing.T) {
	r := New()
	r.ConfigureRoute(5, 1, 1.0, 1)
	r.ConfigureRoute(1, 1, 1.0, 1)
	r.ConfigureRoute(3, 1, 1.0, 1)
	if len(r.routes) != 3 {
		t.Fatalf("expected 3 routes, got %d", len(r.routes))
	}
	for i := 1; i < len(r.routes); i++ {
		if r.routes[i-1].Key.Writer > r.routes[i].Key.Writer {
			t.Fatalf("routes not sorted by writer: %+v", r.routes)
		}
	}
}

// settle drives a route's fade driver enough samples to guarantee any
// single-block fade armed on it (StartFade's minimum) has completed.
func settle(route *Route) {
	for i := 0; i < config.BlockSize; i++ {
		route.Advance()
	}
}
