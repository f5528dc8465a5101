package automation

import (
	"testing"

	"github.com/rustyguts/bken-engine/handle"
)

func TestBagSetAcquireClearsChangedBit(t *testing.T) {
	b := NewBag()
	b.Set(3, Value{1.5})

	if !b.Changed(3) {
		t.Fatal("expected property 3 to be marked changed after Set")
	}
	v, ok := b.Acquire(3)
	if !ok || v[0] != 1.5 {
		t.Fatalf("Acquire returned %v, %v; want 1.5, true", v, ok)
	}
	if b.Changed(3) {
		t.Fatal("expected Acquire to clear the changed bit")
	}
	// Get should still see the value after Acquire cleared the bit.
	v2, ok := b.Get(3)
	if !ok || v2[0] != 1.5 {
		t.Fatalf("Get after Acquire = %v, %v; want 1.5, true", v2, ok)
	}
}

func TestTimelineHoldsBeforeFirstPoint(t *testing.T) {
	tl := NewTimeline()
	tl.AddPoint(Point{Time: 1.0, Value: Value{5}, Interp: InterpLinear})

	if _, ok := tl.Tick(0.5); ok {
		t.Fatal("expected no value before the first point's time")
	}
}

func TestTimelineLinearInterpolatesBetweenPoints(t *testing.T) {
	tl := NewTimeline()
	tl.AddPoint(Point{Time: 0, Value: Value{0}, Interp: InterpLinear})
	tl.AddPoint(Point{Time: 1, Value: Value{10}, Interp: InterpLinear})

	v, ok := tl.Tick(0.5)
	if !ok {
		t.Fatal("expected a value at t=0.5")
	}
	if v[0] < 4.9 || v[0] > 5.1 {
		t.Fatalf("expected the midpoint to be ~5, got %v", v[0])
	}
}

func TestTimelineNoneHoldsPreviousValue(t *testing.T) {
	tl := NewTimeline()
	tl.AddPoint(Point{Time: 0, Value: Value{1}, Interp: InterpNone})
	tl.AddPoint(Point{Time: 1, Value: Value{99}, Interp: InterpNone})

	v, ok := tl.Tick(0.9)
	if !ok || v[0] != 1 {
		t.Fatalf("expected None interpolation to hold the previous value, got %v, %v", v, ok)
	}
}

func TestTimelineNoneHoldIsDecidedByTheUpcomingPoint(t *testing.T) {
	tl := NewTimeline()
	tl.AddPoint(Point{Time: 0, Value: Value{1.0}, Interp: InterpLinear})
	tl.AddPoint(Point{Time: 0.01, Value: Value{0.5}, Interp: InterpLinear})
	tl.AddPoint(Point{Time: 0.02, Value: Value{0.1}, Interp: InterpNone})
	tl.AddPoint(Point{Time: 0.05, Value: Value{0.0}, Interp: InterpLinear})

	// The segment from t=0.01 to t=0.02 is held flat because the *upcoming*
	// point (at 0.02) carries InterpNone, even though the point we're
	// leaving (at 0.01) is itself Linear.
	v, ok := tl.Tick(0.015)
	if !ok || v[0] != 0.5 {
		t.Fatalf("expected the hold segment to freeze at the previous point's value 0.5, got %v, %v", v, ok)
	}
	v, ok = tl.Tick(0.019)
	if !ok || v[0] != 0.5 {
		t.Fatalf("expected the hold segment to still read 0.5 just before the None point, got %v, %v", v, ok)
	}

	// Past 0.02, the next point (at 0.05) is Linear again, so interpolation
	// resumes from 0.1 down toward 0.0.
	v, ok = tl.Tick(0.035)
	if !ok || v[0] >= 0.1 || v[0] <= 0.0 {
		t.Fatalf("expected interpolation to resume between 0.1 and 0.0, got %v, %v", v, ok)
	}
}

func TestTimelineFinishesAfterLastPoint(t *testing.T) {
	tl := NewTimeline()
	tl.AddPoint(Point{Time: 0, Value: Value{1}, Interp: InterpLinear})
	tl.AddPoint(Point{Time: 1, Value: Value{2}, Interp: InterpLinear})

	v, ok := tl.Tick(1.0)
	if !ok || v[0] != 2 {
		t.Fatalf("expected the last point's value at its own time, got %v, %v", v, ok)
	}
	if tl.Finished() {
		t.Fatal("should not finish until ticked past the last point")
	}

	v, ok = tl.Tick(5.0)
	if !ok || v[0] != 2 {
		t.Fatalf("expected the last point's value to be emitted once more past the end, got %v, %v", v, ok)
	}
	if !tl.Finished() {
		t.Fatal("expected the timeline to be finished after ticking past the last point")
	}

	if _, ok := tl.Tick(10.0); ok {
		t.Fatal("a finished timeline should emit nothing further")
	}
}

func TestTimelineAddPointKeepsTimeOrder(t *testing.T) {
	tl := NewTimeline()
	tl.AddPoint(Point{Time: 2, Value: Value{2}})
	tl.AddPoint(Point{Time: 0, Value: Value{0}})
	tl.AddPoint(Point{Time: 1, Value: Value{1}})

	for i := 1; i < len(tl.points); i++ {
		if tl.points[i].Time < tl.points[i-1].Time {
			t.Fatalf("points out of order: %v", tl.points)
		}
	}
}

func TestBatchAppliesWritesAndEvents(t *testing.T) {
	timelines := map[PropertyID]*Timeline{}
	lookup := func(target handle.Handle, prop PropertyID) *Timeline {
		if _, ok := timelines[prop]; !ok {
			timelines[prop] = NewTimeline()
		}
		return timelines[prop]
	}
	sched := NewScheduler()

	batch := NewBatch()
	batch.AddPoint(PointWrite{Target: 1, Property: 0, Point: Point{Time: 0, Value: Value{7}}})

	fired := false
	batch.AddEvent(ScheduledEvent{Time: 0.5, Target: 1, Callback: func(target handle.Handle, payload any) {
		fired = true
	}})

	batch.Apply(lookup, sched)

	v, ok := timelines[0].Tick(0)
	if !ok || v[0] != 7 {
		t.Fatalf("expected the batched point write to land on the timeline, got %v, %v", v, ok)
	}

	sched.Fire(1.0, func(handle.Handle) bool { return true })
	if !fired {
		t.Fatal("expected the batched event to fire")
	}
}

func TestSchedulerDropsEventForDeadHandle(t *testing.T) {
	sched := NewScheduler()
	fired := false
	sched.Schedule(ScheduledEvent{Time: 0, Target: 42, Callback: func(handle.Handle, any) { fired = true }})

	sched.Fire(1, func(h handle.Handle) bool { return false })
	if fired {
		t.Fatal("expected the event targeting a dead handle to be dropped")
	}
}

func TestEventQueuePushPollRoundtrip(t *testing.T) {
	q := NewEventQueue(8)
	q.Push(Event{Kind: EventFinished, Source: 1})

	e, ok := q.Poll(func(handle.Handle) bool { return true })
	if !ok || e.Kind != EventFinished || e.Source != 1 {
		t.Fatalf("unexpected event from Poll: %+v, %v", e, ok)
	}
	if _, ok := q.Poll(nil); ok {
		t.Fatal("expected the queue to be empty after draining the one event")
	}
}

func TestEventQueueDropsEventsForDeadHandles(t *testing.T) {
	q := NewEventQueue(8)
	q.Push(Event{Kind: EventFinished, Source: 1})
	q.Push(Event{Kind: EventFinished, Source: 2})

	e, ok := q.Poll(func(h handle.Handle) bool { return h != 1 })
	if !ok || e.Source != 2 {
		t.Fatalf("expected the event for the dead handle to be skipped, got %+v, %v", e, ok)
	}
}
