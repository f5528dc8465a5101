// Package handle implements the process-wide handle table: the single
// source of truth mapping an opaque 64-bit handle to a refcounted object
// (spec §3, §9 "Cyclic references -> arena + handle table").
//
// Grounded in the teacher's Room, which keeps every live Client in a
// map[uint16]*Client behind a single sync.RWMutex with a fast shared-read
// path (server/room.go: "mu sync.RWMutex ... protected by mu" throughout) —
// generalized here from one concrete type to any object, and from a
// uint16 connection id to a 64-bit handle with an explicit refcount instead
// of "present in the map == alive".
package handle

import (
	"sync"
	"sync/atomic"
)

// Handle is an opaque identifier for any engine object.
type Handle uint64

// ObjectType tags what kind of object a handle refers to, used to translate
// a type mismatch into errs.CodeHandleType at the ABI boundary.
type ObjectType int

const (
	TypeContext ObjectType = iota
	TypeGenerator
	TypeSource
	TypeEffect
	TypeBuffer
	TypeStreamHandle
)

// entry is the handle table's internal bookkeeping for one live object.
type entry struct {
	refcount atomic.Int64
	objType  ObjectType
	object   any
	userdata atomic.Value // holds any; boxed to allow nil-safe Load

	// removedFromGraph is set once the context has confirmed the object is
	// no longer part of the audio graph. The table only calls the finalizer
	// after both refcount == 0 AND this is true (spec §3 invariant: "the
	// handle table never dereferences a freed object ... first removed from
	// the audio graph, then released").
	removedFromGraph atomic.Bool
	finalize         func()
}

// Table is the process-wide (or, for testability, per-Context) handle
// registry. The zero value is not usable; use NewTable.
type Table struct {
	mu      sync.RWMutex
	entries map[Handle]*entry
	next    atomic.Uint64
}

// NewTable creates an empty handle table.
func NewTable() *Table {
	return &Table{entries: make(map[Handle]*entry)}
}

// Register allocates a new handle for obj with refcount 1. finalize, if
// non-nil, runs once when the object is both derefed to zero and confirmed
// out of the audio graph (see MarkRemovedFromGraph).
func (t *Table) Register(objType ObjectType, obj any, finalize func()) Handle {
	h := Handle(t.next.Add(1))
	e := &entry{objType: objType, object: obj, finalize: finalize}
	e.refcount.Store(1)
	t.mu.Lock()
	t.entries[h] = e
	t.mu.Unlock()
	return h
}

// Get returns the live object for h and true, or nil/false if h is unknown
// or has already been fully released. Safe from any thread (shared-read
// fast path, matching the teacher's RWMutex convention).
func (t *Table) Get(h Handle) (any, bool) {
	t.mu.RLock()
	e, ok := t.entries[h]
	t.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return e.object, true
}

// GetTyped returns the object for h if it is alive and of the expected
// type. The second bool distinguishes "handle unknown" from "wrong type"
// so the caller can report errs.CodeInvalidHandle vs errs.CodeHandleType.
func (t *Table) GetTyped(h Handle, want ObjectType) (obj any, found, typeOK bool) {
	t.mu.RLock()
	e, ok := t.entries[h]
	t.mu.RUnlock()
	if !ok {
		return nil, false, false
	}
	return e.object, true, e.objType == want
}

// IncRef increments h's refcount. Returns false if h is unknown.
func (t *Table) IncRef(h Handle) bool {
	t.mu.RLock()
	e, ok := t.entries[h]
	t.mu.RUnlock()
	if !ok {
		return false
	}
	e.refcount.Add(1)
	return true
}

// DecRef decrements h's refcount. Never panics on a still-live handle
// (spec §8 invariant). When the count reaches zero and the object has
// already been confirmed removed from the audio graph, the entry is
// deleted and its finalizer runs; otherwise release is deferred until
// MarkRemovedFromGraph observes refcount <= 0.
func (t *Table) DecRef(h Handle) {
	t.mu.RLock()
	e, ok := t.entries[h]
	t.mu.RUnlock()
	if !ok {
		return
	}
	n := e.refcount.Add(-1)
	if n <= 0 && e.removedFromGraph.Load() {
		t.release(h, e)
	}
}

// MarkRemovedFromGraph is called by the context thread once it has
// confirmed h's object no longer participates in the DSP graph (no
// outstanding routes, not in the source list, etc.). If the refcount is
// already zero, the object is released immediately.
func (t *Table) MarkRemovedFromGraph(h Handle) {
	t.mu.RLock()
	e, ok := t.entries[h]
	t.mu.RUnlock()
	if !ok {
		return
	}
	e.removedFromGraph.Store(true)
	if e.refcount.Load() <= 0 {
		t.release(h, e)
	}
}

func (t *Table) release(h Handle, e *entry) {
	t.mu.Lock()
	// Re-check under the write lock: another goroutine may have already
	// released this handle (e.g. a racing DecRef and MarkRemovedFromGraph).
	if cur, ok := t.entries[h]; !ok || cur != e {
		t.mu.Unlock()
		return
	}
	delete(t.entries, h)
	t.mu.Unlock()
	if e.finalize != nil {
		e.finalize()
	}
}

// RefCount returns the current refcount for diagnostics/tests.
func (t *Table) RefCount(h Handle) int64 {
	t.mu.RLock()
	e, ok := t.entries[h]
	t.mu.RUnlock()
	if !ok {
		return 0
	}
	return e.refcount.Load()
}

// Alive reports whether h still refers to a live object.
func (t *Table) Alive(h Handle) bool {
	t.mu.RLock()
	_, ok := t.entries[h]
	t.mu.RUnlock()
	return ok
}

// SetUserdata stores an arbitrary host-owned pointer alongside h.
func (t *Table) SetUserdata(h Handle, data any) bool {
	t.mu.RLock()
	e, ok := t.entries[h]
	t.mu.RUnlock()
	if !ok {
		return false
	}
	e.userdata.Store(boxAny{data})
	return true
}

// GetUserdata returns the userdata previously stored via SetUserdata, or
// nil if none was set.
func (t *Table) GetUserdata(h Handle) (any, bool) {
	t.mu.RLock()
	e, ok := t.entries[h]
	t.mu.RUnlock()
	if !ok {
		return nil, false
	}
	v := e.userdata.Load()
	if v == nil {
		return nil, true
	}
	return v.(boxAny).v, true
}

// ObjectTypeOf reports the type tag h was registered with.
func (t *Table) ObjectTypeOf(h Handle) (ObjectType, bool) {
	t.mu.RLock()
	e, ok := t.entries[h]
	t.mu.RUnlock()
	if !ok {
		return 0, false
	}
	return e.objType, true
}

// Count returns the number of currently live handles (diagnostics).
func (t *Table) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// boxAny lets us store `any` (including nil and non-comparable values)
// inside an atomic.Value, which requires a consistent concrete type across
// Store calls.
type boxAny struct{ v any }
