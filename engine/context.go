// Package engine implements Context, the audio-thread facade that owns
// every live object and drives the block pipeline: draining the command
// queue, firing scheduled events, mixing sources through the router into
// effects, advancing linger/death, and emitting events (spec §4.1, §4.12).
// Context does not tick property automation timelines.
// Context stands in for the C ABI's single opaque "engine handle" (spec
// §6): every exported method here is the Go equivalent of one ABI call.
//
// Grounded in the teacher's AudioEngine, whose audio callback
// (client/audio.go: capture -> AEC -> AGC -> VAD -> encode, one pass per
// device wake) is the same "one exclusive owner thread runs a fixed
// pipeline once per wake" shape generalized here from a single voice path
// to an arbitrary graph of sources, routes, and effects.
package engine

import (
	"container/heap"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/rustyguts/bken-engine/automation"
	"github.com/rustyguts/bken-engine/config"
	"github.com/rustyguts/bken-engine/effect"
	"github.com/rustyguts/bken-engine/errs"
	"github.com/rustyguts/bken-engine/generator"
	"github.com/rustyguts/bken-engine/handle"
	"github.com/rustyguts/bken-engine/ring"
	"github.com/rustyguts/bken-engine/router"
	"github.com/rustyguts/bken-engine/source"
)

// Command is one unit of work enqueued from a client thread and executed
// exclusively on the audio thread during the next block's drain (spec
// §4.2).
type Command interface {
	Execute(c *Context)
}

// CommandFunc adapts a plain function to Command.
type CommandFunc func(c *Context)

// Execute implements Command.
func (f CommandFunc) Execute(c *Context) { f(c) }

// Context owns every live object and runs the block pipeline. The zero
// value is not usable; use NewContext.
type Context struct {
	ID uuid.UUID

	cfg    config.LibraryConfig
	logger *log.Logger

	handles *handle.Table
	self    handle.Handle // this Context's own handle, stamped into events
	router  *router.Router

	mu         sync.Mutex // guards the maps below; held only briefly per lookup
	sources    map[handle.Handle]source.Source
	effects    map[handle.Handle]effect.Effect
	generators map[handle.Handle]generator.Generator

	commands *ring.MPSC[Command]

	scheduler *automation.Scheduler
	events    *automation.EventQueue

	linger lingerQueue

	blockIndex int64
	wake       chan struct{}
}

// NewContext allocates a Context with the given library configuration,
// filling in defaults for any zero-value fields (spec §6
// "createContext"/"createContextHeadless").
func NewContext(cfg config.LibraryConfig) *Context {
	cfg = cfg.WithDefaults()
	c := &Context{
		ID:         uuid.New(),
		cfg:        cfg,
		logger:     cfg.Logger,
		handles:    handle.NewTable(),
		router:     router.New(),
		sources:    make(map[handle.Handle]source.Source),
		effects:    make(map[handle.Handle]effect.Effect),
		generators: make(map[handle.Handle]generator.Generator),
		commands:   ring.NewMPSC[Command](1024),
		scheduler:  automation.NewScheduler(),
		events:     automation.NewEventQueue(256),
		wake:       make(chan struct{}, 1),
	}
	c.self = c.handles.Register(handle.TypeContext, c, nil)
	c.logger.Printf("[context] %s created (headless=%v)", c.ID, cfg.Headless)
	return c
}

// Enqueue pushes cmd onto the command queue for execution on the next
// block's drain, and posts a non-blocking signal on the context's wake
// channel; nothing in the engine receives from that channel.
func (c *Context) Enqueue(cmd Command) bool {
	ok := c.commands.Push(cmd)
	if !ok {
		c.logger.Printf("[context] command queue full, dropping command")
		return false
	}
	select {
	case c.wake <- struct{}{}:
	default:
	}
	return true
}

// drainCommands executes every currently queued command, in FIFO order
// (spec §4.1 step (i)).
func (c *Context) drainCommands() {
	for {
		cmd, ok := c.commands.Pop()
		if !ok {
			return
		}
		cmd.Execute(c)
	}
}

// registerSource adds s to the live source table under its own handle.
func (c *Context) registerSource(s source.Source) {
	c.mu.Lock()
	c.sources[s.Handle()] = s
	c.mu.Unlock()
}

// registerEffect adds e to the live effect table keyed by h.
func (c *Context) registerEffect(h handle.Handle, e effect.Effect) {
	c.mu.Lock()
	c.effects[h] = e
	c.mu.Unlock()
}

// registerGenerator records g under h purely so later ABI calls (e.g.
// "attach this generator handle to that source handle") can look it up;
// the actual mixing reference lives on whichever source(s) call
// AddGenerator.
func (c *Context) registerGenerator(h handle.Handle, g generator.Generator) {
	c.mu.Lock()
	c.generators[h] = g
	c.mu.Unlock()
}

func (c *Context) lookupSource(h handle.Handle) (source.Source, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sources[h]
	return s, ok
}

func (c *Context) lookupGenerator(h handle.Handle) (generator.Generator, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	g, ok := c.generators[h]
	return g, ok
}

// Handles exposes the context's handle table, so packages outside engine
// (e.g. diag) can report liveness counts without engine needing to know
// about them.
func (c *Context) Handles() *handle.Table { return c.handles }

// Events returns the context's events-out queue for client polling (spec
// §4.11).
func (c *Context) Events() *automation.EventQueue { return c.events }

// BlockIndex returns the number of blocks generated so far (diagnostics).
func (c *Context) BlockIndex() int64 { return c.blockIndex }

// SourceCount, EffectCount, RouteCount report live object counts for the
// diag HTTP surface.
func (c *Context) SourceCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sources)
}
func (c *Context) EffectCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.effects)
}
func (c *Context) RouteCount() int { return c.router.Count() }

// GetBlock drains pending commands, then generates exactly one block of
// BLOCK_SIZE stereo float frames into outL/outR, which must each have
// length config.BlockSize (spec §4.1 steps (i)-(ii); resampling to a
// device's native rate, step (iii), is the device package's job, not
// Context's — Context only ever produces blocks at config.SR).
func (c *Context) GetBlock(outL, outR []float32) error {
	if len(outL) != config.BlockSize || len(outR) != config.BlockSize {
		return fail(errs.CodeValidation, "GetBlock requires %d-frame buffers, got %d/%d", config.BlockSize, len(outL), len(outR))
	}
	errs.Clear()
	c.drainCommands()
	c.tickAutomationAndEvents()

	for i := range outL {
		outL[i], outR[i] = 0, 0
	}

	effectAcc := make(map[handle.Handle][]float32, len(c.effects))
	c.mu.Lock()
	for h := range c.effects {
		effectAcc[h] = make([]float32, config.BlockSize*2)
	}
	c.mu.Unlock()

	c.mu.Lock()
	liveSources := make([]source.Source, 0, len(c.sources))
	for _, s := range c.sources {
		liveSources = append(liveSources, s)
	}
	c.mu.Unlock()

	var toDestroy []handle.Handle
	for _, s := range liveSources {
		h := s.Handle()
		routes := c.router.RoutesForWriter(h)
		s.ProcessBlock(outL, outR, routes, effectAcc, config.BlockSize)
		if s.ShouldSelfDestruct(len(routes) > 0) {
			toDestroy = append(toDestroy, h)
		}
	}
	for _, h := range toDestroy {
		c.destroySource(h)
	}

	c.mu.Lock()
	for h, e := range c.effects {
		acc := effectAcc[h]
		e.Run(2, acc, outL, outR, c.blockIndex)
	}
	c.mu.Unlock()

	c.router.FinishBlock(config.FilterBlockCount)
	c.processLingerQueue()
	c.blockIndex++
	return nil
}

func (c *Context) tickAutomationAndEvents() {
	t := float64(c.blockIndex) * config.BlockDuration
	c.scheduler.Fire(t, c.handles.Alive)
}

// destroySource removes h from the live source table, drops its routes, and
// marks it removed from the graph; the handle itself stays in the handle
// table until the client releases its reference. It is not the lingering
// path of spec §4.12.
func (c *Context) destroySource(h handle.Handle) {
	c.mu.Lock()
	delete(c.sources, h)
	c.mu.Unlock()
	c.router.UnregisterWriter(h)
	c.handles.MarkRemovedFromGraph(h)
	c.events.Push(automation.Event{Kind: automation.EventFinished, Source: h, Context: c.self})
}

// lingerQueue is a priority queue of handles awaiting their lingering
// deadline, keyed by absolute block index (spec §4.12).
type lingerQueue struct {
	items lingerHeap
}

type lingerItem struct {
	deadline int64
	handle   handle.Handle
	finalize func()
}

type lingerHeap []lingerItem

func (h lingerHeap) Len() int          { return len(h) }
func (h lingerHeap) Less(i, j int) bool { return h[i].deadline < h[j].deadline }
func (h lingerHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *lingerHeap) Push(x any)        { *h = append(*h, x.(lingerItem)) }
func (h *lingerHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// ScheduleLinger places h in the linger priority queue with a deadline
// deadlineBlocks blocks from now (spec §4.12: "placed in a priority queue
// keyed by audio-thread deadline").
func (c *Context) ScheduleLinger(h handle.Handle, deadlineBlocks int64, finalize func()) {
	heap.Push(&c.linger.items, lingerItem{deadline: c.blockIndex + deadlineBlocks, handle: h, finalize: finalize})
}

// processLingerQueue pops every linger entry whose deadline has passed and
// finalizes it (spec §4.12: "The context pops the queue every block,
// finalizing objects whose deadline has passed").
func (c *Context) processLingerQueue() {
	for len(c.linger.items) > 0 && c.linger.items[0].deadline <= c.blockIndex {
		item := heap.Pop(&c.linger.items).(lingerItem)
		c.handles.MarkRemovedFromGraph(item.handle)
		if item.finalize != nil {
			item.finalize()
		}
	}
}

// fail records err in the per-call last-error slot and returns it, the
// Go-side equivalent of the C ABI's "return nonzero, stash the message"
// convention (spec §7).
func fail(code errs.Code, format string, args ...any) error {
	e := errs.New(code, format, args...)
	errs.Set(e)
	return e
}
