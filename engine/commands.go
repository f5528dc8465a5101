package engine

import (
	"github.com/rustyguts/bken-engine/automation"
	"github.com/rustyguts/bken-engine/biquad"
	"github.com/rustyguts/bken-engine/config"
	"github.com/rustyguts/bken-engine/decoder"
	"github.com/rustyguts/bken-engine/effect"
	"github.com/rustyguts/bken-engine/generator"
	"github.com/rustyguts/bken-engine/handle"
	"github.com/rustyguts/bken-engine/panner"
	"github.com/rustyguts/bken-engine/source"
)

// Everything below is the Go-side equivalent of the C ABI entry points
// (spec §6): a client-facing method allocates a handle and constructs the
// (thread-safe-to-build) object immediately, then enqueues a Command that
// performs the actual graph mutation — appending to Context.sources,
// reconfiguring the Router, attaching a generator to a source — exclusively
// on the audio thread during the next GetBlock's drain. Graph state
// (Router.routes, Base.generators) carries no internal locking of its own,
// matching spec §5's "the context thread exclusively owns all DSP state":
// the command queue is what makes that exclusivity safe to call into from
// any number of client goroutines.

func newPannerForStrategy(c *Context) panner.Panner {
	if c.cfg.DefaultPannerStrategy == config.PannerStrategyStereo {
		return panner.NewStereoPanner()
	}
	return panner.NewHRTFPanner(panner.NewSyntheticDataset(10, 36))
}

// CreateDirectSource allocates a handle, constructs a DirectSource, and
// enqueues its registration into the live source table.
func (c *Context) CreateDirectSource() handle.Handle {
	h := c.handles.Register(handle.TypeSource, nil, nil)
	s := source.NewDirectSource(h, config.CrossfadeSamples)
	c.handles.SetUserdata(h, s)
	c.Enqueue(CommandFunc(func(c *Context) { c.registerSource(s) }))
	return h
}

// CreateAngularPannedSource allocates a handle and an AngularPannedSource
// using the context's default panner strategy.
func (c *Context) CreateAngularPannedSource() handle.Handle {
	h := c.handles.Register(handle.TypeSource, nil, nil)
	s := source.NewAngularPannedSource(h, config.CrossfadeSamples, newPannerForStrategy(c))
	c.handles.SetUserdata(h, s)
	c.Enqueue(CommandFunc(func(c *Context) { c.registerSource(s) }))
	return h
}

// CreateScalarPannedSource allocates a handle and a ScalarPannedSource.
func (c *Context) CreateScalarPannedSource() handle.Handle {
	h := c.handles.Register(handle.TypeSource, nil, nil)
	s := source.NewScalarPannedSource(h, config.CrossfadeSamples, newPannerForStrategy(c))
	c.handles.SetUserdata(h, s)
	c.Enqueue(CommandFunc(func(c *Context) { c.registerSource(s) }))
	return h
}

// CreateSource3D allocates a handle and a Source3D with the given initial
// distance parameters.
func (c *Context) CreateSource3D(params source.DistanceParams) handle.Handle {
	h := c.handles.Register(handle.TypeSource, nil, nil)
	s := source.NewSource3D(h, config.CrossfadeSamples, newPannerForStrategy(c), params)
	c.handles.SetUserdata(h, s)
	c.Enqueue(CommandFunc(func(c *Context) { c.registerSource(s) }))
	return h
}

// DestroySource enqueues removal of h's outgoing routes (faded out over
// fadeOutBlocks) and drops it from the live source table. If the source
// still has lingering generators, call RequestLinger instead.
func (c *Context) DestroySource(h handle.Handle, fadeOutBlocks int) {
	c.Enqueue(CommandFunc(func(c *Context) {
		c.router.RemoveAllRoutesForWriter(h, fadeOutBlocks)
		c.mu.Lock()
		delete(c.sources, h)
		c.mu.Unlock()
		c.handles.MarkRemovedFromGraph(h)
	}))
}

// RequestLinger marks h as wanting to linger rather than die immediately:
// it stays in the live graph until deadlineBlocks has elapsed, at which
// point it is finalized (spec §4.12).
func (c *Context) RequestLinger(h handle.Handle, deadlineBlocks int64) {
	c.Enqueue(CommandFunc(func(c *Context) {
		c.ScheduleLinger(h, deadlineBlocks, func() {
			c.mu.Lock()
			delete(c.sources, h)
			c.mu.Unlock()
		})
	}))
}

// AttachGenerator enqueues "source sh gains generator gh" onto the next
// block's drain.
func (c *Context) AttachGenerator(sh, gh handle.Handle) {
	c.Enqueue(CommandFunc(func(c *Context) {
		s, ok := c.lookupSource(sh)
		if !ok {
			return
		}
		g, ok := c.lookupGenerator(gh)
		if !ok {
			return
		}
		s.AddGenerator(g)
	}))
}

// DetachGenerator enqueues "source sh loses generator gh".
func (c *Context) DetachGenerator(sh, gh handle.Handle) {
	c.Enqueue(CommandFunc(func(c *Context) {
		s, ok := c.lookupSource(sh)
		if !ok {
			return
		}
		g, ok := c.lookupGenerator(gh)
		if !ok {
			return
		}
		s.RemoveGenerator(g)
	}))
}

// SetSourceGain enqueues a gain fade for source h.
func (c *Context) SetSourceGain(h handle.Handle, target float64, fadeTimeInBlocks int) {
	c.Enqueue(CommandFunc(func(c *Context) {
		if s, ok := c.lookupSource(h); ok {
			s.SetGain(target, fadeTimeInBlocks)
		}
	}))
}

// SetGeneratorGain enqueues a gain fade on generator gh's own persistent
// gain driver, independent of source sh's overall gain (spec's
// generate_block(dest, gain_driver) API). A no-op if gh is not currently
// attached to sh.
func (c *Context) SetGeneratorGain(sh, gh handle.Handle, target float64, fadeTimeInBlocks int) {
	c.Enqueue(CommandFunc(func(c *Context) {
		s, ok := c.lookupSource(sh)
		if !ok {
			return
		}
		g, ok := c.lookupGenerator(gh)
		if !ok {
			return
		}
		s.SetGeneratorGain(g, target, fadeTimeInBlocks)
	}))
}

// filterable is implemented by every concrete source variant (via
// source.Base.SetFilter); kept local since source.Source does not itself
// require filter reconfiguration.
type filterable interface {
	SetFilter(full, direct, effects *biquad.Coeffs)
}

// SetSourceFilter enqueues a filter reconfiguration for source h. Any of
// the three coefficient sets may be nil to leave that stage untouched.
func (c *Context) SetSourceFilter(h handle.Handle, full, direct, effects *biquad.Coeffs) {
	c.Enqueue(CommandFunc(func(c *Context) {
		s, ok := c.lookupSource(h)
		if !ok {
			return
		}
		if f, ok := s.(filterable); ok {
			f.SetFilter(full, direct, effects)
		}
	}))
}

// CreateBufferGenerator allocates a handle and a BufferGenerator over buf.
func (c *Context) CreateBufferGenerator(buf *generator.Buffer) handle.Handle {
	h := c.handles.Register(handle.TypeGenerator, nil, nil)
	g := generator.NewBufferGenerator(buf)
	c.handles.SetUserdata(h, g)
	c.Enqueue(CommandFunc(func(c *Context) { c.registerGenerator(h, g) }))
	return h
}

// CreateStreamingGenerator allocates a handle and a StreamingGenerator
// decoding dec.
func (c *Context) CreateStreamingGenerator(dec decoder.AudioDecoder, looping bool) handle.Handle {
	h := c.handles.Register(handle.TypeGenerator, nil, nil)
	g := generator.NewStreamingGenerator(dec, looping, c.logger)
	c.handles.SetUserdata(h, g)
	c.Enqueue(CommandFunc(func(c *Context) { c.registerGenerator(h, g) }))
	return h
}

// CreateFastSineBank allocates a handle and a FastSineBank.
func (c *Context) CreateFastSineBank(fundamental float64, partials []generator.Partial) handle.Handle {
	h := c.handles.Register(handle.TypeGenerator, nil, nil)
	g := generator.NewFastSineBank(float64(config.SR), fundamental, partials)
	c.handles.SetUserdata(h, g)
	c.Enqueue(CommandFunc(func(c *Context) { c.registerGenerator(h, g) }))
	return h
}

// CreateNoiseGenerator allocates a handle and a NoiseGenerator.
func (c *Context) CreateNoiseGenerator(mode generator.NoiseMode, seed uint64) handle.Handle {
	h := c.handles.Register(handle.TypeGenerator, nil, nil)
	g := generator.NewNoiseGenerator(mode, seed, float64(config.SR))
	c.handles.SetUserdata(h, g)
	c.Enqueue(CommandFunc(func(c *Context) { c.registerGenerator(h, g) }))
	return h
}

// CreateEchoEffect allocates a handle and an EchoEffect.
func (c *Context) CreateEchoEffect() handle.Handle {
	h := c.handles.Register(handle.TypeEffect, nil, nil)
	e := effect.NewEchoEffect()
	c.handles.SetUserdata(h, e)
	c.Enqueue(CommandFunc(func(c *Context) { c.registerEffect(h, e) }))
	return h
}

// CreateFdnReverb allocates a handle and an FdnReverb.
func (c *Context) CreateFdnReverb(params effect.FdnReverbParams) handle.Handle {
	h := c.handles.Register(handle.TypeEffect, nil, nil)
	e := effect.NewFdnReverb(params)
	c.handles.SetUserdata(h, e)
	c.Enqueue(CommandFunc(func(c *Context) { c.registerEffect(h, e) }))
	return h
}

// ConfigureRoute enqueues a router.ConfigureRoute call from source writer
// to effect reader.
func (c *Context) ConfigureRoute(writer, reader handle.Handle, gain float64, fadeInBlocks int) {
	c.Enqueue(CommandFunc(func(c *Context) {
		c.router.ConfigureRoute(writer, reader, gain, fadeInBlocks)
	}))
}

// RemoveRoute enqueues a router.RemoveRoute call.
func (c *Context) RemoveRoute(writer, reader handle.Handle, fadeOutBlocks int) {
	c.Enqueue(CommandFunc(func(c *Context) {
		c.router.RemoveRoute(writer, reader, fadeOutBlocks)
	}))
}

// ScheduleAutomation applies a batch's point writes and scheduled events
// atomically on the next block's drain (spec §4.3 "Batched automation").
func (c *Context) ScheduleAutomation(batch *automation.Batch, lookup func(target handle.Handle, prop automation.PropertyID) *automation.Timeline) {
	c.Enqueue(CommandFunc(func(c *Context) {
		batch.Apply(lookup, c.scheduler)
	}))
}
