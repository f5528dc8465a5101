// Package source implements the engine's source variants and the common
// per-block mix/filter/pan/route pipeline every one of them shares (spec
// §4.8).
//
// Grounded in the teacher's Room/Client relationship: a Room holds a list
// of Clients and, each tick, asks each for its contribution before mixing
// (server/room.go), the same "holder iterates its children, asks each to
// contribute into a shared accumulator" shape this package generalizes from
// network relay to DSP mixing.
package source

import (
	"github.com/rustyguts/bken-engine/biquad"
	"github.com/rustyguts/bken-engine/fade"
	"github.com/rustyguts/bken-engine/generator"
	"github.com/rustyguts/bken-engine/handle"
	"github.com/rustyguts/bken-engine/router"
)

// Source is the common interface the engine's audio thread drives once per
// block for every live source.
type Source interface {
	// AddGenerator attaches g to this source's generator list.
	AddGenerator(g generator.Generator)

	// RemoveGenerator detaches g if present.
	RemoveGenerator(g generator.Generator)

	// ProcessBlock mixes this source's generators, filters, pans (if
	// applicable), and writes into outL/outR (the context's direct output
	// bus) and into each outgoing route's input accumulator (looked up in
	// effectAccumulators by the route's reader handle).
	ProcessBlock(outL, outR []float32, routes []*router.Route, effectAccumulators map[handle.Handle][]float32, blockFrames int)

	// ShouldSelfDestruct reports whether the source has no generators left,
	// no live routes, and its filters have settled — the spec §4.8
	// self-destruct condition.
	ShouldSelfDestruct(hasLiveRoutes bool) bool

	// SetGain arms a linear gain fade to the given target over
	// fadeTimeInBlocks blocks (spec §4.8 "drive the gain fade driver ...
	// on every gain change").
	SetGain(target float64, fadeTimeInBlocks int)

	// SetGeneratorGain arms a gain fade on one attached generator's own
	// per-generator gain driver (spec's generate_block(dest, gain_driver)
	// API), independent of the source's overall gain. A no-op if g is not
	// currently attached.
	SetGeneratorGain(g generator.Generator, target float64, fadeTimeInBlocks int)

	// Handle returns the writer-side handle this source uses to key its
	// outgoing routes.
	Handle() handle.Handle
}

// Base holds the state and pipeline steps common to every source variant:
// generator list, three-stage filter (full-path, then direct/effects taps),
// and the overall gain fade driver.
type Base struct {
	handle      handle.Handle
	generators  []generator.Generator
	genGains    map[generator.Generator]*fade.Driver // persistent per-generator gain, spec's gain_driver
	channels    int                                  // the "superset" channel count across all attached generators

	filter        *biquad.Crossfading // full-path filter
	filterDirect  *biquad.Crossfading // direct-output tap
	filterEffects *biquad.Crossfading // route-input tap

	gain            *fade.Driver
	steadyBlocks    int // consecutive blocks with no generators, no routes, filters settled
	crossfadeLength int
}

// NewBase returns a Base with identity filters and unity gain, keyed by h.
func NewBase(h handle.Handle, crossfadeLength int) Base {
	return Base{
		handle:          h,
		filter:          biquad.NewCrossfading(),
		filterDirect:    biquad.NewCrossfading(),
		filterEffects:   biquad.NewCrossfading(),
		gain:            steadyGain(1),
		crossfadeLength: crossfadeLength,
	}
}

func steadyGain(g float64) *fade.Driver {
	d := fade.NewSteady(g)
	return &d
}

// Handle returns the source's writer handle.
func (b *Base) Handle() handle.Handle { return b.handle }

// AddGenerator attaches g, growing the source's channel count to the
// superset across all attached generators (spec §4.8 "growing channel
// count across generators by superset").
func (b *Base) AddGenerator(g generator.Generator) {
	b.generators = append(b.generators, g)
	if b.genGains == nil {
		b.genGains = make(map[generator.Generator]*fade.Driver)
	}
	b.genGains[g] = steadyGain(1)
	if g.Channels() > b.channels {
		b.channels = g.Channels()
	}
}

// RemoveGenerator detaches g if present.
func (b *Base) RemoveGenerator(g generator.Generator) {
	for i, existing := range b.generators {
		if existing == g {
			b.generators = append(b.generators[:i], b.generators[i+1:]...)
			delete(b.genGains, g)
			return
		}
	}
}

// SetGain arms a fade of the source's overall gain to target.
func (b *Base) SetGain(target float64, fadeTimeInBlocks int) {
	b.gain.StartFade(target, fadeTimeInBlocks)
}

// SetGeneratorGain arms a fade on g's own persistent gain driver. A no-op
// if g isn't currently attached to this source.
func (b *Base) SetGeneratorGain(g generator.Generator, target float64, fadeTimeInBlocks int) {
	if d, ok := b.genGains[g]; ok {
		d.StartFade(target, fadeTimeInBlocks)
	}
}

// SetFilter reconfigures the full-path filter, direct-output filter, and
// effects-output filter. Any of the three may be nil to leave it alone.
func (b *Base) SetFilter(full, direct, effects *biquad.Coeffs) {
	if full != nil {
		b.filter.Reconfigure(*full)
	}
	if direct != nil {
		b.filterDirect.Reconfigure(*direct)
	}
	if effects != nil {
		b.filterEffects.Reconfigure(*effects)
	}
}

// mixGenerators sums every attached generator's output into scratch
// (length blockFrames*b.channels), pruning finished generators that report
// they have nothing further to linger for.
func (b *Base) mixGenerators(scratch []float32, blockFrames int) {
	for i := range scratch {
		scratch[i] = 0
	}
	live := b.generators[:0]
	for _, g := range b.generators {
		gainDriver, ok := b.genGains[g]
		if !ok {
			gainDriver = steadyGain(1)
		}
		gen := g
		genChannels := gen.Channels()
		if genChannels == b.channels {
			gen.GenerateBlock(scratch, gainDriver)
		} else {
			tmp := make([]float32, blockFrames*genChannels)
			gen.GenerateBlock(tmp, gainDriver)
			upDownMix(tmp, genChannels, scratch, b.channels, blockFrames)
		}
		if _, finished := gen.StartLingering(); finished {
			delete(b.genGains, gen)
			continue
		}
		live = append(live, gen)
	}
	b.generators = live
}

// upDownMix channel-converts src (srcChannels per frame) into dst
// (dstChannels per frame, added in place): mono->N duplicates, N->mono
// averages, otherwise truncates or zero-pads (spec §4.8 DirectSource
// "Channel conversion").
func upDownMix(src []float32, srcChannels int, dst []float32, dstChannels int, frames int) {
	for f := 0; f < frames; f++ {
		switch {
		case srcChannels == 1:
			v := src[f]
			for c := 0; c < dstChannels; c++ {
				dst[f*dstChannels+c] += v
			}
		case dstChannels == 1:
			var sum float32
			for c := 0; c < srcChannels; c++ {
				sum += src[f*srcChannels+c]
			}
			dst[f] += sum / float32(srcChannels)
		default:
			n := srcChannels
			if dstChannels < n {
				n = dstChannels
			}
			for c := 0; c < n; c++ {
				dst[f*dstChannels+c] += src[f*srcChannels+c]
			}
		}
	}
}

// downmixToMono averages src (srcChannels per frame) down to a single mono
// channel in dst (length frames), used by panned sources before panning.
func downmixToMono(src []float32, srcChannels int, dst []float32, frames int) {
	for f := 0; f < frames; f++ {
		var sum float32
		for c := 0; c < srcChannels; c++ {
			sum += src[f*srcChannels+c]
		}
		if srcChannels > 0 {
			sum /= float32(srcChannels)
		}
		dst[f] = sum
	}
}

// writeRoutes adds mono/stereo content into every outgoing route's input
// accumulator, applying the route's own fade driver sample by sample (spec
// §4.9 "the source iterates its outgoing-route list and adds into each
// route's input buffer with the route's fade driver").
func writeRoutes(routes []*router.Route, left, right []float32, accumulators map[handle.Handle][]float32) {
	for _, route := range routes {
		acc, ok := accumulators[route.Key.Reader]
		if !ok {
			continue
		}
		for i := range left {
			g := route.Advance()
			acc[i*2+0] += float32(g) * left[i]
			acc[i*2+1] += float32(g) * right[i]
		}
	}
}

// ShouldSelfDestruct reports the spec §4.8 self-destruct condition: no
// generators, no live routes, and the filters have been in steady state
// (not crossfading) for roughly three blocks.
func (b *Base) ShouldSelfDestruct(hasLiveRoutes bool) bool {
	if len(b.generators) > 0 || hasLiveRoutes {
		b.steadyBlocks = 0
		return false
	}
	b.steadyBlocks++
	return b.steadyBlocks >= 3
}
