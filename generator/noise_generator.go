package generator

import (
	"math/bits"

	"github.com/rustyguts/bken-engine/biquad"
	"github.com/rustyguts/bken-engine/fade"
)

// xoshiro256pp is a xoshiro256++ pseudo-random generator, the PRNG spec
// §4.7 names directly for NoiseGenerator's uniform mode. Not cryptographic;
// chosen for speed and long period, matching the teacher's preference for
// small, purpose-built helpers over a general crypto/rand dependency in the
// hot DSP path.
type xoshiro256pp struct {
	s [4]uint64
}

// newXoshiro256pp seeds the generator via splitmix64, the standard way to
// expand a single 64-bit seed into xoshiro's 256-bit state.
func newXoshiro256pp(seed uint64) *xoshiro256pp {
	var x xoshiro256pp
	sm := seed
	next := func() uint64 {
		sm += 0x9E3779B97F4A7C15
		z := sm
		z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
		z = (z ^ (z >> 27)) * 0x94D049BB133111EB
		return z ^ (z >> 31)
	}
	for i := range x.s {
		x.s[i] = next()
	}
	return &x
}

func rotl(x uint64, k int) uint64 {
	return bits.RotateLeft64(x, k)
}

// next returns the generator's next uint64 and advances its state.
func (x *xoshiro256pp) next() uint64 {
	result := rotl(x.s[0]+x.s[3], 23) + x.s[0]

	t := x.s[1] << 17

	x.s[2] ^= x.s[0]
	x.s[3] ^= x.s[1]
	x.s[1] ^= x.s[2]
	x.s[0] ^= x.s[3]

	x.s[2] ^= t

	x.s[3] = rotl(x.s[3], 45)

	return result
}

// uniform returns a uniform float64 in [-1, 1].
func (x *xoshiro256pp) uniform() float64 {
	// Use the top 53 bits for a double with full mantissa precision, the
	// conventional uint64->float64 conversion for generators like this.
	v := x.next() >> 11
	return (float64(v)/float64(1<<53))*2 - 1
}

// NoiseGenerator implements spec §4.7's three noise modes: uniform
// (xoshiro256++ output mapped to [-1, 1]), Voss-McCartney pink, and
// filtered brown (uniform through a one-pole lowpass + DC blocker).
type NoiseGenerator struct {
	mode NoiseMode
	rng  *xoshiro256pp

	// Voss-McCartney pink noise state: a ring of independent generators,
	// one per bit of a counter, each updated only when its corresponding
	// bit transitions — the standard trailing-zero-count construction.
	vmGenerators []float64
	vmCounter    uint64

	// Brown noise state.
	brownLowpass biquad.Filter
	brownDC      biquad.Filter
}

// NoiseMode selects a NoiseGenerator's output characteristic.
type NoiseMode int

const (
	NoiseModeUniform NoiseMode = iota
	NoiseModePink
	NoiseModeBrown
)

// NewNoiseGenerator returns a NoiseGenerator in the given mode, seeded from
// seed (callers typically derive this from a process-wide counter or
// crypto/rand read once at creation, not per block).
func NewNoiseGenerator(mode NoiseMode, seed uint64, sampleRate float64) *NoiseGenerator {
	g := &NoiseGenerator{
		mode: mode,
		rng:  newXoshiro256pp(seed),
	}
	if mode == NoiseModePink {
		const vmOctaves = 16 // enough octaves to cover the audible range at typical SR
		g.vmGenerators = make([]float64, vmOctaves)
		for i := range g.vmGenerators {
			g.vmGenerators[i] = g.rng.uniform()
		}
	}
	if mode == NoiseModeBrown {
		g.brownLowpass.SetCoeffs(biquad.Lowpass(200, sampleRate, 0.707))
		g.brownDC.SetCoeffs(biquad.DCBlocker(0.995))
	}
	return g
}

// Channels always reports mono.
func (g *NoiseGenerator) Channels() int { return 1 }

// GenerateBlock fills dest with noise in the configured mode.
func (g *NoiseGenerator) GenerateBlock(dest []float32, gainDriver *fade.Driver) {
	switch g.mode {
	case NoiseModeUniform:
		g.generateUniform(dest, gainDriver)
	case NoiseModePink:
		g.generatePink(dest, gainDriver)
	case NoiseModeBrown:
		g.generateBrown(dest, gainDriver)
	}
}

func (g *NoiseGenerator) generateUniform(dest []float32, gainDriver *fade.Driver) {
	for i := range dest {
		gain := gainDriver.Advance()
		dest[i] += float32(gain * g.rng.uniform())
	}
}

// generatePink implements the Voss-McCartney algorithm: on each sample, the
// trailing-zero count of an incrementing counter selects which generator in
// the ring refreshes this sample; the output is the sum of all generators'
// current values, scaled down to keep amplitude bounded (spec §4.7).
func (g *NoiseGenerator) generatePink(dest []float32, gainDriver *fade.Driver) {
	n := len(g.vmGenerators)
	scale := 1.0 / float64(n)
	for i := range dest {
		gain := gainDriver.Advance()
		g.vmCounter++
		idx := bits.TrailingZeros64(g.vmCounter)
		if idx >= n {
			idx = n - 1
		}
		g.vmGenerators[idx] = g.rng.uniform()

		sum := 0.0
		for _, v := range g.vmGenerators {
			sum += v
		}
		dest[i] += float32(gain * sum * scale)
	}
}

func (g *NoiseGenerator) generateBrown(dest []float32, gainDriver *fade.Driver) {
	for i := range dest {
		gain := gainDriver.Advance()
		u := float32(g.rng.uniform())
		filtered := g.brownLowpass.ProcessSample(u)
		filtered = g.brownDC.ProcessSample(filtered)
		dest[i] += float32(gain) * filtered
	}
}

// StartLingering reports no tail: noise runs forever until detached, so it
// never signals the source to drop it on its own.
func (g *NoiseGenerator) StartLingering() (float64, bool) { return 0, false }
