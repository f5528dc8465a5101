package generator

import (
	"math"

	"github.com/rustyguts/bken-engine/fade"
)

// Partial is one wave in a FastSineBank: a frequency multiplier of the
// bank's fundamental, a starting phase offset in radians, and a gain.
type Partial struct {
	FreqMultiplier float64
	Phase          float64
	Gain           float64
}

type partialState struct {
	spec     Partial
	cosDelta float64 // cos(2*pi*freq/SR)
	sinDelta float64
	curCos   float64
	curSin   float64
}

// FastSineBank evaluates a bank of sine waves sharing a fundamental
// frequency using the angle-addition recurrence sin(a+b) = sin(a)cos(b) +
// cos(a)sin(b), stepping each partial with two multiplies and one add per
// sample instead of calling math.Sin in the inner loop (spec §4.7). It
// re-seeds from true sin/cos at the start of every block to bound
// accumulated phase error from the recurrence's floating-point drift.
type FastSineBank struct {
	sampleRate  float64
	fundamental float64
	partials    []partialState
	blockPhase  float64 // phase accumulator advanced once per block, in radians
}

// NewFastSineBank builds a bank evaluating fundamental Hz at sampleRate,
// with the given partials (e.g. precomputed Lanczos-windowed square/saw/
// triangle harmonics).
func NewFastSineBank(sampleRate, fundamental float64, partials []Partial) *FastSineBank {
	b := &FastSineBank{
		sampleRate:  sampleRate,
		fundamental: fundamental,
		partials:    make([]partialState, len(partials)),
	}
	for i, p := range partials {
		b.partials[i] = partialState{spec: p}
	}
	b.reseed()
	return b
}

// SetFundamental updates the bank's fundamental frequency; takes effect at
// the next block boundary reseed.
func (b *FastSineBank) SetFundamental(freq float64) { b.fundamental = freq }

func (b *FastSineBank) reseed() {
	for i := range b.partials {
		p := &b.partials[i]
		freq := b.fundamental * p.spec.FreqMultiplier
		omega := 2 * math.Pi * freq / b.sampleRate
		p.cosDelta = math.Cos(omega)
		p.sinDelta = math.Sin(omega)
		angle := b.blockPhase*p.spec.FreqMultiplier + p.spec.Phase
		p.curCos = math.Cos(angle)
		p.curSin = math.Sin(angle)
	}
}

// Channels always reports mono; sources upmix as needed.
func (b *FastSineBank) Channels() int { return 1 }

// GenerateBlock steps every partial by one sample at a time for the length
// of dest, summing gain-weighted sin outputs, then reseeds from true
// trigonometry for the next block.
func (b *FastSineBank) GenerateBlock(dest []float32, gainDriver *fade.Driver) {
	b.reseed()
	frames := len(dest)
	for i := 0; i < frames; i++ {
		gain := gainDriver.Advance()
		var sample float64
		for p := range b.partials {
			ps := &b.partials[p]
			sample += ps.spec.Gain * ps.curSin
			// sin(a+b) = sin(a)cos(b) + cos(a)sin(b)
			// cos(a+b) = cos(a)cos(b) - sin(a)sin(b)
			newSin := ps.curSin*ps.cosDelta + ps.curCos*ps.sinDelta
			newCos := ps.curCos*ps.cosDelta - ps.curSin*ps.sinDelta
			ps.curSin, ps.curCos = newSin, newCos
		}
		dest[i] += float32(gain * sample)
	}
	b.blockPhase += 2 * math.Pi * b.fundamental * float64(frames) / b.sampleRate
	for b.blockPhase > 2*math.Pi {
		b.blockPhase -= 2 * math.Pi
	}
}

// StartLingering reports no tail: a sine bank produces forever until
// detached, so it never signals the source to drop it on its own.
func (b *FastSineBank) StartLingering() (float64, bool) { return 0, false }

// lanczosSigma computes the Lanczos sigma factor for harmonic k of n total
// harmonics, used to taper partial gains and reduce Gibbs ringing when
// approximating a square/saw/triangle wave with a finite partial count
// (spec §4.7: "partials precomputed with Lanczos sigma approximation").
func lanczosSigma(k, n int) float64 {
	if k == 0 || n == 0 {
		return 1
	}
	x := math.Pi * float64(k) / float64(n)
	return math.Sin(x) / x
}

// SquarePartials returns odd-harmonic partials (1, 1/3, 1/5, ...) for a
// band-limited square wave approximation up to harmonicCount harmonics.
func SquarePartials(harmonicCount int) []Partial {
	partials := make([]Partial, 0, harmonicCount)
	for k := 0; k < harmonicCount; k++ {
		n := 2*k + 1
		gain := (4 / math.Pi) * (1 / float64(n)) * lanczosSigma(n, 2*harmonicCount)
		partials = append(partials, Partial{FreqMultiplier: float64(n), Gain: gain})
	}
	return partials
}

// SawPartials returns all-harmonic partials (1, 1/2, 1/3, ...) for a
// band-limited sawtooth approximation up to harmonicCount harmonics.
func SawPartials(harmonicCount int) []Partial {
	partials := make([]Partial, 0, harmonicCount)
	for k := 1; k <= harmonicCount; k++ {
		gain := (2 / math.Pi) * (1 / float64(k)) * lanczosSigma(k, harmonicCount)
		sign := 1.0
		if k%2 == 0 {
			sign = -1.0
		}
		partials = append(partials, Partial{FreqMultiplier: float64(k), Gain: sign * gain})
	}
	return partials
}

// TrianglePartials returns odd-harmonic, alternating-sign, inverse-square
// decaying partials for a band-limited triangle approximation.
func TrianglePartials(harmonicCount int) []Partial {
	partials := make([]Partial, 0, harmonicCount)
	for k := 0; k < harmonicCount; k++ {
		n := 2*k + 1
		gain := (8 / (math.Pi * math.Pi)) * (1 / float64(n*n)) * lanczosSigma(n, 2*harmonicCount)
		sign := 1.0
		if k%2 == 1 {
			sign = -1.0
		}
		partials = append(partials, Partial{FreqMultiplier: float64(n), Gain: sign * gain})
	}
	return partials
}
