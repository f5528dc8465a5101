// Package generator implements the engine's generator variants: buffer
// playback with pitch bend, background-decoded streaming, a fast sine
// bank, and multi-mode noise (spec §4.7).
//
// Grounded in the teacher's client/audio.go for the "own a background
// thread that feeds a ring the real-time thread drains" shape
// (StreamingGenerator, below), and in client/noise.go's RNNoise wrapper for
// the idea of a generator owning a self-contained, swappable DSP engine —
// though noise.go's RNNoise is a denoiser, not a source, so NoiseGenerator
// below is new code built from spec.md's PRNG description rather than an
// adaptation of noise.go.
package generator

import (
	"github.com/rustyguts/bken-engine/fade"
)

// Generator is the common interface every source holds a list of (spec
// §3 "Source. Generator list (weak refs)").
type Generator interface {
	// Channels returns how many channels this generator produces.
	Channels() int

	// GenerateBlock adds BLOCK_SIZE frames (interleaved by Channels()) into
	// dest, advancing gainDriver once per frame and applying that frame's
	// gain. dest is not cleared by
	// the generator; callers pre-zero it once per block before the first
	// generator mixes in.
	GenerateBlock(dest []float32, gainDriver *fade.Driver)

	// StartLingering reports how many seconds this generator would like to
	// keep producing after being detached (every generator here reports
	// 0: no tail). ok is true once the generator has finished and has
	// nothing left to produce, at which point the source drops it.
	StartLingering() (seconds float64, ok bool)
}
