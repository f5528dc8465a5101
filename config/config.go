// Package config holds the fixed, compile-time parameters every DSP
// component in the engine assumes, plus the small set of values a host can
// override when it creates a library instance.
//
// Grounded in the teacher's const blocks (client/audio.go: sampleRate,
// FrameSize, captureChannelBuf, ...) generalized from a single voice pipeline
// to the engine's full block-based graph.
package config

import "log"

const (
	// SR is the internal sample rate in Hz. Every DSP component (delay
	// lines, filters, panners, effects) is written against this rate; a
	// device running at a different rate gets resampled at the edge.
	SR = 44100

	// BlockSize is the number of frames the audio thread produces per
	// wake. Must be a power of two — hot loops rely on it for mod-free
	// wraparound math in the delay line's ModPointer.
	BlockSize = 256

	// CrossfadeSamples is the length, in samples, of the linear crossfade
	// applied whenever a panner's angle, a biquad's coefficients, or an
	// echo tap configuration changes, to avoid audible discontinuities.
	CrossfadeSamples = BlockSize

	// MaxChannels bounds the channel count any generator or source scratch
	// buffer can carry. Chosen generously for 7.1-ish multichannel buffers.
	MaxChannels = 8

	// HRTFMaxITD is the largest interaural time difference, in samples,
	// the HRTF panner will apply. Sits above the largest Woodworth ITD for
	// the panner's 8.75 cm head radius and 343 m/s speed of sound, which is
	// about 29 samples at SR.
	HRTFMaxITD = 34

	// FilterBlockCount is how often (in blocks) the router compacts dead
	// routes out of its vector.
	FilterBlockCount = 128

	// ImpulseLength is the number of taps in each HRIR dataset impulse
	// response the HRTF panner convolves against.
	ImpulseLength = 32

	// AutomationCompactThreshold is the number of consumed automation
	// points after which a timeline copies back its backing slice.
	AutomationCompactThreshold = 128
)

// BlockDuration is the wall-clock duration, in seconds, of one block.
const BlockDuration = float64(BlockSize) / float64(SR)

// DistanceModel selects how Source3D maps distance to gain.
type DistanceModel int

const (
	DistanceModelNone DistanceModel = iota
	DistanceModelLinear
	DistanceModelExponential
	DistanceModelInverse
)

// PannerStrategy selects the default panner implementation new panned
// sources are constructed with.
type PannerStrategy int

const (
	PannerStrategyHRTF PannerStrategy = iota
	PannerStrategyStereo
)

// LibraryConfig carries the handful of values a host can set at
// initialization. Mirrors config.Config / config.Default() in the teacher's
// internal/config package: a plain struct with a constructor returning
// sane defaults, no options-pattern indirection.
type LibraryConfig struct {
	// Logger receives all engine log output. Defaults to log.Default()
	// so embedding a logger is optional but always possible.
	Logger *log.Logger

	// Headless, when true, skips opening a real audio device; the host
	// pulls blocks explicitly via Context.GetBlock.
	Headless bool

	// DefaultPannerStrategy is the strategy new panned sources use unless
	// overridden per-source.
	DefaultPannerStrategy PannerStrategy

	// DefaultDistanceModel and its parameters seed new Source3D objects.
	DefaultDistanceModel     DistanceModel
	DefaultDistanceRef       float64
	DefaultDistanceMax       float64
	DefaultRolloff           float64
	DefaultClosenessBoost    float64
}

// Default returns a LibraryConfig with the engine's standard defaults.
func Default() LibraryConfig {
	return LibraryConfig{
		Logger:                log.Default(),
		Headless:              false,
		DefaultPannerStrategy: PannerStrategyHRTF,
		DefaultDistanceModel:  DistanceModelInverse,
		DefaultDistanceRef:    1.0,
		DefaultDistanceMax:    50.0,
		DefaultRolloff:        1.0,
		DefaultClosenessBoost: 0.0,
	}
}

// WithDefaults fills any zero-value fields of cfg with Default()'s values.
// Logger is the only field that needs this treatment since the rest have
// meaningful zero values (false/0 are valid settings for the others except
// where noted).
func (c LibraryConfig) WithDefaults() LibraryConfig {
	if c.Logger == nil {
		c.Logger = log.Default()
	}
	return c
}
