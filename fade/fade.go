// Package fade implements the linear gain-fade driver shared by routes
// (spec §4.9), per-source and per-generator gains, and any other DSP stage
// that must never present a discontinuous gain step to the listener.
//
// Grounded in the teacher's agc.AGC, which smooths a gain multiplier toward
// a target using independent attack/release coefficients
// (client/internal/agc/agc.go) — generalized here from "exponential
// one-pole toward a moving target" to "linear ramp over an exact number of
// blocks to a known target", since spec §4.9 requires fades to complete in
// precisely fade_time_in_blocks blocks, not asymptotically.
package fade

import "github.com/rustyguts/bken-engine/config"

// Driver linearly ramps a gain value from one level to another over a fixed
// number of samples. The zero value is a Driver steady at gain 0; use
// NewSteady to start somewhere specific.
//
// Every call site drives Advance() once per sample (direct_source.go,
// source.go's writeRoutes), but callers arm fades in block counts (spec
// §4.9's fade_time_in_blocks). StartFade converts blocks to samples so a
// "1-block" fade spans a full config.BlockSize samples, not a single one.
type Driver struct {
	prev, target float64
	sample       int // current sample within the fade, 0-based
	totalSamples int // fade length in samples; 0 means "already at target"
}

// NewSteady returns a Driver that is immediately steady at gain.
func NewSteady(gain float64) Driver {
	return Driver{prev: gain, target: gain, totalSamples: 0}
}

// StartFade begins a new fade from the driver's current value to target
// over totalBlocks blocks of config.BlockSize samples each. totalBlocks < 1
// is clamped to 1 (spec §3 invariant: "fade_time_in_blocks for any fade is
// >= 1").
func (d *Driver) StartFade(target float64, totalBlocks int) {
	if totalBlocks < 1 {
		totalBlocks = 1
	}
	d.prev = d.Value()
	d.target = target
	d.sample = 0
	d.totalSamples = totalBlocks * config.BlockSize
}

// Value returns the current gain without advancing the fade.
func (d *Driver) Value() float64 {
	if d.totalSamples == 0 {
		return d.target
	}
	t := float64(d.sample) / float64(d.totalSamples)
	return d.prev + (d.target-d.prev)*t
}

// Advance moves the driver forward by one sample and returns the gain for
// that sample. Once the fade completes it keeps returning target.
func (d *Driver) Advance() float64 {
	v := d.Value()
	if d.totalSamples > 0 && d.sample < d.totalSamples {
		d.sample++
	}
	if d.sample >= d.totalSamples {
		d.totalSamples = 0
		d.prev = d.target
	}
	return v
}

// Done reports whether the fade has reached its target.
func (d *Driver) Done() bool {
	return d.totalSamples == 0 || d.sample >= d.totalSamples
}

// Target returns the value the driver is fading toward (or holding at).
func (d *Driver) Target() float64 { return d.target }

// Combined multiplies two drivers' current values, advancing each by one
// sample, so that two gain trajectories compose by multiplication rather
// than one replacing the other. Sources have no pause state, and nothing
// else in the engine calls Combined.
func Combined(a, b *Driver) float64 {
	return a.Advance() * b.Advance()
}
