// Package panner implements the engine's two panning strategies: a stereo
// constant-power pan and an HRTF panner with per-ear ITD and crossfaded
// impulse-response convolution (spec §4.6).
//
// Neither teacher file nor any other_examples/ file panners from mono to
// stereo the way spec.md describes — the closest relatives in the pack are
// b9e26630's RTP audio mixer (per-user buffering feeding a shared stereo
// bus) and c8aeb95b's FFT overlap-add convolution reverb (convolving a
// signal against an impulse response block by block). This package is
// therefore original DSP code, grounded in spec.md's formulas directly, but
// written in the teacher's texture: small exported structs with a
// SetSomething/ProcessBlock method pair, crossfades expressed the same way
// biquad.Crossfading expresses them (an active/inactive pair plus a linear
// blend over config.CrossfadeSamples), and delay lines built from
// delayline.BlockDelayLine rather than a bespoke ring.
package panner

import (
	"math"

	"github.com/rustyguts/bken-engine/config"
	"github.com/rustyguts/bken-engine/delayline"
)

// Panner is the common interface AngularPannedSource and ScalarPannedSource
// push their mixed-to-mono generator output through (spec §4.8).
type Panner interface {
	// SetAngles sets the panner's azimuth/elevation in degrees, arming a
	// crossfade from the previous angle's output to the new one.
	SetAngles(azimuth, elevation float64)

	// SetScalar sets a [-1, 1] pan scalar directly (stereo panners only use
	// this path natively; HRTF panners project it to an azimuth).
	SetScalar(scalar float64)

	// ProcessBlock pans one block of mono input, writing BLOCK_SIZE stereo
	// frames into outL/outR (each len(mono) long, pre-sized by the caller).
	ProcessBlock(mono, outL, outR []float32)
}

// StereoPanner implements spec §4.6's constant-power stereo pan: gains are
// (cos θ, sin θ) with θ = (scalar+1)/2 · π/2. A scalar set via SetAngles is
// derived by projecting (azimuth, elevation) onto the left/right axis.
type StereoPanner struct {
	prevL, prevR float64
	curL, curR   float64
	crossfading  bool
}

// NewStereoPanner returns a StereoPanner centered (scalar 0).
func NewStereoPanner() *StereoPanner {
	p := &StereoPanner{}
	p.setScalarGains(0)
	p.prevL, p.prevR = p.curL, p.curR
	return p
}

func (p *StereoPanner) setScalarGains(scalar float64) {
	if scalar < -1 {
		scalar = -1
	} else if scalar > 1 {
		scalar = 1
	}
	theta := (scalar + 1) / 2 * (math.Pi / 2)
	p.prevL, p.prevR = p.curL, p.curR
	p.curL = math.Cos(theta)
	p.curR = math.Sin(theta)
	p.crossfading = true
}

// SetScalar sets the pan position directly in [-1 (full left), 1 (full
// right)].
func (p *StereoPanner) SetScalar(scalar float64) {
	p.setScalarGains(scalar)
}

// SetAngles projects (azimuth, elevation) in degrees onto a scalar: azimuth
// 0 is centered, -90/+90 are hard left/right (elevation does not affect a
// stereo pan).
func (p *StereoPanner) SetAngles(azimuth, elevation float64) {
	az := wrapAzimuth(azimuth)
	// Fold azimuth into [-90, 90] as a pan scalar axis: behind the listener
	// pans the same as in front, mirrored by left/right only.
	if az > 90 && az <= 180 {
		az = 180 - az
	} else if az < -90 && az >= -180 {
		az = -180 - az
	}
	scalar := az / 90
	p.setScalarGains(scalar)
}

// ProcessBlock applies the (possibly crossfading) gain pair to mono input.
func (p *StereoPanner) ProcessBlock(mono, outL, outR []float32) {
	n := len(mono)
	if !p.crossfading {
		for i, x := range mono {
			outL[i] = float32(float64(x) * p.curL)
			outR[i] = float32(float64(x) * p.curR)
		}
		return
	}
	cf := config.CrossfadeSamples
	if cf > n {
		cf = n
	}
	for i, x := range mono {
		var t float64
		if cf > 0 {
			t = float64(i) / float64(cf)
		}
		if t > 1 {
			t = 1
		}
		l := p.prevL + (p.curL-p.prevL)*t
		r := p.prevR + (p.curR-p.prevR)*t
		outL[i] = float32(float64(x) * l)
		outR[i] = float32(float64(x) * r)
	}
	p.prevL, p.prevR = p.curL, p.curR
	p.crossfading = false
}

func wrapAzimuth(az float64) float64 {
	for az > 180 {
		az -= 360
	}
	for az < -180 {
		az += 360
	}
	return az
}

// HRTFPanner implements spec §4.6's HRTF panning: an input delay line feeds
// a crossfaded HRIR convolution, whose stereo output feeds an ITD delay
// line read with per-ear fractional delay.
type HRTFPanner struct {
	dataset *Dataset

	inputLine *delayline.BlockDelayLine // 1 lane, mono source history
	itdLine   *delayline.BlockDelayLine // 2 lanes, post-convolution stereo

	prevLeft, prevRight HRIR
	curLeft, curRight   HRIR
	convCrossfading     bool

	prevITDLeft, prevITDRight float64
	curITDLeft, curITDRight   float64
	itdCrossfading            bool
}

// NewHRTFPanner constructs an HRTFPanner reading HRIRs from dataset,
// centered at azimuth 0, elevation 0.
func NewHRTFPanner(dataset *Dataset) *HRTFPanner {
	p := &HRTFPanner{
		dataset:   dataset,
		inputLine: delayline.New(1, config.BlockSize, 2),
		itdLine:   delayline.New(2, config.BlockSize, 2),
	}
	left, right, itdL, itdR := dataset.Lookup(0, 0)
	p.curLeft, p.curRight = left, right
	p.prevLeft, p.prevRight = left, right
	p.curITDLeft, p.curITDRight = itdL, itdR
	p.prevITDLeft, p.prevITDRight = itdL, itdR
	return p
}

// SetScalar projects a [-1, 1] pan scalar onto azimuth in [-90, 90],
// elevation 0, and forwards to SetAngles.
func (p *HRTFPanner) SetScalar(scalar float64) {
	if scalar < -1 {
		scalar = -1
	} else if scalar > 1 {
		scalar = 1
	}
	p.SetAngles(scalar*90, 0)
}

// SetAngles arms a crossfade to the HRIR pair and ITD for (azimuth,
// elevation), both in degrees.
func (p *HRTFPanner) SetAngles(azimuth, elevation float64) {
	left, right, itdL, itdR := p.dataset.Lookup(azimuth, elevation)

	p.prevLeft, p.prevRight = p.curLeft, p.curRight
	p.curLeft, p.curRight = left, right
	p.convCrossfading = true

	p.prevITDLeft, p.prevITDRight = p.curITDLeft, p.curITDRight
	p.curITDLeft, p.curITDRight = itdL, itdR
	p.itdCrossfading = true
}

// ProcessBlock runs one block of mono input through the convolution and ITD
// stages, writing BLOCK_SIZE stereo frames to outL/outR.
func (p *HRTFPanner) ProcessBlock(mono, outL, outR []float32) {
	n := len(mono)

	writer := p.inputLine.NextBlockWriter()
	copy(writer, mono)
	p.inputLine.AdvanceBlock()

	convWriter := p.itdLine.NextBlockWriter()
	reader := p.inputLine.Reader(config.ImpulseLength + n)

	cf := config.CrossfadeSamples
	if cf > n {
		cf = n
	}
	for i := 0; i < n; i++ {
		back := n - 1 - i
		curL, curR := convolveSample(reader, back, p.curLeft, p.curRight)
		var l, r float64
		if p.convCrossfading {
			var t float64
			if cf > 0 {
				t = float64(i) / float64(cf)
			}
			if t > 1 {
				t = 1
			}
			prevL, prevR := convolveSample(reader, back, p.prevLeft, p.prevRight)
			l = prevL + (curL-prevL)*t
			r = prevR + (curR-prevR)*t
		} else {
			l, r = curL, curR
		}
		convWriter[i*2+0] = float32(l)
		convWriter[i*2+1] = float32(r)
	}
	p.itdLine.AdvanceBlock()
	if p.convCrossfading {
		p.prevLeft, p.prevRight = p.curLeft, p.curRight
		p.convCrossfading = false
	}

	itdReader := p.itdLine.Reader(config.HRTFMaxITD + n + 1)
	for i := 0; i < n; i++ {
		back := n - 1 - i
		var itdL, itdR float64
		if p.itdCrossfading {
			var t float64
			if cf > 0 {
				t = float64(i) / float64(cf)
			}
			if t > 1 {
				t = 1
			}
			itdL = p.prevITDLeft + (p.curITDLeft-p.prevITDLeft)*t
			itdR = p.prevITDRight + (p.curITDRight-p.prevITDRight)*t
		} else {
			itdL, itdR = p.curITDLeft, p.curITDRight
		}
		outL[i] = fractionalRead(itdReader, 0, back, itdL)
		outR[i] = fractionalRead(itdReader, 1, back, itdR)
	}
	if p.itdCrossfading {
		p.prevITDLeft, p.prevITDRight = p.curITDLeft, p.curITDRight
		p.itdCrossfading = false
	}
}

// convolveSample convolves the impulse responses against the input line at
// the sample `back` frames behind the line's current head.
func convolveSample(r delayline.ModPointer, back int, left, right HRIR) (float64, float64) {
	var l, rr float64
	for k := 0; k < len(left); k++ {
		x := float64(r.At(0, back+k))
		l += x * left[k]
		rr += x * right[k]
	}
	return l, rr
}

// fractionalRead reads lane from r at a fractional delay of itd samples
// behind back, linearly interpolating between the two surrounding samples
// (spec §4.6: "reads from the ITD line with linear interpolation").
func fractionalRead(r delayline.ModPointer, lane, back int, itd float64) float32 {
	if itd < 0 {
		itd = 0
	}
	if itd > config.HRTFMaxITD {
		itd = config.HRTFMaxITD
	}
	whole := int(itd)
	frac := itd - float64(whole)
	a := r.At(lane, back+whole)
	b := r.At(lane, back+whole+1)
	return float32((1-frac)*float64(a) + frac*float64(b))
}
