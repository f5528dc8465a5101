package panner

import (
	"math"
	"testing"

	"github.com/rustyguts/bken-engine/config"
)

func TestStereoPannerCenterIsEqualGain(t *testing.T) {
	p := NewStereoPanner()
	mono := make([]float32, config.BlockSize)
	for i := range mono {
		mono[i] = 1
	}
	outL := make([]float32, len(mono))
	outR := make([]float32, len(mono))
	p.ProcessBlock(mono, outL, outR)
	// NewStereoPanner starts its previous gains at center, so the first
	// block's crossfade runs center to center; check the tail, where the
	// fade has completed.
	last := len(mono) - 1
	if math.Abs(float64(outL[last])-float64(outR[last])) > 1e-3 {
		t.Fatalf("centered pan not equal gain: L=%v R=%v", outL[last], outR[last])
	}
}

func TestStereoPannerHardLeft(t *testing.T) {
	p := NewStereoPanner()
	p.SetScalar(-1)
	mono := make([]float32, config.BlockSize)
	for i := range mono {
		mono[i] = 1
	}
	outL := make([]float32, len(mono))
	outR := make([]float32, len(mono))
	p.ProcessBlock(mono, outL, outR)
	last := len(mono) - 1
	if outR[last] > 0.01 {
		t.Fatalf("hard left pan leaked into right channel: %v", outR[last])
	}
	if outL[last] < 0.99 {
		t.Fatalf("hard left pan did not reach full left gain: %v", outL[last])
	}
}

func TestStereoPannerCrossfadesWithoutDiscontinuity(t *testing.T) {
	p := NewStereoPanner()
	mono := make([]float32, config.BlockSize)
	for i := range mono {
		mono[i] = 1
	}
	outL := make([]float32, len(mono))
	outR := make([]float32, len(mono))
	p.ProcessBlock(mono, outL, outR) // settle initial crossfade

	p.SetScalar(1)
	p.ProcessBlock(mono, outL, outR)
	for i := 1; i < len(outL); i++ {
		if math.Abs(float64(outL[i]-outL[i-1])) > 0.05 {
			t.Fatalf("stereo pan crossfade stepped discontinuously at %d: %v -> %v", i, outL[i-1], outL[i])
		}
	}
}

func TestDatasetLookupReturnsNormalizedImpulses(t *testing.T) {
	d := NewSyntheticDataset(30, 24)
	left, right, itdL, itdR := d.Lookup(45, 0)
	if len(left) != config.ImpulseLength || len(right) != config.ImpulseLength {
		t.Fatalf("unexpected impulse length: %d/%d", len(left), len(right))
	}
	if itdL < 0 || itdR < 0 {
		t.Fatalf("ITD should never be negative per-ear: left=%v right=%v", itdL, itdR)
	}
	if itdL > config.HRTFMaxITD || itdR > config.HRTFMaxITD {
		t.Fatalf("ITD exceeded HRTFMaxITD: left=%v right=%v", itdL, itdR)
	}
}

func TestDatasetFrontHasNoITD(t *testing.T) {
	d := NewSyntheticDataset(30, 24)
	_, _, itdL, itdR := d.Lookup(0, 0)
	if itdL > 1e-6 || itdR > 1e-6 {
		t.Fatalf("front-facing source should have ~zero ITD, got left=%v right=%v", itdL, itdR)
	}
}

func TestDatasetMirrorsRightEarAcrossAzimuth(t *testing.T) {
	d := NewSyntheticDataset(30, 24)
	leftAt90, rightAt90, _, _ := d.Lookup(90, 0)
	leftAtMinus90, _, _, _ := d.Lookup(-90, 0)
	// The right ear at +90 should closely match the left ear at -90, since
	// the dataset mirrors azimuth 360-az for the right ear.
	maxDiff := 0.0
	for i := range rightAt90 {
		diff := math.Abs(rightAt90[i] - leftAtMinus90[i])
		if diff > maxDiff {
			maxDiff = diff
		}
	}
	if maxDiff > 0.3 {
		t.Fatalf("right-ear mirroring diverged too much: maxDiff=%v", maxDiff)
	}
	_ = leftAt90
}

func TestHRTFPannerProducesFiniteOutput(t *testing.T) {
	d := NewSyntheticDataset(30, 24)
	p := NewHRTFPanner(d)
	mono := make([]float32, config.BlockSize)
	for i := range mono {
		mono[i] = float32(math.Sin(2 * math.Pi * 440 * float64(i) / config.SR))
	}
	outL := make([]float32, len(mono))
	outR := make([]float32, len(mono))

	p.SetAngles(30, 10)
	for b := 0; b < 4; b++ {
		p.ProcessBlock(mono, outL, outR)
		for i := range outL {
			if math.IsNaN(float64(outL[i])) || math.IsInf(float64(outL[i]), 0) {
				t.Fatalf("HRTF panner produced invalid left sample at block %d idx %d", b, i)
			}
			if math.IsNaN(float64(outR[i])) || math.IsInf(float64(outR[i]), 0) {
				t.Fatalf("HRTF panner produced invalid right sample at block %d idx %d", b, i)
			}
		}
	}
}
