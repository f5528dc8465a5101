package effect

import (
	"math"
	"testing"

	"github.com/rustyguts/bken-engine/config"
)

func TestEchoEffectAppliesConfiguredDelay(t *testing.T) {
	e := NewEchoEffect()
	e.SetTaps([]EchoTap{{DelaySamples: config.BlockSize + 100, GainL: 1, GainR: 1}})

	const block = config.BlockSize
	in := make([]float32, block)
	outL := make([]float32, block)
	outR := make([]float32, block)

	// Drive an impulse through the line, then silence, and look for the
	// impulse to reappear one block plus 100 samples later, in the next
	// block, after the tap's initial crossfade has finished.
	in[0] = 1
	e.Run(1, in, outL, outR, 0)
	for i := range in {
		in[i] = 0
	}

	found := false
	for block2 := 0; block2 < 4 && !found; block2++ {
		for i := range outL {
			outL[i], outR[i] = 0, 0
		}
		e.Run(1, in, outL, outR, int64(block2+1))
		for _, v := range outL {
			if v > 0.5 {
				found = true
			}
		}
	}
	if !found {
		t.Fatal("expected the impulse to reappear via the configured tap")
	}
}

func TestEchoEffectCrossfadesTapChanges(t *testing.T) {
	e := NewEchoEffect()
	e.SetTaps([]EchoTap{{DelaySamples: 10, GainL: 1, GainR: 1}})

	const block = config.BlockSize
	in := make([]float32, block)
	for i := range in {
		in[i] = 1
	}
	outL := make([]float32, block)
	outR := make([]float32, block)

	e.Run(1, in, outL, outR, 0)
	e.Run(1, in, outL, outR, 1)

	e.SetTaps([]EchoTap{{DelaySamples: 10, GainL: 0, GainR: 0}})
	for i := range outL {
		outL[i], outR[i] = 0, 0
	}
	e.Run(1, in, outL, outR, 2)

	// Mid-crossfade the contribution should ramp down across the block,
	// so the first sample should carry more energy than the last.
	if math.Abs(float64(outL[0])) <= math.Abs(float64(outL[len(outL)-1])) {
		t.Fatalf("expected tap crossfade to ramp down across the block: first=%v last=%v", outL[0], outL[len(outL)-1])
	}
}

func TestEchoEffectResetClearsHistory(t *testing.T) {
	e := NewEchoEffect()
	e.SetTaps([]EchoTap{{DelaySamples: 5, GainL: 1, GainR: 1}})

	const block = config.BlockSize
	in := make([]float32, block)
	in[0] = 1
	outL := make([]float32, block)
	outR := make([]float32, block)
	e.Run(1, in, outL, outR, 0)

	e.Reset()

	for i := range in {
		in[i] = 0
	}
	for i := range outL {
		outL[i], outR[i] = 0, 0
	}
	e.Run(1, in, outL, outR, 1)
	for _, v := range outL {
		if v != 0 {
			t.Fatalf("expected Reset to clear prior history, found leftover sample %v", v)
		}
	}
}

func TestFdnReverbDelaysAreCoprimeAndDistinct(t *testing.T) {
	r := NewFdnReverb(FdnReverbParams{MeanFreePath: 0.03, T60: 1.5, Diffusion: 0.5})

	seen := map[int]bool{}
	for _, d := range r.delaySamples {
		if seen[d] {
			t.Fatalf("delay line lengths must be distinct, found duplicate %d", d)
		}
		seen[d] = true
		if !isPrime(d) {
			t.Fatalf("expected delay length %d to be prime", d)
		}
	}
}

func TestFdnReverbGainDecaysWithDelayLength(t *testing.T) {
	r := NewFdnReverb(FdnReverbParams{MeanFreePath: 0.03, T60: 1.0, Diffusion: 0.3})

	for i, g := range r.lineGain {
		if g <= 0 || g >= 1 {
			t.Fatalf("line %d gain %v should be in (0, 1) for a decaying reverb", i, g)
		}
	}
}

func TestFdnReverbProducesOutputFromImpulse(t *testing.T) {
	r := NewFdnReverb(FdnReverbParams{MeanFreePath: 0.05, T60: 0.5, Diffusion: 0.2})

	const block = config.BlockSize
	in := make([]float32, block)
	in[0] = 1
	outL := make([]float32, block)
	outR := make([]float32, block)

	// The reverb shouldn't produce output before its shortest delay line's
	// length has elapsed.
	minDelay := r.delaySamples[0]
	for _, d := range r.delaySamples {
		if d < minDelay {
			minDelay = d
		}
	}

	// The shortest line can be longer than one block, so render blocks until
	// a full block past it has been produced. Each output channel sums only
	// half of the lines, so both channels are measured.
	var energyBefore, energyAfter float32
	blocks := minDelay/block + 2
	for b := 0; b < blocks; b++ {
		for i := range outL {
			outL[i], outR[i] = 0, 0
		}
		r.Run(1, in, outL, outR, int64(b))
		in[0] = 0
		for i := range outL {
			v := float32(math.Abs(float64(outL[i])) + math.Abs(float64(outR[i])))
			if b*block+i < minDelay {
				energyBefore += v
			} else {
				energyAfter += v
			}
		}
	}
	if energyBefore != 0 {
		t.Fatalf("expected silence before the shortest delay line elapses, got energy %v", energyBefore)
	}
	if energyAfter == 0 {
		t.Fatal("expected some output once the shortest delay line has elapsed")
	}
}

func TestFdnReverbRebuildsOnSetParams(t *testing.T) {
	r := NewFdnReverb(FdnReverbParams{MeanFreePath: 0.02, T60: 1.0, Diffusion: 0.1})
	before := r.delaySamples

	r.SetParams(FdnReverbParams{MeanFreePath: 0.08, T60: 2.0, Diffusion: 0.8})

	const block = config.BlockSize
	in := make([]float32, block)
	outL := make([]float32, block)
	outR := make([]float32, block)
	r.Run(1, in, outL, outR, 0)

	if r.delaySamples == before {
		t.Fatal("expected SetParams to change the delay configuration on the next Run")
	}
}
