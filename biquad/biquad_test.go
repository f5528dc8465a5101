package biquad

import (
	"math"
	"testing"
)

func TestIdentityPassesThrough(t *testing.T) {
	f := Filter{}
	f.SetCoeffs(Identity())
	in := []float32{0.1, -0.2, 0.3, 0.0, -1.0}
	out := make([]float32, len(in))
	copy(out, in)
	f.Process(out)
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("identity filter altered sample %d: got %v want %v", i, out[i], in[i])
		}
	}
}

func TestLowpassAttenuatesHighFrequency(t *testing.T) {
	const sr = 44100.0
	c := Lowpass(200, sr, 0.707)
	f := Filter{}
	f.SetCoeffs(c)

	n := 4096
	buf := make([]float32, n)
	for i := range buf {
		buf[i] = float32(math.Sin(2 * math.Pi * 8000 * float64(i) / sr))
	}
	f.Process(buf)

	rms := 0.0
	for _, s := range buf[n/2:] {
		rms += float64(s) * float64(s)
	}
	rms = math.Sqrt(rms / float64(n/2))
	if rms > 0.1 {
		t.Fatalf("lowpass did not sufficiently attenuate 8kHz tone, rms=%v", rms)
	}
}

func TestLowpassPassesLowFrequency(t *testing.T) {
	const sr = 44100.0
	c := Lowpass(4000, sr, 0.707)
	f := Filter{}
	f.SetCoeffs(c)

	n := 4096
	buf := make([]float32, n)
	for i := range buf {
		buf[i] = float32(math.Sin(2 * math.Pi * 100 * float64(i) / sr))
	}
	f.Process(buf)

	rms := 0.0
	for _, s := range buf[n/2:] {
		rms += float64(s) * float64(s)
	}
	rms = math.Sqrt(rms / float64(n/2))
	if rms < 0.5 {
		t.Fatalf("lowpass over-attenuated a 100Hz tone, rms=%v", rms)
	}
}

func TestCrossfadingCompletesWithinOneBlock(t *testing.T) {
	cf := NewCrossfading()
	cf.Reconfigure(Lowpass(200, 44100, 0.707))

	buf := make([]float32, 256)
	for i := range buf {
		buf[i] = 1
	}
	cf.Process(buf, len(buf))
	if cf.crossfading {
		t.Fatal("crossfade still pending after one full block")
	}

	// A second block should now run entirely on the new filter with no
	// further discontinuity.
	buf2 := make([]float32, 256)
	for i := range buf2 {
		buf2[i] = 1
	}
	cf.Process(buf2, len(buf2))
	if cf.crossfading {
		t.Fatal("unexpected crossfade armed on steady-state block")
	}
}

func TestDCBlockerRemovesOffset(t *testing.T) {
	f := Filter{}
	f.SetCoeffs(DCBlocker(0.995))
	buf := make([]float32, 8192)
	for i := range buf {
		buf[i] = 0.5
	}
	f.Process(buf)
	tail := buf[len(buf)-256:]
	mean := 0.0
	for _, s := range tail {
		mean += float64(s)
	}
	mean /= float64(len(tail))
	if math.Abs(mean) > 0.01 {
		t.Fatalf("DC blocker left residual offset %v", mean)
	}
}

func TestWindowedSincLowpassNormalizesToUnityDC(t *testing.T) {
	taps := WindowedSincLowpass(1000, 44100, 63)
	sum := 0.0
	for _, k := range taps {
		sum += k
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Fatalf("sinc kernel DC gain = %v, want 1", sum)
	}
	if len(taps) != 63 {
		t.Fatalf("expected odd tap count preserved, got %d", len(taps))
	}
}

func TestSeriesComposesFilters(t *testing.T) {
	hp := &Filter{}
	hp.SetCoeffs(Highpass(1000, 44100, 0.707))
	lp := &Filter{}
	lp.SetCoeffs(Lowpass(4000, 44100, 0.707))
	s := Series{hp, lp}

	buf := make([]float32, 512)
	buf[0] = 1
	s.Process(buf)
	// A bandpass-like series should not blow up or produce NaN/Inf.
	for i, v := range buf {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			t.Fatalf("series filter produced invalid sample at %d: %v", i, v)
		}
	}
}
