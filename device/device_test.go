package device

import "testing"

func TestHeadlessStartStopAreNoops(t *testing.T) {
	h := NewHeadless()
	if err := h.Start(func(outL, outR []float32) error { return nil }); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := h.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if h.Name() != "headless" {
		t.Fatalf("Name() = %q, want %q", h.Name(), "headless")
	}
}

func TestResampleStereoPreservesFrameCountAtUnityRatio(t *testing.T) {
	left := []float32{0, 1, 2, 3}
	right := []float32{0, -1, -2, -3}

	out := resampleStereo(left, right, 1.0)
	if len(out) != len(left)*2 {
		t.Fatalf("expected %d interleaved samples, got %d", len(left)*2, len(out))
	}
	for i := range left {
		if out[i*2] != left[i] || out[i*2+1] != right[i] {
			t.Fatalf("frame %d: got (%v, %v), want (%v, %v)", i, out[i*2], out[i*2+1], left[i], right[i])
		}
	}
}

func TestResampleStereoUpsamplesProportionally(t *testing.T) {
	left := []float32{0, 10}
	right := []float32{0, 0}

	out := resampleStereo(left, right, 2.0)
	if len(out) != 8 {
		t.Fatalf("expected 4 output frames (8 samples) at ratio 2.0, got %d samples", len(out))
	}
	// Roughly linear ramp from 0 toward 10 across the upsampled frames.
	if out[0] != 0 {
		t.Fatalf("expected the first output sample to match the first input sample, got %v", out[0])
	}
}
