package generator

import (
	"io"
	"math"
	"testing"

	"github.com/rustyguts/bken-engine/config"
	"github.com/rustyguts/bken-engine/fade"
)

func steadyGain(g float64) *fade.Driver {
	d := fade.NewSteady(g)
	return &d
}

func TestBufferRoundTripsWithinQuantizationError(t *testing.T) {
	const n = 128
	data := make([]float32, n)
	for i := range data {
		data[i] = float32(math.Sin(2 * math.Pi * float64(i) / float64(n)))
	}
	buf := NewBufferFromFloat32(44100, 1, n, data)
	reader := NewBufferReader(buf)
	for i := 0; i < n; i++ {
		got := reader.Frame(i, 0)
		diff := math.Abs(float64(got - data[i]))
		if diff > 1.0/32768+1e-6 {
			t.Fatalf("frame %d: got %v want %v (diff %v exceeds 16-bit quantization)", i, got, data[i], diff)
		}
	}
}

func TestBufferGeneratorNoPitchBendPlaysThrough(t *testing.T) {
	const n = 512
	data := make([]float32, n)
	for i := range data {
		data[i] = 0.5
	}
	buf := NewBufferFromFloat32(44100, 1, n, data)
	gen := NewBufferGenerator(buf)

	dest := make([]float32, n)
	gen.GenerateBlock(dest, steadyGain(1))
	for i, v := range dest {
		if math.Abs(float64(v)-0.5) > 1e-3 {
			t.Fatalf("sample %d = %v, want ~0.5", i, v)
		}
	}
	if _, ok := gen.StartLingering(); !ok {
		t.Fatal("finished buffer generator should report lingering ok")
	}
}

func TestBufferGeneratorLoops(t *testing.T) {
	data := []float32{1, 0, -1, 0}
	buf := NewBufferFromFloat32(44100, 1, len(data), data)
	gen := NewBufferGenerator(buf)
	gen.SetLooping(true)

	dest := make([]float32, 16)
	gen.GenerateBlock(dest, steadyGain(1))
	for i, v := range dest {
		want := data[i%len(data)]
		if math.Abs(float64(v-want)) > 1e-3 {
			t.Fatalf("looped sample %d = %v, want %v", i, v, want)
		}
	}
}

func TestBufferGeneratorPitchBendInterpolates(t *testing.T) {
	data := []float32{0, 1, 0, -1}
	buf := NewBufferFromFloat32(44100, 1, len(data), data)
	gen := NewBufferGenerator(buf)
	gen.SetPitchBend(0.5)

	dest := make([]float32, 4)
	gen.GenerateBlock(dest, steadyGain(1))
	// At half speed, sample 1 should be halfway between data[0] and data[1].
	want := (data[0] + data[1]) / 2
	if math.Abs(float64(dest[1]-want)) > 1e-3 {
		t.Fatalf("pitch-bent sample 1 = %v, want ~%v", dest[1], want)
	}
}

func TestFastSineBankProducesBoundedSignal(t *testing.T) {
	bank := NewFastSineBank(44100, 440, []Partial{{FreqMultiplier: 1, Gain: 1}})
	dest := make([]float32, config.BlockSize)
	for b := 0; b < 10; b++ {
		for i := range dest {
			dest[i] = 0
		}
		bank.GenerateBlock(dest, steadyGain(1))
		for i, v := range dest {
			if math.Abs(float64(v)) > 1.01 {
				t.Fatalf("block %d sample %d exceeded unity: %v", b, i, v)
			}
		}
	}
}

func TestFastSineBankMatchesTrueSinePhase(t *testing.T) {
	const sr = 44100.0
	const freq = 1000.0
	bank := NewFastSineBank(sr, freq, []Partial{{FreqMultiplier: 1, Gain: 1}})
	dest := make([]float32, 256)
	bank.GenerateBlock(dest, steadyGain(1))
	for i, v := range dest {
		want := math.Sin(2 * math.Pi * freq * float64(i) / sr)
		if math.Abs(float64(v)-want) > 0.01 {
			t.Fatalf("sample %d = %v, want ~%v (recurrence drifted)", i, v, want)
		}
	}
}

func TestSquarePartialsApproximatesSquareWave(t *testing.T) {
	partials := SquarePartials(20)
	bank := NewFastSineBank(44100, 200, partials)
	dest := make([]float32, 512)
	bank.GenerateBlock(dest, steadyGain(1))
	for i, v := range dest {
		if math.Abs(float64(v)) > 1.3 {
			t.Fatalf("square approximation sample %d exceeded bound: %v", i, v)
		}
	}
}

func TestNoiseGeneratorUniformIsBounded(t *testing.T) {
	g := NewNoiseGenerator(NoiseModeUniform, 12345, config.SR)
	dest := make([]float32, 4096)
	g.GenerateBlock(dest, steadyGain(1))
	for i, v := range dest {
		if v < -1 || v > 1 {
			t.Fatalf("uniform noise sample %d out of range: %v", i, v)
		}
	}
}

func TestNoiseGeneratorUniformVariesWithSeed(t *testing.T) {
	a := NewNoiseGenerator(NoiseModeUniform, 1, config.SR)
	b := NewNoiseGenerator(NoiseModeUniform, 2, config.SR)
	da := make([]float32, 64)
	db := make([]float32, 64)
	a.GenerateBlock(da, steadyGain(1))
	b.GenerateBlock(db, steadyGain(1))
	same := true
	for i := range da {
		if da[i] != db[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatal("different seeds produced identical noise streams")
	}
}

func TestNoiseGeneratorPinkIsBoundedAndNonzero(t *testing.T) {
	g := NewNoiseGenerator(NoiseModePink, 42, config.SR)
	dest := make([]float32, 8192)
	g.GenerateBlock(dest, steadyGain(1))
	nonzero := false
	for _, v := range dest {
		if v < -1 || v > 1 {
			t.Fatalf("pink noise sample out of range: %v", v)
		}
		if v != 0 {
			nonzero = true
		}
	}
	if !nonzero {
		t.Fatal("pink noise generator produced all zeros")
	}
}

func TestNoiseGeneratorBrownIsLowFrequencyBiased(t *testing.T) {
	g := NewNoiseGenerator(NoiseModeBrown, 7, config.SR)
	dest := make([]float32, 16384)
	g.GenerateBlock(dest, steadyGain(1))

	// A crude low-frequency bias check: brown noise should have much less
	// sample-to-sample variation than white noise.
	diffSum := 0.0
	for i := 1; i < len(dest); i++ {
		diffSum += math.Abs(float64(dest[i] - dest[i-1]))
	}
	avgDiff := diffSum / float64(len(dest)-1)
	if avgDiff > 0.3 {
		t.Fatalf("brown noise sample-to-sample variation too high: %v", avgDiff)
	}
}

// fakeStreamDecoder feeds a fixed set of samples then reports EOF, used to
// exercise StreamingGenerator without real Opus data.
type fakeStreamDecoder struct {
	sr, ch  int
	samples []float32
	pos     int
}

func (f *fakeStreamDecoder) SampleRate() int { return f.sr }
func (f *fakeStreamDecoder) Channels() int   { return f.ch }
func (f *fakeStreamDecoder) Duration() int64 { return int64(len(f.samples) / f.ch) }
func (f *fakeStreamDecoder) Close() error    { return nil }

func (f *fakeStreamDecoder) ReadFrames(out []float32) (int, error) {
	frames := len(out) / f.ch
	avail := len(f.samples)/f.ch - f.pos
	if avail <= 0 {
		return 0, io.EOF
	}
	if frames > avail {
		frames = avail
	}
	n := copy(out, f.samples[f.pos*f.ch:(f.pos+frames)*f.ch])
	f.pos += n / f.ch
	return n / f.ch, nil
}

func (f *fakeStreamDecoder) Seek(framePos int64) (bool, error) {
	f.pos = int(framePos)
	return true, nil
}

func TestStreamingGeneratorProducesSilenceOnUnderrun(t *testing.T) {
	dec := &fakeStreamDecoder{sr: config.SR, ch: 1, samples: []float32{}}
	g := NewStreamingGenerator(dec, false, nil)
	defer g.Close()

	dest := make([]float32, config.BlockSize)
	gainDriver := steadyGain(1)
	// Give the background goroutine a moment to publish (or fail to
	// publish) a slot; GenerateBlock must still only ever add bounded,
	// non-NaN values even on underrun.
	g.GenerateBlock(dest, gainDriver)
	for i, v := range dest {
		if math.IsNaN(float64(v)) || math.Abs(float64(v)) > 1e-3 {
			t.Fatalf("underrun sample %d not silent: %v", i, v)
		}
	}
}
