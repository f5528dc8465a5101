package decoder

import (
	"io"
	"testing"
)

// fakeDecoder is a minimal AudioDecoder used to exercise code that depends
// on the interface without requiring real Opus packet data.
type fakeDecoder struct {
	sr, ch   int
	samples  []float32
	pos      int64
	duration int64
}

func (f *fakeDecoder) SampleRate() int { return f.sr }
func (f *fakeDecoder) Channels() int   { return f.ch }
func (f *fakeDecoder) Duration() int64 { return f.duration }

func (f *fakeDecoder) ReadFrames(out []float32) (int, error) {
	frames := len(out) / f.ch
	available := (len(f.samples)/f.ch) - int(f.pos)
	if available <= 0 {
		return 0, io.EOF
	}
	if frames > available {
		frames = available
	}
	start := int(f.pos) * f.ch
	n := copy(out, f.samples[start:start+frames*f.ch])
	f.pos += int64(n / f.ch)
	return n / f.ch, nil
}

func (f *fakeDecoder) Seek(framePos int64) (bool, error) {
	if framePos < 0 || framePos > int64(len(f.samples)/f.ch) {
		return false, nil
	}
	f.pos = framePos
	return true, nil
}

func (f *fakeDecoder) Close() error { return nil }

func TestFakeDecoderSatisfiesAudioDecoder(t *testing.T) {
	var _ AudioDecoder = (*fakeDecoder)(nil)
}

func TestFakeDecoderReadFramesAndSeek(t *testing.T) {
	d := &fakeDecoder{sr: 48000, ch: 2, samples: make([]float32, 2*100), duration: 100}
	for i := range d.samples {
		d.samples[i] = float32(i)
	}

	buf := make([]float32, 2*10)
	n, err := d.ReadFrames(buf)
	if err != nil || n != 10 {
		t.Fatalf("ReadFrames = %d, %v; want 10, nil", n, err)
	}

	ok, err := d.Seek(50)
	if !ok || err != nil {
		t.Fatalf("Seek(50) = %v, %v", ok, err)
	}
	n, err = d.ReadFrames(buf)
	if err != nil || n != 10 {
		t.Fatalf("ReadFrames after seek = %d, %v", n, err)
	}
	if buf[0] != 100 {
		t.Fatalf("seek landed at wrong frame, buf[0]=%v want 100", buf[0])
	}
}

func TestFakeDecoderEOFAtEnd(t *testing.T) {
	d := &fakeDecoder{sr: 48000, ch: 1, samples: make([]float32, 5), duration: 5}
	buf := make([]float32, 10)
	n, err := d.ReadFrames(buf)
	if n != 5 {
		t.Fatalf("expected short read of 5 frames, got %d", n)
	}
	_ = err

	n, err = d.ReadFrames(buf)
	if err != io.EOF || n != 0 {
		t.Fatalf("expected EOF on fully drained decoder, got n=%d err=%v", n, err)
	}
}
