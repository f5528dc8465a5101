// Package decoder defines the AudioDecoder contract StreamingGenerator
// drives from its background thread (spec §4.7, §8 "one background decoder
// thread per StreamingGenerator"), plus a concrete Opus-backed
// implementation.
//
// Grounded in the teacher's interfaces.go, which defines small, single-
// purpose interfaces (AudioSource, Transport) that client/audio.go wires
// concrete implementations into at startup (client/main.go). AudioDecoder
// below plays the same role for the engine's generators that
// interfaces.AudioSource plays for the voice client's capture pipeline.
package decoder

import "errors"

// AudioDecoder produces PCM frames at its own native sample rate and
// channel count; StreamingGenerator resamples its output to config.SR with
// a biquad anti-alias lowpass followed by linear interpolation.
type AudioDecoder interface {
	// SampleRate returns the decoder's native output rate in Hz.
	SampleRate() int

	// Channels returns the decoder's native output channel count.
	Channels() int

	// ReadFrames decodes up to len(out)/Channels() frames into out
	// (interleaved [frame][channel]) and returns the number of frames
	// actually written. A short read that is not EOF means underrun, not
	// end of stream; callers should zero-fill the remainder.
	ReadFrames(out []float32) (frames int, err error)

	// Seek repositions the decoder to the given frame offset from the
	// stream's start. Returns false if the decoder cannot seek to that
	// position (StreamingGenerator then drops that seek request and logs
	// it).
	Seek(framePos int64) (ok bool, err error)

	// Duration returns the stream's total length in frames, or -1 if
	// unknown (e.g. a live or chunked network stream).
	Duration() int64

	// Close releases the decoder's underlying resources.
	Close() error
}

// ErrUnsupportedSeek is returned by decoders that cannot seek at all (as
// opposed to Seek's ok=false, which covers "this decoder can seek in
// general but not to this position").
var ErrUnsupportedSeek = errors.New("decoder: stream does not support seeking")
