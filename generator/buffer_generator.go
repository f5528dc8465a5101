package generator

import (
	"github.com/rustyguts/bken-engine/fade"
)

// BufferGenerator plays back an immutable Buffer, optionally pitch-bent and
// looping (spec §4.7 "BufferGenerator").
type BufferGenerator struct {
	reader *BufferReader

	// position is the playback cursor in fixed-point samples
	// (bufferPosMultiplier per integer frame), letting pitch bend
	// accumulate fractional deltas without drift.
	position int64

	looping   bool
	pitchBend float64 // PITCH_BEND property: multiplies the per-sample delta
	finished  bool
}

// NewBufferGenerator returns a BufferGenerator reading buf from frame 0.
func NewBufferGenerator(buf *Buffer) *BufferGenerator {
	return &BufferGenerator{
		reader:    NewBufferReader(buf),
		pitchBend: 1.0,
	}
}

// Channels returns the underlying buffer's channel count.
func (g *BufferGenerator) Channels() int { return g.reader.Channels() }

// SetLooping controls whether playback wraps at the buffer's end instead
// of finishing.
func (g *BufferGenerator) SetLooping(loop bool) { g.looping = loop }

// SetPitchBend sets the PITCH_BEND property: 1.0 is native speed, 2.0 is an
// octave up, 0.5 an octave down.
func (g *BufferGenerator) SetPitchBend(bend float64) { g.pitchBend = bend }

// SetPositionFrames seeks the read cursor to an integer frame index.
func (g *BufferGenerator) SetPositionFrames(frame int) {
	g.position = int64(frame) * bufferPosMultiplier
	g.finished = false
}

// PositionFrames returns the current integer frame position.
func (g *BufferGenerator) PositionFrames() int {
	return int(g.position / bufferPosMultiplier)
}

// GenerateBlock fills dest with BLOCK_SIZE*Channels() frames of buffer
// content, taking the no-pitch-bend fast path when pitchBend == 1.0 and the
// sample-by-sample interpolated path otherwise (spec §4.7).
func (g *BufferGenerator) GenerateBlock(dest []float32, gainDriver *fade.Driver) {
	ch := g.Channels()
	frames := len(dest) / ch
	total := g.reader.FrameCount()

	for i := 0; i < frames; i++ {
		gain := gainDriver.Advance()
		if g.finished {
			continue
		}
		if g.pitchBend == 1.0 {
			idx := g.PositionFrames()
			if idx >= total {
				if g.looping && total > 0 {
					idx = idx % total
					g.position = int64(idx) * bufferPosMultiplier
				} else {
					g.finished = true
					continue
				}
			}
			for c := 0; c < ch; c++ {
				dest[i*ch+c] += float32(gain) * g.reader.Frame(idx, c)
			}
			g.position += bufferPosMultiplier
			continue
		}

		floorPos := g.position / bufferPosMultiplier
		frac := float64(g.position%bufferPosMultiplier) / float64(bufferPosMultiplier)
		idx := int(floorPos)
		if idx >= total {
			if g.looping && total > 0 {
				idx = idx % total
				frac = 0
				g.position = int64(idx) * bufferPosMultiplier
			} else {
				g.finished = true
				continue
			}
		}
		nextIdx := idx + 1
		if nextIdx >= total {
			if g.looping {
				nextIdx = 0
			} else {
				// Implicit trailing zero sample one past the end, per
				// spec §4.7: "a wrap strategy that may optionally include
				// the implicit zero sample one past the end for
				// non-looping reads".
				nextIdx = -1
			}
		}
		for c := 0; c < ch; c++ {
			a := g.reader.Frame(idx, c)
			var b float32
			if nextIdx >= 0 {
				b = g.reader.Frame(nextIdx, c)
			}
			sample := a + (b-a)*float32(frac)
			dest[i*ch+c] += float32(gain) * sample
		}

		delta := int64(float64(bufferPosMultiplier) * g.pitchBend)
		g.position += delta
	}
}

// StartLingering reports that a finished buffer generator has no tail to
// drain; a still-playing one isn't eligible to linger at all.
func (g *BufferGenerator) StartLingering() (float64, bool) {
	if g.finished {
		return 0, true
	}
	return 0, false
}
