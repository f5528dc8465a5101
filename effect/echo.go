package effect

import (
	"sync"

	"github.com/rustyguts/bken-engine/config"
	"github.com/rustyguts/bken-engine/delayline"
)

// EchoMaxSeconds bounds the delay line's length (spec §4.10: "A 2-channel
// BlockDelayLine sized for ≤ 5 s").
const EchoMaxSeconds = 5.0

// EchoTap is one tap of an echo configuration: a delay in samples and a
// per-ear gain.
type EchoTap struct {
	DelaySamples int
	GainL        float64
	GainR        float64
}

// EchoEffect is a 2-channel tapped delay line: every block it writes the
// downmixed input into the line, then reads back a configurable set of
// taps and sums them into the output (spec §4.10).
type EchoEffect struct {
	line *delayline.BlockDelayLine

	mu          sync.Mutex
	pendingTaps []EchoTap
	hasPending  bool

	taps        []EchoTap
	prevTaps    []EchoTap
	crossfading bool
	maxDelayTap int
}

// NewEchoEffect allocates an EchoEffect with a delay line long enough for
// EchoMaxSeconds at config.SR.
func NewEchoEffect() *EchoEffect {
	blocks := (config.SR*int(EchoMaxSeconds)+config.BlockSize-1)/config.BlockSize + 1
	if blocks < 2 {
		blocks = 2
	}
	return &EchoEffect{
		line: delayline.New(2, config.BlockSize, blocks),
	}
}

// SetTaps pushes a new tap configuration. This is safe to call from any
// client thread; the audio thread drains all pending pushes and keeps the
// last one (spec §4.10: "lock-free queue; drain all pending, last wins").
// A sync.Mutex substitutes for the teacher's lock-free SPSC queue here
// since tap reconfiguration is rare (a user-initiated property set, not a
// per-sample operation) and does not sit in the hot per-sample loop the
// way the ring package's queues do.
func (e *EchoEffect) SetTaps(taps []EchoTap) {
	e.mu.Lock()
	e.pendingTaps = append([]EchoTap(nil), taps...)
	e.hasPending = true
	e.mu.Unlock()
}

func (e *EchoEffect) drainPendingTaps() {
	e.mu.Lock()
	if !e.hasPending {
		e.mu.Unlock()
		return
	}
	newTaps := e.pendingTaps
	e.hasPending = false
	e.mu.Unlock()

	e.prevTaps = e.taps
	e.taps = newTaps
	e.crossfading = true

	e.maxDelayTap = 0
	for _, t := range e.taps {
		if t.DelaySamples > e.maxDelayTap {
			e.maxDelayTap = t.DelaySamples
		}
	}
}

// Reset clears the delay line's contents without discarding the current
// tap configuration.
func (e *EchoEffect) Reset() {
	e.line.Clear()
}

// Run implements Effect: downmix input to stereo, write into the delay
// line, then sum the configured taps (crossfading in any newly-installed
// configuration over this block) into outL/outR (spec §4.10).
func (e *EchoEffect) Run(inChannels int, in []float32, outL, outR []float32, timeInBlocks int64) {
	frames := len(outL)
	left := make([]float32, frames)
	right := make([]float32, frames)
	downmixStereo(in, inChannels, left, right, frames)

	writer := e.line.NextBlockWriter()
	for i := 0; i < frames; i++ {
		writer[i*2+0] = left[i]
		writer[i*2+1] = right[i]
	}
	e.line.AdvanceBlock()

	e.drainPendingTaps()
	if len(e.taps) == 0 {
		return
	}

	lookback := e.maxDelayTap + frames + 1
	reader := e.line.Reader(lookback)

	for i := 0; i < frames; i++ {
		back := frames - 1 - i
		var l, r float64
		for _, tap := range e.taps {
			l += float64(reader.At(0, back+tap.DelaySamples)) * tap.GainL
			r += float64(reader.At(1, back+tap.DelaySamples)) * tap.GainR
		}
		if e.crossfading {
			t := float64(i) / float64(frames)
			// Ramp the new tap configuration's contribution in from 0 to
			// 1 over the block (spec §4.10: "equivalent to a one-block
			// linear crossfade of the whole tap configuration").
			l *= t
			r *= t
			if len(e.prevTaps) > 0 {
				var pl, pr float64
				for _, tap := range e.prevTaps {
					pl += float64(reader.At(0, back+tap.DelaySamples)) * tap.GainL
					pr += float64(reader.At(1, back+tap.DelaySamples)) * tap.GainR
				}
				l += pl * (1 - t)
				r += pr * (1 - t)
			}
		}
		outL[i] += float32(l)
		outR[i] += float32(r)
	}
	if e.crossfading {
		e.crossfading = false
		e.prevTaps = nil
	}
}
