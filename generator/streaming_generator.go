package generator

import (
	"io"
	"log"
	"sync"
	"sync/atomic"

	"github.com/rustyguts/bken-engine/biquad"
	"github.com/rustyguts/bken-engine/config"
	"github.com/rustyguts/bken-engine/decoder"
	"github.com/rustyguts/bken-engine/fade"
	"github.com/rustyguts/bken-engine/ring"
)

// decodeSlot is one scratch buffer passed between the audio thread and the
// background decode thread (spec §4.7: "command slots, each carrying a
// scratch buffer and an optional seek").
type decodeSlot struct {
	pcm    []float32 // config.BlockSize * channels * 2, decoder-rate samples before resample
	frames int       // frames actually decoded this slot
	looped bool      // set if a loop wrap happened decoding this slot
	eof    bool      // set if the decoder is exhausted and won't loop
}

// decodeRingDepth is sized for roughly 100ms of lead-in at engine block
// rate (spec §4.7: "sized so that normal operation never starves (e.g.
// ~100 ms of lead-in)").
const decodeRingDepth = 16

// StreamingGenerator decodes audio on a dedicated background goroutine and
// hands ready blocks to the audio thread through a bounded SPSC ring,
// directly mirroring the teacher's pattern of a background goroutine
// (captureLoop/playbackLoop in client/audio.go) feeding/draining a channel
// that the real-time-ish consumer drains without blocking on I/O.
type StreamingGenerator struct {
	dec      decoder.AudioDecoder
	channels int
	looping  bool

	free  *ring.SPSC[*decodeSlot] // slots the decode thread may reuse
	ready *ring.SPSC[*decodeSlot] // decoded slots waiting for the audio thread

	seekRequest atomic.Int64 // frame to seek to, -1 if none pending
	stop        chan struct{}
	wg          sync.WaitGroup
	logger      *log.Logger

	antiAlias []*biquad.Filter // per-channel anti-alias lowpass, nil if no resample needed
	finished  atomic.Bool

	// pending holds a partially-consumed decode slot's remaining samples.
	pending       *decodeSlot
	pendingOffset int
}

// NewStreamingGenerator constructs a StreamingGenerator around dec and
// starts its background decode thread. logger defaults to log.Default()
// if nil.
func NewStreamingGenerator(dec decoder.AudioDecoder, looping bool, logger *log.Logger) *StreamingGenerator {
	if logger == nil {
		logger = log.Default()
	}
	g := &StreamingGenerator{
		dec:      dec,
		channels: dec.Channels(),
		looping:  looping,
		free:     ring.NewSPSC[*decodeSlot](decodeRingDepth),
		ready:    ring.NewSPSC[*decodeSlot](decodeRingDepth),
		stop:     make(chan struct{}),
		logger:   logger,
	}
	g.seekRequest.Store(-1)

	if dec.SampleRate() != config.SR {
		nyquist := float64(config.SR) / 2
		if srcNyquist := float64(dec.SampleRate()) / 2; srcNyquist < nyquist {
			nyquist = srcNyquist
		}
		g.antiAlias = make([]*biquad.Filter, g.channels)
		for c := range g.antiAlias {
			f := &biquad.Filter{}
			f.SetCoeffs(biquad.Lowpass(nyquist*0.9, float64(dec.SampleRate()), 0.707))
			g.antiAlias[c] = f
		}
	}

	for i := 0; i < decodeRingDepth; i++ {
		g.free.Push(&decodeSlot{pcm: make([]float32, config.BlockSize*g.channels*2)})
	}

	g.wg.Add(1)
	go g.decodeLoop()
	return g
}

// Channels returns the generator's output channel count.
func (g *StreamingGenerator) Channels() int { return g.channels }

// Seek requests the background thread reposition the decoder to framePos.
// The request is applied to the next slot it decodes; if the decoder
// reports it cannot seek, the request is dropped and logged.
func (g *StreamingGenerator) Seek(framePos int64) {
	g.seekRequest.Store(framePos)
}

// Close stops the background decode thread and releases the decoder.
func (g *StreamingGenerator) Close() error {
	close(g.stop)
	g.wg.Wait()
	return g.dec.Close()
}

// decodeLoop is the "one background decoder thread per StreamingGenerator"
// (spec §8). It pulls a free slot, seeks if requested, decodes exactly
// BLOCK_SIZE engine-rate frames (resampling if the decoder's native rate
// differs), and publishes the slot to the ready ring.
func (g *StreamingGenerator) decodeLoop() {
	defer g.wg.Done()
	for {
		select {
		case <-g.stop:
			return
		default:
		}

		slot, ok := g.free.Pop()
		if !ok {
			// Ready ring backpressure: nothing to do this tick, yield.
			select {
			case <-g.stop:
				return
			default:
				continue
			}
		}

		if seekTo := g.seekRequest.Swap(-1); seekTo >= 0 {
			ok, err := g.dec.Seek(seekTo)
			if err != nil {
				g.logger.Printf("[generator] streaming seek error: %v", err)
			} else if !ok {
				g.logger.Printf("[generator] streaming decoder does not support seeking to %d", seekTo)
			}
		}

		g.decodeOneSlot(slot)

		for !g.ready.Push(slot) {
			select {
			case <-g.stop:
				return
			default:
			}
		}
	}
}

func (g *StreamingGenerator) decodeOneSlot(slot *decodeSlot) {
	slot.looped = false
	slot.eof = false

	nativeFrames := config.BlockSize
	if g.antiAlias != nil {
		nativeFrames = config.BlockSize*g.dec.SampleRate()/config.SR + 4
	}
	native := slot.pcm[:nativeFrames*g.channels]

	n, err := g.dec.ReadFrames(native)
	if err == io.EOF || n < nativeFrames {
		if g.looping {
			if _, seekErr := g.dec.Seek(0); seekErr == nil {
				slot.looped = true
				more, _ := g.dec.ReadFrames(native[n*g.channels:])
				n += more
			}
		} else {
			slot.eof = true
		}
	} else if err != nil {
		g.logger.Printf("[generator] streaming decode error: %v", err)
		slot.eof = true
	}

	slot.frames = n
	if g.antiAlias == nil {
		return
	}
	deinterleaveFilterReinterleave(native[:n*g.channels], g.channels, g.antiAlias)
	resampled := resampleLinear(native[:n*g.channels], g.channels, g.dec.SampleRate(), config.SR, config.BlockSize)
	copy(slot.pcm, resampled)
	slot.frames = len(resampled) / g.channels
}

// deinterleaveFilterReinterleave runs each channel of an interleaved buffer
// through its own anti-alias filter in place, avoiding a full
// deinterleave/reinterleave allocation by filtering with a channel stride.
func deinterleaveFilterReinterleave(buf []float32, channels int, filters []*biquad.Filter) {
	frames := len(buf) / channels
	for c := 0; c < channels; c++ {
		for i := 0; i < frames; i++ {
			buf[i*channels+c] = filters[c].ProcessSample(buf[i*channels+c])
		}
	}
}

// resampleLinear does a simple linear-interpolated rate conversion; the
// biquad lowpass built in NewStreamingGenerator anti-aliases the
// source first, matching the teacher's "resample, don't just decimate"
// instinct without requiring a full polyphase filter bank implementation.
func resampleLinear(in []float32, channels, srcRate, dstRate, wantFrames int) []float32 {
	out := make([]float32, wantFrames*channels)
	srcFrames := len(in) / channels
	if srcFrames == 0 {
		return out
	}
	ratio := float64(srcRate) / float64(dstRate)
	for i := 0; i < wantFrames; i++ {
		pos := float64(i) * ratio
		idx := int(pos)
		frac := pos - float64(idx)
		if idx >= srcFrames-1 {
			idx = srcFrames - 2
			if idx < 0 {
				idx = 0
			}
			frac = 1
		}
		for c := 0; c < channels; c++ {
			a := in[idx*channels+c]
			b := in[(idx+1)*channels+c]
			out[i*channels+c] = a + (b-a)*float32(frac)
		}
	}
	return out
}

// GenerateBlock drains ready decoded slots into dest. If the ready ring is
// empty (decoder underrun), it contributes silence rather than blocking —
// spec's streaming-underrun acceptance test requires the output stay at
// true silence, never uninitialized memory.
func (g *StreamingGenerator) GenerateBlock(dest []float32, gainDriver *fade.Driver) {
	written := 0
	total := len(dest) / g.channels

	for written < total {
		if g.pending == nil {
			slot, ok := g.ready.Pop()
			if !ok {
				break
			}
			g.pending = slot
			g.pendingOffset = 0
		}

		avail := g.pending.frames - g.pendingOffset
		if avail <= 0 {
			if g.pending.eof {
				g.finished.Store(true)
			}
			g.free.Push(g.pending)
			g.pending = nil
			continue
		}
		take := total - written
		if take > avail {
			take = avail
		}
		for i := 0; i < take; i++ {
			gain := gainDriver.Advance()
			for c := 0; c < g.channels; c++ {
				dest[(written+i)*g.channels+c] += float32(gain) * g.pending.pcm[(g.pendingOffset+i)*g.channels+c]
			}
		}
		g.pendingOffset += take
		written += take
	}

	for written < total {
		gainDriver.Advance()
		written++
	}
}

// StartLingering reports a short, decoder-independent drain window: once a
// streaming generator's decoder hits EOF without looping, there is nothing
// further to produce, so it reports no tail.
func (g *StreamingGenerator) StartLingering() (float64, bool) {
	if g.finished.Load() {
		return 0, true
	}
	return 0, false
}
