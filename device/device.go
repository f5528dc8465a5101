// Package device implements the engine's audio-device I/O external
// collaborator (spec §1 "Out of scope ... actual device I/O"), plus a
// concrete PortAudio-backed implementation. Context itself never touches a
// real device; it only produces config.SR blocks on request. A Device is
// what turns that into sound: it owns the native stream, resamples to the
// device's native rate, and calls back into the engine once per native
// buffer's worth of audio needed.
//
// Grounded in the teacher's AudioEngine (client/audio.go), which owns a
// PortAudio capture/playback pair and drives them from dedicated goroutines
// started by Start and torn down by Stop in the same stop-then-wait-then-
// close order this package follows.
package device

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"

	"github.com/rustyguts/bken-engine/config"
)

// PullFunc produces exactly one config.BlockSize-frame stereo block, the
// same signature as Context.GetBlock.
type PullFunc func(outL, outR []float32) error

// Device is the external collaborator a host plugs in to actually hear the
// engine's output. Start begins pulling blocks via pull and playing them;
// Stop halts playback. Implementations must be safe to Stop from any
// goroutine other than the one that called Start.
type Device interface {
	Start(pull PullFunc) error
	Stop() error
	Name() string
}

// Headless is a Device that does nothing: Start/Stop are no-ops, for hosts
// that pull blocks explicitly via Context.GetBlock and hand them off
// themselves (e.g. for offline rendering or a custom transport). This is
// config.LibraryConfig.Headless's counterpart at the device layer.
type Headless struct{}

// NewHeadless returns a Headless device.
func NewHeadless() *Headless { return &Headless{} }

func (h *Headless) Start(PullFunc) error { return nil }
func (h *Headless) Stop() error          { return nil }
func (h *Headless) Name() string         { return "headless" }

// Info describes an available playback device (spec-adjacent to
// AudioDevice in the teacher's client/audio.go).
type Info struct {
	ID   int
	Name string
}

// ListOutputDevices returns every PortAudio device with at least one output
// channel.
func ListOutputDevices() ([]Info, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	var out []Info
	for i, d := range devices {
		if d.MaxOutputChannels > 0 {
			out = append(out, Info{ID: i, Name: d.Name})
		}
	}
	return out, nil
}

// nativeChunkFrames is how many native-rate frames the PortAudio stream
// requests per Write call. Kept independent of config.BlockSize since the
// device's native rate is rarely an integer multiple of config.SR.
const nativeChunkFrames = 512

// PortAudio drives a real output stream, resampling the engine's
// config.SR-rate stereo blocks up (or down) to the stream's native sample
// rate with simple linear interpolation, and buffering the result in a
// small ring so a momentarily slow producer doesn't stall the audio
// callback (silence fills the gap instead, matching the teacher's
// playbackLoop "silence fills gaps" comment).
type PortAudio struct {
	deviceID int // -1 selects the system default output device
	logger   *log.Logger

	mu     sync.Mutex
	stream *portaudio.Stream
	ring   []float32 // interleaved stereo samples pending playback
	running atomic.Bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewPortAudio returns a PortAudio device targeting deviceID (-1 for the
// system default). logger defaults to log.Default() when nil.
func NewPortAudio(deviceID int, logger *log.Logger) *PortAudio {
	if logger == nil {
		logger = log.Default()
	}
	return &PortAudio{deviceID: deviceID, logger: logger}
}

func (p *PortAudio) Name() string { return "portaudio" }

// Start opens the native output stream and begins two goroutines: a
// producer that repeatedly pulls config.BlockSize blocks and resamples them
// into the ring, and the PortAudio-driven writer loop that drains the ring
// into the stream (spec: resampling to the device's native rate happens
// here, not in Context).
func (p *PortAudio) Start(pull PullFunc) error {
	if !p.running.CompareAndSwap(false, true) {
		return errors.New("device: already started")
	}

	devices, err := portaudio.Devices()
	if err != nil {
		p.running.Store(false)
		return fmt.Errorf("device: enumerate: %w", err)
	}
	outDev, err := resolveOutputDevice(devices, p.deviceID)
	if err != nil {
		p.running.Store(false)
		return err
	}

	buf := make([]float32, nativeChunkFrames*2)
	params := portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Device:   outDev,
			Channels: 2,
			Latency:  outDev.DefaultLowOutputLatency,
		},
		SampleRate:      outDev.DefaultSampleRate,
		FramesPerBuffer: nativeChunkFrames,
	}
	stream, err := portaudio.OpenStream(params, buf)
	if err != nil {
		p.running.Store(false)
		return fmt.Errorf("device: open stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		p.running.Store(false)
		return fmt.Errorf("device: start stream: %w", err)
	}

	p.mu.Lock()
	p.stream = stream
	p.mu.Unlock()
	p.stopCh = make(chan struct{})

	ratio := outDev.DefaultSampleRate / float64(config.SR)

	p.wg.Add(2)
	go func() { defer p.wg.Done(); p.produceLoop(pull, ratio) }()
	go func() { defer p.wg.Done(); p.writeLoop(stream, buf) }()

	p.logger.Printf("[device] started playback=%s rate=%.0f", outDev.Name, outDev.DefaultSampleRate)
	return nil
}

// Stop halts the stream and waits for both goroutines to exit before
// closing it, in the same stop-then-wait-then-close order as the teacher's
// AudioEngine.Stop (stopping first unblocks any in-flight Write call).
func (p *PortAudio) Stop() error {
	if !p.running.CompareAndSwap(true, false) {
		return nil
	}
	close(p.stopCh)

	p.mu.Lock()
	stream := p.stream
	p.mu.Unlock()
	if stream != nil {
		stream.Stop()
	}
	p.wg.Wait()

	p.mu.Lock()
	if p.stream != nil {
		err := p.stream.Close()
		p.stream = nil
		p.mu.Unlock()
		return err
	}
	p.mu.Unlock()
	return nil
}

// produceLoop pulls one engine block at a time, resamples it to the
// device's native rate, and appends the result to the ring under the lock.
func (p *PortAudio) produceLoop(pull PullFunc, ratio float64) {
	outL := make([]float32, config.BlockSize)
	outR := make([]float32, config.BlockSize)
	for {
		select {
		case <-p.stopCh:
			return
		default:
		}
		if err := pull(outL, outR); err != nil {
			p.logger.Printf("[device] pull: %v", err)
			return
		}
		resampled := resampleStereo(outL, outR, ratio)

		p.mu.Lock()
		// Bound the ring so a runaway producer can't grow memory
		// unboundedly if the writer stalls; drop the oldest excess instead
		// of the newest, matching the teacher's "drops if consumer falls
		// behind" channel-overflow policy.
		const maxRingFrames = nativeChunkFrames * 16
		p.ring = append(p.ring, resampled...)
		if over := len(p.ring) - maxRingFrames*2; over > 0 {
			p.ring = p.ring[over:]
		}
		p.mu.Unlock()
	}
}

// writeLoop drains the ring into stream's buffer and calls Write, filling
// with silence when the ring hasn't caught up yet.
func (p *PortAudio) writeLoop(stream *portaudio.Stream, buf []float32) {
	for {
		select {
		case <-p.stopCh:
			return
		default:
		}

		p.mu.Lock()
		n := len(buf)
		if len(p.ring) < n {
			n = len(p.ring)
		}
		copy(buf, p.ring[:n])
		for i := n; i < len(buf); i++ {
			buf[i] = 0
		}
		p.ring = p.ring[n:]
		p.mu.Unlock()

		if err := stream.Write(); err != nil {
			if p.running.Load() {
				p.logger.Printf("[device] write: %v", err)
			}
			return
		}
	}
}

func resolveOutputDevice(devices []*portaudio.DeviceInfo, id int) (*portaudio.DeviceInfo, error) {
	if id >= 0 && id < len(devices) {
		if devices[id].MaxOutputChannels <= 0 {
			return nil, fmt.Errorf("device: device %d has no output channels", id)
		}
		return devices[id], nil
	}
	return portaudio.DefaultOutputDevice()
}

// resampleStereo linearly resamples an interleaved-separate L/R pair at
// config.SR into a single interleaved stereo buffer at ratio*config.SR
// frames. ratio == 1 still passes through this path since native rates
// rarely line up exactly with config.SR.
func resampleStereo(left, right []float32, ratio float64) []float32 {
	frames := len(left)
	outFrames := int(float64(frames) * ratio)
	out := make([]float32, outFrames*2)
	for i := 0; i < outFrames; i++ {
		srcPos := float64(i) / ratio
		idx := int(srcPos)
		frac := float32(srcPos - float64(idx))
		if idx >= frames-1 {
			out[i*2+0] = left[frames-1]
			out[i*2+1] = right[frames-1]
			continue
		}
		out[i*2+0] = left[idx] + (left[idx+1]-left[idx])*frac
		out[i*2+1] = right[idx] + (right[idx+1]-right[idx])*frac
	}
	return out
}
