// Package effect implements the engine's global effects: a multi-tap
// stereo echo and an 8-line FDN reverb, both built on delayline.BlockDelayLine
// (spec §4.10).
//
// Grounded in c8aeb95b's FFT overlap-add convolution reverb
// (other_examples/c8aeb95b_MeKo-Christian-pw_convoverb__dsp-convolution.go.go)
// for the general shape of "an effect owns a delay/history buffer and a
// Run-style entry point invoked once per block, adding into a caller-owned
// output bus" — generalized here from convolution against a loaded impulse
// file to a tapped delay line (EchoEffect) and a feedback delay network
// (FdnReverb), neither of which that reference performs.
package effect

// Effect is the common interface the router dispatches global-effect input
// accumulators into once per block (spec §4.10: "every source writes into
// it through its route").
type Effect interface {
	// Run adds this effect's contribution for the current block into
	// outL/outR, reading inChannels of input from in (interleaved).
	Run(inChannels int, in []float32, outL, outR []float32, timeInBlocks int64)

	// Reset clears the effect's internal delay state (e.g. on an explicit
	// client reset), without discarding its current tap/reverb
	// configuration.
	Reset()
}

// downmixStereo reduces an interleaved inChannels buffer to separate left/
// right slices the way every effect in this package wants its input: mono
// duplicates to both channels, stereo passes through, wider layouts sum
// even-indexed channels into left and odd-indexed channels into right.
func downmixStereo(in []float32, inChannels int, left, right []float32, frames int) {
	switch {
	case inChannels == 1:
		for f := 0; f < frames; f++ {
			left[f] = in[f]
			right[f] = in[f]
		}
	case inChannels == 2:
		for f := 0; f < frames; f++ {
			left[f] = in[f*2+0]
			right[f] = in[f*2+1]
		}
	default:
		for f := 0; f < frames; f++ {
			var l, r float32
			for c := 0; c < inChannels; c++ {
				if c%2 == 0 {
					l += in[f*inChannels+c]
				} else {
					r += in[f*inChannels+c]
				}
			}
			left[f] = l
			right[f] = r
		}
	}
}
