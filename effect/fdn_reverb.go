package effect

import (
	"math"
	"sync"

	"github.com/rustyguts/bken-engine/config"
	"github.com/rustyguts/bken-engine/delayline"
)

const fdnLines = 8

// FdnReverbParams configures the next model rebuild (spec §4.10).
type FdnReverbParams struct {
	MeanFreePath float64 // seconds
	T60          float64 // seconds for a 60dB decay
	Diffusion    float64 // late_reflections_diffusion
}

// FdnReverb is an 8-line feedback delay network reverb: coprime delay
// lengths chosen around the mean free path, a Householder mixing matrix,
// and per-line gains tuned for a target T60 (spec §4.10).
type FdnReverb struct {
	lines [fdnLines]*delayline.BlockDelayLine

	mu      sync.Mutex
	params  FdnReverbParams
	rebuild bool

	delaySamples [fdnLines]int
	lineGain     [fdnLines]float64
	state        [fdnLines]float64 // per-line feedback state carried between blocks
}

// NewFdnReverb allocates an FdnReverb with delay lines long enough for a
// generous mean free path, and the given initial parameters.
func NewFdnReverb(params FdnReverbParams) *FdnReverb {
	r := &FdnReverb{params: params, rebuild: true}
	// Size each line generously: three mean free paths plus one block,
	// rounded up to whole blocks.
	maxDelay := int(params.MeanFreePath*float64(config.SR)*3) + config.BlockSize
	blocks := (maxDelay + config.BlockSize - 1) / config.BlockSize
	if blocks < 2 {
		blocks = 2
	}
	for i := range r.lines {
		r.lines[i] = delayline.New(1, config.BlockSize, blocks)
	}
	r.recompute()
	return r
}

// SetParams updates the reverb's parameters; the model is rebuilt at the
// start of the next block (spec §4.10: "the recompute flag is set and the
// model is rebuilt at the start of the next block; delay lines are not
// cleared, allowing graceful transitions").
func (r *FdnReverb) SetParams(params FdnReverbParams) {
	r.mu.Lock()
	r.params = params
	r.rebuild = true
	r.mu.Unlock()
}

// Reset clears every delay line's contents and feedback state without
// discarding the current parameters.
func (r *FdnReverb) Reset() {
	for i := range r.lines {
		r.lines[i].Clear()
		r.state[i] = 0
	}
}

func (r *FdnReverb) recompute() {
	mfp := r.params.MeanFreePath
	if mfp <= 0 {
		mfp = 0.05
	}
	diffusion := r.params.Diffusion
	t60 := r.params.T60
	if t60 <= 0 {
		t60 = 1.0
	}

	targets := make([]float64, fdnLines)
	// Spec §4.10: "the first two delays sit near the mean free path,
	// subsequent pairs move symmetrically closer to 0 and 2·mean_free_path,
	// by a factor 1/(1+0.4·diffusion)^k".
	for k := 0; k < fdnLines/2; k++ {
		shrink := 1.0 / math.Pow(1+0.4*diffusion, float64(k))
		spread := mfp * shrink
		targets[2*k] = mfp - spread*float64(k+1)/float64(fdnLines/2)
		targets[2*k+1] = mfp + spread*float64(k+1)/float64(fdnLines/2)
		if targets[2*k] < mfp*0.1 {
			targets[2*k] = mfp * 0.1
		}
	}

	used := map[int]bool{}
	for i, target := range targets {
		sampleTarget := int(target * float64(config.SR))
		if sampleTarget < 8 {
			sampleTarget = 8
		}
		p := closestUnusedPrime(sampleTarget, used)
		used[p] = true
		r.delaySamples[i] = p
		// Per-line gain: 10^{(-60/t60/SR · delay_samples)/20}, so every
		// path decays 60dB over t60 seconds (spec §4.10).
		exponent := (-60.0 / t60 / float64(config.SR) * float64(p)) / 20.0
		r.lineGain[i] = math.Pow(10, exponent)
	}
}

// closestUnusedPrime finds the prime closest to target that is not already
// in used, searching outward symmetrically.
func closestUnusedPrime(target int, used map[int]bool) int {
	if target < 2 {
		target = 2
	}
	for delta := 0; ; delta++ {
		hi := target + delta
		if isPrime(hi) && !used[hi] {
			return hi
		}
		if delta > 0 {
			lo := target - delta
			if lo >= 2 && isPrime(lo) && !used[lo] {
				return lo
			}
		}
	}
}

func isPrime(n int) bool {
	if n < 2 {
		return false
	}
	if n%2 == 0 {
		return n == 2
	}
	for d := 3; d*d <= n; d += 2 {
		if n%d == 0 {
			return false
		}
	}
	return true
}

// Run implements Effect: downmix to stereo, inject into each line, read
// back each line's delayed output, apply the Householder mixing matrix,
// and split alternating lines to L/R (spec §4.10).
func (r *FdnReverb) Run(inChannels int, in []float32, outL, outR []float32, timeInBlocks int64) {
	r.mu.Lock()
	if r.rebuild {
		r.recompute()
		r.rebuild = false
	}
	r.mu.Unlock()

	frames := len(outL)
	left := make([]float32, frames)
	right := make([]float32, frames)
	downmixStereo(in, inChannels, left, right, frames)
	mono := make([]float32, frames)
	for i := range mono {
		mono[i] = (left[i] + right[i]) / 2
	}

	writers := make([][]float32, fdnLines)
	for l := 0; l < fdnLines; l++ {
		writers[l] = r.lines[l].NextBlockWriter()
	}

	// The per-sample feedback value at frame i depends on the input written
	// at that same frame, so the write and the read it feeds cannot share a
	// single pre-block reader the way a simple tapped delay can: each line
	// is advanced and re-read one sample at a time via ReaderAt.
	readers := make([]delayline.ModPointer, fdnLines)

	var outSample [fdnLines]float64
	for i := 0; i < frames; i++ {
		for l := 0; l < fdnLines; l++ {
			readers[l] = r.lines[l].ReaderAt(r.lines[l].CurrentFrame()+1+i, r.delaySamples[l]+1)
			outSample[l] = float64(readers[l].At(0, r.delaySamples[l])) * r.lineGain[l]
		}

		// Householder reflection about the all-ones vector:
		// y_i = x_i - (2/N) * sum_j(x_j).
		sum := 0.0
		for _, v := range outSample {
			sum += v
		}
		mixed := 2.0 / float64(fdnLines) * sum

		var sumL, sumR float32
		for l := 0; l < fdnLines; l++ {
			y := outSample[l] - mixed
			if l%2 == 0 {
				sumL += float32(y)
			} else {
				sumR += float32(y)
			}
			writers[l][i] = mono[i] + float32(y)
		}
		outL[i] += sumL
		outR[i] += sumR
	}

	for l := 0; l < fdnLines; l++ {
		r.lines[l].AdvanceBlock()
	}
}
