package source

import (
	"github.com/rustyguts/bken-engine/handle"
	"github.com/rustyguts/bken-engine/router"
)

// DirectSource mixes its generators into the stereo output bus without any
// panning (spec §4.8).
type DirectSource struct {
	Base
}

// NewDirectSource returns a DirectSource keyed by h.
func NewDirectSource(h handle.Handle, crossfadeLength int) *DirectSource {
	return &DirectSource{Base: NewBase(h, crossfadeLength)}
}

// ProcessBlock implements the common pipeline (spec §4.8 "Common
// processing") specialized for a direct (unpanned) source: mixed
// generator output is upmixed/downmixed straight to stereo.
func (s *DirectSource) ProcessBlock(outL, outR []float32, routes []*router.Route, effectAccumulators map[handle.Handle][]float32, blockFrames int) {
	if s.channels == 0 {
		s.channels = 2
	}
	scratch := make([]float32, blockFrames*s.channels)
	s.mixGenerators(scratch, blockFrames)
	s.filter.Process(scratch, s.crossfadeLength)

	direct := append([]float32(nil), scratch...)
	s.filterDirect.Process(direct, s.crossfadeLength)

	effects := append([]float32(nil), scratch...)
	s.filterEffects.Process(effects, s.crossfadeLength)

	stereoDirectL := make([]float32, blockFrames)
	stereoDirectR := make([]float32, blockFrames)
	toStereo(direct, s.channels, stereoDirectL, stereoDirectR, blockFrames)
	for i := 0; i < blockFrames; i++ {
		gain := s.gain.Advance()
		outL[i] += float32(gain) * stereoDirectL[i]
		outR[i] += float32(gain) * stereoDirectR[i]
	}

	if len(routes) > 0 {
		stereoEffectsL := make([]float32, blockFrames)
		stereoEffectsR := make([]float32, blockFrames)
		toStereo(effects, s.channels, stereoEffectsL, stereoEffectsR, blockFrames)
		writeRoutes(routes, stereoEffectsL, stereoEffectsR, effectAccumulators)
	}
}

// toStereo channel-converts an interleaved srcChannels buffer to separate
// left/right slices using the same up-/down-mix rules as upDownMix.
func toStereo(src []float32, srcChannels int, left, right []float32, frames int) {
	switch {
	case srcChannels == 1:
		for f := 0; f < frames; f++ {
			left[f] = src[f]
			right[f] = src[f]
		}
	case srcChannels >= 2:
		for f := 0; f < frames; f++ {
			left[f] = src[f*srcChannels+0]
			right[f] = src[f*srcChannels+1]
		}
	}
}
