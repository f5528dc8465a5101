package source

import (
	"github.com/rustyguts/bken-engine/handle"
	"github.com/rustyguts/bken-engine/panner"
	"github.com/rustyguts/bken-engine/router"
)

// pannedBase is shared by AngularPannedSource and ScalarPannedSource: both
// hold a single Panner and push their mono-mixed generator output through
// it (spec §4.8).
type pannedBase struct {
	Base
	panner panner.Panner
	gain3D float64 // multiplied in by Source3D; 1.0 for plain panned sources
}

func newPannedBase(h handle.Handle, crossfadeLength int, p panner.Panner) pannedBase {
	return pannedBase{Base: NewBase(h, crossfadeLength), panner: p, gain3D: 1.0}
}

func (s *pannedBase) processPanned(outL, outR []float32, routes []*router.Route, effectAccumulators map[handle.Handle][]float32, blockFrames int) {
	if s.channels == 0 {
		s.channels = 1
	}
	scratch := make([]float32, blockFrames*s.channels)
	s.mixGenerators(scratch, blockFrames)
	s.filter.Process(scratch, s.crossfadeLength)

	mono := make([]float32, blockFrames)
	downmixToMono(scratch, s.channels, mono, blockFrames)

	direct := append([]float32(nil), mono...)
	s.filterDirect.Process(direct, s.crossfadeLength)
	pannedL := make([]float32, blockFrames)
	pannedR := make([]float32, blockFrames)
	s.panner.ProcessBlock(direct, pannedL, pannedR)
	for i := 0; i < blockFrames; i++ {
		gain := s.gain.Advance() * s.gain3D
		outL[i] += float32(gain) * pannedL[i]
		outR[i] += float32(gain) * pannedR[i]
	}

	if len(routes) > 0 {
		effects := append([]float32(nil), mono...)
		s.filterEffects.Process(effects, s.crossfadeLength)
		effectsL := make([]float32, blockFrames)
		effectsR := make([]float32, blockFrames)
		s.panner.ProcessBlock(effects, effectsL, effectsR)
		writeRoutes(routes, effectsL, effectsR, effectAccumulators)
	}
}

// AngularPannedSource pans its mixed-to-mono generator output by
// (azimuth, elevation).
type AngularPannedSource struct {
	pannedBase
}

// NewAngularPannedSource returns an AngularPannedSource using panner p.
func NewAngularPannedSource(h handle.Handle, crossfadeLength int, p panner.Panner) *AngularPannedSource {
	return &AngularPannedSource{pannedBase: newPannedBase(h, crossfadeLength, p)}
}

// SetAngles sets the source's pan angle in degrees.
func (s *AngularPannedSource) SetAngles(azimuth, elevation float64) {
	s.panner.SetAngles(azimuth, elevation)
}

func (s *AngularPannedSource) ProcessBlock(outL, outR []float32, routes []*router.Route, effectAccumulators map[handle.Handle][]float32, blockFrames int) {
	s.processPanned(outL, outR, routes, effectAccumulators, blockFrames)
}

// ScalarPannedSource pans its mixed-to-mono generator output by a [-1, 1]
// scalar.
type ScalarPannedSource struct {
	pannedBase
}

// NewScalarPannedSource returns a ScalarPannedSource using panner p.
func NewScalarPannedSource(h handle.Handle, crossfadeLength int, p panner.Panner) *ScalarPannedSource {
	return &ScalarPannedSource{pannedBase: newPannedBase(h, crossfadeLength, p)}
}

// SetScalar sets the source's pan position directly.
func (s *ScalarPannedSource) SetScalar(scalar float64) {
	s.panner.SetScalar(scalar)
}

func (s *ScalarPannedSource) ProcessBlock(outL, outR []float32, routes []*router.Route, effectAccumulators map[handle.Handle][]float32, blockFrames int) {
	s.processPanned(outL, outR, routes, effectAccumulators, blockFrames)
}
