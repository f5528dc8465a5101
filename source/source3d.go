package source

import (
	"math"

	"github.com/rustyguts/bken-engine/config"
	"github.com/rustyguts/bken-engine/handle"
	"github.com/rustyguts/bken-engine/panner"
	"github.com/rustyguts/bken-engine/router"
)

// Vec3 is a right-handed 3D position/vector.
type Vec3 struct{ X, Y, Z float64 }

func sub(a, b Vec3) Vec3    { return Vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z} }
func dot(a, b Vec3) float64 { return a.X*b.X + a.Y*b.Y + a.Z*b.Z }
func length(v Vec3) float64 { return math.Sqrt(dot(v, v)) }
func normalize(v Vec3) Vec3 {
	l := length(v)
	if l == 0 {
		return Vec3{}
	}
	return Vec3{v.X / l, v.Y / l, v.Z / l}
}
func cross(a, b Vec3) Vec3 {
	return Vec3{
		X: a.Y*b.Z - a.Z*b.Y,
		Y: a.Z*b.X - a.X*b.Z,
		Z: a.X*b.Y - a.Y*b.X,
	}
}

// Listener holds the world-space pose ListenerRelative spherical
// coordinates are computed against (spec §4.6 "Source3D panner strategy":
// "right-handed; up from right × at").
type Listener struct {
	Position Vec3
	At       Vec3 // forward direction, normalized
	Up       Vec3 // up direction, normalized
}

// DistanceParams configures Source3D's distance-gain model.
type DistanceParams struct {
	Model          config.DistanceModel
	Reference      float64
	Max            float64
	Rolloff        float64
	ClosenessBoost float64
}

// Source3D inherits AngularPannedSource; each block it recomputes
// listener-relative (azimuth, elevation, distance_gain) from world state
// and forwards them to the inherited panner plus gain3D (spec §4.8).
type Source3D struct {
	AngularPannedSource
	position Vec3
	params   DistanceParams
}

// NewSource3D returns a Source3D at the origin using panner p and the given
// default distance parameters.
func NewSource3D(h handle.Handle, crossfadeLength int, p panner.Panner, params DistanceParams) *Source3D {
	return &Source3D{
		AngularPannedSource: *NewAngularPannedSource(h, crossfadeLength, p),
		params:              params,
	}
}

// SetPosition moves the source in world space.
func (s *Source3D) SetPosition(pos Vec3) { s.position = pos }

// SetDistanceParams updates the distance-gain model parameters.
func (s *Source3D) SetDistanceParams(p DistanceParams) { s.params = p }

// UpdateListener recomputes (azimuth, elevation, distance_gain) from the
// source's world position relative to listener, and forwards azimuth/
// elevation to the inherited panner and the distance gain into gain3D. Must
// be called once per block before ProcessBlock (spec §4.8: "each block
// recomputes (az, el, distance_gain) from world state").
func (s *Source3D) UpdateListener(listener Listener) {
	rel := sub(s.position, listener.Position)
	dist := length(rel)

	right := normalize(cross(listener.Up, listener.At))
	up := normalize(listener.Up)
	forward := normalize(listener.At)

	var az, el float64
	if dist > 1e-9 {
		dir := normalize(rel)
		localX := dot(dir, right)
		localY := dot(dir, up)
		localZ := dot(dir, forward)
		az = math.Atan2(localX, localZ) * 180 / math.Pi
		el = math.Asin(clamp(localY, -1, 1)) * 180 / math.Pi
	}

	s.SetAngles(az, el)
	s.gain3D = distanceGain(dist, s.params)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// distanceGain maps a distance to a gain multiplier per the configured
// model (spec §4.6: "distance gain from the configured distance model
// (None, Linear, Exponential, Inverse) with rolloff / reference / max /
// closeness-boost parameters").
func distanceGain(dist float64, p DistanceParams) float64 {
	if dist <= p.Reference {
		return 1.0 + p.ClosenessBoost*(p.Reference-dist)
	}
	if p.Max > 0 && dist >= p.Max {
		dist = p.Max
	}
	switch p.Model {
	case config.DistanceModelNone:
		return 1.0
	case config.DistanceModelLinear:
		if p.Max <= p.Reference {
			return 1.0
		}
		t := (dist - p.Reference) / (p.Max - p.Reference)
		g := 1.0 - p.Rolloff*t
		if g < 0 {
			g = 0
		}
		return g
	case config.DistanceModelExponential:
		ratio := dist / p.Reference
		if ratio <= 0 {
			ratio = 1
		}
		return math.Pow(ratio, -p.Rolloff)
	case config.DistanceModelInverse:
		denom := p.Reference + p.Rolloff*(dist-p.Reference)
		if denom <= 0 {
			return 1.0
		}
		return p.Reference / denom
	default:
		return 1.0
	}
}

// ProcessBlock delegates to the inherited AngularPannedSource pipeline;
// UpdateListener must have been called earlier this block to set the
// current pan angle and distance gain.
func (s *Source3D) ProcessBlock(outL, outR []float32, routes []*router.Route, effectAccumulators map[handle.Handle][]float32, blockFrames int) {
	s.AngularPannedSource.ProcessBlock(outL, outR, routes, effectAccumulators, blockFrames)
}
