package panner

import (
	"math"
	"sort"

	"github.com/rustyguts/bken-engine/config"
)

// HRIR is a single-ear impulse response, config.ImpulseLength taps long.
type HRIR []float64

// elevationBand is one elevation in the dataset, holding a fixed number of
// impulses spaced evenly around the azimuth circle.
type elevationBand struct {
	elevation float64
	azimuths  []float64 // sorted ascending, [0, 360)
	impulses  []HRIR    // left-ear impulse per azimuth entry
}

// Dataset is the HRTF panner's impulse-response table: a set of elevation
// bands, each with a fixed azimuth count (spec §4.6 "HRIR lookup").
//
// No file in the pack ships or loads a real measured HRTF dataset (the
// nearest relative, c8aeb95b's convolution reverb, convolves a single fixed
// impulse response read from a file — it never interpolates a dataset by
// angle). This generates a smooth synthetic dataset procedurally: each band
// gets a simple near/far-ear spectral tilt and direct-path attenuation
// derived from a spherical-head shadowing model, which is enough to
// exercise every step of the lookup/interpolation/convolution pipeline
// spec.md describes without depending on external measured data files.
type Dataset struct {
	headRadiusMeters float64
	speedOfSound     float64
	bands            []elevationBand
}

// NewSyntheticDataset builds a Dataset spanning elevations from -90 to 90 in
// elevationStep-degree increments, each with azimuthCount evenly spaced
// impulses, using a simple head-shadowing model for spectral shape.
func NewSyntheticDataset(elevationStep float64, azimuthCount int) *Dataset {
	if elevationStep <= 0 {
		elevationStep = 30
	}
	if azimuthCount < 4 {
		azimuthCount = 24
	}
	d := &Dataset{
		headRadiusMeters: 0.0875, // ~8.75cm, a typical adult head radius
		speedOfSound:     343.0,
	}
	for el := -90.0; el <= 90.0+1e-9; el += elevationStep {
		band := elevationBand{elevation: el}
		for i := 0; i < azimuthCount; i++ {
			az := float64(i) * 360.0 / float64(azimuthCount)
			band.azimuths = append(band.azimuths, az)
			band.impulses = append(band.impulses, syntheticImpulse(az, el))
		}
		d.bands = append(d.bands, band)
	}
	sort.Slice(d.bands, func(i, j int) bool { return d.bands[i].elevation < d.bands[j].elevation })
	return d
}

// syntheticImpulse builds a plausible-looking left-ear HRIR for (az, el): a
// leading attenuated direct path with a decaying, elevation-tilted tail.
func syntheticImpulse(az, el float64) HRIR {
	n := config.ImpulseLength
	h := make(HRIR, n)

	azRad := az * math.Pi / 180
	// Ipsilateral (same-side) azimuths get a louder, earlier direct path;
	// contralateral azimuths are attenuated by head shadowing.
	shadow := 0.55 + 0.45*math.Cos(azRad)
	if shadow < 0.15 {
		shadow = 0.15
	}
	tilt := 1.0 - 0.3*el/90.0

	for i := 0; i < n; i++ {
		decay := math.Exp(-float64(i) / (float64(n) * 0.18))
		h[i] = shadow * decay * math.Pow(tilt, float64(i)/float64(n))
	}
	// Normalize to unit peak so ProcessBlock's convolution stays bounded.
	peak := 0.0
	for _, v := range h {
		if math.Abs(v) > peak {
			peak = math.Abs(v)
		}
	}
	if peak > 0 {
		for i := range h {
			h[i] /= peak
		}
	}
	return h
}

// Lookup resolves (az, el) — az in [0, 360) or any value (wrapped), el in
// [-90, 90] — to a left/right HRIR pair and the left/right ITD in samples,
// per spec §4.6: bisect elevations, bisect azimuths within each bracketing
// band, bilinearly interpolate the four impulses for each ear; the right
// ear's impulse comes from mirroring azimuth (360 - az) in the same
// bisection rather than a separate right-ear dataset.
func (d *Dataset) Lookup(az, el float64) (left, right HRIR, itdLeft, itdRight float64) {
	az = normalizeAzimuth(az)
	if el < -90 {
		el = -90
	} else if el > 90 {
		el = 90
	}

	left = d.interpolate(az, el)
	right = d.interpolate(normalizeAzimuth(360-az), el)

	itdLeft, itdRight = woodworthITD(az, el, d.headRadiusMeters, d.speedOfSound)
	return
}

// interpolate bisects elevation bands then azimuths within the bracketing
// pair, bilinearly blending the four corner impulses.
func (d *Dataset) interpolate(az, el float64) HRIR {
	loBand, hiBand, elT := d.bisectElevation(el)
	loImp, loHiImp, azT0 := bisectAzimuth(d.bands[loBand], az)
	hiImp, hiHiImp, azT1 := bisectAzimuth(d.bands[hiBand], az)

	lo := blendImpulse(loImp, loHiImp, azT0)
	hi := blendImpulse(hiImp, hiHiImp, azT1)
	return blendImpulse(lo, hi, elT)
}

func (d *Dataset) bisectElevation(el float64) (lo, hi int, t float64) {
	bands := d.bands
	i := sort.Search(len(bands), func(i int) bool { return bands[i].elevation >= el })
	if i == 0 {
		return 0, 0, 0
	}
	if i >= len(bands) {
		last := len(bands) - 1
		return last, last, 0
	}
	lo, hi = i-1, i
	span := bands[hi].elevation - bands[lo].elevation
	if span <= 0 {
		return lo, hi, 0
	}
	t = (el - bands[lo].elevation) / span
	return lo, hi, t
}

func bisectAzimuth(band elevationBand, az float64) (lo, hi HRIR, t float64) {
	n := len(band.azimuths)
	i := sort.Search(n, func(i int) bool { return band.azimuths[i] >= az })
	if i == 0 {
		// Wraps between the last azimuth (< 360) and the first (0/360).
		last := n - 1
		span := 360 - band.azimuths[last]
		if span <= 0 {
			return band.impulses[last], band.impulses[0], 0
		}
		t = (az + 360 - band.azimuths[last]) / span
		return band.impulses[last], band.impulses[0], t
	}
	if i >= n {
		return band.impulses[n-1], band.impulses[n-1], 0
	}
	lo2 := i - 1
	span := band.azimuths[i] - band.azimuths[lo2]
	if span <= 0 {
		return band.impulses[lo2], band.impulses[i], 0
	}
	t = (az - band.azimuths[lo2]) / span
	return band.impulses[lo2], band.impulses[i], t
}

func blendImpulse(a, b HRIR, t float64) HRIR {
	out := make(HRIR, len(a))
	for i := range out {
		out[i] = a[i] + (b[i]-a[i])*t
	}
	return out
}

func normalizeAzimuth(az float64) float64 {
	for az < 0 {
		az += 360
	}
	for az >= 360 {
		az -= 360
	}
	return az
}

// woodworthITD computes the per-ear interaural time difference in samples
// using the Woodworth formula ITD = (r/c)(theta + sin(theta)), clamped to
// config.HRTFMaxITD (spec §4.6). The ear on the side the sound arrives from
// gets 0; the far ear gets the full delay, so neither value is negative and
// azimuth 0 (front) produces zero ITD on both ears.
func woodworthITD(az, el float64, headRadius, speedOfSound float64) (left, right float64) {
	azRad := az * math.Pi / 180
	elRad := el * math.Pi / 180
	// Lateral angle of the source: azimuth folded into [-90°, 90°] so that
	// front and back both give zero, and scaled down by elevation, since
	// ITD shrinks toward zero as a source moves to directly overhead.
	theta := math.Asin(math.Sin(azRad) * math.Cos(elRad))

	itdSeconds := (headRadius / speedOfSound) * (theta + math.Sin(theta))
	itdSamples := itdSeconds * config.SR

	// Positive itdSamples means the source is on the listener's right
	// (azimuth increasing clockwise), so the sound reaches the left ear
	// later.
	delay := itdSamples
	if delay > config.HRTFMaxITD {
		delay = config.HRTFMaxITD
	} else if delay < -config.HRTFMaxITD {
		delay = -config.HRTFMaxITD
	}

	if delay >= 0 {
		left = delay
		right = 0
	} else {
		right = -delay
		left = 0
	}
	return left, right
}
