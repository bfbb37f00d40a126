package field

import (
	"github.com/bodyforge/bodyforge/pkg/geom"
	"github.com/chewxy/math32"
)

// defaultProfileRadius is used when a ring has no control points.
const defaultProfileRadius = 0.1

// ProfiledCapsule returns the signed distance from p to a capsule whose
// cross-sectional radius varies along the bone axis and around it.
//
// profiles is indexed [segment along bone][control point around ring];
// each ring's control points are evenly spaced over the full turn in
// the deterministic frame from geom.RingBasis, so angle 0 always points
// the same way for a given bone direction. useSplines selects
// Catmull-Rom interpolation over bilinear on both axes.
//
// Points beyond either end of the bone see a spherical cap with that
// end ring's average radius.
func ProfiledCapsule(p, a, b geom.Vec3, profiles [][]float32, useSplines bool) float32 {
	ba := b.Sub(a)
	pa := p.Sub(a)

	baDot := ba.LengthSq()
	if baDot < degenerateSegSq {
		// Degenerate bone: sphere with the first ring's average radius.
		return p.Distance(a) - ringAverage(profiles, 0)
	}

	tUnclamped := pa.Dot(ba) / baDot
	if tUnclamped < 0 {
		return p.Distance(a) - ringAverage(profiles, 0)
	}
	if tUnclamped > 1 {
		return p.Distance(b) - ringAverage(profiles, len(profiles)-1)
	}
	t := tUnclamped

	boneDir := ba.Normalize()
	u, v := geom.RingBasis(boneDir)

	centerPoint := a.Add(ba.Scale(t))
	toPoint := p.Sub(centerPoint)

	// Component of toPoint in the plane perpendicular to the bone.
	radialVec := toPoint.Sub(boneDir.Scale(toPoint.Dot(boneDir)))
	radialDist := radialVec.Length()

	var angle float32
	if radialDist >= 1e-6 {
		nr := radialVec.Scale(1 / radialDist)
		angle = math32.Atan2(nr.Dot(v), nr.Dot(u))
	}

	targetRadius := sampleRadialProfile(profiles, t, angle, useSplines)
	return radialDist - targetRadius
}

// sampleRadialProfile samples the 2-D radius grid at (t along bone,
// angle around bone).
func sampleRadialProfile(profiles [][]float32, t, angle float32, useSplines bool) float32 {
	if len(profiles) == 0 {
		return defaultProfileRadius
	}

	twoPi := 2 * math32.Pi
	if angle < 0 {
		angle += twoPi
	}

	if useSplines {
		radiiAlongBone := make([]float32, len(profiles))
		for i, ring := range profiles {
			radiiAlongBone[i] = SampleRingAtAngle(ring, angle, true)
		}
		return CatmullRomArray(radiiAlongBone, t)
	}

	// Bilinear: pick the two rings bracketing t and lerp.
	maxSegment := float32(len(profiles) - 1)
	floatSegment := t * maxSegment
	seg0 := int(math32.Floor(floatSegment))
	seg1 := seg0 + 1
	if seg1 > len(profiles)-1 {
		seg1 = len(profiles) - 1
	}
	frac := floatSegment - float32(seg0)

	r0 := SampleRingAtAngle(profiles[seg0], angle, false)
	r1 := SampleRingAtAngle(profiles[seg1], angle, false)
	return r0*(1-frac) + r1*frac
}

// SampleRingAtAngle samples one ring profile at the given angle. The
// ring's control points are evenly distributed around [0, 2pi).
func SampleRingAtAngle(ring []float32, angle float32, useSplines bool) float32 {
	switch len(ring) {
	case 0:
		return defaultProfileRadius
	case 1:
		return ring[0]
	}

	if useSplines {
		return CatmullRomClosed(ring, angle)
	}

	n := len(ring)
	angleStep := 2 * math32.Pi / float32(n)

	floatIndex := math32.Mod(angle/angleStep, float32(n))
	if floatIndex < 0 {
		floatIndex += float32(n)
	}
	i0 := int(math32.Floor(floatIndex))
	if i0 > n-1 {
		i0 = n - 1
	}
	i1 := (i0 + 1) % n
	frac := floatIndex - float32(i0)

	return ring[i0]*(1-frac) + ring[i1]*frac
}

// ringAverage returns the mean radius of profiles[i], guarding against
// missing rings.
func ringAverage(profiles [][]float32, i int) float32 {
	if i < 0 || i >= len(profiles) || len(profiles[i]) == 0 {
		return defaultProfileRadius
	}
	var sum float32
	for _, r := range profiles[i] {
		sum += r
	}
	return sum / float32(len(profiles[i]))
}
