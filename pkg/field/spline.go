package field

import "github.com/chewxy/math32"

// Catmull-Rom splines pass through every control point with C1
// continuity, which makes hand-edited profile rings behave predictably.

// CatmullRom samples the spline segment between p1 and p2 at t in
// [0,1]. p0 and p3 only shape the tangents.
func CatmullRom(p0, p1, p2, p3, t float32) float32 {
	t2 := t * t
	t3 := t2 * t

	a := -0.5*p0 + 1.5*p1 - 1.5*p2 + 0.5*p3
	b := p0 - 2.5*p1 + 2.0*p2 - 0.5*p3
	c := -0.5*p0 + 0.5*p2
	d := p1

	return a*t3 + b*t2 + c*t + d
}

// CatmullRomArray samples a spline through values at t in [0,1] across
// the whole array. Endpoint tangents are clamped by repeating the first
// and last values.
func CatmullRomArray(values []float32, t float32) float32 {
	switch len(values) {
	case 0:
		return 0
	case 1:
		return values[0]
	case 2:
		return values[0]*(1-t) + values[1]*t
	}

	t = clamp01(t)

	numSegments := len(values) - 1
	segFloat := t * float32(numSegments)
	segIdx := int(math32.Floor(segFloat))
	if segIdx > numSegments-1 {
		segIdx = numSegments - 1
	}
	localT := segFloat - float32(segIdx)

	p0 := values[0]
	if segIdx > 0 {
		p0 = values[segIdx-1]
	}
	p1 := values[segIdx]
	p2 := values[segIdx+1]
	p3 := values[len(values)-1]
	if segIdx+2 < len(values) {
		p3 = values[segIdx+2]
	}

	return CatmullRom(p0, p1, p2, p3, localT)
}

// CatmullRomClosed samples a closed spline loop through values at the
// given angle in radians. Control points are evenly spaced around the
// full turn and the loop wraps.
func CatmullRomClosed(values []float32, angle float32) float32 {
	switch len(values) {
	case 0:
		return 0
	case 1:
		return values[0]
	}

	n := len(values)
	twoPi := 2 * math32.Pi
	normalized := math32.Mod(math32.Mod(angle, twoPi)+twoPi, twoPi)

	t := normalized / twoPi * float32(n)
	segIdx := int(math32.Floor(t)) % n
	localT := t - math32.Floor(t)

	p0 := values[(segIdx+n-1)%n]
	p1 := values[segIdx]
	p2 := values[(segIdx+1)%n]
	p3 := values[(segIdx+2)%n]

	return CatmullRom(p0, p1, p2, p3, localT)
}
