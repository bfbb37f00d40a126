package field

import (
	"github.com/bodyforge/bodyforge/pkg/geom"
	"github.com/chewxy/math32"
)

// degenerateSegSq is the squared segment length below which a capsule
// collapses to a sphere.
const degenerateSegSq = 1e-8

// Sphere returns the signed distance from p to a sphere.
func Sphere(p, center geom.Vec3, radius float32) float32 {
	return p.Distance(center) - radius
}

// Capsule returns the signed distance from p to a capsule: the segment
// [a,b] inflated by radius. A degenerate segment (a == b) is treated as
// a sphere.
func Capsule(p, a, b geom.Vec3, radius float32) float32 {
	ba := b.Sub(a)
	pa := p.Sub(a)

	baDot := ba.LengthSq()
	if baDot < degenerateSegSq {
		return p.Distance(a) - radius
	}

	h := clamp01(pa.Dot(ba) / baDot)
	closest := a.Add(ba.Scale(h))
	return p.Distance(closest) - radius
}

// SmoothMinPoly blends two signed distances with the quadratic
// polynomial smooth minimum. k is the blend radius: k <= 0 is the hard
// minimum, and for k > 0 the result lies in [min(d1,d2)-k/4, min(d1,d2)]
// and converges to min(d1,d2) as the operands separate.
func SmoothMinPoly(d1, d2, k float32) float32 {
	if k <= 0 {
		return math32.Min(d1, d2)
	}
	h := math32.Max(k-math32.Abs(d1-d2), 0)
	return math32.Min(d1, d2) - h*h*0.25/k
}

func clamp01(t float32) float32 {
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}
