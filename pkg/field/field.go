// Package field implements the signed distance primitives that define
// the body surface: spheres, capsules, profiled capsules with radial
// control-point profiles, and the polynomial smooth-minimum used to
// blend them. Distances are negative inside, zero on the surface, and
// positive outside.
package field

import "github.com/bodyforge/bodyforge/pkg/geom"

// Field is an implicit surface: a signed distance sampled at any
// world-space point.
type Field interface {
	Evaluate(p geom.Vec3) float32
}

// Func adapts a plain function to the Field interface.
type Func func(p geom.Vec3) float32

// Evaluate implements Field.
func (f Func) Evaluate(p geom.Vec3) float32 { return f(p) }

// gradEpsilon is the central-difference step for Gradient. It is tuned
// well above the Newton convergence tolerance so refinement stays
// stable near the surface.
const gradEpsilon = 0.001

// Gradient approximates the spatial gradient of f at p with central
// differences.
func Gradient(f Field, p geom.Vec3) geom.Vec3 {
	dx := f.Evaluate(geom.Vec3{X: p.X + gradEpsilon, Y: p.Y, Z: p.Z}) -
		f.Evaluate(geom.Vec3{X: p.X - gradEpsilon, Y: p.Y, Z: p.Z})
	dy := f.Evaluate(geom.Vec3{X: p.X, Y: p.Y + gradEpsilon, Z: p.Z}) -
		f.Evaluate(geom.Vec3{X: p.X, Y: p.Y - gradEpsilon, Z: p.Z})
	dz := f.Evaluate(geom.Vec3{X: p.X, Y: p.Y, Z: p.Z + gradEpsilon}) -
		f.Evaluate(geom.Vec3{X: p.X, Y: p.Y, Z: p.Z - gradEpsilon})

	return geom.Vec3{
		X: dx / (2 * gradEpsilon),
		Y: dy / (2 * gradEpsilon),
		Z: dz / (2 * gradEpsilon),
	}
}
