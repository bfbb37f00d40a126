package field

import (
	"testing"

	"github.com/bodyforge/bodyforge/pkg/geom"
	"github.com/chewxy/math32"
)

// uniformProfiles builds rings with a constant radius everywhere, which
// makes a profiled capsule behave exactly like a plain capsule.
func uniformProfiles(segments, points int, radius float32) [][]float32 {
	profiles := make([][]float32, segments)
	for i := range profiles {
		ring := make([]float32, points)
		for j := range ring {
			ring[j] = radius
		}
		profiles[i] = ring
	}
	return profiles
}

func TestProfiledCapsuleUniformMatchesCapsule(t *testing.T) {
	a := geom.Vec3{X: -0.5}
	b := geom.Vec3{X: 0.5}
	r := float32(0.2)
	profiles := uniformProfiles(3, 8, r)

	points := []geom.Vec3{
		{},
		{Y: 0.15},
		{X: 0.3, Z: 0.1},
		{X: -0.2, Y: -0.25, Z: 0.05},
	}
	for _, p := range points {
		want := Capsule(p, a, b, r)
		for _, splines := range []bool{false, true} {
			got := ProfiledCapsule(p, a, b, profiles, splines)
			if math32.Abs(got-want) > 1e-4 {
				t.Errorf("uniform profile at %v (splines=%v): got %v, want capsule %v", p, splines, got, want)
			}
		}
	}
}

func TestProfiledCapsuleEndCaps(t *testing.T) {
	a := geom.Vec3{}
	b := geom.Vec3{X: 1}
	profiles := [][]float32{
		{0.1, 0.1, 0.1, 0.1},
		{0.3, 0.3, 0.3, 0.3},
	}

	// Beyond the start: spherical cap with the first ring's average.
	p := geom.Vec3{X: -0.5}
	if got := ProfiledCapsule(p, a, b, profiles, false); !approx(got, 0.5-0.1) {
		t.Errorf("start cap: got %v, want 0.4", got)
	}

	// Beyond the end: last ring's average.
	p = geom.Vec3{X: 1.7}
	if got := ProfiledCapsule(p, a, b, profiles, false); !approx(got, 0.7-0.3) {
		t.Errorf("end cap: got %v, want 0.4", got)
	}
}

func TestProfiledCapsuleDegenerateBone(t *testing.T) {
	a := geom.Vec3{Y: 1}
	profiles := [][]float32{{0.2, 0.4}, {0.1, 0.1}}

	// a == b: sphere with the first ring's average radius (0.3).
	p := a.Add(geom.Vec3{X: 1})
	if got := ProfiledCapsule(p, a, a, profiles, false); !approx(got, 1-0.3) {
		t.Errorf("degenerate bone: got %v, want 0.7", got)
	}
}

func TestProfiledCapsuleAngularVariation(t *testing.T) {
	// Bone along X; ring angle 0 points along the basis u (world up for
	// a horizontal bone). Fatter at angle 0 than at the opposite side.
	a := geom.Vec3{X: -0.5}
	b := geom.Vec3{X: 0.5}
	profiles := [][]float32{
		{0.4, 0.2, 0.1, 0.2},
		{0.4, 0.2, 0.1, 0.2},
	}

	up := geom.Vec3{Y: 0.25}
	down := geom.Vec3{Y: -0.25}
	dUp := ProfiledCapsule(up, a, b, profiles, false)
	dDown := ProfiledCapsule(down, a, b, profiles, false)
	if dUp >= dDown {
		t.Errorf("expected surface farther out at angle 0: up=%v down=%v", dUp, dDown)
	}
	// Exact control-point radii at their angles.
	if !approx(dUp, 0.25-0.4) {
		t.Errorf("angle 0 distance = %v, want %v", dUp, 0.25-0.4)
	}
	if !approx(dDown, 0.25-0.1) {
		t.Errorf("angle pi distance = %v, want %v", dDown, 0.25-0.1)
	}
}

func TestSampleRingAtAngleLinear(t *testing.T) {
	ring := []float32{1, 2, 3, 2}
	step := 2 * math32.Pi / 4

	for i, want := range ring {
		if got := SampleRingAtAngle(ring, float32(i)*step, false); !approx(got, want) {
			t.Errorf("control point %d: got %v, want %v", i, got, want)
		}
	}
	// Halfway between the first two control points.
	if got := SampleRingAtAngle(ring, step/2, false); !approx(got, 1.5) {
		t.Errorf("halfway sample = %v, want 1.5", got)
	}
}

func TestSampleRingAtAngleSingle(t *testing.T) {
	if got := SampleRingAtAngle([]float32{0.7}, 1.3, true); got != 0.7 {
		t.Errorf("single-point ring = %v, want 0.7", got)
	}
	if got := SampleRingAtAngle(nil, 0, false); got != defaultProfileRadius {
		t.Errorf("empty ring = %v, want default", got)
	}
}
