package geom

import "github.com/chewxy/math32"

// parallelLimit is the |cos| threshold beyond which a bone counts as
// parallel to the reference axis and a fallback reference is used.
const parallelLimit = 0.99

// RingBasis builds two orthonormal vectors (u, v) perpendicular to the
// normalized bone direction dir. The reference axis is world up unless
// the bone is nearly parallel to it, in which case world X is used.
// The result is deterministic for a given direction, so profile angle 0
// always points the same way relative to the skeleton: angle 0 is u,
// and angles increase toward v.
func RingBasis(dir Vec3) (u, v Vec3) {
	ref := Vec3{0, 1, 0}
	if math32.Abs(dir.Dot(ref)) > parallelLimit {
		ref = Vec3{1, 0, 0}
	}

	// Gram-Schmidt: remove the component of ref along dir.
	u = ref.Sub(dir.Scale(ref.Dot(dir))).Normalize()
	v = dir.Cross(u)
	return u, v
}
