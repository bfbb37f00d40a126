package geom

import "github.com/chewxy/math32"

// Quat is a rotation quaternion with components ordered (X, Y, Z, W).
type Quat struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
	W float32 `json:"w"`
}

// QuatIdentity returns the identity rotation.
func QuatIdentity() Quat {
	return Quat{0, 0, 0, 1}
}

// Mul composes rotations with the Hamilton product. Applying the result
// is equivalent to applying o first, then q. Non-commutative.
func (q Quat) Mul(o Quat) Quat {
	return Quat{
		X: q.W*o.X + q.X*o.W + q.Y*o.Z - q.Z*o.Y,
		Y: q.W*o.Y - q.X*o.Z + q.Y*o.W + q.Z*o.X,
		Z: q.W*o.Z + q.X*o.Y - q.Y*o.X + q.Z*o.W,
		W: q.W*o.W - q.X*o.X - q.Y*o.Y - q.Z*o.Z,
	}
}

// Normalize returns q scaled to unit length. A zero quaternion becomes
// the identity.
func (q Quat) Normalize() Quat {
	l := math32.Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)
	if l == 0 {
		return QuatIdentity()
	}
	return Quat{q.X / l, q.Y / l, q.Z / l, q.W / l}
}

// Conjugate returns the conjugate of q, which for a unit quaternion is
// its inverse rotation.
func (q Quat) Conjugate() Quat {
	return Quat{-q.X, -q.Y, -q.Z, q.W}
}

// QuatFromEuler converts Euler angles in radians to a quaternion using
// the intrinsic X-Y-Z (roll, pitch, yaw) order. Joint rotation edits are
// authored against this axis order; changing it silently re-poses every
// saved model.
func QuatFromEuler(x, y, z float32) Quat {
	cx, sx := math32.Cos(x*0.5), math32.Sin(x*0.5)
	cy, sy := math32.Cos(y*0.5), math32.Sin(y*0.5)
	cz, sz := math32.Cos(z*0.5), math32.Sin(z*0.5)

	return Quat{
		X: sx*cy*cz - cx*sy*sz,
		Y: cx*sy*cz + sx*cy*sz,
		Z: cx*cy*sz - sx*sy*cz,
		W: cx*cy*cz + sx*sy*sz,
	}
}

// RotatePoint rotates p by q (q must be unit length).
func (q Quat) RotatePoint(p Vec3) Vec3 {
	// v' = v + 2w(u x v) + 2(u x (u x v)) with u the vector part.
	u := Vec3{q.X, q.Y, q.Z}
	t := u.Cross(p).Scale(2)
	return p.Add(t.Scale(q.W)).Add(u.Cross(t))
}
