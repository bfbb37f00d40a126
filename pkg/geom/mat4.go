package geom

// Mat4 is a column-major 4x4 matrix: element (row r, col c) lives at
// index c*4+r, matching the layout GPU APIs expect.
type Mat4 struct {
	Data [16]float32
}

// Mat4Identity returns the identity matrix.
func Mat4Identity() Mat4 {
	var m Mat4
	m.Data[0] = 1
	m.Data[5] = 1
	m.Data[10] = 1
	m.Data[15] = 1
	return m
}

// Compose builds the matrix that rotates by r and then translates by t.
func Compose(t Vec3, r Quat) Mat4 {
	x, y, z, w := r.X, r.Y, r.Z, r.W
	xx, yy, zz := x*x, y*y, z*z
	xy, xz, yz := x*y, x*z, y*z
	wx, wy, wz := w*x, w*y, w*z

	var m Mat4
	m.Data[0] = 1 - 2*(yy+zz)
	m.Data[1] = 2 * (xy + wz)
	m.Data[2] = 2 * (xz - wy)

	m.Data[4] = 2 * (xy - wz)
	m.Data[5] = 1 - 2*(xx+zz)
	m.Data[6] = 2 * (yz + wx)

	m.Data[8] = 2 * (xz + wy)
	m.Data[9] = 2 * (yz - wx)
	m.Data[10] = 1 - 2*(xx+yy)

	m.Data[12] = t.X
	m.Data[13] = t.Y
	m.Data[14] = t.Z
	m.Data[15] = 1
	return m
}

// MulPoint transforms p as a position (w = 1).
func (m Mat4) MulPoint(p Vec3) Vec3 {
	d := &m.Data
	return Vec3{
		d[0]*p.X + d[4]*p.Y + d[8]*p.Z + d[12],
		d[1]*p.X + d[5]*p.Y + d[9]*p.Z + d[13],
		d[2]*p.X + d[6]*p.Y + d[10]*p.Z + d[14],
	}
}

// Mul returns the matrix product m * o.
func (m Mat4) Mul(o Mat4) Mat4 {
	var out Mat4
	for c := 0; c < 4; c++ {
		for r := 0; r < 4; r++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += m.Data[k*4+r] * o.Data[c*4+k]
			}
			out.Data[c*4+r] = sum
		}
	}
	return out
}
