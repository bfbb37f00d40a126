package geom

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min Vec3 `json:"min"`
	Max Vec3 `json:"max"`
}

// Extent returns the box size along each axis.
func (b AABB) Extent() Vec3 {
	return b.Max.Sub(b.Min)
}

// MaxExtent returns the largest axis extent.
func (b AABB) MaxExtent() float32 {
	e := b.Extent()
	m := e.X
	if e.Y > m {
		m = e.Y
	}
	if e.Z > m {
		m = e.Z
	}
	return m
}

// Contains reports whether p lies inside or on the box.
func (b AABB) Contains(p Vec3) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}
