// Package mould defines the authoring primitives whose blended signed
// distance field forms the body surface, and the manager that owns them.
package mould

import (
	"fmt"

	"github.com/bodyforge/bodyforge/pkg/geom"
)

// Shape distinguishes mould primitives.
type Shape int

const (
	ShapeSphere Shape = iota
	ShapeCapsule
	ShapeProfiledCapsule
)

func (s Shape) String() string {
	switch s {
	case ShapeSphere:
		return "sphere"
	case ShapeCapsule:
		return "capsule"
	case ShapeProfiledCapsule:
		return "profiled-capsule"
	default:
		return "unknown"
	}
}

// ParseShape converts a shape name to its Shape value.
func ParseShape(name string) (Shape, error) {
	switch name {
	case "sphere":
		return ShapeSphere, nil
	case "capsule":
		return ShapeCapsule, nil
	case "profiled-capsule":
		return ShapeProfiledCapsule, nil
	}
	return 0, fmt.Errorf("unknown mould shape %q", name)
}

// DefaultBlendRadius is used when a mould definition leaves the blend
// radius unset.
const DefaultBlendRadius = 0.1

// Mould is one primitive. Center and EndPoint are expressed in the
// parent joint's local space; when ParentJointID is empty (or no
// skeleton is attached) they are used as world coordinates directly.
type Mould struct {
	ID            string
	Shape         Shape
	Center        geom.Vec3
	Radius        float32
	BlendRadius   float32
	ParentJointID string

	// EndPoint is the far end of the bone segment; required for
	// capsule and profiled-capsule shapes.
	EndPoint *geom.Vec3

	// RadialProfiles is indexed [segment along bone][control point
	// around ring]; required for profiled capsules.
	RadialProfiles [][]float32

	// UseSplines selects Catmull-Rom over bilinear interpolation of
	// the radial profiles.
	UseSplines bool
}

// New validates a mould definition and returns it unchanged. Malformed
// definitions are rejected here so they can never reach SDF evaluation.
// Profiled capsules are exempt from the positive-radius requirement:
// their radii come entirely from RadialProfiles, and the Radius field
// is not read by their SDF.
func New(m Mould) (Mould, error) {
	if m.ID == "" {
		return Mould{}, fmt.Errorf("mould: id must not be empty")
	}
	if m.Radius <= 0 && m.Shape != ShapeProfiledCapsule {
		return Mould{}, fmt.Errorf("mould %s: radius must be positive, got %v", m.ID, m.Radius)
	}
	if m.BlendRadius < 0 {
		return Mould{}, fmt.Errorf("mould %s: blend radius must not be negative, got %v", m.ID, m.BlendRadius)
	}

	switch m.Shape {
	case ShapeSphere:
		// No extra requirements.
	case ShapeCapsule:
		if m.EndPoint == nil {
			return Mould{}, fmt.Errorf("mould %s: capsule requires an end point", m.ID)
		}
	case ShapeProfiledCapsule:
		if m.EndPoint == nil {
			return Mould{}, fmt.Errorf("mould %s: profiled capsule requires an end point", m.ID)
		}
		if err := validateProfiles(m.RadialProfiles); err != nil {
			return Mould{}, fmt.Errorf("mould %s: %w", m.ID, err)
		}
	default:
		return Mould{}, fmt.Errorf("mould %s: unknown shape %d", m.ID, int(m.Shape))
	}

	return m, nil
}

func validateProfiles(profiles [][]float32) error {
	if len(profiles) < 2 {
		return fmt.Errorf("radial profiles need at least 2 segments, got %d", len(profiles))
	}
	n := len(profiles[0])
	if n == 0 {
		return fmt.Errorf("radial profile rings must not be empty")
	}
	for i, ring := range profiles {
		if len(ring) != n {
			return fmt.Errorf("radial profile ring %d has %d control points, want %d", i, len(ring), n)
		}
		for j, r := range ring {
			if r <= 0 {
				return fmt.Errorf("radial profile ring %d point %d: radius must be positive, got %v", i, j, r)
			}
		}
	}
	return nil
}

// clone deep-copies the mould, detaching the EndPoint pointer and the
// profile rings from the original.
func (m Mould) clone() Mould {
	c := m
	if m.EndPoint != nil {
		end := *m.EndPoint
		c.EndPoint = &end
	}
	if m.RadialProfiles != nil {
		c.RadialProfiles = make([][]float32, len(m.RadialProfiles))
		for i, ring := range m.RadialProfiles {
			c.RadialProfiles[i] = append([]float32(nil), ring...)
		}
	}
	return c
}
