package sdfx

import (
	"math"
	"testing"

	"github.com/bodyforge/bodyforge/pkg/extract"
	"github.com/bodyforge/bodyforge/pkg/field"
	"github.com/bodyforge/bodyforge/pkg/geom"
)

func sphereField(r float32) field.Field {
	return field.Func(func(p geom.Vec3) float32 {
		return field.Sphere(p, geom.Vec3{}, r)
	})
}

func TestSphereExtraction(t *testing.T) {
	opts := extract.Options{
		Resolution: 64,
		Bounds: geom.AABB{
			Min: geom.Vec3{X: -1, Y: -1, Z: -1},
			Max: geom.Vec3{X: 1, Y: 1, Z: 1},
		},
	}

	m, err := New().Extract(sphereField(0.5), opts)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if m.IsEmpty() {
		t.Fatal("mesh is empty")
	}
	if m.TriangleCount() == 0 {
		t.Fatal("expected non-zero triangle count")
	}
	if len(m.Vertices) != len(m.Normals) {
		t.Fatalf("vertices length %d != normals length %d", len(m.Vertices), len(m.Normals))
	}
	if len(m.Indices) != m.TriangleCount()*3 {
		t.Fatalf("indices length %d != triCount*3 %d", len(m.Indices), m.TriangleCount()*3)
	}

	// Marching cubes places vertices on cube edges; they stay within a
	// cell of the true surface.
	cell := 2.0 / 64.0
	for i := 0; i < len(m.Vertices); i += 3 {
		d := math.Sqrt(float64(
			m.Vertices[i]*m.Vertices[i] +
				m.Vertices[i+1]*m.Vertices[i+1] +
				m.Vertices[i+2]*m.Vertices[i+2]))
		if math.Abs(d-0.5) > cell {
			t.Fatalf("vertex %d at distance %v from center, want within %v of 0.5", i/3, d, cell)
		}
	}
}

func TestInvalidResolutionRejected(t *testing.T) {
	opts := extract.Options{
		Resolution: 50,
		Bounds: geom.AABB{
			Min: geom.Vec3{X: -1, Y: -1, Z: -1},
			Max: geom.Vec3{X: 1, Y: 1, Z: 1},
		},
	}
	if _, err := New().Extract(sphereField(0.5), opts); err == nil {
		t.Fatal("expected error for resolution outside the enumerated set")
	}
}
