// Package sdfx implements surface extraction through the
// github.com/deadsy/sdfx CAD library's marching cubes renderer. It is
// an alternate backend to the dual-contouring extractor: simpler,
// well-proven, but with per-face normals and more visible faceting.
package sdfx

import (
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/bodyforge/bodyforge/pkg/extract"
	"github.com/bodyforge/bodyforge/pkg/field"
	"github.com/bodyforge/bodyforge/pkg/geom"
	"github.com/bodyforge/bodyforge/pkg/mesh"
)

// Compile-time interface check.
var _ extract.Extractor = (*Extractor)(nil)

// fieldSDF3 adapts a field.Field to sdf.SDF3. sdfx works in float64;
// the field is float32 throughout, so values round-trip through a
// narrowing conversion.
type fieldSDF3 struct {
	f      field.Field
	bounds sdf.Box3
	iso    float64
}

func (s *fieldSDF3) Evaluate(p v3.Vec) float64 {
	d := s.f.Evaluate(geom.Vec3{X: float32(p.X), Y: float32(p.Y), Z: float32(p.Z)})
	return float64(d) - s.iso
}

func (s *fieldSDF3) BoundingBox() sdf.Box3 {
	return s.bounds
}

// Extractor implements extract.Extractor with marching cubes.
type Extractor struct{}

// New returns a marching-cubes extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract renders the field's iso surface with uniform marching cubes
// at the requested resolution. FastMode and UseBrickMap have no effect
// on this backend.
func (e *Extractor) Extract(f field.Field, opts extract.Options) (*mesh.Mesh, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	s := &fieldSDF3{
		f: f,
		bounds: sdf.Box3{
			Min: v3.Vec{X: float64(opts.Bounds.Min.X), Y: float64(opts.Bounds.Min.Y), Z: float64(opts.Bounds.Min.Z)},
			Max: v3.Vec{X: float64(opts.Bounds.Max.X), Y: float64(opts.Bounds.Max.Y), Z: float64(opts.Bounds.Max.Z)},
		},
		iso: float64(opts.IsoValue),
	}

	renderer := render.NewMarchingCubesUniform(opts.Resolution)
	triangles := render.ToTriangles(s, renderer)

	numVerts := len(triangles) * 3
	out := &mesh.Mesh{
		Vertices: make([]float32, 0, numVerts*3),
		Normals:  make([]float32, 0, numVerts*3),
		Indices:  make([]uint32, 0, numVerts),
	}

	for i, tri := range triangles {
		n := tri.Normal()
		nx, ny, nz := float32(n.X), float32(n.Y), float32(n.Z)

		for j := 0; j < 3; j++ {
			v := tri[j]
			out.Vertices = append(out.Vertices, float32(v.X), float32(v.Y), float32(v.Z))
			out.Normals = append(out.Normals, nx, ny, nz)
			out.Indices = append(out.Indices, uint32(i*3+j))
		}
	}
	return out, nil
}
