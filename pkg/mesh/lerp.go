package mesh

import (
	"fmt"

	"github.com/bodyforge/bodyforge/pkg/geom"
)

// Lerp blends two topologically identical meshes. t is clamped to
// [0,1]; the result keeps mesh a's index buffer. Normals are blended
// and renormalized per vertex.
func Lerp(a, b *Mesh, t float32) (*Mesh, error) {
	if len(a.Vertices) != len(b.Vertices) {
		return nil, fmt.Errorf("mesh: vertex count mismatch: %d vs %d", a.VertexCount(), b.VertexCount())
	}
	if len(a.Indices) != len(b.Indices) {
		return nil, fmt.Errorf("mesh: index count mismatch: %d vs %d", len(a.Indices), len(b.Indices))
	}

	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}

	out := &Mesh{
		Vertices: make([]float32, len(a.Vertices)),
		Indices:  append([]uint32(nil), a.Indices...),
		Name:     fmt.Sprintf("Lerp_%s_%s", a.Name, b.Name),
	}
	for i := range a.Vertices {
		out.Vertices[i] = a.Vertices[i] + (b.Vertices[i]-a.Vertices[i])*t
	}

	if a.HasNormals() && b.HasNormals() {
		out.Normals = make([]float32, len(a.Normals))
		for i := 0; i < len(a.Normals); i += 3 {
			na := geom.Vec3{X: a.Normals[i], Y: a.Normals[i+1], Z: a.Normals[i+2]}
			nb := geom.Vec3{X: b.Normals[i], Y: b.Normals[i+1], Z: b.Normals[i+2]}
			n := na.Lerp(nb, t).Normalize()
			out.Normals[i], out.Normals[i+1], out.Normals[i+2] = n.X, n.Y, n.Z
		}
	}
	return out, nil
}

// MultiLerp blends any number of topologically identical meshes by
// normalized weights. The result keeps the first mesh's index buffer.
func MultiLerp(meshes []*Mesh, weights []float32) (*Mesh, error) {
	if len(meshes) == 0 {
		return nil, fmt.Errorf("mesh: no meshes to interpolate")
	}
	if len(meshes) != len(weights) {
		return nil, fmt.Errorf("mesh: %d meshes but %d weights", len(meshes), len(weights))
	}

	var sum float32
	for _, w := range weights {
		sum += w
	}
	if sum == 0 {
		return nil, fmt.Errorf("mesh: weight sum is zero")
	}

	first := meshes[0]
	for i, m := range meshes[1:] {
		if len(m.Vertices) != len(first.Vertices) {
			return nil, fmt.Errorf("mesh %d: vertex count mismatch: %d vs %d", i+1, m.VertexCount(), first.VertexCount())
		}
	}

	withNormals := true
	for _, m := range meshes {
		if !m.HasNormals() {
			withNormals = false
			break
		}
	}

	out := &Mesh{
		Vertices: make([]float32, len(first.Vertices)),
		Indices:  append([]uint32(nil), first.Indices...),
		Name:     "MultiLerp_Result",
	}
	if withNormals {
		out.Normals = make([]float32, len(first.Normals))
	}

	for mi, m := range meshes {
		w := weights[mi] / sum
		for i := range m.Vertices {
			out.Vertices[i] += m.Vertices[i] * w
		}
		if withNormals {
			for i := range m.Normals {
				out.Normals[i] += m.Normals[i] * w
			}
		}
	}

	if withNormals {
		for i := 0; i < len(out.Normals); i += 3 {
			n := geom.Vec3{X: out.Normals[i], Y: out.Normals[i+1], Z: out.Normals[i+2]}.Normalize()
			out.Normals[i], out.Normals[i+1], out.Normals[i+2] = n.X, n.Y, n.Z
		}
	}
	return out, nil
}
