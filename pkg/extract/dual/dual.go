// Package dual implements dual-contouring surface extraction: one
// vertex per surface-crossing cell, refined onto the isosurface by
// Newton iteration, stitched with quad faces triangulated along the
// shorter diagonal.
package dual

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/chewxy/math32"

	"github.com/bodyforge/bodyforge/pkg/extract"
	"github.com/bodyforge/bodyforge/pkg/field"
	"github.com/bodyforge/bodyforge/pkg/geom"
	"github.com/bodyforge/bodyforge/pkg/mesh"
	"github.com/bodyforge/bodyforge/pkg/voxel"
)

const (
	maxNewtonIterations = 20
	newtonTolerance     = 1e-4

	// Below this gradient magnitude the Newton step is abandoned and
	// the current position kept (flat or saddle region).
	gradientFloor = 1e-4
)

// Extractor is the dual-contouring implementation of extract.Extractor.
type Extractor struct{}

// New returns a dual-contouring extractor.
func New() *Extractor { return &Extractor{} }

var _ extract.Extractor = (*Extractor)(nil)

// Extract samples f over the requested grid and contours the result.
func (e *Extractor) Extract(f field.Field, opts extract.Options) (*mesh.Mesh, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	var g voxel.Grid
	if opts.UseBrickMap {
		bm, err := voxel.NewBrickMap(opts.Resolution, opts.Bounds)
		if err != nil {
			return nil, fmt.Errorf("extract: %w", err)
		}
		// Keep a couple of voxels of slack around the surface so cell
		// corners next to the crossing are always sampled.
		thickness := 2 * opts.Bounds.Extent().X / float32(opts.Resolution)
		bm.AllocateSurfaceBricks(f, thickness)
		g = bm
	} else {
		vg := voxel.NewVoxelGrid(opts.Resolution, opts.Bounds)
		vg.Evaluate(f)
		g = vg
	}

	return ExtractGrid(g, f, opts.IsoValue, opts.FastMode), nil
}

type cellKey struct {
	x, y, z int
}

type placedCell struct {
	key cellKey
	pos geom.Vec3
}

// ExtractGrid contours an already-sampled grid. f is consulted for
// Newton refinement; in fast mode vertices stay at cell centers and f
// is never evaluated. The output is deterministic: identical inputs
// produce bit-identical buffers.
func ExtractGrid(g voxel.Grid, f field.Field, isoValue float32, fastMode bool) *mesh.Mesh {
	res := g.Resolution()
	cellsPerAxis := res - 1

	// Vertex placement, parallel over z slabs. Each slab gathers its
	// surface cells in y,x order; slabs are concatenated in z order so
	// vertex indices are reproducible.
	slabs := make([][]placedCell, cellsPerAxis)
	parallelSlabs(cellsPerAxis, func(z int) {
		var local []placedCell
		for y := 0; y < cellsPerAxis; y++ {
			for x := 0; x < cellsPerAxis; x++ {
				if !cellIntersectsSurface(g, x, y, z, isoValue) {
					continue
				}
				var pos geom.Vec3
				if fastMode {
					pos = g.Position(float32(x)+0.5, float32(y)+0.5, float32(z)+0.5)
				} else {
					pos = findCellVertex(g, f, x, y, z, isoValue)
				}
				local = append(local, placedCell{cellKey{x, y, z}, pos})
			}
		}
		slabs[z] = local
	})

	var placed []placedCell
	for _, s := range slabs {
		placed = append(placed, s...)
	}

	vertices := make([]float32, 0, len(placed)*3)
	cellIndex := make(map[cellKey]uint32, len(placed))
	positions := make([]geom.Vec3, len(placed))
	for i, pc := range placed {
		cellIndex[pc.key] = uint32(i)
		positions[i] = pc.pos
		vertices = append(vertices, pc.pos.X, pc.pos.Y, pc.pos.Z)
	}

	// Face generation walks placed cells in the same deterministic
	// order. A quad is emitted only when all four cells of the 2x2
	// group carry vertices; boundary cells silently skip.
	var indices []uint32
	for _, pc := range placed {
		x, y, z := pc.key.x, pc.key.y, pc.key.z

		if y < res-2 && z < res-2 {
			indices = faceX(cellIndex, positions, indices, x, y, z)
		}
		if x < res-2 && z < res-2 {
			indices = faceY(cellIndex, positions, indices, x, y, z)
		}
		if x < res-2 && y < res-2 {
			indices = faceZ(cellIndex, positions, indices, x, y, z)
		}
	}

	return &mesh.Mesh{
		Vertices: vertices,
		Indices:  indices,
		Normals:  computeNormals(vertices, indices),
	}
}

// cellIntersectsSurface reports whether the 8 corners of the cell at
// (x,y,z) straddle the iso value.
func cellIntersectsSurface(g voxel.Grid, x, y, z int, isoValue float32) bool {
	corners := [8]float32{
		g.Get(x, y, z),
		g.Get(x+1, y, z),
		g.Get(x+1, y, z+1),
		g.Get(x, y, z+1),
		g.Get(x, y+1, z),
		g.Get(x+1, y+1, z),
		g.Get(x+1, y+1, z+1),
		g.Get(x, y+1, z+1),
	}

	hasInside := false
	hasOutside := false
	for _, v := range corners {
		if v < isoValue {
			hasInside = true
		} else {
			hasOutside = true
		}
	}
	return hasInside && hasOutside
}

// findCellVertex refines the cell-center position onto the isosurface
// with Newton iteration. Divergence or a near-zero gradient terminates
// early and keeps the best position reached.
func findCellVertex(g voxel.Grid, f field.Field, x, y, z int, isoValue float32) geom.Vec3 {
	pos := g.Position(float32(x)+0.5, float32(y)+0.5, float32(z)+0.5)

	for i := 0; i < maxNewtonIterations; i++ {
		dist := f.Evaluate(pos) - isoValue
		if math32.Abs(dist) < newtonTolerance {
			break
		}

		grad := field.Gradient(f, pos)
		gradLen := grad.Length()
		if gradLen < gradientFloor {
			break
		}

		// For a well-formed SDF this step moves exactly the signed
		// distance toward the surface.
		step := dist / gradLen
		pos = pos.Sub(grad.Scale(step))
	}
	return pos
}

// faceX stitches the 2x2 cell group around the +X edge at (x,y,z).
// The winding flips with the face normal's X sign so triangles always
// face outward.
func faceX(cellIndex map[cellKey]uint32, positions []geom.Vec3, indices []uint32, x, y, z int) []uint32 {
	i0, ok0 := cellIndex[cellKey{x, y, z}]
	i1, ok1 := cellIndex[cellKey{x, y, z + 1}]
	i2, ok2 := cellIndex[cellKey{x, y + 1, z + 1}]
	i3, ok3 := cellIndex[cellKey{x, y + 1, z}]
	if !ok0 || !ok1 || !ok2 || !ok3 {
		return indices
	}

	p0, p1, p2, p3 := positions[i0], positions[i1], positions[i2], positions[i3]
	flip := p1.Sub(p0).Cross(p3.Sub(p0)).X < 0

	if p0.Distance(p2) < p1.Distance(p3) {
		if flip {
			return append(indices, i0, i2, i1, i0, i3, i2)
		}
		return append(indices, i0, i1, i2, i0, i2, i3)
	}
	if flip {
		return append(indices, i0, i3, i1, i1, i3, i2)
	}
	return append(indices, i0, i1, i3, i1, i2, i3)
}

// faceY stitches the 2x2 cell group around the +Y edge at (x,y,z);
// winding is CCW seen from +Y.
func faceY(cellIndex map[cellKey]uint32, positions []geom.Vec3, indices []uint32, x, y, z int) []uint32 {
	i0, ok0 := cellIndex[cellKey{x, y, z}]
	i1, ok1 := cellIndex[cellKey{x + 1, y, z}]
	i2, ok2 := cellIndex[cellKey{x + 1, y, z + 1}]
	i3, ok3 := cellIndex[cellKey{x, y, z + 1}]
	if !ok0 || !ok1 || !ok2 || !ok3 {
		return indices
	}

	if positions[i0].Distance(positions[i2]) < positions[i1].Distance(positions[i3]) {
		return append(indices, i0, i1, i2, i0, i2, i3)
	}
	return append(indices, i0, i1, i3, i1, i2, i3)
}

// faceZ stitches the 2x2 cell group around the +Z edge at (x,y,z);
// winding is CCW seen from +Z.
func faceZ(cellIndex map[cellKey]uint32, positions []geom.Vec3, indices []uint32, x, y, z int) []uint32 {
	i0, ok0 := cellIndex[cellKey{x, y, z}]
	i1, ok1 := cellIndex[cellKey{x + 1, y, z}]
	i2, ok2 := cellIndex[cellKey{x + 1, y + 1, z}]
	i3, ok3 := cellIndex[cellKey{x, y + 1, z}]
	if !ok0 || !ok1 || !ok2 || !ok3 {
		return indices
	}

	if positions[i0].Distance(positions[i2]) < positions[i1].Distance(positions[i3]) {
		return append(indices, i0, i1, i2, i0, i2, i3)
	}
	return append(indices, i0, i1, i3, i1, i2, i3)
}

// computeNormals builds per-vertex normals by accumulating
// area-weighted face normals and normalizing.
func computeNormals(vertices []float32, indices []uint32) []float32 {
	normals := make([]float32, len(vertices))

	at := func(i uint32) geom.Vec3 {
		return geom.Vec3{X: vertices[i*3], Y: vertices[i*3+1], Z: vertices[i*3+2]}
	}

	for i := 0; i+2 < len(indices); i += 3 {
		i0, i1, i2 := indices[i], indices[i+1], indices[i+2]
		v0 := at(i0)
		n := at(i1).Sub(v0).Cross(at(i2).Sub(v0))

		for _, idx := range [3]uint32{i0, i1, i2} {
			normals[idx*3] += n.X
			normals[idx*3+1] += n.Y
			normals[idx*3+2] += n.Z
		}
	}

	for i := 0; i < len(normals); i += 3 {
		l := math32.Sqrt(normals[i]*normals[i] + normals[i+1]*normals[i+1] + normals[i+2]*normals[i+2])
		if l > 1e-4 {
			normals[i] /= l
			normals[i+1] /= l
			normals[i+2] /= l
		}
	}
	return normals
}

// parallelSlabs runs fn for each slab index across worker goroutines.
func parallelSlabs(n int, fn func(z int)) {
	workers := runtime.NumCPU()
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		for z := 0; z < n; z++ {
			fn(z)
		}
		return
	}

	var wg sync.WaitGroup
	work := make(chan int)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for z := range work {
				fn(z)
			}
		}()
	}
	for z := 0; z < n; z++ {
		work <- z
	}
	close(work)
	wg.Wait()
}
