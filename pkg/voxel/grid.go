// Package voxel samples a signed distance field onto regular 3-D
// lattices. It provides a dense grid and a sparse brick-map variant
// that only allocates storage near the surface.
package voxel

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/bodyforge/bodyforge/pkg/field"
	"github.com/bodyforge/bodyforge/pkg/geom"
)

// Grid abstracts over dense and sparse voxel storage so extraction can
// consume either. Coordinates passed to Position may be fractional
// (0.5 addresses a cell center).
type Grid interface {
	Resolution() int
	Get(x, y, z int) float32
	Position(x, y, z float32) geom.Vec3
}

// VoxelGrid stores one SDF sample per lattice point of a dense
// resolution³ grid. Data is indexed x + y·res + z·res².
type VoxelGrid struct {
	resolution int
	bounds     geom.AABB
	cellSize   float32

	Data []float32
}

// NewVoxelGrid allocates a zeroed grid over the given bounds. The cell
// size is derived from the longest bounds extent so the grid spans it
// exactly with resolution lattice points.
func NewVoxelGrid(resolution int, bounds geom.AABB) *VoxelGrid {
	if resolution < 2 {
		panic(fmt.Sprintf("voxel: resolution must be at least 2, got %d", resolution))
	}
	return &VoxelGrid{
		resolution: resolution,
		bounds:     bounds,
		cellSize:   bounds.MaxExtent() / float32(resolution-1),
		Data:       make([]float32, resolution*resolution*resolution),
	}
}

// Resolution returns the lattice point count per axis.
func (g *VoxelGrid) Resolution() int { return g.resolution }

// CellSize returns the world-space spacing between lattice points.
func (g *VoxelGrid) CellSize() float32 { return g.cellSize }

// Bounds returns the world-space box the grid spans.
func (g *VoxelGrid) Bounds() geom.AABB { return g.bounds }

// Evaluate fills the grid by sampling f at every lattice point. Slabs
// of constant z are distributed across worker goroutines; every run
// over the same field produces identical data.
func (g *VoxelGrid) Evaluate(f field.Field) {
	res := g.resolution
	workers := runtime.NumCPU()
	if workers > res {
		workers = res
	}

	var wg sync.WaitGroup
	slabs := make(chan int)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for z := range slabs {
				base := z * res * res
				for y := 0; y < res; y++ {
					row := base + y*res
					for x := 0; x < res; x++ {
						p := g.Position(float32(x), float32(y), float32(z))
						g.Data[row+x] = f.Evaluate(p)
					}
				}
			}
		}()
	}
	for z := 0; z < res; z++ {
		slabs <- z
	}
	close(slabs)
	wg.Wait()
}

// Get returns the stored SDF value at integer lattice coordinates.
// Out-of-range coordinates are a programming error and panic.
func (g *VoxelGrid) Get(x, y, z int) float32 {
	res := g.resolution
	if x < 0 || x >= res || y < 0 || y >= res || z < 0 || z >= res {
		panic(fmt.Sprintf("voxel: index (%d,%d,%d) out of range for resolution %d", x, y, z, res))
	}
	return g.Data[x+y*res+z*res*res]
}

// Set stores an SDF value at integer lattice coordinates, with the
// same range check as Get.
func (g *VoxelGrid) Set(x, y, z int, v float32) {
	res := g.resolution
	if x < 0 || x >= res || y < 0 || y >= res || z < 0 || z >= res {
		panic(fmt.Sprintf("voxel: index (%d,%d,%d) out of range for resolution %d", x, y, z, res))
	}
	g.Data[x+y*res+z*res*res] = v
}

// Position converts (possibly fractional) lattice coordinates to a
// world-space point.
func (g *VoxelGrid) Position(x, y, z float32) geom.Vec3 {
	return geom.Vec3{
		X: g.bounds.Min.X + x*g.cellSize,
		Y: g.bounds.Min.Y + y*g.cellSize,
		Z: g.bounds.Min.Z + z*g.cellSize,
	}
}

var _ Grid = (*VoxelGrid)(nil)
