package voxel

import (
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/bodyforge/bodyforge/pkg/field"
	"github.com/bodyforge/bodyforge/pkg/geom"
)

// BrickSize is the voxel edge length of one brick. Power of two keeps
// the coordinate math to shifts and masks.
const BrickSize = 8

const brickVoxels = BrickSize * BrickSize * BrickSize

// brickCoord addresses a brick in the brick lattice.
type brickCoord struct {
	x, y, z int
}

// brick holds BrickSize³ SDF samples, ordered [z][y][x].
type brick struct {
	values [brickVoxels]float32
}

func newBrick() *brick {
	b := &brick{}
	for i := range b.values {
		b.values[i] = float32(math.Inf(1))
	}
	return b
}

func (b *brick) get(x, y, z int) float32 {
	return b.values[z*BrickSize*BrickSize+y*BrickSize+x]
}

func (b *brick) set(x, y, z int, v float32) {
	b.values[z*BrickSize*BrickSize+y*BrickSize+x] = v
}

// BrickMap is a sparse voxel grid: bricks are only allocated where the
// surface passes nearby, so high resolutions stay affordable. Reads
// from unallocated space return +Inf, which extraction treats as far
// outside.
type BrickMap struct {
	resolution int
	bounds     geom.AABB
	bricks     map[brickCoord]*brick
	brickCount int
	voxelSize  float32
}

// NewBrickMap creates an empty brick map. The resolution must be a
// multiple of BrickSize. Call AllocateSurfaceBricks to populate it.
func NewBrickMap(resolution int, bounds geom.AABB) (*BrickMap, error) {
	if resolution%BrickSize != 0 {
		return nil, fmt.Errorf("voxel: brick map resolution %d must be a multiple of %d", resolution, BrickSize)
	}
	// Largest axis extent, so non-cubic bounds are fully covered. The
	// dense grid sizes its cells the same way.
	return &BrickMap{
		resolution: resolution,
		bounds:     bounds,
		bricks:     make(map[brickCoord]*brick),
		brickCount: resolution / BrickSize,
		voxelSize:  bounds.MaxExtent() / float32(resolution),
	}, nil
}

// Resolution returns the virtual dense resolution per axis.
func (bm *BrickMap) Resolution() int { return bm.resolution }

// BrickCount returns the number of allocated bricks.
func (bm *BrickMap) BrickCount() int { return len(bm.bricks) }

// MemoryUsage reports the bytes held by allocated bricks.
func (bm *BrickMap) MemoryUsage() int { return len(bm.bricks) * brickVoxels * 4 }

// Get returns the SDF value at global voxel coordinates, or +Inf when
// the containing brick was never allocated.
func (bm *BrickMap) Get(x, y, z int) float32 {
	if x < 0 || x >= bm.resolution || y < 0 || y >= bm.resolution || z < 0 || z >= bm.resolution {
		panic(fmt.Sprintf("voxel: index (%d,%d,%d) out of range for resolution %d", x, y, z, bm.resolution))
	}
	b, ok := bm.bricks[brickCoord{x / BrickSize, y / BrickSize, z / BrickSize}]
	if !ok {
		return float32(math.Inf(1))
	}
	return b.get(x%BrickSize, y%BrickSize, z%BrickSize)
}

// Position converts (possibly fractional) voxel coordinates to a
// world-space point.
func (bm *BrickMap) Position(x, y, z float32) geom.Vec3 {
	return geom.Vec3{
		X: bm.bounds.Min.X + x*bm.voxelSize,
		Y: bm.bounds.Min.Y + y*bm.voxelSize,
		Z: bm.bounds.Min.Z + z*bm.voxelSize,
	}
}

// AllocateSurfaceBricks finds and fills the bricks the surface passes
// through. Pass 1 samples f at each brick center and keeps bricks
// whose distance is within surfaceThickness plus the brick's
// half-diagonal; pass 2 evaluates every voxel of the kept bricks.
func (bm *BrickMap) AllocateSurfaceBricks(f field.Field, surfaceThickness float32) {
	// Half the brick diagonal, the farthest a corner voxel can sit
	// from the sampled center.
	halfDiagonal := bm.voxelSize * BrickSize * 0.866

	type candidate struct {
		coord  brickCoord
		center geom.Vec3
	}
	candidates := make([]candidate, 0, bm.brickCount*bm.brickCount*bm.brickCount)
	for bz := 0; bz < bm.brickCount; bz++ {
		for by := 0; by < bm.brickCount; by++ {
			for bx := 0; bx < bm.brickCount; bx++ {
				center := bm.Position(
					float32(bx*BrickSize+BrickSize/2),
					float32(by*BrickSize+BrickSize/2),
					float32(bz*BrickSize+BrickSize/2),
				)
				candidates = append(candidates, candidate{brickCoord{bx, by, bz}, center})
			}
		}
	}

	keep := make([]bool, len(candidates))
	parallelFor(len(candidates), func(i int) {
		d := f.Evaluate(candidates[i].center)
		if math.Abs(float64(d)) < float64(surfaceThickness+halfDiagonal) {
			keep[i] = true
		}
	})

	for i, c := range candidates {
		if keep[i] {
			bm.bricks[c.coord] = newBrick()
		}
	}

	bm.evaluateAllocatedBricks(f)
}

// evaluateAllocatedBricks samples f at the center of every voxel of
// every allocated brick.
func (bm *BrickMap) evaluateAllocatedBricks(f field.Field) {
	coords := make([]brickCoord, 0, len(bm.bricks))
	for c := range bm.bricks {
		coords = append(coords, c)
	}

	parallelFor(len(coords), func(i int) {
		c := coords[i]
		b := bm.bricks[c]
		for lz := 0; lz < BrickSize; lz++ {
			for ly := 0; ly < BrickSize; ly++ {
				for lx := 0; lx < BrickSize; lx++ {
					p := bm.Position(
						float32(c.x*BrickSize+lx)+0.5,
						float32(c.y*BrickSize+ly)+0.5,
						float32(c.z*BrickSize+lz)+0.5,
					)
					b.set(lx, ly, lz, f.Evaluate(p))
				}
			}
		}
	})
}

// parallelFor runs fn for every index in [0, n) across worker
// goroutines and waits for completion.
func parallelFor(n int, fn func(i int)) {
	workers := runtime.NumCPU()
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}

	var wg sync.WaitGroup
	work := make(chan int)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range work {
				fn(i)
			}
		}()
	}
	for i := 0; i < n; i++ {
		work <- i
	}
	close(work)
	wg.Wait()
}

var _ Grid = (*BrickMap)(nil)
