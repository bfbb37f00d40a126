// Package extract defines the contract for turning a signed distance
// field into a triangle mesh. Concrete extractors live in the dual and
// sdfx subpackages.
package extract

import (
	"fmt"

	"github.com/bodyforge/bodyforge/pkg/field"
	"github.com/bodyforge/bodyforge/pkg/geom"
	"github.com/bodyforge/bodyforge/pkg/mesh"
)

// Resolutions enumerates the grid resolutions the UI offers.
var Resolutions = []int{32, 48, 64, 96, 128, 256}

// Options controls one extraction run.
type Options struct {
	// Resolution is the lattice point count per axis; must be one of
	// Resolutions.
	Resolution int

	// Bounds is the world-space box to sample; characters are authored
	// to fit inside it.
	Bounds geom.AABB

	// IsoValue is the level set to extract, usually 0.
	IsoValue float32

	// FastMode skips per-vertex surface refinement for interactive
	// previews.
	FastMode bool

	// UseBrickMap samples the field into sparse bricks instead of a
	// dense grid. Requires Resolution to be a multiple of the brick
	// size.
	UseBrickMap bool
}

// DefaultBounds is the sampling box sized for a standing figure,
// slightly larger than the character itself.
func DefaultBounds() geom.AABB {
	return geom.AABB{
		Min: geom.Vec3{X: -1, Y: -1, Z: -1},
		Max: geom.Vec3{X: 1, Y: 1.5, Z: 1},
	}
}

// DefaultOptions returns a quality-mode extraction at the default
// interactive resolution.
func DefaultOptions() Options {
	return Options{Resolution: 64, Bounds: DefaultBounds()}
}

// Validate rejects options an extractor cannot honor.
func (o Options) Validate() error {
	ok := false
	for _, r := range Resolutions {
		if o.Resolution == r {
			ok = true
			break
		}
	}
	if !ok {
		return fmt.Errorf("extract: resolution %d not in %v", o.Resolution, Resolutions)
	}
	ext := o.Bounds.Extent()
	if ext.X <= 0 || ext.Y <= 0 || ext.Z <= 0 {
		return fmt.Errorf("extract: bounds %v have non-positive extent", o.Bounds)
	}
	return nil
}

// Extractor turns a signed distance field into a triangle mesh.
type Extractor interface {
	Extract(f field.Field, opts Options) (*mesh.Mesh, error)
}
