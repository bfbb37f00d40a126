package mould

import (
	"fmt"

	"github.com/bodyforge/bodyforge/pkg/field"
	"github.com/bodyforge/bodyforge/pkg/geom"
	"github.com/bodyforge/bodyforge/pkg/skeleton"
)

// FarOutside is the sentinel distance returned when no moulds exist:
// every point is far outside the (empty) surface, so extraction yields
// an empty mesh.
const FarOutside = 1000

// worldPlacement caches a mould's joint-transformed anchor points so
// the grid sweep does not walk the skeleton per voxel.
type worldPlacement struct {
	center geom.Vec3
	end    geom.Vec3
	hasEnd bool
}

// Manager owns the mould set and evaluates their blended signed
// distance field. Moulds are stored densely in insertion order; the
// fold order of the blend follows insertion order, and a mould's blend
// radius applies pairwise against the running accumulation, so order
// is part of the authored look.
//
// Manager implements field.Field.
type Manager struct {
	moulds []Mould
	byID   map[string]int

	skel *skeleton.Skeleton

	placements   []worldPlacement
	cacheValid   bool
	cacheVersion uint64
}

var _ field.Field = (*Manager)(nil)

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{byID: make(map[string]int)}
}

// SetSkeleton attaches the skeleton used to place joint-relative
// moulds. Passing nil detaches it.
func (mm *Manager) SetSkeleton(s *skeleton.Skeleton) {
	mm.skel = s
	mm.cacheValid = false
}

// Add validates and inserts a mould. Adding an existing id replaces the
// stored mould in place, keeping its blend-fold position.
func (mm *Manager) Add(m Mould) error {
	m, err := New(m)
	if err != nil {
		return fmt.Errorf("add mould: %w", err)
	}
	if i, ok := mm.byID[m.ID]; ok {
		mm.moulds[i] = m
	} else {
		mm.byID[m.ID] = len(mm.moulds)
		mm.moulds = append(mm.moulds, m)
	}
	mm.cacheValid = false
	return nil
}

// Remove deletes a mould by id, preserving the order of the rest.
func (mm *Manager) Remove(id string) bool {
	i, ok := mm.byID[id]
	if !ok {
		return false
	}
	mm.moulds = append(mm.moulds[:i], mm.moulds[i+1:]...)
	delete(mm.byID, id)
	for j := i; j < len(mm.moulds); j++ {
		mm.byID[mm.moulds[j].ID] = j
	}
	mm.cacheValid = false
	return true
}

// Get returns the mould with the given id.
func (mm *Manager) Get(id string) (Mould, bool) {
	i, ok := mm.byID[id]
	if !ok {
		return Mould{}, false
	}
	return mm.moulds[i], true
}

// Moulds returns all moulds in insertion order.
func (mm *Manager) Moulds() []Mould {
	out := make([]Mould, len(mm.moulds))
	copy(out, mm.moulds)
	return out
}

// Clone returns an independent copy of the manager, deep-copying the
// moulds and the placement cache. The clone still points at the same
// skeleton; attach a skeleton clone with SetSkeleton to detach fully.
func (mm *Manager) Clone() *Manager {
	c := &Manager{
		moulds:       make([]Mould, len(mm.moulds)),
		byID:         make(map[string]int, len(mm.byID)),
		skel:         mm.skel,
		placements:   append([]worldPlacement(nil), mm.placements...),
		cacheValid:   mm.cacheValid,
		cacheVersion: mm.cacheVersion,
	}
	for i := range mm.moulds {
		c.moulds[i] = mm.moulds[i].clone()
	}
	for id, i := range mm.byID {
		c.byID[id] = i
	}
	return c
}

// Len returns the number of moulds.
func (mm *Manager) Len() int { return len(mm.moulds) }

// Clear removes all moulds.
func (mm *Manager) Clear() {
	mm.moulds = nil
	mm.byID = make(map[string]int)
	mm.cacheValid = false
}

// RebuildTransforms recomputes the cached world-space placements. Call
// it once before a grid sweep; EvaluateSDF then runs read-only and is
// safe for concurrent use.
func (mm *Manager) RebuildTransforms() {
	if mm.cacheValid && (mm.skel == nil || mm.skel.Version() == mm.cacheVersion) {
		return
	}

	if cap(mm.placements) < len(mm.moulds) {
		mm.placements = make([]worldPlacement, len(mm.moulds))
	}
	mm.placements = mm.placements[:len(mm.moulds)]

	for i := range mm.moulds {
		mm.placements[i] = mm.place(&mm.moulds[i])
	}

	mm.cacheValid = true
	if mm.skel != nil {
		mm.cacheVersion = mm.skel.Version()
	}
}

// place computes a mould's world-space anchor points.
func (mm *Manager) place(m *Mould) worldPlacement {
	p := worldPlacement{center: m.Center}
	if m.EndPoint != nil {
		p.end = *m.EndPoint
		p.hasEnd = true
	}

	if m.ParentJointID != "" && mm.skel != nil {
		p.center = mm.skel.TransformToWorld(m.ParentJointID, m.Center)
		if p.hasEnd {
			p.end = mm.skel.TransformToWorld(m.ParentJointID, *m.EndPoint)
		}
	}
	return p
}

// EvaluateSDF returns the blended signed distance at a world-space
// point. With no moulds it returns FarOutside; with one mould the
// mould's own distance, exactly; with more, a left fold where each
// step blends the next mould against the accumulation using that
// mould's blend radius.
func (mm *Manager) EvaluateSDF(p geom.Vec3) float32 {
	if len(mm.moulds) == 0 {
		return FarOutside
	}

	useCache := mm.cacheValid && (mm.skel == nil || mm.skel.Version() == mm.cacheVersion)

	result := mm.mouldDistance(p, &mm.moulds[0], 0, useCache)
	for i := 1; i < len(mm.moulds); i++ {
		d := mm.mouldDistance(p, &mm.moulds[i], i, useCache)
		result = field.SmoothMinPoly(result, d, mm.moulds[i].BlendRadius)
	}
	return result
}

// Evaluate implements field.Field.
func (mm *Manager) Evaluate(p geom.Vec3) float32 {
	return mm.EvaluateSDF(p)
}

// mouldDistance evaluates a single mould's SDF, shape-dispatched, with
// anchors in world space.
func (mm *Manager) mouldDistance(p geom.Vec3, m *Mould, i int, useCache bool) float32 {
	var wp worldPlacement
	if useCache {
		wp = mm.placements[i]
	} else {
		wp = mm.place(m)
	}

	switch m.Shape {
	case ShapeCapsule:
		if wp.hasEnd {
			return field.Capsule(p, wp.center, wp.end, m.Radius)
		}
		return field.Sphere(p, wp.center, m.Radius)
	case ShapeProfiledCapsule:
		if wp.hasEnd {
			return field.ProfiledCapsule(p, wp.center, wp.end, m.RadialProfiles, m.UseSplines)
		}
		return field.Sphere(p, wp.center, m.Radius)
	default:
		return field.Sphere(p, wp.center, m.Radius)
	}
}
