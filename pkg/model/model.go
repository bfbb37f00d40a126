// Package model aggregates a skeleton and mould set into one editable
// character, and defines the JSON boundary types the UI speaks.
package model

import (
	"fmt"

	"github.com/bodyforge/bodyforge/pkg/extract"
	"github.com/bodyforge/bodyforge/pkg/geom"
	"github.com/bodyforge/bodyforge/pkg/mould"
	"github.com/bodyforge/bodyforge/pkg/skeleton"
)

// Model is a complete editable character: the joint hierarchy, the
// moulds hung on it, and how to sample the result.
type Model struct {
	Name       string
	Skeleton   *skeleton.Skeleton
	Moulds     *mould.Manager
	Resolution int
	Bounds     geom.AABB
}

// New returns an empty model with default sampling parameters.
func New() *Model {
	skel := skeleton.New()
	mm := mould.NewManager()
	mm.SetSkeleton(skel)
	return &Model{
		Skeleton:   skel,
		Moulds:     mm,
		Resolution: 64,
		Bounds:     extract.DefaultBounds(),
	}
}

// Clone returns a deep copy sharing no mutable state with the
// receiver, so a long extraction can read the clone while the original
// keeps taking edits.
func (m *Model) Clone() *Model {
	skel := m.Skeleton.Clone()
	mm := m.Moulds.Clone()
	mm.SetSkeleton(skel)
	mm.RebuildTransforms()
	return &Model{
		Name:       m.Name,
		Skeleton:   skel,
		Moulds:     mm,
		Resolution: m.Resolution,
		Bounds:     m.Bounds,
	}
}

// JointData is the wire form of one joint, as the UI sends it.
type JointData struct {
	ID            string     `json:"id"`
	LocalOffset   geom.Vec3  `json:"localOffset"`
	LocalRotation *geom.Quat `json:"localRotation,omitempty"`
	ParentID      string     `json:"parentId,omitempty"`
	Children      []string   `json:"children,omitempty"`
}

// MouldData is the wire form of one mould. BlendRadius is a pointer so
// an absent field takes the default rather than zero.
type MouldData struct {
	ID             string      `json:"id"`
	Shape          string      `json:"shape"`
	Center         geom.Vec3   `json:"center"`
	Radius         float32     `json:"radius"`
	BlendRadius    *float32    `json:"blendRadius,omitempty"`
	ParentJointID  string      `json:"parentJointId,omitempty"`
	EndPoint       *geom.Vec3  `json:"endPoint,omitempty"`
	RadialProfiles [][]float32 `json:"radialProfiles,omitempty"`
	UseSplines     bool        `json:"useSplines,omitempty"`
}

// SetJoints replaces the model's skeleton with the given joints.
func (m *Model) SetJoints(joints []JointData) {
	skel := skeleton.New()
	for _, jd := range joints {
		j := skeleton.Joint{
			ID:          jd.ID,
			LocalOffset: jd.LocalOffset,
			ParentID:    jd.ParentID,
			Children:    jd.Children,
		}
		if jd.LocalRotation != nil {
			j.LocalRotation = *jd.LocalRotation
		}
		skel.AddJoint(j)
	}
	m.Skeleton = skel
	m.Moulds.SetSkeleton(skel)
}

// SetMoulds replaces the model's mould set. The first malformed mould
// aborts the replacement.
func (m *Model) SetMoulds(moulds []MouldData) error {
	mm := mould.NewManager()
	mm.SetSkeleton(m.Skeleton)
	for _, md := range moulds {
		mo, err := md.toMould()
		if err != nil {
			return err
		}
		if err := mm.Add(mo); err != nil {
			return err
		}
	}
	m.Moulds = mm
	return nil
}

func (md MouldData) toMould() (mould.Mould, error) {
	shape, err := mould.ParseShape(md.Shape)
	if err != nil {
		return mould.Mould{}, fmt.Errorf("mould %s: %w", md.ID, err)
	}

	blend := float32(mould.DefaultBlendRadius)
	if md.BlendRadius != nil {
		blend = *md.BlendRadius
	}

	return mould.Mould{
		ID:             md.ID,
		Shape:          shape,
		Center:         md.Center,
		Radius:         md.Radius,
		BlendRadius:    blend,
		ParentJointID:  md.ParentJointID,
		EndPoint:       md.EndPoint,
		RadialProfiles: md.RadialProfiles,
		UseSplines:     md.UseSplines,
	}, nil
}

// Joints returns the skeleton's joints in wire form.
func (m *Model) Joints() []JointData {
	js := m.Skeleton.Joints()
	out := make([]JointData, 0, len(js))
	for _, j := range js {
		rot := j.LocalRotation
		out = append(out, JointData{
			ID:            j.ID,
			LocalOffset:   j.LocalOffset,
			LocalRotation: &rot,
			ParentID:      j.ParentID,
			Children:      j.Children,
		})
	}
	return out
}

// MouldList returns the mould set in wire form, insertion order.
func (m *Model) MouldList() []MouldData {
	ms := m.Moulds.Moulds()
	out := make([]MouldData, 0, len(ms))
	for _, mo := range ms {
		blend := mo.BlendRadius
		out = append(out, MouldData{
			ID:             mo.ID,
			Shape:          mo.Shape.String(),
			Center:         mo.Center,
			Radius:         mo.Radius,
			BlendRadius:    &blend,
			ParentJointID:  mo.ParentJointID,
			EndPoint:       mo.EndPoint,
			RadialProfiles: mo.RadialProfiles,
			UseSplines:     mo.UseSplines,
		})
	}
	return out
}
