package model

import (
	"fmt"

	"github.com/bodyforge/bodyforge/pkg/geom"
	"github.com/bodyforge/bodyforge/pkg/mould"
	"github.com/bodyforge/bodyforge/pkg/skeleton"
)

// Gender selects the base proportion set.
type Gender string

const (
	Male   Gender = "male"
	Female Gender = "female"
)

// AgeGroup selects the age-dependent proportion adjustments.
type AgeGroup string

const (
	Child AgeGroup = "child"
	Teen  AgeGroup = "teen"
	Adult AgeGroup = "adult"
)

// Proportions are unitless multipliers applied to the base figure.
type Proportions struct {
	HeadSize      float32 `json:"headSize"`
	TorsoLength   float32 `json:"torsoLength"`
	TorsoWidth    float32 `json:"torsoWidth"`
	LegLength     float32 `json:"legLength"`
	ArmLength     float32 `json:"armLength"`
	ShoulderWidth float32 `json:"shoulderWidth"`
	HipWidth      float32 `json:"hipWidth"`
}

// HumanParams describes a figure to generate. Height is in meters,
// weight in kilograms.
type HumanParams struct {
	Gender      Gender      `json:"gender"`
	AgeGroup    AgeGroup    `json:"ageGroup"`
	Height      float32     `json:"height"`
	Weight      float32     `json:"weight"`
	Proportions Proportions `json:"proportions"`
}

// NewHumanParams derives proportions from gender, age group, height
// and weight. Torso and hip widths scale with BMI, normalized around
// 22 and clamped to [0.5, 2].
func NewHumanParams(gender Gender, age AgeGroup, height, weight float32) (HumanParams, error) {
	if height <= 0 {
		return HumanParams{}, fmt.Errorf("model: height must be positive, got %v", height)
	}
	if weight <= 0 {
		return HumanParams{}, fmt.Errorf("model: weight must be positive, got %v", weight)
	}

	var p Proportions
	switch {
	case age == Child:
		p = Proportions{HeadSize: 1.3, TorsoLength: 0.8, TorsoWidth: 0.7, LegLength: 0.7, ArmLength: 0.75, ShoulderWidth: 0.8, HipWidth: 0.75}
	case age == Teen:
		p = Proportions{HeadSize: 1.1, TorsoLength: 0.9, TorsoWidth: 0.8, LegLength: 0.95, ArmLength: 0.9, ShoulderWidth: 0.9, HipWidth: 0.85}
	case gender == Female:
		p = Proportions{HeadSize: 0.95, TorsoLength: 0.95, TorsoWidth: 0.85, LegLength: 1.05, ArmLength: 0.95, ShoulderWidth: 1.0, HipWidth: 1.1}
	default:
		p = Proportions{HeadSize: 1.0, TorsoLength: 1.0, TorsoWidth: 1.0, LegLength: 1.0, ArmLength: 1.0, ShoulderWidth: 1.2, HipWidth: 0.9}
	}

	bmi := weight / (height * height)
	weightFactor := bmi / 22.0
	if weightFactor < 0.5 {
		weightFactor = 0.5
	} else if weightFactor > 2.0 {
		weightFactor = 2.0
	}
	p.TorsoWidth *= weightFactor
	p.HipWidth *= weightFactor

	return HumanParams{
		Gender:      gender,
		AgeGroup:    age,
		Height:      height,
		Weight:      weight,
		Proportions: p,
	}, nil
}

// Humanoid builds a full figure model from the parameters: a joint
// hierarchy rooted at the pelvis, and capsule/sphere moulds hung on
// it. The figure flows through the same SDF and extraction path as a
// hand-authored model.
func Humanoid(params HumanParams) (*Model, error) {
	scale := params.Height / 1.75
	pr := params.Proportions

	headRadius := 0.12 * pr.HeadSize * scale
	headHeight := 0.25 * pr.HeadSize * scale
	neckHeight := 0.08 * scale
	neckRadius := 0.06 * scale
	torsoHeight := 0.6 * pr.TorsoLength * scale
	torsoWidth := 0.35 * pr.TorsoWidth * scale
	shoulderWidth := 0.45 * pr.ShoulderWidth * scale
	hipWidth := 0.35 * pr.HipWidth * scale
	legLength := 0.9 * pr.LegLength * scale
	legRadius := 0.08 * scale
	armLength := 0.65 * pr.ArmLength * scale
	armRadius := 0.06 * scale

	m := New()
	m.Name = fmt.Sprintf("%s_%s_human", params.Gender, params.AgeGroup)

	// Pelvis at the origin, torso rising along +Y, legs hanging below.
	skel := skeleton.New()
	skel.AddJoint(skeleton.Joint{ID: "pelvis"})
	skel.AddJoint(skeleton.Joint{ID: "chest", LocalOffset: geom.Vec3{Y: torsoHeight}, ParentID: "pelvis"})
	skel.AddJoint(skeleton.Joint{ID: "neck", LocalOffset: geom.Vec3{Y: neckHeight}, ParentID: "chest"})
	skel.AddJoint(skeleton.Joint{ID: "head", LocalOffset: geom.Vec3{Y: headHeight / 2}, ParentID: "neck"})
	skel.AddJoint(skeleton.Joint{ID: "shoulder.L", LocalOffset: geom.Vec3{X: -shoulderWidth * 0.5, Y: -torsoHeight * 0.1}, ParentID: "chest"})
	skel.AddJoint(skeleton.Joint{ID: "shoulder.R", LocalOffset: geom.Vec3{X: shoulderWidth * 0.5, Y: -torsoHeight * 0.1}, ParentID: "chest"})
	skel.AddJoint(skeleton.Joint{ID: "hand.L", LocalOffset: geom.Vec3{X: -armLength * 0.3, Y: -torsoHeight * 0.5}, ParentID: "shoulder.L"})
	skel.AddJoint(skeleton.Joint{ID: "hand.R", LocalOffset: geom.Vec3{X: armLength * 0.3, Y: -torsoHeight * 0.5}, ParentID: "shoulder.R"})
	skel.AddJoint(skeleton.Joint{ID: "hip.L", LocalOffset: geom.Vec3{X: -hipWidth * 0.4}, ParentID: "pelvis"})
	skel.AddJoint(skeleton.Joint{ID: "hip.R", LocalOffset: geom.Vec3{X: hipWidth * 0.4}, ParentID: "pelvis"})
	skel.AddJoint(skeleton.Joint{ID: "foot.L", LocalOffset: geom.Vec3{Y: -legLength}, ParentID: "hip.L"})
	skel.AddJoint(skeleton.Joint{ID: "foot.R", LocalOffset: geom.Vec3{Y: -legLength}, ParentID: "hip.R"})
	m.Skeleton = skel
	m.Moulds.SetSkeleton(skel)

	up := func(y float32) *geom.Vec3 { return &geom.Vec3{Y: y} }

	moulds := []mould.Mould{
		{
			ID: "head", Shape: mould.ShapeSphere, ParentJointID: "head",
			Radius: headRadius, BlendRadius: mould.DefaultBlendRadius,
		},
		{
			ID: "neck", Shape: mould.ShapeCapsule, ParentJointID: "chest",
			EndPoint: up(neckHeight), Radius: neckRadius, BlendRadius: mould.DefaultBlendRadius,
		},
		{
			ID: "torso", Shape: mould.ShapeProfiledCapsule, ParentJointID: "pelvis",
			EndPoint: up(torsoHeight), BlendRadius: mould.DefaultBlendRadius,
			// Hips to shoulders, one ring per segment: front, right,
			// back, left control radii.
			RadialProfiles: [][]float32{
				{torsoWidth * 0.5, hipWidth * 0.55, torsoWidth * 0.5, hipWidth * 0.55},
				{torsoWidth * 0.5, torsoWidth * 0.55, torsoWidth * 0.5, torsoWidth * 0.55},
				{torsoWidth * 0.45, shoulderWidth * 0.5, torsoWidth * 0.45, shoulderWidth * 0.5},
			},
			UseSplines: true,
		},
		{
			ID: "leg.L", Shape: mould.ShapeCapsule, ParentJointID: "hip.L",
			EndPoint: up(-legLength), Radius: legRadius, BlendRadius: mould.DefaultBlendRadius,
		},
		{
			ID: "leg.R", Shape: mould.ShapeCapsule, ParentJointID: "hip.R",
			EndPoint: up(-legLength), Radius: legRadius, BlendRadius: mould.DefaultBlendRadius,
		},
		{
			ID: "arm.L", Shape: mould.ShapeCapsule, ParentJointID: "shoulder.L",
			EndPoint: &geom.Vec3{X: -armLength * 0.3, Y: -torsoHeight * 0.5},
			Radius:   armRadius, BlendRadius: mould.DefaultBlendRadius,
		},
		{
			ID: "arm.R", Shape: mould.ShapeCapsule, ParentJointID: "shoulder.R",
			EndPoint: &geom.Vec3{X: armLength * 0.3, Y: -torsoHeight * 0.5},
			Radius:   armRadius, BlendRadius: mould.DefaultBlendRadius,
		},
	}
	for _, mo := range moulds {
		if err := m.Moulds.Add(mo); err != nil {
			return nil, fmt.Errorf("model: humanoid template: %w", err)
		}
	}

	m.Moulds.RebuildTransforms()
	return m, nil
}
