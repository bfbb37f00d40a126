package mould

import (
	"math"
	"testing"

	"github.com/bodyforge/bodyforge/pkg/field"
	"github.com/bodyforge/bodyforge/pkg/geom"
	"github.com/bodyforge/bodyforge/pkg/skeleton"
)

func approx(t *testing.T, got, want, tol float32, msg string) {
	t.Helper()
	if math.Abs(float64(got-want)) > float64(tol) {
		t.Errorf("%s: got %v, want %v", msg, got, want)
	}
}

func TestEvaluateSDFEmpty(t *testing.T) {
	mm := NewManager()
	if d := mm.EvaluateSDF(geom.Vec3{}); d != FarOutside {
		t.Errorf("empty manager EvaluateSDF = %v, want %v", d, FarOutside)
	}
}

func TestEvaluateSDFSingleSphereExact(t *testing.T) {
	mm := NewManager()
	if err := mm.Add(Mould{ID: "head", Shape: ShapeSphere, Center: geom.Vec3{Y: 1}, Radius: 0.5, BlendRadius: 0.3}); err != nil {
		t.Fatal(err)
	}

	points := []geom.Vec3{{}, {Y: 1}, {X: 2, Y: 1}, {X: 0.3, Y: 0.9, Z: -0.2}}
	for _, p := range points {
		want := field.Sphere(p, geom.Vec3{Y: 1}, 0.5)
		if got := mm.EvaluateSDF(p); got != want {
			t.Errorf("single mould at %v: got %v, want exact %v", p, got, want)
		}
	}
}

func TestEvaluateSDFBlendBounds(t *testing.T) {
	mm := NewManager()
	mm.Add(Mould{ID: "a", Shape: ShapeSphere, Center: geom.Vec3{X: -0.4}, Radius: 0.5})
	mm.Add(Mould{ID: "b", Shape: ShapeSphere, Center: geom.Vec3{X: 0.4}, Radius: 0.5, BlendRadius: 0.2})

	// Blended distance never exceeds the plain minimum, and where the
	// fields differ by more than the blend radius it equals it.
	for _, p := range []geom.Vec3{{Y: 0.6}, {X: -1.2}, {X: 1.2}, {Z: 0.8}} {
		da := field.Sphere(p, geom.Vec3{X: -0.4}, 0.5)
		db := field.Sphere(p, geom.Vec3{X: 0.4}, 0.5)
		min := da
		if db < min {
			min = db
		}
		got := mm.EvaluateSDF(p)
		if got > min+1e-6 {
			t.Errorf("blend at %v: got %v, exceeds min %v", p, got, min)
		}
	}
}

func TestFoldUsesLaterBlendRadius(t *testing.T) {
	// Same two spheres; only the second mould's blend radius differs.
	build := func(blend float32) *Manager {
		mm := NewManager()
		mm.Add(Mould{ID: "a", Shape: ShapeSphere, Center: geom.Vec3{X: -0.4}, Radius: 0.5, BlendRadius: 0.9})
		mm.Add(Mould{ID: "b", Shape: ShapeSphere, Center: geom.Vec3{X: 0.4}, Radius: 0.5, BlendRadius: blend})
		return mm
	}

	p := geom.Vec3{Y: 0.55}
	sharp := build(0).EvaluateSDF(p)
	soft := build(0.4).EvaluateSDF(p)
	if soft >= sharp {
		t.Errorf("blend radius of the later mould had no effect: sharp=%v soft=%v", sharp, soft)
	}

	da := field.Sphere(p, geom.Vec3{X: -0.4}, 0.5)
	db := field.Sphere(p, geom.Vec3{X: 0.4}, 0.5)
	want := field.SmoothMinPoly(da, db, 0.4)
	approx(t, soft, want, 1e-6, "two-mould fold")
}

func TestAddReplaceKeepsFoldPosition(t *testing.T) {
	mm := NewManager()
	mm.Add(Mould{ID: "a", Shape: ShapeSphere, Radius: 0.5})
	mm.Add(Mould{ID: "b", Shape: ShapeSphere, Center: geom.Vec3{X: 1}, Radius: 0.5})
	mm.Add(Mould{ID: "c", Shape: ShapeSphere, Center: geom.Vec3{X: 2}, Radius: 0.5})

	mm.Add(Mould{ID: "b", Shape: ShapeSphere, Center: geom.Vec3{X: 1}, Radius: 0.7})

	ids := []string{"a", "b", "c"}
	got := mm.Moulds()
	if len(got) != 3 {
		t.Fatalf("Len after replace = %d, want 3", len(got))
	}
	for i, id := range ids {
		if got[i].ID != id {
			t.Errorf("mould %d = %s, want %s", i, got[i].ID, id)
		}
	}
	if b, _ := mm.Get("b"); b.Radius != 0.7 {
		t.Errorf("replaced mould radius = %v, want 0.7", b.Radius)
	}
}

func TestRemoveReindexes(t *testing.T) {
	mm := NewManager()
	for _, id := range []string{"a", "b", "c", "d"} {
		mm.Add(Mould{ID: id, Shape: ShapeSphere, Radius: 0.5})
	}
	if !mm.Remove("b") {
		t.Fatal("Remove(b) = false")
	}
	if mm.Remove("b") {
		t.Error("second Remove(b) = true")
	}
	want := []string{"a", "c", "d"}
	got := mm.Moulds()
	if len(got) != len(want) {
		t.Fatalf("Len = %d, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("mould %d = %s, want %s", i, got[i].ID, id)
		}
		if m, ok := mm.Get(id); !ok || m.ID != id {
			t.Errorf("Get(%s) after remove broken", id)
		}
	}
}

func TestInvalidMouldRejected(t *testing.T) {
	mm := NewManager()
	if err := mm.Add(Mould{ID: "bad", Shape: ShapeCapsule, Radius: 0.2}); err == nil {
		t.Error("Add accepted a capsule without an end point")
	}
	if mm.Len() != 0 {
		t.Errorf("rejected mould was stored, Len = %d", mm.Len())
	}
}

func TestJointRelativePlacement(t *testing.T) {
	skel := skeleton.New()
	skel.AddJoint(skeleton.Joint{ID: "root"})
	skel.AddJoint(skeleton.Joint{ID: "hand", LocalOffset: geom.Vec3{X: 1}, ParentID: "root"})

	mm := NewManager()
	mm.SetSkeleton(skel)
	mm.Add(Mould{ID: "palm", Shape: ShapeSphere, ParentJointID: "hand", Radius: 0.25})
	mm.RebuildTransforms()

	// Mould center follows the joint: surface at distance 0.25 from (1,0,0).
	approx(t, mm.EvaluateSDF(geom.Vec3{X: 1}), -0.25, 1e-6, "at joint")
	approx(t, mm.EvaluateSDF(geom.Vec3{X: 2}), 0.75, 1e-6, "1 away from joint")

	// Moving the joint invalidates the cache via the skeleton version.
	skel.SetLocalOffset("hand", geom.Vec3{X: 3})
	mm.RebuildTransforms()
	approx(t, mm.EvaluateSDF(geom.Vec3{X: 3}), -0.25, 1e-6, "after move")
}

func TestStaleCacheFallsBackToDirect(t *testing.T) {
	skel := skeleton.New()
	skel.AddJoint(skeleton.Joint{ID: "root"})

	mm := NewManager()
	mm.SetSkeleton(skel)
	mm.Add(Mould{ID: "m", Shape: ShapeSphere, ParentJointID: "root", Radius: 0.5})
	mm.RebuildTransforms()

	// Mutate the skeleton without rebuilding; evaluation must reflect
	// the new pose, not the cached one.
	skel.SetLocalOffset("root", geom.Vec3{Y: 2})
	approx(t, mm.EvaluateSDF(geom.Vec3{Y: 2}), -0.5, 1e-6, "stale cache")
}

func TestCapsuleWithoutSkeletonUsesWorldCoords(t *testing.T) {
	end := geom.Vec3{X: 2}
	mm := NewManager()
	mm.Add(Mould{ID: "arm", Shape: ShapeCapsule, Center: geom.Vec3{}, EndPoint: &end, Radius: 0.3})

	approx(t, mm.EvaluateSDF(geom.Vec3{X: 1}), -0.3, 1e-6, "on axis midpoint")
	approx(t, mm.EvaluateSDF(geom.Vec3{X: 1, Y: 1}), 0.7, 1e-6, "beside the bone")
}

func TestClear(t *testing.T) {
	mm := NewManager()
	mm.Add(Mould{ID: "a", Shape: ShapeSphere, Radius: 1})
	mm.Clear()
	if mm.Len() != 0 {
		t.Errorf("Len after Clear = %d", mm.Len())
	}
	if d := mm.EvaluateSDF(geom.Vec3{}); d != FarOutside {
		t.Errorf("EvaluateSDF after Clear = %v, want %v", d, FarOutside)
	}
}
