package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bodyforge/bodyforge/pkg/mesh"
	"github.com/bodyforge/bodyforge/pkg/model"
)

// ---------------------------------------------------------------------------
// Source edge cases
// ---------------------------------------------------------------------------

func TestE2ECommentsOnly(t *testing.T) {
	app := testApp()

	source := `
;; just comments
; nothing to build here
`
	result := app.Evaluate(source)
	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if result.Mesh == nil {
		t.Fatal("expected an empty preview mesh")
	}
	if len(result.Mesh.Vertices) != 0 {
		t.Errorf("expected no geometry from comments, got %d floats", len(result.Mesh.Vertices))
	}
}

func TestE2EArithmeticInMouldParameters(t *testing.T) {
	app := testApp()

	source := `
(def base 0.2)
(sphere "a" :center (vec3 0 (* base 2) 0) :radius (+ base 0.1))
`
	result := app.Evaluate(source)
	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(result.Moulds) != 1 {
		t.Fatalf("expected 1 mould, got %d", len(result.Moulds))
	}
	m := result.Moulds[0]
	if m.Center.Y != 0.4 {
		t.Errorf("expected center Y=0.4, got %f", m.Center.Y)
	}
	if m.Radius != 0.3 {
		t.Errorf("expected radius=0.3, got %f", m.Radius)
	}
}

func TestE2ENegativeRadiusRejected(t *testing.T) {
	app := testApp()

	result := app.Evaluate(`(sphere "bad" :radius -0.5)`)
	if len(result.Errors) == 0 {
		t.Fatal("expected error for negative radius")
	}
	if result.Mesh != nil {
		t.Error("expected no mesh when a mould is rejected")
	}
}

func TestE2ERapidEvaluation(t *testing.T) {
	app := testApp()

	// Repeated evaluations through the same App must each land cleanly;
	// the engine's generation counter discards nothing when calls are serial.
	for i := 0; i < 5; i++ {
		result := app.Evaluate(`(sphere "ball" :radius 0.4)`)
		if len(result.Errors) > 0 {
			t.Fatalf("iteration %d: unexpected errors: %v", i, result.Errors)
		}
		if result.Mesh == nil || len(result.Mesh.Vertices) == 0 {
			t.Fatalf("iteration %d: expected non-empty mesh", i)
		}
	}
}

func TestE2EErrorThenRecovery(t *testing.T) {
	app := testApp()

	bad := app.Evaluate(`(sphere "x" :radius`)
	if len(bad.Errors) == 0 {
		t.Fatal("expected errors for broken source")
	}

	good := app.Evaluate(`(sphere "x" :radius 0.3)`)
	if len(good.Errors) > 0 {
		t.Fatalf("expected clean evaluation after error, got: %v", good.Errors)
	}
	if good.Mesh == nil || len(good.Mesh.Vertices) == 0 {
		t.Fatal("expected mesh after recovery")
	}
}

// ---------------------------------------------------------------------------
// Direct edit bindings
// ---------------------------------------------------------------------------

func TestUpdateMouldsReplacesSet(t *testing.T) {
	app := testApp()
	app.Evaluate(`(sphere "a" :radius 0.3)`)

	md, err := app.UpdateMoulds([]model.MouldData{
		{ID: "b", Shape: "sphere", Radius: 0.25},
	})
	if err != nil {
		t.Fatalf("UpdateMoulds failed: %v", err)
	}
	if md == nil || len(md.Vertices) == 0 {
		t.Fatal("expected preview mesh after update")
	}

	moulds := app.Moulds()
	if len(moulds) != 1 || moulds[0].ID != "b" {
		t.Fatalf("expected only mould 'b', got %+v", moulds)
	}
}

func TestUpdateMouldsInvalidRejected(t *testing.T) {
	app := testApp()

	_, err := app.UpdateMoulds([]model.MouldData{
		{ID: "bad", Shape: "capsule", Radius: 0.2}, // capsule needs an end point
	})
	if err == nil {
		t.Fatal("expected error for capsule without end point")
	}
}

func TestSetJointOffsetMovesAttachedMould(t *testing.T) {
	app := testApp()

	result := app.Evaluate(`
(joint "root" :offset (vec3 0 0.5 0))
(sphere "ball" :joint "root" :radius 0.2)
`)
	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}

	if _, err := app.SetJointOffset("root", 0, 1.0, 0); err != nil {
		t.Fatalf("SetJointOffset failed: %v", err)
	}

	joints := app.Joints()
	if len(joints) != 1 {
		t.Fatalf("expected 1 joint, got %d", len(joints))
	}
	if joints[0].LocalOffset.Y != 1.0 {
		t.Errorf("expected offset Y=1.0, got %f", joints[0].LocalOffset.Y)
	}
}

func TestSetJointOffsetUnknownJoint(t *testing.T) {
	app := testApp()

	if _, err := app.SetJointOffset("nope", 0, 0, 0); err == nil {
		t.Fatal("expected error for unknown joint")
	}
}

func TestSetMouldRadius(t *testing.T) {
	app := testApp()
	app.Evaluate(`(sphere "ball" :radius 0.2)`)

	if _, err := app.SetMouldRadius("ball", 0.35); err != nil {
		t.Fatalf("SetMouldRadius failed: %v", err)
	}

	moulds := app.Moulds()
	if len(moulds) != 1 || moulds[0].Radius != 0.35 {
		t.Fatalf("expected radius 0.35, got %+v", moulds)
	}
}

func TestSetMouldRadiusUnknownMould(t *testing.T) {
	app := testApp()

	if _, err := app.SetMouldRadius("nope", 0.5); err == nil {
		t.Fatal("expected error for unknown mould")
	}
}

func TestSetMouldBlendKeepsOtherFields(t *testing.T) {
	app := testApp()
	app.Evaluate(`(sphere "ball" :center (vec3 0 0.5 0) :radius 0.2)`)

	if _, err := app.SetMouldBlend("ball", 0.3); err != nil {
		t.Fatalf("SetMouldBlend failed: %v", err)
	}

	moulds := app.Moulds()
	if len(moulds) != 1 {
		t.Fatalf("expected 1 mould, got %d", len(moulds))
	}
	m := moulds[0]
	if m.BlendRadius == nil || *m.BlendRadius != 0.3 {
		t.Errorf("expected blend 0.3, got %+v", m.BlendRadius)
	}
	if m.Radius != 0.2 || m.Center.Y != 0.5 {
		t.Errorf("edit must not disturb other fields: %+v", m)
	}
}

// ---------------------------------------------------------------------------
// Mesh generation and export
// ---------------------------------------------------------------------------

func TestGenerateMeshQualityVsFast(t *testing.T) {
	app := testApp()
	app.Evaluate(`(sphere "ball" :radius 0.4)`)

	fast, err := app.GenerateMesh(32, true)
	if err != nil {
		t.Fatalf("fast generation failed: %v", err)
	}
	quality, err := app.GenerateMesh(32, false)
	if err != nil {
		t.Fatalf("quality generation failed: %v", err)
	}
	if len(fast.Vertices) == 0 || len(quality.Vertices) == 0 {
		t.Fatal("expected non-empty meshes")
	}
	// Same topology, different vertex placement.
	if len(fast.Indices) != len(quality.Indices) {
		t.Errorf("index counts differ: fast=%d quality=%d", len(fast.Indices), len(quality.Indices))
	}
}

func TestGenerateMeshInvalidResolution(t *testing.T) {
	app := testApp()
	app.Evaluate(`(sphere "ball" :radius 0.4)`)

	if _, err := app.GenerateMesh(33, false); err == nil {
		t.Fatal("expected error for unsupported resolution")
	}
}

func TestExportBinaryRoundTrip(t *testing.T) {
	app := testApp()
	app.Evaluate(`(sphere "ball" :radius 0.4)`)

	path := filepath.Join(t.TempDir(), "ball.bin")
	if err := app.ExportBinary(path); err != nil {
		t.Fatalf("ExportBinary failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading export: %v", err)
	}
	decoded, err := mesh.DecodeBinary(data)
	if err != nil {
		t.Fatalf("decoding export: %v", err)
	}
	if decoded.VertexCount() == 0 {
		t.Error("exported mesh has no vertices")
	}
}

func TestExportGLTF(t *testing.T) {
	app := testApp()
	app.Evaluate(`(sphere "ball" :radius 0.4)`)

	path := filepath.Join(t.TempDir(), "ball.gltf")
	if err := app.ExportGLTF(path); err != nil {
		t.Fatalf("ExportGLTF failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading export: %v", err)
	}
	if !strings.Contains(string(data), `"version":"2.0"`) {
		t.Error("exported file does not look like glTF 2.0")
	}
}

func TestConcurrentEditsAndGeneration(t *testing.T) {
	app := testApp()

	result := app.Evaluate(`
(joint "root" :offset (vec3 0 0.5 0))
(sphere "ball" :joint "root" :radius 0.2)
`)
	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}

	// Joint edits mutate the live skeleton while generation reads a
	// snapshot on another goroutine; both must run to completion with
	// every extraction seeing a consistent model.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 8; i++ {
			if _, err := app.SetJointOffset("root", 0, 0.5+float32(i)*0.01, 0); err != nil {
				t.Errorf("SetJointOffset: %v", err)
				return
			}
		}
	}()

	for i := 0; i < 4; i++ {
		md, err := app.GenerateMesh(32, true)
		if err != nil {
			t.Fatalf("GenerateMesh during edits: %v", err)
		}
		if len(md.Vertices) == 0 {
			t.Fatalf("iteration %d: empty mesh during edits", i)
		}
	}
	<-done
}
