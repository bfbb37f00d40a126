package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/charmbracelet/log"
	"github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/bodyforge/bodyforge/pkg/config"
	"github.com/bodyforge/bodyforge/pkg/engine"
	"github.com/bodyforge/bodyforge/pkg/extract"
	"github.com/bodyforge/bodyforge/pkg/extract/dual"
	"github.com/bodyforge/bodyforge/pkg/geom"
	"github.com/bodyforge/bodyforge/pkg/mesh"
	"github.com/bodyforge/bodyforge/pkg/model"
)

// meshUpdatedEvent is emitted to the frontend when a debounced
// full-quality rebuild completes.
const meshUpdatedEvent = "mesh:updated"

// App is the Wails backend. It exposes methods to the frontend via bindings.
// Edits return a fast-mode preview immediately; a full-quality rebuild is
// debounced and pushed through the mesh:updated event when it lands.
type App struct {
	ctx       context.Context
	engine    *engine.Engine
	extractor *dual.Extractor
	settings  config.Settings
	logger    *log.Logger

	mu      sync.Mutex
	model   *model.Model
	rebuild func(f func())
}

// MeshData is the JSON-serializable mesh format sent to the frontend.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	Name     string    `json:"name"`
}

// EvalErrorData is a JSON-serializable eval error for the frontend.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// EvalResult is the full result returned to the frontend editor.
// Mesh holds a fast-mode preview; the refined mesh follows via event.
type EvalResult struct {
	Mesh   *MeshData         `json:"mesh"`
	Joints []model.JointData `json:"joints"`
	Moulds []model.MouldData `json:"moulds"`
	Errors []EvalErrorData   `json:"errors"`
}

// NewApp creates a new App with an engine and the given settings.
func NewApp(settings config.Settings) *App {
	return &App{
		engine:    engine.NewEngine(),
		extractor: dual.New(),
		settings:  settings,
		logger:    log.NewWithOptions(os.Stderr, log.Options{Prefix: "app"}),
		model:     model.New(),
		rebuild:   debounce.New(time.Duration(settings.DebounceMillis) * time.Millisecond),
	}
}

// startup is called by Wails on app startup. The context is saved
// so mesh:updated events can be emitted later.
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
}

// Evaluate takes Lisp source and returns the resulting model state plus a
// fast preview mesh. This is the primary binding called by the editor.
func (a *App) Evaluate(source string) EvalResult {
	result := EvalResult{Errors: []EvalErrorData{}}

	m, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		// Fatal error (panic, timeout, superseded evaluation).
		a.logger.Error("evaluate failed", "err", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			result.Errors = append(result.Errors, EvalErrorData{
				Line:    e.Line,
				Col:     e.Col,
				Message: e.Message,
			})
		}
		return result
	}

	a.mu.Lock()
	a.model = m
	a.mu.Unlock()

	result.Joints = m.Joints()
	result.Moulds = m.MouldList()
	result.Mesh = a.preview()
	return result
}

// Joints returns the current joint hierarchy.
func (a *App) Joints() []model.JointData {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.model.Joints()
}

// Moulds returns the current mould list.
func (a *App) Moulds() []model.MouldData {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.model.MouldList()
}

// UpdateSkeleton replaces the joint hierarchy and returns a preview mesh.
func (a *App) UpdateSkeleton(joints []model.JointData) (*MeshData, error) {
	a.mu.Lock()
	a.model.SetJoints(joints)
	a.mu.Unlock()
	return a.preview(), nil
}

// UpdateMoulds replaces the mould set and returns a preview mesh.
func (a *App) UpdateMoulds(moulds []model.MouldData) (*MeshData, error) {
	a.mu.Lock()
	err := a.model.SetMoulds(moulds)
	a.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return a.preview(), nil
}

// SetJointOffset moves a single joint and returns a preview mesh.
// Descendant joints and attached moulds follow the new placement.
func (a *App) SetJointOffset(id string, x, y, z float32) (*MeshData, error) {
	a.mu.Lock()
	if _, ok := a.model.Skeleton.Joint(id); !ok {
		a.mu.Unlock()
		return nil, fmt.Errorf("unknown joint %q", id)
	}
	a.model.Skeleton.SetLocalOffset(id, geom.Vec3{X: x, Y: y, Z: z})
	a.model.Moulds.RebuildTransforms()
	a.mu.Unlock()
	return a.preview(), nil
}

// SetMouldRadius adjusts a single mould's radius and returns a preview mesh.
func (a *App) SetMouldRadius(id string, radius float32) (*MeshData, error) {
	return a.editMould(id, func(md *model.MouldData) { md.Radius = radius })
}

// SetMouldBlend adjusts a single mould's blend radius.
func (a *App) SetMouldBlend(id string, blend float32) (*MeshData, error) {
	return a.editMould(id, func(md *model.MouldData) { md.BlendRadius = &blend })
}

// editMould applies fn to the wire form of one mould and re-adds it.
func (a *App) editMould(id string, fn func(*model.MouldData)) (*MeshData, error) {
	a.mu.Lock()
	var found *model.MouldData
	moulds := a.model.MouldList()
	for i := range moulds {
		if moulds[i].ID == id {
			found = &moulds[i]
			break
		}
	}
	if found == nil {
		a.mu.Unlock()
		return nil, fmt.Errorf("unknown mould %q", id)
	}
	fn(found)
	err := a.model.SetMoulds(moulds)
	a.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return a.preview(), nil
}

// GenerateMesh extracts a mesh at the given resolution. Fast mode skips
// vertex refinement and keeps cell centers.
func (a *App) GenerateMesh(resolution int, fast bool) (*MeshData, error) {
	out, err := a.extract(a.snapshot(), resolution, fast)
	if err != nil {
		return nil, err
	}
	return toMeshData(out), nil
}

// ExportGLTF writes the current model as a glTF 2.0 file at full quality.
func (a *App) ExportGLTF(path string) error {
	out, err := a.extract(a.snapshot(), a.settings.FullResolution, false)
	if err != nil {
		return err
	}
	doc, err := mesh.ExportGLTF(out)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(doc), 0o644)
}

// ExportBinary writes the current model in the flat binary mesh format.
func (a *App) ExportBinary(path string) error {
	out, err := a.extract(a.snapshot(), a.settings.FullResolution, false)
	if err != nil {
		return err
	}
	return os.WriteFile(path, mesh.EncodeBinary(out), 0o644)
}

// Settings returns the active application settings.
func (a *App) Settings() config.Settings {
	return a.settings
}

// preview extracts a fast low-resolution mesh for immediate display and
// schedules a debounced full-quality rebuild.
//
// Extraction always runs on a snapshot: the rebuild fires on the
// debounce timer goroutine, and the bindings keep mutating the live
// model while it reads.
func (a *App) preview() *MeshData {
	out, err := a.extract(a.snapshot(), a.settings.PreviewResolution, true)
	if err != nil {
		a.logger.Error("preview extraction failed", "err", err)
		return nil
	}

	a.rebuild(func() {
		full, err := a.extract(a.snapshot(), a.settings.FullResolution, false)
		if err != nil {
			a.logger.Error("full rebuild failed", "err", err)
			return
		}
		a.logger.Debug("full rebuild complete",
			"vertices", full.VertexCount(), "triangles", full.TriangleCount())
		if a.ctx != nil {
			runtime.EventsEmit(a.ctx, meshUpdatedEvent, toMeshData(full))
		}
	})

	return toMeshData(out)
}

// snapshot deep-copies the model under the lock so extraction never
// reads state a concurrent edit is mutating.
func (a *App) snapshot() *model.Model {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.model.Clone()
}

// extract runs dual contouring over the model's mould field.
func (a *App) extract(m *model.Model, resolution int, fast bool) (*mesh.Mesh, error) {
	opts := extract.Options{
		Resolution:  resolution,
		Bounds:      m.Bounds,
		FastMode:    fast,
		UseBrickMap: a.settings.UseBrickMap,
	}
	out, err := a.extractor.Extract(m.Moulds, opts)
	if err != nil {
		return nil, fmt.Errorf("extract at resolution %d: %w", resolution, err)
	}
	out.Name = m.Name
	return out, nil
}

func toMeshData(m *mesh.Mesh) *MeshData {
	return &MeshData{
		Vertices: m.Vertices,
		Normals:  m.Normals,
		Indices:  m.Indices,
		Name:     m.Name,
	}
}
