package extract

import (
	"testing"

	"github.com/bodyforge/bodyforge/pkg/geom"
)

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{"default", DefaultOptions(), false},
		{"every enumerated resolution", Options{}, false}, // handled below
		{"resolution not enumerated", Options{Resolution: 100, Bounds: DefaultBounds()}, true},
		{"zero resolution", Options{Bounds: DefaultBounds()}, true},
		{"empty bounds", Options{Resolution: 64}, true},
		{"inverted bounds", Options{Resolution: 64, Bounds: geom.AABB{Min: geom.Vec3{X: 1, Y: 1, Z: 1}, Max: geom.Vec3{X: -1, Y: -1, Z: -1}}}, true},
	}

	for _, tt := range tests {
		if tt.name == "every enumerated resolution" {
			for _, r := range Resolutions {
				opts := Options{Resolution: r, Bounds: DefaultBounds()}
				if err := opts.Validate(); err != nil {
					t.Errorf("resolution %d rejected: %v", r, err)
				}
			}
			continue
		}
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDefaultBoundsCoverFigure(t *testing.T) {
	b := DefaultBounds()
	if !b.Contains(geom.Vec3{}) || !b.Contains(geom.Vec3{Y: 1.4}) {
		t.Errorf("default bounds %v do not cover a standing figure", b)
	}
	if b.MaxExtent() != 2.5 {
		t.Errorf("MaxExtent = %v, want 2.5", b.MaxExtent())
	}
}
