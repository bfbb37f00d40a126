// Package config loads and saves application settings as TOML.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/bodyforge/bodyforge/pkg/extract"
	"github.com/bodyforge/bodyforge/pkg/geom"
)

// Settings holds the user-tunable knobs of the application.
type Settings struct {
	// PreviewResolution is used for interactive fast-mode extraction.
	PreviewResolution int `toml:"preview_resolution"`

	// FullResolution is used for the debounced quality rebuild.
	FullResolution int `toml:"full_resolution"`

	// DebounceMillis is how long edits must be quiet before the
	// quality rebuild fires.
	DebounceMillis int `toml:"debounce_millis"`

	// UseBrickMap enables sparse sampling for high resolutions.
	UseBrickMap bool `toml:"use_brick_map"`

	// Bounds is the world-space sampling box.
	Bounds BoundsSetting `toml:"bounds"`
}

// BoundsSetting is the TOML form of the sampling box.
type BoundsSetting struct {
	Min [3]float32 `toml:"min"`
	Max [3]float32 `toml:"max"`
}

// AABB converts the setting to the geometry type.
func (b BoundsSetting) AABB() geom.AABB {
	return geom.AABB{
		Min: geom.Vec3{X: b.Min[0], Y: b.Min[1], Z: b.Min[2]},
		Max: geom.Vec3{X: b.Max[0], Y: b.Max[1], Z: b.Max[2]},
	}
}

// Default returns the settings used when no config file exists.
func Default() Settings {
	bounds := extract.DefaultBounds()
	return Settings{
		PreviewResolution: 32,
		FullResolution:    96,
		DebounceMillis:    400,
		Bounds: BoundsSetting{
			Min: [3]float32{bounds.Min.X, bounds.Min.Y, bounds.Min.Z},
			Max: [3]float32{bounds.Max.X, bounds.Max.Y, bounds.Max.Z},
		},
	}
}

// Validate checks that the settings can drive an extraction.
func (s Settings) Validate() error {
	for _, r := range []int{s.PreviewResolution, s.FullResolution} {
		opts := extract.Options{Resolution: r, Bounds: s.Bounds.AABB()}
		if err := opts.Validate(); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	if s.DebounceMillis < 0 {
		return fmt.Errorf("config: debounce_millis must not be negative, got %d", s.DebounceMillis)
	}
	return nil
}

// Load reads settings from path. A missing file yields the defaults;
// a malformed or invalid file is an error.
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	s := Default()
	if err := toml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Save writes settings to path, creating parent directories.
func Save(path string, s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	data, err := toml.Marshal(s)
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
