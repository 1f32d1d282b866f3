// Package config provides configuration loading and access for the metaball engine.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all engine configuration parameters.
type Config struct {
	Texture   TextureConfig   `yaml:"texture"`
	World     WorldConfig     `yaml:"world"`
	Metaballs MetaballConfig  `yaml:"metaballs"`
	Engine    EngineConfig    `yaml:"engine"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// TextureConfig holds the offscreen compute target dimensions.
type TextureConfig struct {
	Width  uint32 `yaml:"width"`
	Height uint32 `yaml:"height"`
}

// WorldConfig holds the world-space bounds balls live in.
// When all four values are zero, the world maps 1:1 onto the texture.
type WorldConfig struct {
	MinX float32 `yaml:"min_x"`
	MinY float32 `yaml:"min_y"`
	MaxX float32 `yaml:"max_x"`
	MaxY float32 `yaml:"max_y"`
}

// MetaballConfig holds the rendering parameters for the compute passes.
type MetaballConfig struct {
	Capacity         int     `yaml:"capacity"`          // max balls; GPU buffers are sized for this
	Iso              float32 `yaml:"iso"`               // field threshold for surface classification
	Clustering       bool    `yaml:"clustering"`        // cluster-aware shading
	GridAcceleration bool    `yaml:"grid_acceleration"` // per-frame spatial grid rebuild
	Present          bool    `yaml:"present"`           // draw the albedo texture to the surface
}

// EngineConfig holds loop timing and renderer settings.
type EngineConfig struct {
	TickRate      float64 `yaml:"tick_rate"`      // fixed update ticks per second
	FrameLimit    float64 `yaml:"frame_limit"`    // render frames per second, 0 = uncapped
	VSync         bool    `yaml:"vsync"`          // present mode
	ForceSoftware bool    `yaml:"force_software"` // force the fallback adapter
}

// TelemetryConfig holds diagnostics settings.
type TelemetryConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Dir             string `yaml:"dir"`                // CSV output directory, empty = disabled
	LogEveryNFrames uint64 `yaml:"log_every_n_frames"` // frames between periodic logs
	MaxLoggedFrames uint64 `yaml:"max_logged_frames"`  // stop logging after this frame, 0 = unlimited
}

// Load reads configuration, starting from the embedded defaults and overriding
// with any fields present in the file at path. An empty path loads defaults only.
//
// Parameters:
//   - path: the YAML file to overlay onto the defaults, or ""
//
// Returns:
//   - *Config: the loaded configuration
//   - error: an error if either YAML document fails to parse
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	return cfg, nil
}

// WorldBoundsSet reports whether the world bounds were configured explicitly.
//
// Returns:
//   - bool: true when any of the four bounds is non-zero
func (c *Config) WorldBoundsSet() bool {
	w := c.World
	return w.MinX != 0 || w.MinY != 0 || w.MaxX != 0 || w.MaxY != 0
}
