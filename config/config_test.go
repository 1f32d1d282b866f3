package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Texture.Width != 512 || cfg.Texture.Height != 512 {
		t.Fatalf("default texture size = %dx%d, expected 512x512", cfg.Texture.Width, cfg.Texture.Height)
	}
	if cfg.Metaballs.Capacity != 4096 {
		t.Fatalf("default capacity = %d, expected 4096", cfg.Metaballs.Capacity)
	}
	if cfg.Metaballs.Iso != 0.8 {
		t.Fatalf("default iso = %f, expected 0.8", cfg.Metaballs.Iso)
	}
	if !cfg.Metaballs.GridAcceleration {
		t.Fatalf("grid acceleration should default to enabled")
	}
	if !cfg.WorldBoundsSet() {
		t.Fatalf("default world bounds should be explicit")
	}
	if cfg.World.MinX != -256 || cfg.World.MaxX != 256 {
		t.Fatalf("default world x bounds = [%f, %f], expected [-256, 256]", cfg.World.MinX, cfg.World.MaxX)
	}
}

func TestLoadOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "override.yaml")
	override := `
texture:
  width: 1024
metaballs:
  iso: 0.6
`
	if err := os.WriteFile(path, []byte(override), 0644); err != nil {
		t.Fatalf("writing override: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Texture.Width != 1024 {
		t.Fatalf("override width = %d, expected 1024", cfg.Texture.Width)
	}
	// untouched fields keep their defaults
	if cfg.Texture.Height != 512 {
		t.Fatalf("height should keep default 512, got %d", cfg.Texture.Height)
	}
	if cfg.Metaballs.Iso != 0.6 {
		t.Fatalf("override iso = %f, expected 0.6", cfg.Metaballs.Iso)
	}
	if cfg.Metaballs.Capacity != 4096 {
		t.Fatalf("capacity should keep default 4096, got %d", cfg.Metaballs.Capacity)
	}
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("texture: [not a mapping"), 0644); err != nil {
		t.Fatalf("writing bad yaml: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatalf("Load should fail on malformed YAML")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("Load should fail on a missing file")
	}
}
