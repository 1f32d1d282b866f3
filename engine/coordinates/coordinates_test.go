package coordinates

import (
	"math"
	"testing"
)

func approxEqual(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-4
}

func TestNewCoordinateMapperValidation(t *testing.T) {
	tests := []struct {
		name    string
		width   uint32
		height  uint32
		opts    []CoordinateMapperBuilderOption
		wantErr bool
	}{
		{
			name:   "defaults",
			width:  512,
			height: 512,
		},
		{
			name:    "zero texture width",
			width:   0,
			height:  512,
			wantErr: true,
		},
		{
			name:    "zero texture height",
			width:   512,
			height:  0,
			wantErr: true,
		},
		{
			name:    "zero world extent",
			width:   512,
			height:  512,
			opts:    []CoordinateMapperBuilderOption{WithWorldBounds(10, 10, 10, 20)},
			wantErr: true,
		},
		{
			name:    "inverted world bounds",
			width:   512,
			height:  512,
			opts:    []CoordinateMapperBuilderOption{WithWorldBounds(100, 0, -100, 50)},
			wantErr: true,
		},
		{
			name:  "centered world",
			width: 512, height: 512,
			opts: []CoordinateMapperBuilderOption{WithCenteredWorld(512, 512)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewCoordinateMapper(tt.width, tt.height, tt.opts...)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got mapper %v", m)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestWorldToTextureCorners(t *testing.T) {
	m, err := NewCoordinateMapper(512, 512, WithWorldBounds(-256, -256, 256, 256))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name  string
		world [2]float32
		want  [2]float32
	}{
		{"min corner", [2]float32{-256, -256}, [2]float32{0, 0}},
		{"max x", [2]float32{256, -256}, [2]float32{512, 0}},
		{"max y", [2]float32{-256, 256}, [2]float32{0, 512}},
		{"center", [2]float32{0, 0}, [2]float32{256, 256}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.WorldToTexture(tt.world)
			if !approxEqual(got[0], tt.want[0]) || !approxEqual(got[1], tt.want[1]) {
				t.Errorf("WorldToTexture(%v) = %v, want %v", tt.world, got, tt.want)
			}
		})
	}
}

func TestWorldRadiusToTexture(t *testing.T) {
	m, err := NewCoordinateMapper(1000, 1000, WithWorldBounds(0, 0, 100, 100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := m.WorldRadiusToTexture(1.0)
	if !approxEqual(got, 10.0) {
		t.Errorf("WorldRadiusToTexture(1.0) = %v, want 10.0", got)
	}
}

func TestTextureToUVRange(t *testing.T) {
	m, err := NewCoordinateMapper(800, 600, WithWorldBounds(-40, -30, 40, 30))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	points := [][2]float32{
		{-40, -30}, {40, 30}, {0, 0}, {-39.9, 29.9}, {12.5, -7.25},
	}
	for _, p := range points {
		uv := m.TextureToUV(m.WorldToTexture(p))
		if uv[0] < 0 || uv[0] > 1 || uv[1] < 0 || uv[1] > 1 {
			t.Errorf("TextureToUV(WorldToTexture(%v)) = %v, outside [0,1]", p, uv)
		}
	}
}

func TestClampWorld(t *testing.T) {
	m, err := NewCoordinateMapper(512, 512, WithWorldBounds(-256, -256, 256, 256))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name  string
		world [2]float32
		want  [2]float32
	}{
		{"inside unchanged", [2]float32{10, -20}, [2]float32{10, -20}},
		{"below min", [2]float32{-300, -400}, [2]float32{-256, -256}},
		{"above max", [2]float32{500, 300}, [2]float32{256, 256}},
		{"mixed axes", [2]float32{-300, 100}, [2]float32{-256, 100}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.ClampWorld(tt.world)
			if got != tt.want {
				t.Errorf("ClampWorld(%v) = %v, want %v", tt.world, got, tt.want)
			}
		})
	}
}
