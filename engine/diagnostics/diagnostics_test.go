package diagnostics

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/metaball-go/engine/ball_buffer"
	"github.com/Carmen-Shannon/metaball-go/engine/spatial"
)

func TestBuildSnapshotStats(t *testing.T) {
	buf := ball_buffer.NewBallBuffer(ball_buffer.WithCapacity(8))
	for range 4 {
		buf.Append(ball_buffer.GpuBall{Radius: 1})
	}

	grid := spatial.Grid{
		Dims: [2]uint32{2, 2},
		Cells: []spatial.GridCell{
			{Offset: 0, Count: 2},
			{Offset: 2, Count: 0},
			{Offset: 2, Count: 4},
			{Offset: 6, Count: 2},
		},
		BallIndices: make([]uint32, 8),
	}

	s := BuildSnapshot(7, buf, grid)

	if s.Frame != 7 {
		t.Fatalf("Frame = %d, expected 7", s.Frame)
	}
	if s.PackedBalls != 4 || s.Capacity != 8 {
		t.Fatalf("PackedBalls/Capacity = %d/%d, expected 4/8", s.PackedBalls, s.Capacity)
	}
	if s.Occupancy != 0.5 {
		t.Fatalf("Occupancy = %f, expected 0.5", s.Occupancy)
	}
	if s.GridEntries != 8 {
		t.Fatalf("GridEntries = %d, expected 8", s.GridEntries)
	}
	if s.MeanPerCell != 2.0 {
		t.Fatalf("MeanPerCell = %f, expected 2.0", s.MeanPerCell)
	}
	// sample stddev of {2, 0, 4, 2}
	expectStdDev := math.Sqrt(8.0 / 3.0)
	if math.Abs(s.StdDevPerCell-expectStdDev) > 1e-9 {
		t.Fatalf("StdDevPerCell = %f, expected %f", s.StdDevPerCell, expectStdDev)
	}
	if s.MaxPerCell != 4 {
		t.Fatalf("MaxPerCell = %d, expected 4", s.MaxPerCell)
	}
	if s.OccupiedCells != 3 {
		t.Fatalf("OccupiedCells = %d, expected 3", s.OccupiedCells)
	}
}

func TestBuildSnapshotEmptyGrid(t *testing.T) {
	buf := ball_buffer.NewBallBuffer(ball_buffer.WithCapacity(4))
	s := BuildSnapshot(1, buf, spatial.Grid{})

	if s.MeanPerCell != 0 || s.StdDevPerCell != 0 || s.GridEntries != 0 {
		t.Fatalf("empty grid should produce zero stats, got %+v", s)
	}
}

func TestShouldLogPolicy(t *testing.T) {
	tel := &telemetry{logEveryNFrames: 60, maxLoggedFrames: 200}

	tests := []struct {
		frame  uint64
		expect bool
	}{
		{1, true},
		{2, false},
		{60, true},
		{61, false},
		{120, true},
		{180, true},
		{240, false}, // past the cap
	}
	for _, tt := range tests {
		if got := tel.shouldLog(tt.frame); got != tt.expect {
			t.Fatalf("shouldLog(%d) = %v, expected %v", tt.frame, got, tt.expect)
		}
	}
}

func TestCSVExport(t *testing.T) {
	dir := t.TempDir()
	tel, err := NewTelemetry(WithOutputDir(dir), WithLogEveryNFrames(0))
	if err != nil {
		t.Fatalf("NewTelemetry failed: %v", err)
	}

	buf := ball_buffer.NewBallBuffer(ball_buffer.WithCapacity(4))
	buf.Append(ball_buffer.GpuBall{Radius: 2})

	tel.Observe(1, buf, spatial.Grid{})
	tel.Observe(2, buf, spatial.Grid{})
	if err := tel.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "metaballs.csv"))
	if err != nil {
		t.Fatalf("reading csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d lines", len(lines))
	}
	if !strings.Contains(lines[0], "frame") || !strings.Contains(lines[0], "mean_balls_per_cell") {
		t.Fatalf("unexpected csv header: %s", lines[0])
	}
}
