package spatial

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/metaball-go/engine/ball_buffer"
)

func TestBuildGridDimensions(t *testing.T) {
	tests := []struct {
		name   string
		width  uint32
		height uint32
		want   [2]uint32
	}{
		{"exact multiple", 640, 128, [2]uint32{10, 2}},
		{"rounds up", 650, 130, [2]uint32{11, 3}},
		{"minimum one cell", 1, 1, [2]uint32{1, 1}},
		{"square screen", 512, 512, [2]uint32{8, 8}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := BuildGrid(nil, tt.width, tt.height)
			if g.Dims != tt.want {
				t.Errorf("BuildGrid(%dx%d).Dims = %v, want %v", tt.width, tt.height, g.Dims, tt.want)
			}
			if len(g.Cells) != int(tt.want[0]*tt.want[1]) {
				t.Errorf("len(Cells) = %d, want %d", len(g.Cells), tt.want[0]*tt.want[1])
			}
		})
	}
}

func TestBuildGridPartition(t *testing.T) {
	balls := []ball_buffer.GpuBall{
		{Center: [2]float32{32, 32}, Radius: 10},
		{Center: [2]float32{100, 200}, Radius: 30},
		{Center: [2]float32{500, 500}, Radius: 5},
		{Center: [2]float32{256, 256}, Radius: 80},
	}
	g := BuildGrid(balls, 512, 512)

	var total uint32
	for _, cell := range g.Cells {
		total += cell.Count
	}
	if int(total) != len(g.BallIndices) {
		t.Errorf("sum of cell counts %d != len(BallIndices) %d", total, len(g.BallIndices))
	}

	// Offsets must form a contiguous prefix-sum partition.
	var running uint32
	for i, cell := range g.Cells {
		if cell.Offset != running {
			t.Errorf("cell %d offset = %d, want %d", i, cell.Offset, running)
		}
		running += cell.Count
	}

	// Every cell a ball's influence rectangle overlaps must list that ball.
	for ballIndex, ball := range balls {
		influence := ball.Radius * InfluenceScale
		minX := int(math.Floor(float64(ball.Center[0]-influence) / CellSize))
		maxX := int(math.Floor(float64(ball.Center[0]+influence) / CellSize))
		minY := int(math.Floor(float64(ball.Center[1]-influence) / CellSize))
		maxY := int(math.Floor(float64(ball.Center[1]+influence) / CellSize))
		for cy := max(minY, 0); cy <= min(maxY, int(g.Dims[1])-1); cy++ {
			for cx := max(minX, 0); cx <= min(maxX, int(g.Dims[0])-1); cx++ {
				found := false
				for _, idx := range g.BallsInCell(uint32(cx), uint32(cy)) {
					if idx == uint32(ballIndex) {
						found = true
						break
					}
				}
				if !found {
					t.Errorf("ball %d missing from cell (%d,%d)", ballIndex, cx, cy)
				}
			}
		}
	}
}

func TestBuildGridOffscreenBall(t *testing.T) {
	balls := []ball_buffer.GpuBall{
		{Center: [2]float32{-1000, -1000}, Radius: 10},
		{Center: [2]float32{5000, 5000}, Radius: 10},
	}
	g := BuildGrid(balls, 512, 512)
	if g.TotalMemberships() != 0 {
		t.Errorf("off-screen balls produced %d memberships, want 0", g.TotalMemberships())
	}
}

func TestBuildGridInfluenceSpansCells(t *testing.T) {
	// A ball at a cell corner with influence reaching into neighbors must appear
	// in every overlapped cell.
	balls := []ball_buffer.GpuBall{
		{Center: [2]float32{64, 64}, Radius: 10},
	}
	g := BuildGrid(balls, 256, 256)

	// influence = 30, so the span covers cells (0..1, 0..1).
	for cy := uint32(0); cy <= 1; cy++ {
		for cx := uint32(0); cx <= 1; cx++ {
			indices := g.BallsInCell(cx, cy)
			if len(indices) != 1 || indices[0] != 0 {
				t.Errorf("cell (%d,%d) = %v, want [0]", cx, cy, indices)
			}
		}
	}
	cell, _ := g.CellAt(3, 3)
	if cell.Count != 0 {
		t.Errorf("distant cell count = %d, want 0", cell.Count)
	}
}

func TestBallsInCellOutOfBounds(t *testing.T) {
	g := BuildGrid(nil, 128, 128)
	if got := g.BallsInCell(99, 0); got != nil {
		t.Errorf("out-of-bounds BallsInCell = %v, want nil", got)
	}
	if _, ok := g.CellAt(0, 99); ok {
		t.Error("out-of-bounds CellAt reported ok")
	}
}
