// package spatial builds the uniform acceleration grid that lets the field pass
// evaluate only the balls near each pixel instead of the whole buffer. The grid is
// rebuilt from scratch every time packing produces new data; it has no cross-frame
// identity.
package spatial

import (
	"math"

	"github.com/Carmen-Shannon/metaball-go/engine/ball_buffer"
)

const (
	// CellSize is the edge length of one grid cell in pixels.
	CellSize = 64.0

	// InfluenceScale is the multiple of a ball's packed radius used as its influence
	// radius. Influence beyond the literal radius accounts for the smooth falloff of
	// the field function.
	InfluenceScale = 3.0
)

// GridCell describes one cell's contiguous range in the flat ball-index array.
type GridCell struct {
	// Offset is the cell's starting position in BallIndices.
	Offset uint32
	// Count is the number of ball indices belonging to this cell.
	Count uint32
}

// Grid is a uniform partition of the screen into cells, each indexing the balls whose
// influence radius overlaps it. The cell table and index array are laid out for direct
// GPU upload: Cells as a flat {offset, count} buffer and BallIndices as a u32 buffer.
type Grid struct {
	// Dims is the grid dimensions in cells (x, y).
	Dims [2]uint32
	// Cells holds one {offset, count} entry per cell, row-major, sized Dims[0]*Dims[1].
	Cells []GridCell
	// BallIndices is the flat membership array partitioned by the cell offsets.
	BallIndices []uint32
}

// membership records one (cell, ball) pair collected during the count pass and
// replayed in the scatter pass.
type membership struct {
	cellID    uint32
	ballIndex uint32
}

// BuildGrid partitions the packed ball array into a fresh Grid for the given screen
// extent. It runs three passes: per-cell membership counting, a prefix sum converting
// counts to offsets, and a scatter writing each membership into its cell's range.
//
// Cell spans are clamped to the grid bounds with no wraparound; a ball whose influence
// rectangle misses the screen entirely contributes no entries.
//
// Parameters:
//   - balls: the packed ball records in texture-pixel space
//   - screenWidth: the screen width in pixels
//   - screenHeight: the screen height in pixels
//
// Returns:
//   - Grid: the freshly built grid
func BuildGrid(balls []ball_buffer.GpuBall, screenWidth, screenHeight uint32) Grid {
	cellsX := uint32(math.Ceil(float64(screenWidth) / CellSize))
	cellsY := uint32(math.Ceil(float64(screenHeight) / CellSize))
	if cellsX < 1 {
		cellsX = 1
	}
	if cellsY < 1 {
		cellsY = 1
	}

	grid := Grid{
		Dims:  [2]uint32{cellsX, cellsY},
		Cells: make([]GridCell, cellsX*cellsY),
	}

	// Pass 1: count memberships per cell, recording each (cell, ball) pair.
	memberships := make([]membership, 0, len(balls)*4)
	for i, ball := range balls {
		influence := ball.Radius * InfluenceScale
		minX := int(math.Floor(float64(ball.Center[0]-influence) / CellSize))
		maxX := int(math.Floor(float64(ball.Center[0]+influence) / CellSize))
		minY := int(math.Floor(float64(ball.Center[1]-influence) / CellSize))
		maxY := int(math.Floor(float64(ball.Center[1]+influence) / CellSize))

		// Entirely off-screen balls overlap no cells.
		if maxX < 0 || maxY < 0 || minX >= int(cellsX) || minY >= int(cellsY) {
			continue
		}

		minX = max(minX, 0)
		minY = max(minY, 0)
		maxX = min(maxX, int(cellsX)-1)
		maxY = min(maxY, int(cellsY)-1)

		for cy := minY; cy <= maxY; cy++ {
			for cx := minX; cx <= maxX; cx++ {
				cellID := uint32(cy)*cellsX + uint32(cx)
				grid.Cells[cellID].Count++
				memberships = append(memberships, membership{cellID: cellID, ballIndex: uint32(i)})
			}
		}
	}

	// Pass 2: prefix sum converts counts into offsets.
	var running uint32
	for i := range grid.Cells {
		grid.Cells[i].Offset = running
		running += grid.Cells[i].Count
	}

	// Pass 3: scatter each membership into its cell's range using per-cell write cursors.
	grid.BallIndices = make([]uint32, running)
	cursors := make([]uint32, len(grid.Cells))
	for i := range cursors {
		cursors[i] = grid.Cells[i].Offset
	}
	for _, m := range memberships {
		grid.BallIndices[cursors[m.cellID]] = m.ballIndex
		cursors[m.cellID]++
	}

	return grid
}

// CellAt returns the cell table entry at grid coordinates (cx, cy).
//
// Parameters:
//   - cx: the cell x coordinate
//   - cy: the cell y coordinate
//
// Returns:
//   - GridCell: the cell entry
//   - bool: false if the coordinates are outside the grid
func (g *Grid) CellAt(cx, cy uint32) (GridCell, bool) {
	if cx >= g.Dims[0] || cy >= g.Dims[1] {
		return GridCell{}, false
	}
	return g.Cells[cy*g.Dims[0]+cx], true
}

// BallsInCell returns the slice of ball indices belonging to the cell at (cx, cy).
// The returned slice aliases the grid's index array and must not be mutated.
//
// Parameters:
//   - cx: the cell x coordinate
//   - cy: the cell y coordinate
//
// Returns:
//   - []uint32: the ball indices overlapping the cell, nil if out of bounds
func (g *Grid) BallsInCell(cx, cy uint32) []uint32 {
	cell, ok := g.CellAt(cx, cy)
	if !ok {
		return nil
	}
	return g.BallIndices[cell.Offset : cell.Offset+cell.Count]
}

// TotalMemberships returns the total number of (ball, cell) pairs in the grid.
//
// Returns:
//   - int: the length of the flat index array
func (g *Grid) TotalMemberships() int {
	return len(g.BallIndices)
}
