package diagnostics

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Carmen-Shannon/metaball-go/engine/ball_buffer"
	"github.com/Carmen-Shannon/metaball-go/engine/spatial"
	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/stat"
)

// Snapshot is one frame's worth of metaball telemetry.
type Snapshot struct {
	Frame          uint64  `csv:"frame"`
	ActiveBalls    int     `csv:"active_balls"`
	PackedBalls    int     `csv:"packed_balls"`
	Capacity       int     `csv:"capacity"`
	Occupancy      float64 `csv:"occupancy"`
	GridCellsX     uint32  `csv:"grid_cells_x"`
	GridCellsY     uint32  `csv:"grid_cells_y"`
	GridEntries   int     `csv:"grid_entries"`
	MeanPerCell   float64 `csv:"mean_balls_per_cell"`
	StdDevPerCell float64 `csv:"stddev_balls_per_cell"`
	MaxPerCell    uint32  `csv:"max_balls_per_cell"`
	OccupiedCells int     `csv:"occupied_cells"`
}

// BuildSnapshot computes a Snapshot from the current allocator and grid state.
//
// Parameters:
//   - frame: the frame counter value
//   - buffer: the ball allocator backing the packed slice
//   - grid: the most recently built spatial grid
//
// Returns:
//   - Snapshot: the computed telemetry row
func BuildSnapshot(frame uint64, buffer ball_buffer.BallBuffer, grid spatial.Grid) Snapshot {
	s := Snapshot{
		Frame:       frame,
		ActiveBalls: buffer.ActiveCount(),
		PackedBalls: buffer.Len(),
		Capacity:    buffer.Capacity(),
		GridCellsX:  grid.Dims[0],
		GridCellsY:  grid.Dims[1],
		GridEntries: grid.TotalMemberships(),
	}
	if s.Capacity > 0 {
		s.Occupancy = float64(s.ActiveBalls) / float64(s.Capacity)
	}

	if len(grid.Cells) > 0 {
		counts := make([]float64, len(grid.Cells))
		for i, cell := range grid.Cells {
			counts[i] = float64(cell.Count)
			if cell.Count > s.MaxPerCell {
				s.MaxPerCell = cell.Count
			}
			if cell.Count > 0 {
				s.OccupiedCells++
			}
		}
		s.MeanPerCell = stat.Mean(counts, nil)
		s.StdDevPerCell = stat.StdDev(counts, nil)
	}

	return s
}

// telemetry is the implementation of the Telemetry interface.
type telemetry struct {
	logger *slog.Logger

	logEveryNFrames uint64
	maxLoggedFrames uint64
	outputDir       string

	csvFile       *os.File
	headerWritten bool
}

// Telemetry observes per-frame metaball state, periodically logs a structured
// summary, and optionally appends every frame's snapshot to a CSV file.
type Telemetry interface {
	// Observe records one frame of telemetry. Logging happens on the first
	// frame and every N frames after, until the frame cap is reached. The CSV
	// row (when an output directory is configured) is written every frame.
	//
	// Parameters:
	//   - frame: the frame counter value
	//   - buffer: the ball allocator
	//   - grid: the most recently built spatial grid
	//
	// Returns:
	//   - Snapshot: the computed telemetry row
	Observe(frame uint64, buffer ball_buffer.BallBuffer, grid spatial.Grid) Snapshot

	// Close flushes and closes the CSV output file, if any.
	//
	// Returns:
	//   - error: an error if the file could not be closed
	Close() error
}

var _ Telemetry = &telemetry{}

// NewTelemetry creates a Telemetry observer.
//
// Parameters:
//   - opts: variadic list of TelemetryBuilderOption functions
//
// Returns:
//   - Telemetry: a new Telemetry instance
//   - error: an error if the CSV output file could not be created
func NewTelemetry(opts ...TelemetryBuilderOption) (Telemetry, error) {
	t := &telemetry{
		logger:          slog.Default(),
		logEveryNFrames: 60,
		maxLoggedFrames: 0,
	}
	for _, opt := range opts {
		opt(t)
	}

	if t.outputDir != "" {
		if err := os.MkdirAll(t.outputDir, 0755); err != nil {
			return nil, fmt.Errorf("creating telemetry directory: %w", err)
		}
		f, err := os.Create(filepath.Join(t.outputDir, "metaballs.csv"))
		if err != nil {
			return nil, fmt.Errorf("creating metaballs.csv: %w", err)
		}
		t.csvFile = f
	}

	return t, nil
}

func (t *telemetry) Observe(frame uint64, buffer ball_buffer.BallBuffer, grid spatial.Grid) Snapshot {
	s := BuildSnapshot(frame, buffer, grid)

	if t.shouldLog(frame) {
		t.logger.Info("metaball frame",
			slog.Uint64("frame", s.Frame),
			slog.Int("active_balls", s.ActiveBalls),
			slog.Int("packed_balls", s.PackedBalls),
			slog.Float64("occupancy", s.Occupancy),
			slog.Int("grid_entries", s.GridEntries),
			slog.Float64("mean_per_cell", s.MeanPerCell),
			slog.Float64("stddev_per_cell", s.StdDevPerCell),
		)
	}

	if t.csvFile != nil {
		t.writeRow(s)
	}

	return s
}

// shouldLog applies the periodic logging policy: first frame always, then
// every N frames, stopping once the frame cap (when non-zero) is exceeded.
func (t *telemetry) shouldLog(frame uint64) bool {
	if t.maxLoggedFrames > 0 && frame > t.maxLoggedFrames {
		return false
	}
	if frame == 1 {
		return true
	}
	return t.logEveryNFrames > 0 && frame%t.logEveryNFrames == 0
}

func (t *telemetry) writeRow(s Snapshot) {
	records := []Snapshot{s}
	var err error
	if !t.headerWritten {
		err = gocsv.Marshal(records, t.csvFile)
		t.headerWritten = true
	} else {
		err = gocsv.MarshalWithoutHeaders(records, t.csvFile)
	}
	if err != nil {
		t.logger.Warn("telemetry csv write failed", slog.String("error", err.Error()))
	}
}

func (t *telemetry) Close() error {
	if t.csvFile == nil {
		return nil
	}
	return t.csvFile.Close()
}
