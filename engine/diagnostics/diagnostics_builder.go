package diagnostics

import "log/slog"

// TelemetryBuilderOption is a functional option applied to a telemetry instance during construction via NewTelemetry.
type TelemetryBuilderOption func(*telemetry)

// WithLogEveryNFrames sets how many frames pass between periodic log lines.
// Zero disables periodic logging entirely (the first frame is still logged).
//
// Parameters:
//   - n: the frame interval between log lines
//
// Returns:
//   - TelemetryBuilderOption: a function that applies the interval option to a telemetry instance
func WithLogEveryNFrames(n uint64) TelemetryBuilderOption {
	return func(t *telemetry) {
		t.logEveryNFrames = n
	}
}

// WithMaxLoggedFrames stops all periodic logging after the given frame (inclusive).
// Zero means unlimited.
//
// Parameters:
//   - n: the last frame to log
//
// Returns:
//   - TelemetryBuilderOption: a function that applies the frame cap option to a telemetry instance
func WithMaxLoggedFrames(n uint64) TelemetryBuilderOption {
	return func(t *telemetry) {
		t.maxLoggedFrames = n
	}
}

// WithOutputDir enables per-frame CSV export into the given directory.
// An empty directory leaves CSV export disabled.
//
// Parameters:
//   - dir: the directory to create metaballs.csv in
//
// Returns:
//   - TelemetryBuilderOption: a function that applies the output directory option to a telemetry instance
func WithOutputDir(dir string) TelemetryBuilderOption {
	return func(t *telemetry) {
		t.outputDir = dir
	}
}

// WithLogger sets the structured logger used for periodic summaries.
//
// Parameters:
//   - logger: the slog.Logger to log with
//
// Returns:
//   - TelemetryBuilderOption: a function that applies the logger option to a telemetry instance
func WithLogger(logger *slog.Logger) TelemetryBuilderOption {
	return func(t *telemetry) {
		if logger != nil {
			t.logger = logger
		}
	}
}
