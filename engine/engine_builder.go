package engine

import (
	"time"

	"github.com/Carmen-Shannon/metaball-go/engine/compute"
	"github.com/Carmen-Shannon/metaball-go/engine/diagnostics"
	"github.com/Carmen-Shannon/metaball-go/engine/packer"
	"github.com/Carmen-Shannon/metaball-go/engine/present"
	"github.com/Carmen-Shannon/metaball-go/engine/renderer"
	"github.com/Carmen-Shannon/metaball-go/engine/window"
	"github.com/Carmen-Shannon/metaball-go/engine/world"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithTickRate sets the engine tick rate in ticks per second.
// The tick callback will be called at this rate for simulation updates.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target ticks per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			fps = 60.0
		}
		e.engineTickRate = time.Second / time.Duration(fps)
	}
}

// WithWindow sets a custom configured window for the engine to use rather than allowing the engine
// to create and manage one internally.
//
// Parameters:
//   - w: a pre-configured Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithRenderer sets the renderer the engine drives each frame.
//
// Parameters:
//   - r: a configured Renderer instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderer(r renderer.Renderer) EngineBuilderOption {
	return func(e *engine) {
		e.renderer = r
	}
}

// WithWorld sets the ball entity store the tick callback mutates and the
// packer reads each frame.
//
// Parameters:
//   - w: the BallWorld instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWorld(w world.BallWorld) EngineBuilderOption {
	return func(e *engine) {
		e.ballWorld = w
	}
}

// WithPacker sets the packing orchestrator bridging the world to the GPU ball buffer.
//
// Parameters:
//   - p: the Packer instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithPacker(p packer.Packer) EngineBuilderOption {
	return func(e *engine) {
		e.packer = p
	}
}

// WithCompute sets the compute pipeline orchestrator dispatched each frame.
//
// Parameters:
//   - o: the compute Orchestrator instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithCompute(o compute.Orchestrator) EngineBuilderOption {
	return func(e *engine) {
		e.orchestrator = o
	}
}

// WithPresenter sets the optional presentation pass drawing the albedo texture
// to the surface. Without a presenter the engine computes offscreen only.
//
// Parameters:
//   - p: the Presenter instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithPresenter(p present.Presenter) EngineBuilderOption {
	return func(e *engine) {
		e.presenter = p
	}
}

// WithTelemetry sets the optional diagnostics observer recording per-frame stats.
//
// Parameters:
//   - t: the Telemetry instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTelemetry(t diagnostics.Telemetry) EngineBuilderOption {
	return func(e *engine) {
		e.telemetry = t
	}
}

// WithGridAcceleration enables or disables the per-frame spatial grid rebuild.
// Enabled by default; disabling falls back to brute-force accumulation in the
// field kernel.
//
// Parameters:
//   - enabled: if true, rebuild and upload the grid after each repack
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithGridAcceleration(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.gridAcceleration = enabled
	}
}

// WithRenderFrameLimit sets an optional render frame rate cap in frames per second.
// Pass 0 to uncap the render loop (default).
//
// Parameters:
//   - fps: maximum render frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			e.renderFrameLimit = 0
			return
		}
		e.renderFrameLimit = time.Second / time.Duration(fps)
	}
}
