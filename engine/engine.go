package engine

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Carmen-Shannon/metaball-go/engine/compute"
	"github.com/Carmen-Shannon/metaball-go/engine/diagnostics"
	"github.com/Carmen-Shannon/metaball-go/engine/packer"
	"github.com/Carmen-Shannon/metaball-go/engine/present"
	"github.com/Carmen-Shannon/metaball-go/engine/profiler"
	"github.com/Carmen-Shannon/metaball-go/engine/renderer"
	"github.com/Carmen-Shannon/metaball-go/engine/spatial"
	"github.com/Carmen-Shannon/metaball-go/engine/window"
	"github.com/Carmen-Shannon/metaball-go/engine/world"
)

// engine implements the Engine interface.
// Coordinates tick, render, and window threads, and owns the metaball
// subsystem: world, packer, compute orchestrator, and presenter.
type engine struct {
	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running bool
	wg      sync.WaitGroup

	// worldMu serializes the tick callback's world mutations against the
	// render goroutine's pack. BallWorld itself is not safe for concurrent
	// use, so both sides must hold this lock.
	worldMu sync.Mutex

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	window window.Window

	profiler         *profiler.Profiler
	profilingEnabled bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	renderCallback func(deltaTime float32)

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped

	renderer     renderer.Renderer
	ballWorld    world.BallWorld
	packer       packer.Packer
	orchestrator compute.Orchestrator
	presenter    present.Presenter
	telemetry    diagnostics.Telemetry

	gridAcceleration bool
	textureWidth     uint32
	textureHeight    uint32

	grid       spatial.Grid
	clock      float32
	frameCount uint64
	halted     bool // set after a permanent compute failure
}

// Engine is the main entry point for the metaball engine.
// It orchestrates the tick loop, the render loop, and window management, and
// drives the per-frame pack → grid → upload → dispatch → present sequence.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// World returns the ball entity store driven by the tick callback.
	//
	// Returns:
	//   - world.BallWorld: the ball world
	World() world.BallWorld

	// Packer returns the packing orchestrator.
	//
	// Returns:
	//   - packer.Packer: the packer
	Packer() packer.Packer

	// Compute returns the compute pipeline orchestrator.
	//
	// Returns:
	//   - compute.Orchestrator: the compute orchestrator
	Compute() compute.Orchestrator

	// Renderer returns the renderer driving the GPU.
	//
	// Returns:
	//   - renderer.Renderer: the renderer
	Renderer() renderer.Renderer

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in ticks per second.
	// The tick callback will be called at this rate for simulation updates.
	//
	// Parameters:
	//   - fps: target ticks per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick.
	// Use this for ball movement, spawning, and other simulation updates: the
	// engine holds its world lock across the callback, so world mutations made
	// here never overlap a pack on the render goroutine. Mutating the world
	// from anywhere else while the engine runs is not safe.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called each render frame after
	// the metaball frame sequence completes.
	//
	// Parameters:
	//   - callback: function to call each render frame, receiving the delta time in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// Run starts the main engine loop (blocks until window closes).
	Run()

	// Quit signals all engine goroutines to stop and shuts down the engine.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

// NewEngine creates a new Engine instance with the provided options.
// The window, renderer, world, packer, and compute orchestrator are required;
// construction panics if any of them is missing. Presenter and telemetry are
// optional.
//
// Parameters:
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		tickRateChannel:  make(chan time.Duration, 1),
		quitChannel:      make(chan struct{}),
		running:          false,
		wg:               sync.WaitGroup{},
		profiler:         profiler.NewProfiler(),
		profilingEnabled: false,
		engineTickRate:   time.Second / 60,
		gridAcceleration: true,
	}

	for _, opt := range options {
		opt(e)
	}

	switch {
	case e.window == nil:
		panic("engine: window must not be nil")
	case e.renderer == nil:
		panic("engine: renderer must not be nil")
	case e.ballWorld == nil:
		panic("engine: ball world must not be nil")
	case e.packer == nil:
		panic("engine: packer must not be nil")
	case e.orchestrator == nil:
		panic("engine: compute orchestrator must not be nil")
	}

	size := e.packer.Mapper().TextureSize()
	e.textureWidth = uint32(size[0])
	e.textureHeight = uint32(size[1])

	e.window.SetResizeCallback(func(width, height int) {
		e.renderer.Resize(width, height)
	})

	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) World() world.BallWorld {
	return e.ballWorld
}

func (e *engine) Packer() packer.Packer {
	return e.packer
}

func (e *engine) Compute() compute.Orchestrator {
	return e.orchestrator
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) Run() {
	e.handle()
	e.window.ProcessMessages()
}

// Quit signals all engine goroutines to stop and shuts down the engine.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.running = false
		close(e.quitChannel)
	})
}

// handle launches the tick, render, and quit goroutines.
// Each goroutine is tracked by the engine's WaitGroup.
func (e *engine) handle() {
	e.running = true
	e.wg.Add(3)
	go e.handleTick()
	go e.handleRender()
	go e.handleQuit()
}

// handleQuit blocks until the quit signal fires, keeping the WaitGroup open
// for the lifetime of the engine loops.
func (e *engine) handleQuit() {
	defer e.wg.Done()
	<-e.quitChannel
}

// handleTick runs the fixed-rate tick loop in its own goroutine.
// Fires the tick callback at the configured tick rate and listens for dynamic
// rate changes via tickRateChannel. Exits when the quit channel is closed.
func (e *engine) handleTick() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			e.runTick(dt)
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

// runTick fires the user tick callback under the world lock. Tick callbacks
// mutate the ball world, so they must never overlap a pack on the render
// goroutine.
func (e *engine) runTick(dt float32) {
	if e.tickCallback == nil {
		return
	}
	e.worldMu.Lock()
	defer e.worldMu.Unlock()
	e.tickCallback(dt)
}

// handleRender runs the uncapped (or frame-limited) render loop in its own goroutine.
// Recovers from panics to avoid crashing the process and signals quit on recovery.
func (e *engine) handleRender() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("render goroutine recovered from panic", slog.Any("panic", r))
			e.signalQuit()
		}
	}()

	lastRender := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		default:
			now := time.Now()
			dt := float32(now.Sub(lastRender).Seconds())
			lastRender = now

			e.renderFrame(dt)

			if e.renderCallback != nil {
				e.renderCallback(dt)
			}

			if e.profilingEnabled && e.profiler != nil {
				e.profiler.Tick()
			}

			// Frame rate limiting
			if e.renderFrameLimit > 0 {
				elapsed := time.Since(lastRender)
				if remaining := e.renderFrameLimit - elapsed; remaining > 0 {
					time.Sleep(remaining)
				}
			}
		}
	}
}

// renderFrame executes one frame of the metaball sequence in strict order:
// pack, conditional grid rebuild, buffer uploads, field dispatch, normals
// dispatch, presentation. A pass reporting ErrNotReady skips the rest of the
// compute work for the frame; a permanent failure halts the subsystem.
func (e *engine) renderFrame(dt float32) {
	if e.halted {
		return
	}

	e.clock += dt
	e.frameCount++

	packStart := time.Now()
	e.worldMu.Lock()
	repacked, err := e.packer.Pack(e.ballWorld)
	e.worldMu.Unlock()
	if err != nil {
		slog.Error("pack failed", slog.String("error", err.Error()))
		return
	}
	if e.profilingEnabled && e.profiler != nil {
		e.profiler.RecordStage("pack", time.Since(packStart))
	}

	buffer := e.packer.Buffer()

	if repacked && e.gridAcceleration {
		gridStart := time.Now()
		e.grid = spatial.BuildGrid(buffer.Packed(), e.textureWidth, e.textureHeight)
		e.orchestrator.UploadGrid(e.grid)
		if e.profilingEnabled && e.profiler != nil {
			e.profiler.RecordStage("grid", time.Since(gridStart))
		}
	}

	e.orchestrator.SetTime(e.clock)
	e.orchestrator.UploadBalls(buffer.Packed(), buffer.ActiveCount())

	if err := e.renderer.BeginComputeFrame(); err != nil {
		slog.Warn("compute frame unavailable", slog.String("error", err.Error()))
		return
	}
	dispatchErr := e.orchestrator.DispatchField()
	if dispatchErr == nil {
		dispatchErr = e.orchestrator.DispatchNormals()
	}
	e.renderer.EndComputeFrame()

	switch {
	case errors.Is(dispatchErr, compute.ErrPassFailed):
		slog.Error("compute pipeline failed permanently, halting metaball subsystem", slog.String("error", dispatchErr.Error()))
		e.halted = true
		return
	case errors.Is(dispatchErr, compute.ErrNotReady):
		// Frame-local skip: resources are still being prepared.
		return
	case dispatchErr != nil:
		slog.Error("compute dispatch failed", slog.String("error", dispatchErr.Error()))
		return
	}

	if e.presenter != nil {
		if err := e.renderer.BeginFrame(); err == nil {
			if err := e.presenter.Draw(); err != nil {
				slog.Warn("present draw skipped", slog.String("error", err.Error()))
			}
			e.renderer.EndFrame()
			e.renderer.Present()
		}
	}

	if e.telemetry != nil {
		e.telemetry.Observe(e.frameCount, buffer, e.grid)
	}
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

// SetTickRate sets the engine tick rate in ticks per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Second / time.Duration(fps)

	if e.running {
		// Send to channel for immediate update in running engine loop
		// Non-blocking send - if channel is full, replace the pending value
		select {
		case e.tickRateChannel <- newRate:
		default:
			// Channel has a pending update, drain and send new value
			select {
			case <-e.tickRateChannel:
			default:
			}
			e.tickRateChannel <- newRate
		}
	} else {
		// Engine not running, just update the field
		e.engineTickRate = newRate
	}
}

// SetTickCallback registers the function called each engine tick.
func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

// SetRenderCallback registers the function called each render frame.
func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.renderCallback = callback
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Second / time.Duration(fps)
}
