package profiler

import (
	"log/slog"
	"runtime"
	"sort"
	"time"
)

// Profiler tracks frame rate, per-stage CPU timings, and memory statistics.
// Stats are emitted through slog at a configurable interval.
type Profiler struct {
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	// stageTotals accumulates CPU time per named frame stage between reports.
	stageTotals map[string]time.Duration
	stageCounts map[string]int
}

// NewProfiler creates a new Profiler with default settings.
// Update interval defaults to 1 second.
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler() *Profiler {
	return &Profiler{
		lastTime:       time.Now(),
		updateInterval: time.Second,
		stageTotals:    make(map[string]time.Duration),
		stageCounts:    make(map[string]int),
	}
}

// RecordStage accumulates elapsed CPU time for a named frame stage, e.g. the
// ball pack or the spatial grid rebuild. Averages are reported on the next
// interval tick and then reset.
//
// Parameters:
//   - stage: the stage name, stable across frames
//   - elapsed: the CPU time the stage took this frame
func (p *Profiler) RecordStage(stage string, elapsed time.Duration) {
	p.stageTotals[stage] += elapsed
	p.stageCounts[stage]++
}

// Tick should be called once per frame to track frame timing.
// Logs performance statistics when the update interval has elapsed:
// FPS, per-stage averages, heap usage, allocation rate, and GC pauses.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.frameCount++
	currentTime := time.Now()
	elapsed := currentTime.Sub(p.lastTime)

	if elapsed < p.updateInterval {
		return false
	}

	fps := float64(p.frameCount) / elapsed.Seconds()

	runtime.ReadMemStats(&p.memStats)
	allocMB := float64(p.memStats.Alloc) / 1024 / 1024
	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	allocRateMB := float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	// PauseNs is a circular buffer of the last 256 GC pauses.
	gcCount := p.memStats.NumGC
	var maxPauseUs uint64
	if gcCount > 0 {
		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			pause := p.memStats.PauseNs[i%256] / 1000
			if pause > maxPauseUs {
				maxPauseUs = pause
			}
		}
	}

	attrs := []any{
		slog.Float64("fps", fps),
		slog.Float64("heap_mb", allocMB),
		slog.Float64("alloc_rate_mb_s", allocRateMB),
		slog.Uint64("gc_count", uint64(gcCount)),
		slog.Uint64("gc_max_pause_us", maxPauseUs),
	}
	for _, stage := range p.sortedStages() {
		avg := p.stageTotals[stage] / time.Duration(p.stageCounts[stage])
		attrs = append(attrs, slog.Duration("avg_"+stage, avg))
	}
	slog.Info("frame profile", attrs...)

	p.frameCount = 0
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	clear(p.stageTotals)
	clear(p.stageCounts)
	return true
}

// sortedStages returns the recorded stage names in stable order so log
// output does not jitter between reports.
func (p *Profiler) sortedStages() []string {
	stages := make([]string, 0, len(p.stageTotals))
	for stage := range p.stageTotals {
		stages = append(stages, stage)
	}
	sort.Strings(stages)
	return stages
}
