package compute

// OrchestratorBuilderOption is a functional option applied to an orchestrator during construction via NewOrchestrator.
type OrchestratorBuilderOption func(*orchestrator)

// WithCapacity sets the ball buffer capacity the GPU ball storage buffer is sized for.
// Must match the capacity of the CPU-side allocator feeding UploadBalls.
//
// Parameters:
//   - capacity: the maximum number of balls
//
// Returns:
//   - OrchestratorBuilderOption: a function that applies the capacity option to an orchestrator
func WithCapacity(capacity int) OrchestratorBuilderOption {
	return func(o *orchestrator) {
		if capacity > 0 {
			o.capacity = capacity
		}
	}
}

// WithGridIndexCapacity sets the entry count the GPU grid membership index buffer
// is sized for. Grids whose membership list exceeds it are not uploaded; the
// kernel falls back to brute force for those frames.
//
// Parameters:
//   - capacity: the maximum number of grid membership entries
//
// Returns:
//   - OrchestratorBuilderOption: a function that applies the grid index capacity option to an orchestrator
func WithGridIndexCapacity(capacity int) OrchestratorBuilderOption {
	return func(o *orchestrator) {
		if capacity > 0 {
			o.gridIndexCapacity = capacity
		}
	}
}

// WithIso sets the iso threshold the field kernel uses for surface classification.
//
// Parameters:
//   - iso: the field threshold above which a texel is inside the surface
//
// Returns:
//   - OrchestratorBuilderOption: a function that applies the iso option to an orchestrator
func WithIso(iso float32) OrchestratorBuilderOption {
	return func(o *orchestrator) {
		o.iso = iso
	}
}

// WithClustering enables cluster-aware shading in the field kernel.
//
// Parameters:
//   - enabled: true to enable clustering
//
// Returns:
//   - OrchestratorBuilderOption: a function that applies the clustering option to an orchestrator
func WithClustering(enabled bool) OrchestratorBuilderOption {
	return func(o *orchestrator) {
		o.clustering = enabled
	}
}
