package packer

// PackerBuilderOption is a functional option used to configure a Packer during construction.
type PackerBuilderOption func(*packer)

// WithPackWorkers sets the number of worker goroutines used during the parallel
// conversion phase.
//
// Parameters:
//   - n: the number of pack workers (minimum 1)
//
// Returns:
//   - PackerBuilderOption: a function that sets the worker count for this packer
func WithPackWorkers(n int) PackerBuilderOption {
	return func(p *packer) {
		if n < 1 {
			n = 1
		}
		p.packWorkers = n
	}
}

// WithParallelThreshold sets the ball count above which conversion fans out to the
// worker pool instead of running serially.
//
// Parameters:
//   - n: the threshold ball count
//
// Returns:
//   - PackerBuilderOption: a function that sets the parallel threshold for this packer
func WithParallelThreshold(n int) PackerBuilderOption {
	return func(p *packer) {
		p.parallelThreshold = n
	}
}
