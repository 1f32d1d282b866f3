package ball_buffer

// BallBufferBuilderOption is a functional option used to configure a BallBuffer during construction.
type BallBufferBuilderOption func(*ballBuffer)

// WithCapacity sets the hard slot limit for the buffer. Values below 1 are raised to 1.
//
// Parameters:
//   - capacity: the maximum number of ball slots
//
// Returns:
//   - BallBufferBuilderOption: a function that sets the capacity for this buffer
func WithCapacity(capacity int) BallBufferBuilderOption {
	return func(b *ballBuffer) {
		b.capacity = capacity
	}
}
