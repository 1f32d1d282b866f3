// package ball_buffer holds the fixed-capacity, GPU-mirrored array of packed ball
// records plus the free-index stack used to recycle slots. The backing array is
// allocated once at construction and never grows, so the byte view handed to the
// GPU upload path stays stable across frames.
package ball_buffer

import (
	"fmt"
	"log/slog"
)

// DefaultMaxBalls is the default hard capacity of the ball buffer. Exceeding it is an
// allocation failure for that ball, never a grow operation.
const DefaultMaxBalls = 4096

// GpuBall is the packed, fixed-layout ball record uploaded to the GPU storage buffer.
// Positions and radii are in texture-pixel space; the field layout must match the
// shader-side struct exactly.
type GpuBall struct {
	// Center is the ball center in texture-pixel space.
	Center [2]float32
	// Radius is the ball radius in pixel units.
	Radius float32
	// ClusterID groups balls for shared rendering effects.
	ClusterID int32
	// Color is the RGBA tint for this ball.
	Color [4]float32
}

// ballBuffer is the implementation of the BallBuffer interface.
// It is single-owner: only the packing orchestrator mutates it, so no locking is done here.
type ballBuffer struct {
	// balls is the backing array. Its capacity is fixed at construction and append
	// never reallocates, keeping the storage address stable for GPU uploads.
	balls []GpuBall
	// freeStack holds reclaimed slot indices, popped LIFO on allocation.
	freeStack []int
	// activeCount tracks slots that are allocated and not on the free stack.
	activeCount int
	// capacity is the hard slot limit.
	capacity int
	// overflowWarned suppresses repeat capacity warnings after the first.
	overflowWarned bool
}

// BallBuffer is a fixed-capacity arena of GpuBall slots with O(1) allocation and free.
// Every index is either active (live GpuBall, not on the free stack) or free (on the
// stack, contents unspecified until reallocated). The buffer never resizes at runtime.
type BallBuffer interface {
	// Allocate reserves a slot and returns its index. It pops the free stack if
	// non-empty, otherwise appends a zeroed slot while capacity remains.
	//
	// Returns:
	//   - int: the reserved slot index, valid only when ok is true
	//   - bool: false if the buffer is at capacity
	Allocate() (int, bool)

	// Free returns a slot index to the free stack. The slot contents are not zeroed;
	// stale data is superseded on the next Allocate + Update.
	//
	// Parameters:
	//   - index: the slot index to release
	//
	// Returns:
	//   - error: error if the index is out of bounds or already free
	Free(index int) error

	// Update overwrites the GpuBall at the given index.
	//
	// Parameters:
	//   - index: the slot index to overwrite
	//   - ball: the record to store
	//
	// Returns:
	//   - error: error if the index is outside the current length
	Update(index int, ball GpuBall) error

	// At returns the GpuBall stored at the given index.
	//
	// Parameters:
	//   - index: the slot index to read
	//
	// Returns:
	//   - GpuBall: the stored record
	//   - error: error if the index is outside the current length
	At(index int) (GpuBall, error)

	// Reset clears the buffer to empty without releasing the backing array.
	// Used by the packer before a full repack.
	Reset()

	// Append reserves the next slot and stores the record in one step, the fast path
	// for full repacks.
	//
	// Parameters:
	//   - ball: the record to store
	//
	// Returns:
	//   - int: the slot index the record was stored at, valid only when ok is true
	//   - bool: false if the buffer is at capacity
	Append(ball GpuBall) (int, bool)

	// Len returns the current backing-array length (high-water mark of allocated slots).
	//
	// Returns:
	//   - int: the number of slots in use, including freed-but-not-recycled ones
	Len() int

	// ActiveCount returns the number of live slots.
	//
	// Returns:
	//   - int: allocated slots not currently on the free stack
	ActiveCount() int

	// Capacity returns the hard slot limit.
	//
	// Returns:
	//   - int: the maximum number of slots
	Capacity() int

	// Packed returns the live prefix of the backing array as a read-only view for
	// GPU upload. Callers must not mutate or retain the slice across a Reset.
	//
	// Returns:
	//   - []GpuBall: the backing array up to the current length
	Packed() []GpuBall
}

var _ BallBuffer = &ballBuffer{}

// NewBallBuffer is the entry point to create a new BallBuffer. The capacity defaults to
// DefaultMaxBalls and can be overridden with builder options.
//
// Parameters:
//   - opts: a variadic list of BallBufferBuilderOption functions to configure the buffer
//
// Returns:
//   - BallBuffer: a new BallBuffer instance with its backing array pre-allocated
func NewBallBuffer(opts ...BallBufferBuilderOption) BallBuffer {
	b := &ballBuffer{
		capacity: DefaultMaxBalls,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.capacity < 1 {
		b.capacity = 1
	}
	b.balls = make([]GpuBall, 0, b.capacity)
	b.freeStack = make([]int, 0, b.capacity)
	return b
}

func (b *ballBuffer) Allocate() (int, bool) {
	if n := len(b.freeStack); n > 0 {
		index := b.freeStack[n-1]
		b.freeStack = b.freeStack[:n-1]
		b.balls[index] = GpuBall{}
		b.activeCount++
		return index, true
	}
	if len(b.balls) < b.capacity {
		b.balls = append(b.balls, GpuBall{})
		b.activeCount++
		return len(b.balls) - 1, true
	}
	if !b.overflowWarned {
		slog.Warn("ball buffer at capacity, dropping allocations", "capacity", b.capacity)
		b.overflowWarned = true
	}
	return 0, false
}

func (b *ballBuffer) Free(index int) error {
	if index < 0 || index >= len(b.balls) {
		return fmt.Errorf("free index %d out of bounds [0,%d)", index, len(b.balls))
	}
	for _, f := range b.freeStack {
		if f == index {
			return fmt.Errorf("index %d is already free", index)
		}
	}
	b.freeStack = append(b.freeStack, index)
	b.activeCount--
	return nil
}

func (b *ballBuffer) Update(index int, ball GpuBall) error {
	if index < 0 || index >= len(b.balls) {
		return fmt.Errorf("update index %d out of bounds [0,%d)", index, len(b.balls))
	}
	b.balls[index] = ball
	return nil
}

func (b *ballBuffer) At(index int) (GpuBall, error) {
	if index < 0 || index >= len(b.balls) {
		return GpuBall{}, fmt.Errorf("index %d out of bounds [0,%d)", index, len(b.balls))
	}
	return b.balls[index], nil
}

func (b *ballBuffer) Reset() {
	b.balls = b.balls[:0]
	b.freeStack = b.freeStack[:0]
	b.activeCount = 0
}

func (b *ballBuffer) Append(ball GpuBall) (int, bool) {
	index, ok := b.Allocate()
	if !ok {
		return 0, false
	}
	b.balls[index] = ball
	return index, true
}

func (b *ballBuffer) Len() int {
	return len(b.balls)
}

func (b *ballBuffer) ActiveCount() int {
	return b.activeCount
}

func (b *ballBuffer) Capacity() int {
	return b.capacity
}

func (b *ballBuffer) Packed() []GpuBall {
	return b.balls
}
