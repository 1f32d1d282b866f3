// package packer is the per-frame bridge between the authoritative ball world and the
// GPU-facing ball buffer. It repacks only when something changed; a clean frame leaves
// the buffer's backing storage untouched.
package packer

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/metaball-go/engine/ball_buffer"
	"github.com/Carmen-Shannon/metaball-go/engine/coordinates"
	"github.com/Carmen-Shannon/metaball-go/engine/world"

	"github.com/mlange-42/ark/ecs"
)

// snapshot captures one ball's components during the query pass so conversion can run
// off the query iterator.
type snapshot struct {
	pos     world.Position
	radius  world.BallRadius
	color   world.BallColor
	cluster world.BallCluster
}

// packer is the implementation of the Packer interface.
// It is single-owner and not reentrant: Pack must not be called concurrently.
type packer struct {
	mapper coordinates.CoordinateMapper
	buffer ball_buffer.BallBuffer

	// forceRepack is set when the mapper is replaced, so the next Pack runs even if
	// no ball entity changed.
	forceRepack bool

	// scratch is the reusable snapshot slice, grown once and recycled across frames.
	scratch []snapshot
	// converted is the reusable conversion output slice, index-aligned with scratch.
	converted []ball_buffer.GpuBall

	// packPool manages a bounded set of reusable goroutines for the parallel
	// conversion phase. Workers persist across frames, avoiding per-frame goroutine
	// spawn/teardown overhead.
	packPool    worker.DynamicWorkerPool
	packWorkers int

	// parallelThreshold is the ball count above which conversion fans out to the pool.
	parallelThreshold int
}

// Packer drives the Mapper -> Ball Buffer conversion each frame, skipping entirely
// when the world reports no changes.
type Packer interface {
	// Pack repacks the ball buffer from the world if the world is dirty or the mapper
	// was replaced since the last pack. When nothing changed it does no work and the
	// buffer's backing storage is left byte-for-byte identical.
	//
	// Balls beyond the buffer's capacity are dropped for the frame; this is not an
	// error, the buffer logs its own one-shot warning.
	//
	// Parameters:
	//   - bw: the ball world to read
	//
	// Returns:
	//   - bool: true if a repack ran, false if the frame was skipped
	//   - error: error if the packer is misconfigured
	Pack(bw world.BallWorld) (bool, error)

	// SetMapper replaces the coordinate mapper and forces a repack on the next Pack,
	// since every packed center and radius depends on the mapping.
	//
	// Parameters:
	//   - m: the replacement mapper
	SetMapper(m coordinates.CoordinateMapper)

	// Mapper returns the current coordinate mapper.
	//
	// Returns:
	//   - coordinates.CoordinateMapper: the mapper used for the next pack
	Mapper() coordinates.CoordinateMapper

	// Buffer returns the packed ball buffer. Read-only to callers; all mutation flows
	// through Pack.
	//
	// Returns:
	//   - ball_buffer.BallBuffer: the GPU-facing ball buffer
	Buffer() ball_buffer.BallBuffer
}

var _ Packer = &packer{}

// NewPacker is the entry point to create a new Packer.
//
// Parameters:
//   - mapper: the coordinate mapper used to convert world positions and radii
//   - buffer: the ball buffer to pack into
//   - opts: a variadic list of PackerBuilderOption functions to configure the packer
//
// Returns:
//   - Packer: a new Packer instance
//   - error: error if the mapper or buffer is nil
func NewPacker(mapper coordinates.CoordinateMapper, buffer ball_buffer.BallBuffer, opts ...PackerBuilderOption) (Packer, error) {
	if mapper == nil {
		return nil, fmt.Errorf("mapper must not be nil")
	}
	if buffer == nil {
		return nil, fmt.Errorf("buffer must not be nil")
	}

	p := &packer{
		mapper:            mapper,
		buffer:            buffer,
		packWorkers:       max(runtime.NumCPU()-1, 1),
		parallelThreshold: 256,
		forceRepack:       true,
	}
	for _, opt := range opts {
		opt(p)
	}

	// Initialize the pool after options so WithPackWorkers can override the default.
	p.packPool = worker.NewDynamicWorkerPool(p.packWorkers, 256, 1*time.Second)

	return p, nil
}

func (p *packer) Pack(bw world.BallWorld) (bool, error) {
	if bw == nil {
		return false, fmt.Errorf("ball world must not be nil")
	}
	if !bw.Dirty() && !p.forceRepack {
		return false, nil
	}

	// Snapshot the components first; conversion must not run inside the query.
	p.scratch = p.scratch[:0]
	bw.ForEach(func(_ ecs.Entity, pos world.Position, radius world.BallRadius, color world.BallColor, cluster world.BallCluster) {
		p.scratch = append(p.scratch, snapshot{pos: pos, radius: radius, color: color, cluster: cluster})
	})

	if cap(p.converted) < len(p.scratch) {
		p.converted = make([]ball_buffer.GpuBall, len(p.scratch))
	}
	p.converted = p.converted[:len(p.scratch)]

	if len(p.scratch) > p.parallelThreshold {
		p.convertParallel()
	} else {
		for i := range p.scratch {
			p.converted[i] = p.convert(&p.scratch[i])
		}
	}

	// Bulk append is serial so the buffer's slot order follows the query order.
	p.buffer.Reset()
	for i := range p.converted {
		if _, ok := p.buffer.Append(p.converted[i]); !ok {
			break
		}
	}

	bw.ClearDirty()
	p.forceRepack = false
	return true, nil
}

// convert maps one snapshot into a packed GpuBall in texture-pixel space.
func (p *packer) convert(s *snapshot) ball_buffer.GpuBall {
	center := p.mapper.WorldToTexture([2]float32{s.pos.X, s.pos.Y})
	return ball_buffer.GpuBall{
		Center:    center,
		Radius:    p.mapper.WorldRadiusToTexture(s.radius.Value),
		ClusterID: s.cluster.ID,
		Color:     [4]float32{s.color.R, s.color.G, s.color.B, s.color.A},
	}
}

// convertParallel fans the conversion out over the pool in contiguous chunks. A
// WaitGroup provides the frame barrier; output slots are index-aligned with the
// snapshots so the result is identical to the serial path.
func (p *packer) convertParallel() {
	chunk := (len(p.scratch) + p.packWorkers - 1) / p.packWorkers
	var wg sync.WaitGroup
	taskID := 0
	for start := 0; start < len(p.scratch); start += chunk {
		end := min(start+chunk, len(p.scratch))
		wg.Add(1)
		s, e := start, end
		id := taskID
		taskID++
		p.packPool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()
				for i := s; i < e; i++ {
					p.converted[i] = p.convert(&p.scratch[i])
				}
				return nil, nil
			},
		})
	}
	wg.Wait()
}

func (p *packer) SetMapper(m coordinates.CoordinateMapper) {
	if m == nil {
		return
	}
	p.mapper = m
	p.forceRepack = true
}

func (p *packer) Mapper() coordinates.CoordinateMapper {
	return p.mapper
}

func (p *packer) Buffer() ball_buffer.BallBuffer {
	return p.buffer
}
