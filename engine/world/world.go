// package world owns the authoritative per-ball logical state as ECS entities. Every
// mutation flips a dirty flag the packing orchestrator polls once per frame, so frames
// where nothing moved skip the repack entirely.
package world

import (
	"fmt"

	"github.com/mlange-42/ark/ecs"
)

// ballWorld is the implementation of the BallWorld interface.
type ballWorld struct {
	world *ecs.World

	// ballMapper creates and removes entities with the full ball component set.
	ballMapper *ecs.Map4[Position, BallRadius, BallColor, BallCluster]
	// ballFilter iterates all ball entities for packing.
	ballFilter *ecs.Filter4[Position, BallRadius, BallColor, BallCluster]

	// Individual component mappers for targeted lookups and mutation.
	posMap     *ecs.Map1[Position]
	radiusMap  *ecs.Map1[BallRadius]
	colorMap   *ecs.Map1[BallColor]
	clusterMap *ecs.Map1[BallCluster]

	// dirty is set on any spawn, despawn, or component change and cleared only by
	// ClearDirty after a successful pack.
	dirty bool
	count int
}

// BallWorld is the authoritative store of ball entities. All mutation flows through it
// so the dirty flag stays correct; it is single-owner and not safe for concurrent use.
type BallWorld interface {
	// Spawn creates a new ball entity and marks the world dirty.
	//
	// Parameters:
	//   - x, y: the world-space center
	//   - radius: the world-space radius
	//   - color: the RGBA tint
	//   - clusterID: the cluster grouping id
	//
	// Returns:
	//   - ecs.Entity: the new entity handle
	Spawn(x, y, radius float32, color [4]float32, clusterID int32) ecs.Entity

	// Despawn removes a ball entity and marks the world dirty.
	//
	// Parameters:
	//   - entity: the entity to remove
	//
	// Returns:
	//   - error: error if the entity is not alive
	Despawn(entity ecs.Entity) error

	// SetPosition moves a ball and marks the world dirty.
	//
	// Parameters:
	//   - entity: the ball entity to move
	//   - x, y: the new world-space center
	//
	// Returns:
	//   - error: error if the entity is not alive
	SetPosition(entity ecs.Entity, x, y float32) error

	// SetRadius resizes a ball and marks the world dirty.
	//
	// Parameters:
	//   - entity: the ball entity to resize
	//   - radius: the new world-space radius
	//
	// Returns:
	//   - error: error if the entity is not alive
	SetRadius(entity ecs.Entity, radius float32) error

	// SetColor retints a ball and marks the world dirty.
	//
	// Parameters:
	//   - entity: the ball entity to retint
	//   - color: the new RGBA tint
	//
	// Returns:
	//   - error: error if the entity is not alive
	SetColor(entity ecs.Entity, color [4]float32) error

	// SetCluster reassigns a ball's cluster and marks the world dirty.
	//
	// Parameters:
	//   - entity: the ball entity to reassign
	//   - clusterID: the new cluster id
	//
	// Returns:
	//   - error: error if the entity is not alive
	SetCluster(entity ecs.Entity, clusterID int32) error

	// Position returns a ball's current world-space center.
	//
	// Parameters:
	//   - entity: the ball entity to read
	//
	// Returns:
	//   - float32: the x coordinate
	//   - float32: the y coordinate
	//   - error: error if the entity is not alive
	Position(entity ecs.Entity) (float32, float32, error)

	// ForEach visits every ball entity in store iteration order. The order is not
	// stable across frames and no ordering contract is promised to callers.
	//
	// Parameters:
	//   - fn: called once per ball with its entity handle and component values
	ForEach(fn func(entity ecs.Entity, pos Position, radius BallRadius, color BallColor, cluster BallCluster))

	// Count returns the number of live ball entities.
	//
	// Returns:
	//   - int: the live entity count
	Count() int

	// Alive reports whether an entity handle still refers to a live ball.
	//
	// Parameters:
	//   - entity: the handle to check
	//
	// Returns:
	//   - bool: true if the entity is alive
	Alive(entity ecs.Entity) bool

	// Dirty reports whether any ball changed since the last ClearDirty.
	//
	// Returns:
	//   - bool: true if a repack is needed
	Dirty() bool

	// ClearDirty resets the dirty flag after a successful pack.
	ClearDirty()

	// MarkDirty forces the dirty flag, used when external configuration (such as a
	// replaced coordinate mapper) invalidates the packed data without any entity change.
	MarkDirty()
}

var _ BallWorld = &ballWorld{}

// NewBallWorld is the entry point to create a new BallWorld backed by a fresh ECS world.
//
// Returns:
//   - BallWorld: a new, empty BallWorld marked dirty so the first frame packs
func NewBallWorld() BallWorld {
	w := ecs.NewWorld()
	return &ballWorld{
		world:      w,
		ballMapper: ecs.NewMap4[Position, BallRadius, BallColor, BallCluster](w),
		ballFilter: ecs.NewFilter4[Position, BallRadius, BallColor, BallCluster](w),
		posMap:     ecs.NewMap1[Position](w),
		radiusMap:  ecs.NewMap1[BallRadius](w),
		colorMap:   ecs.NewMap1[BallColor](w),
		clusterMap: ecs.NewMap1[BallCluster](w),
		dirty:      true,
	}
}

func (w *ballWorld) Spawn(x, y, radius float32, color [4]float32, clusterID int32) ecs.Entity {
	pos := Position{X: x, Y: y}
	r := BallRadius{Value: radius}
	c := BallColor{R: color[0], G: color[1], B: color[2], A: color[3]}
	cl := BallCluster{ID: clusterID}
	entity := w.ballMapper.NewEntity(&pos, &r, &c, &cl)
	w.count++
	w.dirty = true
	return entity
}

func (w *ballWorld) Despawn(entity ecs.Entity) error {
	if !w.world.Alive(entity) {
		return fmt.Errorf("entity %v is not alive", entity)
	}
	w.ballMapper.Remove(entity)
	w.count--
	w.dirty = true
	return nil
}

func (w *ballWorld) SetPosition(entity ecs.Entity, x, y float32) error {
	if !w.world.Alive(entity) {
		return fmt.Errorf("entity %v is not alive", entity)
	}
	pos := w.posMap.Get(entity)
	pos.X = x
	pos.Y = y
	w.dirty = true
	return nil
}

func (w *ballWorld) SetRadius(entity ecs.Entity, radius float32) error {
	if !w.world.Alive(entity) {
		return fmt.Errorf("entity %v is not alive", entity)
	}
	w.radiusMap.Get(entity).Value = radius
	w.dirty = true
	return nil
}

func (w *ballWorld) SetColor(entity ecs.Entity, color [4]float32) error {
	if !w.world.Alive(entity) {
		return fmt.Errorf("entity %v is not alive", entity)
	}
	c := w.colorMap.Get(entity)
	c.R, c.G, c.B, c.A = color[0], color[1], color[2], color[3]
	w.dirty = true
	return nil
}

func (w *ballWorld) SetCluster(entity ecs.Entity, clusterID int32) error {
	if !w.world.Alive(entity) {
		return fmt.Errorf("entity %v is not alive", entity)
	}
	w.clusterMap.Get(entity).ID = clusterID
	w.dirty = true
	return nil
}

func (w *ballWorld) Position(entity ecs.Entity) (float32, float32, error) {
	if !w.world.Alive(entity) {
		return 0, 0, fmt.Errorf("entity %v is not alive", entity)
	}
	pos := w.posMap.Get(entity)
	return pos.X, pos.Y, nil
}

func (w *ballWorld) ForEach(fn func(entity ecs.Entity, pos Position, radius BallRadius, color BallColor, cluster BallCluster)) {
	query := w.ballFilter.Query()
	for query.Next() {
		pos, radius, color, cluster := query.Get()
		fn(query.Entity(), *pos, *radius, *color, *cluster)
	}
}

func (w *ballWorld) Count() int {
	return w.count
}

func (w *ballWorld) Alive(entity ecs.Entity) bool {
	return w.world.Alive(entity)
}

func (w *ballWorld) Dirty() bool {
	return w.dirty
}

func (w *ballWorld) ClearDirty() {
	w.dirty = false
}

func (w *ballWorld) MarkDirty() {
	w.dirty = true
}
