package world

import (
	"testing"

	"github.com/mlange-42/ark/ecs"
)

func TestSpawnSetsDirty(t *testing.T) {
	w := NewBallWorld()
	w.ClearDirty()

	entity := w.Spawn(1, 2, 5, [4]float32{1, 0, 0, 1}, 0)
	if !w.Dirty() {
		t.Error("spawn did not set dirty flag")
	}
	if w.Count() != 1 {
		t.Errorf("Count = %d, want 1", w.Count())
	}
	if !w.Alive(entity) {
		t.Error("spawned entity not alive")
	}
}

func TestDespawnSetsDirty(t *testing.T) {
	w := NewBallWorld()
	entity := w.Spawn(0, 0, 1, [4]float32{1, 1, 1, 1}, 0)
	w.ClearDirty()

	if err := w.Despawn(entity); err != nil {
		t.Fatalf("Despawn failed: %v", err)
	}
	if !w.Dirty() {
		t.Error("despawn did not set dirty flag")
	}
	if w.Count() != 0 {
		t.Errorf("Count = %d, want 0", w.Count())
	}
	if w.Alive(entity) {
		t.Error("despawned entity still alive")
	}
	if err := w.Despawn(entity); err == nil {
		t.Error("double despawn did not error")
	}
}

func TestMutationsSetDirty(t *testing.T) {
	w := NewBallWorld()
	entity := w.Spawn(0, 0, 1, [4]float32{1, 1, 1, 1}, 0)

	tests := []struct {
		name   string
		mutate func() error
	}{
		{"position", func() error { return w.SetPosition(entity, 10, 20) }},
		{"radius", func() error { return w.SetRadius(entity, 7) }},
		{"color", func() error { return w.SetColor(entity, [4]float32{0, 1, 0, 1}) }},
		{"cluster", func() error { return w.SetCluster(entity, 3) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w.ClearDirty()
			if err := tt.mutate(); err != nil {
				t.Fatalf("mutation failed: %v", err)
			}
			if !w.Dirty() {
				t.Error("mutation did not set dirty flag")
			}
		})
	}
}

func TestMutationsOnDeadEntityError(t *testing.T) {
	w := NewBallWorld()
	entity := w.Spawn(0, 0, 1, [4]float32{1, 1, 1, 1}, 0)
	if err := w.Despawn(entity); err != nil {
		t.Fatalf("Despawn failed: %v", err)
	}

	if err := w.SetPosition(entity, 1, 1); err == nil {
		t.Error("SetPosition on dead entity did not error")
	}
	if err := w.SetRadius(entity, 1); err == nil {
		t.Error("SetRadius on dead entity did not error")
	}
	if _, _, err := w.Position(entity); err == nil {
		t.Error("Position on dead entity did not error")
	}
}

func TestForEachVisitsAll(t *testing.T) {
	w := NewBallWorld()
	for i := 0; i < 10; i++ {
		w.Spawn(float32(i), float32(i), 5, [4]float32{1, 1, 1, 1}, int32(i%3))
	}

	visited := 0
	var radiusSum float32
	w.ForEach(func(_ ecs.Entity, _ Position, radius BallRadius, _ BallColor, _ BallCluster) {
		visited++
		radiusSum += radius.Value
	})
	if visited != 10 {
		t.Errorf("ForEach visited %d entities, want 10", visited)
	}
	if radiusSum != 50 {
		t.Errorf("radius sum = %v, want 50", radiusSum)
	}
}
