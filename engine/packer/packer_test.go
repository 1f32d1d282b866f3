package packer

import (
	"testing"

	"github.com/Carmen-Shannon/metaball-go/engine/ball_buffer"
	"github.com/Carmen-Shannon/metaball-go/engine/coordinates"
	"github.com/Carmen-Shannon/metaball-go/engine/world"

	"github.com/mlange-42/ark/ecs"
)

func newTestMapper(t *testing.T) coordinates.CoordinateMapper {
	t.Helper()
	m, err := coordinates.NewCoordinateMapper(512, 512, coordinates.WithWorldBounds(-256, -256, 256, 256))
	if err != nil {
		t.Fatalf("mapper construction failed: %v", err)
	}
	return m
}

func TestPackSkipsWhenClean(t *testing.T) {
	m := newTestMapper(t)
	buf := ball_buffer.NewBallBuffer(ball_buffer.WithCapacity(64))
	p, err := NewPacker(m, buf)
	if err != nil {
		t.Fatalf("NewPacker failed: %v", err)
	}

	bw := world.NewBallWorld()
	for i := 0; i < 5; i++ {
		bw.Spawn(float32(i), float32(i), 5, [4]float32{1, 1, 1, 1}, 0)
	}

	repacked, err := p.Pack(bw)
	if err != nil || !repacked {
		t.Fatalf("first Pack = (%v, %v), want (true, nil)", repacked, err)
	}
	before := buf.Packed()
	beforeCopy := make([]ball_buffer.GpuBall, len(before))
	copy(beforeCopy, before)

	repacked, err = p.Pack(bw)
	if err != nil {
		t.Fatalf("second Pack failed: %v", err)
	}
	if repacked {
		t.Error("second Pack repacked with no changes")
	}

	after := buf.Packed()
	if &before[0] != &after[0] {
		t.Error("backing storage address changed across a skipped frame")
	}
	for i := range after {
		if after[i] != beforeCopy[i] {
			t.Errorf("slot %d mutated across a skipped frame", i)
		}
	}
}

func TestPackDirtyCorrectness(t *testing.T) {
	m := newTestMapper(t)
	p, err := NewPacker(m, ball_buffer.NewBallBuffer(ball_buffer.WithCapacity(64)))
	if err != nil {
		t.Fatalf("NewPacker failed: %v", err)
	}

	bw := world.NewBallWorld()
	entity := bw.Spawn(0, 0, 5, [4]float32{1, 1, 1, 1}, 0)
	if _, err := p.Pack(bw); err != nil {
		t.Fatalf("Pack failed: %v", err)
	}
	if bw.Dirty() {
		t.Error("dirty flag not cleared after successful pack")
	}

	if err := bw.SetPosition(entity, 10, 0); err != nil {
		t.Fatalf("SetPosition failed: %v", err)
	}
	if !bw.Dirty() {
		t.Error("dirty flag not set after position change")
	}
	repacked, _ := p.Pack(bw)
	if !repacked {
		t.Error("Pack skipped a dirty frame")
	}
}

func TestPackEndToEnd(t *testing.T) {
	m := newTestMapper(t)
	buf := ball_buffer.NewBallBuffer(ball_buffer.WithCapacity(64))
	p, err := NewPacker(m, buf)
	if err != nil {
		t.Fatalf("NewPacker failed: %v", err)
	}

	bw := world.NewBallWorld()
	entities := make([]ecs.Entity, 0, 10)
	for i := 0; i < 10; i++ {
		entities = append(entities, bw.Spawn(float32(i), float32(i), 5.0, [4]float32{1, 1, 1, 1}, 0))
	}

	if _, err := p.Pack(bw); err != nil {
		t.Fatalf("Pack failed: %v", err)
	}
	if buf.Len() != 10 {
		t.Fatalf("buffer length = %d, want 10", buf.Len())
	}

	if err := bw.SetPosition(entities[3], 4, 3); err != nil {
		t.Fatalf("SetPosition failed: %v", err)
	}
	repacked, err := p.Pack(bw)
	if err != nil || !repacked {
		t.Fatalf("Pack after move = (%v, %v), want (true, nil)", repacked, err)
	}

	want := m.WorldToTexture([2]float32{4, 3})
	found := false
	for _, ball := range buf.Packed() {
		if ball.Center == want {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("no packed ball at expected center %v after move", want)
	}
}

func TestSetMapperForcesRepack(t *testing.T) {
	m := newTestMapper(t)
	buf := ball_buffer.NewBallBuffer(ball_buffer.WithCapacity(8))
	p, err := NewPacker(m, buf)
	if err != nil {
		t.Fatalf("NewPacker failed: %v", err)
	}

	bw := world.NewBallWorld()
	bw.Spawn(0, 0, 1, [4]float32{1, 1, 1, 1}, 0)
	if _, err := p.Pack(bw); err != nil {
		t.Fatalf("Pack failed: %v", err)
	}

	wide, err := coordinates.NewCoordinateMapper(1024, 1024, coordinates.WithWorldBounds(-256, -256, 256, 256))
	if err != nil {
		t.Fatalf("mapper construction failed: %v", err)
	}
	p.SetMapper(wide)

	repacked, err := p.Pack(bw)
	if err != nil || !repacked {
		t.Fatalf("Pack after SetMapper = (%v, %v), want (true, nil)", repacked, err)
	}
	got, err := buf.At(0)
	if err != nil {
		t.Fatalf("At(0) failed: %v", err)
	}
	want := wide.WorldToTexture([2]float32{0, 0})
	if got.Center != want {
		t.Errorf("repacked center = %v, want %v", got.Center, want)
	}
}

func TestParallelMatchesSerial(t *testing.T) {
	m := newTestMapper(t)

	spawn := func(bw world.BallWorld) {
		for i := 0; i < 600; i++ {
			bw.Spawn(float32(i%100), float32(i%50), float32(1+i%7), [4]float32{0.5, 0.25, 0.75, 1}, int32(i%4))
		}
	}

	serialBuf := ball_buffer.NewBallBuffer(ball_buffer.WithCapacity(1024))
	serial, err := NewPacker(m, serialBuf, WithParallelThreshold(10000))
	if err != nil {
		t.Fatalf("NewPacker failed: %v", err)
	}
	serialWorld := world.NewBallWorld()
	spawn(serialWorld)
	if _, err := serial.Pack(serialWorld); err != nil {
		t.Fatalf("serial Pack failed: %v", err)
	}

	parallelBuf := ball_buffer.NewBallBuffer(ball_buffer.WithCapacity(1024))
	parallel, err := NewPacker(m, parallelBuf, WithParallelThreshold(1), WithPackWorkers(4))
	if err != nil {
		t.Fatalf("NewPacker failed: %v", err)
	}
	parallelWorld := world.NewBallWorld()
	spawn(parallelWorld)
	if _, err := parallel.Pack(parallelWorld); err != nil {
		t.Fatalf("parallel Pack failed: %v", err)
	}

	if serialBuf.Len() != parallelBuf.Len() {
		t.Fatalf("lengths differ: serial %d parallel %d", serialBuf.Len(), parallelBuf.Len())
	}
	s, p := serialBuf.Packed(), parallelBuf.Packed()
	for i := range s {
		if s[i] != p[i] {
			t.Fatalf("slot %d differs: serial %+v parallel %+v", i, s[i], p[i])
		}
	}
}

func TestPackDropsOverflow(t *testing.T) {
	m := newTestMapper(t)
	buf := ball_buffer.NewBallBuffer(ball_buffer.WithCapacity(4))
	p, err := NewPacker(m, buf)
	if err != nil {
		t.Fatalf("NewPacker failed: %v", err)
	}

	bw := world.NewBallWorld()
	for i := 0; i < 10; i++ {
		bw.Spawn(float32(i), 0, 1, [4]float32{1, 1, 1, 1}, 0)
	}
	if _, err := p.Pack(bw); err != nil {
		t.Fatalf("Pack failed: %v", err)
	}
	if buf.Len() != 4 {
		t.Errorf("buffer length = %d, want capacity 4", buf.Len())
	}
}
