package ball_buffer

import (
	"testing"
)

func TestAllocateSequential(t *testing.T) {
	b := NewBallBuffer(WithCapacity(8))

	seen := make(map[int]bool)
	for i := 0; i < 8; i++ {
		index, ok := b.Allocate()
		if !ok {
			t.Fatalf("allocation %d failed below capacity", i)
		}
		if seen[index] {
			t.Fatalf("index %d returned twice", index)
		}
		seen[index] = true
	}

	if _, ok := b.Allocate(); ok {
		t.Error("allocation succeeded at capacity")
	}
	if b.ActiveCount() != 8 {
		t.Errorf("ActiveCount = %d, want 8", b.ActiveCount())
	}
	if b.ActiveCount() > b.Capacity() {
		t.Errorf("active count %d exceeds capacity %d", b.ActiveCount(), b.Capacity())
	}
}

func TestFreeReuse(t *testing.T) {
	b := NewBallBuffer(WithCapacity(16))

	for i := 0; i < 5; i++ {
		if _, ok := b.Allocate(); !ok {
			t.Fatalf("allocation %d failed", i)
		}
	}

	if err := b.Free(2); err != nil {
		t.Fatalf("Free(2) failed: %v", err)
	}
	if b.ActiveCount() != 4 {
		t.Errorf("ActiveCount after free = %d, want 4", b.ActiveCount())
	}

	index, ok := b.Allocate()
	if !ok {
		t.Fatal("allocation after free failed")
	}
	if index != 2 {
		t.Errorf("allocation after Free(2) returned %d, want 2", index)
	}
}

func TestFreeErrors(t *testing.T) {
	b := NewBallBuffer(WithCapacity(4))
	b.Allocate()
	b.Allocate()

	if err := b.Free(-1); err == nil {
		t.Error("Free(-1) did not error")
	}
	if err := b.Free(2); err == nil {
		t.Error("Free past length did not error")
	}
	if err := b.Free(1); err != nil {
		t.Errorf("Free(1) failed: %v", err)
	}
	if err := b.Free(1); err == nil {
		t.Error("double free did not error")
	}
}

func TestUpdateAndAt(t *testing.T) {
	b := NewBallBuffer(WithCapacity(4))
	index, _ := b.Allocate()

	want := GpuBall{Center: [2]float32{10, 20}, Radius: 5, ClusterID: 3, Color: [4]float32{1, 0, 0, 1}}
	if err := b.Update(index, want); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, err := b.At(index)
	if err != nil {
		t.Fatalf("At failed: %v", err)
	}
	if got != want {
		t.Errorf("At(%d) = %+v, want %+v", index, got, want)
	}

	if err := b.Update(3, want); err == nil {
		t.Error("Update past length did not error")
	}
	if _, err := b.At(7); err == nil {
		t.Error("At past length did not error")
	}
}

func TestResetKeepsBackingArray(t *testing.T) {
	b := NewBallBuffer(WithCapacity(32))
	for i := 0; i < 10; i++ {
		b.Append(GpuBall{Radius: float32(i)})
	}

	before := b.Packed()
	b.Reset()
	if b.Len() != 0 || b.ActiveCount() != 0 {
		t.Fatalf("Reset left Len=%d ActiveCount=%d", b.Len(), b.ActiveCount())
	}

	for i := 0; i < 10; i++ {
		b.Append(GpuBall{Radius: float32(i)})
	}
	after := b.Packed()
	if &before[0] != &after[0] {
		t.Error("backing array address changed across Reset and repack")
	}
}

func TestAppendHonorsCapacity(t *testing.T) {
	b := NewBallBuffer(WithCapacity(2))
	if _, ok := b.Append(GpuBall{}); !ok {
		t.Fatal("first append failed")
	}
	if _, ok := b.Append(GpuBall{}); !ok {
		t.Fatal("second append failed")
	}
	if _, ok := b.Append(GpuBall{}); ok {
		t.Error("append succeeded past capacity")
	}
	if b.Len() != 2 {
		t.Errorf("Len = %d, want 2", b.Len())
	}
}
