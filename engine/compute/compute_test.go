package compute

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/metaball-go/common"
	"github.com/Carmen-Shannon/metaball-go/engine/ball_buffer"
	"github.com/Carmen-Shannon/metaball-go/engine/renderer"
	"github.com/Carmen-Shannon/metaball-go/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/metaball-go/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/metaball-go/engine/spatial"
	"github.com/cogentcore/webgpu/wgpu"
)

// stubRenderer satisfies renderer.Renderer without touching a GPU. Resource
// init methods hand out placeholder handles so readiness checks pass.
type stubRenderer struct {
	registerErr error

	registered []string
	dispatched []string
	writes     [][]bind_group_provider.BufferWrite
}

var _ renderer.Renderer = &stubRenderer{}

func (s *stubRenderer) Pipeline(string) pipeline.Pipeline          { return nil }
func (s *stubRenderer) Pipelines() map[string]pipeline.Pipeline    { return nil }
func (s *stubRenderer) SetPipeline(string, pipeline.Pipeline)      {}
func (s *stubRenderer) SetPipelines(map[string]pipeline.Pipeline)  {}
func (s *stubRenderer) Resize(int, int)                            {}
func (s *stubRenderer) SetPresentMode(renderer.PresentMode)        {}
func (s *stubRenderer) BeginComputeFrame() error                   { return nil }
func (s *stubRenderer) EndComputeFrame()                           {}
func (s *stubRenderer) BeginFrame() error                          { return nil }
func (s *stubRenderer) EndFrame()                                  {}
func (s *stubRenderer) Present()                                   {}

func (s *stubRenderer) RegisterPipelines(pipelines ...pipeline.Pipeline) error {
	if s.registerErr != nil {
		return s.registerErr
	}
	for _, p := range pipelines {
		s.registered = append(s.registered, p.PipelineKey())
	}
	return nil
}

func (s *stubRenderer) InitBindGroup(provider bind_group_provider.BindGroupProvider, _ wgpu.BindGroupLayoutDescriptor, _ map[int]wgpu.BufferUsage, _ map[int]uint64) error {
	provider.SetBindGroup(new(wgpu.BindGroup))
	return nil
}

func (s *stubRenderer) InitStorageTexture(provider bind_group_provider.BindGroupProvider, bindingKey int, _, _ uint32, _ wgpu.TextureFormat) error {
	provider.SetTexture(bindingKey, new(wgpu.Texture))
	provider.SetTextureView(bindingKey, new(wgpu.TextureView))
	return nil
}

func (s *stubRenderer) InitSampler(bind_group_provider.BindGroupProvider, int, common.SamplerStagingData) error {
	return nil
}

func (s *stubRenderer) WriteBuffers(writes []bind_group_provider.BufferWrite) {
	s.writes = append(s.writes, writes)
}

func (s *stubRenderer) DispatchCompute(pipelineKey string, _ bind_group_provider.BindGroupProvider, _ [3]uint32) {
	s.dispatched = append(s.dispatched, pipelineKey)
}

func (s *stubRenderer) Draw(string, uint32, []bind_group_provider.BindGroupProvider) error {
	return nil
}

func TestWorkgroupCount(t *testing.T) {
	tests := []struct {
		name   string
		w, h   uint32
		expect [3]uint32
	}{
		{"exact multiple", 512, 512, [3]uint32{64, 64, 1}},
		{"rounds up", 513, 100, [3]uint32{65, 13, 1}},
		{"single workgroup", 8, 8, [3]uint32{1, 1, 1}},
		{"tiny texture", 1, 1, [3]uint32{1, 1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewOrchestrator(&stubRenderer{}, tt.w, tt.h)
			if got := o.WorkgroupCount(); got != tt.expect {
				t.Fatalf("WorkgroupCount() = %v, expected %v", got, tt.expect)
			}
		})
	}
}

func TestPassStateTransitions(t *testing.T) {
	stub := &stubRenderer{}
	o := NewOrchestrator(stub, 256, 256)

	if o.FieldState() != PassStateLoading || o.NormalsState() != PassStateLoading {
		t.Fatalf("new orchestrator should start with both passes loading")
	}
	if err := o.DispatchField(); !errors.Is(err, ErrNotReady) {
		t.Fatalf("dispatch before init should return ErrNotReady, got %v", err)
	}

	if err := o.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if o.FieldState() != PassStateReady {
		t.Fatalf("field pass should be ready after Init")
	}
	if o.NormalsState() != PassStateLoading {
		t.Fatalf("normals pass should stay loading until first dispatch")
	}

	if err := o.DispatchField(); err != nil {
		t.Fatalf("DispatchField failed: %v", err)
	}
	if err := o.DispatchNormals(); err != nil {
		t.Fatalf("DispatchNormals failed: %v", err)
	}
	if o.NormalsState() != PassStateReady {
		t.Fatalf("normals pass should be ready after lazy bind group build")
	}

	if len(stub.dispatched) != 2 || stub.dispatched[0] != fieldPipelineKey || stub.dispatched[1] != normalsPipelineKey {
		t.Fatalf("expected field then normals dispatch, got %v", stub.dispatched)
	}
}

func TestCompileFailureIsPermanent(t *testing.T) {
	stub := &stubRenderer{registerErr: errors.New("naga: parse error")}
	o := NewOrchestrator(stub, 256, 256)

	if err := o.Init(); !errors.Is(err, ErrPassFailed) {
		t.Fatalf("Init should surface ErrPassFailed on compile failure, got %v", err)
	}
	if o.FieldState() != PassStateFailed {
		t.Fatalf("field pass should be failed after compile error")
	}

	// no retry: every subsequent dispatch fails the same way
	for range 3 {
		if err := o.DispatchField(); !errors.Is(err, ErrPassFailed) {
			t.Fatalf("dispatch on failed pass should return ErrPassFailed, got %v", err)
		}
	}
	if len(stub.dispatched) != 0 {
		t.Fatalf("no workgroups should be dispatched on a failed pass")
	}
}

func TestNormalsSkipBeforeFieldResources(t *testing.T) {
	o := NewOrchestrator(&stubRenderer{}, 128, 128)

	if err := o.DispatchNormals(); !errors.Is(err, ErrNotReady) {
		t.Fatalf("normals dispatch without field resources should return ErrNotReady, got %v", err)
	}
	if o.NormalsState() != PassStateLoading {
		t.Fatalf("skipped frame must not change pass state")
	}
}

func TestUploadBallsWritesCountsAndData(t *testing.T) {
	stub := &stubRenderer{}
	o := NewOrchestrator(stub, 256, 256).(*orchestrator)
	if err := o.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	balls := []ball_buffer.GpuBall{
		{Center: [2]float32{10, 20}, Radius: 5},
		{Center: [2]float32{30, 40}, Radius: 7},
		{Center: [2]float32{50, 60}, Radius: 9},
	}
	o.UploadBalls(balls, 5)

	if o.params.BallCount != 3 {
		t.Fatalf("BallCount = %d, expected 3", o.params.BallCount)
	}
	if o.params.ActiveBallCount != 5 {
		t.Fatalf("ActiveBallCount = %d, expected 5", o.params.ActiveBallCount)
	}
	if len(stub.writes) != 1 {
		t.Fatalf("expected one batched write, got %d", len(stub.writes))
	}
	batch := stub.writes[0]
	if len(batch) != 3 {
		t.Fatalf("expected params, time, and ball writes, got %d entries", len(batch))
	}
	if got := uint64(len(batch[0].Data)); got != paramsUniformSize {
		t.Fatalf("params write size = %d, expected %d", got, paramsUniformSize)
	}
	if got := uint64(len(batch[2].Data)); got != 3*gpuBallSize {
		t.Fatalf("ball write size = %d, expected %d", got, 3*gpuBallSize)
	}
}

func TestUploadGridRecordsDims(t *testing.T) {
	stub := &stubRenderer{}
	o := NewOrchestrator(stub, 256, 256).(*orchestrator)
	if err := o.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	grid := spatial.BuildGrid([]ball_buffer.GpuBall{
		{Center: [2]float32{64, 64}, Radius: 4},
	}, 256, 256)
	o.UploadGrid(grid)

	if o.params.GridDims != grid.Dims {
		t.Fatalf("GridDims = %v, expected %v", o.params.GridDims, grid.Dims)
	}

	// The cell table and membership indices must land together, with every
	// cell range inside the uploaded index count.
	last := stub.writes[len(stub.writes)-1]
	uploadedIndices := 0
	uploadedCells := false
	for _, w := range last {
		switch w.Binding {
		case fieldBindingGridIndices:
			uploadedIndices = len(w.Data) / 4
		case fieldBindingGridCells:
			uploadedCells = true
		}
	}
	if !uploadedCells || uploadedIndices == 0 {
		t.Fatalf("expected cell and index uploads, got cells=%v indices=%d", uploadedCells, uploadedIndices)
	}
	for i, c := range grid.Cells {
		if int(c.Offset)+int(c.Count) > uploadedIndices {
			t.Fatalf("cell %d range [%d,%d) exceeds %d uploaded indices", i, c.Offset, c.Offset+c.Count, uploadedIndices)
		}
	}

	// zero-dim grid disables grid lookups
	o.UploadGrid(spatial.Grid{})
	if o.params.GridDims != [2]uint32{0, 0} {
		t.Fatalf("zero grid should clear GridDims, got %v", o.params.GridDims)
	}
}

func TestUploadGridOverflowFallsBackToBruteForce(t *testing.T) {
	stub := &stubRenderer{}
	o := NewOrchestrator(stub, 256, 256, WithGridIndexCapacity(4)).(*orchestrator)
	if err := o.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	// One ball whose influence covers the whole screen lands in every cell of
	// the 4x4 grid, so the membership list holds 16 entries against a 4-entry
	// index buffer. Uploading it truncated would leave cell ranges pointing at
	// stale data, so the grid must be disabled for the frame instead.
	grid := spatial.BuildGrid([]ball_buffer.GpuBall{
		{Center: [2]float32{128, 128}, Radius: 200},
	}, 256, 256)
	if len(grid.BallIndices) <= 4 {
		t.Fatalf("expected membership list beyond capacity, got %d entries", len(grid.BallIndices))
	}

	o.UploadGrid(grid)

	if o.params.GridDims != [2]uint32{0, 0} {
		t.Fatalf("oversized grid should clear GridDims, got %v", o.params.GridDims)
	}
	last := stub.writes[len(stub.writes)-1]
	for _, w := range last {
		if w.Binding == fieldBindingGridCells || w.Binding == fieldBindingGridIndices {
			t.Fatalf("binding %d uploaded despite membership overflow", w.Binding)
		}
	}

	// A grid that fits the capacity exactly still uploads whole.
	small := spatial.BuildGrid([]ball_buffer.GpuBall{
		{Center: [2]float32{32, 32}, Radius: 2},
	}, 256, 256)
	if len(small.BallIndices) == 0 || len(small.BallIndices) > 4 {
		t.Fatalf("expected a within-capacity membership list, got %d entries", len(small.BallIndices))
	}
	o.UploadGrid(small)
	if o.params.GridDims != small.Dims {
		t.Fatalf("GridDims = %v, expected %v", o.params.GridDims, small.Dims)
	}
}

func TestTexturesExposeViews(t *testing.T) {
	stub := &stubRenderer{}
	o := NewOrchestrator(stub, 64, 64)

	if tex := o.Textures(); tex.Field != nil || tex.Albedo != nil || tex.Normals != nil {
		t.Fatalf("views should be nil before Init")
	}

	if err := o.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	tex := o.Textures()
	if tex.Field == nil || tex.Albedo == nil {
		t.Fatalf("field and albedo views should exist after Init")
	}
	if tex.Normals != nil {
		t.Fatalf("normals view should not exist before the first normals dispatch")
	}

	if err := o.DispatchNormals(); err != nil {
		t.Fatalf("DispatchNormals failed: %v", err)
	}
	if o.Textures().Normals == nil {
		t.Fatalf("normals view should exist after the lazy bind group build")
	}
}
