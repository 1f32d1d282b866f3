package compute

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/Carmen-Shannon/metaball-go/common"
	"github.com/Carmen-Shannon/metaball-go/engine/ball_buffer"
	"github.com/Carmen-Shannon/metaball-go/engine/renderer"
	"github.com/Carmen-Shannon/metaball-go/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/metaball-go/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/metaball-go/engine/renderer/shader"
	"github.com/Carmen-Shannon/metaball-go/engine/spatial"
	"github.com/Carmen-Shannon/metaball-go/shaders"
	"github.com/cogentcore/webgpu/wgpu"
)

// WorkgroupSize is the workgroup edge length of both compute kernels.
// Dispatch counts are the ceiling division of the texture dimensions by this value.
const WorkgroupSize uint32 = 8

const (
	fieldPipelineKey   = "metaballs.field"
	normalsPipelineKey = "metaballs.normals"
)

// Field pass binding indices. Must match shaders/compute_metaballs.wgsl.
const (
	fieldBindingFieldTex    = 0
	fieldBindingParams      = 1
	fieldBindingTime        = 2
	fieldBindingBalls       = 3
	fieldBindingAlbedoTex   = 4
	fieldBindingGridCells   = 5
	fieldBindingGridIndices = 6
)

// Normals pass binding indices. Must match shaders/compute_3d_normals.wgsl.
const (
	normalsBindingFieldTex   = 0
	normalsBindingParams     = 1
	normalsBindingNormalsTex = 2
)

// ErrNotReady indicates a pass could not run this frame because its GPU
// resources are not yet prepared. The condition is frame-local; callers
// should skip the pass and retry next frame.
var ErrNotReady = errors.New("compute pass resources not ready")

// ErrPassFailed indicates a pass whose pipeline failed to compile. The
// condition is permanent; no retry will succeed.
var ErrPassFailed = errors.New("compute pass pipeline failed to compile")

// PassState tracks the readiness of a compute pass.
type PassState int

const (
	// PassStateLoading means the pass has not finished preparing its GPU resources.
	PassStateLoading PassState = iota

	// PassStateReady means the pass can be dispatched.
	PassStateReady

	// PassStateFailed means the pass pipeline failed to compile. Permanent.
	PassStateFailed
)

// ParamsUniform is the shared parameter block for both kernels.
// Layout must match WGSL `struct Params` (16-byte aligned).
type ParamsUniform struct {
	ScreenSize        [2]float32
	BallCount         uint32
	ClusteringEnabled uint32
	GridDims          [2]uint32
	ActiveBallCount   uint32
	Iso               float32
}

// TimeUniform carries the animation clock for the field kernel.
type TimeUniform struct {
	Time float32
	_    [3]float32
}

const (
	paramsUniformSize = uint64(unsafe.Sizeof(ParamsUniform{}))
	timeUniformSize   = uint64(unsafe.Sizeof(TimeUniform{}))
	gpuBallSize       = uint64(unsafe.Sizeof(ball_buffer.GpuBall{}))
	gridCellByteSize  = uint64(unsafe.Sizeof(spatial.GridCell{}))
)

// Textures bundles the texture views produced by the two passes.
type Textures struct {
	Field   *wgpu.TextureView
	Albedo  *wgpu.TextureView
	Normals *wgpu.TextureView
}

// orchestrator is the implementation of the Orchestrator interface.
type orchestrator struct {
	renderer renderer.Renderer

	width  uint32
	height uint32

	capacity          int
	gridIndexCapacity int
	iso               float32
	clustering        bool

	params ParamsUniform
	time   TimeUniform

	fieldState   PassState
	normalsState PassState

	fieldProvider   bind_group_provider.BindGroupProvider
	normalsProvider bind_group_provider.BindGroupProvider

	fieldLayout   wgpu.BindGroupLayoutDescriptor
	normalsLayout wgpu.BindGroupLayoutDescriptor
}

// Orchestrator owns the two-pass metaball compute pipeline: the field + albedo
// accumulation pass and the normals derivation pass. It manages the GPU
// resources for both passes, tracks per-pass readiness, and dispatches them in
// strict order within the renderer's batched compute frame.
type Orchestrator interface {
	// Init compiles both compute pipelines and creates the storage textures and
	// GPU buffers for the field pass. A pipeline compile failure moves the
	// affected pass to PassStateFailed and is returned as a permanent error.
	//
	// Returns:
	//   - error: an error if pipeline creation or resource setup fails
	Init() error

	// UploadBalls writes the packed ball slice and current counts into the GPU
	// ball buffer and parameter uniform. Only the packed prefix is written; the
	// buffer itself never grows.
	//
	// Parameters:
	//   - balls: the packed ball slice in texture space
	//   - activeCount: the number of live balls in the allocator
	UploadBalls(balls []ball_buffer.GpuBall, activeCount int)

	// UploadGrid writes the spatial grid's cell table and membership indices to
	// the GPU and records the grid dimensions in the parameter uniform. Passing
	// a zero-dimension grid disables grid lookups in the kernel, as does a
	// membership list exceeding the configured grid index capacity: the cell
	// table and index buffer are only ever uploaded together and whole, so
	// every cell range stays within the uploaded indices.
	//
	// Parameters:
	//   - grid: the grid produced by spatial.BuildGrid
	UploadGrid(grid spatial.Grid)

	// SetTime updates the animation clock uniform.
	//
	// Parameters:
	//   - t: elapsed time in seconds
	SetTime(t float32)

	// DispatchField encodes the field + albedo pass into the current compute
	// frame. Returns ErrPassFailed permanently after a compile failure, or
	// ErrNotReady when the bind group is not yet prepared (skip the frame).
	//
	// Returns:
	//   - error: nil on dispatch, ErrNotReady or ErrPassFailed otherwise
	DispatchField() error

	// DispatchNormals encodes the normals pass into the current compute frame.
	// The normals bind group is built lazily on first dispatch once the field
	// pass resources exist. Must be called after DispatchField in the frame.
	//
	// Returns:
	//   - error: nil on dispatch, ErrNotReady or ErrPassFailed otherwise
	DispatchNormals() error

	// Textures returns the views of the field, albedo, and normals textures.
	// Views may be nil before Init completes.
	//
	// Returns:
	//   - Textures: the current texture views
	Textures() Textures

	// FieldState reports the readiness of the field pass.
	//
	// Returns:
	//   - PassState: the current field pass state
	FieldState() PassState

	// NormalsState reports the readiness of the normals pass.
	//
	// Returns:
	//   - PassState: the current normals pass state
	NormalsState() PassState

	// WorkgroupCount returns the dispatch dimensions for the current texture
	// size: the ceiling division of width and height by WorkgroupSize.
	//
	// Returns:
	//   - [3]uint32: the x, y, z workgroup counts
	WorkgroupCount() [3]uint32
}

var _ Orchestrator = &orchestrator{}

// NewOrchestrator creates a compute Orchestrator targeting the given texture size.
// Panics if the renderer is nil or the texture dimensions are zero.
//
// Parameters:
//   - r: the Renderer providing device access and pipeline registration
//   - textureWidth: field texture width in texels
//   - textureHeight: field texture height in texels
//   - opts: variadic list of OrchestratorBuilderOption functions
//
// Returns:
//   - Orchestrator: a new Orchestrator in PassStateLoading for both passes
func NewOrchestrator(r renderer.Renderer, textureWidth, textureHeight uint32, opts ...OrchestratorBuilderOption) Orchestrator {
	if r == nil {
		panic("compute: renderer must not be nil")
	}
	if textureWidth == 0 || textureHeight == 0 {
		panic("compute: texture dimensions must be non-zero")
	}

	o := &orchestrator{
		renderer:          r,
		width:             textureWidth,
		height:            textureHeight,
		capacity:          ball_buffer.DefaultMaxBalls,
		gridIndexCapacity: ball_buffer.DefaultMaxBalls * 16,
		iso:               0.8,
		fieldState:        PassStateLoading,
		normalsState:      PassStateLoading,
	}
	for _, opt := range opts {
		opt(o)
	}

	o.params = ParamsUniform{
		ScreenSize: [2]float32{float32(textureWidth), float32(textureHeight)},
		Iso:        o.iso,
	}
	if o.clustering {
		o.params.ClusteringEnabled = 1
	}

	cellCount := int(common.CeilDiv(textureWidth, uint32(spatial.CellSize)) * common.CeilDiv(textureHeight, uint32(spatial.CellSize)))
	o.fieldLayout = fieldLayoutDescriptor(o.capacity, o.gridIndexCapacity, cellCount)
	o.normalsLayout = normalsLayoutDescriptor()

	return o
}

func (o *orchestrator) Init() error {
	fieldShader := shader.NewShader(fieldPipelineKey, shader.ShaderTypeCompute, shaders.FieldWGSL,
		shader.WithEntryPoint("metaballs"),
		shader.WithWorkgroupSize(WorkgroupSize, WorkgroupSize, 1),
		shader.WithBindGroupLayout(0, o.fieldLayout),
	)
	normalsShader := shader.NewShader(normalsPipelineKey, shader.ShaderTypeCompute, shaders.NormalsWGSL,
		shader.WithEntryPoint("compute_normals"),
		shader.WithWorkgroupSize(WorkgroupSize, WorkgroupSize, 1),
		shader.WithBindGroupLayout(0, o.normalsLayout),
	)

	fieldPipeline := pipeline.NewPipeline(fieldPipelineKey, pipeline.PipelineTypeCompute,
		pipeline.WithComputeShader(fieldShader),
	)
	if err := o.renderer.RegisterPipelines(fieldPipeline); err != nil {
		o.fieldState = PassStateFailed
		return fmt.Errorf("%w: field: %v", ErrPassFailed, err)
	}

	normalsPipeline := pipeline.NewPipeline(normalsPipelineKey, pipeline.PipelineTypeCompute,
		pipeline.WithComputeShader(normalsShader),
	)
	if err := o.renderer.RegisterPipelines(normalsPipeline); err != nil {
		o.normalsState = PassStateFailed
		return fmt.Errorf("%w: normals: %v", ErrPassFailed, err)
	}

	if err := o.initFieldResources(); err != nil {
		return err
	}

	o.fieldState = PassStateReady
	return nil
}

// initFieldResources creates the field pass storage textures, buffers, and bind group.
func (o *orchestrator) initFieldResources() error {
	provider := bind_group_provider.NewBindGroupProvider("Metaball Field Pass")

	if err := o.renderer.InitStorageTexture(provider, fieldBindingFieldTex, o.width, o.height, wgpu.TextureFormatRGBA16Float); err != nil {
		return err
	}
	if err := o.renderer.InitStorageTexture(provider, fieldBindingAlbedoTex, o.width, o.height, wgpu.TextureFormatRGBA8Unorm); err != nil {
		return err
	}

	if err := o.renderer.InitBindGroup(provider, o.fieldLayout, nil, nil); err != nil {
		return err
	}

	o.fieldProvider = provider
	return nil
}

// ensureNormalsResources lazily builds the normals pass bind group. The normals
// texture and bind group can only exist once the field pass resources do, since
// the field texture view and params buffer are shared across the two passes.
func (o *orchestrator) ensureNormalsResources() error {
	if o.normalsProvider != nil {
		return nil
	}
	if o.fieldProvider == nil {
		return ErrNotReady
	}

	// The normals pass reads the texture the field pass wrote and shares its
	// params buffer, so both bindings are seeded from the field provider.
	provider := bind_group_provider.NewBindGroupProvider("Metaball Normals Pass",
		bind_group_provider.WithTextureView(normalsBindingFieldTex, o.fieldProvider.TextureView(fieldBindingFieldTex)),
		bind_group_provider.WithBuffer(normalsBindingParams, o.fieldProvider.Buffer(fieldBindingParams)),
	)

	if err := o.renderer.InitStorageTexture(provider, normalsBindingNormalsTex, o.width, o.height, wgpu.TextureFormatRGBA16Float); err != nil {
		return err
	}

	if err := o.renderer.InitBindGroup(provider, o.normalsLayout, nil, nil); err != nil {
		return err
	}

	o.normalsProvider = provider
	return nil
}

func (o *orchestrator) UploadBalls(balls []ball_buffer.GpuBall, activeCount int) {
	o.params.BallCount = uint32(len(balls))
	o.params.ActiveBallCount = uint32(activeCount)

	if o.fieldProvider == nil {
		return
	}

	writes := []bind_group_provider.BufferWrite{
		{Provider: o.fieldProvider, Binding: fieldBindingParams, Data: common.StructToBytes(&o.params)},
		{Provider: o.fieldProvider, Binding: fieldBindingTime, Data: common.StructToBytes(&o.time)},
	}
	if len(balls) > 0 {
		writes = append(writes, bind_group_provider.BufferWrite{
			Provider: o.fieldProvider,
			Binding:  fieldBindingBalls,
			Data:     common.SliceToBytes(balls),
		})
	}
	o.renderer.WriteBuffers(writes)
}

func (o *orchestrator) UploadGrid(grid spatial.Grid) {
	// A membership list larger than the GPU index buffer cannot be uploaded
	// whole, and uploading a truncated list would leave cell {Offset, Count}
	// ranges pointing past it. Disable grid lookups instead; the kernel brute
	// forces over the ball list until a smaller grid arrives.
	if len(grid.BallIndices) > o.gridIndexCapacity {
		o.params.GridDims = [2]uint32{}
	} else {
		o.params.GridDims = grid.Dims
	}

	if o.fieldProvider == nil {
		return
	}

	writes := []bind_group_provider.BufferWrite{
		{Provider: o.fieldProvider, Binding: fieldBindingParams, Data: common.StructToBytes(&o.params)},
	}
	if o.params.GridDims != [2]uint32{} {
		if len(grid.Cells) > 0 {
			writes = append(writes, bind_group_provider.BufferWrite{
				Provider: o.fieldProvider,
				Binding:  fieldBindingGridCells,
				Data:     common.SliceToBytes(grid.Cells),
			})
		}
		if len(grid.BallIndices) > 0 {
			writes = append(writes, bind_group_provider.BufferWrite{
				Provider: o.fieldProvider,
				Binding:  fieldBindingGridIndices,
				Data:     common.SliceToBytes(grid.BallIndices),
			})
		}
	}
	o.renderer.WriteBuffers(writes)
}

func (o *orchestrator) SetTime(t float32) {
	o.time.Time = t
}

func (o *orchestrator) DispatchField() error {
	switch o.fieldState {
	case PassStateFailed:
		return ErrPassFailed
	case PassStateLoading:
		return ErrNotReady
	}

	if o.fieldProvider == nil || o.fieldProvider.BindGroup() == nil {
		return ErrNotReady
	}

	o.renderer.DispatchCompute(fieldPipelineKey, o.fieldProvider, o.WorkgroupCount())
	return nil
}

func (o *orchestrator) DispatchNormals() error {
	switch o.normalsState {
	case PassStateFailed:
		return ErrPassFailed
	case PassStateReady:
	default:
		// Still loading: attempt the lazy bind group build. Absent field
		// resources mean a skipped frame, not an error.
		if err := o.ensureNormalsResources(); err != nil {
			if errors.Is(err, ErrNotReady) {
				return ErrNotReady
			}
			return err
		}
		o.normalsState = PassStateReady
	}

	if o.normalsProvider == nil || o.normalsProvider.BindGroup() == nil {
		return ErrNotReady
	}

	o.renderer.DispatchCompute(normalsPipelineKey, o.normalsProvider, o.WorkgroupCount())
	return nil
}

func (o *orchestrator) Textures() Textures {
	t := Textures{}
	if o.fieldProvider != nil {
		t.Field = o.fieldProvider.TextureView(fieldBindingFieldTex)
		t.Albedo = o.fieldProvider.TextureView(fieldBindingAlbedoTex)
	}
	if o.normalsProvider != nil {
		t.Normals = o.normalsProvider.TextureView(normalsBindingNormalsTex)
	}
	return t
}

func (o *orchestrator) FieldState() PassState {
	return o.fieldState
}

func (o *orchestrator) NormalsState() PassState {
	return o.normalsState
}

func (o *orchestrator) WorkgroupCount() [3]uint32 {
	return [3]uint32{
		common.CeilDiv(o.width, WorkgroupSize),
		common.CeilDiv(o.height, WorkgroupSize),
		1,
	}
}

// fieldLayoutDescriptor builds the bind group layout for the field pass.
// Buffer sizes are fixed at creation: the ball buffer never grows, and the
// grid buffers are sized for the worst case the engine will upload.
func fieldLayoutDescriptor(capacity, gridIndexCapacity, cellCount int) wgpu.BindGroupLayoutDescriptor {
	ballSize := uint64(capacity) * gpuBallSize
	gridCellSize := uint64(cellCount) * gridCellByteSize
	gridIndexSize := uint64(gridIndexCapacity) * 4

	return wgpu.BindGroupLayoutDescriptor{
		Label: "Metaball Field Layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    fieldBindingFieldTex,
				Visibility: wgpu.ShaderStageCompute,
				StorageTexture: wgpu.StorageTextureBindingLayout{
					Access:        wgpu.StorageTextureAccessWriteOnly,
					Format:        wgpu.TextureFormatRGBA16Float,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
			{
				Binding:    fieldBindingParams,
				Visibility: wgpu.ShaderStageCompute,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeUniform,
					MinBindingSize: paramsUniformSize,
				},
			},
			{
				Binding:    fieldBindingTime,
				Visibility: wgpu.ShaderStageCompute,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeUniform,
					MinBindingSize: timeUniformSize,
				},
			},
			{
				Binding:    fieldBindingBalls,
				Visibility: wgpu.ShaderStageCompute,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeReadOnlyStorage,
					MinBindingSize: ballSize,
				},
			},
			{
				Binding:    fieldBindingAlbedoTex,
				Visibility: wgpu.ShaderStageCompute,
				StorageTexture: wgpu.StorageTextureBindingLayout{
					Access:        wgpu.StorageTextureAccessWriteOnly,
					Format:        wgpu.TextureFormatRGBA8Unorm,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
			{
				Binding:    fieldBindingGridCells,
				Visibility: wgpu.ShaderStageCompute,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeReadOnlyStorage,
					MinBindingSize: gridCellSize,
				},
			},
			{
				Binding:    fieldBindingGridIndices,
				Visibility: wgpu.ShaderStageCompute,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeReadOnlyStorage,
					MinBindingSize: gridIndexSize,
				},
			},
		},
	}
}

// normalsLayoutDescriptor builds the bind group layout for the normals pass.
func normalsLayoutDescriptor() wgpu.BindGroupLayoutDescriptor {
	return wgpu.BindGroupLayoutDescriptor{
		Label: "Metaball Normals Layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    normalsBindingFieldTex,
				Visibility: wgpu.ShaderStageCompute,
				StorageTexture: wgpu.StorageTextureBindingLayout{
					Access:        wgpu.StorageTextureAccessReadOnly,
					Format:        wgpu.TextureFormatRGBA16Float,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
			{
				Binding:    normalsBindingParams,
				Visibility: wgpu.ShaderStageCompute,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeUniform,
					MinBindingSize: paramsUniformSize,
				},
			},
			{
				Binding:    normalsBindingNormalsTex,
				Visibility: wgpu.ShaderStageCompute,
				StorageTexture: wgpu.StorageTextureBindingLayout{
					Access:        wgpu.StorageTextureAccessWriteOnly,
					Format:        wgpu.TextureFormatRGBA16Float,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
		},
	}
}
