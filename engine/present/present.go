package present

import (
	"errors"

	"github.com/Carmen-Shannon/metaball-go/common"
	"github.com/Carmen-Shannon/metaball-go/engine/renderer"
	"github.com/Carmen-Shannon/metaball-go/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/metaball-go/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/metaball-go/engine/renderer/shader"
	"github.com/Carmen-Shannon/metaball-go/shaders"
	"github.com/cogentcore/webgpu/wgpu"
)

const presentPipelineKey = "metaballs.present"

const (
	bindingAlbedoTex = 0
	bindingSampler   = 1
)

// ErrNoSource indicates Draw was called before a source texture view was supplied.
var ErrNoSource = errors.New("present: no source texture view")

// presenter is the implementation of the Presenter interface.
type presenter struct {
	renderer renderer.Renderer

	source   *wgpu.TextureView
	provider bind_group_provider.BindGroupProvider
	layout   wgpu.BindGroupLayoutDescriptor

	initialized bool
}

// Presenter draws a sampled texture to the surface through a fullscreen
// triangle. It owns the presentation render pipeline, its sampler, and the
// bind group pairing them with the source texture.
type Presenter interface {
	// Init registers the presentation render pipeline and creates the sampler.
	// Must be called once before Draw, after the renderer's surface is configured.
	//
	// Returns:
	//   - error: an error if pipeline or sampler creation fails
	Init() error

	// SetSource replaces the texture view sampled by the presentation pass.
	// The bind group is rebuilt on the next Draw.
	//
	// Parameters:
	//   - view: the texture view to draw
	SetSource(view *wgpu.TextureView)

	// Draw encodes the fullscreen triangle into the current render pass.
	// Must be called between the renderer's BeginFrame and EndFrame.
	//
	// Returns:
	//   - error: an error if the bind group could not be built or no source is set
	Draw() error
}

var _ Presenter = &presenter{}

// NewPresenter creates a Presenter. Panics if the renderer is nil.
//
// Parameters:
//   - r: the Renderer providing pipeline registration and draw encoding
//   - source: the texture view to draw; may be nil and supplied later via SetSource
//
// Returns:
//   - Presenter: a new Presenter
func NewPresenter(r renderer.Renderer, source *wgpu.TextureView) Presenter {
	if r == nil {
		panic("present: renderer must not be nil")
	}
	return &presenter{
		renderer: r,
		source:   source,
		layout:   presentLayoutDescriptor(),
	}
}

func (p *presenter) Init() error {
	vertexShader := shader.NewShader(presentPipelineKey+".vs", shader.ShaderTypeVertex, shaders.PresentWGSL,
		shader.WithEntryPoint("vs_main"),
	)
	fragmentShader := shader.NewShader(presentPipelineKey+".fs", shader.ShaderTypeFragment, shaders.PresentWGSL,
		shader.WithEntryPoint("fs_main"),
		shader.WithBindGroupLayout(0, p.layout),
	)

	presentPipeline := pipeline.NewPipeline(presentPipelineKey, pipeline.PipelineTypeRender,
		pipeline.WithVertexShader(vertexShader),
		pipeline.WithFragmentShader(fragmentShader),
	)
	if err := p.renderer.RegisterPipelines(presentPipeline); err != nil {
		return err
	}

	p.initialized = true
	return nil
}

func (p *presenter) SetSource(view *wgpu.TextureView) {
	p.source = view
	p.provider = nil
}

func (p *presenter) Draw() error {
	if !p.initialized {
		return errors.New("present: Init must be called before Draw")
	}
	if p.source == nil {
		return ErrNoSource
	}

	if p.provider == nil {
		if err := p.buildBindGroup(); err != nil {
			return err
		}
	}

	return p.renderer.Draw(presentPipelineKey, 3, []bind_group_provider.BindGroupProvider{p.provider})
}

// buildBindGroup pairs the current source view with a fresh sampler bind group.
func (p *presenter) buildBindGroup() error {
	provider := bind_group_provider.NewBindGroupProvider("Present Pass")
	provider.SetTextureView(bindingAlbedoTex, p.source)

	if err := p.renderer.InitSampler(provider, bindingSampler, common.SamplerStagingData{}); err != nil {
		return err
	}
	if err := p.renderer.InitBindGroup(provider, p.layout, nil, nil); err != nil {
		return err
	}

	p.provider = provider
	return nil
}

func presentLayoutDescriptor() wgpu.BindGroupLayoutDescriptor {
	return wgpu.BindGroupLayoutDescriptor{
		Label: "Present Layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    bindingAlbedoTex,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
			{
				Binding:    bindingSampler,
				Visibility: wgpu.ShaderStageFragment,
				Sampler: wgpu.SamplerBindingLayout{
					Type: wgpu.SamplerBindingTypeFiltering,
				},
			},
		},
	}
}
