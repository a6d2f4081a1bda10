package renderer

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-shadow/common"
	"github.com/Carmen-Shannon/oxy-shadow/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-shadow/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-shadow/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
)

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	pipelineCache map[string]pipeline.Pipeline

	backendType RendererBackendType
	backend     RendererBackend

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	pendingPresentMode   *PresentMode
	pendingMSAA          *MSAASampleCount
	clearColor           *wgpu.Color
}

// Renderer defines the interface for the rendering system.
//
// This is a high-level API that wraps a GPU backend behind a small set of calls: a pipeline cache,
// resource initialization through BindGroupProviders, a multisampled main pass, and single-sampled
// depth passes used to render shadow maps. Renderer satisfies the device interfaces of the
// depth_stencil and shadow_map packages.
type Renderer interface {
	// Pipeline retrieves the cached Pipeline associated with the given key.
	// If the Pipeline does not exist, this will return nil.
	//
	// Parameters:
	//   - key: the unique identifier for the Pipeline to retrieve
	//
	// Returns:
	//   - pipeline.Pipeline: the Pipeline associated with the key, or nil if not found
	Pipeline(key string) pipeline.Pipeline

	// RegisterPipelines creates the GPU pipeline objects for one or more pipelines and caches them by
	// PipelineKey. Render pipelines target the main pass, depth pipelines target depth passes.
	// Pipelines whose keys are already registered are skipped.
	//
	// Parameters:
	//   - pipelines: the Pipelines to register
	//
	// Returns:
	//   - error: an error if pipeline creation fails
	RegisterPipelines(pipelines ...pipeline.Pipeline) error

	// ReleasePipeline drops a cached pipeline and releases its GPU object. Unknown keys are ignored.
	//
	// Parameters:
	//   - key: the pipeline key
	ReleasePipeline(key string)

	// Resize configures the underlying backend for a new surface size and resets the viewport to
	// cover the whole surface.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	Resize(width, height int)

	// InitMeshBuffers creates GPU vertex and index buffers from raw byte data and stores them
	// on the given BindGroupProvider for later use in draw calls.
	//
	// Parameters:
	//   - provider: the BindGroupProvider to store the created buffers on
	//   - vertexData: the raw vertex data bytes to upload to the GPU
	//   - indexData: the raw index data bytes to upload to the GPU
	//   - indexCount: the number of indices, used for draw calls
	//
	// Returns:
	//   - error: an error if buffer creation fails
	InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount int) error

	// InitBindGroup creates GPU buffers and a bind group from a layout descriptor and stores them
	// on the given BindGroupProvider. Texture views and samplers must already be set on the provider.
	// Buffer usage and size can be overridden per binding.
	//
	// Parameters:
	//   - provider: the BindGroupProvider to store the created bind group on
	//   - descriptor: the layout descriptor defining the bind group entries
	//   - bufferUsageOverrides: additional buffer usage flags keyed by binding index (nil safe)
	//   - bufferSizeOverrides: buffer sizes to use instead of MinBindingSize, keyed by binding index (nil safe)
	//
	// Returns:
	//   - error: an error if bind group creation fails
	InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferUsageOverrides map[int]wgpu.BufferUsage, bufferSizeOverrides map[int]uint64) error

	// InitSampler creates a GPU sampler from staging data and stores it on the given BindGroupProvider
	// at the specified binding index. Use common.ComparisonSamplerStagingData for shadow lookups.
	//
	// Parameters:
	//   - provider: the BindGroupProvider to store the created sampler on
	//   - bindingKey: the binding index for this sampler
	//   - samplerStagingData: the sampler configuration
	//
	// Returns:
	//   - error: an error if sampler creation fails
	InitSampler(provider bind_group_provider.BindGroupProvider, bindingKey int, samplerStagingData common.SamplerStagingData) error

	// WriteBuffers writes all staged buffer writes to the GPU queue.
	// Each BufferWrite targets a specific buffer on a BindGroupProvider at a given binding and offset.
	//
	// Parameters:
	//   - writes: a slice of BufferWrite structs describing the data to write
	WriteBuffers(writes []bind_group_provider.BufferWrite)

	// CreateDepthTexture creates a single-sampled depth texture usable both as a depth attachment
	// and as a sampled texture.
	//
	// Parameters:
	//   - label: debug label for the texture
	//   - width, height: texture size in texels
	//   - format: the depth format (Depth32Float or Depth24Plus)
	//
	// Returns:
	//   - *wgpu.TextureView: the view over the whole texture
	//   - *wgpu.Texture: the texture, released by the caller
	//   - error: an error if creation fails
	CreateDepthTexture(label string, width, height int, format wgpu.TextureFormat) (*wgpu.TextureView, *wgpu.Texture, error)

	// ForgetDepthTexture drops what the renderer tracks for a view returned by CreateDepthTexture,
	// including any scheduled clear. Call it before releasing the view.
	//
	// Parameters:
	//   - view: the depth texture view
	ForgetDepthTexture(view *wgpu.TextureView)

	// Viewport returns the viewport applied to passes.
	//
	// Returns:
	//   - common.Viewport: the current viewport
	Viewport() common.Viewport

	// SetViewport replaces the current viewport. It is applied to the open pass when it fits that
	// pass's target and to every pass begun afterwards.
	//
	// Parameters:
	//   - v: the new viewport
	SetViewport(v common.Viewport)

	// UseDepthPipeline selects the cached depth pipeline, and with it the vertex layout, used by the
	// next depth pass and its draws.
	//
	// Parameters:
	//   - key: the key of a registered depth pipeline
	//
	// Returns:
	//   - error: an error if the key is unknown or not a depth pipeline
	UseDepthPipeline(key string) error

	// ClearDepth schedules a depth clear of the given view. The clear is performed as the load
	// operation of the next depth pass begun on that view.
	//
	// Parameters:
	//   - view: the depth view to clear
	//   - depth: the clear value, usually 1.0
	ClearDepth(view *wgpu.TextureView, depth float32)

	// BeginDepthPass begins a depth-only pass with no color targets rendering into view. The pass
	// uses the viewport and depth pipeline current at the time of the call.
	//
	// Parameters:
	//   - view: the depth attachment
	//
	// Returns:
	//   - error: an error if a depth pass is already open or the encoder cannot be created
	BeginDepthPass(view *wgpu.TextureView) error

	// DepthDrawCall encodes an indexed draw in the open depth pass with the selected depth pipeline.
	//
	// Parameters:
	//   - meshProvider: the BindGroupProvider holding vertex and index buffers
	//   - instanceCount: the number of instances to draw
	//   - firstInstance: the first instance index seen by the vertex shader
	//   - bindGroups: BindGroupProviders bound to groups 0..n-1
	//
	// Returns:
	//   - error: an error if no depth pass is open or no depth pipeline is selected
	DepthDrawCall(meshProvider bind_group_provider.BindGroupProvider, instanceCount, firstInstance uint32, bindGroups []bind_group_provider.BindGroupProvider) error

	// EndDepthPass ends the open depth pass, unbinding its depth target, and submits it.
	// Calling EndDepthPass without an open pass is a no-op.
	EndDepthPass()

	// BeginFrame acquires the swapchain texture and begins the main render pass.
	// Must be paired with EndFrame after all DrawCall invocations within a single frame.
	//
	// Returns:
	//   - error: an error if the swapchain texture could not be acquired
	BeginFrame() error

	// DrawCall encodes a single instanced draw command within the current main pass.
	//
	// Parameters:
	//   - pipelineKey: the unique identifier for the cached render Pipeline to use
	//   - meshProvider: the BindGroupProvider holding vertex and index buffers
	//   - instanceCount: the number of instances to draw
	//   - firstInstance: the first instance index seen by the vertex shader
	//   - bindGroups: BindGroupProviders bound to groups 0..n-1
	//
	// Returns:
	//   - error: an error if the pipeline is not found or no frame is open
	DrawCall(pipelineKey string, meshProvider bind_group_provider.BindGroupProvider, instanceCount, firstInstance uint32, bindGroups []bind_group_provider.BindGroupProvider) error

	// EndFrame ends the current main pass and submits the command buffer to the GPU.
	// Call Present afterwards to display the frame.
	EndFrame()

	// Present presents the surface to the display and releases the swapchain texture.
	Present()

	// SetPresentMode sets the surface present mode. A call to Resize is required afterwards.
	//
	// Parameters:
	//   - mode: the PresentMode to use
	SetPresentMode(mode PresentMode)
}

var _ Renderer = &renderer{}

// NewRenderer creates a new Renderer for the given window. It panics if no adapter or device can be
// obtained, since nothing can be drawn without one.
//
// Parameters:
//   - backendType: the type of rendering backend to use (e.g., WGPU)
//   - window: the window providing the surface descriptor and initial size
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: a new instance of Renderer configured with the specified backend and options
func NewRenderer(backendType RendererBackendType, window window.Window, options ...RendererBuilderOption) Renderer {
	r := &renderer{
		mu:            &sync.Mutex{},
		pipelineCache: make(map[string]pipeline.Pipeline),
		backendType:   backendType,
	}

	// Options first so config flags are known before the adapter is requested.
	for _, opt := range options {
		opt(r)
	}

	msaa := MSAA4x
	if r.pendingMSAA != nil {
		msaa = *r.pendingMSAA
	}

	switch backendType {
	case BackendTypeWGPU:
		fallthrough
	default:
		r.backend = newWGPURendererBackend(window.SurfaceDescriptor(), r.forceFallbackAdapter, msaa)
	}

	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}
	if r.clearColor != nil {
		r.backend.SetClearColor(*r.clearColor)
	}

	r.backend.ConfigureSurface(window.Width(), window.Height())
	common.Logger().Info("renderer created", "backend", "wgpu", "msaa", int(msaa), "width", window.Width(), "height", window.Height())
	return r
}

func (r *renderer) Resize(width, height int) {
	r.backend.ConfigureSurface(width, height)
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.backend.SetPresentMode(mode)
}

func (r *renderer) Pipeline(key string) pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelineCache[key]
}

func (r *renderer) RegisterPipelines(pipelines ...pipeline.Pipeline) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range pipelines {
		key := p.PipelineKey()
		if _, exists := r.pipelineCache[key]; exists {
			continue
		}
		var err error
		switch p.Type() {
		case pipeline.PipelineTypeDepth:
			err = r.backend.RegisterDepthPipeline(p)
		case pipeline.PipelineTypeRender:
			err = r.backend.RegisterRenderPipeline(p)
		default:
			err = fmt.Errorf("unsupported pipeline type %s", p.Type())
		}
		if err != nil {
			return fmt.Errorf("register pipeline %q: %w", key, err)
		}
		r.pipelineCache[key] = p
		common.Logger().Debug("pipeline registered", "key", key, "type", p.Type().String())
	}
	return nil
}

func (r *renderer) ReleasePipeline(key string) {
	r.mu.Lock()
	p, exists := r.pipelineCache[key]
	delete(r.pipelineCache, key)
	r.mu.Unlock()

	if exists {
		r.backend.ForgetDepthPipeline(p)
		p.Release()
	}
}

func (r *renderer) InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount int) error {
	return r.backend.InitMeshBuffers(provider, vertexData, indexData, indexCount)
}

func (r *renderer) InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferUsageOverrides map[int]wgpu.BufferUsage, bufferSizeOverrides map[int]uint64) error {
	return r.backend.InitBindGroup(provider, descriptor, bufferUsageOverrides, bufferSizeOverrides)
}

func (r *renderer) InitSampler(provider bind_group_provider.BindGroupProvider, bindingKey int, samplerStagingData common.SamplerStagingData) error {
	return r.backend.InitSampler(provider, bindingKey, samplerStagingData)
}

func (r *renderer) WriteBuffers(writes []bind_group_provider.BufferWrite) {
	r.backend.WriteBuffers(writes)
}

func (r *renderer) CreateDepthTexture(label string, width, height int, format wgpu.TextureFormat) (*wgpu.TextureView, *wgpu.Texture, error) {
	return r.backend.CreateDepthTexture(label, width, height, format)
}

func (r *renderer) ForgetDepthTexture(view *wgpu.TextureView) {
	r.backend.ForgetDepthTexture(view)
}

func (r *renderer) Viewport() common.Viewport {
	return r.backend.Viewport()
}

func (r *renderer) SetViewport(v common.Viewport) {
	r.backend.SetViewport(v)
}

func (r *renderer) UseDepthPipeline(key string) error {
	r.mu.Lock()
	p, exists := r.pipelineCache[key]
	r.mu.Unlock()

	if !exists {
		return fmt.Errorf("depth pipeline %q not found in cache", key)
	}
	if p.Type() != pipeline.PipelineTypeDepth {
		return fmt.Errorf("pipeline %q is a %s pipeline, not a depth pipeline", key, p.Type())
	}
	r.backend.UseDepthPipeline(p)
	return nil
}

func (r *renderer) ClearDepth(view *wgpu.TextureView, depth float32) {
	r.backend.ClearDepth(view, depth)
}

func (r *renderer) BeginDepthPass(view *wgpu.TextureView) error {
	return r.backend.BeginDepthPass(view)
}

func (r *renderer) DepthDrawCall(meshProvider bind_group_provider.BindGroupProvider, instanceCount, firstInstance uint32, bindGroups []bind_group_provider.BindGroupProvider) error {
	return r.backend.DepthDrawCall(meshProvider, instanceCount, firstInstance, bindGroups)
}

func (r *renderer) EndDepthPass() {
	r.backend.EndDepthPass()
}

func (r *renderer) BeginFrame() error {
	return r.backend.BeginFrame()
}

func (r *renderer) DrawCall(pipelineKey string, meshProvider bind_group_provider.BindGroupProvider, instanceCount, firstInstance uint32, bindGroups []bind_group_provider.BindGroupProvider) error {
	r.mu.Lock()
	p, exists := r.pipelineCache[pipelineKey]
	r.mu.Unlock()

	if !exists {
		return fmt.Errorf("render pipeline %q not found in cache", pipelineKey)
	}

	return r.backend.DrawCall(p, meshProvider, instanceCount, firstInstance, bindGroups)
}

func (r *renderer) EndFrame() {
	r.backend.EndFrame()
}

func (r *renderer) Present() {
	r.backend.Present()
}
