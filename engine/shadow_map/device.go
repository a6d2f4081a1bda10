package shadow_map

import (
	"github.com/Carmen-Shannon/oxy-shadow/common"
	"github.com/Carmen-Shannon/oxy-shadow/engine/depth_stencil"
	"github.com/Carmen-Shannon/oxy-shadow/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-shadow/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// Device is the part of the renderer a shadow pass drives. renderer.Renderer satisfies it.
type Device interface {
	depth_stencil.TextureFactory
	depth_stencil.ViewportSetter

	// RegisterPipelines creates GPU pipelines and caches them by key.
	RegisterPipelines(pipelines ...pipeline.Pipeline) error

	// ReleasePipeline drops and releases a cached pipeline.
	ReleasePipeline(key string)

	// InitBindGroup creates the buffers and bind group described by descriptor on provider.
	InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferUsageOverrides map[int]wgpu.BufferUsage, bufferSizeOverrides map[int]uint64) error

	// WriteBuffers queues buffer uploads.
	WriteBuffers(writes []bind_group_provider.BufferWrite)

	// Viewport returns the current viewport.
	Viewport() common.Viewport

	// UseDepthPipeline selects the depth pipeline and its vertex layout.
	UseDepthPipeline(key string) error

	// ClearDepth schedules a depth clear of view for its next depth pass.
	ClearDepth(view *wgpu.TextureView, depth float32)

	// BeginDepthPass binds view as the only render target.
	BeginDepthPass(view *wgpu.TextureView) error

	// DepthDrawCall draws a mesh in the open depth pass.
	DepthDrawCall(meshProvider bind_group_provider.BindGroupProvider, instanceCount, firstInstance uint32, bindGroups []bind_group_provider.BindGroupProvider) error

	// EndDepthPass unbinds the depth target and submits the pass.
	EndDepthPass()
}
