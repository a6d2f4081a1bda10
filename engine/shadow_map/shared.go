package shadow_map

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-shadow/common"
	"github.com/Carmen-Shannon/oxy-shadow/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-shadow/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// EffectName is the key of the shadow map effect and the prefix of its pipeline key.
const EffectName = "ShadowMap"

// PassIndex is the effect pass used to render depth.
const PassIndex = 0

// PipelineKey is the renderer cache key of the depth-only pipeline for pass 0 of the effect.
var PipelineKey = fmt.Sprintf("%s/pass%d", EffectName, PassIndex)

//go:embed assets/shadow_map.wgsl
var effectSource string

// sharedResources is the state every shadow map uses: the effect, its single pass, and the
// POSITION-only vertex layout of that pass.
type sharedResources struct {
	device   Device
	effect   shader.Shader
	pass     pipeline.Pipeline
	layout   wgpu.VertexBufferLayout
	uniforms wgpu.BindGroupLayoutDescriptor
}

var (
	sharedMu sync.Mutex
	shared   *sharedResources
)

// Init creates the resources shared by all shadow maps: it compiles the ShadowMap effect, reads the
// POSITION float3 vertex layout of pass 0 and registers the depth-only pipeline on device.
// Calling Init again while initialized is a no-op.
//
// Parameters:
//   - device: the device the pipeline is registered on
//   - opts: InitOption values configuring the pipeline
//
// Returns:
//   - error: an error if the effect fails to compile or the pipeline cannot be created
func Init(device Device, opts ...InitOption) error {
	sharedMu.Lock()
	defer sharedMu.Unlock()

	if shared != nil {
		return nil
	}

	cfg := defaultInitConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	effect, err := shader.NewShaderFromSource(EffectName, shader.ShaderTypeVertex, effectSource)
	if err != nil {
		return fmt.Errorf("shadow_map: compile effect: %w", err)
	}
	layouts := effect.VertexLayouts()
	if len(layouts) != 1 || len(layouts[0].Attributes) != 1 || layouts[0].Attributes[0].Format != wgpu.VertexFormatFloat32x3 {
		return fmt.Errorf("shadow_map: effect must take a single POSITION float3 input")
	}

	pass := pipeline.NewPipeline(PipelineKey, pipeline.PipelineTypeDepth,
		pipeline.WithVertexShader(effect),
		pipeline.WithDepthBias(cfg.depthBias, cfg.slopeScale),
		pipeline.WithCullMode(cfg.cullMode),
		pipeline.WithVertexStride(cfg.vertexStride),
	)
	if err := device.RegisterPipelines(pass); err != nil {
		return fmt.Errorf("shadow_map: register pass %d: %w", PassIndex, err)
	}

	shared = &sharedResources{
		device:   device,
		effect:   effect,
		pass:     pass,
		layout:   pass.VertexLayouts()[0],
		uniforms: effect.BindGroupLayoutDescriptor(0),
	}
	common.Logger().Info("shadow map resources created", "pipeline", PipelineKey, "stride", shared.layout.ArrayStride)
	return nil
}

// Release frees the shared resources created by Init. Shadow maps created earlier stop working until
// Init is called again. Calling Release when not initialized is a no-op.
func Release() {
	sharedMu.Lock()
	defer sharedMu.Unlock()

	if shared == nil {
		return
	}
	shared.device.ReleasePipeline(PipelineKey)
	shared = nil
	common.Logger().Info("shadow map resources released")
}

// Initialized reports whether Init has run without a matching Release.
func Initialized() bool {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	return shared != nil
}

// VertexLayout returns the vertex layout of the shadow pass. ok is false when not initialized.
func VertexLayout() (layout wgpu.VertexBufferLayout, ok bool) {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	if shared == nil {
		return wgpu.VertexBufferLayout{}, false
	}
	return shared.layout, true
}

func currentShared() *sharedResources {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	return shared
}
