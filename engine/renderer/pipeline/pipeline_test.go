package pipeline

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-shadow/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const depthSource = `
//@oxy:include vertex_position
@vertex
fn vs_main(in: VertexInput) -> @builtin(position) vec4<f32> {
    return vec4<f32>(in.position, 1.0);
}
`

func TestNewPipeline_Defaults(t *testing.T) {
	p := NewPipeline("lit", PipelineTypeRender)

	assert.Equal(t, "lit", p.PipelineKey())
	assert.Equal(t, PipelineTypeRender, p.Type())
	assert.True(t, p.DepthTestEnabled())
	assert.True(t, p.DepthWriteEnabled())
	assert.Equal(t, wgpu.CompareFunctionLess, p.DepthCompare())
	assert.Equal(t, wgpu.CullModeNone, p.CullMode())
	assert.Equal(t, wgpu.FrontFaceCCW, p.FrontFace())
	assert.Equal(t, wgpu.PrimitiveTopologyTriangleList, p.Topology())
	assert.False(t, p.BlendEnabled())
	assert.NotNil(t, p.BlendState())
	assert.Nil(t, p.RenderPipeline())
	assert.Zero(t, p.VertexStride())
}

func TestNewPipeline_DepthOptions(t *testing.T) {
	vs, err := shader.NewShaderFromSource("depth_vs", shader.ShaderTypeVertex, depthSource)
	require.NoError(t, err)

	p := NewPipeline("ShadowMap", PipelineTypeDepth,
		WithVertexShader(vs),
		WithDepthBias(2, 1.5),
		WithCullMode(wgpu.CullModeFront),
		WithDepthCompare(wgpu.CompareFunctionLessEqual),
		WithVertexStride(24),
	)

	assert.Equal(t, "depth", p.Type().String())
	assert.Equal(t, int32(2), p.DepthBias())
	assert.Equal(t, float32(1.5), p.DepthBiasSlopeScale())
	assert.Equal(t, wgpu.CullModeFront, p.CullMode())
	assert.Equal(t, wgpu.CompareFunctionLessEqual, p.DepthCompare())
	assert.Same(t, vs, p.Shader(shader.ShaderTypeVertex))
	assert.Nil(t, p.Shader(shader.ShaderTypeFragment))

	layouts := p.VertexLayouts()
	require.Len(t, layouts, 1)
	assert.Equal(t, uint64(24), layouts[0].ArrayStride)
	require.Len(t, layouts[0].Attributes, 1)
	assert.Equal(t, wgpu.VertexFormatFloat32x3, layouts[0].Attributes[0].Format)

	// The shader's own reflection keeps the packed stride.
	assert.Equal(t, uint64(12), vs.VertexLayouts()[0].ArrayStride)
}

func TestVertexLayouts_NoShader(t *testing.T) {
	assert.Nil(t, NewPipeline("empty", PipelineTypeDepth).VertexLayouts())
}

func TestRelease_WithoutPipeline(t *testing.T) {
	p := NewPipeline("empty", PipelineTypeRender)
	assert.NotPanics(t, p.Release)
}

func TestPipelineType_String(t *testing.T) {
	assert.Equal(t, "render", PipelineTypeRender.String())
	assert.Equal(t, "unknown", PipelineType(7).String())
}
