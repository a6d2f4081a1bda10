package shadow_map

import "github.com/cogentcore/webgpu/wgpu"

// InitOption configures the shared depth-only pipeline created by Init.
type InitOption func(*initConfig)

type initConfig struct {
	depthBias    int32
	slopeScale   float32
	cullMode     wgpu.CullMode
	vertexStride uint64
}

// Closed casters render only their back faces, which keeps lit front faces from shadowing themselves.
func defaultInitConfig() initConfig {
	return initConfig{
		depthBias:  2,
		slopeScale: 1.5,
		cullMode:   wgpu.CullModeFront,
	}
}

// WithDepthBias sets the rasterizer depth bias of the shadow pass.
//
// Parameters:
//   - bias: constant depth bias
//   - slopeScale: slope-scaled depth bias
//
// Returns:
//   - InitOption: the option
func WithDepthBias(bias int32, slopeScale float32) InitOption {
	return func(c *initConfig) {
		c.depthBias = bias
		c.slopeScale = slopeScale
	}
}

// WithCullMode sets the face culling of the shadow pass. Use wgpu.CullModeNone for open geometry.
//
// Parameters:
//   - mode: the cull mode
//
// Returns:
//   - InitOption: the option
func WithCullMode(mode wgpu.CullMode) InitOption {
	return func(c *initConfig) {
		c.cullMode = mode
	}
}

// WithVertexStride overrides the array stride of the POSITION layout so vertex buffers with extra
// attributes after the position can be drawn directly. Zero keeps the tightly packed stride of 12.
//
// Parameters:
//   - stride: the vertex size in bytes
//
// Returns:
//   - InitOption: the option
func WithVertexStride(stride uint64) InitOption {
	return func(c *initConfig) {
		c.vertexStride = stride
	}
}
