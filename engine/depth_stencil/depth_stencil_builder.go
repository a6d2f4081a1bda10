package depth_stencil

import "github.com/cogentcore/webgpu/wgpu"

// DepthStencilBuilderOption is a functional option applied to a depth-stencil target during NewDepthStencil.
type DepthStencilBuilderOption func(*depthStencil)

// WithLabel sets the debug label of the target and its texture.
//
// Parameters:
//   - label: the debug label
//
// Returns:
//   - DepthStencilBuilderOption: option function to apply
func WithLabel(label string) DepthStencilBuilderOption {
	return func(d *depthStencil) {
		d.label = label
	}
}

// WithFormat sets the depth texture format. Only depth formats without a stencil
// aspect are accepted; anything else keeps the Depth32Float default.
//
// Parameters:
//   - format: wgpu.TextureFormatDepth32Float or wgpu.TextureFormatDepth24Plus
//
// Returns:
//   - DepthStencilBuilderOption: option function to apply
func WithFormat(format wgpu.TextureFormat) DepthStencilBuilderOption {
	return func(d *depthStencil) {
		switch format {
		case wgpu.TextureFormatDepth32Float, wgpu.TextureFormatDepth24Plus:
			d.format = format
		}
	}
}

// WithDepthRange sets the viewport depth range. Values are clamped to [0, 1] and
// swapped when min > max.
//
// Parameters:
//   - minDepth: the near end of the range
//   - maxDepth: the far end of the range
//
// Returns:
//   - DepthStencilBuilderOption: option function to apply
func WithDepthRange(minDepth, maxDepth float32) DepthStencilBuilderOption {
	return func(d *depthStencil) {
		minDepth = min(max(minDepth, 0), 1)
		maxDepth = min(max(maxDepth, 0), 1)
		if minDepth > maxDepth {
			minDepth, maxDepth = maxDepth, minDepth
		}
		d.minDepth = minDepth
		d.maxDepth = maxDepth
	}
}
