// Package common contains plain data types and math helpers shared across the engine.
// They are not interface-wrapped structs, just plain structs that express commonly used data.
package common

import "github.com/cogentcore/webgpu/wgpu"

// Viewport describes the rasterizer viewport rectangle and depth range in pixels.
type Viewport struct {
	X, Y          float32
	Width, Height float32
	// MinDepth and MaxDepth bound the depth range written by the rasterizer, each in [0, 1].
	MinDepth, MaxDepth float32
}

// FullViewport returns a viewport covering a whole width x height target with depth range [0, 1].
//
// Parameters:
//   - width: target width in pixels
//   - height: target height in pixels
//
// Returns:
//   - Viewport: the full-target viewport
func FullViewport(width, height int) Viewport {
	return Viewport{Width: float32(width), Height: float32(height), MinDepth: 0, MaxDepth: 1}
}

// IsZero reports whether the viewport has no area.
func (v Viewport) IsZero() bool {
	return v.Width <= 0 || v.Height <= 0
}

// SamplerStagingData holds the configuration for a sampler binding pending GPU creation.
// Zero-valued fields fall back to the renderer's defaults.
type SamplerStagingData struct {
	// AddressModeU, AddressModeV, AddressModeW specify how coordinates outside [0, 1] are resolved.
	AddressModeU, AddressModeV, AddressModeW wgpu.AddressMode
	// MagFilter and MinFilter specify the filtering mode for magnification and minification.
	MagFilter, MinFilter wgpu.FilterMode
	// MipmapFilter specifies the filtering mode for mipmap level selection.
	MipmapFilter wgpu.MipmapFilterMode
	// LodMinClamp and LodMaxClamp bound the sampled level of detail.
	LodMinClamp, LodMaxClamp float32
	// Compare turns the sampler into a comparison sampler when set.
	Compare wgpu.CompareFunction
	// MaxAnisotropy is the maximum anisotropic filtering level.
	MaxAnisotropy uint16
}

// ComparisonSamplerStagingData returns the sampler configuration used to read shadow maps:
// clamped addressing, linear filtering and a less-than depth comparison.
//
// Returns:
//   - SamplerStagingData: the comparison sampler configuration
func ComparisonSamplerStagingData() SamplerStagingData {
	return SamplerStagingData{
		AddressModeU: wgpu.AddressModeClampToEdge,
		AddressModeV: wgpu.AddressModeClampToEdge,
		AddressModeW: wgpu.AddressModeClampToEdge,
		MagFilter:    wgpu.FilterModeLinear,
		MinFilter:    wgpu.FilterModeLinear,
		MipmapFilter: wgpu.MipmapFilterModeNearest,
		Compare:      wgpu.CompareFunctionLess,
	}
}
