package common

import (
	"encoding/binary"
	"math"
	"slices"
)

// Coalesce returns the first argument that differs from T's zero value, so staged settings
// can fall back to engine defaults: Coalesce(staged.MagFilter, wgpu.FilterModeLinear).
// With no non-zero argument it returns the zero value.
func Coalesce[T comparable](values ...T) T {
	var zero T
	if i := slices.IndexFunc(values, func(v T) bool { return v != zero }); i >= 0 {
		return values[i]
	}
	return zero
}

// PutFloat32s packs values into dst as consecutive little-endian f32 words, the layout WGSL
// uses for f32, vecN<f32> and column-major matNxN<f32> members.
//
// Parameters:
//   - dst: destination buffer, at least 4*len(values) bytes
//   - values: the floats to write
//
// Returns:
//   - int: the number of bytes written
func PutFloat32s(dst []byte, values ...float32) int {
	for i, v := range values {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(v))
	}
	return len(values) * 4
}
