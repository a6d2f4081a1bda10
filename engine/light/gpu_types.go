package light

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-shadow/common"
)

// GPULightSource is the canonical WGSL definition of the Light struct.
// Matches GPULight layout exactly (144 bytes, std430 aligned).
//
//go:embed assets/light.wgsl
var GPULightSource string

// GPULight is the GPU-aligned representation of the shadowed light read by the lit pass.
// Matches the WGSL Light struct layout exactly (see GPULightSource).
// Size: 144 bytes (std430 / WGSL aligned).
type GPULight struct {
	TextureMatrix [16]float32 // offset   0: world to shadow texture space (mat4x4<f32>)
	Position      [3]float32  // offset  64: world-space position (spot)
	LightType     uint32      // offset  76: 0 = directional, 1 = spot
	Color         [3]float32  // offset  80: RGB color
	Intensity     float32     // offset  92: scalar multiplier
	Direction     [3]float32  // offset  96: normalized direction
	InnerCone     float32     // offset 108: cos(inner half-angle) for spot
	Ambient       [3]float32  // offset 112: ambient RGB added to every fragment
	OuterCone     float32     // offset 124: cos(outer half-angle) for spot
	ShadowTexel   [2]float32  // offset 128: 1 / shadow map size in texels
	ShadowBias    float32     // offset 136: subtracted from the reference depth
	_pad          float32     // offset 140: padding to 144 bytes
}

// Size returns the size of the GPULight struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (144)
func (g *GPULight) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPULight struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 144-byte buffer ready for GPU upload
func (g *GPULight) Marshal() []byte {
	buf := make([]byte, 144)
	for i := range 16 {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(g.TextureMatrix[i]))
	}
	putVec3(buf[64:], g.Position)
	binary.LittleEndian.PutUint32(buf[76:80], g.LightType)
	putVec3(buf[80:], g.Color)
	binary.LittleEndian.PutUint32(buf[92:96], math.Float32bits(g.Intensity))
	putVec3(buf[96:], g.Direction)
	binary.LittleEndian.PutUint32(buf[108:112], math.Float32bits(g.InnerCone))
	putVec3(buf[112:], g.Ambient)
	binary.LittleEndian.PutUint32(buf[124:128], math.Float32bits(g.OuterCone))
	binary.LittleEndian.PutUint32(buf[128:132], math.Float32bits(g.ShadowTexel[0]))
	binary.LittleEndian.PutUint32(buf[132:136], math.Float32bits(g.ShadowTexel[1]))
	binary.LittleEndian.PutUint32(buf[136:140], math.Float32bits(g.ShadowBias))
	binary.LittleEndian.PutUint32(buf[140:144], 0) // padding
	return buf
}

// GPUShadowUniformSource is the canonical WGSL definition of the ShadowUniform struct.
// Matches GPUShadowUniform layout exactly (128 bytes, std430 aligned).
//
//go:embed assets/shadow_uniform.wgsl
var GPUShadowUniformSource string

// GPUShadowUniform holds the view and linearized projection matrices the depth-only
// shadow pass transforms vertices with.
// Matches the WGSL ShadowUniform struct layout exactly (see GPUShadowUniformSource).
// Size: 128 bytes (2 x mat4x4<f32>).
type GPUShadowUniform struct {
	View       [16]float32 // offset  0: light view matrix
	Projection [16]float32 // offset 64: linearized light projection matrix
}

// Size returns the size of the GPUShadowUniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (128)
func (u *GPUShadowUniform) Size() int {
	return int(unsafe.Sizeof(*u))
}

// Marshal serializes the GPUShadowUniform struct into a byte buffer suitable for
// GPU uniform upload.
//
// Returns:
//   - []byte: 128-byte buffer ready for GPU upload
func (u *GPUShadowUniform) Marshal() []byte {
	buf := make([]byte, 128)
	n := common.PutFloat32s(buf, u.View[:]...)
	common.PutFloat32s(buf[n:], u.Projection[:]...)
	return buf
}

// ToGPULight converts a Light into the GPU-aligned GPULight struct.
//
// Parameters:
//   - l: the Light to convert
//   - textureMatrix: the light's view-projection-texture matrix for shadow lookups
//   - ambient: the scene ambient color
//   - shadowSize: the shadow map width and height in texels
//
// Returns:
//   - GPULight: the GPU-aligned representation
func ToGPULight(l Light, textureMatrix [16]float32, ambient [3]float32, shadowSize [2]int) GPULight {
	g := GPULight{
		TextureMatrix: textureMatrix,
		Position:      l.Position(),
		LightType:     uint32(l.Type()),
		Color:         l.Color(),
		Intensity:     l.Intensity(),
		Direction:     l.Direction(),
		InnerCone:     l.InnerCone(),
		Ambient:       ambient,
		OuterCone:     l.OuterCone(),
		ShadowBias:    DefaultShadowBias,
	}
	if shadowSize[0] > 0 && shadowSize[1] > 0 {
		g.ShadowTexel = [2]float32{1 / float32(shadowSize[0]), 1 / float32(shadowSize[1])}
	}
	if !l.CastsShadows() {
		g.ShadowBias = 0
		g.ShadowTexel = [2]float32{}
	}
	return g
}

func putVec3(buf []byte, v [3]float32) {
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(v[0]))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(v[1]))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(v[2]))
}
