package camera

import (
	_ "embed"

	"github.com/Carmen-Shannon/oxy-shadow/common"
)

// GPUCameraUniformSource declares the CameraUniform struct the lit vertex shader reads
// through the @camera annotation.
//
//go:embed assets/camera_uniform.wgsl
var GPUCameraUniformSource string

// cameraUniformSize is the byte size of CameraUniform: a mat4x4<f32> then a vec3<f32> padded
// out to the 16 byte struct alignment.
const cameraUniformSize = 80

// GPUCameraUniform is the eye's view-projection and position as uploaded for the lit pass.
// The shadow pass never reads it; it transforms with the light's ShadowUniform instead.
type GPUCameraUniform struct {
	ViewProj       [16]float32 // clip from world, column-major
	CameraPosition [3]float32  // world-space eye
	_pad           float32
}

// Size returns cameraUniformSize.
func (g *GPUCameraUniform) Size() int {
	return cameraUniformSize
}

// Marshal packs the uniform in CameraUniform layout. The trailing pad word stays zero.
//
// Returns:
//   - []byte: cameraUniformSize bytes
func (g *GPUCameraUniform) Marshal() []byte {
	buf := make([]byte, cameraUniformSize)
	n := common.PutFloat32s(buf, g.ViewProj[:]...)
	common.PutFloat32s(buf[n:], g.CameraPosition[:]...)
	return buf
}
