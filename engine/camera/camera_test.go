package camera

import (
	"encoding/binary"
	"math"
	"testing"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-shadow/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCamera_Defaults(t *testing.T) {
	c := NewCamera()

	assert.Equal(t, [3]float32{0, 5, 10}, c.Position())
	assert.Equal(t, [3]float32{0, 0, 0}, c.Target())
	assert.Equal(t, [3]float32{0, 1, 0}, c.Up())
	assert.InDelta(t, math.Pi/4, c.Fov(), 1e-6)
	assert.Equal(t, float32(0.1), c.Near())
	assert.Equal(t, float32(100), c.Far())
	require.NotNil(t, c.BindGroupProvider())
	assert.Contains(t, c.BindGroupProvider().Label(), "camera_")
}

func TestCamera_ViewMatrixMapsTargetOntoAxis(t *testing.T) {
	c := NewCamera(WithPosition(0, 0, 10), WithTarget(0, 0, 0))
	view := c.ViewMatrix()

	p := common.TransformPoint4(view[:], [4]float32{0, 0, 0, 1})
	assert.InDelta(t, 0, p[0], 1e-5)
	assert.InDelta(t, 0, p[1], 1e-5)
	assert.InDelta(t, -10, p[2], 1e-5)
}

func TestCamera_ViewProjectionIsProduct(t *testing.T) {
	c := NewCamera(WithAspect(16.0/9.0), WithClipRange(1, 50))

	view := c.ViewMatrix()
	proj := c.ProjectionMatrix()
	want := common.MulChain(proj, view)
	got := c.ViewProjectionMatrix()
	for i := range got {
		assert.InDelta(t, want[i], got[i], 1e-5, "element %d", i)
	}
}

func TestCamera_SettersRecomputeMatrices(t *testing.T) {
	c := NewCamera()
	before := c.ProjectionMatrix()

	c.SetAspect(2)
	after := c.ProjectionMatrix()
	assert.InDelta(t, before[0]/2, after[0], 1e-6)

	c.SetPosition(3, 4, 5)
	assert.Equal(t, [3]float32{3, 4, 5}, c.GPUUniform().CameraPosition)
}

func TestCamera_OrbitKeepsRadius(t *testing.T) {
	c := NewCamera(WithPosition(0, 0, 10))

	c.Orbit(math.Pi/2, 0)
	pos := c.Position()
	assert.InDelta(t, 10, pos[0], 1e-4)
	assert.InDelta(t, 0, pos[2], 1e-4)

	c.Orbit(0, 10)
	pos = c.Position()
	r := math.Sqrt(float64(common.Dot3(pos, pos)))
	assert.InDelta(t, 10, r, 1e-4)
	assert.InDelta(t, 10*math.Sin(maxElevation), pos[1], 1e-3)
}

func TestGPUCameraUniform_Marshal(t *testing.T) {
	u := GPUCameraUniform{ViewProj: common.Identity4(), CameraPosition: [3]float32{1, 2, 3}}
	buf := u.Marshal()

	require.Len(t, buf, u.Size())
	assert.Equal(t, cameraUniformSize, int(unsafe.Sizeof(u)))
	for i, want := range common.Identity4() {
		assert.Equal(t, want, math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:])), "view_proj[%d]", i)
	}
	for i, want := range []float32{1, 2, 3} {
		assert.Equal(t, want, math.Float32frombits(binary.LittleEndian.Uint32(buf[64+i*4:])), "camera_position[%d]", i)
	}
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(buf[76:]))
}
