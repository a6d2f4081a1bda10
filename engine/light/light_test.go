package light

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-shadow/common"
	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLight_Defaults(t *testing.T) {
	l := NewLight(LightTypeDirectional)

	assert.Equal(t, LightTypeDirectional, l.Type())
	assert.Equal(t, [3]float32{0, -1, 0}, l.Direction())
	assert.True(t, l.CastsShadows())
	near, far := l.ShadowRange()
	assert.Equal(t, DefaultShadowNear, near)
	assert.Equal(t, DefaultShadowFar, far)
	assert.Equal(t, DefaultShadowHalfExtent, l.ShadowHalfExtent())
}

func TestNewLight_Options(t *testing.T) {
	l := NewLight(LightTypeSpot,
		WithPosition(1, 2, 3),
		WithDirection(0, 0, -2),
		WithColor(0.5, 0.25, 1),
		WithIntensity(3),
		WithSpotCone(10, 20),
		WithShadowRange(1, 50),
		WithCastsShadows(false),
	)

	assert.Equal(t, [3]float32{1, 2, 3}, l.Position())
	assert.Equal(t, [3]float32{0, 0, -1}, l.Direction())
	assert.Equal(t, [3]float32{0.5, 0.25, 1}, l.Color())
	assert.Equal(t, float32(3), l.Intensity())
	assert.InDelta(t, math.Cos(10*math.Pi/180), l.InnerCone(), 1e-6)
	assert.InDelta(t, math.Cos(20*math.Pi/180), l.OuterCone(), 1e-6)
	assert.False(t, l.CastsShadows())
	near, far := l.ShadowRange()
	assert.Equal(t, float32(1), near)
	assert.Equal(t, float32(50), far)
}

func TestLightType_String(t *testing.T) {
	assert.Equal(t, "directional", LightTypeDirectional.String())
	assert.Equal(t, "spot", LightTypeSpot.String())
	assert.Equal(t, "unknown", LightType(9).String())
}

func TestShadowView_SpotLooksAlongDirection(t *testing.T) {
	l := NewLight(LightTypeSpot, WithPosition(0, 10, 0), WithDirection(0, 0, -1))
	view := l.ShadowView()

	// A point 5 units in front of the light sits on the view's -Z axis.
	p := common.TransformPoint4(view[:], [4]float32{0, 10, -5, 1})
	assert.InDelta(t, 0, p[0], 1e-5)
	assert.InDelta(t, 0, p[1], 1e-5)
	assert.InDelta(t, -5, p[2], 1e-5)
}

func TestShadowView_DirectionalCentersTarget(t *testing.T) {
	l := NewLight(LightTypeDirectional,
		WithDirection(0, -1, 0),
		WithTarget(2, 0, 3),
		WithShadowRange(0.5, 40),
	)
	view := l.ShadowView()

	p := common.TransformPoint4(view[:], [4]float32{2, 0, 3, 1})
	assert.InDelta(t, 0, p[0], 1e-5)
	assert.InDelta(t, 0, p[1], 1e-5)
	assert.InDelta(t, -20, p[2], 1e-4)
}

func TestShadowProjection_SpotIsPerspective(t *testing.T) {
	l := NewLight(LightTypeSpot, WithSpotCone(20, 30), WithShadowRange(1, 25))
	proj := l.ShadowProjection(1)

	assert.Equal(t, float32(-1), proj[11])
	assert.Equal(t, float32(0), proj[15])

	// The outer cone edge maps to the top of clip space.
	f := 1 / math32.Tan(30*math32.Pi/180)
	assert.InDelta(t, f, proj[5], 1e-4)

	near := common.TransformPoint4(proj[:], [4]float32{0, 0, -1, 1})
	far := common.TransformPoint4(proj[:], [4]float32{0, 0, -25, 1})
	assert.InDelta(t, 0, near[2]/near[3], 1e-5)
	assert.InDelta(t, 1, far[2]/far[3], 1e-5)
}

func TestShadowProjection_DirectionalIsOrthographic(t *testing.T) {
	l := NewLight(LightTypeDirectional, WithShadowHalfExtent(10), WithShadowRange(0, 20))
	proj := l.ShadowProjection(2)

	assert.Equal(t, float32(0), proj[11])
	assert.Equal(t, float32(1), proj[15])
	assert.InDelta(t, 1.0/20, proj[0], 1e-6)
	assert.InDelta(t, 1.0/10, proj[5], 1e-6)
	mid := common.TransformPoint4(proj[:], [4]float32{0, 0, -10, 1})
	assert.InDelta(t, 0.5, mid[2], 1e-6)
}

func TestShadowView_StraightDownUsesStableUp(t *testing.T) {
	l := NewLight(LightTypeSpot, WithPosition(0, 5, 0), WithDirection(0, -1, 0))
	view := l.ShadowView()
	for _, v := range view {
		assert.False(t, math32.IsNaN(v))
	}
}

func TestSetters(t *testing.T) {
	l := NewLight(LightTypeDirectional)
	l.SetPosition(1, 1, 1)
	l.SetDirection(3, 0, 0)
	l.SetTarget(4, 5, 6)
	l.SetColor(0.1, 0.2, 0.3)
	l.SetIntensity(2)
	l.SetSpotCone(0, 90)
	l.SetCastsShadows(false)
	l.SetShadowRange(2, 4)
	l.SetShadowHalfExtent(7)

	assert.Equal(t, [3]float32{1, 1, 1}, l.Position())
	assert.Equal(t, [3]float32{1, 0, 0}, l.Direction())
	assert.Equal(t, [3]float32{4, 5, 6}, l.Target())
	assert.Equal(t, [3]float32{0.1, 0.2, 0.3}, l.Color())
	assert.Equal(t, float32(2), l.Intensity())
	assert.InDelta(t, 1, l.InnerCone(), 1e-6)
	assert.InDelta(t, 0, l.OuterCone(), 1e-6)
	assert.False(t, l.CastsShadows())
	near, far := l.ShadowRange()
	assert.Equal(t, float32(2), near)
	assert.Equal(t, float32(4), far)
	assert.Equal(t, float32(7), l.ShadowHalfExtent())
}

func TestGPULight_Marshal(t *testing.T) {
	l := NewLight(LightTypeSpot, WithPosition(1, 2, 3), WithIntensity(4))
	tm := common.Identity4()
	g := ToGPULight(l, tm, [3]float32{0.1, 0.1, 0.1}, [2]int{1024, 512})

	require.Equal(t, 144, g.Size())
	buf := g.Marshal()
	require.Len(t, buf, 144)

	f32 := func(off int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:])) }
	assert.Equal(t, float32(1), f32(0))
	assert.Equal(t, float32(1), f32(60))
	assert.Equal(t, float32(1), f32(64))
	assert.Equal(t, float32(3), f32(72))
	assert.Equal(t, uint32(LightTypeSpot), binary.LittleEndian.Uint32(buf[76:]))
	assert.Equal(t, float32(4), f32(92))
	assert.Equal(t, float32(1.0/1024), f32(128))
	assert.Equal(t, float32(1.0/512), f32(132))
	assert.Equal(t, DefaultShadowBias, f32(136))
}

func TestToGPULight_NoShadows(t *testing.T) {
	l := NewLight(LightTypeDirectional, WithCastsShadows(false))
	g := ToGPULight(l, common.Identity4(), [3]float32{}, [2]int{512, 512})

	assert.Equal(t, [2]float32{}, g.ShadowTexel)
	assert.Zero(t, g.ShadowBias)
}

func TestGPUShadowUniform_Marshal(t *testing.T) {
	u := GPUShadowUniform{View: common.Identity4()}
	u.Projection[14] = 2.5

	require.Equal(t, 128, u.Size())
	buf := u.Marshal()
	require.Len(t, buf, 128)
	assert.Equal(t, float32(1), math.Float32frombits(binary.LittleEndian.Uint32(buf[0:])))
	assert.Equal(t, float32(2.5), math.Float32frombits(binary.LittleEndian.Uint32(buf[64+14*4:])))
}
