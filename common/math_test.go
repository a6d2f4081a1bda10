package common

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eps = 1e-5

func assertMatrixInDelta(t *testing.T, want, got []float32) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDeltaf(t, want[i], got[i], eps, "element %d", i)
	}
}

func TestMul4Identity(t *testing.T) {
	var m [16]float32
	BuildModelMatrix(m[:], [3]float32{1, 2, 3}, [3]float32{0.3, 0.2, 0.1}, [3]float32{2, 2, 2})
	id := Identity4()

	var out [16]float32
	Mul4(out[:], id[:], m[:])
	assertMatrixInDelta(t, m[:], out[:])

	Mul4(out[:], m[:], id[:])
	assertMatrixInDelta(t, m[:], out[:])
}

func TestMul4Aliasing(t *testing.T) {
	var a, b [16]float32
	Translation(a[:], 1, 0, 0)
	Translation(b[:], 0, 2, 0)
	Mul4(a[:], a[:], b[:])

	var want [16]float32
	Translation(want[:], 1, 2, 0)
	assertMatrixInDelta(t, want[:], a[:])
}

func TestMulChainOrder(t *testing.T) {
	var tr, sc [16]float32
	Translation(tr[:], 10, 0, 0)
	Scaling(sc[:], 2, 2, 2)

	// T * S scales first, then translates.
	m := MulChain(tr, sc)
	p := TransformPoint4(m[:], [4]float32{1, 1, 1, 1})
	assert.InDelta(t, 12, p[0], eps)
	assert.InDelta(t, 2, p[1], eps)
	assert.InDelta(t, 2, p[2], eps)
	assert.InDelta(t, 1, p[3], eps)

	assert.Equal(t, Identity4(), MulChain())
}

func TestPerspectiveDepthRange(t *testing.T) {
	var p [16]float32
	Perspective(p[:], math32.Pi/3, 1.5, 0.5, 50)

	tests := []struct {
		name  string
		viewZ float32
		want  float32
	}{
		{"near plane", -0.5, 0},
		{"far plane", -50, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := TransformPoint4(p[:], [4]float32{0, 0, tt.viewZ, 1})
			assert.InDelta(t, tt.want, c[2]/c[3], eps)
			assert.InDelta(t, -tt.viewZ, c[3], eps)
		})
	}
}

func TestOrthographicMapsBox(t *testing.T) {
	var o [16]float32
	Orthographic(o[:], -4, 4, -2, 2, 1, 11)

	c := TransformPoint4(o[:], [4]float32{4, 2, -1, 1})
	assert.InDelta(t, 1, c[0], eps)
	assert.InDelta(t, 1, c[1], eps)
	assert.InDelta(t, 0, c[2], eps)
	assert.InDelta(t, 1, c[3], eps)

	c = TransformPoint4(o[:], [4]float32{-4, -2, -11, 1})
	assert.InDelta(t, -1, c[0], eps)
	assert.InDelta(t, -1, c[1], eps)
	assert.InDelta(t, 1, c[2], eps)
	assert.InDelta(t, 0, o[11], eps)
}

func TestLookAt(t *testing.T) {
	var v [16]float32
	eye := [3]float32{3, 4, 5}
	LookAt(v[:], eye, [3]float32{3, 4, 0}, [3]float32{0, 1, 0})

	origin := TransformPoint4(v[:], [4]float32{eye[0], eye[1], eye[2], 1})
	assert.InDelta(t, 0, origin[0], eps)
	assert.InDelta(t, 0, origin[1], eps)
	assert.InDelta(t, 0, origin[2], eps)

	// The target sits straight down the view-space -Z axis.
	target := TransformPoint4(v[:], [4]float32{3, 4, 0, 1})
	assert.InDelta(t, 0, target[0], eps)
	assert.InDelta(t, 0, target[1], eps)
	assert.InDelta(t, -5, target[2], eps)
}

func TestInvert4(t *testing.T) {
	var m, inv, prod [16]float32
	BuildModelMatrix(m[:], [3]float32{-2, 7, 1}, [3]float32{0.4, -1.1, 0.25}, [3]float32{1, 3, 0.5})
	require.True(t, Invert4(inv[:], m[:]))

	Mul4(prod[:], m[:], inv[:])
	id := Identity4()
	assertMatrixInDelta(t, id[:], prod[:])

	var singular [16]float32
	before := inv
	assert.False(t, Invert4(inv[:], singular[:]))
	assert.Equal(t, before, inv)
}

func TestBuildModelMatrixNoRotation(t *testing.T) {
	var m [16]float32
	BuildModelMatrix(m[:], [3]float32{1, 2, 3}, [3]float32{}, [3]float32{2, 3, 4})

	p := TransformPoint4(m[:], [4]float32{1, 1, 1, 1})
	assert.InDelta(t, 3, p[0], eps)
	assert.InDelta(t, 5, p[1], eps)
	assert.InDelta(t, 7, p[2], eps)
}

func TestVectorHelpers(t *testing.T) {
	assert.Equal(t, [3]float32{0, 0, 1}, Cross3([3]float32{1, 0, 0}, [3]float32{0, 1, 0}))
	assert.InDelta(t, 32, Dot3([3]float32{1, 2, 3}, [3]float32{4, 5, 6}), eps)

	n := Normalize3([3]float32{0, 3, 4})
	assert.InDelta(t, 0.6, n[1], eps)
	assert.InDelta(t, 0.8, n[2], eps)
	assert.Equal(t, [3]float32{}, Normalize3([3]float32{}))
}

func TestSliceToBytes(t *testing.T) {
	assert.Nil(t, SliceToBytes([]uint32{}))
	b := SliceToBytes([]uint32{1, 2})
	assert.Len(t, b, 8)
}

func TestFullViewport(t *testing.T) {
	v := FullViewport(1024, 512)
	assert.Equal(t, Viewport{Width: 1024, Height: 512, MaxDepth: 1}, v)
	assert.False(t, v.IsZero())
	assert.True(t, Viewport{}.IsZero())
}
