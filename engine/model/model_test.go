package model

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-shadow/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGPUVertex_Marshal(t *testing.T) {
	v := GPUVertex{Position: [3]float32{1, 2, 3}, Normal: [3]float32{0, 1, 0}}
	require.Equal(t, 24, v.Size())

	buf := v.Marshal()
	require.Len(t, buf, 24)
	assert.Equal(t, float32(3), math.Float32frombits(binary.LittleEndian.Uint32(buf[8:])))
	assert.Equal(t, float32(1), math.Float32frombits(binary.LittleEndian.Uint32(buf[16:])))
}

func TestGPUModelData_Marshal(t *testing.T) {
	d := GPUModelData{Model: common.Identity4()}
	require.Equal(t, 64, d.Size())
	buf := d.Marshal()
	assert.Equal(t, float32(1), math.Float32frombits(binary.LittleEndian.Uint32(buf[60:])))
}

func TestNewCube(t *testing.T) {
	c := NewCube("cube", 2)

	assert.Equal(t, "cube", c.Name())
	assert.Len(t, c.Vertices(), 24)
	assert.Equal(t, 36, c.IndexCount())
	assert.Len(t, c.VertexData(), 24*24)
	assert.Len(t, c.IndexData(), 36*4)
	assert.InDelta(t, math.Sqrt(3), c.BoundingRadius(), 1e-6)
	require.NotNil(t, c.MeshProvider())
	assert.Equal(t, "cube_mesh", c.MeshProvider().Label())

	for _, v := range c.Vertices() {
		for i := range 3 {
			assert.InDelta(t, 1, math.Abs(float64(v.Position[i])), 1e-6)
		}
	}
}

func TestCubeWindingFacesOutward(t *testing.T) {
	c := NewCube("cube", 1)
	verts := c.Vertices()
	idx := make([]uint32, c.IndexCount())
	for i := range idx {
		idx[i] = binary.LittleEndian.Uint32(c.IndexData()[i*4:])
	}

	for tri := 0; tri < len(idx); tri += 3 {
		a, b, cc := verts[idx[tri]], verts[idx[tri+1]], verts[idx[tri+2]]
		e1 := [3]float32{b.Position[0] - a.Position[0], b.Position[1] - a.Position[1], b.Position[2] - a.Position[2]}
		e2 := [3]float32{cc.Position[0] - a.Position[0], cc.Position[1] - a.Position[1], cc.Position[2] - a.Position[2]}
		n := common.Cross3(e1, e2)
		assert.Greater(t, common.Dot3(n, a.Normal), float32(0), "triangle %d", tri/3)
	}
}

func TestNewPlane(t *testing.T) {
	p := NewPlane("ground", 10)

	require.Len(t, p.Vertices(), 4)
	assert.Equal(t, 6, p.IndexCount())
	for _, v := range p.Vertices() {
		assert.Equal(t, float32(0), v.Position[1])
		assert.Equal(t, [3]float32{0, 1, 0}, v.Normal)
	}
	assert.InDelta(t, 5*math.Sqrt2, p.BoundingRadius(), 1e-5)
}

func TestNewModel_Options(t *testing.T) {
	m := NewModel(WithName("tri"),
		WithMesh([]GPUVertex{{}, {Position: [3]float32{3, 4, 0}}, {}}, []uint32{0, 1, 2}),
		WithBoundingRadius(9),
	)

	assert.Equal(t, 3, m.IndexCount())
	assert.Equal(t, float32(9), m.BoundingRadius())
}

func TestTransform_WorldMatrix(t *testing.T) {
	tr := NewTransform(1, 2, 3)
	m := tr.WorldMatrix()
	p := common.TransformPoint4(m[:], [4]float32{0, 0, 0, 1})
	assert.Equal(t, [4]float32{1, 2, 3, 1}, p)

	tr.Scale = [3]float32{2, 2, 2}
	m = tr.WorldMatrix()
	p = common.TransformPoint4(m[:], [4]float32{1, 0, 0, 1})
	assert.InDelta(t, 3, p[0], 1e-6)
}
