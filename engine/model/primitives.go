package model

// quadFace describes one square face by its outward normal and two in-plane axes with
// u x v == normal, so the quad's triangles wind counter-clockwise seen from outside.
type quadFace struct {
	normal, u, v [3]float32
}

var cubeFaces = []quadFace{
	{normal: [3]float32{1, 0, 0}, u: [3]float32{0, 0, -1}, v: [3]float32{0, 1, 0}},
	{normal: [3]float32{-1, 0, 0}, u: [3]float32{0, 0, 1}, v: [3]float32{0, 1, 0}},
	{normal: [3]float32{0, 1, 0}, u: [3]float32{1, 0, 0}, v: [3]float32{0, 0, -1}},
	{normal: [3]float32{0, -1, 0}, u: [3]float32{1, 0, 0}, v: [3]float32{0, 0, 1}},
	{normal: [3]float32{0, 0, 1}, u: [3]float32{1, 0, 0}, v: [3]float32{0, 1, 0}},
	{normal: [3]float32{0, 0, -1}, u: [3]float32{-1, 0, 0}, v: [3]float32{0, 1, 0}},
}

// NewCube creates an axis-aligned cube centered on the origin with flat per-face normals.
//
// Parameters:
//   - name: the model name
//   - size: the edge length
//
// Returns:
//   - Model: a 24-vertex, 36-index cube
func NewCube(name string, size float32) Model {
	h := size / 2
	vertices := make([]GPUVertex, 0, 24)
	indices := make([]uint32, 0, 36)
	for _, f := range cubeFaces {
		vertices, indices = appendQuad(vertices, indices, f, h, h)
	}
	return NewModel(WithName(name), WithMesh(vertices, indices))
}

// NewPlane creates a square on the XZ plane centered on the origin, facing +Y.
//
// Parameters:
//   - name: the model name
//   - size: the edge length
//
// Returns:
//   - Model: a 4-vertex, 6-index plane
func NewPlane(name string, size float32) Model {
	f := quadFace{normal: [3]float32{0, 1, 0}, u: [3]float32{1, 0, 0}, v: [3]float32{0, 0, -1}}
	vertices, indices := appendQuad(nil, nil, f, 0, size/2)
	return NewModel(WithName(name), WithMesh(vertices, indices))
}

// appendQuad appends the four corners of a face offset along its normal by depth and
// spanning halfSize along u and v.
func appendQuad(vertices []GPUVertex, indices []uint32, f quadFace, depth, halfSize float32) ([]GPUVertex, []uint32) {
	base := uint32(len(vertices))
	for _, c := range [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}} {
		var p [3]float32
		for i := range 3 {
			p[i] = f.normal[i]*depth + (f.u[i]*c[0]+f.v[i]*c[1])*halfSize
		}
		vertices = append(vertices, GPUVertex{Position: p, Normal: f.normal})
	}
	indices = append(indices, base, base+1, base+2, base, base+2, base+3)
	return vertices, indices
}
