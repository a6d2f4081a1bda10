package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-shadow/common"
	"github.com/Carmen-Shannon/oxy-shadow/engine/model"
)

// maxNodeDepth bounds the node walk so a cyclic hierarchy cannot recurse forever.
const maxNodeDepth = 64

// meshBuilder accumulates triangles from several primitives into one indexed mesh.
type meshBuilder struct {
	p        *gltfParser
	root     [16]float32
	vertices []model.GPUVertex
	indices  []uint32
}

// extractMesh flattens every triangle primitive of the default scene into one mesh with node
// transforms baked in. Files without scenes contribute each mesh once, untransformed.
//
// Parameters:
//   - root: transform applied on top of the node transforms
//
// Returns:
//   - []model.GPUVertex: positions and normals
//   - []uint32: triangle list indices
//   - error: a malformed or unsupported primitive
func (p *gltfParser) extractMesh(root [16]float32) ([]model.GPUVertex, []uint32, error) {
	b := &meshBuilder{p: p, root: root}

	if len(p.doc.Scenes) == 0 {
		for i := range p.doc.Meshes {
			if err := b.addMesh(i, root); err != nil {
				return nil, nil, err
			}
		}
	} else {
		sceneIndex := 0
		if p.doc.Scene != nil {
			sceneIndex = *p.doc.Scene
		}
		if sceneIndex < 0 || sceneIndex >= len(p.doc.Scenes) {
			return nil, nil, fmt.Errorf("%w: default scene %d out of range", ErrInvalidGLTF, sceneIndex)
		}
		for _, n := range p.doc.Scenes[sceneIndex].Nodes {
			if err := b.addNode(n, root, 0); err != nil {
				return nil, nil, err
			}
		}
	}

	if len(b.indices) == 0 {
		return nil, nil, fmt.Errorf("%w: no triangles in the default scene", ErrInvalidGLTF)
	}
	return b.vertices, b.indices, nil
}

func (b *meshBuilder) addNode(index int, parent [16]float32, depth int) error {
	nodes := b.p.doc.Nodes
	if index < 0 || index >= len(nodes) {
		return fmt.Errorf("%w: node %d out of range", ErrInvalidGLTF, index)
	}
	if depth > maxNodeDepth {
		return fmt.Errorf("%w: node hierarchy deeper than %d", ErrInvalidGLTF, maxNodeDepth)
	}

	node := nodes[index]
	world := common.MulChain(parent, localMatrix(node))
	if node.Mesh != nil {
		if err := b.addMesh(*node.Mesh, world); err != nil {
			return fmt.Errorf("node %q: %w", node.Name, err)
		}
	}
	for _, child := range node.Children {
		if err := b.addNode(child, world, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func (b *meshBuilder) addMesh(index int, world [16]float32) error {
	meshes := b.p.doc.Meshes
	if index < 0 || index >= len(meshes) {
		return fmt.Errorf("%w: mesh %d out of range", ErrInvalidGLTF, index)
	}
	for i, prim := range meshes[index].Primitives {
		if err := b.addPrimitive(prim, world); err != nil {
			return fmt.Errorf("mesh %q primitive %d: %w", meshes[index].Name, i, err)
		}
	}
	return nil
}

func (b *meshBuilder) addPrimitive(prim gltfPrimitive, world [16]float32) error {
	if prim.Mode != nil && *prim.Mode != gltfModeTriangles {
		return fmt.Errorf("%w: primitive mode %d, only triangles are read", ErrUnsupported, *prim.Mode)
	}
	posIndex, ok := prim.Attributes["POSITION"]
	if !ok {
		return fmt.Errorf("%w: primitive has no POSITION", ErrInvalidGLTF)
	}
	positions, err := b.p.readVec3(posIndex)
	if err != nil {
		return fmt.Errorf("positions: %w", err)
	}

	var normals [][3]float32
	if nIndex, ok := prim.Attributes["NORMAL"]; ok {
		if normals, err = b.p.readVec3(nIndex); err != nil {
			return fmt.Errorf("normals: %w", err)
		}
		if len(normals) != len(positions) {
			return fmt.Errorf("%w: %d normals for %d positions", ErrInvalidGLTF, len(normals), len(positions))
		}
	}

	var indices []uint32
	if prim.Indices != nil {
		if indices, err = b.p.readIndices(*prim.Indices); err != nil {
			return fmt.Errorf("indices: %w", err)
		}
	} else {
		indices = make([]uint32, len(positions))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}
	if len(indices)%3 != 0 {
		return fmt.Errorf("%w: %d indices is not a triangle list", ErrInvalidGLTF, len(indices))
	}
	for _, idx := range indices {
		if int(idx) >= len(positions) {
			return fmt.Errorf("%w: index %d past %d vertices", ErrInvalidGLTF, idx, len(positions))
		}
	}

	normalMatrix, mirrored := normalTransform(world)
	base := uint32(len(b.vertices))
	for i, pos := range positions {
		wp := common.TransformPoint4(world[:], [4]float32{pos[0], pos[1], pos[2], 1})
		v := model.GPUVertex{Position: [3]float32{wp[0], wp[1], wp[2]}}
		if normals != nil {
			n := common.TransformPoint4(normalMatrix[:], [4]float32{normals[i][0], normals[i][1], normals[i][2], 0})
			v.Normal = common.Normalize3([3]float32{n[0], n[1], n[2]})
		}
		b.vertices = append(b.vertices, v)
	}

	// A mirroring transform flips the winding, which would invert face culling.
	for t := 0; t < len(indices); t += 3 {
		i0, i1, i2 := indices[t], indices[t+1], indices[t+2]
		if mirrored {
			i1, i2 = i2, i1
		}
		b.indices = append(b.indices, base+i0, base+i1, base+i2)
	}

	if normals == nil {
		generateNormals(b.vertices[base:], b.indices[len(b.indices)-len(indices):], base)
	}
	return nil
}

// localMatrix returns the node's matrix, or T * R * S from its components.
func localMatrix(n gltfNode) [16]float32 {
	if n.Matrix != nil {
		return *n.Matrix
	}
	t, r, s := common.Identity4(), common.Identity4(), common.Identity4()
	if n.Translation != nil {
		common.Translation(t[:], n.Translation[0], n.Translation[1], n.Translation[2])
	}
	if n.Rotation != nil {
		r = quatMatrix(*n.Rotation)
	}
	if n.Scale != nil {
		common.Scaling(s[:], n.Scale[0], n.Scale[1], n.Scale[2])
	}
	return common.MulChain(t, r, s)
}

// quatMatrix converts a unit quaternion (x, y, z, w) to a column-major rotation matrix.
func quatMatrix(q [4]float32) [16]float32 {
	x, y, z, w := q[0], q[1], q[2], q[3]
	return [16]float32{
		1 - 2*(y*y+z*z), 2 * (x*y + z*w), 2 * (x*z - y*w), 0,
		2 * (x*y - z*w), 1 - 2*(x*x+z*z), 2 * (y*z + x*w), 0,
		2 * (x*z + y*w), 2 * (y*z - x*w), 1 - 2*(x*x+y*y), 0,
		0, 0, 0, 1,
	}
}

// normalTransform returns the inverse transpose of world and whether world mirrors.
func normalTransform(world [16]float32) ([16]float32, bool) {
	m := world
	det := m[0]*(m[5]*m[10]-m[9]*m[6]) - m[4]*(m[1]*m[10]-m[9]*m[2]) + m[8]*(m[1]*m[6]-m[5]*m[2])

	var inv [16]float32
	if !common.Invert4(inv[:], world[:]) {
		return world, det < 0
	}
	var out [16]float32
	for c := range 4 {
		for r := range 4 {
			out[c*4+r] = inv[r*4+c]
		}
	}
	return out, det < 0
}

// generateNormals writes area-weighted smooth normals into vertices. indices are absolute and
// base is the absolute index of vertices[0].
func generateNormals(vertices []model.GPUVertex, indices []uint32, base uint32) {
	accum := make([][3]float32, len(vertices))
	for t := 0; t+2 < len(indices); t += 3 {
		i0, i1, i2 := indices[t]-base, indices[t+1]-base, indices[t+2]-base
		p0, p1, p2 := vertices[i0].Position, vertices[i1].Position, vertices[i2].Position
		face := common.Cross3(
			[3]float32{p1[0] - p0[0], p1[1] - p0[1], p1[2] - p0[2]},
			[3]float32{p2[0] - p0[0], p2[1] - p0[1], p2[2] - p0[2]},
		)
		for _, i := range [3]uint32{i0, i1, i2} {
			for c := range 3 {
				accum[i][c] += face[c]
			}
		}
	}
	for i := range vertices {
		n := common.Normalize3(accum[i])
		if n == ([3]float32{}) {
			n = [3]float32{0, 1, 0}
		}
		vertices[i].Normal = n
	}
}
