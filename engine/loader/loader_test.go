package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-shadow/engine/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// triangleBin packs three positions followed by three uint16 indices, padded to 4 bytes.
func triangleBin(t *testing.T, indices []uint16) []byte {
	t.Helper()
	var buf bytes.Buffer
	positions := [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 0, -1}}
	for _, p := range positions {
		for _, c := range p {
			require.NoError(t, binary.Write(&buf, binary.LittleEndian, math.Float32bits(c)))
		}
	}
	for _, i := range indices {
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, i))
	}
	for buf.Len()%4 != 0 {
		buf.WriteByte(0)
	}
	return buf.Bytes()
}

// triangleDoc describes one triangle; uri is empty for GLB.
func triangleDoc(uri string, byteLength, indexCount int) map[string]any {
	buffer := map[string]any{"byteLength": byteLength}
	if uri != "" {
		buffer["uri"] = uri
	}
	return map[string]any{
		"asset":  map[string]any{"version": "2.0"},
		"scene":  0,
		"scenes": []any{map[string]any{"nodes": []int{0}}},
		"nodes":  []any{map[string]any{"name": "tri", "mesh": 0}},
		"meshes": []any{map[string]any{
			"name": "tri",
			"primitives": []any{map[string]any{
				"attributes": map[string]int{"POSITION": 0},
				"indices":    1,
			}},
		}},
		"accessors": []any{
			map[string]any{"bufferView": 0, "componentType": gltfFloat, "count": 3, "type": "VEC3"},
			map[string]any{"bufferView": 1, "componentType": gltfUnsignedShort, "count": indexCount, "type": "SCALAR"},
		},
		"bufferViews": []any{
			map[string]any{"buffer": 0, "byteOffset": 0, "byteLength": 36},
			map[string]any{"buffer": 0, "byteOffset": 36, "byteLength": indexCount * 2},
		},
		"buffers": []any{buffer},
	}
}

func marshal(t *testing.T, doc map[string]any) []byte {
	t.Helper()
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	return data
}

func embeddedTriangle(t *testing.T) map[string]any {
	t.Helper()
	bin := triangleBin(t, []uint16{0, 1, 2})
	uri := "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(bin)
	return triangleDoc(uri, len(bin), 3)
}

// withAccessor overrides fields of the position accessor of the embedded triangle.
func withAccessor(t *testing.T, fields map[string]any) map[string]any {
	t.Helper()
	doc := embeddedTriangle(t)
	acc := doc["accessors"].([]any)[0].(map[string]any)
	for k, v := range fields {
		acc[k] = v
	}
	return doc
}

// withView overrides fields of the position buffer view of the embedded triangle.
func withView(t *testing.T, fields map[string]any) map[string]any {
	t.Helper()
	doc := embeddedTriangle(t)
	view := doc["bufferViews"].([]any)[0].(map[string]any)
	for k, v := range fields {
		view[k] = v
	}
	return doc
}

func packGLB(t *testing.T, jsonChunk, binChunk []byte) []byte {
	t.Helper()
	for len(jsonChunk)%4 != 0 {
		jsonChunk = append(jsonChunk, ' ')
	}
	var body bytes.Buffer
	require.NoError(t, binary.Write(&body, binary.LittleEndian, glbChunkHeader{Length: uint32(len(jsonChunk)), Type: glbChunkJSON}))
	body.Write(jsonChunk)
	require.NoError(t, binary.Write(&body, binary.LittleEndian, glbChunkHeader{Length: uint32(len(binChunk)), Type: glbChunkBIN}))
	body.Write(binChunk)

	var out bytes.Buffer
	header := glbHeader{Magic: glbMagic, Version: glbVersion, Length: uint32(12 + body.Len())}
	require.NoError(t, binary.Write(&out, binary.LittleEndian, header))
	out.Write(body.Bytes())
	return out.Bytes()
}

func positions(m model.Model) [][3]float32 {
	var out [][3]float32
	for _, v := range m.Vertices() {
		out = append(out, v.Position)
	}
	return out
}

func assertVec3(t *testing.T, want, got [3]float32) {
	t.Helper()
	for i := range 3 {
		assert.InDelta(t, want[i], got[i], 1e-5, "component %d", i)
	}
}

func TestLoadReader_EmbeddedTriangle(t *testing.T) {
	l := NewLoader()
	m, err := l.LoadReader("tri", bytes.NewReader(marshal(t, embeddedTriangle(t))), false)
	require.NoError(t, err)

	assert.Equal(t, "tri", m.Name())
	assert.Equal(t, 3, m.IndexCount())
	assert.Equal(t, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 0, -1}}, positions(m))
	assert.InDelta(t, 1, m.BoundingRadius(), 1e-5)

	// Counter-clockwise seen from +Y, so generated normals point up.
	for _, v := range m.Vertices() {
		assertVec3(t, [3]float32{0, 1, 0}, v.Normal)
	}
}

func TestLoadReader_GLB(t *testing.T) {
	bin := triangleBin(t, []uint16{0, 1, 2})
	glb := packGLB(t, marshal(t, triangleDoc("", len(bin), 3)), bin)

	m, err := NewLoader().LoadReader("glb", bytes.NewReader(glb), true)
	require.NoError(t, err)
	assert.Equal(t, 3, m.IndexCount())
	assert.Len(t, m.Vertices(), 3)
}

func TestLoadReader_CachesByName(t *testing.T) {
	l := NewLoader()
	data := marshal(t, embeddedTriangle(t))

	first, err := l.LoadReader("tri", bytes.NewReader(data), false)
	require.NoError(t, err)
	// A cached name never reads the stream.
	second, err := l.LoadReader("tri", strings.NewReader("not json"), false)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Same(t, first, l.Get("tri"))
	assert.Nil(t, l.Get("missing"))
	assert.Len(t, l.Models(), 1)
}

func TestWithModel_PrePopulatesCache(t *testing.T) {
	m := model.NewModel(model.WithName("cube"))
	l := NewLoader(WithModel("cube", m))
	got, err := l.LoadReader("cube", strings.NewReader(""), false)
	require.NoError(t, err)
	assert.Same(t, m, got)
}

func TestLoadReader_BakesNodeTransform(t *testing.T) {
	doc := embeddedTriangle(t)
	doc["nodes"] = []any{map[string]any{
		"name":        "parent",
		"children":    []int{1},
		"translation": []float32{0, 2, 0},
	}, map[string]any{
		"name":  "child",
		"mesh":  0,
		"scale": []float32{2, 2, 2},
	}}

	m, err := NewLoader().LoadReader("moved", bytes.NewReader(marshal(t, doc)), false)
	require.NoError(t, err)

	got := positions(m)
	require.Len(t, got, 3)
	assertVec3(t, [3]float32{0, 2, 0}, got[0])
	assertVec3(t, [3]float32{2, 2, 0}, got[1])
	assertVec3(t, [3]float32{0, 2, -2}, got[2])
}

func TestLoadReader_MirroredNodeKeepsWinding(t *testing.T) {
	doc := embeddedTriangle(t)
	doc["nodes"] = []any{map[string]any{"mesh": 0, "scale": []float32{-1, 1, 1}}}

	m, err := NewLoader().LoadReader("mirror", bytes.NewReader(marshal(t, doc)), false)
	require.NoError(t, err)

	for _, v := range m.Vertices() {
		assertVec3(t, [3]float32{0, 1, 0}, v.Normal)
	}
	var indices [3]uint32
	require.NoError(t, binary.Read(bytes.NewReader(m.IndexData()), binary.LittleEndian, &indices))
	assert.Equal(t, [3]uint32{0, 2, 1}, indices)
}

func TestLoadReader_ExplicitNormals(t *testing.T) {
	bin := triangleBin(t, []uint16{0, 1, 2})
	var normals bytes.Buffer
	for range 3 {
		for _, c := range []float32{0, 0, 2} {
			require.NoError(t, binary.Write(&normals, binary.LittleEndian, math.Float32bits(c)))
		}
	}
	bin = append(bin, normals.Bytes()...)
	uri := "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(bin)

	doc := triangleDoc(uri, len(bin), 3)
	doc["accessors"] = append(doc["accessors"].([]any),
		map[string]any{"bufferView": 2, "componentType": gltfFloat, "count": 3, "type": "VEC3"})
	doc["bufferViews"] = append(doc["bufferViews"].([]any),
		map[string]any{"buffer": 0, "byteOffset": 44, "byteLength": 36})
	prim := doc["meshes"].([]any)[0].(map[string]any)["primitives"].([]any)[0].(map[string]any)
	prim["attributes"] = map[string]int{"POSITION": 0, "NORMAL": 2}

	m, err := NewLoader().LoadReader("normals", bytes.NewReader(marshal(t, doc)), false)
	require.NoError(t, err)
	for _, v := range m.Vertices() {
		assertVec3(t, [3]float32{0, 0, 1}, v.Normal)
	}
}

func TestWithScale(t *testing.T) {
	m, err := NewLoader(WithScale(3)).LoadReader("big", bytes.NewReader(marshal(t, embeddedTriangle(t))), false)
	require.NoError(t, err)
	got := positions(m)
	assertVec3(t, [3]float32{3, 0, 0}, got[1])
	assertVec3(t, [3]float32{0, 0, -3}, got[2])
	assert.InDelta(t, 3, m.BoundingRadius(), 1e-5)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	bin := triangleBin(t, []uint16{0, 1, 2})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tri.bin"), bin, 0o644))
	path := filepath.Join(dir, "Tri.gltf")
	require.NoError(t, os.WriteFile(path, marshal(t, triangleDoc("tri.bin", len(bin), 3)), 0o644))

	l := NewLoader()
	m, err := l.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Tri", m.Name())
	assert.Same(t, m, l.Get(path))
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	objPath := filepath.Join(dir, "mesh.obj")
	require.NoError(t, os.WriteFile(objPath, []byte("v 0 0 0"), 0o644))

	_, err := NewLoader().Load(objPath)
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = NewLoader().Load(filepath.Join(dir, "missing.gltf"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadReader_Errors(t *testing.T) {
	tests := []struct {
		name   string
		data   func(t *testing.T) []byte
		isGLB  bool
		target error
	}{
		{
			name:   "not json",
			data:   func(t *testing.T) []byte { return []byte("{") },
			target: ErrInvalidGLTF,
		},
		{
			name: "version 1",
			data: func(t *testing.T) []byte {
				doc := embeddedTriangle(t)
				doc["asset"] = map[string]any{"version": "1.0"}
				return marshal(t, doc)
			},
			target: ErrInvalidGLTF,
		},
		{
			name:   "bad GLB magic",
			data:   func(t *testing.T) []byte { return make([]byte, 12) },
			isGLB:  true,
			target: ErrInvalidGLTF,
		},
		{
			name:   "truncated GLB",
			data:   func(t *testing.T) []byte { return []byte{1, 2} },
			isGLB:  true,
			target: ErrInvalidGLTF,
		},
		{
			name: "missing POSITION",
			data: func(t *testing.T) []byte {
				doc := embeddedTriangle(t)
				prim := doc["meshes"].([]any)[0].(map[string]any)["primitives"].([]any)[0].(map[string]any)
				prim["attributes"] = map[string]int{}
				return marshal(t, doc)
			},
			target: ErrInvalidGLTF,
		},
		{
			name: "line primitive",
			data: func(t *testing.T) []byte {
				doc := embeddedTriangle(t)
				prim := doc["meshes"].([]any)[0].(map[string]any)["primitives"].([]any)[0].(map[string]any)
				prim["mode"] = 1
				return marshal(t, doc)
			},
			target: ErrUnsupported,
		},
		{
			name: "index past vertices",
			data: func(t *testing.T) []byte {
				bin := triangleBin(t, []uint16{0, 1, 7})
				uri := "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(bin)
				return marshal(t, triangleDoc(uri, len(bin), 3))
			},
			target: ErrInvalidGLTF,
		},
		{
			name: "negative count",
			data: func(t *testing.T) []byte {
				return marshal(t, withAccessor(t, map[string]any{"count": -1}))
			},
			target: ErrInvalidGLTF,
		},
		{
			name: "negative accessor offset",
			data: func(t *testing.T) []byte {
				return marshal(t, withAccessor(t, map[string]any{"byteOffset": -12}))
			},
			target: ErrInvalidGLTF,
		},
		{
			name: "huge count",
			data: func(t *testing.T) []byte {
				return marshal(t, withAccessor(t, map[string]any{"count": math.MaxInt64 / 2}))
			},
			target: ErrInvalidGLTF,
		},
		{
			name: "accessor offset past view",
			data: func(t *testing.T) []byte {
				return marshal(t, withAccessor(t, map[string]any{"byteOffset": math.MaxInt64 - 8}))
			},
			target: ErrInvalidGLTF,
		},
		{
			name: "negative view offset",
			data: func(t *testing.T) []byte {
				return marshal(t, withView(t, map[string]any{"byteOffset": -4}))
			},
			target: ErrInvalidGLTF,
		},
		{
			name: "negative view length",
			data: func(t *testing.T) []byte {
				return marshal(t, withView(t, map[string]any{"byteLength": -36}))
			},
			target: ErrInvalidGLTF,
		},
		{
			name: "view offset past buffer",
			data: func(t *testing.T) []byte {
				return marshal(t, withView(t, map[string]any{"byteOffset": math.MaxInt64 - 8}))
			},
			target: ErrInvalidGLTF,
		},
		{
			name: "stride below element size",
			data: func(t *testing.T) []byte {
				return marshal(t, withView(t, map[string]any{"byteStride": 4}))
			},
			target: ErrInvalidGLTF,
		},
		{
			name: "accessor overruns view",
			data: func(t *testing.T) []byte {
				doc := embeddedTriangle(t)
				doc["accessors"].([]any)[0].(map[string]any)["count"] = 4
				return marshal(t, doc)
			},
			target: ErrInvalidGLTF,
		},
		{
			name: "buffer shorter than declared",
			data: func(t *testing.T) []byte {
				doc := embeddedTriangle(t)
				doc["buffers"].([]any)[0].(map[string]any)["byteLength"] = 4096
				return marshal(t, doc)
			},
			target: ErrInvalidGLTF,
		},
		{
			name: "non base64 data URI",
			data: func(t *testing.T) []byte {
				doc := embeddedTriangle(t)
				doc["buffers"].([]any)[0].(map[string]any)["uri"] = "data:text/plain,abc"
				return marshal(t, doc)
			},
			target: ErrUnsupported,
		},
		{
			name: "scene out of range",
			data: func(t *testing.T) []byte {
				doc := embeddedTriangle(t)
				doc["scene"] = 3
				return marshal(t, doc)
			},
			target: ErrInvalidGLTF,
		},
		{
			name: "cyclic nodes",
			data: func(t *testing.T) []byte {
				doc := embeddedTriangle(t)
				doc["nodes"] = []any{map[string]any{"children": []int{0}}}
				return marshal(t, doc)
			},
			target: ErrInvalidGLTF,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLoader()
			_, err := l.LoadReader(tt.name, bytes.NewReader(tt.data(t)), tt.isGLB)
			assert.ErrorIs(t, err, tt.target)
			assert.Nil(t, l.Get(tt.name))
		})
	}
}

func TestLoadReader_NoScenesReadsEveryMesh(t *testing.T) {
	doc := embeddedTriangle(t)
	delete(doc, "scene")
	delete(doc, "scenes")
	delete(doc, "nodes")

	m, err := NewLoader().LoadReader("flat", bytes.NewReader(marshal(t, doc)), false)
	require.NoError(t, err)
	assert.Equal(t, 3, m.IndexCount())
}
