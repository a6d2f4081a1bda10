package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrInvalidGLTF is wrapped by every error caused by malformed glTF or GLB content.
	ErrInvalidGLTF = errors.New("invalid glTF")

	// ErrUnsupported is wrapped when a file uses a glTF feature the loader does not read.
	ErrUnsupported = errors.New("unsupported glTF feature")
)

// gltfParser decodes a glTF or GLB document and resolves its buffers.
type gltfParser struct {
	baseDir string
	doc     *gltfDocument
	glbBin  []byte
}

// parseFile reads path and detects GLB by extension or magic number. External buffers are
// resolved relative to the file's directory.
func parseFile(path string) (*gltfParser, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	isGLB := strings.EqualFold(filepath.Ext(path), ".glb") ||
		(len(data) >= 4 && binary.LittleEndian.Uint32(data) == glbMagic)
	return parseBytes(data, isGLB, filepath.Dir(path))
}

// parseReader decodes a document from r. External buffer URIs resolve against the working
// directory.
func parseReader(r io.Reader, isGLB bool) (*gltfParser, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read glTF stream: %w", err)
	}
	return parseBytes(data, isGLB, ".")
}

func parseBytes(data []byte, isGLB bool, baseDir string) (*gltfParser, error) {
	p := &gltfParser{baseDir: baseDir}

	jsonData := data
	if isGLB {
		var err error
		if jsonData, p.glbBin, err = splitGLB(data); err != nil {
			return nil, err
		}
	}

	var doc gltfDocument
	if err := json.Unmarshal(jsonData, &doc); err != nil {
		return nil, fmt.Errorf("%w: decode JSON: %v", ErrInvalidGLTF, err)
	}
	if !strings.HasPrefix(doc.Asset.Version, "2.") {
		return nil, fmt.Errorf("%w: asset version %q, want 2.x", ErrInvalidGLTF, doc.Asset.Version)
	}
	p.doc = &doc

	if err := p.loadBuffers(); err != nil {
		return nil, err
	}
	return p, nil
}

// splitGLB returns the JSON chunk and the optional BIN chunk of a GLB container.
func splitGLB(data []byte) (jsonChunk, binChunk []byte, err error) {
	r := bytes.NewReader(data)

	var header glbHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, nil, fmt.Errorf("%w: GLB header: %v", ErrInvalidGLTF, err)
	}
	if header.Magic != glbMagic {
		return nil, nil, fmt.Errorf("%w: bad GLB magic %#x", ErrInvalidGLTF, header.Magic)
	}
	if header.Version != glbVersion {
		return nil, nil, fmt.Errorf("%w: GLB version %d, want 2", ErrInvalidGLTF, header.Version)
	}

	for {
		var chunk glbChunkHeader
		if err := binary.Read(r, binary.LittleEndian, &chunk); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, nil, fmt.Errorf("%w: GLB chunk header: %v", ErrInvalidGLTF, err)
		}
		if int64(chunk.Length) > int64(r.Len()) {
			return nil, nil, fmt.Errorf("%w: GLB chunk of %d bytes overruns file", ErrInvalidGLTF, chunk.Length)
		}
		body := make([]byte, chunk.Length)
		if _, err := io.ReadFull(r, body); err != nil {
			return nil, nil, fmt.Errorf("%w: GLB chunk: %v", ErrInvalidGLTF, err)
		}
		switch chunk.Type {
		case glbChunkJSON:
			jsonChunk = body
		case glbChunkBIN:
			binChunk = body
		}
	}

	if jsonChunk == nil {
		return nil, nil, fmt.Errorf("%w: GLB has no JSON chunk", ErrInvalidGLTF)
	}
	return jsonChunk, binChunk, nil
}

// loadBuffers fills every buffer from its data URI, its external file, or the GLB BIN chunk.
func (p *gltfParser) loadBuffers() error {
	for i := range p.doc.Buffers {
		buf := &p.doc.Buffers[i]

		switch {
		case buf.URI == "" && i == 0 && p.glbBin != nil:
			buf.data = p.glbBin
		case buf.URI == "":
			return fmt.Errorf("%w: buffer %d has no URI", ErrInvalidGLTF, i)
		case strings.HasPrefix(buf.URI, "data:"):
			data, err := decodeDataURI(buf.URI)
			if err != nil {
				return fmt.Errorf("buffer %d: %w", i, err)
			}
			buf.data = data
		default:
			data, err := os.ReadFile(filepath.Join(p.baseDir, filepath.FromSlash(buf.URI)))
			if err != nil {
				return fmt.Errorf("buffer %d: %w", i, err)
			}
			buf.data = data
		}

		if len(buf.data) < buf.ByteLength {
			return fmt.Errorf("%w: buffer %d holds %d bytes, declares %d", ErrInvalidGLTF, i, len(buf.data), buf.ByteLength)
		}
	}
	return nil
}

// decodeDataURI decodes data:[<mediatype>];base64,<payload>.
func decodeDataURI(uri string) ([]byte, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, fmt.Errorf("%w: data URI without payload", ErrInvalidGLTF)
	}
	if !strings.HasSuffix(header, ";base64") {
		return nil, fmt.Errorf("%w: data URI encoding %q", ErrUnsupported, header)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: data URI: %v", ErrInvalidGLTF, err)
	}
	return data, nil
}

// elements returns the bytes of each element of an accessor, honoring the buffer view stride.
func (p *gltfParser) elements(index, elementSize int) ([][]byte, error) {
	if index < 0 || index >= len(p.doc.Accessors) {
		return nil, fmt.Errorf("%w: accessor %d out of range", ErrInvalidGLTF, index)
	}
	acc := p.doc.Accessors[index]
	if acc.Sparse != nil {
		return nil, fmt.Errorf("%w: sparse accessor %d", ErrUnsupported, index)
	}
	if acc.BufferView == nil || *acc.BufferView < 0 || *acc.BufferView >= len(p.doc.BufferViews) {
		return nil, fmt.Errorf("%w: accessor %d has no buffer view", ErrInvalidGLTF, index)
	}
	view := p.doc.BufferViews[*acc.BufferView]
	if view.Buffer < 0 || view.Buffer >= len(p.doc.Buffers) {
		return nil, fmt.Errorf("%w: buffer view %d references buffer %d", ErrInvalidGLTF, *acc.BufferView, view.Buffer)
	}
	data := p.doc.Buffers[view.Buffer].data

	if acc.Count < 0 || acc.ByteOffset < 0 || view.ByteOffset < 0 || view.ByteLength < 0 {
		return nil, fmt.Errorf("%w: accessor %d has a negative count, offset or length", ErrInvalidGLTF, index)
	}
	stride := elementSize
	if view.ByteStride != nil {
		if *view.ByteStride != 0 && *view.ByteStride < elementSize {
			return nil, fmt.Errorf("%w: buffer view %d stride %d is below element size %d", ErrInvalidGLTF, *acc.BufferView, *view.ByteStride, elementSize)
		}
		if *view.ByteStride > 0 {
			stride = *view.ByteStride
		}
	}

	// Sizes are compared as remaining lengths so hostile offsets cannot overflow an int.
	if view.ByteOffset > len(data) {
		return nil, fmt.Errorf("%w: buffer view %d starts past its buffer", ErrInvalidGLTF, *acc.BufferView)
	}
	viewLength := min(view.ByteLength, len(data)-view.ByteOffset)
	if acc.ByteOffset > viewLength {
		return nil, fmt.Errorf("%w: accessor %d starts past its buffer view", ErrInvalidGLTF, index)
	}
	start := view.ByteOffset + acc.ByteOffset
	available := viewLength - acc.ByteOffset
	if acc.Count > 0 && (available < elementSize || acc.Count > (available-elementSize)/stride+1) {
		return nil, fmt.Errorf("%w: accessor %d overruns its buffer view", ErrInvalidGLTF, index)
	}

	out := make([][]byte, acc.Count)
	for i := range out {
		off := start + i*stride
		out[i] = data[off : off+elementSize]
	}
	return out, nil
}

// readVec3 reads a FLOAT VEC3 accessor.
func (p *gltfParser) readVec3(index int) ([][3]float32, error) {
	if index < 0 || index >= len(p.doc.Accessors) {
		return nil, fmt.Errorf("%w: accessor %d out of range", ErrInvalidGLTF, index)
	}
	if acc := p.doc.Accessors[index]; acc.Type != gltfVec3 || acc.ComponentType != gltfFloat {
		return nil, fmt.Errorf("%w: accessor %d is %s/%d, want VEC3 FLOAT", ErrUnsupported, index, acc.Type, acc.ComponentType)
	}

	elems, err := p.elements(index, 12)
	if err != nil {
		return nil, err
	}
	out := make([][3]float32, len(elems))
	for i, e := range elems {
		for c := range 3 {
			out[i][c] = math.Float32frombits(binary.LittleEndian.Uint32(e[c*4:]))
		}
	}
	return out, nil
}

// readIndices reads an unsigned SCALAR accessor of any width as uint32.
func (p *gltfParser) readIndices(index int) ([]uint32, error) {
	if index < 0 || index >= len(p.doc.Accessors) {
		return nil, fmt.Errorf("%w: accessor %d out of range", ErrInvalidGLTF, index)
	}
	acc := p.doc.Accessors[index]
	if acc.Type != gltfScalar {
		return nil, fmt.Errorf("%w: index accessor %d is %s", ErrInvalidGLTF, index, acc.Type)
	}

	var size int
	switch acc.ComponentType {
	case gltfUnsignedByte:
		size = 1
	case gltfUnsignedShort:
		size = 2
	case gltfUnsignedInt:
		size = 4
	default:
		return nil, fmt.Errorf("%w: index component type %d", ErrUnsupported, acc.ComponentType)
	}

	elems, err := p.elements(index, size)
	if err != nil {
		return nil, err
	}
	out := make([]uint32, len(elems))
	for i, e := range elems {
		switch size {
		case 1:
			out[i] = uint32(e[0])
		case 2:
			out[i] = uint32(binary.LittleEndian.Uint16(e))
		case 4:
			out[i] = binary.LittleEndian.Uint32(e)
		}
	}
	return out, nil
}
