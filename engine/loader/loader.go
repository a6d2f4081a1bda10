package loader

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-shadow/common"
	"github.com/Carmen-Shannon/oxy-shadow/engine/model"
)

// loader is the implementation of the Loader interface.
type loader struct {
	mu *sync.RWMutex

	root       [16]float32
	modelCache map[string]model.Model
}

// Loader imports static glTF 2.0 meshes (.gltf or .glb) as Models whose vertices carry a
// position and a normal, ready to be drawn as shadow casters and receivers. Materials, skins
// and animations in the file are ignored. Loaded models are cached by path or name.
// Thread-safe for concurrent access.
type Loader interface {
	// Load imports a model file, or returns the cached Model for the same path.
	//
	// Parameters:
	//   - path: a .gltf or .glb file; external buffers resolve relative to it
	//
	// Returns:
	//   - model.Model: the model, named after the file's base name
	//   - error: an I/O error, or one wrapping ErrInvalidGLTF or ErrUnsupported
	Load(path string) (model.Model, error)

	// LoadReader imports a model from r and caches it under name.
	//
	// Parameters:
	//   - name: the model name and cache key
	//   - r: glTF JSON or GLB bytes
	//   - isGLB: true for GLB
	//
	// Returns:
	//   - model.Model: the model
	//   - error: a read or decode error
	LoadReader(name string, r io.Reader, isGLB bool) (model.Model, error)

	// Get returns a cached model, or nil.
	//
	// Parameters:
	//   - name: the path or name it was loaded under
	//
	// Returns:
	//   - model.Model: the model or nil
	Get(name string) model.Model

	// Models returns a copy of the cache.
	Models() map[string]model.Model
}

var _ Loader = &loader{}

// NewLoader creates a Loader.
//
// Parameters:
//   - options: LoaderBuilderOption values
//
// Returns:
//   - Loader: the loader
func NewLoader(options ...LoaderBuilderOption) Loader {
	l := &loader{
		mu:         &sync.RWMutex{},
		root:       common.Identity4(),
		modelCache: make(map[string]model.Model),
	}
	for _, option := range options {
		option(l)
	}
	return l
}

func (l *loader) Load(path string) (model.Model, error) {
	if m := l.Get(path); m != nil {
		return m, nil
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".gltf", ".glb":
	default:
		return nil, fmt.Errorf("load %s: %w: extension %q", path, ErrUnsupported, filepath.Ext(path))
	}

	p, err := parseFile(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return l.build(path, name, p)
}

func (l *loader) LoadReader(name string, r io.Reader, isGLB bool) (model.Model, error) {
	if m := l.Get(name); m != nil {
		return m, nil
	}
	p, err := parseReader(r, isGLB)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	return l.build(name, name, p)
}

// build converts a parsed document into a Model and caches it. A concurrent load of the same
// key keeps whichever Model was cached first.
func (l *loader) build(key, name string, p *gltfParser) (model.Model, error) {
	vertices, indices, err := p.extractMesh(l.root)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}

	m := model.NewModel(
		model.WithName(name),
		model.WithMesh(vertices, indices),
	)

	l.mu.Lock()
	defer l.mu.Unlock()
	if cached, ok := l.modelCache[key]; ok {
		return cached, nil
	}
	l.modelCache[key] = m

	common.Logger().Debug("model loaded", "key", key, "vertices", len(vertices), "triangles", len(indices)/3)
	return m, nil
}

func (l *loader) Get(name string) model.Model {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.modelCache[name]
}

func (l *loader) Models() map[string]model.Model {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]model.Model, len(l.modelCache))
	for k, v := range l.modelCache {
		out[k] = v
	}
	return out
}
