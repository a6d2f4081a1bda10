package shader

import (
	"fmt"
	"os"

	"github.com/cogentcore/webgpu/wgpu"
)

// ShaderType identifies the pipeline stage a shader module is compiled for.
type ShaderType int

const (
	// ShaderTypeVertex is a shader containing a @vertex entry point.
	ShaderTypeVertex ShaderType = iota

	// ShaderTypeFragment is a shader containing a @fragment entry point, paired with a vertex shader.
	ShaderTypeFragment
)

// shader is the implementation of the Shader interface.
type shader struct {
	key        string
	source     string
	shaderType ShaderType
	entryPoint string

	bindGroupLayoutDescriptors map[int]wgpu.BindGroupLayoutDescriptor
	bindingVarNames            map[int]map[int]string
	vertexLayouts              []wgpu.VertexBufferLayout

	declarations []Annotation
}

// Shader is a pre-processed and reflected WGSL module. It exposes everything the
// renderer needs to build a pipeline: the final source, entry point, vertex buffer
// layouts and bind group layout descriptors, plus the @oxy declarations used to
// wire resource providers to bind groups.
type Shader interface {
	// Key returns the unique identifier of this shader.
	Key() string

	// Source returns the pre-processed WGSL source.
	Source() string

	// ShaderType returns the stage this shader was compiled for.
	ShaderType() ShaderType

	// EntryPoint returns the name of the stage's entry function, or an empty string if none was found.
	EntryPoint() string

	// VertexLayouts returns the vertex buffer layouts reflected from pure vertex input structs,
	// one per struct in source order. Fragment shaders return nil.
	//
	// Returns:
	//   - []wgpu.VertexBufferLayout: the reflected layouts
	VertexLayouts() []wgpu.VertexBufferLayout

	// BindGroupLayoutDescriptor returns the reflected layout descriptor of one bind group.
	//
	// Parameters:
	//   - group: the @group index
	//
	// Returns:
	//   - wgpu.BindGroupLayoutDescriptor: the descriptor, or an empty descriptor if the group is unused
	BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor

	// BindGroupLayoutDescriptors returns every reflected bind group layout descriptor keyed by group index.
	BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor

	// BindGroupVarName returns the WGSL variable declared at group/binding, or an empty string.
	//
	// Parameters:
	//   - group: the bind group index
	//   - binding: the binding index within the group
	//
	// Returns:
	//   - string: the variable name
	BindGroupVarName(group, binding int) string

	// BindGroupFromVarName looks up the binding index of a named variable within a group.
	//
	// Parameters:
	//   - group: the bind group index
	//   - varName: the WGSL variable name
	//
	// Returns:
	//   - int: the binding index, or -1 if not found
	//   - bool: true if the variable was found
	BindGroupFromVarName(group int, varName string) (int, bool)

	// Declarations returns the group and provider annotations collected while pre-processing,
	// in source order.
	Declarations() []Annotation

	// ProviderGroup returns the bind group index claimed by the first declaration naming the
	// given provider identity.
	//
	// Parameters:
	//   - identity: a provider identity such as AnnotationArgShadow
	//
	// Returns:
	//   - int: the group index, or -1 if no declaration names the provider
	ProviderGroup(identity AnnotationArg) int
}

var _ Shader = &shader{}

// NewShader reads WGSL source from disk and builds a Shader from it. It panics if the
// file cannot be read or the source fails to pre-process, matching the other engine
// constructors that are called during setup.
//
// Parameters:
//   - key: a unique identifier for the shader
//   - shaderType: the pipeline stage of the shader
//   - sourcePath: the file path to read WGSL source from
//
// Returns:
//   - Shader: the parsed shader
func NewShader(key string, shaderType ShaderType, sourcePath string) Shader {
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		panic(fmt.Sprintf("shader: failed to read source file %q: %v", sourcePath, err))
	}
	s, err := NewShaderFromSource(key, shaderType, string(data))
	if err != nil {
		panic(err.Error())
	}
	return s
}

// NewShaderFromSource pre-processes and reflects in-memory WGSL source, typically an
// embedded asset.
//
// Parameters:
//   - key: a unique identifier for the shader
//   - shaderType: the pipeline stage of the shader
//   - source: raw WGSL source, possibly containing @oxy annotations
//
// Returns:
//   - Shader: the parsed shader
//   - error: an error if pre-processing fails or no entry point for shaderType exists
func NewShaderFromSource(key string, shaderType ShaderType, source string) (Shader, error) {
	pp := NewPreProcessor()
	processed, err := pp.Process(source)
	if err != nil {
		return nil, fmt.Errorf("shader: pre-process %q: %w", key, err)
	}

	s := &shader{
		key:          key,
		source:       processed,
		shaderType:   shaderType,
		entryPoint:   parseEntryPoint(processed, shaderType),
		declarations: pp.Declarations(),
	}
	if s.entryPoint == "" {
		return nil, fmt.Errorf("shader: %q has no entry point for its stage", key)
	}

	visibility := wgpu.ShaderStageFragment
	if shaderType == ShaderTypeVertex {
		visibility = wgpu.ShaderStageVertex
		s.vertexLayouts = parseVertexLayouts(processed)
	}
	s.bindGroupLayoutDescriptors, s.bindingVarNames = parseBindGroupLayouts(processed, visibility)
	return s, nil
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) ShaderType() ShaderType {
	return s.shaderType
}

func (s *shader) EntryPoint() string {
	return s.entryPoint
}

func (s *shader) VertexLayouts() []wgpu.VertexBufferLayout {
	return s.vertexLayouts
}

func (s *shader) BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors[group]
}

func (s *shader) BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors
}

func (s *shader) BindGroupVarName(group, binding int) string {
	return s.bindingVarNames[group][binding]
}

func (s *shader) BindGroupFromVarName(group int, varName string) (int, bool) {
	for binding, name := range s.bindingVarNames[group] {
		if name == varName {
			return binding, true
		}
	}
	return -1, false
}

func (s *shader) Declarations() []Annotation {
	return s.declarations
}

func (s *shader) ProviderGroup(identity AnnotationArg) int {
	for _, d := range s.declarations {
		if d.Type == AnnotationTypeProvider && d.Group != nil && len(d.Args) > 0 && d.Args[0] == identity {
			return *d.Group
		}
	}
	return -1
}
