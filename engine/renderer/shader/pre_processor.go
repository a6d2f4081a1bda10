// pre_processor.go implements the Oxy WGSL shader pre-processor. It scans shader
// source for @oxy: annotations, replaces them with generated WGSL declarations
// or injected struct source, and collects a declarations list that the scene uses to
// match bind groups to their providers.
//
// The pre-processor keeps two registries:
//   - structRegistry: maps AnnotationArg keys to embedded WGSL struct sources and their
//     WGSL type names. Used by @oxy:include and @oxy:group.
//   - addressSpaceRegistry: maps address space argument keys to WGSL var<> syntax.
package shader

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-shadow/engine/camera"
	"github.com/Carmen-Shannon/oxy-shadow/engine/light"
	"github.com/Carmen-Shannon/oxy-shadow/engine/model"
)

// registryEntry pairs an embedded WGSL struct source with the type name used in
// generated @group/@binding declarations.
type registryEntry struct {
	// Source is the raw WGSL struct definition injected by @oxy:include.
	Source string

	// Type is the WGSL type name emitted by @oxy:group (e.g. "ShadowUniform").
	Type string
}

// preProcessor is the implementation of the PreProcessor interface.
type preProcessor struct {
	structRegistry       map[AnnotationArg]registryEntry
	addressSpaceRegistry map[AnnotationArg]string

	// declarations accumulates group and provider annotations during Process.
	declarations []Annotation
}

// PreProcessor expands @oxy: annotations in WGSL source and records the bind group
// declarations it saw.
type PreProcessor interface {
	// Process replaces @oxy: annotations with their WGSL output. Include annotations are
	// replaced with the registered struct source, group annotations with a generated
	// @group/@binding declaration. Provider annotations produce no output.
	//
	// Declarations are reset at the start of each call.
	//
	// Parameters:
	//   - source: the raw WGSL source
	//
	// Returns:
	//   - string: the processed WGSL source
	//   - error: an error if any annotation is malformed
	Process(source string) (string, error)

	// Declarations returns the group and provider annotations collected by the most recent
	// Process call, in source order.
	//
	// Returns:
	//   - []Annotation: the collected declarations
	Declarations() []Annotation
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a PreProcessor with every engine GPU struct registered.
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor
func NewPreProcessor() PreProcessor {
	return &preProcessor{
		structRegistry: map[AnnotationArg]registryEntry{
			AnnotationArgCamera:         {Source: camera.GPUCameraUniformSource, Type: "CameraUniform"},
			annotationArgVertex:         {Source: model.GPUVertexSource, Type: "VertexInput"},
			annotationArgVertexPosition: {Source: model.GPUVertexPositionSource, Type: "VertexInput"},
			AnnotationArgModelData:      {Source: model.GPUModelDataSource, Type: "ModelData"},
			AnnotationArgLight:          {Source: light.GPULightSource, Type: "Light"},
			AnnotationArgShadowUniform:  {Source: light.GPUShadowUniformSource, Type: "ShadowUniform"},
		},
		addressSpaceRegistry: map[AnnotationArg]string{
			annotationArgStorageTypeUniform:   "var<uniform>",
			annotationArgStorageTypeRead:      "var<storage, read>",
			annotationArgStorageTypeReadWrite: "var<storage, read_write>",
		},
	}
}

func (p *preProcessor) Process(source string) (string, error) {
	p.declarations = nil

	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))

	for i, line := range lines {
		a, err := parseAnnotation(line, i+1)
		if err != nil {
			return "", err
		}
		if a == nil {
			out = append(out, line)
			continue
		}

		switch a.Type {
		case annotationTypeInclude:
			entry, ok := p.structRegistry[a.Args[0]]
			if !ok {
				return "", fmt.Errorf("line %d: unregistered @oxy include %q", i+1, a.Args[0])
			}
			out = append(out, entry.Source)
		case AnnotationTypeBindingGroup:
			typeArg := string(a.Args[2])
			entry, ok := p.structRegistry[AnnotationArg(arrayElement(typeArg))]
			if !ok {
				return "", fmt.Errorf("line %d: unregistered @oxy group type %q", i+1, typeArg)
			}
			wgslType := entry.Type
			if arrayElement(typeArg) != typeArg {
				wgslType = fmt.Sprintf("array<%s>", entry.Type)
			}
			out = append(out, fmt.Sprintf("@group(%d) @binding(%d) %s %s: %s;",
				*a.Group, *a.Binding, p.addressSpaceRegistry[a.Args[0]], a.Args[1], wgslType))
			p.declarations = append(p.declarations, *a)
		case AnnotationTypeProvider:
			p.declarations = append(p.declarations, *a)
		}
	}
	return strings.Join(out, "\n"), nil
}

func (p *preProcessor) Declarations() []Annotation {
	return p.declarations
}
