// annotations.go defines the @oxy annotation grammar understood by the WGSL pre-processor.
// Annotations are single-line WGSL comments that inject registered struct sources,
// generate bind group declarations, or tag hand-written bindings with the provider
// that owns them.
package shader

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// annotationPrefix marks an annotation inside a WGSL line comment.
const annotationPrefix = "@oxy:"

// AnnotationType identifies the kind of annotation parsed from a WGSL comment line.
type AnnotationType string

const (
	// annotationTypeInclude injects a registered struct definition at the annotation site.
	//
	// Syntax: //@oxy:include <struct_type>
	annotationTypeInclude AnnotationType = "include"

	// AnnotationTypeBindingGroup generates a @group/@binding variable declaration for a
	// registered struct type and records the declaration.
	//
	// Syntax: //@oxy:group <group> <binding> <address_space> <var_name> <type>
	//
	// Example: //@oxy:group 0 1 storage_read worlds array<model_data>
	AnnotationTypeBindingGroup AnnotationType = "group"

	// AnnotationTypeProvider tags the hand-written binding below it with the provider that owns
	// its group. No WGSL is generated. An optional binding role names the binding's purpose.
	//
	// Syntax: //@oxy:provider <group> <binding> <provider_identity> [binding_role]
	//
	// Example: //@oxy:provider 2 0 shadow shadow_texture
	AnnotationTypeProvider AnnotationType = "provider"
)

// Annotation is a single parsed @oxy annotation.
type Annotation struct {
	// Type identifies which annotation was parsed.
	Type AnnotationType

	// Args depend on Type:
	//   - include:  [0] = struct type key
	//   - group:    [0] = address space, [1] = var name, [2] = struct type key (optionally array<...>)
	//   - provider: [0] = provider identity, [1] = binding role (optional)
	Args []AnnotationArg

	// Line is the 1-based source line of the annotation.
	Line int

	// Group is the @group index for group and provider annotations. Nil for include annotations.
	Group *int

	// Binding is the @binding index for group and provider annotations. Nil for include annotations.
	Binding *int
}

// AnnotationArg is a typed annotation argument.
type AnnotationArg string

// Struct type arguments. Each maps to a Go GPU type with an embedded .wgsl source.
const (
	// AnnotationArgCamera identifies the CameraUniform struct (engine/camera/assets/camera_uniform.wgsl).
	AnnotationArgCamera AnnotationArg = "camera"

	// annotationArgVertex identifies the position+normal VertexInput struct (engine/model/assets/vertex.wgsl).
	annotationArgVertex AnnotationArg = "vertex"

	// annotationArgVertexPosition identifies the POSITION-only VertexInput struct
	// (engine/model/assets/vertex_position.wgsl).
	annotationArgVertexPosition AnnotationArg = "vertex_position"

	// AnnotationArgModelData identifies the ModelData struct holding one world matrix
	// (engine/model/assets/model_data.wgsl).
	AnnotationArgModelData AnnotationArg = "model_data"

	// AnnotationArgLight identifies the Light struct read by the lit pass (engine/light/assets/light.wgsl).
	AnnotationArgLight AnnotationArg = "light"

	// AnnotationArgShadowUniform identifies the ShadowUniform struct holding the light's view and
	// linearized projection (engine/light/assets/shadow_uniform.wgsl).
	AnnotationArgShadowUniform AnnotationArg = "shadow_uniform"
)

// Address space arguments for group annotations.
const (
	annotationArgStorageTypeUniform   AnnotationArg = "storage_uniform"
	annotationArgStorageTypeRead      AnnotationArg = "storage_read"
	annotationArgStorageTypeReadWrite AnnotationArg = "storage_read_write"
)

// Provider identity arguments. The scene matches these against its own providers when
// assembling the bind groups of a draw call.
const (
	// AnnotationArgLights identifies the light uniform provider.
	AnnotationArgLights AnnotationArg = "lights"

	// AnnotationArgShadow identifies the shadow map provider (depth texture and comparison sampler).
	AnnotationArgShadow AnnotationArg = "shadow"

	// AnnotationArgModel identifies the per-object world matrix provider.
	AnnotationArgModel AnnotationArg = "model"
)

// Binding role arguments for provider annotations.
const (
	// AnnotationArgShadowTexture marks the sampled shadow depth texture.
	AnnotationArgShadowTexture AnnotationArg = "shadow_texture"

	// AnnotationArgShadowSampler marks the comparison sampler used with the shadow depth texture.
	AnnotationArgShadowSampler AnnotationArg = "shadow_sampler"
)

var validStructTypes = []AnnotationArg{
	AnnotationArgCamera,
	annotationArgVertex,
	annotationArgVertexPosition,
	AnnotationArgModelData,
	AnnotationArgLight,
	AnnotationArgShadowUniform,
}

var validAddressSpaces = []AnnotationArg{
	annotationArgStorageTypeUniform,
	annotationArgStorageTypeRead,
	annotationArgStorageTypeReadWrite,
}

var validProviderIdentities = []AnnotationArg{
	AnnotationArgCamera,
	AnnotationArgLights,
	AnnotationArgShadow,
	AnnotationArgModel,
}

var validBindingRoles = []AnnotationArg{
	AnnotationArgShadowTexture,
	AnnotationArgShadowSampler,
}

// parseAnnotation parses one WGSL source line. Lines without the annotation prefix yield
// (nil, nil); lines with the prefix but a malformed body yield an error.
//
// Parameters:
//   - line: the raw WGSL source line
//   - lineNum: the 1-based line number used in errors
//
// Returns:
//   - *Annotation: the parsed annotation, or nil
//   - error: a descriptive error for malformed annotations
func parseAnnotation(line string, lineNum int) (*Annotation, error) {
	_, body, ok := strings.Cut(strings.TrimSpace(line), annotationPrefix)
	if !ok {
		return nil, nil
	}

	args := strings.Fields(body)
	if len(args) == 0 {
		return nil, fmt.Errorf("line %d: empty @oxy annotation", lineNum)
	}

	switch AnnotationType(args[0]) {
	case annotationTypeInclude:
		if len(args) != 2 {
			return nil, fmt.Errorf("line %d: @oxy include takes exactly one struct type", lineNum)
		}
		if !slices.Contains(validStructTypes, AnnotationArg(args[1])) {
			return nil, fmt.Errorf("line %d: unknown struct type %q in @oxy include", lineNum, args[1])
		}
		return &Annotation{Type: annotationTypeInclude, Args: []AnnotationArg{AnnotationArg(args[1])}, Line: lineNum}, nil

	case AnnotationTypeBindingGroup:
		if len(args) != 6 {
			return nil, fmt.Errorf("line %d: @oxy group takes group, binding, address space, name and type", lineNum)
		}
		group, binding, err := parseGroupBinding(args[1], args[2], lineNum)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(validAddressSpaces, AnnotationArg(args[3])) {
			return nil, fmt.Errorf("line %d: unknown address space %q in @oxy group", lineNum, args[3])
		}
		if elem := arrayElement(args[5]); !slices.Contains(validStructTypes, AnnotationArg(elem)) {
			return nil, fmt.Errorf("line %d: unknown struct type %q in @oxy group", lineNum, elem)
		}
		return &Annotation{
			Type:    AnnotationTypeBindingGroup,
			Args:    []AnnotationArg{AnnotationArg(args[3]), AnnotationArg(args[4]), AnnotationArg(args[5])},
			Line:    lineNum,
			Group:   &group,
			Binding: &binding,
		}, nil

	case AnnotationTypeProvider:
		if len(args) < 4 || len(args) > 5 {
			return nil, fmt.Errorf("line %d: @oxy provider takes group, binding, identity and an optional role", lineNum)
		}
		group, binding, err := parseGroupBinding(args[1], args[2], lineNum)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(validProviderIdentities, AnnotationArg(args[3])) {
			return nil, fmt.Errorf("line %d: unknown provider identity %q in @oxy provider", lineNum, args[3])
		}
		providerArgs := []AnnotationArg{AnnotationArg(args[3])}
		if len(args) == 5 {
			if !slices.Contains(validBindingRoles, AnnotationArg(args[4])) {
				return nil, fmt.Errorf("line %d: unknown binding role %q in @oxy provider", lineNum, args[4])
			}
			providerArgs = append(providerArgs, AnnotationArg(args[4]))
		}
		return &Annotation{
			Type:    AnnotationTypeProvider,
			Args:    providerArgs,
			Line:    lineNum,
			Group:   &group,
			Binding: &binding,
		}, nil
	}

	return nil, fmt.Errorf("line %d: unknown @oxy annotation type %q", lineNum, args[0])
}

func parseGroupBinding(groupArg, bindingArg string, lineNum int) (int, int, error) {
	group, err := strconv.Atoi(groupArg)
	if err != nil || group < 0 {
		return 0, 0, fmt.Errorf("line %d: invalid group index %q", lineNum, groupArg)
	}
	binding, err := strconv.Atoi(bindingArg)
	if err != nil || binding < 0 {
		return 0, 0, fmt.Errorf("line %d: invalid binding index %q", lineNum, bindingArg)
	}
	return group, binding, nil
}

// arrayElement strips an array<...> wrapper from a type argument.
func arrayElement(typeArg string) string {
	if inner, ok := strings.CutPrefix(typeArg, "array<"); ok {
		return strings.TrimSuffix(inner, ">")
	}
	return typeArg
}
