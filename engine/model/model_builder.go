package model

import (
	"github.com/Carmen-Shannon/oxy-shadow/engine/renderer/bind_group_provider"
)

// ModelBuilderOption is a function that configures a Model instance during construction.
type ModelBuilderOption func(*model)

// WithName is an option builder that sets the model identifier.
//
// Parameters:
//   - name: the model name
//
// Returns:
//   - ModelBuilderOption: a function that applies the name option to a model
func WithName(name string) ModelBuilderOption {
	return func(m *model) {
		m.name = name
	}
}

// WithMesh is an option builder that sets the model's vertices and indices. The vertex
// and index data, the index count and the bounding radius are derived from them.
//
// Parameters:
//   - vertices: the mesh vertices
//   - indices: the triangle indices
//
// Returns:
//   - ModelBuilderOption: a function that applies the mesh option to a model
func WithMesh(vertices []GPUVertex, indices []uint32) ModelBuilderOption {
	return func(m *model) {
		m.vertices = vertices
		m.vertexData = MarshalVertices(vertices)
		m.indexData = MarshalIndices(indices)
		m.indexCount = len(indices)
		m.boundingRadius = ComputeBoundingRadius(vertices)
	}
}

// WithMeshProvider is an option builder that sets the BindGroupProvider that will hold
// the model's vertex and index buffers.
//
// Parameters:
//   - provider: the mesh provider
//
// Returns:
//   - ModelBuilderOption: a function that applies the mesh provider option to a model
func WithMeshProvider(provider bind_group_provider.BindGroupProvider) ModelBuilderOption {
	return func(m *model) {
		m.meshProvider = provider
	}
}

// WithBoundingRadius is an option builder that overrides the bounding radius derived by WithMesh.
// Apply it after WithMesh.
//
// Parameters:
//   - radius: the bounding radius to set
//
// Returns:
//   - ModelBuilderOption: a function that applies the bounding radius option to a model
func WithBoundingRadius(radius float32) ModelBuilderOption {
	return func(m *model) {
		m.boundingRadius = radius
	}
}
