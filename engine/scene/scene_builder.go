package scene

import (
	"github.com/Carmen-Shannon/oxy-shadow/engine/light"
	"github.com/Carmen-Shannon/oxy-shadow/engine/shadow_map"
)

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithActive sets whether the scene is active for rendering.
//
// Parameters:
//   - active: whether the scene is active
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithActive(active bool) SceneBuilderOption {
	return func(s *scene) {
		s.active = active
	}
}

// WithUpdateWorkers sets the number of worker goroutines used by Update.
// Defaults to runtime.NumCPU()-1.
//
// Parameters:
//   - n: the number of workers (minimum 1)
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithUpdateWorkers(n int) SceneBuilderOption {
	return func(s *scene) {
		if n < 1 {
			n = 1
		}
		s.updateWorkers = n
	}
}

// WithMaxObjects sets how many enabled objects the lit pass draws per frame. It sizes the world
// matrix buffer created by InitLitPipeline. Default is DefaultMaxObjects.
//
// Parameters:
//   - n: the object capacity (minimum 1)
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithMaxObjects(n int) SceneBuilderOption {
	return func(s *scene) {
		if n < 1 {
			n = 1
		}
		s.maxObjects = n
	}
}

// WithLight sets the scene's light.
//
// Parameters:
//   - l: the light
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithLight(l light.Light) SceneBuilderOption {
	return func(s *scene) {
		s.lt = l
	}
}

// WithAmbientColor sets the ambient RGB added to every fragment. Default is 0.1 grey.
//
// Parameters:
//   - color: the ambient color
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithAmbientColor(color [3]float32) SceneBuilderOption {
	return func(s *scene) {
		s.ambientColor = color
	}
}

// WithShadowMap sets the shadow map rendered from the light.
//
// Parameters:
//   - sm: the shadow map
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithShadowMap(sm shadow_map.ShadowMap) SceneBuilderOption {
	return func(s *scene) {
		s.sm = sm
	}
}
