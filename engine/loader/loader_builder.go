package loader

import (
	"github.com/Carmen-Shannon/oxy-shadow/common"
	"github.com/Carmen-Shannon/oxy-shadow/engine/model"
)

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithScale scales every imported mesh uniformly, on top of the file's node transforms.
//
// Parameters:
//   - s: the scale factor
//
// Returns:
//   - LoaderBuilderOption: a function that applies the scale to a loader
func WithScale(s float32) LoaderBuilderOption {
	return func(l *loader) {
		common.Scaling(l.root[:], s, s, s)
	}
}

// WithModel pre-populates the model cache.
//
// Parameters:
//   - key: the cache key for the model
//   - m: the model to cache
//
// Returns:
//   - LoaderBuilderOption: a function that applies the model option to a loader
func WithModel(key string, m model.Model) LoaderBuilderOption {
	return func(l *loader) {
		l.modelCache[key] = m
	}
}
