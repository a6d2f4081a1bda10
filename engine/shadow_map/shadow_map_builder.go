package shadow_map

// ShadowMapBuilderOption is a functional option applied to a shadow map during NewShadowMap.
type ShadowMapBuilderOption func(*shadowMap)

// WithMaxObjects sets how many world matrices one pass can set. Defaults to DefaultMaxObjects.
//
// Parameters:
//   - n: the slot count, must be positive
//
// Returns:
//   - ShadowMapBuilderOption: the option
func WithMaxObjects(n int) ShadowMapBuilderOption {
	return func(s *shadowMap) {
		s.maxObjects = n
	}
}

// WithLabel sets the debug label used for the map's GPU objects.
//
// Parameters:
//   - label: the label
//
// Returns:
//   - ShadowMapBuilderOption: the option
func WithLabel(label string) ShadowMapBuilderOption {
	return func(s *shadowMap) {
		s.label = label
	}
}
