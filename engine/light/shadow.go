package light

// ShadowMapResolution is the default width and height in texels of the shadow
// depth texture.
const ShadowMapResolution = 2048

// DefaultShadowHalfExtent is the default orthographic half-extent (in world units)
// of a directional light's shadow frustum.
const DefaultShadowHalfExtent float32 = 20.0

// DefaultShadowNear is the default near plane of a light's shadow projection.
const DefaultShadowNear float32 = 0.5

// DefaultShadowFar is the default far plane of a light's shadow projection.
const DefaultShadowFar float32 = 100.0

// DefaultShadowBias is the constant bias subtracted from the reference depth in the
// lit pass's shadow comparison.
const DefaultShadowBias float32 = 0.002
