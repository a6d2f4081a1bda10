package light

import (
	"github.com/Carmen-Shannon/oxy-shadow/common"
	"github.com/chewxy/math32"
)

// LightType identifies the kind of light source.
type LightType int

const (
	// LightTypeDirectional represents a light with no position, only direction.
	// Its shadow is rendered with an orthographic projection centered on a target point.
	LightTypeDirectional LightType = iota

	// LightTypeSpot represents a light that emits in a cone from a position along a direction.
	// Its shadow is rendered with a perspective projection covering the outer cone.
	LightTypeSpot
)

// String returns the lowercase name of the light type.
func (t LightType) String() string {
	switch t {
	case LightTypeDirectional:
		return "directional"
	case LightTypeSpot:
		return "spot"
	}
	return "unknown"
}

// lightImpl is the implementation of the Light interface.
type lightImpl struct {
	lightType LightType
	position  [3]float32
	direction [3]float32
	target    [3]float32
	color     [3]float32
	intensity float32
	innerCone float32 // stored as cos(angle in radians)
	outerCone float32 // stored as cos(angle in radians)

	castsShadows     bool
	shadowNear       float32
	shadowFar        float32
	shadowHalfExtent float32
}

// Light defines the interface for a shadow-casting light source.
//
// A light provides the view and projection matrices its shadow map is rendered with.
// Type-specific properties return their stored value even when the light type ignores
// them (cone angles on a directional light, target on a spot light).
type Light interface {
	// Type returns the kind of light source.
	//
	// Returns:
	//   - LightType: directional or spot
	Type() LightType

	// Position returns the world-space position of the light. Directional lights ignore it.
	//
	// Returns:
	//   - [3]float32: position as (x, y, z)
	Position() [3]float32

	// Direction returns the normalized direction the light points toward.
	//
	// Returns:
	//   - [3]float32: normalized direction as (x, y, z)
	Direction() [3]float32

	// Target returns the world-space point a directional light's shadow frustum is centered on.
	//
	// Returns:
	//   - [3]float32: target as (x, y, z)
	Target() [3]float32

	// Color returns the RGB color of the light.
	Color() [3]float32

	// Intensity returns the scalar intensity multiplier of the light.
	Intensity() float32

	// InnerCone returns the cosine of the inner cone half-angle for spot lights.
	InnerCone() float32

	// OuterCone returns the cosine of the outer cone half-angle for spot lights.
	OuterCone() float32

	// CastsShadows reports whether a shadow map is rendered for this light.
	CastsShadows() bool

	// ShadowRange returns the near and far distances of the shadow projection.
	//
	// Returns:
	//   - near: the near plane distance
	//   - far: the far plane distance
	ShadowRange() (near, far float32)

	// ShadowHalfExtent returns the half-size in world units of a directional light's
	// orthographic shadow frustum.
	ShadowHalfExtent() float32

	// SetPosition sets the world-space position of the light.
	SetPosition(x, y, z float32)

	// SetDirection sets the direction of the light and normalizes it.
	SetDirection(x, y, z float32)

	// SetTarget sets the point a directional light's shadow frustum is centered on.
	SetTarget(x, y, z float32)

	// SetColor sets the RGB color of the light.
	SetColor(r, g, b float32)

	// SetIntensity sets the scalar intensity multiplier.
	SetIntensity(intensity float32)

	// SetSpotCone sets the inner and outer cone half-angles for spot lights.
	// Angles are specified in degrees and stored internally as cosines.
	//
	// Parameters:
	//   - innerDeg: inner cone half-angle in degrees
	//   - outerDeg: outer cone half-angle in degrees
	SetSpotCone(innerDeg, outerDeg float32)

	// SetCastsShadows sets whether a shadow map is rendered for this light.
	SetCastsShadows(castsShadows bool)

	// SetShadowRange sets the near and far distances of the shadow projection.
	SetShadowRange(near, far float32)

	// SetShadowHalfExtent sets the half-size of a directional light's shadow frustum.
	SetShadowHalfExtent(halfExtent float32)

	// ShadowView returns the view matrix the shadow map is rendered with.
	// Spot lights look from their position along their direction. Directional lights
	// look at their target from half the far distance behind it.
	//
	// Returns:
	//   - [16]float32: the column-major view matrix
	ShadowView() [16]float32

	// ShadowProjection returns the projection matrix the shadow map is rendered with.
	// Spot lights use a perspective projection whose vertical field of view is twice the
	// outer cone half-angle. Directional lights use an orthographic box of ShadowHalfExtent.
	//
	// Parameters:
	//   - aspect: the width/height ratio of the shadow map
	//
	// Returns:
	//   - [16]float32: the column-major projection matrix
	ShadowProjection(aspect float32) [16]float32
}

var _ Light = &lightImpl{}

// NewLight creates a new Light of the specified type with sensible defaults and
// any provided options applied.
//
// Parameters:
//   - lightType: the kind of light to create
//   - opts: variadic list of LightBuilderOption functions to configure the light
//
// Returns:
//   - Light: a new Light instance
func NewLight(lightType LightType, opts ...LightBuilderOption) Light {
	l := &lightImpl{
		lightType:        lightType,
		direction:        [3]float32{0, -1, 0},
		color:            [3]float32{1, 1, 1},
		intensity:        1.0,
		innerCone:        cosDeg(25),
		outerCone:        cosDeg(35),
		castsShadows:     true,
		shadowNear:       DefaultShadowNear,
		shadowFar:        DefaultShadowFar,
		shadowHalfExtent: DefaultShadowHalfExtent,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *lightImpl) Type() LightType {
	return l.lightType
}

func (l *lightImpl) Position() [3]float32 {
	return l.position
}

func (l *lightImpl) Direction() [3]float32 {
	return l.direction
}

func (l *lightImpl) Target() [3]float32 {
	return l.target
}

func (l *lightImpl) Color() [3]float32 {
	return l.color
}

func (l *lightImpl) Intensity() float32 {
	return l.intensity
}

func (l *lightImpl) InnerCone() float32 {
	return l.innerCone
}

func (l *lightImpl) OuterCone() float32 {
	return l.outerCone
}

func (l *lightImpl) CastsShadows() bool {
	return l.castsShadows
}

func (l *lightImpl) ShadowRange() (float32, float32) {
	return l.shadowNear, l.shadowFar
}

func (l *lightImpl) ShadowHalfExtent() float32 {
	return l.shadowHalfExtent
}

func (l *lightImpl) SetPosition(x, y, z float32) {
	l.position = [3]float32{x, y, z}
}

func (l *lightImpl) SetDirection(x, y, z float32) {
	l.direction = common.Normalize3([3]float32{x, y, z})
}

func (l *lightImpl) SetTarget(x, y, z float32) {
	l.target = [3]float32{x, y, z}
}

func (l *lightImpl) SetColor(r, g, b float32) {
	l.color = [3]float32{r, g, b}
}

func (l *lightImpl) SetIntensity(intensity float32) {
	l.intensity = intensity
}

func (l *lightImpl) SetSpotCone(innerDeg, outerDeg float32) {
	l.innerCone = cosDeg(innerDeg)
	l.outerCone = cosDeg(outerDeg)
}

func (l *lightImpl) SetCastsShadows(castsShadows bool) {
	l.castsShadows = castsShadows
}

func (l *lightImpl) SetShadowRange(near, far float32) {
	l.shadowNear, l.shadowFar = near, far
}

func (l *lightImpl) SetShadowHalfExtent(halfExtent float32) {
	l.shadowHalfExtent = halfExtent
}

func (l *lightImpl) ShadowView() [16]float32 {
	var eye, center [3]float32
	switch l.lightType {
	case LightTypeSpot:
		eye = l.position
		center = [3]float32{
			eye[0] + l.direction[0],
			eye[1] + l.direction[1],
			eye[2] + l.direction[2],
		}
	default:
		back := l.shadowFar * 0.5
		center = l.target
		eye = [3]float32{
			center[0] - l.direction[0]*back,
			center[1] - l.direction[1]*back,
			center[2] - l.direction[2]*back,
		}
	}

	var view [16]float32
	common.LookAt(view[:], eye, center, stableUp(l.direction))
	return view
}

func (l *lightImpl) ShadowProjection(aspect float32) [16]float32 {
	var proj [16]float32
	switch l.lightType {
	case LightTypeSpot:
		fovY := 2 * math32.Acos(l.outerCone)
		common.Perspective(proj[:], fovY, aspect, l.shadowNear, l.shadowFar)
	default:
		h := l.shadowHalfExtent
		common.Orthographic(proj[:], -h*aspect, h*aspect, -h, h, l.shadowNear, l.shadowFar)
	}
	return proj
}

// stableUp picks an up vector that is not parallel to dir.
func stableUp(dir [3]float32) [3]float32 {
	if math32.Abs(dir[1]) > 0.99 {
		return [3]float32{1, 0, 0}
	}
	return [3]float32{0, 1, 0}
}

func cosDeg(deg float32) float32 {
	return math32.Cos(deg * math32.Pi / 180)
}
