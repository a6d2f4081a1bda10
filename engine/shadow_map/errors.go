package shadow_map

import "errors"

var (
	// ErrNotInitialized is returned when shadow maps are used before Init or after Release.
	ErrNotInitialized = errors.New("shadow_map: shared resources not initialized")

	// ErrPassActive is returned by Begin when the previous pass has not been ended.
	ErrPassActive = errors.New("shadow_map: pass already active")

	// ErrPassNotActive is returned by SetWorldMatrix, Draw and End outside Begin/End.
	ErrPassNotActive = errors.New("shadow_map: no active pass")

	// ErrWorldCapacityExceeded is returned when a pass sets more world matrices than the map holds.
	ErrWorldCapacityExceeded = errors.New("shadow_map: world matrix capacity exceeded")

	// ErrInvalidProjection is returned when a projection matrix has no usable depth range.
	ErrInvalidProjection = errors.New("shadow_map: projection cannot be linearized")

	// ErrReleased is returned by operations on a released shadow map.
	ErrReleased = errors.New("shadow_map: shadow map released")
)
