package model

import (
	"github.com/Carmen-Shannon/oxy-shadow/common"
)

// Transform places a model instance in the world.
type Transform struct {
	// Position is the world-space translation.
	Position [3]float32

	// Rotation holds Euler angles in radians around X, Y and Z.
	Rotation [3]float32

	// Scale is the scale factor along each axis.
	Scale [3]float32
}

// NewTransform returns a Transform at the given position with no rotation and unit scale.
//
// Parameters:
//   - x, y, z: the world-space position
//
// Returns:
//   - Transform: the transform
func NewTransform(x, y, z float32) Transform {
	return Transform{
		Position: [3]float32{x, y, z},
		Scale:    [3]float32{1, 1, 1},
	}
}

// WorldMatrix builds the column-major model-to-world matrix of the transform.
//
// Returns:
//   - [16]float32: the world matrix
func (t Transform) WorldMatrix() [16]float32 {
	var m [16]float32
	common.BuildModelMatrix(m[:], t.Position, t.Rotation, t.Scale)
	return m
}
