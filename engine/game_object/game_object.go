package game_object

import (
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-shadow/engine/model"
)

type gameObject struct {
	mu *sync.RWMutex

	id           uint64
	enabled      atomic.Bool
	castsShadows bool
	mdl          model.Model

	transform     model.Transform
	rotationSpeed [3]float32
	world         [16]float32
}

// GameObject is a scene entity: a Model placed in the world by a Transform, optionally spinning
// and optionally casting shadows. Safe for concurrent use.
type GameObject interface {
	// ID returns the object's unique identifier.
	//
	// Returns:
	//   - uint64: the object ID, 0 until the object is added to a scene
	ID() uint64

	// Enabled returns whether this object is drawn.
	//
	// Returns:
	//   - bool: true if enabled
	Enabled() bool

	// CastsShadows returns whether this object is drawn into shadow maps.
	//
	// Returns:
	//   - bool: true if the object casts shadows
	CastsShadows() bool

	// Model returns the Model drawn for this object, or nil if not set.
	//
	// Returns:
	//   - model.Model: the associated model or nil
	Model() model.Model

	// Transform returns the object's current transform.
	//
	// Returns:
	//   - model.Transform: position, rotation and scale
	Transform() model.Transform

	// RotationSpeed returns the angular velocity in radians per second around X, Y and Z.
	//
	// Returns:
	//   - [3]float32: the angular velocity
	RotationSpeed() [3]float32

	// WorldMatrix returns the cached model-to-world matrix of the current transform.
	//
	// Returns:
	//   - [16]float32: the world matrix
	WorldMatrix() [16]float32

	// Update advances the rotation by RotationSpeed * deltaTime and refreshes the world matrix.
	//
	// Parameters:
	//   - deltaTime: elapsed time in seconds
	Update(deltaTime float32)

	// SetID sets the object's unique identifier.
	//
	// Parameters:
	//   - id: the ID to assign
	SetID(id uint64)

	// SetEnabled sets whether the object is drawn.
	//
	// Parameters:
	//   - enabled: true to enable
	SetEnabled(enabled bool)

	// SetCastsShadows sets whether the object is drawn into shadow maps.
	//
	// Parameters:
	//   - casts: true to cast shadows
	SetCastsShadows(casts bool)

	// SetModel assigns a Model to this object.
	//
	// Parameters:
	//   - m: the Model to associate
	SetModel(m model.Model)

	// SetTransform replaces the transform and refreshes the world matrix.
	//
	// Parameters:
	//   - t: the new transform
	SetTransform(t model.Transform)

	// SetPosition moves the object, keeping rotation and scale.
	//
	// Parameters:
	//   - x, y, z: new position components
	SetPosition(x, y, z float32)

	// SetRotationSpeed sets the angular velocity in radians per second.
	//
	// Parameters:
	//   - rx, ry, rz: angular velocity around each axis
	SetRotationSpeed(rx, ry, rz float32)
}

var _ GameObject = &gameObject{}

// NewGameObject creates a GameObject. Objects start enabled, at the origin with unit scale, and
// casting shadows.
//
// Parameters:
//   - options: GameObjectBuilderOption values
//
// Returns:
//   - GameObject: the new object
func NewGameObject(options ...GameObjectBuilderOption) GameObject {
	g := &gameObject{
		mu:           &sync.RWMutex{},
		castsShadows: true,
		transform:    model.NewTransform(0, 0, 0),
	}
	g.enabled.Store(true)

	for _, opt := range options {
		opt(g)
	}
	g.world = g.transform.WorldMatrix()
	return g
}

func (g *gameObject) ID() uint64 {
	return atomic.LoadUint64(&g.id)
}

func (g *gameObject) Enabled() bool {
	return g.enabled.Load()
}

func (g *gameObject) CastsShadows() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.castsShadows
}

func (g *gameObject) Model() model.Model {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.mdl
}

func (g *gameObject) Transform() model.Transform {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.transform
}

func (g *gameObject) RotationSpeed() [3]float32 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.rotationSpeed
}

func (g *gameObject) WorldMatrix() [16]float32 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.world
}

func (g *gameObject) Update(deltaTime float32) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.rotationSpeed == [3]float32{} {
		return
	}
	for i := range 3 {
		g.transform.Rotation[i] += g.rotationSpeed[i] * deltaTime
	}
	g.world = g.transform.WorldMatrix()
}

func (g *gameObject) SetID(id uint64) {
	atomic.StoreUint64(&g.id, id)
}

func (g *gameObject) SetEnabled(enabled bool) {
	g.enabled.Store(enabled)
}

func (g *gameObject) SetCastsShadows(casts bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.castsShadows = casts
}

func (g *gameObject) SetModel(m model.Model) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.mdl = m
}

func (g *gameObject) SetTransform(t model.Transform) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.transform = t
	g.world = t.WorldMatrix()
}

func (g *gameObject) SetPosition(x, y, z float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.transform.Position = [3]float32{x, y, z}
	g.world = g.transform.WorldMatrix()
}

func (g *gameObject) SetRotationSpeed(rx, ry, rz float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rotationSpeed = [3]float32{rx, ry, rz}
}
