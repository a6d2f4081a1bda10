package shadow_map

import (
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-shadow/common"
	"github.com/Carmen-Shannon/oxy-shadow/engine/depth_stencil"
	"github.com/Carmen-Shannon/oxy-shadow/engine/light"
	"github.com/Carmen-Shannon/oxy-shadow/engine/model"
	"github.com/Carmen-Shannon/oxy-shadow/engine/renderer/bind_group_provider"
)

// Bindings of the per-map bind group (group 0 of the effect).
const (
	uniformBinding = 0
	worldsBinding  = 1
)

// DefaultMaxObjects is the number of world matrices one pass can set.
const DefaultMaxObjects = 1024

// depthClearValue is the depth every pass starts from.
const depthClearValue float32 = 1.0

var shadowMapCount atomic.Uint64

type shadowMap struct {
	mu *sync.Mutex

	label      string
	maxObjects int

	device       Device
	shared       *sharedResources
	depthStencil depth_stencil.DepthStencil
	provider     bind_group_provider.BindGroupProvider

	active        bool
	savedViewport common.Viewport
	nextSlot      int
	currentSlot   int

	view          [16]float32
	linear        [16]float32
	textureMatrix [16]float32

	released bool
}

// ShadowMap renders depth from a light's point of view into its own depth-stencil target.
//
// A pass is Begin, then any number of SetWorldMatrix and Draw calls, then End:
//
//	sm.Begin(light.ShadowView(), light.ShadowProjection(1))
//	for _, c := range casters {
//		sm.SetWorldMatrix(c.World())
//		sm.Draw(c.Mesh())
//	}
//	sm.End()
//
// ShadowMap is safe for concurrent use, though a pass is meant to be driven from one goroutine.
type ShadowMap interface {
	// Begin starts a depth pass. In order it binds the shadow vertex layout, clears depth to 1.0,
	// linearizes the projection, uploads the view and projection, binds the depth target as the only
	// render target, then saves the device viewport and applies the target's viewport.
	//
	// Parameters:
	//   - view: the light view matrix
	//   - projection: the light projection matrix, perspective or orthographic
	//
	// Returns:
	//   - error: ErrPassActive, ErrInvalidProjection, ErrNotInitialized, ErrReleased or a device error
	Begin(view, projection [16]float32) error

	// SetWorldMatrix sets the world matrix used by following draws.
	//
	// Parameters:
	//   - world: the object-to-world matrix
	//
	// Returns:
	//   - error: ErrPassNotActive outside a pass, ErrWorldCapacityExceeded when the slots run out
	SetWorldMatrix(world [16]float32) error

	// Draw draws a mesh with the current world matrix. Before any SetWorldMatrix in a pass the world
	// matrix is the identity.
	//
	// Parameters:
	//   - mesh: a provider holding vertex and index buffers whose vertices start with a float3 position
	//
	// Returns:
	//   - error: ErrPassNotActive outside a pass, or a device error
	Draw(mesh bind_group_provider.BindGroupProvider) error

	// End restores the viewport saved by Begin and unbinds the depth target.
	//
	// Returns:
	//   - error: ErrPassNotActive when no pass is open
	End() error

	// Active reports whether a pass is open.
	Active() bool

	// DepthStencil returns the depth target. Its TextureView is sampled by the lit pass.
	DepthStencil() depth_stencil.DepthStencil

	// BindGroupProvider returns the provider holding the view/projection uniform and world matrices.
	BindGroupProvider() bind_group_provider.BindGroupProvider

	// LinearProjection returns the linearized projection of the last Begin.
	LinearProjection() [16]float32

	// TextureMatrix returns ViewProjectionTextureMatrix of the last Begin's view and linearized
	// projection. Its z output equals the depth stored in the map.
	TextureMatrix() [16]float32

	// MaxObjects returns the number of world matrices one pass can set.
	MaxObjects() int

	// Release frees the depth target and the per-map buffers. An open pass is ended first.
	// Calling Release more than once is a no-op.
	Release()
}

var _ ShadowMap = &shadowMap{}

// NewShadowMap creates a shadow map with a width x height depth-stencil target. Init must have
// been called first.
//
// Parameters:
//   - device: the device used for resources and passes
//   - width: depth target width in texels
//   - height: depth target height in texels
//   - opts: ShadowMapBuilderOption values
//
// Returns:
//   - ShadowMap: the shadow map
//   - error: ErrNotInitialized, depth_stencil.ErrInvalidSize, or a wrapped device error
func NewShadowMap(device Device, width, height int, opts ...ShadowMapBuilderOption) (ShadowMap, error) {
	sh := currentShared()
	if sh == nil {
		return nil, ErrNotInitialized
	}

	s := &shadowMap{
		mu:          &sync.Mutex{},
		label:       "shadow_map_" + strconv.FormatUint(shadowMapCount.Add(1)-1, 10),
		maxObjects:  DefaultMaxObjects,
		device:      device,
		shared:      sh,
		currentSlot: -1,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxObjects <= 0 {
		return nil, fmt.Errorf("shadow_map: max objects must be positive, got %d", s.maxObjects)
	}

	ds, err := depth_stencil.NewDepthStencil(device, width, height, depth_stencil.WithLabel(s.label+" Depth"))
	if err != nil {
		return nil, fmt.Errorf("shadow_map: %w", err)
	}
	s.depthStencil = ds

	var worldSize model.GPUModelData
	s.provider = bind_group_provider.NewBindGroupProvider(s.label)
	sizes := map[int]uint64{worldsBinding: uint64(s.maxObjects * worldSize.Size())}
	if err := device.InitBindGroup(s.provider, sh.uniforms, nil, sizes); err != nil {
		ds.Release()
		s.provider.Release()
		return nil, fmt.Errorf("shadow_map: init bind group: %w", err)
	}

	s.view = common.Identity4()
	s.linear = common.Identity4()
	s.textureMatrix = ViewProjectionTextureMatrix(s.view, s.linear)

	common.Logger().Debug("shadow map created", "label", s.label, "width", width, "height", height, "max_objects", s.maxObjects)
	return s, nil
}

func (s *shadowMap) Begin(view, projection [16]float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released {
		return ErrReleased
	}
	if s.active {
		return ErrPassActive
	}
	if currentShared() != s.shared {
		return ErrNotInitialized
	}

	linear, err := LinearizeProjection(projection)
	if err != nil {
		return err
	}

	if err := s.device.UseDepthPipeline(PipelineKey); err != nil {
		return fmt.Errorf("shadow_map: bind vertex layout: %w", err)
	}
	target := s.depthStencil.TextureView()
	s.device.ClearDepth(target, depthClearValue)

	uniform := light.GPUShadowUniform{View: view, Projection: linear}
	s.device.WriteBuffers([]bind_group_provider.BufferWrite{{
		Provider: s.provider,
		Binding:  uniformBinding,
		Data:     uniform.Marshal(),
	}})

	if err := s.device.BeginDepthPass(target); err != nil {
		return fmt.Errorf("shadow_map: bind depth target: %w", err)
	}
	s.savedViewport = s.device.Viewport()
	s.depthStencil.SetViewport(s.device)

	s.view = view
	s.linear = linear
	s.textureMatrix = ViewProjectionTextureMatrix(view, linear)
	s.active = true
	s.nextSlot = 0
	s.currentSlot = -1
	return nil
}

func (s *shadowMap) SetWorldMatrix(world [16]float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setWorldMatrix(world)
}

// setWorldMatrix fills the next world slot. Caller must hold the mutex.
func (s *shadowMap) setWorldMatrix(world [16]float32) error {
	if !s.active {
		return ErrPassNotActive
	}
	if s.nextSlot >= s.maxObjects {
		return fmt.Errorf("%w: %d slots", ErrWorldCapacityExceeded, s.maxObjects)
	}

	data := model.GPUModelData{Model: world}
	s.device.WriteBuffers([]bind_group_provider.BufferWrite{{
		Provider: s.provider,
		Binding:  worldsBinding,
		Offset:   uint64(s.nextSlot * data.Size()),
		Data:     data.Marshal(),
	}})
	s.currentSlot = s.nextSlot
	s.nextSlot++
	return nil
}

func (s *shadowMap) Draw(mesh bind_group_provider.BindGroupProvider) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return ErrPassNotActive
	}
	if s.currentSlot < 0 {
		if err := s.setWorldMatrix(common.Identity4()); err != nil {
			return err
		}
	}

	bindGroups := []bind_group_provider.BindGroupProvider{s.provider}
	if err := s.device.DepthDrawCall(mesh, 1, uint32(s.currentSlot), bindGroups); err != nil {
		return fmt.Errorf("shadow_map: draw %q: %w", mesh.Label(), err)
	}
	return nil
}

func (s *shadowMap) End() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.end()
}

// end closes the open pass. Caller must hold the mutex.
func (s *shadowMap) end() error {
	if !s.active {
		return ErrPassNotActive
	}
	s.device.SetViewport(s.savedViewport)
	s.device.EndDepthPass()
	s.active = false

	common.Logger().Debug("shadow pass ended", "label", s.label, "world_slots", s.nextSlot)
	return nil
}

func (s *shadowMap) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *shadowMap) DepthStencil() depth_stencil.DepthStencil {
	return s.depthStencil
}

func (s *shadowMap) BindGroupProvider() bind_group_provider.BindGroupProvider {
	return s.provider
}

func (s *shadowMap) LinearProjection() [16]float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.linear
}

func (s *shadowMap) TextureMatrix() [16]float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.textureMatrix
}

func (s *shadowMap) MaxObjects() int {
	return s.maxObjects
}

func (s *shadowMap) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released {
		return
	}
	if s.active {
		_ = s.end()
	}
	s.depthStencil.Release()
	s.provider.Release()
	s.released = true
}
