package scene

import (
	_ "embed"
	"fmt"
	"runtime"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-shadow/common"
	"github.com/Carmen-Shannon/oxy-shadow/engine/camera"
	"github.com/Carmen-Shannon/oxy-shadow/engine/game_object"
	"github.com/Carmen-Shannon/oxy-shadow/engine/light"
	"github.com/Carmen-Shannon/oxy-shadow/engine/model"
	"github.com/Carmen-Shannon/oxy-shadow/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-shadow/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-shadow/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-shadow/engine/shadow_map"
	"github.com/cogentcore/webgpu/wgpu"
)

// DefaultMaxObjects is the default number of enabled objects a scene draws per frame.
const DefaultMaxObjects = 1024

//go:embed assets/lit_vertex.wgsl
var litVertexSource string

//go:embed assets/lit_fragment.wgsl
var litFragmentSource string

// Device is the part of the renderer a scene draws through. renderer.Renderer satisfies it.
type Device interface {
	RegisterPipelines(pipelines ...pipeline.Pipeline) error
	InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount int) error
	InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferUsageOverrides map[int]wgpu.BufferUsage, bufferSizeOverrides map[int]uint64) error
	InitSampler(provider bind_group_provider.BindGroupProvider, bindingKey int, samplerStagingData common.SamplerStagingData) error
	WriteBuffers(writes []bind_group_provider.BufferWrite)
	DrawCall(pipelineKey string, meshProvider bind_group_provider.BindGroupProvider, instanceCount, firstInstance uint32, bindGroups []bind_group_provider.BindGroupProvider) error
}

// Scene holds the objects, the light and the camera of one view, and drives the shadow pass
// and the lit pass over them. Objects sharing a Model are drawn as one instanced batch.
// Thread-safe for concurrent access.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// Active returns whether this scene is currently active for rendering.
	Active() bool

	// SetActive sets whether this scene is active for rendering.
	SetActive(active bool)

	// Camera returns the scene's camera.
	Camera() camera.Camera

	// Light returns the scene's light, or nil.
	Light() light.Light

	// SetLight replaces the scene's light.
	//
	// Parameters:
	//   - l: the light, or nil to render unlit except for ambient
	SetLight(l light.Light)

	// AmbientColor returns the ambient RGB added to every fragment.
	AmbientColor() [3]float32

	// SetAmbientColor sets the ambient RGB added to every fragment.
	//
	// Parameters:
	//   - color: the ambient color
	SetAmbientColor(color [3]float32)

	// ShadowMap returns the shadow map rendered from the light, or nil.
	ShadowMap() shadow_map.ShadowMap

	// SetShadowMap sets the shadow map rendered from the light. It must be set before
	// InitLitPipeline when the lit shaders sample a shadow map.
	//
	// Parameters:
	//   - sm: the shadow map
	SetShadowMap(sm shadow_map.ShadowMap)

	// Add adds an object to the scene and uploads its Model's mesh the first time the Model is seen.
	// Panics if the object has no Model or the mesh upload fails.
	//
	// Parameters:
	//   - obj: the object to add
	//
	// Returns:
	//   - uint64: the assigned object ID
	Add(obj game_object.GameObject) uint64

	// Get returns the object with the given ID, or nil.
	//
	// Parameters:
	//   - id: the object's ID
	//
	// Returns:
	//   - game_object.GameObject: the object or nil
	Get(id uint64) game_object.GameObject

	// Remove removes the object with the given ID. Unknown IDs are ignored.
	//
	// Parameters:
	//   - id: the object's ID
	Remove(id uint64)

	// Objects returns the scene's objects in insertion order.
	Objects() []game_object.GameObject

	// Count returns the number of objects in the scene.
	Count() int

	// Clear removes all objects. Does not release GPU resources.
	Clear()

	// InitLitPipeline registers the lit render pipeline and creates the bind groups its shaders
	// declare: camera, per-object world matrices, light, and shadow map sampling.
	//
	// Parameters:
	//   - key: the pipeline key
	//   - vertexShader: the lit vertex shader
	//   - fragmentShader: the lit fragment shader
	//   - opts: extra pipeline options
	//
	// Returns:
	//   - error: if a declared group has no provider or GPU resources cannot be created
	InitLitPipeline(key string, vertexShader, fragmentShader shader.Shader, opts ...pipeline.PipelineBuilderOption) error

	// Update advances every object by deltaTime on the scene's worker pool, then uploads the
	// camera uniform and the world matrices of the enabled objects.
	//
	// Parameters:
	//   - deltaTime: elapsed time since the last frame in seconds
	Update(deltaTime float32)

	// RenderShadows renders every shadow-casting object into the shadow map from the light's point
	// of view, then uploads the light uniform with the resulting texture matrix. Without a
	// shadow-casting light or a shadow map only the light uniform is uploaded.
	//
	// Returns:
	//   - error: a shadow pass error
	RenderShadows() error

	// DrawCalls issues one instanced draw per Model batch in the lit pass. Must be called within
	// a BeginFrame/EndFrame block on the renderer.
	//
	// Returns:
	//   - error: if the lit pipeline is not initialized or a draw call fails
	DrawCalls() error

	// Release frees the bind groups created by InitLitPipeline.
	Release()
}

// batch is a run of world matrix slots drawn with one Model.
type batch struct {
	mdl     model.Model
	first   uint32
	objects []game_object.GameObject
}

type scene struct {
	mu *sync.RWMutex

	name   string
	active bool

	cam camera.Camera
	r   Device

	registry   map[uint64]game_object.GameObject
	order      []uint64
	nextID     uint64
	meshReady  map[model.Model]bool
	maxObjects int

	lt           light.Light
	ambientColor [3]float32
	sm           shadow_map.ShadowMap

	// Lit pass state.
	litKey         string
	bindGroups     []bind_group_provider.BindGroupProvider
	modelsBGP      bind_group_provider.BindGroupProvider
	lightBGP       bind_group_provider.BindGroupProvider
	shadowBGP      bind_group_provider.BindGroupProvider
	cameraBinding  int
	modelsBinding  int
	lightBinding   int
	batches        []batch
	worldScratch   []byte
	warnedCapacity bool

	// updatePool runs per-object updates. Workers persist across frames.
	updatePool    worker.DynamicWorkerPool
	updateWorkers int
}

var _ Scene = &scene{}

// NewScene creates a Scene. cam and r are required and NewScene panics if either is nil.
//
// Parameters:
//   - name: the name of the scene
//   - cam: the camera to attach
//   - r: the device to draw through
//   - options: functional options to further configure the scene
//
// Returns:
//   - Scene: the newly created scene
func NewScene(name string, cam camera.Camera, r Device, options ...SceneBuilderOption) Scene {
	if cam == nil {
		panic("scene: NewScene requires a non-nil Camera")
	}
	if r == nil {
		panic("scene: NewScene requires a non-nil Device")
	}

	s := &scene{
		mu:            &sync.RWMutex{},
		name:          name,
		cam:           cam,
		r:             r,
		registry:      make(map[uint64]game_object.GameObject),
		nextID:        1,
		meshReady:     make(map[model.Model]bool),
		maxObjects:    DefaultMaxObjects,
		ambientColor:  [3]float32{0.1, 0.1, 0.1},
		updateWorkers: max(runtime.NumCPU()-1, 1),
	}

	for _, option := range options {
		option(s)
	}

	// Queue size of 256 leaves headroom over one task per worker.
	s.updatePool = worker.NewDynamicWorkerPool(s.updateWorkers, 256, 1*time.Second)
	return s
}

// DefaultLitShaders compiles the built-in lit vertex and fragment shaders. They draw one light
// with a shadow map lookup and expect GPUVertex buffers.
//
// Returns:
//   - vertex: the lit vertex shader
//   - fragment: the lit fragment shader
//   - err: a compile error
func DefaultLitShaders() (vertex, fragment shader.Shader, err error) {
	vertex, err = shader.NewShaderFromSource("lit_vertex", shader.ShaderTypeVertex, litVertexSource)
	if err != nil {
		return nil, nil, err
	}
	fragment, err = shader.NewShaderFromSource("lit_fragment", shader.ShaderTypeFragment, litFragmentSource)
	if err != nil {
		return nil, nil, err
	}
	return vertex, fragment, nil
}

func (s *scene) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *scene) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *scene) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
}

func (s *scene) Camera() camera.Camera {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cam
}

func (s *scene) Light() light.Light {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lt
}

func (s *scene) SetLight(l light.Light) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lt = l
}

func (s *scene) AmbientColor() [3]float32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ambientColor
}

func (s *scene) SetAmbientColor(color [3]float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ambientColor = color
}

func (s *scene) ShadowMap() shadow_map.ShadowMap {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sm
}

func (s *scene) SetShadowMap(sm shadow_map.ShadowMap) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sm = sm
}

func (s *scene) Add(obj game_object.GameObject) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	mdl := obj.Model()
	if mdl == nil {
		panic("scene: cannot Add a GameObject without a Model")
	}

	if !s.meshReady[mdl] {
		if mesh := mdl.MeshProvider(); mesh.VertexBuffer() == nil {
			if err := s.r.InitMeshBuffers(mesh, mdl.VertexData(), mdl.IndexData(), mdl.IndexCount()); err != nil {
				panic(fmt.Sprintf("scene: failed to init mesh buffers for model %q: %v", mdl.Name(), err))
			}
		}
		s.meshReady[mdl] = true
	}

	if obj.ID() == 0 {
		obj.SetID(atomic.AddUint64(&s.nextID, 1) - 1)
	}
	if _, exists := s.registry[obj.ID()]; !exists {
		s.order = append(s.order, obj.ID())
	}
	s.registry[obj.ID()] = obj
	return obj.ID()
}

func (s *scene) Get(id uint64) game_object.GameObject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry[id]
}

func (s *scene) Remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.registry[id]; !exists {
		return
	}
	delete(s.registry, id)
	if i := slices.Index(s.order, id); i >= 0 {
		s.order = slices.Delete(s.order, i, i+1)
	}
}

func (s *scene) Objects() []game_object.GameObject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.objectsLocked()
}

// objectsLocked returns the objects in insertion order. Caller must hold s.mu.
func (s *scene) objectsLocked() []game_object.GameObject {
	out := make([]game_object.GameObject, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.registry[id])
	}
	return out
}

func (s *scene) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.registry)
}

func (s *scene) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.registry = make(map[uint64]game_object.GameObject)
	s.order = nil
	s.batches = nil
}

func (s *scene) InitLitPipeline(key string, vertexShader, fragmentShader shader.Shader, opts ...pipeline.PipelineBuilderOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if vertexShader == nil || fragmentShader == nil {
		return fmt.Errorf("scene %q: lit pipeline needs vertex and fragment shaders", s.name)
	}

	roles := groupRoles(append(vertexShader.Declarations(), fragmentShader.Declarations()...))
	descriptors := mergedDescriptors(vertexShader, fragmentShader)

	maxGroup := -1
	for g := range descriptors {
		maxGroup = max(maxGroup, g)
	}
	bindGroups := make([]bind_group_provider.BindGroupProvider, maxGroup+1)

	for g := 0; g <= maxGroup; g++ {
		desc := descriptors[g]
		role, ok := roles[g]
		if !ok {
			return fmt.Errorf("scene %q: group %d has no known provider", s.name, g)
		}

		var bgp bind_group_provider.BindGroupProvider
		var sizes map[int]uint64
		switch role {
		case shader.AnnotationArgCamera:
			bgp = s.cam.BindGroupProvider()
			s.cameraBinding = firstBufferBinding(desc)

		case shader.AnnotationArgModel:
			bgp = bind_group_provider.NewBindGroupProvider(s.name + "_models")
			sizes = make(map[int]uint64)
			for _, entry := range desc.Entries {
				if entry.Buffer.Type == wgpu.BufferBindingTypeReadOnlyStorage || entry.Buffer.Type == wgpu.BufferBindingTypeStorage {
					sizes[int(entry.Binding)] = uint64(s.maxObjects) * entry.Buffer.MinBindingSize
				}
			}
			s.modelsBGP = bgp
			s.modelsBinding = firstBufferBinding(desc)

		case shader.AnnotationArgLights:
			bgp = bind_group_provider.NewBindGroupProvider(s.name + "_light")
			s.lightBGP = bgp
			s.lightBinding = firstBufferBinding(desc)

		case shader.AnnotationArgShadow:
			if s.sm == nil {
				return fmt.Errorf("scene %q: group %d samples a shadow map but none is set", s.name, g)
			}
			bgp = bind_group_provider.NewBindGroupProvider(s.name + "_shadow")
			for _, entry := range desc.Entries {
				binding := int(entry.Binding)
				switch {
				case entry.Texture.SampleType != wgpu.TextureSampleTypeUndefined:
					bgp.ShareTextureView(binding, s.sm.DepthStencil().TextureView())
				case entry.Sampler.Type != wgpu.SamplerBindingTypeUndefined:
					if err := s.r.InitSampler(bgp, binding, common.ComparisonSamplerStagingData()); err != nil {
						return fmt.Errorf("scene %q: shadow sampler: %w", s.name, err)
					}
				}
			}
			s.shadowBGP = bgp
		}

		if err := s.r.InitBindGroup(bgp, desc, nil, sizes); err != nil {
			return fmt.Errorf("scene %q: init %s bind group: %w", s.name, role, err)
		}
		bindGroups[g] = bgp
	}

	renderOpts := append([]pipeline.PipelineBuilderOption{
		pipeline.WithVertexShader(vertexShader),
		pipeline.WithFragmentShader(fragmentShader),
	}, opts...)
	if err := s.r.RegisterPipelines(pipeline.NewPipeline(key, pipeline.PipelineTypeRender, renderOpts...)); err != nil {
		return fmt.Errorf("scene %q: register lit pipeline: %w", s.name, err)
	}

	s.litKey = key
	s.bindGroups = bindGroups
	common.Logger().Info("lit pipeline ready", "scene", s.name, "pipeline", key, "groups", len(bindGroups))
	return nil
}

func (s *scene) Update(deltaTime float32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	objects := s.objectsLocked()

	// Fan per-object updates out over the pool in contiguous chunks. A WaitGroup is the
	// per-frame barrier; the pool's own Wait blocks until workers idle out.
	chunks := min(s.updateWorkers, len(objects))
	if chunks > 0 {
		var wg sync.WaitGroup
		size := (len(objects) + chunks - 1) / chunks
		for id, start := 0, 0; start < len(objects); id, start = id+1, start+size {
			part := objects[start:min(start+size, len(objects))]
			wg.Add(1)
			s.updatePool.SubmitTask(worker.Task{
				ID: id,
				Do: func() (any, error) {
					defer wg.Done()
					for _, obj := range part {
						if obj.Enabled() {
							obj.Update(deltaTime)
						}
					}
					return nil, nil
				},
			})
		}
		wg.Wait()
	}

	s.cam.Update()
	s.batches = s.buildBatches(objects)

	if s.litKey == "" {
		return
	}

	uniform := s.cam.GPUUniform()
	writes := []bind_group_provider.BufferWrite{{
		Provider: s.cam.BindGroupProvider(),
		Binding:  s.cameraBinding,
		Data:     uniform.Marshal(),
	}}

	if s.modelsBGP != nil && len(s.batches) > 0 {
		data := s.worldScratch[:0]
		for _, b := range s.batches {
			for _, obj := range b.objects {
				m := model.GPUModelData{Model: obj.WorldMatrix()}
				data = append(data, m.Marshal()...)
			}
		}
		s.worldScratch = data
		writes = append(writes, bind_group_provider.BufferWrite{
			Provider: s.modelsBGP,
			Binding:  s.modelsBinding,
			Data:     data,
		})
	}
	s.r.WriteBuffers(writes)
}

// buildBatches groups enabled objects by Model in first-seen order and assigns contiguous world
// slots. Objects past maxObjects are dropped. Caller must hold s.mu.
func (s *scene) buildBatches(objects []game_object.GameObject) []batch {
	var batches []batch
	index := make(map[model.Model]int)
	total := 0

	for _, obj := range objects {
		if !obj.Enabled() {
			continue
		}
		if total == s.maxObjects {
			if !s.warnedCapacity {
				common.Logger().Warn("scene object capacity reached, extra objects not drawn", "scene", s.name, "max_objects", s.maxObjects)
				s.warnedCapacity = true
			}
			break
		}
		mdl := obj.Model()
		i, ok := index[mdl]
		if !ok {
			i = len(batches)
			index[mdl] = i
			batches = append(batches, batch{mdl: mdl})
		}
		batches[i].objects = append(batches[i].objects, obj)
		total++
	}

	var first uint32
	for i := range batches {
		batches[i].first = first
		first += uint32(len(batches[i].objects))
	}
	return batches
}

func (s *scene) RenderShadows() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.lt == nil {
		return nil
	}

	textureMatrix := common.Identity4()
	var shadowSize [2]int

	if s.sm != nil && s.lt.CastsShadows() {
		ds := s.sm.DepthStencil()
		aspect := float32(ds.Width()) / float32(ds.Height())
		if err := s.sm.Begin(s.lt.ShadowView(), s.lt.ShadowProjection(aspect)); err != nil {
			return fmt.Errorf("scene %q: shadow pass: %w", s.name, err)
		}
		if err := s.drawCasters(); err != nil {
			_ = s.sm.End()
			return fmt.Errorf("scene %q: shadow pass: %w", s.name, err)
		}
		if err := s.sm.End(); err != nil {
			return fmt.Errorf("scene %q: shadow pass: %w", s.name, err)
		}
		textureMatrix = s.sm.TextureMatrix()
		shadowSize = [2]int{ds.Width(), ds.Height()}
	}

	if s.lightBGP != nil {
		gpuLight := light.ToGPULight(s.lt, textureMatrix, s.ambientColor, shadowSize)
		s.r.WriteBuffers([]bind_group_provider.BufferWrite{{
			Provider: s.lightBGP,
			Binding:  s.lightBinding,
			Data:     gpuLight.Marshal(),
		}})
	}
	return nil
}

// drawCasters draws every shadow-casting object into the open shadow pass. Caller must hold s.mu.
func (s *scene) drawCasters() error {
	for _, b := range s.batches {
		mesh := b.mdl.MeshProvider()
		for _, obj := range b.objects {
			if !obj.CastsShadows() {
				continue
			}
			if err := s.sm.SetWorldMatrix(obj.WorldMatrix()); err != nil {
				return err
			}
			if err := s.sm.Draw(mesh); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *scene) DrawCalls() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.litKey == "" {
		return fmt.Errorf("scene %q: lit pipeline not initialized", s.name)
	}

	for _, b := range s.batches {
		if err := s.r.DrawCall(s.litKey, b.mdl.MeshProvider(), uint32(len(b.objects)), b.first, s.bindGroups); err != nil {
			return fmt.Errorf("draw call failed for model %q in scene %q: %w", b.mdl.Name(), s.name, err)
		}
	}
	return nil
}

func (s *scene) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, bgp := range []bind_group_provider.BindGroupProvider{s.modelsBGP, s.lightBGP, s.shadowBGP} {
		if bgp != nil {
			bgp.Release()
		}
	}
	s.modelsBGP, s.lightBGP, s.shadowBGP = nil, nil, nil
	s.bindGroups = nil
	s.litKey = ""
}

// groupRoles maps each bind group index to the provider identity that owns it.
func groupRoles(decls []shader.Annotation) map[int]shader.AnnotationArg {
	roles := make(map[int]shader.AnnotationArg)
	for _, d := range decls {
		if d.Group == nil {
			continue
		}
		var role shader.AnnotationArg
		switch d.Type {
		case shader.AnnotationTypeProvider:
			role = d.Args[0]
		case shader.AnnotationTypeBindingGroup:
			switch shader.AnnotationArg(elementType(string(d.Args[2]))) {
			case shader.AnnotationArgCamera:
				role = shader.AnnotationArgCamera
			case shader.AnnotationArgModelData:
				role = shader.AnnotationArgModel
			case shader.AnnotationArgLight:
				role = shader.AnnotationArgLights
			}
		}
		if role != "" {
			if _, exists := roles[*d.Group]; !exists {
				roles[*d.Group] = role
			}
		}
	}
	return roles
}

// mergedDescriptors combines the bind group layouts of both stages, OR-ing the visibility of
// bindings both stages declare.
func mergedDescriptors(vertexShader, fragmentShader shader.Shader) map[int]wgpu.BindGroupLayoutDescriptor {
	merged := make(map[int]wgpu.BindGroupLayoutDescriptor)
	for g, desc := range vertexShader.BindGroupLayoutDescriptors() {
		merged[g] = desc
	}
	for g, fDesc := range fragmentShader.BindGroupLayoutDescriptors() {
		vDesc, ok := merged[g]
		if !ok {
			merged[g] = fDesc
			continue
		}
		entries := slices.Clone(vDesc.Entries)
		for _, fe := range fDesc.Entries {
			i := slices.IndexFunc(entries, func(e wgpu.BindGroupLayoutEntry) bool { return e.Binding == fe.Binding })
			if i >= 0 {
				entries[i].Visibility |= fe.Visibility
			} else {
				entries = append(entries, fe)
			}
		}
		slices.SortFunc(entries, func(a, b wgpu.BindGroupLayoutEntry) int { return int(a.Binding) - int(b.Binding) })
		merged[g] = wgpu.BindGroupLayoutDescriptor{Label: vDesc.Label, Entries: entries}
	}
	return merged
}

func firstBufferBinding(desc wgpu.BindGroupLayoutDescriptor) int {
	for _, entry := range desc.Entries {
		if entry.Buffer.Type != wgpu.BufferBindingTypeUndefined {
			return int(entry.Binding)
		}
	}
	return 0
}

func elementType(typeArg string) string {
	if inner, ok := strings.CutPrefix(typeArg, "array<"); ok {
		return strings.TrimSuffix(inner, ">")
	}
	return typeArg
}
