package scene

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-shadow/common"
	"github.com/Carmen-Shannon/oxy-shadow/engine/camera"
	"github.com/Carmen-Shannon/oxy-shadow/engine/depth_stencil"
	"github.com/Carmen-Shannon/oxy-shadow/engine/game_object"
	"github.com/Carmen-Shannon/oxy-shadow/engine/light"
	"github.com/Carmen-Shannon/oxy-shadow/engine/model"
	"github.com/Carmen-Shannon/oxy-shadow/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-shadow/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-shadow/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-shadow/engine/shadow_map"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type drawRecord struct {
	key           string
	mesh          string
	instanceCount uint32
	firstInstance uint32
	bindGroups    []string
}

type fakeDevice struct {
	pipelines  []pipeline.Pipeline
	meshInits  []string
	bindGroups []string
	sizes      map[string]map[int]uint64
	samplers   map[string]common.SamplerStagingData
	writes     []bind_group_provider.BufferWrite
	draws      []drawRecord
}

var _ Device = &fakeDevice{}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		sizes:    map[string]map[int]uint64{},
		samplers: map[string]common.SamplerStagingData{},
	}
}

func (d *fakeDevice) RegisterPipelines(pipelines ...pipeline.Pipeline) error {
	d.pipelines = append(d.pipelines, pipelines...)
	return nil
}

func (d *fakeDevice) InitMeshBuffers(provider bind_group_provider.BindGroupProvider, _, _ []byte, _ int) error {
	d.meshInits = append(d.meshInits, provider.Label())
	return nil
}

func (d *fakeDevice) InitBindGroup(provider bind_group_provider.BindGroupProvider, _ wgpu.BindGroupLayoutDescriptor, _ map[int]wgpu.BufferUsage, sizes map[int]uint64) error {
	d.bindGroups = append(d.bindGroups, provider.Label())
	d.sizes[provider.Label()] = sizes
	return nil
}

func (d *fakeDevice) InitSampler(provider bind_group_provider.BindGroupProvider, _ int, data common.SamplerStagingData) error {
	d.samplers[provider.Label()] = data
	return nil
}

func (d *fakeDevice) WriteBuffers(writes []bind_group_provider.BufferWrite) {
	for _, w := range writes {
		w.Data = append([]byte(nil), w.Data...)
		d.writes = append(d.writes, w)
	}
}

func (d *fakeDevice) DrawCall(key string, mesh bind_group_provider.BindGroupProvider, instanceCount, firstInstance uint32, bindGroups []bind_group_provider.BindGroupProvider) error {
	rec := drawRecord{key: key, mesh: mesh.Label(), instanceCount: instanceCount, firstInstance: firstInstance}
	for _, bg := range bindGroups {
		rec.bindGroups = append(rec.bindGroups, bg.Label())
	}
	d.draws = append(d.draws, rec)
	return nil
}

func (d *fakeDevice) writesTo(label string) []bind_group_provider.BufferWrite {
	var out []bind_group_provider.BufferWrite
	for _, w := range d.writes {
		if w.Provider.Label() == label {
			out = append(out, w)
		}
	}
	return out
}

type nullTextures struct{}

func (nullTextures) CreateDepthTexture(string, int, int, wgpu.TextureFormat) (*wgpu.TextureView, *wgpu.Texture, error) {
	return nil, nil, nil
}

func (nullTextures) ForgetDepthTexture(*wgpu.TextureView) {}

// fakeShadowMap records the pass the scene drives.
type fakeShadowMap struct {
	ds            depth_stencil.DepthStencil
	provider      bind_group_provider.BindGroupProvider
	textureMatrix [16]float32

	view, projection [16]float32
	worlds           [][16]float32
	draws            []string
	begins, ends     int
	active           bool
	drawErr          error
}

var _ shadow_map.ShadowMap = &fakeShadowMap{}

func newFakeShadowMap(t *testing.T) *fakeShadowMap {
	ds, err := depth_stencil.NewDepthStencil(nullTextures{}, 512, 256)
	require.NoError(t, err)
	var tm [16]float32
	common.Translation(tm[:], 0.25, 0.5, 0.75)
	return &fakeShadowMap{
		ds:            ds,
		provider:      bind_group_provider.NewBindGroupProvider("fake_shadow_map"),
		textureMatrix: tm,
	}
}

func (f *fakeShadowMap) Begin(view, projection [16]float32) error {
	f.begins++
	f.view, f.projection = view, projection
	f.active = true
	return nil
}

func (f *fakeShadowMap) SetWorldMatrix(world [16]float32) error {
	f.worlds = append(f.worlds, world)
	return nil
}

func (f *fakeShadowMap) Draw(mesh bind_group_provider.BindGroupProvider) error {
	if f.drawErr != nil {
		return f.drawErr
	}
	f.draws = append(f.draws, mesh.Label())
	return nil
}

func (f *fakeShadowMap) End() error {
	f.ends++
	f.active = false
	return nil
}

func (f *fakeShadowMap) Active() bool                                             { return f.active }
func (f *fakeShadowMap) DepthStencil() depth_stencil.DepthStencil                 { return f.ds }
func (f *fakeShadowMap) BindGroupProvider() bind_group_provider.BindGroupProvider { return f.provider }
func (f *fakeShadowMap) LinearProjection() [16]float32                            { return f.projection }
func (f *fakeShadowMap) TextureMatrix() [16]float32                               { return f.textureMatrix }
func (f *fakeShadowMap) MaxObjects() int                                          { return 1024 }
func (f *fakeShadowMap) Release()                                                 {}

func litShaders(t *testing.T) (shader.Shader, shader.Shader) {
	t.Helper()
	vs, fs, err := DefaultLitShaders()
	require.NoError(t, err)
	return vs, fs
}

func newLitScene(t *testing.T, d *fakeDevice, opts ...SceneBuilderOption) Scene {
	t.Helper()
	s := NewScene("s", camera.NewCamera(), d, append([]SceneBuilderOption{WithUpdateWorkers(2)}, opts...)...)
	vs, fs := litShaders(t)
	require.NoError(t, s.InitLitPipeline("lit", vs, fs))
	return s
}

func TestDefaultLitShaders(t *testing.T) {
	vs, fs := litShaders(t)

	layouts := vs.VertexLayouts()
	require.Len(t, layouts, 1)
	assert.Equal(t, uint64(24), layouts[0].ArrayStride)
	assert.Len(t, layouts[0].Attributes, 2)

	assert.Equal(t, "vs_lit", vs.EntryPoint())
	assert.Equal(t, "fs_lit", fs.EntryPoint())
	assert.Equal(t, 3, fs.ProviderGroup(shader.AnnotationArgShadow))
	assert.Equal(t, uint64(144), fs.BindGroupLayoutDescriptor(2).Entries[0].Buffer.MinBindingSize)
}

func TestNewScene_PanicsWithoutDependencies(t *testing.T) {
	assert.Panics(t, func() { NewScene("s", nil, newFakeDevice()) })
	assert.Panics(t, func() { NewScene("s", camera.NewCamera(), nil) })
}

func TestInitLitPipeline(t *testing.T) {
	d := newFakeDevice()
	cam := camera.NewCamera()
	sm := newFakeShadowMap(t)
	s := NewScene("s", cam, d, WithShadowMap(sm), WithMaxObjects(16))

	vs, fs := litShaders(t)
	require.NoError(t, s.InitLitPipeline("lit", vs, fs))

	require.Len(t, d.pipelines, 1)
	assert.Equal(t, "lit", d.pipelines[0].PipelineKey())
	assert.Equal(t, pipeline.PipelineTypeRender, d.pipelines[0].Type())

	camLabel := cam.BindGroupProvider().Label()
	assert.Equal(t, []string{camLabel, "s_models", "s_light", "s_shadow"}, d.bindGroups)
	assert.Equal(t, map[int]uint64{0: 16 * 64}, d.sizes["s_models"])
	assert.Equal(t, wgpu.CompareFunctionLess, d.samplers["s_shadow"].Compare)
}

func TestInitLitPipeline_RequiresShadowMap(t *testing.T) {
	s := NewScene("s", camera.NewCamera(), newFakeDevice())
	vs, fs := litShaders(t)
	assert.ErrorContains(t, s.InitLitPipeline("lit", vs, fs), "shadow map")
	assert.Error(t, s.InitLitPipeline("lit", vs, nil))
}

func TestAddGetRemove(t *testing.T) {
	d := newFakeDevice()
	s := NewScene("s", camera.NewCamera(), d)
	cube := model.NewCube("cube", 1)

	a := game_object.NewGameObject(game_object.WithModel(cube))
	b := game_object.NewGameObject(game_object.WithModel(cube))
	idA := s.Add(a)
	idB := s.Add(b)

	assert.Equal(t, uint64(1), idA)
	assert.Equal(t, uint64(2), idB)
	assert.Equal(t, []string{"cube_mesh"}, d.meshInits)
	assert.Same(t, a, s.Get(idA))
	assert.Equal(t, 2, s.Count())

	s.Remove(idA)
	s.Remove(99)
	assert.Nil(t, s.Get(idA))
	assert.Equal(t, []game_object.GameObject{b}, s.Objects())

	s.Clear()
	assert.Zero(t, s.Count())

	assert.Panics(t, func() { s.Add(game_object.NewGameObject()) })
}

func TestUpdateAndDrawCalls_BatchesByModel(t *testing.T) {
	d := newFakeDevice()
	s := newLitScene(t, d, WithShadowMap(newFakeShadowMap(t)))
	cube := model.NewCube("cube", 1)
	plane := model.NewPlane("plane", 10)

	c1 := game_object.NewGameObject(game_object.WithModel(cube), game_object.WithPosition(1, 0, 0))
	p := game_object.NewGameObject(game_object.WithModel(plane))
	c2 := game_object.NewGameObject(game_object.WithModel(cube), game_object.WithPosition(2, 0, 0))
	hidden := game_object.NewGameObject(game_object.WithModel(cube), game_object.WithEnabled(false))
	for _, obj := range []game_object.GameObject{c1, p, c2, hidden} {
		s.Add(obj)
	}

	s.Update(0.016)
	require.NoError(t, s.DrawCalls())

	groups := []string{s.Camera().BindGroupProvider().Label(), "s_models", "s_light", "s_shadow"}
	assert.Equal(t, []drawRecord{
		{key: "lit", mesh: "cube_mesh", instanceCount: 2, firstInstance: 0, bindGroups: groups},
		{key: "lit", mesh: "plane_mesh", instanceCount: 1, firstInstance: 2, bindGroups: groups},
	}, d.draws)

	worlds := d.writesTo("s_models")
	require.Len(t, worlds, 1)
	require.Len(t, worlds[0].Data, 3*64)
	first := model.GPUModelData{Model: c1.WorldMatrix()}
	second := model.GPUModelData{Model: c2.WorldMatrix()}
	assert.Equal(t, first.Marshal(), worlds[0].Data[:64])
	assert.Equal(t, second.Marshal(), worlds[0].Data[64:128])

	camWrites := d.writesTo(s.Camera().BindGroupProvider().Label())
	require.Len(t, camWrites, 1)
	uniform := s.Camera().GPUUniform()
	assert.Equal(t, uniform.Marshal(), camWrites[0].Data)
}

func TestUpdate_SpinsObjects(t *testing.T) {
	s := NewScene("s", camera.NewCamera(), newFakeDevice(), WithUpdateWorkers(3))
	cube := model.NewCube("cube", 1)

	var objs []game_object.GameObject
	for range 7 {
		obj := game_object.NewGameObject(game_object.WithModel(cube), game_object.WithRotationSpeed(0, 1, 0))
		s.Add(obj)
		objs = append(objs, obj)
	}

	s.Update(0.5)
	for _, obj := range objs {
		assert.InDelta(t, 0.5, obj.Transform().Rotation[1], 1e-6)
	}
}

func TestUpdate_Capacity(t *testing.T) {
	d := newFakeDevice()
	s := newLitScene(t, d, WithShadowMap(newFakeShadowMap(t)), WithMaxObjects(2))
	cube := model.NewCube("cube", 1)
	for range 3 {
		s.Add(game_object.NewGameObject(game_object.WithModel(cube)))
	}

	s.Update(0)
	require.NoError(t, s.DrawCalls())
	require.Len(t, d.draws, 1)
	assert.Equal(t, uint32(2), d.draws[0].instanceCount)
}

func TestRenderShadows(t *testing.T) {
	d := newFakeDevice()
	sm := newFakeShadowMap(t)
	sun := light.NewLight(light.LightTypeDirectional)
	ambient := [3]float32{0.2, 0.2, 0.2}
	s := newLitScene(t, d, WithShadowMap(sm), WithLight(sun), WithAmbientColor(ambient))

	cube := model.NewCube("cube", 1)
	ground := model.NewPlane("ground", 20)
	c := game_object.NewGameObject(game_object.WithModel(cube), game_object.WithPosition(0, 1, 0))
	s.Add(c)
	s.Add(game_object.NewGameObject(game_object.WithModel(ground), game_object.WithCastsShadows(false)))

	s.Update(0)
	require.NoError(t, s.RenderShadows())

	assert.Equal(t, 1, sm.begins)
	assert.Equal(t, 1, sm.ends)
	assert.Equal(t, sun.ShadowView(), sm.view)
	assert.Equal(t, sun.ShadowProjection(2), sm.projection)
	assert.Equal(t, [][16]float32{c.WorldMatrix()}, sm.worlds)
	assert.Equal(t, []string{"cube_mesh"}, sm.draws)

	lightWrites := d.writesTo("s_light")
	require.Len(t, lightWrites, 1)
	want := light.ToGPULight(sun, sm.textureMatrix, ambient, [2]int{512, 256})
	assert.Equal(t, want.Marshal(), lightWrites[0].Data)
}

func TestRenderShadows_NonCastingLight(t *testing.T) {
	d := newFakeDevice()
	sm := newFakeShadowMap(t)
	lamp := light.NewLight(light.LightTypeSpot)
	lamp.SetCastsShadows(false)
	s := newLitScene(t, d, WithShadowMap(sm), WithLight(lamp))

	require.NoError(t, s.RenderShadows())
	assert.Zero(t, sm.begins)

	lightWrites := d.writesTo("s_light")
	require.Len(t, lightWrites, 1)
	want := light.ToGPULight(lamp, common.Identity4(), s.AmbientColor(), [2]int{})
	assert.Equal(t, want.Marshal(), lightWrites[0].Data)
}

func TestRenderShadows_EndsPassOnError(t *testing.T) {
	sm := newFakeShadowMap(t)
	sm.drawErr = errors.New("boom")
	s := newLitScene(t, newFakeDevice(), WithShadowMap(sm), WithLight(light.NewLight(light.LightTypeDirectional)))
	s.Add(game_object.NewGameObject(game_object.WithModel(model.NewCube("cube", 1))))

	s.Update(0)
	assert.ErrorIs(t, s.RenderShadows(), sm.drawErr)
	assert.Equal(t, 1, sm.ends)
	assert.False(t, sm.Active())
}

func TestRenderShadows_NoLight(t *testing.T) {
	d := newFakeDevice()
	s := newLitScene(t, d, WithShadowMap(newFakeShadowMap(t)))
	require.NoError(t, s.RenderShadows())
	assert.Empty(t, d.writesTo("s_light"))
}

func TestDrawCalls_NotInitialized(t *testing.T) {
	s := NewScene("s", camera.NewCamera(), newFakeDevice())
	assert.ErrorContains(t, s.DrawCalls(), "not initialized")
}

func TestRelease(t *testing.T) {
	s := newLitScene(t, newFakeDevice(), WithShadowMap(newFakeShadowMap(t)))
	s.Release()
	assert.Error(t, s.DrawCalls())
}
