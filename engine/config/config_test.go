package config

import (
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-shadow/engine/light"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoad_TOMLOverridesDefaults(t *testing.T) {
	path := writeFile(t, "demo.toml", `
[shadow]
width = 1024
height = 512
cull_mode = "back"

[light]
type = "spot"
position = [0.0, 8.0, 0.0]

[scene]
grid_size = 3
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 1024, cfg.Shadow.Width)
	assert.Equal(t, 512, cfg.Shadow.Height)
	assert.Equal(t, "back", cfg.Shadow.CullMode)
	assert.Equal(t, "spot", cfg.Light.Type)
	assert.Equal(t, []float32{0, 8, 0}, cfg.Light.Position)
	assert.Equal(t, 3, cfg.Scene.GridSize)

	def := Default()
	assert.Equal(t, def.Window, cfg.Window)
	assert.Equal(t, def.Shadow.MaxObjects, cfg.Shadow.MaxObjects)
	assert.Equal(t, def.Light.Direction, cfg.Light.Direction)
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "demo.yml", `
window:
  title: yaml shadows
shadow:
  depth_bias: 4
  slope_scale: 1.5
engine:
  log_level: debug
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "yaml shadows", cfg.Window.Title)
	assert.Equal(t, int32(4), cfg.Shadow.DepthBias)
	assert.Equal(t, float32(1.5), cfg.Shadow.SlopeScale)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel())
}

func TestLoad_EmptyYAMLKeepsDefaults(t *testing.T) {
	cfg, err := Load(writeFile(t, "empty.yaml", ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		is      error
	}{
		{name: "unsupported extension", file: "demo.json", content: "{}", is: ErrUnsupportedFormat},
		{name: "invalid value", file: "demo.toml", content: "[shadow]\nwidth = 0\n", is: ErrInvalid},
		{name: "malformed toml", file: "demo.toml", content: "[shadow\n"},
		{name: "unknown yaml field", file: "demo.yaml", content: "shadow:\n  resolution: 4\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.file, tt.content))
			require.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.Shadow.CullMode = "sideways"
	cfg.Light.Type = "point"
	cfg.Light.Color = []float32{1, 1}
	cfg.Light.ShadowFar = cfg.Light.ShadowNear
	cfg.Renderer.MSAA = 2

	err := cfg.Validate()
	require.ErrorIs(t, err, ErrInvalid)
	for _, want := range []string{"shadow.cull_mode", "light.type", "light.color", "shadow range", "renderer.msaa"} {
		assert.ErrorContains(t, err, want)
	}
}

func TestValidate_SceneMustFitShadowCapacity(t *testing.T) {
	cfg := Default()
	cfg.Shadow.MaxObjects = 10
	cfg.Scene.GridSize = 3
	assert.NoError(t, cfg.Validate())

	cfg.Scene.CasterModel = "statue.glb"
	assert.Equal(t, 11, cfg.Scene.ObjectCount())
	assert.ErrorContains(t, cfg.Validate(), "exceeds shadow.max_objects")
}

func TestValidate_LightDirectionLength(t *testing.T) {
	tests := []struct {
		name      string
		direction []float32
	}{
		{"zero", []float32{0, 0, 0}},
		{"negative zero", []float32{float32(math.Copysign(0, -1)), 0, 0}},
		{"nan", []float32{float32(math.NaN()), -1, 0}},
		{"infinite", []float32{float32(math.Inf(1)), -1, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Light.Direction = tt.direction
			err := cfg.Validate()
			assert.ErrorIs(t, err, ErrInvalid)
			assert.ErrorContains(t, err, "light.direction")
		})
	}

	cfg := Default()
	cfg.Light.Direction = []float32{0, 1e-20, 0}
	assert.ErrorContains(t, cfg.Validate(), "light.direction", "squares to zero in float32")

	cfg.Light.Direction = []float32{0, 1e-3, 0}
	assert.NoError(t, cfg.Validate())
}

func TestClearColor(t *testing.T) {
	cfg := Default()
	cfg.Renderer.ClearColor = []float32{0.5, 0.25, 0, 1}
	c := cfg.ClearColor()
	assert.Equal(t, 0.5, c.R)
	assert.Equal(t, 0.25, c.G)
	assert.Equal(t, 0.0, c.B)
	assert.Equal(t, 1.0, c.A)

	cfg.Renderer.ClearColor = []float32{1}
	assert.ErrorContains(t, cfg.Validate(), "renderer.clear_color")
}

func TestValidate_CasterModel(t *testing.T) {
	cfg := Default()
	cfg.Scene.CasterModel = "assets/Fox.gltf"
	assert.NoError(t, cfg.Validate())

	cfg.Scene.CasterModel = "assets/fox.obj"
	cfg.Scene.CasterScale = 0
	err := cfg.Validate()
	assert.ErrorContains(t, err, "scene.caster_model")
	assert.ErrorContains(t, err, "scene.caster_scale")
}

func TestSave_ReloadsEqual(t *testing.T) {
	cfg := Default()
	cfg.Shadow.Width = 4096
	cfg.Light.Type = "spot"

	for _, name := range []string{"out.toml", "out.yaml"} {
		path := filepath.Join(t.TempDir(), name)
		require.NoError(t, cfg.Save(path))
		loaded, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, cfg, loaded, name)
	}
}

func TestNewLight(t *testing.T) {
	cfg := Default()
	cfg.Light.Type = "spot"
	cfg.Light.Position = []float32{1, 2, 3}
	cfg.Light.Color = []float32{1, 0.5, 0.25}
	cfg.Light.CastsShadows = false
	cfg.Light.ShadowNear, cfg.Light.ShadowFar = 0.5, 30

	l := cfg.NewLight()
	assert.Equal(t, light.LightTypeSpot, l.Type())
	assert.Equal(t, [3]float32{1, 2, 3}, l.Position())
	assert.Equal(t, [3]float32{1, 0.5, 0.25}, l.Color())
	assert.False(t, l.CastsShadows())
	near, far := l.ShadowRange()
	assert.Equal(t, float32(0.5), near)
	assert.Equal(t, float32(30), far)
}

func TestOptionHelpers(t *testing.T) {
	cfg := Default()
	assert.Len(t, cfg.ShadowInitOptions(), 2)
	assert.Len(t, cfg.ShadowMapOptions(), 2)
	assert.Equal(t, [3]float32{0.1, 0.1, 0.12}, cfg.AmbientColor())

	cfg.Engine.LogLevel = "verbose"
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel())
}
