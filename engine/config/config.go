package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/Carmen-Shannon/oxy-shadow/common"
	"github.com/Carmen-Shannon/oxy-shadow/engine/light"
	"github.com/Carmen-Shannon/oxy-shadow/engine/shadow_map"
	"github.com/chewxy/math32"
	"github.com/cogentcore/webgpu/wgpu"
	"gopkg.in/yaml.v3"
)

var (
	// ErrInvalid is wrapped by every Validate error.
	ErrInvalid = errors.New("config: invalid value")

	// ErrUnsupportedFormat is returned for files that are neither TOML nor YAML.
	ErrUnsupportedFormat = errors.New("config: unsupported file format")
)

// Config is the file-backed configuration of the shadow demo.
type Config struct {
	Window   WindowConfig   `toml:"window" yaml:"window"`
	Engine   EngineConfig   `toml:"engine" yaml:"engine"`
	Renderer RendererConfig `toml:"renderer" yaml:"renderer"`
	Shadow   ShadowConfig   `toml:"shadow" yaml:"shadow"`
	Light    LightConfig    `toml:"light" yaml:"light"`
	Scene    SceneConfig    `toml:"scene" yaml:"scene"`
}

type WindowConfig struct {
	Title  string `toml:"title" yaml:"title"`
	Width  int    `toml:"width" yaml:"width"`
	Height int    `toml:"height" yaml:"height"`
}

type EngineConfig struct {
	TickRate          float64 `toml:"tick_rate" yaml:"tick_rate"`
	FrameLimit        float64 `toml:"frame_limit" yaml:"frame_limit"`
	Profiling         bool    `toml:"profiling" yaml:"profiling"`
	ProfileIntervalMS int     `toml:"profile_interval_ms" yaml:"profile_interval_ms"`
	LogLevel          string  `toml:"log_level" yaml:"log_level"`
}

type RendererConfig struct {
	MSAA       int       `toml:"msaa" yaml:"msaa"`
	VSync      bool      `toml:"vsync" yaml:"vsync"`
	Software   bool      `toml:"software" yaml:"software"`
	ClearColor []float32 `toml:"clear_color" yaml:"clear_color"`
}

// ShadowConfig sizes the shadow map and tunes the depth-only pipeline.
type ShadowConfig struct {
	Width      int     `toml:"width" yaml:"width"`
	Height     int     `toml:"height" yaml:"height"`
	MaxObjects int     `toml:"max_objects" yaml:"max_objects"`
	DepthBias  int32   `toml:"depth_bias" yaml:"depth_bias"`
	SlopeScale float32 `toml:"slope_scale" yaml:"slope_scale"`
	// CullMode is "front", "back" or "none".
	CullMode string `toml:"cull_mode" yaml:"cull_mode"`
}

// LightConfig describes the single shadow-casting light. Cone angles are in degrees.
type LightConfig struct {
	Type         string    `toml:"type" yaml:"type"`
	Position     []float32 `toml:"position" yaml:"position"`
	Direction    []float32 `toml:"direction" yaml:"direction"`
	Color        []float32 `toml:"color" yaml:"color"`
	Intensity    float32   `toml:"intensity" yaml:"intensity"`
	InnerCone    float32   `toml:"inner_cone" yaml:"inner_cone"`
	OuterCone    float32   `toml:"outer_cone" yaml:"outer_cone"`
	CastsShadows bool      `toml:"casts_shadows" yaml:"casts_shadows"`
	ShadowNear   float32   `toml:"shadow_near" yaml:"shadow_near"`
	ShadowFar    float32   `toml:"shadow_far" yaml:"shadow_far"`
	HalfExtent   float32   `toml:"half_extent" yaml:"half_extent"`
}

// SceneConfig lays out the demo scene: a grid of spinning cubes over a ground plane.
type SceneConfig struct {
	Ambient    []float32 `toml:"ambient" yaml:"ambient"`
	GridSize   int       `toml:"grid_size" yaml:"grid_size"`
	Spacing    float32   `toml:"spacing" yaml:"spacing"`
	SpinSpeed  float32   `toml:"spin_speed" yaml:"spin_speed"`
	GroundSize float32   `toml:"ground_size" yaml:"ground_size"`

	// CasterModel is an optional .gltf or .glb file placed at the grid center.
	CasterModel string  `toml:"caster_model" yaml:"caster_model"`
	CasterScale float32 `toml:"caster_scale" yaml:"caster_scale"`
}

// Default returns the built-in configuration. Loaded files override it field by field.
func Default() Config {
	return Config{
		Window: WindowConfig{Title: "oxy-shadow", Width: 1280, Height: 720},
		Engine: EngineConfig{
			TickRate:          60,
			Profiling:         false,
			ProfileIntervalMS: 1000,
			LogLevel:          "info",
		},
		Renderer: RendererConfig{MSAA: 4, VSync: true, ClearColor: []float32{0.05, 0.06, 0.08, 1}},
		Shadow: ShadowConfig{
			Width:      2048,
			Height:     2048,
			MaxObjects: shadow_map.DefaultMaxObjects,
			DepthBias:  2,
			SlopeScale: 2,
			CullMode:   "front",
		},
		Light: LightConfig{
			Type:         "directional",
			Position:     []float32{6, 10, 6},
			Direction:    []float32{-0.4, -1, -0.3},
			Color:        []float32{1, 1, 1},
			Intensity:    1,
			InnerCone:    25,
			OuterCone:    35,
			CastsShadows: true,
			ShadowNear:   light.DefaultShadowNear,
			ShadowFar:    light.DefaultShadowFar,
			HalfExtent:   light.DefaultShadowHalfExtent,
		},
		Scene: SceneConfig{
			Ambient:     []float32{0.1, 0.1, 0.12},
			GridSize:    5,
			Spacing:     2.5,
			SpinSpeed:   0.8,
			GroundSize:  40,
			CasterScale: 1,
		},
	}
}

// Load reads a .toml, .yaml or .yml file over Default and validates the result.
//
// Parameters:
//   - path: the config file
//
// Returns:
//   - Config: the loaded configuration
//   - error: a read, decode or Validate error
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		md, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return cfg, fmt.Errorf("config: decode %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			common.Logger().Warn("unknown config keys ignored", "path", path, "keys", keys)
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return cfg, fmt.Errorf("config: decode %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	common.Logger().Debug("config loaded", "path", path)
	return cfg, nil
}

// Save writes c as TOML, or as YAML when path ends in .yaml or .yml.
//
// Parameters:
//   - path: the destination file
//
// Returns:
//   - error: an encode or write error
func (c Config) Save(path string) error {
	var buf bytes.Buffer
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(c); err != nil {
			return fmt.Errorf("config: encode %s: %w", path, err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("config: encode %s: %w", path, err)
		}
	default:
		if err := toml.NewEncoder(&buf).Encode(c); err != nil {
			return fmt.Errorf("config: encode %s: %w", path, err)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// Validate checks every field and returns all problems joined, each wrapping ErrInvalid.
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
		}
	}

	check(c.Window.Width > 0 && c.Window.Height > 0, "window size %dx%d", c.Window.Width, c.Window.Height)
	check(c.Engine.TickRate >= 0, "engine.tick_rate %v", c.Engine.TickRate)
	check(c.Engine.FrameLimit >= 0, "engine.frame_limit %v", c.Engine.FrameLimit)
	_, levelErr := parseLevel(c.Engine.LogLevel)
	check(levelErr == nil, "engine.log_level %q", c.Engine.LogLevel)
	check(c.Renderer.MSAA == 1 || c.Renderer.MSAA == 4 || c.Renderer.MSAA == 8 || c.Renderer.MSAA == 16, "renderer.msaa %d", c.Renderer.MSAA)
	check(len(c.Renderer.ClearColor) == 4, "renderer.clear_color needs 4 components, got %d", len(c.Renderer.ClearColor))

	check(c.Shadow.Width > 0 && c.Shadow.Height > 0, "shadow size %dx%d", c.Shadow.Width, c.Shadow.Height)
	check(c.Shadow.MaxObjects > 0, "shadow.max_objects %d", c.Shadow.MaxObjects)
	check(c.Shadow.SlopeScale >= 0, "shadow.slope_scale %v", c.Shadow.SlopeScale)
	_, cullErr := parseCullMode(c.Shadow.CullMode)
	check(cullErr == nil, "shadow.cull_mode %q", c.Shadow.CullMode)

	_, typeErr := parseLightType(c.Light.Type)
	check(typeErr == nil, "light.type %q", c.Light.Type)
	check(len(c.Light.Position) == 3, "light.position needs 3 components, got %d", len(c.Light.Position))
	check(len(c.Light.Direction) == 3, "light.direction needs 3 components, got %d", len(c.Light.Direction))
	if d := c.Light.Direction; len(d) == 3 {
		// Same precision the light normalizes with. NaN fails the comparison too.
		v := [3]float32(d)
		lengthSq := common.Dot3(v, v)
		check(lengthSq > 0 && lengthSq <= math32.MaxFloat32, "light.direction %v must be a finite non-zero vector", d)
	}
	check(len(c.Light.Color) == 3, "light.color needs 3 components, got %d", len(c.Light.Color))
	check(c.Light.Intensity >= 0, "light.intensity %v", c.Light.Intensity)
	check(c.Light.InnerCone > 0 && c.Light.InnerCone <= c.Light.OuterCone && c.Light.OuterCone < 90,
		"light cone %v..%v degrees", c.Light.InnerCone, c.Light.OuterCone)
	check(c.Light.ShadowNear > 0 && c.Light.ShadowFar > c.Light.ShadowNear,
		"light shadow range %v..%v", c.Light.ShadowNear, c.Light.ShadowFar)
	check(c.Light.HalfExtent > 0, "light.half_extent %v", c.Light.HalfExtent)

	check(len(c.Scene.Ambient) == 3, "scene.ambient needs 3 components, got %d", len(c.Scene.Ambient))
	check(c.Scene.GridSize >= 0, "scene.grid_size %d", c.Scene.GridSize)
	check(c.Scene.ObjectCount() <= c.Shadow.MaxObjects,
		"scene of %d objects exceeds shadow.max_objects %d", c.Scene.ObjectCount(), c.Shadow.MaxObjects)
	check(c.Scene.GroundSize > 0, "scene.ground_size %v", c.Scene.GroundSize)
	check(c.Scene.CasterScale > 0, "scene.caster_scale %v", c.Scene.CasterScale)
	if ext := strings.ToLower(filepath.Ext(c.Scene.CasterModel)); c.Scene.CasterModel != "" {
		check(ext == ".gltf" || ext == ".glb", "scene.caster_model %q is not .gltf or .glb", c.Scene.CasterModel)
	}

	return errors.Join(errs...)
}

// LogLevel returns the slog level named by Engine.LogLevel, or Info when it is not recognized.
func (c Config) LogLevel() slog.Level {
	level, err := parseLevel(c.Engine.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

// ShadowInitOptions maps the shadow settings onto shadow_map.Init options.
func (c Config) ShadowInitOptions() []shadow_map.InitOption {
	cull, err := parseCullMode(c.Shadow.CullMode)
	if err != nil {
		cull = wgpu.CullModeFront
	}
	return []shadow_map.InitOption{
		shadow_map.WithDepthBias(c.Shadow.DepthBias, c.Shadow.SlopeScale),
		shadow_map.WithCullMode(cull),
	}
}

// ShadowMapOptions maps the shadow settings onto NewShadowMap options.
func (c Config) ShadowMapOptions() []shadow_map.ShadowMapBuilderOption {
	return []shadow_map.ShadowMapBuilderOption{
		shadow_map.WithMaxObjects(c.Shadow.MaxObjects),
		shadow_map.WithLabel("sun_shadow"),
	}
}

// NewLight builds the configured light. Call Validate first; unknown types fall back to
// directional.
//
// Returns:
//   - light.Light: the light
func (c Config) NewLight() light.Light {
	lt, err := parseLightType(c.Light.Type)
	if err != nil {
		lt = light.LightTypeDirectional
	}
	l := c.Light
	opts := []light.LightBuilderOption{
		light.WithIntensity(l.Intensity),
		light.WithSpotCone(l.InnerCone, l.OuterCone),
		light.WithCastsShadows(l.CastsShadows),
		light.WithShadowRange(l.ShadowNear, l.ShadowFar),
		light.WithShadowHalfExtent(l.HalfExtent),
	}
	if len(l.Position) == 3 {
		opts = append(opts, light.WithPosition(l.Position[0], l.Position[1], l.Position[2]))
	}
	if len(l.Direction) == 3 {
		opts = append(opts, light.WithDirection(l.Direction[0], l.Direction[1], l.Direction[2]))
	}
	if len(l.Color) == 3 {
		opts = append(opts, light.WithColor(l.Color[0], l.Color[1], l.Color[2]))
	}
	return light.NewLight(lt, opts...)
}

// AmbientColor returns Scene.Ambient as an RGB triple, black when malformed.
func (c Config) AmbientColor() [3]float32 {
	var out [3]float32
	if len(c.Scene.Ambient) == 3 {
		copy(out[:], c.Scene.Ambient)
	}
	return out
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(s))
	return level, err
}

func parseCullMode(s string) (wgpu.CullMode, error) {
	switch strings.ToLower(s) {
	case "front":
		return wgpu.CullModeFront, nil
	case "back":
		return wgpu.CullModeBack, nil
	case "none":
		return wgpu.CullModeNone, nil
	}
	return wgpu.CullModeNone, fmt.Errorf("unknown cull mode %q", s)
}

func parseLightType(s string) (light.LightType, error) {
	switch strings.ToLower(s) {
	case "directional":
		return light.LightTypeDirectional, nil
	case "spot":
		return light.LightTypeSpot, nil
	}
	return light.LightTypeDirectional, fmt.Errorf("unknown light type %q", s)
}

// ClearColor returns the main pass clear color.
func (c Config) ClearColor() wgpu.Color {
	var rgba [4]float64
	for i := 0; i < len(c.Renderer.ClearColor) && i < 4; i++ {
		rgba[i] = float64(c.Renderer.ClearColor[i])
	}
	return wgpu.Color{R: rgba[0], G: rgba[1], B: rgba[2], A: rgba[3]}
}

// ObjectCount returns how many game objects the scene section describes: the grid, the ground
// plane and the optional caster model.
func (s SceneConfig) ObjectCount() int {
	n := s.GridSize*s.GridSize + 1
	if s.CasterModel != "" {
		n++
	}
	return n
}
