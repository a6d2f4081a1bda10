package engine

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-shadow/common"
	"github.com/Carmen-Shannon/oxy-shadow/engine/profiler"
	"github.com/Carmen-Shannon/oxy-shadow/engine/scene"
	"github.com/Carmen-Shannon/oxy-shadow/engine/window"
)

// FrameRenderer owns the per-frame lit pass and the swapchain. renderer.Renderer satisfies it.
type FrameRenderer interface {
	BeginFrame() error
	EndFrame()
	Present()
	Resize(width, height int)
}

// engine implements the Engine interface.
// Coordinates the tick and render goroutines with the window's event loop.
type engine struct {
	mu *sync.RWMutex

	tickRateChannel chan time.Duration

	running atomic.Bool
	paused  atomic.Bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once

	window window.Window
	frame  FrameRenderer

	profiler         *profiler.Profiler
	profilingEnabled atomic.Bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	renderCallback func(deltaTime float32)

	scenes map[int]scene.Scene

	renderFrameLimit atomic.Int64 // minimum frame duration in nanoseconds; 0 = uncapped
}

// Engine runs a fixed-rate tick loop that updates scenes and a render loop that, each frame,
// renders every active scene's shadow map and then draws all active scenes in one lit pass.
type Engine interface {
	// Window returns the window, or nil when running headless.
	Window() window.Window

	// Renderer returns the frame renderer, or nil.
	Renderer() FrameRenderer

	// EnableProfiler enables periodic frame statistics in the log.
	EnableProfiler()

	// DisableProfiler disables frame statistics.
	DisableProfiler()

	// ProfilerEnabled reports whether frame statistics are logged.
	ProfilerEnabled() bool

	// SetPaused pauses or resumes scene animation. Paused scenes are still updated with a zero
	// delta so camera changes keep reaching the GPU.
	//
	// Parameters:
	//   - paused: true to freeze animation
	SetPaused(paused bool)

	// Paused reports whether scene animation is paused.
	Paused() bool

	// SetTickRate sets the tick rate in ticks per second.
	//
	// Parameters:
	//   - fps: target ticks per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each tick, before active scenes update.
	//
	// Parameters:
	//   - callback: receives the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called after each rendered frame.
	//
	// Parameters:
	//   - callback: receives the delta time in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit sets a render frame rate cap. 0 uncaps the render loop.
	//
	// Parameters:
	//   - fps: maximum render frames per second
	SetRenderFrameLimit(fps float64)

	// AddScene registers a scene at the given z-index. Scenes render in ascending key order.
	//
	// Parameters:
	//   - key: the z-index
	//   - s: the scene
	AddScene(key int, s scene.Scene)

	// RemoveScene removes the scene at the given z-index.
	//
	// Parameters:
	//   - key: the z-index
	RemoveScene(key int)

	// Scene returns the scene at the given z-index, or nil.
	//
	// Parameters:
	//   - key: the z-index
	//
	// Returns:
	//   - scene.Scene: the scene or nil
	Scene(key int) scene.Scene

	// Scenes returns a copy of the registered scenes keyed by z-index.
	Scenes() map[int]scene.Scene

	// Run starts the tick and render goroutines and blocks until the window closes or Quit is
	// called. Without a window it blocks until Quit.
	Run()

	// Quit signals every engine goroutine to stop. Safe to call more than once.
	Quit()
}

// NewEngine creates an Engine.
//
// Parameters:
//   - options: EngineBuilderOption values
//
// Returns:
//   - Engine: the engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		mu:              &sync.RWMutex{},
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		scenes:          make(map[int]scene.Scene),
		profiler:        profiler.NewProfiler(time.Second),
		engineTickRate:  time.Second / 60,
	}

	for _, opt := range options {
		opt(e)
	}

	if e.window != nil {
		e.window.SetResizeCallback(e.resize)
	}
	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Renderer() FrameRenderer {
	return e.frame
}

func (e *engine) Run() {
	e.running.Store(true)
	e.wg.Add(2)
	go e.handleEngine()
	go e.handleRender()

	if e.window != nil {
		e.window.ProcessMessages()
		e.signalQuit()
	} else {
		<-e.quitChannel
	}
	e.wg.Wait()
}

func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.running.Store(false)
		close(e.quitChannel)
	})
}

// resize forwards a framebuffer size change to the renderer and every scene camera.
func (e *engine) resize(width, height int) {
	if e.frame != nil {
		e.frame.Resize(width, height)
	}
	for _, s := range e.sortedScenes(false) {
		if c := s.Camera(); c != nil {
			c.SetAspect(float32(width) / float32(height))
		}
	}
}

// handleEngine runs the fixed-rate tick loop until quit.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()
	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			e.tick(float32(now.Sub(lastTick).Seconds()))
			lastTick = now
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

// tick runs the tick callback, then updates every active scene.
func (e *engine) tick(deltaTime float32) {
	if e.tickCallback != nil {
		e.tickCallback(deltaTime)
	}
	if e.paused.Load() {
		deltaTime = 0
	}
	for _, s := range e.sortedScenes(true) {
		s.Update(deltaTime)
	}
}

// handleRender runs the render loop until quit. A panic inside a frame is logged and stops
// the engine.
func (e *engine) handleRender() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			common.Logger().Error("render goroutine recovered from panic", "panic", r)
			e.signalQuit()
		}
	}()

	lastRender := time.Now()
	for {
		select {
		case <-e.quitChannel:
			return
		default:
		}

		now := time.Now()
		dt := float32(now.Sub(lastRender).Seconds())
		lastRender = now

		if err := e.renderFrame(); err != nil {
			common.Logger().Warn("frame skipped", "error", err)
		}
		if e.renderCallback != nil {
			e.renderCallback(dt)
		}
		if e.profilingEnabled.Load() {
			e.profiler.Tick()
		}

		if limit := time.Duration(e.renderFrameLimit.Load()); limit > 0 {
			if remaining := limit - time.Since(lastRender); remaining > 0 {
				time.Sleep(remaining)
			}
		}
	}
}

// renderFrame renders the shadow maps of all active scenes, then draws every active scene in
// ascending z-index order within one lit pass.
func (e *engine) renderFrame() error {
	active := e.sortedScenes(true)
	if len(active) == 0 || e.frame == nil {
		return nil
	}

	// Shadow passes are submitted on their own before the lit pass samples the maps.
	start := time.Now()
	for _, s := range active {
		if err := s.RenderShadows(); err != nil {
			return fmt.Errorf("scene %q: %w", s.Name(), err)
		}
	}
	e.profiler.RecordShadowPass(time.Since(start))

	if err := e.frame.BeginFrame(); err != nil {
		return fmt.Errorf("begin frame: %w", err)
	}
	var errs []error
	for _, s := range active {
		if err := s.DrawCalls(); err != nil {
			errs = append(errs, err)
		}
	}
	e.frame.EndFrame()
	e.frame.Present()
	return errors.Join(errs...)
}

// sortedScenes returns the registered scenes in ascending z-index order, optionally only the
// active ones.
func (e *engine) sortedScenes(activeOnly bool) []scene.Scene {
	e.mu.RLock()
	defer e.mu.RUnlock()

	keys := slices.Sorted(maps.Keys(e.scenes))
	out := make([]scene.Scene, 0, len(keys))
	for _, k := range keys {
		if s := e.scenes[k]; !activeOnly || s.Active() {
			out = append(out, s)
		}
	}
	return out
}

func (e *engine) EnableProfiler() {
	e.profilingEnabled.Store(true)
}

func (e *engine) DisableProfiler() {
	e.profilingEnabled.Store(false)
}

func (e *engine) ProfilerEnabled() bool {
	return e.profilingEnabled.Load()
}

func (e *engine) SetPaused(paused bool) {
	e.paused.Store(paused)
}

func (e *engine) Paused() bool {
	return e.paused.Load()
}

// SetTickRate takes effect on the next tick when the engine is running.
func (e *engine) SetTickRate(fps float64) {
	newRate := tickDuration(fps)
	if !e.running.Load() {
		e.engineTickRate = newRate
		return
	}
	// Replace any pending update with the newest rate.
	select {
	case e.tickRateChannel <- newRate:
	default:
		select {
		case <-e.tickRateChannel:
		default:
		}
		e.tickRateChannel <- newRate
	}
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.renderCallback = callback
}

// SetRenderFrameLimit is safe to call while the engine is running.
func (e *engine) SetRenderFrameLimit(fps float64) {
	e.renderFrameLimit.Store(int64(frameLimit(fps)))
}

func (e *engine) AddScene(key int, s scene.Scene) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scenes[key] = s
}

func (e *engine) RemoveScene(key int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.scenes, key)
}

func (e *engine) Scene(key int) scene.Scene {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.scenes[key]
}

func (e *engine) Scenes() map[int]scene.Scene {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return maps.Clone(e.scenes)
}

func tickDuration(fps float64) time.Duration {
	if fps <= 0 {
		fps = 60
	}
	return time.Duration(float64(time.Second) / fps)
}

func frameLimit(fps float64) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / fps)
}
