package window

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

// Window is an OS window that owns the GPU surface and forwards input to callbacks.
// Callbacks run on the thread that calls ProcessMessages.
type Window interface {
	// SetResizeCallback sets the function called when the framebuffer size changes.
	//
	// Parameters:
	//   - callback: receives the new framebuffer width and height in pixels
	SetResizeCallback(callback func(width, height int))

	// SetKeyDownCallback sets the function called when a key is pressed or repeats.
	// Key codes match the constants in common.
	//
	// Parameters:
	//   - callback: receives the key code
	SetKeyDownCallback(callback func(keyCode uint32))

	// SetScrollCallback sets the function called on vertical scroll.
	//
	// Parameters:
	//   - callback: receives the scroll offset, positive away from the user
	SetScrollCallback(callback func(delta float32))

	// SetDragCallback sets the function called while the cursor moves with the left button held.
	//
	// Parameters:
	//   - callback: receives the cursor movement in pixels since the previous event
	SetDragCallback(callback func(dx, dy float32))

	// SurfaceDescriptor returns the descriptor used to create the GPU surface.
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// IsRunning reports whether the window is open.
	IsRunning() bool

	// Close destroys the window.
	Close() error

	// ProcessMessages polls OS events until the window closes. Must be called from the main thread.
	ProcessMessages()

	// Width returns the framebuffer width in pixels.
	Width() int

	// Height returns the framebuffer height in pixels.
	Height() int

	// Aspect returns Width / Height, or 1 while the window is minimized.
	Aspect() float32
}

type engineWindow struct {
	mu *sync.RWMutex

	title     string
	minWidth  int
	minHeight int
	maxWidth  int
	maxHeight int
	width     int
	height    int

	dragging     bool
	lastX, lastY float64

	internalWindow any

	onResize  func(width, height int)
	onKeyDown func(keyCode uint32)
	onScroll  func(delta float32)
	onDrag    func(dx, dy float32)
}

var _ Window = &engineWindow{}

// NewWindow opens a window. Panics if the platform window cannot be created.
//
// Parameters:
//   - options: WindowBuilderOption values
//
// Returns:
//   - Window: the open window
func NewWindow(options ...WindowBuilderOption) Window {
	w := newEngineWindow(options...)
	if err := newPlatformWindow(w); err != nil {
		panic(fmt.Sprintf("failed to create platform window: %v", err))
	}
	return w
}

func newEngineWindow(options ...WindowBuilderOption) *engineWindow {
	w := &engineWindow{
		mu:        &sync.RWMutex{},
		title:     "oxy-shadow",
		minWidth:  320,
		minHeight: 240,
		width:     1280,
		height:    720,
	}
	for _, opt := range options {
		opt(w)
	}
	return w
}

func (w *engineWindow) SetResizeCallback(callback func(width, height int)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onResize = callback
}

func (w *engineWindow) SetKeyDownCallback(callback func(keyCode uint32)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onKeyDown = callback
}

func (w *engineWindow) SetScrollCallback(callback func(delta float32)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onScroll = callback
}

func (w *engineWindow) SetDragCallback(callback func(dx, dy float32)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onDrag = callback
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return platformGetSurfaceDescriptor(w)
}

func (w *engineWindow) IsRunning() bool {
	return platformIsRunningCheck(w)
}

func (w *engineWindow) Close() error {
	return platformCloseWindow(w)
}

func (w *engineWindow) ProcessMessages() {
	for w.IsRunning() {
		if !platformProcessMessages(w) {
			break
		}
		runtime.Gosched()
	}
}

func (w *engineWindow) Width() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.width
}

func (w *engineWindow) Height() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.height
}

func (w *engineWindow) Aspect() float32 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.width <= 0 || w.height <= 0 {
		return 1
	}
	return float32(w.width) / float32(w.height)
}

// handleResize records the framebuffer size and notifies the resize callback.
// Zero sizes (minimized) are recorded but not forwarded.
func (w *engineWindow) handleResize(width, height int) {
	w.mu.Lock()
	w.width, w.height = width, height
	cb := w.onResize
	w.mu.Unlock()

	if cb != nil && width > 0 && height > 0 {
		cb(width, height)
	}
}

func (w *engineWindow) handleKeyDown(keyCode uint32) {
	w.mu.RLock()
	cb := w.onKeyDown
	w.mu.RUnlock()
	if cb != nil {
		cb(keyCode)
	}
}

func (w *engineWindow) handleScroll(delta float32) {
	w.mu.RLock()
	cb := w.onScroll
	w.mu.RUnlock()
	if cb != nil {
		cb(delta)
	}
}

// handleButton starts or stops a drag at the given cursor position.
func (w *engineWindow) handleButton(pressed bool, x, y float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.dragging = pressed
	w.lastX, w.lastY = x, y
}

// handleCursor forwards the movement since the last cursor event while dragging.
func (w *engineWindow) handleCursor(x, y float64) {
	w.mu.Lock()
	if !w.dragging {
		w.mu.Unlock()
		return
	}
	dx, dy := float32(x-w.lastX), float32(y-w.lastY)
	w.lastX, w.lastY = x, y
	cb := w.onDrag
	w.mu.Unlock()

	if cb != nil {
		cb(dx, dy)
	}
}
