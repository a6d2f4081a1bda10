package depth_stencil

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-shadow/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// ErrInvalidSize is returned when a depth-stencil target is requested with a non-positive dimension.
var ErrInvalidSize = errors.New("depth_stencil: width and height must be positive")

// TextureFactory creates the GPU depth texture backing a DepthStencil.
// renderer.Renderer satisfies this interface.
type TextureFactory interface {
	// CreateDepthTexture creates a single-sampled depth texture usable as a render attachment
	// and as a sampled texture.
	//
	// Parameters:
	//   - label: debug label for the texture
	//   - width, height: texture size in texels
	//   - format: a depth texture format
	//
	// Returns:
	//   - *wgpu.TextureView: the default view over the texture
	//   - *wgpu.Texture: the texture
	//   - error: an error if creation fails
	CreateDepthTexture(label string, width, height int, format wgpu.TextureFormat) (*wgpu.TextureView, *wgpu.Texture, error)

	// ForgetDepthTexture is called with the view from CreateDepthTexture before it is released.
	ForgetDepthTexture(view *wgpu.TextureView)
}

// ViewportSetter receives viewport changes. renderer.Renderer satisfies this interface.
type ViewportSetter interface {
	SetViewport(v common.Viewport)
}

type depthStencil struct {
	mu      *sync.Mutex
	factory TextureFactory

	label    string
	width    int
	height   int
	format   wgpu.TextureFormat
	minDepth float32
	maxDepth float32

	texture     *wgpu.Texture
	textureView *wgpu.TextureView
	released    bool
}

// DepthStencil is a depth-only render target together with the viewport that covers it.
// It is sampled by later passes through TextureView.
type DepthStencil interface {
	// Label returns the debug label of the target.
	Label() string

	// Width returns the target width in texels.
	Width() int

	// Height returns the target height in texels.
	Height() int

	// Format returns the depth texture format.
	Format() wgpu.TextureFormat

	// Texture returns the underlying GPU texture, or nil after Release.
	Texture() *wgpu.Texture

	// TextureView returns the view used both as depth attachment and as sampled texture,
	// or nil after Release.
	TextureView() *wgpu.TextureView

	// Viewport returns the viewport covering the whole target.
	//
	// Returns:
	//   - common.Viewport: origin (0, 0), the target size and the configured depth range
	Viewport() common.Viewport

	// SetViewport applies this target's viewport to the given setter.
	//
	// Parameters:
	//   - target: the rasterizer state receiving the viewport
	SetViewport(target ViewportSetter)

	// Release frees the GPU texture and view. Calling Release more than once is a no-op.
	Release()
}

var _ DepthStencil = &depthStencil{}

// NewDepthStencil creates a depth-only render target of the given size.
//
// Parameters:
//   - factory: the device used to allocate the depth texture
//   - width: target width in texels (must be > 0)
//   - height: target height in texels (must be > 0)
//   - options: variadic DepthStencilBuilderOption values
//
// Returns:
//   - DepthStencil: the created target
//   - error: ErrInvalidSize for bad dimensions, or the wrapped texture creation error
func NewDepthStencil(factory TextureFactory, width, height int, options ...DepthStencilBuilderOption) (DepthStencil, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: got %dx%d", ErrInvalidSize, width, height)
	}

	d := &depthStencil{
		mu:       &sync.Mutex{},
		factory:  factory,
		label:    "Depth Stencil",
		width:    width,
		height:   height,
		format:   wgpu.TextureFormatDepth32Float,
		minDepth: 0,
		maxDepth: 1,
	}
	for _, opt := range options {
		opt(d)
	}

	view, tex, err := factory.CreateDepthTexture(d.label, width, height, d.format)
	if err != nil {
		return nil, fmt.Errorf("depth_stencil: create %q: %w", d.label, err)
	}
	d.texture = tex
	d.textureView = view

	common.Logger().Debug("depth stencil created", "label", d.label, "width", width, "height", height)
	return d, nil
}

func (d *depthStencil) Label() string {
	return d.label
}

func (d *depthStencil) Width() int {
	return d.width
}

func (d *depthStencil) Height() int {
	return d.height
}

func (d *depthStencil) Format() wgpu.TextureFormat {
	return d.format
}

func (d *depthStencil) Texture() *wgpu.Texture {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.texture
}

func (d *depthStencil) TextureView() *wgpu.TextureView {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.textureView
}

func (d *depthStencil) Viewport() common.Viewport {
	return common.Viewport{
		Width:    float32(d.width),
		Height:   float32(d.height),
		MinDepth: d.minDepth,
		MaxDepth: d.maxDepth,
	}
}

func (d *depthStencil) SetViewport(target ViewportSetter) {
	target.SetViewport(d.Viewport())
}

func (d *depthStencil) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.released {
		common.Logger().Warn("depth stencil already released", "label", d.label)
		return
	}
	d.released = true

	d.factory.ForgetDepthTexture(d.textureView)
	if d.textureView != nil {
		d.textureView.Release()
		d.textureView = nil
	}
	if d.texture != nil {
		d.texture.Release()
		d.texture = nil
	}
}
