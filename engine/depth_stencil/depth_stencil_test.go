package depth_stencil

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-shadow/common"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFactory struct {
	calls  int
	label  string
	width  int
	height int
	format wgpu.TextureFormat
	err    error

	forgotten int
}

func (f *fakeFactory) CreateDepthTexture(label string, width, height int, format wgpu.TextureFormat) (*wgpu.TextureView, *wgpu.Texture, error) {
	f.calls++
	f.label, f.width, f.height, f.format = label, width, height, format
	return nil, nil, f.err
}

func (f *fakeFactory) ForgetDepthTexture(*wgpu.TextureView) {
	f.forgotten++
}

type viewportRecorder struct {
	got []common.Viewport
}

func (v *viewportRecorder) SetViewport(vp common.Viewport) {
	v.got = append(v.got, vp)
}

func TestNewDepthStencil(t *testing.T) {
	f := &fakeFactory{}
	ds, err := NewDepthStencil(f, 1024, 512, WithLabel("Light 0"))
	require.NoError(t, err)

	assert.Equal(t, 1, f.calls)
	assert.Equal(t, "Light 0", f.label)
	assert.Equal(t, 1024, f.width)
	assert.Equal(t, 512, f.height)
	assert.Equal(t, wgpu.TextureFormatDepth32Float, f.format)

	assert.Equal(t, 1024, ds.Width())
	assert.Equal(t, 512, ds.Height())
	assert.Equal(t, "Light 0", ds.Label())
}

func TestNewDepthStencilInvalidSize(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
	}{
		{"zero width", 0, 16},
		{"zero height", 16, 0},
		{"negative", -1, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeFactory{}
			_, err := NewDepthStencil(f, tt.width, tt.height)
			assert.ErrorIs(t, err, ErrInvalidSize)
			assert.Zero(t, f.calls)
		})
	}
}

func TestNewDepthStencilFactoryError(t *testing.T) {
	boom := errors.New("out of memory")
	_, err := NewDepthStencil(&fakeFactory{err: boom}, 8, 8)
	assert.ErrorIs(t, err, boom)
}

func TestDepthStencilViewport(t *testing.T) {
	ds, err := NewDepthStencil(&fakeFactory{}, 2048, 1024)
	require.NoError(t, err)

	rec := &viewportRecorder{}
	ds.SetViewport(rec)

	require.Len(t, rec.got, 1)
	assert.Equal(t, common.Viewport{Width: 2048, Height: 1024, MinDepth: 0, MaxDepth: 1}, rec.got[0])
	assert.Equal(t, ds.Viewport(), rec.got[0])
}

func TestDepthStencilOptions(t *testing.T) {
	f := &fakeFactory{}
	ds, err := NewDepthStencil(f, 4, 4,
		WithFormat(wgpu.TextureFormatDepth24Plus),
		WithDepthRange(0.9, 0.1),
	)
	require.NoError(t, err)
	assert.Equal(t, wgpu.TextureFormatDepth24Plus, f.format)
	assert.Equal(t, wgpu.TextureFormatDepth24Plus, ds.Format())
	assert.InDelta(t, 0.1, ds.Viewport().MinDepth, 1e-6)
	assert.InDelta(t, 0.9, ds.Viewport().MaxDepth, 1e-6)

	ds, err = NewDepthStencil(f, 4, 4, WithFormat(wgpu.TextureFormatRGBA8Unorm), WithDepthRange(-1, 2))
	require.NoError(t, err)
	assert.Equal(t, wgpu.TextureFormatDepth32Float, ds.Format())
	assert.Equal(t, float32(0), ds.Viewport().MinDepth)
	assert.Equal(t, float32(1), ds.Viewport().MaxDepth)
}

func TestDepthStencilReleaseIdempotent(t *testing.T) {
	f := &fakeFactory{}
	ds, err := NewDepthStencil(f, 4, 4)
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		ds.Release()
		ds.Release()
	})
	assert.Nil(t, ds.Texture())
	assert.Nil(t, ds.TextureView())
	assert.Equal(t, 1, f.forgotten)
}

func TestDepthStencilReleaseForgetsEachView(t *testing.T) {
	f := &fakeFactory{}
	for i := range 3 {
		ds, err := NewDepthStencil(f, 8, 8)
		require.NoError(t, err)
		assert.Equal(t, i, f.forgotten)
		ds.Release()
	}
	assert.Equal(t, 3, f.calls)
	assert.Equal(t, 3, f.forgotten)
}
