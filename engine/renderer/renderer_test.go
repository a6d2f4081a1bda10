package renderer

import (
	"sync"
	"testing"

	"github.com/Carmen-Shannon/oxy-shadow/common"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewportFits(t *testing.T) {
	tests := []struct {
		name string
		v    common.Viewport
		want bool
	}{
		{name: "full target", v: common.FullViewport(2048, 2048), want: true},
		{name: "inset", v: common.Viewport{X: 10, Y: 10, Width: 100, Height: 100, MaxDepth: 1}, want: true},
		{name: "surface larger than target", v: common.FullViewport(2560, 1440), want: false},
		{name: "zero area", v: common.Viewport{MaxDepth: 1}, want: false},
		{name: "negative origin", v: common.Viewport{X: -1, Width: 10, Height: 10, MaxDepth: 1}, want: false},
		{name: "inverted depth range", v: common.Viewport{Width: 10, Height: 10, MinDepth: 1, MaxDepth: 0}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, viewportFits(tt.v, 2048, 2048))
		})
	}
}

func TestMergeBindGroupLayouts(t *testing.T) {
	vertex := map[int]wgpu.BindGroupLayoutDescriptor{
		0: {Entries: []wgpu.BindGroupLayoutEntry{
			{Binding: 0, Visibility: wgpu.ShaderStageVertex, Buffer: wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform}},
			{Binding: 1, Visibility: wgpu.ShaderStageVertex, Buffer: wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeReadOnlyStorage}},
		}},
	}
	fragment := map[int]wgpu.BindGroupLayoutDescriptor{
		0: {Entries: []wgpu.BindGroupLayoutEntry{
			{Binding: 0, Visibility: wgpu.ShaderStageFragment, Buffer: wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform}},
		}},
		2: {Entries: []wgpu.BindGroupLayoutEntry{
			{Binding: 1, Visibility: wgpu.ShaderStageFragment, Sampler: wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeComparison}},
			{Binding: 0, Visibility: wgpu.ShaderStageFragment, Texture: wgpu.TextureBindingLayout{SampleType: wgpu.TextureSampleTypeDepth}},
		}},
	}

	merged := mergeBindGroupLayouts(vertex, fragment)

	require.Len(t, merged, 2)
	require.Len(t, merged[0].Entries, 2)
	assert.Equal(t, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment, merged[0].Entries[0].Visibility)
	assert.Equal(t, wgpu.ShaderStageVertex, merged[0].Entries[1].Visibility)
	assert.Equal(t, fragment[2], merged[2])
}

func TestBufferUsageFor(t *testing.T) {
	assert.Equal(t, wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst, bufferUsageFor(wgpu.BufferBindingTypeUniform))
	assert.Equal(t, wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst, bufferUsageFor(wgpu.BufferBindingTypeReadOnlyStorage))
	assert.Equal(t, wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst, bufferUsageFor(wgpu.BufferBindingTypeStorage))
}

func newDepthBookkeeping() *wgpuRendererBackendImpl {
	return &wgpuRendererBackendImpl{
		mu:            &sync.Mutex{},
		depthViews:    make(map[*wgpu.TextureView][2]uint32),
		pendingClears: make(map[*wgpu.TextureView]float32),
	}
}

func TestForgetDepthTexture(t *testing.T) {
	b := newDepthBookkeeping()
	kept, dropped := &wgpu.TextureView{}, &wgpu.TextureView{}
	b.depthViews[kept] = [2]uint32{64, 64}
	b.depthViews[dropped] = [2]uint32{32, 32}

	b.ClearDepth(kept, 1)
	b.ClearDepth(dropped, 1)
	b.ForgetDepthTexture(dropped)

	assert.Len(t, b.depthViews, 1)
	assert.Contains(t, b.depthViews, kept)
	assert.Equal(t, map[*wgpu.TextureView]float32{kept: 1}, b.pendingClears)

	err := b.BeginDepthPass(dropped)
	assert.ErrorContains(t, err, "not created by CreateDepthTexture")
	assert.Nil(t, b.depthPass)
}

func TestClearDepth_UnknownView(t *testing.T) {
	b := newDepthBookkeeping()
	b.ClearDepth(&wgpu.TextureView{}, 1)
	assert.Empty(t, b.pendingClears)
}
