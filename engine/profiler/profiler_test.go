package profiler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTick_ReportsAfterInterval(t *testing.T) {
	p := NewProfiler(time.Second)
	start := p.lastTime
	clock := start
	p.now = func() time.Time { return clock }

	p.RecordShadowPass(2 * time.Millisecond)
	p.RecordShadowPass(4 * time.Millisecond)

	clock = start.Add(500 * time.Millisecond)
	assert.False(t, p.Tick())
	clock = start.Add(time.Second)
	require.True(t, p.Tick())

	s := p.Last()
	assert.InDelta(t, 2.0, s.FPS, 1e-9)
	assert.Equal(t, 3*time.Millisecond, s.ShadowPassAvg)
	assert.Equal(t, 4*time.Millisecond, s.ShadowPassMax)
	assert.Positive(t, s.SysMB)

	clock = start.Add(1500 * time.Millisecond)
	assert.False(t, p.Tick())
}

func TestTick_ResetsShadowTimings(t *testing.T) {
	p := NewProfiler(time.Millisecond)
	start := p.lastTime
	clock := start
	p.now = func() time.Time { return clock }

	p.RecordShadowPass(time.Millisecond)
	clock = clock.Add(time.Millisecond)
	require.True(t, p.Tick())

	clock = clock.Add(time.Millisecond)
	require.True(t, p.Tick())
	assert.Zero(t, p.Last().ShadowPassAvg)
	assert.Zero(t, p.Last().ShadowPassMax)
}

func TestNewProfiler_DefaultInterval(t *testing.T) {
	assert.Equal(t, time.Second, NewProfiler(0).updateInterval)
}
