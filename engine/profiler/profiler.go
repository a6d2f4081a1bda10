package profiler

import (
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-shadow/common"
)

// Stats is one reporting interval's worth of frame and memory figures.
type Stats struct {
	FPS             float64
	ShadowPassAvg   time.Duration
	ShadowPassMax   time.Duration
	HeapMB          float64
	AllocRateMBPerS float64
	GCCount         uint32
	LastGCPause     time.Duration
	SysMB           float64
}

// Profiler tracks frame rate, shadow pass timing and memory statistics, and logs them through
// common.Logger at a fixed interval.
type Profiler struct {
	mu *sync.Mutex

	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastTotalAlloc uint64

	shadowTotal time.Duration
	shadowMax   time.Duration
	shadowCount int

	last Stats
	now  func() time.Time
}

// NewProfiler creates a Profiler that reports once per interval. Non-positive intervals
// default to one second.
//
// Parameters:
//   - interval: time between reports
//
// Returns:
//   - *Profiler: the profiler
func NewProfiler(interval time.Duration) *Profiler {
	if interval <= 0 {
		interval = time.Second
	}
	return &Profiler{
		mu:             &sync.Mutex{},
		lastTime:       time.Now(),
		updateInterval: interval,
		now:            time.Now,
	}
}

// RecordShadowPass adds one shadow pass duration to the current interval.
//
// Parameters:
//   - d: wall time spent recording the pass
func (p *Profiler) RecordShadowPass(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shadowTotal += d
	p.shadowMax = max(p.shadowMax, d)
	p.shadowCount++
}

// Tick should be called once per rendered frame. When the interval has elapsed it computes
// Stats, logs them and starts a new interval.
//
// Returns:
//   - bool: true if stats were reported this tick
func (p *Profiler) Tick() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.frameCount++
	now := p.now()
	elapsed := now.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	runtime.ReadMemStats(&p.memStats)
	s := Stats{
		FPS:             float64(p.frameCount) / elapsed.Seconds(),
		ShadowPassMax:   p.shadowMax,
		HeapMB:          float64(p.memStats.Alloc) / 1024 / 1024,
		AllocRateMBPerS: float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds(),
		GCCount:         p.memStats.NumGC,
		SysMB:           float64(p.memStats.Sys) / 1024 / 1024,
	}
	if p.shadowCount > 0 {
		s.ShadowPassAvg = p.shadowTotal / time.Duration(p.shadowCount)
	}
	if s.GCCount > 0 {
		// PauseNs is a ring of the last 256 pauses.
		s.LastGCPause = time.Duration(p.memStats.PauseNs[(s.GCCount+255)%256])
	}

	common.Logger().Info("profiler",
		"fps", s.FPS,
		"shadow_pass_avg", s.ShadowPassAvg,
		"shadow_pass_max", s.ShadowPassMax,
		"heap_mb", s.HeapMB,
		"alloc_rate_mb_s", s.AllocRateMBPerS,
		"gc", s.GCCount,
		"gc_last_pause", s.LastGCPause,
		"sys_mb", s.SysMB,
	)

	p.last = s
	p.frameCount = 0
	p.lastTime = now
	p.lastTotalAlloc = p.memStats.TotalAlloc
	p.shadowTotal, p.shadowMax, p.shadowCount = 0, 0, 0
	return true
}

// Last returns the most recently reported Stats.
func (p *Profiler) Last() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}
