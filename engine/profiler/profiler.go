package profiler

import (
	"log"
	"runtime"
	"time"

	"github.com/pkg/profile"
)

// Profiler tracks frame rate and memory statistics for performance
// monitoring, and can optionally capture a pprof profile for the lifetime of
// the run. Frame stats go to the log at a configurable interval.
type Profiler struct {
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	capture interface{ Stop() }
}

// CaptureMode selects which pprof profile Capture records.
type CaptureMode int

const (
	// CaptureCPU records a CPU profile.
	CaptureCPU CaptureMode = iota
	// CaptureMem records an allocation profile.
	CaptureMem
)

// NewProfiler creates a new Profiler with default settings.
// Update interval defaults to 1 second.
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler() *Profiler {
	return &Profiler{
		lastTime:       time.Now(),
		updateInterval: time.Second,
	}
}

// Capture starts recording a pprof profile into dir. The profile is written
// when StopCapture is called (or the process exits). Only one capture can be
// active at a time; a second call is a no-op.
//
// Parameters:
//   - mode: which profile to record
//   - dir: directory the profile file is written to
func (p *Profiler) Capture(mode CaptureMode, dir string) {
	if p.capture != nil {
		return
	}
	opts := []func(*profile.Profile){profile.ProfilePath(dir), profile.NoShutdownHook}
	switch mode {
	case CaptureMem:
		opts = append(opts, profile.MemProfileAllocs)
	default:
		opts = append(opts, profile.CPUProfile)
	}
	p.capture = profile.Start(opts...)
}

// StopCapture finishes an active pprof capture and writes the profile file.
// Safe to call when no capture is active.
func (p *Profiler) StopCapture() {
	if p.capture != nil {
		p.capture.Stop()
		p.capture = nil
	}
}

// Tick should be called once per frame to track frame timing.
// Logs performance statistics when the update interval has elapsed:
// FPS, heap usage, allocation rate, GC count and pause times, total memory.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.frameCount++
	currentTime := time.Now()
	elapsed := currentTime.Sub(p.lastTime)

	if elapsed < p.updateInterval {
		return false
	}

	fps := float64(p.frameCount) / elapsed.Seconds()

	runtime.ReadMemStats(&p.memStats)
	allocMB := float64(p.memStats.Alloc) / 1024 / 1024
	sysMB := float64(p.memStats.Sys) / 1024 / 1024

	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	allocRateMB := float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	// PauseNs is a circular buffer of the last 256 GC pauses.
	gcCount := p.memStats.NumGC
	var lastPauseUs, maxPauseUs uint64
	if gcCount > 0 {
		lastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000

		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			pause := p.memStats.PauseNs[i%256] / 1000
			if pause > maxPauseUs {
				maxPauseUs = pause
			}
		}
	}

	log.Printf("[Profiler] FPS: %.2f | Heap: %.2f MB | Alloc Rate: %.2f MB/s | GC: %d (last: %d µs, max: %d µs) | Sys: %.2f MB",
		fps, allocMB, allocRateMB, gcCount, lastPauseUs, maxPauseUs, sysMB)

	p.frameCount = 0
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}
