package animator

import "runtime"

// CacheBuilderOption is a functional option for configuring a Cache during construction.
type CacheBuilderOption func(*animationCache)

// WithWorkers sets the number of pool workers used for the parallel playback
// stepping phase. Values below 1 are clamped to 1.
//
// Parameters:
//   - n: the worker count
//
// Returns:
//   - CacheBuilderOption: a function that applies the worker count to a cache
func WithWorkers(n int) CacheBuilderOption {
	return func(c *animationCache) {
		c.workers = max(n, 1)
	}
}

// defaultWorkers leaves one CPU free for the render goroutine.
func defaultWorkers() int {
	return max(runtime.NumCPU()-1, 1)
}
