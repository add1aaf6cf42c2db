package renderer

import (
	"time"

	"github.com/kiln-engine/kiln-go/engine/camera"
	"github.com/kiln-engine/kiln-go/engine/light"
	"github.com/kiln-engine/kiln-go/engine/model"
	"github.com/kiln-engine/kiln-go/engine/renderer/animator"
	"github.com/kiln-engine/kiln-go/engine/renderer/material"
)

// RendererBuilderOption is a functional option for configuring a Renderer during construction.
type RendererBuilderOption func(*rendererImpl)

// WithFramesInFlight sets how many frames the CPU may produce ahead of the
// GPU. Values below 1 are clamped to 1.
//
// Parameters:
//   - n: the frame count
//
// Returns:
//   - RendererBuilderOption: a function that applies the frame count to a renderer
func WithFramesInFlight(n int) RendererBuilderOption {
	return func(r *rendererImpl) {
		r.framesInput = max(n, 1)
	}
}

// WithPresentMode sets the surface present mode.
//
// Parameters:
//   - mode: the present mode
//
// Returns:
//   - RendererBuilderOption: a function that applies the mode to a renderer
func WithPresentMode(mode PresentMode) RendererBuilderOption {
	return func(r *rendererImpl) {
		r.presentMode = mode
	}
}

// WithRendererFenceTimeout sets how long a frame slot fence may block before
// the device is declared lost.
//
// Parameters:
//   - d: the timeout
//
// Returns:
//   - RendererBuilderOption: a function that applies the timeout to a renderer
func WithRendererFenceTimeout(d time.Duration) RendererBuilderOption {
	return func(r *rendererImpl) {
		r.fenceTimeout = d
	}
}

// WithCamera sets the scene camera.
//
// Parameters:
//   - cam: the camera
//
// Returns:
//   - RendererBuilderOption: a function that applies the camera to a renderer
func WithCamera(cam camera.Camera) RendererBuilderOption {
	return func(r *rendererImpl) {
		r.cam = cam
	}
}

// WithLight sets the directional light driving the shadow stage.
//
// Parameters:
//   - l: the light
//
// Returns:
//   - RendererBuilderOption: a function that applies the light to a renderer
func WithLight(l *light.DirectionalLight) RendererBuilderOption {
	return func(r *rendererImpl) {
		r.sun = l
	}
}

// WithStages replaces the default shadow-then-scene stage list.
//
// Parameters:
//   - stages: the stages to record, in order
//
// Returns:
//   - RendererBuilderOption: a function that applies the stages to a renderer
func WithStages(stages ...Stage) RendererBuilderOption {
	return func(r *rendererImpl) {
		r.stages = stages
	}
}

// NewRenderer creates a renderer driving the given backend, configurable via
// functional options. The default configuration carries a shadow stage and a
// scene stage, two frames in flight, and vsync presentation.
//
// Parameters:
//   - backend: the GPU backend to drive
//   - options: variadic list of RendererBuilderOption functions
//
// Returns:
//   - Renderer: the newly created renderer
func NewRenderer(backend Backend, options ...RendererBuilderOption) Renderer {
	r := &rendererImpl{
		backend:     backend,
		models:      model.NewCache(),
		materials:   material.NewCache(),
		presentMode: PresentModeVSync,
		framesInput: DefaultFramesInFlight,
	}
	for _, opt := range options {
		opt(r)
	}
	if r.cam == nil {
		r.cam = camera.NewCamera()
	}
	if r.sun == nil {
		r.sun = light.NewDirectionalLight()
	}
	if r.stages == nil {
		r.stages = []Stage{
			NewShadowStage(r.sun, r.cam),
			NewSceneStage(r.cam, r.sun),
		}
	}
	schedOpts := []FrameSchedulerOption{}
	if r.fenceTimeout > 0 {
		schedOpts = append(schedOpts, WithFenceTimeout(r.fenceTimeout))
	}
	r.sched = NewFrameScheduler(r.framesInput, schedOpts...)
	r.buffers = NewGlobalBuffers(backend, r.framesInput)
	r.anim = animator.NewCache(backend)
	return r
}
