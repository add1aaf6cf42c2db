package renderer

import (
	"errors"
	"fmt"
	"time"

	"github.com/kiln-engine/kiln-go/common"
	"github.com/kiln-engine/kiln-go/engine/camera"
	"github.com/kiln-engine/kiln-go/engine/light"
	"github.com/kiln-engine/kiln-go/engine/model"
	"github.com/kiln-engine/kiln-go/engine/renderer/animator"
	"github.com/kiln-engine/kiln-go/engine/renderer/material"
	"github.com/kiln-engine/kiln-go/engine/scene"
)

// DefaultFramesInFlight is the number of frames the CPU may run ahead of the
// GPU unless overridden with WithFramesInFlight.
const DefaultFramesInFlight = 2

// rendererImpl is the implementation of the Renderer interface.
type rendererImpl struct {
	backend Backend
	sched   *FrameScheduler
	buffers *GlobalBuffers
	anim    animator.Cache

	models    *model.Cache
	materials *material.Cache
	cam       camera.Camera
	sun       *light.DirectionalLight
	stages    []Stage

	presentMode  PresentMode
	framesInput  int // frames-in-flight requested at build time
	fenceTimeout time.Duration

	// lastMaterialCount tracks the material table watermark so the shared
	// table is re-uploaded only when new materials were registered.
	lastMaterialCount int

	framesRendered uint64
	framesSkipped  uint64
}

// Renderer produces frames from a scene. Each RenderFrame call claims the
// next frame slot (blocking until the GPU releases it), rebuilds that slot's
// draw data from the scene, records every stage, and submits. All methods
// must be called from the render goroutine except the cache accessors, which
// are safe anywhere.
type Renderer interface {
	// RenderFrame produces one frame from the scene.
	//
	// Recoverable conditions (zero extent, stale surface) return nil after
	// skipping or dropping the frame. A non-nil error is fatal: the device
	// is lost or out of memory, and the caller should shut down.
	//
	// Parameters:
	//   - deltaTime: elapsed time since the last frame in seconds
	//   - sc: the scene to draw
	//   - extent: the window's current framebuffer extent
	//
	// Returns:
	//   - error: a fatal error, or nil
	RenderFrame(deltaTime float32, sc scene.Scene, extent common.Extent) error

	// NotifyResize tells the renderer the framebuffer extent changed. Safe
	// to call from a window callback; the resize is applied on the next
	// frame after the GPU drains.
	//
	// Parameters:
	//   - extent: the new framebuffer extent
	NotifyResize(extent common.Extent)

	// Models returns the model cache shared with loaders.
	//
	// Returns:
	//   - *model.Cache: the model cache
	Models() *model.Cache

	// Materials returns the material cache shared with loaders.
	//
	// Returns:
	//   - *material.Cache: the material cache
	Materials() *material.Cache

	// Animations returns the per-entity animated vertex cache.
	//
	// Returns:
	//   - animator.Cache: the animation cache
	Animations() animator.Cache

	// Camera returns the scene camera.
	//
	// Returns:
	//   - camera.Camera: the camera
	Camera() camera.Camera

	// Light returns the directional light driving the shadow stage.
	//
	// Returns:
	//   - *light.DirectionalLight: the light
	Light() *light.DirectionalLight

	// FramesRendered returns the number of frames submitted so far.
	//
	// Returns:
	//   - uint64: the submitted frame count
	FramesRendered() uint64

	// Release frees all GPU resources held by the renderer.
	Release()
}

var _ Renderer = &rendererImpl{}

func (r *rendererImpl) RenderFrame(deltaTime float32, sc scene.Scene, extent common.Extent) error {
	plan, err := r.sched.BeginTick(extent)
	if err != nil {
		return fmt.Errorf("renderer: %w", err)
	}
	if plan.Skip {
		r.framesSkipped++
		return nil
	}
	if plan.Reconfigure {
		if err := r.backend.ConfigureSurface(plan.Extent, r.presentMode); err != nil {
			return fmt.Errorf("renderer: configure surface: %w", err)
		}
		if plan.Extent.Height > 0 {
			r.cam.SetAspect(float32(plan.Extent.Width) / float32(plan.Extent.Height))
		}
	}

	if err := r.refreshMaterials(); err != nil {
		return fmt.Errorf("renderer: material table: %w", err)
	}

	buckets := sc.EntitiesGroupedByModel()
	if err := r.anim.PrepareFrame(deltaTime, buckets, r.models); err != nil {
		return fmt.Errorf("renderer: animation prep: %w", err)
	}
	r.anim.FlushWrites()

	batch := BuildBatch(buckets, r.models, r.materials, r.anim)
	if err := r.buffers.Update(plan.Slot, batch); err != nil {
		return fmt.Errorf("renderer: frame slot %d: %w", plan.Slot, err)
	}

	if err := r.backend.BeginFrame(); err != nil {
		if errors.Is(err, ErrSurfaceStale) {
			r.sched.MarkSurfaceStale()
			return nil
		}
		return fmt.Errorf("renderer: begin frame: %w", err)
	}

	for _, stage := range r.stages {
		stage.Record(r.backend, r.buffers, plan.Slot)
	}

	fence, err := r.backend.EndFrame()
	if err != nil {
		return fmt.Errorf("renderer: submit: %w", err)
	}
	r.sched.CompleteTick(plan.Slot, fence)
	r.framesRendered++

	if err := r.backend.Present(); err != nil {
		if errors.Is(err, ErrSurfaceStale) {
			r.sched.MarkSurfaceStale()
			return nil
		}
		return fmt.Errorf("renderer: present: %w", err)
	}
	return nil
}

// refreshMaterials re-uploads the material table if materials were registered
// since the last upload.
func (r *rendererImpl) refreshMaterials() error {
	count := r.materials.Count()
	if count == r.lastMaterialCount {
		return nil
	}
	if err := r.buffers.UploadMaterials(r.materials.MarshalTable()); err != nil {
		return err
	}
	r.lastMaterialCount = count
	return nil
}

func (r *rendererImpl) NotifyResize(extent common.Extent) {
	r.sched.RequestResize(extent)
}

func (r *rendererImpl) Models() *model.Cache {
	return r.models
}

func (r *rendererImpl) Materials() *material.Cache {
	return r.materials
}

func (r *rendererImpl) Animations() animator.Cache {
	return r.anim
}

func (r *rendererImpl) Camera() camera.Camera {
	return r.cam
}

func (r *rendererImpl) Light() *light.DirectionalLight {
	return r.sun
}

func (r *rendererImpl) FramesRendered() uint64 {
	return r.framesRendered
}

func (r *rendererImpl) Release() {
	r.anim.Release()
	r.buffers.Release()
	r.backend.Release()
}
