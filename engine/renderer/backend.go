package renderer

import (
	"errors"

	"github.com/kiln-engine/kiln-go/common"
	"github.com/kiln-engine/kiln-go/engine/renderer/device"
)

// ErrSurfaceStale is returned by Backend.BeginFrame when the surface no
// longer matches the window (resized, minimized, or the swapchain was
// invalidated). It is recoverable: the frame is dropped and the surface
// reconfigured before the next one.
var ErrSurfaceStale = errors.New("renderer: surface stale")

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting,
	// capping frame rate to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for
	// vertical blank. May cause tearing but gives the lowest latency.
	PresentModeUncapped
)

// FrameResources is the buffer set a render pass reads for one frame: the
// pipelined per-slot buffers plus the shared material table and the camera
// payload for the pass.
type FrameResources struct {
	// Instances is the slot's instance record buffer.
	Instances device.Buffer

	// Transforms is the slot's transform buffer.
	Transforms device.Buffer

	// Materials is the shared material table buffer.
	Materials device.Buffer

	// ViewProjection is the packed view-projection matrix for the pass — the
	// camera's for the scene pass, the light's for the shadow pass.
	ViewProjection [16]float32

	// LightViewProjection is the shadow matrix, set on the scene pass so the
	// fragment stage can sample the shadow map. Zero for the shadow pass.
	LightViewProjection [16]float32

	// LightDirection is the directional light vector (w unused).
	LightDirection [4]float32

	// LightColor is the light color scaled by intensity (w unused).
	LightColor [4]float32
}

// RenderPass records draws into one pass of the current frame. Passes are
// opened by the backend and must be ended before the frame is submitted.
type RenderPass interface {
	// BindFrameResources binds the frame's buffer set for the whole pass.
	// Must be called once before the first Draw.
	//
	// Parameters:
	//   - res: the buffer set and camera payload
	BindFrameResources(res FrameResources)

	// Draw binds one command's geometry and issues the indirect draw reading
	// its arguments from the command buffer at the command's offset. The GPU
	// reads the draw parameters; the CPU never sees them.
	//
	// Parameters:
	//   - geom: the vertex and index streams for the command
	//   - commands: the slot's indirect command buffer
	//   - commandIndex: the command's position within the buffer
	Draw(geom CommandGeometry, commands device.Buffer, commandIndex int)

	// End closes the pass.
	End()
}

// Backend is the GPU interface the renderer drives. It extends the device
// allocation surface with the swapchain and frame recording lifecycle. All
// methods must be called from the render goroutine.
type Backend interface {
	device.Device

	// ConfigureSurface (re)builds the swapchain for the given extent and
	// present mode. The caller guarantees no frames are in flight.
	//
	// Parameters:
	//   - extent: the framebuffer extent; never zero
	//   - mode: the present mode
	//
	// Returns:
	//   - error: an error if surface configuration fails (fatal)
	ConfigureSurface(extent common.Extent, mode PresentMode) error

	// BeginFrame acquires the next surface texture and opens the frame's
	// command encoder.
	//
	// Returns:
	//   - error: ErrSurfaceStale if the surface must be reconfigured, or a
	//     fatal error
	BeginFrame() error

	// BeginShadowPass opens the depth-only pass targeting the shadow map.
	//
	// Returns:
	//   - RenderPass: the open pass
	BeginShadowPass() RenderPass

	// BeginScenePass opens the main color pass targeting the acquired
	// surface texture.
	//
	// Returns:
	//   - RenderPass: the open pass
	BeginScenePass() RenderPass

	// EndFrame finishes the encoder and submits the frame's work. The
	// returned fence signals when the submission retires on the GPU.
	//
	// Returns:
	//   - device.Fence: the submission fence
	//   - error: a fatal error if submission fails
	EndFrame() (device.Fence, error)

	// Present queues the acquired texture for display.
	//
	// Returns:
	//   - error: ErrSurfaceStale if presentation hit a stale surface
	Present() error

	// Release frees all GPU resources held by the backend.
	Release()
}
