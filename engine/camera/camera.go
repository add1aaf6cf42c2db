// Package camera computes the view and projection matrices consumed by the
// render stages each frame.
package camera

import (
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// cameraImpl is the implementation of the Camera interface.
type cameraImpl struct {
	mu sync.RWMutex

	position mgl32.Vec3
	target   mgl32.Vec3
	up       mgl32.Vec3

	fov    float32
	aspect float32
	near   float32
	far    float32
}

// Camera defines the interface for the camera system. The camera holds
// perspective settings and a look-at pose, and derives the combined
// view-projection matrix the render stages upload each frame.
// Thread-safe for concurrent access.
type Camera interface {
	// Position returns the camera's world-space position.
	//
	// Returns:
	//   - mgl32.Vec3: the position
	Position() mgl32.Vec3

	// SetPosition moves the camera to a new world-space position.
	//
	// Parameters:
	//   - p: the new position
	SetPosition(p mgl32.Vec3)

	// Target returns the world-space point the camera looks at.
	//
	// Returns:
	//   - mgl32.Vec3: the look-at target
	Target() mgl32.Vec3

	// SetTarget points the camera at a new world-space target.
	//
	// Parameters:
	//   - t: the new target
	SetTarget(t mgl32.Vec3)

	// SetAspect updates the aspect ratio (width / height). Called on every
	// surface resize.
	//
	// Parameters:
	//   - aspect: the new aspect ratio
	SetAspect(aspect float32)

	// ViewMatrix returns the current view matrix.
	//
	// Returns:
	//   - mgl32.Mat4: the view matrix
	ViewMatrix() mgl32.Mat4

	// ProjectionMatrix returns the current perspective projection matrix.
	//
	// Returns:
	//   - mgl32.Mat4: the projection matrix
	ProjectionMatrix() mgl32.Mat4

	// ViewProjectionMatrix returns projection multiplied by view, the matrix
	// the vertex stage applies to world-space positions.
	//
	// Returns:
	//   - mgl32.Mat4: the combined view-projection matrix
	ViewProjectionMatrix() mgl32.Mat4
}

var _ Camera = &cameraImpl{}

// NewCamera creates a camera with sensible perspective defaults, configurable
// via functional options.
//
// Parameters:
//   - options: variadic list of CameraBuilderOption functions
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		position: mgl32.Vec3{0, 2, 5},
		target:   mgl32.Vec3{0, 0, 0},
		up:       mgl32.Vec3{0, 1, 0},
		fov:      mgl32.DegToRad(60),
		aspect:   16.0 / 9.0,
		near:     0.1,
		far:      1000,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

func (c *cameraImpl) Position() mgl32.Vec3 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.position
}

func (c *cameraImpl) SetPosition(p mgl32.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.position = p
}

func (c *cameraImpl) Target() mgl32.Vec3 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.target
}

func (c *cameraImpl) SetTarget(t mgl32.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.target = t
}

func (c *cameraImpl) SetAspect(aspect float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if aspect > 0 {
		c.aspect = aspect
	}
}

func (c *cameraImpl) ViewMatrix() mgl32.Mat4 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return mgl32.LookAtV(c.position, c.target, c.up)
}

func (c *cameraImpl) ProjectionMatrix() mgl32.Mat4 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return perspectiveWGPU(c.fov, c.aspect, c.near, c.far)
}

func (c *cameraImpl) ViewProjectionMatrix() mgl32.Mat4 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	view := mgl32.LookAtV(c.position, c.target, c.up)
	proj := perspectiveWGPU(c.fov, c.aspect, c.near, c.far)
	return proj.Mul4(view)
}

// perspectiveWGPU builds a perspective projection matching WebGPU's
// clip-space convention: X/Y in [-1, 1], Z in [0, 1]. mgl32.Perspective
// targets OpenGL's [-1, 1] depth and would lose half the depth precision and
// clip geometry in front of the near plane.
func perspectiveWGPU(fovY, aspect, near, far float32) mgl32.Mat4 {
	f := 1.0 / float32(math.Tan(float64(fovY)/2.0))
	var m mgl32.Mat4
	m[0] = f / aspect
	m[5] = f
	m[10] = far / (near - far)
	m[11] = -1
	m[14] = (near * far) / (near - far)
	return m
}
