package camera

import "github.com/go-gl/mathgl/mgl32"

// CameraBuilderOption is a functional option for configuring a Camera during construction.
type CameraBuilderOption func(*cameraImpl)

// WithPosition sets the initial world-space position.
//
// Parameters:
//   - p: the position
//
// Returns:
//   - CameraBuilderOption: a function that applies the position to a camera
func WithPosition(p mgl32.Vec3) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.position = p
	}
}

// WithTarget sets the initial look-at target.
//
// Parameters:
//   - t: the target
//
// Returns:
//   - CameraBuilderOption: a function that applies the target to a camera
func WithTarget(t mgl32.Vec3) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.target = t
	}
}

// WithUp sets the up vector.
//
// Parameters:
//   - up: the up vector
//
// Returns:
//   - CameraBuilderOption: a function that applies the up vector to a camera
func WithUp(up mgl32.Vec3) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.up = up
	}
}

// WithPerspective sets the projection parameters.
//
// Parameters:
//   - fovRadians: vertical field of view in radians
//   - aspect: aspect ratio (width / height)
//   - near: near clipping plane distance
//   - far: far clipping plane distance
//
// Returns:
//   - CameraBuilderOption: a function that applies the projection to a camera
func WithPerspective(fovRadians, aspect, near, far float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.fov = fovRadians
		c.aspect = aspect
		c.near = near
		c.far = far
	}
}
