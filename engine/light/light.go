// Package light defines the directional light driving the shadow stage.
package light

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// ShadowMapResolution is the default width and height in texels of the shadow
// depth texture.
const ShadowMapResolution = 2048

// DefaultShadowHalfExtent is the default orthographic half-extent (in world
// units) of the directional light's shadow frustum.
const DefaultShadowHalfExtent float32 = 40.0

// DefaultShadowNear is the default near plane of the shadow projection.
const DefaultShadowNear float32 = 0.1

// DefaultShadowFar is the default far plane of the shadow projection.
const DefaultShadowFar float32 = 200.0

// DirectionalLight is a sun-style light source. Its view-projection matrix
// renders the scene from the light's point of view into the shadow map.
// Thread-safe for concurrent access.
type DirectionalLight struct {
	mu sync.RWMutex

	direction  mgl32.Vec3
	color      mgl32.Vec3
	intensity  float32
	halfExtent float32
	near, far  float32
}

// LightBuilderOption is a functional option for configuring a DirectionalLight during construction.
type LightBuilderOption func(*DirectionalLight)

// WithDirection sets the light direction (toward the scene).
//
// Parameters:
//   - d: the direction; normalized internally
//
// Returns:
//   - LightBuilderOption: a function that applies the direction to a light
func WithDirection(d mgl32.Vec3) LightBuilderOption {
	return func(l *DirectionalLight) {
		l.direction = d.Normalize()
	}
}

// WithColor sets the light color and intensity.
//
// Parameters:
//   - color: the RGB color
//   - intensity: the brightness multiplier
//
// Returns:
//   - LightBuilderOption: a function that applies the color to a light
func WithColor(color mgl32.Vec3, intensity float32) LightBuilderOption {
	return func(l *DirectionalLight) {
		l.color = color
		l.intensity = intensity
	}
}

// WithShadowFrustum sets the orthographic shadow volume.
//
// Parameters:
//   - halfExtent: half-size of the shadow box in world units
//   - near: near plane distance
//   - far: far plane distance
//
// Returns:
//   - LightBuilderOption: a function that applies the frustum to a light
func WithShadowFrustum(halfExtent, near, far float32) LightBuilderOption {
	return func(l *DirectionalLight) {
		l.halfExtent = halfExtent
		l.near = near
		l.far = far
	}
}

// NewDirectionalLight creates a light with overhead-angled defaults,
// configurable via functional options.
//
// Parameters:
//   - options: variadic list of LightBuilderOption functions
//
// Returns:
//   - *DirectionalLight: the newly created light
func NewDirectionalLight(options ...LightBuilderOption) *DirectionalLight {
	l := &DirectionalLight{
		direction:  mgl32.Vec3{-0.5, -1, -0.3}.Normalize(),
		color:      mgl32.Vec3{1, 1, 1},
		intensity:  1,
		halfExtent: DefaultShadowHalfExtent,
		near:       DefaultShadowNear,
		far:        DefaultShadowFar,
	}
	for _, opt := range options {
		opt(l)
	}
	return l
}

// Direction returns the normalized light direction.
//
// Returns:
//   - mgl32.Vec3: the direction
func (l *DirectionalLight) Direction() mgl32.Vec3 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.direction
}

// SetDirection replaces the light direction.
//
// Parameters:
//   - d: the new direction; normalized internally
func (l *DirectionalLight) SetDirection(d mgl32.Vec3) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.direction = d.Normalize()
}

// Color returns the light color and intensity.
//
// Returns:
//   - mgl32.Vec3: the RGB color
//   - float32: the intensity
func (l *DirectionalLight) Color() (mgl32.Vec3, float32) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.color, l.intensity
}

// ShadowMatrix returns the light's view-projection matrix, an orthographic
// box centered on the given world point looking along the light direction.
//
// Parameters:
//   - center: the world-space point the shadow volume is centered on
//
// Returns:
//   - mgl32.Mat4: the shadow view-projection matrix
func (l *DirectionalLight) ShadowMatrix(center mgl32.Vec3) mgl32.Mat4 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	eye := center.Sub(l.direction.Mul(l.far * 0.5))
	up := mgl32.Vec3{0, 1, 0}
	// Degenerate when the light points straight down the up axis.
	if l.direction.Cross(up).Len() < 1e-4 {
		up = mgl32.Vec3{0, 0, 1}
	}
	view := mgl32.LookAtV(eye, center, up)
	proj := orthoWGPU(-l.halfExtent, l.halfExtent, -l.halfExtent, l.halfExtent, l.near, l.far)
	return proj.Mul4(view)
}

// orthoWGPU builds an orthographic projection matching WebGPU's clip-space
// convention: X/Y in [-1, 1], Z in [0, 1]. mgl32.Ortho targets OpenGL's
// [-1, 1] depth range.
func orthoWGPU(left, right, bottom, top, near, far float32) mgl32.Mat4 {
	var m mgl32.Mat4
	m[0] = 2 / (right - left)
	m[5] = 2 / (top - bottom)
	m[10] = -1 / (far - near)
	m[12] = -(right + left) / (right - left)
	m[13] = -(top + bottom) / (top - bottom)
	m[14] = -near / (far - near)
	m[15] = 1
	return m
}
