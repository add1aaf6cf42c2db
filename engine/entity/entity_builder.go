package entity

import "github.com/go-gl/mathgl/mgl32"

// EntityBuilderOption is a functional option for configuring an Entity during construction.
type EntityBuilderOption func(*entity)

// WithTransform sets the initial model-to-world matrix.
//
// Parameters:
//   - m: the transform to start with
//
// Returns:
//   - EntityBuilderOption: a function that applies the transform to an entity
func WithTransform(m mgl32.Mat4) EntityBuilderOption {
	return func(e *entity) {
		e.transform = m
	}
}

// WithAnimation sets the initial animation playback state. Only meaningful for
// entities whose model carries animation clips.
//
// Parameters:
//   - clip: the clip index to play
//
// Returns:
//   - EntityBuilderOption: a function that applies the animation state to an entity
func WithAnimation(clip int) EntityBuilderOption {
	return func(e *entity) {
		e.anim = &AnimationState{Clip: clip}
	}
}
