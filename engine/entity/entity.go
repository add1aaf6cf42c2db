// Package entity defines the mutable scene objects the renderer draws.
// An Entity pairs a model reference with a world transform and, for animated
// models, a playback cursor. Application logic mutates entities each tick;
// the renderer reads them once per frame.
package entity

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/kiln-engine/kiln-go/common"
)

// AnimationState is the playback cursor for an animated entity.
type AnimationState struct {
	// Clip is the index of the active animation clip on the entity's model.
	Clip int

	// Frame is the current frame within the clip.
	Frame int

	// Elapsed accumulates time toward the next frame advance, in seconds.
	Elapsed float32
}

// entity is the implementation of the Entity interface.
type entity struct {
	mu sync.RWMutex

	id        common.EntityID
	modelID   common.ModelID
	transform mgl32.Mat4
	anim      *AnimationState
}

// Entity defines the interface for a drawable scene object.
// Transform and animation state are mutable each tick; the model reference
// changes only through Scene.SetEntityModel so the scene's model buckets stay
// consistent.
type Entity interface {
	// ID returns the entity's unique identifier, assigned by the scene.
	//
	// Returns:
	//   - common.EntityID: the entity id
	ID() common.EntityID

	// ModelID returns the id of the model this entity is drawn with.
	//
	// Returns:
	//   - common.ModelID: the model id
	ModelID() common.ModelID

	// Transform returns the entity's current model-to-world matrix.
	//
	// Returns:
	//   - mgl32.Mat4: the 4x4 transform
	Transform() mgl32.Mat4

	// SetTransform replaces the entity's model-to-world matrix.
	//
	// Parameters:
	//   - m: the new transform
	SetTransform(m mgl32.Mat4)

	// Animation returns a copy of the entity's playback cursor, or nil for
	// entities on static models.
	//
	// Returns:
	//   - *AnimationState: the playback state copy, or nil
	Animation() *AnimationState

	// SetAnimation replaces the entity's playback cursor.
	//
	// Parameters:
	//   - s: the new playback state, or nil to clear it
	SetAnimation(s *AnimationState)

	// SetID assigns the entity id. Called by the scene on Add; application
	// code should not call this.
	//
	// Parameters:
	//   - id: the id to assign
	SetID(id common.EntityID)

	// SetModelID rebinds the entity to another model. Must only be called
	// through Scene.SetEntityModel so the scene's model buckets are re-keyed
	// alongside.
	//
	// Parameters:
	//   - id: the new model id
	SetModelID(id common.ModelID)
}

var _ Entity = &entity{}

// NewEntity creates an Entity for the given model with an identity transform,
// configurable via functional options.
//
// Parameters:
//   - modelID: the model this entity is drawn with
//   - options: variadic list of EntityBuilderOption functions
//
// Returns:
//   - Entity: the newly created entity
func NewEntity(modelID common.ModelID, options ...EntityBuilderOption) Entity {
	e := &entity{
		modelID:   modelID,
		transform: mgl32.Ident4(),
	}
	for _, opt := range options {
		opt(e)
	}
	return e
}

func (e *entity) ID() common.EntityID {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.id
}

func (e *entity) ModelID() common.ModelID {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.modelID
}

func (e *entity) Transform() mgl32.Mat4 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.transform
}

func (e *entity) SetTransform(m mgl32.Mat4) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.transform = m
}

func (e *entity) Animation() *AnimationState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.anim == nil {
		return nil
	}
	cp := *e.anim
	return &cp
}

func (e *entity) SetAnimation(s *AnimationState) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.anim = s
}

func (e *entity) SetID(id common.EntityID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.id = id
}

func (e *entity) SetModelID(id common.ModelID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.modelID = id
}
