// Package scene maintains the drawable entity set, bucketed by model id.
// The renderer walks the buckets once per frame to build draw batches, so
// bucket iteration order and within-bucket entity order must be stable — the
// same orders drive both the instance records and the transform buffer.
package scene

import (
	"fmt"
	"sync"

	"github.com/kiln-engine/kiln-go/common"
	"github.com/kiln-engine/kiln-go/engine/entity"
)

// Bucket is a snapshot of one model's entity list. Entities appear in
// insertion order; buckets appear in model first-use order.
type Bucket struct {
	// ModelID is the model shared by every entity in the bucket.
	ModelID common.ModelID

	// Entities is the ordered list of entities drawn with this model.
	Entities []entity.Entity
}

// scene is the implementation of the Scene interface.
type scene struct {
	mu sync.RWMutex

	name   string
	nextID common.EntityID

	// buckets maps a model id to its ordered entity list. modelOrder keeps
	// the first-use order of models so bucket iteration is deterministic.
	buckets    map[common.ModelID][]entity.Entity
	modelOrder []common.ModelID

	registry map[common.EntityID]entity.Entity
}

// Scene owns the entity set for one rendered view. Every entity lives in
// exactly one bucket, keyed by its current model id; changing an entity's
// model must go through SetEntityModel so the bucket invariant holds.
// Thread-safe for concurrent access.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// Add inserts the entity into the scene, assigning it an id and
	// appending it to its model's bucket.
	//
	// Parameters:
	//   - e: the entity to add
	//
	// Returns:
	//   - common.EntityID: the assigned id
	Add(e entity.Entity) common.EntityID

	// Get retrieves an entity by id, or nil if not present.
	//
	// Parameters:
	//   - id: the entity id
	//
	// Returns:
	//   - entity.Entity: the entity or nil
	Get(id common.EntityID) entity.Entity

	// Remove deletes the entity from the scene and its model bucket.
	// Removing an unknown id is a no-op.
	//
	// Parameters:
	//   - id: the entity id
	Remove(id common.EntityID)

	// SetEntityModel rebinds an entity to a different model, removing it
	// from its current bucket and appending it to the new model's bucket.
	//
	// Parameters:
	//   - id: the entity id
	//   - modelID: the new model id
	//
	// Returns:
	//   - error: an error if the entity is not in the scene
	SetEntityModel(id common.EntityID, modelID common.ModelID) error

	// EntitiesGroupedByModel returns a snapshot of the model buckets.
	// Buckets appear in model first-use order; entities within a bucket
	// appear in insertion order. The returned slices are copies — callers
	// may hold them across the frame without racing scene mutation.
	//
	// Returns:
	//   - []Bucket: the bucket snapshot
	EntitiesGroupedByModel() []Bucket

	// EntityCount returns the number of entities in the scene.
	//
	// Returns:
	//   - int: the entity count
	EntityCount() int

	// Clear removes all entities from the scene.
	Clear()
}

var _ Scene = &scene{}

// NewScene creates an empty scene.
//
// Parameters:
//   - name: the scene identifier
//
// Returns:
//   - Scene: the newly created scene
func NewScene(name string) Scene {
	return &scene{
		name:     name,
		nextID:   1,
		buckets:  make(map[common.ModelID][]entity.Entity),
		registry: make(map[common.EntityID]entity.Entity),
	}
}

func (s *scene) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *scene) Add(e entity.Entity) common.EntityID {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	e.SetID(id)
	s.registry[id] = e
	s.appendToBucket(e.ModelID(), e)
	return id
}

func (s *scene) Get(id common.EntityID) entity.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry[id]
}

func (s *scene) Remove(id common.EntityID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.registry[id]
	if !ok {
		return
	}
	delete(s.registry, id)
	s.removeFromBucket(e.ModelID(), id)
}

func (s *scene) SetEntityModel(id common.EntityID, modelID common.ModelID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.registry[id]
	if !ok {
		return fmt.Errorf("scene %q: entity %d not found", s.name, id)
	}
	if e.ModelID() == modelID {
		return nil
	}
	s.removeFromBucket(e.ModelID(), id)
	e.SetModelID(modelID)
	s.appendToBucket(modelID, e)
	return nil
}

func (s *scene) EntitiesGroupedByModel() []Bucket {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Bucket, 0, len(s.modelOrder))
	for _, mid := range s.modelOrder {
		list := s.buckets[mid]
		if len(list) == 0 {
			continue
		}
		cp := make([]entity.Entity, len(list))
		copy(cp, list)
		out = append(out, Bucket{ModelID: mid, Entities: cp})
	}
	return out
}

func (s *scene) EntityCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.registry)
}

func (s *scene) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buckets = make(map[common.ModelID][]entity.Entity)
	s.modelOrder = nil
	s.registry = make(map[common.EntityID]entity.Entity)
}

// appendToBucket adds e to its model bucket, tracking first use of the model.
// Caller holds the write lock.
func (s *scene) appendToBucket(modelID common.ModelID, e entity.Entity) {
	if _, seen := s.buckets[modelID]; !seen {
		s.modelOrder = append(s.modelOrder, modelID)
	}
	s.buckets[modelID] = append(s.buckets[modelID], e)
}

// removeFromBucket deletes the entity with the given id from a model bucket,
// preserving the order of the remaining entities. Caller holds the write lock.
func (s *scene) removeFromBucket(modelID common.ModelID, id common.EntityID) {
	list := s.buckets[modelID]
	for i, e := range list {
		if e.ID() == id {
			s.buckets[modelID] = append(list[:i], list[i+1:]...)
			return
		}
	}
}
