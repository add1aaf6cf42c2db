package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kiln-engine/kiln-go/common"
	"github.com/kiln-engine/kiln-go/engine/entity"
)

func TestAddAssignsSequentialIDs(t *testing.T) {
	s := NewScene("test")

	a := s.Add(entity.NewEntity(1))
	b := s.Add(entity.NewEntity(1))
	c := s.Add(entity.NewEntity(2))

	assert.Equal(t, common.EntityID(1), a)
	assert.Equal(t, common.EntityID(2), b)
	assert.Equal(t, common.EntityID(3), c)
	assert.Equal(t, 3, s.EntityCount())
}

func TestGetReturnsNilForUnknownID(t *testing.T) {
	s := NewScene("test")
	assert.Nil(t, s.Get(42))

	id := s.Add(entity.NewEntity(1))
	got := s.Get(id)
	assert.NotNil(t, got)
	assert.Equal(t, id, got.ID())
}

func TestBucketsFollowModelFirstUseOrder(t *testing.T) {
	s := NewScene("test")

	// Interleave adds across three models; bucket order must follow the
	// first time each model appeared, not the model id.
	s.Add(entity.NewEntity(7))
	s.Add(entity.NewEntity(3))
	s.Add(entity.NewEntity(7))
	s.Add(entity.NewEntity(5))
	s.Add(entity.NewEntity(3))

	buckets := s.EntitiesGroupedByModel()
	assert.Len(t, buckets, 3)
	assert.Equal(t, common.ModelID(7), buckets[0].ModelID)
	assert.Equal(t, common.ModelID(3), buckets[1].ModelID)
	assert.Equal(t, common.ModelID(5), buckets[2].ModelID)
	assert.Len(t, buckets[0].Entities, 2)
	assert.Len(t, buckets[1].Entities, 2)
	assert.Len(t, buckets[2].Entities, 1)
}

func TestEntitiesKeepInsertionOrderWithinBucket(t *testing.T) {
	s := NewScene("test")

	first := s.Add(entity.NewEntity(1))
	second := s.Add(entity.NewEntity(1))
	third := s.Add(entity.NewEntity(1))

	buckets := s.EntitiesGroupedByModel()
	assert.Len(t, buckets, 1)
	assert.Equal(t, first, buckets[0].Entities[0].ID())
	assert.Equal(t, second, buckets[0].Entities[1].ID())
	assert.Equal(t, third, buckets[0].Entities[2].ID())
}

func TestRemoveDeletesFromRegistryAndBucket(t *testing.T) {
	s := NewScene("test")

	a := s.Add(entity.NewEntity(1))
	b := s.Add(entity.NewEntity(1))
	c := s.Add(entity.NewEntity(1))

	s.Remove(b)

	assert.Nil(t, s.Get(b))
	assert.Equal(t, 2, s.EntityCount())

	buckets := s.EntitiesGroupedByModel()
	assert.Len(t, buckets, 1)
	assert.Len(t, buckets[0].Entities, 2)
	assert.Equal(t, a, buckets[0].Entities[0].ID())
	assert.Equal(t, c, buckets[0].Entities[1].ID())
}

func TestRemoveUnknownIDIsNoOp(t *testing.T) {
	s := NewScene("test")
	s.Add(entity.NewEntity(1))

	s.Remove(99)
	assert.Equal(t, 1, s.EntityCount())
}

func TestSetEntityModelRekeysBucket(t *testing.T) {
	s := NewScene("test")

	id := s.Add(entity.NewEntity(1))
	s.Add(entity.NewEntity(1))

	err := s.SetEntityModel(id, 2)
	assert.NoError(t, err)
	assert.Equal(t, common.ModelID(2), s.Get(id).ModelID())

	buckets := s.EntitiesGroupedByModel()
	assert.Len(t, buckets, 2)
	assert.Equal(t, common.ModelID(1), buckets[0].ModelID)
	assert.Len(t, buckets[0].Entities, 1)
	assert.Equal(t, common.ModelID(2), buckets[1].ModelID)
	assert.Equal(t, id, buckets[1].Entities[0].ID())
}

func TestSetEntityModelUnknownEntityErrors(t *testing.T) {
	s := NewScene("test")
	err := s.SetEntityModel(42, 1)
	assert.Error(t, err)
}

func TestSetEntityModelSameModelKeepsPosition(t *testing.T) {
	s := NewScene("test")

	first := s.Add(entity.NewEntity(1))
	second := s.Add(entity.NewEntity(1))

	err := s.SetEntityModel(first, 1)
	assert.NoError(t, err)

	buckets := s.EntitiesGroupedByModel()
	assert.Equal(t, first, buckets[0].Entities[0].ID())
	assert.Equal(t, second, buckets[0].Entities[1].ID())
}

func TestSnapshotIsIsolatedFromMutation(t *testing.T) {
	s := NewScene("test")

	s.Add(entity.NewEntity(1))
	buckets := s.EntitiesGroupedByModel()
	assert.Len(t, buckets[0].Entities, 1)

	s.Add(entity.NewEntity(1))
	assert.Len(t, buckets[0].Entities, 1)
}

func TestEmptiedBucketIsSkippedInSnapshot(t *testing.T) {
	s := NewScene("test")

	id := s.Add(entity.NewEntity(1))
	s.Add(entity.NewEntity(2))
	s.Remove(id)

	buckets := s.EntitiesGroupedByModel()
	assert.Len(t, buckets, 1)
	assert.Equal(t, common.ModelID(2), buckets[0].ModelID)
}

func TestClear(t *testing.T) {
	s := NewScene("test")
	s.Add(entity.NewEntity(1))
	s.Add(entity.NewEntity(2))

	s.Clear()
	assert.Equal(t, 0, s.EntityCount())
	assert.Empty(t, s.EntitiesGroupedByModel())
}
