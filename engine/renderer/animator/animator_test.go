package animator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kiln-engine/kiln-go/common"
	"github.com/kiln-engine/kiln-go/engine/entity"
	"github.com/kiln-engine/kiln-go/engine/model"
	"github.com/kiln-engine/kiln-go/engine/renderer/device/devicetest"
	"github.com/kiln-engine/kiln-go/engine/scene"
)

// animatedModel builds a two-mesh model with one clip of three baked frames.
// Frame payloads are distinct per mesh and frame so uploads can be asserted.
func animatedModel() *model.Model {
	frames := func(mesh byte) [][]byte {
		return [][]byte{
			{mesh, 0, 0, 0},
			{mesh, 1, 1, 1},
			{mesh, 2, 2, 2},
		}
	}
	return &model.Model{
		Name: "walker",
		Meshes: []model.Mesh{
			{ID: 1, VertexCount: 1, IndexCount: 3},
			{ID: 2, VertexCount: 1, IndexCount: 3},
		},
		Clips: []model.AnimationClip{
			{
				Name:       "walk",
				FrameTime:  0.1,
				MeshFrames: [][][]byte{frames(10), frames(20)},
			},
		},
	}
}

func staticModel() *model.Model {
	return &model.Model{
		Name:   "rock",
		Meshes: []model.Mesh{{ID: 1, VertexCount: 3, IndexCount: 3}},
	}
}

func newFixture(t *testing.T) (*devicetest.FakeDevice, Cache, *model.Cache, scene.Scene) {
	t.Helper()
	dev := devicetest.NewFakeDevice()
	c := NewCache(dev, WithWorkers(2))
	models := model.NewCache()
	s := scene.NewScene("test")
	return dev, c, models, s
}

func bufferData(t *testing.T, c Cache, id common.EntityID, meshIndex int) []byte {
	t.Helper()
	buf, ok := c.AnimatedVertexBuffer(id, meshIndex)
	assert.True(t, ok)
	return buf.(*devicetest.FakeBuffer).Data
}

func TestPrepareFrameAllocatesPerEntityMeshBuffers(t *testing.T) {
	dev, c, models, s := newFixture(t)
	mid := models.Register(animatedModel())

	a := s.Add(entity.NewEntity(mid, entity.WithAnimation(0)))
	b := s.Add(entity.NewEntity(mid, entity.WithAnimation(0)))

	assert.NoError(t, c.PrepareFrame(0, s.EntitiesGroupedByModel(), models))
	c.FlushWrites()

	// 2 entities x 2 meshes, each with its own buffer.
	assert.Equal(t, 4, c.BufferCount())
	assert.Equal(t, 4, dev.LiveCount())

	// Both entities start on frame 0, with per-mesh payloads.
	assert.Equal(t, []byte{10, 0, 0, 0}, bufferData(t, c, a, 0))
	assert.Equal(t, []byte{20, 0, 0, 0}, bufferData(t, c, a, 1))
	assert.Equal(t, []byte{10, 0, 0, 0}, bufferData(t, c, b, 0))
}

func TestPrepareFrameAdvancesPlaybackWithWraparound(t *testing.T) {
	_, c, models, s := newFixture(t)
	mid := models.Register(animatedModel())
	id := s.Add(entity.NewEntity(mid, entity.WithAnimation(0)))

	buckets := s.EntitiesGroupedByModel()
	assert.NoError(t, c.PrepareFrame(0, buckets, models))
	c.FlushWrites()

	// One FrameTime advances to frame 1.
	assert.NoError(t, c.PrepareFrame(0.1, buckets, models))
	c.FlushWrites()
	assert.Equal(t, []byte{10, 1, 1, 1}, bufferData(t, c, id, 0))
	assert.Equal(t, 1, s.Get(id).Animation().Frame)

	// Two more FrameTimes in one step wrap past the last frame back to 0.
	assert.NoError(t, c.PrepareFrame(0.2, buckets, models))
	c.FlushWrites()
	assert.Equal(t, []byte{10, 0, 0, 0}, bufferData(t, c, id, 0))
	assert.Equal(t, 0, s.Get(id).Animation().Frame)
}

func TestPrepareFrameSkipsUploadWhenCursorIdle(t *testing.T) {
	dev, c, models, s := newFixture(t)
	mid := models.Register(animatedModel())
	id := s.Add(entity.NewEntity(mid, entity.WithAnimation(0)))

	buckets := s.EntitiesGroupedByModel()
	assert.NoError(t, c.PrepareFrame(0, buckets, models))
	c.FlushWrites()
	before := append([]byte(nil), bufferData(t, c, id, 0)...)

	// Less than one FrameTime: the cursor accumulates but the frame holds,
	// so no new payload is staged.
	dev.Buffers[0].Data[0] = 99 // sentinel to detect a rewrite
	assert.NoError(t, c.PrepareFrame(0.05, buckets, models))
	c.FlushWrites()
	assert.EqualValues(t, 99, dev.Buffers[0].Data[0])
	assert.NotEqual(t, before[0], dev.Buffers[0].Data[0])
}

func TestPrepareFramePrunesDepartedEntities(t *testing.T) {
	dev, c, models, s := newFixture(t)
	mid := models.Register(animatedModel())
	a := s.Add(entity.NewEntity(mid, entity.WithAnimation(0)))
	s.Add(entity.NewEntity(mid, entity.WithAnimation(0)))

	assert.NoError(t, c.PrepareFrame(0, s.EntitiesGroupedByModel(), models))
	assert.Equal(t, 4, c.BufferCount())

	s.Remove(a)
	assert.NoError(t, c.PrepareFrame(0, s.EntitiesGroupedByModel(), models))
	c.FlushWrites()

	assert.Equal(t, 2, c.BufferCount())
	assert.Equal(t, 2, dev.LiveCount())
	_, ok := c.AnimatedVertexBuffer(a, 0)
	assert.False(t, ok)
}

func TestRemoveEntityReleasesBuffersImmediately(t *testing.T) {
	dev, c, models, s := newFixture(t)
	mid := models.Register(animatedModel())
	id := s.Add(entity.NewEntity(mid, entity.WithAnimation(0)))

	assert.NoError(t, c.PrepareFrame(0, s.EntitiesGroupedByModel(), models))
	c.RemoveEntity(id)

	assert.Equal(t, 0, c.BufferCount())
	assert.Equal(t, 0, dev.LiveCount())
}

func TestStaticModelsAreIgnored(t *testing.T) {
	_, c, models, s := newFixture(t)
	mid := models.Register(staticModel())
	s.Add(entity.NewEntity(mid))

	assert.NoError(t, c.PrepareFrame(0.1, s.EntitiesGroupedByModel(), models))
	assert.Equal(t, 0, c.BufferCount())
}

func TestMissingModelIsSkippedNotFatal(t *testing.T) {
	_, c, models, s := newFixture(t)
	s.Add(entity.NewEntity(999, entity.WithAnimation(0)))

	assert.NoError(t, c.PrepareFrame(0.1, s.EntitiesGroupedByModel(), models))
	assert.Equal(t, 0, c.BufferCount())
}

func TestAllocationFailureIsFatal(t *testing.T) {
	dev, c, models, s := newFixture(t)
	dev.AllocErr = assert.AnError
	mid := models.Register(animatedModel())
	s.Add(entity.NewEntity(mid, entity.WithAnimation(0)))

	err := c.PrepareFrame(0, s.EntitiesGroupedByModel(), models)
	assert.ErrorIs(t, err, assert.AnError)
}
