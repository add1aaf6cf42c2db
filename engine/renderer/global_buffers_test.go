package renderer

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kiln-engine/kiln-go/engine/model"
	"github.com/kiln-engine/kiln-go/engine/renderer/device/devicetest"
)

func testBatch(commands, instances, transforms int) Batch {
	b := Batch{}
	for i := 0; i < commands; i++ {
		b.Commands = append(b.Commands, model.GPUDrawCommand{
			IndexCount:    uint32(100 + i),
			InstanceCount: 1,
			FirstInstance: uint32(i),
		})
		b.Geometry = append(b.Geometry, CommandGeometry{})
	}
	for i := 0; i < instances; i++ {
		b.Instances = append(b.Instances, model.GPUInstanceRecord{TransformIndex: uint32(i)})
	}
	for i := 0; i < transforms; i++ {
		b.Transforms = append(b.Transforms, model.GPUTransform{Model: [16]float32{float32(i)}})
	}
	return b
}

func TestUpdateUploadsMarshaledRecords(t *testing.T) {
	dev := devicetest.NewFakeDevice()
	g := NewGlobalBuffers(dev, 2)

	assert.NoError(t, g.Update(0, testBatch(2, 2, 2)))

	assert.Equal(t, 2, g.LiveCommandCount(0))
	cmdBuf := g.CommandBuffer(0).(*devicetest.FakeBuffer)
	assert.EqualValues(t, 100, binary.LittleEndian.Uint32(cmdBuf.Data[0:4]))
	assert.EqualValues(t, 101, binary.LittleEndian.Uint32(cmdBuf.Data[model.GPUDrawCommandSize:model.GPUDrawCommandSize+4]))
	assert.NotNil(t, g.InstanceBuffer(0))
	assert.NotNil(t, g.TransformBuffer(0))
	assert.Len(t, g.Geometry(0), 2)
}

func TestSlotsAreIndependent(t *testing.T) {
	dev := devicetest.NewFakeDevice()
	g := NewGlobalBuffers(dev, 2)

	assert.NoError(t, g.Update(0, testBatch(3, 3, 3)))
	assert.NoError(t, g.Update(1, testBatch(1, 1, 1)))

	assert.Equal(t, 3, g.LiveCommandCount(0))
	assert.Equal(t, 1, g.LiveCommandCount(1))
	assert.NotEqual(t, g.CommandBuffer(0), g.CommandBuffer(1))

	// Rewriting slot 1 leaves slot 0's upload untouched.
	slot0 := g.CommandBuffer(0).(*devicetest.FakeBuffer)
	before := append([]byte(nil), slot0.Data...)
	assert.NoError(t, g.Update(1, testBatch(2, 2, 2)))
	assert.Equal(t, before, slot0.Data)
}

func TestCapacityGrowsButNeverShrinks(t *testing.T) {
	dev := devicetest.NewFakeDevice()
	g := NewGlobalBuffers(dev, 1)

	assert.NoError(t, g.Update(0, testBatch(10, 10, 10)))
	bigCap := g.CommandBuffer(0).Capacity()
	bigAddr := g.CommandBuffer(0).Address()

	// A smaller frame drops the live count but keeps the allocation.
	assert.NoError(t, g.Update(0, testBatch(2, 2, 2)))
	assert.Equal(t, 2, g.LiveCommandCount(0))
	assert.Equal(t, bigCap, g.CommandBuffer(0).Capacity())
	assert.Equal(t, bigAddr, g.CommandBuffer(0).Address())

	// A larger frame grows it.
	assert.NoError(t, g.Update(0, testBatch(20, 20, 20)))
	assert.Greater(t, g.CommandBuffer(0).Capacity(), bigCap)
}

func TestEmptyBatchKeepsAllocationsAndZeroesLiveCount(t *testing.T) {
	dev := devicetest.NewFakeDevice()
	g := NewGlobalBuffers(dev, 1)

	assert.NoError(t, g.Update(0, testBatch(4, 4, 4)))
	live := dev.LiveCount()

	assert.NoError(t, g.Update(0, Batch{}))
	assert.Equal(t, 0, g.LiveCommandCount(0))
	assert.Empty(t, g.Geometry(0))
	assert.Equal(t, live, dev.LiveCount())
}

func TestUpdatePropagatesAllocFailure(t *testing.T) {
	dev := devicetest.NewFakeDevice()
	g := NewGlobalBuffers(dev, 1)
	dev.AllocErr = assert.AnError

	err := g.Update(0, testBatch(1, 1, 1))
	assert.ErrorIs(t, err, assert.AnError)
}

func TestUploadMaterialsReusesSharedBuffer(t *testing.T) {
	dev := devicetest.NewFakeDevice()
	g := NewGlobalBuffers(dev, 2)

	assert.Nil(t, g.MaterialBuffer())
	assert.NoError(t, g.UploadMaterials(make([]byte, 64)))
	first := g.MaterialBuffer()
	assert.NotNil(t, first)

	// Appending materials grows the same logical table.
	assert.NoError(t, g.UploadMaterials(make([]byte, 128)))
	assert.EqualValues(t, 128, g.MaterialBuffer().Capacity())
}

func TestReleaseFreesEverything(t *testing.T) {
	dev := devicetest.NewFakeDevice()
	g := NewGlobalBuffers(dev, 2)
	assert.NoError(t, g.Update(0, testBatch(1, 1, 1)))
	assert.NoError(t, g.Update(1, testBatch(1, 1, 1)))
	assert.NoError(t, g.UploadMaterials(make([]byte, 32)))

	g.Release()
	assert.Equal(t, 0, dev.LiveCount())
	assert.Equal(t, 0, g.LiveCommandCount(0))
}
