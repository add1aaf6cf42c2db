package device_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kiln-engine/kiln-go/engine/renderer/device"
	"github.com/kiln-engine/kiln-go/engine/renderer/device/devicetest"
)

func TestEnsureCapacityAllocatesLazily(t *testing.T) {
	dev := devicetest.NewFakeDevice()
	g := device.NewGrowableBuffer(dev, "test", device.BufferUsageStorage)

	assert.EqualValues(t, 0, g.Capacity())
	assert.Nil(t, g.Buffer())
	assert.Empty(t, dev.Buffers)

	assert.NoError(t, g.EnsureCapacity(128))
	assert.EqualValues(t, 128, g.Capacity())
	assert.Len(t, dev.Buffers, 1)
}

func TestEnsureCapacityNeverShrinks(t *testing.T) {
	dev := devicetest.NewFakeDevice()
	g := device.NewGrowableBuffer(dev, "test", device.BufferUsageStorage)

	assert.NoError(t, g.EnsureCapacity(256))
	grownAddr := g.Address()

	// A smaller requirement keeps the existing allocation untouched.
	assert.NoError(t, g.EnsureCapacity(64))
	assert.EqualValues(t, 256, g.Capacity())
	assert.Equal(t, grownAddr, g.Address())
	assert.Len(t, dev.Buffers, 1)
}

func TestEnsureCapacityGrowsAndReleasesOld(t *testing.T) {
	dev := devicetest.NewFakeDevice()
	g := device.NewGrowableBuffer(dev, "test", device.BufferUsageStorage)

	assert.NoError(t, g.EnsureCapacity(64))
	oldAddr := g.Address()

	assert.NoError(t, g.EnsureCapacity(512))
	assert.EqualValues(t, 512, g.Capacity())
	assert.NotEqual(t, oldAddr, g.Address())
	assert.True(t, dev.Buffers[0].Released)
	assert.Equal(t, 1, dev.LiveCount())
}

func TestEnsureCapacityPropagatesAllocFailure(t *testing.T) {
	dev := devicetest.NewFakeDevice()
	dev.AllocErr = device.ErrDeviceLost
	g := device.NewGrowableBuffer(dev, "test", device.BufferUsageStorage)

	err := g.EnsureCapacity(64)
	assert.ErrorIs(t, err, device.ErrDeviceLost)
}

func TestWriteTracksLiveSize(t *testing.T) {
	dev := devicetest.NewFakeDevice()
	g := device.NewGrowableBuffer(dev, "test", device.BufferUsageStorage)
	assert.NoError(t, g.EnsureCapacity(64))

	g.Write(0, []byte{1, 2, 3, 4})
	assert.EqualValues(t, 4, g.LiveSize())

	g.Write(16, []byte{5, 6})
	assert.EqualValues(t, 18, g.LiveSize())

	// A rebuild for a smaller scene resets the watermark below capacity.
	g.SetLiveSize(8)
	assert.EqualValues(t, 8, g.LiveSize())
	assert.EqualValues(t, 64, g.Capacity())
}

func TestWritePastCapacityPanics(t *testing.T) {
	dev := devicetest.NewFakeDevice()
	g := device.NewGrowableBuffer(dev, "test", device.BufferUsageStorage)
	assert.NoError(t, g.EnsureCapacity(8))

	assert.Panics(t, func() { g.Write(4, make([]byte, 8)) })
}

func TestWriteUnallocatedPanics(t *testing.T) {
	dev := devicetest.NewFakeDevice()
	g := device.NewGrowableBuffer(dev, "test", device.BufferUsageStorage)

	assert.Panics(t, func() { g.Write(0, []byte{1}) })
}

func TestReleaseFreesAllocation(t *testing.T) {
	dev := devicetest.NewFakeDevice()
	g := device.NewGrowableBuffer(dev, "test", device.BufferUsageStorage)
	assert.NoError(t, g.EnsureCapacity(32))
	g.Write(0, []byte{1})

	g.Release()
	assert.EqualValues(t, 0, g.Capacity())
	assert.EqualValues(t, 0, g.LiveSize())
	assert.Equal(t, 0, dev.LiveCount())
}
