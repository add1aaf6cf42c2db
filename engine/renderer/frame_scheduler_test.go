package renderer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kiln-engine/kiln-go/common"
	"github.com/kiln-engine/kiln-go/engine/renderer/device"
	"github.com/kiln-engine/kiln-go/engine/renderer/device/devicetest"
)

var testExtent = common.Extent{Width: 800, Height: 600}

// begin runs a tick that must produce a frame, returning its slot.
func begin(t *testing.T, s *FrameScheduler, extent common.Extent) TickPlan {
	t.Helper()
	plan, err := s.BeginTick(extent)
	assert.NoError(t, err)
	assert.False(t, plan.Skip)
	return plan
}

func TestSlotsRotateRoundRobin(t *testing.T) {
	s := NewFrameScheduler(3)

	for tick := 0; tick < 7; tick++ {
		plan := begin(t, s, testExtent)
		assert.Equal(t, tick%3, plan.Slot, "tick %d", tick)
		s.CompleteTick(plan.Slot, devicetest.NewSignaledFence())
	}
}

func TestFirstTickReconfiguresSurface(t *testing.T) {
	s := NewFrameScheduler(2)

	plan := begin(t, s, testExtent)
	assert.True(t, plan.Reconfigure)
	assert.Equal(t, testExtent, plan.Extent)

	plan = begin(t, s, testExtent)
	assert.False(t, plan.Reconfigure)
}

func TestSlotReuseWaitsOnItsFence(t *testing.T) {
	s := NewFrameScheduler(2)

	plan := begin(t, s, testExtent)
	f0 := devicetest.NewSignaledFence()
	s.CompleteTick(plan.Slot, f0)

	plan = begin(t, s, testExtent)
	s.CompleteTick(plan.Slot, devicetest.NewSignaledFence())

	// Third tick returns to slot 0 and must wait on its fence.
	assert.Equal(t, 0, f0.WaitCalls)
	plan = begin(t, s, testExtent)
	assert.Equal(t, 0, plan.Slot)
	assert.Equal(t, 1, f0.WaitCalls)
}

func TestUnresponsiveFenceIsFatal(t *testing.T) {
	s := NewFrameScheduler(1, WithFenceTimeout(time.Millisecond))

	plan := begin(t, s, testExtent)
	s.CompleteTick(plan.Slot, devicetest.NewStuckFence())

	_, err := s.BeginTick(testExtent)
	assert.ErrorIs(t, err, device.ErrDeviceLost)
}

func TestZeroExtentSkipsButAdvancesCursor(t *testing.T) {
	s := NewFrameScheduler(2)
	begin(t, s, testExtent)

	plan, err := s.BeginTick(common.Extent{})
	assert.NoError(t, err)
	assert.True(t, plan.Skip)

	// The skipped tick consumed slot 1; the next tick is slot 0 again.
	plan = begin(t, s, testExtent)
	assert.Equal(t, 0, plan.Slot)
}

func TestZeroExtentDoesNotTouchFences(t *testing.T) {
	s := NewFrameScheduler(1, WithFenceTimeout(time.Millisecond))
	plan := begin(t, s, testExtent)
	stuck := devicetest.NewStuckFence()
	s.CompleteTick(plan.Slot, stuck)

	// A minimized window must not block on the unsignaled fence.
	p, err := s.BeginTick(common.Extent{})
	assert.NoError(t, err)
	assert.True(t, p.Skip)
	assert.Equal(t, 0, stuck.WaitCalls)
}

func TestStaleSurfaceDrainsAllSlotsThenReconfigures(t *testing.T) {
	s := NewFrameScheduler(2)

	f0 := devicetest.NewSignaledFence()
	f1 := devicetest.NewSignaledFence()
	plan := begin(t, s, testExtent)
	s.CompleteTick(plan.Slot, f0)
	plan = begin(t, s, testExtent)
	s.CompleteTick(plan.Slot, f1)

	s.MarkSurfaceStale()
	assert.Equal(t, FrameStateResizing, s.State())

	plan = begin(t, s, testExtent)
	assert.True(t, plan.Reconfigure)
	assert.Equal(t, FrameStateActive, s.State())
	// Both in-flight frames drained, not just the tick's own slot.
	assert.Equal(t, 1, f0.WaitCalls)
	assert.Equal(t, 1, f1.WaitCalls)
}

func TestExtentChangeForcesReconfigure(t *testing.T) {
	s := NewFrameScheduler(2)
	begin(t, s, testExtent)

	grown := common.Extent{Width: 1024, Height: 768}
	plan := begin(t, s, grown)
	assert.True(t, plan.Reconfigure)
	assert.Equal(t, grown, plan.Extent)
}

func TestRequestResizeToSameExtentIsNoOp(t *testing.T) {
	s := NewFrameScheduler(2)
	begin(t, s, testExtent)

	s.RequestResize(testExtent)
	assert.Equal(t, FrameStateActive, s.State())

	s.RequestResize(common.Extent{Width: 640, Height: 480})
	assert.Equal(t, FrameStateResizing, s.State())
}

func TestDeviceLossDuringResizeDrainIsFatal(t *testing.T) {
	s := NewFrameScheduler(2, WithFenceTimeout(time.Millisecond))
	plan := begin(t, s, testExtent)
	s.CompleteTick(plan.Slot, devicetest.NewStuckFence())

	s.MarkSurfaceStale()
	_, err := s.BeginTick(testExtent)
	assert.ErrorIs(t, err, device.ErrDeviceLost)
}
