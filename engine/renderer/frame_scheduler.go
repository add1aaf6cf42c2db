package renderer

import (
	"fmt"
	"sync"
	"time"

	"github.com/kiln-engine/kiln-go/common"
	"github.com/kiln-engine/kiln-go/engine/renderer/device"
)

// FrameState is the scheduler's coarse lifecycle state.
type FrameState int

const (
	// FrameStateActive is normal frame production.
	FrameStateActive FrameState = iota

	// FrameStateResizing means the surface no longer matches the window and
	// must be reconfigured before the next frame is produced. Entered on a
	// resize request or a stale surface report; left once the GPU has
	// drained and the surface is reconfigured.
	FrameStateResizing
)

// TickPlan is the scheduler's instruction for one render tick.
type TickPlan struct {
	// Slot is the frame slot whose buffers may be rewritten this tick. Its
	// fence has signaled; the GPU is done reading the slot.
	Slot int

	// Skip means no frame is produced this tick (zero-extent surface). The
	// frame counter still advanced.
	Skip bool

	// Reconfigure means the surface must be reconfigured to Extent before
	// acquiring a texture. All fences have signaled when this is set.
	Reconfigure bool

	// Extent is the surface size to configure when Reconfigure is set.
	Extent common.Extent
}

// FrameScheduler pipelines CPU frame production ahead of GPU consumption
// across a fixed ring of frame slots. Each slot carries the fence of its last
// submission; a slot is handed back to the CPU only after that fence signals,
// which is the sole guard against rewriting buffers the GPU still reads.
//
// The slot cursor advances on every tick, including skipped and resizing
// ticks, so slot assignment stays a pure function of the tick count.
type FrameScheduler struct {
	slotCount    int
	frameIndex   int
	fences       []device.Fence
	fenceTimeout time.Duration

	// mu guards the surface state below; resize requests arrive from the
	// window callback thread while BeginTick runs on the render goroutine.
	mu             sync.Mutex
	state          FrameState
	lastConfigured common.Extent
	configured     bool
}

// FrameSchedulerOption is a functional option for configuring a FrameScheduler during construction.
type FrameSchedulerOption func(*FrameScheduler)

// WithFenceTimeout sets how long a fence wait may block before the device is
// declared lost.
//
// Parameters:
//   - d: the timeout
//
// Returns:
//   - FrameSchedulerOption: a function that applies the timeout to a scheduler
func WithFenceTimeout(d time.Duration) FrameSchedulerOption {
	return func(s *FrameScheduler) {
		s.fenceTimeout = d
	}
}

// NewFrameScheduler creates a scheduler for slotCount frames in flight.
//
// Parameters:
//   - slotCount: the number of frame slots; must be at least 1
//   - options: variadic list of FrameSchedulerOption functions
//
// Returns:
//   - *FrameScheduler: the newly created scheduler
func NewFrameScheduler(slotCount int, options ...FrameSchedulerOption) *FrameScheduler {
	if slotCount < 1 {
		panic(fmt.Sprintf("renderer: slot count %d, need at least 1", slotCount))
	}
	s := &FrameScheduler{
		slotCount:    slotCount,
		fences:       make([]device.Fence, slotCount),
		fenceTimeout: 5 * time.Second,
		state:        FrameStateActive,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// SlotCount returns the number of frame slots.
//
// Returns:
//   - int: the slot count
func (s *FrameScheduler) SlotCount() int {
	return s.slotCount
}

// State returns the scheduler's current lifecycle state.
//
// Returns:
//   - FrameState: the current state
func (s *FrameScheduler) State() FrameState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// BeginTick advances the slot cursor and plans the tick. On a normal tick it
// blocks until the slot's previous submission has retired. While resizing it
// drains every in-flight frame first, then plans a surface reconfigure so the
// frame is still produced this tick.
//
// A fence that never signals within the timeout means the device stopped
// responding; the returned error wraps device.ErrDeviceLost and is fatal.
//
// Parameters:
//   - extent: the window's current framebuffer extent
//
// Returns:
//   - TickPlan: what to do this tick
//   - error: a fatal error if the GPU is unresponsive
func (s *FrameScheduler) BeginTick(extent common.Extent) (TickPlan, error) {
	slot := s.frameIndex % s.slotCount
	s.frameIndex++

	// A zero extent means the window is minimized; nothing to render and no
	// surface to reconfigure. Resize handling resumes once the extent is
	// real again.
	if extent.Zero() {
		return TickPlan{Slot: slot, Skip: true}, nil
	}

	s.mu.Lock()
	reconfigure := !s.configured || s.state == FrameStateResizing || extent != s.lastConfigured
	s.mu.Unlock()

	if reconfigure {
		// Reconfiguring swaps the surface out from under in-flight frames,
		// so every slot must retire first, not just this one.
		if err := s.drainAll(); err != nil {
			return TickPlan{}, err
		}
		s.mu.Lock()
		s.state = FrameStateActive
		s.lastConfigured = extent
		s.configured = true
		s.mu.Unlock()
		return TickPlan{Slot: slot, Reconfigure: true, Extent: extent}, nil
	}

	if err := s.waitSlot(slot); err != nil {
		return TickPlan{}, err
	}
	return TickPlan{Slot: slot}, nil
}

// CompleteTick records the submission fence for the slot produced this tick.
// The slot cannot be rewritten until the fence signals.
//
// Parameters:
//   - slot: the slot from the tick's plan
//   - fence: the submission fence, or nil if nothing was submitted
func (s *FrameScheduler) CompleteTick(slot int, fence device.Fence) {
	s.fences[slot] = fence
}

// MarkSurfaceStale transitions to the resizing state after the backend
// reported a stale surface. The next tick drains and reconfigures; the stale
// frame itself is dropped, which is recoverable by construction.
func (s *FrameScheduler) MarkSurfaceStale() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = FrameStateResizing
}

// RequestResize transitions to the resizing state for a known new extent,
// typically from a window size callback. Equivalent to the surface turning
// stale, but without losing a frame first.
//
// Parameters:
//   - extent: the new framebuffer extent
func (s *FrameScheduler) RequestResize(extent common.Extent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.configured && extent == s.lastConfigured {
		return
	}
	s.state = FrameStateResizing
}

// waitSlot blocks until the slot's previous submission retires.
func (s *FrameScheduler) waitSlot(slot int) error {
	f := s.fences[slot]
	if f == nil {
		return nil
	}
	if err := f.Wait(s.fenceTimeout); err != nil {
		return fmt.Errorf("frame slot %d: %w", slot, err)
	}
	s.fences[slot] = nil
	return nil
}

// drainAll blocks until every in-flight frame retires.
func (s *FrameScheduler) drainAll() error {
	for slot := range s.fences {
		if err := s.waitSlot(slot); err != nil {
			return err
		}
	}
	return nil
}
