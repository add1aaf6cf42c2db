package device

import "fmt"

// GrowableBuffer wraps a Buffer with a capacity that only ever increases.
// EnsureCapacity reallocates only when the requested size exceeds the current
// allocation; shrinking never happens, which bounds peak memory to the
// historical maximum working set and avoids reallocation churn when scene
// size fluctuates frame to frame.
//
// The live byte size is tracked separately from the allocated capacity —
// after growth the allocation may exceed the live contents, so consumers must
// never infer element counts from Capacity.
type GrowableBuffer struct {
	dev   Device
	label string
	usage BufferUsage

	buf      Buffer
	liveSize uint64
}

// NewGrowableBuffer creates an empty growable buffer. No GPU allocation is
// made until the first EnsureCapacity call.
//
// Parameters:
//   - dev: the device to allocate from
//   - label: debug label used for every (re)allocation
//   - usage: GPU usage flags applied to every allocation
//
// Returns:
//   - *GrowableBuffer: the wrapper, with zero capacity
func NewGrowableBuffer(dev Device, label string, usage BufferUsage) *GrowableBuffer {
	return &GrowableBuffer{
		dev:   dev,
		label: label,
		usage: usage,
	}
}

// EnsureCapacity guarantees the underlying allocation holds at least need
// bytes. If the current allocation is large enough it is reused unchanged;
// otherwise the old buffer is released and a new one sized exactly to need is
// allocated. Capacity is therefore non-decreasing over the buffer's lifetime.
//
// Parameters:
//   - need: required byte size
//
// Returns:
//   - error: an error if the device allocation fails (fatal, not retried)
func (g *GrowableBuffer) EnsureCapacity(need uint64) error {
	if g.buf != nil && g.buf.Capacity() >= need {
		return nil
	}
	if g.buf != nil {
		g.buf.Release()
		g.buf = nil
	}
	buf, err := g.dev.CreateBuffer(g.label, need, g.usage)
	if err != nil {
		return fmt.Errorf("grow %q to %d bytes: %w", g.label, need, err)
	}
	g.buf = buf
	return nil
}

// Write stages data into the buffer at the given offset and raises the live
// size watermark to cover the written range. The range must fit the current
// capacity — callers EnsureCapacity first.
//
// Parameters:
//   - offset: byte offset into the buffer
//   - data: the bytes to write
func (g *GrowableBuffer) Write(offset uint64, data []byte) {
	if g.buf == nil {
		panic(fmt.Sprintf("device: write to unallocated buffer %q", g.label))
	}
	if end := offset + uint64(len(data)); end > g.buf.Capacity() {
		panic(fmt.Sprintf("device: write past capacity of %q (%d > %d)", g.label, end, g.buf.Capacity()))
	}
	g.dev.WriteBuffer(g.buf, offset, data)
	if end := offset + uint64(len(data)); end > g.liveSize {
		g.liveSize = end
	}
}

// SetLiveSize records the byte size of the meaningful contents, independent of
// capacity. Called once per rebuild so a smaller scene resets the watermark.
//
// Parameters:
//   - size: the live contents size in bytes
func (g *GrowableBuffer) SetLiveSize(size uint64) {
	g.liveSize = size
}

// LiveSize returns the byte size of the meaningful contents.
//
// Returns:
//   - uint64: live contents size in bytes
func (g *GrowableBuffer) LiveSize() uint64 {
	return g.liveSize
}

// Capacity returns the allocated byte size, or 0 before the first allocation.
//
// Returns:
//   - uint64: allocated size in bytes
func (g *GrowableBuffer) Capacity() uint64 {
	if g.buf == nil {
		return 0
	}
	return g.buf.Capacity()
}

// Buffer returns the underlying buffer handle, or nil before the first
// allocation. The handle changes identity on growth; callers must re-fetch it
// after every EnsureCapacity.
//
// Returns:
//   - Buffer: the current allocation or nil
func (g *GrowableBuffer) Buffer() Buffer {
	return g.buf
}

// Address returns the device address of the current allocation, or 0 before
// the first allocation.
//
// Returns:
//   - Address: the current device address or 0
func (g *GrowableBuffer) Address() Address {
	if g.buf == nil {
		return 0
	}
	return g.buf.Address()
}

// Release frees the underlying allocation, if any.
func (g *GrowableBuffer) Release() {
	if g.buf != nil {
		g.buf.Release()
		g.buf = nil
	}
	g.liveSize = 0
}
