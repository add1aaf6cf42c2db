// Package device defines the low-level GPU resource contract the renderer core
// is built against. It abstracts buffer allocation, queued writes, and
// submission fences so the instancing and frame-pipelining machinery can be
// exercised against any backend (including in-memory fakes in tests).
package device

import (
	"errors"
	"time"
)

// Address is a stable, device-visible identity for a GPU buffer allocation.
// It is assigned once at creation and never changes for the lifetime of the
// buffer, which lets per-instance records reference geometry without any
// per-draw binding calls.
type Address uint64

// BufferUsage is a bitmask describing how a buffer will be used by the GPU.
type BufferUsage uint32

const (
	// BufferUsageVertex marks a buffer as a vertex data source.
	BufferUsageVertex BufferUsage = 1 << iota
	// BufferUsageIndex marks a buffer as an index data source.
	BufferUsageIndex
	// BufferUsageStorage marks a buffer as shader-readable storage.
	BufferUsageStorage
	// BufferUsageIndirect marks a buffer as a source of indirect draw arguments.
	BufferUsageIndirect
	// BufferUsageUniform marks a buffer as a uniform data source.
	BufferUsageUniform
)

// ErrDeviceLost is returned when the GPU stops responding; it is fatal and is
// never retried at this layer.
var ErrDeviceLost = errors.New("device: gpu device lost")

// Buffer is an opaque handle to a GPU-resident memory block with a stable
// device-side address. Lifetime is owner-managed: whoever created the buffer
// must Release it.
type Buffer interface {
	// Address returns the stable device-visible address of this buffer.
	//
	// Returns:
	//   - Address: the buffer's device address
	Address() Address

	// Capacity returns the allocated byte size of this buffer.
	//
	// Returns:
	//   - uint64: the allocation size in bytes
	Capacity() uint64

	// Label returns the debug label the buffer was created with.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// Release frees the GPU allocation. The handle must not be used afterwards.
	Release()
}

// Fence is a GPU-to-CPU synchronization point signaled when previously
// submitted work has retired on the GPU.
type Fence interface {
	// Wait blocks until the fence signals or the timeout elapses.
	// A timeout is treated as device loss by callers — it is not retried.
	//
	// Parameters:
	//   - timeout: maximum time to block
	//
	// Returns:
	//   - error: ErrDeviceLost (possibly wrapped) if the fence never signaled
	Wait(timeout time.Duration) error
}

// Device is the allocation and upload surface of a GPU backend.
// All methods are safe for use from the render goroutine only; the renderer
// core is single-threaded per frame by design.
type Device interface {
	// CreateBuffer allocates a GPU buffer of exactly size bytes.
	// Allocation failure is fatal to the caller and is not retried.
	//
	// Parameters:
	//   - label: debug label for the allocation
	//   - size: byte size to allocate
	//   - usage: how the GPU will use the buffer
	//
	// Returns:
	//   - Buffer: the created buffer handle
	//   - error: an error if the device is out of memory
	CreateBuffer(label string, size uint64, usage BufferUsage) (Buffer, error)

	// WriteBuffer stages a write of data into buf at the given byte offset.
	// Writes are ordered with respect to the next submission.
	//
	// Parameters:
	//   - buf: the destination buffer
	//   - offset: byte offset into the buffer
	//   - data: the bytes to write
	WriteBuffer(buf Buffer, offset uint64, data []byte)
}
