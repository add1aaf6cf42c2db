// Package devicetest provides in-memory fakes for the device interfaces, used
// by tests of the buffer management and frame pipelining machinery.
package devicetest

import (
	"fmt"
	"sync"
	"time"

	"github.com/kiln-engine/kiln-go/engine/renderer/device"
)

// FakeBuffer is an in-memory buffer recording every write for inspection.
type FakeBuffer struct {
	addr     device.Address
	label    string
	capacity uint64

	// Data mirrors the buffer contents byte for byte.
	Data []byte

	// Released reports whether Release was called.
	Released bool
}

var _ device.Buffer = &FakeBuffer{}

func (b *FakeBuffer) Address() device.Address { return b.addr }
func (b *FakeBuffer) Capacity() uint64        { return b.capacity }
func (b *FakeBuffer) Label() string           { return b.label }
func (b *FakeBuffer) Release()                { b.Released = true }

// FakeDevice is an in-memory device.Device. Every allocation gets a distinct,
// monotonically increasing address, so tests can assert buffer identity and
// reallocation behavior.
type FakeDevice struct {
	mu       sync.Mutex
	nextAddr device.Address

	// Buffers holds every buffer ever created, in creation order, including
	// released ones.
	Buffers []*FakeBuffer

	// AllocErr, when set, makes every CreateBuffer call fail with this error.
	AllocErr error
}

var _ device.Device = &FakeDevice{}

// NewFakeDevice creates an empty fake device.
//
// Returns:
//   - *FakeDevice: the fake
func NewFakeDevice() *FakeDevice {
	return &FakeDevice{nextAddr: 1}
}

func (d *FakeDevice) CreateBuffer(label string, size uint64, usage device.BufferUsage) (device.Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.AllocErr != nil {
		return nil, d.AllocErr
	}
	b := &FakeBuffer{
		addr:     d.nextAddr,
		label:    label,
		capacity: size,
		Data:     make([]byte, size),
	}
	d.nextAddr++
	d.Buffers = append(d.Buffers, b)
	return b, nil
}

func (d *FakeDevice) WriteBuffer(buf device.Buffer, offset uint64, data []byte) {
	b, ok := buf.(*FakeBuffer)
	if !ok {
		panic(fmt.Sprintf("devicetest: foreign buffer %T", buf))
	}
	if b.Released {
		panic(fmt.Sprintf("devicetest: write to released buffer %q", b.label))
	}
	if end := offset + uint64(len(data)); end > b.capacity {
		panic(fmt.Sprintf("devicetest: write past capacity of %q (%d > %d)", b.label, end, b.capacity))
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	copy(b.Data[offset:], data)
}

// LiveCount returns the number of buffers created and not yet released.
//
// Returns:
//   - int: the live buffer count
func (d *FakeDevice) LiveCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, b := range d.Buffers {
		if !b.Released {
			n++
		}
	}
	return n
}

// FakeFence is a fence whose outcome tests control directly.
type FakeFence struct {
	mu       sync.Mutex
	signaled bool
	err      error

	// WaitCalls counts Wait invocations.
	WaitCalls int
}

var _ device.Fence = &FakeFence{}

// NewSignaledFence creates a fence whose Wait returns immediately.
//
// Returns:
//   - *FakeFence: the fence
func NewSignaledFence() *FakeFence {
	return &FakeFence{signaled: true}
}

// NewStuckFence creates a fence that never signals; Wait returns
// device.ErrDeviceLost after the timeout.
//
// Returns:
//   - *FakeFence: the fence
func NewStuckFence() *FakeFence {
	return &FakeFence{err: device.ErrDeviceLost}
}

// Signal marks the fence as signaled for subsequent Wait calls.
func (f *FakeFence) Signal() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signaled = true
	f.err = nil
}

func (f *FakeFence) Wait(timeout time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.WaitCalls++
	if f.signaled {
		return nil
	}
	return f.err
}
