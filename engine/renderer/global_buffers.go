package renderer

import (
	"fmt"

	"github.com/kiln-engine/kiln-go/engine/model"
	"github.com/kiln-engine/kiln-go/engine/renderer/device"
)

// GlobalBuffers owns the per-frame GPU buffer set for every pipelined frame
// slot: the indirect command buffer, the instance record buffer, and the
// transform buffer. Each slot's buffers are written only while that slot's
// fence from its previous use has signaled, so the GPU never reads a buffer
// the CPU is rewriting.
//
// Buffer capacity only grows; a shrinking scene lowers the live counts but
// keeps the allocations. The material table is shared across slots because it
// is append-only and never rewritten in place.
type GlobalBuffers struct {
	dev   device.Device
	slots []bufferSlot

	materials *device.GrowableBuffer

	// scratch is the marshal staging area, reused across updates. One frame
	// slot is updated at a time so a single scratch buffer suffices.
	scratch []byte
}

// bufferSlot is the buffer set for one frame in flight.
type bufferSlot struct {
	commands   *device.GrowableBuffer
	instances  *device.GrowableBuffer
	transforms *device.GrowableBuffer

	// geometry mirrors the batch's per-command buffer handles for the draw
	// encoder; liveCommands is the number of commands valid this frame,
	// independent of buffer capacity.
	geometry     []CommandGeometry
	liveCommands int
}

// NewGlobalBuffers creates the buffer set for slotCount pipelined frames.
// No GPU memory is allocated until the first Update.
//
// Parameters:
//   - dev: the device to allocate from
//   - slotCount: the number of frames in flight
//
// Returns:
//   - *GlobalBuffers: the newly created buffer set
func NewGlobalBuffers(dev device.Device, slotCount int) *GlobalBuffers {
	g := &GlobalBuffers{
		dev:       dev,
		slots:     make([]bufferSlot, slotCount),
		materials: device.NewGrowableBuffer(dev, "material-table", device.BufferUsageStorage),
	}
	for i := range g.slots {
		g.slots[i] = bufferSlot{
			commands:   device.NewGrowableBuffer(dev, fmt.Sprintf("indirect-commands-%d", i), device.BufferUsageIndirect|device.BufferUsageStorage),
			instances:  device.NewGrowableBuffer(dev, fmt.Sprintf("instance-records-%d", i), device.BufferUsageStorage),
			transforms: device.NewGrowableBuffer(dev, fmt.Sprintf("transforms-%d", i), device.BufferUsageStorage),
		}
	}
	return g
}

// SlotCount returns the number of frame slots.
//
// Returns:
//   - int: the slot count
func (g *GlobalBuffers) SlotCount() int {
	return len(g.slots)
}

// Update uploads the batch into the given frame slot, growing the slot's
// buffers as needed. The caller must have waited on the slot's fence first.
//
// Parameters:
//   - slot: the frame slot to write
//   - batch: the flattened draw batch for this frame
//
// Returns:
//   - error: an error if a buffer allocation fails (fatal, not retried)
func (g *GlobalBuffers) Update(slot int, batch Batch) error {
	s := &g.slots[slot]
	s.liveCommands = len(batch.Commands)
	s.geometry = append(s.geometry[:0], batch.Geometry...)

	if err := g.upload(s.commands, len(batch.Commands), model.GPUDrawCommandSize, func(i int, buf []byte) {
		batch.Commands[i].MarshalInto(buf)
	}); err != nil {
		return err
	}
	if err := g.upload(s.instances, len(batch.Instances), model.GPUInstanceRecordSize, func(i int, buf []byte) {
		batch.Instances[i].MarshalInto(buf)
	}); err != nil {
		return err
	}
	return g.upload(s.transforms, len(batch.Transforms), model.GPUTransformSize, func(i int, buf []byte) {
		batch.Transforms[i].MarshalInto(buf)
	})
}

// upload marshals count records into the scratch area and writes them to the
// buffer in one contiguous write.
func (g *GlobalBuffers) upload(dst *device.GrowableBuffer, count, recordSize int, marshal func(i int, buf []byte)) error {
	total := uint64(count * recordSize)
	dst.SetLiveSize(total)
	if count == 0 {
		return nil
	}
	if err := dst.EnsureCapacity(total); err != nil {
		return err
	}
	if uint64(cap(g.scratch)) < total {
		g.scratch = make([]byte, total)
	}
	g.scratch = g.scratch[:total]
	for i := 0; i < count; i++ {
		marshal(i, g.scratch[i*recordSize:(i+1)*recordSize])
	}
	dst.Write(0, g.scratch)
	return nil
}

// UploadMaterials replaces the material table contents. The table is
// append-only upstream, so in-flight frames reading a stale, shorter prefix
// stay valid.
//
// Parameters:
//   - table: the packed material table
//
// Returns:
//   - error: an error if the allocation fails
func (g *GlobalBuffers) UploadMaterials(table []byte) error {
	g.materials.SetLiveSize(uint64(len(table)))
	if len(table) == 0 {
		return nil
	}
	if err := g.materials.EnsureCapacity(uint64(len(table))); err != nil {
		return err
	}
	g.materials.Write(0, table)
	return nil
}

// LiveCommandCount returns the number of draw commands valid in the slot this
// frame. This, not buffer capacity, bounds the draw loop.
//
// Parameters:
//   - slot: the frame slot
//
// Returns:
//   - int: the live command count
func (g *GlobalBuffers) LiveCommandCount(slot int) int {
	return g.slots[slot].liveCommands
}

// Geometry returns the per-command buffer handles for the slot, parallel to
// the slot's live commands.
//
// Parameters:
//   - slot: the frame slot
//
// Returns:
//   - []CommandGeometry: the per-command handles
func (g *GlobalBuffers) Geometry(slot int) []CommandGeometry {
	return g.slots[slot].geometry
}

// CommandBuffer returns the slot's indirect command buffer, or nil before the
// first upload.
//
// Parameters:
//   - slot: the frame slot
//
// Returns:
//   - device.Buffer: the indirect command buffer
func (g *GlobalBuffers) CommandBuffer(slot int) device.Buffer {
	return g.slots[slot].commands.Buffer()
}

// InstanceBuffer returns the slot's instance record buffer, or nil before the
// first upload.
//
// Parameters:
//   - slot: the frame slot
//
// Returns:
//   - device.Buffer: the instance record buffer
func (g *GlobalBuffers) InstanceBuffer(slot int) device.Buffer {
	return g.slots[slot].instances.Buffer()
}

// TransformBuffer returns the slot's transform buffer, or nil before the
// first upload.
//
// Parameters:
//   - slot: the frame slot
//
// Returns:
//   - device.Buffer: the transform buffer
func (g *GlobalBuffers) TransformBuffer(slot int) device.Buffer {
	return g.slots[slot].transforms.Buffer()
}

// MaterialBuffer returns the shared material table buffer, or nil before the
// first upload.
//
// Returns:
//   - device.Buffer: the material table buffer
func (g *GlobalBuffers) MaterialBuffer() device.Buffer {
	return g.materials.Buffer()
}

// Release frees every buffer in every slot and the material table.
func (g *GlobalBuffers) Release() {
	for i := range g.slots {
		g.slots[i].commands.Release()
		g.slots[i].instances.Release()
		g.slots[i].transforms.Release()
		g.slots[i].geometry = nil
		g.slots[i].liveCommands = 0
	}
	g.materials.Release()
}
