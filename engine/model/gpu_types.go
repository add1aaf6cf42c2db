package model

import (
	"encoding/binary"
	"math"

	"github.com/kiln-engine/kiln-go/engine/renderer/device"
)

// Fixed wire sizes of the GPU-facing records below. Buffer sizing multiplies
// live element counts by these, never the other way around.
const (
	// GPUDrawCommandSize is the byte size of one indexed indirect draw
	// command, matching the layout the GPU's indirect draw mechanism reads.
	GPUDrawCommandSize = 20

	// GPUInstanceRecordSize is the byte size of one instance record.
	GPUInstanceRecordSize = 24

	// GPUTransformSize is the byte size of one 4x4 transform matrix.
	GPUTransformSize = 64

	// GPUVertexSize is the byte size of one mesh vertex.
	GPUVertexSize = 32
)

// GPUDrawCommand is the GPU-readable record describing a single indexed draw:
// the argument block consumed by an indirect draw call instead of CPU-side
// call arguments. Layout matches the 20-byte DrawIndexedIndirect format.
type GPUDrawCommand struct {
	IndexCount    uint32 // offset  0: number of indices to draw
	InstanceCount uint32 // offset  4: number of instances to draw
	FirstIndex    uint32 // offset  8: first index within the index buffer
	BaseVertex    int32  // offset 12: value added to each index before vertex lookup
	FirstInstance uint32 // offset 16: first instance id; keys the instance record array
}

// Marshal serializes the command into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 20-byte buffer ready for GPU upload
func (g *GPUDrawCommand) Marshal() []byte {
	buf := make([]byte, GPUDrawCommandSize)
	binary.LittleEndian.PutUint32(buf[0:4], g.IndexCount)
	binary.LittleEndian.PutUint32(buf[4:8], g.InstanceCount)
	binary.LittleEndian.PutUint32(buf[8:12], g.FirstIndex)
	binary.LittleEndian.PutUint32(buf[12:16], uint32(g.BaseVertex))
	binary.LittleEndian.PutUint32(buf[16:20], g.FirstInstance)
	return buf
}

// MarshalInto serializes the command into buf, which must hold at least
// GPUDrawCommandSize bytes. Used for contiguous batch uploads without
// per-command allocations.
//
// Parameters:
//   - buf: destination slice
func (g *GPUDrawCommand) MarshalInto(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], g.IndexCount)
	binary.LittleEndian.PutUint32(buf[4:8], g.InstanceCount)
	binary.LittleEndian.PutUint32(buf[8:12], g.FirstIndex)
	binary.LittleEndian.PutUint32(buf[12:16], uint32(g.BaseVertex))
	binary.LittleEndian.PutUint32(buf[16:20], g.FirstInstance)
}

// GPUInstanceRecord resolves one GPU instance index to everything the shading
// stage needs: the transform slot, the material index, and the device
// addresses of the geometry buffers. One record exists per (entity, mesh)
// pair; the GPU's built-in instance index selects it during drawing, so no
// per-draw CPU binding is required.
type GPUInstanceRecord struct {
	TransformIndex uint32         // offset  0: slot in the transform buffer
	MaterialIndex  uint32         // offset  4: slot in the material table
	VertexAddress  device.Address // offset  8: device address of the vertex data
	IndexAddress   device.Address // offset 16: device address of the index data
}

// MarshalInto serializes the record into buf, which must hold at least
// GPUInstanceRecordSize bytes.
//
// Parameters:
//   - buf: destination slice
func (g *GPUInstanceRecord) MarshalInto(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], g.TransformIndex)
	binary.LittleEndian.PutUint32(buf[4:8], g.MaterialIndex)
	binary.LittleEndian.PutUint64(buf[8:16], uint64(g.VertexAddress))
	binary.LittleEndian.PutUint64(buf[16:24], uint64(g.IndexAddress))
}

// GPUVertex is the GPU-aligned representation of a single mesh vertex.
// Size: 32 bytes (std430 aligned, no padding required).
type GPUVertex struct {
	Position [3]float32 // offset  0: vertex position in model space (12 bytes)
	Normal   [3]float32 // offset 12: vertex normal for lighting (12 bytes)
	TexCoord [2]float32 // offset 24: UV texture coordinate (8 bytes)
}

// MarshalInto serializes the vertex into buf, which must hold at least
// GPUVertexSize bytes.
//
// Parameters:
//   - buf: destination slice
func (g *GPUVertex) MarshalInto(buf []byte) {
	for i, f := range [8]float32{
		g.Position[0], g.Position[1], g.Position[2],
		g.Normal[0], g.Normal[1], g.Normal[2],
		g.TexCoord[0], g.TexCoord[1],
	} {
		binary.LittleEndian.PutUint32(buf[i*4:(i+1)*4], math.Float32bits(f))
	}
}

// GPUTransform is one per-entity 4x4 model-to-world matrix in column-major
// order, addressed by GPUInstanceRecord.TransformIndex.
type GPUTransform struct {
	Model [16]float32 // offset 0: 4x4 model-to-world transform matrix (64 bytes)
}

// MarshalInto serializes the matrix into buf, which must hold at least
// GPUTransformSize bytes.
//
// Parameters:
//   - buf: destination slice
func (g *GPUTransform) MarshalInto(buf []byte) {
	for i := 0; i < 16; i++ {
		binary.LittleEndian.PutUint32(buf[i*4:(i+1)*4], math.Float32bits(g.Model[i]))
	}
}
