package material

import (
	"encoding/binary"
	"math"
)

// GPUMaterialSize is the byte size of one material table record.
// Size: 32 bytes (vec4 color + two scalars + padding, std430 aligned).
const GPUMaterialSize = 32

// GPUMaterial is the GPU-aligned representation of one material table entry,
// addressed by GPUInstanceRecord.MaterialIndex during shading.
type GPUMaterial struct {
	BaseColor [4]float32 // offset  0: albedo RGBA (16 bytes)
	Metallic  float32    // offset 16: metallic factor (4 bytes)
	Roughness float32    // offset 20: roughness factor (4 bytes)
	_         [2]float32 // offset 24: padding to 32 bytes
}

// MarshalInto serializes the material into buf, which must hold at least
// GPUMaterialSize bytes.
//
// Parameters:
//   - buf: destination slice
func (g *GPUMaterial) MarshalInto(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(g.BaseColor[0]))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(g.BaseColor[1]))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(g.BaseColor[2]))
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(g.BaseColor[3]))
	binary.LittleEndian.PutUint32(buf[16:20], math.Float32bits(g.Metallic))
	binary.LittleEndian.PutUint32(buf[20:24], math.Float32bits(g.Roughness))
	binary.LittleEndian.PutUint32(buf[24:28], 0)
	binary.LittleEndian.PutUint32(buf[28:32], 0)
}
