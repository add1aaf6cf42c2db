package loader

import (
	"github.com/kiln-engine/kiln-go/common"
	"github.com/kiln-engine/kiln-go/engine/model"
)

// CubeMesh builds a unit cube centered on the origin, scaled by size, with
// per-face normals. 24 vertices, 36 indices.
//
// Parameters:
//   - materialID: the material shading the cube
//   - size: the edge length
//
// Returns:
//   - MeshData: the cube mesh
func CubeMesh(materialID common.MaterialID, size float32) MeshData {
	h := size / 2

	// One quad per face so normals stay flat.
	faces := []struct {
		normal  [3]float32
		corners [4][3]float32
	}{
		{[3]float32{0, 0, 1}, [4][3]float32{{-h, -h, h}, {h, -h, h}, {h, h, h}, {-h, h, h}}},
		{[3]float32{0, 0, -1}, [4][3]float32{{h, -h, -h}, {-h, -h, -h}, {-h, h, -h}, {h, h, -h}}},
		{[3]float32{1, 0, 0}, [4][3]float32{{h, -h, h}, {h, -h, -h}, {h, h, -h}, {h, h, h}}},
		{[3]float32{-1, 0, 0}, [4][3]float32{{-h, -h, -h}, {-h, -h, h}, {-h, h, h}, {-h, h, -h}}},
		{[3]float32{0, 1, 0}, [4][3]float32{{-h, h, h}, {h, h, h}, {h, h, -h}, {-h, h, -h}}},
		{[3]float32{0, -1, 0}, [4][3]float32{{-h, -h, -h}, {h, -h, -h}, {h, -h, h}, {-h, -h, h}}},
	}
	uvs := [4][2]float32{{0, 0}, {1, 0}, {1, 1}, {0, 1}}

	md := MeshData{
		MaterialID: materialID,
		Vertices:   make([]model.GPUVertex, 0, 24),
		Indices:    make([]uint32, 0, 36),
	}
	for _, f := range faces {
		base := uint32(len(md.Vertices))
		for i, c := range f.corners {
			md.Vertices = append(md.Vertices, model.GPUVertex{
				Position: c,
				Normal:   f.normal,
				TexCoord: uvs[i],
			})
		}
		md.Indices = append(md.Indices, base, base+1, base+2, base, base+2, base+3)
	}
	return md
}

// PlaneMesh builds a flat square on the XZ plane centered on the origin,
// facing up. 4 vertices, 6 indices.
//
// Parameters:
//   - materialID: the material shading the plane
//   - size: the edge length
//
// Returns:
//   - MeshData: the plane mesh
func PlaneMesh(materialID common.MaterialID, size float32) MeshData {
	h := size / 2
	return MeshData{
		MaterialID: materialID,
		Vertices: []model.GPUVertex{
			{Position: [3]float32{-h, 0, h}, Normal: [3]float32{0, 1, 0}, TexCoord: [2]float32{0, 0}},
			{Position: [3]float32{h, 0, h}, Normal: [3]float32{0, 1, 0}, TexCoord: [2]float32{1, 0}},
			{Position: [3]float32{h, 0, -h}, Normal: [3]float32{0, 1, 0}, TexCoord: [2]float32{1, 1}},
			{Position: [3]float32{-h, 0, -h}, Normal: [3]float32{0, 1, 0}, TexCoord: [2]float32{0, 1}},
		},
		Indices: []uint32{0, 1, 2, 0, 2, 3},
	}
}
