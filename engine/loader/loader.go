// Package loader turns CPU-side mesh data into GPU-resident models: it
// creates the immutable vertex and index buffers, bakes animation frames into
// upload-ready payloads, and registers the result in the model cache.
package loader

import (
	"fmt"

	"github.com/kiln-engine/kiln-go/common"
	"github.com/kiln-engine/kiln-go/engine/model"
	"github.com/kiln-engine/kiln-go/engine/renderer/device"
)

// MeshData is the CPU-side description of one drawable mesh.
type MeshData struct {
	// MaterialID references a material registered in the material cache.
	MaterialID common.MaterialID

	// Vertices is the mesh's vertex data.
	Vertices []model.GPUVertex

	// Indices is the mesh's triangle index list.
	Indices []uint32
}

// ClipData is the CPU-side description of one animation clip. Frames are full
// vertex payloads, indexed [meshIndex][frame][vertex]; every mesh must carry
// the same frame count, and each frame must have the same vertex count as the
// mesh it animates.
type ClipData struct {
	// Name is the clip identifier (walk, run, idle, ...).
	Name string

	// FrameTime is the duration of a single frame in seconds.
	FrameTime float32

	// MeshFrames holds per-mesh per-frame vertex data.
	MeshFrames [][][]model.GPUVertex
}

// loaderImpl is the implementation of the Loader interface.
type loaderImpl struct {
	dev    device.Device
	models *model.Cache
}

// Loader uploads models to the GPU and registers them in the model cache.
type Loader interface {
	// UploadModel creates the GPU buffers for every mesh, bakes the clips,
	// and registers the finished model.
	//
	// Parameters:
	//   - name: the model identifier for debugging
	//   - meshes: the model's meshes in draw order
	//   - clips: animation clips; none for a static model
	//
	// Returns:
	//   - *model.Model: the registered model with its assigned id
	//   - error: an allocation failure or malformed clip data
	UploadModel(name string, meshes []MeshData, clips ...ClipData) (*model.Model, error)
}

var _ Loader = &loaderImpl{}

// NewLoader creates a loader uploading through dev and registering into
// models.
//
// Parameters:
//   - dev: the device that owns the created buffers
//   - models: the cache the finished models are registered in
//
// Returns:
//   - Loader: the loader
func NewLoader(dev device.Device, models *model.Cache) Loader {
	return &loaderImpl{dev: dev, models: models}
}

func (l *loaderImpl) UploadModel(name string, meshes []MeshData, clips ...ClipData) (*model.Model, error) {
	if len(meshes) == 0 {
		return nil, fmt.Errorf("model %q has no meshes", name)
	}

	m := &model.Model{
		Name:   name,
		Meshes: make([]model.Mesh, 0, len(meshes)),
	}
	for i, md := range meshes {
		mesh, err := l.uploadMesh(name, i, md)
		if err != nil {
			releaseMeshes(m.Meshes)
			return nil, err
		}
		m.Meshes = append(m.Meshes, mesh)
	}

	for _, cd := range clips {
		clip, err := bakeClip(meshes, cd)
		if err != nil {
			releaseMeshes(m.Meshes)
			return nil, fmt.Errorf("model %q: %w", name, err)
		}
		m.Clips = append(m.Clips, clip)
	}

	l.models.Register(m)
	return m, nil
}

// uploadMesh creates the vertex and index buffers for one mesh and fills them.
func (l *loaderImpl) uploadMesh(name string, index int, md MeshData) (model.Mesh, error) {
	if len(md.Vertices) == 0 || len(md.Indices) == 0 {
		return model.Mesh{}, fmt.Errorf("model %q mesh %d is empty", name, index)
	}

	vb, err := l.dev.CreateBuffer(
		fmt.Sprintf("%s-mesh-%d-vertices", name, index),
		uint64(len(md.Vertices))*model.GPUVertexSize,
		device.BufferUsageVertex,
	)
	if err != nil {
		return model.Mesh{}, fmt.Errorf("model %q mesh %d vertex buffer: %w", name, index, err)
	}
	l.dev.WriteBuffer(vb, 0, marshalVertices(md.Vertices))

	ib, err := l.dev.CreateBuffer(
		fmt.Sprintf("%s-mesh-%d-indices", name, index),
		uint64(len(md.Indices))*4,
		device.BufferUsageIndex,
	)
	if err != nil {
		vb.Release()
		return model.Mesh{}, fmt.Errorf("model %q mesh %d index buffer: %w", name, index, err)
	}
	// The GPU consumes indices as little-endian u32, which matches the
	// in-memory layout on every supported platform, so the slice is uploaded
	// as a raw byte view.
	l.dev.WriteBuffer(ib, 0, common.SliceToBytes(md.Indices))

	return model.Mesh{
		ID:           common.MeshID(index),
		MaterialID:   md.MaterialID,
		VertexBuffer: vb,
		IndexBuffer:  ib,
		VertexCount:  uint32(len(md.Vertices)),
		IndexCount:   uint32(len(md.Indices)),
	}, nil
}

// bakeClip marshals a clip's vertex frames into the upload-ready byte
// payloads the animation cache writes each frame.
func bakeClip(meshes []MeshData, cd ClipData) (model.AnimationClip, error) {
	if len(cd.MeshFrames) != len(meshes) {
		return model.AnimationClip{}, fmt.Errorf("clip %q animates %d meshes, model has %d",
			cd.Name, len(cd.MeshFrames), len(meshes))
	}
	if cd.FrameTime <= 0 {
		return model.AnimationClip{}, fmt.Errorf("clip %q frame time must be positive", cd.Name)
	}

	clip := model.AnimationClip{
		Name:       cd.Name,
		FrameTime:  cd.FrameTime,
		MeshFrames: make([][][]byte, len(cd.MeshFrames)),
	}
	frameCount := -1
	for mi, frames := range cd.MeshFrames {
		if frameCount == -1 {
			frameCount = len(frames)
		} else if len(frames) != frameCount {
			return model.AnimationClip{}, fmt.Errorf("clip %q mesh %d has %d frames, expected %d",
				cd.Name, mi, len(frames), frameCount)
		}
		clip.MeshFrames[mi] = make([][]byte, len(frames))
		for fi, verts := range frames {
			if len(verts) != len(meshes[mi].Vertices) {
				return model.AnimationClip{}, fmt.Errorf("clip %q mesh %d frame %d has %d vertices, mesh has %d",
					cd.Name, mi, fi, len(verts), len(meshes[mi].Vertices))
			}
			clip.MeshFrames[mi][fi] = marshalVertices(verts)
		}
	}
	if frameCount <= 0 {
		return model.AnimationClip{}, fmt.Errorf("clip %q has no frames", cd.Name)
	}
	return clip, nil
}

func marshalVertices(verts []model.GPUVertex) []byte {
	buf := make([]byte, len(verts)*model.GPUVertexSize)
	for i := range verts {
		verts[i].MarshalInto(buf[i*model.GPUVertexSize:])
	}
	return buf
}

func releaseMeshes(meshes []model.Mesh) {
	for i := range meshes {
		if meshes[i].VertexBuffer != nil {
			meshes[i].VertexBuffer.Release()
		}
		if meshes[i].IndexBuffer != nil {
			meshes[i].IndexBuffer.Release()
		}
	}
}
