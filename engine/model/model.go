// Package model defines the immutable geometry records the renderer consumes:
// models, their meshes, and the baked animation payloads for skinned models,
// plus the cache that owns them after load.
package model

import (
	"github.com/kiln-engine/kiln-go/common"
	"github.com/kiln-engine/kiln-go/engine/renderer/device"
)

// Mesh is one drawable piece of a model. The GPU buffers are created by the
// loader at import time and are immutable afterwards; the renderer only reads
// their handles and addresses.
type Mesh struct {
	// ID identifies this mesh within its model.
	ID common.MeshID

	// MaterialID references the material used to shade this mesh.
	MaterialID common.MaterialID

	// VertexBuffer holds the mesh's static vertex data on the GPU.
	// For animated models this is the bind-pose data; per-entity animated
	// buffers from the animation cache replace it at draw time.
	VertexBuffer device.Buffer

	// IndexBuffer holds the mesh's index data on the GPU.
	IndexBuffer device.Buffer

	// VertexCount is the number of vertices in VertexBuffer.
	VertexCount uint32

	// IndexCount is the number of indices in IndexBuffer, used to populate
	// indirect draw commands.
	IndexCount uint32
}

// AnimationClip is one named animation for a model. Frames are pre-baked
// vertex payloads, one per mesh per frame, uploaded into per-entity buffers
// by the animation cache as playback advances.
type AnimationClip struct {
	// Name is the clip identifier (walk, run, idle, ...).
	Name string

	// FrameTime is the duration of a single frame in seconds.
	FrameTime float32

	// MeshFrames holds baked vertex data indexed [meshIndex][frame].
	// Every mesh of the owning model has the same frame count.
	MeshFrames [][][]byte
}

// FrameCount returns the number of frames in the clip, or 0 for an empty clip.
//
// Returns:
//   - int: the frame count
func (c *AnimationClip) FrameCount() int {
	if len(c.MeshFrames) == 0 {
		return 0
	}
	return len(c.MeshFrames[0])
}

// Model is an immutable, GPU-ready container produced by the loader.
// Mesh order is fixed at load time and defines the traversal order used when
// building draw batches.
type Model struct {
	// ID identifies this model in the cache.
	ID common.ModelID

	// Name is the model identifier for debugging.
	Name string

	// Meshes is the ordered list of drawable pieces.
	Meshes []Mesh

	// Clips holds the animation clips for skinned models; empty for static
	// models.
	Clips []AnimationClip
}

// Animated reports whether this model carries animation data. Animated models
// are drawn one command per (mesh, entity) pair because every entity owns a
// distinct animated vertex buffer.
//
// Returns:
//   - bool: true if the model has at least one animation clip
func (m *Model) Animated() bool {
	return len(m.Clips) > 0
}

// ClipByName returns the index of the named clip, or -1 if not found.
//
// Parameters:
//   - name: the clip name to search for
//
// Returns:
//   - int: the clip index, or -1 if not found
func (m *Model) ClipByName(name string) int {
	for i := range m.Clips {
		if m.Clips[i].Name == name {
			return i
		}
	}
	return -1
}
