// Package renderer drives the GPU-driven drawing pipeline: the draw batch
// builder that flattens the scene into indirect command and instance record
// arrays, the global buffer set that uploads them per pipelined frame, and the
// frame scheduler that gates slot reuse on submission fences.
package renderer

import (
	"fmt"
	"log"

	"github.com/kiln-engine/kiln-go/common"
	"github.com/kiln-engine/kiln-go/engine/model"
	"github.com/kiln-engine/kiln-go/engine/renderer/device"
	"github.com/kiln-engine/kiln-go/engine/scene"
)

// ModelLookup resolves model ids while building batches. The model cache
// satisfies this.
type ModelLookup interface {
	// ModelByID retrieves a model by id.
	//
	// Parameters:
	//   - id: the model id
	//
	// Returns:
	//   - *model.Model: the model, or nil
	//   - bool: true if the id is registered
	ModelByID(id common.ModelID) (*model.Model, bool)
}

// MaterialLookup resolves material ids to material table indices. The
// material cache satisfies this.
type MaterialLookup interface {
	// IndexOf resolves a material id to its stable table index.
	//
	// Parameters:
	//   - id: the material id
	//
	// Returns:
	//   - int: the table index
	//   - bool: true if the id is registered
	IndexOf(id common.MaterialID) (int, bool)
}

// AnimatedVertexLookup resolves the per-entity animated vertex buffer for one
// (entity, mesh) pair. The animation cache satisfies this.
type AnimatedVertexLookup interface {
	// AnimatedVertexBuffer returns the vertex buffer holding the current
	// animation frame for one (entity, mesh) pair.
	//
	// Parameters:
	//   - entityID: the entity
	//   - meshIndex: the mesh position within the entity's model
	//
	// Returns:
	//   - device.Buffer: the per-entity vertex buffer
	//   - bool: true if the pair has a buffer
	AnimatedVertexBuffer(entityID common.EntityID, meshIndex int) (device.Buffer, bool)
}

// CommandGeometry carries the CPU-side buffer handles for one draw command,
// parallel to Batch.Commands. The GPU reads geometry through the addresses in
// the instance records; the handles here exist for the draw encoder, which
// still binds vertex and index streams per command.
type CommandGeometry struct {
	// VertexBuffer is the vertex stream bound for this command.
	VertexBuffer device.Buffer

	// IndexBuffer is the index stream bound for this command.
	IndexBuffer device.Buffer
}

// Batch is the flattened, GPU-ready output of one scene traversal. The three
// arrays are index-aligned with the GPU's view of the frame: command k's
// FirstInstance and InstanceCount cover a contiguous range of Instances, and
// the ranges of all commands tile [0, len(Instances)) exactly — the GPU
// instance index is the Instances array index.
type Batch struct {
	// Commands holds one indirect draw command per mesh (static models) or
	// per (mesh, entity) pair (animated models).
	Commands []model.GPUDrawCommand

	// Geometry holds the buffer handles to bind for each command, parallel
	// to Commands.
	Geometry []CommandGeometry

	// Instances holds one record per drawn (entity, mesh) pair, ordered by
	// GPU instance index.
	Instances []model.GPUInstanceRecord

	// Transforms holds one matrix per entity that contributed at least one
	// instance, in first-contribution order. Instance records reference
	// these by index.
	Transforms []model.GPUTransform
}

// BuildBatch flattens the scene buckets into a draw batch in a single
// traversal, assigning GPU instance indices from a counter that only moves
// forward. Static models produce one command per mesh with one instance per
// entity; animated models produce one command per (mesh, entity) pair because
// every entity binds its own animated vertex stream.
//
// Entities or meshes whose model, material, or animated buffer cannot be
// resolved are logged and skipped; the batch stays internally consistent.
//
// Parameters:
//   - buckets: the scene's model buckets, in deterministic order
//   - models: resolves model ids
//   - materials: resolves material table indices
//   - animated: resolves per-entity animated vertex buffers
//
// Returns:
//   - Batch: the flattened draw batch
func BuildBatch(buckets []scene.Bucket, models ModelLookup, materials MaterialLookup, animated AnimatedVertexLookup) Batch {
	b := Batch{}
	nextInstance := uint32(0)

	for _, bucket := range buckets {
		m, ok := models.ModelByID(bucket.ModelID)
		if !ok {
			log.Printf("renderer: model %d not found, skipping %d entities", bucket.ModelID, len(bucket.Entities))
			continue
		}
		if len(bucket.Entities) == 0 {
			continue
		}

		// One transform slot per entity in the bucket, shared by all of the
		// entity's instances.
		baseTransform := uint32(len(b.Transforms))
		for _, e := range bucket.Entities {
			t := e.Transform()
			g := model.GPUTransform{}
			copy(g.Model[:], t[:])
			b.Transforms = append(b.Transforms, g)
		}

		if m.Animated() {
			nextInstance = b.appendAnimated(m, bucket, baseTransform, nextInstance, materials, animated)
		} else {
			nextInstance = b.appendStatic(m, bucket, baseTransform, nextInstance, materials)
		}
	}

	if int(nextInstance) != len(b.Instances) {
		panic(fmt.Sprintf("renderer: instance index bookkeeping diverged (%d assigned, %d records)", nextInstance, len(b.Instances)))
	}
	return b
}

// appendStatic emits one command per mesh covering every entity in the
// bucket. All entities share the model's static vertex stream, so they
// collapse into a single instanced command per mesh.
func (b *Batch) appendStatic(m *model.Model, bucket scene.Bucket, baseTransform, nextInstance uint32, materials MaterialLookup) uint32 {
	for mi := range m.Meshes {
		mesh := &m.Meshes[mi]
		matIndex, ok := materials.IndexOf(mesh.MaterialID)
		if !ok {
			log.Printf("renderer: material %d not found, skipping mesh %d of model %q", mesh.MaterialID, mesh.ID, m.Name)
			continue
		}

		b.Commands = append(b.Commands, model.GPUDrawCommand{
			IndexCount:    mesh.IndexCount,
			InstanceCount: uint32(len(bucket.Entities)),
			FirstInstance: nextInstance,
		})
		b.Geometry = append(b.Geometry, CommandGeometry{
			VertexBuffer: mesh.VertexBuffer,
			IndexBuffer:  mesh.IndexBuffer,
		})

		for ei := range bucket.Entities {
			b.Instances = append(b.Instances, model.GPUInstanceRecord{
				TransformIndex: baseTransform + uint32(ei),
				MaterialIndex:  uint32(matIndex),
				VertexAddress:  bufferAddress(mesh.VertexBuffer),
				IndexAddress:   bufferAddress(mesh.IndexBuffer),
			})
		}
		nextInstance += uint32(len(bucket.Entities))
	}
	return nextInstance
}

// appendAnimated emits one single-instance command per (mesh, entity) pair.
// Instance counts of one are forced by the per-entity vertex streams: two
// entities on different playback frames cannot share a command.
func (b *Batch) appendAnimated(m *model.Model, bucket scene.Bucket, baseTransform, nextInstance uint32, materials MaterialLookup, animated AnimatedVertexLookup) uint32 {
	for mi := range m.Meshes {
		mesh := &m.Meshes[mi]
		matIndex, ok := materials.IndexOf(mesh.MaterialID)
		if !ok {
			log.Printf("renderer: material %d not found, skipping mesh %d of model %q", mesh.MaterialID, mesh.ID, m.Name)
			continue
		}

		for ei, e := range bucket.Entities {
			vb, ok := animated.AnimatedVertexBuffer(e.ID(), mi)
			if !ok {
				log.Printf("renderer: no animated vertices for entity %d mesh %d of model %q, skipping", e.ID(), mesh.ID, m.Name)
				continue
			}

			b.Commands = append(b.Commands, model.GPUDrawCommand{
				IndexCount:    mesh.IndexCount,
				InstanceCount: 1,
				FirstInstance: nextInstance,
			})
			b.Geometry = append(b.Geometry, CommandGeometry{
				VertexBuffer: vb,
				IndexBuffer:  mesh.IndexBuffer,
			})
			b.Instances = append(b.Instances, model.GPUInstanceRecord{
				TransformIndex: baseTransform + uint32(ei),
				MaterialIndex:  uint32(matIndex),
				VertexAddress:  vb.Address(),
				IndexAddress:   bufferAddress(mesh.IndexBuffer),
			})
			nextInstance++
		}
	}
	return nextInstance
}

// bufferAddress tolerates nil buffers so partially loaded meshes degrade to a
// zero address instead of panicking mid-frame.
func bufferAddress(buf device.Buffer) device.Address {
	if buf == nil {
		return 0
	}
	return buf.Address()
}
