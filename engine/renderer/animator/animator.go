// Package animator owns the per-entity animated vertex buffers. Animated
// models cannot share one vertex stream across entities the way static models
// do — each entity sits on its own playback frame — so the cache keeps one
// GPU buffer per (entity, mesh) pair and re-uploads the baked frame payload
// whenever the entity's playback cursor advances.
package animator

import (
	"log"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"

	"github.com/kiln-engine/kiln-go/common"
	"github.com/kiln-engine/kiln-go/engine/entity"
	"github.com/kiln-engine/kiln-go/engine/model"
	"github.com/kiln-engine/kiln-go/engine/renderer/device"
	"github.com/kiln-engine/kiln-go/engine/scene"
)

// ModelLookup resolves model ids during frame preparation. The model cache
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

// bufferKey identifies one per-entity animated vertex buffer.
type bufferKey struct {
	entity    common.EntityID
	meshIndex int
}

// stagedWrite is one pending vertex payload upload, produced by the parallel
// prep phase and drained on the render goroutine by FlushWrites.
type stagedWrite struct {
	buf  device.Buffer
	data []byte
}

// animationCache is the implementation of the Cache interface.
type animationCache struct {
	mu  sync.Mutex
	dev device.Device

	buffers map[bufferKey]device.Buffer
	staged  []stagedWrite

	// written tracks buffers that have received at least one payload, so a
	// freshly allocated buffer gets uploaded even when the cursor is idle.
	written map[device.Address]struct{}

	// pool runs the per-entity playback stepping and payload selection in
	// parallel each frame. Workers are reused across frames.
	pool    worker.DynamicWorkerPool
	workers int

	taskID int
}

// Cache manages the animated vertex buffers backing skinned entities.
// PrepareFrame runs once per simulation step on the render goroutine;
// AnimatedVertexBuffer is read by the draw batch builder afterwards.
type Cache interface {
	// PrepareFrame advances every animated entity's playback cursor by
	// deltaTime, (re)allocates the per-entity vertex buffers, and stages the
	// current frame payload for upload. Buffers of entities that left the
	// scene since the previous frame are released. Call FlushWrites
	// afterwards to submit the staged uploads.
	//
	// Parameters:
	//   - deltaTime: elapsed time since the last frame in seconds
	//   - buckets: the scene's current model buckets
	//   - models: resolves model ids to their animation data
	//
	// Returns:
	//   - error: an error if a buffer allocation fails (fatal, not retried)
	PrepareFrame(deltaTime float32, buckets []scene.Bucket, models ModelLookup) error

	// FlushWrites submits the uploads staged by PrepareFrame and clears the
	// staging list. Must run on the render goroutine.
	FlushWrites()

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

	// RemoveEntity releases all buffers owned by the entity. PrepareFrame
	// also prunes departed entities, so this is only needed for immediate
	// reclamation.
	//
	// Parameters:
	//   - entityID: the entity whose buffers to release
	RemoveEntity(entityID common.EntityID)

	// BufferCount returns the number of live per-entity buffers.
	//
	// Returns:
	//   - int: the buffer count
	BufferCount() int

	// Release frees every buffer held by the cache.
	Release()
}

var _ Cache = &animationCache{}

// NewCache creates an animation cache allocating from the given device,
// configurable via functional options.
//
// Parameters:
//   - dev: the device to allocate vertex buffers from
//   - options: variadic list of CacheBuilderOption functions
//
// Returns:
//   - Cache: the newly created cache
func NewCache(dev device.Device, options ...CacheBuilderOption) Cache {
	c := &animationCache{
		dev:     dev,
		buffers: make(map[bufferKey]device.Buffer),
		written: make(map[device.Address]struct{}),
		workers: defaultWorkers(),
	}
	for _, opt := range options {
		opt(c)
	}
	// Queue size of 256 accommodates typical animated entity counts with headroom.
	c.pool = worker.NewDynamicWorkerPool(c.workers, 256, 1*time.Second)
	return c
}

func (c *animationCache) PrepareFrame(deltaTime float32, buckets []scene.Bucket, models ModelLookup) error {
	seen := make(map[bufferKey]struct{}, len(c.buffers))

	// Phase 1: serial buffer allocation. Allocation can fail and must be
	// reported before any playback state mutates further, so it stays out of
	// the worker pool.
	type prepItem struct {
		e  entity.Entity
		m  *model.Model
		st *entity.AnimationState
	}
	var items []prepItem
	for _, bucket := range buckets {
		m, ok := models.ModelByID(bucket.ModelID)
		if !ok {
			log.Printf("animator: model %d not found, skipping bucket", bucket.ModelID)
			continue
		}
		if !m.Animated() {
			continue
		}
		for _, e := range bucket.Entities {
			st := e.Animation()
			if st == nil || st.Clip < 0 || st.Clip >= len(m.Clips) {
				continue
			}
			clip := &m.Clips[st.Clip]
			if clip.FrameCount() == 0 {
				continue
			}
			for mi := range m.Meshes {
				if mi >= len(clip.MeshFrames) || len(clip.MeshFrames[mi]) == 0 {
					continue
				}
				key := bufferKey{entity: e.ID(), meshIndex: mi}
				seen[key] = struct{}{}
				need := uint64(len(clip.MeshFrames[mi][0]))
				if err := c.ensureBuffer(key, need); err != nil {
					return err
				}
			}
			items = append(items, prepItem{e: e, m: m, st: st})
		}
	}

	// Phase 2: parallel playback stepping and payload staging. A WaitGroup
	// provides the per-frame barrier since the pool has no frame-scoped wait.
	var wg sync.WaitGroup
	for _, it := range items {
		wg.Add(1)
		itCap := it
		id := c.taskID
		c.taskID++
		c.pool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()
				c.stepEntity(deltaTime, itCap.e, itCap.m, itCap.st)
				return nil, nil
			},
		})
	}
	wg.Wait()

	c.pruneDeparted(seen)
	return nil
}

// stepEntity advances one entity's playback cursor and stages the frame
// payload for each of its meshes. Runs on a pool worker.
func (c *animationCache) stepEntity(deltaTime float32, e entity.Entity, m *model.Model, st *entity.AnimationState) {
	clip := &m.Clips[st.Clip]
	frames := clip.FrameCount()
	if frames == 0 {
		return
	}

	advanced := false
	if clip.FrameTime > 0 {
		st.Elapsed += deltaTime
		for st.Elapsed >= clip.FrameTime {
			st.Elapsed -= clip.FrameTime
			st.Frame = (st.Frame + 1) % frames
			advanced = true
		}
	}
	if st.Frame >= frames {
		st.Frame = st.Frame % frames
		advanced = true
	}
	e.SetAnimation(st)

	c.mu.Lock()
	defer c.mu.Unlock()
	for mi := range m.Meshes {
		if mi >= len(clip.MeshFrames) || st.Frame >= len(clip.MeshFrames[mi]) {
			continue
		}
		key := bufferKey{entity: e.ID(), meshIndex: mi}
		buf, ok := c.buffers[key]
		if !ok {
			continue
		}
		// A fresh buffer needs its first payload even if the cursor did not
		// move.
		if _, done := c.written[buf.Address()]; done && !advanced {
			continue
		}
		c.staged = append(c.staged, stagedWrite{
			buf:  buf,
			data: clip.MeshFrames[mi][st.Frame],
		})
		c.written[buf.Address()] = struct{}{}
	}
}

func (c *animationCache) FlushWrites() {
	c.mu.Lock()
	staged := c.staged
	c.staged = nil
	c.mu.Unlock()

	for _, w := range staged {
		c.dev.WriteBuffer(w.buf, 0, w.data)
	}
}

func (c *animationCache) AnimatedVertexBuffer(entityID common.EntityID, meshIndex int) (device.Buffer, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	buf, ok := c.buffers[bufferKey{entity: entityID, meshIndex: meshIndex}]
	return buf, ok
}

func (c *animationCache) RemoveEntity(entityID common.EntityID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, buf := range c.buffers {
		if key.entity == entityID {
			delete(c.written, buf.Address())
			buf.Release()
			delete(c.buffers, key)
		}
	}
}

func (c *animationCache) BufferCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buffers)
}

func (c *animationCache) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, buf := range c.buffers {
		buf.Release()
		delete(c.buffers, key)
	}
	c.written = make(map[device.Address]struct{})
	c.staged = nil
}

// ensureBuffer allocates or replaces the buffer for key so it holds at least
// need bytes. Runs serially on the render goroutine.
func (c *animationCache) ensureBuffer(key bufferKey, need uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if buf, ok := c.buffers[key]; ok {
		if buf.Capacity() >= need {
			return nil
		}
		delete(c.written, buf.Address())
		buf.Release()
	}
	buf, err := c.dev.CreateBuffer("animated-vertices", need, device.BufferUsageVertex)
	if err != nil {
		return err
	}
	c.buffers[key] = buf
	return nil
}

// pruneDeparted releases buffers whose (entity, mesh) pair was not seen this
// frame — their entity left the scene or its model changed.
func (c *animationCache) pruneDeparted(seen map[bufferKey]struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, buf := range c.buffers {
		if _, ok := seen[key]; !ok {
			delete(c.written, buf.Address())
			buf.Release()
			delete(c.buffers, key)
		}
	}
}
