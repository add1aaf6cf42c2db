// Package material holds the material table consumed by the shading stages
// and the cache that maps material ids to their stable table indices.
package material

import (
	"sync"

	"github.com/kiln-engine/kiln-go/common"
)

// Material describes the surface properties of a mesh. Properties are set at
// load time and are read-only afterwards; the renderer references materials
// only through their table index.
type Material struct {
	// Name is the material identifier for debugging.
	Name string

	// BaseColor is the albedo/diffuse color (RGBA).
	BaseColor [4]float32

	// Metallic factor (0.0 = dielectric, 1.0 = metal).
	Metallic float32

	// Roughness factor (0.0 = smooth, 1.0 = rough).
	Roughness float32
}

// Cache owns all registered materials and assigns each a stable index in the
// GPU material table. Indices never change after registration, so instance
// records written in one frame remain valid in the next. Thread-safe for
// concurrent access.
type Cache struct {
	mu        sync.RWMutex
	materials []Material
	indexByID map[common.MaterialID]int
	nextID    common.MaterialID
}

// NewCache creates an empty material cache.
//
// Returns:
//   - *Cache: the newly created cache
func NewCache() *Cache {
	return &Cache{
		indexByID: make(map[common.MaterialID]int),
		nextID:    1,
	}
}

// Register appends the material to the table and assigns it an id.
//
// Parameters:
//   - m: the material to register
//
// Returns:
//   - common.MaterialID: the assigned id
func (c *Cache) Register(m Material) common.MaterialID {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.indexByID[id] = len(c.materials)
	c.materials = append(c.materials, m)
	return id
}

// IndexOf resolves a material id to its stable table index.
//
// Parameters:
//   - id: the material id
//
// Returns:
//   - int: the table index
//   - bool: true if the id is registered
func (c *Cache) IndexOf(id common.MaterialID) (int, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	idx, ok := c.indexByID[id]
	return idx, ok
}

// Count returns the number of registered materials.
//
// Returns:
//   - int: the material count
func (c *Cache) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.materials)
}

// MarshalTable serializes the whole material table for GPU upload, one
// GPUMaterial record per registered material in index order.
//
// Returns:
//   - []byte: the packed material table
func (c *Cache) MarshalTable() []byte {
	c.mu.RLock()
	defer c.mu.RUnlock()
	buf := make([]byte, len(c.materials)*GPUMaterialSize)
	for i := range c.materials {
		m := &c.materials[i]
		g := GPUMaterial{
			BaseColor: m.BaseColor,
			Metallic:  m.Metallic,
			Roughness: m.Roughness,
		}
		g.MarshalInto(buf[i*GPUMaterialSize:])
	}
	return buf
}
