package model

import (
	"sync"

	"github.com/kiln-engine/kiln-go/common"
)

// Cache owns every loaded Model, keyed by id. Models are registered once by
// the loader and are read-only afterwards; the renderer looks them up each
// frame while building draw batches. Thread-safe for concurrent access.
type Cache struct {
	mu     sync.RWMutex
	models map[common.ModelID]*Model
	nextID common.ModelID
}

// NewCache creates an empty model cache.
//
// Returns:
//   - *Cache: the newly created cache
func NewCache() *Cache {
	return &Cache{
		models: make(map[common.ModelID]*Model),
		nextID: 1,
	}
}

// Register assigns the model an id and stores it in the cache.
//
// Parameters:
//   - m: the model to register
//
// Returns:
//   - common.ModelID: the assigned id
func (c *Cache) Register(m *Model) common.ModelID {
	c.mu.Lock()
	defer c.mu.Unlock()
	m.ID = c.nextID
	c.nextID++
	c.models[m.ID] = m
	return m.ID
}

// ModelByID retrieves a model by id.
//
// Parameters:
//   - id: the model id
//
// Returns:
//   - *Model: the model, or nil if not registered
//   - bool: true if the model was found
func (c *Cache) ModelByID(id common.ModelID) (*Model, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.models[id]
	return m, ok
}

// Count returns the number of registered models.
//
// Returns:
//   - int: the model count
func (c *Cache) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.models)
}
