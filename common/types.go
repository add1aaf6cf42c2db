// Package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

// ModelID identifies a loaded model in the model cache.
type ModelID uint32

// MeshID identifies a single mesh within a model.
type MeshID uint32

// MaterialID identifies a material in the material cache.
type MaterialID uint32

// EntityID identifies a scene entity.
type EntityID uint64

// Extent holds the pixel dimensions of an output surface.
type Extent struct {
	// Width is the surface width in pixels.
	Width int
	// Height is the surface height in pixels.
	Height int
}

// Zero reports whether the extent has no drawable area (minimized window).
//
// Returns:
//   - bool: true if either dimension is zero
func (e Extent) Zero() bool {
	return e.Width == 0 || e.Height == 0
}
