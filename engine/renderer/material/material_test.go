package material_test

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kiln-engine/kiln-go/engine/renderer/material"
)

func TestRegisterAssignsStableIndices(t *testing.T) {
	c := material.NewCache()

	a := c.Register(material.Material{Name: "a"})
	b := c.Register(material.Material{Name: "b"})

	ia, ok := c.IndexOf(a)
	assert.True(t, ok)
	assert.Equal(t, 0, ia)

	ib, ok := c.IndexOf(b)
	assert.True(t, ok)
	assert.Equal(t, 1, ib)

	// Registering more materials must not move existing indices; instance
	// records written in earlier frames reference them.
	c.Register(material.Material{Name: "c"})
	ia2, _ := c.IndexOf(a)
	assert.Equal(t, ia, ia2)
	assert.Equal(t, 3, c.Count())
}

func TestIndexOfUnknownID(t *testing.T) {
	c := material.NewCache()
	_, ok := c.IndexOf(42)
	assert.False(t, ok)
}

func TestMarshalTablePacksRecordsInIndexOrder(t *testing.T) {
	c := material.NewCache()
	c.Register(material.Material{
		Name:      "red",
		BaseColor: [4]float32{1, 0, 0, 1},
		Metallic:  0.25,
		Roughness: 0.5,
	})
	c.Register(material.Material{
		Name:      "green",
		BaseColor: [4]float32{0, 1, 0, 1},
	})

	table := c.MarshalTable()
	assert.Len(t, table, 2*material.GPUMaterialSize)

	f32 := func(off int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(table[off : off+4]))
	}
	assert.Equal(t, float32(1), f32(0))     // red R
	assert.Equal(t, float32(0.25), f32(16)) // red metallic
	assert.Equal(t, float32(0.5), f32(20))  // red roughness
	assert.Equal(t, float32(0), f32(24))    // padding
	assert.Equal(t, float32(1), f32(material.GPUMaterialSize+4)) // green G
}
