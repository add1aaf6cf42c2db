package light_test

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"

	"github.com/kiln-engine/kiln-go/engine/light"
)

func TestDirectionIsNormalized(t *testing.T) {
	l := light.NewDirectionalLight(light.WithDirection(mgl32.Vec3{0, -10, 0}))
	assert.InDelta(t, 1, float64(l.Direction().Len()), 1e-5)

	l.SetDirection(mgl32.Vec3{3, 0, 0})
	assert.Equal(t, mgl32.Vec3{1, 0, 0}, l.Direction())
}

func TestShadowMatrixCentersOnTarget(t *testing.T) {
	l := light.NewDirectionalLight(light.WithDirection(mgl32.Vec3{-1, -1, 0}))
	center := mgl32.Vec3{5, 0, -3}

	clip := l.ShadowMatrix(center).Mul4x1(center.Vec4(1))
	// Orthographic: w stays 1, the center lands on the view axis.
	assert.InDelta(t, 1, float64(clip.W()), 1e-5)
	assert.InDelta(t, 0, float64(clip.X()), 1e-4)
	assert.InDelta(t, 0, float64(clip.Y()), 1e-4)
	assert.Greater(t, clip.Z(), float32(0))
	assert.Less(t, clip.Z(), float32(1))
}

func TestShadowMatrixHandlesStraightDownLight(t *testing.T) {
	l := light.NewDirectionalLight(light.WithDirection(mgl32.Vec3{0, -1, 0}))

	m := l.ShadowMatrix(mgl32.Vec3{0, 0, 0})
	for i := 0; i < 16; i++ {
		assert.False(t, m[i] != m[i], "matrix element %d is NaN", i)
	}
}

func TestShadowFrustumBoundsClipPoints(t *testing.T) {
	l := light.NewDirectionalLight(
		light.WithDirection(mgl32.Vec3{0, -1, 0.01}),
		light.WithShadowFrustum(10, 0.1, 100),
	)
	m := l.ShadowMatrix(mgl32.Vec3{0, 0, 0})

	inside := m.Mul4x1(mgl32.Vec4{5, 0, 0, 1})
	assert.LessOrEqual(t, float64(inside.X()), 1.0)

	outside := m.Mul4x1(mgl32.Vec4{50, 0, 0, 1})
	assert.Greater(t, float64(outside.X()), 1.0)
}

func TestColorCarriesIntensity(t *testing.T) {
	l := light.NewDirectionalLight(light.WithColor(mgl32.Vec3{1, 0.9, 0.8}, 2.5))
	color, intensity := l.Color()
	assert.Equal(t, mgl32.Vec3{1, 0.9, 0.8}, color)
	assert.Equal(t, float32(2.5), intensity)
}
