package renderer

import (
	"github.com/kiln-engine/kiln-go/engine/camera"
	"github.com/kiln-engine/kiln-go/engine/light"
)

// Stage records one render pass of the frame. Stages run in registration
// order between BeginFrame and EndFrame; every stage reads the same frame
// slot, so all passes of a frame see one consistent snapshot of the scene.
type Stage interface {
	// Record opens the stage's pass on the current frame, replays the
	// slot's live commands through it, and closes the pass.
	//
	// Parameters:
	//   - b: the backend with an open frame
	//   - g: the pipelined buffer set
	//   - slot: the frame slot to read
	Record(b Backend, g *GlobalBuffers, slot int)
}

// recordDraws binds the slot's frame resources on the pass and issues one
// indirect draw per live command. Capacity beyond the live count is never
// touched.
func recordDraws(pass RenderPass, g *GlobalBuffers, slot int, res FrameResources) {
	res.Instances = g.InstanceBuffer(slot)
	res.Transforms = g.TransformBuffer(slot)
	res.Materials = g.MaterialBuffer()
	pass.BindFrameResources(res)

	commands := g.CommandBuffer(slot)
	geometry := g.Geometry(slot)
	for i := 0; i < g.LiveCommandCount(slot); i++ {
		pass.Draw(geometry[i], commands, i)
	}
	pass.End()
}

// SceneStage is the main color pass, drawing every live command from the
// camera's point of view with the light's shadow map applied.
type SceneStage struct {
	// Camera supplies the view-projection matrix each frame.
	Camera camera.Camera

	// Light supplies the shadow matrix and lighting terms; optional.
	Light *light.DirectionalLight
}

var _ Stage = &SceneStage{}

// NewSceneStage creates the main color stage.
//
// Parameters:
//   - cam: the scene camera
//   - l: the directional light, or nil for unshadowed rendering
//
// Returns:
//   - *SceneStage: the stage
func NewSceneStage(cam camera.Camera, l *light.DirectionalLight) *SceneStage {
	return &SceneStage{Camera: cam, Light: l}
}

func (s *SceneStage) Record(b Backend, g *GlobalBuffers, slot int) {
	res := FrameResources{}
	vp := s.Camera.ViewProjectionMatrix()
	copy(res.ViewProjection[:], vp[:])
	if s.Light != nil {
		shadow := s.Light.ShadowMatrix(s.Camera.Target())
		copy(res.LightViewProjection[:], shadow[:])
		dir := s.Light.Direction()
		res.LightDirection = [4]float32{dir.X(), dir.Y(), dir.Z(), 0}
		color, intensity := s.Light.Color()
		res.LightColor = [4]float32{color.X() * intensity, color.Y() * intensity, color.Z() * intensity, 0}
	}
	recordDraws(b.BeginScenePass(), g, slot, res)
}

// ShadowStage is the depth-only pass rendering the scene from the light's
// point of view into the shadow map. It replays the same command buffer as
// the scene stage, so the shadow map always matches what is drawn.
type ShadowStage struct {
	// Light supplies the shadow view-projection matrix.
	Light *light.DirectionalLight

	// Camera centers the shadow volume on what the viewer sees.
	Camera camera.Camera
}

var _ Stage = &ShadowStage{}

// NewShadowStage creates the shadow depth stage.
//
// Parameters:
//   - l: the directional light casting shadows
//   - cam: the scene camera the shadow volume follows
//
// Returns:
//   - *ShadowStage: the stage
func NewShadowStage(l *light.DirectionalLight, cam camera.Camera) *ShadowStage {
	return &ShadowStage{Light: l, Camera: cam}
}

func (s *ShadowStage) Record(b Backend, g *GlobalBuffers, slot int) {
	res := FrameResources{}
	shadow := s.Light.ShadowMatrix(s.Camera.Target())
	copy(res.ViewProjection[:], shadow[:])
	recordDraws(b.BeginShadowPass(), g, slot, res)
}
