package renderer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kiln-engine/kiln-go/common"
	"github.com/kiln-engine/kiln-go/engine/entity"
	"github.com/kiln-engine/kiln-go/engine/model"
	"github.com/kiln-engine/kiln-go/engine/renderer/device"
	"github.com/kiln-engine/kiln-go/engine/renderer/device/devicetest"
	"github.com/kiln-engine/kiln-go/engine/renderer/material"
	"github.com/kiln-engine/kiln-go/engine/scene"
)

// recordedDraw is one Draw call observed by the fake pass.
type recordedDraw struct {
	commandIndex int
	commands     device.Buffer
}

// fakePass records bind and draw calls.
type fakePass struct {
	resources FrameResources
	bound     bool
	draws     []recordedDraw
	ended     bool
}

func (p *fakePass) BindFrameResources(res FrameResources) {
	p.resources = res
	p.bound = true
}

func (p *fakePass) Draw(geom CommandGeometry, commands device.Buffer, commandIndex int) {
	p.draws = append(p.draws, recordedDraw{commandIndex: commandIndex, commands: commands})
}

func (p *fakePass) End() { p.ended = true }

// fakeBackend scripts the surface lifecycle on top of the in-memory device.
type fakeBackend struct {
	*devicetest.FakeDevice

	configures   []common.Extent
	beginErr     error
	presentErr   error
	frameOpen    bool
	shadowPasses []*fakePass
	scenePasses  []*fakePass
	fences       []*devicetest.FakeFence
	submits      int
	presents     int
	released     bool
}

var _ Backend = &fakeBackend{}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{FakeDevice: devicetest.NewFakeDevice()}
}

func (b *fakeBackend) ConfigureSurface(extent common.Extent, mode PresentMode) error {
	b.configures = append(b.configures, extent)
	return nil
}

func (b *fakeBackend) BeginFrame() error {
	if b.beginErr != nil {
		err := b.beginErr
		b.beginErr = nil
		return err
	}
	b.frameOpen = true
	return nil
}

func (b *fakeBackend) BeginShadowPass() RenderPass {
	p := &fakePass{}
	b.shadowPasses = append(b.shadowPasses, p)
	return p
}

func (b *fakeBackend) BeginScenePass() RenderPass {
	p := &fakePass{}
	b.scenePasses = append(b.scenePasses, p)
	return p
}

func (b *fakeBackend) EndFrame() (device.Fence, error) {
	b.frameOpen = false
	b.submits++
	f := devicetest.NewSignaledFence()
	b.fences = append(b.fences, f)
	return f, nil
}

func (b *fakeBackend) Present() error {
	if b.presentErr != nil {
		err := b.presentErr
		b.presentErr = nil
		return err
	}
	b.presents++
	return nil
}

func (b *fakeBackend) Release() { b.released = true }

type rendererFixture struct {
	backend *fakeBackend
	r       Renderer
	scene   scene.Scene
}

func newRendererFixture(options ...RendererBuilderOption) *rendererFixture {
	b := newFakeBackend()
	return &rendererFixture{
		backend: b,
		r:       NewRenderer(b, options...),
		scene:   scene.NewScene("test"),
	}
}

// addStaticModel registers a one-mesh static model and returns its id.
func (f *rendererFixture) addStaticModel(t *testing.T) common.ModelID {
	t.Helper()
	vb, err := f.backend.CreateBuffer("vertices", 64, device.BufferUsageVertex)
	assert.NoError(t, err)
	ib, err := f.backend.CreateBuffer("indices", 64, device.BufferUsageIndex)
	assert.NoError(t, err)
	matID := f.r.Materials().Register(material.Material{Name: "mat"})
	return f.r.Models().Register(&model.Model{
		Name:   "cube",
		Meshes: []model.Mesh{{ID: 1, MaterialID: matID, VertexBuffer: vb, IndexBuffer: ib, IndexCount: 36}},
	})
}

func TestRenderFrameRecordsBothStagesAndPresents(t *testing.T) {
	f := newRendererFixture()
	mid := f.addStaticModel(t)
	f.scene.Add(entity.NewEntity(mid))
	f.scene.Add(entity.NewEntity(mid))

	assert.NoError(t, f.r.RenderFrame(0.016, f.scene, testExtent))

	assert.Len(t, f.backend.configures, 1)
	assert.Len(t, f.backend.shadowPasses, 1)
	assert.Len(t, f.backend.scenePasses, 1)
	assert.Equal(t, 1, f.backend.presents)
	assert.EqualValues(t, 1, f.r.FramesRendered())

	// One live command drawn in each pass, bound to the same command buffer.
	shadow, sc := f.backend.shadowPasses[0], f.backend.scenePasses[0]
	assert.True(t, shadow.bound)
	assert.True(t, sc.bound)
	assert.Len(t, sc.draws, 1)
	assert.Equal(t, 0, sc.draws[0].commandIndex)
	assert.Equal(t, shadow.draws[0].commands, sc.draws[0].commands)
	assert.True(t, shadow.ended)
	assert.True(t, sc.ended)
	assert.NotNil(t, sc.resources.Instances)
	assert.NotNil(t, sc.resources.Materials)
	assert.NotEqual(t, shadow.resources.ViewProjection, sc.resources.ViewProjection)
}

func TestRenderFrameAlternatesSlots(t *testing.T) {
	f := newRendererFixture(WithFramesInFlight(2))
	mid := f.addStaticModel(t)
	f.scene.Add(entity.NewEntity(mid))

	assert.NoError(t, f.r.RenderFrame(0.016, f.scene, testExtent))
	assert.NoError(t, f.r.RenderFrame(0.016, f.scene, testExtent))

	// Consecutive frames draw from different slot buffers.
	first := f.backend.scenePasses[0].draws[0].commands
	second := f.backend.scenePasses[1].draws[0].commands
	assert.NotEqual(t, first, second)

	// The third frame reuses the first slot's buffer after its fence.
	assert.NoError(t, f.r.RenderFrame(0.016, f.scene, testExtent))
	third := f.backend.scenePasses[2].draws[0].commands
	assert.Equal(t, first, third)
	assert.Equal(t, 1, f.backend.fences[0].WaitCalls)
}

func TestRenderFrameSkipsZeroExtent(t *testing.T) {
	f := newRendererFixture()

	assert.NoError(t, f.r.RenderFrame(0.016, f.scene, common.Extent{}))
	assert.Zero(t, f.backend.submits)
	assert.Zero(t, f.r.FramesRendered())
}

func TestStaleSurfaceOnBeginFrameDropsAndReconfigures(t *testing.T) {
	f := newRendererFixture()
	mid := f.addStaticModel(t)
	f.scene.Add(entity.NewEntity(mid))

	assert.NoError(t, f.r.RenderFrame(0.016, f.scene, testExtent))
	f.backend.beginErr = ErrSurfaceStale

	// The stale frame is dropped without being fatal.
	assert.NoError(t, f.r.RenderFrame(0.016, f.scene, testExtent))
	assert.Equal(t, 1, f.backend.submits)

	// The next frame reconfigures the surface and renders normally.
	assert.NoError(t, f.r.RenderFrame(0.016, f.scene, testExtent))
	assert.Len(t, f.backend.configures, 2)
	assert.Equal(t, 2, f.backend.submits)
}

func TestStaleSurfaceOnPresentReconfiguresNextFrame(t *testing.T) {
	f := newRendererFixture()
	mid := f.addStaticModel(t)
	f.scene.Add(entity.NewEntity(mid))

	f.backend.presentErr = ErrSurfaceStale
	assert.NoError(t, f.r.RenderFrame(0.016, f.scene, testExtent))
	// The frame was submitted; only presentation was dropped.
	assert.Equal(t, 1, f.backend.submits)

	assert.NoError(t, f.r.RenderFrame(0.016, f.scene, testExtent))
	assert.Len(t, f.backend.configures, 2)
}

func TestNotifyResizeReconfiguresOnNextFrame(t *testing.T) {
	f := newRendererFixture()
	assert.NoError(t, f.r.RenderFrame(0.016, f.scene, testExtent))

	grown := common.Extent{Width: 1920, Height: 1080}
	f.r.NotifyResize(grown)
	assert.NoError(t, f.r.RenderFrame(0.016, f.scene, grown))
	assert.Equal(t, grown, f.backend.configures[1])
}

func TestAllocFailureIsFatal(t *testing.T) {
	f := newRendererFixture()
	mid := f.addStaticModel(t)
	f.scene.Add(entity.NewEntity(mid))
	f.backend.AllocErr = assert.AnError

	err := f.r.RenderFrame(0.016, f.scene, testExtent)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestUnresponsiveFenceIsFatalToRenderFrame(t *testing.T) {
	f := newRendererFixture(WithFramesInFlight(1), WithRendererFenceTimeout(time.Millisecond))
	mid := f.addStaticModel(t)
	f.scene.Add(entity.NewEntity(mid))

	assert.NoError(t, f.r.RenderFrame(0.016, f.scene, testExtent))
	// Replace the signaled fence with one that never fires.
	stuck := devicetest.NewStuckFence()
	f.backend.fences[0].Signal()
	fSched := f.r.(*rendererImpl).sched
	fSched.CompleteTick(0, stuck)

	err := f.r.RenderFrame(0.016, f.scene, testExtent)
	assert.ErrorIs(t, err, device.ErrDeviceLost)
}

func TestMaterialTableUploadedOnceUntilItGrows(t *testing.T) {
	f := newRendererFixture()
	mid := f.addStaticModel(t)
	f.scene.Add(entity.NewEntity(mid))

	assert.NoError(t, f.r.RenderFrame(0.016, f.scene, testExtent))
	buf := f.r.(*rendererImpl).buffers.MaterialBuffer()
	assert.NotNil(t, buf)
	assert.EqualValues(t, material.GPUMaterialSize, buf.Capacity())

	// No new materials: capacity unchanged across frames.
	assert.NoError(t, f.r.RenderFrame(0.016, f.scene, testExtent))
	assert.EqualValues(t, material.GPUMaterialSize, f.r.(*rendererImpl).buffers.MaterialBuffer().Capacity())

	// Registering another material grows the table on the next frame.
	f.r.Materials().Register(material.Material{Name: "second"})
	assert.NoError(t, f.r.RenderFrame(0.016, f.scene, testExtent))
	assert.EqualValues(t, 2*material.GPUMaterialSize, f.r.(*rendererImpl).buffers.MaterialBuffer().Capacity())
}

func TestReleaseTearsDownBackend(t *testing.T) {
	f := newRendererFixture()
	assert.NoError(t, f.r.RenderFrame(0.016, f.scene, testExtent))
	f.r.Release()
	assert.True(t, f.backend.released)
}
