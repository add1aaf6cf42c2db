package renderer

import (
	_ "embed"
	"encoding/binary"
	"fmt"
	"math"
	"runtime"
	"time"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/kiln-engine/kiln-go/common"
	"github.com/kiln-engine/kiln-go/engine/light"
	"github.com/kiln-engine/kiln-go/engine/model"
	"github.com/kiln-engine/kiln-go/engine/renderer/device"
)

//go:embed assets/scene.wgsl
var sceneShaderSource string

//go:embed assets/shadow.wgsl
var shadowShaderSource string

// frameUniformsSize is the byte size of the per-pass uniform block:
// two mat4x4 plus two vec4 (std140 aligned).
const frameUniformsSize = 160

// wgpuBuffer adapts a wgpu buffer to the device.Buffer contract, attaching
// the stable address the instance records carry.
type wgpuBuffer struct {
	buf   *wgpu.Buffer
	addr  device.Address
	label string
	size  uint64
}

var _ device.Buffer = &wgpuBuffer{}

func (b *wgpuBuffer) Address() device.Address { return b.addr }
func (b *wgpuBuffer) Capacity() uint64        { return b.size }
func (b *wgpuBuffer) Label() string           { return b.label }

func (b *wgpuBuffer) Release() {
	if b.buf != nil {
		b.buf.Release()
		b.buf = nil
	}
}

// wgpuFence tracks one queue submission. Wait blocks in Device.Poll until
// the submission retires; a poll that outlives the timeout is reported as
// device loss.
type wgpuFence struct {
	dev   *wgpu.Device
	queue *wgpu.Queue
	index wgpu.SubmissionIndex
}

var _ device.Fence = &wgpuFence{}

func (f *wgpuFence) Wait(timeout time.Duration) error {
	done := make(chan struct{}, 1)
	go func() {
		f.dev.Poll(true, &wgpu.WrappedSubmissionIndex{
			Queue:           f.queue,
			SubmissionIndex: f.index,
		})
		done <- struct{}{}
	}()
	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("submission %d unsignaled after %v: %w", f.index, timeout, device.ErrDeviceLost)
	}
}

// wgpuBackendImpl is the WebGPU implementation of the Backend interface.
type wgpuBackendImpl struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	dev      *wgpu.Device
	queue    *wgpu.Queue
	surface  *wgpu.Surface

	surfaceFormat wgpu.TextureFormat
	sampleCount   uint32

	msaaTexture  *wgpu.Texture
	msaaView     *wgpu.TextureView
	depthTexture *wgpu.Texture
	depthView    *wgpu.TextureView

	shadowMapSize int
	shadowTexture *wgpu.Texture
	shadowView    *wgpu.TextureView
	shadowSampler *wgpu.Sampler

	sceneLayout    *wgpu.BindGroupLayout
	shadowLayout   *wgpu.BindGroupLayout
	scenePipeline  *wgpu.RenderPipeline
	shadowPipeline *wgpu.RenderPipeline

	// Frame state between BeginFrame and Present.
	frameEncoder *wgpu.CommandEncoder
	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView

	// transients holds per-frame uniform buffers and bind groups that must
	// outlive submission; released after the queue accepts the frame.
	transients []interface{ Release() }

	nextAddr device.Address
}

var _ Backend = &wgpuBackendImpl{}

// WGPUBackendOption is a functional option for configuring the WebGPU backend during construction.
type WGPUBackendOption func(*wgpuBackendImpl)

// WithSampleCount sets the MSAA sample count for the main pass. WebGPU
// guarantees 1 (off) and 4.
//
// Parameters:
//   - count: the sample count
//
// Returns:
//   - WGPUBackendOption: a function that applies the sample count to the backend
func WithSampleCount(count uint32) WGPUBackendOption {
	return func(b *wgpuBackendImpl) {
		b.sampleCount = count
	}
}

// WithShadowMapSize sets the shadow map resolution in texels.
//
// Parameters:
//   - size: the texture width and height
//
// Returns:
//   - WGPUBackendOption: a function that applies the resolution to the backend
func WithShadowMapSize(size int) WGPUBackendOption {
	return func(b *wgpuBackendImpl) {
		b.shadowMapSize = size
	}
}

// NewWGPUBackend creates a WebGPU backend rendering to the surface described
// by surfaceDescriptor. The calling goroutine is locked to its OS thread for
// the lifetime of the backend.
//
// Parameters:
//   - surfaceDescriptor: the platform surface to render to
//   - options: variadic list of WGPUBackendOption functions
//
// Returns:
//   - Backend: the backend
//   - error: an error if no suitable adapter or device is available
func NewWGPUBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, options ...WGPUBackendOption) (Backend, error) {
	runtime.LockOSThread()
	b := &wgpuBackendImpl{
		instance: wgpu.CreateInstance(nil),
		nextAddr: 1,
	}
	for _, opt := range options {
		opt(b)
	}
	b.sampleCount = common.Coalesce(b.sampleCount, 4)
	b.shadowMapSize = common.Coalesce(b.shadowMapSize, light.ShadowMapResolution)
	b.surface = b.instance.CreateSurface(surfaceDescriptor)

	adapter, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: b.surface,
	})
	if err != nil {
		return nil, fmt.Errorf("request adapter: %w", err)
	}
	b.adapter = adapter

	dev, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
	})
	if err != nil {
		return nil, fmt.Errorf("request device: %w", err)
	}
	b.dev = dev
	b.queue = dev.GetQueue()

	if err := b.createShadowResources(); err != nil {
		b.Release()
		return nil, err
	}
	return b, nil
}

func (b *wgpuBackendImpl) CreateBuffer(label string, size uint64, usage device.BufferUsage) (device.Buffer, error) {
	buf, err := b.dev.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: toWGPUUsage(usage) | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create buffer %q (%d bytes): %w", label, size, err)
	}
	addr := b.nextAddr
	b.nextAddr++
	return &wgpuBuffer{buf: buf, addr: addr, label: label, size: size}, nil
}

func (b *wgpuBackendImpl) WriteBuffer(buf device.Buffer, offset uint64, data []byte) {
	b.queue.WriteBuffer(buf.(*wgpuBuffer).buf, offset, data)
}

func toWGPUUsage(usage device.BufferUsage) wgpu.BufferUsage {
	var out wgpu.BufferUsage
	if usage&device.BufferUsageVertex != 0 {
		out |= wgpu.BufferUsageVertex
	}
	if usage&device.BufferUsageIndex != 0 {
		out |= wgpu.BufferUsageIndex
	}
	if usage&device.BufferUsageStorage != 0 {
		out |= wgpu.BufferUsageStorage
	}
	if usage&device.BufferUsageIndirect != 0 {
		out |= wgpu.BufferUsageIndirect
	}
	if usage&device.BufferUsageUniform != 0 {
		out |= wgpu.BufferUsageUniform
	}
	return out
}

func (b *wgpuBackendImpl) ConfigureSurface(extent common.Extent, mode PresentMode) error {
	capabilities := b.surface.GetCapabilities(b.adapter)
	b.surfaceFormat = capabilities.Formats[0]

	presentMode := wgpu.PresentModeFifo
	if mode == PresentModeUncapped {
		presentMode = wgpu.PresentModeImmediate
	}
	b.surface.Configure(b.adapter, b.dev, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      b.surfaceFormat,
		Width:       uint32(extent.Width),
		Height:      uint32(extent.Height),
		PresentMode: presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})

	if err := b.createTargets(extent); err != nil {
		return err
	}
	if b.scenePipeline == nil {
		if err := b.createPipelines(); err != nil {
			return err
		}
	}
	return nil
}

// createTargets (re)creates the size-dependent render targets.
func (b *wgpuBackendImpl) createTargets(extent common.Extent) error {
	b.releaseTargets()

	if b.sampleCount > 1 {
		msaa, err := b.dev.CreateTexture(&wgpu.TextureDescriptor{
			Label: "MSAA Texture",
			Size: wgpu.Extent3D{
				Width:              uint32(extent.Width),
				Height:             uint32(extent.Height),
				DepthOrArrayLayers: 1,
			},
			MipLevelCount: 1,
			SampleCount:   b.sampleCount,
			Dimension:     wgpu.TextureDimension2D,
			Format:        b.surfaceFormat,
			Usage:         wgpu.TextureUsageRenderAttachment,
		})
		if err != nil {
			return fmt.Errorf("create msaa texture: %w", err)
		}
		view, err := msaa.CreateView(nil)
		if err != nil {
			msaa.Release()
			return fmt.Errorf("create msaa view: %w", err)
		}
		b.msaaTexture = msaa
		b.msaaView = view
	}

	depth, err := b.dev.CreateTexture(&wgpu.TextureDescriptor{
		Label: "Depth Texture",
		Size: wgpu.Extent3D{
			Width:              uint32(extent.Width),
			Height:             uint32(extent.Height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   b.sampleCount,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatDepth24Plus,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return fmt.Errorf("create depth texture: %w", err)
	}
	depthView, err := depth.CreateView(nil)
	if err != nil {
		depth.Release()
		return fmt.Errorf("create depth view: %w", err)
	}
	b.depthTexture = depth
	b.depthView = depthView
	return nil
}

// createShadowResources creates the fixed-size shadow map and its comparison
// sampler. These survive surface resizes.
func (b *wgpuBackendImpl) createShadowResources() error {
	tex, err := b.dev.CreateTexture(&wgpu.TextureDescriptor{
		Label: "Shadow Depth Texture",
		Size: wgpu.Extent3D{
			Width:              uint32(b.shadowMapSize),
			Height:             uint32(b.shadowMapSize),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatDepth32Float,
		Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding,
	})
	if err != nil {
		return fmt.Errorf("create shadow texture: %w", err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return fmt.Errorf("create shadow view: %w", err)
	}
	sampler, err := b.dev.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Shadow Comparison Sampler",
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		Compare:       wgpu.CompareFunctionLess,
		MaxAnisotropy: 1,
	})
	if err != nil {
		view.Release()
		tex.Release()
		return fmt.Errorf("create shadow sampler: %w", err)
	}
	b.shadowTexture = tex
	b.shadowView = view
	b.shadowSampler = sampler
	return nil
}

// vertexBufferLayout is the vertex stream layout shared by both pipelines:
// position, normal, uv.
func vertexBufferLayout() wgpu.VertexBufferLayout {
	return wgpu.VertexBufferLayout{
		ArrayStride: model.GPUVertexSize,
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes: []wgpu.VertexAttribute{
			{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
			{Format: wgpu.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1},
			{Format: wgpu.VertexFormatFloat32x2, Offset: 24, ShaderLocation: 2},
		},
	}
}

func (b *wgpuBackendImpl) createPipelines() error {
	sceneModule, err := b.dev.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "scene shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: sceneShaderSource},
	})
	if err != nil {
		return fmt.Errorf("compile scene shader: %w", err)
	}
	defer sceneModule.Release()

	shadowModule, err := b.dev.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "shadow shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shadowShaderSource},
	})
	if err != nil {
		return fmt.Errorf("compile shadow shader: %w", err)
	}
	defer shadowModule.Release()

	storageEntry := func(binding uint32, visibility wgpu.ShaderStage) wgpu.BindGroupLayoutEntry {
		return wgpu.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: visibility,
			Buffer: wgpu.BufferBindingLayout{
				Type: wgpu.BufferBindingTypeReadOnlyStorage,
			},
		}
	}

	sceneLayout, err := b.dev.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "scene bind group layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
				Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform},
			},
			storageEntry(1, wgpu.ShaderStageVertex),
			storageEntry(2, wgpu.ShaderStageVertex),
			storageEntry(3, wgpu.ShaderStageFragment),
			{
				Binding:    4,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeDepth,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
			{
				Binding:    5,
				Visibility: wgpu.ShaderStageFragment,
				Sampler:    wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeComparison},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create scene bind group layout: %w", err)
	}
	b.sceneLayout = sceneLayout

	shadowLayout, err := b.dev.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "shadow bind group layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex,
				Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform},
			},
			storageEntry(1, wgpu.ShaderStageVertex),
			storageEntry(2, wgpu.ShaderStageVertex),
		},
	})
	if err != nil {
		return fmt.Errorf("create shadow bind group layout: %w", err)
	}
	b.shadowLayout = shadowLayout

	sceneLayoutDesc, err := b.dev.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "scene pipeline layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{sceneLayout},
	})
	if err != nil {
		return fmt.Errorf("create scene pipeline layout: %w", err)
	}
	defer sceneLayoutDesc.Release()

	b.scenePipeline, err = b.dev.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "scene pipeline",
		Layout: sceneLayoutDesc,
		Vertex: wgpu.VertexState{
			Module:     sceneModule,
			EntryPoint: "vs_main",
			Buffers:    []wgpu.VertexBufferLayout{vertexBufferLayout()},
		},
		Primitive: wgpu.PrimitiveState{
			Topology: wgpu.PrimitiveTopologyTriangleList,
			CullMode: wgpu.CullModeBack,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            wgpu.TextureFormatDepth24Plus,
			DepthWriteEnabled: true,
			DepthCompare:      wgpu.CompareFunctionLess,
		},
		Multisample: wgpu.MultisampleState{
			Count: b.sampleCount,
			Mask:  0xFFFFFFFF,
		},
		Fragment: &wgpu.FragmentState{
			Module:     sceneModule,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{
				{
					Format:    b.surfaceFormat,
					WriteMask: wgpu.ColorWriteMaskAll,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create scene pipeline: %w", err)
	}

	shadowLayoutDesc, err := b.dev.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "shadow pipeline layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{shadowLayout},
	})
	if err != nil {
		return fmt.Errorf("create shadow pipeline layout: %w", err)
	}
	defer shadowLayoutDesc.Release()

	b.shadowPipeline, err = b.dev.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "shadow pipeline",
		Layout: shadowLayoutDesc,
		Vertex: wgpu.VertexState{
			Module:     shadowModule,
			EntryPoint: "vs_main",
			Buffers:    []wgpu.VertexBufferLayout{vertexBufferLayout()},
		},
		Primitive: wgpu.PrimitiveState{
			Topology: wgpu.PrimitiveTopologyTriangleList,
			// Front-face culling in the shadow pass reduces self-shadowing.
			CullMode: wgpu.CullModeFront,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            wgpu.TextureFormatDepth32Float,
			DepthWriteEnabled: true,
			DepthCompare:      wgpu.CompareFunctionLess,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("create shadow pipeline: %w", err)
	}
	return nil
}

func (b *wgpuBackendImpl) BeginFrame() error {
	if b.frameSurface != nil {
		return fmt.Errorf("previous frame surface not yet presented")
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		// Any acquisition failure means the swapchain no longer matches the
		// window; the caller reconfigures and retries next frame.
		return fmt.Errorf("%w: %v", ErrSurfaceStale, err)
	}

	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return fmt.Errorf("create surface view: %w", err)
	}

	encoder, err := b.dev.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surfaceTexture.Release()
		return fmt.Errorf("create command encoder: %w", err)
	}

	b.frameEncoder = encoder
	b.frameSurface = surfaceTexture
	b.frameView = view
	return nil
}

func (b *wgpuBackendImpl) BeginShadowPass() RenderPass {
	pass := b.frameEncoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "shadow pass",
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            b.shadowView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1.0,
		},
	})
	pass.SetPipeline(b.shadowPipeline)
	return &wgpuRenderPass{backend: b, pass: pass, layout: b.shadowLayout, shadowTarget: true}
}

func (b *wgpuBackendImpl) BeginScenePass() RenderPass {
	color := wgpu.RenderPassColorAttachment{
		LoadOp:     wgpu.LoadOpClear,
		StoreOp:    wgpu.StoreOpStore,
		ClearValue: wgpu.Color{R: 0.1, G: 0.1, B: 0.1, A: 1.0},
	}
	if b.sampleCount > 1 {
		color.View = b.msaaView
		color.ResolveTarget = b.frameView
		color.StoreOp = wgpu.StoreOpDiscard
	} else {
		color.View = b.frameView
	}
	pass := b.frameEncoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label:            "scene pass",
		ColorAttachments: []wgpu.RenderPassColorAttachment{color},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            b.depthView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpDiscard,
			DepthClearValue: 1.0,
		},
	})
	pass.SetPipeline(b.scenePipeline)
	return &wgpuRenderPass{backend: b, pass: pass, layout: b.sceneLayout}
}

func (b *wgpuBackendImpl) EndFrame() (device.Fence, error) {
	commandBuffer, err := b.frameEncoder.Finish(nil)
	if err != nil {
		b.releaseFrame()
		return nil, fmt.Errorf("finish encoder: %w", err)
	}

	index := b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	b.frameEncoder.Release()
	b.frameEncoder = nil

	// The queue owns the frame's transient resources now.
	for _, t := range b.transients {
		t.Release()
	}
	b.transients = b.transients[:0]

	return &wgpuFence{dev: b.dev, queue: b.queue, index: index}, nil
}

func (b *wgpuBackendImpl) Present() error {
	if b.frameSurface == nil {
		return nil
	}
	b.surface.Present()
	b.frameView.Release()
	b.frameView = nil
	b.frameSurface.Release()
	b.frameSurface = nil
	return nil
}

// releaseFrame drops all state of a frame that failed mid-recording.
func (b *wgpuBackendImpl) releaseFrame() {
	if b.frameEncoder != nil {
		b.frameEncoder.Release()
		b.frameEncoder = nil
	}
	if b.frameView != nil {
		b.frameView.Release()
		b.frameView = nil
	}
	if b.frameSurface != nil {
		b.frameSurface.Release()
		b.frameSurface = nil
	}
	for _, t := range b.transients {
		t.Release()
	}
	b.transients = b.transients[:0]
}

func (b *wgpuBackendImpl) releaseTargets() {
	if b.msaaView != nil {
		b.msaaView.Release()
		b.msaaView = nil
	}
	if b.msaaTexture != nil {
		b.msaaTexture.Release()
		b.msaaTexture = nil
	}
	if b.depthView != nil {
		b.depthView.Release()
		b.depthView = nil
	}
	if b.depthTexture != nil {
		b.depthTexture.Release()
		b.depthTexture = nil
	}
}

func (b *wgpuBackendImpl) Release() {
	b.releaseFrame()
	b.releaseTargets()
	if b.scenePipeline != nil {
		b.scenePipeline.Release()
	}
	if b.shadowPipeline != nil {
		b.shadowPipeline.Release()
	}
	if b.sceneLayout != nil {
		b.sceneLayout.Release()
	}
	if b.shadowLayout != nil {
		b.shadowLayout.Release()
	}
	if b.shadowSampler != nil {
		b.shadowSampler.Release()
	}
	if b.shadowView != nil {
		b.shadowView.Release()
	}
	if b.shadowTexture != nil {
		b.shadowTexture.Release()
	}
	if b.queue != nil {
		b.queue.Release()
	}
	if b.dev != nil {
		b.dev.Release()
	}
	if b.surface != nil {
		b.surface.Release()
	}
	if b.adapter != nil {
		b.adapter.Release()
	}
	if b.instance != nil {
		b.instance.Release()
	}
}

// wgpuRenderPass records one pass. The frame's buffer set is bound once as
// group 0; per-command work is limited to vertex/index stream binds and the
// indirect draw itself.
type wgpuRenderPass struct {
	backend      *wgpuBackendImpl
	pass         *wgpu.RenderPassEncoder
	layout       *wgpu.BindGroupLayout
	shadowTarget bool
	ready        bool
}

var _ RenderPass = &wgpuRenderPass{}

func (p *wgpuRenderPass) BindFrameResources(res FrameResources) {
	// An empty frame has no slot buffers yet; there is nothing to bind and
	// no draws will follow.
	if res.Instances == nil || res.Transforms == nil {
		return
	}

	uniform, err := p.backend.dev.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "frame uniforms",
		Size:  frameUniformsSize,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		panic(fmt.Sprintf("renderer: create frame uniforms: %v", err))
	}
	p.backend.queue.WriteBuffer(uniform, 0, marshalFrameUniforms(res))
	p.backend.transients = append(p.backend.transients, uniform)

	entries := []wgpu.BindGroupEntry{
		{Binding: 0, Buffer: uniform, Size: wgpu.WholeSize},
		{Binding: 1, Buffer: res.Instances.(*wgpuBuffer).buf, Size: wgpu.WholeSize},
		{Binding: 2, Buffer: res.Transforms.(*wgpuBuffer).buf, Size: wgpu.WholeSize},
	}
	if !p.shadowTarget {
		if res.Materials == nil {
			return
		}
		entries = append(entries,
			wgpu.BindGroupEntry{Binding: 3, Buffer: res.Materials.(*wgpuBuffer).buf, Size: wgpu.WholeSize},
			wgpu.BindGroupEntry{Binding: 4, TextureView: p.backend.shadowView},
			wgpu.BindGroupEntry{Binding: 5, Sampler: p.backend.shadowSampler},
		)
	}

	group, err := p.backend.dev.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   "frame bind group",
		Layout:  p.layout,
		Entries: entries,
	})
	if err != nil {
		panic(fmt.Sprintf("renderer: create frame bind group: %v", err))
	}
	p.backend.transients = append(p.backend.transients, group)

	p.pass.SetBindGroup(0, group, nil)
	p.ready = true
}

func (p *wgpuRenderPass) Draw(geom CommandGeometry, commands device.Buffer, commandIndex int) {
	if !p.ready || geom.VertexBuffer == nil || geom.IndexBuffer == nil {
		return
	}
	p.pass.SetVertexBuffer(0, geom.VertexBuffer.(*wgpuBuffer).buf, 0, wgpu.WholeSize)
	p.pass.SetIndexBuffer(geom.IndexBuffer.(*wgpuBuffer).buf, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
	p.pass.DrawIndexedIndirect(commands.(*wgpuBuffer).buf, uint64(commandIndex)*model.GPUDrawCommandSize)
}

func (p *wgpuRenderPass) End() {
	p.pass.End()
}

// marshalFrameUniforms packs the per-pass uniform block.
func marshalFrameUniforms(res FrameResources) []byte {
	buf := make([]byte, frameUniformsSize)
	off := 0
	put := func(f float32) {
		binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(f))
		off += 4
	}
	for _, f := range res.ViewProjection {
		put(f)
	}
	for _, f := range res.LightViewProjection {
		put(f)
	}
	for _, f := range res.LightDirection {
		put(f)
	}
	for _, f := range res.LightColor {
		put(f)
	}
	return buf
}
