package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/meshfield/fieldrt/rt/core"
	"github.com/gekko3d/meshfield/fieldrt/rt/shaders"
	"github.com/go-gl/mathgl/mgl32"
)

const TargetFormat = wgpu.TextureFormatRGBA8Unorm

const cameraUniformSize = 64

// FrameBufferWriter uploads the particle and line buffers and renders them into
// an offscreen texture. The texture keeps the size it was created with.
type FrameBufferWriter struct {
	ctx *Context

	Width, Height uint32

	target     *wgpu.Texture
	targetView *wgpu.TextureView

	pointPositions *wgpu.Buffer
	pointColors    *wgpu.Buffer
	linePositions  *wgpu.Buffer
	lineColors     *wgpu.Buffer
	cameraBuffer   *wgpu.Buffer

	shader          *wgpu.ShaderModule
	bindGroupLayout *wgpu.BindGroupLayout
	pipelineLayout  *wgpu.PipelineLayout
	pointPipeline   *wgpu.RenderPipeline
	linePipeline    *wgpu.RenderPipeline
	bindGroup       *wgpu.BindGroup

	pointCapacity uint32 // vertices
	lineCapacity  uint32 // vertices, two per segment
	pointCount    uint32
	lineCount     uint32
}

// NewFrameBufferWriter sizes the vertex buffers for points particles and lineSegments
// segments. Every handle created so far is released if a later step fails.
func NewFrameBufferWriter(ctx *Context, width, height uint32, points, lineSegments int) (*FrameBufferWriter, error) {
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("offscreen target %dx%d must not be empty", width, height)
	}

	w := &FrameBufferWriter{
		ctx:           ctx,
		Width:         width,
		Height:        height,
		pointCapacity: uint32(points),
		lineCapacity:  uint32(lineSegments * 2),
	}
	fail := func(err error) (*FrameBufferWriter, error) {
		w.Release()
		return nil, err
	}

	var err error

	w.target, err = ctx.Device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "Field Target",
		Size:          wgpu.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        TargetFormat,
		Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding,
	})
	if err != nil {
		return fail(fmt.Errorf("creating offscreen target: %w", err))
	}
	w.targetView, err = w.target.CreateView(nil)
	if err != nil {
		return fail(fmt.Errorf("creating offscreen view: %w", err))
	}

	vec3Bytes := uint64(3 * 4)
	if w.pointPositions, err = ctx.createVertexBuffer("Point Positions", uint64(w.pointCapacity)*vec3Bytes); err != nil {
		return fail(err)
	}
	if w.pointColors, err = ctx.createVertexBuffer("Point Colors", uint64(w.pointCapacity)*vec3Bytes); err != nil {
		return fail(err)
	}
	if w.linePositions, err = ctx.createVertexBuffer("Line Positions", uint64(w.lineCapacity)*vec3Bytes); err != nil {
		return fail(err)
	}
	if w.lineColors, err = ctx.createVertexBuffer("Line Colors", uint64(w.lineCapacity)*vec3Bytes); err != nil {
		return fail(err)
	}

	w.cameraBuffer, err = ctx.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Field Camera",
		Size:  cameraUniformSize,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fail(err)
	}

	if w.shader, err = ctx.createShader("Particles Shader", shaders.ParticlesWGSL); err != nil {
		return fail(fmt.Errorf("compiling particle shader: %w", err))
	}

	w.bindGroupLayout, err = ctx.Device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Field Camera BGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeUniform,
					MinBindingSize: cameraUniformSize,
				},
			},
		},
	})
	if err != nil {
		return fail(err)
	}
	w.pipelineLayout, err = ctx.Device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		BindGroupLayouts: []*wgpu.BindGroupLayout{w.bindGroupLayout},
	})
	if err != nil {
		return fail(err)
	}

	if w.pointPipeline, err = w.createPipeline("Point Pipeline", wgpu.PrimitiveTopologyPointList); err != nil {
		return fail(fmt.Errorf("creating point pipeline: %w", err))
	}
	if w.linePipeline, err = w.createPipeline("Line Pipeline", wgpu.PrimitiveTopologyLineList); err != nil {
		return fail(fmt.Errorf("creating line pipeline: %w", err))
	}

	w.bindGroup, err = ctx.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Field Camera BG",
		Layout: w.bindGroupLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: w.cameraBuffer, Size: cameraUniformSize},
		},
	})
	if err != nil {
		return fail(err)
	}

	return w, nil
}

func (w *FrameBufferWriter) createPipeline(label string, topology wgpu.PrimitiveTopology) (*wgpu.RenderPipeline, error) {
	vec3Layout := func(location uint32) wgpu.VertexBufferLayout {
		return wgpu.VertexBufferLayout{
			ArrayStride: 3 * 4,
			StepMode:    wgpu.VertexStepModeVertex,
			Attributes: []wgpu.VertexAttribute{
				{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: location},
			},
		}
	}

	return w.ctx.Device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  label,
		Layout: w.pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     w.shader,
			EntryPoint: "vs_main",
			Buffers:    []wgpu.VertexBufferLayout{vec3Layout(0), vec3Layout(1)},
		},
		Fragment: &wgpu.FragmentState{
			Module:     w.shader,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{
				{
					Format:    TargetFormat,
					WriteMask: wgpu.ColorWriteMaskAll,
					// Additive: overlapping lines brighten
					Blend: &wgpu.BlendState{
						Color: wgpu.BlendComponent{
							Operation: wgpu.BlendOperationAdd,
							SrcFactor: wgpu.BlendFactorOne,
							DstFactor: wgpu.BlendFactorOne,
						},
						Alpha: wgpu.BlendComponent{
							Operation: wgpu.BlendOperationAdd,
							SrcFactor: wgpu.BlendFactorOne,
							DstFactor: wgpu.BlendFactorOne,
						},
					},
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  topology,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
}

// Write uploads both geometries. Positions and colors are rewritten every frame.
func (w *FrameBufferWriter) Write(field *core.ParticleField, lines *core.LineMesh) {
	points := min(uint32(field.Count()), w.pointCapacity)
	if points > 0 {
		w.ctx.Queue.WriteBuffer(w.pointPositions, 0, float32Bytes(field.Positions[:points*3]))
		w.ctx.Queue.WriteBuffer(w.pointColors, 0, float32Bytes(field.Colors[:points*3]))
	}
	w.pointCount = points

	vertices := min(uint32(len(lines.Positions)/3), w.lineCapacity)
	if vertices > 0 {
		w.ctx.Queue.WriteBuffer(w.linePositions, 0, float32Bytes(lines.Positions[:vertices*3]))
		w.ctx.Queue.WriteBuffer(w.lineColors, 0, float32Bytes(lines.Colors[:vertices*3]))
	}
	w.lineCount = min(uint32(lines.Count()*2), vertices)
}

// Render clears the offscreen target and draws points then lines into it.
// Ending the pass hands the encoder back for the swapchain pass.
func (w *FrameBufferWriter) Render(encoder *wgpu.CommandEncoder, viewProj mgl32.Mat4) error {
	w.ctx.Queue.WriteBuffer(w.cameraBuffer, 0, structBytes(&viewProj))

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "Field Pass",
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       w.targetView,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{R: 0, G: 0, B: 0, A: 0},
		}},
	})
	defer pass.Release()

	if w.pointCount > 0 {
		pass.SetPipeline(w.pointPipeline)
		pass.SetBindGroup(0, w.bindGroup, nil)
		pass.SetVertexBuffer(0, w.pointPositions, 0, w.pointPositions.GetSize())
		pass.SetVertexBuffer(1, w.pointColors, 0, w.pointColors.GetSize())
		pass.Draw(w.pointCount, 1, 0, 0)
	}
	if w.lineCount > 0 {
		pass.SetPipeline(w.linePipeline)
		pass.SetBindGroup(0, w.bindGroup, nil)
		pass.SetVertexBuffer(0, w.linePositions, 0, w.linePositions.GetSize())
		pass.SetVertexBuffer(1, w.lineColors, 0, w.lineColors.GetSize())
		pass.Draw(w.lineCount, 1, 0, 0)
	}

	if err := pass.End(); err != nil {
		return fmt.Errorf("field pass: %w", err)
	}
	return nil
}

// TargetView is the offscreen color texture the surface shader samples.
func (w *FrameBufferWriter) TargetView() *wgpu.TextureView {
	return w.targetView
}

func (w *FrameBufferWriter) Counts() (points, lineVertices uint32) {
	return w.pointCount, w.lineCount
}

func (w *FrameBufferWriter) Release() {
	if w.bindGroup != nil {
		w.bindGroup.Release()
		w.bindGroup = nil
	}
	if w.linePipeline != nil {
		w.linePipeline.Release()
		w.linePipeline = nil
	}
	if w.pointPipeline != nil {
		w.pointPipeline.Release()
		w.pointPipeline = nil
	}
	if w.pipelineLayout != nil {
		w.pipelineLayout.Release()
		w.pipelineLayout = nil
	}
	if w.bindGroupLayout != nil {
		w.bindGroupLayout.Release()
		w.bindGroupLayout = nil
	}
	if w.shader != nil {
		w.shader.Release()
		w.shader = nil
	}
	for _, b := range []**wgpu.Buffer{&w.cameraBuffer, &w.lineColors, &w.linePositions, &w.pointColors, &w.pointPositions} {
		if *b != nil {
			(*b).Release()
			*b = nil
		}
	}
	if w.targetView != nil {
		w.targetView.Release()
		w.targetView = nil
	}
	if w.target != nil {
		w.target.Release()
		w.target = nil
	}
}
