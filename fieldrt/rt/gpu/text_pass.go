package gpu

import (
	"fmt"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/meshfield/fieldrt/rt/core"
	"github.com/gekko3d/meshfield/fieldrt/rt/shaders"
)

// TextPass draws HUD text on top of the swapchain pass.
type TextPass struct {
	ctx *Context

	Renderer     *core.TextRenderer
	Pipeline     *wgpu.RenderPipeline
	BindGroup    *wgpu.BindGroup
	VertexBuffer *wgpu.Buffer
	VertexCount  uint32

	atlas     *wgpu.Texture
	atlasView *wgpu.TextureView
	sampler   *wgpu.Sampler
	shader    *wgpu.ShaderModule

	vertices []core.TextVertex
}

// NewTextPass uploads the glyph atlas. The pipeline carries a depth state so it can
// share the pass that draws the surface.
func NewTextPass(ctx *Context, tr *core.TextRenderer, format wgpu.TextureFormat) (*TextPass, error) {
	p := &TextPass{ctx: ctx, Renderer: tr}
	fail := func(err error) (*TextPass, error) {
		p.Release()
		return nil, err
	}

	w, h := tr.AtlasImage.Bounds().Dx(), tr.AtlasImage.Bounds().Dy()
	var err error
	p.atlas, err = ctx.Device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "Text Atlas",
		Size:          wgpu.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1},
		Format:        wgpu.TextureFormatR8Unorm,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension:     wgpu.TextureDimension2D,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return fail(fmt.Errorf("creating text atlas: %w", err))
	}
	ctx.Queue.WriteTexture(p.atlas.AsImageCopy(), tr.AtlasImage.Pix, &wgpu.TextureDataLayout{
		Offset:       0,
		BytesPerRow:  uint32(w),
		RowsPerImage: uint32(h),
	}, &wgpu.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1})

	if p.atlasView, err = p.atlas.CreateView(nil); err != nil {
		return fail(err)
	}
	if p.sampler, err = ctx.createLinearSampler("Text Sampler"); err != nil {
		return fail(err)
	}
	if p.shader, err = ctx.createShader("Text Shader", shaders.TextWGSL); err != nil {
		return fail(fmt.Errorf("compiling text shader: %w", err))
	}

	p.Pipeline, err = ctx.Device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: "Text Pipeline",
		Vertex: wgpu.VertexState{
			Module:     p.shader,
			EntryPoint: "vs_main",
			Buffers: []wgpu.VertexBufferLayout{{
				ArrayStride: uint64(unsafe.Sizeof(core.TextVertex{})),
				StepMode:    wgpu.VertexStepModeVertex,
				Attributes: []wgpu.VertexAttribute{
					{Format: wgpu.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
					{Format: wgpu.VertexFormatFloat32x2, Offset: 8, ShaderLocation: 1},
					{Format: wgpu.VertexFormatFloat32x4, Offset: 16, ShaderLocation: 2},
				},
			}},
		},
		Fragment: &wgpu.FragmentState{
			Module:     p.shader,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format: format,
				Blend: &wgpu.BlendState{
					Color: wgpu.BlendComponent{
						SrcFactor: wgpu.BlendFactorSrcAlpha,
						DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
						Operation: wgpu.BlendOperationAdd,
					},
					Alpha: wgpu.BlendComponent{
						SrcFactor: wgpu.BlendFactorOne,
						DstFactor: wgpu.BlendFactorOne,
						Operation: wgpu.BlendOperationAdd,
					},
				},
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology: wgpu.PrimitiveTopologyTriangleList,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            DepthFormat,
			DepthWriteEnabled: false,
			DepthCompare:      wgpu.CompareFunctionAlways,
			StencilFront:      wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
			StencilBack:       wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fail(fmt.Errorf("creating text pipeline: %w", err))
	}

	p.BindGroup, err = ctx.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout: p.Pipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: p.atlasView},
			{Binding: 1, Sampler: p.sampler},
		},
	})
	if err != nil {
		return fail(fmt.Errorf("creating text bind group: %w", err))
	}
	return p, nil
}

// Update rebuilds the glyph quads, growing the vertex buffer when needed.
func (p *TextPass) Update(items []core.TextItem, screenW, screenH int) error {
	p.vertices = p.Renderer.BuildVertices(p.vertices[:0], items, screenW, screenH)
	p.VertexCount = uint32(len(p.vertices))
	if p.VertexCount == 0 {
		return nil
	}

	data := sliceBytes(p.vertices)
	if p.VertexBuffer == nil || p.VertexBuffer.GetSize() < uint64(len(data)) {
		if p.VertexBuffer != nil {
			p.VertexBuffer.Release()
			p.VertexBuffer = nil
		}
		var err error
		// Headroom so a changing FPS string does not reallocate every frame
		p.VertexBuffer, err = p.ctx.createVertexBuffer("Text VB", uint64(len(data))*2)
		if err != nil {
			p.VertexCount = 0
			return fmt.Errorf("creating text vertex buffer: %w", err)
		}
	}
	p.ctx.Queue.WriteBuffer(p.VertexBuffer, 0, data)
	return nil
}

func (p *TextPass) Draw(pass *wgpu.RenderPassEncoder) {
	if p.VertexCount == 0 || p.VertexBuffer == nil {
		return
	}
	pass.SetPipeline(p.Pipeline)
	pass.SetBindGroup(0, p.BindGroup, nil)
	pass.SetVertexBuffer(0, p.VertexBuffer, 0, p.VertexBuffer.GetSize())
	pass.Draw(p.VertexCount, 1, 0, 0)
}

func (p *TextPass) Release() {
	if p.VertexBuffer != nil {
		p.VertexBuffer.Release()
		p.VertexBuffer = nil
	}
	if p.BindGroup != nil {
		p.BindGroup.Release()
		p.BindGroup = nil
	}
	if p.Pipeline != nil {
		p.Pipeline.Release()
		p.Pipeline = nil
	}
	if p.shader != nil {
		p.shader.Release()
		p.shader = nil
	}
	if p.sampler != nil {
		p.sampler.Release()
		p.sampler = nil
	}
	if p.atlasView != nil {
		p.atlasView.Release()
		p.atlasView = nil
	}
	if p.atlas != nil {
		p.atlas.Release()
		p.atlas = nil
	}
}
