package gpu

import (
	"fmt"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/meshfield/fieldrt/rt/assets"
	"github.com/gekko3d/meshfield/fieldrt/rt/core"
	"github.com/gekko3d/meshfield/fieldrt/rt/shaders"
	"github.com/go-gl/mathgl/mgl32"
)

// SurfaceVertex matches the WGSL VertexInput of surface.wgsl.
type SurfaceVertex struct {
	Pos    [3]float32
	Normal [3]float32
}

// SurfaceUniforms matches the WGSL Uniforms of surface.wgsl.
type SurfaceUniforms struct {
	ViewProj mgl32.Mat4
	View     mgl32.Mat4
	Params   [4]float32 // framebuffer w, h, field gain, matcap gain
}

// SurfacePass draws the constraint mesh to the swapchain, shaded by a matcap and
// the particle field texture. Its depth texture follows the framebuffer size.
type SurfacePass struct {
	ctx *Context

	Pipeline      *wgpu.RenderPipeline
	VertexBuffer  *wgpu.Buffer
	IndexBuffer   *wgpu.Buffer
	IndexCount    uint32
	UniformBuffer *wgpu.Buffer
	UniformBG     *wgpu.BindGroup
	TextureBG     *wgpu.BindGroup

	matcap     *wgpu.Texture
	matcapView *wgpu.TextureView
	sampler    *wgpu.Sampler
	shader     *wgpu.ShaderModule

	depth     *wgpu.Texture
	DepthView *wgpu.TextureView
}

func SurfaceVertices(mesh *core.Mesh) []SurfaceVertex {
	vertices := make([]SurfaceVertex, len(mesh.Positions))
	for i, p := range mesh.Positions {
		vertices[i].Pos = p
		if i < len(mesh.Normals) {
			vertices[i].Normal = mesh.Normals[i]
		} else {
			vertices[i].Normal = p.Normalize()
		}
	}
	return vertices
}

// NewSurfacePass uploads the mesh and matcap and binds fieldView, which is never recreated.
func NewSurfacePass(ctx *Context, format wgpu.TextureFormat, width, height uint32, mesh *core.Mesh, matcap assets.TextureAsset, fieldView *wgpu.TextureView) (*SurfacePass, error) {
	p := &SurfacePass{ctx: ctx}
	fail := func(err error) (*SurfacePass, error) {
		p.Release()
		return nil, err
	}

	var err error
	if p.shader, err = ctx.createShader("Surface Shader", shaders.SurfaceWGSL); err != nil {
		return fail(fmt.Errorf("compiling surface shader: %w", err))
	}

	p.Pipeline, err = ctx.Device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: "Surface Pipeline",
		Vertex: wgpu.VertexState{
			Module:     p.shader,
			EntryPoint: "vs_main",
			Buffers: []wgpu.VertexBufferLayout{{
				ArrayStride: 6 * 4,
				StepMode:    wgpu.VertexStepModeVertex,
				Attributes: []wgpu.VertexAttribute{
					{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
					{Format: wgpu.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1},
				},
			}},
		},
		Fragment: &wgpu.FragmentState{
			Module:     p.shader,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format:    format,
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeBack,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            DepthFormat,
			DepthWriteEnabled: true,
			DepthCompare:      wgpu.CompareFunctionLess,
			StencilFront:      wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
			StencilBack:       wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fail(fmt.Errorf("creating surface pipeline: %w", err))
	}

	// Geometry
	vertices := SurfaceVertices(mesh)
	vBytes := sliceBytes(vertices)
	if p.VertexBuffer, err = ctx.createVertexBuffer("Surface VB", uint64(len(vBytes))); err != nil {
		return fail(err)
	}
	ctx.Queue.WriteBuffer(p.VertexBuffer, 0, vBytes)

	iBytes := sliceBytes(mesh.Indices)
	p.IndexBuffer, err = ctx.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Surface IB",
		Size:  bufferSize(uint64(len(iBytes))),
		Usage: wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fail(err)
	}
	ctx.Queue.WriteBuffer(p.IndexBuffer, 0, iBytes)
	p.IndexCount = uint32(len(mesh.Indices))

	p.UniformBuffer, err = ctx.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Surface Uniforms",
		Size:  uint64(unsafe.Sizeof(SurfaceUniforms{})),
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fail(err)
	}

	// Matcap
	if matcap.Format != assets.TextureFormatRGBA8Unorm {
		return fail(fmt.Errorf("matcap must be RGBA8, got format %#x", matcap.Format))
	}
	p.matcap, err = ctx.Device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "Matcap",
		Size:          wgpu.Extent3D{Width: matcap.Width, Height: matcap.Height, DepthOrArrayLayers: 1},
		Format:        wgpu.TextureFormatRGBA8Unorm,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension:     wgpu.TextureDimension2D,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return fail(fmt.Errorf("creating matcap texture: %w", err))
	}
	ctx.Queue.WriteTexture(p.matcap.AsImageCopy(), matcap.Texels, &wgpu.TextureDataLayout{
		Offset:       0,
		BytesPerRow:  matcap.Width * 4,
		RowsPerImage: matcap.Height,
	}, &wgpu.Extent3D{Width: matcap.Width, Height: matcap.Height, DepthOrArrayLayers: 1})
	if p.matcapView, err = p.matcap.CreateView(nil); err != nil {
		return fail(err)
	}
	if p.sampler, err = ctx.createLinearSampler("Surface Sampler"); err != nil {
		return fail(err)
	}

	// Bind groups
	p.UniformBG, err = ctx.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Surface Uniform BG",
		Layout: p.Pipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: p.UniformBuffer, Size: p.UniformBuffer.GetSize()},
		},
	})
	if err != nil {
		return fail(err)
	}
	p.TextureBG, err = ctx.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Surface Texture BG",
		Layout: p.Pipeline.GetBindGroupLayout(1),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: p.matcapView},
			{Binding: 1, TextureView: fieldView},
			{Binding: 2, Sampler: p.sampler},
		},
	})
	if err != nil {
		return fail(err)
	}

	if err := p.Resize(width, height); err != nil {
		return fail(err)
	}
	return p, nil
}

// Resize recreates the depth texture. Zero sizes (minimized window) are ignored.
func (p *SurfacePass) Resize(width, height uint32) error {
	if width == 0 || height == 0 {
		return nil
	}
	p.releaseDepth()

	var err error
	p.depth, err = p.ctx.Device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "Surface Depth",
		Size:          wgpu.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        DepthFormat,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return fmt.Errorf("creating depth texture: %w", err)
	}
	p.DepthView, err = p.depth.CreateView(nil)
	if err != nil {
		return fmt.Errorf("creating depth view: %w", err)
	}
	return nil
}

// DepthAttachment clears depth for the swapchain pass.
func (p *SurfacePass) DepthAttachment() *wgpu.RenderPassDepthStencilAttachment {
	return &wgpu.RenderPassDepthStencilAttachment{
		View:            p.DepthView,
		DepthLoadOp:     wgpu.LoadOpClear,
		DepthStoreOp:    wgpu.StoreOpStore,
		DepthClearValue: 1,
	}
}

func (p *SurfacePass) Update(u SurfaceUniforms) {
	p.ctx.Queue.WriteBuffer(p.UniformBuffer, 0, structBytes(&u))
}

func (p *SurfacePass) Draw(pass *wgpu.RenderPassEncoder) {
	if p.IndexCount == 0 {
		return
	}
	pass.SetPipeline(p.Pipeline)
	pass.SetBindGroup(0, p.UniformBG, nil)
	pass.SetBindGroup(1, p.TextureBG, nil)
	pass.SetVertexBuffer(0, p.VertexBuffer, 0, p.VertexBuffer.GetSize())
	pass.SetIndexBuffer(p.IndexBuffer, wgpu.IndexFormatUint32, 0, p.IndexBuffer.GetSize())
	pass.DrawIndexed(p.IndexCount, 1, 0, 0, 0)
}

func (p *SurfacePass) releaseDepth() {
	if p.DepthView != nil {
		p.DepthView.Release()
		p.DepthView = nil
	}
	if p.depth != nil {
		p.depth.Release()
		p.depth = nil
	}
}

func (p *SurfacePass) Release() {
	p.releaseDepth()
	if p.TextureBG != nil {
		p.TextureBG.Release()
		p.TextureBG = nil
	}
	if p.UniformBG != nil {
		p.UniformBG.Release()
		p.UniformBG = nil
	}
	if p.sampler != nil {
		p.sampler.Release()
		p.sampler = nil
	}
	if p.matcapView != nil {
		p.matcapView.Release()
		p.matcapView = nil
	}
	if p.matcap != nil {
		p.matcap.Release()
		p.matcap = nil
	}
	for _, b := range []**wgpu.Buffer{&p.UniformBuffer, &p.IndexBuffer, &p.VertexBuffer} {
		if *b != nil {
			(*b).Release()
			*b = nil
		}
	}
	if p.Pipeline != nil {
		p.Pipeline.Release()
		p.Pipeline = nil
	}
	if p.shader != nil {
		p.shader.Release()
		p.shader = nil
	}
}
