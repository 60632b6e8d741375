package app

import (
	"fmt"
	"slices"

	"github.com/gekko3d/meshfield"
	"github.com/gekko3d/meshfield/config"
	"github.com/gekko3d/meshfield/fieldrt/rt/assets"
	"github.com/gekko3d/meshfield/fieldrt/rt/core"
	"github.com/gekko3d/meshfield/fieldrt/rt/gpu"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
)

type App struct {
	Window   *glfw.Window
	Instance *wgpu.Instance
	Adapter  *wgpu.Adapter
	Device   *wgpu.Device
	Queue    *wgpu.Queue
	Surface  *wgpu.Surface
	Config   *wgpu.SurfaceConfiguration

	GPU         *gpu.Context
	Writer      *gpu.FrameBufferWriter
	SurfacePass *gpu.SurfacePass
	TextPass    *gpu.TextPass

	Camera   *core.CameraState
	Sim      *meshfield.Simulation
	Logger   meshfield.Logger
	Profiler *Profiler

	TextRenderer *core.TextRenderer
	TextItems    []core.TextItem

	cfg    *config.Config
	mesh   *core.Mesh
	matcap assets.TextureAsset

	viewProj   mgl32.Mat4
	view       mgl32.Mat4
	lastUpdate float64

	FrameCount int
	FPS        float64
	FPSTime    float64
}

// NewApp wires a window to a simulation. GPU resources are created by Init.
// tr may be nil to disable the overlay.
func NewApp(window *glfw.Window, cfg *config.Config, sim *meshfield.Simulation, mesh *core.Mesh, matcap assets.TextureAsset, tr *core.TextRenderer, logger meshfield.Logger) *App {
	camera := core.NewCameraState()
	camera.Distance = float32(cfg.Camera.Distance)
	camera.Pitch = float32(cfg.Camera.Pitch)
	camera.FovDegrees = float32(cfg.Camera.FovDegrees)
	camera.OrbitSpeed = float32(cfg.Camera.OrbitSpeed)

	return &App{
		Window:       window,
		Camera:       camera,
		Sim:          sim,
		Logger:       meshfield.OrNop(logger),
		Profiler:     NewProfiler(),
		TextRenderer: tr,
		cfg:          cfg,
		mesh:         mesh,
		matcap:       matcap,
	}
}

// Init creates the device, the swapchain and every render pass.
// On failure everything created so far is released.
func (a *App) Init() (err error) {
	defer func() {
		if err != nil {
			a.Release()
		}
	}()

	a.Instance = wgpu.CreateInstance(nil)
	a.Surface = a.Instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(a.Window))

	a.Adapter, err = a.Instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: a.Surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return fmt.Errorf("requesting adapter: %w", err)
	}
	a.Device, err = a.Adapter.RequestDevice(nil)
	if err != nil {
		return fmt.Errorf("requesting device: %w", err)
	}
	a.Queue = a.Device.GetQueue()
	a.GPU = &gpu.Context{Device: a.Device, Queue: a.Queue}

	width, height := a.Window.GetFramebufferSize()
	if width <= 0 || height <= 0 {
		width, height = a.cfg.Window.Width, a.cfg.Window.Height
	}
	caps := a.Surface.GetCapabilities(a.Adapter)
	format := caps.Formats[0]

	presentMode := wgpu.PresentModeFifo
	if !a.cfg.Window.VSync && slices.Contains(caps.PresentModes, wgpu.PresentModeImmediate) {
		presentMode = wgpu.PresentModeImmediate
	}
	a.Config = &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      format,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: presentMode,
		AlphaMode:   caps.AlphaModes[0],
	}
	a.Surface.Configure(a.Adapter, a.Device, a.Config)
	a.Logger.Debugf("surface %dx%d format=%v present=%v", width, height, format, presentMode)

	// The offscreen target keeps the initial size for the whole run
	a.Writer, err = gpu.NewFrameBufferWriter(a.GPU, uint32(width), uint32(height), a.Sim.Field.Count(), a.Sim.Lines.Capacity())
	if err != nil {
		return err
	}
	a.SurfacePass, err = gpu.NewSurfacePass(a.GPU, format, uint32(width), uint32(height), a.mesh, a.matcap, a.Writer.TargetView())
	if err != nil {
		return err
	}
	if a.TextRenderer != nil {
		a.TextPass, err = gpu.NewTextPass(a.GPU, a.TextRenderer, format)
		if err != nil {
			return err
		}
	}

	a.Logger.Infof("renderer ready: %d particles, %d line slots, %d surface triangles",
		a.Sim.Field.Count(), a.Sim.Lines.Capacity(), a.mesh.TriangleCount())
	return nil
}

// Resize reconfigures the swapchain and depth buffer. The offscreen target is left alone.
func (a *App) Resize(w, h int) {
	if w <= 0 || h <= 0 || a.Config == nil {
		return
	}
	a.Config.Width = uint32(w)
	a.Config.Height = uint32(h)
	a.Surface.Configure(a.Adapter, a.Device, a.Config)
	if err := a.SurfacePass.Resize(uint32(w), uint32(h)); err != nil {
		a.Logger.Errorf("resize: %v", err)
	}
}

// FocusChanged gates the simulation clock.
func (a *App) FocusChanged(focused bool) {
	if focused {
		a.Sim.Clock.FocusGained()
	} else {
		a.Sim.Clock.FocusLost()
	}
	a.Logger.Debugf("focus=%v clock=%s", focused, a.Sim.Clock.State())
}

// Update advances the simulation and camera to now (seconds) and rebuilds the overlay.
func (a *App) Update(now float64) {
	a.Profiler.BeginScope("step")
	stepped := a.Sim.Frame(now)
	a.Profiler.EndScope("step")

	if stepped {
		a.Camera.Advance(a.Sim.LastDt())
	}
	aspect := float32(a.Config.Width) / float32(a.Config.Height)
	a.view = a.Camera.GetViewMatrix()
	a.viewProj = a.Camera.ViewProj(aspect)

	if a.lastUpdate > 0 {
		a.FrameCount++
		a.FPSTime += now - a.lastUpdate
		if a.FPSTime >= 1.0 {
			a.FPS = float64(a.FrameCount) / a.FPSTime
			a.FrameCount = 0
			a.FPSTime = 0
		}
	}
	a.lastUpdate = now

	a.Profiler.SetCount("particles", a.Sim.Field.VisibleCount())
	a.Profiler.SetCount("segments", a.Sim.Lines.Count())
	a.updateOverlay()
}

func (a *App) updateOverlay() {
	a.ClearText()
	if a.TextPass == nil || !a.cfg.Render.ShowOverlay {
		return
	}

	yellow := [4]float32{1, 1, 0, 1}
	grey := [4]float32{0.8, 0.8, 0.8, 1}
	lh := a.TextRenderer.LineHeight(1)
	y := float32(10)

	a.DrawText(fmt.Sprintf("FPS %.1f", a.FPS), 10, y, 1, yellow)
	if a.Sim.Clock.Paused() {
		label := "PAUSED"
		x := float32(a.Config.Width) - a.TextRenderer.Measure(label, 1.5) - 10
		a.DrawText(label, x, y, 1.5, [4]float32{1, 0.4, 0.3, 1})
	}
	for _, line := range a.Profiler.Lines() {
		y += lh
		a.DrawText(line, 10, y, 1, grey)
	}

	if err := a.TextPass.Update(a.TextItems, int(a.Config.Width), int(a.Config.Height)); err != nil {
		a.Logger.Errorf("overlay: %v", err)
	}
}

func (a *App) ClearText() {
	a.TextItems = a.TextItems[:0]
}

func (a *App) DrawText(text string, x, y float32, scale float32, color [4]float32) {
	a.TextItems = append(a.TextItems, core.TextItem{
		Text:     text,
		Position: [2]float32{x, y},
		Scale:    scale,
		Color:    color,
	})
}

// Render draws the field offscreen, then the shaded surface and overlay to the swapchain.
func (a *App) Render() {
	a.Profiler.BeginScope("render")
	defer a.Profiler.EndScope("render")

	nextTexture, err := a.Surface.GetCurrentTexture()
	if err != nil {
		a.Logger.Errorf("GetCurrentTexture failed: %v", err)
		return
	}
	defer nextTexture.Release()

	view, err := nextTexture.CreateView(nil)
	if err != nil {
		a.Logger.Errorf("CreateView failed: %v", err)
		return
	}
	defer view.Release()

	encoder, err := a.Device.CreateCommandEncoder(nil)
	if err != nil {
		a.Logger.Errorf("CreateCommandEncoder failed: %v", err)
		return
	}
	defer encoder.Release()

	a.Writer.Write(a.Sim.Field, a.Sim.Lines)
	if err := a.Writer.Render(encoder, a.viewProj); err != nil {
		a.Logger.Errorf("%v", err)
	}

	a.SurfacePass.Update(gpu.SurfaceUniforms{
		ViewProj: a.viewProj,
		View:     a.view,
		Params: [4]float32{
			float32(a.Config.Width),
			float32(a.Config.Height),
			float32(a.cfg.Render.FieldGain),
			float32(a.cfg.Render.MatcapGain),
		},
	})

	cc := a.cfg.Render.ClearColor
	rPass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "Surface Pass",
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{R: cc[0], G: cc[1], B: cc[2], A: cc[3]},
		}},
		DepthStencilAttachment: a.SurfacePass.DepthAttachment(),
	})
	a.SurfacePass.Draw(rPass)
	if a.TextPass != nil && len(a.TextItems) > 0 {
		a.TextPass.Draw(rPass)
	}
	err = rPass.End()
	rPass.Release()
	if err != nil {
		a.Logger.Errorf("surface pass End failed: %v", err)
	}

	cmd, err := encoder.Finish(nil)
	if err != nil {
		a.Logger.Errorf("encoder Finish failed: %v", err)
		return
	}
	defer cmd.Release()
	a.Queue.Submit(cmd)
	a.Surface.Present()
}

// Release tears down in reverse creation order. Safe after a failed Init.
func (a *App) Release() {
	if a.TextPass != nil {
		a.TextPass.Release()
		a.TextPass = nil
	}
	if a.SurfacePass != nil {
		a.SurfacePass.Release()
		a.SurfacePass = nil
	}
	if a.Writer != nil {
		a.Writer.Release()
		a.Writer = nil
	}
	if a.Queue != nil {
		a.Queue.Release()
		a.Queue = nil
	}
	if a.Device != nil {
		a.Device.Release()
		a.Device = nil
	}
	if a.Adapter != nil {
		a.Adapter.Release()
		a.Adapter = nil
	}
	if a.Surface != nil {
		a.Surface.Release()
		a.Surface = nil
	}
	if a.Instance != nil {
		a.Instance.Release()
		a.Instance = nil
	}
	a.GPU = nil
	a.Config = nil
}
