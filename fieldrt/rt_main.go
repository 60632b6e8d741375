package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"runtime"
	"time"

	"github.com/gekko3d/meshfield"
	"github.com/gekko3d/meshfield/config"
	"github.com/gekko3d/meshfield/fieldrt/rt/app"
	"github.com/gekko3d/meshfield/fieldrt/rt/assets"
	"github.com/gekko3d/meshfield/fieldrt/rt/core"
	"github.com/gekko3d/meshfield/telemetry"

	"github.com/go-gl/glfw/v3.3/glfw"
	"golang.org/x/image/font/gofont/goregular"
)

func init() {
	runtime.LockOSThread()
}

// scene is everything resolved before a window or device exists.
type scene struct {
	mesh    *core.Mesh
	matcap  assets.TextureAsset
	surface *core.ConstraintSurface
	sim     *meshfield.Simulation
}

func main() {
	configPath := flag.String("config", "", "Path to YAML config (defaults are embedded)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	seed := flag.Int64("seed", 0, "Random seed (0 = time-based)")
	maxFrames := flag.Int("max-frames", 0, "Stop after this many simulated frames (0 = unlimited)")
	outputDir := flag.String("output-dir", "", "Directory for frames.csv and config.yaml")
	headless := flag.Bool("headless", false, "Step the simulation without a window")
	flag.Parse()

	logger := meshfield.NewDefaultLogger("meshfield", *debug)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	logger.Infof("seed=%d surface=%s particles=%d", *seed, cfg.Surface.Kind, cfg.Particles.Count)

	sc, err := buildScene(cfg, rand.New(rand.NewSource(*seed)))
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}

	out, err := telemetry.NewOutputManager(*outputDir)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
	defer func() {
		if err := out.Close(); err != nil {
			logger.Errorf("closing output: %v", err)
		}
	}()
	if err := out.WriteConfig(cfg); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}

	if *headless {
		runHeadless(cfg, sc, out, *maxFrames, logger)
		return
	}
	if err := runWindowed(cfg, sc, out, *maxFrames, logger); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
}

func buildScene(cfg *config.Config, rng *rand.Rand) (*scene, error) {
	server := assets.NewServer()

	meshID, err := server.LoadSurface(cfg.Surface.Kind, assets.SurfaceParamsFrom(cfg.Surface))
	if err != nil {
		return nil, fmt.Errorf("building surface: %w", err)
	}
	mesh, _ := server.Mesh(meshID)

	var matcapID assets.AssetId
	if cfg.Render.MatcapPath != "" {
		matcapID, err = server.LoadTexture(cfg.Render.MatcapPath)
	} else {
		matcapID, err = server.CreateMatcap(cfg.Render.MatcapSize)
	}
	if err != nil {
		return nil, fmt.Errorf("building matcap: %w", err)
	}
	matcap, _ := server.Texture(matcapID)

	surface, err := core.NewConstraintSurface(mesh)
	if err != nil {
		return nil, err
	}

	sim := meshfield.NewSimulation(meshfield.SimulationConfigFrom(cfg), surface, surface, rng)
	return &scene{mesh: mesh, matcap: matcap, surface: surface, sim: sim}, nil
}

// runHeadless steps at a fixed 60 Hz and flushes one stats row per full window.
// There is no focus to lose, so the clock always runs.
func runHeadless(cfg *config.Config, sc *scene, out *telemetry.OutputManager, maxFrames int, logger meshfield.Logger) {
	if maxFrames <= 0 {
		maxFrames = cfg.Telemetry.Window * 10
	}
	const frameDt = 1.0 / 60.0

	sc.sim.Clock.FocusGained()
	for i := 0; sc.sim.FrameCount() < maxFrames; i++ {
		sc.sim.Frame(float64(i) * frameDt)
		if f := sc.sim.FrameCount(); f%cfg.Telemetry.Window == 0 {
			writeStats(sc.sim, out, logger)
			logSummary(sc.sim, 0, logger)
		}
	}

	s := sc.sim.Stats.Stats()
	fmt.Printf("frames=%d visible=%d segments_mean=%.1f step_mean_ms=%.3f step_p90_ms=%.3f\n",
		sc.sim.FrameCount(), sc.sim.Field.VisibleCount(), s.SegmentsMean, s.StepMeanMs, s.StepP90Ms)
}

func runWindowed(cfg *config.Config, sc *scene, out *telemetry.OutputManager, maxFrames int, logger *meshfield.DefaultLogger) error {
	if err := glfw.Init(); err != nil {
		return fmt.Errorf("glfw init: %w", err)
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	window, err := glfw.CreateWindow(cfg.Window.Width, cfg.Window.Height, cfg.Window.Title, nil, nil)
	if err != nil {
		return fmt.Errorf("creating window: %w", err)
	}
	defer window.Destroy()

	tr, err := loadFont(cfg)
	if err != nil {
		logger.Warnf("overlay disabled: %v", err)
		tr = nil
	}

	application := app.NewApp(window, cfg, sc.sim, sc.mesh, sc.matcap, tr, logger.Named("app"))
	if err := application.Init(); err != nil {
		return fmt.Errorf("renderer init: %w", err)
	}
	defer application.Release()

	window.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		application.Resize(width, height)
	})
	window.SetFocusCallback(func(w *glfw.Window, focused bool) {
		application.FocusChanged(focused)
	})
	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if key == glfw.KeyEscape && action == glfw.Press {
			w.SetShouldClose(true)
		}
	})
	// Callbacks capture the app; detach them before it is released
	defer func() {
		window.SetFramebufferSizeCallback(nil)
		window.SetFocusCallback(nil)
		window.SetKeyCallback(nil)
	}()

	lastLog := glfw.GetTime()
	lastFlushed := 0
	for !window.ShouldClose() {
		glfw.PollEvents()
		now := glfw.GetTime()
		application.Update(now)
		application.Render()

		frame := sc.sim.FrameCount()
		if frame != lastFlushed && frame%cfg.Telemetry.Window == 0 {
			lastFlushed = frame
			writeStats(sc.sim, out, logger)
		}
		if cfg.Telemetry.LogInterval > 0 && now-lastLog >= cfg.Telemetry.LogInterval {
			lastLog = now
			logSummary(sc.sim, application.FPS, logger)
		}
		if maxFrames > 0 && frame >= maxFrames {
			window.SetShouldClose(true)
		}
	}
	return nil
}

func loadFont(cfg *config.Config) (*core.TextRenderer, error) {
	if !cfg.Render.ShowOverlay {
		return nil, nil
	}
	if cfg.Render.FontPath != "" {
		return core.NewTextRenderer(cfg.Render.FontPath, cfg.Render.FontSize)
	}
	return core.NewTextRendererFromBytes(goregular.TTF, cfg.Render.FontSize)
}

func writeStats(sim *meshfield.Simulation, out *telemetry.OutputManager, logger meshfield.Logger) {
	if err := out.WriteStats(sim.Stats.Stats()); err != nil {
		logger.Errorf("writing stats: %v", err)
	}
}

func logSummary(sim *meshfield.Simulation, fps float64, logger meshfield.Logger) {
	s := sim.Stats.Stats()
	logger.Infof("frame=%d fps=%.1f visible=%d segments=%.0f/%d step=%.3fms (p90 %.3fms)",
		s.WindowEnd, fps, s.VisibleMin, s.SegmentsMean, s.SegmentsMax, s.StepMeanMs, s.StepP90Ms)
}
