package engine

import (
	"time"

	"github.com/spaghettifunk/lumen/engine/config"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/platform"
	"github.com/spaghettifunk/lumen/engine/renderer/vulkan"
)

// Scene is what an application renders. Initialize runs once after
// the renderer is up, Update and Render run every frame.
type Scene interface {
	Initialize(r *vulkan.VulkanRenderer) error
	Update(deltaTime float64) error
	Render(r *vulkan.VulkanRenderer) error
	Shutdown(r *vulkan.VulkanRenderer)
}

// Application owns the window, the renderer and the frame loop.
type Application struct {
	cfg      *config.Config
	platform *platform.Platform
	renderer *vulkan.VulkanRenderer
	watcher  *config.Watcher
	scene    Scene
	clock    *core.Clock

	running bool
}

func New(configPath string, scene Scene) (*Application, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	p, err := platform.New()
	if err != nil {
		return nil, err
	}

	app := &Application{
		cfg:      cfg,
		platform: p,
		scene:    scene,
		clock:    core.NewClock(),
	}

	// A missing config file still runs on defaults, so a watcher that
	// cannot attach is not fatal either.
	if watcher, err := config.NewWatcher(configPath); err == nil {
		app.watcher = watcher
	} else {
		core.LogWarn("config watcher disabled: %s", err.Error())
	}
	return app, nil
}

func (a *Application) Initialize() error {
	if err := core.MetricsInitialize(); err != nil {
		return err
	}
	if err := a.platform.Startup(a.cfg.Window.Title, a.cfg.Window.Width, a.cfg.Window.Height); err != nil {
		return err
	}

	renderer, err := vulkan.New(a.platform, a.cfg)
	if err != nil {
		return err
	}
	if err := renderer.Initialize(); err != nil {
		return err
	}
	a.renderer = renderer

	// Presenting while minimized is pointless; the renderer drops
	// draws until the window comes back.
	a.platform.OnIconify(func(iconified bool) {
		renderer.SetActive(!iconified)
	})

	info := renderer.RendererInfo()
	core.LogInfo("Renderer: %s %s on %s (%s)", info.Name, info.Version, info.Device, info.Vendor)
	caps := renderer.Capabilities()
	core.LogDebug("Device limits: max texture %d, point size %.1f-%.1f", caps.MaxTextureSize, caps.PointSizeMin, caps.PointSizeMax)

	if err := a.scene.Initialize(a.renderer); err != nil {
		return err
	}

	a.running = true
	return nil
}

// Run drives the frame loop until the window closes or Shutdown is
// called from another goroutine.
func (a *Application) Run() error {
	a.clock.Start()

	for a.running && !a.platform.ShouldClose() {
		a.platform.PumpMessages()
		deltaTime := a.clock.Delta()

		a.applyConfigChanges()

		if err := a.scene.Update(deltaTime); err != nil {
			return err
		}
		if err := a.scene.Render(a.renderer); err != nil {
			return err
		}
		if err := a.renderer.Present(); err != nil {
			return err
		}

		if !a.renderer.Active() {
			// Nothing is being presented while minimized; avoid
			// spinning.
			time.Sleep(50 * time.Millisecond)
		}

		stats := a.renderer.APIStats()
		core.MetricsRecordDraws(stats.DrawCalls, stats.DrawCallsBatched, stats.ShaderSwitches)
		core.MetricsUpdate(deltaTime)
	}
	return a.shutdownInternal()
}

// applyConfigChanges picks up edits to the config file. Only settings
// that can change at runtime are applied; the rest take effect on the
// next start.
func (a *Application) applyConfigChanges() {
	if a.watcher == nil {
		return
	}
	select {
	case cfg, ok := <-a.watcher.Changes:
		if !ok {
			a.watcher = nil
			return
		}
		if mode, err := cfg.VSyncMode(); err == nil {
			a.renderer.SetVSync(mode)
		}
		a.cfg.Renderer.VSync = cfg.Renderer.VSync
	default:
	}
}

// Shutdown stops the frame loop. Safe to call from a signal handler
// goroutine.
func (a *Application) Shutdown() error {
	a.running = false
	return nil
}

func (a *Application) shutdownInternal() error {
	if a.watcher != nil {
		a.watcher.Close()
		a.watcher = nil
	}
	if a.renderer != nil {
		a.scene.Shutdown(a.renderer)
		a.renderer.Shutdown()
		a.renderer = nil
	}
	fps, frameTime := core.MetricsFrame()
	drawCalls, batched, _ := core.MetricsDraws()
	core.LogInfo("Exiting at %.0f fps, %.2fms avg frame time, %d draw calls (%d batched) in the last frame.",
		fps, frameTime, drawCalls, batched)
	return a.platform.Shutdown()
}
