package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/lumen/engine/core"
)

// VSyncMode selects how presentation is paced. The numeric values
// match the convention used by the window system (-1 adaptive,
// 0 off, 1 on).
type VSyncMode int

const (
	VSyncAdaptive VSyncMode = -1
	VSyncOff      VSyncMode = 0
	VSyncOn       VSyncMode = 1
)

// Config holds everything the renderer needs to know before the
// first frame. Loaded from a TOML file, every field has a usable
// default so a missing file is not an error.
type Config struct {
	Window   WindowConfig   `toml:"window"`
	Renderer RendererConfig `toml:"renderer"`
}

type WindowConfig struct {
	Title  string `toml:"title"`
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
}

type RendererConfig struct {
	// VSync is "off", "on" or "adaptive".
	VSync string `toml:"vsync"`
	// GammaCorrect selects an sRGB default texture format when true.
	GammaCorrect bool `toml:"gamma_correct"`
	// MSAA is the requested sample count. Only 1 is supported.
	MSAA int `toml:"msaa"`
	// Validation enables the Vulkan validation layer.
	Validation bool `toml:"validation"`
}

func defaults() *Config {
	return &Config{
		Window: WindowConfig{
			Title:  "Lumen",
			Width:  1280,
			Height: 720,
		},
		Renderer: RendererConfig{
			VSync: "on",
			MSAA:  1,
		},
	}
}

// Load reads the TOML file at path. A missing file yields the
// defaults; a malformed file or an invalid value is an error.
func Load(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			core.LogWarn("config file %s not found, using defaults", path)
			return cfg, nil
		}
		return nil, err
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the loaded values. MSAA other than 1 is rejected
// here instead of surfacing later as a device error.
func (c *Config) Validate() error {
	if _, err := c.VSyncMode(); err != nil {
		return err
	}
	if c.Renderer.MSAA != 0 && c.Renderer.MSAA != 1 {
		return fmt.Errorf("unsupported msaa sample count %d, only 1 is supported", c.Renderer.MSAA)
	}
	if c.Window.Width == 0 || c.Window.Height == 0 {
		return fmt.Errorf("window size %dx%d is not valid", c.Window.Width, c.Window.Height)
	}
	return nil
}

// VSyncMode maps the textual vsync setting to its mode.
func (c *Config) VSyncMode() (VSyncMode, error) {
	switch strings.ToLower(c.Renderer.VSync) {
	case "", "on":
		return VSyncOn, nil
	case "off":
		return VSyncOff, nil
	case "adaptive":
		return VSyncAdaptive, nil
	default:
		return VSyncOn, fmt.Errorf("unknown vsync mode %q", c.Renderer.VSync)
	}
}

// Watcher reports changes to the config file so the application can
// reload and apply a new mode.
type Watcher struct {
	fsnotify *fsnotify.Watcher
	path     string

	done    chan struct{}
	Changes chan *Config
}

// NewWatcher starts watching path. Reload events are delivered on
// Changes; parse failures are logged and dropped so a half-saved
// file cannot kill the running configuration.
func NewWatcher(path string) (*Watcher, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsWatch.Add(path); err != nil {
		fsWatch.Close()
		return nil, err
	}

	w := &Watcher{
		fsnotify: fsWatch,
		path:     path,
		done:     make(chan struct{}),
		Changes:  make(chan *Config),
	}
	go w.start()
	return w, nil
}

// deliver hands a reloaded config to the receiver. It gives up when
// the watcher closes so Close never strands the goroutine on an
// unread send.
func (w *Watcher) deliver(cfg *Config) bool {
	select {
	case w.Changes <- cfg:
		return true
	case <-w.done:
		return false
	}
}

func (w *Watcher) start() {
	defer func() {
		w.fsnotify.Close()
		close(w.Changes)
	}()
	for {
		select {
		case e := <-w.fsnotify.Events:
			if e.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			cfg, err := Load(w.path)
			if err != nil {
				core.LogError("config reload failed: %s", err.Error())
				continue
			}
			core.LogInfo("config %s reloaded", w.path)
			if !w.deliver(cfg) {
				return
			}

		case e := <-w.fsnotify.Errors:
			core.LogError(e.Error())

		case <-w.done:
			return
		}
	}
}

func (w *Watcher) Close() {
	close(w.done)
}
