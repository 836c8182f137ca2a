package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lumen.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Window.Width != 1280 || cfg.Window.Height != 720 {
		t.Errorf("default window size = %dx%d, want 1280x720", cfg.Window.Width, cfg.Window.Height)
	}
	mode, err := cfg.VSyncMode()
	if err != nil {
		t.Fatalf("VSyncMode: %v", err)
	}
	if mode != VSyncOn {
		t.Errorf("default vsync = %d, want VSyncOn", mode)
	}
}

func TestLoadParsesRendererSection(t *testing.T) {
	path := writeConfig(t, `
[window]
title = "demo"
width = 640
height = 480

[renderer]
vsync = "adaptive"
gamma_correct = true
msaa = 1
validation = true
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Window.Title != "demo" || cfg.Window.Width != 640 {
		t.Errorf("window section not applied: %+v", cfg.Window)
	}
	mode, _ := cfg.VSyncMode()
	if mode != VSyncAdaptive {
		t.Errorf("vsync mode = %d, want VSyncAdaptive", mode)
	}
	if !cfg.Renderer.GammaCorrect || !cfg.Renderer.Validation {
		t.Errorf("renderer flags not applied: %+v", cfg.Renderer)
	}
}

func TestVSyncModes(t *testing.T) {
	cases := []struct {
		in   string
		want VSyncMode
		ok   bool
	}{
		{"off", VSyncOff, true},
		{"on", VSyncOn, true},
		{"", VSyncOn, true},
		{"Adaptive", VSyncAdaptive, true},
		{"sometimes", VSyncOn, false},
	}
	for _, tc := range cases {
		cfg := defaults()
		cfg.Renderer.VSync = tc.in
		mode, err := cfg.VSyncMode()
		if (err == nil) != tc.ok {
			t.Errorf("VSyncMode(%q) error = %v, want ok=%v", tc.in, err, tc.ok)
			continue
		}
		if tc.ok && mode != tc.want {
			t.Errorf("VSyncMode(%q) = %d, want %d", tc.in, mode, tc.want)
		}
	}
}

func TestValidateRejectsMultisampling(t *testing.T) {
	path := writeConfig(t, `
[renderer]
msaa = 4
`)
	if _, err := Load(path); err == nil {
		t.Fatal("Load accepted msaa = 4, want error")
	}
}

func TestValidateRejectsZeroWindow(t *testing.T) {
	cfg := defaults()
	cfg.Window.Width = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate accepted zero window width")
	}
}

func TestWatcherDeliverAbandonsOnClose(t *testing.T) {
	// A reload pending on an unread Changes channel must not strand
	// the watcher goroutine once Close runs.
	w := &Watcher{done: make(chan struct{}), Changes: make(chan *Config)}
	close(w.done)
	if w.deliver(defaults()) {
		t.Fatal("deliver should abandon the send once the watcher is closed")
	}

	buffered := &Watcher{done: make(chan struct{}), Changes: make(chan *Config, 1)}
	if !buffered.deliver(defaults()) {
		t.Fatal("deliver should hand off when the receiver has room")
	}
	if cfg := <-buffered.Changes; cfg == nil {
		t.Fatal("delivered config is nil")
	}
}
