package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
}

func TestLoadFromMissingFileUsesDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.App.SocketPath != DefaultSocketPath {
		t.Errorf("socket = %q", cfg.App.SocketPath)
	}
	if !cfg.Widget.Autoplay || !cfg.Widget.ShowVisualizer || cfg.Widget.Variant != "full" {
		t.Errorf("widget defaults = %+v", cfg.Widget)
	}
	if cfg.Audio.TimeUpdateInterval != DefaultTimeUpdateInterval {
		t.Errorf("interval = %v", cfg.Audio.TimeUpdateInterval)
	}
}

func TestLoadFromToml(t *testing.T) {
	chdir(t, t.TempDir())
	path := writeConfig(t, `
[app]
socket_path = "/run/lw.sock"
frame_rate = 30

[widget]
variant = "compact"
autoplay = false

[audio]
fft_size = 512
timeupdate_interval = "100ms"

[host]
output_dir = "/srv/output"

[lyrics]
fetch_online = false
providers = ["netease"]

[redis]
enabled = true
db = 2

[statusbar]
enabled = true
process = "waybar"
`)
	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	t.Run("overrides", func(t *testing.T) {
		if cfg.App.SocketPath != "/run/lw.sock" || cfg.App.FrameRate != 30 {
			t.Errorf("app = %+v", cfg.App)
		}
		if cfg.Widget.Variant != "compact" || cfg.Widget.Autoplay {
			t.Errorf("widget = %+v", cfg.Widget)
		}
		if cfg.Audio.FFTSize != 512 || cfg.Audio.TimeUpdateInterval != 100*time.Millisecond {
			t.Errorf("audio = %+v", cfg.Audio)
		}
		if cfg.Host.OutputDir != "/srv/output" {
			t.Errorf("host = %+v", cfg.Host)
		}
		if cfg.Lyrics.FetchOnline || len(cfg.Lyrics.Providers) != 1 || cfg.Lyrics.Providers[0] != "netease" {
			t.Errorf("lyrics = %+v", cfg.Lyrics)
		}
		if !cfg.Redis.Enabled || cfg.Redis.DB != 2 || cfg.Redis.Addr != "localhost:6379" {
			t.Errorf("redis = %+v", cfg.Redis)
		}
		if !cfg.StatusBar.Enabled || cfg.StatusBar.Process != "waybar" || cfg.StatusBar.Signal != 55 {
			t.Errorf("statusbar = %+v", cfg.StatusBar)
		}
	})

	t.Run("unset booleans keep defaults", func(t *testing.T) {
		if !cfg.Widget.ShowVisualizer {
			t.Error("show_visualizer should default to true")
		}
	})
}

func TestLoadFromInvalidToml(t *testing.T) {
	path := writeConfig(t, "[app\nsocket_path = ")
	if _, err := LoadFrom(path); err == nil {
		t.Error("expected decode error")
	}
}

func TestEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("LYRICWIDGET_BASE_URL=http://host:9000\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LYRICWIDGET_BASE_URL", "")
	os.Unsetenv("LYRICWIDGET_BASE_URL")
	t.Setenv("LYRICWIDGET_AUTOPLAY", "false")
	t.Setenv("LYRICWIDGET_FRAME_RATE", "abc")
	t.Setenv("LYRICWIDGET_PROVIDERS", "lrclib")

	cfg, err := LoadFrom(filepath.Join(dir, "missing.toml"))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Host.BaseURL != "http://host:9000" {
		t.Errorf("base url from .env = %q", cfg.Host.BaseURL)
	}
	if cfg.Widget.Autoplay {
		t.Error("autoplay should be disabled by env")
	}
	if cfg.App.FrameRate != DefaultFrameRate {
		t.Errorf("invalid frame rate should be ignored, got %d", cfg.App.FrameRate)
	}
	if len(cfg.Lyrics.Providers) != 1 || cfg.Lyrics.Providers[0] != "lrclib" {
		t.Errorf("providers = %v", cfg.Lyrics.Providers)
	}
}

func TestParseDurationOrDefault(t *testing.T) {
	if d := parseDurationOrDefault("", time.Second); d != time.Second {
		t.Errorf("empty: %v", d)
	}
	if d := parseDurationOrDefault("bogus", time.Second); d != time.Second {
		t.Errorf("bogus: %v", d)
	}
	if d := parseDurationOrDefault("2s", time.Second); d != 2*time.Second {
		t.Errorf("2s: %v", d)
	}
}
