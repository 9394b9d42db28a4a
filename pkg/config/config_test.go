package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "msgcenter.toml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
listen_addr = "0.0.0.0:9000"

[buffer]
initial_capacity = 8
max_capacity = 4096

[frame]
max_size = 2048
yield_every = 0

[log]
level = "debug"

[server]
echo = true
idle_timeout = "15s"

[discovery]
enabled = true
instance = "lab"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != "0.0.0.0:9000" {
		t.Fatalf("listen addr = %q", cfg.ListenAddr)
	}
	if cfg.ServerAddr != "127.0.0.1:8888" {
		t.Fatalf("server addr default lost: %q", cfg.ServerAddr)
	}
	if cfg.InitialCapacity != 8 || cfg.MaxCapacity != 4096 {
		t.Fatalf("buffer = %d/%d", cfg.InitialCapacity, cfg.MaxCapacity)
	}
	if cfg.MaxFrameSize != 2048 || cfg.YieldEvery != 0 {
		t.Fatalf("frame = %d/%d", cfg.MaxFrameSize, cfg.YieldEvery)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("log level = %q", cfg.LogLevel)
	}
	if !cfg.Echo || cfg.IdleTimeout != 15*time.Second {
		t.Fatalf("server = %v/%v", cfg.Echo, cfg.IdleTimeout)
	}
	if cfg.MetricsInterval != 30*time.Second {
		t.Fatalf("metrics interval default lost: %v", cfg.MetricsInterval)
	}
	if !cfg.Discovery || cfg.DiscoveryInstance != "lab" {
		t.Fatalf("discovery = %v/%q", cfg.Discovery, cfg.DiscoveryInstance)
	}
	if len(cfg.CenterOptions()) != 4 {
		t.Fatalf("unexpected option count")
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "listen_adr = \"x\"\n")
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "unknown keys") {
		t.Fatalf("expected unknown keys error, got %v", err)
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := writeConfig(t, "[server]\nidle_timeout = \"soon\"\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected duration parse error")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero capacity", func(c *Config) { c.InitialCapacity = 0 }},
		{"max below initial", func(c *Config) { c.InitialCapacity = 64; c.MaxCapacity = 32 }},
		{"tiny frame limit", func(c *Config) { c.MaxFrameSize = 3 }},
		{"negative yield", func(c *Config) { c.YieldEvery = -1 }},
		{"negative idle", func(c *Config) { c.IdleTimeout = -time.Second }},
		{"frame limit above buffer limit", func(c *Config) { c.MaxCapacity = 4096 }},
		{"frame limit equals buffer limit", func(c *Config) { c.MaxCapacity = 4096; c.MaxFrameSize = 4096 }},
		{"unbounded frames in bounded buffer", func(c *Config) { c.MaxFrameSize = 0 }},
	}
	for _, tc := range cases {
		cfg := Default()
		tc.mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	unbounded := Default()
	unbounded.MaxCapacity = 0
	unbounded.MaxFrameSize = 0
	if err := unbounded.Validate(); err != nil {
		t.Fatalf("fully unbounded config rejected: %v", err)
	}
	fits := Default()
	fits.MaxCapacity = 4097
	fits.MaxFrameSize = 4096
	if err := fits.Validate(); err != nil {
		t.Fatalf("frame limit one below buffer limit rejected: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
