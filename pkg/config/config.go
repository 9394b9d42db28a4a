// Package config loads msgcenter settings from a TOML file.
//
// Example:
//
//	listen_addr = "127.0.0.1:8888"
//	server_addr = "127.0.0.1:8888"
//
//	[buffer]
//	initial_capacity = 1024
//	max_capacity = 67108864
//
//	[frame]
//	max_size = 16777216
//	yield_every = 64
//
//	[log]
//	level = "info"
//	file = "logs/msgcenter.log"
//
//	[server]
//	echo = false
//	idle_timeout = "0s"
//	metrics_interval = "30s"
//
//	[discovery]
//	enabled = false
//	instance = "msgcenter"
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"tarun-kavipurapu/msgcenter/pkg/frame"
	"tarun-kavipurapu/msgcenter/pkg/msgcenter"
	"tarun-kavipurapu/msgcenter/pkg/ringbuf"
)

type Config struct {
	ListenAddr string
	ServerAddr string

	InitialCapacity int
	MaxCapacity     int
	MaxFrameSize    uint32
	YieldEvery      int

	LogLevel string
	LogFile  string

	Echo            bool
	IdleTimeout     time.Duration
	MetricsInterval time.Duration

	Discovery         bool
	DiscoveryInstance string
}

func Default() Config {
	return Config{
		ListenAddr:        "127.0.0.1:8888",
		ServerAddr:        "127.0.0.1:8888",
		InitialCapacity:   ringbuf.DefaultCapacity,
		MaxCapacity:       ringbuf.DefaultMaxCapacity,
		MaxFrameSize:      frame.DefaultLimits().MaxFrameBytes,
		YieldEvery:        64,
		LogLevel:          "info",
		MetricsInterval:   30 * time.Second,
		DiscoveryInstance: "msgcenter",
	}
}

type fileConfig struct {
	ListenAddr string `toml:"listen_addr"`
	ServerAddr string `toml:"server_addr"`
	Buffer     struct {
		InitialCapacity int `toml:"initial_capacity"`
		MaxCapacity     int `toml:"max_capacity"`
	} `toml:"buffer"`
	Frame struct {
		MaxSize    int64 `toml:"max_size"`
		YieldEvery int   `toml:"yield_every"`
	} `toml:"frame"`
	Log struct {
		Level string `toml:"level"`
		File  string `toml:"file"`
	} `toml:"log"`
	Server struct {
		Echo            bool   `toml:"echo"`
		IdleTimeout     string `toml:"idle_timeout"`
		MetricsInterval string `toml:"metrics_interval"`
	} `toml:"server"`
	Discovery struct {
		Enabled  bool   `toml:"enabled"`
		Instance string `toml:"instance"`
	} `toml:"discovery"`
}

// Load reads path on top of Default and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config (%s): %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("load config (%s): unknown keys %v", path, undecoded)
	}

	if meta.IsDefined("listen_addr") {
		cfg.ListenAddr = strings.TrimSpace(raw.ListenAddr)
	}
	if meta.IsDefined("server_addr") {
		cfg.ServerAddr = strings.TrimSpace(raw.ServerAddr)
	}
	if meta.IsDefined("buffer", "initial_capacity") {
		cfg.InitialCapacity = raw.Buffer.InitialCapacity
	}
	if meta.IsDefined("buffer", "max_capacity") {
		cfg.MaxCapacity = raw.Buffer.MaxCapacity
	}
	if meta.IsDefined("frame", "max_size") {
		if raw.Frame.MaxSize < 0 || raw.Frame.MaxSize > int64(^uint32(0)) {
			return Config{}, fmt.Errorf("frame.max_size out of range: %d", raw.Frame.MaxSize)
		}
		cfg.MaxFrameSize = uint32(raw.Frame.MaxSize)
	}
	if meta.IsDefined("frame", "yield_every") {
		cfg.YieldEvery = raw.Frame.YieldEvery
	}
	if meta.IsDefined("log", "level") {
		cfg.LogLevel = strings.TrimSpace(raw.Log.Level)
	}
	if meta.IsDefined("log", "file") {
		cfg.LogFile = strings.TrimSpace(raw.Log.File)
	}
	if meta.IsDefined("server", "echo") {
		cfg.Echo = raw.Server.Echo
	}
	if meta.IsDefined("server", "idle_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Server.IdleTimeout))
		if err != nil {
			return Config{}, fmt.Errorf("parse server.idle_timeout: %w", err)
		}
		cfg.IdleTimeout = d
	}
	if meta.IsDefined("server", "metrics_interval") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Server.MetricsInterval))
		if err != nil {
			return Config{}, fmt.Errorf("parse server.metrics_interval: %w", err)
		}
		cfg.MetricsInterval = d
	}
	if meta.IsDefined("discovery", "enabled") {
		cfg.Discovery = raw.Discovery.Enabled
	}
	if meta.IsDefined("discovery", "instance") {
		cfg.DiscoveryInstance = strings.TrimSpace(raw.Discovery.Instance)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.InitialCapacity <= 0 {
		return fmt.Errorf("buffer.initial_capacity must be positive, got %d", c.InitialCapacity)
	}
	if c.MaxCapacity < 0 {
		return fmt.Errorf("buffer.max_capacity must not be negative, got %d", c.MaxCapacity)
	}
	if c.MaxCapacity > 0 && c.MaxCapacity < c.InitialCapacity {
		return fmt.Errorf("buffer.max_capacity (%d) below initial_capacity (%d)", c.MaxCapacity, c.InitialCapacity)
	}
	if c.MaxFrameSize != 0 && c.MaxFrameSize < frame.HeaderSize {
		return fmt.Errorf("frame.max_size must be at least %d, got %d", frame.HeaderSize, c.MaxFrameSize)
	}
	// the buffer keeps one slot free, so the largest frame needs max_capacity-1 bytes
	if c.MaxCapacity > 0 && (c.MaxFrameSize == 0 || uint64(c.MaxFrameSize) >= uint64(c.MaxCapacity)) {
		return fmt.Errorf("buffer.max_capacity (%d) must exceed frame.max_size (%d)", c.MaxCapacity, c.MaxFrameSize)
	}
	if c.YieldEvery < 0 {
		return fmt.Errorf("frame.yield_every must not be negative, got %d", c.YieldEvery)
	}
	if c.IdleTimeout < 0 || c.MetricsInterval < 0 {
		return fmt.Errorf("server durations must not be negative")
	}
	return nil
}

// CenterOptions translates the buffer and frame settings for msgcenter.New.
func (c Config) CenterOptions() []msgcenter.Option {
	return []msgcenter.Option{
		msgcenter.WithInitialCapacity(c.InitialCapacity),
		msgcenter.WithMaxCapacity(c.MaxCapacity),
		msgcenter.WithMaxFrameSize(c.MaxFrameSize),
		msgcenter.WithYieldEvery(c.YieldEvery),
	}
}
