// Package config loads the process configuration for the voxring binaries.
//
// Values are resolved with the usual precedence: CLI flag (passed in by the
// command), then environment variable, then default. Only the listen/dial
// address affects the core; the media settings are handed to the external
// capture collaborator.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
)

// Defaults.
const (
	DefaultHost        = "127.0.0.1"
	DefaultPort        = 7400
	DefaultTargetFPS   = 15
	DefaultFrameWidth  = 320
	DefaultFrameHeight = 240
	DefaultJPEGQuality = 70
)

// Environment variable names.
const (
	EnvHost        = "VOXRING_HOST"
	EnvPort        = "VOXRING_PORT"
	EnvTargetFPS   = "VOXRING_TARGET_FPS"
	EnvFrameWidth  = "VOXRING_FRAME_WIDTH"
	EnvFrameHeight = "VOXRING_FRAME_HEIGHT"
	EnvJPEGQuality = "VOXRING_JPEG_QUALITY"
)

// Config holds the resolved settings.
type Config struct {
	Host string
	Port int

	// Capture collaborator settings; not consumed by the core.
	TargetFPS   int
	FrameWidth  int
	FrameHeight int
	JPEGQuality int
}

// Options carries CLI flag overrides. Zero values mean "not set".
type Options struct {
	Host string
	Port int
}

// Load resolves the configuration. Malformed environment values are an
// error rather than a silent fallback.
func Load(opts Options) (*Config, error) {
	cfg := &Config{
		Host:        DefaultHost,
		Port:        DefaultPort,
		TargetFPS:   DefaultTargetFPS,
		FrameWidth:  DefaultFrameWidth,
		FrameHeight: DefaultFrameHeight,
		JPEGQuality: DefaultJPEGQuality,
	}

	if v := os.Getenv(EnvHost); v != "" {
		cfg.Host = v
	}

	for _, e := range []struct {
		env string
		dst *int
	}{
		{EnvPort, &cfg.Port},
		{EnvTargetFPS, &cfg.TargetFPS},
		{EnvFrameWidth, &cfg.FrameWidth},
		{EnvFrameHeight, &cfg.FrameHeight},
		{EnvJPEGQuality, &cfg.JPEGQuality},
	} {
		v := os.Getenv(e.env)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.env, err)
		}
		*e.dst = n
	}

	// Flags win over everything.
	if opts.Host != "" {
		cfg.Host = opts.Host
	}
	if opts.Port != 0 {
		cfg.Port = opts.Port
	}

	return cfg, nil
}

// Addr formats the host/port pair for net.Dial or net.Listen.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
