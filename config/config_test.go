package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(Options{})
	require.NoError(t, err)

	assert.Equal(t, DefaultHost, cfg.Host)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultTargetFPS, cfg.TargetFPS)
	assert.Equal(t, "127.0.0.1:7400", cfg.Addr())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv(EnvHost, "0.0.0.0")
	t.Setenv(EnvPort, "9000")
	t.Setenv(EnvJPEGQuality, "85")

	cfg, err := Load(Options{})
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, 85, cfg.JPEGQuality)
	assert.Equal(t, DefaultFrameWidth, cfg.FrameWidth)
}

func TestFlagsWinOverEnvironment(t *testing.T) {
	t.Setenv(EnvHost, "10.0.0.1")
	t.Setenv(EnvPort, "9000")

	cfg, err := Load(Options{Host: "relay.example.net", Port: 7500})
	require.NoError(t, err)

	assert.Equal(t, "relay.example.net", cfg.Host)
	assert.Equal(t, 7500, cfg.Port)
}

func TestMalformedEnvironmentIsAnError(t *testing.T) {
	t.Setenv(EnvPort, "not-a-port")

	_, err := Load(Options{})
	assert.Error(t, err)
}
