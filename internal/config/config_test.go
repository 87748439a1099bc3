package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name: "zero values are filled",
			mutate: func(c *Config) {
				c.PreferredPort = 0
				c.ReadyBudget = 0
				c.HealthPath = ""
				c.Logging = nil
			},
		},
		{
			name:        "preferred port out of range",
			mutate:      func(c *Config) { c.PreferredPort = 70000 },
			expectError: "preferred_port",
		},
		{
			name: "inverted scan range",
			mutate: func(c *Config) {
				c.ScanStart = 60000
				c.ScanEnd = 50000
			},
			expectError: "scan_start",
		},
		{
			name:        "relative health path",
			mutate:      func(c *Config) { c.HealthPath = "api/health" },
			expectError: "health_path",
		},
		{
			name:        "tracing without endpoint",
			mutate:      func(c *Config) { c.Tracing.Enabled = true },
			expectError: "otlp_endpoint",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.expectError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, DefaultPreferredPort, cfg.PreferredPort)
			assert.Equal(t, DefaultReadyBudget, cfg.ReadyBudget)
			assert.Equal(t, DefaultHealthPath, cfg.HealthPath)
			assert.NotNil(t, cfg.Logging)
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.PreferredPort)
	assert.Equal(t, 49152, cfg.ScanStart)
	assert.Equal(t, 65535, cfg.ScanEnd)
	assert.Equal(t, 20, cfg.ReadyBudget)
	assert.Equal(t, 300*time.Millisecond, cfg.ProbeInterval)
	assert.Equal(t, "python", cfg.Interpreter)
	assert.Equal(t, "runicorn-viewer", cfg.SidecarName)
	assert.True(t, cfg.OpenBrowser)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("RUNICORN_DESKTOP_PY", "/opt/py/bin/python3")
	t.Setenv("RUNICORN_DESKTOP_PREFERRED_PORT", "9123")
	t.Setenv("RUNICORN_DESKTOP_PROBE_INTERVAL", "50ms")
	t.Setenv("RUNICORN_DESKTOP_LOGGING_LEVEL", "debug")

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "/opt/py/bin/python3", cfg.Interpreter)
	assert.Equal(t, 9123, cfg.PreferredPort)
	assert.Equal(t, 50*time.Millisecond, cfg.ProbeInterval)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFlagsOverrideEnvironment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("RUNICORN_DESKTOP_PREFERRED_PORT", "9123")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("port", DefaultPreferredPort, "")
	flags.Bool("headless", false, "")
	require.NoError(t, flags.Parse([]string{"--port", "9500", "--headless"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)

	assert.Equal(t, 9500, cfg.PreferredPort)
	assert.True(t, cfg.Headless)
}

func TestLoadUnchangedFlagKeepsEnvironment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("RUNICORN_DESKTOP_PREFERRED_PORT", "9123")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("port", DefaultPreferredPort, "")
	require.NoError(t, flags.Parse(nil))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, 9123, cfg.PreferredPort)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	path := filepath.Join(dir, "custom.yaml")
	content := "preferred-port: 8100\nready-budget: 5\nlogging:\n  level: warn\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, 8100, cfg.PreferredPort)
	assert.Equal(t, 5, cfg.ReadyBudget)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadAutoDiscoversConfigFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "launcher.json"), []byte(`{"headless": true}`), 0600))

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.True(t, cfg.Headless)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	chdir(t, t.TempDir())

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config file")
}
