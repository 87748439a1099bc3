package config

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultHost is the only interface the backend is ever bound to
	DefaultHost = "127.0.0.1"

	DefaultPreferredPort = 8000
	DefaultScanStart     = 49152
	DefaultScanEnd       = 65535

	// DefaultReadyBudget is the number of health attempts before the backend
	// is considered degraded
	DefaultReadyBudget = 20

	DefaultProbeInterval       = 300 * time.Millisecond
	DefaultProbeRequestTimeout = 1 * time.Second
	DefaultHealthPath          = "/api/health"

	DefaultSidecarName = "runicorn-viewer"
	DefaultInterpreter = "python"
	DefaultStopTimeout = 5 * time.Second
)

// Config represents the launcher configuration
type Config struct {
	PreferredPort int `json:"preferred_port" mapstructure:"preferred-port"`
	ScanStart     int `json:"scan_start" mapstructure:"scan-start"`
	ScanEnd       int `json:"scan_end" mapstructure:"scan-end"`

	ReadyBudget         int           `json:"ready_budget" mapstructure:"ready-budget"`
	ProbeInterval       time.Duration `json:"probe_interval" mapstructure:"probe-interval"`
	ProbeRequestTimeout time.Duration `json:"probe_request_timeout" mapstructure:"probe-request-timeout"`
	HealthPath          string        `json:"health_path" mapstructure:"health-path"`

	// Sidecar settings
	SidecarName string `json:"sidecar_name" mapstructure:"sidecar-name"`
	SidecarPath string `json:"sidecar_path,omitempty" mapstructure:"sidecar-path"` // Explicit override

	// Interpreter fallback, RUNICORN_DESKTOP_PY
	Interpreter string `json:"python" mapstructure:"python"`

	// Path discovery overrides; empty means probe the candidate list
	FrontendDist string `json:"frontend_dist,omitempty" mapstructure:"frontend-dist"`
	SourceDir    string `json:"source_dir,omitempty" mapstructure:"source-dir"`

	StopTimeout time.Duration `json:"stop_timeout" mapstructure:"stop-timeout"`

	// Host shell
	Headless      bool `json:"headless" mapstructure:"headless"`
	OpenBrowser   bool `json:"open_browser" mapstructure:"open-browser"`
	Notifications bool `json:"notifications" mapstructure:"notifications"`

	// Observability
	MetricsListen string         `json:"metrics_listen,omitempty" mapstructure:"metrics-listen"`
	Tracing       *TracingConfig `json:"tracing,omitempty" mapstructure:"tracing"`

	Logging *LogConfig `json:"logging,omitempty" mapstructure:"logging"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level         string `json:"level" mapstructure:"level"`
	EnableFile    bool   `json:"enable_file" mapstructure:"enable-file"`
	EnableConsole bool   `json:"enable_console" mapstructure:"enable-console"`
	Filename      string `json:"filename" mapstructure:"filename"`
	LogDir        string `json:"log_dir,omitempty" mapstructure:"log-dir"` // Custom log directory
	MaxSize       int    `json:"max_size" mapstructure:"max-size"`         // MB
	MaxBackups    int    `json:"max_backups" mapstructure:"max-backups"`   // number of backup files
	MaxAge        int    `json:"max_age" mapstructure:"max-age"`           // days
	Compress      bool   `json:"compress" mapstructure:"compress"`
	JSONFormat    bool   `json:"json_format" mapstructure:"json-format"`
}

// TracingConfig holds OpenTelemetry settings for the start sequence
type TracingConfig struct {
	Enabled      bool    `json:"enabled" mapstructure:"enabled"`
	OTLPEndpoint string  `json:"otlp_endpoint" mapstructure:"otlp-endpoint"`
	SampleRate   float64 `json:"sample_rate" mapstructure:"sample-rate"`
}

// DefaultConfig returns a configuration with the launcher defaults
func DefaultConfig() *Config {
	return &Config{
		PreferredPort:       DefaultPreferredPort,
		ScanStart:           DefaultScanStart,
		ScanEnd:             DefaultScanEnd,
		ReadyBudget:         DefaultReadyBudget,
		ProbeInterval:       DefaultProbeInterval,
		ProbeRequestTimeout: DefaultProbeRequestTimeout,
		HealthPath:          DefaultHealthPath,
		SidecarName:         DefaultSidecarName,
		Interpreter:         DefaultInterpreter,
		StopTimeout:         DefaultStopTimeout,
		OpenBrowser:         true,
		Notifications:       true,
		Tracing: &TracingConfig{
			SampleRate: 1.0,
		},
		Logging: DefaultLogConfig(),
	}
}

// DefaultLogConfig returns the default logging configuration
func DefaultLogConfig() *LogConfig {
	return &LogConfig{
		Level:         "info",
		EnableFile:    true,
		EnableConsole: true,
		Filename:      "launcher.log",
		MaxSize:       10,
		MaxBackups:    5,
		MaxAge:        30,
		Compress:      true,
	}
}

// Validate fills zero values with defaults and rejects settings that cannot work
func (c *Config) Validate() error {
	if c.PreferredPort == 0 {
		c.PreferredPort = DefaultPreferredPort
	}
	if c.ScanStart == 0 {
		c.ScanStart = DefaultScanStart
	}
	if c.ScanEnd == 0 {
		c.ScanEnd = DefaultScanEnd
	}
	if c.ReadyBudget <= 0 {
		c.ReadyBudget = DefaultReadyBudget
	}
	if c.ProbeInterval <= 0 {
		c.ProbeInterval = DefaultProbeInterval
	}
	if c.ProbeRequestTimeout <= 0 {
		c.ProbeRequestTimeout = DefaultProbeRequestTimeout
	}
	if c.HealthPath == "" {
		c.HealthPath = DefaultHealthPath
	}
	if c.SidecarName == "" {
		c.SidecarName = DefaultSidecarName
	}
	if c.Interpreter == "" {
		c.Interpreter = DefaultInterpreter
	}
	if c.StopTimeout <= 0 {
		c.StopTimeout = DefaultStopTimeout
	}
	if c.Logging == nil {
		c.Logging = DefaultLogConfig()
	}
	if c.Tracing == nil {
		c.Tracing = &TracingConfig{SampleRate: 1.0}
	}

	if !validPort(c.PreferredPort) {
		return fmt.Errorf("preferred_port %d is out of range 1-65535", c.PreferredPort)
	}
	if !validPort(c.ScanStart) || !validPort(c.ScanEnd) {
		return fmt.Errorf("scan range %d-%d is out of range 1-65535", c.ScanStart, c.ScanEnd)
	}
	if c.ScanStart > c.ScanEnd {
		return fmt.Errorf("scan_start %d is greater than scan_end %d", c.ScanStart, c.ScanEnd)
	}
	if !strings.HasPrefix(c.HealthPath, "/") {
		return fmt.Errorf("health_path %q must start with /", c.HealthPath)
	}
	if c.Tracing.Enabled && c.Tracing.OTLPEndpoint == "" {
		return fmt.Errorf("tracing enabled without otlp_endpoint")
	}

	return nil
}

func validPort(port int) bool {
	return port > 0 && port <= 65535
}
