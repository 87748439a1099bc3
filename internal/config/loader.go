package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	EnvPrefix = "RUNICORN_DESKTOP"

	// InterpreterEnv overrides the interpreter used by the fallback strategy
	InterpreterEnv = "RUNICORN_DESKTOP_PY"

	ConfigFileName = "launcher"
	DefaultDataDir = "runicorn"
)

// flagKeys maps CLI flag names onto configuration keys
var flagKeys = map[string]string{
	"port":           "preferred-port",
	"ready-budget":   "ready-budget",
	"sidecar-path":   "sidecar-path",
	"python":         "python",
	"frontend-dist":  "frontend-dist",
	"source-dir":     "source-dir",
	"headless":       "headless",
	"open-browser":   "open-browser",
	"notifications":  "notifications",
	"metrics-listen": "metrics-listen",
	"log-level":      "logging.level",
	"log-to-file":    "logging.enable-file",
	"log-dir":        "logging.log-dir",
}

// Load builds the configuration from defaults, an optional config file,
// RUNICORN_DESKTOP_* environment variables and the given flags, in
// increasing order of precedence.
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setupViper(v)

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, err
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if err := findAndLoadConfigFile(v); err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setupViper(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	// logging.max-size -> RUNICORN_DESKTOP_LOGGING_MAX_SIZE
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	// The interpreter override keeps its historical name
	_ = v.BindEnv("python", InterpreterEnv)

	def := DefaultConfig()
	v.SetDefault("preferred-port", def.PreferredPort)
	v.SetDefault("scan-start", def.ScanStart)
	v.SetDefault("scan-end", def.ScanEnd)
	v.SetDefault("ready-budget", def.ReadyBudget)
	v.SetDefault("probe-interval", def.ProbeInterval)
	v.SetDefault("probe-request-timeout", def.ProbeRequestTimeout)
	v.SetDefault("health-path", def.HealthPath)
	v.SetDefault("sidecar-name", def.SidecarName)
	v.SetDefault("sidecar-path", "")
	v.SetDefault("python", def.Interpreter)
	v.SetDefault("frontend-dist", "")
	v.SetDefault("source-dir", "")
	v.SetDefault("stop-timeout", def.StopTimeout)
	v.SetDefault("headless", false)
	v.SetDefault("open-browser", def.OpenBrowser)
	v.SetDefault("notifications", def.Notifications)
	v.SetDefault("metrics-listen", "")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.otlp-endpoint", "")
	v.SetDefault("tracing.sample-rate", def.Tracing.SampleRate)

	v.SetDefault("logging.level", def.Logging.Level)
	v.SetDefault("logging.enable-file", def.Logging.EnableFile)
	v.SetDefault("logging.enable-console", def.Logging.EnableConsole)
	v.SetDefault("logging.filename", def.Logging.Filename)
	v.SetDefault("logging.log-dir", "")
	v.SetDefault("logging.max-size", def.Logging.MaxSize)
	v.SetDefault("logging.max-backups", def.Logging.MaxBackups)
	v.SetDefault("logging.max-age", def.Logging.MaxAge)
	v.SetDefault("logging.compress", def.Logging.Compress)
	v.SetDefault("logging.json-format", def.Logging.JSONFormat)
}

// bindFlags binds only the flags that exist in the set, so callers can
// register a subset.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("failed to bind flag --%s: %w", name, err)
		}
	}
	return nil
}

// findAndLoadConfigFile looks for launcher.{json,yaml,toml} in the working
// directory and the user config directory. A missing file is not an error.
func findAndLoadConfigFile(v *viper.Viper) error {
	v.SetConfigName(ConfigFileName)
	v.AddConfigPath(".")
	if configDir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(configDir, DefaultDataDir))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to load config file %s: %w", v.ConfigFileUsed(), err)
	}
	return nil
}
