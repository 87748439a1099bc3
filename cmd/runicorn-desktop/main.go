package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"runicorn-desktop/internal/config"
	"runicorn-desktop/internal/logs"
	"runicorn-desktop/internal/monitor"
	"runicorn-desktop/internal/observability"
	"runicorn-desktop/internal/ports"
	"runicorn-desktop/internal/spawn"
	"runicorn-desktop/internal/supervisor"
	"runicorn-desktop/internal/tray"
)

const serviceName = "runicorn-desktop"

// shutdownSlack is added to the backend stop timeout when bounding teardown
const shutdownSlack = 5 * time.Second

var (
	configFile string

	version = "v0.1.0" // This will be injected by -ldflags during build
)

func main() {
	rootCmd := newRootCmd()

	if err := rootCmd.Execute(); err != nil {
		code := exitCodeFor(err)
		fmt.Fprintf(os.Stderr, "Error: %v\n%s (exit code %d)\n", err, exitCodeDescription(code), code)
		os.Exit(code)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "runicorn-desktop",
		Short:         "Runicorn desktop launcher - starts the viewer backend and opens it",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runLauncher,
	}

	def := config.DefaultConfig()
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "Configuration file path")
	flags.Int("port", def.PreferredPort, "Preferred backend port")
	flags.Int("ready-budget", def.ReadyBudget, "Health check attempts before the backend is considered degraded")
	flags.String("sidecar-path", "", "Path to the runicorn-viewer executable")
	flags.String("python", "", "Python interpreter for the fallback launch (default: $RUNICORN_DESKTOP_PY or python)")
	flags.String("frontend-dist", "", "Static assets directory passed to the backend")
	flags.String("source-dir", "", "Backend source directory added to PYTHONPATH")
	flags.Bool("headless", false, "Run without tray and without opening a browser")
	flags.Bool("open-browser", def.OpenBrowser, "Open the viewer in the default browser once it is up")
	flags.Bool("notifications", def.Notifications, "Show desktop notifications")
	flags.String("metrics-listen", "", "Serve /metrics, /status and /readyz on this address")
	flags.String("log-level", def.Logging.Level, "Log level (debug, info, warn, error)")
	flags.Bool("log-to-file", def.Logging.EnableFile, "Enable logging to file in standard OS location")
	flags.String("log-dir", "", "Custom log directory path (overrides standard OS location)")

	return rootCmd
}

func runLauncher(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return fmt.Errorf("%w: %w", errConfig, err)
	}

	logger, err := logs.SetupLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to setup logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger = logger.With(zap.String("launch_id", uuid.New().String()))
	sugar := logger.Sugar()

	logger.Info("Starting runicorn-desktop",
		zap.String("version", version),
		zap.String("log_level", cfg.Logging.Level),
		zap.Bool("headless", cfg.Headless))

	paths := config.ResolvePaths(cfg, "")
	logger.Info("Resolved backend paths",
		zap.String("frontend_dist", paths.FrontendDist),
		zap.String("source_dir", paths.SourceDir))

	obs, err := observability.NewManager(sugar, observability.Config{
		MetricsListen: cfg.MetricsListen,
		Tracing: observability.TracingConfig{
			Enabled:        cfg.Tracing.Enabled,
			ServiceName:    serviceName,
			ServiceVersion: version,
			OTLPEndpoint:   cfg.Tracing.OTLPEndpoint,
			SampleRate:     cfg.Tracing.SampleRate,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to setup observability: %w", err)
	}

	sup := newSupervisor(cfg, paths, obs, sugar)

	if _, err := obs.Serve(sup); err != nil {
		logger.Warn("Metrics server disabled", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	shutdownFunc := func() {
		logger.Info("Shutdown requested")
		cancel()
	}

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("Received signal, shutting down", zap.String("signal", sig.String()))
			shutdownFunc()
		case <-ctx.Done():
		}
	}()

	// The shell subscribes to the supervisor, so create it before Start
	app := tray.New(sup, tray.Options{
		Headless:      cfg.Headless,
		OpenBrowser:   cfg.OpenBrowser,
		Notifications: cfg.Notifications,
	}, sugar, shutdownFunc)

	sup.Start(ctx)

	// Blocks on the main goroutine (required for the macOS tray)
	if err := app.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Tray application error", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.StopTimeout+shutdownSlack)
	defer shutdownCancel()

	sup.Shutdown(shutdownCtx)
	if err := obs.Close(shutdownCtx); err != nil {
		logger.Warn("Failed to close observability", zap.Error(err))
	}

	if err := sup.Err(); err != nil {
		return fmt.Errorf("failed to start backend: %w", err)
	}

	logger.Info("runicorn-desktop stopped")
	return nil
}

// newSupervisor wires the port selector, spawner and readiness probe
func newSupervisor(cfg *config.Config, paths config.Paths, obs *observability.Manager, logger *zap.SugaredLogger) *supervisor.Supervisor {
	selector := ports.NewSelector(cfg.PreferredPort, cfg.ScanStart, cfg.ScanEnd, logger.Named("ports"))

	spawner := spawn.NewSpawner(spawn.Plan(planOptions(cfg, paths, os.Environ()), logger.Named("spawn")), logger.Named("spawn"))
	spawner.SetRecorder(obs.Metrics())

	probe := monitor.NewReadinessProbe(monitor.ProbeConfig{
		Host:           config.DefaultHost,
		HealthPath:     cfg.HealthPath,
		Interval:       cfg.ProbeInterval,
		RequestTimeout: cfg.ProbeRequestTimeout,
	}, logger.Named("probe"))
	probe.SetRecorder(obs.Metrics())

	sup := supervisor.New(selector, spawner, probe, supervisor.Options{
		Host:        config.DefaultHost,
		ReadyBudget: cfg.ReadyBudget,
	}, logger.Named("supervisor"))
	sup.SetMetrics(obs.Metrics())
	sup.SetTracing(obs.Tracing())

	return sup
}

func planOptions(cfg *config.Config, paths config.Paths, environ []string) spawn.PlanOptions {
	return spawn.PlanOptions{
		Host:         config.DefaultHost,
		SidecarName:  cfg.SidecarName,
		SidecarPath:  cfg.SidecarPath,
		Interpreter:  cfg.Interpreter,
		FrontendDist: paths.FrontendDist,
		SourceDir:    paths.SourceDir,
		StopTimeout:  cfg.StopTimeout,
		Environ:      environ,
	}
}
