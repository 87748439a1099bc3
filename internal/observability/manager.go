// Package observability provides launcher metrics, tracing and a small
// status endpoint.
package observability

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Config holds configuration for observability features
type Config struct {
	// MetricsListen is the address of the /metrics server; empty disables it
	MetricsListen string
	Tracing       TracingConfig
}

// Manager coordinates metrics and tracing
type Manager struct {
	logger  *zap.SugaredLogger
	config  Config
	metrics *MetricsManager
	tracing *TracingManager

	server    *http.Server
	startTime time.Time
}

// NewManager creates a new observability manager. Metrics are always
// collected; they are only served when MetricsListen is set.
func NewManager(logger *zap.SugaredLogger, config Config) (*Manager, error) {
	manager := &Manager{
		logger:    logger,
		config:    config,
		metrics:   NewMetricsManager(logger),
		startTime: time.Now(),
	}

	var err error
	manager.tracing, err = NewTracingManager(logger, config.Tracing)
	if err != nil {
		return nil, err
	}

	return manager, nil
}

// Metrics returns the metrics manager
func (m *Manager) Metrics() *MetricsManager {
	return m.metrics
}

// Tracing returns the tracing manager
func (m *Manager) Tracing() *TracingManager {
	return m.tracing
}

// SetupHTTPHandlers registers /metrics, /status and /readyz on mux
func (m *Manager) SetupHTTPHandlers(mux *http.ServeMux, source StatusSource) {
	metricsHandler := m.metrics.Handler()
	mux.Handle("/metrics", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.metrics.SetUptime(m.startTime)
		metricsHandler.ServeHTTP(w, r)
	}))

	if source != nil {
		mux.HandleFunc("/status", StatusHandler(source, m.logger))
		mux.HandleFunc("/readyz", ReadyzHandler(source, m.logger))
	}
}

// Serve starts the metrics server when MetricsListen is configured and
// returns the bound address. It is a no-op otherwise.
func (m *Manager) Serve(source StatusSource) (string, error) {
	if m.config.MetricsListen == "" {
		return "", nil
	}

	listener, err := net.Listen("tcp", m.config.MetricsListen)
	if err != nil {
		return "", fmt.Errorf("failed to listen on %s: %w", m.config.MetricsListen, err)
	}

	mux := http.NewServeMux()
	m.SetupHTTPHandlers(mux, source)
	m.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := m.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Errorw("Metrics server stopped", "error", err)
		}
	}()

	addr := listener.Addr().String()
	m.logger.Infow("Metrics server listening", "address", addr)
	return addr, nil
}

// Close gracefully shuts down observability components
func (m *Manager) Close(ctx context.Context) error {
	var errs []error

	if m.server != nil {
		if err := m.server.Shutdown(ctx); err != nil {
			m.logger.Errorw("Failed to stop metrics server", "error", err)
			errs = append(errs, err)
		}
	}

	if err := m.tracing.Close(ctx); err != nil {
		m.logger.Errorw("Failed to close tracing manager", "error", err)
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
