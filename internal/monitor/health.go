package monitor

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// HealthStatus represents the result of a single health attempt
type HealthStatus string

const (
	HealthStatusHealthy     HealthStatus = "healthy"
	HealthStatusUnhealthy   HealthStatus = "unhealthy"
	HealthStatusUnavailable HealthStatus = "unavailable"
)

// HealthCheck represents a health check result
type HealthCheck struct {
	URL       string
	Status    HealthStatus
	Attempt   int
	Latency   time.Duration
	Error     error
	Timestamp time.Time
}

// Recorder receives one callback per attempt. Metrics hook in here.
type Recorder interface {
	ObserveProbe(check HealthCheck)
}

// ProbeConfig configures a ReadinessProbe
type ProbeConfig struct {
	Host           string
	HealthPath     string
	Interval       time.Duration
	RequestTimeout time.Duration
}

// ReadinessProbe polls the backend health endpoint until it answers 2xx.
//
// The wait is bounded by an attempt budget rather than a deadline: with a
// 1s request timeout and a 300ms sleep the real wait for a budget of N is
// somewhere between N*300ms and N*1.3s.
type ReadinessProbe struct {
	config     ProbeConfig
	logger     *zap.SugaredLogger
	httpClient *http.Client
	recorder   Recorder

	sleep func(ctx context.Context, d time.Duration) bool
}

// NewReadinessProbe creates a probe. Zero durations select 300ms / 1s.
func NewReadinessProbe(config ProbeConfig, logger *zap.SugaredLogger) *ReadinessProbe {
	if config.Host == "" {
		config.Host = "127.0.0.1"
	}
	if config.HealthPath == "" {
		config.HealthPath = "/api/health"
	}
	if config.Interval <= 0 {
		config.Interval = 300 * time.Millisecond
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = time.Second
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	return &ReadinessProbe{
		config: config,
		logger: logger,
		httpClient: &http.Client{
			Timeout: config.RequestTimeout,
		},
		sleep: sleepContext,
	}
}

// SetRecorder attaches a per-attempt observer
func (p *ReadinessProbe) SetRecorder(r Recorder) {
	p.recorder = r
}

// HealthURL returns the health endpoint for port
func (p *ReadinessProbe) HealthURL(port int) string {
	return "http://" + p.config.Host + ":" + strconv.Itoa(port) + p.config.HealthPath
}

// WaitReady returns true as soon as one attempt succeeds, false after budget
// failed attempts. There is no sleep after the last attempt. A cancelled
// context ends the loop early with false.
func (p *ReadinessProbe) WaitReady(ctx context.Context, port, budget int) bool {
	url := p.HealthURL(port)
	startTime := time.Now()

	p.logger.Infow("Waiting for backend to become ready",
		"url", url,
		"budget", budget,
		"interval", p.config.Interval)

	for attempt := 1; attempt <= budget; attempt++ {
		check := p.check(ctx, url)
		check.Attempt = attempt
		if p.recorder != nil {
			p.recorder.ObserveProbe(check)
		}

		if check.Status == HealthStatusHealthy {
			p.logger.Infow("Backend is ready",
				"attempt", attempt,
				"elapsed", time.Since(startTime))
			return true
		}

		p.logger.Debugw("Backend not ready yet",
			"attempt", attempt,
			"status", check.Status,
			"error", check.Error)

		if attempt == budget {
			break
		}
		if !p.sleep(ctx, p.config.Interval) {
			p.logger.Infow("Readiness wait cancelled", "attempt", attempt)
			return false
		}
	}

	p.logger.Warnw("Backend did not become ready within attempt budget",
		"budget", budget,
		"elapsed", time.Since(startTime))
	return false
}

// CheckHealth performs a single attempt and returns nil when healthy
func (p *ReadinessProbe) CheckHealth(ctx context.Context, port int) error {
	check := p.check(ctx, p.HealthURL(port))
	if check.Status == HealthStatusHealthy {
		return nil
	}
	if check.Error != nil {
		return check.Error
	}
	return fmt.Errorf("health check returned %s", check.Status)
}

// check performs a single health request
func (p *ReadinessProbe) check(ctx context.Context, url string) HealthCheck {
	startTime := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return HealthCheck{
			URL:       url,
			Status:    HealthStatusUnavailable,
			Latency:   time.Since(startTime),
			Error:     fmt.Errorf("failed to create request: %w", err),
			Timestamp: time.Now(),
		}
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return HealthCheck{
			URL:       url,
			Status:    HealthStatusUnavailable,
			Latency:   time.Since(startTime),
			Error:     err,
			Timestamp: time.Now(),
		}
	}
	defer resp.Body.Close()

	status := HealthStatusHealthy
	var checkErr error
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		status = HealthStatusUnhealthy
		checkErr = fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return HealthCheck{
		URL:       url,
		Status:    status,
		Latency:   time.Since(startTime),
		Error:     checkErr,
		Timestamp: time.Now(),
	}
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
