package observability

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"runicorn-desktop/internal/monitor"
	"runicorn-desktop/internal/state"
)

func TestObserveSpawn(t *testing.T) {
	mm := NewMetricsManager(zaptest.NewLogger(t).Sugar())

	mm.ObserveSpawn("sidecar", 2*time.Millisecond, errors.New("not found"))
	mm.ObserveSpawn("interpreter", 5*time.Millisecond, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(mm.spawnAttempts.WithLabelValues("sidecar", StatusError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(mm.spawnAttempts.WithLabelValues("interpreter", StatusSuccess)))
	assert.Equal(t, 0.0, testutil.ToFloat64(mm.spawnAttempts.WithLabelValues("sidecar", StatusSuccess)))
}

func TestObserveProbe(t *testing.T) {
	mm := NewMetricsManager(zaptest.NewLogger(t).Sugar())

	mm.ObserveProbe(monitor.HealthCheck{Status: monitor.HealthStatusUnavailable, Attempt: 1})
	mm.ObserveProbe(monitor.HealthCheck{Status: monitor.HealthStatusUnavailable, Attempt: 2})
	mm.ObserveProbe(monitor.HealthCheck{Status: monitor.HealthStatusHealthy, Attempt: 3, Latency: time.Millisecond})

	assert.Equal(t, 2.0, testutil.ToFloat64(mm.probeAttempts.WithLabelValues("unavailable")))
	assert.Equal(t, 1.0, testutil.ToFloat64(mm.probeAttempts.WithLabelValues("healthy")))
}

func TestObserveTransitionTracksCurrentState(t *testing.T) {
	mm := NewMetricsManager(zaptest.NewLogger(t).Sugar())
	assert.Equal(t, 1.0, testutil.ToFloat64(mm.currentState.WithLabelValues(string(state.StateIdle))))

	mm.ObserveTransition(state.Transition{From: state.StateIdle, To: state.StateStarting})
	mm.ObserveTransition(state.Transition{From: state.StateStarting, To: state.StateDegraded})

	assert.Equal(t, 0.0, testutil.ToFloat64(mm.currentState.WithLabelValues(string(state.StateIdle))))
	assert.Equal(t, 0.0, testutil.ToFloat64(mm.currentState.WithLabelValues(string(state.StateStarting))))
	assert.Equal(t, 1.0, testutil.ToFloat64(mm.currentState.WithLabelValues(string(state.StateDegraded))))
	assert.Equal(t, 1.0, testutil.ToFloat64(mm.stateTransitions.WithLabelValues("starting", "degraded")))
}

func TestMetricsHandlerExposesLauncherMetrics(t *testing.T) {
	mm := NewMetricsManager(zaptest.NewLogger(t).Sugar())
	mm.ObserveSpawn("sidecar", time.Millisecond, nil)
	mm.ObserveReadiness(true, time.Second)

	rec := httptest.NewRecorder()
	mm.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "runicorn_desktop_spawn_attempts_total")
	assert.Contains(t, body, "runicorn_desktop_readiness_duration_seconds")
	assert.Contains(t, body, `outcome="ready"`)
}

type staticSource struct {
	state state.State
	url   string
}

func (s staticSource) State() state.State { return s.state }

func (s staticSource) PublishedURL() (string, bool) { return s.url, s.url != "" }

func TestReadyzHandler(t *testing.T) {
	logger := zaptest.NewLogger(t).Sugar()

	rec := httptest.NewRecorder()
	ReadyzHandler(staticSource{state: state.StateStarting}, logger).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	ReadyzHandler(staticSource{state: state.StateDegraded, url: "http://127.0.0.1:8000/"}, logger).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"state":"degraded"`)
	assert.Contains(t, rec.Body.String(), `"url":"http://127.0.0.1:8000/"`)
}

func TestManagerServe(t *testing.T) {
	logger := zaptest.NewLogger(t).Sugar()
	manager, err := NewManager(logger, Config{MetricsListen: "127.0.0.1:0"})
	require.NoError(t, err)
	assert.False(t, manager.Tracing().IsEnabled())

	addr, err := manager.Serve(staticSource{state: state.StateReady, url: "http://127.0.0.1:8000/"})
	require.NoError(t, err)
	require.NotEmpty(t, addr)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		assert.NoError(t, manager.Close(ctx))
	})

	resp, err := http.Get("http://" + addr + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"state":"ready"`)

	metricsResp, err := http.Get("http://" + addr + "/metrics")
	require.NoError(t, err)
	defer metricsResp.Body.Close()
	metricsBody, err := io.ReadAll(metricsResp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(metricsBody), "runicorn_desktop_uptime_seconds")
}

func TestManagerServeDisabled(t *testing.T) {
	manager, err := NewManager(zaptest.NewLogger(t).Sugar(), Config{})
	require.NoError(t, err)

	addr, err := manager.Serve(nil)
	require.NoError(t, err)
	assert.Empty(t, addr)
	assert.NoError(t, manager.Close(context.Background()))
}

func TestDisabledTracingReturnsNoopSpan(t *testing.T) {
	tm, err := NewTracingManager(zaptest.NewLogger(t).Sugar(), TracingConfig{})
	require.NoError(t, err)

	ctx, span := tm.StartSpan(context.Background(), "supervisor.start")
	assert.NotNil(t, ctx)
	assert.False(t, span.SpanContext().IsValid())
	SetSpanError(span, errors.New("ignored"))
	span.End()

	var nilManager *TracingManager
	_, span = nilManager.StartSpan(context.Background(), "supervisor.start")
	assert.False(t, span.SpanContext().IsValid())
}
