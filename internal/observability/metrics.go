package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"runicorn-desktop/internal/monitor"
	"runicorn-desktop/internal/state"
)

// Result label values
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// supervisorStates is the label set of the state gauge
var supervisorStates = []state.State{
	state.StateIdle,
	state.StateStarting,
	state.StateReady,
	state.StateDegraded,
	state.StateFailed,
	state.StateTerminated,
}

// MetricsManager manages Prometheus metrics for the launcher
type MetricsManager struct {
	logger   *zap.SugaredLogger
	registry *prometheus.Registry

	uptime           prometheus.Gauge
	spawnAttempts    *prometheus.CounterVec
	spawnDuration    *prometheus.HistogramVec
	probeAttempts    *prometheus.CounterVec
	probeLatency     prometheus.Histogram
	readinessLatency *prometheus.HistogramVec
	stateTransitions *prometheus.CounterVec
	currentState     *prometheus.GaugeVec
}

// NewMetricsManager creates a new metrics manager
func NewMetricsManager(logger *zap.SugaredLogger) *MetricsManager {
	mm := &MetricsManager{
		logger:   logger,
		registry: prometheus.NewRegistry(),
	}

	mm.initMetrics()
	mm.registerMetrics()

	return mm
}

func (mm *MetricsManager) initMetrics() {
	mm.uptime = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "runicorn_desktop_uptime_seconds",
		Help: "Time since the launcher started",
	})

	mm.spawnAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runicorn_desktop_spawn_attempts_total",
			Help: "Backend launch attempts per strategy",
		},
		[]string{"strategy", "result"},
	)

	mm.spawnDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "runicorn_desktop_spawn_duration_seconds",
			Help:    "Time taken by a launch strategy to start or fail",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"strategy"},
	)

	mm.probeAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runicorn_desktop_probe_attempts_total",
			Help: "Health probe attempts by outcome",
		},
		[]string{"status"},
	)

	mm.probeLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "runicorn_desktop_probe_duration_seconds",
		Help:    "Duration of a single health probe request",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	})

	mm.readinessLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "runicorn_desktop_readiness_duration_seconds",
			Help:    "Time from spawn until the backend was ready or the probe gave up",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30},
		},
		[]string{"outcome"}, // outcome: ready, degraded
	)

	mm.stateTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runicorn_desktop_state_transitions_total",
			Help: "Supervisor state transitions",
		},
		[]string{"from_state", "to_state"},
	)

	mm.currentState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "runicorn_desktop_state",
			Help: "1 for the current supervisor state, 0 otherwise",
		},
		[]string{"state"},
	)
	mm.setState(state.StateIdle)
}

func (mm *MetricsManager) registerMetrics() {
	mm.registry.MustRegister(
		mm.uptime,
		mm.spawnAttempts,
		mm.spawnDuration,
		mm.probeAttempts,
		mm.probeLatency,
		mm.readinessLatency,
		mm.stateTransitions,
		mm.currentState,
	)

	mm.registry.MustRegister(collectors.NewGoCollector())
	mm.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}

// Handler returns an HTTP handler for the /metrics endpoint
func (mm *MetricsManager) Handler() http.Handler {
	return promhttp.HandlerFor(mm.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the Prometheus registry for custom metrics
func (mm *MetricsManager) Registry() *prometheus.Registry {
	return mm.registry
}

// SetUptime sets the uptime metric
func (mm *MetricsManager) SetUptime(startTime time.Time) {
	mm.uptime.Set(time.Since(startTime).Seconds())
}

// ObserveSpawn records one launch attempt; it satisfies spawn.Recorder
func (mm *MetricsManager) ObserveSpawn(strategy string, duration time.Duration, err error) {
	result := StatusSuccess
	if err != nil {
		result = StatusError
	}
	mm.spawnAttempts.WithLabelValues(strategy, result).Inc()
	mm.spawnDuration.WithLabelValues(strategy).Observe(duration.Seconds())
}

// ObserveProbe records one health attempt; it satisfies monitor.Recorder
func (mm *MetricsManager) ObserveProbe(check monitor.HealthCheck) {
	mm.probeAttempts.WithLabelValues(string(check.Status)).Inc()
	mm.probeLatency.Observe(check.Latency.Seconds())
}

// ObserveReadiness records how long the backend took to become ready, or
// how long the probe ran before giving up
func (mm *MetricsManager) ObserveReadiness(healthy bool, duration time.Duration) {
	outcome := "ready"
	if !healthy {
		outcome = "degraded"
	}
	mm.readinessLatency.WithLabelValues(outcome).Observe(duration.Seconds())
}

// ObserveTransition records a supervisor state change
func (mm *MetricsManager) ObserveTransition(transition state.Transition) {
	mm.stateTransitions.WithLabelValues(string(transition.From), string(transition.To)).Inc()
	mm.setState(transition.To)
}

func (mm *MetricsManager) setState(current state.State) {
	for _, s := range supervisorStates {
		value := 0.0
		if s == current {
			value = 1
		}
		mm.currentState.WithLabelValues(string(s)).Set(value)
	}
}
