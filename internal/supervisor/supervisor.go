// Package supervisor owns the backend process for the lifetime of the
// launcher: it picks a port, spawns the backend, waits for readiness,
// publishes the base URL and tears everything down on shutdown.
package supervisor

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"runicorn-desktop/internal/observability"
	"runicorn-desktop/internal/spawn"
	"runicorn-desktop/internal/state"
)

const (
	DefaultHost        = "127.0.0.1"
	DefaultReadyBudget = 20

	// DefaultURL is answered by BaseURL until a URL is published
	DefaultURL = "http://127.0.0.1:8000"
)

// PortSelector picks the port the backend binds to
type PortSelector interface {
	SelectPort(ctx context.Context) int
}

// Spawner launches the backend
type Spawner interface {
	Spawn(ctx context.Context, port int) (spawn.Handle, error)
}

// ReadinessProber waits for the backend health endpoint
type ReadinessProber interface {
	WaitReady(ctx context.Context, port, budget int) bool
}

// Metrics receives supervisor-level observations
type Metrics interface {
	ObserveReadiness(healthy bool, duration time.Duration)
	ObserveTransition(transition state.Transition)
}

// Options tunes a Supervisor. Zero values select the defaults.
type Options struct {
	Host        string
	ReadyBudget int
}

// Supervisor is the single owner of the backend process handle. All of its
// methods are safe for concurrent use.
type Supervisor struct {
	ports   PortSelector
	spawner Spawner
	probe   ReadinessProber
	opts    Options
	logger  *zap.SugaredLogger

	metrics Metrics
	tracing *observability.TracingManager

	machine   *state.Machine
	startOnce sync.Once
	done      chan struct{}

	mu                sync.Mutex
	started           bool
	shutdownRequested bool
	cancel            context.CancelFunc
	handle            spawn.Handle
	port              int
	url               string
	err               error
}

// New creates an idle supervisor
func New(ports PortSelector, spawner Spawner, probe ReadinessProber, opts Options, logger *zap.SugaredLogger) *Supervisor {
	if opts.Host == "" {
		opts.Host = DefaultHost
	}
	if opts.ReadyBudget <= 0 {
		opts.ReadyBudget = DefaultReadyBudget
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	return &Supervisor{
		ports:   ports,
		spawner: spawner,
		probe:   probe,
		opts:    opts,
		logger:  logger,
		machine: state.NewMachine(logger),
		done:    make(chan struct{}),
	}
}

// SetMetrics attaches a metrics sink; call before Start
func (s *Supervisor) SetMetrics(m Metrics) {
	s.metrics = m
}

// SetTracing attaches a tracing manager; call before Start
func (s *Supervisor) SetTracing(t *observability.TracingManager) {
	s.tracing = t
}

// Start runs the start sequence on its own goroutine and returns at once.
// Only the first call has an effect.
func (s *Supervisor) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		runCtx, cancel := context.WithCancel(ctx)

		s.mu.Lock()
		s.started = true
		s.cancel = cancel
		s.mu.Unlock()

		go func() {
			defer close(s.done)
			defer cancel()
			s.run(runCtx)
		}()
	})
}

func (s *Supervisor) run(ctx context.Context) {
	ctx, span := s.tracing.StartSpan(ctx, "supervisor.start")
	defer span.End()

	// Stopping a handle must outlive the run context
	stopCtx := context.WithoutCancel(ctx)

	s.mu.Lock()
	if s.shuttingDown(ctx) {
		s.mu.Unlock()
		s.logger.Info("Shutdown requested before start, not launching backend")
		return
	}
	s.fire(state.EventStart, nil)
	s.mu.Unlock()

	_, portSpan := s.tracing.StartSpan(ctx, "ports.select")
	port := s.ports.SelectPort(ctx)
	portSpan.SetAttributes(attribute.Int("backend.port", port))
	portSpan.End()

	spawnCtx, spawnSpan := s.tracing.StartSpan(ctx, "backend.spawn", attribute.Int("backend.port", port))
	handle, err := s.spawner.Spawn(spawnCtx, port)
	if err != nil {
		observability.SetSpanError(spawnSpan, err)
	} else {
		spawnSpan.SetAttributes(
			attribute.String("backend.kind", string(handle.Kind())),
			attribute.Int("backend.pid", handle.PID()))
	}
	spawnSpan.End()

	s.mu.Lock()
	if s.shuttingDown(ctx) {
		s.mu.Unlock()
		if handle != nil {
			s.logger.Infow("Shutdown requested during spawn, stopping fresh backend", "pid", handle.PID())
			s.stop(stopCtx, handle)
		}
		return
	}
	if err != nil {
		s.err = err
		s.fire(state.EventSpawnFailed, err)
		s.mu.Unlock()
		observability.SetSpanError(span, err)
		s.logger.Errorw("Failed to launch backend", "port", port, "error", err)
		return
	}
	s.handle = handle
	s.port = port
	s.mu.Unlock()

	readyCtx, readySpan := s.tracing.StartSpan(ctx, "backend.readiness", attribute.Int("backend.port", port))
	probeStart := time.Now()
	healthy := s.probe.WaitReady(readyCtx, port, s.opts.ReadyBudget)
	readySpan.SetAttributes(attribute.Bool("backend.healthy", healthy))
	readySpan.End()

	s.mu.Lock()
	if s.handle != handle {
		// Shutdown already took the handle
		s.mu.Unlock()
		return
	}
	if s.shuttingDown(ctx) {
		s.mu.Unlock()
		s.logger.Infow("Shutdown requested during readiness wait, stopping backend", "pid", handle.PID())
		s.stop(stopCtx, handle)
		return
	}
	defer s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.ObserveReadiness(healthy, time.Since(probeStart))
	}

	s.url = BaseURLForPort(s.opts.Host, port)
	if healthy {
		s.fire(state.EventReady, nil)
		s.logger.Infow("Backend ready", "url", s.url, "kind", handle.Kind(), "pid", handle.PID())
	} else {
		s.fire(state.EventReadinessTimeout, nil)
		s.logger.Warnw("Backend not confirmed healthy, publishing URL anyway",
			"url", s.url,
			"budget", s.opts.ReadyBudget)
	}

	go s.watchExit(handle)
}

// shuttingDown reports whether shutdown was requested. A cancelled start
// context counts as a request: it is recorded the same way Shutdown records
// one, and the caller becomes responsible for stopping any handle it holds.
// s.mu must be held.
func (s *Supervisor) shuttingDown(ctx context.Context) bool {
	if s.shutdownRequested {
		return true
	}
	if ctx.Err() == nil {
		return false
	}

	s.shutdownRequested = true
	s.handle = nil
	s.url = ""
	s.fire(state.EventShutdown, nil)
	s.logger.Infow("Start context cancelled, shutting down", "error", ctx.Err())
	return true
}

// watchExit logs a backend that dies while it is still owned
func (s *Supervisor) watchExit(handle spawn.Handle) {
	<-handle.Exited()

	s.mu.Lock()
	owned := s.handle == handle
	s.mu.Unlock()

	if owned {
		s.logger.Warnw("Backend process exited while owned by supervisor",
			"pid", handle.PID(),
			"error", handle.ExitErr())
	}
}

// Shutdown terminates the owned backend, waits for it and releases all
// state. Calling it again, or before Start, is harmless. Teardown errors are
// logged, never returned. When Shutdown arrives while the spawn is still in
// flight, the process it produces is stopped as soon as it exists. If the
// start context was cancelled first, Shutdown only waits for the start
// sequence to finish stopping the backend.
func (s *Supervisor) Shutdown(ctx context.Context) {
	s.mu.Lock()
	requested := s.shutdownRequested
	var handle spawn.Handle
	if !requested {
		s.shutdownRequested = true
		handle = s.handle
		s.handle = nil
		s.url = ""
		s.fire(state.EventShutdown, nil)
	}
	started := s.started
	cancel := s.cancel
	s.mu.Unlock()

	if !requested {
		s.logger.Info("Supervisor shutting down")
	}

	if cancel != nil {
		cancel()
	}

	if handle != nil {
		s.stop(ctx, handle)
	}

	if started {
		select {
		case <-s.done:
		case <-ctx.Done():
			s.logger.Warnw("Start sequence did not finish before shutdown deadline", "error", ctx.Err())
		}
	}
}

// stop terminates handle and waits for it; failures are only logged
func (s *Supervisor) stop(ctx context.Context, handle spawn.Handle) {
	if err := handle.Terminate(); err != nil {
		s.logger.Warnw("Failed to terminate backend", "pid", handle.PID(), "error", err)
	}
	if err := handle.Wait(ctx); err != nil {
		s.logger.Warnw("Backend did not exit before deadline", "pid", handle.PID(), "error", err)
		return
	}
	s.logger.Infow("Backend stopped", "pid", handle.PID(), "kind", handle.Kind())
}

// fire applies event; s.mu must be held
func (s *Supervisor) fire(event state.Event, err error) {
	transition, ok := s.machine.Fire(event, err)
	if ok && s.metrics != nil {
		s.metrics.ObserveTransition(transition)
	}
}

// BaseURL returns the published URL, or DefaultURL when none is published.
// It never waits for the start sequence.
func (s *Supervisor) BaseURL() string {
	if url, ok := s.PublishedURL(); ok {
		return url
	}
	return DefaultURL
}

// PublishedURL returns the published URL and whether there is one
func (s *Supervisor) PublishedURL() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url, s.url != ""
}

// State returns the current lifecycle state
func (s *Supervisor) State() state.State {
	return s.machine.Current()
}

// Handle returns the owned process handle, nil when none is owned
func (s *Supervisor) Handle() spawn.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle
}

// Port returns the selected port, 0 before spawning succeeded
func (s *Supervisor) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

// Err returns the fatal start error, if any
func (s *Supervisor) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Subscribe returns a channel of state transitions
func (s *Supervisor) Subscribe() <-chan state.Transition {
	return s.machine.Subscribe()
}

// Done is closed when the start sequence has finished
func (s *Supervisor) Done() <-chan struct{} {
	return s.done
}

// BaseURLForPort formats the URL the UI loads
func BaseURLForPort(host string, port int) string {
	return "http://" + net.JoinHostPort(host, strconv.Itoa(port)) + "/"
}
