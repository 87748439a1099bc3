package spawn

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ErrNoStrategySucceeded is returned when every strategy failed to produce
// a live process
var ErrNoStrategySucceeded = errors.New("no launch strategy succeeded")

// Recorder receives one call per launch attempt
type Recorder interface {
	ObserveSpawn(strategy string, duration time.Duration, err error)
}

// Spawner tries its strategies in order until one returns a handle
type Spawner struct {
	strategies []Strategy
	recorder   Recorder
	logger     *zap.SugaredLogger
}

// NewSpawner copies strategies; the list cannot change afterwards
func NewSpawner(strategies []Strategy, logger *zap.SugaredLogger) *Spawner {
	return &Spawner{
		strategies: append([]Strategy(nil), strategies...),
		logger:     logger,
	}
}

// SetRecorder attaches a metrics recorder
func (s *Spawner) SetRecorder(r Recorder) {
	s.recorder = r
}

// Strategies returns a copy of the strategy list
func (s *Spawner) Strategies() []Strategy {
	return append([]Strategy(nil), s.strategies...)
}

// Spawn launches the backend on port. The first strategy that starts a
// process wins; the returned handle is not yet known to be healthy. A
// cancelled ctx is reported as the context error, never as
// ErrNoStrategySucceeded.
func (s *Spawner) Spawn(ctx context.Context, port int) (Handle, error) {
	var errs []error

	for _, strategy := range s.strategies {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("launch cancelled: %w", err)
		}

		start := time.Now()
		handle, err := strategy.Launch(ctx, port)
		if s.recorder != nil {
			s.recorder.ObserveSpawn(strategy.Name(), time.Since(start), err)
		}

		if err != nil {
			s.logger.Warnw("Launch strategy failed",
				"strategy", strategy.Name(),
				"port", port,
				"error", err)
			errs = append(errs, fmt.Errorf("%s: %w", strategy.Name(), err))
			continue
		}

		s.logger.Infow("Backend process started",
			"strategy", strategy.Name(),
			"kind", handle.Kind(),
			"pid", handle.PID(),
			"port", port)
		return handle, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("launch cancelled: %w", err)
	}
	if len(errs) == 0 {
		return nil, ErrNoStrategySucceeded
	}
	return nil, fmt.Errorf("%w: %w", ErrNoStrategySucceeded, errors.Join(errs...))
}
