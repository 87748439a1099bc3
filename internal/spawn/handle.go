package spawn

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Kind identifies which strategy produced a handle
type Kind string

const (
	KindSidecar     Kind = "sidecar"
	KindInterpreter Kind = "interpreter"
)

// Handle is a running backend process. Teardown code only needs this
// interface and never inspects the concrete variant.
type Handle interface {
	Kind() Kind
	PID() int

	// Terminate asks the process to stop and returns without waiting.
	// Calling it more than once is harmless.
	Terminate() error

	// Wait blocks until the process has exited or ctx is done.
	Wait(ctx context.Context) error

	// Exited is closed once the process has been reaped
	Exited() <-chan struct{}

	// ExitErr is the error reported by the process exit, nil while running
	ExitErr() error
}

// process is the shared implementation behind both handle kinds
type process struct {
	kind        Kind
	cmd         *exec.Cmd
	pid         int
	gracePeriod time.Duration // 0 kills immediately
	logger      *zap.SugaredLogger
	startTime   time.Time

	done     chan struct{}
	mu       sync.Mutex
	exitErr  error
	termOnce sync.Once
}

// startProcess starts cmd in its own process group and begins reaping it
func startProcess(cmd *exec.Cmd, kind Kind, gracePeriod time.Duration, logger *zap.SugaredLogger) (*process, error) {
	setProcessGroup(cmd)
	if gracePeriod > 0 {
		// bounds Wait when a grandchild keeps the output pipes open
		cmd.WaitDelay = gracePeriod
	}

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	p := &process{
		kind:        kind,
		cmd:         cmd,
		pid:         cmd.Process.Pid,
		gracePeriod: gracePeriod,
		logger:      logger.With("kind", kind, "pid", cmd.Process.Pid),
		startTime:   time.Now(),
		done:        make(chan struct{}),
	}

	go p.reap()

	return p, nil
}

func (p *process) reap() {
	err := p.cmd.Wait()

	p.mu.Lock()
	p.exitErr = err
	p.mu.Unlock()

	if err != nil {
		p.logger.Infow("Backend process exited", "error", err, "runtime", time.Since(p.startTime))
	} else {
		p.logger.Infow("Backend process exited normally", "runtime", time.Since(p.startTime))
	}
	close(p.done)
}

func (p *process) Kind() Kind { return p.kind }

func (p *process) PID() int { return p.pid }

func (p *process) Exited() <-chan struct{} { return p.done }

func (p *process) ExitErr() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitErr
}

func (p *process) Terminate() error {
	var err error
	p.termOnce.Do(func() {
		if p.exited() {
			return
		}

		if p.gracePeriod <= 0 {
			p.logger.Infow("Killing backend process")
			err = killTree(p.cmd)
			return
		}

		p.logger.Infow("Stopping backend process", "grace_period", p.gracePeriod)
		if ierr := interruptTree(p.cmd); ierr != nil {
			p.logger.Debugw("Graceful stop unavailable, killing", "error", ierr)
			err = killTree(p.cmd)
			return
		}

		go p.killAfterGrace()
	})
	return err
}

func (p *process) killAfterGrace() {
	timer := time.NewTimer(p.gracePeriod)
	defer timer.Stop()

	select {
	case <-p.done:
	case <-timer.C:
		p.logger.Warnw("Backend process did not stop gracefully, killing")
		if err := killTree(p.cmd); err != nil {
			p.logger.Warnw("Failed to kill backend process", "error", err)
		}
	}
}

func (p *process) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *process) exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// lineLogger forwards complete output lines of a child stream to the logger
type lineLogger struct {
	logger *zap.SugaredLogger
	stream string

	mu  sync.Mutex
	buf bytes.Buffer
}

func newLineLogger(logger *zap.SugaredLogger, stream string) *lineLogger {
	return &lineLogger{logger: logger, stream: stream}
}

func (l *lineLogger) Write(b []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.buf.Write(b)
	for {
		line, err := l.buf.ReadString('\n')
		if err != nil {
			// keep the partial line for the next write
			l.buf.Reset()
			l.buf.WriteString(line)
			break
		}
		l.emit(strings.TrimRight(line, "\r\n"))
	}
	return len(b), nil
}

func (l *lineLogger) emit(line string) {
	if line == "" {
		return
	}
	lower := strings.ToLower(line)
	if strings.Contains(lower, "error") ||
		strings.Contains(lower, "traceback") ||
		strings.Contains(lower, "failed") {
		l.logger.Warnw("Backend output", "stream", l.stream, "line", line)
		return
	}
	l.logger.Debugw("Backend output", "stream", l.stream, "line", line)
}
