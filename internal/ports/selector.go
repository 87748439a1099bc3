// Package ports picks the TCP port the backend binds to.
//
// A port counts as free when a local connection attempt to it fails. The
// check does not reserve the port, so another process can still take it
// between selection and bind; the backend then fails at bind time.
package ports

import (
	"context"
	"net"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const dialTimeout = 200 * time.Millisecond

// Prober reports whether something is accepting connections on a local port
type Prober interface {
	InUse(ctx context.Context, port int) bool
}

// ProberFunc adapts a plain function to Prober
type ProberFunc func(ctx context.Context, port int) bool

// InUse implements Prober
func (f ProberFunc) InUse(ctx context.Context, port int) bool {
	return f(ctx, port)
}

// DialProber connects to host:port over TCP
type DialProber struct {
	Host    string
	Timeout time.Duration
}

// InUse implements Prober. Any dial error, refused or otherwise, counts as free.
func (p DialProber) InUse(ctx context.Context, port int) bool {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = dialTimeout
	}
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(p.Host, strconv.Itoa(port)))
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// Selector chooses a port: the preferred one when free, otherwise the first
// free port of [ScanStart, ScanEnd] in ascending order, otherwise the
// preferred port anyway.
type Selector struct {
	Preferred int
	ScanStart int
	ScanEnd   int
	Prober    Prober

	logger *zap.SugaredLogger
}

// NewSelector creates a selector that probes 127.0.0.1
func NewSelector(preferred, scanStart, scanEnd int, logger *zap.SugaredLogger) *Selector {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Selector{
		Preferred: preferred,
		ScanStart: scanStart,
		ScanEnd:   scanEnd,
		Prober:    DialProber{Host: "127.0.0.1"},
		logger:    logger,
	}
}

// SelectPort never fails; exhaustion degrades to the preferred port
func (s *Selector) SelectPort(ctx context.Context) int {
	if !s.Prober.InUse(ctx, s.Preferred) {
		s.logger.Debugw("Preferred port is free", "port", s.Preferred)
		return s.Preferred
	}

	s.logger.Infow("Preferred port in use, scanning range",
		"preferred", s.Preferred,
		"scan_start", s.ScanStart,
		"scan_end", s.ScanEnd)

	for port := s.ScanStart; port <= s.ScanEnd; port++ {
		if ctx.Err() != nil {
			break
		}
		if !s.Prober.InUse(ctx, port) {
			s.logger.Infow("Selected fallback port", "port", port)
			return port
		}
	}

	s.logger.Warnw("No free port found in scan range, using preferred port",
		"preferred", s.Preferred)
	return s.Preferred
}
