package spawn

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Placeholders expanded in argument templates at launch time
const (
	PortPlaceholder = "{port}"
	HostPlaceholder = "{host}"
)

// ErrSidecarNotFound means no bundled sidecar executable was located
var ErrSidecarNotFound = errors.New("sidecar executable not found")

// Strategy is one way of launching the backend
type Strategy interface {
	Name() string
	Kind() Kind
	Launch(ctx context.Context, port int) (Handle, error)
}

// SidecarStrategy launches the packaged runicorn-viewer executable
type SidecarStrategy struct {
	// Candidates are absolute or relative executable paths, checked in order
	Candidates []string
	// LookPathName is searched on PATH when no candidate exists
	LookPathName string

	Args        []string
	Host        string
	Env         []string
	StopTimeout time.Duration

	logger *zap.SugaredLogger
}

// Name implements Strategy
func (s *SidecarStrategy) Name() string { return "sidecar" }

// Kind implements Strategy
func (s *SidecarStrategy) Kind() Kind { return KindSidecar }

// Locate returns the first usable sidecar executable
func (s *SidecarStrategy) Locate() (string, error) {
	for _, candidate := range s.Candidates {
		if resolved, ok := resolveExecutableCandidate(candidate); ok {
			return resolved, nil
		}
	}
	if s.LookPathName != "" {
		if resolved, err := exec.LookPath(s.LookPathName); err == nil {
			return resolved, nil
		}
	}
	return "", fmt.Errorf("%w: checked %v and PATH", ErrSidecarNotFound, s.Candidates)
}

// Launch implements Strategy. Output is forwarded to the launcher log.
func (s *SidecarStrategy) Launch(ctx context.Context, port int) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	binary, err := s.Locate()
	if err != nil {
		return nil, err
	}

	args := expandArgs(s.Args, s.Host, port)
	cmd := exec.Command(binary, args...)
	cmd.Env = s.Env
	cmd.Stdout = newLineLogger(s.logger, "stdout")
	cmd.Stderr = newLineLogger(s.logger, "stderr")

	s.logger.Infow("Launching sidecar backend", "binary", binary, "args", args)

	p, err := startProcess(cmd, KindSidecar, s.StopTimeout, s.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to start sidecar %s: %w", binary, err)
	}
	return p, nil
}

// InterpreterStrategy runs the backend module through an external interpreter
type InterpreterStrategy struct {
	Interpreter string
	Args        []string
	Host        string
	Env         []string

	logger *zap.SugaredLogger
}

// Name implements Strategy
func (s *InterpreterStrategy) Name() string { return "interpreter" }

// Kind implements Strategy
func (s *InterpreterStrategy) Kind() Kind { return KindInterpreter }

// Launch implements Strategy. All three standard streams are left nil,
// which attaches them to the null device; nothing ever blocks on a full pipe.
func (s *InterpreterStrategy) Launch(ctx context.Context, port int) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	args := expandArgs(s.Args, s.Host, port)
	cmd := exec.Command(s.Interpreter, args...)
	cmd.Env = s.Env

	pythonPath, _ := LookupEnv(s.Env, PythonPathEnv)
	s.logger.Infow("Launching interpreter backend",
		"interpreter", s.Interpreter,
		"args", args,
		"pythonpath", pythonPath)

	p, err := startProcess(cmd, KindInterpreter, 0, s.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to start interpreter %s: %w", s.Interpreter, err)
	}
	return p, nil
}

// expandArgs substitutes {host} and {port} in a copy of template
func expandArgs(template []string, host string, port int) []string {
	replacer := strings.NewReplacer(
		PortPlaceholder, strconv.Itoa(port),
		HostPlaceholder, host,
	)
	args := make([]string, len(template))
	for i, arg := range template {
		args[i] = replacer.Replace(arg)
	}
	return args
}
