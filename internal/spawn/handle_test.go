package spawn

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func startHelper(t *testing.T, mode string, kind Kind, grace time.Duration) *process {
	t.Helper()
	cmd := exec.Command(testBinary(t))
	cmd.Env = helperEnviron(mode)

	p, err := startProcess(cmd, kind, grace, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	return p
}

func waitExit(t *testing.T, h Handle) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, h.Wait(ctx), "process did not exit")
}

func TestTerminateTwiceIsNoop(t *testing.T) {
	for _, kind := range []Kind{KindSidecar, KindInterpreter} {
		t.Run(string(kind), func(t *testing.T) {
			grace := time.Duration(0)
			if kind == KindSidecar {
				grace = 2 * time.Second
			}
			p := startHelper(t, "sleep", kind, grace)

			require.NoError(t, p.Terminate())
			require.NoError(t, p.Terminate())
			waitExit(t, p)

			assert.NoError(t, p.Terminate(), "terminate after exit")
		})
	}
}

func TestTerminateAfterExit(t *testing.T) {
	p := startHelper(t, "fail", KindInterpreter, 0)
	waitExit(t, p)

	assert.NoError(t, p.Terminate())
	var exitErr *exec.ExitError
	require.ErrorAs(t, p.ExitErr(), &exitErr)
	assert.Equal(t, 3, exitErr.ExitCode())
}

func TestWaitHonoursContext(t *testing.T) {
	p := startHelper(t, "sleep", KindInterpreter, 0)
	t.Cleanup(func() {
		_ = p.Terminate()
		waitExit(t, p)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Wait(ctx), context.DeadlineExceeded)

	select {
	case <-p.Exited():
		t.Fatal("process exited unexpectedly")
	default:
	}
}

func TestLineLoggerSplitsLines(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	w := newLineLogger(zap.New(core).Sugar(), "stderr")

	_, _ = w.Write([]byte("INFO: started\nTraceback (most"))
	_, _ = w.Write([]byte(" recent call last):\n\n"))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "INFO: started", entries[0].ContextMap()["line"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "Traceback (most recent call last):", entries[1].ContextMap()["line"])
	assert.Equal(t, "stderr", entries[1].ContextMap()["stream"])
}

func TestResolveExecutableCandidate(t *testing.T) {
	dir := t.TempDir()

	_, ok := resolveExecutableCandidate(dir)
	assert.False(t, ok, "directories are not executables")

	_, ok = resolveExecutableCandidate(filepath.Join(dir, "missing"))
	assert.False(t, ok)

	path, ok := resolveExecutableCandidate(testBinary(t))
	assert.True(t, ok)
	assert.True(t, filepath.IsAbs(path))

	if runtime.GOOS != "windows" {
		plain := filepath.Join(dir, "runicorn-viewer")
		require.NoError(t, os.WriteFile(plain, []byte("#!/bin/sh\n"), 0o644))
		_, ok = resolveExecutableCandidate(plain)
		assert.False(t, ok, "files without an execute bit are skipped")
	}
}

func TestSidecarExecutableName(t *testing.T) {
	name := SidecarExecutableName("runicorn-viewer")
	if runtime.GOOS == "windows" {
		assert.Equal(t, "runicorn-viewer.exe", name)
	} else {
		assert.Equal(t, "runicorn-viewer", name)
	}
}
