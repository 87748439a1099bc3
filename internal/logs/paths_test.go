package logs

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLogDir(t *testing.T) {
	logDir, err := GetLogDir()
	require.NoError(t, err)
	require.NotEmpty(t, logDir)

	assert.Contains(t, logDir, "runicorn")
	assert.True(t, filepath.IsAbs(logDir))
}

func TestLinuxLogDirHonoursXDGStateHome(t *testing.T) {
	if runtime.GOOS != osLinux {
		t.Skip("XDG layout only applies on Linux")
	}
	stateHome := t.TempDir()
	t.Setenv("XDG_STATE_HOME", stateHome)

	logDir, err := GetLogDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(stateHome, "runicorn", "logs"), logDir)
}

func TestGetLogFilePathWithDirCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")

	path, err := GetLogFilePathWithDir(dir, "launcher.log")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "launcher.log"), path)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
