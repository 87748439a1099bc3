package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkdirAll(t *testing.T, parts ...string) string {
	t.Helper()
	path := filepath.Join(parts...)
	require.NoError(t, os.MkdirAll(path, 0755))
	return path
}

func TestResolvePathsFromRepositoryRoot(t *testing.T) {
	root := t.TempDir()
	dist := mkdirAll(t, root, "web", "frontend", "dist")
	src := mkdirAll(t, root, "src")

	paths := ResolvePaths(DefaultConfig(), root)

	assert.Equal(t, dist, paths.FrontendDist)
	assert.Equal(t, src, paths.SourceDir)
}

func TestResolvePathsPrefersDevLayout(t *testing.T) {
	root := t.TempDir()
	// desktop/tauri/src-tauri is three levels below the repository root
	work := mkdirAll(t, root, "desktop", "tauri", "src-tauri")
	devDist := mkdirAll(t, root, "web", "frontend", "dist")
	mkdirAll(t, work, "web", "frontend", "dist")
	devSrc := mkdirAll(t, root, "src")
	mkdirAll(t, work, "src")

	paths := ResolvePaths(DefaultConfig(), work)

	assert.Equal(t, devDist, paths.FrontendDist)
	assert.Equal(t, devSrc, paths.SourceDir)
}

func TestResolvePathsNothingFound(t *testing.T) {
	paths := ResolvePaths(DefaultConfig(), t.TempDir())
	assert.Empty(t, paths.FrontendDist)
	assert.Empty(t, paths.SourceDir)
}

func TestResolvePathsOverrides(t *testing.T) {
	root := t.TempDir()
	mkdirAll(t, root, "web", "frontend", "dist")
	custom := mkdirAll(t, t.TempDir(), "assets")

	cfg := DefaultConfig()
	cfg.FrontendDist = custom
	cfg.SourceDir = filepath.Join(root, "does-not-exist")

	paths := ResolvePaths(cfg, root)

	assert.Equal(t, custom, paths.FrontendDist)
	assert.Empty(t, paths.SourceDir, "a dangling override must not fall back to discovery")
}

func TestResolvePathsIgnoresFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "src"), []byte("not a dir"), 0600))

	paths := ResolvePaths(nil, root)
	assert.Empty(t, paths.SourceDir)
}
