package config

import (
	"os"
	"path/filepath"
)

// FrontendDistCandidates are checked in order, relative to the working
// directory: the desktop/tauri dev layout first, then the repository root.
var FrontendDistCandidates = []string{
	filepath.Join("..", "..", "..", "web", "frontend", "dist"),
	filepath.Join("web", "frontend", "dist"),
}

// SourceDirCandidates locate the backend package sources for the
// interpreter fallback.
var SourceDirCandidates = []string{
	filepath.Join("..", "..", "..", "src"),
	"src",
}

// Paths holds the result of best-effort directory discovery. Empty fields
// mean nothing was found.
type Paths struct {
	FrontendDist string
	SourceDir    string
}

// ResolvePaths runs path discovery against workDir. Explicit overrides in
// cfg win over the candidate lists; an override that does not exist is
// ignored so that the backend never receives a dangling path.
func ResolvePaths(cfg *Config, workDir string) Paths {
	var frontendOverride, sourceOverride string
	if cfg != nil {
		frontendOverride = cfg.FrontendDist
		sourceOverride = cfg.SourceDir
	}

	return Paths{
		FrontendDist: resolveDir(frontendOverride, workDir, FrontendDistCandidates),
		SourceDir:    resolveDir(sourceOverride, workDir, SourceDirCandidates),
	}
}

func resolveDir(override, workDir string, candidates []string) string {
	if override != "" {
		if isDir(override) {
			return absolute(override)
		}
		return ""
	}

	if workDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return ""
		}
		workDir = cwd
	}

	for _, candidate := range candidates {
		path := filepath.Join(workDir, candidate)
		if isDir(path) {
			return absolute(path)
		}
	}
	return ""
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func absolute(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
