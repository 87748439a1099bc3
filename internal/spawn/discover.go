package spawn

import (
	"os"
	"path/filepath"
	"runtime"
)

// SidecarExecutableName appends the platform executable suffix
func SidecarExecutableName(name string) string {
	if runtime.GOOS == "windows" && filepath.Ext(name) != ".exe" {
		return name + ".exe"
	}
	return name
}

// SidecarCandidates lists the places a bundled sidecar may live, in the
// order they are checked. An explicit override always comes first.
func SidecarCandidates(name, override string) []string {
	name = SidecarExecutableName(name)

	var candidates []string
	if override != "" {
		candidates = append(candidates, override)
	}

	if execPath, err := os.Executable(); err == nil {
		if resolved, err := filepath.EvalSymlinks(execPath); err == nil {
			execPath = resolved
		}
		execDir := filepath.Dir(execPath)
		candidates = append(candidates,
			filepath.Join(execDir, name),
			filepath.Join(execDir, "bin", name),
			// macOS app bundle: Contents/MacOS/<launcher> next to Contents/Resources/bin
			filepath.Join(execDir, "..", "Resources", "bin", name),
		)
	}

	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, name))
	}

	return candidates
}

// resolveExecutableCandidate returns the absolute path of path when it is a
// regular file the current user may execute
func resolveExecutableCandidate(path string) (string, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}

	info, err := os.Stat(abs)
	if err != nil || info.IsDir() {
		return "", false
	}

	if runtime.GOOS != "windows" && info.Mode()&0o111 == 0 {
		return "", false
	}

	return abs, true
}
