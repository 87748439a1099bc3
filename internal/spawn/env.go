package spawn

import (
	"os"
	"strings"
)

const (
	// FrontendDistEnv tells the backend where to serve static assets from
	FrontendDistEnv = "RUNICORN_FRONTEND_DIST"

	// PythonPathEnv is the interpreter module search path
	PythonPathEnv = "PYTHONPATH"
)

// EnvVar is a single KEY=VALUE override for a child environment
type EnvVar struct {
	Key   string
	Value string
}

func (e EnvVar) String() string {
	return e.Key + "=" + e.Value
}

// PathListSeparator is ";" on Windows and ":" elsewhere
var PathListSeparator = string(os.PathListSeparator)

// AppendPathList appends dir to an existing path list. The previous value is
// kept in front; no separator is added when it is empty.
func AppendPathList(previous, dir, sep string) string {
	if dir == "" {
		return previous
	}
	if previous == "" {
		return dir
	}
	return previous + sep + dir
}

// BuildEnv returns base with overrides applied. An override replaces every
// existing entry for the same key and is appended at the end; base is not
// modified.
func BuildEnv(base []string, overrides ...EnvVar) []string {
	if len(overrides) == 0 {
		return append([]string(nil), base...)
	}

	replaced := make(map[string]struct{}, len(overrides))
	for _, o := range overrides {
		replaced[envKey(o.Key)] = struct{}{}
	}

	env := make([]string, 0, len(base)+len(overrides))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if _, ok := replaced[envKey(key)]; ok {
			continue
		}
		env = append(env, kv)
	}
	for _, o := range overrides {
		env = append(env, o.String())
	}
	return env
}

// LookupEnv finds key in a KEY=VALUE slice, last entry wins
func LookupEnv(env []string, key string) (string, bool) {
	var (
		value string
		found bool
	)
	for _, kv := range env {
		k, v, ok := strings.Cut(kv, "=")
		if ok && envKey(k) == envKey(key) {
			value, found = v, true
		}
	}
	return value, found
}
