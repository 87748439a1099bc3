package main

import (
	"errors"

	"runicorn-desktop/internal/spawn"
)

// Exit codes of the launcher

const (
	// ExitCodeSuccess indicates normal program termination
	ExitCodeSuccess = 0

	// ExitCodeGeneralError indicates a generic error (default)
	ExitCodeGeneralError = 1

	// ExitCodeConfigError indicates configuration loading or validation failed
	ExitCodeConfigError = 2

	// ExitCodeSpawnFailure indicates no launch strategy produced a backend process
	ExitCodeSpawnFailure = 3
)

// errConfig marks errors raised while loading the configuration
var errConfig = errors.New("configuration error")

// exitCodeFor maps an error returned by the root command to an exit code
func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return ExitCodeSuccess
	case errors.Is(err, spawn.ErrNoStrategySucceeded):
		return ExitCodeSpawnFailure
	case errors.Is(err, errConfig):
		return ExitCodeConfigError
	default:
		return ExitCodeGeneralError
	}
}

// exitCodeDescription returns a human-readable description of the exit code
func exitCodeDescription(code int) string {
	switch code {
	case ExitCodeSuccess:
		return "Success"
	case ExitCodeGeneralError:
		return "General error"
	case ExitCodeConfigError:
		return "Configuration error"
	case ExitCodeSpawnFailure:
		return "Backend could not be launched"
	default:
		return "Unknown error"
	}
}
