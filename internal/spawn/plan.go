package spawn

import (
	"time"

	"go.uber.org/zap"
)

// InterpreterModuleArgs runs the viewer app factory under uvicorn
var InterpreterModuleArgs = []string{
	"-X", "utf8",
	"-m", "uvicorn", "runicorn.viewer:create_app", "--factory",
	"--host", HostPlaceholder,
	"--port", PortPlaceholder,
}

// SidecarArgs is the argument template for the packaged viewer
var SidecarArgs = []string{"--host", HostPlaceholder, "--port", PortPlaceholder}

// PlanOptions is everything needed to build the strategy list. Paths are
// resolved by the caller; an empty path means nothing was found.
type PlanOptions struct {
	Host         string
	SidecarName  string
	SidecarPath  string
	Interpreter  string
	FrontendDist string
	SourceDir    string
	StopTimeout  time.Duration

	// Environ is the base environment for children, normally os.Environ()
	Environ []string
}

// Plan builds the ordered strategy list: sidecar first, interpreter second.
// Child environments are computed here, once, before anything is launched.
func Plan(opts PlanOptions, logger *zap.SugaredLogger) []Strategy {
	var common []EnvVar
	if opts.FrontendDist != "" {
		common = append(common, EnvVar{Key: FrontendDistEnv, Value: opts.FrontendDist})
	}

	sidecar := &SidecarStrategy{
		Candidates:   SidecarCandidates(opts.SidecarName, opts.SidecarPath),
		LookPathName: SidecarExecutableName(opts.SidecarName),
		Args:         SidecarArgs,
		Host:         opts.Host,
		Env:          BuildEnv(opts.Environ, common...),
		StopTimeout:  opts.StopTimeout,
		logger:       logger.With("strategy", "sidecar"),
	}

	interpreterEnv := append([]EnvVar(nil), common...)
	if opts.SourceDir != "" {
		previous, _ := LookupEnv(opts.Environ, PythonPathEnv)
		interpreterEnv = append(interpreterEnv, EnvVar{
			Key:   PythonPathEnv,
			Value: AppendPathList(previous, opts.SourceDir, PathListSeparator),
		})
	}

	interpreter := &InterpreterStrategy{
		Interpreter: opts.Interpreter,
		Args:        InterpreterModuleArgs,
		Host:        opts.Host,
		Env:         BuildEnv(opts.Environ, interpreterEnv...),
		logger:      logger.With("strategy", "interpreter"),
	}

	return []Strategy{sidecar, interpreter}
}
