package state

// State is a lifecycle state of the backend supervisor
type State string

const (
	// StateIdle means no process is owned and no URL is published
	StateIdle State = "idle"

	// StateStarting covers port selection, spawn and the readiness probe
	StateStarting State = "starting"

	// StateReady means the backend answered its health check
	StateReady State = "ready"

	// StateDegraded means the backend is running but never answered within
	// the probe budget; the URL is published anyway
	StateDegraded State = "degraded"

	// StateFailed means no launch strategy produced a process
	StateFailed State = "failed"

	// StateTerminated is entered once on shutdown
	StateTerminated State = "terminated"
)

// Event triggers a state transition
type Event string

const (
	EventStart            Event = "start"
	EventReady            Event = "ready"
	EventReadinessTimeout Event = "readiness_timeout"
	EventSpawnFailed      Event = "spawn_failed"
	EventShutdown         Event = "shutdown"
)

// Info provides metadata about each state
type Info struct {
	Name        State
	Description string
	IsError     bool
	IsTerminal  bool
	UserMessage string
	// HasBackend is true when a process handle may be owned in this state
	HasBackend bool
}

// GetInfo returns metadata for a given state
func GetInfo(state State) Info {
	stateInfoMap := map[State]Info{
		StateIdle: {
			Name:        StateIdle,
			Description: "Supervisor created, nothing started",
			UserMessage: "Not started",
		},
		StateStarting: {
			Name:        StateStarting,
			Description: "Launching backend and waiting for health check",
			UserMessage: "Starting Runicorn viewer...",
			HasBackend:  true,
		},
		StateReady: {
			Name:        StateReady,
			Description: "Backend running and healthy",
			UserMessage: "Runicorn viewer is ready",
			HasBackend:  true,
		},
		StateDegraded: {
			Name:        StateDegraded,
			Description: "Backend running but not confirmed healthy",
			UserMessage: "Runicorn viewer is still starting - the page may need a reload",
			HasBackend:  true,
		},
		StateFailed: {
			Name:        StateFailed,
			Description: "No launch strategy produced a backend process",
			UserMessage: "Failed to start the Runicorn viewer - check logs",
			IsError:     true,
		},
		StateTerminated: {
			Name:        StateTerminated,
			Description: "Backend stopped",
			UserMessage: "Stopped",
			IsTerminal:  true,
		},
	}

	if info, exists := stateInfoMap[state]; exists {
		return info
	}

	// Default for unknown states
	return Info{
		Name:        state,
		Description: string(state),
		UserMessage: string(state),
	}
}

// Next returns the state an event leads to from current. It returns current
// unchanged when the event does not apply.
func Next(current State, event Event) State {
	switch current {
	case StateIdle:
		switch event {
		case EventStart:
			return StateStarting
		case EventShutdown:
			return StateTerminated
		}

	case StateStarting:
		switch event {
		case EventReady:
			return StateReady
		case EventReadinessTimeout:
			return StateDegraded
		case EventSpawnFailed:
			return StateFailed
		case EventShutdown:
			return StateTerminated
		}

	case StateReady, StateDegraded, StateFailed:
		if event == EventShutdown {
			return StateTerminated
		}

	case StateTerminated:
		// Terminal state - no transitions
	}

	return current
}

// CanTransition checks if a transition from one state to another is valid
func CanTransition(from, to State) bool {
	validTransitions := map[State][]State{
		StateIdle: {
			StateStarting,
			StateTerminated,
		},
		StateStarting: {
			StateReady,
			StateDegraded,
			StateFailed,
			StateTerminated,
		},
		StateReady: {
			StateTerminated,
		},
		StateDegraded: {
			StateTerminated,
		},
		StateFailed: {
			StateTerminated,
		},
		StateTerminated: {
			// Terminal state - no transitions out
		},
	}

	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
