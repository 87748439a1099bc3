package state

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

const subscriberBuffer = 10

// Transition represents a state change with metadata
type Transition struct {
	From      State
	To        State
	Event     Event
	Timestamp time.Time
	Error     error
}

// Machine tracks the supervisor state. Events are applied synchronously by
// the caller; subscribers are notified without blocking.
type Machine struct {
	mu           sync.RWMutex
	currentState State
	lastError    error
	logger       *zap.SugaredLogger

	subscribers   []chan Transition
	subscribersMu sync.Mutex
	closed        bool
}

// NewMachine creates a machine in StateIdle
func NewMachine(logger *zap.SugaredLogger) *Machine {
	return &Machine{
		currentState: StateIdle,
		logger:       logger,
	}
}

// Current returns the current state
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentState
}

// LastError returns the error recorded by the most recent failing event
func (m *Machine) LastError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastError
}

// Fire applies event. It reports false, leaving the state untouched, when
// the event does not lead anywhere from the current state.
func (m *Machine) Fire(event Event, err error) (Transition, bool) {
	m.mu.Lock()
	from := m.currentState
	to := Next(from, event)
	if to == from || !CanTransition(from, to) {
		m.mu.Unlock()
		m.logger.Debugw("No valid transition found", "current_state", from, "event", event)
		return Transition{}, false
	}

	m.currentState = to
	if err != nil {
		m.lastError = err
	}
	m.mu.Unlock()

	transition := Transition{
		From:      from,
		To:        to,
		Event:     event,
		Timestamp: time.Now(),
		Error:     err,
	}

	if GetInfo(to).IsError {
		m.logger.Errorw("State transition", "from", from, "to", to, "event", event, "error", err)
	} else {
		m.logger.Infow("State transition", "from", from, "to", to, "event", event)
	}

	m.notifySubscribers(transition)
	if GetInfo(to).IsTerminal {
		m.closeSubscribers()
	}

	return transition, true
}

// Subscribe returns a channel for receiving state transitions. It is closed
// once the terminal state is reached.
func (m *Machine) Subscribe() <-chan Transition {
	m.subscribersMu.Lock()
	defer m.subscribersMu.Unlock()

	ch := make(chan Transition, subscriberBuffer)
	if m.closed {
		close(ch)
		return ch
	}
	m.subscribers = append(m.subscribers, ch)
	return ch
}

func (m *Machine) notifySubscribers(transition Transition) {
	m.subscribersMu.Lock()
	defer m.subscribersMu.Unlock()

	for _, ch := range m.subscribers {
		select {
		case ch <- transition:
		default:
			m.logger.Warnw("Subscriber channel full, dropping transition", "to", transition.To)
		}
	}
}

func (m *Machine) closeSubscribers() {
	m.subscribersMu.Lock()
	defer m.subscribersMu.Unlock()

	if m.closed {
		return
	}
	m.closed = true
	for _, ch := range m.subscribers {
		close(ch)
	}
	m.subscribers = nil
}
