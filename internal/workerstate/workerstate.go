// Package workerstate implements WorkerStatusManager: the explicit,
// four-state lifecycle machine for a Worker, per spec.md §4.2.
package workerstate

import "fmt"

// State is one of the four lifecycle states a Worker can occupy.
type State string

const (
	Idle    State = "idle"
	Busy    State = "busy"
	Error   State = "error"
	Stopped State = "stopped"
)

func (s State) String() string { return string(s) }

// transitions encodes the fixed table from spec.md §4.2. A missing entry
// for (from, to) is an illegal transition.
var transitions = map[State]map[State]bool{
	Idle:    {Idle: true, Busy: true, Error: true, Stopped: true},
	Busy:    {Idle: true, Busy: true, Error: true, Stopped: true},
	Error:   {Idle: true, Error: true, Stopped: true},
	Stopped: {Idle: true, Error: true, Stopped: true},
}

// IllegalTransitionError reports an attempted transition the table
// disallows. Per spec.md §4.2 such a transition is a programming error and
// must fail loudly rather than be silently absorbed.
type IllegalTransitionError struct {
	From, To State
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("workerstate: illegal transition %s -> %s", e.From, e.To)
}

// Manager holds one Worker's current lifecycle state. It is not safe for
// concurrent use on its own; callers (Worker) are responsible for
// serializing access, typically behind the same mutex guarding counters and
// error history.
type Manager struct {
	state State
}

// New returns a Manager in the initial state, stopped, per spec.md §4.2.
func New() *Manager {
	return &Manager{state: Stopped}
}

// State returns the current state.
func (m *Manager) State() State { return m.state }

// Transition attempts to move to 'to'. Self-transitions are always no-ops
// that succeed. Any transition absent from the table returns
// *IllegalTransitionError and leaves the state unchanged.
func (m *Manager) Transition(to State) error {
	if m.state == to {
		return nil
	}
	if !transitions[m.state][to] {
		return &IllegalTransitionError{From: m.state, To: to}
	}
	m.state = to
	return nil
}

// CanProcess reports whether this worker may accept a new task: only when
// idle.
func (m *Manager) CanProcess() bool {
	return m.state == Idle
}

// Healthy reports whether this worker counts toward the pool's
// healthyWorkers figure: idle or busy.
func (m *Manager) Healthy() bool {
	return m.state == Idle || m.state == Busy
}
