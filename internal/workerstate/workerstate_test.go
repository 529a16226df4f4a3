package workerstate

import "testing"

func TestInitialStateIsStopped(t *testing.T) {
	m := New()
	if m.State() != Stopped {
		t.Fatalf("want stopped, got %s", m.State())
	}
	if m.Healthy() {
		t.Fatalf("stopped should not be healthy")
	}
	if m.CanProcess() {
		t.Fatalf("stopped should not be able to process")
	}
}

func TestSelfTransitionsAreNoOps(t *testing.T) {
	for _, s := range []State{Idle, Busy, Error, Stopped} {
		m := &Manager{state: s}
		if err := m.Transition(s); err != nil {
			t.Fatalf("self-transition %s should succeed, got %v", s, err)
		}
		if m.State() != s {
			t.Fatalf("state should be unchanged, got %s", m.State())
		}
	}
}

func TestLegalTransitions(t *testing.T) {
	cases := []struct {
		from, to State
	}{
		{Idle, Busy}, {Idle, Error}, {Idle, Stopped},
		{Busy, Idle}, {Busy, Error}, {Busy, Stopped},
		{Error, Idle}, {Error, Stopped},
		{Stopped, Idle}, {Stopped, Error},
	}
	for _, c := range cases {
		m := &Manager{state: c.from}
		if err := m.Transition(c.to); err != nil {
			t.Fatalf("%s -> %s should be legal, got %v", c.from, c.to, err)
		}
		if m.State() != c.to {
			t.Fatalf("want state %s, got %s", c.to, m.State())
		}
	}
}

func TestIllegalTransitionsFailLoudly(t *testing.T) {
	cases := []struct {
		from, to State
	}{
		{Error, Busy},
		{Stopped, Busy},
	}
	for _, c := range cases {
		m := &Manager{state: c.from}
		err := m.Transition(c.to)
		if err == nil {
			t.Fatalf("%s -> %s should be illegal", c.from, c.to)
		}
		var ite *IllegalTransitionError
		if !asIllegal(err, &ite) {
			t.Fatalf("want *IllegalTransitionError, got %T", err)
		}
		if m.State() != c.from {
			t.Fatalf("state must not change on illegal transition, got %s", m.State())
		}
	}
}

func asIllegal(err error, target **IllegalTransitionError) bool {
	if e, ok := err.(*IllegalTransitionError); ok {
		*target = e
		return true
	}
	return false
}

func TestCanProcessAndHealthy(t *testing.T) {
	cases := []struct {
		state      State
		canProcess bool
		healthy    bool
	}{
		{Idle, true, true},
		{Busy, false, true},
		{Error, false, false},
		{Stopped, false, false},
	}
	for _, c := range cases {
		m := &Manager{state: c.state}
		if m.CanProcess() != c.canProcess {
			t.Fatalf("%s: want canProcess=%v, got %v", c.state, c.canProcess, m.CanProcess())
		}
		if m.Healthy() != c.healthy {
			t.Fatalf("%s: want healthy=%v, got %v", c.state, c.healthy, m.Healthy())
		}
	}
}
