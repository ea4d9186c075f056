package state

import (
	"sync"
)

// Phase is the hand phase carried by every gameState snapshot.
type Phase string

const (
	PhaseWaiting  Phase = "waiting"
	PhaseDealing  Phase = "dealing"
	PhaseBetting  Phase = "betting"
	PhaseShowdown Phase = "showdown"
	PhaseEarlyEnd Phase = "early-end"
)

// transitions is the expected hand cycle:
// waiting → dealing → betting → (showdown | early-end) → waiting.
var transitions = map[Phase]map[Phase]bool{
	PhaseWaiting:  {PhaseDealing: true},
	PhaseDealing:  {PhaseBetting: true, PhaseEarlyEnd: true},
	PhaseBetting:  {PhaseShowdown: true, PhaseEarlyEnd: true},
	PhaseShowdown: {PhaseWaiting: true},
	PhaseEarlyEnd: {PhaseWaiting: true},
}

func (p Phase) Known() bool {
	_, ok := transitions[p]
	return ok
}

// ParsePhase maps a wire value to a Phase. Empty input means waiting; the
// camel and underscore spellings of early-end are accepted.
func ParsePhase(raw string) (Phase, bool) {
	switch raw {
	case "":
		return PhaseWaiting, true
	case "earlyEnd", "early_end":
		return PhaseEarlyEnd, true
	}
	p := Phase(raw)
	return p, p.Known()
}

// CanTransition reports whether from → to is part of the expected cycle.
// Staying in the same phase is always allowed.
func CanTransition(from, to Phase) bool {
	if from == to {
		return true
	}
	return transitions[from][to]
}

// Transition describes one phase change observed in a snapshot.
type Transition struct {
	From     Phase
	To       Phase
	Expected bool
	// Reset marks the start of a new hand: local UI state is cleared.
	Reset bool
}

// Next computes the transition from → to. Snapshots are authoritative,
// so an unexpected transition is still taken; it is only flagged.
func Next(from, to Phase) Transition {
	return Transition{
		From:     from,
		To:       to,
		Expected: CanTransition(from, to),
		Reset:    to == PhaseWaiting || (to == PhaseDealing && from != PhaseDealing),
	}
}

// Machine tracks the current phase for a stateful consumer and runs
// enter hooks on every phase change.
type Machine struct {
	current Phase
	onEnter map[Phase][]func(Transition)
	onReset []func(Transition)
	mutex   sync.RWMutex
}

func NewMachine(initial Phase) *Machine {
	return &Machine{
		current: initial,
		onEnter: make(map[Phase][]func(Transition)),
	}
}

func (m *Machine) Current() Phase {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.current
}

// OnEnter registers fn to run whenever the machine enters phase.
func (m *Machine) OnEnter(phase Phase, fn func(Transition)) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.onEnter[phase] = append(m.onEnter[phase], fn)
}

// OnReset registers fn to run on every new-hand reset signal.
func (m *Machine) OnReset(fn func(Transition)) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.onReset = append(m.onReset, fn)
}

// Apply moves to phase. Hooks run outside the lock, enter hooks only when
// the phase actually changes, reset hooks on every reset signal.
func (m *Machine) Apply(phase Phase) Transition {
	m.mutex.Lock()
	tr := Next(m.current, phase)
	m.current = phase

	var hooks []func(Transition)
	if tr.From != tr.To {
		hooks = append(hooks, m.onEnter[phase]...)
	}
	if tr.Reset {
		hooks = append(hooks, m.onReset...)
	}
	m.mutex.Unlock()

	for _, fn := range hooks {
		fn(tr)
	}
	return tr
}
