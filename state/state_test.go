package state

import (
	"testing"
)

func TestCanTransition_HandCycle(t *testing.T) {
	cycle := []Phase{PhaseWaiting, PhaseDealing, PhaseBetting, PhaseShowdown, PhaseWaiting}
	for i := 0; i+1 < len(cycle); i++ {
		if !CanTransition(cycle[i], cycle[i+1]) {
			t.Errorf("Expected %s -> %s to be allowed", cycle[i], cycle[i+1])
		}
	}
	if !CanTransition(PhaseBetting, PhaseEarlyEnd) || !CanTransition(PhaseEarlyEnd, PhaseWaiting) {
		t.Error("Expected early-end branch to be allowed")
	}
	if CanTransition(PhaseWaiting, PhaseShowdown) {
		t.Error("waiting -> showdown skips the hand and should not be expected")
	}
	if !CanTransition(PhaseBetting, PhaseBetting) {
		t.Error("re-applying the same phase must be allowed")
	}
}

func TestParsePhase(t *testing.T) {
	cases := map[string]struct {
		want  Phase
		known bool
	}{
		"":          {PhaseWaiting, true},
		"betting":   {PhaseBetting, true},
		"early-end": {PhaseEarlyEnd, true},
		"earlyEnd":  {PhaseEarlyEnd, true},
		"flop":      {Phase("flop"), false},
	}
	for raw, tc := range cases {
		got, known := ParsePhase(raw)
		if got != tc.want || known != tc.known {
			t.Errorf("ParsePhase(%q) = %s,%v want %s,%v", raw, got, known, tc.want, tc.known)
		}
	}
}

func TestNext_ResetSignal(t *testing.T) {
	if !Next(PhaseShowdown, PhaseWaiting).Reset {
		t.Error("entering waiting must signal reset")
	}
	if !Next(PhaseWaiting, PhaseWaiting).Reset {
		t.Error("a repeated waiting snapshot still signals reset")
	}
	if !Next(PhaseShowdown, PhaseDealing).Reset {
		t.Error("a new deal without waiting in between is a new hand")
	}
	if Next(PhaseDealing, PhaseBetting).Reset {
		t.Error("dealing -> betting is not a reset")
	}
	if Next(PhaseBetting, PhaseBetting).Reset {
		t.Error("re-applied betting must not reset")
	}

	tr := Next(PhaseWaiting, PhaseShowdown)
	if tr.Expected {
		t.Error("waiting -> showdown should be flagged unexpected")
	}
}

func TestMachine_HooksRunOnChange(t *testing.T) {
	m := NewMachine(PhaseWaiting)
	var entered []Phase
	resets := 0

	m.OnEnter(PhaseBetting, func(tr Transition) { entered = append(entered, tr.To) })
	m.OnEnter(PhaseWaiting, func(tr Transition) { entered = append(entered, tr.To) })
	m.OnReset(func(Transition) { resets++ })

	m.Apply(PhaseDealing)
	m.Apply(PhaseBetting)
	m.Apply(PhaseBetting) // idempotent re-application
	m.Apply(PhaseShowdown)
	m.Apply(PhaseWaiting)

	if len(entered) != 2 || entered[0] != PhaseBetting || entered[1] != PhaseWaiting {
		t.Errorf("Unexpected enter hooks: %v", entered)
	}
	if resets != 2 { // waiting -> dealing, showdown -> waiting
		t.Errorf("Expected 2 resets, got %d", resets)
	}
	if m.Current() != PhaseWaiting {
		t.Errorf("Expected current waiting, got %s", m.Current())
	}
}

func TestMachine_UnexpectedTransitionStillApplies(t *testing.T) {
	m := NewMachine(PhaseWaiting)
	tr := m.Apply(PhaseShowdown)
	if tr.Expected {
		t.Error("Expected transition to be flagged unexpected")
	}
	if m.Current() != PhaseShowdown {
		t.Errorf("authoritative phase must be applied, got %s", m.Current())
	}
}
