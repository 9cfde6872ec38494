// Package lifecycle governs plugin state transitions. The transition
// table is fixed data; any move not present in it fails without
// mutating anything.
package lifecycle

import (
	"github.com/macroforge/macroforge/operr"
)

// State is a plugin lifecycle state.
type State string

const (
	StateCreated   State = "created"
	StateEnabled   State = "enabled"
	StateDisabled  State = "disabled"
	StateExecuting State = "executing"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateDeleted   State = "deleted"
)

// States lists every lifecycle state in a stable order.
var States = []State{
	StateCreated,
	StateEnabled,
	StateDisabled,
	StateExecuting,
	StateCompleted,
	StateFailed,
	StateDeleted,
}

// transitions is the full table of allowed moves. Deleted is terminal
// and deliberately absent.
var transitions = map[State][]State{
	StateCreated:   {StateEnabled, StateDisabled, StateDeleted},
	StateEnabled:   {StateDisabled, StateExecuting, StateDeleted},
	StateDisabled:  {StateEnabled, StateDeleted},
	StateExecuting: {StateCompleted, StateFailed},
	StateCompleted: {StateEnabled, StateDisabled, StateDeleted},
	StateFailed:    {StateEnabled, StateDisabled, StateDeleted},
}

// Valid reports whether s is a known lifecycle state.
func (s State) Valid() bool {
	for _, known := range States {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return len(transitions[s]) == 0
}

// AllowedFrom lists the states reachable from s in one transition.
func AllowedFrom(s State) []State {
	targets := transitions[s]
	out := make([]State, len(targets))
	copy(out, targets)
	return out
}

// CanTransition reports whether the from → to move is in the table.
func CanTransition(from, to State) bool {
	for _, target := range transitions[from] {
		if target == to {
			return true
		}
	}
	return false
}

// Transition validates a move and returns the new state. A rejected
// move returns an InvalidStateTransition error and leaves the caller's
// state untouched; the state machine never mutates anything as a side
// effect of a failed attempt.
func Transition(from, to State) (State, error) {
	if !from.Valid() {
		return from, operr.Newf(operr.KindInvalidStateTransition,
			"use one of the defined lifecycle states",
			"unknown source state %q", from)
	}
	if !to.Valid() {
		return from, operr.Newf(operr.KindInvalidStateTransition,
			"use one of the defined lifecycle states",
			"unknown target state %q", to)
	}
	if !CanTransition(from, to) {
		return from, operr.Newf(operr.KindInvalidStateTransition,
			"consult the transition table for the moves allowed from this state",
			"cannot transition from %q to %q", from, to)
	}
	return to, nil
}
