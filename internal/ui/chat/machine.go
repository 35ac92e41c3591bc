// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidTransition is returned when a trigger is not allowed in the
// current state.
var ErrInvalidTransition = errors.New("invalid transition")

// =============================================================================
// STATES AND TRIGGERS
// =============================================================================

// State is the request lifecycle state of one chat screen.
type State int

const (
	StateIdle      State = iota // Input enabled, nothing in flight
	StateSending                // Request issued, no reply bytes yet
	StateStreaming              // Reply bytes arriving
	StateSettled                // Reply finished, cleanup applied
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateStreaming:
		return "streaming"
	case StateSettled:
		return "settled"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Busy reports whether a request is in flight.
func (s State) Busy() bool {
	return s == StateSending || s == StateStreaming
}

// Trigger is an input to the Machine.
type Trigger int

const (
	TriggerSubmit Trigger = iota
	TriggerChunk
	TriggerStreamEnd
	TriggerFailure
	TriggerReset
)

func (t Trigger) String() string {
	switch t {
	case TriggerSubmit:
		return "submit"
	case TriggerChunk:
		return "chunk"
	case TriggerStreamEnd:
		return "stream-end"
	case TriggerFailure:
		return "failure"
	case TriggerReset:
		return "reset"
	default:
		return fmt.Sprintf("Trigger(%d)", int(t))
	}
}

// Outcome records how the last settled request ended.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeDone
	OutcomeFailed
)

// =============================================================================
// EFFECTS
// =============================================================================

// Effect is a set of UI side effects a transition asks for.
type Effect uint

const (
	EffectDisableInput Effect = 1 << iota
	EffectShowLoading
	EffectAppendMessages // user question and empty bot placeholder
	EffectClearInput
	EffectUpdateBot
	EffectWriteFailure
	EffectEnableInput
	EffectHideLoading
	EffectFocusInput
	EffectScroll
)

// EffectCleanup is applied on every settle, success or failure.
const EffectCleanup = EffectEnableInput | EffectHideLoading | EffectFocusInput | EffectScroll

// Has reports whether all of f are set in e.
func (e Effect) Has(f Effect) bool {
	return e&f == f
}

// =============================================================================
// MACHINE
// =============================================================================

type transitionKey struct {
	from    State
	trigger Trigger
}

type transition struct {
	to      State
	effects Effect
	outcome Outcome
}

var transitions = map[transitionKey]transition{
	{StateIdle, TriggerSubmit}: {
		to:      StateSending,
		effects: EffectDisableInput | EffectShowLoading | EffectAppendMessages | EffectClearInput | EffectScroll,
	},
	{StateSending, TriggerChunk}:   {to: StateStreaming, effects: EffectUpdateBot | EffectScroll},
	{StateStreaming, TriggerChunk}: {to: StateStreaming, effects: EffectUpdateBot | EffectScroll},

	{StateSending, TriggerStreamEnd}:   {to: StateSettled, effects: EffectUpdateBot | EffectCleanup, outcome: OutcomeDone},
	{StateStreaming, TriggerStreamEnd}: {to: StateSettled, effects: EffectUpdateBot | EffectCleanup, outcome: OutcomeDone},
	{StateSending, TriggerFailure}:     {to: StateSettled, effects: EffectWriteFailure | EffectCleanup, outcome: OutcomeFailed},
	{StateStreaming, TriggerFailure}:   {to: StateSettled, effects: EffectWriteFailure | EffectCleanup, outcome: OutcomeFailed},

	{StateSettled, TriggerReset}: {to: StateIdle},
}

// Machine is the request lifecycle of a chat surface. It is not safe for
// concurrent use; the Bubble Tea loop or the REPL loop owns it.
type Machine struct {
	state   State
	outcome Outcome
}

// NewMachine returns a Machine in StateIdle.
func NewMachine() *Machine {
	return &Machine{state: StateIdle}
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// Outcome returns how the last settled request ended.
func (m *Machine) Outcome() Outcome {
	return m.outcome
}

// Submit fires TriggerSubmit for question. A blank question in StateIdle is
// a no-op that returns no effects and no error.
func (m *Machine) Submit(question string) (Effect, error) {
	if m.state == StateIdle && strings.TrimSpace(question) == "" {
		return 0, nil
	}
	return m.Fire(TriggerSubmit)
}

// Fire applies t and returns the effects to perform. The state is left
// unchanged when t is not allowed.
func (m *Machine) Fire(t Trigger) (Effect, error) {
	tr, ok := transitions[transitionKey{m.state, t}]
	if !ok {
		return 0, fmt.Errorf("%w: %s in %s", ErrInvalidTransition, t, m.state)
	}
	m.state = tr.to
	if tr.to == StateSettled {
		m.outcome = tr.outcome
	}
	return tr.effects, nil
}

// Settle fires the terminal trigger for failed and then resets to Idle,
// returning the settle effects. It is how a surface finishes a request in
// one step.
func (m *Machine) Settle(failed bool) (Effect, error) {
	trigger := TriggerStreamEnd
	if failed {
		trigger = TriggerFailure
	}
	eff, err := m.Fire(trigger)
	if err != nil {
		return 0, err
	}
	if _, err := m.Fire(TriggerReset); err != nil {
		return 0, err
	}
	return eff, nil
}
