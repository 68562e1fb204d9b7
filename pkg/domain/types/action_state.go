package types

import "fmt"

// ActionState represents the delivery state of a queued action
type ActionState string

const (
	ActionStatePending   ActionState = "PENDING"
	ActionStateInFlight  ActionState = "IN_FLIGHT"
	ActionStateResolved  ActionState = "RESOLVED"
	ActionStateExhausted ActionState = "EXHAUSTED"
)

// AllActionStates returns all valid action states
func AllActionStates() []ActionState {
	return []ActionState{
		ActionStatePending,
		ActionStateInFlight,
		ActionStateResolved,
		ActionStateExhausted,
	}
}

// IsValid checks if the action state is valid
func (s ActionState) IsValid() bool {
	switch s {
	case ActionStatePending, ActionStateInFlight, ActionStateResolved, ActionStateExhausted:
		return true
	default:
		return false
	}
}

// String returns the string representation of the action state
func (s ActionState) String() string {
	return string(s)
}

// IsTerminal reports whether no further delivery attempt will happen
func (s ActionState) IsTerminal() bool {
	return s == ActionStateResolved || s == ActionStateExhausted
}

// CanTransition checks whether a transition to the given state is allowed.
// Allowed transitions: PENDING -> IN_FLIGHT, IN_FLIGHT -> {PENDING, RESOLVED, EXHAUSTED}.
func (s ActionState) CanTransition(next ActionState) bool {
	switch s {
	case ActionStatePending:
		return next == ActionStateInFlight
	case ActionStateInFlight:
		return next == ActionStatePending || next == ActionStateResolved || next == ActionStateExhausted
	default:
		return false
	}
}

// ParseActionState parses a string into an ActionState
func ParseActionState(s string) (ActionState, error) {
	state := ActionState(s)
	if !state.IsValid() {
		return "", fmt.Errorf("invalid action state: %s", s)
	}
	return state, nil
}
