package form

import "fmt"

// State is a step of the submission lifecycle.
type State int

const (
	StateIdle State = iota
	StateValidating
	StateSubmitting
	StateSuccess
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateSubmitting:
		return "submitting"
	case StateSuccess:
		return "success"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// validTransitions lists the allowed edges of the lifecycle.
var validTransitions = map[State][]State{
	StateIdle:       {StateValidating},
	StateValidating: {StateSubmitting, StateError},
	StateSubmitting: {StateSuccess, StateError},
	StateSuccess:    {StateIdle},
	StateError:      {StateIdle},
}

func canTransition(from, to State) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
