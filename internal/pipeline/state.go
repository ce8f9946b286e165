// ABOUTME: Session state machine
// ABOUTME: Defines session states and the transitions allowed between them
package pipeline

import "fmt"

// State is the lifecycle state of a session
type State int

const (
	StateIdle State = iota
	StateOpening
	StateStreaming
	StateDraining
	StateFailed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOpening:
		return "opening"
	case StateStreaming:
		return "streaming"
	case StateDraining:
		return "draining"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var transitions = map[State][]State{
	StateIdle:      {StateOpening},
	StateOpening:   {StateStreaming, StateFailed},
	StateStreaming: {StateDraining, StateFailed, StateClosed},
	StateDraining:  {StateClosed},
	StateFailed:    {StateClosed},
}

// canTransition reports whether from → to is a legal move
func canTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
