package engine

import "fmt"

// State is a phase of the per-turn state machine. Within one session,
// turns run strictly sequentially, so states never interleave.
type State int

const (
	StateIdle State = iota
	StateClassifying
	StateDispatching
	StateExecuting
	StateAccounting
	StateRecorded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateClassifying:
		return "classifying"
	case StateDispatching:
		return "dispatching"
	case StateExecuting:
		return "executing"
	case StateAccounting:
		return "accounting"
	case StateRecorded:
		return "recorded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// transitions lists the legal moves. Failed is terminal and reachable
// from classifying, dispatching, and executing. A failed turn still flows
// through accounting and recording; that path is inside the Failed
// handling, not a state machine edge.
var transitions = map[State][]State{
	StateIdle:        {StateClassifying},
	StateClassifying: {StateDispatching, StateFailed},
	StateDispatching: {StateExecuting, StateFailed},
	StateExecuting:   {StateAccounting, StateFailed},
	StateAccounting:  {StateRecorded},
	StateRecorded:    {},
	StateFailed:      {},
}

// turn tracks one utterance's walk through the machine.
type turn struct {
	state State
}

// to advances the turn, erroring on an illegal transition. The engine
// never produces an illegal move; the check exists so tests can prove it.
func (t *turn) to(next State) error {
	for _, allowed := range transitions[t.state] {
		if allowed == next {
			t.state = next
			return nil
		}
	}
	return fmt.Errorf("engine: illegal transition %s -> %s", t.state, next)
}
