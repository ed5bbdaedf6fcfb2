package engine

import "testing"

func TestTurn_HappyPath(t *testing.T) {
	tr := &turn{state: StateIdle}
	for _, s := range []State{StateClassifying, StateDispatching, StateExecuting, StateAccounting, StateRecorded} {
		if err := tr.to(s); err != nil {
			t.Fatalf("transition to %s: %v", s, err)
		}
	}
	if tr.state != StateRecorded {
		t.Errorf("final state = %s, want recorded", tr.state)
	}
}

func TestTurn_FailedReachableFromExecutionPhases(t *testing.T) {
	for _, from := range []State{StateClassifying, StateDispatching, StateExecuting} {
		tr := &turn{state: from}
		if err := tr.to(StateFailed); err != nil {
			t.Errorf("Failed should be reachable from %s: %v", from, err)
		}
	}
}

func TestTurn_IllegalTransitions(t *testing.T) {
	cases := []struct{ from, to State }{
		{StateIdle, StateExecuting},
		{StateRecorded, StateClassifying},
		{StateFailed, StateClassifying},
		{StateAccounting, StateFailed},
	}
	for _, tc := range cases {
		tr := &turn{state: tc.from}
		if err := tr.to(tc.to); err == nil {
			t.Errorf("transition %s -> %s should be illegal", tc.from, tc.to)
		}
	}
}
