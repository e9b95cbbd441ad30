package assessment

import "github.com/vitalpath-ai/platform/pkg/common/fault"

// transitions is the complete legal edge set of the job state machine.
// Failed is reachable from every non-terminal state and is therefore
// not listed per source.
var transitions = map[State]State{
	StateSubmitted:     StateValidating,
	StateValidating:    StatePreprocessing,
	StatePreprocessing: StateExtracting,
	StateExtracting:    StateFusing,
	StateFusing:        StatePredicting,
	StatePredicting:    StateReady,
}

// advance moves the record into next, updating progress to the weight
// accumulated on entering that state. Any move out of a terminal state
// or off the forward path is an internal fault; the orchestrator is
// the only writer, so a bad edge means a programming error.
func advance(r *Record, next State) error {
	if r.State.Terminal() {
		return fault.Newf(fault.ClassInternal, fault.CodeInternal,
			"job %s is terminal in state %s", r.ID, r.State)
	}
	if next == StateFailed {
		r.State = StateFailed
		return nil
	}
	if transitions[r.State] != next {
		return fault.Newf(fault.ClassInternal, fault.CodeInternal,
			"illegal transition %s -> %s for job %s", r.State, next, r.ID)
	}
	r.State = next
	r.Progress = progressOnEntry[next]
	return nil
}
