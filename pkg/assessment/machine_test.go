package assessment

import (
	"testing"

	"github.com/vitalpath-ai/platform/pkg/common/fault"
)

func TestAdvanceWalksTheForwardPath(t *testing.T) {
	rec := &Record{ID: "j", State: StateSubmitted}

	steps := []struct {
		next     State
		progress int
	}{
		{StateValidating, 0},
		{StatePreprocessing, 10},
		{StateExtracting, 40},
		{StateFusing, 70},
		{StatePredicting, 80},
		{StateReady, 100},
	}
	for _, step := range steps {
		if err := advance(rec, step.next); err != nil {
			t.Fatalf("advance to %s: %v", step.next, err)
		}
		if rec.Progress != step.progress {
			t.Fatalf("progress entering %s = %d, want %d", step.next, rec.Progress, step.progress)
		}
	}
	if !rec.State.Terminal() {
		t.Fatal("ready must be terminal")
	}
}

func TestAdvanceRejectsSkips(t *testing.T) {
	rec := &Record{ID: "j", State: StateValidating}
	err := advance(rec, StateFusing)
	if err == nil {
		t.Fatal("validating -> fusing must be rejected")
	}
	if !fault.IsClass(err, fault.ClassInternal) {
		t.Fatalf("illegal transition is an internal fault, got %v", err)
	}
	if rec.State != StateValidating {
		t.Fatal("record must not move on a rejected transition")
	}
}

func TestFailedReachableFromEveryNonTerminalState(t *testing.T) {
	for _, from := range []State{
		StateSubmitted, StateValidating, StatePreprocessing,
		StateExtracting, StateFusing, StatePredicting,
	} {
		rec := &Record{ID: "j", State: from, Progress: progressOnEntry[from]}
		if err := advance(rec, StateFailed); err != nil {
			t.Fatalf("%s -> failed: %v", from, err)
		}
		if rec.Progress != progressOnEntry[from] {
			t.Fatalf("failure must keep the progress where it stopped, got %d from %s", rec.Progress, from)
		}
	}
}

func TestAdvanceRefusesToLeaveTerminalStates(t *testing.T) {
	for _, terminal := range []State{StateReady, StateFailed} {
		rec := &Record{ID: "j", State: terminal}
		if err := advance(rec, StateFailed); err == nil {
			t.Fatalf("%s is terminal and must not transition", terminal)
		}
	}
}

func TestStatusCollapse(t *testing.T) {
	cases := map[State]string{
		StateSubmitted:     "processing",
		StateValidating:    "processing",
		StatePreprocessing: "processing",
		StateExtracting:    "processing",
		StateFusing:        "processing",
		StatePredicting:    "processing",
		StateReady:         "ready",
		StateFailed:        "failed",
	}
	for state, want := range cases {
		if got := state.Status(); got != want {
			t.Fatalf("Status(%s) = %q, want %q", state, got, want)
		}
	}
}

func TestRecordCloneDetaches(t *testing.T) {
	u := 0.25
	rec := &Record{
		ID:          "j",
		State:       StateReady,
		Conditions:  []string{"afib"},
		Weights:     map[string]float64{"cardiac": 1},
		Uncertainty: &u,
	}
	cp := rec.Clone()

	cp.Conditions[0] = "mutated"
	cp.Weights["cardiac"] = 0
	*cp.Uncertainty = 0.9

	if rec.Conditions[0] != "afib" || rec.Weights["cardiac"] != 1 || *rec.Uncertainty != 0.25 {
		t.Fatalf("clone shares storage with original: %+v", rec)
	}
}
