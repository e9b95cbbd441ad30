package pathway

import (
	"context"
	"math"
	"testing"

	"github.com/vitalpath-ai/platform/pkg/common/fault"
	"github.com/vitalpath-ai/platform/pkg/signal"
)

func TestAutonomicVariabilityMeasures(t *testing.T) {
	// Alternating series: successive differences all have magnitude 2.
	samples := make([]float64, 6000)
	for i := range samples {
		if i%2 == 0 {
			samples[i] = 1
		} else {
			samples[i] = -1
		}
	}
	bundle := newBundle(100, map[signal.Modality][]float64{signal.ModalityHRV: samples})

	out, err := NewAutonomic().Extract(context.Background(), bundle)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	if got := out.Features["autonomic.rmssd"]; math.Abs(got-2) > 1e-9 {
		t.Fatalf("rmssd %v, want 2", got)
	}
	if got := out.Features["autonomic.range"]; math.Abs(got-2) > 1e-9 {
		t.Fatalf("range %v, want 2", got)
	}
	// A pure alternation is all high-frequency content, so the LF/HF
	// proxy stays close to zero.
	if got := out.Features["autonomic.lf_hf_ratio"]; got > 0.1 {
		t.Fatalf("lf/hf %v, want near 0 for alternating series", got)
	}
}

func TestAutonomicSlowDriftRaisesLFHF(t *testing.T) {
	slow := make([]float64, 6000)
	for i := range slow {
		slow[i] = math.Sin(2 * math.Pi * 0.05 * float64(i) / 100)
	}
	fast := make([]float64, len(slow))
	for i := range fast {
		fast[i] = slow[i] + 0.05*math.Sin(2*math.Pi*2*float64(i)/100)
	}

	slowBundle := newBundle(100, map[signal.Modality][]float64{signal.ModalityHRV: fast})
	out, err := NewAutonomic().Extract(context.Background(), slowBundle)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if got := out.Features["autonomic.lf_hf_ratio"]; got < 1 {
		t.Fatalf("lf/hf %v, want above 1 when slow drift dominates", got)
	}
}

func TestAutonomicMissingHRV(t *testing.T) {
	bundle := newBundle(100, map[signal.Modality][]float64{
		signal.ModalityECG: impulseTrain(2000, 80, 3.0),
	})

	_, err := NewAutonomic().Extract(context.Background(), bundle)
	if !fault.IsCode(err, fault.CodeMissingRequiredModality) {
		t.Fatalf("got %v", err)
	}
	if f := fault.From(err); f.Pathway != string(TagAutonomic) {
		t.Fatalf("fault pathway %q", f.Pathway)
	}
}
