package pathway

import (
	"context"
	"math"
	"testing"

	"github.com/vitalpath-ai/platform/pkg/common/fault"
	"github.com/vitalpath-ai/platform/pkg/signal"
)

// spo2WithDips builds an hour of 1Hz saturation around zero with
// desaturation excursions to the given depth.
func spo2WithDips(dips int, depth float64, dipLen int) []float64 {
	out := make([]float64, 3600)
	for i := range out {
		out[i] = 0.3 * math.Sin(2*math.Pi*float64(i)/60)
	}
	for d := 0; d < dips; d++ {
		start := 300 + d*600
		for i := start; i < start+dipLen && i < len(out); i++ {
			out[i] = depth
		}
	}
	return out
}

func TestApneaCountsDesaturations(t *testing.T) {
	bundle := newBundle(1, map[signal.Modality][]float64{
		signal.ModalitySpO2: spo2WithDips(4, -2.8, 20),
	})

	out, err := NewApnea().Extract(context.Background(), bundle)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	if got := out.Features["apnea.desat_count"]; got != 4 {
		t.Fatalf("desat count %v, want 4", got)
	}
	if got := out.Features["apnea.odi"]; math.Abs(got-4) > 0.1 {
		t.Fatalf("odi %v, want about 4 per hour", got)
	}
	if got := out.Features["apnea.min_sat"]; math.Abs(got-(-2.8)) > 1e-9 {
		t.Fatalf("min sat %v, want -2.8", got)
	}
	if got := out.Features["apnea.mean_depth"]; got < 2.5 {
		t.Fatalf("mean depth %v, want above 2.5", got)
	}
}

func TestApneaIgnoresTransients(t *testing.T) {
	// Five-second dips are shorter than the qualifying run and must
	// not count.
	bundle := newBundle(1, map[signal.Modality][]float64{
		signal.ModalitySpO2: spo2WithDips(4, -2.8, 5),
	})

	out, err := NewApnea().Extract(context.Background(), bundle)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if got := out.Features["apnea.desat_count"]; got != 0 {
		t.Fatalf("desat count %v, want 0 for transients", got)
	}
}

func TestApneaHealthyOscillation(t *testing.T) {
	bundle := newBundle(1, map[signal.Modality][]float64{
		signal.ModalitySpO2: spo2WithDips(0, 0, 0),
	})

	out, err := NewApnea().Extract(context.Background(), bundle)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if got := out.Features["apnea.desat_count"]; got != 0 {
		t.Fatalf("healthy trace scored %v desaturations", got)
	}
	if got := out.Features["apnea.low_sat_fraction"]; got != 0 {
		t.Fatalf("healthy trace spent %v below the low threshold", got)
	}
}

func TestApneaMissingSpO2(t *testing.T) {
	bundle := newBundle(1, map[signal.Modality][]float64{
		signal.ModalityACC: flatline(600, 0),
	})

	_, err := NewApnea().Extract(context.Background(), bundle)
	if !fault.IsCode(err, fault.CodeMissingRequiredModality) {
		t.Fatalf("got %v", err)
	}
}
