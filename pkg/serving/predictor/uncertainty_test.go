package predictor

import (
	"math"
	"testing"
)

func afibPreds(t *testing.T, p *Predictor, diags map[string]float64) []Prediction {
	t.Helper()
	preds, err := p.Predict([]string{"afib"}, emptyFused(), diags)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	return preds
}

func TestQuantifyZeroDropoutIsCertain(t *testing.T) {
	reg := DefaultRegistry()
	p := New(reg)
	diags := map[string]float64{"cardiac.irregularity": 0.3, "cardiac.rmssd_ms": 200}

	preds := afibPreds(t, p, diags)
	est := NewQuantifier(reg, 10, 0).Quantify(42, preds, emptyFused(), diags)

	if preds[0].Confidence != 1 {
		t.Fatalf("confidence %v, want 1 with no dropout", preds[0].Confidence)
	}
	if est != 0 {
		t.Fatalf("uncertainty %v, want 0", est)
	}
}

func TestQuantifyDropoutLowersConfidence(t *testing.T) {
	reg := DefaultRegistry()
	p := New(reg)
	diags := map[string]float64{"cardiac.irregularity": 0.4, "cardiac.rmssd_ms": 300, "cardiac.pnn50": 0.8}

	preds := afibPreds(t, p, diags)
	est := NewQuantifier(reg, 10, 0.5).Quantify(42, preds, emptyFused(), diags)

	conf := preds[0].Confidence
	if conf <= 0 || conf >= 1 {
		t.Fatalf("confidence %v, want inside (0,1)", conf)
	}
	if math.Abs(est-(1-conf)) > 1e-12 {
		t.Fatalf("uncertainty %v, want 1-confidence=%v", est, 1-conf)
	}
}

func TestQuantifyIsSeedDeterministic(t *testing.T) {
	reg := DefaultRegistry()
	p := New(reg)
	diags := map[string]float64{"cardiac.irregularity": 0.4, "cardiac.rmssd_ms": 300}

	first := afibPreds(t, p, diags)
	second := afibPreds(t, p, diags)
	q := NewQuantifier(reg, 10, 0.3)

	estA := q.Quantify(7, first, emptyFused(), diags)
	estB := q.Quantify(7, second, emptyFused(), diags)
	if estA != estB {
		t.Fatalf("same seed produced %v and %v", estA, estB)
	}
	if first[0].Confidence != second[0].Confidence {
		t.Fatalf("same seed produced confidences %v and %v",
			first[0].Confidence, second[0].Confidence)
	}

	third := afibPreds(t, p, diags)
	if estC := q.Quantify(8, third, emptyFused(), diags); estC == estA {
		t.Fatalf("different seeds produced identical estimate %v", estC)
	}
}

func TestQuantifyDisabledKeepsCalibration(t *testing.T) {
	reg := DefaultRegistry()
	p := New(reg)
	diags := map[string]float64{"cardiac.irregularity": 0.3}

	preds := afibPreds(t, p, diags)
	est := NewQuantifier(reg, 0, 0.5).Quantify(1, preds, emptyFused(), diags)

	spec, _ := reg.Lookup("afib")
	if preds[0].Confidence != spec.Calibration {
		t.Fatalf("confidence %v, want calibration %v", preds[0].Confidence, spec.Calibration)
	}
	if math.Abs(est-(1-spec.Calibration)) > 1e-12 {
		t.Fatalf("uncertainty %v, want %v", est, 1-spec.Calibration)
	}
}

func TestQuantifyEmptyPredictions(t *testing.T) {
	if est := NewQuantifier(DefaultRegistry(), 10, 0.5).Quantify(1, nil, emptyFused(), nil); est != 0 {
		t.Fatalf("uncertainty %v for empty prediction set", est)
	}
}
