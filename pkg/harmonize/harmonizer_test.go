package harmonize

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/vitalpath-ai/platform/pkg/common/fault"
	"github.com/vitalpath-ai/platform/pkg/signal"
)

func testHarmonizer() *Harmonizer {
	return NewHarmonizer(signal.DefaultProfiles(), 100)
}

func ecgSine(freq, rate float64, seconds float64) signal.Signal {
	n := int(rate * seconds)
	return signal.New(signal.ModalityECG, rate, sine(freq, rate, n))
}

func TestHarmonizeSignalOutput(t *testing.T) {
	h := testHarmonizer()
	in := ecgSine(5, 250, 20)
	in.Samples[100] = math.NaN()
	in.Samples[101] = math.NaN()
	for i := range in.Samples {
		in.Samples[i] += 3.0 // baseline offset the high-pass must strip
	}

	out, err := h.HarmonizeSignal(in)
	if err != nil {
		t.Fatalf("harmonize: %v", err)
	}

	if out.Rate != 100 {
		t.Fatalf("rate %v, want 100", out.Rate)
	}
	if want := 2000; len(out.Samples) != want {
		t.Fatalf("got %d samples, want %d", len(out.Samples), want)
	}
	if out.Modality != signal.ModalityECG {
		t.Fatalf("modality changed to %s", out.Modality)
	}

	var mean, ss float64
	for _, v := range out.Samples {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatal("non-finite sample survived harmonization")
		}
		mean += v
	}
	mean /= float64(len(out.Samples))
	for _, v := range out.Samples {
		d := v - mean
		ss += d * d
	}
	std := math.Sqrt(ss / float64(len(out.Samples)))

	if math.Abs(mean) > 1e-9 {
		t.Fatalf("mean %v, want 0", mean)
	}
	if math.Abs(std-1) > 1e-9 {
		t.Fatalf("std %v, want 1", std)
	}
}

func TestHarmonizeIsIdempotent(t *testing.T) {
	h := testHarmonizer()

	first, err := h.HarmonizeSignal(ecgSine(5, 100, 20))
	if err != nil {
		t.Fatalf("first pass: %v", err)
	}
	second, err := h.HarmonizeSignal(first)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if len(second.Samples) != len(first.Samples) {
		t.Fatalf("length drifted from %d to %d", len(first.Samples), len(second.Samples))
	}

	// Compare away from the edges where filter transients live.
	lo, hi := 100, len(first.Samples)-100
	var num, den float64
	for i := lo; i < hi; i++ {
		d := second.Samples[i] - first.Samples[i]
		num += d * d
		den += first.Samples[i] * first.Samples[i]
	}
	if rel := math.Sqrt(num / den); rel > 0.02 {
		t.Fatalf("second pass moved samples by relative rms %v", rel)
	}
}

func TestHarmonizePreservesFundamental(t *testing.T) {
	h := testHarmonizer()

	// A 0.3Hz respiration-band oscillation sampled at 4Hz for 60s.
	samples := make([]float64, 240)
	for i := range samples {
		samples[i] = 92 + 3*math.Sin(2*math.Pi*0.3*float64(i)/4)
	}
	in := signal.New(signal.ModalitySpO2, 4, samples)

	out, err := h.HarmonizeSignal(in)
	if err != nil {
		t.Fatalf("harmonize: %v", err)
	}

	// 0.3Hz over 60s crosses zero about 36 times.
	crossings := 0
	for i := 1; i < len(out.Samples); i++ {
		if (out.Samples[i-1] < 0) != (out.Samples[i] < 0) {
			crossings++
		}
	}
	if crossings < 33 || crossings > 39 {
		t.Fatalf("got %d zero crossings, want about 36", crossings)
	}
}

func TestHarmonizeSignalFaults(t *testing.T) {
	h := testHarmonizer()

	_, err := h.HarmonizeSignal(signal.Signal{Modality: signal.ModalityECG, Rate: 0, Samples: []float64{1}})
	if !fault.IsCode(err, fault.CodeRangeViolation) {
		t.Fatalf("zero rate: got %v", err)
	}

	_, err = h.HarmonizeSignal(signal.New(signal.ModalityECG, 100, nil))
	if !fault.IsCode(err, fault.CodeInsufficientLength) {
		t.Fatalf("empty samples: got %v", err)
	}

	bare := NewHarmonizer(signal.Profiles{}, 100)
	_, err = bare.HarmonizeSignal(ecgSine(5, 100, 10))
	if !fault.IsCode(err, fault.CodeUnsupportedModality) {
		t.Fatalf("missing profile: got %v", err)
	}
	if !fault.IsClass(err, fault.ClassConfig) {
		t.Fatalf("missing profile should be a config fault, got %v", err)
	}
}

func TestHarmonizeBundle(t *testing.T) {
	h := testHarmonizer()
	signals := []signal.Signal{
		ecgSine(5, 250, 20),
		signal.New(signal.ModalityEDA, 8, sine(0.5, 8, 8*40)),
		signal.New(signal.ModalityTEMP, 1, sine(0.05, 1, 90)),
	}
	for i := range signals[1].Samples {
		signals[1].Samples[i] = signals[1].Samples[i]*2 + 10
	}

	bundle, err := h.Harmonize(context.Background(), signals)
	if err != nil {
		t.Fatalf("harmonize: %v", err)
	}

	if bundle.Rate != 100 {
		t.Fatalf("bundle rate %v, want 100", bundle.Rate)
	}
	for _, m := range []signal.Modality{signal.ModalityECG, signal.ModalityEDA, signal.ModalityTEMP} {
		s, ok := bundle.Signal(m)
		if !ok {
			t.Fatalf("bundle missing %s", m)
		}
		if s.Rate != 100 {
			t.Fatalf("%s rate %v, want 100", m, s.Rate)
		}
	}
	if got := bundle.Modalities(); len(got) != 3 || got[0] != signal.ModalityECG {
		t.Fatalf("modalities %v not in stable order", got)
	}
}

func TestHarmonizeBundleFailsFast(t *testing.T) {
	h := testHarmonizer()
	signals := []signal.Signal{
		ecgSine(5, 250, 20),
		{Modality: signal.ModalityEDA, Rate: -1, Samples: []float64{1, 2}},
	}

	_, err := h.Harmonize(context.Background(), signals)
	if err == nil {
		t.Fatal("expected error from bad signal")
	}
	var f *fault.Fault
	if !errors.As(err, &f) {
		t.Fatalf("error %v does not carry a fault", err)
	}
}
