package harmonize

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/vitalpath-ai/platform/pkg/common/fault"
	"github.com/vitalpath-ai/platform/pkg/imaging"
	"github.com/vitalpath-ai/platform/pkg/signal"
)

// Bundle is the harmonized snapshot handed to the pathway extractors.
// Every signal in it shares the same effective sampling rate.
type Bundle struct {
	Rate    float64
	Signals map[signal.Modality]signal.Signal
	Images  []imaging.Image
}

// Signal returns the harmonized series for a modality.
func (b *Bundle) Signal(m signal.Modality) (signal.Signal, bool) {
	s, ok := b.Signals[m]
	return s, ok
}

// Has reports whether the bundle carries the modality.
func (b *Bundle) Has(m signal.Modality) bool {
	_, ok := b.Signals[m]
	return ok
}

// Modalities lists the carried signal modalities in stable order.
func (b *Bundle) Modalities() []signal.Modality {
	out := make([]signal.Modality, 0, len(b.Signals))
	for _, m := range signal.Modalities() {
		if _, ok := b.Signals[m]; ok {
			out = append(out, m)
		}
	}
	return out
}

// Harmonizer runs the fixed five-stage cleanup that turns validated raw
// signals into model-ready series: impute, high-pass, low-pass,
// resample to the canonical rate, standardize. The stage order is part
// of the contract; reordering changes the numerics.
type Harmonizer struct {
	profiles signal.Profiles
	rate     float64
}

// NewHarmonizer builds a Harmonizer targeting canonicalRate.
func NewHarmonizer(profiles signal.Profiles, canonicalRate float64) *Harmonizer {
	return &Harmonizer{profiles: profiles, rate: canonicalRate}
}

// CanonicalRate returns the output sampling rate in Hz.
func (h *Harmonizer) CanonicalRate() float64 { return h.rate }

// HarmonizeSignal applies the five stages to a single signal.
func (h *Harmonizer) HarmonizeSignal(s signal.Signal) (signal.Signal, error) {
	if s.Rate <= 0 {
		return signal.Signal{}, fault.Newf(fault.ClassInput, fault.CodeRangeViolation,
			"%s: sampling rate %.4g is not positive", s.Modality, s.Rate)
	}
	if len(s.Samples) == 0 {
		return signal.Signal{}, fault.Newf(fault.ClassInput, fault.CodeInsufficientLength,
			"%s: empty sample sequence", s.Modality)
	}
	prof, ok := h.profiles.Lookup(s.Modality)
	if !ok {
		return signal.Signal{}, fault.Newf(fault.ClassConfig, fault.CodeUnsupportedModality,
			"no modality profile for %s", s.Modality)
	}

	samples := Impute(s.Samples)
	samples = HighPass(samples, prof.HighPassHz, s.Rate)
	samples = LowPass(samples, prof.LowPassHz, s.Rate)
	samples = Resample(samples, s.Rate, h.rate)
	samples = Standardize(samples)

	return s.Derive(samples, h.rate), nil
}

// Harmonize runs every signal through the pipeline concurrently and
// assembles the bundle. Signals are independent, so each goroutine
// writes its own slot and the first failure cancels the rest.
func (h *Harmonizer) Harmonize(ctx context.Context, signals []signal.Signal) (*Bundle, error) {
	bundle := &Bundle{
		Rate:    h.rate,
		Signals: make(map[signal.Modality]signal.Signal, len(signals)),
	}
	results := make([]signal.Signal, len(signals))

	g, ctx := errgroup.WithContext(ctx)
	for i, s := range signals {
		i, s := i, s
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out, err := h.HarmonizeSignal(s)
			if err != nil {
				return fmt.Errorf("harmonize %s: %w", s.Modality, err)
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, out := range results {
		bundle.Signals[out.Modality] = out
	}
	return bundle, nil
}
