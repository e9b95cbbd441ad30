package pathway

import (
	"context"

	"github.com/vitalpath-ai/platform/pkg/harmonize"
	"github.com/vitalpath-ai/platform/pkg/signal"
)

// SCR detection bounds: a response is a phasic peak above scrThreshold
// standardized units, with at most one detection per second.
const (
	scrThreshold  = 1.0
	scrGapSeconds = 1.0
)

// Stress counts electrodermal responses and tracks tonic drift, the
// signal base for chronic stress risk. Skin temperature trend and
// heart rate variability sharpen it when supplied.
type Stress struct{}

func NewStress() *Stress { return &Stress{} }

func (s *Stress) Tag() Tag { return TagStress }

func (s *Stress) RequiredModalities() []signal.Modality {
	return []signal.Modality{signal.ModalityEDA}
}

func (s *Stress) OptionalModalities() []signal.Modality {
	return []signal.Modality{signal.ModalityTEMP, signal.ModalityHRV}
}

func (s *Stress) NeedsImages() bool { return false }

func (s *Stress) Extract(ctx context.Context, bundle *harmonize.Bundle) (Embedding, error) {
	if err := requireSignals(s.Tag(), bundle, signal.ModalityEDA); err != nil {
		return Embedding{}, err
	}
	eda, _ := bundle.Signal(signal.ModalityEDA)

	gap := int(scrGapSeconds * eda.Rate)
	if gap < 1 {
		gap = 1
	}
	peaks := peakIndices(eda.Samples, scrThreshold, gap)

	minutes := eda.Duration().Minutes()
	var scrRate float64
	if minutes > 0 {
		scrRate = float64(len(peaks)) / minutes
	}
	var ampSum float64
	for _, i := range peaks {
		ampSum += eda.Samples[i]
	}
	var scrAmpMean float64
	if len(peaks) > 0 {
		scrAmpMean = ampSum / float64(len(peaks))
	}

	// Slope per minute of the standardized series; sustained arousal
	// shows up as a rising tonic level.
	tonicSlope := slope(eda.Samples) * eda.Rate * 60

	features := map[string]float64{
		"stress.scr_count":        float64(len(peaks)),
		"stress.scr_rate_per_min": scrRate,
		"stress.scr_amp_mean":     scrAmpMean,
		"stress.tonic_slope":      tonicSlope,
	}

	var tempTrend, tempFlux float64
	if temp, ok := bundle.Signal(signal.ModalityTEMP); ok {
		tempTrend = slope(temp.Samples) * temp.Rate * 60
		tempFlux = rms(diffs(temp.Samples, 1))
		features["stress.temp_trend"] = tempTrend
	}
	var hrvSpread float64
	if hrv, ok := bundle.Signal(signal.ModalityHRV); ok {
		hrvSpread = rms(diffs(hrv.Samples, 1))
		features["stress.hrv_spread"] = hrvSpread
	}

	vec := segmentStats(eda.Samples, 6)
	vec = append(vec,
		scrRate/10,
		float64(len(peaks))/10,
		scrAmpMean,
		tonicSlope,
		tempTrend,
		tempFlux,
		hrvSpread,
		0,
	)

	return Embedding{Tag: s.Tag(), Vector: fitVector(vec), Features: features}, nil
}
