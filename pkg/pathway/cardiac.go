package pathway

import (
	"context"
	"math"

	"github.com/vitalpath-ai/platform/pkg/harmonize"
	"github.com/vitalpath-ai/platform/pkg/signal"
)

// rPeakThreshold is in standardized units; harmonized ECG has unit
// variance, so R waves sit well above it while T waves stay below.
const rPeakThreshold = 1.5

// rPeakRefractory is the minimum R-R separation considered, in seconds.
const rPeakRefractory = 0.25

// Cardiac detects R peaks in the ECG and summarizes beat-to-beat
// variability, the signal base for atrial fibrillation risk.
type Cardiac struct{}

func NewCardiac() *Cardiac { return &Cardiac{} }

func (c *Cardiac) Tag() Tag { return TagCardiac }

func (c *Cardiac) RequiredModalities() []signal.Modality {
	return []signal.Modality{signal.ModalityECG}
}

func (c *Cardiac) OptionalModalities() []signal.Modality {
	return []signal.Modality{signal.ModalityPPG, signal.ModalityHRV}
}

func (c *Cardiac) NeedsImages() bool { return false }

func (c *Cardiac) Extract(ctx context.Context, bundle *harmonize.Bundle) (Embedding, error) {
	if err := requireSignals(c.Tag(), bundle, signal.ModalityECG); err != nil {
		return Embedding{}, err
	}
	ecg, _ := bundle.Signal(signal.ModalityECG)

	gap := int(rPeakRefractory * ecg.Rate)
	if gap < 1 {
		gap = 1
	}
	peaks := peakIndices(ecg.Samples, rPeakThreshold, gap)

	rr := rrIntervalsMS(peaks, ecg.Rate)
	meanRR, sdnn := meanStd(rr)
	succ := diffs(rr, 1)
	rmssd := rms(succ)
	pnn50 := fractionAbove(succ, 50)

	var bpm, irregularity float64
	if meanRR > 0 {
		bpm = 60000 / meanRR
		irregularity = sdnn / meanRR
	}

	features := map[string]float64{
		"cardiac.beat_count":     float64(len(peaks)),
		"cardiac.mean_rr_ms":     meanRR,
		"cardiac.heart_rate_bpm": bpm,
		"cardiac.sdnn_ms":        sdnn,
		"cardiac.rmssd_ms":       rmssd,
		"cardiac.pnn50":          pnn50,
		"cardiac.irregularity":   irregularity,
	}

	var ppgCoupling float64
	if ppg, ok := bundle.Signal(signal.ModalityPPG); ok && len(peaks) > 0 {
		pulses := peakIndices(ppg.Samples, rPeakThreshold, gap)
		ppgCoupling = float64(len(pulses)) / float64(len(peaks))
		features["cardiac.ppg_coupling"] = ppgCoupling
	}
	var hrvSpread float64
	if hrv, ok := bundle.Signal(signal.ModalityHRV); ok {
		hrvSpread = rms(diffs(hrv.Samples, 1))
		features["cardiac.hrv_spread"] = hrvSpread
	}

	vec := segmentStats(ecg.Samples, 6)
	vec = append(vec,
		meanRR/1000,
		sdnn/100,
		rmssd/100,
		pnn50,
		irregularity,
		bpm/100,
		ppgCoupling,
		hrvSpread,
	)

	return Embedding{Tag: c.Tag(), Vector: fitVector(vec), Features: features}, nil
}

// rrIntervalsMS converts peak sample indices to inter-beat intervals
// in milliseconds.
func rrIntervalsMS(peaks []int, rate float64) []float64 {
	if len(peaks) < 2 || rate <= 0 {
		return nil
	}
	out := make([]float64, len(peaks)-1)
	for i := 1; i < len(peaks); i++ {
		out[i-1] = float64(peaks[i]-peaks[i-1]) / rate * 1000
	}
	return out
}

// fractionAbove returns the share of values with magnitude above limit.
func fractionAbove(values []float64, limit float64) float64 {
	if len(values) == 0 {
		return 0
	}
	count := 0
	for _, v := range values {
		if math.Abs(v) > limit {
			count++
		}
	}
	return float64(count) / float64(len(values))
}
