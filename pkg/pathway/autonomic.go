package pathway

import (
	"context"

	"github.com/vitalpath-ai/platform/pkg/harmonize"
	"github.com/vitalpath-ai/platform/pkg/signal"
)

// Band split for the sympathovagal proxy: fluctuations slower than
// lfHfSplitSeconds count as low frequency, the residual as high.
const lfHfSplitSeconds = 7.0

// shortVarSeconds is the window for short-term variability.
const shortVarSeconds = 5.0

// Autonomic summarizes heart rate variability dynamics, the signal
// base for autonomic dysfunction risk.
type Autonomic struct{}

func NewAutonomic() *Autonomic { return &Autonomic{} }

func (a *Autonomic) Tag() Tag { return TagAutonomic }

func (a *Autonomic) RequiredModalities() []signal.Modality {
	return []signal.Modality{signal.ModalityHRV}
}

func (a *Autonomic) OptionalModalities() []signal.Modality {
	return []signal.Modality{signal.ModalityECG, signal.ModalityTEMP}
}

func (a *Autonomic) NeedsImages() bool { return false }

func (a *Autonomic) Extract(ctx context.Context, bundle *harmonize.Bundle) (Embedding, error) {
	if err := requireSignals(a.Tag(), bundle, signal.ModalityHRV); err != nil {
		return Embedding{}, err
	}
	hrv, _ := bundle.Signal(signal.ModalityHRV)

	rmssd := rms(diffs(hrv.Samples, 1))
	shortVar := windowedStd(hrv.Samples, int(shortVarSeconds*hrv.Rate))
	lfhf := lfHfProxy(hrv.Samples, hrv.Rate)
	mn, mx := minMax(hrv.Samples)

	features := map[string]float64{
		"autonomic.rmssd":          rmssd,
		"autonomic.short_term_var": shortVar,
		"autonomic.lf_hf_ratio":    lfhf,
		"autonomic.range":          mx - mn,
	}

	var ecgCV float64
	if ecg, ok := bundle.Signal(signal.ModalityECG); ok {
		gap := int(rPeakRefractory * ecg.Rate)
		if gap < 1 {
			gap = 1
		}
		rr := rrIntervalsMS(peakIndices(ecg.Samples, rPeakThreshold, gap), ecg.Rate)
		if m, s := meanStd(rr); m > 0 {
			ecgCV = s / m
		}
		features["autonomic.ecg_cv"] = ecgCV
	}
	var tempSlope float64
	if temp, ok := bundle.Signal(signal.ModalityTEMP); ok {
		tempSlope = slope(temp.Samples) * temp.Rate * 60
		features["autonomic.temp_slope"] = tempSlope
	}

	vec := segmentStats(hrv.Samples, 6)
	vec = append(vec,
		rmssd,
		shortVar,
		lfhf/10,
		(mx-mn)/6,
		ecgCV,
		tempSlope,
		0,
		0,
	)

	return Embedding{Tag: a.Tag(), Vector: fitVector(vec), Features: features}, nil
}

// windowedStd averages the standard deviation over fixed windows,
// recovering local spread that global standardization flattens.
func windowedStd(samples []float64, window int) float64 {
	if window < 2 || len(samples) < window {
		_, s := meanStd(samples)
		return s
	}
	var sum float64
	n := 0
	for lo := 0; lo+window <= len(samples); lo += window {
		_, s := meanStd(samples[lo : lo+window])
		sum += s
		n++
	}
	return sum / float64(n)
}

// lfHfProxy splits the series into a slow moving-average component and
// its residual and returns their energy ratio. A crude stand-in for a
// spectral LF/HF split that needs no transform.
func lfHfProxy(samples []float64, rate float64) float64 {
	window := int(lfHfSplitSeconds * rate)
	if window < 2 || len(samples) < window {
		return 0
	}
	slow := movingMean(samples, window)
	fast := make([]float64, len(samples))
	for i := range samples {
		fast[i] = samples[i] - slow[i]
	}
	hf := rms(fast)
	if hf == 0 {
		return 0
	}
	return rms(slow) / hf
}

// movingMean returns the centered moving average with edge clamping.
func movingMean(samples []float64, window int) []float64 {
	out := make([]float64, len(samples))
	half := window / 2
	for i := range samples {
		lo := i - half
		hi := i + half + 1
		if lo < 0 {
			lo = 0
		}
		if hi > len(samples) {
			hi = len(samples)
		}
		var sum float64
		for _, v := range samples[lo:hi] {
			sum += v
		}
		out[i] = sum / float64(hi-lo)
	}
	return out
}
