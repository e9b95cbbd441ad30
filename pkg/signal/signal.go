package signal

import (
	"math"
	"time"
)

// Modality tags a time-series with its physiological source. The enumeration
// is closed; anything else is rejected at the ingestion boundary.
type Modality string

const (
	ModalityECG  Modality = "ECG"
	ModalitySpO2 Modality = "SPO2"
	ModalityHRV  Modality = "HRV"
	ModalityEDA  Modality = "EDA"
	ModalityTEMP Modality = "TEMP"
	ModalityACC  Modality = "ACC"
	ModalityPPG  Modality = "PPG"
)

// Modalities lists every supported signal modality in a stable order.
func Modalities() []Modality {
	return []Modality{
		ModalityECG,
		ModalitySpO2,
		ModalityHRV,
		ModalityEDA,
		ModalityTEMP,
		ModalityACC,
		ModalityPPG,
	}
}

// ParseModality maps a wire tag onto the enumeration.
func ParseModality(tag string) (Modality, bool) {
	for _, m := range Modalities() {
		if string(m) == tag {
			return m, true
		}
	}
	return "", false
}

type Quality string

const (
	QualityUnknown Quality = "unknown"
	QualityGood    Quality = "good"
	QualityFair    Quality = "fair"
	QualityPoor    Quality = "poor"
)

// Signal is an immutable run of floating-point samples at a fixed sampling
// rate. It is created once at ingestion and owned by exactly one job;
// harmonization derives new Signals instead of mutating in place.
type Signal struct {
	Samples  []float64 `json:"samples"`
	Rate     float64   `json:"rate"`
	Modality Modality  `json:"modality"`
	Quality  Quality   `json:"quality"`
}

// New builds a Signal, copying samples so the caller's slice stays detached.
func New(modality Modality, rate float64, samples []float64) Signal {
	cp := make([]float64, len(samples))
	copy(cp, samples)
	return Signal{Samples: cp, Rate: rate, Modality: modality, Quality: QualityUnknown}
}

// Derive produces a new Signal of the same modality with replacement samples
// and rate, preserving the source's quality tag.
func (s Signal) Derive(samples []float64, rate float64) Signal {
	cp := make([]float64, len(samples))
	copy(cp, samples)
	return Signal{Samples: cp, Rate: rate, Modality: s.Modality, Quality: s.Quality}
}

// Duration reports the span the samples cover at the recorded rate.
func (s Signal) Duration() time.Duration {
	if s.Rate <= 0 {
		return 0
	}
	seconds := float64(len(s.Samples)) / s.Rate
	return time.Duration(seconds * float64(time.Second))
}

// MissingRatio returns the fraction of samples that are NaN or infinite.
func (s Signal) MissingRatio() float64 {
	if len(s.Samples) == 0 {
		return 1
	}
	missing := 0
	for _, v := range s.Samples {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			missing++
		}
	}
	return float64(missing) / float64(len(s.Samples))
}
