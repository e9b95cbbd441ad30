package pathway

import (
	"context"

	"github.com/vitalpath-ai/platform/pkg/harmonize"
	"github.com/vitalpath-ai/platform/pkg/signal"
)

// Desaturation bounds are in standardized units. An event is a dip at
// least desatDepth below the running baseline lasting desatMinSeconds.
const (
	desatDepth      = 2.0
	desatMinSeconds = 10.0
	lowSatLevel     = -2.0
)

// Apnea counts oxygen desaturation episodes in the SpO2 series, the
// signal base for sleep apnea risk. Movement (ACC) and heart rate
// variability refine the picture when present.
type Apnea struct{}

func NewApnea() *Apnea { return &Apnea{} }

func (a *Apnea) Tag() Tag { return TagApnea }

func (a *Apnea) RequiredModalities() []signal.Modality {
	return []signal.Modality{signal.ModalitySpO2}
}

func (a *Apnea) OptionalModalities() []signal.Modality {
	return []signal.Modality{signal.ModalityACC, signal.ModalityHRV}
}

func (a *Apnea) NeedsImages() bool { return false }

func (a *Apnea) Extract(ctx context.Context, bundle *harmonize.Bundle) (Embedding, error) {
	if err := requireSignals(a.Tag(), bundle, signal.ModalitySpO2); err != nil {
		return Embedding{}, err
	}
	spo2, _ := bundle.Signal(signal.ModalitySpO2)

	baseline := percentile(spo2.Samples, 90)
	events, meanDepth := desaturations(spo2.Samples, baseline, spo2.Rate)

	hours := spo2.Duration().Hours()
	var odi float64
	if hours > 0 {
		odi = float64(events) / hours
	}

	low := 0
	minSat := 0.0
	for i, v := range spo2.Samples {
		if v < lowSatLevel {
			low++
		}
		if i == 0 || v < minSat {
			minSat = v
		}
	}
	lowFraction := float64(low) / float64(len(spo2.Samples))

	features := map[string]float64{
		"apnea.desat_count":      float64(events),
		"apnea.odi":              odi,
		"apnea.baseline":         baseline,
		"apnea.low_sat_fraction": lowFraction,
		"apnea.min_sat":          minSat,
		"apnea.mean_depth":       meanDepth,
	}

	var movement float64
	if acc, ok := bundle.Signal(signal.ModalityACC); ok {
		movement = rms(diffs(acc.Samples, 1))
		features["apnea.movement_index"] = movement
	}
	var hrvSpread float64
	if hrv, ok := bundle.Signal(signal.ModalityHRV); ok {
		hrvSpread = rms(diffs(hrv.Samples, 1))
		features["apnea.hrv_spread"] = hrvSpread
	}

	vec := segmentStats(spo2.Samples, 6)
	vec = append(vec,
		odi/10,
		float64(events)/10,
		baseline,
		lowFraction,
		minSat/3,
		meanDepth/3,
		movement,
		hrvSpread,
	)

	return Embedding{Tag: a.Tag(), Vector: fitVector(vec), Features: features}, nil
}

// desaturations counts qualifying dips below baseline-desatDepth and
// returns their mean depth. Runs shorter than desatMinSeconds are
// transient noise and are skipped.
func desaturations(samples []float64, baseline, rate float64) (int, float64) {
	minRun := int(desatMinSeconds * rate)
	if minRun < 1 {
		minRun = 1
	}
	floor := baseline - desatDepth

	events := 0
	var depthSum float64
	run := 0
	var runDepth float64
	flush := func() {
		if run >= minRun {
			events++
			depthSum += runDepth
		}
		run = 0
		runDepth = 0
	}
	for _, v := range samples {
		if v < floor {
			run++
			if d := baseline - v; d > runDepth {
				runDepth = d
			}
			continue
		}
		flush()
	}
	flush()

	if events == 0 {
		return 0, 0
	}
	return events, depthSum / float64(events)
}
