package predictor

import (
	"math/rand"

	"github.com/vitalpath-ai/platform/pkg/fusion"
)

// varianceScale maps score variance onto confidence: confidence is
// 1/(1+varianceScale*variance), so zero variance reads as full
// confidence and rising variance decays it smoothly.
const varianceScale = 4.0

// Quantifier estimates prediction stability by re-scoring each
// condition with dropout noise on the assembled feature sample.
type Quantifier struct {
	registry *Registry
	passes   int
	dropout  float64
}

// NewQuantifier builds a Quantifier running the given number of
// stochastic passes with the given feature dropout probability.
func NewQuantifier(registry *Registry, passes int, dropout float64) *Quantifier {
	return &Quantifier{registry: registry, passes: passes, dropout: dropout}
}

// Quantify replaces each prediction's Confidence with a variance-based
// estimate and returns the job-level uncertainty, defined as one minus
// the best confidence across conditions. The RNG is seeded per job so
// repeated polling never observes a different answer. Fewer than two
// passes leave the calibration confidences untouched.
func (q *Quantifier) Quantify(seed int64, preds []Prediction, fused *fusion.Fused, diagnostics map[string]float64) float64 {
	if q.passes >= 2 {
		rng := rand.New(rand.NewSource(seed))
		for i := range preds {
			spec, ok := q.registry.Lookup(preds[i].Condition)
			if !ok {
				continue
			}
			sample := assemble(spec.FeatureNames, fused, diagnostics)
			preds[i].Confidence = confidence(q.sampleVariance(rng, spec, sample))
		}
	}

	best := 0.0
	for _, p := range preds {
		if p.Confidence > best {
			best = p.Confidence
		}
	}
	if len(preds) == 0 {
		return 0
	}
	return 1 - best
}

// sampleVariance runs the stochastic passes and returns the unbiased
// variance of the risk score.
func (q *Quantifier) sampleVariance(rng *rand.Rand, spec ModelSpec, sample []float64) float64 {
	scores := make([]float64, q.passes)
	noisy := make([]float64, len(sample))
	keep := 1 - q.dropout
	for pass := 0; pass < q.passes; pass++ {
		for i, v := range sample {
			if q.dropout > 0 && rng.Float64() < q.dropout {
				noisy[i] = 0
				continue
			}
			// Inverted dropout keeps the expected magnitude stable.
			noisy[i] = v / keep
		}
		scores[pass], _ = score(spec, noisy)
	}

	var mean float64
	for _, s := range scores {
		mean += s
	}
	mean /= float64(len(scores))

	var ss float64
	for _, s := range scores {
		d := s - mean
		ss += d * d
	}
	return ss / float64(len(scores)-1)
}

func confidence(variance float64) float64 {
	return 1 / (1 + varianceScale*variance)
}
