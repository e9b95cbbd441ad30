package predictor

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/vitalpath-ai/platform/pkg/common/fault"
	"github.com/vitalpath-ai/platform/pkg/fusion"
	"github.com/vitalpath-ai/platform/pkg/ml/linear"
)

// Risk bucket boundaries, shared by every condition.
const (
	bucketModerate = 0.25
	bucketElevated = 0.5
	bucketHigh     = 0.75
)

// attributionLimit caps the ranked attribution list per prediction.
const attributionLimit = 8

// Attribution is one feature's contribution to the risk score,
// measured by occluding the feature and re-scoring.
type Attribution struct {
	Feature      string  `json:"feature"`
	Contribution float64 `json:"contribution"`
}

// Prediction is the per-condition output contract: bounded risk, a
// bucket, a confidence, the stamping model identity, and ranked
// attributions. Classes is populated for categorical conditions only.
type Prediction struct {
	Condition    string             `json:"condition"`
	ModelID      string             `json:"model_id"`
	ModelVersion string             `json:"model_version"`
	Kind         Kind               `json:"kind"`
	Risk         float64            `json:"risk_score"`
	Bucket       string             `json:"risk_bucket"`
	Classes      map[string]float64 `json:"classes,omitempty"`
	Confidence   float64            `json:"confidence"`
	Attributions []Attribution      `json:"attributions"`
}

// Predictor scores fused representations against the model registry.
type Predictor struct {
	registry *Registry
}

// New builds a Predictor over the given registry.
func New(registry *Registry) *Predictor {
	return &Predictor{registry: registry}
}

// Registry exposes the catalog backing this predictor.
func (p *Predictor) Registry() *Registry { return p.registry }

// Predict produces one Prediction per requested condition. Confidence
// starts at the model's calibration constant; the uncertainty
// quantifier replaces it when enabled.
func (p *Predictor) Predict(conditions []string, fused *fusion.Fused, diagnostics map[string]float64) ([]Prediction, error) {
	out := make([]Prediction, 0, len(conditions))
	for _, condition := range conditions {
		spec, ok := p.registry.Lookup(condition)
		if !ok {
			return nil, fault.Newf(fault.ClassConfig, fault.CodeUnknownCondition,
				"no model registered for condition %q", condition)
		}

		sample := assemble(spec.FeatureNames, fused, diagnostics)
		risk, classes := score(spec, sample)

		out = append(out, Prediction{
			Condition:    condition,
			ModelID:      spec.ModelID,
			ModelVersion: spec.Version,
			Kind:         spec.Kind,
			Risk:         risk,
			Bucket:       RiskBucket(risk),
			Classes:      classes,
			Confidence:   spec.Calibration,
			Attributions: attributions(spec, sample, risk),
		})
	}
	return out, nil
}

// RiskBucket maps a score onto the fixed reporting buckets.
func RiskBucket(score float64) string {
	switch {
	case score < bucketModerate:
		return "low"
	case score < bucketElevated:
		return "moderate"
	case score < bucketHigh:
		return "elevated"
	default:
		return "high"
	}
}

// score runs the artifact over the sample. Binary conditions return a
// sigmoid risk; categorical conditions return the class distribution
// with risk defined as the mass off the none class.
func score(spec ModelSpec, sample []float64) (float64, map[string]float64) {
	if spec.Kind == KindCategorical {
		probs := linear.PredictClasses(spec.Heads, sample)
		classes := make(map[string]float64, len(probs))
		risk := 0.0
		sawNone := false
		maxProb := 0.0
		for i, class := range spec.Heads.Classes {
			classes[class] = probs[i]
			if class == ClassNone {
				risk = 1 - probs[i]
				sawNone = true
			}
			if probs[i] > maxProb {
				maxProb = probs[i]
			}
		}
		if !sawNone {
			risk = maxProb
		}
		return risk, classes
	}
	return linear.Predict(spec.Weights, sample), nil
}

// attributions occludes one feature at a time and ranks features by
// how much their removal moves the risk score.
func attributions(spec ModelSpec, sample []float64, base float64) []Attribution {
	out := make([]Attribution, 0, len(sample))
	occluded := make([]float64, len(sample))
	for i, name := range spec.FeatureNames {
		copy(occluded, sample)
		occluded[i] = 0
		risk, _ := score(spec, occluded)
		out = append(out, Attribution{Feature: name, Contribution: base - risk})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return math.Abs(out[i].Contribution) > math.Abs(out[j].Contribution)
	})
	if len(out) > attributionLimit {
		out = out[:attributionLimit]
	}
	return out
}

// assemble builds the sample vector declared by the feature names.
// Diagnostic features from optional modalities may legitimately be
// absent and read as zero.
func assemble(names []string, fused *fusion.Fused, diagnostics map[string]float64) []float64 {
	sample := make([]float64, len(names))
	for i, name := range names {
		if idx, ok := fusedIndex(name); ok {
			if fused != nil && idx < len(fused.Vector) {
				sample[i] = fused.Vector[idx]
			}
			continue
		}
		sample[i] = diagnostics[name]
	}
	return sample
}

func fusedIndex(name string) (int, bool) {
	rest, ok := strings.CutPrefix(name, "fused_")
	if !ok {
		return 0, false
	}
	idx, err := strconv.Atoi(rest)
	if err != nil || idx < 0 {
		return 0, false
	}
	return idx, true
}
