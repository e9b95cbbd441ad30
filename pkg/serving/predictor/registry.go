package predictor

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/vitalpath-ai/platform/pkg/ml/linear"
	"github.com/vitalpath-ai/platform/pkg/pathway"
)

// Kind separates independent sigmoid conditions from mutually
// exclusive categorical ones.
type Kind string

const (
	KindBinary      Kind = "binary"
	KindCategorical Kind = "categorical"
)

// ClassNone is the categorical outcome meaning no finding; risk for a
// categorical condition is the probability mass on everything else.
const ClassNone = "none"

// ModelSpec binds one supported condition to a versioned scoring
// artifact. FeatureNames declare the sample layout: `fused_<i>` pulls
// component i of the fused vector, any other name pulls a pathway
// diagnostic feature.
type ModelSpec struct {
	Condition    string              `yaml:"condition" json:"condition"`
	ModelID      string              `yaml:"model_id" json:"model_id"`
	Version      string              `yaml:"version" json:"version"`
	Pathway      pathway.Tag         `yaml:"pathway" json:"pathway"`
	Kind         Kind                `yaml:"kind" json:"kind"`
	Calibration  float64             `yaml:"calibration" json:"calibration"`
	FeatureNames []string            `yaml:"feature_names" json:"feature_names"`
	Weights      linear.Weights      `yaml:"weights" json:"weights"`
	Heads        linear.ClassWeights `yaml:"heads" json:"heads"`
}

// Registry is the catalog of supported conditions.
type Registry struct {
	specs map[string]ModelSpec
}

// LoadRegistry reads a model catalog from YAML, falling back to the
// compiled defaults when no path is given.
func LoadRegistry(path string) (*Registry, error) {
	if path == "" {
		return DefaultRegistry(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	var doc struct {
		Models []ModelSpec `yaml:"models"`
	}
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, err
	}
	if len(doc.Models) == 0 {
		return nil, fmt.Errorf("model catalog %s is empty", path)
	}
	return NewRegistry(doc.Models...), nil
}

// NewRegistry builds a Registry from explicit specs.
func NewRegistry(specs ...ModelSpec) *Registry {
	r := &Registry{specs: make(map[string]ModelSpec, len(specs))}
	for _, s := range specs {
		r.specs[s.Condition] = s
	}
	return r
}

// Lookup returns the ModelSpec registered for a condition.
func (r *Registry) Lookup(condition string) (ModelSpec, bool) {
	s, ok := r.specs[condition]
	return s, ok
}

// Conditions lists supported conditions in lexical order.
func (r *Registry) Conditions() []string {
	out := make([]string, 0, len(r.specs))
	for c := range r.specs {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// PathwayFor maps a condition to the pathway that must run for it.
func (r *Registry) PathwayFor(condition string) (pathway.Tag, bool) {
	s, ok := r.specs[condition]
	if !ok {
		return "", false
	}
	return s.Pathway, true
}

// DefaultRegistry returns the built-in catalog covering the five
// pathways. Coefficients are hand-calibrated against the diagnostic
// feature scales the extractors emit.
func DefaultRegistry() *Registry {
	return NewRegistry(
		ModelSpec{
			Condition:   "afib",
			ModelID:     "afib-lr",
			Version:     "1.3.0",
			Pathway:     pathway.TagCardiac,
			Kind:        KindBinary,
			Calibration: 0.85,
			FeatureNames: []string{
				"cardiac.irregularity",
				"cardiac.rmssd_ms",
				"cardiac.pnn50",
				"cardiac.heart_rate_bpm",
				"fused_28",
				"fused_0",
			},
			Weights: linear.Weights{
				Bias:         -2.2,
				Coefficients: []float64{8.0, 0.004, 2.0, 0.002, 0.5, 0.1},
			},
		},
		ModelSpec{
			Condition:   "sleep_apnea",
			ModelID:     "apnea-lr",
			Version:     "2.0.1",
			Pathway:     pathway.TagApnea,
			Kind:        KindBinary,
			Calibration: 0.82,
			FeatureNames: []string{
				"apnea.odi",
				"apnea.low_sat_fraction",
				"apnea.mean_depth",
				"apnea.desat_count",
				"fused_25",
				"fused_1",
			},
			Weights: linear.Weights{
				Bias:         -2.5,
				Coefficients: []float64{0.12, 4.0, 0.3, 0.02, 0.5, 0.1},
			},
		},
		ModelSpec{
			Condition:   "chronic_stress",
			ModelID:     "stress-lr",
			Version:     "1.1.2",
			Pathway:     pathway.TagStress,
			Kind:        KindBinary,
			Calibration: 0.78,
			FeatureNames: []string{
				"stress.scr_rate_per_min",
				"stress.tonic_slope",
				"stress.scr_amp_mean",
				"stress.hrv_spread",
				"fused_24",
				"fused_2",
			},
			Weights: linear.Weights{
				Bias:         -2.0,
				Coefficients: []float64{0.15, 1.5, 0.4, -0.8, 0.4, 0.1},
			},
		},
		ModelSpec{
			Condition:   "autonomic_dysfunction",
			ModelID:     "autonomic-lr",
			Version:     "1.0.4",
			Pathway:     pathway.TagAutonomic,
			Kind:        KindBinary,
			Calibration: 0.8,
			FeatureNames: []string{
				"autonomic.rmssd",
				"autonomic.lf_hf_ratio",
				"autonomic.short_term_var",
				"autonomic.range",
				"fused_26",
				"fused_3",
			},
			Weights: linear.Weights{
				Bias:         0.5,
				Coefficients: []float64{-1.2, 0.08, -0.6, -0.05, 0.3, 0.1},
			},
		},
		ModelSpec{
			Condition:   "brain_tumor",
			ModelID:     "neuro-softmax",
			Version:     "3.2.0",
			Pathway:     pathway.TagNeuro,
			Kind:        KindCategorical,
			Calibration: 0.75,
			FeatureNames: []string{
				"neuro.bright_fraction",
				"neuro.asymmetry",
				"neuro.edge_density",
				"neuro.max_asymmetry",
				"fused_20",
				"fused_21",
			},
			Heads: linear.ClassWeights{
				Classes: []string{ClassNone, "glioma", "meningioma", "pituitary"},
				Heads: []linear.Weights{
					{Bias: 2.5, Coefficients: []float64{-2.0, -1.5, -0.5, -0.8, 0.1, 0.1}},
					{Bias: -0.5, Coefficients: []float64{1.8, 1.2, 0.8, 0.9, 0.1, 0.0}},
					{Bias: -0.8, Coefficients: []float64{1.2, 0.5, 1.0, 0.4, 0.0, 0.1}},
					{Bias: -1.0, Coefficients: []float64{0.8, 0.3, 0.3, 0.2, 0.1, 0.1}},
				},
			},
		},
	)
}
