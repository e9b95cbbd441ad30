package pathway

import (
	"context"
	"sort"

	"github.com/vitalpath-ai/platform/pkg/common/fault"
	"github.com/vitalpath-ai/platform/pkg/harmonize"
	"github.com/vitalpath-ai/platform/pkg/signal"
)

// Tag identifies one of the five clinical extraction routes.
type Tag string

const (
	TagCardiac   Tag = "cardiac"
	TagApnea     Tag = "apnea"
	TagStress    Tag = "stress"
	TagAutonomic Tag = "autonomic"
	TagNeuro     Tag = "neuro"
)

// EmbeddingSize is the fixed vector length every extractor emits.
const EmbeddingSize = 32

// Embedding is one pathway's contribution to fusion: a fixed-length
// vector plus the interpretable diagnostic scalars that accompany it.
// Feature names are prefixed with the pathway tag, e.g. "apnea.odi".
type Embedding struct {
	Tag      Tag                `json:"tag"`
	Vector   []float64          `json:"vector"`
	Features map[string]float64 `json:"features"`
}

// Extractor is the capability shared by the five pathways. Extractors
// are pure: they read the immutable bundle and return a fresh
// embedding, so the orchestrator runs them concurrently without locks.
type Extractor interface {
	Tag() Tag
	RequiredModalities() []signal.Modality
	OptionalModalities() []signal.Modality
	NeedsImages() bool
	Extract(ctx context.Context, bundle *harmonize.Bundle) (Embedding, error)
}

// requireSignals checks that every mandatory modality is present before
// an extractor touches the bundle.
func requireSignals(tag Tag, bundle *harmonize.Bundle, required ...signal.Modality) error {
	for _, m := range required {
		if !bundle.Has(m) {
			return fault.Newf(fault.ClassConfig, fault.CodeMissingRequiredModality,
				"modality %s absent from bundle", m).WithPathway(string(tag))
		}
	}
	return nil
}

// Registry holds the fixed extractor set keyed by tag.
type Registry struct {
	extractors map[Tag]Extractor
}

// NewRegistry wires up the five built-in pathways.
func NewRegistry() *Registry {
	r := &Registry{extractors: make(map[Tag]Extractor)}
	for _, e := range []Extractor{
		NewCardiac(),
		NewApnea(),
		NewStress(),
		NewAutonomic(),
		NewNeuro(),
	} {
		r.Register(e)
	}
	return r
}

// Register adds or replaces an extractor. Deployments can mount custom
// pathways before the orchestrator starts; registration is not safe
// concurrently with extraction.
func (r *Registry) Register(e Extractor) {
	r.extractors[e.Tag()] = e
}

// Get returns the extractor registered for tag.
func (r *Registry) Get(tag Tag) (Extractor, bool) {
	e, ok := r.extractors[tag]
	return e, ok
}

// Tags lists registered pathways in lexical order so iteration is
// reproducible across runs.
func (r *Registry) Tags() []Tag {
	out := make([]Tag, 0, len(r.extractors))
	for tag := range r.extractors {
		out = append(out, tag)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Select resolves a set of tags to extractors, rejecting unknown tags.
func (r *Registry) Select(tags []Tag) ([]Extractor, error) {
	out := make([]Extractor, 0, len(tags))
	for _, tag := range tags {
		e, ok := r.extractors[tag]
		if !ok {
			return nil, fault.Newf(fault.ClassConfig, fault.CodeUnknownCondition,
				"no pathway registered for tag %q", tag)
		}
		out = append(out, e)
	}
	return out, nil
}
