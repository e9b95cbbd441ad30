package fusion

import (
	"math"
	"math/rand"
	"sort"

	"github.com/vitalpath-ai/platform/pkg/common/fault"
	"github.com/vitalpath-ai/platform/pkg/pathway"
)

// querySeed fixes the default query vector so fusion is reproducible
// across processes.
const querySeed = 1789

// Fused is the joint representation handed to the predictor, with the
// attention weight kept per pathway for explainability.
type Fused struct {
	Vector  []float64               `json:"vector"`
	Weights map[pathway.Tag]float64 `json:"weights"`
}

// Engine combines pathway embeddings by scaled dot-product attention
// against a shared query vector.
type Engine struct {
	query []float64
}

// NewEngine builds an Engine with the given query vector.
func NewEngine(query []float64) *Engine {
	q := make([]float64, len(query))
	copy(q, query)
	return &Engine{query: q}
}

// DefaultQuery returns the built-in query vector for the given
// embedding dimension, drawn once from a fixed seed.
func DefaultQuery(dim int) []float64 {
	rng := rand.New(rand.NewSource(querySeed))
	q := make([]float64, dim)
	for i := range q {
		q[i] = rng.NormFloat64()
	}
	return q
}

// Fuse scores each embedding against the query, softmaxes the scores
// into weights and returns the weighted sum. Embeddings are sorted by
// tag first so the result does not depend on arrival order. A single
// embedding degenerates to weight exactly 1.0 and identity fusion.
func (e *Engine) Fuse(embeddings []pathway.Embedding) (*Fused, error) {
	if len(embeddings) == 0 {
		return nil, fault.New(fault.ClassConfig, fault.CodeEmptyPathwaySet,
			"no pathway embeddings to fuse")
	}
	for _, emb := range embeddings {
		if len(emb.Vector) != len(e.query) {
			return nil, fault.Newf(fault.ClassInternal, fault.CodeDimensionMismatch,
				"pathway %s emitted %d dims, engine expects %d", emb.Tag, len(emb.Vector), len(e.query))
		}
	}

	ordered := make([]pathway.Embedding, len(embeddings))
	copy(ordered, embeddings)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Tag < ordered[j].Tag })

	scale := math.Sqrt(float64(len(e.query)))
	scores := make([]float64, len(ordered))
	for i, emb := range ordered {
		var dot float64
		for d, q := range e.query {
			dot += q * emb.Vector[d]
		}
		scores[i] = dot / scale
	}

	weights := softmax(scores)

	out := &Fused{
		Vector:  make([]float64, len(e.query)),
		Weights: make(map[pathway.Tag]float64, len(ordered)),
	}
	for i, emb := range ordered {
		w := weights[i]
		out.Weights[emb.Tag] = w
		for d, v := range emb.Vector {
			out.Vector[d] += w * v
		}
	}
	return out, nil
}

// softmax is computed against the max score so large magnitudes cannot
// overflow the exponentials.
func softmax(scores []float64) []float64 {
	max := scores[0]
	for _, s := range scores[1:] {
		if s > max {
			max = s
		}
	}
	out := make([]float64, len(scores))
	var sum float64
	for i, s := range scores {
		out[i] = math.Exp(s - max)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
