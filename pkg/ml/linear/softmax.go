package linear

import "math"

// ClassWeights is a fitted multinomial head: one logistic head per
// class, normalized with a softmax at scoring time.
type ClassWeights struct {
	Classes []string  `yaml:"classes" json:"classes"`
	Heads   []Weights `yaml:"heads" json:"heads"`
}

// PredictClasses scores a feature vector against every class head and
// returns the softmax distribution, index-aligned with Classes. A
// degenerate all-zero score row falls back to the uniform distribution.
func PredictClasses(cw ClassWeights, sample []float64) []float64 {
	scores := make([]float64, len(cw.Heads))
	for i, head := range cw.Heads {
		scores[i] = dot(head.Coefficients, sample) + head.Bias
	}

	max := math.Inf(-1)
	for _, s := range scores {
		if s > max {
			max = s
		}
	}
	var sum float64
	out := make([]float64, len(scores))
	for i, s := range scores {
		out[i] = math.Exp(s - max)
		sum += out[i]
	}
	if sum == 0 {
		for i := range out {
			out[i] = 1 / float64(len(out))
		}
		return out
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
