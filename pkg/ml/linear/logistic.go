// Package linear holds the scoring primitives behind versioned model
// artifacts. Artifacts ship fitted weights; nothing here fits them.
package linear

import "math"

// Weights is a fitted logistic head: risk = sigmoid(w·x + b).
type Weights struct {
	Bias         float64   `yaml:"bias" json:"bias"`
	Coefficients []float64 `yaml:"coefficients" json:"coefficients"`
}

// Predict scores a feature vector with a logistic head. Feature order
// must match the artifact's declared feature names.
func Predict(weights Weights, sample []float64) float64 {
	return sigmoid(dot(weights.Coefficients, sample) + weights.Bias)
}

func dot(weights []float64, sample []float64) float64 {
	n := len(weights)
	if len(sample) < n {
		n = len(sample)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += weights[i] * sample[i]
	}
	return sum
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
