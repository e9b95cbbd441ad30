package harmonize

import "math"

// minStdDev guards against division blowup on near-constant signals.
const minStdDev = 1e-9

// Standardize rescales samples to zero mean and unit variance. A
// standard deviation below minStdDev is treated as 1.0 so constant
// signals come out centered instead of exploding.
func Standardize(samples []float64) []float64 {
	out := make([]float64, len(samples))
	if len(samples) == 0 {
		return out
	}

	mean, std := meanStd(samples)
	if std < minStdDev {
		std = 1.0
	}
	for i, v := range samples {
		out[i] = (v - mean) / std
	}
	return out
}

func meanStd(samples []float64) (float64, float64) {
	var sum float64
	for _, v := range samples {
		sum += v
	}
	mean := sum / float64(len(samples))

	var ss float64
	for _, v := range samples {
		d := v - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / float64(len(samples)))
}
