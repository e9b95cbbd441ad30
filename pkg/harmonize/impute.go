package harmonize

import "math"

// Impute fills non-finite samples by linear interpolation between the
// nearest finite neighbours. Runs touching the sequence edges have no
// neighbour on one side and fall back to carry-backward/carry-forward.
// Returns a new slice; the input is never modified.
func Impute(samples []float64) []float64 {
	out := make([]float64, len(samples))
	copy(out, samples)
	if len(out) == 0 {
		return out
	}

	firstFinite := -1
	for i, v := range out {
		if isFinite(v) {
			firstFinite = i
			break
		}
	}
	if firstFinite < 0 {
		// Nothing to anchor on; validation upstream bounds the missing
		// ratio, so this only happens for signals that never validated.
		for i := range out {
			out[i] = 0
		}
		return out
	}

	for i := 0; i < firstFinite; i++ {
		out[i] = out[firstFinite]
	}

	lastFinite := firstFinite
	for i := firstFinite + 1; i < len(out); i++ {
		if !isFinite(out[i]) {
			continue
		}
		if gap := i - lastFinite; gap > 1 {
			step := (out[i] - out[lastFinite]) / float64(gap)
			for j := lastFinite + 1; j < i; j++ {
				out[j] = out[lastFinite] + step*float64(j-lastFinite)
			}
		}
		lastFinite = i
	}

	for i := lastFinite + 1; i < len(out); i++ {
		out[i] = out[lastFinite]
	}

	return out
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
