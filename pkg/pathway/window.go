package pathway

import (
	"math"
	"sort"
)

// segmentStats splits samples into n contiguous segments and returns
// four moments per segment (mean, std, min, max), giving extractors a
// uniform 4n-length backbone for their embedding vectors.
func segmentStats(samples []float64, n int) []float64 {
	out := make([]float64, 0, 4*n)
	if len(samples) == 0 {
		return append(out, make([]float64, 4*n)...)
	}
	for i := 0; i < n; i++ {
		lo := i * len(samples) / n
		hi := (i + 1) * len(samples) / n
		if hi <= lo {
			hi = lo + 1
			if hi > len(samples) {
				lo, hi = len(samples)-1, len(samples)
			}
		}
		seg := samples[lo:hi]
		m, s := meanStd(seg)
		mn, mx := minMax(seg)
		out = append(out, m, s, mn, mx)
	}
	return out
}

// fitVector pads or truncates values to EmbeddingSize.
func fitVector(values []float64) []float64 {
	out := make([]float64, EmbeddingSize)
	copy(out, values)
	return out
}

func meanStd(samples []float64) (float64, float64) {
	if len(samples) == 0 {
		return 0, 0
	}
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

func minMax(samples []float64) (float64, float64) {
	if len(samples) == 0 {
		return 0, 0
	}
	mn, mx := samples[0], samples[0]
	for _, v := range samples[1:] {
		if v < mn {
			mn = v
		}
		if v > mx {
			mx = v
		}
	}
	return mn, mx
}

// percentile interpolates the p-th percentile of samples.
func percentile(samples []float64, p float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := p / 100 * float64(len(sorted)-1)
	i := int(math.Floor(pos))
	if i >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := pos - float64(i)
	return sorted[i] + frac*(sorted[i+1]-sorted[i])
}

// peakIndices finds local maxima above thresh separated by at least
// minGap samples. When two candidates crowd inside the gap the taller
// one wins, which keeps one detection per physiological event.
func peakIndices(samples []float64, thresh float64, minGap int) []int {
	var peaks []int
	for i := 1; i < len(samples)-1; i++ {
		v := samples[i]
		if v < thresh || v < samples[i-1] || v < samples[i+1] {
			continue
		}
		if n := len(peaks); n > 0 && i-peaks[n-1] < minGap {
			if v > samples[peaks[n-1]] {
				peaks[n-1] = i
			}
			continue
		}
		peaks = append(peaks, i)
	}
	return peaks
}

// diffs returns successive differences scaled by factor.
func diffs(values []float64, factor float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	out := make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		out[i-1] = (values[i] - values[i-1]) * factor
	}
	return out
}

// rms returns the root mean square of values.
func rms(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var ss float64
	for _, v := range values {
		ss += v * v
	}
	return math.Sqrt(ss / float64(len(values)))
}

// slope fits a least-squares line through values at unit spacing and
// returns its gradient.
func slope(values []float64) float64 {
	n := float64(len(values))
	if n < 2 {
		return 0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, v := range values {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
	}
	den := n*sumXX - sumX*sumX
	if den == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / den
}
