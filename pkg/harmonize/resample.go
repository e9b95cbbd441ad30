package harmonize

import "math"

// Resample converts samples from srcRate to dstRate using Catmull-Rom
// cubic interpolation, which passes through every source sample and
// keeps local curvature, so waveform morphology such as the QRS complex
// survives the rate change. When the rates already match, a copy is
// returned unchanged.
func Resample(samples []float64, srcRate, dstRate float64) []float64 {
	if len(samples) == 0 {
		return []float64{}
	}
	if srcRate == dstRate {
		out := make([]float64, len(samples))
		copy(out, samples)
		return out
	}

	n := int(math.Round(float64(len(samples)) * dstRate / srcRate))
	if n < 1 {
		n = 1
	}
	out := make([]float64, n)
	ratio := srcRate / dstRate
	last := len(samples) - 1

	for j := 0; j < n; j++ {
		pos := float64(j) * ratio
		i := int(math.Floor(pos))
		if i > last {
			i = last
		}
		t := pos - float64(i)

		p0 := samples[clampIndex(i-1, last)]
		p1 := samples[clampIndex(i, last)]
		p2 := samples[clampIndex(i+1, last)]
		p3 := samples[clampIndex(i+2, last)]

		out[j] = catmullRom(p0, p1, p2, p3, t)
	}
	return out
}

// catmullRom evaluates the spline between p1 and p2 at t in [0, 1).
func catmullRom(p0, p1, p2, p3, t float64) float64 {
	t2 := t * t
	t3 := t2 * t
	return 0.5 * ((2 * p1) +
		(-p0+p2)*t +
		(2*p0-5*p1+4*p2-p3)*t2 +
		(-p0+3*p1-3*p2+p3)*t3)
}

func clampIndex(i, max int) int {
	if i < 0 {
		return 0
	}
	if i > max {
		return max
	}
	return i
}
