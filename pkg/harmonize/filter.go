package harmonize

import "math"

// biquad holds normalized second-order IIR coefficients (a0 == 1).
type biquad struct {
	b0, b1, b2 float64
	a1, a2     float64
}

// lowPassCoeffs designs a second-order Butterworth low-pass section via
// the bilinear transform.
func lowPassCoeffs(cutoffHz, rate float64) biquad {
	w := math.Tan(math.Pi * cutoffHz / rate)
	k1 := math.Sqrt2 * w
	k2 := w * w
	a0 := 1 + k1 + k2
	return biquad{
		b0: k2 / a0,
		b1: 2 * k2 / a0,
		b2: k2 / a0,
		a1: 2 * (k2 - 1) / a0,
		a2: (1 - k1 + k2) / a0,
	}
}

// highPassCoeffs designs a second-order Butterworth high-pass section.
func highPassCoeffs(cutoffHz, rate float64) biquad {
	w := math.Tan(math.Pi * cutoffHz / rate)
	k1 := math.Sqrt2 * w
	k2 := w * w
	a0 := 1 + k1 + k2
	return biquad{
		b0: 1 / a0,
		b1: -2 / a0,
		b2: 1 / a0,
		a1: 2 * (k2 - 1) / a0,
		a2: (1 - k1 + k2) / a0,
	}
}

// apply runs the section over samples in direct form I, writing into out.
// out and samples may alias only if identical.
func (f biquad) apply(out, samples []float64) {
	var x1, x2, y1, y2 float64
	for i, x := range samples {
		y := f.b0*x + f.b1*x1 + f.b2*x2 - f.a1*y1 - f.a2*y2
		x2, x1 = x1, x
		y2, y1 = y1, y
		out[i] = y
	}
}

// filtfilt applies the section forward and then backward so the phase
// contributions cancel. Peaks and troughs stay where the sensor put
// them, at the cost of squaring the magnitude response.
func filtfilt(f biquad, samples []float64) []float64 {
	out := make([]float64, len(samples))
	f.apply(out, samples)
	reverse(out)
	f.apply(out, out)
	reverse(out)
	return out
}

func reverse(s []float64) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

// HighPass removes baseline drift below cutoffHz with zero phase
// distortion. A cutoff at or below zero, or at or above Nyquist,
// disables the stage and returns a copy.
func HighPass(samples []float64, cutoffHz, rate float64) []float64 {
	if cutoffHz <= 0 || cutoffHz >= rate/2 {
		out := make([]float64, len(samples))
		copy(out, samples)
		return out
	}
	return filtfilt(highPassCoeffs(cutoffHz, rate), samples)
}

// LowPass removes noise above cutoffHz with zero phase distortion.
// Cutoffs outside (0, Nyquist) disable the stage.
func LowPass(samples []float64, cutoffHz, rate float64) []float64 {
	if cutoffHz <= 0 || cutoffHz >= rate/2 {
		out := make([]float64, len(samples))
		copy(out, samples)
		return out
	}
	return filtfilt(lowPassCoeffs(cutoffHz, rate), samples)
}
