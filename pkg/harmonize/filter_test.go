package harmonize

import (
	"math"
	"testing"
)

func sine(freq, rate float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * freq * float64(i) / rate)
	}
	return out
}

// toneAmplitude projects samples onto a sine at freq and returns the
// recovered amplitude.
func toneAmplitude(samples []float64, freq, rate float64) float64 {
	var sin, cos float64
	for i, v := range samples {
		phase := 2 * math.Pi * freq * float64(i) / rate
		sin += v * math.Sin(phase)
		cos += v * math.Cos(phase)
	}
	n := float64(len(samples))
	return 2 * math.Hypot(sin, cos) / n
}

func TestHighPassRemovesBaseline(t *testing.T) {
	rate := 100.0
	in := sine(5, rate, 1000)
	for i := range in {
		in[i] += 5.0
	}

	out := HighPass(in, 0.5, rate)

	var mean float64
	for _, v := range out {
		mean += v
	}
	mean /= float64(len(out))
	if math.Abs(mean) > 0.2 {
		t.Fatalf("baseline survived high-pass: mean %v", mean)
	}
	if amp := toneAmplitude(out, 5, rate); math.Abs(amp-1) > 0.1 {
		t.Fatalf("in-band tone amplitude %v, want about 1", amp)
	}
}

func TestLowPassAttenuatesNoise(t *testing.T) {
	rate := 200.0
	n := 2000
	in := make([]float64, n)
	for i := range in {
		ts := float64(i) / rate
		in[i] = math.Sin(2*math.Pi*2*ts) + math.Sin(2*math.Pi*45*ts)
	}

	out := LowPass(in, 10, rate)

	if amp := toneAmplitude(out, 45, rate); amp > 0.05 {
		t.Fatalf("45Hz tone amplitude %v after 10Hz low-pass", amp)
	}
	if amp := toneAmplitude(out, 2, rate); math.Abs(amp-1) > 0.1 {
		t.Fatalf("2Hz tone amplitude %v, want about 1", amp)
	}
}

func TestFiltersAreZeroPhase(t *testing.T) {
	rate := 100.0
	in := sine(1, rate, 500)
	out := LowPass(in, 10, rate)

	// The first positive peak of a 1Hz sine at 100Hz sits at sample 25.
	peakIn, peakOut := argmax(in[:100]), argmax(out[:100])
	if d := peakIn - peakOut; d < -1 || d > 1 {
		t.Fatalf("peak shifted from %d to %d", peakIn, peakOut)
	}
}

func TestFilterDisabledOutsideNyquist(t *testing.T) {
	in := []float64{1, 2, 3, 4}
	out := LowPass(in, 80, 100) // cutoff above Nyquist
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("sample %d changed with disabled filter", i)
		}
	}
	out = HighPass(in, 0, 100)
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("sample %d changed with zero cutoff", i)
		}
	}
}

func argmax(s []float64) int {
	best := 0
	for i, v := range s {
		if v > s[best] {
			best = i
		}
	}
	return best
}
