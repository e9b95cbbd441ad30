package pathway

import (
	"context"
	"reflect"
	"sync"
	"testing"

	"github.com/vitalpath-ai/platform/pkg/common/fault"
	"github.com/vitalpath-ai/platform/pkg/harmonize"
	"github.com/vitalpath-ai/platform/pkg/imaging"
	"github.com/vitalpath-ai/platform/pkg/signal"
)

// newBundle builds a harmonized-shaped bundle directly so extractor
// tests control the exact sample values.
func newBundle(rate float64, series map[signal.Modality][]float64, images ...imaging.Image) *harmonize.Bundle {
	b := &harmonize.Bundle{
		Rate:    rate,
		Signals: make(map[signal.Modality]signal.Signal, len(series)),
		Images:  images,
	}
	for m, samples := range series {
		b.Signals[m] = signal.New(m, rate, samples)
	}
	return b
}

func TestRegistryTags(t *testing.T) {
	r := NewRegistry()
	want := []Tag{TagApnea, TagAutonomic, TagCardiac, TagNeuro, TagStress}
	got := r.Tags()
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("tags %v, want %v", got, want)
	}
	for _, tag := range want {
		e, ok := r.Get(tag)
		if !ok || e.Tag() != tag {
			t.Fatalf("registry missing %s", tag)
		}
	}
}

func TestRegistrySelectUnknown(t *testing.T) {
	r := NewRegistry()
	_, err := r.Select([]Tag{TagCardiac, Tag("phrenology")})
	if !fault.IsCode(err, fault.CodeUnknownCondition) {
		t.Fatalf("got %v", err)
	}
}

func TestExtractorsAreConcurrencySafe(t *testing.T) {
	bundle := newBundle(100, map[signal.Modality][]float64{
		signal.ModalityECG: impulseTrain(2000, 80, 3.0),
	})
	e := NewCardiac()

	base, err := e.Extract(context.Background(), bundle)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	var wg sync.WaitGroup
	results := make([]Embedding, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := e.Extract(context.Background(), bundle)
			if err != nil {
				t.Errorf("concurrent extract: %v", err)
				return
			}
			results[i] = out
		}(i)
	}
	wg.Wait()

	for i, got := range results {
		if !reflect.DeepEqual(got, base) {
			t.Fatalf("run %d diverged from the serial result", i)
		}
	}
}

func TestEmbeddingLengthFixed(t *testing.T) {
	bundles := map[Tag]*harmonize.Bundle{
		TagCardiac:   newBundle(100, map[signal.Modality][]float64{signal.ModalityECG: impulseTrain(2000, 80, 3.0)}),
		TagApnea:     newBundle(1, map[signal.Modality][]float64{signal.ModalitySpO2: flatline(600, 0.1)}),
		TagStress:    newBundle(100, map[signal.Modality][]float64{signal.ModalityEDA: impulseTrain(3000, 500, 2.0)}),
		TagAutonomic: newBundle(100, map[signal.Modality][]float64{signal.ModalityHRV: impulseTrain(3000, 90, 1.0)}),
		TagNeuro:     newBundle(100, nil, uniformSlice(16, 0.5)),
	}

	r := NewRegistry()
	for tag, bundle := range bundles {
		e, _ := r.Get(tag)
		out, err := e.Extract(context.Background(), bundle)
		if err != nil {
			t.Fatalf("%s: %v", tag, err)
		}
		if len(out.Vector) != EmbeddingSize {
			t.Fatalf("%s: vector length %d, want %d", tag, len(out.Vector), EmbeddingSize)
		}
		if out.Tag != tag {
			t.Fatalf("%s: embedding tagged %s", tag, out.Tag)
		}
		if len(out.Features) == 0 {
			t.Fatalf("%s: no diagnostic features", tag)
		}
	}
}

// impulseTrain puts a spike of the given amplitude every period
// samples on a flat floor slightly below zero.
func impulseTrain(n, period int, amplitude float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = -0.1
	}
	for i := period / 2; i < n; i += period {
		out[i] = amplitude
	}
	return out
}

func flatline(n int, level float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = level
	}
	return out
}

func uniformSlice(size int, level float64) imaging.Image {
	pixels := make([]float64, size*size)
	for i := range pixels {
		pixels[i] = level
	}
	return imaging.Image{SourceID: "t", Modality: imaging.ModalityMRI, Pixels: pixels, Width: size, Height: size, Depth: 1}
}
