package pathway

import (
	"context"
	"math"

	"github.com/vitalpath-ai/platform/pkg/common/fault"
	"github.com/vitalpath-ai/platform/pkg/harmonize"
	"github.com/vitalpath-ai/platform/pkg/imaging"
	"github.com/vitalpath-ai/platform/pkg/signal"
)

// histBins buckets standardized intensities over [histLo, histHi] into
// the first part of the embedding vector.
const (
	histBins = 20
	histLo   = -3.0
	histHi   = 3.0
)

// brightThreshold marks hyperintense tissue in standardized units.
const brightThreshold = 1.5

// Neuro summarizes normalized MRI/CT slices with intensity, edge and
// asymmetry statistics, the signal base for brain lesion risk. It is
// the only pathway fed by images instead of time series.
type Neuro struct{}

func NewNeuro() *Neuro { return &Neuro{} }

func (n *Neuro) Tag() Tag { return TagNeuro }

func (n *Neuro) RequiredModalities() []signal.Modality { return nil }

func (n *Neuro) OptionalModalities() []signal.Modality { return nil }

func (n *Neuro) NeedsImages() bool { return true }

func (n *Neuro) Extract(ctx context.Context, bundle *harmonize.Bundle) (Embedding, error) {
	if len(bundle.Images) == 0 {
		return Embedding{}, fault.New(fault.ClassConfig, fault.CodeMissingRequiredModality,
			"no MRI or CT slices in bundle").WithPathway(string(n.Tag()))
	}

	hist := make([]float64, histBins)
	var pixels float64
	var meanSum, stdSum, skewSum, edgeSum, asymSum, brightSum float64
	maxEdge, maxAsym := 0.0, 0.0

	for _, im := range bundle.Images {
		st := sliceStats(&im)

		meanSum += st.mean
		stdSum += st.std
		skewSum += st.skew
		edgeSum += st.edge
		asymSum += st.asym
		brightSum += st.bright
		if st.edge > maxEdge {
			maxEdge = st.edge
		}
		if st.asym > maxAsym {
			maxAsym = st.asym
		}

		for _, v := range im.Pixels {
			bin := int((v - histLo) / (histHi - histLo) * histBins)
			if bin < 0 {
				bin = 0
			}
			if bin >= histBins {
				bin = histBins - 1
			}
			hist[bin]++
			pixels++
		}
	}

	slices := float64(len(bundle.Images))
	if pixels > 0 {
		for i := range hist {
			hist[i] /= pixels
		}
	}

	features := map[string]float64{
		"neuro.slice_count":     slices,
		"neuro.mean_intensity":  meanSum / slices,
		"neuro.edge_density":    edgeSum / slices,
		"neuro.max_edge":        maxEdge,
		"neuro.asymmetry":       asymSum / slices,
		"neuro.max_asymmetry":   maxAsym,
		"neuro.bright_fraction": brightSum / slices,
		"neuro.skewness":        skewSum / slices,
	}

	vec := make([]float64, 0, EmbeddingSize)
	vec = append(vec, hist...)
	vec = append(vec,
		meanSum/slices,
		stdSum/slices,
		edgeSum/slices,
		maxEdge,
		asymSum/slices,
		maxAsym,
		brightSum/slices,
		skewSum/slices,
		slices/10,
	)

	return Embedding{Tag: n.Tag(), Vector: fitVector(vec), Features: features}, nil
}

type sliceSummary struct {
	mean, std, skew, edge, asym, bright float64
}

// sliceStats computes intensity moments, mean gradient magnitude and
// left-right asymmetry for one 2D slice.
func sliceStats(im *imaging.Image) sliceSummary {
	n := float64(len(im.Pixels))
	if n == 0 {
		return sliceSummary{}
	}

	mean, std := meanStd(im.Pixels)
	var skew, bright float64
	if std > 0 {
		for _, v := range im.Pixels {
			d := (v - mean) / std
			skew += d * d * d
		}
		skew /= n
	}
	for _, v := range im.Pixels {
		if v > brightThreshold {
			bright++
		}
	}
	bright /= n

	var edge float64
	var edges float64
	for y := 0; y < im.Height; y++ {
		for x := 0; x < im.Width; x++ {
			v := im.At(x, y, 0)
			if x+1 < im.Width {
				edge += math.Abs(im.At(x+1, y, 0) - v)
				edges++
			}
			if y+1 < im.Height {
				edge += math.Abs(im.At(x, y+1, 0) - v)
				edges++
			}
		}
	}
	if edges > 0 {
		edge /= edges
	}

	var asym float64
	half := im.Width / 2
	if half > 0 {
		for y := 0; y < im.Height; y++ {
			for x := 0; x < half; x++ {
				asym += math.Abs(im.At(x, y, 0) - im.At(im.Width-1-x, y, 0))
			}
		}
		asym /= float64(half * im.Height)
	}

	return sliceSummary{mean: mean, std: std, skew: skew, edge: edge, asym: asym, bright: bright}
}
