package imaging

import (
	"math"
	"sort"
)

// CT values are clipped to a fixed Hounsfield window covering air
// through dense soft tissue; MRI has no absolute scale, so it is
// clipped per image at the 1st and 99th intensity percentiles.
const (
	ctWindowMin = -1000.0
	ctWindowMax = 400.0

	mriLowerPercentile = 1.0
	mriUpperPercentile = 99.0
)

// DefaultTargetSize is the in-plane resolution the extractors consume.
const DefaultTargetSize = 224

// Normalizer turns raw scanner volumes into stacks of uniform 2D
// slices: intensities windowed per modality, standardized to zero mean
// and unit variance, and resampled onto a square canvas with the
// aspect ratio preserved.
type Normalizer struct {
	targetW int
	targetH int
}

// NewNormalizer builds a Normalizer emitting size x size slices.
// Non-positive sizes fall back to DefaultTargetSize.
func NewNormalizer(size int) *Normalizer {
	if size <= 0 {
		size = DefaultTargetSize
	}
	return &Normalizer{targetW: size, targetH: size}
}

// Normalize validates geometry, windows and standardizes intensities,
// and decomposes the volume into per-slice images. The input is not
// modified.
func (n *Normalizer) Normalize(im Image) ([]Image, error) {
	if im.Modality != ModalityMRI && im.Modality != ModalityCT {
		if _, err := ParseModality(string(im.Modality)); err != nil {
			return nil, err
		}
	}
	if err := im.Validate(); err != nil {
		return nil, err
	}

	lo, hi := n.window(im)

	out := make([]Image, 0, im.Depth)
	for z := 0; z < im.Depth; z++ {
		slice := im.Slice(z)
		clip(slice.Pixels, lo, hi)
		standardize(slice.Pixels)
		slice = n.resize(slice)
		out = append(out, slice)
	}
	return out, nil
}

// window picks the clip bounds for the volume.
func (n *Normalizer) window(im Image) (float64, float64) {
	if im.Modality == ModalityCT {
		return ctWindowMin, ctWindowMax
	}
	finite := make([]float64, 0, len(im.Pixels))
	for _, v := range im.Pixels {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		return 0, 1
	}
	sort.Float64s(finite)
	return percentileSorted(finite, mriLowerPercentile), percentileSorted(finite, mriUpperPercentile)
}

// percentileSorted reads the p-th percentile from an ascending slice
// using linear interpolation between ranks.
func percentileSorted(sorted []float64, p float64) float64 {
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

// clip clamps pixels into [lo, hi] in place. Non-finite pixels map to
// the window floor.
func clip(pixels []float64, lo, hi float64) {
	for i, v := range pixels {
		switch {
		case math.IsNaN(v) || math.IsInf(v, 0):
			pixels[i] = lo
		case v < lo:
			pixels[i] = lo
		case v > hi:
			pixels[i] = hi
		}
	}
}

// standardize rescales pixels to zero mean and unit variance in place.
// Flat slices keep their centered zeros; padding added later by resize
// then blends in at the mean.
func standardize(pixels []float64) {
	if len(pixels) == 0 {
		return
	}
	var sum float64
	for _, v := range pixels {
		sum += v
	}
	mean := sum / float64(len(pixels))

	var ss float64
	for _, v := range pixels {
		d := v - mean
		ss += d * d
	}
	std := math.Sqrt(ss / float64(len(pixels)))
	if std < 1e-9 {
		std = 1
	}
	for i, v := range pixels {
		pixels[i] = (v - mean) / std
	}
}

// resize maps a 2D slice onto the target canvas with bilinear
// sampling. The content is scaled uniformly and centered; uncovered
// canvas stays zero.
func (n *Normalizer) resize(im Image) Image {
	if im.Width == n.targetW && im.Height == n.targetH {
		return im
	}

	scale := math.Min(float64(n.targetW)/float64(im.Width), float64(n.targetH)/float64(im.Height))
	outW := int(math.Round(float64(im.Width) * scale))
	outH := int(math.Round(float64(im.Height) * scale))
	if outW < 1 {
		outW = 1
	}
	if outH < 1 {
		outH = 1
	}
	offX := (n.targetW - outW) / 2
	offY := (n.targetH - outH) / 2

	pixels := make([]float64, n.targetW*n.targetH)
	for y := 0; y < outH; y++ {
		srcY := (float64(y)+0.5)/scale - 0.5
		for x := 0; x < outW; x++ {
			srcX := (float64(x)+0.5)/scale - 0.5
			pixels[(y+offY)*n.targetW+(x+offX)] = bilinear(im, srcX, srcY)
		}
	}

	return Image{
		SourceID:   im.SourceID,
		Modality:   im.Modality,
		Pixels:     pixels,
		Width:      n.targetW,
		Height:     n.targetH,
		Depth:      1,
		SliceIndex: im.SliceIndex,
	}
}

// bilinear samples the slice at fractional coordinates, clamping at
// the borders.
func bilinear(im Image, x, y float64) float64 {
	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	fx := x - float64(x0)
	fy := y - float64(y0)

	c := func(ix, iy int) float64 {
		if ix < 0 {
			ix = 0
		}
		if ix >= im.Width {
			ix = im.Width - 1
		}
		if iy < 0 {
			iy = 0
		}
		if iy >= im.Height {
			iy = im.Height - 1
		}
		return im.Pixels[iy*im.Width+ix]
	}

	top := c(x0, y0)*(1-fx) + c(x0+1, y0)*fx
	bot := c(x0, y0+1)*(1-fx) + c(x0+1, y0+1)*fx
	return top*(1-fy) + bot*fy
}
