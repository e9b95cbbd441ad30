package imaging

import (
	"fmt"
	"strings"

	"github.com/vitalpath-ai/platform/pkg/common/fault"
)

// Modality identifies the acquisition technique of an image.
type Modality string

const (
	ModalityMRI Modality = "MRI"
	ModalityCT  Modality = "CT"
)

// ParseModality maps a wire string onto a known imaging modality.
func ParseModality(s string) (Modality, error) {
	switch Modality(strings.ToUpper(strings.TrimSpace(s))) {
	case ModalityMRI:
		return ModalityMRI, nil
	case ModalityCT:
		return ModalityCT, nil
	default:
		return "", fault.Newf(fault.ClassConfig, fault.CodeUnsupportedModality,
			"unsupported imaging modality %q", s)
	}
}

// Image is a scalar volume in row-major, slice-major order. A 2D image
// has Depth 1. SourceID and SliceIndex record where a derived slice
// came from so predictions stay traceable to the original study.
type Image struct {
	SourceID   string
	Modality   Modality
	Pixels     []float64
	Width      int
	Height     int
	Depth      int
	SliceIndex int
}

// Validate checks that the declared geometry matches the pixel buffer.
func (im *Image) Validate() error {
	if im.Width <= 0 || im.Height <= 0 || im.Depth <= 0 {
		return fault.Newf(fault.ClassInput, fault.CodeDimensionMismatch,
			"image %s: non-positive dimensions %dx%dx%d", im.SourceID, im.Width, im.Height, im.Depth)
	}
	if want := im.Width * im.Height * im.Depth; len(im.Pixels) != want {
		return fault.Newf(fault.ClassInput, fault.CodeDimensionMismatch,
			"image %s: %d pixels for declared %dx%dx%d (want %d)",
			im.SourceID, len(im.Pixels), im.Width, im.Height, im.Depth, want)
	}
	return nil
}

// At returns the pixel at (x, y) in slice z without bounds checking.
func (im *Image) At(x, y, z int) float64 {
	return im.Pixels[(z*im.Height+y)*im.Width+x]
}

// Slice copies out the 2D plane at depth z.
func (im *Image) Slice(z int) Image {
	n := im.Width * im.Height
	pixels := make([]float64, n)
	copy(pixels, im.Pixels[z*n:(z+1)*n])
	return Image{
		SourceID:   im.SourceID,
		Modality:   im.Modality,
		Pixels:     pixels,
		Width:      im.Width,
		Height:     im.Height,
		Depth:      1,
		SliceIndex: z,
	}
}

func (im *Image) String() string {
	return fmt.Sprintf("%s %s %dx%dx%d", im.Modality, im.SourceID, im.Width, im.Height, im.Depth)
}
