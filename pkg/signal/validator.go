package signal

import (
	"fmt"
	"math"

	"github.com/vitalpath-ai/platform/pkg/common/fault"
)

// Violation is one structural problem found in a raw signal. Validation
// reports every violation at once so the caller can fix a whole upload in a
// single round trip instead of discovering problems one by one.
type Violation struct {
	Code   fault.Code `json:"code"`
	Detail string     `json:"detail"`
}

// Report is the outcome of validating one signal against its profile.
type Report struct {
	Modality   Modality    `json:"modality"`
	Violations []Violation `json:"violations,omitempty"`
}

func (r Report) OK() bool {
	return len(r.Violations) == 0
}

// Fault folds a failed report into a single input-class fault whose code is
// the first violation and whose items list every violation.
func (r Report) Fault() error {
	if r.OK() {
		return nil
	}
	items := make([]string, 0, len(r.Violations))
	for _, v := range r.Violations {
		items = append(items, fmt.Sprintf("%s: %s", v.Code, v.Detail))
	}
	return fault.Newf(fault.ClassInput, r.Violations[0].Code, "signal %s failed validation", r.Modality).WithItems(items)
}

// Validate checks a raw signal for structural admissibility against its
// modality profile. Purely functional: no side effects, the signal is not
// modified. Non-finite samples are excluded from the range check but count
// toward the missing-data ratio.
func Validate(s Signal, p Profile) Report {
	report := Report{Modality: s.Modality}

	minSamples := int(math.Ceil(p.MinDuration * s.Rate))
	if s.Rate <= 0 || len(s.Samples) < minSamples {
		report.Violations = append(report.Violations, Violation{
			Code: fault.CodeInsufficientLength,
			Detail: fmt.Sprintf("%d samples at %.3g Hz, need at least %d (%.3gs)",
				len(s.Samples), s.Rate, minSamples, p.MinDuration),
		})
	}

	if ratio := s.MissingRatio(); ratio > p.MaxMissingRatio {
		report.Violations = append(report.Violations, Violation{
			Code:   fault.CodeExcessiveMissingData,
			Detail: fmt.Sprintf("missing ratio %.2f exceeds limit %.2f", ratio, p.MaxMissingRatio),
		})
	}

	outOfRange := 0
	firstIdx := -1
	for i, v := range s.Samples {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if v < p.RangeMin || v > p.RangeMax {
			outOfRange++
			if firstIdx < 0 {
				firstIdx = i
			}
		}
	}
	if outOfRange > 0 {
		report.Violations = append(report.Violations, Violation{
			Code: fault.CodeRangeViolation,
			Detail: fmt.Sprintf("%d finite samples outside [%.3g, %.3g], first at index %d",
				outOfRange, p.RangeMin, p.RangeMax, firstIdx),
		})
	}

	return report
}
