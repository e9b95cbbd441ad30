package signal

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Profile holds the per-modality admissibility and filter settings that
// drive validation and harmonization. Ranges are physiological plausibility
// bounds in the modality's native unit.
type Profile struct {
	MinDuration     float64 `yaml:"min_duration_s" json:"min_duration_s"`
	RangeMin        float64 `yaml:"range_min" json:"range_min"`
	RangeMax        float64 `yaml:"range_max" json:"range_max"`
	MaxMissingRatio float64 `yaml:"max_missing_ratio" json:"max_missing_ratio"`
	HighPassHz      float64 `yaml:"high_pass_hz" json:"high_pass_hz"`
	LowPassHz       float64 `yaml:"low_pass_hz" json:"low_pass_hz"`
}

type Profiles struct {
	Modalities map[Modality]Profile `yaml:"modalities"`
}

// LoadProfiles reads a profile catalog from YAML, falling back to the
// compiled defaults when no path is given.
func LoadProfiles(path string) (Profiles, error) {
	if path == "" {
		return DefaultProfiles(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultProfiles(), err
	}
	var p Profiles
	if err := yaml.Unmarshal(content, &p); err != nil {
		return Profiles{}, err
	}
	if len(p.Modalities) == 0 {
		return Profiles{}, fmt.Errorf("modality profile catalog empty")
	}
	return p, nil
}

func (p Profiles) Lookup(m Modality) (Profile, bool) {
	if p.Modalities == nil {
		return Profile{}, false
	}
	profile, ok := p.Modalities[m]
	return profile, ok
}

// DefaultProfiles returns the built-in catalog. Cutoffs follow the usual
// split between fast morphology-bearing signals (ECG, PPG) and slow
// near-DC signals (SpO2, TEMP, EDA tonic level).
func DefaultProfiles() Profiles {
	return Profiles{Modalities: map[Modality]Profile{
		ModalityECG: {
			MinDuration:     10,
			RangeMin:        -10,
			RangeMax:        10,
			MaxMissingRatio: 0.2,
			HighPassHz:      0.5,
			LowPassHz:       40,
		},
		ModalitySpO2: {
			MinDuration:     60,
			RangeMin:        50,
			RangeMax:        100,
			MaxMissingRatio: 0.3,
			HighPassHz:      0.01,
			LowPassHz:       1,
		},
		ModalityHRV: {
			MinDuration:     60,
			RangeMin:        200,
			RangeMax:        2000,
			MaxMissingRatio: 0.2,
			HighPassHz:      0.003,
			LowPassHz:       0.5,
		},
		ModalityEDA: {
			MinDuration:     30,
			RangeMin:        0.01,
			RangeMax:        100,
			MaxMissingRatio: 0.3,
			HighPassHz:      0.01,
			LowPassHz:       5,
		},
		ModalityTEMP: {
			MinDuration:     60,
			RangeMin:        30,
			RangeMax:        45,
			MaxMissingRatio: 0.3,
			HighPassHz:      0.001,
			LowPassHz:       0.1,
		},
		ModalityACC: {
			MinDuration:     10,
			RangeMin:        -16,
			RangeMax:        16,
			MaxMissingRatio: 0.2,
			HighPassHz:      0.25,
			LowPassHz:       20,
		},
		ModalityPPG: {
			MinDuration:     10,
			RangeMin:        -10,
			RangeMax:        10,
			MaxMissingRatio: 0.25,
			HighPassHz:      0.5,
			LowPassHz:       8,
		},
	}}
}
