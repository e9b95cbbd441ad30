package models

import "time"

// Assessment submission
type SubmitRequest struct {
	JobID       string          `json:"job_id,omitempty"` // client idempotency key; generated when absent
	Conditions  []string        `json:"conditions"`
	Signals     []SignalPayload `json:"signals,omitempty"`
	Images      []ImagePayload  `json:"images,omitempty"`
	Uncertainty *bool           `json:"uncertainty,omitempty"` // overrides the service default per job
}

type SignalPayload struct {
	Modality     string    `json:"modality"` // ECG, SPO2, HRV, EDA, TEMP, ACC, PPG
	SamplingRate float64   `json:"sampling_rate_hz"`
	Samples      []float64 `json:"samples"`
	Quality      string    `json:"quality,omitempty"`
}

type ImagePayload struct {
	SourceID string    `json:"source_id,omitempty"`
	Modality string    `json:"modality"` // MRI, CT
	Width    int       `json:"width"`
	Height   int       `json:"height"`
	Depth    int       `json:"depth,omitempty"` // 1 or absent for 2D
	Pixels   []float64 `json:"pixels"`
}

type SubmitResponse struct {
	JobID       string    `json:"job_id"`
	State       string    `json:"state"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// ErrorDetail is the structured failure record surfaced to pollers.
type ErrorDetail struct {
	Class   string   `json:"class"` // input, config, resource, internal
	Code    string   `json:"code"`
	Stage   string   `json:"stage,omitempty"`
	Pathway string   `json:"pathway,omitempty"`
	Detail  string   `json:"detail,omitempty"`
	Items   []string `json:"items,omitempty"`
}

// Event Bus models
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"` // assessment.completed, assessment.failed
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}
