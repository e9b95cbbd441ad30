package assessment

import (
	"time"

	"github.com/vitalpath-ai/platform/pkg/common/fault"
	"github.com/vitalpath-ai/platform/pkg/common/models"
	"github.com/vitalpath-ai/platform/pkg/fusion"
	"github.com/vitalpath-ai/platform/pkg/harmonize"
	"github.com/vitalpath-ai/platform/pkg/imaging"
	"github.com/vitalpath-ai/platform/pkg/pathway"
	"github.com/vitalpath-ai/platform/pkg/serving/predictor"
	"github.com/vitalpath-ai/platform/pkg/signal"
)

// State is a job's position in the pipeline.
type State string

const (
	StateSubmitted     State = "submitted"
	StateValidating    State = "validating"
	StatePreprocessing State = "preprocessing"
	StateExtracting    State = "extracting"
	StateFusing        State = "fusing"
	StatePredicting    State = "predicting"
	StateReady         State = "ready"
	StateFailed        State = "failed"
)

// Terminal reports whether the state is final; terminal jobs never
// transition again.
func (s State) Terminal() bool {
	return s == StateReady || s == StateFailed
}

// Status collapses the state machine into the three-valued answer
// polling clients act on.
func (s State) Status() string {
	switch s {
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "processing"
	}
}

// progressOnEntry maps each state to the cumulative weight of the
// stages completed before it. Weights: validation 10, preprocessing
// 30, extraction 30, fusion 10, prediction 20.
var progressOnEntry = map[State]int{
	StateSubmitted:     0,
	StateValidating:    0,
	StatePreprocessing: 10,
	StateExtracting:    40,
	StateFusing:        70,
	StatePredicting:    80,
	StateReady:         100,
}

// Submission is the unit of work handed to the orchestrator. Signal
// and image payloads stay in wire form until the validating stage so
// malformed modalities fail inside the job, not at the front door.
type Submission struct {
	ID          string
	Conditions  []string
	Signals     []models.SignalPayload
	Images      []models.ImagePayload
	Uncertainty *bool
}

// Job is the in-flight execution context. It is owned by exactly one
// worker goroutine; everything shared with pollers goes through the
// Record snapshot instead.
type Job struct {
	ID          string
	Conditions  []string
	Pathways    []pathway.Tag
	Uncertainty bool

	submission Submission

	signals []signal.Signal
	images  []imaging.Image

	bundle      *harmonize.Bundle
	embeddings  []pathway.Embedding
	fused       *fusion.Fused
	diagnostics map[string]float64
	predictions []predictor.Prediction
	estimate    float64
}

// Record is the pollable snapshot persisted on every transition. It
// carries everything a caller or the reporting boundary reads; it
// never exposes intermediate artifacts.
type Record struct {
	ID          string                 `json:"job_id"`
	State       State                  `json:"state"`
	Progress    int                    `json:"progress"`
	Conditions  []string               `json:"conditions"`
	Pathways    []string               `json:"pathways,omitempty"`
	Predictions []predictor.Prediction `json:"predictions,omitempty"`
	Weights     map[string]float64     `json:"attention_weights,omitempty"`
	Diagnostics map[string]float64     `json:"diagnostics,omitempty"`
	Uncertainty *float64               `json:"uncertainty_estimate,omitempty"`
	Failure     *models.ErrorDetail    `json:"error,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	StartedAt   *time.Time             `json:"started_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
}

// Status returns the three-valued polling status.
func (r *Record) Status() string { return r.State.Status() }

// Clone deep-copies the record so repository reads never alias the
// orchestrator's working copy.
func (r *Record) Clone() *Record {
	cp := *r
	cp.Conditions = append([]string(nil), r.Conditions...)
	cp.Pathways = append([]string(nil), r.Pathways...)
	if r.Predictions != nil {
		cp.Predictions = make([]predictor.Prediction, len(r.Predictions))
		copy(cp.Predictions, r.Predictions)
		for i, p := range r.Predictions {
			if p.Classes != nil {
				cls := make(map[string]float64, len(p.Classes))
				for k, v := range p.Classes {
					cls[k] = v
				}
				cp.Predictions[i].Classes = cls
			}
			cp.Predictions[i].Attributions = append([]predictor.Attribution(nil), p.Attributions...)
		}
	}
	if r.Weights != nil {
		cp.Weights = make(map[string]float64, len(r.Weights))
		for k, v := range r.Weights {
			cp.Weights[k] = v
		}
	}
	if r.Diagnostics != nil {
		cp.Diagnostics = make(map[string]float64, len(r.Diagnostics))
		for k, v := range r.Diagnostics {
			cp.Diagnostics[k] = v
		}
	}
	if r.Uncertainty != nil {
		u := *r.Uncertainty
		cp.Uncertainty = &u
	}
	if r.Failure != nil {
		f := *r.Failure
		f.Items = append([]string(nil), r.Failure.Items...)
		cp.Failure = &f
	}
	if r.StartedAt != nil {
		ts := *r.StartedAt
		cp.StartedAt = &ts
	}
	if r.CompletedAt != nil {
		ts := *r.CompletedAt
		cp.CompletedAt = &ts
	}
	return &cp
}

// errorDetail converts a Fault into the wire error record.
func errorDetail(f *fault.Fault) *models.ErrorDetail {
	if f == nil {
		return nil
	}
	return &models.ErrorDetail{
		Class:   string(f.Class),
		Code:    string(f.Code),
		Stage:   f.Stage,
		Pathway: f.Pathway,
		Detail:  f.Detail,
		Items:   append([]string(nil), f.Items...),
	}
}
