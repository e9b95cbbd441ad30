package assessment

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/vitalpath-ai/platform/pkg/common/logger"
	"github.com/vitalpath-ai/platform/pkg/common/models"
	"github.com/vitalpath-ai/platform/pkg/serving/predictor"
)

// ErrNotReady is returned by Report while the job is still running or
// after it failed. The HTTP boundary maps it to a conflict.
var ErrNotReady = errors.New("assessment result not ready")

// reportFactorLimit caps the listed contributing factors per condition.
const reportFactorLimit = 3

// Service is the boundary the transport layer talks to. It fronts the
// orchestrator for writes and the cache plus repository for reads.
type Service struct {
	orch      *Orchestrator
	repo      Repository
	cache     ResultCache
	retention time.Duration
}

func NewService(orch *Orchestrator, repo Repository, cache ResultCache, retention time.Duration) *Service {
	if cache == nil {
		cache = NoopCache{}
	}
	return &Service{orch: orch, repo: repo, cache: cache, retention: retention}
}

// Submit admits a wire request as a new job.
func (s *Service) Submit(ctx context.Context, req models.SubmitRequest) (*Record, error) {
	return s.orch.Submit(ctx, Submission{
		ID:          req.JobID,
		Conditions:  req.Conditions,
		Signals:     req.Signals,
		Images:      req.Images,
		Uncertainty: req.Uncertainty,
	})
}

// Poll returns the job's current record, preferring the result cache
// for terminal jobs.
func (s *Service) Poll(ctx context.Context, id string) (*Record, error) {
	rec, ok, err := s.cache.Get(ctx, id)
	if err != nil {
		logger.WithJob(id, "poll").WithError(err).Warn("Result cache read failed")
	}
	if ok {
		return rec, nil
	}
	return s.repo.Get(ctx, id)
}

// Cancel requests cooperative cancellation.
func (s *Service) Cancel(ctx context.Context, id string) (*Record, error) {
	return s.orch.Cancel(ctx, id)
}

// List returns the most recent records.
func (s *Service) List(ctx context.Context, limit int) ([]*Record, error) {
	return s.repo.List(ctx, limit)
}

// Conditions lists the catalog of supported conditions.
func (s *Service) Conditions() []string {
	return s.orch.pipe.Scorer.Registry().Conditions()
}

// PurgeExpired removes terminal records older than the retention
// window. The janitor calls it on a schedule.
func (s *Service) PurgeExpired(ctx context.Context) (int, error) {
	if s.retention <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().Add(-s.retention)
	return s.repo.PurgeOlderThan(ctx, cutoff)
}

// ConditionSummary is one condition's entry in the generated report.
type ConditionSummary struct {
	Condition    string             `json:"condition"`
	Risk         float64            `json:"risk_score"`
	Bucket       string             `json:"risk_bucket"`
	Confidence   float64            `json:"confidence"`
	ModelID      string             `json:"model_id"`
	ModelVersion string             `json:"model_version"`
	Headline     string             `json:"headline"`
	TopFactors   []string           `json:"top_factors,omitempty"`
	Classes      map[string]float64 `json:"classes,omitempty"`
}

// AssessmentReport is the human-oriented summary of a ready job,
// ordered by descending risk.
type AssessmentReport struct {
	JobID       string             `json:"job_id"`
	GeneratedAt time.Time          `json:"generated_at"`
	Conditions  []ConditionSummary `json:"conditions"`
	Pathways    []string           `json:"pathways,omitempty"`
	Weights     map[string]float64 `json:"attention_weights,omitempty"`
	Uncertainty *float64           `json:"uncertainty_estimate,omitempty"`
}

// Report builds the summary for a ready job. Anything short of ready,
// including failed, yields ErrNotReady.
func (s *Service) Report(ctx context.Context, id string) (*AssessmentReport, error) {
	rec, err := s.Poll(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.State != StateReady {
		return nil, ErrNotReady
	}
	return buildReport(rec), nil
}

func buildReport(rec *Record) *AssessmentReport {
	report := &AssessmentReport{
		JobID:       rec.ID,
		GeneratedAt: time.Now().UTC(),
		Pathways:    rec.Pathways,
		Weights:     rec.Weights,
		Uncertainty: rec.Uncertainty,
	}
	for _, p := range rec.Predictions {
		summary := ConditionSummary{
			Condition:    p.Condition,
			Risk:         p.Risk,
			Bucket:       p.Bucket,
			Confidence:   p.Confidence,
			ModelID:      p.ModelID,
			ModelVersion: p.ModelVersion,
			Headline:     headline(p),
			Classes:      p.Classes,
		}
		for i, a := range p.Attributions {
			if i == reportFactorLimit {
				break
			}
			summary.TopFactors = append(summary.TopFactors,
				fmt.Sprintf("%s (%+.3f)", a.Feature, a.Contribution))
		}
		report.Conditions = append(report.Conditions, summary)
	}
	sort.SliceStable(report.Conditions, func(i, j int) bool {
		return report.Conditions[i].Risk > report.Conditions[j].Risk
	})
	return report
}

func headline(p predictor.Prediction) string {
	return fmt.Sprintf("%s: %s risk (%.1f%%, model %s %s)",
		p.Condition, p.Bucket, p.Risk*100, p.ModelID, p.ModelVersion)
}
