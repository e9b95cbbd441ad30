package assessment

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vitalpath-ai/platform/pkg/common/fault"
	"github.com/vitalpath-ai/platform/pkg/common/logger"
	"github.com/vitalpath-ai/platform/pkg/fusion"
	"github.com/vitalpath-ai/platform/pkg/imaging"
	"github.com/vitalpath-ai/platform/pkg/observability/metrics"
	"github.com/vitalpath-ai/platform/pkg/pathway"
	"github.com/vitalpath-ai/platform/pkg/signal"
)

// stageValidate decodes the wire payloads and checks structural
// admissibility. Every violation across the submission is collected
// before failing, so a caller fixes the whole upload in one round trip.
func (o *Orchestrator) stageValidate(ctx context.Context, job *Job) error {
	sub := job.submission
	if len(sub.Signals) == 0 && len(sub.Images) == 0 {
		return fault.New(fault.ClassInput, fault.CodeInsufficientLength,
			"submission carries no signals or images")
	}

	signals := make([]signal.Signal, 0, len(sub.Signals))
	var items []string
	var firstCode fault.Code
	for _, p := range sub.Signals {
		m, ok := signal.ParseModality(p.Modality)
		if !ok {
			return fault.Newf(fault.ClassConfig, fault.CodeUnsupportedModality,
				"unsupported signal modality %q", p.Modality)
		}
		prof, ok := o.pipe.Profiles.Lookup(m)
		if !ok {
			return fault.Newf(fault.ClassConfig, fault.CodeUnsupportedModality,
				"no modality profile for %s", m)
		}
		s := signal.New(m, p.SamplingRate, p.Samples)
		s.Quality = parseQuality(p.Quality)
		if report := signal.Validate(s, prof); !report.OK() {
			if firstCode == "" {
				firstCode = report.Violations[0].Code
			}
			for _, v := range report.Violations {
				items = append(items, fmt.Sprintf("%s %s: %s", m, v.Code, v.Detail))
			}
			continue
		}
		signals = append(signals, s)
	}
	if len(items) > 0 {
		return fault.Newf(fault.ClassInput, firstCode,
			"%d violation(s) across submitted signals", len(items)).WithItems(items)
	}

	images := make([]imaging.Image, 0, len(sub.Images))
	for i, p := range sub.Images {
		m, err := imaging.ParseModality(p.Modality)
		if err != nil {
			return err
		}
		depth := p.Depth
		if depth == 0 {
			depth = 1
		}
		sourceID := p.SourceID
		if sourceID == "" {
			sourceID = fmt.Sprintf("%s-image-%d", job.ID, i)
		}
		im := imaging.Image{
			SourceID: sourceID,
			Modality: m,
			Pixels:   p.Pixels,
			Width:    p.Width,
			Height:   p.Height,
			Depth:    depth,
		}
		if err := im.Validate(); err != nil {
			return err
		}
		images = append(images, im)
	}

	job.signals = signals
	job.images = images
	return nil
}

// stagePreprocess harmonizes every signal to the canonical rate and
// normalizes every image volume into standardized 2D slices.
func (o *Orchestrator) stagePreprocess(ctx context.Context, job *Job) error {
	bundle, err := o.pipe.Harmonizer.Harmonize(ctx, job.signals)
	if err != nil {
		return err
	}
	for _, im := range job.images {
		if err := ctx.Err(); err != nil {
			return err
		}
		slices, err := o.pipe.Normalizer.Normalize(im)
		if err != nil {
			return err
		}
		bundle.Images = append(bundle.Images, slices...)
	}
	job.bundle = bundle
	return nil
}

// stageExtract resolves the declared conditions to their pathway set
// and runs the extractors concurrently. The first failure cancels the
// siblings and the job keeps no embeddings at all.
func (o *Orchestrator) stageExtract(ctx context.Context, job *Job) error {
	tags, err := o.resolvePathways(job.Conditions)
	if err != nil {
		return err
	}
	job.Pathways = tags

	extractors, err := o.pipe.Pathways.Select(tags)
	if err != nil {
		return err
	}

	results := make([]pathway.Embedding, len(extractors))
	g, gctx := errgroup.WithContext(ctx)
	for i, ex := range extractors {
		i, ex := i, ex
		g.Go(func() error {
			emb, err := ex.Extract(gctx, job.bundle)
			if err != nil {
				// Context sentinels pass through untagged so the stage
				// runner can classify timeout versus cancellation.
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				return fault.From(err).WithPathway(string(ex.Tag()))
			}
			results[i] = emb
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	job.embeddings = results
	return nil
}

// resolvePathways maps conditions onto the deduplicated, ordered
// pathway set the job will run.
func (o *Orchestrator) resolvePathways(conditions []string) ([]pathway.Tag, error) {
	seen := make(map[pathway.Tag]bool)
	tags := make([]pathway.Tag, 0, len(conditions))
	for _, c := range conditions {
		tag, ok := o.pipe.Scorer.Registry().PathwayFor(c)
		if !ok {
			return nil, fault.Newf(fault.ClassConfig, fault.CodeUnknownCondition,
				"no model registered for condition %q", c)
		}
		if !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
	}
	if len(tags) == 0 {
		return nil, fault.New(fault.ClassConfig, fault.CodeEmptyPathwaySet,
			"declared conditions select no pathways")
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return tags, nil
}

func (o *Orchestrator) stageFuse(ctx context.Context, job *Job) error {
	fused, err := o.pipe.Fusion.Fuse(job.embeddings)
	if err != nil {
		return err
	}
	job.fused = fused
	return nil
}

// stagePredict scores each declared condition and attaches confidence
// via the stochastic quantifier, or the calibration fallback when the
// job opted out of uncertainty passes.
func (o *Orchestrator) stagePredict(ctx context.Context, job *Job) error {
	diags := mergeDiagnostics(job.embeddings)
	preds, err := o.pipe.Scorer.Predict(job.Conditions, job.fused, diags)
	if err != nil {
		return err
	}

	quant := o.pipe.Fallback
	if job.Uncertainty {
		quant = o.pipe.Quantifier
	}
	if quant != nil {
		job.estimate = quant.Quantify(seedFor(job.ID), preds, job.fused, diags)
	}
	job.diagnostics = diags
	job.predictions = preds
	return nil
}

// finalizeReady copies the job's artifacts into the record in one
// step, so pollers either see the complete result set or none of it.
func (o *Orchestrator) finalizeReady(rec *Record, job *Job) {
	if err := advance(rec, StateReady); err != nil {
		o.finalizeFailure(rec, job, fault.From(err))
		return
	}
	now := time.Now().UTC()
	rec.CompletedAt = &now
	rec.Pathways = tagStrings(job.Pathways)
	rec.Predictions = job.predictions
	rec.Weights = weightMap(job.fused)
	rec.Diagnostics = job.diagnostics
	est := job.estimate
	rec.Uncertainty = &est
	o.persist(rec)
	o.finish(rec)

	logger.WithJob(rec.ID, string(StateReady)).
		WithField("predictions", len(rec.Predictions)).
		Info("Assessment ready")
}

// finalizeFailure surfaces the fault on the record. Intermediate
// artifacts stay on the discarded job; the record carries only the
// pathway set and the structured error.
func (o *Orchestrator) finalizeFailure(rec *Record, job *Job, f *fault.Fault) {
	if f.Stage == "" {
		f = f.WithStage(string(rec.State))
	}
	if err := advance(rec, StateFailed); err != nil {
		logger.WithJob(rec.ID, f.Stage).WithError(err).Error("Failed to mark job failed")
		return
	}
	now := time.Now().UTC()
	rec.CompletedAt = &now
	if job != nil {
		rec.Pathways = tagStrings(job.Pathways)
	}
	rec.Failure = errorDetail(f)
	o.persist(rec)
	metrics.ObserveFailure(string(f.Class), f.Stage)
	o.finish(rec)

	logger.WithJob(rec.ID, f.Stage).WithError(f).
		WithField("class", string(f.Class)).
		WithField("code", string(f.Code)).
		Error("Assessment failed")
}

// finish caches the terminal record and emits the completion event.
// Both are best effort.
func (o *Orchestrator) finish(rec *Record) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := o.cache.Save(ctx, rec); err != nil {
		logger.WithJob(rec.ID, string(rec.State)).WithError(err).Warn("Result cache write failed")
	}
	if rec.State == StateReady {
		metrics.ObserveJob(metrics.OutcomeReady)
		o.notifier.NotifyCompleted(ctx, rec)
		return
	}
	metrics.ObserveJob(metrics.OutcomeFailed)
	o.notifier.NotifyFailed(ctx, rec)
}

func parseQuality(s string) signal.Quality {
	switch q := signal.Quality(strings.ToLower(s)); q {
	case signal.QualityGood, signal.QualityFair, signal.QualityPoor:
		return q
	default:
		return signal.QualityUnknown
	}
}

func tagStrings(tags []pathway.Tag) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = string(t)
	}
	return out
}

func weightMap(f *fusion.Fused) map[string]float64 {
	if f == nil {
		return nil
	}
	out := make(map[string]float64, len(f.Weights))
	for tag, w := range f.Weights {
		out[string(tag)] = w
	}
	return out
}

func mergeDiagnostics(embeddings []pathway.Embedding) map[string]float64 {
	out := make(map[string]float64)
	for _, e := range embeddings {
		for k, v := range e.Features {
			out[k] = v
		}
	}
	return out
}
