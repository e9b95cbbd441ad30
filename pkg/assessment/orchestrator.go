package assessment

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/vitalpath-ai/platform/pkg/common/fault"
	"github.com/vitalpath-ai/platform/pkg/common/logger"
	"github.com/vitalpath-ai/platform/pkg/observability/metrics"
)

// ResultCache holds terminal records for fast polling. Implementations
// must tolerate concurrent use; the Redis store in pkg/storage is the
// production one.
type ResultCache interface {
	Save(ctx context.Context, rec *Record) error
	Get(ctx context.Context, id string) (*Record, bool, error)
}

// NoopCache disables caching.
type NoopCache struct{}

func (NoopCache) Save(context.Context, *Record) error { return nil }

func (NoopCache) Get(context.Context, string) (*Record, bool, error) { return nil, false, nil }

// Orchestrator owns the job lifecycle: admission, the FIFO queue, the
// worker pool, stage sequencing with retry and timeout, cancellation,
// and terminal bookkeeping. One instance serves the whole process.
type Orchestrator struct {
	pipe     *Pipeline
	repo     Repository
	notifier Notifier
	cache    ResultCache
	tuning   Tuning

	queue chan *Job
	wg    sync.WaitGroup

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	closed  bool

	root     context.Context
	rootStop context.CancelFunc
}

func NewOrchestrator(pipe *Pipeline, repo Repository, notifier Notifier, cache ResultCache, tuning Tuning) *Orchestrator {
	tuning.withDefaults()
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	if cache == nil {
		cache = NoopCache{}
	}
	root, stop := context.WithCancel(context.Background())
	return &Orchestrator{
		pipe:     pipe,
		repo:     repo,
		notifier: notifier,
		cache:    cache,
		tuning:   tuning,
		queue:    make(chan *Job, tuning.QueueCapacity),
		cancels:  make(map[string]context.CancelFunc),
		root:     root,
		rootStop: stop,
	}
}

// Start launches the worker pool. Jobs submitted before Start sit in
// the queue until a worker picks them up.
func (o *Orchestrator) Start() {
	for i := 0; i < o.tuning.MaxWorkers; i++ {
		o.wg.Add(1)
		go o.worker()
	}
	logger.Log.WithField("workers", o.tuning.MaxWorkers).Info("Assessment orchestrator started")
}

// Shutdown stops admission, drains the queue, and waits for in-flight
// jobs. When ctx expires first, running jobs are cancelled and the
// remaining queue entries fail fast as cancelled.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	if !o.closed {
		o.closed = true
		close(o.queue)
	}
	o.mu.Unlock()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		o.rootStop()
		o.cancelAll()
		<-done
		return ctx.Err()
	}
}

// Submit admits a job. The record is persisted in the submitted state
// before the job is queued; a full queue rejects the submission with a
// resource fault and leaves nothing behind.
func (o *Orchestrator) Submit(ctx context.Context, sub Submission) (*Record, error) {
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	rec := &Record{
		ID:         sub.ID,
		State:      StateSubmitted,
		Progress:   progressOnEntry[StateSubmitted],
		Conditions: append([]string(nil), sub.Conditions...),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := o.repo.Create(ctx, rec); err != nil {
		return nil, err
	}

	job := &Job{
		ID:          sub.ID,
		Conditions:  append([]string(nil), sub.Conditions...),
		Uncertainty: o.tuning.UncertaintyEnabled,
		submission:  sub,
	}
	if sub.Uncertainty != nil {
		job.Uncertainty = *sub.Uncertainty
	}

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		_ = o.repo.Delete(ctx, sub.ID)
		return nil, fault.New(fault.ClassResource, fault.CodeQueueSaturated, "admission queue closed")
	}
	select {
	case o.queue <- job:
		metrics.SetQueueDepth(len(o.queue))
		o.mu.Unlock()
	default:
		o.mu.Unlock()
		_ = o.repo.Delete(ctx, sub.ID)
		return nil, fault.Newf(fault.ClassResource, fault.CodeQueueSaturated,
			"admission queue full (%d jobs)", o.tuning.QueueCapacity)
	}

	logger.WithJob(sub.ID, string(StateSubmitted)).
		WithField("conditions", job.Conditions).
		Info("Assessment job admitted")
	return rec.Clone(), nil
}

// Cancel stops a job cooperatively. Running jobs see their context
// cancelled at the next stage boundary; queued jobs are failed in
// place and skipped when dequeued. Cancelling a terminal job is a
// no-op that returns the record unchanged.
func (o *Orchestrator) Cancel(ctx context.Context, id string) (*Record, error) {
	rec, err := o.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.State.Terminal() {
		return rec, nil
	}

	o.mu.Lock()
	cancel, running := o.cancels[id]
	o.mu.Unlock()

	if running {
		cancel()
		logger.WithJob(id, string(rec.State)).Info("Cancellation requested")
		return rec, nil
	}

	// Still queued: finalize directly so the worker skips it.
	f := fault.New(fault.ClassInput, fault.CodeCancelled, "cancelled before execution").
		WithStage(string(rec.State))
	o.finalizeFailure(rec, nil, f)
	return rec.Clone(), nil
}

func (o *Orchestrator) cancelAll() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, cancel := range o.cancels {
		cancel()
	}
}

func (o *Orchestrator) worker() {
	defer o.wg.Done()
	for job := range o.queue {
		metrics.SetQueueDepth(len(o.queue))
		o.execute(job)
	}
}

// execute drives one job through the stage sequence. It is the only
// writer of the job's record while the job runs.
func (o *Orchestrator) execute(job *Job) {
	rec, err := o.repo.Get(context.Background(), job.ID)
	if err != nil {
		logger.WithJob(job.ID, "dequeue").WithError(err).Error("Dropping job with unreadable record")
		return
	}
	if rec.State.Terminal() {
		// Cancelled while queued.
		return
	}

	metrics.JobStarted()
	defer metrics.JobFinished()

	ctx, cancel := context.WithCancel(o.root)
	o.mu.Lock()
	o.cancels[job.ID] = cancel
	o.mu.Unlock()
	defer func() {
		cancel()
		o.mu.Lock()
		delete(o.cancels, job.ID)
		o.mu.Unlock()
	}()

	started := time.Now().UTC()
	rec.StartedAt = &started

	stages := []struct {
		state State
		fn    func(context.Context, *Job) error
	}{
		{StateValidating, o.stageValidate},
		{StatePreprocessing, o.stagePreprocess},
		{StateExtracting, o.stageExtract},
		{StateFusing, o.stageFuse},
		{StatePredicting, o.stagePredict},
	}

	for _, st := range stages {
		if err := advance(rec, st.state); err != nil {
			o.finalizeFailure(rec, job, fault.From(err))
			return
		}
		o.persist(rec)
		if err := o.runStage(ctx, job, st.state, st.fn); err != nil {
			o.finalizeFailure(rec, job, fault.From(err))
			return
		}
	}

	o.finalizeReady(rec, job)
}

// runStage executes one stage under its timeout, retrying resource
// faults with exponential backoff. Every surfaced error carries the
// stage tag.
func (o *Orchestrator) runStage(ctx context.Context, job *Job, state State, fn func(context.Context, *Job) error) error {
	stage := string(state)
	start := time.Now()
	defer func() { metrics.ObserveStage(stage, time.Since(start)) }()

	attempt := 0
	backoff := retry.WithMaxRetries(uint64(o.tuning.StageRetries), retry.NewExponential(o.tuning.BackoffBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if attempt > 1 {
			metrics.ObserveRetry(stage)
			logger.WithJob(job.ID, stage).WithField("attempt", attempt).Warn("Retrying stage after resource fault")
		}
		stageCtx, cancel := context.WithTimeout(ctx, o.tuning.timeoutFor(state))
		defer cancel()

		if err := fn(stageCtx, job); err != nil {
			f := translateStage(err)
			if fault.Retryable(f) {
				return retry.RetryableError(f)
			}
			return f
		}
		return nil
	})
	if err != nil {
		return translateStage(err).WithStage(stage)
	}
	return nil
}

// translateStage normalizes an error into a Fault, mapping context
// sentinels to the timeout and cancellation codes.
func translateStage(err error) *fault.Fault {
	if f := asFault(err); f != nil {
		return f
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fault.Wrap(fault.ClassResource, fault.CodeStageTimeout, "stage deadline exceeded", err)
	}
	if errors.Is(err, context.Canceled) {
		return fault.Wrap(fault.ClassInput, fault.CodeCancelled, "job cancelled", err)
	}
	return fault.From(err)
}

func asFault(err error) *fault.Fault {
	var f *fault.Fault
	if errors.As(err, &f) {
		return f
	}
	return nil
}

func (o *Orchestrator) persist(rec *Record) {
	rec.UpdatedAt = time.Now().UTC()
	if err := o.repo.Update(context.Background(), rec); err != nil {
		logger.WithJob(rec.ID, string(rec.State)).WithError(err).Error("Failed to persist job record")
	}
}

// seedFor derives the deterministic per-job seed used by the
// uncertainty passes, so re-running an identical job reproduces its
// confidence values.
func seedFor(id string) int64 {
	h := fnv.New64a()
	h.Write([]byte(id))
	return int64(h.Sum64())
}
