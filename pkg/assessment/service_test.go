package assessment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vitalpath-ai/platform/pkg/common/models"
	"github.com/vitalpath-ai/platform/pkg/pathway"
	"github.com/vitalpath-ai/platform/pkg/serving/predictor"
)

// stubCache is an in-process ResultCache with an injectable read error.
type stubCache struct {
	mu      sync.Mutex
	recs    map[string]*Record
	saves   int
	failGet map[string]error
}

func newStubCache() *stubCache {
	return &stubCache{recs: make(map[string]*Record), failGet: make(map[string]error)}
}

func (c *stubCache) Save(_ context.Context, rec *Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recs[rec.ID] = rec.Clone()
	c.saves++
	return nil
}

func (c *stubCache) Get(_ context.Context, id string) (*Record, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.failGet[id]; err != nil {
		return nil, false, err
	}
	rec, ok := c.recs[id]
	if !ok {
		return nil, false, nil
	}
	return rec.Clone(), true, nil
}

func (c *stubCache) put(rec *Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recs[rec.ID] = rec.Clone()
}

func (c *stubCache) saveCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saves
}

func TestPollPrefersCachedRecord(t *testing.T) {
	cache := newStubCache()
	e := newEnv(t, envOptions{cache: cache})

	// Only the cache knows this job.
	cache.put(&Record{ID: "cached-only", State: StateReady, Progress: 100})

	rec, err := e.svc.Poll(context.Background(), "cached-only")
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if rec.State != StateReady {
		t.Fatalf("expected the cached record, got %s", rec.State)
	}
}

func TestPollFallsBackWhenCacheFails(t *testing.T) {
	cache := newStubCache()
	e := newEnv(t, envOptions{cache: cache})
	cache.failGet["wobbly"] = errors.New("connection refused")

	seedRecord(t, e.repo, "wobbly", StateExtracting, 0)

	rec, err := e.svc.Poll(context.Background(), "wobbly")
	if err != nil {
		t.Fatalf("a broken cache must not break polling: %v", err)
	}
	if rec.State != StateExtracting {
		t.Fatalf("expected the repository record, got %s", rec.State)
	}
}

func TestTerminalRecordsLandInCache(t *testing.T) {
	cache := newStubCache()
	e := newEnv(t, envOptions{cache: cache})

	if _, err := e.svc.Submit(context.Background(), apneaRequest("cacheme", 120)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	waitTerminal(t, e.svc, "cacheme")

	if cache.saveCount() == 0 {
		t.Fatal("terminal records must be written through to the cache")
	}
}

func TestReportNotReadyWhileRunning(t *testing.T) {
	stuck := blockingApnea()
	e := newEnv(t, envOptions{extractors: []pathway.Extractor{stuck}})

	if _, err := e.svc.Submit(context.Background(), apneaRequest("slow", 120)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	<-stuck.started

	if _, err := e.svc.Report(context.Background(), "slow"); !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady while running, got %v", err)
	}

	close(stuck.release)
	waitTerminal(t, e.svc, "slow")

	report, err := e.svc.Report(context.Background(), "slow")
	if err != nil {
		t.Fatalf("report after completion: %v", err)
	}
	if report.JobID != "slow" || report.GeneratedAt.IsZero() {
		t.Fatalf("report header incomplete: %+v", report)
	}
	if len(report.Conditions) != 1 {
		t.Fatalf("expected one condition summary, got %d", len(report.Conditions))
	}
	summary := report.Conditions[0]
	if !strings.Contains(summary.Headline, "model apnea-lr 2.0.1") {
		t.Fatalf("headline must stamp the model: %q", summary.Headline)
	}
	if !strings.Contains(summary.Headline, summary.Bucket) {
		t.Fatalf("headline must carry the risk bucket: %q", summary.Headline)
	}
	if len(summary.TopFactors) == 0 || len(summary.TopFactors) > reportFactorLimit {
		t.Fatalf("top factors out of bounds: %v", summary.TopFactors)
	}
}

func TestReportForFailedJobStaysNotReady(t *testing.T) {
	e := newEnv(t, envOptions{})

	// No usable payload, so the job fails validation.
	_, err := e.svc.Submit(context.Background(), models.SubmitRequest{
		JobID:      "broken",
		Conditions: []string{"sleep_apnea"},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	waitTerminal(t, e.svc, "broken")

	if _, err := e.svc.Report(context.Background(), "broken"); !errors.Is(err, ErrNotReady) {
		t.Fatalf("failed jobs have no report, got %v", err)
	}
}

func TestReportOrdersConditionsByRisk(t *testing.T) {
	rec := &Record{
		ID:    "unit",
		State: StateReady,
		Predictions: []predictor.Prediction{
			{Condition: "afib", Risk: 0.2, Bucket: "low", ModelID: "afib-lr", ModelVersion: "1.3.0"},
			{Condition: "sleep_apnea", Risk: 0.9, Bucket: "high", ModelID: "apnea-lr", ModelVersion: "2.0.1"},
			{Condition: "chronic_stress", Risk: 0.5, Bucket: "elevated", ModelID: "stress-lr", ModelVersion: "1.1.2"},
		},
	}
	report := buildReport(rec)

	got := make([]string, len(report.Conditions))
	for i, c := range report.Conditions {
		got[i] = c.Condition
	}
	want := []string{"sleep_apnea", "chronic_stress", "afib"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("conditions not ordered by descending risk: %v", got)
		}
	}
}

func TestReportCapsTopFactors(t *testing.T) {
	var attrs []predictor.Attribution
	for i := 0; i < 6; i++ {
		attrs = append(attrs, predictor.Attribution{
			Feature:      fmt.Sprintf("f%d", i),
			Contribution: float64(6-i) / 10,
		})
	}
	rec := &Record{
		ID:    "unit",
		State: StateReady,
		Predictions: []predictor.Prediction{
			{Condition: "afib", Risk: 0.4, Bucket: "moderate", Attributions: attrs},
		},
	}
	report := buildReport(rec)

	factors := report.Conditions[0].TopFactors
	if len(factors) != reportFactorLimit {
		t.Fatalf("expected %d factors, got %v", reportFactorLimit, factors)
	}
	if factors[0] != "f0 (+0.600)" {
		t.Fatalf("factor formatting changed: %q", factors[0])
	}
}

func TestConditionsCatalog(t *testing.T) {
	e := newEnv(t, envOptions{})

	got := e.svc.Conditions()
	want := []string{"afib", "autonomic_dysfunction", "brain_tumor", "chronic_stress", "sleep_apnea"}
	if len(got) != len(want) {
		t.Fatalf("catalog = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("catalog = %v, want sorted %v", got, want)
		}
	}
}

func TestPurgeExpiredHonorsRetention(t *testing.T) {
	e := newEnv(t, envOptions{})

	seedRecord(t, e.repo, "old-done", StateReady, 2*time.Hour)
	seedRecord(t, e.repo, "fresh-done", StateReady, time.Minute)
	seedRecord(t, e.repo, "old-running", StateExtracting, 2*time.Hour)

	purged, err := e.svc.PurgeExpired(context.Background())
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if purged != 1 {
		t.Fatalf("expected 1 purged record, got %d", purged)
	}
	if _, err := e.repo.Get(context.Background(), "old-done"); err == nil {
		t.Fatal("expired terminal record should be gone")
	}
	for _, id := range []string{"fresh-done", "old-running"} {
		if _, err := e.repo.Get(context.Background(), id); err != nil {
			t.Fatalf("%s should survive the purge: %v", id, err)
		}
	}
}

func TestPurgeDisabledWithoutRetention(t *testing.T) {
	e := newEnv(t, envOptions{})
	svc := NewService(e.orch, e.repo, nil, 0)

	seedRecord(t, e.repo, "ancient", StateReady, 24*time.Hour)

	purged, err := svc.PurgeExpired(context.Background())
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if purged != 0 {
		t.Fatalf("retention 0 disables purging, got %d", purged)
	}
}
