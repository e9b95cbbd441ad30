package fault

import (
	"errors"
	"fmt"
	"testing"
)

func TestFromPreservesFaultThroughWrapping(t *testing.T) {
	base := New(ClassInput, CodeRangeViolation, "sample out of range").WithItems([]string{"idx 3", "idx 9"})
	wrapped := fmt.Errorf("validating ecg: %w", base)

	got := From(wrapped)
	if got.Code != CodeRangeViolation {
		t.Fatalf("expected RangeViolation, got %s", got.Code)
	}
	if len(got.Items) != 2 {
		t.Fatalf("expected violation items to survive wrapping, got %v", got.Items)
	}
	if !IsClass(wrapped, ClassInput) {
		t.Fatal("expected input class to be visible through wrapping")
	}
}

func TestFromTranslatesForeignErrors(t *testing.T) {
	got := From(errors.New("pq: connection refused"))
	if got.Class != ClassInternal || got.Code != CodeInternal {
		t.Fatalf("foreign error should become internal fault, got %s/%s", got.Class, got.Code)
	}
	if got.Unwrap() == nil {
		t.Fatal("cause should be preserved for logging")
	}
}

func TestRetryableOnlyForResourceClass(t *testing.T) {
	if Retryable(New(ClassConfig, CodeUnsupportedModality, "")) {
		t.Fatal("config faults must never be retried")
	}
	if !Retryable(New(ClassResource, CodeStageTimeout, "preprocessing deadline")) {
		t.Fatal("resource faults should be retryable")
	}
}

func TestIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(ClassConfig, CodeDuplicateJob, "job already terminal"))
	if !errors.Is(err, New(ClassConfig, CodeDuplicateJob, "")) {
		t.Fatal("errors.Is should match faults by code")
	}
	if errors.Is(err, New(ClassConfig, CodeNotFound, "")) {
		t.Fatal("different codes must not match")
	}
}

func TestStageAndPathwayTagging(t *testing.T) {
	f := New(ClassInternal, CodeInternal, "scorer panicked").WithStage("extracting").WithPathway("cardiac")
	if f.Stage != "extracting" || f.Pathway != "cardiac" {
		t.Fatalf("unexpected tags: %+v", f)
	}
	if f.Error() == "" {
		t.Fatal("expected non-empty error string")
	}
}
