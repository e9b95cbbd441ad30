package fault

import (
	"errors"
	"fmt"
	"strings"
)

// Class buckets every failure into the taxonomy the orchestrator reports:
// input errors are recoverable by resubmission, config errors indicate a
// caller/request mismatch and are never retried, resource errors are retried
// with backoff before surfacing, internal errors are always surfaced.
type Class string

const (
	ClassInput    Class = "input"
	ClassConfig   Class = "config"
	ClassResource Class = "resource"
	ClassInternal Class = "internal"
)

// Code identifies a specific failure mode. Codes are stable strings so
// polling callers can switch on them.
type Code string

const (
	CodeInsufficientLength      Code = "InsufficientLength"
	CodeExcessiveMissingData    Code = "ExcessiveMissingData"
	CodeRangeViolation          Code = "RangeViolation"
	CodeUnsupportedModality     Code = "UnsupportedModality"
	CodeDimensionMismatch       Code = "DimensionMismatch"
	CodeMissingRequiredModality Code = "MissingRequiredModality"
	CodeUnknownCondition        Code = "UnknownCondition"
	CodeEmptyPathwaySet         Code = "EmptyPathwaySet"
	CodeDuplicateJob            Code = "DuplicateJob"
	CodeNotFound                Code = "NotFound"
	CodeCancelled               Code = "Cancelled"
	CodeStageTimeout            Code = "StageTimeout"
	CodeQueueSaturated          Code = "QueueSaturated"
	CodeInternal                Code = "Internal"
)

// Fault is the single error shape that crosses component boundaries. Every
// pipeline failure is translated into exactly one Fault before the
// orchestrator records it; raw internal errors never reach a polling caller.
type Fault struct {
	Class   Class    `json:"class"`
	Code    Code     `json:"code"`
	Stage   string   `json:"stage,omitempty"`
	Pathway string   `json:"pathway,omitempty"`
	Detail  string   `json:"detail,omitempty"`
	Items   []string `json:"items,omitempty"`
	cause   error
}

func (f *Fault) Error() string {
	var b strings.Builder
	b.WriteString(string(f.Code))
	if f.Pathway != "" {
		fmt.Fprintf(&b, " [pathway=%s]", f.Pathway)
	}
	if f.Detail != "" {
		b.WriteString(": ")
		b.WriteString(f.Detail)
	}
	if len(f.Items) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(f.Items, "; "))
	}
	return b.String()
}

func (f *Fault) Unwrap() error {
	return f.cause
}

// Is lets errors.Is match two Faults by code, so sentinel comparisons like
// errors.Is(err, fault.New(fault.ClassInput, fault.CodeNotFound, "")) work.
func (f *Fault) Is(target error) bool {
	var other *Fault
	if !errors.As(target, &other) {
		return false
	}
	return f.Code == other.Code
}

// New builds a Fault with no underlying cause.
func New(class Class, code Code, detail string) *Fault {
	return &Fault{Class: class, Code: code, Detail: detail}
}

// Newf is New with formatting.
func Newf(class Class, code Code, format string, args ...interface{}) *Fault {
	return &Fault{Class: class, Code: code, Detail: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause; the cause is preserved for logs but excluded from
// the structured record handed to pollers.
func Wrap(class Class, code Code, detail string, cause error) *Fault {
	return &Fault{Class: class, Code: code, Detail: detail, cause: cause}
}

// WithStage returns a copy tagged with the pipeline stage that failed.
func (f *Fault) WithStage(stage string) *Fault {
	cp := *f
	cp.Stage = stage
	return &cp
}

// WithPathway returns a copy tagged with the pathway that failed.
func (f *Fault) WithPathway(pathway string) *Fault {
	cp := *f
	cp.Pathway = pathway
	return &cp
}

// WithItems returns a copy carrying the full violation list, so callers see
// every problem at once rather than just the first.
func (f *Fault) WithItems(items []string) *Fault {
	cp := *f
	cp.Items = items
	return &cp
}

// From extracts the Fault from err, translating foreign errors into an
// internal-class Fault so no raw error ever escapes untyped.
func From(err error) *Fault {
	if err == nil {
		return nil
	}
	var f *Fault
	if errors.As(err, &f) {
		return f
	}
	return Wrap(ClassInternal, CodeInternal, err.Error(), err)
}

// IsClass reports whether err carries a Fault of the given class.
func IsClass(err error, class Class) bool {
	var f *Fault
	if !errors.As(err, &f) {
		return false
	}
	return f.Class == class
}

// IsCode reports whether err carries a Fault with the given code.
func IsCode(err error, code Code) bool {
	var f *Fault
	if !errors.As(err, &f) {
		return false
	}
	return f.Code == code
}

// Retryable reports whether the orchestrator should retry the stage with
// backoff. Only resource-class faults qualify; config mismatches are
// surfaced immediately.
func Retryable(err error) bool {
	return IsClass(err, ClassResource)
}
