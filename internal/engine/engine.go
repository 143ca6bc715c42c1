// Package engine defines the optimization-engine boundary of the tailoring
// pipeline and its Gemini-backed implementation.
package engine

import (
	"context"
	"fmt"

	"github.com/hirekit/tailor/internal/types"
)

// ErrorKind classifies engine failures.
type ErrorKind string

const (
	// KindTimeout means the call exceeded its budget.
	KindTimeout ErrorKind = "Timeout"
	// KindInvalidInput means the engine rejected the request; retrying with
	// the same input cannot succeed.
	KindInvalidInput ErrorKind = "InvalidInput"
	// KindUnavailable means a transient provider failure. The session never
	// retries it automatically; the user may retry.
	KindUnavailable ErrorKind = "Unavailable"
)

// Error is the engine's structured failure.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("engine error (%s): %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("engine error (%s): %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Engine produces an optimized resume and before/after ATS scores from
// normalized job requirements and a parsed resume. Implementations are
// expected to be expensive; callers must issue at most one outstanding call
// per session and must not retry automatically.
type Engine interface {
	Optimize(ctx context.Context, req *types.JobRequirements, resume *types.StructuredResume) (*types.TailoringResult, error)
}
