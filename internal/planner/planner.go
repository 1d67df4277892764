// Package planner turns a confirmed travel demand into a prose travel plan
// by calling a remote text-generation service. The engine only sees the
// Generator interface; the OpenAI-backed implementation lives here.
package planner

import (
	"context"

	"github.com/planmate/backend/internal/domain"
)

// Generator produces a travel plan for a validated demand record. It is
// invoked exactly once per Confirming → GeneratingPlan transition; the record
// it receives is a snapshot and must not be retained past the call.
type Generator interface {
	Generate(ctx context.Context, record domain.DemandRecord) (string, error)
}

// UpstreamError reports a failure of the remote generation service: a
// transport error, a non-2xx response, or an unparseable payload. It is
// surfaced to the user as a retryable message; the conversation returns to
// the Confirming phase with the record intact.
type UpstreamError struct {
	Message string
	Err     error
}

func (e *UpstreamError) Error() string {
	if e.Err == nil {
		return "planner: " + e.Message
	}
	return "planner: " + e.Message + ": " + e.Err.Error()
}

func (e *UpstreamError) Unwrap() error { return e.Err }
