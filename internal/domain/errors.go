package domain

import "errors"

// ErrNotFound is returned by repo and service functions when the requested
// resource (a conversation, draft, or plan) does not exist.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned when input fails business rule validation.
// Handlers should map this to HTTP 422 Unprocessable Entity.
// Field-level failures carry a *ValidationError, which matches ErrValidation
// under errors.Is.
var ErrValidation = errors.New("validation error")

// ErrInvalidPhase is returned when an operation is not legal in the
// conversation's current phase (e.g. confirming while still collecting).
// Handlers should map this to HTTP 409 Conflict.
var ErrInvalidPhase = errors.New("invalid conversation phase")

// ErrGenerationInFlight is returned when a confirm action arrives while a
// plan-generation request is already outstanding for the conversation.
// Exactly one generation request may be in flight per conversation; the
// second request is rejected, not queued. Handlers map this to HTTP 409.
var ErrGenerationInFlight = errors.New("plan generation already in flight")

// ValidationReason is the structured cause of a demand validation failure.
type ValidationReason string

const (
	EmptyMessage         ValidationReason = "EmptyMessage"
	EmptyDestination     ValidationReason = "EmptyDestination"
	MissingStartDate     ValidationReason = "MissingStartDate"
	MissingEndDate       ValidationReason = "MissingEndDate"
	EndBeforeStart       ValidationReason = "EndBeforeStart"
	InvalidBudget        ValidationReason = "InvalidBudget"
	InvalidTravelerCount ValidationReason = "InvalidTravelerCount"
)

// ValidationError reports why a DemandRecord failed validation. It blocks the
// Confirming → GeneratingPlan transition and is fully recoverable by further
// user input. Message is the user-facing text; Reason is the stable code.
type ValidationError struct {
	Reason  ValidationReason
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Is makes errors.Is(err, ErrValidation) hold for every ValidationError, so
// callers can branch on the sentinel without knowing the concrete type.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
