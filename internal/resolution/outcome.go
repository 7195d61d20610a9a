package resolution

import (
	"errors"

	"idlens/internal/discovery"
	dErrors "idlens/pkg/domain-errors"
)

// Status says what a resolution did to controller state.
type Status string

const (
	// StatusApplied: the result replaced the state cell.
	StatusApplied Status = "applied"
	// StatusSkipped: nothing was requested (empty search term).
	StatusSkipped Status = "skipped"
	// StatusStale: the result arrived after a newer search was applied and was dropped.
	StatusStale Status = "stale"
	// StatusFailed: the request failed; state is unchanged.
	StatusFailed Status = "failed"
)

// DiagnosticKind classifies what went wrong, if anything.
type DiagnosticKind string

const (
	DiagnosticNone DiagnosticKind = ""
	// ServiceError: the discovery call failed (network, auth, outage, undecodable response).
	ServiceError DiagnosticKind = "service_error"
	// EmptyResult: the call succeeded but matched nothing, or the answer was not a collection.
	EmptyResult DiagnosticKind = "empty_result"
	// MalformedInput: the key or term was rejected as malformed.
	MalformedInput DiagnosticKind = "malformed_input"
)

// Outcome reports a resolution to its caller in place of an error. Resolutions
// never fail from the caller's point of view; Err is informational.
type Outcome struct {
	Status     Status
	Diagnostic DiagnosticKind
	Sequence   uint64
	Results    int
	// Retryable marks failures that may succeed on a later attempt.
	Retryable bool
	Err       error
}

func classify(err error) DiagnosticKind {
	switch {
	case err == nil:
		return DiagnosticNone
	case errors.Is(err, discovery.ErrNotCollection):
		return EmptyResult
	case discovery.CategoryOf(err) == discovery.CategoryBadRequest,
		dErrors.HasCode(err, dErrors.CodeInvalidInput):
		return MalformedInput
	default:
		return ServiceError
	}
}
