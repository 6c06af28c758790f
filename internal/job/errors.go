package job

import (
	"context"
	"errors"
	"fmt"
)

// Failure taxonomy for job outcomes. Handlers map these to HTTP statuses;
// the runner never lets an unclassified error escape without translation.
var (
	// ErrInvalidInput marks malformed, oversized, or empty request fields.
	// Detected before submission; the runner also returns it for jobs with
	// non-positive limits.
	ErrInvalidInput = errors.New("invalid input")

	// ErrPolicyBlocked marks a disallowed source or format.
	ErrPolicyBlocked = errors.New("blocked by policy")

	// ErrResourceExceeded marks output or input over the configured limits.
	ErrResourceExceeded = errors.New("resource limit exceeded")

	// ErrTimeout marks a job that exceeded its deadline.
	ErrTimeout = errors.New("deadline exceeded")

	// ErrUpstream marks a failure of the delegated library or subprocess
	// that is not otherwise classified (network error, unavailable source,
	// unsupported format).
	ErrUpstream = errors.New("upstream failure")

	// ErrInternal marks an unexpected failure or bug, including a work
	// function panic.
	ErrInternal = errors.New("internal error")

	// ErrCanceled marks a job abandoned by its caller before completion.
	ErrCanceled = errors.New("job canceled")
)

var taxonomy = []error{
	ErrInvalidInput,
	ErrPolicyBlocked,
	ErrResourceExceeded,
	ErrTimeout,
	ErrUpstream,
	ErrInternal,
	ErrCanceled,
}

// IsClassified reports whether err already wraps one of the taxonomy
// sentinels.
func IsClassified(err error) bool {
	for _, sentinel := range taxonomy {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// Classify translates an arbitrary work function error into the taxonomy.
// Already-classified errors pass through unchanged, context errors become
// timeout/cancellation failures, and everything else is treated as an
// upstream failure so the original message survives for inspection.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case IsClassified(err):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %v", ErrCanceled, err)
	default:
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
}
