package api

import (
	"errors"
	"net/http"

	"github.com/multiserve/multiserve/internal/api/shared"
	"github.com/multiserve/multiserve/internal/job"
)

// MapErrorToStatusCode maps classified job failures to HTTP status codes.
// Unclassified errors are treated as internal so nothing escapes without
// translation.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, job.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, job.ErrPolicyBlocked):
		return http.StatusForbidden
	case errors.Is(err, job.ErrResourceExceeded):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, job.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, job.ErrUpstream):
		return http.StatusBadGateway
	case errors.Is(err, job.ErrCanceled):
		// The client is gone; the status is recorded in logs only.
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly message for a
// classified failure. Validation and policy errors carry our own wording and
// are returned as-is; upstream and internal failures are reduced to generic
// messages so subprocess output and filesystem paths never leak.
func GetSafeErrorMessage(err error) string {
	switch {
	case err == nil:
		return "An unexpected error occurred"
	case errors.Is(err, job.ErrInvalidInput),
		errors.Is(err, job.ErrPolicyBlocked):
		return err.Error()
	case errors.Is(err, job.ErrResourceExceeded):
		return "Output exceeds the allowed size limit"
	case errors.Is(err, job.ErrTimeout):
		return "The operation took too long and was aborted"
	case errors.Is(err, job.ErrUpstream):
		return "The source could not be processed"
	case errors.Is(err, job.ErrCanceled):
		return "Request canceled"
	default:
		return "An unexpected error occurred"
	}
}

// HandleJobError writes the response for a failed validation or job
// submission.
func HandleJobError(w http.ResponseWriter, r *http.Request, err error) {
	shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
}
