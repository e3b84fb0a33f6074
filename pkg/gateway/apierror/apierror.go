package apierror

import (
	"context"
	"errors"
	"net/http"

	"github.com/livedeck/livedeck/pkg/core"
)

type Envelope struct {
	Error *core.Error `json:"error"`
}

// FromError maps any error to a canonical error body and HTTP status.
func FromError(err error, requestID string) (*core.Error, int) {
	if err == nil {
		return nil, http.StatusOK
	}

	// Context timeouts/cancellation. Upstream timeouts surface as a plain
	// internal error; only the client-side cancel keeps a distinct status.
	if errors.Is(err, context.DeadlineExceeded) {
		return &core.Error{
			Type:      core.ErrBoundary,
			Message:   "request timeout",
			RequestID: requestID,
		}, http.StatusInternalServerError
	}
	if errors.Is(err, context.Canceled) {
		return &core.Error{
			Type:      core.ErrBoundary,
			Message:   "request cancelled",
			Code:      "cancelled",
			RequestID: requestID,
		}, http.StatusRequestTimeout
	}

	// Already canonical.
	var coreErr *core.Error
	if errors.As(err, &coreErr) && coreErr != nil {
		out := *coreErr
		out.RequestID = requestID
		return &out, StatusFromType(coreErr.Type)
	}

	// Unknown errors: treat as internal (do not leak details by default).
	return &core.Error{
		Type:      core.ErrBoundary,
		Message:   "internal error",
		RequestID: requestID,
	}, http.StatusInternalServerError
}

func StatusFromType(t core.ErrorType) int {
	switch t {
	case core.ErrValidation:
		return http.StatusBadRequest
	case core.ErrRateLimit:
		return http.StatusTooManyRequests
	case core.ErrConfiguration:
		return http.StatusInternalServerError
	case core.ErrBoundary, core.ErrStream:
		// Boundary failures are reported as plain server errors, not 502.
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
