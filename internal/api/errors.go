package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/ippiapp/ippi-server/internal/errors"
	"github.com/ippiapp/ippi-server/internal/http/response"
	"github.com/ippiapp/ippi-server/internal/store"
)

// APIError is a custom error type that implements huma.StatusError.
// It maps domain errors to HTTP responses with consistent structure.
type APIError struct { //nolint:revive // API prefix is intentional for clarity
	status  int
	Code    string `json:"code" doc:"Machine-readable error code"`
	Message string `json:"message" doc:"Human-readable error message"`
	Details any    `json:"details,omitempty" doc:"Additional error details"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// GetStatus implements huma.StatusError.
func (e *APIError) GetStatus() int {
	return e.status
}

// ContentType returns the content type for the error response.
func (e *APIError) ContentType(_ string) string {
	return "application/json"
}

// RegisterErrorHandler configures huma to use domain errors.
// Call this after creating the huma.API but before registering routes.
func RegisterErrorHandler() {
	huma.NewError = func(status int, message string, errs ...error) huma.StatusError {
		var details []string
		for _, err := range errs {
			var domainErr *domainerrors.Error
			if errors.As(err, &domainErr) {
				return &APIError{
					status:  domainErr.HTTPStatus(),
					Code:    string(domainErr.Code),
					Message: domainErr.Message,
					Details: domainErr.Details,
				}
			}

			var storeErr *store.Error
			if errors.As(err, &storeErr) {
				return &APIError{
					status:  storeErr.HTTPCode(),
					Code:    string(response.CodeForStatus(storeErr.HTTPCode())),
					Message: storeErr.Message,
				}
			}

			if err != nil {
				details = append(details, err.Error())
			}
		}

		apiErr := &APIError{
			status:  status,
			Code:    string(response.CodeForStatus(status)),
			Message: message,
		}
		// Schema validation failures from huma describe each offending field.
		if len(details) > 0 && status < 500 {
			apiErr.Details = details
		}
		return apiErr
	}
}

// EnvelopeTransformer wraps every response body in the standard envelope:
// {"success": true, "data": ...} on success and
// {"success": false, "error": code, "message": text, "data": details} on failure.
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	if apiErr, ok := v.(*APIError); ok {
		return response.Envelope{
			Success: false,
			Error:   apiErr.Code,
			Message: apiErr.Message,
			Data:    apiErr.Details,
		}, nil
	}

	if len(status) > 0 && status[0] == '2' {
		return response.Envelope{Success: true, Data: v}, nil
	}
	return v, nil
}

// fail converts a service error into a huma.StatusError so handlers never depend on
// how huma treats plain errors. Server-side failures are logged with their cause.
func (s *Server) fail(ctx context.Context, err error) error {
	var statusErr huma.StatusError
	if errors.As(err, &statusErr) {
		return statusErr
	}

	apiErr := huma.NewError(http.StatusInternalServerError, "internal server error", err)
	if apiErr.GetStatus() >= http.StatusInternalServerError {
		s.logger.ErrorContext(ctx, "request failed",
			"error", err,
			"correlation_id", CorrelationID(ctx),
		)
	}
	return apiErr
}
