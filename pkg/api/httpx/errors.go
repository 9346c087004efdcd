package httpx

import (
	"context"
	"errors"
	"net/http"

	"fleetworks/depot/pkg/apperr"
)

// ErrorResponse is the JSON envelope of every error returned by the API.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes one error.
type ErrorDetail struct {
	// Type categorizes the error; see the ErrorType constants.
	Type string `json:"type"`

	// Message is a human-readable description.
	Message string `json:"message"`

	// Code is a machine-readable error code.
	Code string `json:"code,omitempty"`

	// Fields maps request fields to their validation messages.
	Fields map[string][]string `json:"fields,omitempty"`
}

// Error types.
const (
	ErrorTypeInvalidRequest     = "invalid_request_error"
	ErrorTypeAuthentication     = "authentication_error"
	ErrorTypePermissionDenied   = "permission_denied"
	ErrorTypeNotFound           = "not_found"
	ErrorTypeConflict           = "conflict"
	ErrorTypeRateLimitExceeded  = "rate_limit_exceeded"
	ErrorTypeServerError        = "server_error"
	ErrorTypeServiceUnavailable = "service_unavailable"
	ErrorTypeGatewayTimeout     = "gateway_timeout"
)

// Error codes.
const (
	CodeValidationFailed = "validation_failed"
	CodeInvalidJSON      = "invalid_json"
	CodeRequestTooLarge  = "request_too_large"
	CodeInvalidParameter = "invalid_parameter"
	CodeRouteNotFound    = "route_not_found"
	CodeMethodNotAllowed = "method_not_allowed"
	CodeInternalError    = "internal_error"
	CodeTimeout          = "timeout"
	CodeRateLimited      = "rate_limited"
)

// RequestError is a client error produced while reading a request, before
// any service is called.
type RequestError struct {
	Status  int
	Code    string
	Message string
}

func (e *RequestError) Error() string {
	return e.Message
}

// NewErrorResponse creates an error envelope.
func NewErrorResponse(errorType, message, code string) *ErrorResponse {
	return &ErrorResponse{Error: ErrorDetail{Type: errorType, Message: message, Code: code}}
}

// HandleError maps err onto an HTTP status and error envelope. Unknown
// errors become a 500 whose message does not leak internals.
func HandleError(err error) (int, *ErrorResponse) {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Status, NewErrorResponse(errorTypeFor(reqErr.Status), reqErr.Message, reqErr.Code)
	}

	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return http.StatusRequestEntityTooLarge, NewErrorResponse(ErrorTypeInvalidRequest, err.Error(), CodeRequestTooLarge)
	}

	var verr *apperr.ValidationError
	if errors.As(err, &verr) {
		resp := NewErrorResponse(ErrorTypeInvalidRequest, "request validation failed", CodeValidationFailed)
		resp.Error.Fields = verr.Fields
		return http.StatusUnprocessableEntity, resp
	}

	switch {
	case errors.Is(err, apperr.ErrInvalid):
		return http.StatusBadRequest, NewErrorResponse(ErrorTypeInvalidRequest, err.Error(), "")
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound, NewErrorResponse(ErrorTypeNotFound, err.Error(), "")
	case errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict, NewErrorResponse(ErrorTypeConflict, err.Error(), "")
	case errors.Is(err, apperr.ErrUnauthorized):
		return http.StatusUnauthorized, NewErrorResponse(ErrorTypeAuthentication, "authentication required", "")
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden, NewErrorResponse(ErrorTypePermissionDenied, err.Error(), "")
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, NewErrorResponse(ErrorTypeGatewayTimeout, "request timed out", CodeTimeout)
	}

	return http.StatusInternalServerError, NewErrorResponse(ErrorTypeServerError,
		"An internal error occurred. Please try again later.", CodeInternalError)
}

func errorTypeFor(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return ErrorTypeAuthentication
	case http.StatusForbidden:
		return ErrorTypePermissionDenied
	case http.StatusNotFound:
		return ErrorTypeNotFound
	case http.StatusConflict:
		return ErrorTypeConflict
	case http.StatusTooManyRequests:
		return ErrorTypeRateLimitExceeded
	case http.StatusGatewayTimeout:
		return ErrorTypeGatewayTimeout
	}
	if status >= 500 {
		return ErrorTypeServerError
	}
	return ErrorTypeInvalidRequest
}
