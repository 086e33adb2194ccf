package model

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind is one of the seven public error categories every operation
// surfaces as either a success payload or {error_kind, message}.
type ErrorKind string

const (
	ErrorNotFound           ErrorKind = "NotFound"
	ErrorInvalidInput       ErrorKind = "InvalidInput"
	ErrorPresetProtected    ErrorKind = "PresetProtected"
	ErrorUpstreamUnavailable ErrorKind = "UpstreamUnavailable"
	ErrorParse              ErrorKind = "ParseError"
	ErrorDeadlineExceeded   ErrorKind = "DeadlineExceeded"
	ErrorInternal           ErrorKind = "Internal"
)

// StatusCode maps an ErrorKind to the HTTP status the server surface uses.
func (k ErrorKind) StatusCode() int {
	switch k {
	case ErrorNotFound:
		return http.StatusNotFound
	case ErrorInvalidInput, ErrorPresetProtected:
		return http.StatusBadRequest
	case ErrorUpstreamUnavailable:
		return http.StatusBadGateway
	case ErrorParse:
		return http.StatusUnprocessableEntity
	case ErrorDeadlineExceeded:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// AppError is the single error type carried across every component
// boundary; it wraps an ErrorKind and an optional cause.
type AppError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

func newErr(kind ErrorKind, format string, args ...any) *AppError {
	return &AppError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NewNotFoundError reports an unknown type-id, pipeline mode, or file id.
func NewNotFoundError(format string, args ...any) *AppError {
	return newErr(ErrorNotFound, format, args...)
}

// NewInvalidInputError reports a malformed regex, duplicate id on create,
// or an empty required field.
func NewInvalidInputError(format string, args ...any) *AppError {
	return newErr(ErrorInvalidInput, format, args...)
}

// NewPresetProtectedError reports an attempted mutation of a protected
// built-in entry beyond disable-only semantics.
func NewPresetProtectedError(format string, args ...any) *AppError {
	return newErr(ErrorPresetProtected, format, args...)
}

// NewUpstreamUnavailableError wraps a transport error from OCR/NER/VLM/MCP.
func NewUpstreamUnavailableError(cause error, format string, args ...any) *AppError {
	return &AppError{Kind: ErrorUpstreamUnavailable, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// NewParseError reports model output that could not be coerced into the
// expected shape after all fallback strategies were exhausted.
func NewParseError(cause error, format string, args ...any) *AppError {
	return &AppError{Kind: ErrorParse, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// NewDeadlineExceededError reports a per-stage timer firing.
func NewDeadlineExceededError(format string, args ...any) *AppError {
	return newErr(ErrorDeadlineExceeded, format, args...)
}

// NewInternalError wraps an unexpected failure (bugs, OOM, I/O).
func NewInternalError(cause error, format string, args ...any) *AppError {
	return &AppError{Kind: ErrorInternal, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf extracts the ErrorKind carried by err, defaulting to Internal for
// errors that didn't originate as an *AppError.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ErrorInternal
}
