package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors returned by the storage layer.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidInput  = errors.New("invalid input")
	ErrUnauthorized  = errors.New("unauthorized")
)

// Error codes for standardized API error responses.
const (
	ErrCodeValidationError       = "VALIDATION_ERROR"
	ErrCodeResourceNotFound      = "RESOURCE_NOT_FOUND"
	ErrCodeResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS"
	ErrCodeProbeFailed           = "PROBE_FAILED"
	ErrCodeUnauthorized          = "UNAUTHORIZED"
	ErrCodeInternalError         = "INTERNAL_ERROR"
)

// Kind classifies an error for the HTTP boundary.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindProbe
	KindAuth
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindProbe:
		return "probe"
	case KindAuth:
		return "auth"
	default:
		return "internal"
	}
}

// HTTPStatus returns the response status for the kind.
// Validation, lookup, conflict and probe failures all share the client-error class.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation, KindNotFound, KindConflict, KindProbe:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Code returns the standardized error code for the kind.
func (k Kind) Code() string {
	switch k {
	case KindValidation:
		return ErrCodeValidationError
	case KindNotFound:
		return ErrCodeResourceNotFound
	case KindConflict:
		return ErrCodeResourceAlreadyExists
	case KindProbe:
		return ErrCodeProbeFailed
	case KindAuth:
		return ErrCodeUnauthorized
	default:
		return ErrCodeInternalError
	}
}

// Error is a classified error carrying a user-safe message.
// Err holds the underlying cause and is never shown to API callers.
type Error struct {
	Kind    Kind
	Message string
	Field   string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewValidationError reports a missing or malformed field.
func NewValidationError(field, message string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: message}
}

// NewNotFoundError reports a missing resource.
func NewNotFoundError(resource string) *Error {
	return &Error{Kind: KindNotFound, Message: resource + " not found", Err: ErrNotFound}
}

// NewConflictError reports a uniqueness violation.
func NewConflictError(message string) *Error {
	return &Error{Kind: KindConflict, Message: message, Err: ErrAlreadyExists}
}

// NewProbeError reports a reachability check that failed.
func NewProbeError(message string, cause error) *Error {
	return &Error{Kind: KindProbe, Message: message, Err: cause}
}

// NewAuthError reports missing, invalid or expired credentials.
func NewAuthError(message string, cause error) *Error {
	if cause == nil {
		cause = ErrUnauthorized
	}
	return &Error{Kind: KindAuth, Message: message, Err: cause}
}

// KindOf classifies err. Untagged errors are internal unless they wrap a
// storage sentinel.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrAlreadyExists):
		return KindConflict
	case errors.Is(err, ErrInvalidInput):
		return KindValidation
	case errors.Is(err, ErrUnauthorized):
		return KindAuth
	default:
		return KindInternal
	}
}

// StandardError represents a standardized error response from the API.
type StandardError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}
