package errorutil

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// Sentinel errors for the failure taxonomy. DomainErrors built by the
// constructors below unwrap to one of these, so callers can use errors.Is.
var (
	ErrUpstream  = errors.New("upstream fetch failed")
	ErrTimeout   = errors.New("fetch wait timed out")
	ErrInvariant = errors.New("invariant violation")
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
	kind       error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.kind != nil {
		errs = append(errs, e.kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

// NewUpstreamError reports a RecordSource failure for dataset.
func NewUpstreamError(dataset string, err error) error {
	return &DomainError{
		Code:       "UPSTREAM_ERROR",
		Message:    fmt.Sprintf("fetch %s from upstream", dataset),
		HTTPStatus: http.StatusBadGateway,
		Details:    map[string]any{"dataset": dataset},
		Err:        err,
		kind:       ErrUpstream,
	}
}

// NewTimeoutError reports a wait on an in-flight fetch that exceeded its bound.
func NewTimeoutError(dataset string, err error) error {
	return &DomainError{
		Code:       "FETCH_TIMEOUT",
		Message:    fmt.Sprintf("timed out waiting for %s", dataset),
		HTTPStatus: http.StatusGatewayTimeout,
		Details:    map[string]any{"dataset": dataset},
		Err:        err,
		kind:       ErrTimeout,
	}
}

// NewInvariantViolation reports a failed internal consistency check.
func NewInvariantViolation(check string, details map[string]any) error {
	return &DomainError{
		Code:       "INVARIANT_VIOLATION",
		Message:    check,
		HTTPStatus: http.StatusInternalServerError,
		Details:    details,
		kind:       ErrInvariant,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		if de, ok := NewNotFound("resource", nil).(*DomainError); ok {
			return de
		}
	}
	if de, ok := NewInternalError(err).(*DomainError); ok {
		return de
	}
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}
