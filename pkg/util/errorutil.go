package util

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes shared by the console and its HTTP surface.
const (
	CodeValidation   = "VALIDATION_FAILED"
	CodeTransport    = "TRANSPORT_FAILED"
	CodeNotFound     = "NOT_FOUND"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeConflict     = "CONFLICT"
	CodeInternal     = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

// NewValidationError reports input the user can correct. Nothing was sent upstream.
func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusUnprocessableEntity, details)
}

// NewMissingFieldsError is a validation error listing the unset required fields.
func NewMissingFieldsError(op string, fields []string) error {
	return NewValidationError(fmt.Sprintf("%s requires %v", op, fields), map[string]any{
		"missing_fields": fields,
	})
}

// NewTransportError wraps a failed call to the ticket backend. status is the
// upstream HTTP status, or 0 when no response was received.
func NewTransportError(op string, status int, err error) error {
	details := map[string]any{"operation": op}
	if status > 0 {
		details["upstream_status"] = status
	}
	return &DomainError{
		Code:       CodeTransport,
		Message:    op + " failed",
		HTTPStatus: http.StatusBadGateway,
		Details:    details,
		Err:        err,
	}
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// IsValidation reports whether err is, or wraps, a validation error.
func IsValidation(err error) bool {
	return hasCode(err, CodeValidation)
}

// IsTransport reports whether err is, or wraps, a backend transport error.
func IsTransport(err error) bool {
	return hasCode(err, CodeTransport)
}

func hasCode(err error, code string) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Code == code
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
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}
