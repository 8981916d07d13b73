package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Error codes
const (
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeConflict           = "CONFLICT"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeStorageUnavailable = "STORAGE_UNAVAILABLE"
	ErrCodeWriteFailed        = "WRITE_FAILED"
	ErrCodeInternal           = "INTERNAL_ERROR"
	ErrCodeBadRequest         = "BAD_REQUEST"
	ErrCodeRateLimited        = "RATE_LIMITED"
)

// FieldError names one offending field of a rejected record.
type FieldError struct {
	Record int    `json:"record,omitempty"`
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (f FieldError) String() string {
	return fmt.Sprintf("%s %s", f.Field, f.Reason)
}

// FailedRecord is one record a write could not persist.
type FailedRecord struct {
	Index   int    `json:"index"`
	ID      string `json:"id,omitempty"`
	Message string `json:"message"`
}

// WriteReport describes the outcome of a (possibly partial) bulk write.
type WriteReport struct {
	Succeeded []string       `json:"succeeded"`
	Failed    []FailedRecord `json:"failed"`
}

// AppError represents an application error with HTTP status code and error code
type AppError struct {
	Code    string       // Error code (e.g., "NOT_FOUND", "VALIDATION_ERROR")
	Message string       // Human-readable error message
	Status  int          // HTTP status code
	Err     error        // Wrapped underlying error (optional)
	Fields  []FieldError // Field-level failures for VALIDATION_ERROR
	Write   *WriteReport // Per-record outcome for WRITE_FAILED
}

// Error implements the error interface
func (e *AppError) Error() string {
	msg := e.Message
	if len(e.Fields) > 0 {
		parts := make([]string, 0, len(e.Fields))
		for _, f := range e.Fields {
			parts = append(parts, f.String())
		}
		msg = fmt.Sprintf("%s [%s]", msg, strings.Join(parts, "; "))
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Unwrap returns the underlying error for error wrapping support
func (e *AppError) Unwrap() error {
	return e.Err
}

// As returns the AppError in err's chain, if any.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsCode reports whether err carries an AppError with the given code.
func IsCode(err error, code string) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}

// Wrap passes AppErrors through untouched and turns anything else into an internal error.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := As(err); ok {
		return err
	}
	return NewInternalError(err)
}

// NewNotFoundError creates a new NOT_FOUND error
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found: %v", resource, id),
		Status:  404,
	}
}

// NewValidationError creates a VALIDATION_ERROR for a single field.
func NewValidationError(field string, reason string) *AppError {
	return NewValidationFailed(FieldError{Field: field, Reason: reason})
}

// NewValidationFailed creates a VALIDATION_ERROR carrying every field failure.
func NewValidationFailed(fields ...FieldError) *AppError {
	return &AppError{
		Code:    ErrCodeValidation,
		Message: "validation failed",
		Status:  400,
		Fields:  fields,
	}
}

// NewConflictError creates a new CONFLICT error
func NewConflictError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeConflict,
		Message: message,
		Status:  409,
	}
}

// NewUnauthorizedError creates a new UNAUTHORIZED error
func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeUnauthorized,
		Message: message,
		Status:  401,
	}
}

// NewStorageUnavailable creates a STORAGE_UNAVAILABLE error. It is fatal for the request.
func NewStorageUnavailable(err error) *AppError {
	return &AppError{
		Code:    ErrCodeStorageUnavailable,
		Message: "document store unavailable",
		Status:  503,
		Err:     err,
	}
}

// NewWriteFailed creates a WRITE_FAILED error with the per-record outcome.
func NewWriteFailed(report *WriteReport, err error) *AppError {
	return &AppError{
		Code:    ErrCodeWriteFailed,
		Message: "write failed",
		Status:  500,
		Err:     err,
		Write:   report,
	}
}

// NewInternalError creates a new INTERNAL_ERROR
func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: "internal server error",
		Status:  500,
		Err:     err,
	}
}

// NewBadRequestError creates a new BAD_REQUEST error
func NewBadRequestError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeBadRequest,
		Message: message,
		Status:  400,
	}
}

// NewRateLimitedError creates a RATE_LIMITED error
func NewRateLimitedError() *AppError {
	return &AppError{
		Code:    ErrCodeRateLimited,
		Message: "too many requests",
		Status:  429,
	}
}
