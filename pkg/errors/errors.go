package errors

import (
	"errors"
	"fmt"
)

// Error codes
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeNotFound   = "NOT_FOUND"
	CodeDuplicate  = "DUPLICATE_KEY"
	CodeStorage    = "STORAGE_ERROR"
	CodeLedger     = "LEDGER_ERROR"
)

type AppError struct {
	Message    string
	Code       string
	StatusCode int
	Context    map[string]any
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func NewAppError(message, code string, statusCode int, context map[string]any) *AppError {
	return &AppError{
		Message:    message,
		Code:       code,
		StatusCode: statusCode,
		Context:    context,
	}
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

type NotFoundError struct {
	*AppError
}

// NewNotFoundError reports a missing record or attachment. The context map
// carries the lookup key so handlers can echo it back to the caller.
func NewNotFoundError(message string, context map[string]any) *NotFoundError {
	return &NotFoundError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeNotFound,
			StatusCode: 404,
			Context:    context,
		},
	}
}

type DuplicateKeyError struct {
	*AppError
	DocumentNumber string
}

// NewDuplicateKeyError reports an insert rejected by the unique index on
// the member's document number.
func NewDuplicateKeyError(documentNumber string) *DuplicateKeyError {
	return &DuplicateKeyError{
		AppError: &AppError{
			Message:    fmt.Sprintf("Document number %s is already registered", documentNumber),
			Code:       CodeDuplicate,
			StatusCode: 400,
			Context: map[string]any{
				"documentNumber": documentNumber,
			},
		},
		DocumentNumber: documentNumber,
	}
}

type ValidationError struct {
	*AppError
	Violations []FieldViolation
}

type FieldViolation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func NewValidationError(violations []FieldViolation) *ValidationError {
	return &ValidationError{
		AppError: &AppError{
			Message:    "Validation failed",
			Code:       CodeValidation,
			StatusCode: 400,
			Context: map[string]any{
				"violations": violations,
			},
		},
		Violations: violations,
	}
}

type StorageError struct {
	*AppError
	Operation string
}

func NewStorageError(message, operation string, cause error) *StorageError {
	return &StorageError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeStorage,
			StatusCode: 500,
			Context: map[string]any{
				"operation": operation,
			},
			Cause: cause,
		},
		Operation: operation,
	}
}

// IsNotFound reports whether err is a not-found condition.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsDuplicate reports whether err is a duplicate document number rejection.
func IsDuplicate(err error) bool {
	var dup *DuplicateKeyError
	return errors.As(err, &dup)
}

// AsAppError extracts the underlying AppError, defaulting to a generic
// 500 when err is not part of the taxonomy.
func AsAppError(err error) *AppError {
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return nf.AppError
	}
	var dup *DuplicateKeyError
	if errors.As(err, &dup) {
		return dup.AppError
	}
	var val *ValidationError
	if errors.As(err, &val) {
		return val.AppError
	}
	var st *StorageError
	if errors.As(err, &st) {
		return st.AppError
	}
	var app *AppError
	if errors.As(err, &app) {
		return app
	}
	return &AppError{
		Message:    "Internal server error",
		Code:       CodeStorage,
		StatusCode: 500,
		Cause:      err,
	}
}
