// Package apperror provides structured error handling for the engine.
// All business errors must use AppError for consistent API responses.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes for the stock ledger core
const (
	// Infrastructure errors (5xx)
	CodeInternal           = "INTERNAL_ERROR"
	CodeStorageUnavailable = "STORAGE_UNAVAILABLE"

	// Validation errors (400)
	CodeValidation      = "VALIDATION_ERROR"
	CodeInvalidMoveType = "INVALID_MOVE_TYPE"
	CodeInvalidQuantity = "INVALID_QUANTITY"
	CodeInvalidCost     = "INVALID_COST"
	CodeNoOpAdjustment  = "NOOP_ADJUSTMENT"

	// Business rule violations (422)
	CodeInsufficientStock = "INSUFFICIENT_STOCK"

	// Integrity failures (500, operator intervention required)
	CodeAggregateInconsistent = "AGGREGATE_INCONSISTENT"

	// Not found (404)
	CodeNotFound = "NOT_FOUND"

	// Conflict (409)
	CodeConflict            = "CONFLICT"
	CodeDuplicate           = "DUPLICATE_ENTRY"
	CodeTransactionConflict = "TRANSACTION_CONFLICT"
)

// AppError is the standard error type for the engine.
// It implements error interface and provides structured details for API responses.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (field errors, quantities, etc.)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions for common errors ---

// NewValidation creates a validation error (400)
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewInvalidMoveType creates an error for an unknown move type string (400)
func NewInvalidMoveType(value string) *AppError {
	return &AppError{
		Code:       CodeInvalidMoveType,
		Message:    fmt.Sprintf("unknown move type %q", value),
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"move_type": value},
	}
}

// NewInvalidQuantity creates an error for a non-positive move quantity (400)
func NewInvalidQuantity(message string) *AppError {
	return &AppError{
		Code:       CodeInvalidQuantity,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewInvalidCost creates an error for a negative unit cost (400)
func NewInvalidCost(message string) *AppError {
	return &AppError{
		Code:       CodeInvalidCost,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewNoOpAdjustment creates an error for a zero-delta adjustment (400)
func NewNoOpAdjustment() *AppError {
	return &AppError{
		Code:       CodeNoOpAdjustment,
		Message:    "adjustment delta must be non-zero",
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewNotFound creates a not found error (404)
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewInsufficientStock creates a stock shortage error.
// Returned only when negative stock is disabled by configuration.
func NewInsufficientStock(itemID string, requested, available float64) *AppError {
	return &AppError{
		Code:       CodeInsufficientStock,
		Message:    "Insufficient stock",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"item_id":   itemID,
			"requested": requested,
			"available": available,
		},
	}
}

// NewTransactionConflict is returned when a client transaction id is reused
// with different parameters than the recorded operation.
func NewTransactionConflict(clientTxID string) *AppError {
	return &AppError{
		Code:       CodeTransactionConflict,
		Message:    "Client transaction id was already used for a different operation",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"client_transaction_id": clientTxID},
	}
}

// NewAggregateInconsistent reports a violation of the ledger round-trip
// invariant. Never corrected automatically; surfaced for operator intervention.
func NewAggregateInconsistent(itemID string) *AppError {
	return &AppError{
		Code:       CodeAggregateInconsistent,
		Message:    "Item aggregate does not match move history replay",
		HTTPStatus: http.StatusInternalServerError,
		Details:    map[string]any{"item_id": itemID},
	}
}

// NewStorageUnavailable creates a transient storage error (503).
// The only error class a caller should retry, with the same client transaction id.
func NewStorageUnavailable(err error) *AppError {
	return &AppError{
		Code:       CodeStorageUnavailable,
		Message:    "Storage temporarily unavailable, retry with the same client transaction id",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

// NewInternal creates an internal server error (hides details from client)
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewConflict creates a conflict error (409)
func NewConflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// NewDuplicate creates a duplicate entry error (409)
func NewDuplicate(entity, field, value string) *AppError {
	return &AppError{
		Code:       CodeDuplicate,
		Message:    fmt.Sprintf("%s with this %s already exists", entity, field),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "field": field, "value": value},
	}
}

// --- Helper functions ---

// IsAppError checks if error is AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetHTTPStatus returns appropriate HTTP status for any error
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// IsNotFound checks if error is CodeNotFound
func IsNotFound(err error) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == CodeNotFound
	}
	return false
}

// IsTransactionConflict checks if error is CodeTransactionConflict
func IsTransactionConflict(err error) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == CodeTransactionConflict
	}
	return false
}

// IsRetryable reports whether the caller may safely retry the operation
// (with the same client transaction id).
func IsRetryable(err error) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == CodeStorageUnavailable
	}
	return false
}
