package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
)

const (
	CodeNotFound     = "NOT_FOUND"
	CodeValidation   = "VALIDATION_ERROR"
	CodeConflict     = "CONFLICT"
	CodeInternal     = "INTERNAL_ERROR"
	CodeBadRequest   = "BAD_REQUEST"
	CodeTimeout      = "TIMEOUT"
	CodeUnavailable  = "SERVICE_UNAVAILABLE"
	CodeInvalidInput = "INVALID_INPUT"

	// Reservation engine codes.
	CodeSlotConflict           = "SLOT_CONFLICT"
	CodeVersionConflict        = "VERSION_CONFLICT"
	CodeLockTimeout            = "LOCK_TIMEOUT"
	CodeStorageContention      = "STORAGE_CONTENTION"
	CodeTemporarilyUnavailable = "TEMPORARILY_UNAVAILABLE"
	CodeNoProviderAvailable    = "NO_PROVIDER_AVAILABLE"
	CodeIdempotencyKeyReuse    = "IDEMPOTENCY_KEY_REUSE"
)

type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) StatusCode() int {
	return e.HTTPStatus
}

func (e *AppError) ToJSON() []byte {
	response := ErrorResponse{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	}
	data, _ := json.Marshal(response)
	return data
}

type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func New(code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

func Wrap(err error, code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

func NotFound(resource string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
	}
}

func NotFoundWithID(resource, id string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details: map[string]any{
			"resource": resource,
			"id":       id,
		},
	}
}

func Validation(message string, details map[string]any) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    details,
	}
}

func InvalidInput(message string) *AppError {
	return &AppError{
		Code:       CodeInvalidInput,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

func Internal(message string, err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func Timeout(message string) *AppError {
	return &AppError{
		Code:       CodeTimeout,
		Message:    message,
		HTTPStatus: http.StatusGatewayTimeout,
	}
}

func Unavailable(service string) *AppError {
	return &AppError{
		Code:       CodeUnavailable,
		Message:    fmt.Sprintf("%s is temporarily unavailable", service),
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

// SlotConflict: the requested provider/time is genuinely taken. Not
// retryable; the caller must pick another slot.
func SlotConflict(message string) *AppError {
	return &AppError{
		Code:       CodeSlotConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// VersionConflict: the caller's expected version is stale; another writer
// committed first.
func VersionConflict(resource, id string, expected, actual int64) *AppError {
	return &AppError{
		Code:       CodeVersionConflict,
		Message:    fmt.Sprintf("%s was modified by another request", resource),
		HTTPStatus: http.StatusConflict,
		Details: map[string]any{
			"id":               id,
			"expected_version": expected,
			"actual_version":   actual,
		},
	}
}

// LockTimeout: the provider lock could not be acquired within its wait
// budget. Transient.
func LockTimeout(providerID string) *AppError {
	return &AppError{
		Code:       CodeLockTimeout,
		Message:    "timed out waiting for the provider lock",
		HTTPStatus: http.StatusServiceUnavailable,
		Details:    map[string]any{"provider_id": providerID},
	}
}

// StorageContention: the storage layer aborted the operation under
// concurrent load. Transient.
func StorageContention(message string, err error) *AppError {
	return &AppError{
		Code:       CodeStorageContention,
		Message:    message,
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

// TemporarilyUnavailable is surfaced after retry exhaustion; the caller
// may retry later.
func TemporarilyUnavailable(err error) *AppError {
	return &AppError{
		Code:       CodeTemporarilyUnavailable,
		Message:    "the reservation could not be committed right now, please try again",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

func NoProviderAvailable() *AppError {
	return &AppError{
		Code:       CodeNoProviderAvailable,
		Message:    "no provider is available for the requested time",
		HTTPStatus: http.StatusConflict,
	}
}

// IdempotencyKeyReuse: the same key was replayed with a different payload.
func IdempotencyKeyReuse(key string) *AppError {
	return &AppError{
		Code:       CodeIdempotencyKeyReuse,
		Message:    "idempotency key was already used with a different payload",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"idempotency_key": key},
	}
}

func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

func AsAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Internal("An unexpected error occurred", err)
}

// CodeOf returns the AppError code, or empty for non-application errors.
func CodeOf(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// HasCode reports whether err carries the given application error code.
func HasCode(err error, code string) bool {
	return CodeOf(err) == code
}
