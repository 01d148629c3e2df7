package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches errors sharing the same code so clones compare equal to their template.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrMethodNotAllowed   = New("METHOD_NOT_ALLOWED", http.StatusMethodNotAllowed, "operation not supported")
	ErrPayloadTooLarge    = New("PAYLOAD_TOO_LARGE", http.StatusRequestEntityTooLarge, "payload too large")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrServiceUnavailable = New("SERVICE_UNAVAILABLE", http.StatusServiceUnavailable, "service unavailable")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// Client-side workflow errors. Statuses mirror the closest HTTP meaning so the
// same type can travel through the response envelope.
var (
	ErrFormInvalid          = New("FORM_INVALID", http.StatusBadRequest, "please complete all required fields")
	ErrCaptchaMismatch      = New("CAPTCHA_MISMATCH", http.StatusBadRequest, "Incorrect answer. Please try again.")
	ErrFileRequired         = New("FILE_REQUIRED", http.StatusBadRequest, "Please select a file")
	ErrFileTypeNotAllowed   = New("FILE_TYPE_NOT_ALLOWED", http.StatusUnsupportedMediaType, "Invalid file type. Allowed: images, videos, audio, PDFs, and text files")
	ErrFileTooLarge         = New("FILE_TOO_LARGE", http.StatusRequestEntityTooLarge, "File too large. Maximum size is 15MB")
	ErrSubmissionInProgress = New("SUBMISSION_IN_PROGRESS", http.StatusConflict, "a submission is already in progress")
	ErrUploadFailed         = New("UPLOAD_FAILED", http.StatusBadGateway, "Upload failed")
	ErrPersistFailed        = New("PERSIST_FAILED", http.StatusBadGateway, "File uploaded but failed to save details. Please try again.")
	ErrFetchFailed          = New("FETCH_FAILED", http.StatusBadGateway, "failed to load materials")
	ErrFlagFailed           = New("FLAG_FAILED", http.StatusBadGateway, "Failed to report content. Please try again.")
	ErrMaterialNotFound     = New("MATERIAL_NOT_FOUND", http.StatusNotFound, "material not found")
)

var validationRejections = map[string]struct{}{
	ErrFormInvalid.Code:        {},
	ErrCaptchaMismatch.Code:    {},
	ErrFileRequired.Code:       {},
	ErrFileTypeNotAllowed.Code: {},
	ErrFileTooLarge.Code:       {},
}

// IsValidationRejection reports whether err is one of the submission gate rejections.
func IsValidationRejection(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	_, ok := validationRejections[e.Code]
	return ok
}

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
