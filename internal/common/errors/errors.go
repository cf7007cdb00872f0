// Package errors provides the standardized error taxonomy shared by the store,
// the intake components and the moderation workflow.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeConflict         ErrorCode = "CONFLICT"
	ErrCodeNotFound         ErrorCode = "NOT_FOUND"
	ErrCodeDeliveryFailed   ErrorCode = "DELIVERY_FAILED"
	ErrCodeForbidden        ErrorCode = "FORBIDDEN"
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeDatabase         ErrorCode = "DATABASE_ERROR"
	ErrCodeInternal         ErrorCode = "INTERNAL_ERROR"
)

// Sentinels for errors.Is checks. StandardError.Is matches them by code.
var (
	ErrConflict   = stderrors.New(string(ErrCodeConflict))
	ErrNotFound   = stderrors.New(string(ErrCodeNotFound))
	ErrDelivery   = stderrors.New(string(ErrCodeDeliveryFailed))
	ErrForbidden  = stderrors.New(string(ErrCodeForbidden))
	ErrValidation = stderrors.New(string(ErrCodeValidationFailed))
	ErrDatabase   = stderrors.New(string(ErrCodeDatabase))
)

var sentinels = map[ErrorCode]error{
	ErrCodeConflict:         ErrConflict,
	ErrCodeNotFound:         ErrNotFound,
	ErrCodeDeliveryFailed:   ErrDelivery,
	ErrCodeForbidden:        ErrForbidden,
	ErrCodeValidationFailed: ErrValidation,
	ErrCodeDatabase:         ErrDatabase,
}

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Is lets errors.Is(err, ErrConflict) and friends match on the code.
func (e *StandardError) Is(target error) bool {
	if s, ok := sentinels[e.Code]; ok && s == target {
		return true
	}
	if t, ok := target.(*StandardError); ok {
		return t.Code == e.Code
	}
	return false
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata attaches a key/value pair and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// ==========================
// 2. Error Constructors
// ==========================

// NewConflictError reports a violated state invariant.
func NewConflictError(message, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeConflict,
		Message:   message,
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotFoundError reports an unknown applicant or missing row.
func NewNotFoundError(resource string, id interface{}) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotFound,
		Message:   fmt.Sprintf("%s not found", resource),
		Details:   fmt.Sprintf("id: %v", id),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDeliveryError wraps a failed outbound notification.
func NewDeliveryError(chatID int64, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDeliveryFailed,
		Message:   "notification delivery failed",
		Details:   fmt.Sprintf("chatId: %d, error: %v", chatID, err),
		Retryable: true,
		Metadata:  map[string]interface{}{"chatId": chatID},
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewForbiddenError reports an actor pressing controls they do not own.
func NewForbiddenError(actorID int64) *StandardError {
	return &StandardError{
		Code:      ErrCodeForbidden,
		Message:   "actor is not allowed to perform this action",
		Details:   fmt.Sprintf("actorId: %d", actorID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationError reports answers that do not satisfy the submission schema.
func NewValidationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "submission validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseError wraps a store failure.
func NewDatabaseError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabase,
		Message:   "database operation failed",
		Details:   fmt.Sprintf("operation: %s, error: %v", operation, err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// ==========================
// 3. Utility Functions
// ==========================

// CodeOf extracts the code of the first StandardError in the chain.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr.Code
	}
	for code, sentinel := range sentinels {
		if stderrors.Is(err, sentinel) {
			return code
		}
	}
	return ErrCodeInternal
}

func IsConflict(err error) bool  { return stderrors.Is(err, ErrConflict) }
func IsNotFound(err error) bool  { return stderrors.Is(err, ErrNotFound) }
func IsDelivery(err error) bool  { return stderrors.Is(err, ErrDelivery) }
func IsForbidden(err error) bool { return stderrors.Is(err, ErrForbidden) }

// IsRetryable reports whether the failure is transient.
func IsRetryable(err error) bool {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr.Retryable
	}
	return false
}

// GetErrorCategory groups codes for log dashboards.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case code == ErrCodeConflict || code == ErrCodeNotFound:
		return "STATE"
	case strings.Contains(codeStr, "DELIVERY"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "DATABASE"):
		return "DATABASE"
	case code == ErrCodeForbidden:
		return "AUTH"
	case strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
