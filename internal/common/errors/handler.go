// internal/common/errors/handler.go
package errors

import (
	stderrors "errors"
	"time"
)

// Disposition tells the transport what to do with a failed event.
type Disposition struct {
	Code ErrorCode
	// NotifyActor is set when the initiating applicant or moderator should see a message.
	NotifyActor bool
}

// ErrorHandler turns event failures into log entries and a disposition.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// HandleEventError never panics and never escalates: the worker keeps running.
func (h *ErrorHandler) HandleEventError(eventKind string, applicantID uint64, err error) Disposition {
	if err == nil {
		return Disposition{}
	}

	stdErr := h.normalizeError(err)
	fields := map[string]interface{}{
		"eventKind":     eventKind,
		"applicantId":   applicantID,
		"errorCode":     string(stdErr.Code),
		"message":       stdErr.Message,
		"details":       stdErr.Details,
		"retryable":     stdErr.Retryable,
		"errorCategory": GetErrorCategory(stdErr.Code),
	}

	switch stdErr.Code {
	case ErrCodeNotFound:
		h.logger.Info("event referenced unknown applicant", fields)
		return Disposition{Code: stdErr.Code}
	case ErrCodeConflict, ErrCodeForbidden, ErrCodeValidationFailed:
		h.logger.Warn("event rejected", fields)
		return Disposition{Code: stdErr.Code, NotifyActor: true}
	case ErrCodeDeliveryFailed:
		h.logger.Error("notification not delivered", fields)
		return Disposition{Code: stdErr.Code}
	default:
		h.logger.Error("event failed", fields)
		return Disposition{Code: stdErr.Code, NotifyActor: true}
	}
}

// normalizeError ensures we always have a StandardError
func (h *ErrorHandler) normalizeError(err error) *StandardError {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	code := CodeOf(err)
	return &StandardError{
		Code:      code,
		Message:   "unexpected error",
		Details:   err.Error(),
		Retryable: code == ErrCodeDatabase || code == ErrCodeDeliveryFailed,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}
