// Package errors provides standardized error codes for the background jobs and clients.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeTemplateLoadFailed   ErrorCode = "TEMPLATE_LOAD_FAILED"
	ErrCodeTemplateRenderFailed ErrorCode = "TEMPLATE_RENDER_FAILED"

	ErrCodeAccountQueryFailed ErrorCode = "ACCOUNT_QUERY_FAILED"
	ErrCodeUsageLogFailed     ErrorCode = "USAGE_LOG_FAILED"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"

	ErrCodeFipeRequestFailed   ErrorCode = "FIPE_REQUEST_FAILED"
	ErrCodeFipeInvalidResponse ErrorCode = "FIPE_INVALID_RESPONSE"

	ErrCodeCacheIOFailed ErrorCode = "CACHE_IO_FAILED"
	ErrCodeLockFailed    ErrorCode = "LOCK_FAILED"
	ErrCodeConfigInvalid ErrorCode = "CONFIG_INVALID"
)

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
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause to errors.Is / errors.As.
func (e *StandardError) Unwrap() error {
	return e.cause
}

func newStandardError(code ErrorCode, message string, cause error, retryable bool) *StandardError {
	details := ""
	if cause != nil {
		details = cause.Error()
	}
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// NewTemplateLoadFailedError wraps a data-store failure while loading templates.
func NewTemplateLoadFailedError(err error) *StandardError {
	return newStandardError(ErrCodeTemplateLoadFailed, "Failed to load notification templates", err, true)
}

// NewTemplateRenderFailedError reports a template that could not be rendered for an account.
func NewTemplateRenderFailedError(templateID string, err error) *StandardError {
	e := newStandardError(ErrCodeTemplateRenderFailed, "Failed to render notification template", err, false)
	e.Metadata = map[string]interface{}{"templateId": templateID}
	return e
}

// NewAccountQueryFailedError wraps a data-store failure while selecting accounts.
func NewAccountQueryFailedError(err error) *StandardError {
	return newStandardError(ErrCodeAccountQueryFailed, "Failed to query accounts by expiry date", err, true)
}

// NewUsageLogFailedError wraps a failure reading or writing the usage log.
func NewUsageLogFailedError(err error) *StandardError {
	return newStandardError(ErrCodeUsageLogFailed, "Template usage log operation failed", err, true)
}

// NewNotificationSendFailedError creates a retryable notification send error.
func NewNotificationSendFailedError(channel string, err error) *StandardError {
	e := newStandardError(ErrCodeNotificationSendFailed, "Notification delivery failed", err, true)
	e.Details = fmt.Sprintf("channel: %s, error: %s", channel, e.Details)
	return e
}

// NewFipeRequestFailedError wraps a transport or status failure talking to the FIPE API.
func NewFipeRequestFailedError(path string, err error) *StandardError {
	e := newStandardError(ErrCodeFipeRequestFailed, "FIPE API request failed", err, true)
	e.Metadata = map[string]interface{}{"path": path}
	return e
}

// NewFipeInvalidResponseError reports a FIPE payload that failed schema validation.
func NewFipeInvalidResponseError(path, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeFipeInvalidResponse,
		Message:   "FIPE API returned an unexpected payload",
		Details:   details,
		Retryable: false,
		Metadata:  map[string]interface{}{"path": path},
		Timestamp: time.Now().UTC(),
	}
}

// NewCacheIOFailedError wraps a cache file read or write failure.
func NewCacheIOFailedError(key string, err error) *StandardError {
	e := newStandardError(ErrCodeCacheIOFailed, "Cache file operation failed", err, true)
	e.Metadata = map[string]interface{}{"key": key}
	return e
}

// NewLockFailedError wraps a failure talking to the lock backend.
func NewLockFailedError(err error) *StandardError {
	return newStandardError(ErrCodeLockFailed, "Distributed lock operation failed", err, true)
}

// NewConfigInvalidError reports an unusable configuration value.
func NewConfigInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeConfigInvalid,
		Message:   "Invalid configuration",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// GetRetryCount returns the recommended retry count for an error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeTemplateLoadFailed,
		ErrCodeAccountQueryFailed,
		ErrCodeUsageLogFailed,
		ErrCodeFipeRequestFailed:
		return 3

	case ErrCodeNotificationSendFailed,
		ErrCodeCacheIOFailed,
		ErrCodeLockFailed:
		return 1

	default:
		return 0
	}
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "TEMPLATE"):
		return "TEMPLATE"
	case strings.Contains(codeStr, "ACCOUNT") || strings.Contains(codeStr, "USAGE_LOG"):
		return "DATABASE"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "FIPE"):
		return "PRICING"
	case strings.Contains(codeStr, "CACHE") || strings.Contains(codeStr, "LOCK"):
		return "INFRASTRUCTURE"
	case strings.Contains(codeStr, "CONFIG"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}

// CodeOf returns the code of a StandardError, or INTERNAL_ERROR for anything else.
func CodeOf(err error) ErrorCode {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr.Code
	}
	return "INTERNAL_ERROR"
}
