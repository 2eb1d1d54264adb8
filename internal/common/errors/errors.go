// Package errors provides standardized error handling for the model-testing
// workers and their BPMN workflow integration.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeDataInsufficient   ErrorCode = "DATA_INSUFFICIENT"
	ErrCodeModelNotFound      ErrorCode = "MODEL_NOT_FOUND"
	ErrCodeModelTestingFailed ErrorCode = "MODEL_TESTING_FAILED"
	ErrCodeTestRunInProgress  ErrorCode = "TEST_RUN_IN_PROGRESS"

	ErrCodeStoreQueryFailed   ErrorCode = "STORE_QUERY_FAILED"
	ErrCodeReportIndexFailed  ErrorCode = "REPORT_INDEX_FAILED"
	ErrCodeReportInvalid      ErrorCode = "REPORT_INVALID"
	ErrCodeModelServerFailed  ErrorCode = "MODEL_SERVER_FAILED"
	ErrCodeModelServerTimeout ErrorCode = "MODEL_SERVER_TIMEOUT"
	ErrCodeNotificationFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Retryable bool      `json:"retryable"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// HasCode reports whether err is a StandardError carrying the given code.
func HasCode(err error, code ErrorCode) bool {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Code == code
	}
	return false
}

// NewDataInsufficientError creates a non-retryable training-data error.
// It is surfaced to the caller verbatim, never rewrapped.
func NewDataInsufficientError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDataInsufficient,
		Message:   "Not enough training data exists. Please add some training data.",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewModelNotFoundError creates a non-retryable missing-model error.
func NewModelNotFoundError(botID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeModelNotFound,
		Message:   "Could not find any model. Please train a model before running tests.",
		Details:   fmt.Sprintf("botId: %s", botID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewModelTestingFailedError wraps any unexpected failure of a test run.
func NewModelTestingFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeModelTestingFailed,
		Message:   fmt.Sprintf("Model testing failed: %v", err),
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTestRunInProgressError signals that a run for the same bot already
// holds the run lock.
func NewTestRunInProgressError(botID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeTestRunInProgress,
		Message:   "A test run is already in progress for this bot",
		Details:   fmt.Sprintf("botId: %s", botID),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewStoreQueryFailedError creates a retryable training-store error.
func NewStoreQueryFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStoreQueryFailed,
		Message:   "Training-data store query failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewReportIndexFailedError creates a retryable report-archive error.
func NewReportIndexFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeReportIndexFailed,
		Message:   "Failed to index evaluation report",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewReportInvalidError creates a non-retryable report-schema error.
func NewReportInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeReportInvalid,
		Message:   "Evaluation report failed schema validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewModelServerFailedError creates a retryable model-server error.
func NewModelServerFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeModelServerFailed,
		Message:   "Model server request failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewModelServerTimeoutError creates a retryable model-server timeout error.
func NewModelServerTimeoutError() *StandardError {
	return &StandardError{
		Code:      ErrCodeModelServerTimeout,
		Message:   "Model server call exceeded timeout threshold",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationFailedError creates a retryable notification error.
func NewNotificationFailedError(channel string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationFailed,
		Message:   "Test-report notification delivery failed",
		Details:   fmt.Sprintf("channel: %s, error: %s", channel, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewExternalServiceError wraps failures of infrastructure dependencies
// (broker, search cluster) that carry no domain-specific code.
func NewExternalServiceError(service string, err error) *StandardError {
	return &StandardError{
		Code:      "EXTERNAL_SERVICE_ERROR",
		Message:   fmt.Sprintf("External service '%s' error", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// GetRetryCount returns the recommended job retry count per error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeStoreQueryFailed,
		ErrCodeReportIndexFailed,
		ErrCodeModelServerFailed,
		ErrCodeNotificationFailed:
		return 3
	case ErrCodeModelServerTimeout,
		ErrCodeTestRunInProgress:
		return 2
	default:
		return 0
	}
}
