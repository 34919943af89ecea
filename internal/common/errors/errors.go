// Package errors provides standardized error handling for the bot's
// command and workflow surfaces.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Invalid input from the user.
	ErrCodeInvalidDuration ErrorCode = "INVALID_DURATION"
	ErrCodeInvalidIndex    ErrorCode = "INVALID_INDEX"

	// Missing records.
	ErrCodeApplicationNotFound ErrorCode = "APPLICATION_NOT_FOUND"
	ErrCodeStagingNotFound     ErrorCode = "STAGING_NOT_FOUND"

	// Invalid state transitions.
	ErrCodeDuplicateApplication ErrorCode = "DUPLICATE_APPLICATION"
	ErrCodeAlreadyProcessed     ErrorCode = "ALREADY_PROCESSED"

	// External dependency failures.
	ErrCodeProfileLookupFailed    ErrorCode = "PROFILE_LOOKUP_FAILED"
	ErrCodeWhitelistFailed        ErrorCode = "WHITELIST_FAILED"
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"

	// Persistence failures (logged only, never fatal).
	ErrCodePersistenceFailed ErrorCode = "PERSISTENCE_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// NewInvalidDurationError creates a non-retryable duration parse error.
func NewInvalidDurationError(input string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidDuration,
		Message:   "Invalid time format",
		Details:   fmt.Sprintf("input: %s", input),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidIndexError creates a non-retryable out-of-range index error.
func NewInvalidIndexError(index int) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidIndex,
		Message:   "Reminder number out of range",
		Details:   fmt.Sprintf("index: %d", index),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewApplicationNotFoundError creates a non-retryable missing record error.
func NewApplicationNotFoundError(userID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeApplicationNotFound,
		Message:   "Application not found",
		Details:   fmt.Sprintf("userId: %s", userID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewStagingNotFoundError creates a non-retryable missing staging entry error.
func NewStagingNotFoundError(userID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeStagingNotFound,
		Message:   "Application data not found, please start over",
		Details:   fmt.Sprintf("userId: %s", userID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDuplicateApplicationError creates a non-retryable duplicate application error.
func NewDuplicateApplicationError(userID, status string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDuplicateApplication,
		Message:   "Application already exists",
		Details:   fmt.Sprintf("userId: %s, status: %s", userID, status),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAlreadyProcessedError creates a non-retryable terminal-state error.
func NewAlreadyProcessedError(userID, status string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAlreadyProcessed,
		Message:   "Application has already been processed",
		Details:   fmt.Sprintf("userId: %s, status: %s", userID, status),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewProfileLookupFailedError creates a retryable account lookup error.
func NewProfileLookupFailedError(username string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeProfileLookupFailed,
		Message:   "Minecraft profile lookup failed",
		Details:   fmt.Sprintf("username: %s, error: %s", username, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewWhitelistFailedError creates a retryable whitelist side-effect error.
func NewWhitelistFailedError(username string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeWhitelistFailed,
		Message:   "Whitelist command failed",
		Details:   fmt.Sprintf("username: %s, error: %s", username, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationSendFailedError creates a retryable notification send error.
func NewNotificationSendFailedError(target string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("target: %s, error: %s", target, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewPersistenceFailedError creates a retryable disk write error.
func NewPersistenceFailedError(path string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePersistenceFailed,
		Message:   "Store persistence failed",
		Details:   fmt.Sprintf("path: %s, error: %s", path, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	switch code {
	case ErrCodeProfileLookupFailed,
		ErrCodeWhitelistFailed,
		ErrCodeNotificationSendFailed,
		ErrCodePersistenceFailed:
		return true
	default:
		return false
	}
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "INVALID"):
		return "INVALID_INPUT"
	case strings.Contains(codeStr, "NOT_FOUND"):
		return "NOT_FOUND"
	case strings.Contains(codeStr, "DUPLICATE") || strings.Contains(codeStr, "PROCESSED"):
		return "INVALID_STATE_TRANSITION"
	case strings.Contains(codeStr, "PERSISTENCE"):
		return "PERSISTENCE"
	default:
		return "EXTERNAL_DEPENDENCY"
	}
}
