package core

import (
	"errors"
	"fmt"
)

// ExecutionError represents a structured error with category and details
type ExecutionError struct {
	Category ErrorCategory
	Code     string                 // Machine-readable code: element_not_found, locate_timeout, etc.
	Message  string                 // Human-readable message
	Details  map[string]interface{} // Additional context
	Cause    error                  // Underlying error
}

// Error implements the error interface
func (e *ExecutionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// Is matches any ExecutionError carrying the same code, so derived copies
// (WithCause, WithMessage) still match the predefined sentinels.
func (e *ExecutionError) Is(target error) bool {
	t, ok := target.(*ExecutionError)
	if !ok || t.Code == "" {
		return false
	}
	return t.Code == e.Code
}

// WithCause returns a copy of the error with the given cause
func (e *ExecutionError) WithCause(cause error) *ExecutionError {
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Details:  e.Details,
		Cause:    cause,
	}
}

// WithMessage returns a copy of the error with a custom message
func (e *ExecutionError) WithMessage(msg string) *ExecutionError {
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  msg,
		Details:  e.Details,
		Cause:    e.Cause,
	}
}

// WithDetails returns a copy of the error with additional details
func (e *ExecutionError) WithDetails(details map[string]interface{}) *ExecutionError {
	merged := make(map[string]interface{})
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Details:  merged,
		Cause:    e.Cause,
	}
}

// Predefined errors
var (
	// Config errors: the step or configuration itself is invalid, never retried
	ErrUnsupportedStrategy = &ExecutionError{
		Category: ErrCategoryConfig,
		Code:     "unsupported_strategy",
		Message:  "unsupported locator strategy",
	}
	ErrUnsupportedAction = &ExecutionError{
		Category: ErrCategoryConfig,
		Code:     "unsupported_action",
		Message:  "unsupported action",
	}
	ErrInvalidConfig = &ExecutionError{
		Category: ErrCategoryConfig,
		Code:     "invalid_config",
		Message:  "invalid configuration",
	}
	ErrMissingRequired = &ExecutionError{
		Category: ErrCategoryConfig,
		Code:     "missing_required",
		Message:  "missing required field",
	}

	// Assertion errors
	ErrElementNotFound = &ExecutionError{
		Category: ErrCategoryAssertion,
		Code:     "element_not_found",
		Message:  "element not found",
	}
	ErrElementNotInteractable = &ExecutionError{
		Category: ErrCategoryAssertion,
		Code:     "element_not_interactable",
		Message:  "element found but not displayed or enabled",
	}
	ErrActionFailed = &ExecutionError{
		Category: ErrCategoryAssertion,
		Code:     "action_failed",
		Message:  "action execution failed",
	}

	// Timeout errors
	ErrLocateTimeout = &ExecutionError{
		Category: ErrCategoryTimeout,
		Code:     "locate_timeout",
		Message:  "element was not found and interactable in time",
	}
	ErrTimeout = &ExecutionError{
		Category: ErrCategoryTimeout,
		Code:     "timeout",
		Message:  "operation timed out",
	}

	// Connection errors
	ErrSessionStartFailed = &ExecutionError{
		Category: ErrCategoryConnection,
		Code:     "session_start_failed",
		Message:  "failed to start session",
	}
	ErrServerUnreachable = &ExecutionError{
		Category: ErrCategoryConnection,
		Code:     "server_unreachable",
		Message:  "could not connect to automation server",
	}

	// Session errors
	ErrSessionAlreadyActive = &ExecutionError{
		Category: ErrCategorySession,
		Code:     "session_already_active",
		Message:  "a session is already active",
	}
	ErrNoActiveSession = &ExecutionError{
		Category: ErrCategorySession,
		Code:     "no_active_session",
		Message:  "no active session",
	}
	ErrSessionLost = &ExecutionError{
		Category: ErrCategorySession,
		Code:     "session_lost",
		Message:  "session lost",
	}
)

// NewExecutionError creates a new ExecutionError with the given parameters
func NewExecutionError(category ErrorCategory, code, message string) *ExecutionError {
	return &ExecutionError{
		Category: category,
		Code:     code,
		Message:  message,
	}
}

// CriticalStepError aborts the containing case. It is raised when a step's
// target element could not be located within the polling budget.
type CriticalStepError struct {
	StepOrder int
	ElementID string
	Cause     error
}

// Error implements the error interface
func (e *CriticalStepError) Error() string {
	msg := fmt.Sprintf("step %d: element '%s' not found", e.StepOrder, e.ElementID)
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the locate failure that caused the abort.
func (e *CriticalStepError) Unwrap() error {
	return e.Cause
}

// CategoryOf returns the category of the first ExecutionError in err's chain.
func CategoryOf(err error) ErrorCategory {
	if err == nil {
		return ErrCategoryNone
	}
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return execErr.Category
	}
	return ErrCategoryNone
}

// IsConfigError reports whether err is a step-definition or configuration error.
func IsConfigError(err error) bool {
	return CategoryOf(err) == ErrCategoryConfig
}

// IsSessionLost reports whether err means the remote session is gone.
func IsSessionLost(err error) bool {
	return errors.Is(err, ErrSessionLost)
}

// IsCritical reports whether err aborts the containing case.
func IsCritical(err error) bool {
	var critical *CriticalStepError
	return errors.As(err, &critical) || IsSessionLost(err) || IsConfigError(err)
}
