package errors

import (
	"fmt"
)

// AppError is the unified error type returned across the spawn layer.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried by the caller.
	Retryable bool `json:"retryable"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithRetryable overrides the retryable flag and returns the receiver.
func (e *AppError) WithRetryable(retryable bool) *AppError {
	e.Retryable = retryable
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Retryable: IsRetryableCode(code),
	}
}

// --- Common Error Constructors ---

// InvalidInput creates a new AppError for an invalid program, argument or option.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("Invalid input: %s", reason),
		Retryable: false, Details: details,
	}
}

// Validation creates a new AppError for struct validation failures.
func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeInvalidInput, Message: message, Retryable: false}
}

// Unsupported creates a new AppError for a request the spawn layer cannot honor.
func Unsupported(feature string) *AppError {
	return &AppError{
		Code: ErrCodeUnsupported, Message: fmt.Sprintf("unsupported: %s", feature),
		Retryable: false,
		Details:   map[string]any{"feature": feature},
	}
}

// AlreadySpawned creates a new AppError for a command spawned more than once.
func AlreadySpawned(program string) *AppError {
	return &AppError{
		Code: ErrCodeAlreadySpawned, Message: "command can only be spawned once",
		Retryable: false,
		Details:   map[string]any{"program": program},
	}
}

// ResourceExhausted creates a new AppError for a descriptor or pipe that could not be created.
func ResourceExhausted(resource string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeResourceExhausted, Message: fmt.Sprintf("failed to create %s", resource),
		Retryable: true, Cause: cause,
		Details: map[string]any{"resource": resource},
	}
}

// SpawnFailed creates a new AppError for a process-creation failure.
func SpawnFailed(program string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeSpawnFailed, Message: fmt.Sprintf("failed to spawn %s", program),
		Retryable: false, Cause: cause,
		Details: map[string]any{"program": program},
	}
}

// NotFound creates a new AppError for a resource the kernel no longer knows about.
func NotFound(resource, id string) *AppError {
	details := map[string]any{"resource": resource}
	if id != "" {
		details["id"] = id
	}
	return &AppError{
		Code: ErrCodeNotFound, Message: fmt.Sprintf("%s not found", resource),
		Retryable: false, Details: details,
	}
}

// Timeout creates a new AppError for an operation that ran past its deadline.
func Timeout(operation string) *AppError {
	return &AppError{
		Code: ErrCodeTimeout, Message: fmt.Sprintf("%s timed out", operation),
		Retryable: true,
		Details:   map[string]any{"operation": operation},
	}
}

// Canceled creates a new AppError for an operation canceled by the caller.
func Canceled(operation string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeCanceled, Message: fmt.Sprintf("%s canceled", operation),
		Retryable: false, Cause: cause,
		Details: map[string]any{"operation": operation},
	}
}

// Internal creates a new AppError for an unexpected failure.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "an unexpected error occurred",
		Retryable: false, Cause: cause,
	}
}
