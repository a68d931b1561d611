package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Configuration errors, detected before any kernel call.
const (
	// ErrCodeInvalidInput indicates a program, argument or option is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeUnsupported indicates a request the spawn layer cannot honor.
	ErrCodeUnsupported ErrorCode = "UNSUPPORTED"
	// ErrCodeAlreadySpawned indicates a one-shot command was spawned twice.
	ErrCodeAlreadySpawned ErrorCode = "ALREADY_SPAWNED"
)

// Resource and kernel errors
const (
	// ErrCodeResourceExhausted indicates a descriptor or pipe could not be created.
	ErrCodeResourceExhausted ErrorCode = "RESOURCE_EXHAUSTED"
	// ErrCodeSpawnFailed indicates the process-creation primitive failed.
	ErrCodeSpawnFailed ErrorCode = "SPAWN_FAILED"
	// ErrCodeNotFound indicates the process is unknown to the kernel (already reaped).
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
)

// Lifecycle errors
const (
	// ErrCodeTimeout indicates the operation ran past its deadline.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeCanceled indicates the caller canceled the operation.
	ErrCodeCanceled ErrorCode = "CANCELED"
	// ErrCodeInternal indicates an unexpected failure.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeResourceExhausted: true,
	ErrCodeTimeout:           true,
	ErrCodeSpawnFailed:       false,
	ErrCodeInternal:          false,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
