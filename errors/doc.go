// Package errors provides the structured error type shared by the spawn layer.
// It carries machine-readable codes, retryable detection and a JSON body for
// tools that report failures to other programs.
package errors
