// Package errors provides unified error handling for execkit.
// It implements structured error types with machine-readable codes,
// HTTP status mapping, and retryable detection so callers can map
// resilience failures to transport-level responses.
package errors
