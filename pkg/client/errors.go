package client

import (
	"errors"
	"fmt"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during
	// a retry backoff sleep.
	ErrContextCancelled = errors.New("context cancelled")
)

// RequestFailedError reports a request that could not be completed: a
// non-retryable response status, or a transient failure that survived the
// whole retry budget. Body carries the raw response body for diagnostics.
type RequestFailedError struct {
	StatusCode int
	Body       []byte
	Err        error
}

// Error implements the error interface.
func (e *RequestFailedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("request failed (status %d): %s: %v", e.StatusCode, e.Body, e.Err)
	}
	return fmt.Sprintf("request failed (status %d): %s", e.StatusCode, e.Body)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *RequestFailedError) Unwrap() error {
	return e.Err
}
