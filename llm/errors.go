package llm

import (
	"errors"
	"fmt"
	"time"
)

// Error types for classifying provider failures.

// RateLimitError is returned when the provider answers with HTTP 429.
// It is the only retryable failure: everything else degrades the region
// to an empty result without further attempts.
type RateLimitError struct {
	// Hint is the wait duration suggested by the provider's error body,
	// zero when the body carried no usable suggestion.
	Hint time.Duration

	err error
}

func (e *RateLimitError) Error() string {
	if e.Hint > 0 {
		return fmt.Sprintf("%v (suggested wait %s)", e.err, e.Hint)
	}
	return e.err.Error()
}

func (e *RateLimitError) Unwrap() error {
	return e.err
}

// NewRateLimitError wraps an error as a rate-limit failure with an
// optional server-suggested wait.
func NewRateLimitError(err error, hint time.Duration) error {
	return &RateLimitError{Hint: hint, err: err}
}

// AsRateLimit returns the RateLimitError in err's chain, if any.
func AsRateLimit(err error) (*RateLimitError, bool) {
	var rle *RateLimitError
	if errors.As(err, &rle) {
		return rle, true
	}
	return nil, false
}

// FatalError represents a permanent error that must not be retried:
// auth failures, bad requests, unparseable or empty responses.
type FatalError struct {
	err error
}

func (e *FatalError) Error() string {
	return e.err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.err
}

// NewFatalError wraps an error as fatal (non-retryable).
func NewFatalError(err error) error {
	return &FatalError{err: err}
}

// IsFatal returns true if the error is fatal and should not be retried.
func IsFatal(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal)
}

// ErrRetriesExhausted is returned when every allowed attempt against a
// rate-limited endpoint has been spent.
var ErrRetriesExhausted = errors.New("rate limit retries exhausted")
