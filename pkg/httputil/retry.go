package httputil

import (
	"context"
	"errors"
	"time"
)

// DefaultAttempts is the retry budget for enrichment API calls.
const DefaultAttempts = 10

// DefaultDelay is the flat delay between retry attempts.
const DefaultDelay = time.Second

// RetryableError wraps an error to indicate it should trigger a retry.
// Wrap transient failures (network timeouts, 5xx responses) with this type
// so that [Retry] knows to attempt the operation again.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retry executes fn up to attempts times with a flat delay between attempts.
// It only retries errors wrapped with [RetryableError]; other errors are
// returned immediately. Each failed attempt is reported through onFail (which
// may be nil) with the 1-based attempt number.
// Returns the last error if all attempts fail, or ctx.Err() if cancelled.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error, onFail func(attempt int, err error)) error {
	attempts = max(attempts, 1)
	var lastErr error

	for i := 0; i < attempts; i++ {
		err := fn()
		if err == nil {
			return nil
		}
		if onFail != nil {
			onFail(i+1, err)
		}
		if lastErr = err; !isRetryable(err) {
			return err
		}

		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return lastErr
}

func isRetryable(err error) bool {
	return errors.As(err, new(*RetryableError))
}
