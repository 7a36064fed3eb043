package services

import (
	"context"
	"time"
)

// Retry runs fn up to attempts times, sleeping delay between attempts with
// linear backoff. It stops early when fn succeeds, when the error is not
// retryable, or when the context is cancelled. The last error is returned so
// a failed action carries the underlying cause.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	var last error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		last = fn()
		if last == nil {
			return nil
		}
		if !Retryable(last) {
			return last
		}
		if attempt == attempts {
			break
		}
		wait := delay * time.Duration(attempt)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return last
}
