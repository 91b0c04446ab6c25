package cache

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors returned by remote backends. Callers treat any cache
// error as a miss; these let them tell outages from absent keys.
var (
	ErrNetwork   = errors.New("cache backend unreachable")
	ErrCacheMiss = errors.New("cache miss")
)

// RetryableError marks a transient failure worth another attempt.
type RetryableError struct{ Err error }

// Retryable wraps err as a RetryableError; nil stays nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

func (e *RetryableError) Error() string { return e.Err.Error() }

func (e *RetryableError) Unwrap() error { return e.Err }

// IsRetryable reports whether err or anything it wraps is a RetryableError.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// RetryPolicy controls how often and how patiently a retryable operation
// is attempted.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration // before the second attempt; doubles each time
}

// DefaultRetryPolicy makes three attempts starting with a one second delay.
var DefaultRetryPolicy = RetryPolicy{Attempts: 3, Delay: time.Second}

// Do runs fn until it succeeds, returns a non-retryable error, or the
// attempts are used up.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	attempts := max(p.Attempts, 1)
	delay := p.Delay
	var lastErr error

	for i := range attempts {
		lastErr = fn()
		if lastErr == nil || !IsRetryable(lastErr) {
			return lastErr
		}
		if i == attempts-1 {
			break
		}

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		delay *= 2
	}
	return lastErr
}
