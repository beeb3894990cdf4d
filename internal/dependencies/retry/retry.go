package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// DefaultAttempts is the attempt count used for flaky upstream calls
const DefaultAttempts = 3

// Do calls fn until it succeeds, returns a permanent error, or has been
// called attempts times. Attempts run back to back. The last error is returned.
func Do(ctx context.Context, attempts int, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	b := backoff.WithContext(backoff.WithMaxRetries(&backoff.ZeroBackOff{}, uint64(attempts-1)), ctx)
	return backoff.Retry(fn, b)
}

// DoEvery is like Do but waits interval between attempts
func DoEvery(ctx context.Context, attempts int, interval time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(interval), uint64(attempts-1)), ctx)
	return backoff.Retry(fn, b)
}

// Permanent marks err as not worth retrying
func Permanent(err error) error {
	return backoff.Permanent(err)
}
