package notify

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"

	"github.com/mcoot/futebolada/internal/dependencies/clock"
)

// RateLimiter spaces sends at least one interval apart within this process
type RateLimiter struct {
	limiter *rate.Limiter
	clock   clock.Clock
}

// NewRateLimiter allows one send per interval, with no bursting
func NewRateLimiter(interval time.Duration, clock clock.Clock) *RateLimiter {
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		clock:   clock,
	}
}

// Wait blocks until the next send slot
func (l *RateLimiter) Wait(ctx context.Context) error {
	now := l.clock.Now()
	r := l.limiter.ReserveN(now, 1)
	if !r.OK() {
		return errors.New("rate limiter cannot grant a send")
	}
	delay := r.DelayFrom(now)
	if delay <= 0 {
		return nil
	}
	select {
	case <-l.clock.After(delay):
		return nil
	case <-ctx.Done():
		r.CancelAt(l.clock.Now())
		return ctx.Err()
	}
}
