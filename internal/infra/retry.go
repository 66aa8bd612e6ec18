package infra

import (
	"context"
	"errors"
	"time"
)

// Backoff describes how often and how patiently an operation is retried.
type Backoff struct {
	Attempts int
	Delay    time.Duration
	MaxDelay time.Duration
	Factor   float64
}

func DefaultBackoff() Backoff {
	return Backoff{
		Attempts: 3,
		Delay:    500 * time.Millisecond,
		MaxDelay: 5 * time.Second,
		Factor:   2.0,
	}
}

// Retry runs fn until it succeeds, the attempts are used up or ctx is done.
// The delay between attempts grows by Factor up to MaxDelay.
func Retry(ctx context.Context, b Backoff, fn func() error) error {
	attempts := max(b.Attempts, 1)
	delay := b.Delay

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
			return lastErr
		}
		if attempt == attempts {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		if b.Factor > 1 {
			delay = time.Duration(float64(delay) * b.Factor)
		}
		if b.MaxDelay > 0 && delay > b.MaxDelay {
			delay = b.MaxDelay
		}
	}

	return lastErr
}
