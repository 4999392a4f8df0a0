package marketplace

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/rs/zerolog/log"
)

// TransientError wraps a failure worth retrying, like a dropped connection
// or a 5xx answer.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

// Transient marks err as retryable. A nil err stays nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether err is a network level failure. Cancellation
// of the caller's context is never transient.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var te *TransientError
	if errors.As(err, &te) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// Backoff returns the delay before the given retry, starting at 1.
type Backoff func(attempt int) time.Duration

// Linear waits base, 2*base, 3*base, ...
func Linear(base time.Duration) Backoff {
	return func(attempt int) time.Duration {
		return base * time.Duration(attempt)
	}
}

// RetryPolicy retries transient failures a bounded number of times.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     Backoff
	// Sleep waits for d or until ctx is done. Defaults to a timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy makes three attempts with a linear one second backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Backoff: Linear(time.Second)}
}

// Do calls fn until it succeeds, fails with a non-transient error or the
// attempts are used up. The last error is returned.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn(ctx)
		if err == nil || !IsTransient(err) {
			return err
		}
		if attempt == attempts {
			break
		}
		var delay time.Duration
		if p.Backoff != nil {
			delay = p.Backoff(attempt)
		}
		log.Warn().Err(err).Int("attempt", attempt).Dur("delay", delay).Msg("marketplace call failed, retrying")
		if serr := sleep(ctx, delay); serr != nil {
			return err
		}
	}
	log.Error().Err(err).Int("attempts", attempts).Msg("marketplace call failed on every attempt")
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
