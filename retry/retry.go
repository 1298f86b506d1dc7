// Package retry runs an operation under an explicit backoff policy.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Classifier reports whether err is worth another attempt.
type Classifier func(error) bool

// Policy describes how an operation is retried. The zero value is not
// usable; start from DefaultPolicy.
type Policy struct {
	// InitialBackoff is the wait after the first failed attempt.
	InitialBackoff time.Duration
	// MaxBackoff caps the wait between attempts. Zero means no cap.
	MaxBackoff time.Duration
	// Multiplier grows the backoff after every failed attempt.
	Multiplier float64
	// AttemptTimeout bounds a single attempt. Zero means no timeout.
	AttemptTimeout time.Duration
	// Classifier decides which errors are retried. Nil uses IsRetryable.
	Classifier Classifier
	// OnRetry is called before every backoff sleep.
	OnRetry func(attempt int, backoff time.Duration, err error)

	sleep func(ctx context.Context, d time.Duration) error
}

// DefaultPolicy starts at one second and doubles forever, capped at ten
// minutes between attempts.
func DefaultPolicy() Policy {
	return Policy{
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     10 * time.Minute,
		Multiplier:     2.0,
	}
}

var ErrPermanent = errors.New("permanent error")

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }

func (e *permanentError) Unwrap() []error { return []error{e.err, ErrPermanent} }

// Permanent marks err so that IsRetryable rejects it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}

	return &permanentError{err: err}
}

// IsRetryable retries everything except cancellation and errors marked
// with Permanent.
func IsRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	return !errors.Is(err, ErrPermanent)
}

// WithSleep returns a copy of p that waits using fn. Tests use it to skip
// real delays.
func (p Policy) WithSleep(fn func(ctx context.Context, d time.Duration) error) Policy {
	p.sleep = fn

	return p
}

// Do calls fn until it succeeds, returns an error the classifier rejects,
// or ctx is done. There is no attempt limit.
func (p Policy) Do(ctx context.Context, fn func(context.Context) error) error {
	classify := p.Classifier
	if classify == nil {
		classify = IsRetryable
	}
	sleep := p.sleep
	if sleep == nil {
		sleep = timeSleep
	}

	backoff := p.InitialBackoff
	for attempt := 1; ; attempt++ {
		err := p.attempt(ctx, fn)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return fmt.Errorf("retry canceled: %w", ctx.Err())
		}
		if !classify(err) {
			return err
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt, backoff, err)
		}
		if err := sleep(ctx, backoff); err != nil {
			return fmt.Errorf("retry canceled: %w", err)
		}

		backoff = p.next(backoff)
	}
}

func (p Policy) attempt(ctx context.Context, fn func(context.Context) error) error {
	if p.AttemptTimeout <= 0 {
		return fn(ctx)
	}

	actx, cancel := context.WithTimeout(ctx, p.AttemptTimeout)
	defer cancel()

	err := fn(actx)
	if err != nil && ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
		// the attempt timed out, not the caller
		return fmt.Errorf("attempt timed out after %s: %w", p.AttemptTimeout, errAttemptTimeout)
	}

	return err
}

var errAttemptTimeout = errors.New("attempt timeout")

func (p Policy) next(d time.Duration) time.Duration {
	multiplier := p.Multiplier
	if multiplier < 1 {
		multiplier = 1
	}
	n := time.Duration(float64(d) * multiplier)
	if p.MaxBackoff > 0 && (n > p.MaxBackoff || n < d) {
		return p.MaxBackoff
	}

	return n
}

func timeSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
