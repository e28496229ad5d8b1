package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"
	apperrors "trimline/pkg/errors"
)

// Policy bounds the retry loop around one reservation critical section.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// permanentError pins an error as terminal even when its code would
// normally be retried. Used when a caller-supplied expected version is
// stale: re-running the attempt cannot change the outcome.
type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not retryable regardless of its error code.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsTransient reports whether err belongs to the contention class the
// executor absorbs: lock wait expiry, storage write conflicts, and
// version races between engine-internal writers.
func IsTransient(err error) bool {
	var perm *permanentError
	if errors.As(err, &perm) {
		return false
	}
	switch apperrors.CodeOf(err) {
	case apperrors.CodeLockTimeout,
		apperrors.CodeStorageContention,
		apperrors.CodeVersionConflict:
		return true
	}
	return false
}

// Run invokes fn up to MaxAttempts times, sleeping between attempts with
// exponential backoff and uniform jitter in [0.5, 1.0]. Non-transient
// errors return immediately. Exhausting attempts maps the last transient
// error to TEMPORARILY_UNAVAILABLE.
func Run(ctx context.Context, policy Policy, fn func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}

		if !IsTransient(err) {
			return unwrapPermanent(err)
		}
		lastErr = err

		if attempt == policy.MaxAttempts {
			break
		}
		if err := sleep(ctx, backoffDelay(policy, attempt)); err != nil {
			return err
		}
	}

	return apperrors.TemporarilyUnavailable(lastErr)
}

func unwrapPermanent(err error) error {
	var perm *permanentError
	if errors.As(err, &perm) {
		return perm.err
	}
	return err
}

func backoffDelay(policy Policy, attempt int) time.Duration {
	delay := policy.BaseDelay << (attempt - 1)
	if policy.MaxDelay > 0 && delay > policy.MaxDelay {
		delay = policy.MaxDelay
	}
	// Jitter by a uniform factor in [0.5, 1.0] so synchronized losers do
	// not stampede the same provider lock again in lockstep.
	return time.Duration(float64(delay) * (0.5 + rand.Float64()*0.5))
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
