// Package retry runs an operation under a bounded retry policy.
package retry

import (
	"context"
	"time"

	"github.com/eapache/go-resiliency/retrier"
)

// Policy configures how an operation is retried.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	// Values below 1 are treated as 1.
	MaxAttempts int

	// Delay is the pause before the second attempt.
	Delay time.Duration

	// Exponential doubles the delay after every failed attempt when set;
	// otherwise the delay is constant.
	Exponential bool

	// Retryable reports whether an error is worth another attempt.
	// A nil Retryable retries every error.
	Retryable func(error) bool

	// OnRetry, if set, is called after a failed attempt that will be retried.
	OnRetry func(attempt int, err error)
}

// Fixed returns a policy with a constant delay between attempts.
func Fixed(maxAttempts int, delay time.Duration, retryable func(error) bool) Policy {
	return Policy{MaxAttempts: maxAttempts, Delay: delay, Retryable: retryable}
}

func (p Policy) backoff() []time.Duration {
	retries := p.MaxAttempts - 1
	if retries <= 0 {
		return nil
	}
	if p.Exponential {
		return retrier.ExponentialBackoff(retries, p.Delay)
	}
	return retrier.ConstantBackoff(retries, p.Delay)
}

// classifier adapts Policy.Retryable to the retrier's classification.
type classifier func(error) bool

func (c classifier) Classify(err error) retrier.Action {
	switch {
	case err == nil:
		return retrier.Succeed
	case c == nil || c(err):
		return retrier.Retry
	default:
		return retrier.Fail
	}
}

// Do calls fn until it succeeds, returns a non-retryable error, or the policy
// runs out of attempts. fn receives the 1-based attempt number.
//
// It returns the number of attempts made and the error from the last attempt
// (nil on success). A cancelled context stops the wait between attempts and
// returns the context's error.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) error) (int, error) {
	r := retrier.New(p.backoff(), classifier(p.Retryable))

	attempts := 0
	err := r.RunCtx(ctx, func(ctx context.Context) error {
		attempts++
		err := fn(ctx, attempts)
		if err != nil && p.OnRetry != nil && attempts < max(p.MaxAttempts, 1) && classifier(p.Retryable).Classify(err) == retrier.Retry {
			p.OnRetry(attempts, err)
		}
		return err
	})
	return attempts, err
}
