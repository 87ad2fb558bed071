package services

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/custodia-labs/policywatch/internal/core/domain"
)

// RetryPolicy retries an operation with a constant wait between attempts.
type RetryPolicy struct {
	// Backoff is the wait between attempts.
	Backoff time.Duration

	// MaxAttempts caps the total number of attempts, including the first.
	MaxAttempts int
}

// NewRetryPolicy creates a policy. maxAttempts <= 0 selects the default and a
// negative backoff is treated as zero.
func NewRetryPolicy(backoffWait time.Duration, maxAttempts int) RetryPolicy {
	if maxAttempts <= 0 {
		maxAttempts = domain.DefaultMaxAttempts
	}
	if backoffWait < 0 {
		backoffWait = 0
	}
	return RetryPolicy{Backoff: backoffWait, MaxAttempts: maxAttempts}
}

// Do calls op until it succeeds, the attempts are used up or ctx is done.
// op receives the 1-based attempt number. onRetry, if set, is called before
// each wait. Context errors returned by op stop retrying immediately.
func (p RetryPolicy) Do(ctx context.Context, op func(attempt int) error, onRetry func(err error, wait time.Duration)) error {
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = domain.DefaultMaxAttempts
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Backoff), uint64(maxAttempts-1)),
		ctx,
	)

	attempt := 0
	return backoff.RetryNotify(func() error {
		attempt++
		err := op(attempt)
		if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
			return backoff.Permanent(err)
		}
		return err
	}, b, func(err error, wait time.Duration) {
		if onRetry != nil {
			onRetry(err, wait)
		}
	})
}
