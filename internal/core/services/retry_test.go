package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/policywatch/internal/core/domain"
)

func TestNewRetryPolicy_Defaults(t *testing.T) {
	p := NewRetryPolicy(-time.Second, 0)
	assert.Equal(t, domain.DefaultMaxAttempts, p.MaxAttempts)
	assert.Zero(t, p.Backoff)
}

func TestRetryPolicy_SucceedsAfterFailures(t *testing.T) {
	var attempts []int
	var waits int
	p := NewRetryPolicy(time.Millisecond, 5)

	err := p.Do(context.Background(), func(attempt int) error {
		attempts = append(attempts, attempt)
		if attempt < 3 {
			return errLLMDown
		}
		return nil
	}, func(error, time.Duration) { waits++ })

	assert.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, attempts)
	assert.Equal(t, 2, waits)
}

func TestRetryPolicy_Exhausted(t *testing.T) {
	calls := 0
	p := NewRetryPolicy(0, 4)

	err := p.Do(context.Background(), func(int) error {
		calls++
		return errLLMDown
	}, nil)

	assert.ErrorIs(t, err, errLLMDown)
	assert.Equal(t, 4, calls)
}

func TestRetryPolicy_ConstantWait(t *testing.T) {
	var waits []time.Duration
	p := NewRetryPolicy(5*time.Millisecond, 3)

	_ = p.Do(context.Background(), func(int) error { return errLLMDown },
		func(_ error, d time.Duration) { waits = append(waits, d) })

	assert.Equal(t, []time.Duration{5 * time.Millisecond, 5 * time.Millisecond}, waits)
}

func TestRetryPolicy_ContextErrorIsPermanent(t *testing.T) {
	calls := 0
	p := NewRetryPolicy(0, 5)

	err := p.Do(context.Background(), func(int) error {
		calls++
		return context.Canceled
	}, nil)

	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 1, calls)
}

func TestRetryPolicy_CancelledDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := NewRetryPolicy(time.Hour, 5)

	err := p.Do(ctx, func(int) error { return errLLMDown }, func(error, time.Duration) { cancel() })

	assert.ErrorIs(t, err, context.Canceled)
}
