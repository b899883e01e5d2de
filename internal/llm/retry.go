package llm

import (
	"context"
	"errors"
	"time"
)

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = time.Second

	// MaxAttemptsLimit caps configured attempt budgets.
	MaxAttemptsLimit = 10
	// MaxRetryDelay caps a single backoff wait.
	MaxRetryDelay = 10 * time.Minute
)

// RetryPolicy bounds how often a synthesis call is attempted.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	// Sleep waits between attempts; nil uses a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
	// OnRetry is invoked before each wait with the upcoming attempt number.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// DefaultRetryPolicy returns three attempts with a one second base delay.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: defaultMaxAttempts,
		BaseDelay:   defaultBaseDelay,
	}
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = defaultMaxAttempts
	}
	if p.MaxAttempts > MaxAttemptsLimit {
		p.MaxAttempts = MaxAttemptsLimit
	}
	if p.BaseDelay < 0 {
		p.BaseDelay = 0
	}
	if p.Sleep == nil {
		p.Sleep = sleepContext
	}
	return p
}

// Delay returns the wait before retry k (1-based): base * 2^(k-1),
// saturating at MaxRetryDelay.
func (p RetryPolicy) Delay(retry int) time.Duration {
	if retry < 1 {
		retry = 1
	}
	if p.BaseDelay <= 0 {
		return 0
	}
	d := p.BaseDelay
	for i := 1; i < retry; i++ {
		if d >= MaxRetryDelay/2 {
			return MaxRetryDelay
		}
		d <<= 1
	}
	return min(d, MaxRetryDelay)
}

// Retry calls fn until it succeeds, returns a non-retryable error, or the
// attempt budget is spent. The last error is returned on exhaustion.
func Retry[T any](ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) (T, error)) (T, error) {
	policy = policy.normalized()
	var zero T
	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		out, err := fn(ctx)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if !IsRetryable(err) || attempt == policy.MaxAttempts {
			break
		}
		delay := policy.Delay(attempt)
		if policy.OnRetry != nil {
			policy.OnRetry(attempt+1, delay, err)
		}
		if err := policy.Sleep(ctx, delay); err != nil {
			return zero, errors.Join(lastErr, err)
		}
	}
	return zero, lastErr
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type retryingSynthesizer struct {
	base   Synthesizer
	policy RetryPolicy
}

// NewRetrying wraps base so every Complete call goes through policy.
func NewRetrying(base Synthesizer, policy RetryPolicy) Synthesizer {
	if base == nil {
		return nil
	}
	return retryingSynthesizer{base: base, policy: policy}
}

func (r retryingSynthesizer) Complete(ctx context.Context, prompt string, maxOutputTokens int) (string, error) {
	return Retry(ctx, r.policy, func(ctx context.Context) (string, error) {
		return r.base.Complete(ctx, prompt, maxOutputTokens)
	})
}
