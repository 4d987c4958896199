// Package retry re-runs I/O with capped exponential backoff.
package retry

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/okian/ace/pkg/metrics"
)

// Policy configures Do. The zero value retries forever with no delay; use
// New for sensible defaults.
type Policy struct {
	// MaxAttempts counts the first try; 0 retries until ctx ends.
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
	// Jitter randomises each delay by ±Jitter of its value.
	Jitter float64
	// Retryable decides whether err is worth another attempt. nil retries every error.
	Retryable func(error) bool
}

// Option applies a configuration option to a Policy.
type Option func(*Policy)

// WithMaxAttempts bounds the attempts; 0 is unbounded.
func WithMaxAttempts(n int) Option {
	return func(p *Policy) {
		if n >= 0 {
			p.MaxAttempts = n
		}
	}
}

// WithDelays sets the first and the largest backoff delay.
func WithDelays(base, maxDelay time.Duration) Option {
	return func(p *Policy) {
		if base > 0 {
			p.BaseDelay = base
		}
		if maxDelay > 0 {
			p.MaxDelay = maxDelay
		}
	}
}

// WithRetryable sets the retry predicate.
func WithRetryable(fn func(error) bool) Option {
	return func(p *Policy) {
		p.Retryable = fn
	}
}

// New creates a policy: 3 attempts, 500ms doubling up to 30s, 20% jitter.
func New(opts ...Option) Policy {
	p := Policy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    30 * time.Second,
		Multiplier:  2,
		Jitter:      0.2,
	}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// ErrExhausted wraps the last error once MaxAttempts is reached.
var ErrExhausted = errors.New("retry attempts exhausted")

// Do calls fn until it succeeds, returns a non-retryable error, the attempts
// run out, or ctx ends. Errors from the final attempt are wrapped with
// ErrExhausted; a cancelled wait returns ctx.Err().
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	permanent := false
	op := func() error {
		err := fn(ctx)
		if err != nil && p.Retryable != nil && !p.Retryable(err) {
			permanent = true
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(error, time.Duration) { metrics.RecordRetry() }

	err := backoff.RetryNotify(op, p.backOff(ctx), notify)
	switch {
	case err == nil:
		return nil
	case permanent:
		return err
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		return err
	default:
		return errors.Join(ErrExhausted, err)
	}
}

// backOff builds the schedule: exponential delays, capped at MaxAttempts-1
// retries and bound to ctx.
func (p Policy) backOff(ctx context.Context) backoff.BackOffContext {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.BaseDelay
	exp.Multiplier = max(p.Multiplier, 1)
	exp.RandomizationFactor = p.Jitter
	exp.MaxInterval = p.MaxDelay
	if p.MaxDelay <= 0 {
		exp.MaxInterval = time.Duration(math.MaxInt64)
	}
	exp.MaxElapsedTime = 0
	exp.Reset()

	var b backoff.BackOff = exp
	if p.MaxAttempts > 0 {
		b = backoff.WithMaxRetries(exp, uint64(p.MaxAttempts-1))
	}
	return backoff.WithContext(b, ctx)
}
