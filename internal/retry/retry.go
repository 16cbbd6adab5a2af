package retry

import (
	"context"
	"time"

	"github.com/hashicorp/go-hclog"

	gasherrors "github.com/gash-io/gash/pkg/shared/errors"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 2 * time.Second
)

// BackoffFunc returns how long to wait after the given failed attempt (1-based).
type BackoffFunc func(attempt int) time.Duration

// Linear waits attempt*base between attempts.
func Linear(base time.Duration) BackoffFunc {
	return func(attempt int) time.Duration {
		return time.Duration(attempt) * base
	}
}

// Policy is a bounded retry loop shared by every collaborator call.
type Policy struct {
	MaxAttempts int
	Backoff     BackoffFunc
	// Retryable classifies errors. Non-retryable errors end the loop at once.
	Retryable func(error) bool
	Logger    hclog.Logger
	// Sleep waits between attempts and returns early when ctx is done.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Default returns 3 attempts with linearly increasing backoff.
func Default(logger hclog.Logger) Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		Backoff:     Linear(DefaultBaseDelay),
		Retryable:   gasherrors.IsRetryable,
		Logger:      logger,
	}
}

// NoWait returns p with sleeping disabled.
func (p Policy) NoWait() Policy {
	p.Sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	return p
}

// Do runs op until it succeeds, fails with a non-retryable error or runs out of attempts.
// The last error is returned.
func (p Policy) Do(ctx context.Context, name string, op func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	retryable := p.Retryable
	if retryable == nil {
		retryable = gasherrors.IsRetryable
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	logger := p.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = op(ctx); err == nil {
			return nil
		}
		if attempt == attempts || !retryable(err) {
			break
		}
		var wait time.Duration
		if p.Backoff != nil {
			wait = p.Backoff(attempt)
		}
		logger.Warn("attempt failed, retrying", "operation", name, "attempt", attempt, "wait", wait, "error", err)
		if serr := sleep(ctx, wait); serr != nil {
			return serr
		}
	}
	return err
}

// Value runs op under p and returns its result.
func Value[T any](ctx context.Context, p Policy, name string, op func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := p.Do(ctx, name, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
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
