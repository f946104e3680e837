// Package retry runs an operation a bounded number of times with a growing
// delay between failed attempts.
package retry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Policy bounds a retry loop.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// Backoff is the wait after the first failed attempt.
	Backoff time.Duration
	// BackoffStep is added to the wait for every further failed attempt.
	BackoffStep time.Duration
	// AttemptTimeout aborts a single attempt. Zero means no per-attempt limit.
	AttemptTimeout time.Duration
}

// DefaultPolicy returns three attempts, 5s then 10s between them and a 10s
// limit per attempt.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    3,
		Backoff:        5 * time.Second,
		BackoffStep:    5 * time.Second,
		AttemptTimeout: 10 * time.Second,
	}
}

// Delay returns the wait after failed attempt n (1-based).
func (p Policy) Delay(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	d := p.Backoff + time.Duration(n-1)*p.BackoffStep
	if d < 0 {
		return 0
	}
	return d
}

func (p Policy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// ExhaustedError reports that every attempt failed.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("giving up after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. Do returns the wrapped error
// immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Func is one attempt. attempt starts at 1.
type Func func(ctx context.Context, attempt int) error

type options struct {
	sleep    func(ctx context.Context, d time.Duration) error
	onRetry  func(attempt int, delay time.Duration, err error)
	deferred bool
}

// Option customises Do.
type Option func(*options)

// WithSleep replaces the wait between attempts.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(o *options) {
		if fn != nil {
			o.sleep = fn
		}
	}
}

// WithOnRetry is called after a failed attempt that will be retried.
func WithOnRetry(fn func(attempt int, delay time.Duration, err error)) Option {
	return func(o *options) {
		o.onRetry = fn
	}
}

// WithDeferredTimeout leaves starting the attempt timeout to fn: the clock
// starts when fn calls StartAttempt, so time fn spends waiting for a turn
// (a dispatcher queue, a rate limiter) is not charged to the attempt.
func WithDeferredTimeout() Option {
	return func(o *options) {
		o.deferred = true
	}
}

type clockKey struct{}

// attemptClock is the timeout Do deferred to an attempt. Only the first
// StartAttempt call of an attempt starts it.
type attemptClock struct {
	timeout time.Duration

	mu      sync.Mutex
	started bool
}

// StartAttempt bounds ctx by the attempt timeout deferred by Do. Outside a
// deferred attempt, or once the clock has been started, it only adds a
// cancel func.
func StartAttempt(ctx context.Context) (context.Context, context.CancelFunc) {
	clock, ok := ctx.Value(clockKey{}).(*attemptClock)
	if !ok {
		return context.WithCancel(ctx)
	}
	clock.mu.Lock()
	first := !clock.started
	clock.started = true
	clock.mu.Unlock()
	if !first {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, clock.timeout)
}

// Do calls fn until it succeeds, returns a Permanent error, the parent
// context ends or the attempt budget runs out. Every attempt gets its own
// timeout derived from ctx, so an attempt that times out counts as an
// ordinary failure.
func Do(ctx context.Context, p Policy, fn Func, opts ...Option) error {
	o := options{sleep: sleepContext}
	for _, opt := range opts {
		opt(&o)
	}

	limit := p.attempts()
	var last error
	for attempt := 1; attempt <= limit; attempt++ {
		if err := ctx.Err(); err != nil {
			if last != nil {
				return fmt.Errorf("%w (last error: %v)", err, last)
			}
			return err
		}

		err := runAttempt(ctx, p.AttemptTimeout, o.deferred, attempt, fn)
		if err == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		last = err
		if attempt == limit {
			break
		}

		delay := p.Delay(attempt)
		if o.onRetry != nil {
			o.onRetry(attempt, delay, err)
		}
		if err := o.sleep(ctx, delay); err != nil {
			return fmt.Errorf("%w (last error: %v)", err, last)
		}
	}
	return &ExhaustedError{Attempts: limit, Last: last}
}

func runAttempt(ctx context.Context, timeout time.Duration, deferred bool, attempt int, fn Func) error {
	if timeout <= 0 {
		return fn(ctx, attempt)
	}
	if deferred {
		return fn(context.WithValue(ctx, clockKey{}, &attemptClock{timeout: timeout}), attempt)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(attemptCtx, attempt)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
