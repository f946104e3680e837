package retry

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

func recordSleeps(sleeps *[]time.Duration) Option {
	return WithSleep(func(ctx context.Context, d time.Duration) error {
		*sleeps = append(*sleeps, d)
		return nil
	})
}

func TestPolicy_Delay(t *testing.T) {
	p := Policy{Backoff: 5 * time.Second, BackoffStep: 5 * time.Second}
	tests := []struct {
		n    int
		want time.Duration
	}{
		{0, 5 * time.Second},
		{1, 5 * time.Second},
		{2, 10 * time.Second},
		{3, 15 * time.Second},
	}
	for _, tt := range tests {
		if got := p.Delay(tt.n); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.n, got, tt.want)
		}
	}

	fixed := Policy{Backoff: time.Second}
	if fixed.Delay(1) != fixed.Delay(4) {
		t.Errorf("zero step should give a fixed delay, got %v and %v", fixed.Delay(1), fixed.Delay(4))
	}
}

func TestDo_ExhaustsAttemptBudget(t *testing.T) {
	boom := errors.New("connection refused")
	var sleeps []time.Duration
	var attempts []int

	err := Do(context.Background(), DefaultPolicy(), func(ctx context.Context, attempt int) error {
		attempts = append(attempts, attempt)
		return boom
	}, recordSleeps(&sleeps))

	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("error = %v, want *ExhaustedError", err)
	}
	if exhausted.Attempts != 3 {
		t.Fatalf("Attempts = %d, want 3", exhausted.Attempts)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("error does not unwrap to last failure: %v", err)
	}
	if !reflect.DeepEqual(attempts, []int{1, 2, 3}) {
		t.Fatalf("attempts = %v, want [1 2 3]", attempts)
	}
	want := []time.Duration{5 * time.Second, 10 * time.Second}
	if !reflect.DeepEqual(sleeps, want) {
		t.Fatalf("sleeps = %v, want %v", sleeps, want)
	}
}

func TestDo_SucceedsAfterTransientFailure(t *testing.T) {
	var retried []int
	calls := 0
	err := Do(context.Background(), DefaultPolicy(), func(ctx context.Context, attempt int) error {
		calls++
		if attempt == 1 {
			return errors.New("503")
		}
		return nil
	},
		WithSleep(func(context.Context, time.Duration) error { return nil }),
		WithOnRetry(func(attempt int, delay time.Duration, err error) { retried = append(retried, attempt) }),
	)
	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
	if !reflect.DeepEqual(retried, []int{1}) {
		t.Fatalf("onRetry attempts = %v, want [1]", retried)
	}
}

func TestDo_PermanentErrorStopsImmediately(t *testing.T) {
	bad := errors.New("bad request body")
	calls := 0
	err := Do(context.Background(), DefaultPolicy(), func(ctx context.Context, attempt int) error {
		calls++
		return Permanent(bad)
	})
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	if err != bad {
		t.Fatalf("error = %v, want the unwrapped permanent error", err)
	}
	if Permanent(nil) != nil {
		t.Fatalf("Permanent(nil) should be nil")
	}
	if !IsPermanent(Permanent(bad)) || IsPermanent(bad) {
		t.Fatalf("IsPermanent misreports")
	}
}

func TestDo_AttemptTimeoutCountsAsFailure(t *testing.T) {
	p := Policy{MaxAttempts: 2, AttemptTimeout: 10 * time.Millisecond}
	calls := 0
	err := Do(context.Background(), p, func(ctx context.Context, attempt int) error {
		calls++
		if _, ok := ctx.Deadline(); !ok {
			t.Errorf("attempt %d has no deadline", attempt)
		}
		<-ctx.Done()
		return ctx.Err()
	})
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want exhausted deadline", err)
	}
}

func TestDo_ParentCancellationStopsRetrying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, DefaultPolicy(), func(ctx context.Context, attempt int) error {
		calls++
		cancel()
		return errors.New("timeout")
	}, WithSleep(func(ctx context.Context, d time.Duration) error {
		return ctx.Err()
	}))
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}

func TestDo_DefaultSleepHonoursContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	p := Policy{MaxAttempts: 5, Backoff: time.Hour}
	start := time.Now()
	err := Do(ctx, p, func(ctx context.Context, attempt int) error {
		return errors.New("down")
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want deadline exceeded", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("Do slept %v despite cancelled context", elapsed)
	}
}

func TestDo_DeferredTimeoutStartsOnStartAttempt(t *testing.T) {
	p := Policy{MaxAttempts: 1, AttemptTimeout: 30 * time.Millisecond}
	err := Do(context.Background(), p, func(ctx context.Context, attempt int) error {
		if _, ok := ctx.Deadline(); ok {
			t.Errorf("deadline set before StartAttempt")
		}
		// Waiting longer than the timeout before the clock starts is free.
		time.Sleep(60 * time.Millisecond)

		ctx, cancel := StartAttempt(ctx)
		defer cancel()
		if _, ok := ctx.Deadline(); !ok {
			t.Errorf("StartAttempt did not set a deadline")
		}
		return ctx.Err()
	}, WithDeferredTimeout())
	if err != nil {
		t.Fatalf("Do() = %v, want success", err)
	}
}

func TestDo_DeferredTimeoutCountsAsFailure(t *testing.T) {
	p := Policy{MaxAttempts: 2, AttemptTimeout: 10 * time.Millisecond}
	calls := 0
	err := Do(context.Background(), p, func(ctx context.Context, attempt int) error {
		calls++
		ctx, cancel := StartAttempt(ctx)
		defer cancel()
		<-ctx.Done()
		return ctx.Err()
	}, WithDeferredTimeout(), WithSleep(func(context.Context, time.Duration) error { return nil }))
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want deadline exceeded", err)
	}
}

func TestStartAttempt(t *testing.T) {
	ctx, cancel := StartAttempt(context.Background())
	defer cancel()
	if _, ok := ctx.Deadline(); ok {
		t.Fatalf("StartAttempt outside Do set a deadline")
	}

	p := Policy{MaxAttempts: 1, AttemptTimeout: time.Hour}
	_ = Do(context.Background(), p, func(ctx context.Context, attempt int) error {
		first, cancel := StartAttempt(ctx)
		defer cancel()
		deadline, _ := first.Deadline()

		// A second start inside the same attempt keeps the first clock.
		time.Sleep(5 * time.Millisecond)
		second, cancel2 := StartAttempt(first)
		defer cancel2()
		if again, _ := second.Deadline(); !again.Equal(deadline) {
			t.Errorf("second StartAttempt moved the deadline")
		}
		return nil
	}, WithDeferredTimeout())
}
