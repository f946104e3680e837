// Package schedule drives the periodic departure refresh.
package schedule

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

// Stopper cancels a pending wake.
type Stopper interface {
	Stop() bool
}

// Clock provides time and delayed calls for the timer.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Stopper
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Stopper {
	return time.AfterFunc(d, f)
}

// Option configures a Timer.
type Option func(*Timer)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(t *Timer) {
		if c != nil {
			t.clock = c
		}
	}
}

// WithLogger sets the logger used for callback failures.
func WithLogger(l *slog.Logger) Option {
	return func(t *Timer) {
		if l != nil {
			t.logger = l
		}
	}
}

// Timer fires a callback every interval. It tracks the next trigger as an
// absolute time and re-checks it on every wake, so early or coalesced
// wakes never fire ahead of schedule.
type Timer struct {
	interval time.Duration
	callback func(now time.Time)
	clock    Clock
	logger   *slog.Logger

	mu      sync.Mutex
	next    time.Time
	pending Stopper
	gen     uint64
	running bool
}

// New returns a stopped Timer. An interval below one second is raised to
// one second.
func New(interval time.Duration, callback func(now time.Time), opts ...Option) *Timer {
	if interval < time.Second {
		interval = time.Second
	}
	t := &Timer{
		interval: interval,
		callback: callback,
		clock:    systemClock{},
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Interval returns the firing cadence.
func (t *Timer) Interval() time.Duration {
	return t.interval
}

// Start schedules an immediate first firing. Starting a running timer does
// nothing.
func (t *Timer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return
	}
	t.running = true
	t.next = t.clock.Now()
	t.scheduleLocked(0)
}

// Stop cancels the pending wake. It is safe to call more than once.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running = false
	t.gen++
	if t.pending != nil {
		t.pending.Stop()
		t.pending = nil
	}
}

// Check fires the callback now if it is due. With force the next trigger
// is moved to now and a wake is scheduled immediately instead.
func (t *Timer) Check(force bool) {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	now := t.clock.Now()
	if force {
		t.next = now
		t.scheduleLocked(0)
		t.mu.Unlock()
		return
	}
	due := t.dueLocked(now)
	t.mu.Unlock()
	if due {
		t.fire(now)
	}
}

// Adjust moves the next trigger by delta, but never past one interval from
// now.
func (t *Timer) Adjust(delta time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return
	}
	now := t.clock.Now()
	next := t.next.Add(delta)
	if limit := now.Add(t.interval); next.After(limit) {
		next = limit
	}
	t.next = next
	wait := next.Sub(now)
	if wait < 0 {
		wait = 0
	}
	t.scheduleLocked(wait)
}

// Next returns the time of the next trigger. It is zero before Start.
func (t *Timer) Next() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.next
}

func (t *Timer) wake(gen uint64) {
	t.mu.Lock()
	if !t.running || gen != t.gen {
		t.mu.Unlock()
		return
	}
	now := t.clock.Now()
	due := t.dueLocked(now)
	t.mu.Unlock()
	if due {
		t.fire(now)
	}
}

// dueLocked reschedules the timer and reports whether the callback should
// run. Callers hold t.mu.
func (t *Timer) dueLocked(now time.Time) bool {
	if now.Before(t.next) {
		t.scheduleLocked(t.next.Sub(now))
		return false
	}
	t.next = now.Add(t.interval)
	t.scheduleLocked(t.interval)
	return true
}

func (t *Timer) scheduleLocked(d time.Duration) {
	if t.pending != nil {
		t.pending.Stop()
	}
	t.gen++
	gen := t.gen
	t.pending = t.clock.AfterFunc(d, func() { t.wake(gen) })
}

func (t *Timer) fire(now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("refresh callback panicked",
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()))
		}
	}()
	if t.callback != nil {
		t.callback(now)
	}
}
