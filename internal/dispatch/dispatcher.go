// Package dispatch runs asynchronous operations in FIFO order with a bound
// on how many may be in flight at once.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrClosed is returned for work enqueued on, or still queued in, a closed
// dispatcher.
var ErrClosed = errors.New("dispatcher closed")

// Operation is a unit of work submitted to a Dispatcher.
type Operation func(ctx context.Context) (any, error)

// Stats is a point-in-time view of the dispatcher.
type Stats struct {
	Queued   int
	InFlight int
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithObserver registers a function called with fresh Stats whenever the
// queue is processed. It runs with the dispatcher lock held and must not call
// back into the dispatcher.
func WithObserver(fn func(Stats)) Option {
	return func(d *Dispatcher) {
		if fn != nil {
			d.observe = fn
		}
	}
}

type task struct {
	ctx    context.Context
	op     Operation
	future *Future
}

// Dispatcher starts queued operations in enqueue order while fewer than
// maxConcurrency are running. Order is kept when an operation is taken off
// the queue: each one runs on its own goroutine, so with maxConcurrency
// above 1, operations admitted together may begin executing in any order. Started operations are never cancelled by the
// dispatcher; they run to completion and settle their Future.
type Dispatcher struct {
	maxConcurrency int
	delay          time.Duration
	observe        func(Stats)

	mu       sync.Mutex
	queue    []*task
	inFlight int
	timer    *time.Timer
	closed   bool
}

// New returns a dispatcher. maxConcurrency below 1 is treated as 1. delay is
// how long to wait before re-examining a saturated queue.
func New(maxConcurrency int, delay time.Duration, opts ...Option) *Dispatcher {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	if delay < 0 {
		delay = 0
	}
	d := &Dispatcher{
		maxConcurrency: maxConcurrency,
		delay:          delay,
		observe:        func(Stats) {},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Enqueue appends op to the queue and returns a Future settled with its
// result. If ctx is done before op reaches the front of the queue, op is
// skipped and the Future settles with ctx.Err().
func (d *Dispatcher) Enqueue(ctx context.Context, op Operation) *Future {
	if ctx == nil {
		ctx = context.Background()
	}
	f := newFuture()

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		f.settle(nil, ErrClosed)
		return f
	}
	d.queue = append(d.queue, &task{ctx: ctx, op: op, future: f})
	d.mu.Unlock()

	d.process()
	return f
}

// Do enqueues op on d and waits for its result.
func Do[T any](ctx context.Context, d *Dispatcher, op func(context.Context) (T, error)) (T, error) {
	var zero T
	f := d.Enqueue(ctx, func(ctx context.Context) (any, error) {
		v, err := op(ctx)
		return v, err
	})
	v, err := f.Wait(ctx)
	if err != nil {
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		return zero, nil
	}
	return out, nil
}

// Stats returns the current queue length and in-flight count.
func (d *Dispatcher) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.statsLocked()
}

// Close rejects all queued work with ErrClosed. In-flight operations keep
// running and settle normally. Close is idempotent.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	pending := d.queue
	d.queue = nil
	d.observe(d.statsLocked())
	d.mu.Unlock()

	for _, t := range pending {
		t.future.settle(nil, ErrClosed)
	}
}

func (d *Dispatcher) process() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}

	var skipped []*task
	for len(d.queue) > 0 && d.inFlight < d.maxConcurrency {
		t := d.queue[0]
		d.queue[0] = nil
		d.queue = d.queue[1:]
		if t.ctx.Err() != nil {
			skipped = append(skipped, t)
			continue
		}
		d.inFlight++
		go d.run(t)
	}
	// Completions re-trigger processing as well; with no delay the timer
	// would only spin.
	if len(d.queue) > 0 && !d.closed && d.delay > 0 {
		d.timer = time.AfterFunc(d.delay, d.process)
	}
	d.observe(d.statsLocked())
	d.mu.Unlock()

	for _, t := range skipped {
		t.future.settle(nil, t.ctx.Err())
	}
}

func (d *Dispatcher) run(t *task) {
	value, err := invoke(t)

	d.mu.Lock()
	d.inFlight--
	d.mu.Unlock()

	t.future.settle(value, err)
	d.process()
}

func invoke(t *task) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dispatch: operation panicked: %v", r)
		}
	}()
	return t.op(t.ctx)
}

func (d *Dispatcher) statsLocked() Stats {
	return Stats{Queued: len(d.queue), InFlight: d.inFlight}
}
