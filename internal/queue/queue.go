// Package queue provides a keyed FIFO executor: work submitted under the same
// key runs strictly one at a time in submission order, work under different
// keys runs concurrently.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrClosed is returned for work submitted after Close.
var ErrClosed = errors.New("queue closed")

// Operation is one unit of serialized work. ctx carries the per-operation timeout.
type Operation func(ctx context.Context) (any, error)

// Result is the outcome of an Operation.
type Result struct {
	Value any
	Err   error
}

// Future resolves once its Operation has run.
type Future struct {
	done chan struct{}
	res  Result
}

// Done is closed when the result is available.
func (f *Future) Done() <-chan struct{} { return f.done }

// Wait blocks until the operation completes or ctx ends. A ctx ending does not
// cancel the queued operation; it still runs in order.
func (f *Future) Wait(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.res.Value, f.res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *Future) resolve(r Result) {
	f.res = r
	close(f.done)
}

type job struct {
	op  Operation
	fut *Future
}

// worker owns the FIFO of one key.
type worker struct {
	jobs    []job
	running bool
}

// Keyed runs Operations serialized per key.
type Keyed struct {
	mu        sync.Mutex
	workers   map[string]*worker
	opTimeout time.Duration
	base      context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closed    bool
}

// New returns a Keyed queue. Every Operation runs under opTimeout when it is positive.
func New(opTimeout time.Duration) *Keyed {
	ctx, cancel := context.WithCancel(context.Background())
	return &Keyed{
		workers:   map[string]*worker{},
		opTimeout: opTimeout,
		base:      ctx,
		cancel:    cancel,
	}
}

// Enqueue appends op to key's FIFO and returns its Future. The worker for key
// is created lazily and exits once its FIFO drains.
func (q *Keyed) Enqueue(key string, op Operation) *Future {
	fut := &Future{done: make(chan struct{})}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		fut.resolve(Result{Err: ErrClosed})
		return fut
	}
	w, ok := q.workers[key]
	if !ok {
		w = &worker{}
		q.workers[key] = w
	}
	w.jobs = append(w.jobs, job{op: op, fut: fut})
	start := !w.running
	w.running = true
	if start {
		q.wg.Add(1)
	}
	q.mu.Unlock()

	if start {
		go q.drain(key, w)
	}
	return fut
}

// Pending returns the number of queued (not yet started) operations for key.
func (q *Keyed) Pending(key string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	if w, ok := q.workers[key]; ok {
		return len(w.jobs)
	}
	return 0
}

// Close rejects new work, cancels the context of running operations and waits
// for workers to finish what is already queued.
func (q *Keyed) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cancel()
	q.wg.Wait()
}

func (q *Keyed) drain(key string, w *worker) {
	defer q.wg.Done()
	for {
		q.mu.Lock()
		if len(w.jobs) == 0 {
			w.running = false
			delete(q.workers, key)
			q.mu.Unlock()
			return
		}
		j := w.jobs[0]
		w.jobs[0] = job{}
		w.jobs = w.jobs[1:]
		q.mu.Unlock()

		j.fut.resolve(q.run(j.op))
	}
}

// run executes op, converting a panic into an error so the FIFO keeps moving.
func (q *Keyed) run(op Operation) (res Result) {
	ctx := q.base
	if q.opTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.opTimeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			res = Result{Err: fmt.Errorf("queued operation panicked: %v", r)}
		}
	}()
	v, err := op(ctx)
	return Result{Value: v, Err: err}
}

// Do submits fn under key and waits for its typed result.
func Do[T any](ctx context.Context, q *Keyed, key string, fn func(ctx context.Context) (T, error)) (T, error) {
	fut := q.Enqueue(key, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	v, err := fut.Wait(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	out, _ := v.(T)
	return out, nil
}
