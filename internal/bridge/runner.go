// Package bridge serializes work onto a single long-lived worker
// goroutine. Callers that are not goroutine-aware (foreign-function
// hosts, callback-style plugins) get a blocking Do and a
// promise-style Go without managing goroutines themselves.
package bridge

import (
	"context"
	"errors"
	"sync"
)

// Static errors for err113 compliance.
var (
	// ErrRunnerClosed is returned for work submitted after Close.
	ErrRunnerClosed = errors.New("bridge: runner closed")

	// ErrNestedCall is returned when a task submits work back into
	// its own runner, which would deadlock the worker.
	ErrNestedCall = errors.New("bridge: nested call into running task")
)

type runnerKey struct{}

// Runner owns one worker goroutine and executes submitted tasks on it
// in order.
type Runner struct {
	tasks chan func()
	done  chan struct{}
	once  sync.Once
}

// NewRunner starts the worker goroutine.
func NewRunner() *Runner {
	runner := &Runner{
		tasks: make(chan func()),
		done:  make(chan struct{}),
	}

	go runner.loop()

	return runner
}

func (r *Runner) loop() {
	for {
		select {
		case task := <-r.tasks:
			task()
		case <-r.done:
			return
		}
	}
}

// Close stops the worker. It is idempotent; work submitted afterwards
// fails with ErrRunnerClosed. Tasks already running finish.
func (r *Runner) Close() {
	r.once.Do(func() {
		close(r.done)
	})
}

// submit hands a task to the worker, honoring cancellation and
// shutdown while waiting for the worker to pick it up.
func (r *Runner) submit(ctx context.Context, task func()) error {
	select {
	case <-r.done:
		return ErrRunnerClosed
	default:
	}

	select {
	case r.tasks <- task:
		return nil
	case <-r.done:
		return ErrRunnerClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

type result[T any] struct {
	value T
	err   error
}

// Future is the pending result of a task started with Go.
type Future[T any] struct {
	ch chan result[T]
}

// Wait blocks until the task finishes or ctx is done. The task keeps
// running if ctx wins; a later Wait can still collect its result.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case res := <-f.ch:
		return res.value, res.err
	case <-ctx.Done():
		var zero T

		return zero, ctx.Err()
	}
}

// Do runs fn on the runner's worker and blocks until it returns.
// Calling Do from inside a task of the same runner fails with
// ErrNestedCall instead of deadlocking.
func Do[T any](r *Runner, ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	future, err := start(r, ctx, fn)
	if err != nil {
		return zero, err
	}

	return future.Wait(ctx)
}

// Go runs fn on the runner's worker without blocking and returns a
// Future for its result.
func Go[T any](r *Runner, ctx context.Context, fn func(context.Context) (T, error)) (*Future[T], error) {
	return start(r, ctx, fn)
}

func start[T any](r *Runner, ctx context.Context, fn func(context.Context) (T, error)) (*Future[T], error) {
	if owner, ok := ctx.Value(runnerKey{}).(*Runner); ok && owner == r {
		return nil, ErrNestedCall
	}

	future := &Future[T]{ch: make(chan result[T], 1)}

	taskCtx := context.WithValue(ctx, runnerKey{}, r)
	task := func() {
		value, err := fn(taskCtx)
		future.ch <- result[T]{value: value, err: err}
	}

	if err := r.submit(ctx, task); err != nil {
		return nil, err
	}

	return future, nil
}
