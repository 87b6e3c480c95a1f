// Package queue provides a bounded FIFO job queue paired with a single
// long-lived worker. The service instantiates one queue per notification
// channel so a slow SMS gateway never stalls email delivery or vice versa.
package queue

import (
	"context"
	"errors"
	"sync"

	"github.com/diagnosis/luxsuv-identity/pkg/logger"
)

var (
	ErrQueueFull   = errors.New("queue is full")
	ErrQueueClosed = errors.New("queue is closed")
)

// Queue is a fixed-capacity FIFO of jobs. Producers suspend when the queue
// is full; the worker suspends when it is empty. Jobs are owned by the queue
// from enqueue until the delivery attempt completes.
type Queue[T any] struct {
	name      string
	jobs      chan T
	done      chan struct{}
	closeOnce sync.Once
}

func New[T any](name string, capacity int) *Queue[T] {
	return &Queue[T]{
		name: name,
		jobs: make(chan T, capacity),
		done: make(chan struct{}),
	}
}

// Enqueue places the job at the tail of the queue, blocking until space is
// available. It returns ErrQueueClosed after Close, or the context error if
// the caller gives up first.
func (q *Queue[T]) Enqueue(ctx context.Context, job T) error {
	select {
	case <-q.done:
		return ErrQueueClosed
	default:
	}

	select {
	case q.jobs <- job:
		return nil
	case <-q.done:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryEnqueue is the non-blocking variant; it returns ErrQueueFull instead of
// suspending.
func (q *Queue[T]) TryEnqueue(job T) error {
	select {
	case <-q.done:
		return ErrQueueClosed
	default:
	}

	select {
	case q.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops the queue. Pending jobs are still drained by the worker;
// further enqueues fail with ErrQueueClosed. Safe to call more than once.
func (q *Queue[T]) Close() {
	q.closeOnce.Do(func() {
		close(q.done)
	})
}

// Len reports the number of jobs currently buffered.
func (q *Queue[T]) Len() int {
	return len(q.jobs)
}

// Run consumes jobs in FIFO order, one at a time, invoking deliver for each.
// Delivery failures are logged and the job is discarded; there is no retry.
// Run returns only once the queue has been closed and fully drained.
func (q *Queue[T]) Run(ctx context.Context, deliver func(context.Context, T) error) {
	logger.Info("queue worker started", "queue", q.name, "capacity", cap(q.jobs))

	for {
		select {
		case job := <-q.jobs:
			q.process(ctx, job, deliver)
		case <-q.done:
			for {
				select {
				case job := <-q.jobs:
					q.process(ctx, job, deliver)
				default:
					logger.Info("queue worker stopped", "queue", q.name)
					return
				}
			}
		}
	}
}

func (q *Queue[T]) process(ctx context.Context, job T, deliver func(context.Context, T) error) {
	if err := deliver(ctx, job); err != nil {
		logger.ErrorContext(ctx, "job delivery failed", "queue", q.name, "error", err)
	}
}
