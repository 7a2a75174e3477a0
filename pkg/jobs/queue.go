// Package jobs runs background tasks on a fixed pool of workers.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task is a unit of background work.
type Task struct {
	ID      string
	Kind    string
	Payload interface{}

	attempt int
}

// HandlerFunc processes one task. A non-nil error triggers a retry.
type HandlerFunc func(context.Context, Task) error

// Options tunes worker pool behaviour. Zero values fall back to defaults.
type Options struct {
	Workers    int
	Buffer     int
	MaxRetries int
	Backoff    time.Duration
}

// Queue dispatches tasks to goroutine workers with bounded retries.
type Queue struct {
	name    string
	handle  HandlerFunc
	opts    Options
	logger  *zap.Logger
	tasks   chan Task
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
}

// New builds a queue. Call Start before pushing tasks.
func New(name string, handle HandlerFunc, opts Options, logger *zap.Logger) *Queue {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Buffer <= 0 {
		opts.Buffer = opts.Workers * 8
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.Backoff <= 0 {
		opts.Backoff = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{
		name:   name,
		handle: handle,
		opts:   opts,
		logger: logger,
		tasks:  make(chan Task, opts.Buffer),
	}
}

// Start launches the workers. Calling Start twice is a no-op.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.opts.Workers; i++ {
		q.wg.Add(1)
		go q.run()
	}
	q.started = true
	q.logger.Info("worker queue started",
		zap.String("queue", q.name),
		zap.Int("workers", q.opts.Workers))
}

// Stop cancels the workers and blocks until they exit.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.cancel()
	q.mu.Unlock()
	q.wg.Wait()
	q.logger.Info("worker queue stopped", zap.String("queue", q.name))
}

// Push enqueues a task. It fails when the queue has not started or is shutting
// down.
func (q *Queue) Push(t Task) error {
	q.mu.Lock()
	ctx, started := q.ctx, q.started
	q.mu.Unlock()

	if !started {
		return fmt.Errorf("queue %s is not running", q.name)
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("queue %s is shutting down: %w", q.name, ctx.Err())
	case q.tasks <- t:
		return nil
	}
}

func (q *Queue) run() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case t := <-q.tasks:
			q.process(t)
		}
	}
}

// process retries in place; the worker sleeps through the backoff window so a
// failing task cannot flood the queue.
func (q *Queue) process(t Task) {
	for {
		err := q.handle(q.ctx, t)
		if err == nil {
			return
		}
		t.attempt++
		if t.attempt >= q.opts.MaxRetries {
			q.logger.Error("task dropped after retries",
				zap.String("queue", q.name),
				zap.String("task_id", t.ID),
				zap.String("kind", t.Kind),
				zap.Error(err))
			return
		}
		q.logger.Warn("task failed, retrying",
			zap.String("queue", q.name),
			zap.String("task_id", t.ID),
			zap.String("kind", t.Kind),
			zap.Int("attempt", t.attempt),
			zap.Error(err))

		timer := time.NewTimer(q.opts.Backoff)
		select {
		case <-q.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}
