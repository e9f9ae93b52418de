package tasks

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task is one unit of queued work.
type Task func(ctx context.Context) error

// Queue is an in-process task queue backed by a bounded goroutine pool.
// Tasks carry deterministic ids; enqueueing an id already in flight is a
// no-op, which makes re-dispatch after resume idempotent.
type Queue struct {
	logger      *zap.Logger
	sem         chan struct{}
	taskTimeout time.Duration
	wg          sync.WaitGroup
	mu          sync.Mutex
	active      map[string]bool
	closed      bool
	baseCtx     context.Context
	cancel      context.CancelFunc
}

// NewQueue creates a queue running at most workers tasks concurrently. A
// positive taskTimeout bounds each task's context; zero disables the limit.
func NewQueue(workers int, taskTimeout time.Duration, logger *zap.Logger) *Queue {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		logger:      logger,
		sem:         make(chan struct{}, workers),
		taskTimeout: taskTimeout,
		active:      map[string]bool{},
		baseCtx:     ctx,
		cancel:      cancel,
	}
}

// Enqueue schedules fn under the given task id. Returns false when the id is
// already in flight or the queue is shut down; the caller treats that as
// already-scheduled.
func (q *Queue) Enqueue(name, taskID string, fn Task) bool {
	q.mu.Lock()
	if q.closed || q.active[taskID] {
		q.mu.Unlock()
		return false
	}
	q.active[taskID] = true
	q.mu.Unlock()

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		defer func() {
			q.mu.Lock()
			delete(q.active, taskID)
			q.mu.Unlock()
		}()

		select {
		case q.sem <- struct{}{}:
			defer func() { <-q.sem }()
		case <-q.baseCtx.Done():
			return
		}

		ctx := q.baseCtx
		if q.taskTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(q.baseCtx, q.taskTimeout)
			defer cancel()
		}
		if err := fn(ctx); err != nil {
			q.logger.Error("task failed",
				zap.String("task", name),
				zap.String("task_id", taskID),
				zap.Error(err))
		}
	}()
	return true
}

// InFlight reports whether a task id is currently scheduled or running.
func (q *Queue) InFlight(taskID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.active[taskID]
}

// Wait blocks until every scheduled task has finished.
func (q *Queue) Wait() {
	q.wg.Wait()
}

// Shutdown stops accepting tasks, cancels the running ones and waits.
func (q *Queue) Shutdown() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cancel()
	q.wg.Wait()
}
