package tasks

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// ChannelQueue is an in-process queue: a buffered channel drained by a fixed
// set of workers.
type ChannelQueue struct {
	tasks      chan Task
	dispatcher *Dispatcher
	workers    int
	logger     *zap.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewChannelQueue(d *Dispatcher, buffer, workers int, logger *zap.Logger) *ChannelQueue {
	if workers < 1 {
		workers = 1
	}
	return &ChannelQueue{
		tasks:      make(chan Task, buffer),
		dispatcher: d,
		workers:    workers,
		logger:     logger,
	}
}

// Start launches the workers. They run until Close drains the channel.
func (q *ChannelQueue) Start(ctx context.Context) {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go func(id int) {
			defer q.wg.Done()
			for task := range q.tasks {
				if err := q.dispatcher.Dispatch(ctx, task); err != nil {
					q.logger.Error("task failed", zap.Int("worker", id), zap.String("task_id", task.ID), zap.Error(err))
				}
			}
		}(i)
	}
	q.logger.Info("task workers started", zap.Int("workers", q.workers))
}

// Enqueue blocks while the buffer is full, bounded by ctx. A task that fits
// in the buffer is always accepted, even if ctx is already done.
func (q *ChannelQueue) Enqueue(ctx context.Context, task Task) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.tasks <- task:
		return nil
	default:
	}
	select {
	case q.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting tasks and waits for the workers to finish what is
// already queued.
func (q *ChannelQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.tasks)
	q.mu.Unlock()
	q.wg.Wait()
}
