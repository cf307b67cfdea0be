package download

import (
	"context"

	"comicstore/internal/logger"

	"github.com/hibiken/asynq"
)

// Enqueuer publishes a task to the broker.
type Enqueuer interface {
	Enqueue(task *asynq.Task, queue string, maxRetries int) error
}

// QueuedExecutor publishes tasks for the worker pool and returns without
// waiting for the fetch. The broker must deliver at least once; the worker's
// overwrite-by-rename write makes redelivery harmless.
type QueuedExecutor struct {
	enq        Enqueuer
	queue      string
	maxRetries int
	log        *logger.Logger
}

func NewQueuedExecutor(enq Enqueuer, queue string, maxRetries int) *QueuedExecutor {
	if queue == "" {
		queue = "default"
	}
	return &QueuedExecutor{enq: enq, queue: queue, maxRetries: maxRetries, log: logger.New("QueuedExecutor")}
}

// Download returns Accepted once the broker holds the task, or a Failure
// wrapping a *QueueError if publishing failed.
func (e *QueuedExecutor) Download(_ context.Context, t Task) Outcome {
	task, err := t.AsynqTask()
	if err != nil {
		return Failure(&QueueError{Task: t, Err: err})
	}
	if err := e.enq.Enqueue(task, e.queue, e.maxRetries); err != nil {
		return Failure(&QueueError{Task: t, Err: err})
	}
	e.log.LogDebugf("enqueued %s", t)
	return Accepted()
}
