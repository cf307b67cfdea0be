package download

import (
	"context"
	"fmt"

	"comicstore/internal/logger"

	"github.com/hibiken/asynq"
)

// TaskHandler is the worker side of QueuedExecutor: it decodes a queued task
// and runs the same fetch as ImmediateExecutor.
type TaskHandler struct {
	fetcher *Fetcher
	log     *logger.Logger
}

func NewTaskHandler(f *Fetcher) *TaskHandler {
	return &TaskHandler{fetcher: f, log: logger.New("Worker")}
}

// HandleTask returns nil on success so asynq acknowledges the message. Fetch
// errors are returned for retry; undecodable payloads skip retry and go
// straight to the archive.
func (h *TaskHandler) HandleTask(ctx context.Context, task *asynq.Task) error {
	t, err := Unmarshal(task.Payload())
	if err != nil {
		h.log.LogErrorf("dropping malformed %s payload: %v", task.Type(), err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)

	if err := h.fetcher.Fetch(ctx, t); err != nil {
		h.log.ErrorWithFields(map[string]interface{}{
			"path":      t.Path,
			"url":       t.URL,
			"retried":   retried,
			"max_retry": maxRetry,
		}).Err(err).Msg("download failed")
		return err
	}
	h.log.LogDebugf("downloaded %s", t)
	return nil
}
