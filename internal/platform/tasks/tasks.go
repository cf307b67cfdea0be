package tasks

import (
	"comicstore/internal/platform/redis"

	"github.com/hibiken/asynq"
)

// Client publishes tasks to asynq. It satisfies download.Enqueuer.
type Client struct{ c *asynq.Client }

func New(r *redis.Service) *Client { return &Client{c: asynq.NewClient(r.AsynqRedisOpt())} }

// NewWithOpt builds a client without a shared Redis handle.
func NewWithOpt(opt asynq.RedisConnOpt) *Client { return &Client{c: asynq.NewClient(opt)} }

func (t *Client) Enqueue(task *asynq.Task, queue string, maxRetries int) error {
	_, err := t.c.Enqueue(task, asynq.Queue(queue), asynq.MaxRetry(maxRetries))
	return err
}

func (t *Client) Close() error { return t.c.Close() }
