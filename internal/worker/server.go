package worker

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"comicstore/internal/logger"

	"github.com/hibiken/asynq"
)

type Options struct {
	Concurrency int
	Queue       string
	RetryBase   time.Duration
	RetryMax    time.Duration
}

// DeadLetterFunc is called once a task will not be retried again. asynq
// keeps the task in its archived set; the callback is for bookkeeping.
type DeadLetterFunc func(ctx context.Context, task *asynq.Task, retried int, err error)

// NewServer builds the asynq worker pool. Failed tasks are retried with
// exponential backoff up to the max retry set at enqueue time, then
// archived.
func NewServer(redisOpt asynq.RedisConnOpt, opts Options, onDead DeadLetterFunc) *asynq.Server {
	log := logger.New("Worker")
	queue := opts.Queue
	if queue == "" {
		queue = "default"
	}
	return asynq.NewServer(redisOpt, asynq.Config{
		Concurrency:    opts.Concurrency,
		Queues:         map[string]int{queue: 1},
		RetryDelayFunc: RetryDelay(opts.RetryBase, opts.RetryMax),
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			if !IsFinal(retried, maxRetry, err) {
				log.LogWarnf("%s failed (attempt %d of %d), will retry: %v", task.Type(), retried+1, maxRetry+1, err)
				return
			}
			log.LogErrorf("%s failed permanently after %d attempts, archiving: %v", task.Type(), retried+1, err)
			if onDead != nil {
				onDead(ctx, task, retried, err)
			}
		}),
		Logger:   asynqLogger{log},
		LogLevel: asynq.WarnLevel,
	})
}

// IsFinal reports whether asynq will archive rather than retry.
func IsFinal(retried, maxRetry int, err error) bool {
	return retried >= maxRetry || errors.Is(err, asynq.SkipRetry)
}

// RetryDelay doubles from base on every retry, capped at max.
func RetryDelay(base, max time.Duration) asynq.RetryDelayFunc {
	if base <= 0 {
		base = time.Second
	}
	if max < base {
		max = base
	}
	return func(n int, _ error, _ *asynq.Task) time.Duration {
		d := float64(base) * math.Pow(2, float64(n))
		if d > float64(max) {
			return max
		}
		return time.Duration(d)
	}
}

type asynqLogger struct{ l *logger.Logger }

func (a asynqLogger) Debug(args ...interface{}) { a.l.Debug().Msg(fmt.Sprint(args...)) }
func (a asynqLogger) Info(args ...interface{})  { a.l.Info().Msg(fmt.Sprint(args...)) }
func (a asynqLogger) Warn(args ...interface{})  { a.l.Warn().Msg(fmt.Sprint(args...)) }
func (a asynqLogger) Error(args ...interface{}) { a.l.Error().Msg(fmt.Sprint(args...)) }
func (a asynqLogger) Fatal(args ...interface{}) { a.l.Fatal().Msg(fmt.Sprint(args...)) }
