package failures

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"comicstore/internal/core/download"
	"comicstore/internal/logger"

	redisv8 "github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
)

const (
	defaultKey   = "comics:failures"
	defaultLimit = 1000

	recordTimeout = 5 * time.Second
)

// Failure is a task the worker gave up on.
type Failure struct {
	Path     string    `json:"path"`
	URL      string    `json:"url"`
	Error    string    `json:"error"`
	Retried  int       `json:"retried"`
	FailedAt time.Time `json:"failed_at"`
}

// Store is a capped, newest-first list of dead-lettered downloads in Redis.
type Store struct {
	client redisv8.Cmdable
	key    string
	limit  int64
	log    *logger.Logger
}

func NewStore(client redisv8.Cmdable) *Store {
	return &Store{client: client, key: defaultKey, limit: defaultLimit, log: logger.New("Failures")}
}

func (s *Store) Record(ctx context.Context, f Failure) error {
	b, err := json.Marshal(f)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(p redisv8.Pipeliner) error {
		p.LPush(ctx, s.key, b)
		p.LTrim(ctx, s.key, 0, s.limit-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("record failure for %s: %w", f.Path, err)
	}
	return nil
}

// List returns up to n failures, newest first. n <= 0 returns all kept entries.
func (s *Store) List(ctx context.Context, n int) ([]Failure, error) {
	stop := int64(-1)
	if n > 0 {
		stop = int64(n) - 1
	}
	raw, err := s.client.LRange(ctx, s.key, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("list failures: %w", err)
	}
	out := make([]Failure, 0, len(raw))
	for _, r := range raw {
		var f Failure
		if err := json.Unmarshal([]byte(r), &f); err != nil {
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

// HandleDeadTask records a task asynq is archiving. Its signature matches
// worker.DeadLetterFunc. asynq hands over the task's own context, which is
// already done when the task hit its deadline, so the write runs detached
// from it.
func (s *Store) HandleDeadTask(ctx context.Context, task *asynq.Task, retried int, cause error) {
	f := Failure{Retried: retried, FailedAt: time.Now().UTC()}
	if cause != nil {
		f.Error = cause.Error()
	}
	if t, err := download.Unmarshal(task.Payload()); err == nil {
		f.Path, f.URL = t.Path, t.URL
	} else {
		f.Error = fmt.Sprintf("%s (payload %q)", f.Error, task.Payload())
	}
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if err := s.Record(rctx, f); err != nil {
		s.log.LogError("could not record dead task", err)
	}
}
