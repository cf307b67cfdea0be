package worker

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"comicstore/internal/logger"

	"github.com/hibiken/asynq"
)

// Mux routes queued tasks to handlers by type. A task whose type has no
// handler is archived at once instead of burning through its retries.
type Mux struct {
	mux *asynq.ServeMux
	log *logger.Logger

	mu    sync.RWMutex
	types map[string]struct{}
}

func NewMux() *Mux {
	m := &Mux{
		mux:   asynq.NewServeMux(),
		log:   logger.New("Worker"),
		types: make(map[string]struct{}),
	}
	m.mux.Use(m.guard)
	return m
}

// HandleFunc registers h for taskType. Registering the same type twice panics,
// as with asynq.ServeMux.
func (m *Mux) HandleFunc(taskType string, h func(ctx context.Context, task *asynq.Task) error) {
	m.mux.HandleFunc(taskType, h)
	m.mu.Lock()
	m.types[taskType] = struct{}{}
	m.mu.Unlock()
}

// Types lists the registered task types in sorted order.
func (m *Mux) Types() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.types))
	for t := range m.types {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Mux returns the handler to pass to asynq.Server.Start.
func (m *Mux) Mux() *asynq.ServeMux { return m.mux }

func (m *Mux) known(taskType string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.types[taskType]
	return ok
}

func (m *Mux) guard(next asynq.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, task *asynq.Task) error {
		if !m.known(task.Type()) {
			m.log.LogWarnf("no handler for task type %q", task.Type())
			return fmt.Errorf("unknown task type %q: %w", task.Type(), asynq.SkipRetry)
		}
		start := time.Now()
		err := next.ProcessTask(ctx, task)
		m.log.LogDebugf("%s handled in %v", task.Type(), time.Since(start))
		return err
	})
}
