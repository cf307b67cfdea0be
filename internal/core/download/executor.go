package download

import (
	"context"
)

type Status string

const (
	StatusSuccess  Status = "success"
	StatusFailure  Status = "failure"
	StatusAccepted Status = "accepted"
)

// Outcome is what an Executor reports for one task. Err is set only for
// StatusFailure.
type Outcome struct {
	Status Status
	Err    error
}

func Success() Outcome          { return Outcome{Status: StatusSuccess} }
func Accepted() Outcome         { return Outcome{Status: StatusAccepted} }
func Failure(err error) Outcome { return Outcome{Status: StatusFailure, Err: err} }
func (o Outcome) Failed() bool  { return o.Status == StatusFailure }

// Executor turns a task into a file on disk, either now or later.
//
// ImmediateExecutor returns Success or Failure after the fetch completes.
// QueuedExecutor returns Accepted once the broker has the task; fetch
// failures after that point never reach the caller and are handled by the
// worker's retry and dead-letter policy.
type Executor interface {
	Download(ctx context.Context, t Task) Outcome
}
