package download

import (
	"context"
)

// ImmediateExecutor fetches in the caller's goroutine. There is no retry:
// a failure is returned to the caller straight away.
type ImmediateExecutor struct {
	fetcher *Fetcher
}

func NewImmediateExecutor(f *Fetcher) *ImmediateExecutor {
	return &ImmediateExecutor{fetcher: f}
}

func (e *ImmediateExecutor) Download(ctx context.Context, t Task) Outcome {
	if err := e.fetcher.Fetch(ctx, t); err != nil {
		return Failure(err)
	}
	return Success()
}
