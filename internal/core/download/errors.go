package download

import (
	"fmt"
)

// NetworkError means the page could not be fetched: connection failure,
// timeout, a non-2xx status or a body that could not be read.
type NetworkError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IOError means the target directory or file could not be written.
type IOError struct {
	Path string
	Op   string
	Err  error
}

func (e *IOError) Error() string { return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err) }

func (e *IOError) Unwrap() error { return e.Err }

// QueueError means a task could not be handed to the broker.
type QueueError struct {
	Task Task
	Err  error
}

func (e *QueueError) Error() string { return fmt.Sprintf("enqueue %s: %v", e.Task.Path, e.Err) }

func (e *QueueError) Unwrap() error { return e.Err }
