package download

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/hibiken/asynq"
)

const TaskTypeDownload = "comic:download"

// Task is one page to fetch: the file to write and where its bytes come from.
// It is passed by value and never mutated.
type Task struct {
	Path string `json:"path"`
	URL  string `json:"url"`
}

func NewTask(path, url string) Task { return Task{Path: path, URL: url} }

func (t Task) String() string { return fmt.Sprintf("Task(path=%s, url=%s)", t.Path, t.URL) }

// ErrNotUTF8 is returned for tasks JSON cannot carry byte for byte.
var ErrNotUTF8 = errors.New("task field is not valid UTF-8")

// Marshal encodes the task as a flat {"path","url"} record. Fields that are
// not valid UTF-8 are refused: JSON would replace the bad bytes and the
// worker would write somewhere else.
func (t Task) Marshal() ([]byte, error) {
	if !utf8.ValidString(t.Path) || !utf8.ValidString(t.URL) {
		return nil, fmt.Errorf("encode %q: %w", t.Path, ErrNotUTF8)
	}
	return json.Marshal(t)
}

// Unmarshal decodes a record produced by Marshal. Unknown fields and
// missing path/url are rejected.
func Unmarshal(b []byte) (Task, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	var t Task
	if err := dec.Decode(&t); err != nil {
		return Task{}, fmt.Errorf("decode task: %w", err)
	}
	if t.Path == "" || t.URL == "" {
		return Task{}, errors.New("decode task: path and url are required")
	}
	return t, nil
}

// AsynqTask wraps the task for the background queue.
func (t Task) AsynqTask() (*asynq.Task, error) {
	payload, err := t.Marshal()
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeDownload, payload), nil
}
