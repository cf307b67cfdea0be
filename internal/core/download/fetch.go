package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"comicstore/internal/logger"
)

// Mirror receives every page after it has been written locally.
type Mirror interface {
	Put(ctx context.Context, localPath string) error
}

// Fetcher performs the GET, mkdir -p, overwrite-write sequence shared by the
// immediate executor and the background worker.
type Fetcher struct {
	client *http.Client
	mirror Mirror
	log    *logger.Logger
}

type FetcherOption func(*Fetcher)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *Fetcher) { f.client = c }
}

// WithTimeout bounds each request. Zero keeps the client's setting.
func WithTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		if d > 0 {
			c := *f.client
			c.Timeout = d
			f.client = &c
		}
	}
}

// WithMirror uploads each written page; mirror failures are logged only.
func WithMirror(m Mirror) FetcherOption {
	return func(f *Fetcher) { f.mirror = m }
}

func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{client: &http.Client{}, log: logger.New("Fetcher")}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads t.URL and replaces t.Path with the response body.
//
// The body is streamed into a temporary file next to the target and renamed
// over it, so concurrent fetches of the same task leave the file holding one
// complete body (the last rename wins), never a mix of both.
func (f *Fetcher) Fetch(ctx context.Context, t Task) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.URL, nil)
	if err != nil {
		return &NetworkError{URL: t.URL, Err: fmt.Errorf("create request: %w", err)}
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return &NetworkError{URL: t.URL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &NetworkError{URL: t.URL, StatusCode: resp.StatusCode}
	}

	dir := filepath.Dir(t.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &IOError{Path: dir, Op: "mkdir", Err: err}
	}

	tmp, err := os.CreateTemp(dir, ".page-*")
	if err != nil {
		return &IOError{Path: t.Path, Op: "create", Err: err}
	}
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	body := &bodyReader{r: resp.Body}
	n, err := io.Copy(tmp, body)
	if err != nil {
		if body.err != nil {
			return &NetworkError{URL: t.URL, Err: fmt.Errorf("read body: %w", body.err)}
		}
		return &IOError{Path: t.Path, Op: "write", Err: err}
	}
	if err := tmp.Chmod(0o644); err != nil {
		return &IOError{Path: t.Path, Op: "chmod", Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &IOError{Path: t.Path, Op: "write", Err: err}
	}
	if err := os.Rename(tmp.Name(), t.Path); err != nil {
		return &IOError{Path: t.Path, Op: "rename", Err: err}
	}
	committed = true

	f.log.LogDebugf("wrote %d bytes to %s", n, t.Path)

	if f.mirror != nil {
		if err := f.mirror.Put(ctx, t.Path); err != nil {
			f.log.LogWarnf("mirror upload of %s failed: %v", t.Path, err)
		}
	}
	return nil
}

// bodyReader remembers read-side failures so they can be told apart from
// write-side ones after io.Copy.
type bodyReader struct {
	r   io.Reader
	err error
}

func (b *bodyReader) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	if err != nil && err != io.EOF {
		b.err = err
	}
	return n, err
}
