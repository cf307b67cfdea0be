package download

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestImmediateExecutorWritesPages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "body of %s", r.URL.Path)
	}))
	defer server.Close()

	root := t.TempDir()
	exec := NewImmediateExecutor(NewFetcher())
	tasks := []Task{
		NewTask(filepath.Join(root, "comics", "test-comic", "ep1", "000.jpg"), server.URL+"/1.jpg"),
		NewTask(filepath.Join(root, "comics", "test-comic", "ep1", "001.jpg"), server.URL+"/2.jpg"),
	}
	for _, task := range tasks {
		if out := exec.Download(context.Background(), task); out.Status != StatusSuccess {
			t.Fatalf("Download(%s): %v %v", task, out.Status, out.Err)
		}
	}

	assertFile(t, tasks[0].Path, "body of /1.jpg")
	assertFile(t, tasks[1].Path, "body of /2.jpg")
}

func TestImmediateExecutorOverwrites(t *testing.T) {
	var calls int
	var mu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			w.Write([]byte("a much longer first response body"))
			return
		}
		w.Write([]byte("second"))
	}))
	defer server.Close()

	task := NewTask(filepath.Join(t.TempDir(), "comics", "c", "e", "000.png"), server.URL+"/0.png")
	exec := NewImmediateExecutor(NewFetcher())

	for i := 0; i < 2; i++ {
		if out := exec.Download(context.Background(), task); out.Failed() {
			t.Fatalf("Download #%d: %v", i, out.Err)
		}
	}

	assertFile(t, task.Path, "second")
	assertNoTempFiles(t, filepath.Dir(task.Path))
}

func TestImmediateExecutorNetworkErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	root := t.TempDir()
	exec := NewImmediateExecutor(NewFetcher())

	out := exec.Download(context.Background(), NewTask(filepath.Join(root, "x", "000.jpg"), server.URL+"/missing.jpg"))
	var netErr *NetworkError
	if !errors.As(out.Err, &netErr) {
		t.Fatalf("expected NetworkError, got %v", out.Err)
	}
	if netErr.StatusCode != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", netErr.StatusCode)
	}
	if _, err := os.Stat(filepath.Join(root, "x", "000.jpg")); !os.IsNotExist(err) {
		t.Errorf("failed fetch must not create the target, stat err=%v", err)
	}

	// Nothing listens on a closed server's address.
	closed := httptest.NewServer(http.NotFoundHandler())
	addr := closed.URL
	closed.Close()
	out = exec.Download(context.Background(), NewTask(filepath.Join(root, "y", "000.jpg"), addr+"/1.jpg"))
	if !errors.As(out.Err, &netErr) {
		t.Fatalf("expected NetworkError for refused connection, got %v", out.Err)
	}
}

func TestFetcherTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	f := NewFetcher(WithTimeout(50 * time.Millisecond))
	err := f.Fetch(context.Background(), NewTask(filepath.Join(t.TempDir(), "000"), server.URL))
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected NetworkError on timeout, got %v", err)
	}
}

func TestImmediateExecutorIOError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("data"))
	}))
	defer server.Close()

	root := t.TempDir()
	blocker := filepath.Join(root, "comics")
	if err := os.WriteFile(blocker, []byte("not a dir"), 0o644); err != nil {
		t.Fatal(err)
	}

	out := NewImmediateExecutor(NewFetcher()).Download(context.Background(),
		NewTask(filepath.Join(blocker, "c", "e", "000.jpg"), server.URL+"/0.jpg"))
	var ioErr *IOError
	if !errors.As(out.Err, &ioErr) {
		t.Fatalf("expected IOError, got %v", out.Err)
	}
	if ioErr.Op != "mkdir" {
		t.Errorf("expected mkdir op, got %s", ioErr.Op)
	}
}

// Concurrent writers to one path: the file ends up holding exactly one of the
// bodies, whichever rename landed last.
func TestConcurrentWritersLastWriterWins(t *testing.T) {
	bodies := map[string][]byte{
		"/a": bytes.Repeat([]byte("A"), 256*1024),
		"/b": bytes.Repeat([]byte("B"), 256*1024),
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Write in small chunks so the two responses interleave on the wire.
		body := bodies[r.URL.Path]
		for i := 0; i < len(body); i += 4096 {
			w.Write(body[i : i+4096])
			if fl, ok := w.(http.Flusher); ok {
				fl.Flush()
			}
		}
	}))
	defer server.Close()

	target := filepath.Join(t.TempDir(), "comics", "c", "e", "000.jpg")
	f := NewFetcher()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		for _, p := range []string{"/a", "/b"} {
			wg.Add(1)
			go func(p string) {
				defer wg.Done()
				if err := f.Fetch(context.Background(), NewTask(target, server.URL+p)); err != nil {
					t.Errorf("Fetch %s: %v", p, err)
				}
			}(p)
		}
	}
	wg.Wait()

	got, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read target: %v", err)
	}
	if !bytes.Equal(got, bodies["/a"]) && !bytes.Equal(got, bodies["/b"]) {
		t.Fatalf("target holds a mix of bodies (len=%d)", len(got))
	}
	assertNoTempFiles(t, filepath.Dir(target))
}

type recordingMirror struct {
	mu    sync.Mutex
	paths []string
	err   error
}

func (m *recordingMirror) Put(_ context.Context, p string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paths = append(m.paths, p)
	return m.err
}

func TestFetcherMirrorsWrittenPages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("page"))
	}))
	defer server.Close()

	mirror := &recordingMirror{err: errors.New("bucket offline")}
	f := NewFetcher(WithMirror(mirror))
	target := filepath.Join(t.TempDir(), "000.jpg")

	// Mirror failure does not fail the download.
	if err := f.Fetch(context.Background(), NewTask(target, server.URL)); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(mirror.paths) != 1 || mirror.paths[0] != target {
		t.Errorf("expected mirror to receive %s, got %v", target, mirror.paths)
	}
}

func assertFile(t *testing.T, path, want string) {
	t.Helper()
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	if string(got) != want {
		t.Errorf("%s: got %q, want %q", path, got, want)
	}
}

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir %s: %v", dir, err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".page-") {
			t.Errorf("leftover temp file %s", e.Name())
		}
	}
}
