package comic

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func mustParse(t *testing.T, raw string) *Tree {
	t.Helper()
	tree, err := ParseTree([]byte(raw))
	if err != nil {
		t.Fatalf("ParseTree: %v", err)
	}
	return tree
}

func TestDeriveScenario(t *testing.T) {
	root := filepath.Join("srv", "mnt")
	tree := mustParse(t, `{"test-comic": {"ep1": ["http://x/1.jpg", "http://x/2.jpg"]}}`)

	tasks, err := NewDeriver(root).Derive(tree)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	want := []struct{ path, url string }{
		{filepath.Join(root, "comics", "test-comic", "ep1", "000.jpg"), "http://x/1.jpg"},
		{filepath.Join(root, "comics", "test-comic", "ep1", "001.jpg"), "http://x/2.jpg"},
	}
	if len(tasks) != len(want) {
		t.Fatalf("expected %d tasks, got %d", len(want), len(tasks))
	}
	for i, w := range want {
		if tasks[i].Path != w.path || tasks[i].URL != w.url {
			t.Errorf("task %d: got %s, want path=%s url=%s", i, tasks[i], w.path, w.url)
		}
	}
}

func TestDerivePreservesInsertionOrder(t *testing.T) {
	// Keys deliberately out of lexical order.
	tree := mustParse(t, `{
		"zeta": {"b-ep": ["http://x/z1.png"], "a-ep": ["http://x/z2.png"]},
		"alpha": {"only": ["http://x/a1.gif", "http://x/a2"]}
	}`)

	tasks, err := NewDeriver("/r").Derive(tree)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	got := make([]string, len(tasks))
	for i, task := range tasks {
		got[i] = strings.TrimPrefix(filepath.ToSlash(task.Path), "/r/comics/")
	}
	want := []string{"zeta/b-ep/000.png", "zeta/a-ep/000.png", "alpha/only/000.gif", "alpha/only/001"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("got order %v, want %v", got, want)
	}
}

func TestDeriveCountAndUniqueness(t *testing.T) {
	tree := NewTree()
	for _, c := range []string{"a", "b", "c"} {
		eps := NewEpisodes()
		for j, e := range []string{"e1", "e2"} {
			var urls []string
			for k := 0; k < 5*(j+1); k++ {
				urls = append(urls, "https://cdn.example/p/"+c+e+".webp?sig=1")
			}
			eps.Set(e, urls)
		}
		tree.Set(c, eps)
	}
	tree.Set("empty", nil)

	tasks, err := NewDeriver("/r").Derive(tree)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if len(tasks) != CountPages(tree) || len(tasks) != 45 {
		t.Fatalf("expected 45 tasks, got %d (count %d)", len(tasks), CountPages(tree))
	}
	seen := make(map[string]bool)
	for _, task := range tasks {
		if seen[task.Path] {
			t.Fatalf("duplicate path %s", task.Path)
		}
		seen[task.Path] = true
		if filepath.Ext(task.Path) != ".webp" {
			t.Errorf("query must not leak into extension: %s", task.Path)
		}
	}
}

func TestPageNamesSortNumerically(t *testing.T) {
	urls := make([]string, 1000)
	for i := range urls {
		urls[i] = "http://x/page"
	}
	eps := NewEpisodes()
	eps.Set("e", urls)
	tree := NewTree()
	tree.Set("c", eps)

	tasks, err := NewDeriver("/r").Derive(tree)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	for i := 1; i < len(tasks); i++ {
		prev, cur := filepath.Base(tasks[i-1].Path), filepath.Base(tasks[i].Path)
		if prev >= cur {
			t.Fatalf("names out of order at %d: %s >= %s", i, prev, cur)
		}
	}
	if filepath.Base(tasks[999].Path) != "999" {
		t.Errorf("expected last page 999, got %s", filepath.Base(tasks[999].Path))
	}
}

func TestExtensionOf(t *testing.T) {
	cases := map[string]string{
		"http://x/1.jpg":              ".jpg",
		"http://x/a/b/archive.tar.gz": ".gz",
		"http://x/img.PNG?w=100#top":  ".PNG",
		"http://x/dir.d/file":         "",
		"http://x/dir/":               "",
		"http://x":                    "",
		"http://x/trailing.":          ".",
	}
	cases["https://x/%E7%94%BB%E5%83%8F.jpeg"] = ".jpeg"
	for raw, want := range cases {
		u, err := parsePageURL(raw)
		if err != nil {
			t.Fatalf("parsePageURL(%s): %v", raw, err)
		}
		if got := extensionOf(u); got != want {
			t.Errorf("extensionOf(%s) = %q, want %q", raw, got, want)
		}
	}
}

func TestDeriveRejectsTraversal(t *testing.T) {
	cases := []string{
		`{"../evil": {"ep": ["http://x/1.jpg"]}}`,
		`{"ok": {"../evil": ["http://x/1.jpg"]}}`,
		`{"..": {"ep": ["http://x/1.jpg"]}}`,
		`{"ok": {".": ["http://x/1.jpg"]}}`,
		`{"a/b": {"ep": ["http://x/1.jpg"]}}`,
		`{"ok": {"a\\b": ["http://x/1.jpg"]}}`,
		`{"/etc": {"ep": ["http://x/1.jpg"]}}`,
		// Rejected even when nothing would be downloaded.
		`{"../evil": {"ep": []}}`,
	}
	for _, raw := range cases {
		tasks, err := NewDeriver("/r").Derive(mustParse(t, raw))
		var derr *DerivationError
		if !errors.As(err, &derr) {
			t.Errorf("%s: expected DerivationError, got %v", raw, err)
			continue
		}
		if !errors.Is(err, ErrTraversal) {
			t.Errorf("%s: expected ErrTraversal, got %v", raw, err)
		}
		if tasks != nil {
			t.Errorf("%s: expected no tasks, got %v", raw, tasks)
		}
	}
}

func TestDeriveRejectsEmptyNamesAndBadURLs(t *testing.T) {
	if _, err := NewDeriver("/r").Derive(mustParse(t, `{"": {"ep": []}}`)); !errors.Is(err, ErrEmptyName) {
		t.Errorf("expected ErrEmptyName for comic, got %v", err)
	}
	if _, err := NewDeriver("/r").Derive(mustParse(t, `{"c": {"": []}}`)); !errors.Is(err, ErrEmptyName) {
		t.Errorf("expected ErrEmptyName for episode, got %v", err)
	}
	for _, raw := range []string{"", "ftp://x/1.jpg", "/relative.jpg", "http://"} {
		eps := NewEpisodes()
		eps.Set("e", []string{raw})
		tree := NewTree()
		tree.Set("c", eps)
		if _, err := NewDeriver("/r").Derive(tree); !errors.Is(err, ErrBadURL) {
			t.Errorf("url %q: expected ErrBadURL, got %v", raw, err)
		}
	}
}

func TestDeriveAllowsDotsInsideNames(t *testing.T) {
	tree := mustParse(t, `{"..hidden": {"vol.1": ["http://x/1.jpg"]}}`)
	tasks, err := NewDeriver("/r").Derive(tree)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if filepath.ToSlash(tasks[0].Path) != "/r/comics/..hidden/vol.1/000.jpg" {
		t.Errorf("unexpected path %s", tasks[0].Path)
	}
}

func TestParseTreeRejectsNonObject(t *testing.T) {
	for _, raw := range []string{`[]`, `{"c": ["http://x"]}`, `{"c": {"e": "http://x"}}`} {
		if _, err := ParseTree([]byte(raw)); err == nil {
			t.Errorf("expected parse error for %s", raw)
		}
	}
}
