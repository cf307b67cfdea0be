package comic

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"comicstore/internal/core/download"
)

// ComicsDir is the directory under the storage root that holds every comic.
const ComicsDir = "comics"

// Deriver maps naming trees to download tasks under a storage root. It does
// no I/O.
type Deriver struct {
	root string
}

func NewDeriver(storageRoot string) *Deriver {
	return &Deriver{root: filepath.Clean(storageRoot)}
}

func (d *Deriver) Root() string { return d.root }

// ComicsRoot is <root>/comics.
func (d *Deriver) ComicsRoot() string { return filepath.Join(d.root, ComicsDir) }

// Derive returns one task per page URL, ordered by comic, then episode, then
// page, as they appear in the tree. Page i of an episode is written to
// <root>/comics/<comic>/<episode>/<i zero-padded to 3 digits><url extension>.
//
// Names must be single, non-empty path segments; anything else yields a
// *DerivationError and no tasks.
func (d *Deriver) Derive(tree *Tree) ([]download.Task, error) {
	tasks := make([]download.Task, 0, CountPages(tree))
	for c := tree.Oldest(); c != nil; c = c.Next() {
		if err := CheckName(c.Key); err != nil {
			return nil, &DerivationError{Value: c.Key, Err: err}
		}
		if c.Value == nil {
			continue
		}
		for e := c.Value.Oldest(); e != nil; e = e.Next() {
			dir, err := d.EpisodeDir(c.Key, e.Key)
			if err != nil {
				return nil, err
			}
			for i, raw := range e.Value {
				u, err := parsePageURL(raw)
				if err != nil {
					return nil, &DerivationError{Comic: c.Key, Episode: e.Key, Value: raw, Err: err}
				}
				name := PageName(i, u)
				tasks = append(tasks, download.NewTask(filepath.Join(dir, name), raw))
			}
		}
	}
	return tasks, nil
}

// EpisodeDir validates both names and returns <root>/comics/<comic>/<episode>.
func (d *Deriver) EpisodeDir(comic, episode string) (string, error) {
	if err := CheckName(comic); err != nil {
		return "", &DerivationError{Value: comic, Err: err}
	}
	if err := CheckName(episode); err != nil {
		return "", &DerivationError{Comic: comic, Value: episode, Err: err}
	}
	dir := filepath.Join(d.ComicsRoot(), comic, episode)
	if !within(d.ComicsRoot(), dir) {
		return "", &DerivationError{Comic: comic, Value: episode, Err: ErrTraversal}
	}
	return dir, nil
}

// PageName is the zero-padded ordinal plus the extension of u's path.
func PageName(index int, u *url.URL) string {
	return fmt.Sprintf("%03d%s", index, extensionOf(u))
}

// extensionOf returns everything from the last "." of the final path
// segment, or "" when there is none. Query and fragment are ignored.
func extensionOf(u *url.URL) string {
	p := u.Path
	if p == "" || strings.HasSuffix(p, "/") {
		return ""
	}
	ext := path.Ext(path.Base(p))
	if strings.ContainsAny(ext, `/\`+"\x00") {
		return ""
	}
	return ext
}

func parsePageURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, ErrBadURL
	}
	return u, nil
}

// CheckName accepts a name only if it is usable verbatim as one directory
// entry.
func CheckName(name string) error {
	switch {
	case name == "":
		return ErrEmptyName
	case name == "." || name == "..":
		return ErrTraversal
	case strings.ContainsAny(name, `/\`+"\x00"):
		return ErrTraversal
	}
	return nil
}

func within(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}
