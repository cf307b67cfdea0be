package library

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"comicstore/internal/core/comic"
)

var ErrNotFound = errors.New("not found")

// Service lists what has been written under <root>/comics.
type Service struct {
	comicsRoot string
}

func NewService(d *comic.Deriver) *Service {
	return &Service{comicsRoot: d.ComicsRoot()}
}

// Comics lists comic names. A storage root with nothing written yet is an
// empty list, not an error.
func (s *Service) Comics() ([]string, error) {
	names, err := s.list(s.comicsRoot)
	if errors.Is(err, ErrNotFound) {
		return []string{}, nil
	}
	return names, err
}

// Episodes lists episode names of a comic.
func (s *Service) Episodes(comicName string) ([]string, error) {
	if err := comic.CheckName(comicName); err != nil {
		return nil, ErrNotFound
	}
	return s.list(filepath.Join(s.comicsRoot, comicName))
}

// Pages lists page file names of an episode.
func (s *Service) Pages(comicName, episode string) ([]string, error) {
	if comic.CheckName(comicName) != nil || comic.CheckName(episode) != nil {
		return nil, ErrNotFound
	}
	return s.list(filepath.Join(s.comicsRoot, comicName, episode))
}

// list returns child names sorted by name. In-flight temp files (dot
// prefixed) are hidden.
func (s *Service) list(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}
