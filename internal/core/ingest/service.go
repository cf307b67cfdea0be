package ingest

import (
	"context"
	"errors"
	"os"

	"comicstore/internal/core/comic"
	"comicstore/internal/core/download"
	"comicstore/internal/logger"

	"github.com/google/uuid"
)

// Result summarises one submission. Failed counts tasks the executor
// reported as failed; it is always zero for the queued executor, whose
// failures happen later in the worker.
type Result struct {
	BatchID string `json:"batch_id"`
	Tasks   int    `json:"tasks"`
	Failed  int    `json:"failed"`
}

type Service struct {
	deriver *comic.Deriver
	exec    download.Executor
	log     *logger.Logger
}

func NewService(deriver *comic.Deriver, exec download.Executor) *Service {
	return &Service{deriver: deriver, exec: exec, log: logger.New("Ingest")}
}

// Submit derives tasks from the tree and hands each to the executor in order.
//
// A *comic.DerivationError rejects the whole tree before anything runs.
// Per-task fetch or write failures from the immediate executor are logged,
// counted and skipped. A *download.QueueError stops the submission; tasks
// already published stay queued.
func (s *Service) Submit(ctx context.Context, tree *comic.Tree) (Result, error) {
	tasks, err := s.deriver.Derive(tree)
	if err != nil {
		return Result{}, err
	}
	res := Result{BatchID: uuid.New().String(), Tasks: len(tasks)}

	s.createEmptyEpisodes(tree)

	for i, t := range tasks {
		out := s.exec.Download(ctx, t)
		if !out.Failed() {
			continue
		}
		var qErr *download.QueueError
		if errors.As(out.Err, &qErr) {
			s.log.LogErrorf("batch %s: queue unavailable after %d/%d tasks: %v", res.BatchID, i, len(tasks), out.Err)
			return res, out.Err
		}
		res.Failed++
		s.log.LogWarnf("batch %s: %s failed: %v", res.BatchID, t, out.Err)
	}

	s.log.LogInfof("batch %s: %d tasks submitted, %d failed", res.BatchID, res.Tasks, res.Failed)
	return res, nil
}

// createEmptyEpisodes makes the directory for episodes without pages so they
// still show up in listings. Episodes with pages get theirs when the first
// page is written.
func (s *Service) createEmptyEpisodes(tree *comic.Tree) {
	for c := tree.Oldest(); c != nil; c = c.Next() {
		if c.Value == nil {
			continue
		}
		for e := c.Value.Oldest(); e != nil; e = e.Next() {
			if len(e.Value) > 0 {
				continue
			}
			dir, err := s.deriver.EpisodeDir(c.Key, e.Key)
			if err != nil {
				continue
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				s.log.LogWarnf("create empty episode %s: %v", dir, err)
			}
		}
	}
}
