package explorer

import (
	"context"
	"time"

	"github.com/nathsou/disk-analyzer/pkg/models"
	"github.com/nathsou/disk-analyzer/pkg/protocol"
	"github.com/nathsou/disk-analyzer/pkg/query"
)

// Limits caps the number of biggest entries the server keeps. Zero lets
// the server apply its default of protocol.DefaultTopCount.
type Limits struct {
	Files int
	Dirs  int
}

// Summaries loads recursive subtree summaries. Computing one walks the
// whole subtree on the server, so they are never refetched while fresh.
type Summaries struct {
	src *source
}

// Key returns the cache key of a summary. Limits only take part in the
// key when set.
func (s *Summaries) Key(path string, limits Limits) query.Key {
	if limits == (Limits{}) {
		return query.NewKey(kindSummary, path)
	}
	return query.NewKey(kindSummary, path, limits.Files, limits.Dirs)
}

// Summarize returns the summary of the subtree at path, waiting for it to
// load if needed.
func (s *Summaries) Summarize(ctx context.Context, path string, limits Limits) (models.SubtreeSummary, error) {
	key := s.Key(path, limits)
	snap, err := s.src.cache.Fetch(ctx, key, s.loader(key, path, limits))
	if err != nil {
		return models.SubtreeSummary{}, err
	}
	return query.Value[models.SubtreeSummary](snap)
}

// Query returns the current state of the summary of path without blocking,
// starting a load when needed.
func (s *Summaries) Query(ctx context.Context, path string, limits Limits) query.Snapshot {
	key := s.Key(path, limits)
	return s.src.cache.Query(ctx, key, s.loader(key, path, limits))
}

func (s *Summaries) loader(key query.Key, path string, limits Limits) query.Loader {
	return loader(s.src, key, func(ctx context.Context) (models.SubtreeSummary, error) {
		resp, err := s.src.backend.DirInfo(ctx, path, limits.Files, limits.Dirs)
		if err != nil {
			return models.SubtreeSummary{}, err
		}
		return summaryFromResponse(resp)
	})
}

func summaryFromResponse(resp *protocol.DirResponse) (models.SubtreeSummary, error) {
	if resp.BiggestDirs == nil {
		return models.SubtreeSummary{}, &ShapeError{Endpoint: protocol.PathDir, Field: "biggest_dirs"}
	}
	if resp.BiggestFiles == nil {
		return models.SubtreeSummary{}, &ShapeError{Endpoint: protocol.PathDir, Field: "biggest_files"}
	}
	return models.SubtreeSummary{
		Path:         resp.Path,
		Size:         resp.Size,
		FilesCount:   resp.FilesCount,
		Duration:     models.Millis(time.Duration(resp.Duration) * time.Millisecond),
		BiggestDirs:  entries(resp.BiggestDirs),
		BiggestFiles: entries(resp.BiggestFiles),
	}, nil
}
