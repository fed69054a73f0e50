package explorer

import (
	"context"

	"github.com/nathsou/disk-analyzer/pkg/models"
	"github.com/nathsou/disk-analyzer/pkg/protocol"
	"github.com/nathsou/disk-analyzer/pkg/query"
)

// Directories loads the immediate children of directories.
type Directories struct {
	src *source
}

// Key returns the cache key of a listing. Listings with and without
// directory sizes are cached separately.
func (d *Directories) Key(path string, includeDirSizes bool) query.Key {
	return query.NewKey(kindListing, path, includeDirSizes)
}

// List returns the listing of path, waiting for it to load if needed.
func (d *Directories) List(ctx context.Context, path string, includeDirSizes bool) (models.DirectorySnapshot, error) {
	key := d.Key(path, includeDirSizes)
	snap, err := d.src.cache.Fetch(ctx, key, d.loader(key, path, includeDirSizes))
	if err != nil {
		return models.DirectorySnapshot{}, err
	}
	return query.Value[models.DirectorySnapshot](snap)
}

// Query returns the current state of the listing of path without blocking,
// starting a load when needed.
func (d *Directories) Query(ctx context.Context, path string, includeDirSizes bool) query.Snapshot {
	key := d.Key(path, includeDirSizes)
	return d.src.cache.Query(ctx, key, d.loader(key, path, includeDirSizes))
}

func (d *Directories) loader(key query.Key, path string, includeDirSizes bool) query.Loader {
	return loader(d.src, key, func(ctx context.Context) (models.DirectorySnapshot, error) {
		resp, err := d.src.backend.ListDirectory(ctx, path, includeDirSizes)
		if err != nil {
			return models.DirectorySnapshot{}, err
		}
		return listingFromResponse(path, resp)
	})
}

// listingFromResponse validates an ls response. A missing total size is
// the sum of the known entry sizes.
func listingFromResponse(path string, resp *protocol.LsResponse) (models.DirectorySnapshot, error) {
	if resp.Files == nil {
		return models.DirectorySnapshot{}, &ShapeError{Endpoint: protocol.PathLs, Field: "files"}
	}
	if resp.Directories == nil {
		return models.DirectorySnapshot{}, &ShapeError{Endpoint: protocol.PathLs, Field: "directories"}
	}

	snap := models.DirectorySnapshot{
		Path:        path,
		Files:       entries(resp.Files),
		Directories: entries(resp.Directories),
	}
	if resp.Size != nil {
		snap.Size = *resp.Size
	} else {
		for _, e := range snap.Files {
			snap.Size += e.SizeOr(0)
		}
		for _, e := range snap.Directories {
			snap.Size += e.SizeOr(0)
		}
	}
	return snap, nil
}

func entries(infos []protocol.EntryInfo) []models.Entry {
	out := make([]models.Entry, len(infos))
	for i, info := range infos {
		out[i] = models.Entry{Path: info.Path, Size: info.Size}
	}
	return out
}
