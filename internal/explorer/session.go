package explorer

import (
	"context"

	"github.com/nathsou/disk-analyzer/pkg/models"
	"github.com/nathsou/disk-analyzer/pkg/pathutil"
	"github.com/nathsou/disk-analyzer/pkg/protocol"
	"github.com/nathsou/disk-analyzer/pkg/query"
)

// Session holds what is fetched once per session: the descriptor of the
// explored machine and the root derived from it.
type Session struct {
	src *source
}

// Key returns the cache key of the OS descriptor.
func (s *Session) Key() query.Key {
	return query.NewKey(kindOSInfo)
}

// OSInfo returns the descriptor of the explored machine.
func (s *Session) OSInfo(ctx context.Context) (models.OSInfo, error) {
	snap, err := s.src.cache.Fetch(ctx, s.Key(), s.loader())
	if err != nil {
		return models.OSInfo{}, err
	}
	return query.Value[models.OSInfo](snap)
}

// Root returns the root every path of the session is anchored to.
func (s *Session) Root(ctx context.Context) (pathutil.Root, models.OSInfo, error) {
	info, err := s.OSInfo(ctx)
	if err != nil {
		return pathutil.Root{}, models.OSInfo{}, err
	}
	root, err := RootOf(info)
	return root, info, err
}

// RootOf builds the root described by info.
func RootOf(info models.OSInfo) (pathutil.Root, error) {
	root, err := pathutil.NewRoot(info.OS, info.Root)
	if err != nil {
		if _, perr := pathutil.ParseOS(info.OS); perr != nil {
			return pathutil.Root{}, &ShapeError{Endpoint: protocol.PathOSInfo, Field: "os", Value: info.OS}
		}
		return pathutil.Root{}, &ShapeError{Endpoint: protocol.PathOSInfo, Field: "root", Value: info.Root}
	}
	return root, nil
}

func (s *Session) loader() query.Loader {
	return loader(s.src, s.Key(), func(ctx context.Context) (models.OSInfo, error) {
		resp, err := s.src.backend.OSInfo(ctx)
		if err != nil {
			return models.OSInfo{}, err
		}
		return osInfoFromResponse(resp)
	})
}

func osInfoFromResponse(resp *protocol.OSInfoResponse) (models.OSInfo, error) {
	switch {
	case resp.Home == "":
		return models.OSInfo{}, &ShapeError{Endpoint: protocol.PathOSInfo, Field: "home"}
	case resp.Root == "":
		return models.OSInfo{}, &ShapeError{Endpoint: protocol.PathOSInfo, Field: "root"}
	case resp.OS == "":
		return models.OSInfo{}, &ShapeError{Endpoint: protocol.PathOSInfo, Field: "os"}
	}
	info := models.OSInfo{Home: resp.Home, Root: resp.Root, OS: resp.OS}
	if _, err := RootOf(info); err != nil {
		return models.OSInfo{}, err
	}
	return info, nil
}
