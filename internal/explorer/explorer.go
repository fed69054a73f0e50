// Package explorer loads directory listings, subtree summaries and the OS
// descriptor through the query cache, validating every backend response
// before it is cached.
package explorer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nathsou/disk-analyzer/pkg/protocol"
	"github.com/nathsou/disk-analyzer/pkg/query"
)

// Backend is the transport the explorer delegates remote calls to.
// *client.Client implements it.
type Backend interface {
	OSInfo(ctx context.Context) (*protocol.OSInfoResponse, error)
	ListDirectory(ctx context.Context, path string, showDirSize bool) (*protocol.LsResponse, error)
	DirInfo(ctx context.Context, path string, filesCount, dirsCount int) (*protocol.DirResponse, error)
}

// Store persists results between runs. *snapshot.Store implements it.
type Store interface {
	Get(key string, maxAge time.Duration, out any) (bool, error)
	Put(key string, value any) error
	EvictFunc(match func(key string) bool) int
	Stats() (size, maxSize int64, count int)
}

// Recorder is notified of snapshot store lookups and size changes.
type Recorder interface {
	SnapshotLookup(kind string, hit bool)
	SnapshotStoreSize(bytes int64)
}

// ShapeError is returned when a backend response lacks a required field or
// carries a value the client cannot use.
type ShapeError struct {
	Endpoint string
	Field    string
	Value    string // offending value, empty when the field is missing
}

func (e *ShapeError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("%s response: unsupported %s %q", e.Endpoint, e.Field, e.Value)
	}
	return fmt.Sprintf("%s response: missing %q", e.Endpoint, e.Field)
}

// AsShape checks if an error is a ShapeError and returns it.
func AsShape(err error) (*ShapeError, bool) {
	var se *ShapeError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// Options configures an Explorer.
type Options struct {
	// Cache is shared by every model; nil creates one with default settings.
	Cache *query.Cache
	// Store, when set, is read before calling the backend and written after
	// every successful call.
	Store    Store
	Recorder Recorder
	Logger   *zap.Logger
}

// Explorer groups the models of one session. They share a cache, so a
// listing loaded by one view is served to every other view.
type Explorer struct {
	Session     *Session
	Directories *Directories
	Summaries   *Summaries

	src *source
}

// New creates an explorer on top of backend.
func New(backend Backend, opts Options) *Explorer {
	if opts.Cache == nil {
		opts.Cache = query.New(query.Config{})
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	src := &source{
		backend:  backend,
		cache:    opts.Cache,
		store:    opts.Store,
		recorder: opts.Recorder,
		log:      opts.Logger,
	}
	return &Explorer{
		Session:     &Session{src: src},
		Directories: &Directories{src: src},
		Summaries:   &Summaries{src: src},
		src:         src,
	}
}

// Cache returns the shared query cache.
func (e *Explorer) Cache() *query.Cache {
	return e.src.cache
}

// Refresh forces the next listing and summary requests for path to reach
// the backend.
func (e *Explorer) Refresh(path string) int {
	n := e.src.invalidate(func(k query.Key) bool {
		return k.HasPrefix(kindListing, path) || k.HasPrefix(kindSummary, path)
	})
	e.src.log.Debug("refresh", zap.String("path", path), zap.Int("keys", n))
	return n
}

const (
	kindOSInfo  = "os_info"
	kindListing = "ls"
	kindSummary = "dir"
)

// source runs loads for the models: snapshot store first, backend second.
type source struct {
	backend  Backend
	cache    *query.Cache
	store    Store
	recorder Recorder
	log      *zap.Logger
}

// invalidate marks matching cache entries stale and drops the matching
// snapshots, including those written by earlier runs.
func (s *source) invalidate(match func(query.Key) bool) int {
	n := s.cache.InvalidateFunc(match)
	if s.store != nil {
		evicted := s.store.EvictFunc(func(key string) bool { return match(query.Key(key)) })
		s.recordStoreSize()
		n = max(n, evicted)
	}
	return n
}

func (s *source) recordStoreSize() {
	if s.recorder == nil {
		return
	}
	size, _, _ := s.store.Stats()
	s.recorder.SnapshotStoreSize(size)
}

// loader wraps fetch so that its result is read from and written to the
// snapshot store. restored and fetched must produce the same type.
func loader[T any](s *source, key query.Key, fetch func(ctx context.Context) (T, error)) query.Loader {
	kind := key.Parts()[0]
	return func(ctx context.Context) (any, error) {
		if s.store != nil {
			var restored T
			ok, err := s.store.Get(string(key), s.cache.StaleTime(), &restored)
			if err != nil {
				s.log.Warn("snapshot unreadable", zap.Stringer("key", key), zap.Error(err))
			}
			if s.recorder != nil {
				s.recorder.SnapshotLookup(kind, ok)
			}
			if ok {
				return restored, nil
			}
		}

		start := time.Now()
		v, err := fetch(ctx)
		if err != nil {
			s.log.Debug("load failed", zap.Stringer("key", key), zap.Error(err))
			return nil, err
		}
		s.log.Debug("loaded", zap.Stringer("key", key), zap.Duration("duration", time.Since(start)))

		if s.store != nil {
			if err := s.store.Put(string(key), v); err != nil {
				s.log.Warn("snapshot not saved", zap.Stringer("key", key), zap.Error(err))
			}
			s.recordStoreSize()
		}
		return v, nil
	}
}
