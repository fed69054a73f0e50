// Package snapshot persists query results on the client between runs.
//
// Each result is a JSON file in the store directory named after a UUIDv5 of
// its key. The file modification time doubles as the last access time, so
// least-recently-used eviction survives restarts.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nathsou/disk-analyzer/pkg/models"
)

const fileExt = ".json"

// namespace scopes the UUIDv5 file ids.
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/nathsou/disk-analyzer/snapshot"))

// ID returns the file id used for key.
func ID(key string) string {
	return uuid.NewSHA1(namespace, []byte(key)).String()
}

type envelope struct {
	Key      string          `json:"key"`
	StoredAt time.Time       `json:"stored_at"`
	Value    json.RawMessage `json:"value"`
}

// Store manages persisted snapshots.
type Store struct {
	dir     string
	maxSize int64 // bytes; 0 = unbounded

	mu      sync.Mutex
	entries map[string]*models.SnapshotEntry
	size    int64
	now     func() time.Time
}

// New opens the store in dir, indexing the snapshots already there.
func New(dir string, maxSize int64) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	s := &Store{
		dir:     dir,
		maxSize: maxSize,
		entries: make(map[string]*models.SnapshotEntry),
		now:     time.Now,
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// load rebuilds the index from the files on disk. Unreadable files are
// removed.
func (s *Store) load() error {
	files, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("read snapshot dir: %w", err)
	}
	for _, f := range files {
		name := f.Name()
		if f.IsDir() || !strings.HasSuffix(name, fileExt) {
			continue
		}
		localPath := filepath.Join(s.dir, name)
		info, err := f.Info()
		if err != nil {
			continue
		}
		env, err := readEnvelope(localPath)
		if err != nil || ID(env.Key)+fileExt != name {
			os.Remove(localPath)
			continue
		}
		id := strings.TrimSuffix(name, fileExt)
		s.entries[id] = &models.SnapshotEntry{
			ID:         id,
			Key:        env.Key,
			LocalPath:  localPath,
			Size:       info.Size(),
			StoredAt:   env.StoredAt,
			LastAccess: info.ModTime(),
		}
		s.size += info.Size()
	}
	return nil
}

func readEnvelope(path string) (*envelope, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", filepath.Base(path), err)
	}
	return &env, nil
}

// Get decodes the snapshot of key into out. It reports false when there is
// none or when it is older than maxAge (maxAge <= 0 accepts any age).
func (s *Store) Get(key string, maxAge time.Duration, out any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[ID(key)]
	if !ok {
		return false, nil
	}
	now := s.now()
	if maxAge > 0 && now.Sub(entry.StoredAt) >= maxAge {
		return false, nil
	}

	env, err := readEnvelope(entry.LocalPath)
	if err != nil {
		s.remove(entry)
		return false, err
	}
	if err := json.Unmarshal(env.Value, out); err != nil {
		s.remove(entry)
		return false, fmt.Errorf("decode snapshot value: %w", err)
	}

	entry.LastAccess = now
	os.Chtimes(entry.LocalPath, now, now)
	return true, nil
}

// Put stores value under key.
// Content is written atomically (temp file then rename).
func (s *Store) Put(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode snapshot value: %w", err)
	}
	now := s.now()
	data, err := json.Marshal(envelope{Key: key, StoredAt: now, Value: raw})
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	size := int64(len(data))

	s.mu.Lock()
	defer s.mu.Unlock()

	id := ID(key)
	if old, ok := s.entries[id]; ok {
		s.size -= old.Size
		delete(s.entries, id)
	}

	// Evict if needed
	for s.maxSize > 0 && s.size+size > s.maxSize {
		if !s.evictOldest() {
			break
		}
	}

	localPath := filepath.Join(s.dir, id+fileExt)
	tempPath := localPath + ".tmp"

	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("write snapshot: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tempPath, localPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("rename temp file: %w", err)
	}

	s.entries[id] = &models.SnapshotEntry{
		ID:         id,
		Key:        key,
		LocalPath:  localPath,
		Size:       size,
		StoredAt:   now,
		LastAccess: now,
	}
	s.size += size
	return nil
}

// Evict removes the snapshot of key.
func (s *Store) Evict(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.entries[ID(key)]; ok {
		s.remove(entry)
	}
}

// EvictFunc removes every snapshot whose key matches and returns how many
// were removed.
func (s *Store) EvictFunc(match func(key string) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, entry := range s.entries {
		if match(entry.Key) {
			s.remove(entry)
			count++
		}
	}
	return count
}

// Must be called with lock held.
func (s *Store) remove(entry *models.SnapshotEntry) {
	os.Remove(entry.LocalPath)
	s.size -= entry.Size
	delete(s.entries, entry.ID)
}

// evictOldest removes the least recently accessed snapshot.
// Must be called with lock held.
func (s *Store) evictOldest() bool {
	var oldest *models.SnapshotEntry
	for _, entry := range s.entries {
		if oldest == nil || entry.LastAccess.Before(oldest.LastAccess) {
			oldest = entry
		}
	}
	if oldest == nil {
		return false
	}
	s.remove(oldest)
	return true
}

// Stats returns store statistics.
func (s *Store) Stats() (size, maxSize int64, count int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size, s.maxSize, len(s.entries)
}

// List returns all snapshots, most recently accessed first.
func (s *Store) List() []models.SnapshotEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]models.SnapshotEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		entries = append(entries, *entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].LastAccess.After(entries[j].LastAccess)
	})
	return entries
}

// Clear removes every snapshot and returns how many were removed.
func (s *Store) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := len(s.entries)
	for _, entry := range s.entries {
		s.remove(entry)
	}
	return count
}

// Dir returns the store directory path.
func (s *Store) Dir() string {
	return s.dir
}
