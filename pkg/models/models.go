// Package models contains the domain types shared by the client packages.
package models

import (
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Entry is a file or directory with its size in bytes.
// Size is nil for directories of a shallow listing.
type Entry struct {
	Path string `json:"path" yaml:"path"`
	Size *int64 `json:"size" yaml:"size"`
}

// SizeOr returns the entry size, or fallback when it is unknown.
func (e Entry) SizeOr(fallback int64) int64 {
	if e.Size == nil {
		return fallback
	}
	return *e.Size
}

// DirectorySnapshot is the immediate-children view of one directory.
type DirectorySnapshot struct {
	Path        string  `json:"path" yaml:"path"`
	Files       []Entry `json:"files" yaml:"files"`
	Directories []Entry `json:"directories" yaml:"directories"`
	Size        int64   `json:"size" yaml:"size"`
}

// SubtreeSummary is a recursive aggregate over the subtree rooted at Path.
type SubtreeSummary struct {
	Path         string  `json:"path" yaml:"path"`
	Size         int64   `json:"size" yaml:"size"`
	FilesCount   int64   `json:"files_count" yaml:"files_count"`
	Duration     Millis  `json:"duration" yaml:"duration"`
	BiggestDirs  []Entry `json:"biggest_dirs" yaml:"biggest_dirs"`
	BiggestFiles []Entry `json:"biggest_files" yaml:"biggest_files"`
}

// Millis is a duration encoded as whole milliseconds, like the backend
// reports scan durations.
type Millis time.Duration

// Std returns d as a time.Duration.
func (d Millis) Std() time.Duration { return time.Duration(d) }

func (d Millis) String() string { return time.Duration(d).String() }

func (d Millis) MarshalJSON() ([]byte, error) {
	return strconv.AppendInt(nil, time.Duration(d).Milliseconds(), 10), nil
}

func (d *Millis) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	ms, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return err
	}
	*d = Millis(time.Duration(ms) * time.Millisecond)
	return nil
}

func (d Millis) MarshalYAML() (any, error) {
	return time.Duration(d).Milliseconds(), nil
}

func (d *Millis) UnmarshalYAML(node *yaml.Node) error {
	var ms int64
	if err := node.Decode(&ms); err != nil {
		return err
	}
	*d = Millis(time.Duration(ms) * time.Millisecond)
	return nil
}

// OSInfo describes the explored machine.
type OSInfo struct {
	Home string `json:"home" yaml:"home"`
	Root string `json:"root" yaml:"root"`
	OS   string `json:"os" yaml:"os"`
}

// SnapshotEntry describes a query result persisted on the client.
type SnapshotEntry struct {
	ID         string    `json:"id"`
	Key        string    `json:"key"`
	LocalPath  string    `json:"local_path"`
	Size       int64     `json:"size"`
	StoredAt   time.Time `json:"stored_at"`
	LastAccess time.Time `json:"last_access"`
}

// SizeOf is a helper to build a known size.
func SizeOf(n int64) *int64 {
	return &n
}
