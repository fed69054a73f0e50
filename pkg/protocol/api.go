// Package protocol defines the disk-analyzer backend request/response types.
package protocol

// Endpoint paths, relative to the API base URL.
const (
	PathOSInfo = "/os_info"
	PathLs     = "/ls"
	PathDir    = "/dir"
)

// Query parameter names.
const (
	ParamPath        = "path"
	ParamShowDirSize = "show_dir_size"
	ParamFilesCount  = "files_count"
	ParamDirsCount   = "dirs_count"
)

// DefaultTopCount is the number of biggest entries the server keeps when
// files_count / dirs_count are not given.
const DefaultTopCount = 10

// OSInfoResponse is returned by GET /os_info
type OSInfoResponse struct {
	Home string `json:"home"`
	Root string `json:"root"`
	OS   string `json:"os"`
}

// EntryInfo is a path with its size. Size is null for directories of a
// listing requested without show_dir_size.
type EntryInfo struct {
	Path string `json:"path"`
	Size *int64 `json:"size"`
}

// LsResponse is returned by GET /ls
//
// Files and Directories are nil when the field is absent or null, and a
// non-nil empty slice for "[]".
type LsResponse struct {
	Files       []EntryInfo `json:"files"`
	Directories []EntryInfo `json:"directories"`
	Size        *int64      `json:"size"`
}

// DirResponse is returned by GET /dir
type DirResponse struct {
	Path         string      `json:"path"`
	Size         int64       `json:"size"`
	FilesCount   int64       `json:"files_count"`
	Duration     int64       `json:"duration"` // milliseconds
	BiggestDirs  []EntryInfo `json:"biggest_dirs"`
	BiggestFiles []EntryInfo `json:"biggest_files"`
}

// ErrorResponse is the body of a rejected request.
type ErrorResponse struct {
	Message string `json:"message"`
}
