package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nathsou/disk-analyzer/internal/report"
)

type backend struct {
	*httptest.Server
	calls atomic.Int32
}

func newBackend(t *testing.T) *backend {
	t.Helper()
	b := &backend{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/os_info", func(w http.ResponseWriter, r *http.Request) {
		b.calls.Add(1)
		fmt.Fprint(w, `{"home":"/home/u","root":"/","os":"linux"}`)
	})
	mux.HandleFunc("/api/ls", func(w http.ResponseWriter, r *http.Request) {
		b.calls.Add(1)
		if r.URL.Query().Get("path") != "/home/u" {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"message":"no such directory"}`)
			return
		}
		fmt.Fprint(w, `{"files":[{"path":"/home/u/a.txt","size":500}],
			"directories":[{"path":"/home/u/docs","size":3000},{"path":"/home/u/music","size":1000}],
			"size":4500}`)
	})
	mux.HandleFunc("/api/dir", func(w http.ResponseWriter, r *http.Request) {
		b.calls.Add(1)
		fmt.Fprint(w, `{"path":"/home/u","size":4500,"files_count":3,"duration":42,
			"biggest_dirs":[{"path":"/home/u/docs","size":3000}],
			"biggest_files":[{"path":"/home/u/docs/thesis.pdf","size":2500}]}`)
	})
	b.Server = httptest.NewServer(mux)
	t.Cleanup(b.Close)
	return b
}

// run executes the command line args against a config file pointing at b.
func run(t *testing.T, b *backend, cacheDir string, args ...string) (string, error) {
	t.Helper()
	persist := cacheDir != ""
	cfg := fmt.Sprintf("server: %s/api\ncache:\n  persist: %t\n  dir: %q\n", b.URL, persist, cacheDir)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0644))

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", path}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestLs_JSON(t *testing.T) {
	b := newBackend(t)

	out, err := run(t, b, "", "ls", "-o", "json")
	require.NoError(t, err)

	var got report.Listing
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "/home/u", got.Path)
	assert.Equal(t, int64(4500), got.Size)
	assert.Len(t, got.Directories, 2)
}

func TestLs_TrailingSeparator(t *testing.T) {
	b := newBackend(t)

	out, err := run(t, b, "", "ls", "/home/u/")
	require.NoError(t, err)
	assert.Contains(t, out, "docs/")
}

func TestLs_RelativePath(t *testing.T) {
	b := newBackend(t)

	_, err := run(t, b, "", "ls", "home/u")
	assert.ErrorContains(t, err, "not absolute")
}

func TestLs_BackendRejection(t *testing.T) {
	b := newBackend(t)

	_, err := run(t, b, "", "ls", "/nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such directory")
}

func TestReport_Table(t *testing.T) {
	b := newBackend(t)

	out, err := run(t, b, "", "report", "--width", "8")
	require.NoError(t, err)
	assert.Contains(t, out, "3 files")
	assert.Contains(t, out, "REPARTITION")
	assert.Contains(t, out, " 75.0%")
	assert.Contains(t, out, "docs/thesis.pdf")
}

func TestReport_NegativeWidth(t *testing.T) {
	b := newBackend(t)

	_, err := run(t, b, "", "report", "--width", "-1")
	assert.ErrorContains(t, err, "--width must not be negative")
	assert.Equal(t, int32(0), b.calls.Load())
}

func TestDir_YAML(t *testing.T) {
	b := newBackend(t)

	out, err := run(t, b, "", "dir", "--files", "5", "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "files_count: 3")
	assert.Contains(t, out, "duration: 42\n")
}

func TestDir_JSONDurationInMilliseconds(t *testing.T) {
	b := newBackend(t)

	out, err := run(t, b, "", "dir", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"duration": 42,`)
}

func TestCache_Disabled(t *testing.T) {
	b := newBackend(t)

	_, err := run(t, b, "", "cache", "stats")
	assert.ErrorContains(t, err, "snapshot store disabled")
}

func TestCache_PersistsBetweenRuns(t *testing.T) {
	b := newBackend(t)
	dir := t.TempDir()

	_, err := run(t, b, dir, "ls")
	require.NoError(t, err)
	assert.Equal(t, int32(2), b.calls.Load())

	// a second process is served from the snapshot store
	_, err = run(t, b, dir, "ls")
	require.NoError(t, err)
	assert.Equal(t, int32(2), b.calls.Load())

	out, err := run(t, b, dir, "cache", "list", "-o", "json")
	require.NoError(t, err)
	var stats report.SnapshotStats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 2, stats.Count)
	assert.Len(t, stats.Entries, 2)

	// --refresh bypasses the store for the listing only
	_, err = run(t, b, dir, "ls", "--refresh")
	require.NoError(t, err)
	assert.Equal(t, int32(3), b.calls.Load())

	out, err = run(t, b, dir, "cache", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 2 snapshots")
}

func TestInfo_Table(t *testing.T) {
	b := newBackend(t)

	out, err := run(t, b, "", "info")
	require.NoError(t, err)
	assert.Contains(t, out, "/home/u")
	assert.Contains(t, out, b.URL+"/api")
	assert.Contains(t, out, "Status:")
	assert.Contains(t, out, "online (last answered: ")
	assert.NotContains(t, out, "never")
}

func TestInfo_ServedFromStore(t *testing.T) {
	b := newBackend(t)
	dir := t.TempDir()

	_, err := run(t, b, dir, "info")
	require.NoError(t, err)

	out, err := run(t, b, dir, "info", "-o", "json")
	require.NoError(t, err)
	assert.Equal(t, int32(1), b.calls.Load())

	var got report.Info
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "linux", got.OS)
	assert.True(t, got.Online)
	assert.Nil(t, got.LastSeen, "no request reached the server")
}
