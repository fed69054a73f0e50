package client

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nathsou/disk-analyzer/pkg/protocol"
	"github.com/nathsou/disk-analyzer/pkg/retry"
)

func testClient(handler http.Handler, attempts int) (*Client, *httptest.Server) {
	ts := httptest.NewServer(handler)
	c := New(Config{
		BaseURL: ts.URL + "/api",
		RetryConfig: retry.Config{
			MaxAttempts: attempts,
			InitialWait: time.Millisecond,
			MaxWait:     time.Millisecond,
			Multiplier:  2,
		},
	})
	return c, ts
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestOSInfo(t *testing.T) {
	var gotPath, gotReqID string
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotReqID = r.Header.Get(RequestIDHeader)
		writeJSON(w, http.StatusOK, protocol.OSInfoResponse{Home: "/home/u", Root: "/", OS: "linux"})
	}), 1)
	defer ts.Close()

	info, err := c.OSInfo(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/api/os_info" {
		t.Errorf("expected /api/os_info, got %s", gotPath)
	}
	if gotReqID == "" {
		t.Error("expected a request id header")
	}
	if info.Home != "/home/u" || info.Root != "/" || info.OS != "linux" {
		t.Errorf("unexpected info: %+v", info)
	}
}

func TestListDirectory_Params(t *testing.T) {
	var gotPath, gotFlag string
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Query().Get(protocol.ParamPath)
		gotFlag = r.URL.Query().Get(protocol.ParamShowDirSize)
		w.Write([]byte(`{"files":[{"path":"/home/u/a.txt","size":3}],"directories":[{"path":"/home/u/docs","size":null}],"size":3}`))
	}), 1)
	defer ts.Close()

	resp, err := c.ListDirectory(context.Background(), "/home/u/My Files#1", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/home/u/My Files#1" {
		t.Errorf("path not round-tripped: %q", gotPath)
	}
	if gotFlag != "false" {
		t.Errorf("expected show_dir_size=false, got %q", gotFlag)
	}
	if len(resp.Files) != 1 || *resp.Files[0].Size != 3 {
		t.Errorf("unexpected files: %+v", resp.Files)
	}
	if len(resp.Directories) != 1 || resp.Directories[0].Size != nil {
		t.Errorf("expected unsized directory, got %+v", resp.Directories)
	}
}

func TestListDirectory_NullFields(t *testing.T) {
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"files":[],"directories":null}`))
	}), 1)
	defer ts.Close()

	resp, err := c.ListDirectory(context.Background(), "/", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Files == nil {
		t.Error("empty files array should decode to a non-nil slice")
	}
	if resp.Directories != nil {
		t.Error("null directories should decode to nil")
	}
	if resp.Size != nil {
		t.Error("missing size should decode to nil")
	}
}

func TestDirInfo_CountsOnlyWhenSet(t *testing.T) {
	var gotQuery string
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		writeJSON(w, http.StatusOK, protocol.DirResponse{Path: "/", Size: 10, FilesCount: 2, Duration: 1500})
	}), 1)
	defer ts.Close()

	resp, err := c.DirInfo(context.Background(), "/", 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(gotQuery, protocol.ParamFilesCount) || strings.Contains(gotQuery, protocol.ParamDirsCount) {
		t.Errorf("unexpected counts in query %q", gotQuery)
	}
	if resp.Duration != 1500 {
		t.Errorf("expected duration 1500, got %d", resp.Duration)
	}

	if _, err := c.DirInfo(context.Background(), "/", 5, 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(gotQuery, "files_count=5") || !strings.Contains(gotQuery, "dirs_count=3") {
		t.Errorf("expected counts in query %q", gotQuery)
	}
}

func TestRejection_MessageBody(t *testing.T) {
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, protocol.ErrorResponse{Message: "'path' is required"})
	}), 1)
	defer ts.Close()

	_, err := c.DirInfo(context.Background(), "", 0, 0)
	te, ok := AsTransport(err)
	if !ok {
		t.Fatalf("expected TransportError, got %T: %v", err, err)
	}
	if te.Status != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", te.Status)
	}
	if te.Err.Error() != "'path' is required" {
		t.Errorf("unexpected message %q", te.Err.Error())
	}
	if !c.IsOnline() {
		t.Error("client should remain online after a 4xx")
	}
}

func TestRejection_TextBody(t *testing.T) {
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Unhandled rejection: permission denied", http.StatusInternalServerError)
	}), 1)
	defer ts.Close()

	_, err := c.ListDirectory(context.Background(), "/root", false)
	te, ok := AsTransport(err)
	if !ok {
		t.Fatalf("expected TransportError, got %T: %v", err, err)
	}
	if !strings.Contains(te.Error(), "permission denied") {
		t.Errorf("expected body text in error, got %q", te.Error())
	}
	if c.IsOnline() {
		t.Error("client should be offline after a 5xx")
	}
}

func TestNoRetryByDefault(t *testing.T) {
	var attempts atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	c := New(Config{BaseURL: ts.URL})
	if _, err := c.OSInfo(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if attempts.Load() != 1 {
		t.Errorf("expected exactly 1 attempt, got %d", attempts.Load())
	}
}

func TestServerError_Retry(t *testing.T) {
	var attempts atomic.Int32
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeJSON(w, http.StatusOK, protocol.OSInfoResponse{Home: "/", Root: "/", OS: "linux"})
	}), 3)
	defer ts.Close()

	if _, err := c.OSInfo(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts.Load())
	}
	if !c.IsOnline() {
		t.Error("client should be online after a success")
	}
}

func TestClientError_NotRetried(t *testing.T) {
	var attempts atomic.Int32
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}), 3)
	defer ts.Close()

	if _, err := c.OSInfo(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if attempts.Load() != 1 {
		t.Errorf("expected exactly 1 attempt (no retries), got %d", attempts.Load())
	}
}

func TestDecodeError(t *testing.T) {
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}), 1)
	defer ts.Close()

	_, err := c.OSInfo(context.Background())
	te, ok := AsTransport(err)
	if !ok {
		t.Fatalf("expected TransportError, got %T: %v", err, err)
	}
	if te.Status != http.StatusOK {
		t.Errorf("expected status 200 on decode failure, got %d", te.Status)
	}
}

func TestGzipResponse(t *testing.T) {
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept-Encoding") != "gzip" {
			t.Errorf("expected gzip to be accepted")
		}
		w.Header().Set("Content-Encoding", "gzip")
		gw := gzip.NewWriter(w)
		json.NewEncoder(gw).Encode(protocol.OSInfoResponse{Home: `C:\Users\u`, Root: `C:\`, OS: "windows"})
		gw.Close()
	}), 1)
	defer ts.Close()

	info, err := c.OSInfo(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Root != `C:\` {
		t.Errorf("unexpected root %q", info.Root)
	}
}

func TestAuthHeader(t *testing.T) {
	var got string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, protocol.OSInfoResponse{})
	}))
	defer ts.Close()

	c := New(Config{BaseURL: ts.URL, AuthToken: "secret"})
	if _, err := c.OSInfo(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Bearer secret" {
		t.Errorf("expected bearer token, got %q", got)
	}
}

func TestContextCancelled(t *testing.T) {
	block := make(chan struct{})
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}), 3)
	defer ts.Close()
	defer close(block)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.OSInfo(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if !c.IsOnline() {
		t.Error("a cancelled request should not mark the server offline")
	}
}
