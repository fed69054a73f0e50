package logging

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew_FileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.log")
	logger, _, err := New(Config{Level: "debug", Format: "json", OutputPath: path, NoTerminal: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Debug("loaded")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"loaded"`) {
		t.Errorf("log file = %q", data)
	}
}

func TestNew_NoTerminal(t *testing.T) {
	logger, _, err := New(Config{Level: "debug", NoTerminal: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if logger.Core().Enabled(-1) {
		t.Error("expected a no-op logger when the terminal is owned by the UI")
	}
}

func TestNew_LevelFallback(t *testing.T) {
	_, atom, err := New(Config{Level: "chatty"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := atom.String(); got != "info" {
		t.Errorf("level = %s, want info", got)
	}
}

func TestRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "abc")
	if got := GetRequestID(ctx); got != "abc" {
		t.Errorf("GetRequestID = %q", got)
	}
	if got := GetRequestID(context.Background()); got != "" {
		t.Errorf("GetRequestID on empty context = %q", got)
	}
}

func TestMiddleware(t *testing.T) {
	InitDefault()

	var seen string
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if seen == "" || rec.Header().Get("X-Request-ID") != seen {
		t.Errorf("request id %q not propagated (header %q)", seen, rec.Header().Get("X-Request-ID"))
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("X-Request-ID", "given")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "given" {
		t.Errorf("request id = %q, want given", seen)
	}
}
