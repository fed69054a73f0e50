package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/nathsou/disk-analyzer/pkg/query"
)

func TestRecorder_Cache(t *testing.T) {
	var r Recorder
	key := query.NewKey("ls", "/tmp", true)

	hits := testutil.ToFloat64(cacheRequestsTotal.WithLabelValues("ls", "hit"))
	misses := testutil.ToFloat64(cacheRequestsTotal.WithLabelValues("ls", "miss"))
	errs := testutil.ToFloat64(cacheLoadsTotal.WithLabelValues("ls", "error"))
	discarded := testutil.ToFloat64(cacheDiscardedTotal.WithLabelValues("ls"))

	r.Hit(key)
	r.Miss(key)
	r.Loaded(key, time.Second, errors.New("boom"))
	r.Discarded(key)

	if got := testutil.ToFloat64(cacheRequestsTotal.WithLabelValues("ls", "hit")); got != hits+1 {
		t.Errorf("hits: got %v, want %v", got, hits+1)
	}
	if got := testutil.ToFloat64(cacheRequestsTotal.WithLabelValues("ls", "miss")); got != misses+1 {
		t.Errorf("misses: got %v, want %v", got, misses+1)
	}
	if got := testutil.ToFloat64(cacheLoadsTotal.WithLabelValues("ls", "error")); got != errs+1 {
		t.Errorf("load errors: got %v, want %v", got, errs+1)
	}
	if got := testutil.ToFloat64(cacheDiscardedTotal.WithLabelValues("ls")); got != discarded+1 {
		t.Errorf("discarded: got %v, want %v", got, discarded+1)
	}
}

func TestRecorder_SnapshotLookup(t *testing.T) {
	var r Recorder
	before := testutil.ToFloat64(snapshotLookupsTotal.WithLabelValues("dir", "hit"))
	r.SnapshotLookup("dir", true)
	if got := testutil.ToFloat64(snapshotLookupsTotal.WithLabelValues("dir", "hit")); got != before+1 {
		t.Errorf("got %v, want %v", got, before+1)
	}
}

func TestRecorder_SnapshotStoreSize(t *testing.T) {
	var r Recorder
	r.SnapshotStoreSize(4096)
	if got := testutil.ToFloat64(snapshotStoreBytes); got != 4096 {
		t.Errorf("got %v, want 4096", got)
	}
}

func TestInstrumentTransport(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer ts.Close()

	before := testutil.ToFloat64(backendRequestsTotal.WithLabelValues("418", "get"))

	c := &http.Client{Transport: InstrumentTransport(http.DefaultTransport)}
	resp, err := c.Get(ts.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	resp.Body.Close()

	if got := testutil.ToFloat64(backendRequestsTotal.WithLabelValues("418", "get")); got != before+1 {
		t.Errorf("got %v, want %v", got, before+1)
	}
}

func TestHandler(t *testing.T) {
	SetSnapshotStoreBytes(1234)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "disk_analyzer_snapshot_store_bytes 1234") {
		t.Error("expected snapshot store gauge in output")
	}
}
