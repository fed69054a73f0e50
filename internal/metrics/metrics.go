// Package metrics provides Prometheus metrics for the disk-analyzer client.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nathsou/disk-analyzer/pkg/query"
)

var (
	// Backend request metrics
	backendRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "disk_analyzer_backend_requests_total",
			Help: "Total number of requests sent to the backend",
		},
		[]string{"code", "method"},
	)

	backendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "disk_analyzer_backend_request_duration_seconds",
			Help: "Backend request duration in seconds",
			// Subtree summaries walk whole disks.
			Buckets: []float64{.01, .05, .1, .5, 1, 5, 15, 60, 300},
		},
		[]string{"method"},
	)

	backendRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "disk_analyzer_backend_requests_in_flight",
			Help: "Number of backend requests in flight",
		},
	)

	// Query cache metrics
	cacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "disk_analyzer_cache_requests_total",
			Help: "Total cache requests by result",
		},
		[]string{"kind", "result"},
	)

	cacheLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "disk_analyzer_cache_loads_total",
			Help: "Total cache loads by status",
		},
		[]string{"kind", "status"},
	)

	cacheLoadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "disk_analyzer_cache_load_duration_seconds",
			Help:    "Cache load duration in seconds",
			Buckets: []float64{.001, .01, .1, .5, 1, 5, 15, 60, 300},
		},
		[]string{"kind"},
	)

	cacheDiscardedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "disk_analyzer_cache_discarded_total",
			Help: "Load results dropped because a newer load superseded them",
		},
		[]string{"kind"},
	)

	// Snapshot store metrics
	snapshotLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "disk_analyzer_snapshot_lookups_total",
			Help: "Snapshot store lookups by result",
		},
		[]string{"kind", "result"},
	)

	snapshotStoreBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "disk_analyzer_snapshot_store_bytes",
			Help: "Bytes used by the snapshot store",
		},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// InstrumentTransport wraps next so that backend requests are counted and
// timed.
func InstrumentTransport(next http.RoundTripper) http.RoundTripper {
	return promhttp.InstrumentRoundTripperInFlight(backendRequestsInFlight,
		promhttp.InstrumentRoundTripperCounter(backendRequestsTotal,
			promhttp.InstrumentRoundTripperDuration(backendRequestDuration, next),
		),
	)
}

// SetSnapshotStoreBytes sets the current snapshot store size.
func SetSnapshotStoreBytes(size int64) {
	snapshotStoreBytes.Set(float64(size))
}

// Recorder feeds cache and snapshot store events into the metrics. It
// implements query.Observer.
type Recorder struct{}

var _ query.Observer = Recorder{}

func kind(key query.Key) string {
	return key.Parts()[0]
}

func (Recorder) Hit(key query.Key) {
	cacheRequestsTotal.WithLabelValues(kind(key), "hit").Inc()
}

func (Recorder) Miss(key query.Key) {
	cacheRequestsTotal.WithLabelValues(kind(key), "miss").Inc()
}

func (Recorder) Loaded(key query.Key, d time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	cacheLoadsTotal.WithLabelValues(kind(key), status).Inc()
	cacheLoadDuration.WithLabelValues(kind(key)).Observe(d.Seconds())
}

func (Recorder) Discarded(key query.Key) {
	cacheDiscardedTotal.WithLabelValues(kind(key)).Inc()
}

// SnapshotLookup records a snapshot store lookup.
func (Recorder) SnapshotLookup(kind string, hit bool) {
	result := "hit"
	if !hit {
		result = "miss"
	}
	snapshotLookupsTotal.WithLabelValues(kind, result).Inc()
}

// SnapshotStoreSize records the snapshot store size after a write or an
// eviction.
func (Recorder) SnapshotStoreSize(bytes int64) {
	SetSnapshotStoreBytes(bytes)
}
