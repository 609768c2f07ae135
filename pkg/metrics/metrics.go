package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Object store metrics
	ObjectsWrittenTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "codebatch_objects_written_total",
			Help: "Total number of new objects written to the CAS",
		},
	)

	ObjectsDedupedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "codebatch_objects_deduped_total",
			Help: "Total number of puts that hit an existing object (no write)",
		},
	)

	ObjectBytesWrittenTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "codebatch_object_bytes_written_total",
			Help: "Total bytes written to the CAS",
		},
	)

	// Snapshot metrics
	SnapshotFilesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "codebatch_snapshot_files_total",
			Help: "Number of files in the most recently built snapshot",
		},
		[]string{"snapshot_id"},
	)

	SnapshotBuildDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "codebatch_snapshot_build_duration_seconds",
			Help:    "Time taken to build a snapshot",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Shard metrics
	ShardsRunTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codebatch_shards_run_total",
			Help: "Total number of shard executions by terminal state",
		},
		[]string{"task_type", "state"},
	)

	ShardDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "codebatch_shard_duration_seconds",
			Help:    "Shard execution duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"task_type"},
	)

	ShardOutputRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codebatch_shard_output_records_total",
			Help: "Total number of output records written by shards",
		},
		[]string{"task_type", "kind"},
	)

	// Cache metrics
	CacheBuildDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "codebatch_cache_build_duration_seconds",
			Help:    "Time taken to build the LMDB cache",
			Buckets: prometheus.DefBuckets,
		},
	)

	CacheRouteTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codebatch_cache_route_total",
			Help: "Total number of queries routed by backend",
		},
		[]string{"backend"}, // "cache" or "scan"
	)

	// Query metrics
	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "codebatch_query_duration_seconds",
			Help:    "Query duration in seconds by backend",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend"},
	)

	// Diff metrics
	DiffRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codebatch_diff_records_total",
			Help: "Total number of records classified by a diff, by classification",
		},
		[]string{"classification"}, // added, removed, changed
	)
)

func init() {
	prometheus.MustRegister(ObjectsWrittenTotal)
	prometheus.MustRegister(ObjectsDedupedTotal)
	prometheus.MustRegister(ObjectBytesWrittenTotal)
	prometheus.MustRegister(SnapshotFilesTotal)
	prometheus.MustRegister(SnapshotBuildDuration)
	prometheus.MustRegister(ShardsRunTotal)
	prometheus.MustRegister(ShardDuration)
	prometheus.MustRegister(ShardOutputRecordsTotal)
	prometheus.MustRegister(CacheBuildDuration)
	prometheus.MustRegister(CacheRouteTotal)
	prometheus.MustRegister(QueryDuration)
	prometheus.MustRegister(DiffRecordsTotal)
}

// Handler returns the Prometheus HTTP handler, wired to an opt-in
// --serve-metrics listener; CodeBatch has no daemon of its own.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
