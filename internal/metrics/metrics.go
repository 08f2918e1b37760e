// Package metrics records per-run pipeline metrics and writes them in the
// Prometheus text format for the node_exporter textfile collector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Transcript download outcomes.
const (
	ResultSuccess     = "success"
	ResultFailed      = "failed"
	ResultUnavailable = "unavailable"
)

// Recorder holds the collectors of one run. A nil *Recorder is valid and
// records nothing.
type Recorder struct {
	registry *prometheus.Registry

	videosFetched  *prometheus.CounterVec
	fetchErrors    *prometheus.CounterVec
	videosAdded    prometheus.Counter
	masterVideos   prometheus.Gauge
	transcripts    *prometheus.CounterVec
	opDuration     *prometheus.GaugeVec
	lastSuccessful *prometheus.GaugeVec
}

// New registers the pipeline collectors on a fresh registry.
func New() *Recorder {
	r := &Recorder{registry: prometheus.NewRegistry()}

	r.videosFetched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ytcurate_videos_fetched_total",
			Help: "Videos returned by the acquisition backend, by method.",
		},
		[]string{"method"},
	)
	r.fetchErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ytcurate_fetch_errors_total",
			Help: "Failed channel fetches, by method.",
		},
		[]string{"method"},
	)
	r.videosAdded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ytcurate_videos_added_total",
			Help: "Videos newly added to the master list.",
		},
	)
	r.masterVideos = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ytcurate_master_list_videos",
			Help: "Videos in the master list after the last save.",
		},
	)
	r.transcripts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ytcurate_transcripts_total",
			Help: "Transcript download attempts, by method and result.",
		},
		[]string{"method", "result"},
	)
	r.opDuration = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ytcurate_operation_duration_seconds",
			Help: "Wall time of the last run of each operation.",
		},
		[]string{"operation"},
	)
	r.lastSuccessful = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ytcurate_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run of each operation.",
		},
		[]string{"operation"},
	)

	r.registry.MustRegister(
		r.videosFetched,
		r.fetchErrors,
		r.videosAdded,
		r.masterVideos,
		r.transcripts,
		r.opDuration,
		r.lastSuccessful,
	)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// VideosFetched counts videos returned by a fetch.
func (r *Recorder) VideosFetched(method string, n int) {
	if r == nil {
		return
	}
	r.videosFetched.WithLabelValues(method).Add(float64(n))
}

// FetchFailed counts a failed channel fetch.
func (r *Recorder) FetchFailed(method string) {
	if r == nil {
		return
	}
	r.fetchErrors.WithLabelValues(method).Inc()
}

// VideosAdded counts videos appended to the master list.
func (r *Recorder) VideosAdded(n int) {
	if r == nil {
		return
	}
	r.videosAdded.Add(float64(n))
}

// MasterListSize records the master list size after a save.
func (r *Recorder) MasterListSize(n int) {
	if r == nil {
		return
	}
	r.masterVideos.Set(float64(n))
}

// Transcript counts one transcript attempt with its result.
func (r *Recorder) Transcript(method, result string) {
	if r == nil {
		return
	}
	r.transcripts.WithLabelValues(method, result).Inc()
}

// Observe records how long an operation took and, on success, when it finished.
func (r *Recorder) Observe(operation string, started time.Time, err error) {
	if r == nil {
		return
	}
	now := time.Now()
	r.opDuration.WithLabelValues(operation).Set(now.Sub(started).Seconds())
	if err == nil {
		r.lastSuccessful.WithLabelValues(operation).Set(float64(now.Unix()))
	}
}

// WriteTextfile atomically writes all metrics to path in the text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
