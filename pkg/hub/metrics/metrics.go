// Package metrics exports hub outcomes as Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "resource_hub"

// Recorder implements hub.MetricsRecorder.
type Recorder struct {
	registry *prometheus.Registry

	fetches         *prometheus.CounterVec
	fetchDuration   prometheus.Histogram
	submissions     *prometheus.CounterVec
	downloads       *prometheus.CounterVec
	blobsOrphaned   prometheus.Counter
	blobsSwept      prometheus.Counter
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New registers the hub metrics on a fresh registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_fetches_total",
			Help:      "Catalog fetches by outcome",
		}, []string{"outcome"}),
		fetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "catalog_fetch_duration_seconds",
			Help:      "Catalog fetch latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Material submissions by outcome",
		}, []string{"outcome"}),
		downloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloads_recorded_total",
			Help:      "Download records by outcome",
		}, []string{"outcome"}),
		blobsOrphaned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blobs_orphaned_total",
			Help:      "Blobs left behind after a failed compensation delete",
		}),
		blobsSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blobs_swept_total",
			Help:      "Orphaned blobs deleted by the sweeper",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	r.registry.MustRegister(
		r.fetches,
		r.fetchDuration,
		r.submissions,
		r.downloads,
		r.blobsOrphaned,
		r.blobsSwept,
		r.requests,
		r.requestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

func (r *Recorder) FetchCompleted(outcome string, took time.Duration) {
	r.fetches.WithLabelValues(outcome).Inc()
	r.fetchDuration.Observe(took.Seconds())
}

func (r *Recorder) SubmissionCompleted(outcome string) {
	r.submissions.WithLabelValues(outcome).Inc()
}

func (r *Recorder) DownloadRecorded(outcome string) {
	r.downloads.WithLabelValues(outcome).Inc()
}

func (r *Recorder) BlobOrphaned() {
	r.blobsOrphaned.Inc()
}

func (r *Recorder) BlobSwept() {
	r.blobsSwept.Inc()
}

// Registry returns the registry the hub metrics are registered on.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Middleware counts requests by chi route pattern.
func (r *Recorder) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
		next.ServeHTTP(ww, req)

		route := "unmatched"
		if rctx := chi.RouteContext(req.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		r.requests.WithLabelValues(req.Method, route, strconv.Itoa(status)).Inc()
		r.requestDuration.WithLabelValues(req.Method, route).Observe(time.Since(start).Seconds())
	})
}
