package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "manifestrecon"

// Mirror task results.
const (
	MirrorOK      = "ok"
	MirrorFailed  = "failed"
	MirrorDropped = "dropped"
)

// Registry holds every collector. A nil *Registry is valid and records nothing.
type Registry struct {
	reg                *prometheus.Registry
	storeRetries       prometheus.Counter
	storeContention    prometheus.Counter
	storeWriteSeconds  prometheus.Histogram
	boxesReceived      prometheus.Counter
	volumesImported    prometheus.Counter
	extractionWarnings prometheus.Counter
	mirrorTasks        *prometheus.CounterVec
}

// New registers the collectors on a fresh registry.
func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		storeRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_retries_total",
			Help:      "Database operations retried after a busy or locked error.",
		}),
		storeContention: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_contention_failures_total",
			Help:      "Writes that gave up after exhausting the retry budget.",
		}),
		storeWriteSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_write_seconds",
			Help:      "Wall time of write transactions including retries.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5, 30},
		}),
		boxesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "boxes_received_total",
			Help:      "Boxes transitioned to RECEIVED.",
		}),
		volumesImported: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "volumes_imported_total",
			Help:      "Volumes registered from extracted manifest documents.",
		}),
		extractionWarnings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extraction_warnings_total",
			Help:      "Validation warnings raised while extracting manifest documents.",
		}),
		mirrorTasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mirror_tasks_total",
			Help:      "Mirror upserts by result.",
		}, []string{"result"}),
	}
	r.reg.MustRegister(
		r.storeRetries,
		r.storeContention,
		r.storeWriteSeconds,
		r.boxesReceived,
		r.volumesImported,
		r.extractionWarnings,
		r.mirrorTasks,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// Gatherer exposes the underlying registry for tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.reg
}

func (r *Registry) StoreRetry() {
	if r != nil {
		r.storeRetries.Inc()
	}
}

func (r *Registry) StoreContention() {
	if r != nil {
		r.storeContention.Inc()
	}
}

func (r *Registry) StoreWrite(d time.Duration) {
	if r != nil {
		r.storeWriteSeconds.Observe(d.Seconds())
	}
}

// BoxesReceived adds n newly received boxes.
func (r *Registry) BoxesReceived(n int) {
	if r != nil && n > 0 {
		r.boxesReceived.Add(float64(n))
	}
}

// VolumesImported adds n imported volumes.
func (r *Registry) VolumesImported(n int) {
	if r != nil && n > 0 {
		r.volumesImported.Add(float64(n))
	}
}

// ExtractionWarnings adds n extraction warnings.
func (r *Registry) ExtractionWarnings(n int) {
	if r != nil && n > 0 {
		r.extractionWarnings.Add(float64(n))
	}
}

// MirrorTask counts one mirror upsert outcome.
func (r *Registry) MirrorTask(result string) {
	if r != nil {
		r.mirrorTasks.WithLabelValues(result).Inc()
	}
}
