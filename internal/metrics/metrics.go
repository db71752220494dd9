// Package metrics exposes service counters in Prometheus format.
//
// Components take a Recorder; pass Nop{} when metrics are disabled.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Recorder interface {
	// FileCreated counts a stored metadata record by its node type.
	FileCreated(fileType string)
	// JobFinished records a thumbnail job's terminal state and duration.
	JobFinished(state string, d time.Duration)
}

type Nop struct{}

func (Nop) FileCreated(string)                {}
func (Nop) JobFinished(string, time.Duration) {}

type prom struct {
	filesCreated *prometheus.CounterVec
	jobsTotal    *prometheus.CounterVec
	jobDuration  prometheus.Histogram
}

// NewRecorder registers the service collectors with reg.
func NewRecorder(reg prometheus.Registerer) Recorder {
	return &prom{
		filesCreated: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "filesmanager_files_created_total",
				Help: "Metadata records created, by node type",
			},
			[]string{"type"},
		),
		jobsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "filesmanager_thumbnail_jobs_total",
				Help: "Thumbnail jobs processed, by terminal state",
			},
			[]string{"state"},
		),
		jobDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "filesmanager_thumbnail_job_duration_seconds",
				Help:    "Time to process one thumbnail job",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
		),
	}
}

func (p *prom) FileCreated(fileType string) {
	p.filesCreated.WithLabelValues(fileType).Inc()
}

func (p *prom) JobFinished(state string, d time.Duration) {
	p.jobsTotal.WithLabelValues(state).Inc()
	p.jobDuration.Observe(d.Seconds())
}

// NewRegistry returns a registry preloaded with the Go runtime and process
// collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}
