package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects job-level counters for the results API.
type Metrics struct {
	JobsTotal   *prometheus.CounterVec
	JobDuration prometheus.Histogram
}

// NewMetrics registers the API metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		JobsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "perturbscope",
			Name:      "jobs_total",
			Help:      "Classification jobs by terminal status.",
		}, []string{"status"}),
		JobDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "perturbscope",
			Name:      "job_duration_seconds",
			Help:      "Wall time of classification jobs.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
	}
}
