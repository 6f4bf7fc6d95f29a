// Package metrics exposes harvest counters and durations to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/catalog-harvester/pkg/harvest/models"
)

// Metrics records harvest outcomes per source.
type Metrics struct {
	itemsTotal   *prometheus.CounterVec
	jobsTotal    *prometheus.CounterVec
	itemDuration *prometheus.HistogramVec
	lastJob      *prometheus.GaugeVec
}

// New registers the harvest collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		itemsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvest_items_total",
				Help: "Harvested items by source and status",
			},
			[]string{"source", "status"},
		),
		jobsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvest_jobs_total",
				Help: "Finished harvest jobs by source and status",
			},
			[]string{"source", "status"},
		),
		itemDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "harvest_item_duration_seconds",
				Help:    "Time spent fetching, mapping and saving one item",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"source"},
		),
		lastJob: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "harvest_last_job_timestamp_seconds",
				Help: "Unix time of the last finished harvest job",
			},
			[]string{"source"},
		),
	}
}

func (m *Metrics) ItemProcessed(source string, status models.ItemStatus, elapsed time.Duration) {
	m.itemsTotal.WithLabelValues(source, string(status)).Inc()
	m.itemDuration.WithLabelValues(source).Observe(elapsed.Seconds())
}

func (m *Metrics) JobFinished(source string, status models.JobStatus) {
	m.jobsTotal.WithLabelValues(source, string(status)).Inc()
	m.lastJob.WithLabelValues(source).SetToCurrentTime()
}
