// Package metrics exposes classification and ingestion telemetry to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"HeroScanner/internal/domain"
	"HeroScanner/internal/ports"
)

const namespace = "heroscanner"

// Prometheus implements ports.Metrics on a dedicated registry.
type Prometheus struct {
	registry *prometheus.Registry

	classified    *prometheus.CounterVec
	batches       prometheus.Counter
	batchDuration prometheus.Histogram
	batchSize     prometheus.Histogram
	runs          *prometheus.CounterVec
	ingested      *prometheus.CounterVec
}

var _ ports.Metrics = (*Prometheus)(nil)

// New registers all collectors plus the Go and process collectors.
func New() *Prometheus {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)
	return &Prometheus{
		registry: reg,
		classified: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classified_records_total",
			Help:      "Records classified by a batch run, per classification.",
		}, []string{"classification"}),
		batches: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classification_batches_total",
			Help:      "Classification batches committed.",
		}),
		batchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "classification_batch_duration_seconds",
			Help:      "Time to fetch, classify and commit one batch.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		batchSize: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "classification_batch_size",
			Help:      "Records per committed batch.",
			Buckets:   []float64{1, 10, 50, 100, 250, 500, 1000, 2500, 5000},
		}),
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classification_runs_total",
			Help:      "Classification runs by final status.",
		}, []string{"status"}),
		ingested: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingested_records_total",
			Help:      "Records inserted by ingestion, per source.",
		}, []string{"source"}),
	}
}

// ObserveBatch records one committed batch.
func (p *Prometheus) ObserveBatch(size int, elapsed time.Duration, counts map[domain.Classification]int) {
	p.batches.Inc()
	p.batchSize.Observe(float64(size))
	p.batchDuration.Observe(elapsed.Seconds())
	for c, n := range counts {
		p.classified.WithLabelValues(c.String()).Add(float64(n))
	}
}

// ObserveRun counts a finished run.
func (p *Prometheus) ObserveRun(status string) {
	p.runs.WithLabelValues(status).Inc()
}

// ObserveIngest counts records inserted from source.
func (p *Prometheus) ObserveIngest(source string, inserted int) {
	p.ingested.WithLabelValues(source).Add(float64(inserted))
}

// Registry exposes the underlying registry for tests and extra collectors.
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}
