// Package metrics exposes Prometheus instrumentation for extractions.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder receives one observation per extraction.
type Recorder interface {
	// ObserveExtraction records a finished extract_exif call. source is
	// "url" or "data_uri" ("" when the input could not be classified);
	// outcome is "ok", "no_exif" or an error kind.
	ObserveExtraction(source, outcome string, durationSeconds float64)

	// ObserveFetchedBytes records the size of a successful URL download.
	ObserveFetchedBytes(n int)
}

// Noop implements Recorder without emitting anything.
type Noop struct{}

func (Noop) ObserveExtraction(string, string, float64) {}
func (Noop) ObserveFetchedBytes(int)                   {}

// Prom implements Recorder backed by Prometheus collectors.
type Prom struct {
	extractions  *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	fetchedBytes prometheus.Histogram
}

// NewProm builds the collectors and registers them with reg, or with the
// default registerer when reg is nil.
func NewProm(namespace string, reg prometheus.Registerer) *Prom {
	p := &Prom{
		extractions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extractions_total",
			Help:      "extract_exif calls by input source and outcome",
		}, []string{"source", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "extraction_duration_seconds",
			Help:      "extract_exif latency by input source",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		fetchedBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetched_bytes",
			Help:      "Size of images downloaded from URLs",
			Buckets:   prometheus.ExponentialBuckets(16*1024, 4, 8),
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(p.extractions, p.duration, p.fetchedBytes)
	return p
}

func (p *Prom) ObserveExtraction(source, outcome string, durationSeconds float64) {
	p.extractions.WithLabelValues(source, outcome).Inc()
	p.duration.WithLabelValues(source).Observe(durationSeconds)
}

func (p *Prom) ObserveFetchedBytes(n int) {
	p.fetchedBytes.Observe(float64(n))
}

// Handler returns an HTTP handler for /metrics serving the default gatherer.
func Handler() http.Handler {
	return promhttp.Handler()
}

// HandlerFor returns an HTTP handler for /metrics serving g.
func HandlerFor(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
