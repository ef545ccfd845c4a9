// Package metrics holds the Prometheus collectors for cache and provider
// activity. flowscribe is a one-shot CLI, so collectors live on a private
// registry that is flushed to a node-exporter textfile at the end of a run
// instead of being scraped.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Lookup results recorded by CacheLookups.
const (
	LookupHit     = "hit"
	LookupMiss    = "miss"
	LookupCorrupt = "corrupt"
)

// Metrics groups the collectors for a single run. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// CacheLookups counts store reads by partition and result.
	CacheLookups *prometheus.CounterVec

	// CacheWrites counts store writes by partition and status ("ok", "error").
	CacheWrites *prometheus.CounterVec

	// ProviderRequests counts provider calls by request kind and status.
	ProviderRequests *prometheus.CounterVec

	// ProviderDuration observes provider call latency in seconds.
	ProviderDuration *prometheus.HistogramVec
}

// New creates a Metrics with all collectors registered on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flowscribe_cache_lookups_total",
				Help: "Response cache lookups by partition and result.",
			},
			[]string{"partition", "result"},
		),
		CacheWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flowscribe_cache_writes_total",
				Help: "Response cache writes by partition and status.",
			},
			[]string{"partition", "status"},
		),
		ProviderRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flowscribe_provider_requests_total",
				Help: "Calls made to the inference provider by request kind and status.",
			},
			[]string{"kind", "status"},
		),
		ProviderDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "flowscribe_provider_request_duration_seconds",
				Help:    "Inference provider call duration in seconds.",
				Buckets: []float64{.25, .5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"kind"},
		),
	}
	m.registry.MustRegister(m.CacheLookups, m.CacheWrites, m.ProviderRequests, m.ProviderDuration)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveLookup records a cache read.
func (m *Metrics) ObserveLookup(partition, result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(partition, result).Inc()
}

// ObserveWrite records a cache write.
func (m *Metrics) ObserveWrite(partition string, err error) {
	if m == nil {
		return
	}
	m.CacheWrites.WithLabelValues(partition, status(err)).Inc()
}

// ObserveProvider records a provider call and its latency.
func (m *Metrics) ObserveProvider(kind string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.ProviderRequests.WithLabelValues(kind, status(err)).Inc()
	m.ProviderDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// WriteTextfile writes every collector in the Prometheus text format to path.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
