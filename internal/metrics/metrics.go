// Package metrics holds the Prometheus collectors exposed at /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the application. Each
// collector owns a private registry so tests can build as many as they like.
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Store metrics
	RecordsAppended prometheus.Counter
	RecordsRemoved  prometheus.Counter
	RecordsCleared  prometheus.Counter
	RecordsDropped  prometheus.Counter
	SnapshotRecords prometheus.Gauge
	PersistFailures *prometheus.CounterVec
	PersistDuration *prometheus.HistogramVec

	// Event publishing
	EventsPublished *prometheus.CounterVec
}

func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		RecordsAppended: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_appended_total",
			Help:      "Total number of expense records appended",
		}),
		RecordsRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_removed_total",
			Help:      "Total number of expense records removed",
		}),
		RecordsCleared: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_cleared_total",
			Help:      "Total number of expense records discarded by clear",
		}),
		RecordsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_dropped_on_load_total",
			Help:      "Malformed entries filtered out while loading",
		}),
		SnapshotRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_records",
			Help:      "Number of records in the in-memory snapshot",
		}),
		PersistFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "persist_failures_total",
				Help:      "Byte store writes that failed, by operation",
			},
			[]string{"operation"},
		),
		PersistDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "persist_duration_seconds",
				Help:      "Byte store write duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		EventsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_published_total",
				Help:      "Record events published to the broker, by type and status",
			},
			[]string{"type", "status"},
		),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.RecordsAppended,
		c.RecordsRemoved,
		c.RecordsCleared,
		c.RecordsDropped,
		c.SnapshotRecords,
		c.PersistFailures,
		c.PersistDuration,
		c.EventsPublished,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) ObserveHTTP(method, route string, status int, d time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// The methods below satisfy store.Metrics.

func (c *Collector) RecordAppended() { c.RecordsAppended.Inc() }
func (c *Collector) RecordRemoved()  { c.RecordsRemoved.Inc() }

func (c *Collector) RecordsClearedN(n int) { c.RecordsCleared.Add(float64(n)) }

func (c *Collector) RecordsDroppedN(n int) { c.RecordsDropped.Add(float64(n)) }

func (c *Collector) SnapshotSize(n int) { c.SnapshotRecords.Set(float64(n)) }

func (c *Collector) PersistFailed(op string) { c.PersistFailures.WithLabelValues(op).Inc() }

func (c *Collector) PersistObserved(op string, d time.Duration) {
	c.PersistDuration.WithLabelValues(op).Observe(d.Seconds())
}

func (c *Collector) EventPublished(eventType string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.EventsPublished.WithLabelValues(eventType, status).Inc()
}
