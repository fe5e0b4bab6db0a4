package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "picture_collab"

	kindLabel    = "kind"
	outcomeLabel = "outcome"
	reasonLabel  = "reason"
	shardLabel   = "shard"
)

// Event outcomes recorded by the pipeline.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
	OutcomePanic  = "panic"
)

// Metrics groups the collectors of the editing coordinator.
type Metrics struct {
	registry *prometheus.Registry

	ActiveSessions     prometheus.Gauge
	ActivePictures     prometheus.Gauge
	LockedPictures     prometheus.Gauge
	AdmissionsRejected *prometheus.CounterVec
	EventsPublished    *prometheus.CounterVec
	EventsProcessed    *prometheus.CounterVec
	PublishRejected    *prometheus.CounterVec
	QueueDepth         *prometheus.GaugeVec
	Deliveries         prometheus.Counter
	DeliveriesDropped  prometheus.Counter
}

// New creates the collectors and registers them on a fresh registry, together
// with the Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "number of open editing sessions",
		}),
		ActivePictures: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_pictures",
			Help:      "number of pictures with at least one open session",
		}),
		LockedPictures: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "locked_pictures",
			Help:      "number of pictures whose edit lock is held",
		}),
		AdmissionsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admissions_rejected_total",
			Help:      "connection attempts refused by the gatekeeper",
		}, []string{reasonLabel}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "events accepted by the ingress pipeline",
		}, []string{kindLabel}),
		EventsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_processed_total",
			Help:      "events consumed by pipeline workers",
		}, []string{kindLabel, outcomeLabel}),
		PublishRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_rejected_total",
			Help:      "events the ingress pipeline refused to accept",
		}, []string{reasonLabel}),
		QueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ingress_queue_depth",
			Help:      "events waiting in each ingress shard",
		}, []string{shardLabel}),
		Deliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "notifications queued to sessions",
		}),
		DeliveriesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_dropped_total",
			Help:      "notifications skipped because the session was closed or too slow",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ActiveSessions,
		m.ActivePictures,
		m.LockedPictures,
		m.AdmissionsRejected,
		m.EventsPublished,
		m.EventsProcessed,
		m.PublishRejected,
		m.QueueDepth,
		m.Deliveries,
		m.DeliveriesDropped,
	)

	return m
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
