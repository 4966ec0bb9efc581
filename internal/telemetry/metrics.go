// Package telemetry exposes the process's own Prometheus metrics.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"kubeops-dashboard/internal/apperr"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "kubeops"

// Metrics holds every collector the dashboard registers. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	backendCalls    *prometheus.CounterVec
	backendDuration *prometheus.HistogramVec
	analysisTasks   *prometheus.CounterVec
	snapshots       *prometheus.CounterVec
	streamClients   prometheus.Gauge
}

// New registers the dashboard metrics on a fresh registry that also carries
// the Go runtime and process collectors
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return newWithRegistry(reg, reg)
}

func newWithRegistry(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		gatherer: gatherer,
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served by route and status code",
		}, []string{"method", "route", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		backendCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_calls_total",
			Help:      "Calls made to cluster backends by outcome",
		}, []string{"backend", "operation", "outcome"}),
		backendDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_call_duration_seconds",
			Help:      "Latency of calls made to cluster backends",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"backend", "operation"}),
		analysisTasks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_tasks_total",
			Help:      "Analysis tasks finished by terminal status",
		}, []string{"status"}),
		snapshots: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summary_snapshots_total",
			Help:      "Summary snapshots recorded per cluster and outcome",
		}, []string{"cluster", "outcome"}),
		streamClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "overview_stream_clients",
			Help:      "Open overview websocket connections",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ObserveHTTP records one served request
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveBackend records one backend call. The outcome label is "ok" or the
// error kind.
func (m *Metrics) ObserveBackend(backend, operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = apperr.KindOf(err).String()
	}
	m.backendCalls.WithLabelValues(backend, operation, outcome).Inc()
	m.backendDuration.WithLabelValues(backend, operation).Observe(time.Since(start).Seconds())
}

// AnalysisFinished counts a task reaching a terminal status
func (m *Metrics) AnalysisFinished(status string) {
	if m == nil {
		return
	}
	m.analysisTasks.WithLabelValues(status).Inc()
}

// SnapshotRecorded counts one snapshot attempt
func (m *Metrics) SnapshotRecorded(cluster string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.snapshots.WithLabelValues(cluster, outcome).Inc()
}

// StreamOpened and StreamClosed track live websocket clients
func (m *Metrics) StreamOpened() {
	if m != nil {
		m.streamClients.Inc()
	}
}

func (m *Metrics) StreamClosed() {
	if m != nil {
		m.streamClients.Dec()
	}
}
