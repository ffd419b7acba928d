// Package metrics provides Prometheus metrics for zarrdump
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for zarrdump. Each instance owns its
// registry so tests and CLI runs never share counters.
type Metrics struct {
	registry *prometheus.Registry

	// gRPC request metrics
	GrpcRequestsTotal    *prometheus.CounterVec
	GrpcRequestDuration  *prometheus.HistogramVec
	GrpcRequestsInFlight prometheus.Gauge

	// Store metrics
	LoadsTotal          *prometheus.CounterVec
	LoadDuration        *prometheus.HistogramVec
	VariablesDiscovered prometheus.Gauge
	DimensionsInferred  prometheus.Gauge
	SampleReadsTotal    *prometheus.CounterVec

	// CF check metrics
	IssuesTotal *prometheus.CounterVec

	// Server metrics
	ServerUptimeSeconds prometheus.Gauge
	ServerStartTime     time.Time
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	m := &Metrics{
		registry:        reg,
		ServerStartTime: time.Now(),
	}

	// gRPC request metrics
	m.GrpcRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zarrdump_grpc_requests_total",
			Help: "Total number of gRPC requests",
		},
		[]string{"method", "status"},
	)

	m.GrpcRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "zarrdump_grpc_request_duration_seconds",
			Help:    "Duration of gRPC requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	m.GrpcRequestsInFlight = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "zarrdump_grpc_requests_in_flight",
			Help: "Number of gRPC requests currently being processed",
		},
	)

	// Store metrics
	m.LoadsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zarrdump_loads_total",
			Help: "Total number of store metadata loads",
		},
		[]string{"strategy", "status"},
	)

	m.LoadDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "zarrdump_load_duration_seconds",
			Help:    "Duration of store metadata loads in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"strategy"},
	)

	m.VariablesDiscovered = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "zarrdump_variables_discovered",
			Help: "Variables found in the most recently loaded store",
		},
	)

	m.DimensionsInferred = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "zarrdump_dimensions_inferred",
			Help: "Dimensions inferred for the most recently loaded store",
		},
	)

	m.SampleReadsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zarrdump_sample_reads_total",
			Help: "Total number of array subset reads",
		},
		[]string{"status"},
	)

	// CF check metrics
	m.IssuesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zarrdump_issues_total",
			Help: "Total number of CF check issues by level",
		},
		[]string{"level"},
	)

	// Server metrics
	m.ServerUptimeSeconds = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "zarrdump_server_uptime_seconds",
			Help: "Server uptime in seconds",
		},
	)

	return m
}

// Registry exposes the registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves this instance's metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// WriteTextfile writes the current values in the node_exporter textfile
// format, for one-shot CLI runs.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

// TrackUptime updates the uptime gauge until ctx is done
func (m *Metrics) TrackUptime(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		m.ServerUptimeSeconds.Set(time.Since(m.ServerStartTime).Seconds())
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RecordGrpcRequest records a gRPC request with its status
func (m *Metrics) RecordGrpcRequest(method string, status string, duration time.Duration) {
	m.GrpcRequestsTotal.WithLabelValues(method, status).Inc()
	m.GrpcRequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordLoad records a store metadata load
func (m *Metrics) RecordLoad(strategy string, status string, duration time.Duration, variables, dimensions int) {
	m.LoadsTotal.WithLabelValues(strategy, status).Inc()
	m.LoadDuration.WithLabelValues(strategy).Observe(duration.Seconds())
	if status == "success" {
		m.VariablesDiscovered.Set(float64(variables))
		m.DimensionsInferred.Set(float64(dimensions))
	}
}

// RecordIssues adds one check run's issue counts
func (m *Metrics) RecordIssues(infos, warnings, errors int) {
	m.IssuesTotal.WithLabelValues("info").Add(float64(infos))
	m.IssuesTotal.WithLabelValues("warning").Add(float64(warnings))
	m.IssuesTotal.WithLabelValues("error").Add(float64(errors))
}

// RecordSampleRead records one array subset read
func (m *Metrics) RecordSampleRead(status string) {
	m.SampleReadsTotal.WithLabelValues(status).Inc()
}
