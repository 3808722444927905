// Package observability provides Prometheus metrics for the analysis
// pipeline: vision service traffic and record store operations.
package observability

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Kirushanth-G/transformer-monitoring/internal/httpclient"
)

// Metrics holds the application's metric collectors on a dedicated
// registry so default Go runtime collectors can be added explicitly.
type Metrics struct {
	registry *prometheus.Registry

	Vision    *VisionMetrics
	Datastore *DatastoreMetrics
}

// NewMetrics creates and registers all metric collectors.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	vision, err := newVisionMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("creating vision metrics: %w", err)
	}
	ds, err := newDatastoreMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("creating datastore metrics: %w", err)
	}

	if err := registry.Register(collectors.NewGoCollector()); err != nil {
		return nil, fmt.Errorf("registering go collector: %w", err)
	}
	if err := registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, fmt.Errorf("registering process collector: %w", err)
	}

	return &Metrics{
		registry:  registry,
		Vision:    vision,
		Datastore: ds,
	}, nil
}

// Handler returns an HTTP handler serving the registry in the Prometheus
// exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// VisionMetrics tracks calls to the external vision service.
type VisionMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	detectionsTotal prometheus.Counter
	analysesTotal   *prometheus.CounterVec
}

func newVisionMetrics(registry *prometheus.Registry) (*VisionMetrics, error) {
	m := &VisionMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vision_requests_total",
				Help: "HTTP requests to the vision service by method and status code",
			},
			[]string{"method", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vision_request_duration_seconds",
				Help:    "Vision service request duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
			},
			[]string{"method"},
		),
		detectionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "vision_detections_total",
				Help: "Anomaly detections returned by the vision service",
			},
		),
		analysesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vision_analyses_total",
				Help: "Completed analyses by overall assessment",
			},
			[]string{"assessment"},
		),
	}

	for _, c := range []prometheus.Collector{
		m.requestsTotal, m.requestDuration, m.detectionsTotal, m.analysesTotal,
	} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// RecordAnalysis counts a completed analysis and its detections.
func (m *VisionMetrics) RecordAnalysis(assessment string, detections int) {
	m.analysesTotal.WithLabelValues(assessment).Inc()
	m.detectionsTotal.Add(float64(detections))
}

// InstrumentTransport attaches request hooks to the vision client's
// transport so every upstream call is counted and timed.
func (m *VisionMetrics) InstrumentTransport(client *httpclient.Client) {
	starts := &startTracker{}
	client.SetBeforeRequestHook(func(req *http.Request) {
		starts.begin(req)
	})
	client.SetAfterResponseHook(func(req *http.Request, resp *http.Response, err error) {
		status := "error"
		if err == nil && resp != nil {
			status = strconv.Itoa(resp.StatusCode)
		}
		m.requestsTotal.WithLabelValues(req.Method, status).Inc()
		if started, ok := starts.end(req); ok {
			m.requestDuration.WithLabelValues(req.Method).Observe(time.Since(started).Seconds())
		}
	})
}

// startTracker remembers per-request start times between the before and
// after hooks. Keyed by the request pointer, which is stable across a
// single round trip.
type startTracker struct {
	m sync.Map
}

func (t *startTracker) begin(req *http.Request) {
	t.m.Store(req, time.Now())
}

func (t *startTracker) end(req *http.Request) (time.Time, bool) {
	v, ok := t.m.LoadAndDelete(req)
	if !ok {
		return time.Time{}, false
	}
	return v.(time.Time), true
}

// DatastoreMetrics tracks record store operations.
type DatastoreMetrics struct {
	operationsTotal *prometheus.CounterVec
}

func newDatastoreMetrics(registry *prometheus.Registry) (*DatastoreMetrics, error) {
	m := &DatastoreMetrics{
		operationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "datastore_operations_total",
				Help: "Record store operations by operation name and outcome",
			},
			[]string{"operation", "outcome"},
		),
	}
	if err := registry.Register(m.operationsTotal); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordOperation counts one store operation.
func (m *DatastoreMetrics) RecordOperation(operation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.operationsTotal.WithLabelValues(operation, outcome).Inc()
}
