// Package metrics holds the Prometheus collectors for gateway calls and
// view-server requests.
package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/claude/futurecoach/internal/tracker"
)

type Manager struct {
	// counters
	CounterBackendRequests *prometheus.CounterVec
	CounterViewRequests    *prometheus.CounterVec
	CounterSaveOps         *prometheus.CounterVec
	CounterPanics          prometheus.Counter

	// gauges
	GaugeInFlight prometheus.Gauge

	// histograms
	HistBackendDuration *prometheus.HistogramVec
	HistViewDuration    *prometheus.HistogramVec
}

func NewTestManager() *Manager {
	return NewManager("coach", "test", prometheus.NewRegistry())
}

func NewTestManagerAndRegistry() (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewManager("coach", "test", reg), reg
}

func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	counterBackend := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "backend_requests_total",
		Help:      "Requests issued to the coaching backend",
	}, []string{"method", "route", "status"})
	counterView := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "view_requests_total",
		Help:      "Requests served by the view server",
	}, []string{"method", "route", "status"})
	counterSaveOps := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "save_ops_total",
		Help:      "Set operations issued by workout saves",
	}, []string{"outcome"})
	counterPanics := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "handler_panics_total",
		Help:      "Recovered view-server handler panics",
	})

	gaugeInFlight := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "view_requests_in_flight",
		Help:      "View-server requests currently being served",
	})

	histBackend := factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "backend_request_duration_seconds",
		Help:      "Round-trip time of backend requests",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"method", "route"})
	histView := factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "view_request_duration_seconds",
		Help:      "Duration of view-server requests",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
	}, []string{"method", "route"})

	return &Manager{
		CounterBackendRequests: counterBackend,
		CounterViewRequests:    counterView,
		CounterSaveOps:         counterSaveOps,
		CounterPanics:          counterPanics,
		GaugeInFlight:          gaugeInFlight,
		HistBackendDuration:    histBackend,
		HistViewDuration:       histView,
	}
}

// ObserveRequest records one backend call. Status 0 is labelled "error".
func (m *Manager) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.CounterBackendRequests.WithLabelValues(method, route, statusLabel(status)).Inc()
	m.HistBackendDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveView records one served view-server request.
func (m *Manager) ObserveView(method, route string, status int, elapsed time.Duration) {
	m.CounterViewRequests.WithLabelValues(method, route, statusLabel(status)).Inc()
	m.HistViewDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveSave records the outcome of a save's operations.
func (m *Manager) ObserveSave(applied, planned int) {
	m.CounterSaveOps.WithLabelValues("applied").Add(float64(applied))
	if failed := planned - applied; failed > 0 {
		m.CounterSaveOps.WithLabelValues("skipped").Add(float64(failed))
	}
}

func statusLabel(status int) string {
	if status == 0 {
		return "error"
	}
	return strconv.Itoa(status)
}

// RecordSync counts the operations of a save attempt.
func (m *Manager) RecordSync(_ context.Context, e tracker.SyncEntry) error {
	m.ObserveSave(e.Applied, e.Planned)
	return nil
}
