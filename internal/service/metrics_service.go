package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	settlementTotal    *prometheus.CounterVec
	settlementAmount   prometheus.Counter
	donationsRecorded  prometheus.Counter
	changeRequestTotal *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	settlementTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlements_total",
		Help: "Settlement attempts by outcome",
	}, []string{"outcome"})

	settlementAmount := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "settlement_transferred_minor_units_total",
		Help: "Total net minor units transferred to recipients",
	})

	donationsRecorded := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "donations_recorded_total",
		Help: "Total donations recorded from the payment gateway",
	})

	changeRequestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "change_requests_total",
		Help: "Change requests by type and lifecycle event",
	}, []string{"type", "event"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, settlementTotal, settlementAmount,
		donationsRecorded, changeRequestTotal, goroutines)

	return &MetricsService{
		registry:           registry,
		handler:            promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		settlementTotal:    settlementTotal,
		settlementAmount:   settlementAmount,
		donationsRecorded:  donationsRecorded,
		changeRequestTotal: changeRequestTotal,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveSettlement counts a settlement attempt outcome and, for transfers,
// accumulates the net amount moved.
func (m *MetricsService) ObserveSettlement(outcome string, netMinorUnits int64) {
	if m == nil {
		return
	}
	m.settlementTotal.WithLabelValues(outcome).Inc()
	if netMinorUnits > 0 {
		m.settlementAmount.Add(float64(netMinorUnits))
	}
}

// ObserveDonationRecorded counts an accepted gateway callback.
func (m *MetricsService) ObserveDonationRecorded() {
	if m == nil {
		return
	}
	m.donationsRecorded.Inc()
}

// ObserveChangeRequest counts a change request lifecycle event.
func (m *MetricsService) ObserveChangeRequest(requestType, event string) {
	if m == nil {
		return
	}
	m.changeRequestTotal.WithLabelValues(requestType, event).Inc()
}
