// Package metrics exposes cycle and probe outcomes as Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hazz-dev/ewwatch/internal/report"
)

// Metrics wraps Prometheus collectors for ewwatch. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry             *prometheus.Registry
	cycleDurationSeconds prometheus.Histogram
	checkHealthy         *prometheus.GaugeVec
	checkDurationSeconds *prometheus.GaugeVec
	healthy              prometheus.Gauge
	notificationsTotal   *prometheus.CounterVec
	lastCycleGauge       prometheus.Gauge
}

// New initializes a Metrics registry with all collectors registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		cycleDurationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ewwatch_cycle_duration_seconds",
			Help:    "Duration of health check cycles in seconds.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		}),
		checkHealthy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ewwatch_check_healthy",
			Help: "Outcome of the last run of each check (1 healthy, 0 failing).",
		}, []string{"check"}),
		checkDurationSeconds: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ewwatch_check_duration_seconds",
			Help: "Duration of the last run of each check in seconds.",
		}, []string{"check"}),
		healthy: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ewwatch_healthy",
			Help: "Overall verdict of the last cycle (1 healthy, 0 failing).",
		}),
		notificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ewwatch_notifications_total",
			Help: "Notification deliveries by result.",
		}, []string{"result"}),
		lastCycleGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ewwatch_last_cycle_timestamp",
			Help: "Unix timestamp of the last completed cycle.",
		}),
	}

	registry.MustRegister(
		m.cycleDurationSeconds,
		m.checkHealthy,
		m.checkDurationSeconds,
		m.healthy,
		m.notificationsTotal,
		m.lastCycleGauge,
	)

	return m
}

// Handler returns a Prometheus HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveReport records the outcome of a completed cycle.
func (m *Metrics) ObserveReport(r report.Report, duration time.Duration) {
	if m == nil {
		return
	}
	m.cycleDurationSeconds.Observe(duration.Seconds())
	m.healthy.Set(boolToFloat(r.Healthy))
	for _, res := range r.Results {
		m.checkHealthy.WithLabelValues(res.Name).Set(boolToFloat(res.Healthy))
		m.checkDurationSeconds.WithLabelValues(res.Name).Set(res.Duration.Seconds())
	}
	m.lastCycleGauge.Set(float64(r.Timestamp.Unix()))
}

// ObserveDelivery counts a notification attempt.
func (m *Metrics) ObserveDelivery(delivered bool) {
	if m == nil {
		return
	}
	result := "failed"
	if delivered {
		result = "sent"
	}
	m.notificationsTotal.WithLabelValues(result).Inc()
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
