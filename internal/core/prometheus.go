package core

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetricsRecorder exports service operation outcomes through a
// prometheus registry. It fulfills MetricsRecorder for deployments scraping
// process metrics.
type PrometheusMetricsRecorder struct {
	operations *prometheus.CounterVec
	durations  *prometheus.HistogramVec
}

// NewPrometheusMetricsRecorder registers operation counters and latency
// histograms with the supplied registerer. Passing nil uses the default
// registerer.
func NewPrometheusMetricsRecorder(reg prometheus.Registerer) *PrometheusMetricsRecorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &PrometheusMetricsRecorder{
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "makerdesk",
			Subsystem: "service",
			Name:      "operations_total",
			Help:      "Total service operations broken down by operation and result.",
		}, []string{"operation", "result"}),
		durations: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "makerdesk",
			Subsystem: "service",
			Name:      "operation_duration_seconds",
			Help:      "Latency distribution for service operations.",
			Buckets:   []float64{0.0005, 0.001, 0.002, 0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5, 1, 2},
		}, []string{"operation", "result"}),
	}
}

// Observe records a service operation outcome.
func (r *PrometheusMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	result := "error"
	if success {
		result = "success"
	}
	r.operations.WithLabelValues(operation, result).Inc()
	r.durations.WithLabelValues(operation, result).Observe(duration.Seconds())
}

// KPICollector exposes the dashboard KPI counts as prometheus gauges. The
// source function is invoked per scrape, so values always reflect the current
// store state.
type KPICollector struct {
	source func() KPIs

	open      *prometheus.Desc
	inReview  *prometheus.Desc
	dueSoon   *prometheus.Desc
	completed *prometheus.Desc
}

// NewKPICollector constructs a collector reading KPI counts from source.
func NewKPICollector(source func() KPIs) *KPICollector {
	return &KPICollector{
		source:    source,
		open:      prometheus.NewDesc("makerdesk_requests_open", "Requests in new or in_progress status.", nil, nil),
		inReview:  prometheus.NewDesc("makerdesk_requests_in_review", "Requests in in_review or revision_needed status.", nil, nil),
		dueSoon:   prometheus.NewDesc("makerdesk_requests_due_soon", "Active requests due within the KPI window.", nil, nil),
		completed: prometheus.NewDesc("makerdesk_requests_completed_this_month", "Requests completed in the current calendar month.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *KPICollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.open
	ch <- c.inReview
	ch <- c.dueSoon
	ch <- c.completed
}

// Collect implements prometheus.Collector.
func (c *KPICollector) Collect(ch chan<- prometheus.Metric) {
	kpis := c.source()
	ch <- prometheus.MustNewConstMetric(c.open, prometheus.GaugeValue, float64(kpis.Open))
	ch <- prometheus.MustNewConstMetric(c.inReview, prometheus.GaugeValue, float64(kpis.InReview))
	ch <- prometheus.MustNewConstMetric(c.dueSoon, prometheus.GaugeValue, float64(kpis.DueSoon))
	ch <- prometheus.MustNewConstMetric(c.completed, prometheus.GaugeValue, float64(kpis.CompletedThisMonth))
}
