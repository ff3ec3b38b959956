// Package metrics 服务的 Prometheus 指标
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry 应用自有的指标注册表
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "titaflow",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "titaflow",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "route"},
	)

	contributions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "titaflow",
			Subsystem: "ledger",
			Name:      "contributions_total",
			Help:      "Total number of contributions recorded.",
		},
		[]string{"currency"},
	)

	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "titaflow",
			Subsystem: "notify",
			Name:      "deliveries_total",
			Help:      "Notification delivery attempts by channel and result.",
		},
		[]string{"channel", "type", "result"},
	)

	jobRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "titaflow",
			Subsystem: "scheduler",
			Name:      "job_runs_total",
			Help:      "Total number of scheduled job runs.",
		},
		[]string{"job", "success"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		httpRequests,
		httpDuration,
		contributions,
		notifications,
		jobRuns,
	)
}

// Handler 暴露 /metrics
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// ObserveHTTP 记录一次请求
func ObserveHTTP(method, route, status string, seconds float64) {
	httpRequests.WithLabelValues(method, route, status).Inc()
	httpDuration.WithLabelValues(method, route).Observe(seconds)
}

func RecordContribution(currency string) {
	contributions.WithLabelValues(currency).Inc()
}

// RecordDelivery channel: store, realtime, email；result: ok, error, dropped
func RecordDelivery(channel, notificationType, result string) {
	notifications.WithLabelValues(channel, notificationType, result).Inc()
}

func RecordJobRun(job string, success bool) {
	s := "false"
	if success {
		s = "true"
	}
	jobRuns.WithLabelValues(job, s).Inc()
}
