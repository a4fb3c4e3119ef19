// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "job_runs_total",
			Help: "Total number of scheduled job runs by outcome",
		},
		[]string{"job", "status"},
	)

	JobRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "job_run_duration_seconds",
			Help:    "Duration of scheduled job runs in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"job"},
	)

	JobRunsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "job_runs_active",
			Help: "Number of job runs currently in flight",
		},
		[]string{"job"},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Notification outcomes per template kind",
		},
		[]string{"kind", "result"},
	)

	ChannelSendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_channel_sends_total",
			Help: "Delivery attempts per channel",
		},
		[]string{"channel", "status"},
	)

	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_lookups_total",
			Help: "File cache lookups by result",
		},
		[]string{"result"},
	)

	FipeRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fipe_requests_total",
			Help: "Upstream FIPE API requests by resource and status",
		},
		[]string{"resource", "status"},
	)

	FipeRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "fipe_request_duration_seconds",
			Help: "Duration of upstream FIPE API requests in seconds",
		},
		[]string{"resource"},
	)
)
