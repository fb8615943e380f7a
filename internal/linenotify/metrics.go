package linenotify

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	notificationsEnqueued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "linenotify_enqueued_total",
			Help: "Total number of notifications queued",
		},
	)

	notificationsSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "linenotify_sent_total",
			Help: "Total number of notifications delivered",
		},
	)

	notificationsFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "linenotify_failed_total",
			Help: "Total number of failed delivery attempts",
		},
	)

	dispatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "linenotify_dispatch_duration_seconds",
			Help:    "Duration of dispatcher passes",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func RecordEnqueued(n int) {
	notificationsEnqueued.Add(float64(n))
}

func RecordSent() {
	notificationsSent.Inc()
}

func RecordFailed() {
	notificationsFailed.Inc()
}

func ObserveDispatchDuration(d time.Duration) {
	dispatchDuration.Observe(d.Seconds())
}
