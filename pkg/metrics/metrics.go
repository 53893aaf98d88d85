// Package metrics exposes Prometheus collectors for the request lifecycle, feeds,
// notification delivery and the reminder task.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestsCreated counts create attempts by outcome (created, self, duplicate, quota_exceeded, ...).
	RequestsCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "linkit_requests_create_total",
		Help: "Request create attempts by kind and outcome",
	}, []string{"kind", "outcome"})

	// RequestsResponded counts respond attempts by outcome.
	RequestsResponded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "linkit_requests_respond_total",
		Help: "Request respond attempts by kind and outcome",
	}, []string{"kind", "outcome"})

	FeedsBuilt = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "linkit_feeds_built_total",
		Help: "Feeds built per kind",
	}, []string{"kind"})

	FeedSize = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "linkit_feed_size",
		Help:    "Number of candidates in a freshly built feed",
		Buckets: []float64{0, 1, 5, 10, 20, 35, 50, 100},
	}, []string{"kind"})

	FeedEndReached = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "linkit_feed_end_total",
		Help: "Advance calls that hit the end of the feed",
	}, []string{"kind", "direction"})

	// NotificationsSent counts delivery attempts; result is "ok" or "failed".
	NotificationsSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "linkit_notifications_total",
		Help: "Outbound notification attempts by result",
	}, []string{"result"})

	RemindersSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "linkit_reminders_total",
		Help: "Reminder deliveries by result",
	}, []string{"result"})

	ReminderRunDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "linkit_reminder_run_seconds",
		Help:    "Duration of one reminder pass",
		Buckets: prometheus.DefBuckets,
	})

	ReminderLastRun = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "linkit_reminder_last_run_timestamp_seconds",
		Help: "Unix timestamp of the last completed reminder pass",
	})

	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "linkit_http_requests_total",
		Help: "HTTP requests by method and status code",
	}, []string{"method", "status"})

	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "linkit_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

	OperatorAlerts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "linkit_operator_alerts_total",
		Help: "Fatal failures reported to the operator chat",
	})
)

func init() {
	prometheus.MustRegister(
		RequestsCreated, RequestsResponded,
		FeedsBuilt, FeedSize, FeedEndReached,
		NotificationsSent, RemindersSent, ReminderRunDuration, ReminderLastRun,
		HTTPRequests, HTTPDuration, OperatorAlerts,
	)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveReminderRun records one completed reminder pass.
func ObserveReminderRun(started time.Time) {
	ReminderRunDuration.Observe(time.Since(started).Seconds())
	ReminderLastRun.Set(float64(time.Now().Unix()))
}

// Result maps a boolean delivery outcome to a label value.
func Result(ok bool) string {
	if ok {
		return "ok"
	}
	return "failed"
}
