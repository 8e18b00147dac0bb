package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "spa_backoffice"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Count of HTTP requests by route and status.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	sessionsLogged = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "membership_sessions_logged_total",
			Help:      "Membership sessions logged, by category and source.",
		},
		[]string{"category", "source"},
	)

	overConsumption = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "membership_overconsumption_rejected_total",
			Help:      "Session logs rejected because the membership was exhausted.",
		},
		[]string{"reason"},
	)

	remindersSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_reminders_total",
			Help:      "Session reminders by channel and status.",
		},
		[]string{"channel", "status"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, sessionsLogged, overConsumption, remindersSent)
	})
}

func ObserveRequest(method, route, status string, d time.Duration) {
	httpRequests.WithLabelValues(method, route, status).Inc()
	httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// IncSessionLogged counts a usage row; source is "manual" or "bill".
func IncSessionLogged(category, source string) {
	sessionsLogged.WithLabelValues(category, source).Inc()
}

func IncOverConsumption(reason string) {
	overConsumption.WithLabelValues(reason).Inc()
}

func IncReminder(channel, status string) {
	remindersSent.WithLabelValues(channel, status).Inc()
}
