// Package metrics exposes the engine's prometheus instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Bookings = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scheduler_bookings_total",
		Help: "Appointments successfully booked.",
	})
	BookingConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scheduler_booking_conflicts_total",
		Help: "Booking attempts rejected because the slot was unavailable.",
	})
	Preemptions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scheduler_break_preemptions_total",
		Help: "Bookings cancelled by a break declared over their slot.",
	})
	ReminderFires = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scheduler_reminder_fires_total",
		Help: "Reminder triggers fired and delivered.",
	})
	TriggerFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scheduler_trigger_failures_total",
		Help: "Trigger registrations refused by the platform.",
	})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_http_requests_total",
		Help: "HTTP requests by method, path and status.",
	}, []string{"method", "path", "status"})
	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "scheduler_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
)

func RecordHTTPRequest(method, path, status string, seconds float64) {
	httpRequests.WithLabelValues(method, path, status).Inc()
	httpDuration.WithLabelValues(method, path).Observe(seconds)
}

func Handler() http.Handler {
	return promhttp.Handler()
}
