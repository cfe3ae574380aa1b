// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "campusevents",
		Name:      "events_created_total",
		Help:      "Events created, by type.",
	}, []string{"type"})

	ConflictsReported = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "campusevents",
		Name:      "event_conflicts_reported_total",
		Help:      "Overlapping events reported to callers on create or reschedule.",
	})

	AttendanceMarks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "campusevents",
		Name:      "attendance_marks_total",
		Help:      "Attendance scans, by outcome (recorded, invalid_token, not_found).",
	}, []string{"outcome"})

	NotificationsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "campusevents",
		Name:      "notifications_created_total",
		Help:      "Notification records written, by type.",
	}, []string{"type"})

	ReminderSweeps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "campusevents",
		Name:      "reminder_sweeps_total",
		Help:      "Reminder sweeps run by the worker, by result.",
	}, []string{"result"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "campusevents",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// GinMiddleware observes request latency keyed by the matched route.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		HTTPDuration.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
