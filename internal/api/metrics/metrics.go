// Package metrics defines the custom Prometheus metrics of the youth admin API.
// It is the single source of truth for metric names, labels and help strings.
//
// Metrics are registered with the default registry through promauto, so they
// are exported on /metrics as soon as the package is imported.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "youth_admin"

// ── Auth metrics ──────────────────────────────────────────────────────────────

// LoginsTotal counts login attempts.
// Label:
//   - result: "success" or "failure"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// PasswordChangesTotal counts successful password changes.
// Label:
//   - forced: "true" when the account was flagged for a forced change
var PasswordChangesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "password_changes_total",
		Help:      "Total number of password changes, split by forced or voluntary.",
	},
	[]string{"forced"},
)

// ── Attendance metrics ────────────────────────────────────────────────────────

// AttendanceMarksTotal counts recorded attendance marks.
// Label:
//   - present: "true" or "false"
var AttendanceMarksTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "attendance_marks_total",
		Help:      "Total number of attendance marks recorded.",
	},
	[]string{"present"},
)

// ── SMS metrics ───────────────────────────────────────────────────────────────

// SMSQueuedTotal counts messages accepted for delivery.
var SMSQueuedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sms_queued_total",
		Help:      "Total number of SMS messages queued for delivery.",
	},
)

// SMSDeliveredTotal counts delivery attempts.
// Label:
//   - status: "sent" or "failed"
var SMSDeliveredTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sms_delivered_total",
		Help:      "Total number of SMS delivery attempts, by outcome.",
	},
	[]string{"status"},
)

// SMSQueueDepth tracks the number of messages waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var SMSQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sms_queue_depth",
		Help:      "Current number of SMS messages pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// SMSDeliveryDuration measures one delivery from dequeue to recorded outcome.
var SMSDeliveryDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "sms_delivery_duration_seconds",
		Help:      "Duration of SMS delivery from dequeue to persistence.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"status"},
)
