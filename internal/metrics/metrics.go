package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	EmailsSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "emails_sent_total",
			Help: "Total scheduled emails dispatched successfully",
		},
	)

	EmailFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "email_failures_total",
			Help: "Total scheduled emails that failed to send",
		},
	)

	RemindersDismissed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "reminders_dismissed_total",
			Help: "Total reminders auto-dismissed after a linked send",
		},
	)

	PollDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dispatch_poll_duration_seconds",
			Help:    "Duration of one dispatcher poll cycle",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func Init() {
	prometheus.MustRegister(EmailsSent)
	prometheus.MustRegister(EmailFailures)
	prometheus.MustRegister(RemindersDismissed)
	prometheus.MustRegister(PollDuration)
}
