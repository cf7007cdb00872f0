// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatekeeper_events_total",
			Help: "Total number of inbound events handled, by kind and result",
		},
		[]string{"kind", "result"},
	)

	EventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatekeeper_events_dropped_total",
			Help: "Events rejected because the dispatcher was stopping",
		},
		[]string{"kind"},
	)

	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatekeeper_submissions_total",
			Help: "Questionnaire submissions by result",
		},
		[]string{"result"},
	)

	DecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatekeeper_decisions_total",
			Help: "Moderation decisions by decision and result",
		},
		[]string{"decision", "result"},
	)

	DeliveryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatekeeper_delivery_failures_total",
			Help: "Outbound notifications that could not be delivered",
		},
		[]string{"recipient"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gatekeeper_active_sessions",
			Help: "Number of questionnaires currently in progress",
		},
	)

	QueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gatekeeper_queue_depth",
			Help: "Events waiting per dispatcher shard",
		},
		[]string{"shard"},
	)
)

// Recipient labels for DeliveryFailures.
const (
	RecipientApplicant = "applicant"
	RecipientModerator = "moderator"
	RecipientEmail     = "email"
	RecipientEvents    = "events"
)
