package events

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PublishedTotal counts lifecycle event publishes.
	// Labels: event (moment.matched, feedback.recorded), outcome (ok, error)
	PublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "momentd",
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Total number of lifecycle events published to NATS",
		},
		[]string{"event", "outcome"},
	)

	// CalendarMessagesTotal counts calendar messages handled by the subscriber.
	// Labels: outcome (created, duplicate, invalid, failed)
	CalendarMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "momentd",
			Subsystem: "events",
			Name:      "calendar_messages_total",
			Help:      "Total number of calendar messages received",
		},
		[]string{"outcome"},
	)
)
