package learning

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FeedbackTotal counts feedback events recorded.
	// Labels: helpful (true, false)
	FeedbackTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "momentd",
			Subsystem: "learning",
			Name:      "feedback_total",
			Help:      "Total number of feedback events recorded into the learning store",
		},
		[]string{"helpful"},
	)

	// HintsTotal counts hints handed to the scorer.
	HintsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "momentd",
			Subsystem: "learning",
			Name:      "hints_total",
			Help:      "Total number of learning hints returned for new moments",
		},
	)
)
