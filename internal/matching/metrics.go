package matching

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MatchDuration tracks scorer round trips.
	// Labels: outcome (ok, timeout, malformed, failed)
	MatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "momentd",
			Subsystem: "matching",
			Name:      "duration_seconds",
			Help:      "Duration of AI relevance scoring calls in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 3, 4, 5, 6},
		},
		[]string{"outcome"},
	)

	// MatchesTotal counts validated matches returned by the scorer.
	MatchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "momentd",
			Subsystem: "matching",
			Name:      "matches_total",
			Help:      "Total number of validated matches returned by the AI scorer",
		},
	)
)

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrScorerTimeout):
		return "timeout"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed"
	default:
		return "failed"
	}
}
