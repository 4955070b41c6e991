package moments

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/fyrsmithlabs/momentd/internal/matching"
)

// Degradation reasons.
const (
	reasonThoughtsUnavailable = "thoughts_unavailable"
	reasonHintsUnavailable    = "hints_unavailable"
	reasonScorerTimeout       = "scorer_timeout"
	reasonScorerMalformed     = "scorer_malformed"
	reasonScorerFailed        = "scorer_failed"
	reasonPersistMatches      = "persist_matches"
	reasonReadMatches         = "read_matches"
	reasonUpdateMoment        = "update_moment"
	reasonLearningUnavailable = "learning_unavailable"
)

var (
	// DegradedTotal counts operations that continued with less information.
	// Labels: reason
	DegradedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "momentd",
			Subsystem: "matching",
			Name:      "degraded_total",
			Help:      "Total number of matching steps that failed open",
		},
		[]string{"reason"},
	)

	// MomentsCreatedTotal counts persisted moments.
	// Labels: source (manual, calendar)
	MomentsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "momentd",
			Subsystem: "moments",
			Name:      "created_total",
			Help:      "Total number of moments created",
		},
		[]string{"source"},
	)
)

func scorerReason(err error) string {
	switch {
	case errors.Is(err, matching.ErrScorerTimeout):
		return reasonScorerTimeout
	case errors.Is(err, matching.ErrMalformedResponse):
		return reasonScorerMalformed
	default:
		return reasonScorerFailed
	}
}
