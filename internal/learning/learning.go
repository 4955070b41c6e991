// Package learning tracks which thoughts were helpful in which situations.
//
// Each piece of feedback on a matched thought is fanned out into one
// LearningRecord per pattern of the moment it was matched to. When a new
// moment arrives, records for its patterns are aggregated per thought and
// thoughts with enough consistent positive feedback are offered to the
// scorer as hints.
package learning

import (
	"context"
	"errors"
	"time"

	"github.com/fyrsmithlabs/momentd/internal/patterns"
)

const (
	// ConfidenceThreshold is the minimum aggregate confidence of a hint.
	ConfidenceThreshold = 0.7

	// HelpfulThreshold is the minimum aggregate helpful count of a hint.
	// Below it a perfect ratio is still a lucky streak.
	HelpfulThreshold = 3

	// MaxHints caps the hints returned for one moment.
	MaxHints = 10
)

// ErrStoreUnavailable wraps any failure of the learning store.
var ErrStoreUnavailable = errors.New("learning store unavailable")

// Record is the feedback tally for one (user, pattern, thought).
type Record struct {
	UserID          string
	PatternType     patterns.Type
	PatternKey      string
	ThoughtID       string
	HelpfulCount    int
	NotHelpfulCount int
	LastHelpfulAt   *time.Time
}

// Delta is an increment applied to a Record, creating it at zero if absent.
type Delta struct {
	UserID          string
	PatternType     patterns.Type
	PatternKey      string
	ThoughtID       string
	HelpfulDelta    int
	NotHelpfulDelta int

	// HelpfulAt refreshes LastHelpfulAt when set.
	HelpfulAt *time.Time
}

// Store persists learning records.
type Store interface {
	// LearningRecords returns the user's records whose key is in keys.
	LearningRecords(ctx context.Context, userID string, keys []string) ([]Record, error)

	// ApplyLearningDeltas upserts every delta atomically, incrementing
	// counts in place.
	ApplyLearningDeltas(ctx context.Context, deltas []Delta) error
}

// Hint is a thought that was consistently helpful for similar moments.
type Hint struct {
	ThoughtID       string  `json:"thought_id"`
	Confidence      float64 `json:"confidence"`
	HelpfulCount    int     `json:"helpful_count"`
	NotHelpfulCount int     `json:"not_helpful_count"`
}

// Confidence returns helpful / (helpful + notHelpful). The ratio is
// undefined, and ok is false, when there is no feedback at all.
func Confidence(helpful, notHelpful int) (float64, bool) {
	total := helpful + notHelpful
	if total <= 0 {
		return 0, false
	}
	return float64(helpful) / float64(total), true
}
