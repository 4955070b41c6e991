package moments

import (
	"context"
	"time"
)

// FeedbackEvent describes a recorded helpfulness vote.
type FeedbackEvent struct {
	UserID     string    `json:"user_id"`
	MomentID   string    `json:"moment_id"`
	ThoughtID  string    `json:"thought_id"`
	Helpful    bool      `json:"helpful"`
	Patterns   int       `json:"patterns"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Notifier is told about completed operations. Implementations must not
// block for long; errors are theirs to log.
type Notifier interface {
	MomentMatched(ctx context.Context, m *MomentWithMatches)
	FeedbackRecorded(ctx context.Context, e FeedbackEvent)
}

type nopNotifier struct{}

func (nopNotifier) MomentMatched(context.Context, *MomentWithMatches) {}
func (nopNotifier) FeedbackRecorded(context.Context, FeedbackEvent)   {}
