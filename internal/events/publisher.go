package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/momentd/internal/logging"
	"github.com/fyrsmithlabs/momentd/internal/moments"
)

// MatchedThought is one match in a MomentMatched event.
type MatchedThought struct {
	ThoughtID string  `json:"thought_id"`
	Score     float64 `json:"relevance_score"`
}

// MomentMatched is published after every matching pass.
type MomentMatched struct {
	UserID           string             `json:"user_id"`
	MomentID         string             `json:"moment_id"`
	Source           moments.Source     `json:"source"`
	MatchState       moments.MatchState `json:"match_state"`
	GemsMatchedCount int                `json:"gems_matched_count"`
	ProcessingTimeMs int64              `json:"processing_time_ms"`
	Matches          []MatchedThought   `json:"matches"`
	PublishedAt      time.Time          `json:"published_at"`
}

// Publisher publishes moment lifecycle events. It implements
// moments.Notifier; publish failures are logged and counted, never
// returned.
type Publisher struct {
	nc     *nats.Conn
	prefix string
	logger *logging.Logger
	now    func() time.Time
}

// NewPublisher creates a Publisher on nc.
func NewPublisher(nc *nats.Conn, prefix string, logger *logging.Logger) *Publisher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Publisher{
		nc:     nc,
		prefix: prefix,
		logger: logger.Named("events"),
		now:    time.Now,
	}
}

// MomentMatched publishes <prefix>.moment.matched.
func (p *Publisher) MomentMatched(ctx context.Context, m *moments.MomentWithMatches) {
	if m == nil || m.Moment == nil {
		return
	}
	ev := MomentMatched{
		UserID:           m.Moment.UserID,
		MomentID:         m.Moment.ID,
		Source:           m.Moment.Source,
		MatchState:       m.Moment.MatchState,
		GemsMatchedCount: m.Moment.GemsMatchedCount,
		ProcessingTimeMs: m.Moment.ProcessingTimeMs,
		Matches:          make([]MatchedThought, 0, len(m.Matches)),
		PublishedAt:      p.now().UTC(),
	}
	for _, match := range m.Matches {
		ev.Matches = append(ev.Matches, MatchedThought{ThoughtID: match.ThoughtID, Score: match.Score})
	}
	p.publish(ctx, SubjectMomentMatched, ev)
}

// FeedbackRecorded publishes <prefix>.feedback.recorded.
func (p *Publisher) FeedbackRecorded(ctx context.Context, e moments.FeedbackEvent) {
	p.publish(ctx, SubjectFeedbackRecorded, e)
}

func (p *Publisher) publish(ctx context.Context, suffix string, v any) {
	subject := Subject(p.prefix, suffix)

	data, err := json.Marshal(v)
	if err != nil {
		PublishedTotal.WithLabelValues(suffix, "error").Inc()
		p.logger.Error(ctx, "failed to encode event", zap.String("subject", subject), zap.Error(err))
		return
	}
	if err := p.nc.Publish(subject, data); err != nil {
		PublishedTotal.WithLabelValues(suffix, "error").Inc()
		p.logger.Warn(ctx, "failed to publish event", zap.String("subject", subject), zap.Error(err))
		return
	}
	PublishedTotal.WithLabelValues(suffix, "ok").Inc()
	p.logger.Debug(ctx, "event published", zap.String("subject", subject))
}

var _ moments.Notifier = (*Publisher)(nil)
