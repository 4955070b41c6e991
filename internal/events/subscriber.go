package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/momentd/internal/logging"
	"github.com/fyrsmithlabs/momentd/internal/moments"
	"github.com/fyrsmithlabs/momentd/internal/patterns"
)

// DefaultHandlerTimeout bounds the work done for one calendar message.
const DefaultHandlerTimeout = 30 * time.Second

// CalendarMoment is the payload of <prefix>.calendar.upcoming.
type CalendarMoment struct {
	UserID          string             `json:"user_id"`
	ExternalEventID string             `json:"external_event_id"`
	Title           string             `json:"title"`
	Description     string             `json:"description,omitempty"`
	StartTime       *time.Time         `json:"start_time,omitempty"`
	Attendees       []string           `json:"attendees,omitempty"`
	EventType       patterns.EventType `json:"event_type,omitempty"`
	UserContext     string             `json:"user_context,omitempty"`
}

// CalendarReply answers a calendar message sent with a reply subject.
type CalendarReply struct {
	MomentID string          `json:"moment_id,omitempty"`
	Matches  []moments.Match `json:"matches,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// MomentCreator creates and matches moments.
type MomentCreator interface {
	CreateAndMatch(ctx context.Context, req moments.CreateRequest) (*moments.MomentWithMatches, error)
	// FindCalendarMoment returns moments.ErrNotFound when the event has no
	// active moment yet.
	FindCalendarMoment(ctx context.Context, userID, externalEventID string) (*moments.MomentWithMatches, error)
}

// CalendarSubscriber creates a calendar moment for every upcoming event.
// Redelivery of an event that still has an active moment answers with that
// moment instead of creating another.
type CalendarSubscriber struct {
	nc      *nats.Conn
	subject string
	creator MomentCreator
	logger  *logging.Logger
	timeout time.Duration
	sub     *nats.Subscription
}

// NewCalendarSubscriber creates a subscriber for <prefix>.calendar.upcoming.
func NewCalendarSubscriber(nc *nats.Conn, prefix string, creator MomentCreator, logger *logging.Logger) *CalendarSubscriber {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &CalendarSubscriber{
		nc:      nc,
		subject: Subject(prefix, SubjectCalendarUpcoming),
		creator: creator,
		logger:  logger.Named("calendar"),
		timeout: DefaultHandlerTimeout,
	}
}

// Start subscribes. Messages are handled one at a time on the NATS
// client's delivery goroutine.
func (c *CalendarSubscriber) Start() error {
	sub, err := c.nc.Subscribe(c.subject, c.handle)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", c.subject, err)
	}
	c.sub = sub
	return nil
}

// Stop drains the subscription so in-flight messages finish.
func (c *CalendarSubscriber) Stop() error {
	if c.sub == nil {
		return nil
	}
	return c.sub.Drain()
}

func (c *CalendarSubscriber) handle(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	var in CalendarMoment
	if err := json.Unmarshal(msg.Data, &in); err != nil {
		CalendarMessagesTotal.WithLabelValues("invalid").Inc()
		c.logger.Warn(ctx, "discarding malformed calendar message", zap.Error(err))
		c.reply(ctx, msg, CalendarReply{Error: "malformed message"})
		return
	}

	ctx = logging.WithUserID(ctx, in.UserID)
	if in.UserID != "" && strings.TrimSpace(in.ExternalEventID) != "" {
		existing, err := c.creator.FindCalendarMoment(ctx, in.UserID, in.ExternalEventID)
		switch {
		case err == nil:
			CalendarMessagesTotal.WithLabelValues("duplicate").Inc()
			c.logger.Debug(ctx, "calendar moment already exists",
				zap.String("moment_id", existing.Moment.ID),
				zap.String("external_event_id", in.ExternalEventID))
			c.reply(ctx, msg, CalendarReply{MomentID: existing.Moment.ID, Matches: existing.Matches})
			return
		case !errors.Is(err, moments.ErrNotFound):
			CalendarMessagesTotal.WithLabelValues("failed").Inc()
			c.logger.Warn(ctx, "calendar moment lookup failed",
				zap.String("external_event_id", in.ExternalEventID),
				zap.Error(err))
			c.reply(ctx, msg, CalendarReply{Error: err.Error()})
			return
		}
	}

	out, err := c.creator.CreateAndMatch(ctx, in.request())
	if err != nil {
		outcome := "failed"
		if errors.Is(err, moments.ErrInvalidInput) {
			outcome = "invalid"
		}
		CalendarMessagesTotal.WithLabelValues(outcome).Inc()
		c.logger.Warn(ctx, "calendar moment rejected",
			zap.String("external_event_id", in.ExternalEventID),
			zap.Error(err))
		c.reply(ctx, msg, CalendarReply{Error: err.Error()})
		return
	}

	CalendarMessagesTotal.WithLabelValues("created").Inc()
	c.logger.Info(ctx, "calendar moment created",
		zap.String("moment_id", out.Moment.ID),
		zap.Int("matches", len(out.Matches)))
	c.reply(ctx, msg, CalendarReply{MomentID: out.Moment.ID, Matches: out.Matches})
}

func (c *CalendarSubscriber) reply(ctx context.Context, msg *nats.Msg, r CalendarReply) {
	if msg.Reply == "" {
		return
	}
	data, err := json.Marshal(r)
	if err != nil {
		c.logger.Error(ctx, "failed to encode calendar reply", zap.Error(err))
		return
	}
	if err := msg.Respond(data); err != nil {
		c.logger.Warn(ctx, "failed to reply to calendar message", zap.Error(err))
	}
}

// request builds the moment request. The event title stands in for a
// missing description.
func (in CalendarMoment) request() moments.CreateRequest {
	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		desc = strings.TrimSpace(in.Title)
	}
	return moments.CreateRequest{
		UserID:      in.UserID,
		Description: desc,
		Source:      moments.SourceCalendar,
		UserContext: in.UserContext,
		EventType:   in.EventType,
		Calendar: &moments.CalendarData{
			ExternalEventID: in.ExternalEventID,
			Title:           in.Title,
			StartTime:       in.StartTime,
			Attendees:       in.Attendees,
		},
	}
}
